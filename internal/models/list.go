package models

import (
	"time"
)

// ListStatus filters grocery lists by completion
type ListStatus string

const (
	ListStatusCompleted  ListStatus = "completed"
	ListStatusUnfinished ListStatus = "unfinished"
)

// GroceryList represents a user's grocery list
type GroceryList struct {
	ID          int        `json:"id"`
	UserID      int        `json:"user_id"`
	Name        string     `json:"name"`
	Notes       *string    `json:"notes"`
	CompletedAt *time.Time `json:"completed_at"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
	DeletedAt   *time.Time `json:"deleted_at,omitempty"`
}

// GroceryListItem represents an item on a grocery list
type GroceryListItem struct {
	ID            int        `json:"id"`
	GroceryListID int        `json:"grocery_list_id"`
	PantryItemID  *int       `json:"pantry_item_id"`
	Name          string     `json:"name"`
	Quantity      *float64   `json:"quantity"`
	Unit          *string    `json:"unit"`
	Notes         *string    `json:"notes"`
	SortOrder     int        `json:"sort_order"`
	IsPurchased   bool       `json:"is_purchased"`
	Completed     bool       `json:"completed"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
	DeletedAt     *time.Time `json:"deleted_at,omitempty"`
}

// GroceryListWithItems includes the list and all its items
type GroceryListWithItems struct {
	GroceryList
	Items []GroceryListItem `json:"grocery_list_items"`
}

// GroceryListRef is the id+name pair used for display next to session items
type GroceryListRef struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

// Request types

// CreateListItemData is one item inside a create-with-items request
type CreateListItemData struct {
	Name      string   `json:"name" validate:"required,max=255"`
	Quantity  *float64 `json:"quantity" validate:"omitempty,min=0"`
	Unit      *string  `json:"unit" validate:"omitempty,max=10"`
	Notes     *string  `json:"notes" validate:"omitempty,max=500"`
	SortOrder *int     `json:"sort_order" validate:"omitempty,min=0"`
}

// CreateListRequest is the request body for creating a grocery list with its items
type CreateListRequest struct {
	Name  string               `json:"name" validate:"required,max=255"`
	Notes *string              `json:"notes"`
	Items []CreateListItemData `json:"items" validate:"omitempty,dive"`
}

// UpdateListRequest is the request body for updating a grocery list
type UpdateListRequest struct {
	Name        *string    `json:"name" validate:"omitempty,min=1,max=255"`
	Notes       *string    `json:"notes"`
	CompletedAt *time.Time `json:"completed_at"`
}

// ItemOrder assigns a new sort order to one item
type ItemOrder struct {
	ID        int `json:"id"`
	SortOrder int `json:"sort_order"`
}

// ItemOrderInput is one entry of a reorder body. SortOrder is a pointer so a
// missing value fails validation instead of decoding to 0.
type ItemOrderInput struct {
	ID        int  `json:"id" validate:"required,gt=0"`
	SortOrder *int `json:"sort_order" validate:"required,min=0"`
}

// ReorderRequest is the request body for bulk sort-order updates
type ReorderRequest struct {
	Items []ItemOrderInput `json:"items" validate:"required,min=1,dive"`
}

// Orders converts a validated request into item orders
func (r *ReorderRequest) Orders() []ItemOrder {
	orders := make([]ItemOrder, len(r.Items))
	for i, it := range r.Items {
		orders[i] = ItemOrder{ID: it.ID}
		if it.SortOrder != nil {
			orders[i].SortOrder = *it.SortOrder
		}
	}
	return orders
}

// ListListParams contains parameters for paginating grocery lists
type ListListParams struct {
	PerPage    int        `json:"per_page" validate:"omitempty,min=1,max=100"`
	Page       int        `json:"page" validate:"omitempty,min=1"`
	SearchTerm string     `json:"searchTerm" validate:"max=100"`
	Status     ListStatus `json:"status" validate:"omitempty,oneof=completed unfinished"`
	UserID     int        `json:"-"`
}
