package models

import (
	"time"
)

// ShoppingSession is a user's single active working copy of selected grocery lists
type ShoppingSession struct {
	ID             int       `json:"id"`
	UserID         int       `json:"user_id"`
	GroceryListIDs []int     `json:"grocery_list_ids"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// ShoppingItem is a session-scoped copy of a grocery list item
type ShoppingItem struct {
	ID                int       `json:"id"`
	ShoppingSessionID int       `json:"shopping_session_id"`
	GroceryListItemID int       `json:"grocery_list_item_id"`
	Name              string    `json:"name"`
	Quantity          *float64  `json:"quantity"`
	Unit              *string   `json:"unit"`
	Notes             *string   `json:"notes"`
	SortOrder         int       `json:"sort_order"`
	IsPurchased       bool      `json:"is_purchased"`
	CreatedAt         time.Time `json:"created_at"`
	UpdatedAt         time.Time `json:"updated_at"`
}

// SourceItemRef is the originating grocery list item shown with a session item
type SourceItemRef struct {
	ID            int            `json:"id"`
	GroceryListID int            `json:"grocery_list_id"`
	Name          string         `json:"name"`
	SortOrder     int            `json:"sort_order"`
	IsPurchased   bool           `json:"is_purchased"`
	GroceryList   GroceryListRef `json:"grocery_list"`
}

// ShoppingItemDetail is a session item joined with its source item and list.
// GroceryListItem is nil when the source has been soft-deleted.
type ShoppingItemDetail struct {
	ShoppingItem
	GroceryListItem *SourceItemRef `json:"grocery_list_item"`
}

// SessionView is the read model returned by get-shopping-session
type SessionView struct {
	GroceryListIDs []int                `json:"grocery_list_ids"`
	GroceryLists   []GroceryListRef     `json:"grocery_lists"`
	Items          []ShoppingItemDetail `json:"items"`
}

// FinishResult summarizes a reconciliation
type FinishResult struct {
	SessionID  int `json:"session_id"`
	Reconciled int `json:"reconciled"`
	Skipped    int `json:"skipped"`
}

// SessionArchive is the record written to object storage after finish
type SessionArchive struct {
	SessionID      int            `json:"session_id"`
	UserID         int            `json:"user_id"`
	GroceryListIDs []int          `json:"grocery_list_ids"`
	Items          []ShoppingItem `json:"items"`
	Reconciled     int            `json:"reconciled"`
	Skipped        int            `json:"skipped"`
	StartedAt      time.Time      `json:"started_at"`
	FinishedAt     time.Time      `json:"finished_at"`
}

// Request types

// CreateSessionRequest is the request body for save-shopping-session
type CreateSessionRequest struct {
	GroceryListIDs []int `json:"grocery_list_ids" validate:"required,min=1,dive,gt=0"`
}

// UpdateShoppingItemRequest updates a subset of a session item's fields.
// Absent fields are left unchanged. Quantity, unit and notes are cleared by
// an explicit null.
type UpdateShoppingItemRequest struct {
	Name        *string           `json:"name" validate:"omitempty,min=1,max=255"`
	Quantity    Nullable[float64] `json:"quantity" validate:"omitempty,min=0"`
	Unit        Nullable[string]  `json:"unit" validate:"omitempty,max=10"`
	Notes       Nullable[string]  `json:"notes" validate:"omitempty,max=500"`
	IsPurchased *bool             `json:"is_purchased"`
}

// IsEmpty reports whether the request changes nothing
func (r *UpdateShoppingItemRequest) IsEmpty() bool {
	return r.Name == nil && !r.Quantity.Set && !r.Unit.Set && !r.Notes.Set && r.IsPurchased == nil
}
