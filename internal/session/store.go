package session

import (
	"context"

	"github.com/foxxcyber/household/internal/models"
)

// Store is the persistence contract of the session manager. Every method is
// scoped by the ids it receives; callers enforce ownership before writing.
//
// WithTx runs fn against a transactional view of the store. If fn returns an
// error nothing it wrote is visible afterwards. Calling WithTx on a
// transactional view runs fn inline in the same transaction.
type Store interface {
	WithTx(ctx context.Context, fn func(tx Store) error) error

	// Grocery catalog reads
	ExistingListIDs(ctx context.Context, ids []int) ([]int, error)
	OwnedListIDs(ctx context.Context, userID int, ids []int) ([]int, error)
	ListRefs(ctx context.Context, userID int, ids []int) ([]models.GroceryListRef, error)
	SourceItems(ctx context.Context, listIDs []int) ([]models.GroceryListItem, error)

	// Session rows. SessionByUser returns ErrNoSession when none exists.
	SessionByUser(ctx context.Context, userID int) (*models.ShoppingSession, error)
	CreateSession(ctx context.Context, userID int, listIDs []int) (*models.ShoppingSession, error)
	// DeleteSessionByUser removes the user's session and its items, if any.
	DeleteSessionByUser(ctx context.Context, userID int) error
	DeleteSession(ctx context.Context, sessionID int) error

	// Session items. ShoppingItemByID returns ErrItemNotFound when missing.
	InsertShoppingItems(ctx context.Context, items []models.ShoppingItem) error
	ShoppingItemByID(ctx context.Context, itemID int) (*models.ShoppingItem, error)
	ExistingShoppingItemIDs(ctx context.Context, ids []int) ([]int, error)
	SessionItems(ctx context.Context, sessionID int) ([]models.ShoppingItemDetail, error)
	SessionItem(ctx context.Context, sessionID, itemID int) (*models.ShoppingItemDetail, error)
	UpdateShoppingItem(ctx context.Context, itemID int, req *models.UpdateShoppingItemRequest) error
	// SetItemSortOrder reports false when the item is not part of the session.
	SetItemSortOrder(ctx context.Context, sessionID, itemID, sortOrder int) (bool, error)
	PurchasedItems(ctx context.Context, sessionID int) ([]models.ShoppingItem, error)
	DeleteSessionItems(ctx context.Context, sessionID int) error

	// MarkSourcePurchased sets is_purchased and completed on a grocery list
	// item. It reports false when the item no longer exists.
	MarkSourcePurchased(ctx context.Context, groceryListItemID int) (bool, error)
}

// Archiver stores a record of a finished session somewhere durable.
type Archiver interface {
	Archive(ctx context.Context, record *models.SessionArchive) error
}
