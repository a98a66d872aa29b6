package database

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/foxxcyber/household/internal/models"
	"github.com/foxxcyber/household/internal/session"
)

// SessionStore is the Postgres implementation of session.Store
type SessionStore struct {
	pool *pgxpool.Pool
	q    querier
	inTx bool
}

var _ session.Store = (*SessionStore)(nil)

// NewSessionStore creates a session store on the pool
func NewSessionStore(db *DB) *SessionStore {
	return &SessionStore{pool: db.Pool, q: db.Pool}
}

// WithTx runs fn inside a transaction. Nested calls join the outer transaction.
func (s *SessionStore) WithTx(ctx context.Context, fn func(tx session.Store) error) error {
	if s.inTx {
		return fn(s)
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if err := fn(&SessionStore{pool: s.pool, q: tx, inTx: true}); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

const shoppingItemColumns = `si.id, si.shopping_session_id, si.grocery_list_item_id, COALESCE(si.name, ''),
	si.quantity::float8, si.unit, si.notes, si.sort_order, si.is_purchased, si.created_at, si.updated_at`

func scanShoppingItem(row pgx.Row, it *models.ShoppingItem) error {
	return row.Scan(
		&it.ID, &it.ShoppingSessionID, &it.GroceryListItemID, &it.Name,
		&it.Quantity, &it.Unit, &it.Notes, &it.SortOrder, &it.IsPurchased, &it.CreatedAt, &it.UpdatedAt,
	)
}

// ExistingListIDs includes soft-deleted lists so they fail ownership rather than validation
func (s *SessionStore) ExistingListIDs(ctx context.Context, ids []int) ([]int, error) {
	return collectIDs(ctx, s.q, `SELECT id FROM grocery_lists WHERE id = ANY($1)`, ids)
}

func (s *SessionStore) OwnedListIDs(ctx context.Context, userID int, ids []int) ([]int, error) {
	return collectIDs(ctx, s.q, `
		SELECT id FROM grocery_lists
		WHERE id = ANY($1) AND user_id = $2 AND deleted_at IS NULL
	`, ids, userID)
}

func (s *SessionStore) ListRefs(ctx context.Context, userID int, ids []int) ([]models.GroceryListRef, error) {
	rows, err := s.q.Query(ctx, `
		SELECT id, name FROM grocery_lists
		WHERE id = ANY($1) AND user_id = $2 AND deleted_at IS NULL
		ORDER BY id
	`, ids, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	refs := []models.GroceryListRef{}
	for rows.Next() {
		var r models.GroceryListRef
		if err := rows.Scan(&r.ID, &r.Name); err != nil {
			return nil, err
		}
		refs = append(refs, r)
	}
	return refs, rows.Err()
}

func (s *SessionStore) SourceItems(ctx context.Context, listIDs []int) ([]models.GroceryListItem, error) {
	rows, err := s.q.Query(ctx, `
		SELECT `+groceryListItemColumns+`
		FROM grocery_list_items
		WHERE grocery_list_id = ANY($1) AND deleted_at IS NULL
		ORDER BY grocery_list_id, sort_order, id
	`, listIDs)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := []models.GroceryListItem{}
	for rows.Next() {
		var it models.GroceryListItem
		if err := scanGroceryListItem(rows, &it); err != nil {
			return nil, err
		}
		items = append(items, it)
	}
	return items, rows.Err()
}

func (s *SessionStore) SessionByUser(ctx context.Context, userID int) (*models.ShoppingSession, error) {
	sess := &models.ShoppingSession{}
	err := s.q.QueryRow(ctx, `
		SELECT id, user_id, grocery_list_ids, created_at, updated_at
		FROM shopping_sessions
		WHERE user_id = $1
	`, userID).Scan(&sess.ID, &sess.UserID, &sess.GroceryListIDs, &sess.CreatedAt, &sess.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, session.ErrNoSession
		}
		return nil, err
	}
	return sess, nil
}

func (s *SessionStore) CreateSession(ctx context.Context, userID int, listIDs []int) (*models.ShoppingSession, error) {
	sess := &models.ShoppingSession{}
	err := s.q.QueryRow(ctx, `
		INSERT INTO shopping_sessions (user_id, grocery_list_ids, created_at, updated_at)
		VALUES ($1, $2, NOW(), NOW())
		RETURNING id, user_id, grocery_list_ids, created_at, updated_at
	`, userID, listIDs).Scan(&sess.ID, &sess.UserID, &sess.GroceryListIDs, &sess.CreatedAt, &sess.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err, "shopping_sessions_user_id_key") {
			return nil, session.ErrSessionExists
		}
		return nil, err
	}
	return sess, nil
}

// DeleteSessionByUser relies on the cascade to remove the session's items
func (s *SessionStore) DeleteSessionByUser(ctx context.Context, userID int) error {
	_, err := s.q.Exec(ctx, `DELETE FROM shopping_sessions WHERE user_id = $1`, userID)
	return err
}

func (s *SessionStore) DeleteSession(ctx context.Context, sessionID int) error {
	_, err := s.q.Exec(ctx, `DELETE FROM shopping_sessions WHERE id = $1`, sessionID)
	return err
}

func (s *SessionStore) InsertShoppingItems(ctx context.Context, items []models.ShoppingItem) error {
	if len(items) == 0 {
		return nil
	}

	batch := &pgx.Batch{}
	for _, it := range items {
		batch.Queue(`
			INSERT INTO shopping_items
				(shopping_session_id, grocery_list_item_id, name, quantity, unit, notes, sort_order, is_purchased, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, NOW(), NOW())
		`, it.ShoppingSessionID, it.GroceryListItemID, it.Name, it.Quantity, it.Unit, it.Notes, it.SortOrder, it.IsPurchased)
	}

	results := s.q.SendBatch(ctx, batch)
	for i := range items {
		if _, err := results.Exec(); err != nil {
			results.Close()
			return fmt.Errorf("failed to insert shopping item %d: %w", i, err)
		}
	}
	return results.Close()
}

func (s *SessionStore) ShoppingItemByID(ctx context.Context, itemID int) (*models.ShoppingItem, error) {
	it := &models.ShoppingItem{}
	err := scanShoppingItem(s.q.QueryRow(ctx, `
		SELECT `+shoppingItemColumns+`
		FROM shopping_items si
		WHERE si.id = $1
	`, itemID), it)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, session.ErrItemNotFound
		}
		return nil, err
	}
	return it, nil
}

func (s *SessionStore) ExistingShoppingItemIDs(ctx context.Context, ids []int) ([]int, error) {
	return collectIDs(ctx, s.q, `SELECT id FROM shopping_items WHERE id = ANY($1)`, ids)
}

// sessionItemsQuery joins each session item with its live source item and list.
// The source columns are NULL when the source item or its list was soft-deleted.
const sessionItemsQuery = `
	SELECT ` + shoppingItemColumns + `,
		gli.id, gli.grocery_list_id, gli.name, gli.sort_order, gli.is_purchased, gl.id, gl.name
	FROM shopping_items si
	LEFT JOIN grocery_list_items gli ON gli.id = si.grocery_list_item_id AND gli.deleted_at IS NULL
	LEFT JOIN grocery_lists gl ON gl.id = gli.grocery_list_id
	WHERE si.shopping_session_id = $1`

func scanShoppingItemDetail(row pgx.Row) (models.ShoppingItemDetail, error) {
	var d models.ShoppingItemDetail
	var (
		srcID, srcListID, srcSort, listID *int
		srcName, listName                 *string
		srcPurchased                      *bool
	)
	it := &d.ShoppingItem
	err := row.Scan(
		&it.ID, &it.ShoppingSessionID, &it.GroceryListItemID, &it.Name,
		&it.Quantity, &it.Unit, &it.Notes, &it.SortOrder, &it.IsPurchased, &it.CreatedAt, &it.UpdatedAt,
		&srcID, &srcListID, &srcName, &srcSort, &srcPurchased, &listID, &listName,
	)
	if err != nil {
		return d, err
	}

	if srcID != nil {
		ref := &models.SourceItemRef{
			ID:            *srcID,
			GroceryListID: *srcListID,
			Name:          *srcName,
			SortOrder:     *srcSort,
			IsPurchased:   *srcPurchased,
		}
		if listID != nil {
			ref.GroceryList = models.GroceryListRef{ID: *listID, Name: *listName}
		}
		d.GroceryListItem = ref
	}
	return d, nil
}

func (s *SessionStore) SessionItems(ctx context.Context, sessionID int) ([]models.ShoppingItemDetail, error) {
	rows, err := s.q.Query(ctx, sessionItemsQuery+` ORDER BY si.sort_order, si.id`, sessionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := []models.ShoppingItemDetail{}
	for rows.Next() {
		d, err := scanShoppingItemDetail(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, d)
	}
	return items, rows.Err()
}

func (s *SessionStore) SessionItem(ctx context.Context, sessionID, itemID int) (*models.ShoppingItemDetail, error) {
	d, err := scanShoppingItemDetail(s.q.QueryRow(ctx, sessionItemsQuery+` AND si.id = $2`, sessionID, itemID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, session.ErrItemNotFound
		}
		return nil, err
	}
	return &d, nil
}

func (s *SessionStore) UpdateShoppingItem(ctx context.Context, itemID int, req *models.UpdateShoppingItemRequest) error {
	_, err := s.q.Exec(ctx, `
		UPDATE shopping_items
		SET name = COALESCE($2, name),
		    quantity = CASE WHEN $3::boolean THEN $4::numeric ELSE quantity END,
		    unit = CASE WHEN $5::boolean THEN $6::varchar ELSE unit END,
		    notes = CASE WHEN $7::boolean THEN $8::varchar ELSE notes END,
		    is_purchased = COALESCE($9, is_purchased),
		    updated_at = NOW()
		WHERE id = $1
	`, itemID, req.Name,
		req.Quantity.Set, req.Quantity.Value,
		req.Unit.Set, req.Unit.Value,
		req.Notes.Set, req.Notes.Value,
		req.IsPurchased)
	return err
}

func (s *SessionStore) SetItemSortOrder(ctx context.Context, sessionID, itemID, sortOrder int) (bool, error) {
	result, err := s.q.Exec(ctx, `
		UPDATE shopping_items
		SET sort_order = $3, updated_at = NOW()
		WHERE id = $1 AND shopping_session_id = $2
	`, itemID, sessionID, sortOrder)
	if err != nil {
		return false, err
	}
	return result.RowsAffected() > 0, nil
}

func (s *SessionStore) PurchasedItems(ctx context.Context, sessionID int) ([]models.ShoppingItem, error) {
	rows, err := s.q.Query(ctx, `
		SELECT `+shoppingItemColumns+`
		FROM shopping_items si
		WHERE si.shopping_session_id = $1 AND si.is_purchased
		ORDER BY si.sort_order, si.id
	`, sessionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := []models.ShoppingItem{}
	for rows.Next() {
		var it models.ShoppingItem
		if err := scanShoppingItem(rows, &it); err != nil {
			return nil, err
		}
		items = append(items, it)
	}
	return items, rows.Err()
}

func (s *SessionStore) DeleteSessionItems(ctx context.Context, sessionID int) error {
	_, err := s.q.Exec(ctx, `DELETE FROM shopping_items WHERE shopping_session_id = $1`, sessionID)
	return err
}

// MarkSourcePurchased never clears the flags and never touches the item's name
func (s *SessionStore) MarkSourcePurchased(ctx context.Context, groceryListItemID int) (bool, error) {
	result, err := s.q.Exec(ctx, `
		UPDATE grocery_list_items
		SET is_purchased = true, completed = true, updated_at = NOW()
		WHERE id = $1 AND deleted_at IS NULL
	`, groceryListItemID)
	if err != nil {
		return false, err
	}
	return result.RowsAffected() > 0, nil
}
