package database

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/foxxcyber/household/internal/models"
)

var (
	ErrListNotFound = errors.New("grocery list not found")
	ErrNotListOwner = errors.New("not the owner of this list")
)

const defaultPerPage = 10

const groceryListColumns = `id, user_id, name, notes, completed_at, created_at, updated_at`

const groceryListItemColumns = `id, grocery_list_id, pantry_item_id, name, quantity::float8, unit, notes,
	sort_order, is_purchased, completed, created_at, updated_at`

func scanGroceryList(row pgx.Row, l *models.GroceryList) error {
	return row.Scan(&l.ID, &l.UserID, &l.Name, &l.Notes, &l.CompletedAt, &l.CreatedAt, &l.UpdatedAt)
}

func scanGroceryListItem(row pgx.Row, it *models.GroceryListItem) error {
	return row.Scan(
		&it.ID, &it.GroceryListID, &it.PantryItemID, &it.Name, &it.Quantity, &it.Unit, &it.Notes,
		&it.SortOrder, &it.IsPurchased, &it.Completed, &it.CreatedAt, &it.UpdatedAt,
	)
}

// ListGroceryLists returns every grocery list of a user, newest first
func (db *DB) ListGroceryLists(ctx context.Context, userID int) ([]models.GroceryList, error) {
	rows, err := db.Pool.Query(ctx, `
		SELECT `+groceryListColumns+`
		FROM grocery_lists
		WHERE user_id = $1 AND deleted_at IS NULL
		ORDER BY created_at DESC, id DESC
	`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	lists := []models.GroceryList{}
	for rows.Next() {
		var l models.GroceryList
		if err := scanGroceryList(rows, &l); err != nil {
			return nil, err
		}
		lists = append(lists, l)
	}
	return lists, rows.Err()
}

// PaginateGroceryLists returns one page of a user's lists plus the total match count.
// The search term matches list name and notes, or the name and notes of any of its items.
func (db *DB) PaginateGroceryLists(ctx context.Context, params *models.ListListParams) ([]models.GroceryList, int, error) {
	perPage := params.PerPage
	if perPage <= 0 {
		perPage = defaultPerPage
	}
	page := params.Page
	if page <= 0 {
		page = 1
	}

	where := []string{"gl.user_id = $1", "gl.deleted_at IS NULL"}
	args := []any{params.UserID}

	if term := strings.TrimSpace(params.SearchTerm); term != "" {
		args = append(args, "%"+escapeLike(term)+"%")
		p := fmt.Sprintf("$%d", len(args))
		where = append(where, `(gl.name ILIKE `+p+` ESCAPE '\' OR gl.notes ILIKE `+p+` ESCAPE '\' OR EXISTS (
			SELECT 1 FROM grocery_list_items gli
			WHERE gli.grocery_list_id = gl.id AND gli.deleted_at IS NULL
			  AND (gli.name ILIKE `+p+` ESCAPE '\' OR gli.notes ILIKE `+p+` ESCAPE '\')))`)
	}

	switch params.Status {
	case models.ListStatusCompleted:
		where = append(where, "gl.completed_at IS NOT NULL")
	case models.ListStatusUnfinished:
		where = append(where, "gl.completed_at IS NULL")
	}

	filter := strings.Join(where, " AND ")

	var total int
	if err := db.Pool.QueryRow(ctx, `SELECT COUNT(*) FROM grocery_lists gl WHERE `+filter, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	args = append(args, perPage, (page-1)*perPage)
	rows, err := db.Pool.Query(ctx, fmt.Sprintf(`
		SELECT gl.id, gl.user_id, gl.name, gl.notes, gl.completed_at, gl.created_at, gl.updated_at
		FROM grocery_lists gl
		WHERE %s
		ORDER BY gl.created_at DESC, gl.id DESC
		LIMIT $%d OFFSET $%d
	`, filter, len(args)-1, len(args)), args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	lists := []models.GroceryList{}
	for rows.Next() {
		var l models.GroceryList
		if err := scanGroceryList(rows, &l); err != nil {
			return nil, 0, err
		}
		lists = append(lists, l)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}

	return lists, total, nil
}

// escapeLike escapes the LIKE wildcards so the term matches literally
func escapeLike(term string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(term)
}

// GetGroceryListByID retrieves a grocery list with its items ordered by sort order
func (db *DB) GetGroceryListByID(ctx context.Context, id, userID int) (*models.GroceryListWithItems, error) {
	return getGroceryList(ctx, db.Pool, id, userID)
}

func getGroceryList(ctx context.Context, q querier, id, userID int) (*models.GroceryListWithItems, error) {
	list := &models.GroceryListWithItems{}
	err := scanGroceryList(q.QueryRow(ctx, `
		SELECT `+groceryListColumns+`
		FROM grocery_lists
		WHERE id = $1 AND deleted_at IS NULL
	`, id), &list.GroceryList)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrListNotFound
		}
		return nil, err
	}

	if list.UserID != userID {
		return nil, ErrNotListOwner
	}

	rows, err := q.Query(ctx, `
		SELECT `+groceryListItemColumns+`
		FROM grocery_list_items
		WHERE grocery_list_id = $1 AND deleted_at IS NULL
		ORDER BY sort_order ASC, id ASC
	`, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	list.Items = []models.GroceryListItem{}
	for rows.Next() {
		var it models.GroceryListItem
		if err := scanGroceryListItem(rows, &it); err != nil {
			return nil, err
		}
		list.Items = append(list.Items, it)
	}
	return list, rows.Err()
}

// CreateGroceryList creates a grocery list together with its items in one transaction.
// Items without a sort order take their position in the request.
func (db *DB) CreateGroceryList(ctx context.Context, userID int, req *models.CreateListRequest) (*models.GroceryListWithItems, error) {
	tx, err := db.Pool.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	var listID int
	err = tx.QueryRow(ctx, `
		INSERT INTO grocery_lists (user_id, name, notes, created_at, updated_at)
		VALUES ($1, $2, $3, NOW(), NOW())
		RETURNING id
	`, userID, req.Name, req.Notes).Scan(&listID)
	if err != nil {
		return nil, fmt.Errorf("failed to insert grocery list: %w", err)
	}

	for i, item := range req.Items {
		sortOrder := i
		if item.SortOrder != nil {
			sortOrder = *item.SortOrder
		}
		_, err := tx.Exec(ctx, `
			INSERT INTO grocery_list_items (grocery_list_id, name, quantity, unit, notes, sort_order, is_purchased, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, false, NOW(), NOW())
		`, listID, item.Name, item.Quantity, item.Unit, item.Notes, sortOrder)
		if err != nil {
			return nil, fmt.Errorf("failed to insert item %d: %w", i, err)
		}
	}

	list, err := getGroceryList(ctx, tx, listID, userID)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return list, nil
}

// UpdateGroceryList updates the provided fields of a grocery list
func (db *DB) UpdateGroceryList(ctx context.Context, id, userID int, req *models.UpdateListRequest) (*models.GroceryListWithItems, error) {
	if err := db.checkListOwner(ctx, id, userID); err != nil {
		return nil, err
	}

	_, err := db.Pool.Exec(ctx, `
		UPDATE grocery_lists
		SET name = COALESCE($2, name),
		    notes = COALESCE($3, notes),
		    completed_at = COALESCE($4, completed_at),
		    updated_at = NOW()
		WHERE id = $1 AND deleted_at IS NULL
	`, id, req.Name, req.Notes, req.CompletedAt)
	if err != nil {
		return nil, err
	}

	return db.GetGroceryListByID(ctx, id, userID)
}

// DeleteGroceryList soft-deletes a grocery list
func (db *DB) DeleteGroceryList(ctx context.Context, id, userID int) error {
	if err := db.checkListOwner(ctx, id, userID); err != nil {
		return err
	}

	result, err := db.Pool.Exec(ctx, `
		UPDATE grocery_lists SET deleted_at = NOW() WHERE id = $1 AND deleted_at IS NULL
	`, id)
	if err != nil {
		return err
	}
	if result.RowsAffected() == 0 {
		return ErrListNotFound
	}
	return nil
}

// ExistingListItemIDs returns the subset of ids that are grocery list items
func (db *DB) ExistingListItemIDs(ctx context.Context, ids []int) ([]int, error) {
	return collectIDs(ctx, db.Pool, `SELECT id FROM grocery_list_items WHERE id = ANY($1)`, ids)
}

// ReorderGroceryListItems applies new sort orders to items of one list in a
// single transaction. Items of other lists are left alone.
func (db *DB) ReorderGroceryListItems(ctx context.Context, id, userID int, orders []models.ItemOrder) (*models.GroceryListWithItems, error) {
	if err := db.checkListOwner(ctx, id, userID); err != nil {
		return nil, err
	}

	tx, err := db.Pool.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	for _, o := range orders {
		_, err := tx.Exec(ctx, `
			UPDATE grocery_list_items
			SET sort_order = $3, updated_at = NOW()
			WHERE id = $1 AND grocery_list_id = $2
		`, o.ID, id, o.SortOrder)
		if err != nil {
			return nil, fmt.Errorf("failed to reorder item %d: %w", o.ID, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}

	return db.GetGroceryListByID(ctx, id, userID)
}

func (db *DB) checkListOwner(ctx context.Context, id, userID int) error {
	var owner int
	err := db.Pool.QueryRow(ctx, `
		SELECT user_id FROM grocery_lists WHERE id = $1 AND deleted_at IS NULL
	`, id).Scan(&owner)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrListNotFound
		}
		return err
	}
	if owner != userID {
		return ErrNotListOwner
	}
	return nil
}

func collectIDs(ctx context.Context, q querier, sql string, args ...any) ([]int, error) {
	rows, err := q.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, pgx.RowTo[int])
}
