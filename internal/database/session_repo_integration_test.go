package database

import (
	"context"
	"errors"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/foxxcyber/household/internal/logging"
	"github.com/foxxcyber/household/internal/models"
	"github.com/foxxcyber/household/internal/session"
)

// openTestDB connects to TEST_DATABASE_URL, migrates it and empties the tables.
func openTestDB(t *testing.T) *DB {
	t.Helper()

	url := os.Getenv("TEST_DATABASE_URL")
	if url == "" {
		t.Skip("Skipping Postgres integration test: TEST_DATABASE_URL not set")
	}

	log := logging.Discard()
	require.NoError(t, RunMigrations(url, log))

	db, err := Connect(url, log)
	require.NoError(t, err)
	t.Cleanup(db.Close)

	_, err = db.Pool.Exec(context.Background(),
		`TRUNCATE shopping_items, shopping_sessions, grocery_list_items, grocery_lists, pantry_items, users RESTART IDENTITY CASCADE`)
	require.NoError(t, err)
	return db
}

func TestSessionStoreLifecycleIntegration(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	user, err := db.CreateUser(ctx, "Alice", "alice@example.com", "hash")
	require.NoError(t, err)
	_, err = db.CreateUser(ctx, "Alice again", "alice@example.com", "hash")
	assert.ErrorIs(t, err, ErrEmailExists)

	list, err := db.CreateGroceryList(ctx, user.ID, &models.CreateListRequest{
		Name: "Groceries",
		Items: []models.CreateListItemData{
			{Name: "Eggs", SortOrder: intPtr(1)},
			{Name: "Milk", SortOrder: intPtr(0)},
		},
	})
	require.NoError(t, err)
	require.Len(t, list.Items, 2)
	assert.Equal(t, "Milk", list.Items[0].Name)

	store := NewSessionStore(db)
	mgr := session.NewManager(store, logging.Discard())

	sess, err := mgr.Create(ctx, user.ID, []int{list.ID})
	require.NoError(t, err)
	assert.Equal(t, []int{list.ID}, sess.GroceryListIDs)

	view, found, err := mgr.Get(ctx, user.ID)
	require.NoError(t, err)
	require.True(t, found)
	require.Len(t, view.Items, 2)
	assert.Equal(t, "Milk", view.Items[0].Name)
	require.NotNil(t, view.Items[0].GroceryListItem)
	assert.Equal(t, "Groceries", view.Items[0].GroceryListItem.GroceryList.Name)

	purchased := true
	_, err = mgr.UpdateItem(ctx, user.ID, view.Items[0].ID, &models.UpdateShoppingItemRequest{IsPurchased: &purchased})
	require.NoError(t, err)

	res, err := mgr.Finish(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Reconciled)

	_, found, err = mgr.Get(ctx, user.ID)
	require.NoError(t, err)
	assert.False(t, found)

	after, err := db.GetGroceryListByID(ctx, list.ID, user.ID)
	require.NoError(t, err)
	assert.True(t, after.Items[0].IsPurchased)
	assert.True(t, after.Items[0].Completed)
	assert.False(t, after.Items[1].IsPurchased)
}

func TestSessionStoreRollbackIntegration(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	user, err := db.CreateUser(ctx, "Bob", "bob@example.com", "hash")
	require.NoError(t, err)

	store := NewSessionStore(db)
	boom := errors.New("boom")
	err = store.WithTx(ctx, func(tx session.Store) error {
		if _, err := tx.CreateSession(ctx, user.ID, []int{}); err != nil {
			return err
		}
		return boom
	})
	assert.ErrorIs(t, err, boom)

	_, err = store.SessionByUser(ctx, user.ID)
	assert.ErrorIs(t, err, session.ErrNoSession)
}

func TestPaginateGroceryListsIntegration(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	user, err := db.CreateUser(ctx, "Carol", "carol@example.com", "hash")
	require.NoError(t, err)

	_, err = db.CreateGroceryList(ctx, user.ID, &models.CreateListRequest{Name: "Weekly", Items: []models.CreateListItemData{{Name: "100% juice"}}})
	require.NoError(t, err)
	_, err = db.CreateGroceryList(ctx, user.ID, &models.CreateListRequest{Name: "Party"})
	require.NoError(t, err)

	lists, total, err := db.PaginateGroceryLists(ctx, &models.ListListParams{UserID: user.ID, SearchTerm: "0%"})
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	require.Len(t, lists, 1)
	assert.Equal(t, "Weekly", lists[0].Name)

	lists, total, err = db.PaginateGroceryLists(ctx, &models.ListListParams{UserID: user.ID, PerPage: 1, Page: 2})
	require.NoError(t, err)
	assert.Equal(t, 2, total)
	require.Len(t, lists, 1)
	assert.Equal(t, "Weekly", lists[0].Name, "newest first")
}

func intPtr(v int) *int { return &v }
