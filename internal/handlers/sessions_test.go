package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/foxxcyber/household/internal/models"
	"github.com/foxxcyber/household/internal/session"
	"github.com/foxxcyber/household/internal/session/sessiontest"
)

const (
	alice = 1
	bob   = 2
)

type sessionFixture struct {
	store        *sessiontest.Store
	listA, listB models.GroceryList
	milk, eggs   models.GroceryListItem
	bobList      models.GroceryList
}

func newSessionFixture() *sessionFixture {
	store := sessiontest.New()
	f := &sessionFixture{store: store}
	f.listA = store.AddList(alice, "Groceries")
	f.listB = store.AddList(alice, "Hardware")
	f.milk = store.AddItem(f.listA.ID, "Milk", 0, false)
	f.eggs = store.AddItem(f.listA.ID, "Eggs", 1, false)
	store.AddItem(f.listB.ID, "Nails", 0, false)
	f.bobList = store.AddList(bob, "Bob's list")
	return f
}

func TestSessionRoutesRequireAuth(t *testing.T) {
	app := newTestApp(newSessionFixture().store, &fakeCatalog{})

	routes := []struct{ method, path string }{
		{http.MethodPost, "/api/save-shopping-session"},
		{http.MethodGet, "/api/get-shopping-session"},
		{http.MethodPost, "/api/finish-shopping-session"},
		{http.MethodDelete, "/api/delete-shopping-session"},
		{http.MethodPatch, "/api/shopping-items/1"},
		{http.MethodPost, "/api/shopping-items/reorder"},
	}
	for _, r := range routes {
		status, body := call(t, app, r.method, r.path, 0, nil)
		assert.Equal(t, http.StatusUnauthorized, status, r.path)
		assert.Equal(t, "Unauthenticated.", body.Message, r.path)
	}
}

func TestSaveShoppingSession(t *testing.T) {
	f := newSessionFixture()
	app := newTestApp(f.store, &fakeCatalog{})

	status, body := call(t, app, http.MethodPost, "/api/save-shopping-session", alice,
		map[string]interface{}{"grocery_list_ids": []int{f.listA.ID, f.listB.ID}})
	require.Equal(t, http.StatusOK, status, body.Message)
	assert.Equal(t, "Shopping session saved.", body.Message)

	var saved struct {
		GroceryListIDs []int `json:"grocery_list_ids"`
	}
	decodeData(t, body, &saved)
	assert.Equal(t, []int{f.listA.ID, f.listB.ID}, saved.GroceryListIDs)
	assert.Equal(t, 3, f.store.ShoppingItemCount())
}

func TestSaveShoppingSessionValidation(t *testing.T) {
	f := newSessionFixture()
	app := newTestApp(f.store, &fakeCatalog{})

	tests := []struct {
		name  string
		body  interface{}
		field string
	}{
		{"missing body", nil, "grocery_list_ids"},
		{"empty ids", map[string]interface{}{"grocery_list_ids": []int{}}, "grocery_list_ids"},
		{"non-positive id", map[string]interface{}{"grocery_list_ids": []int{f.listA.ID, 0}}, "grocery_list_ids.1"},
		{"unknown list", map[string]interface{}{"grocery_list_ids": []int{f.listA.ID, 999}}, "grocery_list_ids.1"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, body := call(t, app, http.MethodPost, "/api/save-shopping-session", alice, tt.body)
			assert.Equal(t, http.StatusUnprocessableEntity, status)
			assert.Contains(t, body.Errors, tt.field)
			assert.NotEmpty(t, body.Message)
		})
	}
	assert.Equal(t, 0, f.store.SessionCount())
}

func TestSaveShoppingSessionForeignList(t *testing.T) {
	f := newSessionFixture()
	app := newTestApp(f.store, &fakeCatalog{})

	status, body := call(t, app, http.MethodPost, "/api/save-shopping-session", alice,
		map[string]interface{}{"grocery_list_ids": []int{f.listA.ID, f.bobList.ID}})
	assert.Equal(t, http.StatusForbidden, status)
	assert.Equal(t, "Forbidden.", body.Message)
	assert.Equal(t, 0, f.store.SessionCount())
}

func TestGetShoppingSession(t *testing.T) {
	f := newSessionFixture()
	app := newTestApp(f.store, &fakeCatalog{})

	status, body := call(t, app, http.MethodGet, "/api/get-shopping-session", alice, nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "No shopping session found!", body.Message)
	assert.Empty(t, body.Data)

	call(t, app, http.MethodPost, "/api/save-shopping-session", alice,
		map[string]interface{}{"grocery_list_ids": []int{f.listA.ID}})

	status, body = call(t, app, http.MethodPost, "/api/get-shopping-session", alice, nil)
	require.Equal(t, http.StatusOK, status)

	var view models.SessionView
	decodeData(t, body, &view)
	assert.Equal(t, []int{f.listA.ID}, view.GroceryListIDs)
	require.Len(t, view.GroceryLists, 1)
	assert.Equal(t, "Groceries", view.GroceryLists[0].Name)
	require.Len(t, view.Items, 2)
	assert.Equal(t, "Milk", view.Items[0].Name)
	require.NotNil(t, view.Items[0].GroceryListItem)
	assert.Equal(t, "Groceries", view.Items[0].GroceryListItem.GroceryList.Name)

	// Bob sees nothing of Alice's session
	_, body = call(t, app, http.MethodGet, "/api/get-shopping-session", bob, nil)
	assert.Equal(t, "No shopping session found!", body.Message)
}

func TestUpdateShoppingItem(t *testing.T) {
	f := newSessionFixture()
	app := newTestApp(f.store, &fakeCatalog{})

	call(t, app, http.MethodPost, "/api/save-shopping-session", alice,
		map[string]interface{}{"grocery_list_ids": []int{f.listA.ID}})
	_, body := call(t, app, http.MethodGet, "/api/get-shopping-session", alice, nil)
	var view models.SessionView
	decodeData(t, body, &view)
	itemPath := fmt.Sprintf("/api/shopping-items/%d", view.Items[0].ID)

	status, body := call(t, app, http.MethodPatch, itemPath, alice,
		map[string]interface{}{"is_purchased": true, "notes": "2% only"})
	require.Equal(t, http.StatusOK, status, body.Message)
	assert.Equal(t, "Shopping item updated.", body.Message)

	var item models.ShoppingItemDetail
	decodeData(t, body, &item)
	assert.True(t, item.IsPurchased)
	require.NotNil(t, item.Notes)
	assert.Equal(t, "2% only", *item.Notes)
	assert.False(t, f.store.Item(f.milk.ID).IsPurchased, "source untouched until finish")

	status, body = call(t, app, http.MethodPatch, itemPath, alice, map[string]interface{}{"notes": nil})
	require.Equal(t, http.StatusOK, status, body.Message)
	decodeData(t, body, &item)
	assert.Nil(t, item.Notes, "explicit null clears the field")
	assert.True(t, item.IsPurchased)

	status, body = call(t, app, http.MethodPatch, itemPath, bob, map[string]interface{}{"is_purchased": true})
	assert.Equal(t, http.StatusForbidden, status)
	assert.Equal(t, "Forbidden.", body.Message)

	status, _ = call(t, app, http.MethodPatch, "/api/shopping-items/9999", alice, map[string]interface{}{"is_purchased": true})
	assert.Equal(t, http.StatusNotFound, status)

	status, body = call(t, app, http.MethodPatch, itemPath, alice, map[string]interface{}{"unit": strings.Repeat("x", 11)})
	assert.Equal(t, http.StatusUnprocessableEntity, status)
	assert.Contains(t, body.Errors, "unit")
}

func TestReorderShoppingItems(t *testing.T) {
	f := newSessionFixture()
	app := newTestApp(f.store, &fakeCatalog{})

	status, body := call(t, app, http.MethodPost, "/api/shopping-items/reorder", alice,
		map[string]interface{}{"items": []map[string]int{{"id": 1, "sort_order": 0}}})
	assert.Equal(t, http.StatusNotFound, status)
	assert.Equal(t, "No shopping session found.", body.Message)

	call(t, app, http.MethodPost, "/api/save-shopping-session", alice,
		map[string]interface{}{"grocery_list_ids": []int{f.listA.ID}})
	_, body = call(t, app, http.MethodGet, "/api/get-shopping-session", alice, nil)
	var view models.SessionView
	decodeData(t, body, &view)
	first, second := view.Items[0], view.Items[1]

	status, body = call(t, app, http.MethodPost, "/api/shopping-items/reorder", alice,
		map[string]interface{}{"items": []map[string]int{
			{"id": first.ID, "sort_order": 5},
			{"id": second.ID, "sort_order": 0},
		}})
	require.Equal(t, http.StatusOK, status, body.Message)
	assert.Equal(t, "Order updated.", body.Message)

	var items []models.ShoppingItemDetail
	decodeData(t, body, &items)
	require.Len(t, items, 2)
	assert.Equal(t, second.ID, items[0].ID)
	assert.Equal(t, 5, items[1].SortOrder)

	status, body = call(t, app, http.MethodPost, "/api/shopping-items/reorder", alice,
		map[string]interface{}{"items": []map[string]int{{"id": 9999, "sort_order": 0}}})
	assert.Equal(t, http.StatusUnprocessableEntity, status)
	assert.Contains(t, body.Errors, "items.0.id")
}

func TestReorderShoppingItemsValidation(t *testing.T) {
	f := newSessionFixture()
	app := newTestApp(f.store, &fakeCatalog{})

	call(t, app, http.MethodPost, "/api/save-shopping-session", alice,
		map[string]interface{}{"grocery_list_ids": []int{f.listA.ID}})
	_, body := call(t, app, http.MethodGet, "/api/get-shopping-session", alice, nil)
	var view models.SessionView
	decodeData(t, body, &view)
	second := view.Items[1]

	tests := []struct {
		name  string
		body  interface{}
		field string
	}{
		{"missing sort order", map[string]interface{}{"items": []map[string]int{{"id": second.ID}}}, "items.0.sort_order"},
		{"negative sort order", map[string]interface{}{"items": []map[string]int{{"id": second.ID, "sort_order": -1}}}, "items.0.sort_order"},
		{"missing id", map[string]interface{}{"items": []map[string]int{{"sort_order": 2}}}, "items.0.id"},
		{"no items", map[string]interface{}{"items": []map[string]int{}}, "items"},
		{"missing body", nil, "items"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, body := call(t, app, http.MethodPost, "/api/shopping-items/reorder", alice, tt.body)
			assert.Equal(t, http.StatusUnprocessableEntity, status)
			assert.Contains(t, body.Errors, tt.field)
		})
	}

	_, body = call(t, app, http.MethodGet, "/api/get-shopping-session", alice, nil)
	decodeData(t, body, &view)
	assert.Equal(t, second.ID, view.Items[1].ID)
	assert.Equal(t, 1, view.Items[1].SortOrder, "rejected requests leave the order alone")
}

func TestFinishShoppingSession(t *testing.T) {
	f := newSessionFixture()
	app := newTestApp(f.store, &fakeCatalog{})

	status, body := call(t, app, http.MethodPost, "/api/finish-shopping-session", alice, nil)
	assert.Equal(t, http.StatusNotFound, status)
	assert.Equal(t, "No shopping session found!", body.Message)

	call(t, app, http.MethodPost, "/api/save-shopping-session", alice,
		map[string]interface{}{"grocery_list_ids": []int{f.listA.ID}})
	_, body = call(t, app, http.MethodGet, "/api/get-shopping-session", alice, nil)
	var view models.SessionView
	decodeData(t, body, &view)
	call(t, app, http.MethodPatch, fmt.Sprintf("/api/shopping-items/%d", view.Items[0].ID), alice,
		map[string]interface{}{"is_purchased": true})

	status, body = call(t, app, http.MethodPost, "/api/finish-shopping-session", alice, nil)
	require.Equal(t, http.StatusOK, status, body.Message)
	assert.Equal(t, "Shopping session finished. Original lists updated.", body.Message)

	var res models.FinishResult
	decodeData(t, body, &res)
	assert.Equal(t, 1, res.Reconciled)

	milk := f.store.Item(f.milk.ID)
	assert.True(t, milk.IsPurchased)
	assert.True(t, milk.Completed)
	assert.False(t, f.store.Item(f.eggs.ID).IsPurchased)
	assert.Equal(t, 0, f.store.SessionCount())
}

func TestDeleteShoppingSession(t *testing.T) {
	f := newSessionFixture()
	app := newTestApp(f.store, &fakeCatalog{})

	status, body := call(t, app, http.MethodDelete, "/api/delete-shopping-session", alice, nil)
	assert.Equal(t, http.StatusNotFound, status)
	assert.Equal(t, "No shopping session found!", body.Message)

	call(t, app, http.MethodPost, "/api/save-shopping-session", alice,
		map[string]interface{}{"grocery_list_ids": []int{f.listA.ID}})

	status, body = call(t, app, http.MethodPost, "/api/delete-shopping-session", alice, nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "Shopping session deleted.", body.Message)
	assert.Equal(t, 0, f.store.SessionCount())
	assert.Equal(t, 0, f.store.ShoppingItemCount())
	assert.False(t, f.store.Item(f.milk.ID).IsPurchased)
}

func TestSaveShoppingSessionConflict(t *testing.T) {
	f := newSessionFixture()
	f.store.FailOn("CreateSession", session.ErrSessionExists)
	app := newTestApp(f.store, &fakeCatalog{})

	status, body := call(t, app, http.MethodPost, "/api/save-shopping-session", alice,
		map[string]interface{}{"grocery_list_ids": []int{f.listA.ID}})
	assert.Equal(t, http.StatusConflict, status)
	assert.Contains(t, body.Message, "try again")
}

func TestStorageFailureIsGeneric(t *testing.T) {
	f := newSessionFixture()
	f.store.FailOn("SessionByUser", errors.New("connection refused to 10.0.0.5"))
	app := newTestApp(f.store, &fakeCatalog{})

	status, body := call(t, app, http.MethodPost, "/api/finish-shopping-session", alice, nil)
	assert.Equal(t, http.StatusInternalServerError, status)
	assert.Equal(t, "Failed to finish shopping session.", body.Message)
	assert.NotContains(t, body.Message, "10.0.0.5")
}
