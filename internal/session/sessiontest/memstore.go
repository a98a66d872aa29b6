// Package sessiontest provides an in-memory session.Store for tests.
//
// Transactions work on a deep copy of the state that replaces the live state
// only when the callback succeeds, so rollback behaves like the database.
// Faults can be injected per method name to exercise failure paths.
package sessiontest

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/foxxcyber/household/internal/models"
	"github.com/foxxcyber/household/internal/session"
)

type fault struct {
	err   error
	after int
	calls int
}

type memState struct {
	lists         map[int]models.GroceryList
	listItems     map[int]models.GroceryListItem
	sessions      map[int]models.ShoppingSession
	shoppingItems map[int]models.ShoppingItem
	nextID        int
}

func (st *memState) clone() *memState {
	c := &memState{
		lists:         make(map[int]models.GroceryList, len(st.lists)),
		listItems:     make(map[int]models.GroceryListItem, len(st.listItems)),
		sessions:      make(map[int]models.ShoppingSession, len(st.sessions)),
		shoppingItems: make(map[int]models.ShoppingItem, len(st.shoppingItems)),
		nextID:        st.nextID,
	}
	for k, v := range st.lists {
		c.lists[k] = v
	}
	for k, v := range st.listItems {
		c.listItems[k] = v
	}
	for k, v := range st.sessions {
		v.GroceryListIDs = append([]int(nil), v.GroceryListIDs...)
		c.sessions[k] = v
	}
	for k, v := range st.shoppingItems {
		c.shoppingItems[k] = v
	}
	return c
}

func (st *memState) id() int {
	st.nextID++
	return st.nextID
}

// Store is an in-memory session.Store. The zero value is not usable; call New.
type Store struct {
	mu     *sync.Mutex
	st     *memState
	inTx   bool
	faults map[string]*fault
	now    func() time.Time
}

var _ session.Store = (*Store)(nil)

// New creates an empty store
func New() *Store {
	return &Store{
		mu: &sync.Mutex{},
		st: &memState{
			lists:         map[int]models.GroceryList{},
			listItems:     map[int]models.GroceryListItem{},
			sessions:      map[int]models.ShoppingSession{},
			shoppingItems: map[int]models.ShoppingItem{},
		},
		faults: map[string]*fault{},
		now:    time.Now,
	}
}

func (s *Store) lock() func() {
	if s.inTx {
		return func() {}
	}
	s.mu.Lock()
	return s.mu.Unlock
}

// FailOn makes every later call to the named method return err.
// A nil err clears the fault.
func (s *Store) FailOn(method string, err error) {
	s.FailAfter(method, 0, err)
}

// FailAfter lets the named method succeed n times, then return err.
func (s *Store) FailAfter(method string, n int, err error) {
	defer s.lock()()
	if err == nil {
		delete(s.faults, method)
		return
	}
	s.faults[method] = &fault{err: err, after: n}
}

func (s *Store) fault(method string) error {
	f, ok := s.faults[method]
	if !ok {
		return nil
	}
	f.calls++
	if f.calls > f.after {
		return f.err
	}
	return nil
}

// Seeding and inspection helpers

// AddList creates a grocery list owned by userID
func (s *Store) AddList(userID int, name string) models.GroceryList {
	defer s.lock()()
	now := s.now()
	l := models.GroceryList{ID: s.st.id(), UserID: userID, Name: name, CreatedAt: now, UpdatedAt: now}
	s.st.lists[l.ID] = l
	return l
}

// AddItem adds an item to a grocery list
func (s *Store) AddItem(listID int, name string, sortOrder int, purchased bool) models.GroceryListItem {
	defer s.lock()()
	now := s.now()
	it := models.GroceryListItem{
		ID:            s.st.id(),
		GroceryListID: listID,
		Name:          name,
		SortOrder:     sortOrder,
		IsPurchased:   purchased,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	s.st.listItems[it.ID] = it
	return it
}

// PutItem replaces a grocery list item as-is
func (s *Store) PutItem(item models.GroceryListItem) {
	defer s.lock()()
	s.st.listItems[item.ID] = item
}

// SoftDeleteList marks a list deleted
func (s *Store) SoftDeleteList(listID int) {
	defer s.lock()()
	l := s.st.lists[listID]
	t := s.now()
	l.DeletedAt = &t
	s.st.lists[listID] = l
}

// SoftDeleteItem marks a grocery list item deleted
func (s *Store) SoftDeleteItem(itemID int) {
	defer s.lock()()
	it := s.st.listItems[itemID]
	t := s.now()
	it.DeletedAt = &t
	s.st.listItems[itemID] = it
}

// Item returns a grocery list item by id
func (s *Store) Item(itemID int) models.GroceryListItem {
	defer s.lock()()
	return s.st.listItems[itemID]
}

// SessionCount returns the number of session rows
func (s *Store) SessionCount() int {
	defer s.lock()()
	return len(s.st.sessions)
}

// ShoppingItemCount returns the number of session item rows across all sessions
func (s *Store) ShoppingItemCount() int {
	defer s.lock()()
	return len(s.st.shoppingItems)
}

// session.Store

func (s *Store) WithTx(ctx context.Context, fn func(tx session.Store) error) error {
	if s.inTx {
		return fn(s)
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.fault("WithTx"); err != nil {
		return err
	}

	work := &Store{mu: s.mu, st: s.st.clone(), inTx: true, faults: s.faults, now: s.now}
	if err := fn(work); err != nil {
		return err
	}
	s.st = work.st
	return nil
}

func (s *Store) liveList(id int) (models.GroceryList, bool) {
	l, ok := s.st.lists[id]
	return l, ok && l.DeletedAt == nil
}

func (s *Store) ExistingListIDs(ctx context.Context, ids []int) ([]int, error) {
	defer s.lock()()
	if err := s.fault("ExistingListIDs"); err != nil {
		return nil, err
	}
	var out []int
	for _, id := range ids {
		if _, ok := s.st.lists[id]; ok {
			out = append(out, id)
		}
	}
	return out, nil
}

func (s *Store) OwnedListIDs(ctx context.Context, userID int, ids []int) ([]int, error) {
	defer s.lock()()
	if err := s.fault("OwnedListIDs"); err != nil {
		return nil, err
	}
	var out []int
	for _, id := range ids {
		if l, ok := s.liveList(id); ok && l.UserID == userID {
			out = append(out, id)
		}
	}
	return out, nil
}

func (s *Store) ListRefs(ctx context.Context, userID int, ids []int) ([]models.GroceryListRef, error) {
	defer s.lock()()
	if err := s.fault("ListRefs"); err != nil {
		return nil, err
	}
	out := []models.GroceryListRef{}
	for _, id := range ids {
		if l, ok := s.liveList(id); ok && l.UserID == userID {
			out = append(out, models.GroceryListRef{ID: l.ID, Name: l.Name})
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *Store) SourceItems(ctx context.Context, listIDs []int) ([]models.GroceryListItem, error) {
	defer s.lock()()
	if err := s.fault("SourceItems"); err != nil {
		return nil, err
	}
	want := make(map[int]bool, len(listIDs))
	for _, id := range listIDs {
		want[id] = true
	}
	// Map order; the manager sorts the snapshot.
	var out []models.GroceryListItem
	for _, it := range s.st.listItems {
		if want[it.GroceryListID] && it.DeletedAt == nil {
			out = append(out, it)
		}
	}
	return out, nil
}

func (s *Store) sessionByUser(userID int) (models.ShoppingSession, bool) {
	for _, sess := range s.st.sessions {
		if sess.UserID == userID {
			return sess, true
		}
	}
	return models.ShoppingSession{}, false
}

func (s *Store) SessionByUser(ctx context.Context, userID int) (*models.ShoppingSession, error) {
	defer s.lock()()
	if err := s.fault("SessionByUser"); err != nil {
		return nil, err
	}
	sess, ok := s.sessionByUser(userID)
	if !ok {
		return nil, session.ErrNoSession
	}
	sess.GroceryListIDs = append([]int(nil), sess.GroceryListIDs...)
	return &sess, nil
}

func (s *Store) CreateSession(ctx context.Context, userID int, listIDs []int) (*models.ShoppingSession, error) {
	defer s.lock()()
	if err := s.fault("CreateSession"); err != nil {
		return nil, err
	}
	if _, exists := s.sessionByUser(userID); exists {
		// Mirrors the unique index on shopping_sessions.user_id.
		return nil, session.ErrSessionExists
	}
	now := s.now()
	sess := models.ShoppingSession{
		ID:             s.st.id(),
		UserID:         userID,
		GroceryListIDs: append([]int(nil), listIDs...),
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	s.st.sessions[sess.ID] = sess
	out := sess
	return &out, nil
}

func (s *Store) deleteSession(sessionID int) {
	delete(s.st.sessions, sessionID)
	for id, it := range s.st.shoppingItems {
		if it.ShoppingSessionID == sessionID {
			delete(s.st.shoppingItems, id)
		}
	}
}

func (s *Store) DeleteSessionByUser(ctx context.Context, userID int) error {
	defer s.lock()()
	if err := s.fault("DeleteSessionByUser"); err != nil {
		return err
	}
	if sess, ok := s.sessionByUser(userID); ok {
		s.deleteSession(sess.ID)
	}
	return nil
}

func (s *Store) DeleteSession(ctx context.Context, sessionID int) error {
	defer s.lock()()
	if err := s.fault("DeleteSession"); err != nil {
		return err
	}
	s.deleteSession(sessionID)
	return nil
}

func (s *Store) InsertShoppingItems(ctx context.Context, items []models.ShoppingItem) error {
	defer s.lock()()
	if err := s.fault("InsertShoppingItems"); err != nil {
		return err
	}
	now := s.now()
	for _, it := range items {
		it.ID = s.st.id()
		it.CreatedAt = now
		it.UpdatedAt = now
		s.st.shoppingItems[it.ID] = it
	}
	return nil
}

func (s *Store) ShoppingItemByID(ctx context.Context, itemID int) (*models.ShoppingItem, error) {
	defer s.lock()()
	if err := s.fault("ShoppingItemByID"); err != nil {
		return nil, err
	}
	it, ok := s.st.shoppingItems[itemID]
	if !ok {
		return nil, session.ErrItemNotFound
	}
	return &it, nil
}

func (s *Store) ExistingShoppingItemIDs(ctx context.Context, ids []int) ([]int, error) {
	defer s.lock()()
	if err := s.fault("ExistingShoppingItemIDs"); err != nil {
		return nil, err
	}
	var out []int
	for _, id := range ids {
		if _, ok := s.st.shoppingItems[id]; ok {
			out = append(out, id)
		}
	}
	return out, nil
}

func (s *Store) detail(it models.ShoppingItem) models.ShoppingItemDetail {
	d := models.ShoppingItemDetail{ShoppingItem: it}
	src, ok := s.st.listItems[it.GroceryListItemID]
	if !ok || src.DeletedAt != nil {
		return d
	}
	list := s.st.lists[src.GroceryListID]
	d.GroceryListItem = &models.SourceItemRef{
		ID:            src.ID,
		GroceryListID: src.GroceryListID,
		Name:          src.Name,
		SortOrder:     src.SortOrder,
		IsPurchased:   src.IsPurchased,
		GroceryList:   models.GroceryListRef{ID: list.ID, Name: list.Name},
	}
	return d
}

func (s *Store) SessionItems(ctx context.Context, sessionID int) ([]models.ShoppingItemDetail, error) {
	defer s.lock()()
	if err := s.fault("SessionItems"); err != nil {
		return nil, err
	}
	out := []models.ShoppingItemDetail{}
	for _, it := range s.st.shoppingItems {
		if it.ShoppingSessionID == sessionID {
			out = append(out, s.detail(it))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].SortOrder != out[j].SortOrder {
			return out[i].SortOrder < out[j].SortOrder
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (s *Store) SessionItem(ctx context.Context, sessionID, itemID int) (*models.ShoppingItemDetail, error) {
	defer s.lock()()
	if err := s.fault("SessionItem"); err != nil {
		return nil, err
	}
	it, ok := s.st.shoppingItems[itemID]
	if !ok || it.ShoppingSessionID != sessionID {
		return nil, session.ErrItemNotFound
	}
	d := s.detail(it)
	return &d, nil
}

func (s *Store) UpdateShoppingItem(ctx context.Context, itemID int, req *models.UpdateShoppingItemRequest) error {
	defer s.lock()()
	if err := s.fault("UpdateShoppingItem"); err != nil {
		return err
	}
	it, ok := s.st.shoppingItems[itemID]
	if !ok {
		return session.ErrItemNotFound
	}
	if req.Name != nil {
		it.Name = *req.Name
	}
	if req.Quantity.Set {
		it.Quantity = req.Quantity.Ptr()
	}
	if req.Unit.Set {
		it.Unit = req.Unit.Ptr()
	}
	if req.Notes.Set {
		it.Notes = req.Notes.Ptr()
	}
	if req.IsPurchased != nil {
		it.IsPurchased = *req.IsPurchased
	}
	it.UpdatedAt = s.now()
	s.st.shoppingItems[itemID] = it
	return nil
}

func (s *Store) SetItemSortOrder(ctx context.Context, sessionID, itemID, sortOrder int) (bool, error) {
	defer s.lock()()
	if err := s.fault("SetItemSortOrder"); err != nil {
		return false, err
	}
	it, ok := s.st.shoppingItems[itemID]
	if !ok || it.ShoppingSessionID != sessionID {
		return false, nil
	}
	it.SortOrder = sortOrder
	it.UpdatedAt = s.now()
	s.st.shoppingItems[itemID] = it
	return true, nil
}

func (s *Store) PurchasedItems(ctx context.Context, sessionID int) ([]models.ShoppingItem, error) {
	defer s.lock()()
	if err := s.fault("PurchasedItems"); err != nil {
		return nil, err
	}
	var out []models.ShoppingItem
	for _, it := range s.st.shoppingItems {
		if it.ShoppingSessionID == sessionID && it.IsPurchased {
			out = append(out, it)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].SortOrder < out[j].SortOrder })
	return out, nil
}

func (s *Store) DeleteSessionItems(ctx context.Context, sessionID int) error {
	defer s.lock()()
	if err := s.fault("DeleteSessionItems"); err != nil {
		return err
	}
	for id, it := range s.st.shoppingItems {
		if it.ShoppingSessionID == sessionID {
			delete(s.st.shoppingItems, id)
		}
	}
	return nil
}

func (s *Store) MarkSourcePurchased(ctx context.Context, groceryListItemID int) (bool, error) {
	defer s.lock()()
	if err := s.fault("MarkSourcePurchased"); err != nil {
		return false, err
	}
	it, ok := s.st.listItems[groceryListItemID]
	if !ok || it.DeletedAt != nil {
		return false, nil
	}
	it.IsPurchased = true
	it.Completed = true
	it.UpdatedAt = s.now()
	s.st.listItems[groceryListItemID] = it
	return true, nil
}
