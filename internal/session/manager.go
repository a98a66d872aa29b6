// Package session implements the shopping session lifecycle: snapshotting
// grocery lists into a per-user working copy, mutating that copy, and either
// reconciling purchases back onto the lists or discarding it.
//
// Per user the states are NoSession and Active. Create moves to Active,
// replacing any existing session outright. Finish and Discard move back to
// NoSession.
package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/foxxcyber/household/internal/models"
)

const archiveTimeout = 10 * time.Second

// Manager runs session operations against a Store.
type Manager struct {
	store    Store
	log      *logrus.Logger
	metrics  *Metrics
	archiver Archiver
	now      func() time.Time
}

// Option configures a Manager
type Option func(*Manager)

// WithMetrics records lifecycle counters on m
func WithMetrics(m *Metrics) Option {
	return func(mgr *Manager) { mgr.metrics = m }
}

// WithArchiver uploads a record of every finished session
func WithArchiver(a Archiver) Option {
	return func(mgr *Manager) { mgr.archiver = a }
}

// WithClock overrides time.Now
func WithClock(now func() time.Time) Option {
	return func(mgr *Manager) { mgr.now = now }
}

// NewManager creates a session manager
func NewManager(store Store, log *logrus.Logger, opts ...Option) *Manager {
	m := &Manager{
		store: store,
		log:   log,
		now:   time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Create replaces the user's session with a fresh snapshot of the given
// lists. All lists must exist and belong to the user; otherwise nothing is
// written.
func (m *Manager) Create(ctx context.Context, userID int, listIDs []int) (*models.ShoppingSession, error) {
	ids := uniqueIDs(listIDs)
	if len(ids) == 0 {
		return nil, invalid("grocery_list_ids", "The grocery list ids field is required.")
	}
	for i, id := range ids {
		if id <= 0 {
			return nil, invalid(fmt.Sprintf("grocery_list_ids.%d", i), "The selected grocery list id is invalid.")
		}
	}

	existing, err := m.store.ExistingListIDs(ctx, ids)
	if err != nil {
		return nil, m.storageError("create", err)
	}
	if i, missing := firstMissing(ids, existing); missing {
		return nil, invalid(fmt.Sprintf("grocery_list_ids.%d", i), "The selected grocery list id is invalid.")
	}

	owned, err := m.store.OwnedListIDs(ctx, userID, ids)
	if err != nil {
		return nil, m.storageError("create", err)
	}
	if _, missing := firstMissing(ids, owned); missing {
		return nil, ErrForbidden
	}

	var created *models.ShoppingSession
	var itemCount int
	err = m.store.WithTx(ctx, func(tx Store) error {
		if err := tx.DeleteSessionByUser(ctx, userID); err != nil {
			return fmt.Errorf("failed to delete previous session: %w", err)
		}

		sess, err := tx.CreateSession(ctx, userID, ids)
		if err != nil {
			return fmt.Errorf("failed to create session: %w", err)
		}

		source, err := tx.SourceItems(ctx, ids)
		if err != nil {
			return fmt.Errorf("failed to load grocery list items: %w", err)
		}

		items := snapshotItems(sess.ID, source)
		if err := tx.InsertShoppingItems(ctx, items); err != nil {
			return fmt.Errorf("failed to copy items: %w", err)
		}

		created = sess
		itemCount = len(items)
		return nil
	})
	if err != nil {
		return nil, m.storageError("create", err)
	}

	m.metrics.created()
	m.log.WithFields(logrus.Fields{
		"user_id":    userID,
		"session_id": created.ID,
		"lists":      len(ids),
		"items":      itemCount,
	}).Info("Shopping session created")

	return created, nil
}

// Get returns the user's session. found is false when there is none.
func (m *Manager) Get(ctx context.Context, userID int) (view *models.SessionView, found bool, err error) {
	sess, err := m.store.SessionByUser(ctx, userID)
	if err != nil {
		if errors.Is(err, ErrNoSession) {
			return nil, false, nil
		}
		return nil, false, m.storageError("get", err)
	}

	lists, err := m.store.ListRefs(ctx, userID, sess.GroceryListIDs)
	if err != nil {
		return nil, false, m.storageError("get", err)
	}

	items, err := m.store.SessionItems(ctx, sess.ID)
	if err != nil {
		return nil, false, m.storageError("get", err)
	}

	return &models.SessionView{
		GroceryListIDs: sess.GroceryListIDs,
		GroceryLists:   lists,
		Items:          items,
	}, true, nil
}

// UpdateItem changes fields on one session item. The grocery list item it was
// copied from is not touched.
func (m *Manager) UpdateItem(ctx context.Context, userID, itemID int, req *models.UpdateShoppingItemRequest) (*models.ShoppingItemDetail, error) {
	item, err := m.store.ShoppingItemByID(ctx, itemID)
	if err != nil {
		if errors.Is(err, ErrItemNotFound) {
			return nil, ErrItemNotFound
		}
		return nil, m.storageError("update_item", err)
	}

	sess, err := m.store.SessionByUser(ctx, userID)
	if err != nil {
		if errors.Is(err, ErrNoSession) {
			return nil, ErrForbidden
		}
		return nil, m.storageError("update_item", err)
	}
	if item.ShoppingSessionID != sess.ID {
		return nil, ErrForbidden
	}

	if !req.IsEmpty() {
		if err := m.store.UpdateShoppingItem(ctx, itemID, req); err != nil {
			return nil, m.storageError("update_item", err)
		}
	}

	detail, err := m.store.SessionItem(ctx, sess.ID, itemID)
	if err != nil {
		return nil, m.storageError("update_item", err)
	}
	return detail, nil
}

// Active returns ErrNoSession when the user has no session.
func (m *Manager) Active(ctx context.Context, userID int) error {
	if _, err := m.store.SessionByUser(ctx, userID); err != nil {
		if errors.Is(err, ErrNoSession) {
			return ErrNoSession
		}
		return m.storageError("get", err)
	}
	return nil
}

// Reorder applies new sort orders to items of the user's session in one
// transaction. Items that are not in the session are ignored.
func (m *Manager) Reorder(ctx context.Context, userID int, orders []models.ItemOrder) ([]models.ShoppingItemDetail, error) {
	sess, err := m.store.SessionByUser(ctx, userID)
	if err != nil {
		if errors.Is(err, ErrNoSession) {
			return nil, ErrNoSession
		}
		return nil, m.storageError("reorder", err)
	}

	if len(orders) == 0 {
		return nil, invalid("items", "The items field is required.")
	}
	ids := make([]int, len(orders))
	for i, o := range orders {
		if o.SortOrder < 0 {
			return nil, invalid(fmt.Sprintf("items.%d.sort_order", i), "The sort order must be at least 0.")
		}
		ids[i] = o.ID
	}

	existing, err := m.store.ExistingShoppingItemIDs(ctx, ids)
	if err != nil {
		return nil, m.storageError("reorder", err)
	}
	if i, missing := firstMissing(ids, existing); missing {
		return nil, invalid(fmt.Sprintf("items.%d.id", i), "The selected item id is invalid.")
	}

	err = m.store.WithTx(ctx, func(tx Store) error {
		for _, o := range orders {
			if _, err := tx.SetItemSortOrder(ctx, sess.ID, o.ID, o.SortOrder); err != nil {
				return fmt.Errorf("failed to reorder item %d: %w", o.ID, err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, m.storageError("reorder", err)
	}

	items, err := m.store.SessionItems(ctx, sess.ID)
	if err != nil {
		return nil, m.storageError("reorder", err)
	}
	return items, nil
}

// Finish marks the source of every purchased session item as purchased and
// completed, then deletes the session, all in one transaction.
func (m *Manager) Finish(ctx context.Context, userID int) (*models.FinishResult, error) {
	sess, err := m.store.SessionByUser(ctx, userID)
	if err != nil {
		if errors.Is(err, ErrNoSession) {
			return nil, ErrNoSession
		}
		return nil, m.storageError("finish", err)
	}

	var res reconcileResult
	var final []models.ShoppingItemDetail
	err = m.store.WithTx(ctx, func(tx Store) error {
		if m.archiver != nil {
			items, err := tx.SessionItems(ctx, sess.ID)
			if err != nil {
				return fmt.Errorf("failed to load session items: %w", err)
			}
			final = items
		}

		r, err := reconcile(ctx, tx, sess.ID)
		if err != nil {
			return err
		}
		res = r

		if err := tx.DeleteSession(ctx, sess.ID); err != nil {
			return fmt.Errorf("failed to delete session: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, m.storageError("finish", err)
	}

	m.metrics.finished(res)
	m.log.WithFields(logrus.Fields{
		"user_id":    userID,
		"session_id": sess.ID,
		"reconciled": res.reconciled,
		"skipped":    res.skipped,
	}).Info("Shopping session finished")

	if m.archiver != nil {
		m.archive(ctx, sess, final, res)
	}

	return &models.FinishResult{
		SessionID:  sess.ID,
		Reconciled: res.reconciled,
		Skipped:    res.skipped,
	}, nil
}

// Discard deletes the user's session and its items without reconciling.
func (m *Manager) Discard(ctx context.Context, userID int) error {
	sess, err := m.store.SessionByUser(ctx, userID)
	if err != nil {
		if errors.Is(err, ErrNoSession) {
			return ErrNoSession
		}
		return m.storageError("discard", err)
	}

	err = m.store.WithTx(ctx, func(tx Store) error {
		if err := tx.DeleteSessionItems(ctx, sess.ID); err != nil {
			return fmt.Errorf("failed to delete session items: %w", err)
		}
		if err := tx.DeleteSession(ctx, sess.ID); err != nil {
			return fmt.Errorf("failed to delete session: %w", err)
		}
		return nil
	})
	if err != nil {
		return m.storageError("discard", err)
	}

	m.metrics.discarded()
	m.log.WithFields(logrus.Fields{
		"user_id":    userID,
		"session_id": sess.ID,
	}).Info("Shopping session discarded")

	return nil
}

// archive is best effort: the session is already gone, so failures are only logged.
func (m *Manager) archive(ctx context.Context, sess *models.ShoppingSession, final []models.ShoppingItemDetail, res reconcileResult) {
	items := make([]models.ShoppingItem, len(final))
	for i, d := range final {
		items[i] = d.ShoppingItem
	}

	record := &models.SessionArchive{
		SessionID:      sess.ID,
		UserID:         sess.UserID,
		GroceryListIDs: sess.GroceryListIDs,
		Items:          items,
		Reconciled:     res.reconciled,
		Skipped:        res.skipped,
		StartedAt:      sess.CreatedAt,
		FinishedAt:     m.now(),
	}

	archiveCtx, cancel := context.WithTimeout(ctx, archiveTimeout)
	defer cancel()

	if err := m.archiver.Archive(archiveCtx, record); err != nil {
		m.log.WithFields(logrus.Fields{
			"user_id":    sess.UserID,
			"session_id": sess.ID,
		}).WithError(err).Warn("Failed to archive finished shopping session")
	}
}

func (m *Manager) storageError(op string, err error) error {
	m.metrics.failed(op)
	return fmt.Errorf("%s shopping session: %w", op, err)
}
