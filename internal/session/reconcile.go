package session

import (
	"context"
	"fmt"
)

type reconcileResult struct {
	reconciled int
	skipped    int
}

// reconcile pushes the purchased state of every purchased session item onto
// its grocery list item. It only ever sets flags to true and never touches
// name, quantity, unit or notes. Items whose source is gone are skipped.
// Must run inside the transaction that later deletes the session.
func reconcile(ctx context.Context, tx Store, sessionID int) (reconcileResult, error) {
	var res reconcileResult

	purchased, err := tx.PurchasedItems(ctx, sessionID)
	if err != nil {
		return res, fmt.Errorf("failed to load purchased items: %w", err)
	}

	for _, item := range purchased {
		ok, err := tx.MarkSourcePurchased(ctx, item.GroceryListItemID)
		if err != nil {
			return res, fmt.Errorf("failed to reconcile grocery list item %d: %w", item.GroceryListItemID, err)
		}
		if !ok {
			res.skipped++
			continue
		}
		res.reconciled++
	}

	return res, nil
}
