package session

import (
	"sort"

	"github.com/foxxcyber/household/internal/models"
)

// uniqueIDs drops repeated ids, keeping the first occurrence.
func uniqueIDs(ids []int) []int {
	seen := make(map[int]bool, len(ids))
	out := make([]int, 0, len(ids))
	for _, id := range ids {
		if seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	return out
}

// firstMissing returns the position in want of the first id absent from have.
func firstMissing(want, have []int) (int, bool) {
	present := make(map[int]bool, len(have))
	for _, id := range have {
		present[id] = true
	}
	for i, id := range want {
		if !present[id] {
			return i, true
		}
	}
	return 0, false
}

// snapshotItems copies grocery list items into session items. The copies are
// ordered by list id, then the source sort order, then source id, and get a
// fresh sort order 0..n-1 across the whole sequence. The purchased flag is
// copied as-is.
func snapshotItems(sessionID int, source []models.GroceryListItem) []models.ShoppingItem {
	ordered := make([]models.GroceryListItem, len(source))
	copy(ordered, source)
	sort.SliceStable(ordered, func(i, j int) bool {
		a, b := ordered[i], ordered[j]
		if a.GroceryListID != b.GroceryListID {
			return a.GroceryListID < b.GroceryListID
		}
		if a.SortOrder != b.SortOrder {
			return a.SortOrder < b.SortOrder
		}
		return a.ID < b.ID
	})

	items := make([]models.ShoppingItem, 0, len(ordered))
	for i, src := range ordered {
		items = append(items, models.ShoppingItem{
			ShoppingSessionID: sessionID,
			GroceryListItemID: src.ID,
			Name:              src.Name,
			Quantity:          cloneFloat(src.Quantity),
			Unit:              cloneString(src.Unit),
			Notes:             cloneString(src.Notes),
			SortOrder:         i,
			IsPurchased:       src.IsPurchased,
		})
	}
	return items
}

func cloneFloat(v *float64) *float64 {
	if v == nil {
		return nil
	}
	c := *v
	return &c
}

func cloneString(v *string) *string {
	if v == nil {
		return nil
	}
	c := *v
	return &c
}
