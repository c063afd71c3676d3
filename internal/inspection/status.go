package inspection

import "errors"

// ErrNoItems is returned when a section has no checklist items; a status
// cannot be derived from nothing.
var ErrNoItems = errors.New("inspection: section has no items")

// DeriveStatus maps a section's checklist items to the section's aggregate
// status. Pure function: the result depends only on the item ratings, and
// the caller recomputes it synchronously after every rating change.
//
// Rules, first match wins:
//  1. nothing checked            -> not-started
//  2. any needs-attention        -> needs-attention
//  3. any fair                   -> pending
//  4. all great                  -> completed
//  5. partially checked, no bad  -> pending
//
// needs-attention dominates every other signal, and completed requires
// every single item to be rated great.
func DeriveStatus(items []Item) (SectionStatus, error) {
	if len(items) == 0 {
		return "", ErrNoItems
	}

	anyChecked := false
	anyNeedsAttention := false
	anyFair := false
	allGreat := true

	for _, it := range items {
		switch it.Rating {
		case RatingNeedsAttention:
			anyChecked = true
			anyNeedsAttention = true
			allGreat = false
		case RatingFair:
			anyChecked = true
			anyFair = true
			allGreat = false
		case RatingGreat:
			anyChecked = true
		default:
			// not-checked, or an empty rating on a freshly seeded item
			allGreat = false
		}
	}

	switch {
	case !anyChecked:
		return StatusNotStarted, nil
	case anyNeedsAttention:
		return StatusNeedsAttention, nil
	case anyFair:
		return StatusPending, nil
	case allGreat:
		return StatusCompleted, nil
	default:
		return StatusPending, nil
	}
}
