// Package inspection implements the vehicle inspection vocabulary and the
// status derivation rules: per-item ratings roll up into a single section
// status that is recomputed on every rating change.
package inspection

import (
	"fmt"
	"strings"
)

// Rating is the value a technician assigns to a single checklist item.
type Rating string

const (
	RatingGreat          Rating = "great"
	RatingFair           Rating = "fair"
	RatingNeedsAttention Rating = "needs-attention"
	RatingNotChecked     Rating = "not-checked"
)

// IsValid reports whether the rating is one of the four defined values.
func (r Rating) IsValid() bool {
	switch r {
	case RatingGreat, RatingFair, RatingNeedsAttention, RatingNotChecked:
		return true
	default:
		return false
	}
}

// ParseRating validates a rating arriving from outside the process.
// An empty string normalizes to not-checked; anything else unknown is
// rejected here so the derivation rules never see malformed input.
func ParseRating(input string) (Rating, error) {
	s := strings.TrimSpace(strings.ToLower(input))
	if s == "" {
		return RatingNotChecked, nil
	}
	r := Rating(s)
	if !r.IsValid() {
		return "", fmt.Errorf("invalid rating: %q", input)
	}
	return r, nil
}

// SectionStatus is the derived aggregate state of one inspection section.
// It is never set directly; it is always recomputed from the section's
// item ratings via DeriveStatus.
type SectionStatus string

const (
	StatusNotStarted     SectionStatus = "not-started"
	StatusPending        SectionStatus = "pending"
	StatusNeedsAttention SectionStatus = "needs-attention"
	StatusCompleted      SectionStatus = "completed"
)

// IsValid reports whether the status is one of the four defined values.
func (s SectionStatus) IsValid() bool {
	switch s {
	case StatusNotStarted, StatusPending, StatusNeedsAttention, StatusCompleted:
		return true
	default:
		return false
	}
}

// Item is a single checklist entry within an inspection section.
type Item struct {
	Key    string `json:"key"`
	Label  string `json:"label"`
	Rating Rating `json:"rating"`
}
