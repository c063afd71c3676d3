// Package analytics records every inspection rating change as an immutable
// completion event and maintains the daily and per-user rollups behind the
// dashboards and leaderboards. Weekly and monthly views are derived on
// demand from the daily buckets; the daily buckets are the only source of
// truth.
package analytics

import (
	"time"

	"github.com/reconhq/recon-server/internal/inspection"
)

// CompletionEvent is one rating change: who touched which item on which
// vehicle, and when. Immutable once recorded.
type CompletionEvent struct {
	ID            string            `json:"id"`
	VehicleID     string            `json:"vehicleId"`
	VehicleName   string            `json:"vehicleName"`
	Section       string            `json:"section"`
	SectionName   string            `json:"sectionName"`
	CompletedBy   string            `json:"completedBy"`
	CompletedDate string            `json:"completedDate"` // YYYY-MM-DD, server-local
	Timestamp     time.Time         `json:"timestamp"`
	ItemName      string            `json:"itemName,omitempty"`
	OldRating     inspection.Rating `json:"oldRating,omitempty"`
	NewRating     inspection.Rating `json:"newRating,omitempty"`
}

// DailyAnalytics is the dealership-wide bucket for one calendar day.
//
// Invariant: TotalCompletions == len(Events) == sum over
// CompletionsBySection == sum over CompletionsByUser. The section map is
// open: custom dealership sections count alongside the five fixed ones.
type DailyAnalytics struct {
	Date                 string            `json:"date"`
	TotalCompletions     int               `json:"totalCompletions"`
	CompletionsBySection map[string]int    `json:"completionsBySection"`
	CompletionsByUser    map[string]int    `json:"completionsByUser"`
	VehiclesCompleted    []string          `json:"vehiclesCompleted"`
	Events               []CompletionEvent `json:"events"`
}

// UserDailyAnalytics is the same bucket scoped to a single technician,
// plus the deduplicated set of vehicles they touched that day.
type UserDailyAnalytics struct {
	UserInitials         string            `json:"userInitials"`
	Date                 string            `json:"date"`
	TotalCompletions     int               `json:"totalCompletions"`
	CompletionsBySection map[string]int    `json:"completionsBySection"`
	VehiclesWorkedOn     []string          `json:"vehiclesWorkedOn"`
	Events               []CompletionEvent `json:"events"`
}

// DayTotal pairs a date with its completion count.
type DayTotal struct {
	Date        string `json:"date"`
	Completions int    `json:"completions"`
}

// WeekTotal pairs a Monday week-start date with that week's completions.
type WeekTotal struct {
	WeekStart   string `json:"weekStart"`
	Completions int    `json:"completions"`
}

// UserWeeklyAnalytics aggregates one technician's current Monday-start
// week. The average divides by a flat 7 days, not by days worked.
type UserWeeklyAnalytics struct {
	UserInitials             string         `json:"userInitials"`
	WeekStart                string         `json:"weekStart"`
	TotalCompletions         int            `json:"totalCompletions"`
	AverageCompletionsPerDay float64        `json:"averageCompletionsPerDay"`
	MostProductiveDay        DayTotal       `json:"mostProductiveDay"`
	SectionBreakdown         map[string]int `json:"sectionBreakdown"`
	VehiclesWorkedOn         []string       `json:"vehiclesWorkedOn"`
}

// UserMonthlyAnalytics aggregates one technician's current calendar month.
// Unlike the weekly view, the average divides by WorkingDays (days with at
// least one event). BestWeek covers the Monday-aligned weeks overlapping
// the month.
type UserMonthlyAnalytics struct {
	UserInitials             string         `json:"userInitials"`
	Month                    string         `json:"month"` // YYYY-MM
	TotalCompletions         int            `json:"totalCompletions"`
	WorkingDays              int            `json:"workingDays"`
	AverageCompletionsPerDay float64        `json:"averageCompletionsPerDay"`
	SectionBreakdown         map[string]int `json:"sectionBreakdown"`
	VehiclesWorkedOn         []string       `json:"vehiclesWorkedOn"`
	BestWeek                 *WeekTotal     `json:"bestWeek,omitempty"`
}

// Performer is one leaderboard row.
type Performer struct {
	UserInitials string `json:"userInitials"`
	Completions  int    `json:"completions"`
}

// Data is the persisted analytics blob: every daily bucket, dealership-wide
// and per user. Loaded once, mutated in place, written back after every
// change.
type Data struct {
	DailyAnalytics     map[string]*DailyAnalytics                `json:"dailyAnalytics"`
	UserDailyAnalytics map[string]map[string]*UserDailyAnalytics `json:"userDailyAnalytics"`
	LastUpdated        time.Time                                 `json:"lastUpdated"`
}

func newData() *Data {
	return &Data{
		DailyAnalytics:     make(map[string]*DailyAnalytics),
		UserDailyAnalytics: make(map[string]map[string]*UserDailyAnalytics),
	}
}

func newDailyBucket(date string) *DailyAnalytics {
	return &DailyAnalytics{
		Date:                 date,
		CompletionsBySection: make(map[string]int),
		CompletionsByUser:    make(map[string]int),
		VehiclesCompleted:    []string{},
		Events:               []CompletionEvent{},
	}
}

func newUserDailyBucket(user, date string) *UserDailyAnalytics {
	return &UserDailyAnalytics{
		UserInitials:         user,
		Date:                 date,
		CompletionsBySection: make(map[string]int),
		VehiclesWorkedOn:     []string{},
		Events:               []CompletionEvent{},
	}
}
