package analytics

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/reconhq/recon-server/internal/inspection"
	"github.com/reconhq/recon-server/internal/notify"
	"github.com/reconhq/recon-server/internal/store"
)

// StorageKey is the key the analytics blob lives under in the KV store.
const StorageKey = "recon:analytics"

const dateLayout = "2006-01-02"

// ErrMissingActor is returned when a mutating call arrives without user
// initials. Work is never attributed to nobody.
var ErrMissingActor = errors.New("analytics: user initials required")

// TaskUpdate describes one rating change to record.
type TaskUpdate struct {
	VehicleID    string
	VehicleName  string
	Section      string
	SectionName  string
	UserInitials string
	ItemName     string
	OldRating    inspection.Rating
	NewRating    inspection.Rating
}

// Engine is the analytics aggregation engine. One logical writer per
// process (the mutex); cross-instance writes are fenced by the store's
// compare-and-swap version stamp.
type Engine struct {
	kv       store.KV
	notifier notify.Notifier
	logger   *zap.SugaredLogger
	now      func() time.Time

	mu      sync.Mutex
	data    *Data
	version int64
	loaded  bool
}

// NewEngine creates an analytics engine on top of the given store. State is
// loaded lazily on first use.
func NewEngine(kv store.KV, notifier notify.Notifier, logger *zap.SugaredLogger) *Engine {
	return &Engine{
		kv:       kv,
		notifier: notifier,
		logger:   logger,
		now:      time.Now,
	}
}

// load pulls the blob from the store. Corrupt historical data is logged and
// replaced with an empty structure rather than propagated; the version is
// kept so the next write still goes through compare-and-swap cleanly.
// Caller holds e.mu.
func (e *Engine) load(ctx context.Context) error {
	if e.loaded {
		return nil
	}

	raw, version, err := e.kv.Get(ctx, StorageKey)
	if errors.Is(err, store.ErrNotFound) {
		e.data = newData()
		e.version = 0
		e.loaded = true
		return nil
	}
	if err != nil {
		return fmt.Errorf("load analytics: %w", err)
	}

	var data Data
	if err := json.Unmarshal(raw, &data); err != nil {
		e.logger.Warnw("Malformed analytics blob, starting fresh", "error", err)
		e.data = newData()
		e.version = version
		e.loaded = true
		return nil
	}
	if data.DailyAnalytics == nil {
		data.DailyAnalytics = make(map[string]*DailyAnalytics)
	}
	if data.UserDailyAnalytics == nil {
		data.UserDailyAnalytics = make(map[string]map[string]*UserDailyAnalytics)
	}

	e.data = &data
	e.version = version
	e.loaded = true
	return nil
}

// persist writes the blob back and emits the data-changed notification.
// On a stale write the in-memory state is dropped so the next operation
// reloads and reconciles. Caller holds e.mu.
func (e *Engine) persist(ctx context.Context) error {
	raw, err := json.Marshal(e.data)
	if err != nil {
		return fmt.Errorf("marshal analytics: %w", err)
	}

	version, err := e.kv.Put(ctx, StorageKey, raw, e.version)
	if errors.Is(err, store.ErrStaleWrite) {
		e.loaded = false
		return fmt.Errorf("save analytics: %w", err)
	}
	if err != nil {
		return fmt.Errorf("save analytics: %w", err)
	}
	e.version = version

	e.notifier.DataChanged(ctx, StorageKey)
	return nil
}

func normalizeInitials(s string) string {
	return strings.ToUpper(strings.TrimSpace(s))
}

func normalizeRating(r inspection.Rating) inspection.Rating {
	if r == "" {
		return inspection.RatingNotChecked
	}
	return r
}

// RecordTaskUpdate records one rating change into today's dealership-wide
// and per-user buckets and persists the result. A change with no actor is
// rejected; a change where the normalized old and new ratings are equal
// (including "still not-checked") is silently skipped so non-changes never
// pollute the rollups.
func (e *Engine) RecordTaskUpdate(ctx context.Context, u TaskUpdate) error {
	initials := normalizeInitials(u.UserInitials)
	if initials == "" {
		return ErrMissingActor
	}

	oldRating := normalizeRating(u.OldRating)
	newRating := normalizeRating(u.NewRating)
	if oldRating == newRating {
		return nil
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.load(ctx); err != nil {
		return err
	}

	now := e.now()
	date := now.Format(dateLayout)

	event := CompletionEvent{
		ID:            uuid.NewString(),
		VehicleID:     u.VehicleID,
		VehicleName:   u.VehicleName,
		Section:       u.Section,
		SectionName:   u.SectionName,
		CompletedBy:   initials,
		CompletedDate: date,
		Timestamp:     now,
		ItemName:      u.ItemName,
		OldRating:     oldRating,
		NewRating:     newRating,
	}

	daily, ok := e.data.DailyAnalytics[date]
	if !ok {
		daily = newDailyBucket(date)
		e.data.DailyAnalytics[date] = daily
	}
	daily.TotalCompletions++
	daily.CompletionsBySection[u.Section]++
	daily.CompletionsByUser[initials]++
	daily.Events = append(daily.Events, event)

	userDays, ok := e.data.UserDailyAnalytics[initials]
	if !ok {
		userDays = make(map[string]*UserDailyAnalytics)
		e.data.UserDailyAnalytics[initials] = userDays
	}
	userDaily, ok := userDays[date]
	if !ok {
		userDaily = newUserDailyBucket(initials, date)
		userDays[date] = userDaily
	}
	userDaily.TotalCompletions++
	userDaily.CompletionsBySection[u.Section]++
	userDaily.Events = append(userDaily.Events, event)
	if u.VehicleID != "" && !contains(userDaily.VehiclesWorkedOn, u.VehicleID) {
		userDaily.VehiclesWorkedOn = append(userDaily.VehiclesWorkedOn, u.VehicleID)
	}

	e.data.LastUpdated = now
	return e.persist(ctx)
}

// MarkVehicleCompleted adds a vehicle to today's fully-completed list,
// once. Called when every section of a vehicle reaches completed status.
func (e *Engine) MarkVehicleCompleted(ctx context.Context, vehicleID string) error {
	if vehicleID == "" {
		return nil
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.load(ctx); err != nil {
		return err
	}

	now := e.now()
	date := now.Format(dateLayout)

	daily, ok := e.data.DailyAnalytics[date]
	if !ok {
		daily = newDailyBucket(date)
		e.data.DailyAnalytics[date] = daily
	}
	if contains(daily.VehiclesCompleted, vehicleID) {
		return nil
	}
	daily.VehiclesCompleted = append(daily.VehiclesCompleted, vehicleID)

	e.data.LastUpdated = now
	return e.persist(ctx)
}

// GetUserRecentDailyAnalytics returns exactly days entries, oldest first,
// ending at today. Days without activity come back as zero-valued buckets
// so callers always see a fixed-length, gap-free window.
func (e *Engine) GetUserRecentDailyAnalytics(ctx context.Context, userInitials string, days int) ([]UserDailyAnalytics, error) {
	initials := normalizeInitials(userInitials)

	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.load(ctx); err != nil {
		return nil, err
	}

	today := e.now()
	out := make([]UserDailyAnalytics, 0, days)
	for i := days - 1; i >= 0; i-- {
		date := today.AddDate(0, 0, -i).Format(dateLayout)
		if bucket, ok := e.data.UserDailyAnalytics[initials][date]; ok {
			out = append(out, *bucket)
		} else {
			out = append(out, *newUserDailyBucket(initials, date))
		}
	}
	return out, nil
}

// GetUserCurrentWeekAnalytics aggregates the current Monday-start week for
// one technician. Returns nil when the week has no activity at all; the UI
// treats "no data" and "zero activity" the same way.
func (e *Engine) GetUserCurrentWeekAnalytics(ctx context.Context, userInitials string) (*UserWeeklyAnalytics, error) {
	initials := normalizeInitials(userInitials)

	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.load(ctx); err != nil {
		return nil, err
	}

	start := weekStart(e.now())
	week := &UserWeeklyAnalytics{
		UserInitials:     initials,
		WeekStart:        start.Format(dateLayout),
		SectionBreakdown: make(map[string]int),
		VehiclesWorkedOn: []string{},
	}

	for i := 0; i < 7; i++ {
		date := start.AddDate(0, 0, i).Format(dateLayout)
		bucket, ok := e.data.UserDailyAnalytics[initials][date]
		if !ok {
			continue
		}
		week.TotalCompletions += bucket.TotalCompletions
		for section, n := range bucket.CompletionsBySection {
			week.SectionBreakdown[section] += n
		}
		for _, id := range bucket.VehiclesWorkedOn {
			if !contains(week.VehiclesWorkedOn, id) {
				week.VehiclesWorkedOn = append(week.VehiclesWorkedOn, id)
			}
		}
		// First day with the max count wins ties (chronological scan).
		if bucket.TotalCompletions > week.MostProductiveDay.Completions {
			week.MostProductiveDay = DayTotal{Date: date, Completions: bucket.TotalCompletions}
		}
	}

	if week.TotalCompletions == 0 {
		return nil, nil
	}

	// Flat seven-day average, deliberately not divided by days worked.
	week.AverageCompletionsPerDay = float64(week.TotalCompletions) / 7
	return week, nil
}

// GetUserCurrentMonthAnalytics aggregates the current calendar month for
// one technician. The average divides by working days (days with at least
// one event), not calendar days — a different convention than the weekly
// view, kept intentionally. Returns nil when the month has no activity.
func (e *Engine) GetUserCurrentMonthAnalytics(ctx context.Context, userInitials string) (*UserMonthlyAnalytics, error) {
	initials := normalizeInitials(userInitials)

	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.load(ctx); err != nil {
		return nil, err
	}

	now := e.now()
	first := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())
	daysInMonth := first.AddDate(0, 1, -1).Day()

	month := &UserMonthlyAnalytics{
		UserInitials:     initials,
		Month:            first.Format("2006-01"),
		SectionBreakdown: make(map[string]int),
		VehiclesWorkedOn: []string{},
	}
	weekTotals := make(map[string]int)

	for i := 0; i < daysInMonth; i++ {
		day := first.AddDate(0, 0, i)
		date := day.Format(dateLayout)
		bucket, ok := e.data.UserDailyAnalytics[initials][date]
		if !ok || bucket.TotalCompletions == 0 {
			continue
		}
		month.TotalCompletions += bucket.TotalCompletions
		month.WorkingDays++
		for section, n := range bucket.CompletionsBySection {
			month.SectionBreakdown[section] += n
		}
		for _, id := range bucket.VehiclesWorkedOn {
			if !contains(month.VehiclesWorkedOn, id) {
				month.VehiclesWorkedOn = append(month.VehiclesWorkedOn, id)
			}
		}
		weekTotals[weekStart(day).Format(dateLayout)] += bucket.TotalCompletions
	}

	if month.TotalCompletions == 0 {
		return nil, nil
	}

	month.AverageCompletionsPerDay = float64(month.TotalCompletions) / float64(month.WorkingDays)

	weeks := make([]string, 0, len(weekTotals))
	for ws := range weekTotals {
		weeks = append(weeks, ws)
	}
	sort.Strings(weeks)
	for _, ws := range weeks {
		if month.BestWeek == nil || weekTotals[ws] > month.BestWeek.Completions {
			month.BestWeek = &WeekTotal{WeekStart: ws, Completions: weekTotals[ws]}
		}
	}

	return month, nil
}

// GetAllUsers returns every technician that appears anywhere in the
// analytics, sorted ascending. The union of both maps keeps this robust
// against partially migrated historical data.
func (e *Engine) GetAllUsers(ctx context.Context) ([]string, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.load(ctx); err != nil {
		return nil, err
	}

	seen := make(map[string]bool)
	for user := range e.data.UserDailyAnalytics {
		seen[user] = true
	}
	for _, daily := range e.data.DailyAnalytics {
		for user := range daily.CompletionsByUser {
			seen[user] = true
		}
	}

	users := make([]string, 0, len(seen))
	for user := range seen {
		users = append(users, user)
	}
	sort.Strings(users)
	return users, nil
}

// GetTopPerformers ranks technicians by completions over a trailing
// window: 7 calendar days for "week", 30 for "month". Rolling windows,
// not calendar-aligned. Strictly descending; ties break by initials
// ascending so the ordering is stable.
func (e *Engine) GetTopPerformers(ctx context.Context, period string, limit int) ([]Performer, error) {
	var days int
	switch period {
	case "week":
		days = 7
	case "month":
		days = 30
	default:
		return nil, fmt.Errorf("invalid leaderboard period: %q", period)
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.load(ctx); err != nil {
		return nil, err
	}

	totals := make(map[string]int)
	today := e.now()
	for i := 0; i < days; i++ {
		date := today.AddDate(0, 0, -i).Format(dateLayout)
		daily, ok := e.data.DailyAnalytics[date]
		if !ok {
			continue
		}
		for user, n := range daily.CompletionsByUser {
			totals[user] += n
		}
	}

	performers := make([]Performer, 0, len(totals))
	for user, n := range totals {
		performers = append(performers, Performer{UserInitials: user, Completions: n})
	}
	sort.Slice(performers, func(i, j int) bool {
		if performers[i].Completions != performers[j].Completions {
			return performers[i].Completions > performers[j].Completions
		}
		return performers[i].UserInitials < performers[j].UserInitials
	})

	if limit > 0 && len(performers) > limit {
		performers = performers[:limit]
	}
	return performers, nil
}

// Prune drops daily buckets (dealership-wide and per-user) older than
// retentionDays and returns how many were removed. Keeps the persisted
// blob from growing without bound.
func (e *Engine) Prune(ctx context.Context, retentionDays int) (int, error) {
	if retentionDays <= 0 {
		return 0, nil
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.load(ctx); err != nil {
		return 0, err
	}

	cutoff := e.now().AddDate(0, 0, -retentionDays).Format(dateLayout)
	removed := 0

	for date := range e.data.DailyAnalytics {
		if date < cutoff {
			delete(e.data.DailyAnalytics, date)
			removed++
		}
	}
	for user, days := range e.data.UserDailyAnalytics {
		for date := range days {
			if date < cutoff {
				delete(days, date)
				removed++
			}
		}
		if len(days) == 0 {
			delete(e.data.UserDailyAnalytics, user)
		}
	}

	if removed == 0 {
		return 0, nil
	}

	e.data.LastUpdated = e.now()
	if err := e.persist(ctx); err != nil {
		return 0, err
	}
	return removed, nil
}

// weekStart returns midnight on the Monday of t's ISO week.
func weekStart(t time.Time) time.Time {
	day := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
	offset := (int(day.Weekday()) + 6) % 7
	return day.AddDate(0, 0, -offset)
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
