// Package services contains business logic layers.
// Services are called by handlers and interact with the database
// and the analytics engine.
package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/reconhq/recon-server/internal/analytics"
	"github.com/reconhq/recon-server/internal/inspection"
	"github.com/reconhq/recon-server/internal/models"
)

// VehicleService handles vehicle CRUD and the rating flow that drives
// status derivation and analytics.
type VehicleService struct {
	db        *pgxpool.Pool
	analytics *analytics.Engine
	logger    *zap.SugaredLogger
}

// NewVehicleService creates a new vehicle service
func NewVehicleService(db *pgxpool.Pool, engine *analytics.Engine, logger *zap.SugaredLogger) *VehicleService {
	return &VehicleService{db: db, analytics: engine, logger: logger}
}

// Create stores a new vehicle with a freshly seeded inspection checklist.
// Custom sections start with a single general item until dealership
// settings supply their own lists.
func (s *VehicleService) Create(ctx context.Context, req *models.VehicleCreate) (*models.Vehicle, error) {
	now := time.Now()
	v := &models.Vehicle{
		ID:          uuid.New(),
		StockNumber: req.StockNumber,
		VIN:         req.VIN,
		Year:        req.Year,
		Make:        req.Make,
		Model:       req.Model,
		Color:       req.Color,
		Checklist:   inspection.SeedChecklist(),
		Status:      make(map[string]inspection.SectionStatus),
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	for _, section := range req.CustomSections {
		if section == "" {
			continue
		}
		if _, exists := v.Checklist[section]; exists {
			continue
		}
		v.Checklist[section] = []inspection.Item{
			{Key: "general-check", Label: "General Check", Rating: inspection.RatingNotChecked},
		}
	}

	// Every active section gets exactly one status entry.
	for section, items := range v.Checklist {
		status, err := inspection.DeriveStatus(items)
		if err != nil {
			return nil, fmt.Errorf("seed section %q: %w", section, err)
		}
		v.Status[section] = status
	}

	query := `
		INSERT INTO vehicles (id, stock_number, vin, year, make, model, color, checklist, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`
	_, err := s.db.Exec(ctx, query,
		v.ID, v.StockNumber, v.VIN, v.Year, v.Make, v.Model, v.Color,
		v.Checklist, v.Status, v.CreatedAt, v.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("insert vehicle: %w", err)
	}

	s.logger.Infow("Vehicle created",
		"id", v.ID,
		"stock_number", v.StockNumber,
		"sections", len(v.Checklist),
	)
	return v, nil
}

// Get looks up one vehicle by ID
func (s *VehicleService) Get(ctx context.Context, id uuid.UUID) (*models.Vehicle, error) {
	query := `SELECT id, stock_number, vin, year, make, model, color, checklist, status, created_at, updated_at
		FROM vehicles WHERE id = $1`

	var v models.Vehicle
	row := s.db.QueryRow(ctx, query, id)
	err := row.Scan(&v.ID, &v.StockNumber, &v.VIN, &v.Year, &v.Make, &v.Model, &v.Color,
		&v.Checklist, &v.Status, &v.CreatedAt, &v.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("vehicle not found: %w", err)
	}
	return &v, nil
}

// List returns all vehicles, newest first
func (s *VehicleService) List(ctx context.Context) ([]models.Vehicle, error) {
	query := `SELECT id, stock_number, vin, year, make, model, color, checklist, status, created_at, updated_at
		FROM vehicles ORDER BY created_at DESC`

	rows, err := s.db.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var vehicles []models.Vehicle
	for rows.Next() {
		var v models.Vehicle
		if err := rows.Scan(&v.ID, &v.StockNumber, &v.VIN, &v.Year, &v.Make, &v.Model, &v.Color,
			&v.Checklist, &v.Status, &v.CreatedAt, &v.UpdatedAt); err != nil {
			continue
		}
		vehicles = append(vehicles, v)
	}
	return vehicles, nil
}

// Update edits vehicle details; the inspection state is untouched.
func (s *VehicleService) Update(ctx context.Context, id uuid.UUID, req *models.VehicleUpdate) (*models.Vehicle, error) {
	query := `
		UPDATE vehicles
		SET stock_number = $2, vin = $3, year = $4, make = $5, model = $6, color = $7, updated_at = $8
		WHERE id = $1
	`
	tag, err := s.db.Exec(ctx, query,
		id, req.StockNumber, req.VIN, req.Year, req.Make, req.Model, req.Color, time.Now())
	if err != nil {
		return nil, fmt.Errorf("update vehicle: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return nil, fmt.Errorf("vehicle not found: %s", id)
	}
	return s.Get(ctx, id)
}

// Delete removes a vehicle and its notes
func (s *VehicleService) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := s.db.Exec(ctx, `DELETE FROM vehicles WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete vehicle: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("vehicle not found: %s", id)
	}
	return nil
}

// RateItem applies one rating change: mutate the item, re-derive the
// section status synchronously, persist the vehicle, then record the
// completion event. A call without user initials aborts before anything is
// touched; re-rating an item to its current value changes nothing.
func (s *VehicleService) RateItem(ctx context.Context, vehicleID uuid.UUID, section, itemKey string, rating inspection.Rating, userInitials string) (*models.Vehicle, error) {
	// Same normalization the analytics engine applies: a whitespace-only
	// actor must fail here, before the vehicle row is touched, not after.
	if strings.TrimSpace(userInitials) == "" {
		return nil, analytics.ErrMissingActor
	}

	v, err := s.Get(ctx, vehicleID)
	if err != nil {
		return nil, err
	}

	items, ok := v.Checklist[section]
	if !ok {
		return nil, fmt.Errorf("unknown section %q on vehicle %s", section, vehicleID)
	}

	idx := -1
	for i := range items {
		if items[i].Key == itemKey {
			idx = i
			break
		}
	}
	if idx < 0 {
		return nil, fmt.Errorf("unknown item %q in section %q", itemKey, section)
	}

	oldRating := items[idx].Rating
	if oldRating == rating {
		return v, nil
	}

	items[idx].Rating = rating
	status, err := inspection.DeriveStatus(items)
	if err != nil {
		return nil, err
	}
	v.Checklist[section] = items
	v.Status[section] = status
	v.UpdatedAt = time.Now()

	query := `UPDATE vehicles SET checklist = $2, status = $3, updated_at = $4 WHERE id = $1`
	if _, err := s.db.Exec(ctx, query, v.ID, v.Checklist, v.Status, v.UpdatedAt); err != nil {
		return nil, fmt.Errorf("update vehicle inspection: %w", err)
	}

	err = s.analytics.RecordTaskUpdate(ctx, analytics.TaskUpdate{
		VehicleID:    v.ID.String(),
		VehicleName:  v.DisplayName(),
		Section:      section,
		SectionName:  inspection.SectionName(section),
		UserInitials: userInitials,
		ItemName:     items[idx].Label,
		OldRating:    oldRating,
		NewRating:    rating,
	})
	if err != nil {
		// The vehicle row is already updated; surface the analytics
		// failure so the caller can retry the recording.
		return nil, fmt.Errorf("record task update: %w", err)
	}

	if allCompleted(v.Status) {
		if err := s.analytics.MarkVehicleCompleted(ctx, v.ID.String()); err != nil {
			return nil, fmt.Errorf("mark vehicle completed: %w", err)
		}
	}

	s.logger.Infow("Item rated",
		"vehicle", v.ID,
		"section", section,
		"item", itemKey,
		"rating", rating,
		"status", status,
		"by", userInitials,
	)
	return v, nil
}

func allCompleted(status map[string]inspection.SectionStatus) bool {
	if len(status) == 0 {
		return false
	}
	for _, s := range status {
		if s != inspection.StatusCompleted {
			return false
		}
	}
	return true
}
