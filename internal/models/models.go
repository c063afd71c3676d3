// Package models defines the data structures used across the application.
// These map to the Postgres schema; inspection state and section status are
// stored as JSONB on the vehicle row.
package models

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/reconhq/recon-server/internal/inspection"
)

// Vehicle is one unit moving through reconditioning. Checklist holds the
// per-section inspection items; Status holds the derived section statuses,
// one entry per active section, recomputed on every rating change.
type Vehicle struct {
	ID          uuid.UUID                           `json:"id" db:"id"`
	StockNumber string                              `json:"stock_number" db:"stock_number"`
	VIN         string                              `json:"vin" db:"vin"`
	Year        int                                 `json:"year" db:"year"`
	Make        string                              `json:"make" db:"make"`
	Model       string                              `json:"model" db:"model"`
	Color       string                              `json:"color,omitempty" db:"color"`
	Checklist   map[string][]inspection.Item        `json:"checklist" db:"checklist"`
	Status      map[string]inspection.SectionStatus `json:"status" db:"status"`
	CreatedAt   time.Time                           `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time                           `json:"updated_at" db:"updated_at"`
}

// DisplayName is how the vehicle appears in event feeds and dashboards.
func (v *Vehicle) DisplayName() string {
	return fmt.Sprintf("%d %s %s", v.Year, v.Make, v.Model)
}

// VehicleCreate is the request body for adding a vehicle. CustomSections
// adds dealership-defined sections beyond the five fixed ones.
type VehicleCreate struct {
	StockNumber    string   `json:"stock_number"`
	VIN            string   `json:"vin"`
	Year           int      `json:"year"`
	Make           string   `json:"make"`
	Model          string   `json:"model"`
	Color          string   `json:"color,omitempty"`
	CustomSections []string `json:"custom_sections,omitempty"`
}

// VehicleUpdate is the request body for editing vehicle details. Ratings do
// not go through this path; they use the rating endpoint so status
// derivation and analytics stay in sync.
type VehicleUpdate struct {
	StockNumber string `json:"stock_number"`
	VIN         string `json:"vin"`
	Year        int    `json:"year"`
	Make        string `json:"make"`
	Model       string `json:"model"`
	Color       string `json:"color,omitempty"`
}

// RatingSubmission is the request body for rating one checklist item.
// UserInitials is required; a rating with no actor is rejected outright.
type RatingSubmission struct {
	Section      string `json:"section"`
	ItemKey      string `json:"item_key"`
	Rating       string `json:"rating"`
	UserInitials string `json:"user_initials"`
}

// TeamNote is a free-form note technicians leave on a vehicle.
type TeamNote struct {
	ID        uuid.UUID `json:"id" db:"id"`
	VehicleID uuid.UUID `json:"vehicle_id" db:"vehicle_id"`
	Author    string    `json:"author" db:"author"`
	Text      string    `json:"text" db:"note_text"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// TeamNoteCreate is the request body for adding a note.
type TeamNoteCreate struct {
	Author string `json:"author"`
	Text   string `json:"text"`
}

// User is a technician in the registry. Initials attribute completion
// events; the PIN hash never leaves the server.
type User struct {
	ID        uuid.UUID `json:"id" db:"id"`
	Initials  string    `json:"initials" db:"initials"`
	Name      string    `json:"name" db:"name"`
	PINHash   string    `json:"-" db:"pin_hash"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// UserCreate is the request body for registering a technician.
type UserCreate struct {
	Initials string `json:"initials"`
	Name     string `json:"name"`
	PIN      string `json:"pin"`
}

// HealthStatus represents the server health check response
type HealthStatus struct {
	Status   string `json:"status"`
	Version  string `json:"version"`
	Uptime   string `json:"uptime"`
	Database string `json:"database,omitempty"`
}
