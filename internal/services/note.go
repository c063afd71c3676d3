package services

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/reconhq/recon-server/internal/models"
)

// TeamNoteService handles per-vehicle team notes
type TeamNoteService struct {
	db     *pgxpool.Pool
	logger *zap.SugaredLogger
}

// NewTeamNoteService creates a new team note service
func NewTeamNoteService(db *pgxpool.Pool, logger *zap.SugaredLogger) *TeamNoteService {
	return &TeamNoteService{db: db, logger: logger}
}

// Add attaches a note to a vehicle
func (s *TeamNoteService) Add(ctx context.Context, vehicleID uuid.UUID, req *models.TeamNoteCreate) (*models.TeamNote, error) {
	note := &models.TeamNote{
		ID:        uuid.New(),
		VehicleID: vehicleID,
		Author:    req.Author,
		Text:      req.Text,
		CreatedAt: time.Now(),
	}

	query := `INSERT INTO team_notes (id, vehicle_id, author, note_text, created_at)
		VALUES ($1, $2, $3, $4, $5)`
	_, err := s.db.Exec(ctx, query, note.ID, note.VehicleID, note.Author, note.Text, note.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("insert note: %w", err)
	}

	s.logger.Infow("Note added", "vehicle", vehicleID, "author", note.Author)
	return note, nil
}

// ListByVehicle returns a vehicle's notes, newest first
func (s *TeamNoteService) ListByVehicle(ctx context.Context, vehicleID uuid.UUID) ([]models.TeamNote, error) {
	query := `SELECT id, vehicle_id, author, note_text, created_at
		FROM team_notes WHERE vehicle_id = $1 ORDER BY created_at DESC`

	rows, err := s.db.Query(ctx, query, vehicleID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var notes []models.TeamNote
	for rows.Next() {
		var n models.TeamNote
		if err := rows.Scan(&n.ID, &n.VehicleID, &n.Author, &n.Text, &n.CreatedAt); err != nil {
			continue
		}
		notes = append(notes, n)
	}
	return notes, nil
}

// Delete removes a note
func (s *TeamNoteService) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := s.db.Exec(ctx, `DELETE FROM team_notes WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete note: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("note not found: %s", id)
	}
	return nil
}
