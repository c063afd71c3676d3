package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/reconhq/recon-server/internal/models"
)

// UserService manages the technician registry. Initials are the identity
// attached to completion events; the optional PIN lets shared kiosks
// confirm who is rating before attributing work.
type UserService struct {
	db     *pgxpool.Pool
	logger *zap.SugaredLogger
}

// NewUserService creates a new user service
func NewUserService(db *pgxpool.Pool, logger *zap.SugaredLogger) *UserService {
	return &UserService{db: db, logger: logger}
}

// Create registers a technician. The PIN, when given, is stored as a
// bcrypt hash only.
func (s *UserService) Create(ctx context.Context, req *models.UserCreate) (*models.User, error) {
	initials := strings.ToUpper(strings.TrimSpace(req.Initials))
	if initials == "" {
		return nil, fmt.Errorf("initials are required")
	}

	user := &models.User{
		ID:        uuid.New(),
		Initials:  initials,
		Name:      req.Name,
		CreatedAt: time.Now(),
	}

	if req.PIN != "" {
		hash, err := bcrypt.GenerateFromPassword([]byte(req.PIN), bcrypt.DefaultCost)
		if err != nil {
			return nil, fmt.Errorf("hash pin: %w", err)
		}
		user.PINHash = string(hash)
	}

	query := `INSERT INTO users (id, initials, name, pin_hash, created_at)
		VALUES ($1, $2, $3, $4, $5)`
	_, err := s.db.Exec(ctx, query, user.ID, user.Initials, user.Name, user.PINHash, user.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("insert user: %w", err)
	}

	s.logger.Infow("User registered", "initials", user.Initials, "name", user.Name)
	return user, nil
}

// List returns all technicians sorted by initials
func (s *UserService) List(ctx context.Context) ([]models.User, error) {
	query := `SELECT id, initials, name, pin_hash, created_at FROM users ORDER BY initials`

	rows, err := s.db.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var users []models.User
	for rows.Next() {
		var u models.User
		if err := rows.Scan(&u.ID, &u.Initials, &u.Name, &u.PINHash, &u.CreatedAt); err != nil {
			continue
		}
		users = append(users, u)
	}
	return users, nil
}

// VerifyPIN checks a technician's PIN. Users registered without a PIN
// always verify.
func (s *UserService) VerifyPIN(ctx context.Context, initials, pin string) (bool, error) {
	initials = strings.ToUpper(strings.TrimSpace(initials))

	var hash string
	err := s.db.QueryRow(ctx, `SELECT pin_hash FROM users WHERE initials = $1`, initials).Scan(&hash)
	if err != nil {
		return false, fmt.Errorf("user not found: %w", err)
	}
	if hash == "" {
		return true, nil
	}
	if err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(pin)); err != nil {
		return false, nil
	}
	return true, nil
}

// Delete removes a technician from the registry. Historical analytics
// attributed to their initials are kept.
func (s *UserService) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := s.db.Exec(ctx, `DELETE FROM users WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete user: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("user not found: %s", id)
	}
	return nil
}
