package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/alexanderramin/coursetrack/internal/db"
	"github.com/alexanderramin/coursetrack/internal/domain"
)

// SQLiteSessionRepo implements SessionRepo using a SQLite database.
type SQLiteSessionRepo struct {
	db db.DBTX
}

// NewSQLiteSessionRepo creates a new SQLiteSessionRepo.
func NewSQLiteSessionRepo(conn db.DBTX) *SQLiteSessionRepo {
	return &SQLiteSessionRepo{db: conn}
}

func (r *SQLiteSessionRepo) Save(ctx context.Context, s *domain.Session) error {
	query := `INSERT OR REPLACE INTO sessions
		(id, user_id, email, organization_id, role, access_token, expires_at, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`
	_, err := r.db.ExecContext(ctx, query,
		s.ID,
		s.UserID,
		s.Email,
		s.OrganizationID,
		s.Role,
		s.AccessToken,
		nullableTimeToString(s.ExpiresAt, time.RFC3339),
		s.CreatedAt.UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("inserting session: %w", err)
	}
	return nil
}

// GetActive returns the most recently created session.
func (r *SQLiteSessionRepo) GetActive(ctx context.Context) (*domain.Session, error) {
	query := `SELECT id, user_id, email, organization_id, role, access_token, expires_at, created_at
		FROM sessions ORDER BY created_at DESC LIMIT 1`
	row := r.db.QueryRowContext(ctx, query)

	var s domain.Session
	var expiresAt sql.NullString
	var createdAt string
	err := row.Scan(&s.ID, &s.UserID, &s.Email, &s.OrganizationID, &s.Role, &s.AccessToken, &expiresAt, &createdAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("session: %w", ErrNotFound)
		}
		return nil, fmt.Errorf("scanning session: %w", err)
	}

	s.ExpiresAt = parseNullableTime(expiresAt, time.RFC3339)
	s.CreatedAt, err = time.Parse(time.RFC3339, createdAt)
	if err != nil {
		return nil, fmt.Errorf("parsing session created_at: %w", err)
	}
	return &s, nil
}

func (r *SQLiteSessionRepo) Delete(ctx context.Context, id string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM sessions WHERE id = ?`, id); err != nil {
		return fmt.Errorf("deleting session: %w", err)
	}
	return nil
}

func (r *SQLiteSessionRepo) DeleteAll(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM sessions`); err != nil {
		return fmt.Errorf("deleting sessions: %w", err)
	}
	return nil
}
