package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"go.uber.org/zap"

	"github.com/studiobgc/loopforge/internal/domain/entities"
	"github.com/studiobgc/loopforge/internal/domain/repositories"
)

type sessionRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

func NewSessionRepository(db *sql.DB, logger *zap.Logger) repositories.SessionRepository {
	return &sessionRepository{db: db, logger: logger}
}

func (r *sessionRepository) Create(ctx context.Context, s *entities.Session) error {
	err := r.db.QueryRowContext(ctx, `
		INSERT INTO sessions (id, source_filename, duration_seconds, detected_bpm, detected_key)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING created_at
	`, s.ID, s.SourceFilename, s.DurationSeconds, s.DetectedBPM, s.DetectedKey).Scan(&s.CreatedAt)
	if err != nil {
		r.logger.Error("session insert failed", zap.Error(err), zap.String("session_id", s.ID))
		return fmt.Errorf("insert session: %w", err)
	}
	return nil
}

func (r *sessionRepository) GetByID(ctx context.Context, id string) (*entities.Session, error) {
	var s entities.Session
	err := r.db.QueryRowContext(ctx, `
		SELECT id, source_filename, duration_seconds, detected_bpm, detected_key, created_at
		FROM sessions WHERE id = $1
	`, id).Scan(&s.ID, &s.SourceFilename, &s.DurationSeconds, &s.DetectedBPM, &s.DetectedKey, &s.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get session: %w", err)
	}
	return &s, nil
}

func (r *sessionRepository) Update(ctx context.Context, s *entities.Session) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE sessions SET source_filename = $1, duration_seconds = $2, detected_bpm = $3, detected_key = $4
		WHERE id = $5
	`, s.SourceFilename, s.DurationSeconds, s.DetectedBPM, s.DetectedKey, s.ID)
	if err != nil {
		return fmt.Errorf("update session: %w", err)
	}
	return nil
}

func (r *sessionRepository) Delete(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM sessions WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}

func (r *sessionRepository) List(ctx context.Context, limit, offset int) ([]*entities.Session, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, source_filename, duration_seconds, detected_bpm, detected_key, created_at
		FROM sessions ORDER BY created_at DESC LIMIT $1 OFFSET $2
	`, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	defer rows.Close()

	var sessions []*entities.Session
	for rows.Next() {
		var s entities.Session
		if err := rows.Scan(&s.ID, &s.SourceFilename, &s.DurationSeconds, &s.DetectedBPM, &s.DetectedKey, &s.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan session: %w", err)
		}
		sessions = append(sessions, &s)
	}
	return sessions, rows.Err()
}
