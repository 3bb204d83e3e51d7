package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"go.uber.org/zap"

	"github.com/studiobgc/loopforge/internal/domain/entities"
	"github.com/studiobgc/loopforge/internal/domain/repositories"
)

type momentRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

func NewMomentRepository(db *sql.DB, logger *zap.Logger) repositories.MomentRepository {
	return &momentRepository{db: db, logger: logger}
}

// ReplaceBySession drops a session's previously detected moments and
// inserts the new set inside one transaction: a MOMENTS job always runs
// over the whole source, so there is never a partial update to merge.
func (r *momentRepository) ReplaceBySession(ctx context.Context, sessionID string, moments []*entities.Moment) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin moment replace: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM moments WHERE session_id = $1`, sessionID); err != nil {
		return fmt.Errorf("clear existing moments: %w", err)
	}

	for _, m := range moments {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO moments (id, session_id, type, start_time, end_time, duration, energy, brightness, label, confidence)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		`, m.ID, sessionID, string(m.Type), m.StartTime, m.EndTime, m.Duration, m.Energy, m.Brightness, m.Label, m.Confidence)
		if err != nil {
			r.logger.Error("moment insert failed", zap.Error(err), zap.String("session_id", sessionID))
			return fmt.Errorf("insert moment: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit moment replace: %w", err)
	}
	return nil
}

func (r *momentRepository) ListBySession(ctx context.Context, sessionID string) ([]*entities.Moment, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, session_id, type, start_time, end_time, duration, energy, brightness, label, confidence
		FROM moments WHERE session_id = $1 ORDER BY start_time
	`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("list moments: %w", err)
	}
	defer rows.Close()

	var moments []*entities.Moment
	for rows.Next() {
		var m entities.Moment
		var momentType string
		if err := rows.Scan(&m.ID, &m.SessionID, &momentType, &m.StartTime, &m.EndTime, &m.Duration,
			&m.Energy, &m.Brightness, &m.Label, &m.Confidence); err != nil {
			return nil, fmt.Errorf("scan moment: %w", err)
		}
		m.Type = entities.MomentType(momentType)
		moments = append(moments, &m)
	}
	return moments, rows.Err()
}
