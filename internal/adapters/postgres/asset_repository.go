package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"go.uber.org/zap"

	"github.com/studiobgc/loopforge/internal/domain/entities"
	"github.com/studiobgc/loopforge/internal/domain/repositories"
)

type assetRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

func NewAssetRepository(db *sql.DB, logger *zap.Logger) repositories.AssetRepository {
	return &assetRepository{db: db, logger: logger}
}

func (r *assetRepository) Create(ctx context.Context, a *entities.Asset) error {
	err := r.db.QueryRowContext(ctx, `
		INSERT INTO assets (id, session_id, filename, file_path, type, stem_role, content_hash, detected_bpm, detected_key, confidence)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING created_at
	`, a.ID, a.SessionID, a.Filename, a.FilePath, string(a.Type), string(a.StemRole), a.ContentHash, a.DetectedBPM, a.DetectedKey, a.Confidence,
	).Scan(&a.CreatedAt)
	if err != nil {
		r.logger.Error("asset insert failed", zap.Error(err), zap.String("asset_id", a.ID))
		return fmt.Errorf("insert asset: %w", err)
	}
	return nil
}

func (r *assetRepository) GetByID(ctx context.Context, id string) (*entities.Asset, error) {
	a, err := r.scan(r.db.QueryRowContext(ctx, `
		SELECT id, session_id, filename, file_path, type, stem_role, content_hash, detected_bpm, detected_key, confidence, created_at
		FROM assets WHERE id = $1
	`, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return a, err
}

func (r *assetRepository) ListBySession(ctx context.Context, sessionID string) ([]*entities.Asset, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, session_id, filename, file_path, type, stem_role, content_hash, detected_bpm, detected_key, confidence, created_at
		FROM assets WHERE session_id = $1 ORDER BY created_at
	`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("list assets: %w", err)
	}
	defer rows.Close()
	return r.scanAll(rows)
}

func (r *assetRepository) ListBySessionAndRole(ctx context.Context, sessionID string, role entities.StemRole) ([]*entities.Asset, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, session_id, filename, file_path, type, stem_role, content_hash, detected_bpm, detected_key, confidence, created_at
		FROM assets WHERE session_id = $1 AND stem_role = $2 ORDER BY created_at
	`, sessionID, string(role))
	if err != nil {
		return nil, fmt.Errorf("list assets by role: %w", err)
	}
	defer rows.Close()
	return r.scanAll(rows)
}

func (r *assetRepository) UpdateDetection(ctx context.Context, id string, bpm *float64, key *string, confidence *float64) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE assets SET detected_bpm = $1, detected_key = $2, confidence = $3 WHERE id = $4
	`, bpm, key, confidence, id)
	if err != nil {
		r.logger.Error("asset detection update failed", zap.Error(err), zap.String("asset_id", id))
		return fmt.Errorf("update asset detection: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("update asset detection: no asset with id %s", id)
	}
	return nil
}

func (r *assetRepository) Delete(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM assets WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete asset: %w", err)
	}
	return nil
}

func (r *assetRepository) scan(row rowScanner) (*entities.Asset, error) {
	var a entities.Asset
	var assetType, stemRole string
	err := row.Scan(&a.ID, &a.SessionID, &a.Filename, &a.FilePath, &assetType, &stemRole,
		&a.ContentHash, &a.DetectedBPM, &a.DetectedKey, &a.Confidence, &a.CreatedAt)
	if err != nil {
		return nil, err
	}
	a.Type = entities.AssetType(assetType)
	a.StemRole = entities.StemRole(stemRole)
	return &a, nil
}

func (r *assetRepository) scanAll(rows *sql.Rows) ([]*entities.Asset, error) {
	var assets []*entities.Asset
	for rows.Next() {
		a, err := r.scan(rows)
		if err != nil {
			return nil, fmt.Errorf("scan asset: %w", err)
		}
		assets = append(assets, a)
	}
	return assets, rows.Err()
}
