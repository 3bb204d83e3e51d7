package repositories

import (
	"context"

	"github.com/studiobgc/loopforge/internal/domain/entities"
)

// AssetRepository persists Assets (stems, slice exports, bounces).
type AssetRepository interface {
	Create(ctx context.Context, asset *entities.Asset) error
	GetByID(ctx context.Context, id string) (*entities.Asset, error)
	ListBySession(ctx context.Context, sessionID string) ([]*entities.Asset, error)
	ListBySessionAndRole(ctx context.Context, sessionID string, role entities.StemRole) ([]*entities.Asset, error)
	Delete(ctx context.Context, id string) error

	// UpdateDetection writes a STEM_ANALYSIS result onto an already-persisted
	// asset (bpm/key/confidence only; the file itself never changes).
	UpdateDetection(ctx context.Context, id string, bpm *float64, key *string, confidence *float64) error
}
