package repositories

import (
	"context"

	"github.com/studiobgc/loopforge/internal/domain/entities"
)

// SliceBankRepository persists SliceBanks. Slices are stored inline as the
// bank's `slice_data` JSON column (§6); round-tripping through this
// interface must preserve every Slice field.
type SliceBankRepository interface {
	Create(ctx context.Context, bank *entities.SliceBank) error
	GetByID(ctx context.Context, id string) (*entities.SliceBank, error)
	ListBySession(ctx context.Context, sessionID string) ([]*entities.SliceBank, error)
	Delete(ctx context.Context, id string) error
}

// TriggerSequenceRepository persists TriggerSequences.
type TriggerSequenceRepository interface {
	Create(ctx context.Context, seq *entities.TriggerSequence) error
	GetByID(ctx context.Context, id string) (*entities.TriggerSequence, error)
	ListBySliceBank(ctx context.Context, sliceBankID string) ([]*entities.TriggerSequence, error)
}
