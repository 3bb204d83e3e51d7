package repositories

import (
	"context"

	"github.com/studiobgc/loopforge/internal/domain/entities"
)

// SessionRepository persists Sessions. Deleting a session cascades to its
// Assets, SliceBanks and Jobs (§3).
type SessionRepository interface {
	Create(ctx context.Context, session *entities.Session) error
	GetByID(ctx context.Context, id string) (*entities.Session, error)
	Update(ctx context.Context, session *entities.Session) error
	Delete(ctx context.Context, id string) error
	List(ctx context.Context, limit, offset int) ([]*entities.Session, error)
}
