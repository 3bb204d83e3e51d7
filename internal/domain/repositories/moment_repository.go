package repositories

import (
	"context"

	"github.com/studiobgc/loopforge/internal/domain/entities"
)

// MomentRepository persists detected Moments, replacing a session's whole
// set on each detection run (moments are cheap to regenerate and cheap to
// store, so there is no append semantics here).
type MomentRepository interface {
	ReplaceBySession(ctx context.Context, sessionID string, moments []*entities.Moment) error
	ListBySession(ctx context.Context, sessionID string) ([]*entities.Moment, error)
}
