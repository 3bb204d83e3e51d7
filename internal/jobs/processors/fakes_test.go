package processors

import (
	"context"

	"github.com/studiobgc/loopforge/internal/domain/entities"
)

type fakeSliceBankRepository struct {
	created []*entities.SliceBank
}

func (f *fakeSliceBankRepository) Create(ctx context.Context, b *entities.SliceBank) error {
	if b.ID == "" {
		b.ID = "bank-1"
	}
	f.created = append(f.created, b)
	return nil
}
func (f *fakeSliceBankRepository) GetByID(ctx context.Context, id string) (*entities.SliceBank, error) {
	for _, b := range f.created {
		if b.ID == id {
			return b, nil
		}
	}
	return nil, nil
}
func (f *fakeSliceBankRepository) ListBySession(ctx context.Context, sessionID string) ([]*entities.SliceBank, error) {
	return f.created, nil
}
func (f *fakeSliceBankRepository) Delete(ctx context.Context, id string) error { return nil }

type fakeAssetRepository struct {
	assets  map[string]*entities.Asset
	created []*entities.Asset
}

func newFakeAssetRepository() *fakeAssetRepository {
	return &fakeAssetRepository{assets: make(map[string]*entities.Asset)}
}
func (f *fakeAssetRepository) Create(ctx context.Context, a *entities.Asset) error {
	if a.ID == "" {
		a.ID = "asset-1"
	}
	f.assets[a.ID] = a
	f.created = append(f.created, a)
	return nil
}
func (f *fakeAssetRepository) GetByID(ctx context.Context, id string) (*entities.Asset, error) {
	return f.assets[id], nil
}
func (f *fakeAssetRepository) ListBySession(ctx context.Context, sessionID string) ([]*entities.Asset, error) {
	var out []*entities.Asset
	for _, a := range f.assets {
		if a.SessionID == sessionID {
			out = append(out, a)
		}
	}
	return out, nil
}
func (f *fakeAssetRepository) ListBySessionAndRole(ctx context.Context, sessionID string, role entities.StemRole) ([]*entities.Asset, error) {
	var out []*entities.Asset
	for _, a := range f.assets {
		if a.SessionID == sessionID && a.StemRole == role {
			out = append(out, a)
		}
	}
	return out, nil
}
func (f *fakeAssetRepository) Delete(ctx context.Context, id string) error {
	delete(f.assets, id)
	return nil
}
func (f *fakeAssetRepository) UpdateDetection(ctx context.Context, id string, bpm *float64, key *string, confidence *float64) error {
	a, ok := f.assets[id]
	if !ok {
		return nil
	}
	a.DetectedBPM = bpm
	a.DetectedKey = key
	a.Confidence = confidence
	return nil
}

type fakeSessionRepository struct {
	sessions map[string]*entities.Session
}

func newFakeSessionRepository() *fakeSessionRepository {
	return &fakeSessionRepository{sessions: make(map[string]*entities.Session)}
}
func (f *fakeSessionRepository) Create(ctx context.Context, s *entities.Session) error {
	f.sessions[s.ID] = s
	return nil
}
func (f *fakeSessionRepository) GetByID(ctx context.Context, id string) (*entities.Session, error) {
	return f.sessions[id], nil
}
func (f *fakeSessionRepository) Update(ctx context.Context, s *entities.Session) error {
	f.sessions[s.ID] = s
	return nil
}
func (f *fakeSessionRepository) Delete(ctx context.Context, id string) error {
	delete(f.sessions, id)
	return nil
}
func (f *fakeSessionRepository) List(ctx context.Context, limit, offset int) ([]*entities.Session, error) {
	return nil, nil
}

type fakeMomentRepository struct {
	bySession map[string][]*entities.Moment
}

func newFakeMomentRepository() *fakeMomentRepository {
	return &fakeMomentRepository{bySession: make(map[string][]*entities.Moment)}
}
func (f *fakeMomentRepository) ReplaceBySession(ctx context.Context, sessionID string, moments []*entities.Moment) error {
	f.bySession[sessionID] = moments
	return nil
}
func (f *fakeMomentRepository) ListBySession(ctx context.Context, sessionID string) ([]*entities.Moment, error) {
	return f.bySession[sessionID], nil
}

func noProgress(percent float64, message string) {}
