package processors

import (
	"context"
	"testing"

	"github.com/studiobgc/loopforge/internal/domain/entities"
)

func TestMomentsProcessorRejectsMissingInputPath(t *testing.T) {
	p := NewMomentsProcessor(nil, newFakeMomentRepository())
	err := p.Process(context.Background(), &entities.Job{ID: "job-1"}, noProgress)
	if err == nil {
		t.Fatal("expected an error for a missing input path")
	}
}

func TestMomentsProcessorType(t *testing.T) {
	p := NewMomentsProcessor(nil, newFakeMomentRepository())
	if p.Type() != entities.JobTypeMoments {
		t.Fatalf("expected JobTypeMoments, got %v", p.Type())
	}
}
