package processors

import (
	"context"

	"github.com/studiobgc/loopforge/internal/domain/entities"
	"github.com/studiobgc/loopforge/internal/domain/repositories"
	loopforgeerrors "github.com/studiobgc/loopforge/internal/errors"
	"github.com/studiobgc/loopforge/internal/jobs"
	"github.com/studiobgc/loopforge/internal/moments"
)

// MomentsProcessor runs region detection over a job's source audio and
// replaces the session's previously detected moments.
type MomentsProcessor struct {
	detector *moments.Detector
	moments  repositories.MomentRepository
}

func NewMomentsProcessor(detector *moments.Detector, repo repositories.MomentRepository) *MomentsProcessor {
	return &MomentsProcessor{detector: detector, moments: repo}
}

func (p *MomentsProcessor) Type() entities.JobType { return entities.JobTypeMoments }

func (p *MomentsProcessor) Process(ctx context.Context, job *entities.Job, progress jobs.ProgressFunc) error {
	if job.InputPath == "" {
		return loopforgeerrors.BadInput("input_path", "moments detection requires a source audio path")
	}

	bias := entities.MomentBias(configString(job.Config, "bias", string(entities.MomentBiasBalanced)))
	progress(10, "detecting moments")

	found, err := p.detector.Detect(job.InputPath, bias)
	if err != nil {
		return err
	}
	for _, m := range found {
		m.SessionID = job.SessionID
	}
	progress(80, "persisting moments")

	if err := p.moments.ReplaceBySession(ctx, job.SessionID, found); err != nil {
		return err
	}

	progress(100, "done")
	job.OutputPaths = map[string]string{}
	return nil
}
