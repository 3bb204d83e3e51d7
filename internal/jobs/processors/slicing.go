// Package processors implements one Processor (§4.4.1) per registered
// job type, adapted from the teacher's algorithmic-service shell-outs to
// LoopForge's job/slice-bank domain.
package processors

import (
	"context"
	"fmt"

	"github.com/studiobgc/loopforge/internal/domain/entities"
	"github.com/studiobgc/loopforge/internal/domain/repositories"
	loopforgeerrors "github.com/studiobgc/loopforge/internal/errors"
	"github.com/studiobgc/loopforge/internal/jobs"
	"github.com/studiobgc/loopforge/internal/sliceengine"
)

// SlicingProcessor runs the Slice Engine over a job's input stem and
// persists the resulting SliceBank.
type SlicingProcessor struct {
	engine *sliceengine.Engine
	banks  repositories.SliceBankRepository
}

func NewSlicingProcessor(engine *sliceengine.Engine, banks repositories.SliceBankRepository) *SlicingProcessor {
	return &SlicingProcessor{engine: engine, banks: banks}
}

func (p *SlicingProcessor) Type() entities.JobType { return entities.JobTypeSlicing }

func (p *SlicingProcessor) Process(ctx context.Context, job *entities.Job, progress jobs.ProgressFunc) error {
	if job.InputPath == "" {
		return loopforgeerrors.BadInput("input_path", "slicing requires an input stem path")
	}

	role := entities.StemRole(configString(job.Config, "stem_role", string(entities.StemRoleUnknown)))
	minSlices := configInt(job.Config, "min_slices", 0)
	maxSlices := configInt(job.Config, "max_slices", 0)
	var bpm *float64
	if v, ok := job.Config["bpm"].(float64); ok {
		bpm = &v
	}
	var key *string
	if v, ok := job.Config["key"].(string); ok {
		key = &v
	}

	progress(5, "loading audio")
	if err := ctx.Err(); err != nil {
		return err
	}

	bank, err := p.engine.CreateSliceBank(job.SessionID, job.InputPath, role, bpm, key, minSlices, maxSlices)
	if err != nil {
		return err
	}
	progress(70, "slice bank built")

	if err := p.banks.Create(ctx, bank); err != nil {
		return fmt.Errorf("persist slice bank: %w", err)
	}
	progress(100, "done")

	job.OutputPaths = map[string]string{"slice_bank_id": bank.ID}
	return nil
}

func configString(cfg map[string]interface{}, key, fallback string) string {
	if v, ok := cfg[key].(string); ok {
		return v
	}
	return fallback
}

func configInt(cfg map[string]interface{}, key string, fallback int) int {
	switch v := cfg[key].(type) {
	case int:
		return v
	case float64:
		return int(v)
	}
	return fallback
}
