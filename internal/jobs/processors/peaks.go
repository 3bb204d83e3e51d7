package processors

import (
	"context"
	"os/exec"

	"github.com/studiobgc/loopforge/internal/domain/entities"
	loopforgeerrors "github.com/studiobgc/loopforge/internal/errors"
	"github.com/studiobgc/loopforge/internal/jobs"
	"github.com/studiobgc/loopforge/internal/storage"
)

// PeaksProcessor shells out to the external audiowaveform binary to
// produce an 8-bit .dat peaks file for an asset. There is no in-process
// fallback: an unavailable binary surfaces as DependencyMissing.
type PeaksProcessor struct {
	binary  string
	storage *storage.Storage
}

func NewPeaksProcessor(binary string, store *storage.Storage) *PeaksProcessor {
	return &PeaksProcessor{binary: binary, storage: store}
}

func (p *PeaksProcessor) Type() entities.JobType { return entities.JobTypePeaks }

func (p *PeaksProcessor) Process(ctx context.Context, job *entities.Job, progress jobs.ProgressFunc) error {
	if job.InputPath == "" {
		return loopforgeerrors.BadInput("input_path", "peaks generation requires a source audio path")
	}
	if p.binary == "" {
		return loopforgeerrors.DependencyMissing("audiowaveform", nil)
	}

	assetID := configString(job.Config, "asset_id", "")
	if assetID == "" {
		return loopforgeerrors.BadInput("config.asset_id", "peaks generation requires the target asset id")
	}

	outputPath, err := p.storage.CachePath(job.ID, ".dat")
	if err != nil {
		return err
	}

	progress(10, "running audiowaveform")
	cmd := exec.CommandContext(ctx, p.binary, "-i", job.InputPath, "-o", outputPath, "-b", "8")
	if output, err := cmd.CombinedOutput(); err != nil {
		return loopforgeerrors.Wrap(loopforgeerrors.KindDependencyMissing, "audiowaveform exited with an error: "+string(output), err)
	}
	progress(70, "saving peaks")

	dest, err := p.storage.SavePeaks(job.SessionID, assetID, outputPath)
	if err != nil {
		return err
	}

	progress(100, "done")
	job.OutputPaths = map[string]string{"peaks": dest}
	return nil
}
