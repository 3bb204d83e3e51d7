package processors

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"

	"github.com/studiobgc/loopforge/internal/domain/entities"
	loopforgeerrors "github.com/studiobgc/loopforge/internal/errors"
	"github.com/studiobgc/loopforge/internal/jobs"
	"github.com/studiobgc/loopforge/internal/storage"
)

// stemFiles are the filenames a separation run is expected to produce,
// one per role, inside its own output directory.
var stemFiles = map[entities.StemRole]string{
	entities.StemRoleVocals: "vocals.wav",
	entities.StemRoleDrums:  "drums.wav",
	entities.StemRoleBass:   "bass.wav",
	entities.StemRoleOther:  "other.wav",
}

// SeparationProcessor shells out to an external stem-separation tool
// (a source-separation model server, not something this codebase
// implements) and adopts its output files as stems. Heavy DSP is
// explicitly out of scope here; this processor's job is orchestration:
// invoke the collaborator, wait, validate its outputs, register them.
type SeparationProcessor struct {
	binary  string
	storage *storage.Storage
	assets  interface {
		Create(ctx context.Context, asset *entities.Asset) error
	}
}

func NewSeparationProcessor(binary string, store *storage.Storage, assets interface {
	Create(ctx context.Context, asset *entities.Asset) error
}) *SeparationProcessor {
	return &SeparationProcessor{binary: binary, storage: store, assets: assets}
}

func (p *SeparationProcessor) Type() entities.JobType { return entities.JobTypeSeparation }

func (p *SeparationProcessor) Process(ctx context.Context, job *entities.Job, progress jobs.ProgressFunc) error {
	if job.InputPath == "" {
		return loopforgeerrors.BadInput("input_path", "separation requires a source audio path")
	}
	if p.binary == "" {
		return loopforgeerrors.DependencyMissing("stem separation tool", nil)
	}

	outputDir, err := p.storage.CachePath(job.ID, "")
	if err != nil {
		return err
	}
	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return err
	}

	progress(5, "invoking separation tool")
	cmd := exec.CommandContext(ctx, p.binary, "--input", job.InputPath, "--output", outputDir)
	if output, err := cmd.CombinedOutput(); err != nil {
		return loopforgeerrors.Wrap(loopforgeerrors.KindDependencyMissing, "stem separation tool exited with an error: "+string(output), err)
	}
	progress(70, "collecting stems")

	outputPaths := make(map[string]string, len(stemFiles))
	for role, filename := range stemFiles {
		src := filepath.Join(outputDir, filename)
		if !p.storage.Exists(src) {
			continue
		}
		dest, err := p.storage.SaveStem(job.SessionID, string(role), src, ".wav")
		if err != nil {
			return err
		}
		hash, err := storage.Hash(dest)
		if err != nil {
			return err
		}
		if err := p.assets.Create(ctx, &entities.Asset{
			SessionID:   job.SessionID,
			Filename:    filename,
			FilePath:    dest,
			Type:        entities.AssetTypeStem,
			StemRole:    role,
			ContentHash: hash,
		}); err != nil {
			return err
		}
		outputPaths[string(role)] = dest
	}

	if len(outputPaths) == 0 {
		return loopforgeerrors.New(loopforgeerrors.KindInternal, "separation tool produced no recognizable stem output")
	}

	progress(100, "done")
	job.OutputPaths = outputPaths
	return nil
}
