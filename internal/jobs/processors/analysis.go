package processors

import (
	"context"
	"encoding/json"
	"os/exec"

	"github.com/studiobgc/loopforge/internal/domain/entities"
	"github.com/studiobgc/loopforge/internal/domain/repositories"
	loopforgeerrors "github.com/studiobgc/loopforge/internal/errors"
	"github.com/studiobgc/loopforge/internal/jobs"
)

// analysisResult is the closed JSON shape an external BPM/key detector is
// expected to print to stdout.
type analysisResult struct {
	BPM        float64 `json:"bpm"`
	Key        string  `json:"key"`
	Confidence float64 `json:"confidence"`
}

// AnalysisProcessor shells out to an external BPM/key detection tool
// (pitch detection is heavy DSP explicitly owned by third-party models,
// not this codebase) and records the result against the source Session
// or, for STEM_ANALYSIS, the separated stem Asset.
type AnalysisProcessor struct {
	jobType  entities.JobType
	binary   string
	sessions repositories.SessionRepository
	assets   repositories.AssetRepository
}

func NewAnalysisProcessor(jobType entities.JobType, binary string, sessions repositories.SessionRepository, assets repositories.AssetRepository) *AnalysisProcessor {
	return &AnalysisProcessor{jobType: jobType, binary: binary, sessions: sessions, assets: assets}
}

func (p *AnalysisProcessor) Type() entities.JobType { return p.jobType }

func (p *AnalysisProcessor) Process(ctx context.Context, job *entities.Job, progress jobs.ProgressFunc) error {
	if job.InputPath == "" {
		return loopforgeerrors.BadInput("input_path", "analysis requires an audio path")
	}
	if p.binary == "" {
		return loopforgeerrors.DependencyMissing("BPM/key detector", nil)
	}

	progress(10, "running detector")
	cmd := exec.CommandContext(ctx, p.binary, job.InputPath)
	out, err := cmd.Output()
	if err != nil {
		return loopforgeerrors.Wrap(loopforgeerrors.KindDependencyMissing, "BPM/key detector failed", err)
	}

	var result analysisResult
	if err := json.Unmarshal(out, &result); err != nil {
		return loopforgeerrors.Wrap(loopforgeerrors.KindInternal, "BPM/key detector returned unparseable output", err)
	}
	progress(60, "recording result")

	if err := p.record(ctx, job, result); err != nil {
		return err
	}

	progress(100, "done")
	job.OutputPaths = map[string]string{}
	return nil
}

func (p *AnalysisProcessor) record(ctx context.Context, job *entities.Job, result analysisResult) error {
	if p.jobType == entities.JobTypeStemAnalysis {
		assetID := configString(job.Config, "asset_id", "")
		if assetID == "" {
			return loopforgeerrors.BadInput("config.asset_id", "stem analysis requires the target asset id")
		}
		asset, err := p.assets.GetByID(ctx, assetID)
		if err != nil {
			return err
		}
		if asset == nil {
			return loopforgeerrors.NotFound("asset", assetID)
		}
		return p.assets.UpdateDetection(ctx, assetID, &result.BPM, &result.Key, &result.Confidence)
	}

	session, err := p.sessions.GetByID(ctx, job.SessionID)
	if err != nil {
		return err
	}
	session.DetectedBPM = &result.BPM
	session.DetectedKey = &result.Key
	return p.sessions.Update(ctx, session)
}
