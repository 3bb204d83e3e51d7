package processors

import (
	"context"
	"os"
	"os/exec"
	"testing"

	"github.com/studiobgc/loopforge/internal/domain/entities"
)

// fakeDetectorScript writes a tiny shell script that prints a fixed JSON
// analysis result, standing in for the external BPM/key detector binary.
func fakeDetectorScript(t *testing.T, stdout string) string {
	t.Helper()
	f, err := os.CreateTemp(t.TempDir(), "detector-*.sh")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := f.WriteString("#!/bin/sh\ncat <<'EOF'\n" + stdout + "\nEOF\n"); err != nil {
		t.Fatal(err)
	}
	f.Close()
	if err := os.Chmod(f.Name(), 0o755); err != nil {
		t.Fatal(err)
	}
	return f.Name()
}

func TestAnalysisProcessorRecordsOntoSession(t *testing.T) {
	if _, err := exec.LookPath("/bin/sh"); err != nil {
		t.Skip("no /bin/sh available")
	}
	sessions := newFakeSessionRepository()
	sessions.sessions["sess-1"] = &entities.Session{ID: "sess-1"}
	assets := newFakeAssetRepository()

	binary := fakeDetectorScript(t, `{"bpm": 128.5, "key": "Am", "confidence": 0.9}`)
	p := NewAnalysisProcessor(entities.JobTypeAnalysis, binary, sessions, assets)

	job := &entities.Job{ID: "job-1", SessionID: "sess-1", Type: entities.JobTypeAnalysis, InputPath: "/tmp/in.wav"}
	if err := p.Process(context.Background(), job, noProgress); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	got := sessions.sessions["sess-1"]
	if got.DetectedBPM == nil || *got.DetectedBPM != 128.5 {
		t.Fatalf("expected session bpm 128.5, got %+v", got.DetectedBPM)
	}
	if got.DetectedKey == nil || *got.DetectedKey != "Am" {
		t.Fatalf("expected session key Am, got %+v", got.DetectedKey)
	}
}

func TestAnalysisProcessorRecordsOntoAssetForStemAnalysis(t *testing.T) {
	if _, err := exec.LookPath("/bin/sh"); err != nil {
		t.Skip("no /bin/sh available")
	}
	sessions := newFakeSessionRepository()
	assets := newFakeAssetRepository()
	assets.assets["asset-1"] = &entities.Asset{ID: "asset-1", SessionID: "sess-1"}

	binary := fakeDetectorScript(t, `{"bpm": 90, "key": "C", "confidence": 0.8}`)
	p := NewAnalysisProcessor(entities.JobTypeStemAnalysis, binary, sessions, assets)

	job := &entities.Job{
		ID: "job-2", SessionID: "sess-1", Type: entities.JobTypeStemAnalysis,
		InputPath: "/tmp/in.wav", Config: map[string]interface{}{"asset_id": "asset-1"},
	}
	if err := p.Process(context.Background(), job, noProgress); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	got := assets.assets["asset-1"]
	if got.DetectedBPM == nil || *got.DetectedBPM != 90 {
		t.Fatalf("expected asset bpm 90, got %+v", got.DetectedBPM)
	}
}

func TestAnalysisProcessorRejectsMissingInputPath(t *testing.T) {
	p := NewAnalysisProcessor(entities.JobTypeAnalysis, "/bin/true", newFakeSessionRepository(), newFakeAssetRepository())
	err := p.Process(context.Background(), &entities.Job{ID: "job-3"}, noProgress)
	if err == nil {
		t.Fatal("expected an error for a missing input path")
	}
}

func TestAnalysisProcessorSurfacesDependencyMissingWithNoBinary(t *testing.T) {
	p := NewAnalysisProcessor(entities.JobTypeAnalysis, "", newFakeSessionRepository(), newFakeAssetRepository())
	err := p.Process(context.Background(), &entities.Job{ID: "job-4", InputPath: "/tmp/in.wav"}, noProgress)
	if err == nil {
		t.Fatal("expected DependencyMissing for an unconfigured binary")
	}
}
