package processors

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"go.uber.org/zap"

	"github.com/studiobgc/loopforge/internal/domain/entities"
	"github.com/studiobgc/loopforge/internal/storage"
)

func TestPeaksProcessorSurfacesDependencyMissingWithNoBinary(t *testing.T) {
	root := t.TempDir()
	store, err := storage.New(root, zap.NewNop())
	if err != nil {
		t.Fatal(err)
	}
	p := NewPeaksProcessor("", store)
	job := &entities.Job{ID: "job-1", InputPath: "/tmp/in.wav", Config: map[string]interface{}{"asset_id": "asset-1"}}
	if err := p.Process(context.Background(), job, noProgress); err == nil {
		t.Fatal("expected DependencyMissing for an unconfigured binary")
	}
}

func TestPeaksProcessorRequiresAssetID(t *testing.T) {
	root := t.TempDir()
	store, err := storage.New(root, zap.NewNop())
	if err != nil {
		t.Fatal(err)
	}
	p := NewPeaksProcessor("/bin/true", store)
	job := &entities.Job{ID: "job-2", InputPath: "/tmp/in.wav"}
	if err := p.Process(context.Background(), job, noProgress); err == nil {
		t.Fatal("expected an error when config.asset_id is missing")
	}
}

func TestPeaksProcessorSavesProducedDatFile(t *testing.T) {
	root := t.TempDir()
	store, err := storage.New(root, zap.NewNop())
	if err != nil {
		t.Fatal(err)
	}

	script, err := os.CreateTemp(t.TempDir(), "audiowaveform-*.sh")
	if err != nil {
		t.Fatal(err)
	}
	shScript := `#!/bin/sh
while [ "$#" -gt 0 ]; do
  case "$1" in
    -o) out="$2"; shift 2 ;;
    *) shift ;;
  esac
done
echo fakepeaks > "$out"
`
	if _, err := script.WriteString(shScript); err != nil {
		t.Fatal(err)
	}
	script.Close()
	os.Chmod(script.Name(), 0o755)

	p := NewPeaksProcessor(script.Name(), store)
	srcWav := filepath.Join(root, "source.wav")
	os.WriteFile(srcWav, []byte("fake"), 0o644)

	job := &entities.Job{
		ID: "job-3", SessionID: "sess-1", InputPath: srcWav,
		Config: map[string]interface{}{"asset_id": "asset-1"},
	}
	if err := p.Process(context.Background(), job, noProgress); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if job.OutputPaths["peaks"] == "" {
		t.Fatal("expected a peaks output path to be recorded")
	}
	if _, err := os.Stat(job.OutputPaths["peaks"]); err != nil {
		t.Fatalf("expected peaks file to exist on disk: %v", err)
	}
}
