package processors

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"testing"

	"go.uber.org/zap"

	"github.com/studiobgc/loopforge/internal/domain/entities"
	"github.com/studiobgc/loopforge/internal/storage"
)

// fakeSeparatorScript writes vocals.wav/drums.wav into the --output dir it's
// given, standing in for an external stem-separation model binary.
func fakeSeparatorScript(t *testing.T) string {
	t.Helper()
	f, err := os.CreateTemp(t.TempDir(), "separator-*.sh")
	if err != nil {
		t.Fatal(err)
	}
	script := `#!/bin/sh
while [ "$#" -gt 0 ]; do
  case "$1" in
    --output) outdir="$2"; shift 2 ;;
    *) shift ;;
  esac
done
echo fake > "$outdir/vocals.wav"
echo fake > "$outdir/drums.wav"
`
	if _, err := f.WriteString(script); err != nil {
		t.Fatal(err)
	}
	f.Close()
	if err := os.Chmod(f.Name(), 0o755); err != nil {
		t.Fatal(err)
	}
	return f.Name()
}

func TestSeparationProcessorCollectsProducedStems(t *testing.T) {
	if _, err := exec.LookPath("/bin/sh"); err != nil {
		t.Skip("no /bin/sh available")
	}
	root := t.TempDir()
	store, err := storage.New(root, zap.NewNop())
	if err != nil {
		t.Fatal(err)
	}
	assets := newFakeAssetRepository()
	binary := fakeSeparatorScript(t)
	p := NewSeparationProcessor(binary, store, assets)

	srcWav := filepath.Join(root, "source.wav")
	if err := os.WriteFile(srcWav, []byte("fake"), 0o644); err != nil {
		t.Fatal(err)
	}

	job := &entities.Job{ID: "job-1", SessionID: "sess-1", Type: entities.JobTypeSeparation, InputPath: srcWav}
	if err := p.Process(context.Background(), job, noProgress); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(job.OutputPaths) != 2 {
		t.Fatalf("expected 2 recognized stems, got %d: %+v", len(job.OutputPaths), job.OutputPaths)
	}
	if len(assets.created) != 2 {
		t.Fatalf("expected 2 assets created, got %d", len(assets.created))
	}
}

func TestSeparationProcessorFailsWhenToolProducesNothing(t *testing.T) {
	if _, err := exec.LookPath("/bin/true"); err != nil {
		t.Skip("no /bin/true available")
	}
	root := t.TempDir()
	store, err := storage.New(root, zap.NewNop())
	if err != nil {
		t.Fatal(err)
	}
	p := NewSeparationProcessor("/bin/true", store, newFakeAssetRepository())

	srcWav := filepath.Join(root, "source.wav")
	os.WriteFile(srcWav, []byte("fake"), 0o644)

	job := &entities.Job{ID: "job-2", SessionID: "sess-1", InputPath: srcWav}
	if err := p.Process(context.Background(), job, noProgress); err == nil {
		t.Fatal("expected an error when no stems were produced")
	}
}
