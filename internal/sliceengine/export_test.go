package sliceengine

import (
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"

	"github.com/studiobgc/loopforge/internal/domain/entities"
)

func writeTestWAV(t *testing.T, path string, samples []int, sampleRate int) {
	t.Helper()
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()

	enc := wav.NewEncoder(f, sampleRate, 16, 1, 1)
	buf := &audio.IntBuffer{
		Format:         &audio.Format{NumChannels: 1, SampleRate: sampleRate},
		Data:           samples,
		SourceBitDepth: 16,
	}
	if err := enc.Write(buf); err != nil {
		t.Fatal(err)
	}
	if err := enc.Close(); err != nil {
		t.Fatal(err)
	}
}

func constantLoudSamples(n int) []int {
	out := make([]int, n)
	for i := range out {
		out[i] = 20000
	}
	return out
}

func TestExportSliceNilFadeUsesEngineDefault(t *testing.T) {
	dir := t.TempDir()
	in := filepath.Join(dir, "in.wav")
	out := filepath.Join(dir, "out.wav")

	sampleRate := 44100
	writeTestWAV(t, in, constantLoudSamples(sampleRate), sampleRate)

	e := New(10.0)
	slice := entities.Slice{ZeroCrossingStart: 0, ZeroCrossingEnd: sampleRate}
	if err := e.ExportSlice(in, slice, out, nil); err != nil {
		t.Fatal(err)
	}

	result, err := loadWAV(out)
	if err != nil {
		t.Fatal(err)
	}
	if result.ints.Data[0] != 0 {
		t.Fatalf("expected the default fade to ramp in from 0, got first sample %d", result.ints.Data[0])
	}
}

func TestExportSliceExplicitZeroFadeDisablesFade(t *testing.T) {
	dir := t.TempDir()
	in := filepath.Join(dir, "in.wav")
	out := filepath.Join(dir, "out.wav")

	sampleRate := 44100
	writeTestWAV(t, in, constantLoudSamples(sampleRate), sampleRate)

	e := New(10.0)
	zero := 0.0
	slice := entities.Slice{ZeroCrossingStart: 0, ZeroCrossingEnd: sampleRate}
	if err := e.ExportSlice(in, slice, out, &zero); err != nil {
		t.Fatal(err)
	}

	result, err := loadWAV(out)
	if err != nil {
		t.Fatal(err)
	}
	if result.ints.Data[0] == 0 {
		t.Fatalf("expected an explicit fade_ms=0 to skip fading, first sample was ramped to 0")
	}
	if math.Abs(float64(result.ints.Data[0])-20000) > 1 {
		t.Fatalf("expected the unfaded source sample to survive export unchanged, got %d", result.ints.Data[0])
	}
}
