// Package sliceengine implements the Slice Engine (§4.2): transient
// detection, per-slice spectral analysis, and slice export, grounded on
// the reference slicer's librosa/soundfile pipeline but reimplemented over
// github.com/go-audio/wav since no FFT/DSP library appears anywhere in
// this project's dependency set (see DESIGN.md).
package sliceengine

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"

	"github.com/studiobgc/loopforge/internal/domain/entities"
	loopforgeerrors "github.com/studiobgc/loopforge/internal/errors"
)

const defaultMinSlices = 4
const defaultMaxSlices = 128

// Engine slices one audio source at a time. It carries no state between
// calls; all configuration is per-call or role-driven.
type Engine struct {
	defaultFadeMs float64
}

// New constructs an Engine. defaultFadeMs is applied by ExportSlice when
// callers don't specify their own.
func New(defaultFadeMs float64) *Engine {
	return &Engine{defaultFadeMs: defaultFadeMs}
}

// loadedAudio is the engine's working representation of a decoded source:
// an int buffer with the source's own channel count for export plus a mono float64 signal in [-1,1] for
// analysis.
type loadedAudio struct {
	sampleRate int
	numChans   int
	bitDepth   int
	ints       *audio.IntBuffer
	mono       []float64
}

func loadWAV(path string) (*loadedAudio, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, loopforgeerrors.NotFound("audio file", path)
	}
	defer f.Close()

	dec := wav.NewDecoder(f)
	if !dec.IsValidFile() {
		return nil, loopforgeerrors.AudioDecodeError(path, fmt.Errorf("not a valid WAV file"))
	}

	buf, err := dec.FullPCMBuffer()
	if err != nil {
		return nil, loopforgeerrors.AudioDecodeError(path, err)
	}

	chans := buf.Format.NumChannels
	if chans < 1 {
		chans = 1
	}
	maxVal := float64(int(1) << (uint(dec.BitDepth) - 1))

	numFrames := len(buf.Data) / chans
	mono := make([]float64, numFrames)
	for i := 0; i < numFrames; i++ {
		var sum float64
		for c := 0; c < chans; c++ {
			sum += float64(buf.Data[i*chans+c])
		}
		mono[i] = (sum / float64(chans)) / maxVal
	}

	return &loadedAudio{
		sampleRate: buf.Format.SampleRate,
		numChans:   chans,
		bitDepth:   int(dec.BitDepth),
		ints:       buf,
		mono:       mono,
	}, nil
}

// CreateSliceBank slices audioPath under role, applying the role's onset
// sensitivity, and returns a fully analyzed SliceBank. minSlices/maxSlices
// of 0 fall back to the defaults used by the reference slicer (4, 128).
func (e *Engine) CreateSliceBank(sessionID, audioPath string, role entities.StemRole, bpm *float64, key *string, minSlices, maxSlices int) (*entities.SliceBank, error) {
	if minSlices <= 0 {
		minSlices = defaultMinSlices
	}
	if maxSlices <= 0 {
		maxSlices = defaultMaxSlices
	}

	audioData, err := loadWAV(audioPath)
	if err != nil {
		return nil, err
	}

	params := paramsForRole(string(role))
	onsets := detectOnsets(audioData.mono, audioData.sampleRate, params)

	totalSamples := len(audioData.mono)
	var env []float64
	switch {
	case len(onsets) < minSlices:
		onsets = evenlySpaced(totalSamples, minSlices)
	case len(onsets) > maxSlices:
		env = onsetEnvelope(audioData.mono, audioData.sampleRate, 0)
		onsets = topNByStrength(onsets, env, maxSlices)
	}

	slices := make([]entities.Slice, 0, len(onsets))
	for i, start := range onsets {
		end := totalSamples
		if i < len(onsets)-1 {
			end = onsets[i+1]
		}

		zcStart := findZeroCrossing(audioData.mono, start, audioData.sampleRate, 5.0)
		zcEnd := findZeroCrossing(audioData.mono, end, audioData.sampleRate, 5.0)
		analysis := analyzeSlice(audioData.mono, start, end, audioData.sampleRate)

		slices = append(slices, entities.Slice{
			Index:             i,
			StartSample:       start,
			EndSample:         end,
			StartTime:         float64(start) / float64(audioData.sampleRate),
			EndTime:           float64(end) / float64(audioData.sampleRate),
			Duration:          float64(end-start) / float64(audioData.sampleRate),
			TransientStrength: analysis.transientStrength,
			SpectralCentroid:  analysis.spectralCentroid,
			RMSEnergy:         analysis.rmsEnergy,
			ZeroCrossingRate:  analysis.zeroCrossingRate,
			SpectralFlatness:  analysis.spectralFlatness,
			ZeroCrossingStart: zcStart,
			ZeroCrossingEnd:   zcEnd,
		})
	}

	mean, max, variance := energyStats(slices)

	return &entities.SliceBank{
		SessionID:      sessionID,
		SourcePath:     audioPath,
		SourceFilename: filepath.Base(audioPath),
		StemRole:       role,
		SampleRate:     audioData.sampleRate,
		TotalSamples:   totalSamples,
		TotalDuration:  float64(totalSamples) / float64(audioData.sampleRate),
		BPM:            bpm,
		Key:            key,
		MeanEnergy:     mean,
		MaxEnergy:      max,
		VarianceEnergy: variance,
		Slices:         slices,
	}, nil
}

// detectOnsets runs the standard-envelope and high-frequency-content
// passes and merges them, mirroring the reference slicer's two-method
// consensus.
func detectOnsets(mono []float64, sampleRate int, params roleParams) []int {
	env1 := onsetEnvelope(mono, sampleRate, 0)
	frames1 := pickOnsets(env1, params.delta, params.wait)

	env2 := onsetEnvelope(mono, sampleRate, 8000)
	frames2 := pickOnsets(env2, params.delta*1.5, params.wait)

	onsets1 := framesToSamples(frames1)
	onsets2 := framesToSamples(frames2)

	minSamples := int(params.minSliceMs * float64(sampleRate) / 1000)
	return unionOnsets(onsets1, onsets2, minSamples)
}

func energyStats(slices []entities.Slice) (mean, max, variance float64) {
	if len(slices) == 0 {
		return 0, 0, 0
	}
	for _, s := range slices {
		mean += s.RMSEnergy
		if s.RMSEnergy > max {
			max = s.RMSEnergy
		}
	}
	mean /= float64(len(slices))
	for _, s := range slices {
		d := s.RMSEnergy - mean
		variance += d * d
	}
	variance /= float64(len(slices))
	return mean, max, variance
}

// ExportSlice writes one slice of audioPath to outputPath as a WAV file,
// using zero-crossing boundaries for a click-free cut and applying a
// linear fade in/out of fadeMs. A nil fadeMs uses the engine default;
// a non-nil fadeMs of 0 is an explicit request for no fade at all.
func (e *Engine) ExportSlice(audioPath string, s entities.Slice, outputPath string, fadeMs *float64) error {
	fade := e.defaultFadeMs
	if fadeMs != nil {
		fade = *fadeMs
	}

	audioData, err := loadWAV(audioPath)
	if err != nil {
		return err
	}

	chans := audioData.numChans
	start := s.ZeroCrossingStart * chans
	end := s.ZeroCrossingEnd * chans
	if start < 0 {
		start = 0
	}
	if end > len(audioData.ints.Data) {
		end = len(audioData.ints.Data)
	}
	if end <= start {
		return loopforgeerrors.BadInput("slice", "zero-crossing boundaries collapse to an empty range")
	}

	samples := make([]int, end-start)
	copy(samples, audioData.ints.Data[start:end])

	fadeSamples := int(fade * float64(audioData.sampleRate) / 1000)
	frameCount := len(samples) / chans
	if fadeSamples > 0 && frameCount > fadeSamples*2 {
		applyLinearFade(samples, chans, fadeSamples, frameCount)
	}

	out, err := os.Create(outputPath)
	if err != nil {
		return fmt.Errorf("create slice export: %w", err)
	}
	defer out.Close()

	enc := wav.NewEncoder(out, audioData.sampleRate, audioData.bitDepth, chans, 1)
	buf := &audio.IntBuffer{
		Format: &audio.Format{NumChannels: chans, SampleRate: audioData.sampleRate},
		Data:   samples,
		SourceBitDepth: audioData.bitDepth,
	}
	if err := enc.Write(buf); err != nil {
		return fmt.Errorf("write slice export: %w", err)
	}
	return enc.Close()
}

func applyLinearFade(samples []int, chans, fadeSamples, frameCount int) {
	for frame := 0; frame < fadeSamples; frame++ {
		gain := float64(frame) / float64(fadeSamples)
		for c := 0; c < chans; c++ {
			samples[frame*chans+c] = int(float64(samples[frame*chans+c]) * gain)
		}
	}
	for frame := 0; frame < fadeSamples; frame++ {
		gain := float64(frame) / float64(fadeSamples)
		idx := frameCount - 1 - frame
		for c := 0; c < chans; c++ {
			samples[idx*chans+c] = int(float64(samples[idx*chans+c]) * gain)
		}
	}
}
