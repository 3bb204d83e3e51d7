package sliceengine

import (
	"math"
	"testing"
)

func sineWave(freq float64, sampleRate, numSamples int, amplitude float64) []float64 {
	out := make([]float64, numSamples)
	for i := range out {
		out[i] = amplitude * math.Sin(2*math.Pi*freq*float64(i)/float64(sampleRate))
	}
	return out
}

func TestMagnitudeSpectrumPeaksAtSineFrequency(t *testing.T) {
	sampleRate := 44100
	freq := 1000.0
	signal := sineWave(freq, sampleRate, frameSize, 1.0)

	mag := magnitudeSpectrum(signal)

	peakBin := 0
	for i, v := range mag {
		if v > mag[peakBin] {
			peakBin = i
		}
	}
	binHz := float64(sampleRate) / float64(nextPowerOfTwo(frameSize))
	peakFreq := float64(peakBin) * binHz

	if math.Abs(peakFreq-freq) > binHz*2 {
		t.Fatalf("expected spectral peak near %.0f Hz, got %.0f Hz", freq, peakFreq)
	}
}

func TestOnsetEnvelopeDetectsTransient(t *testing.T) {
	sampleRate := 44100
	silence := make([]float64, sampleRate)
	burst := sineWave(2000, sampleRate, sampleRate, 0.9)
	mono := append(silence, burst...)

	env := onsetEnvelope(mono, sampleRate, 0)

	transitionFrame := sampleRate / hopSize
	var maxNear, maxFar float64
	for i, v := range env {
		if i >= transitionFrame-2 && i <= transitionFrame+2 {
			if v > maxNear {
				maxNear = v
			}
		} else if i < transitionFrame-10 {
			if v > maxFar {
				maxFar = v
			}
		}
	}

	if maxNear <= maxFar {
		t.Fatalf("expected a flux spike at the silence/burst boundary, near=%v far=%v", maxNear, maxFar)
	}
}

func TestPickOnsetsRespectsWaitFrames(t *testing.T) {
	env := make([]float64, 50)
	for _, i := range []int{10, 11, 30} {
		env[i] = 5.0
	}

	frames := pickOnsets(env, 0.01, 10)

	for i := 1; i < len(frames); i++ {
		if frames[i]-frames[i-1] < 10 {
			t.Fatalf("onsets %v violate minimum wait of 10 frames", frames)
		}
	}
}

func TestUnionOnsetsDedupesNearbyPositions(t *testing.T) {
	a := []int{1000, 5000, 9000}
	b := []int{1050, 5200, 20000}

	merged := unionOnsets(a, b, 500)

	if len(merged) != 4 {
		t.Fatalf("expected 4 merged onsets (1000/1050 and 5000/5200 each collapse), got %d: %v", len(merged), merged)
	}
}

func TestEvenlySpacedCoversFullRange(t *testing.T) {
	bounds := evenlySpaced(44100, 4)
	if len(bounds) != 4 {
		t.Fatalf("expected 4 boundaries, got %d", len(bounds))
	}
	if bounds[0] != 0 {
		t.Fatalf("expected first boundary at 0, got %d", bounds[0])
	}
	for i := 1; i < len(bounds); i++ {
		if bounds[i] <= bounds[i-1] {
			t.Fatalf("boundaries must be strictly increasing: %v", bounds)
		}
	}
}

func TestTopNByStrengthKeepsStrongestAndStaysSorted(t *testing.T) {
	onsets := []int{0, hopSize, hopSize * 2, hopSize * 3}
	env := []float64{1, 9, 2, 7}

	kept := topNByStrength(onsets, env, 2)

	if len(kept) != 2 {
		t.Fatalf("expected 2 onsets kept, got %d", len(kept))
	}
	if kept[0] >= kept[1] {
		t.Fatalf("expected result re-sorted ascending by position, got %v", kept)
	}
	if kept[0] != hopSize || kept[1] != hopSize*3 {
		t.Fatalf("expected the two strongest onsets (frames 1 and 3), got %v", kept)
	}
}

func TestParamsForRoleFallsBackToOther(t *testing.T) {
	p := paramsForRole("UNKNOWN_ROLE")
	other := paramsForRole("OTHER")
	if p != other {
		t.Fatalf("expected unrecognized role to fall back to OTHER params")
	}
}
