package sliceengine

import "sort"

const (
	frameSize = 2048
	hopSize   = 512
)

// roleParams are the role-specific sensitivity and debounce parameters
// the original slicer tuned per stem role.
type roleParams struct {
	delta      float64 // onset-strength threshold, lower = more sensitive
	wait       int     // minimum frames between accepted onsets
	minSliceMs float64 // minimum resulting slice duration
}

var defaultRoleParams = map[string]roleParams{
	"DRUMS":   {delta: 0.05, wait: 5, minSliceMs: 50},
	"BASS":    {delta: 0.10, wait: 20, minSliceMs: 100},
	"VOCALS":  {delta: 0.15, wait: 30, minSliceMs: 200},
	"OTHER":   {delta: 0.08, wait: 15, minSliceMs: 80},
	"UNKNOWN": {delta: 0.08, wait: 15, minSliceMs: 80},
}

func paramsForRole(role string) roleParams {
	if p, ok := defaultRoleParams[role]; ok {
		return p
	}
	return defaultRoleParams["OTHER"]
}

// onsetEnvelope computes a spectral-flux strength curve over mono, one
// value per hop: the positive-only sum of frame-to-frame magnitude
// increases, the standard onset-strength measure.
func onsetEnvelope(mono []float64, sampleRate int, fmax float64) []float64 {
	numFrames := (len(mono)-frameSize)/hopSize + 1
	if numFrames < 1 {
		numFrames = 1
	}

	var prevMag []float64
	env := make([]float64, 0, numFrames)

	for f := 0; f < numFrames; f++ {
		start := f * hopSize
		end := start + frameSize
		if end > len(mono) {
			end = len(mono)
		}
		frame := make([]float64, frameSize)
		copy(frame, mono[start:end])

		mag := magnitudeSpectrum(frame)
		if fmax > 0 {
			cutoff := int(fmax / (float64(sampleRate) / float64(len(frame))))
			if cutoff < len(mag) {
				mag = mag[:cutoff]
			}
		}

		var flux float64
		if prevMag != nil {
			for i := range mag {
				if i >= len(prevMag) {
					break
				}
				d := mag[i] - prevMag[i]
				if d > 0 {
					flux += d
				}
			}
		}
		env = append(env, flux)
		prevMag = mag
	}

	return env
}

// pickOnsets peaks env, keeping a local maximum only when it reaches
// delta times ten times the envelope's mean and is at least wait frames
// from the previous accepted peak. It returns frame indices;
// framesToSamples converts them to sample positions.
func pickOnsets(env []float64, delta float64, wait int) []int {
	if len(env) == 0 {
		return nil
	}
	var mean float64
	for _, v := range env {
		mean += v
	}
	mean /= float64(len(env))
	threshold := delta * (mean + 1e-8) * 10 // empirical scale so delta (0.05-0.15) is meaningful against flux magnitudes

	var frames []int
	last := -wait - 1
	for i := 1; i < len(env)-1; i++ {
		if env[i] < threshold {
			continue
		}
		if env[i] < env[i-1] || env[i] < env[i+1] {
			continue
		}
		if i-last < wait {
			continue
		}
		frames = append(frames, i)
		last = i
	}
	return frames
}

func framesToSamples(frames []int) []int {
	out := make([]int, len(frames))
	for i, f := range frames {
		out[i] = f * hopSize
	}
	return out
}

// unionOnsets merges two sorted-or-unsorted onset sample positions,
// deduplicating anything closer than minSamples (the standard-detection
// and high-frequency-content passes agreeing within a few ms count once).
func unionOnsets(a, b []int, minSamples int) []int {
	all := append(append([]int{}, a...), b...)
	sort.Ints(all)

	var filtered []int
	for _, v := range all {
		if len(filtered) == 0 || v-filtered[len(filtered)-1] >= minSamples {
			filtered = append(filtered, v)
		}
	}
	return filtered
}

// evenlySpaced returns numSlices evenly spaced start positions in [0, totalSamples),
// the grid fallback used when onset detection finds too few transients.
func evenlySpaced(totalSamples, numSlices int) []int {
	if numSlices < 1 {
		numSlices = 1
	}
	out := make([]int, numSlices)
	step := float64(totalSamples) / float64(numSlices)
	for i := 0; i < numSlices; i++ {
		out[i] = int(float64(i) * step)
	}
	return out
}

// topNByStrength keeps the maxSlices onsets with the strongest envelope
// value at their frame, re-sorted back into chronological order.
func topNByStrength(onsets []int, env []float64, maxSlices int) []int {
	type scored struct {
		sample int
		score  float64
	}
	scoredOnsets := make([]scored, len(onsets))
	for i, s := range onsets {
		frame := s / hopSize
		var strength float64
		if frame < len(env) {
			strength = env[frame]
		}
		scoredOnsets[i] = scored{sample: s, score: strength}
	}

	sort.Slice(scoredOnsets, func(i, j int) bool { return scoredOnsets[i].score > scoredOnsets[j].score })
	if len(scoredOnsets) > maxSlices {
		scoredOnsets = scoredOnsets[:maxSlices]
	}

	out := make([]int, len(scoredOnsets))
	for i, s := range scoredOnsets {
		out[i] = s.sample
	}
	sort.Ints(out)
	return out
}
