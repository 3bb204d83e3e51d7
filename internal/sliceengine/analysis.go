package sliceengine

import "math"

type sliceAnalysis struct {
	transientStrength float64
	spectralCentroid  float64
	rmsEnergy         float64
	zeroCrossingRate  float64
	spectralFlatness  float64
}

// analyzeSlice computes the five per-slice features over mono[start:end].
// A chunk shorter than 512 samples is too short for a meaningful
// spectrum and reports all zeros, matching the source slicer's guard.
func analyzeSlice(mono []float64, start, end, sampleRate int) sliceAnalysis {
	if end > len(mono) {
		end = len(mono)
	}
	if start < 0 {
		start = 0
	}
	chunk := mono[start:end]
	if len(chunk) < 512 {
		return sliceAnalysis{}
	}

	rms := rmsEnergy(chunk)
	mag := magnitudeSpectrum(chunk)

	return sliceAnalysis{
		transientStrength: transientStrength(chunk, sampleRate),
		spectralCentroid:  spectralCentroid(mag, sampleRate, len(chunk)),
		rmsEnergy:         rms,
		zeroCrossingRate:  zeroCrossingRate(chunk),
		spectralFlatness:  spectralFlatness(mag),
	}
}

func rmsEnergy(chunk []float64) float64 {
	var sumSq float64
	for _, v := range chunk {
		sumSq += v * v
	}
	return math.Sqrt(sumSq / float64(len(chunk)))
}

// transientStrength is the ratio of the chunk's own onset-envelope peak to
// its mean, capped and normalized into 0-1: a hard attack followed by
// decay scores near 1, a flat sustained tone scores near 0.
func transientStrength(chunk []float64, sampleRate int) float64 {
	env := onsetEnvelope(chunk, sampleRate, 0)
	if len(env) == 0 {
		return 0
	}
	var mean, max float64
	for _, v := range env {
		mean += v
		if v > max {
			max = v
		}
	}
	mean /= float64(len(env))
	if mean <= 0 {
		return 0
	}
	ratio := max / (mean + 1e-8)
	normalized := ratio / 10
	if normalized > 1 {
		normalized = 1
	}
	return normalized
}

// spectralCentroid is the magnitude-weighted mean frequency, a standard
// brightness measure.
func spectralCentroid(mag []float64, sampleRate, frameLen int) float64 {
	var weightedSum, totalMag float64
	binHz := float64(sampleRate) / float64(frameLen)
	for i, m := range mag {
		freq := float64(i) * binHz
		weightedSum += freq * m
		totalMag += m
	}
	if totalMag <= 0 {
		return 0
	}
	return weightedSum / totalMag
}

func zeroCrossingRate(chunk []float64) float64 {
	if len(chunk) < 2 {
		return 0
	}
	crossings := 0
	for i := 1; i < len(chunk); i++ {
		if (chunk[i-1] >= 0) != (chunk[i] >= 0) {
			crossings++
		}
	}
	return float64(crossings) / float64(len(chunk)-1)
}

// spectralFlatness is the ratio of the geometric mean to the arithmetic
// mean of the magnitude spectrum: near 0 for a pure tone, near 1 for
// noise.
func spectralFlatness(mag []float64) float64 {
	if len(mag) == 0 {
		return 0
	}
	var logSum, sum float64
	for _, m := range mag {
		sum += m
		logSum += math.Log(m + 1e-10)
	}
	geoMean := math.Exp(logSum / float64(len(mag)))
	arithMean := sum / float64(len(mag))
	if arithMean <= 0 {
		return 0
	}
	return geoMean / arithMean
}

// findZeroCrossing returns the sample position nearest position, within
// +/-windowMs, where the signal crosses zero, so slice boundaries never
// click on export.
func findZeroCrossing(mono []float64, position int, sampleRate int, windowMs float64) int {
	windowSamples := int(windowMs * float64(sampleRate) / 1000)
	start := position - windowSamples
	if start < 0 {
		start = 0
	}
	end := position + windowSamples
	if end > len(mono) {
		end = len(mono)
	}
	if end-start < 2 {
		return position
	}

	closest := position
	closestDist := windowSamples + 1
	for i := start + 1; i < end; i++ {
		if (mono[i-1] >= 0) != (mono[i] >= 0) {
			dist := i - position
			if dist < 0 {
				dist = -dist
			}
			if dist < closestDist {
				closestDist = dist
				closest = i
			}
		}
	}
	return closest
}
