// Package moments implements Octatrack-style region detection over a long
// source recording: hits (transients), phrases (sustained tonal content),
// textures (steady low-variance beds), and change points (energy/timbre
// shifts), grounded on the reference moments service's multi-feature
// heuristics and reusing the Slice Engine's frame-feature primitives
// instead of a second DSP implementation.
package moments

import (
	"math"
	"sort"

	"github.com/google/uuid"

	"github.com/studiobgc/loopforge/internal/domain/entities"
	"github.com/studiobgc/loopforge/internal/sliceengine"
)

const (
	frameSize = 2048
	hopSize   = 512

	minMomentDuration = 0.5
	maxMomentDuration = 30.0
)

// Detector finds Moments in one audio source.
type Detector struct{}

func New() *Detector { return &Detector{} }

// Detect runs the hit/phrase/texture families selected by bias
// ("balanced" runs all three), always adds change points, and returns a
// deduplicated, start-time-sorted, labeled list.
func (d *Detector) Detect(audioPath string, bias entities.MomentBias) ([]*entities.Moment, error) {
	mono, sampleRate, err := sliceengine.LoadMono(audioPath)
	if err != nil {
		return nil, err
	}
	if bias == "" {
		bias = entities.MomentBiasBalanced
	}

	rms, centroid, flatness := sliceengine.FrameFeatures(mono, sampleRate, frameSize, hopSize)
	duration := float64(len(mono)) / float64(sampleRate)

	var out []*entities.Moment
	if bias == entities.MomentBiasHits || bias == entities.MomentBiasBalanced {
		out = append(out, detectHits(rms, centroid, sampleRate, duration)...)
	}
	if bias == entities.MomentBiasPhrases || bias == entities.MomentBiasBalanced {
		out = append(out, detectPhrases(rms, flatness, centroid, sampleRate)...)
	}
	if bias == entities.MomentBiasTextures || bias == entities.MomentBiasBalanced {
		out = append(out, detectTextures(rms, centroid, sampleRate, duration)...)
	}
	out = append(out, detectChanges(rms, centroid, sampleRate)...)

	out = dedupeMoments(out)
	sort.Slice(out, func(i, j int) bool { return out[i].StartTime < out[j].StartTime })
	for i, m := range out {
		m.Label = generateLabel(m, i)
	}
	return out, nil
}

func frameDuration(sampleRate int) float64 {
	return float64(hopSize) / float64(sampleRate)
}

// detectHits keeps frames whose local RMS sits above the 60th percentile
// of the whole track, mirroring the reference detector's onset-plus-energy
// gate (onset_detect followed by a local-RMS floor).
func detectHits(rms, centroid []float64, sampleRate int, trackDuration float64) []*entities.Moment {
	if len(rms) == 0 {
		return nil
	}
	threshold := percentile(rms, 60)
	maxRMS := maxOf(rms)
	fd := frameDuration(sampleRate)

	var out []*entities.Moment
	prevAbove := false
	for i, v := range rms {
		above := v > threshold
		if above && !prevAbove {
			start := float64(i) * fd
			end := math.Min(start+0.5, trackDuration)
			out = append(out, &entities.Moment{
				ID:         uuid.New().String(),
				Type:       entities.MomentTypeHit,
				StartTime:  start,
				EndTime:    end,
				Duration:   end - start,
				Energy:     v,
				Brightness: normalizedCentroid(centroid, i, sampleRate),
				Confidence: math.Min(1.0, v/(maxRMS+1e-6)),
			})
		}
		prevAbove = above
	}
	return out
}

// detectPhrases finds runs of frames with RMS above the 40th percentile
// and spectral flatness below the 60th percentile (tonal content), the reference
// detector's proxy for sustained vocal/melodic activity.
func detectPhrases(rms, flatness, centroid []float64, sampleRate int) []*entities.Moment {
	if len(rms) == 0 {
		return nil
	}
	energyThresh := percentile(rms, 40)
	flatnessThresh := percentile(flatness, 60)
	fd := frameDuration(sampleRate)

	var out []*entities.Moment
	inPhrase := false
	phraseStart := 0

	flush := func(endFrame int) {
		start := float64(phraseStart) * fd
		end := float64(endFrame) * fd
		dur := end - start
		if dur < minMomentDuration || dur > maxMomentDuration {
			return
		}
		out = append(out, &entities.Moment{
			ID:         uuid.New().String(),
			Type:       entities.MomentTypePhrase,
			StartTime:  start,
			EndTime:    end,
			Duration:   dur,
			Energy:     meanOf(rms[phraseStart:endFrame]),
			Brightness: normalizedCentroidRange(centroid, phraseStart, endFrame, sampleRate),
			Confidence: 0.7,
		})
	}

	for i := range rms {
		tonal := rms[i] > energyThresh && flatness[i] < flatnessThresh
		if tonal && !inPhrase {
			inPhrase = true
			phraseStart = i
		} else if !tonal && inPhrase {
			inPhrase = false
			flush(i)
		}
	}
	if inPhrase {
		flush(len(rms))
	}
	return out
}

// detectTextures walks a sliding 2-second window looking for low-variance,
// non-silent stretches, extending each find while variance stays low.
func detectTextures(rms, centroid []float64, sampleRate int, trackDuration float64) []*entities.Moment {
	windowFrames := int(2.0 * float64(sampleRate) / hopSize)
	if windowFrames < 4 || len(rms) <= windowFrames {
		return nil
	}
	fd := frameDuration(sampleRate)
	energyFloor := percentile(rms, 20)

	var out []*entities.Moment
	i := 0
	for i < len(rms)-windowFrames {
		window := rms[i : i+windowFrames]
		variance := varianceOf(window)
		meanEnergy := meanOf(window)
		varianceThresh := chunkedVariancePercentile(rms, windowFrames, 30)

		if variance < varianceThresh && meanEnergy > energyFloor {
			start := float64(i) * fd
			end := i + windowFrames
			for end < len(rms)-1 {
				step := windowFrames / 4
				if step < 1 {
					step = 1
				}
				upper := end + windowFrames/2
				if upper > len(rms) {
					upper = len(rms)
				}
				nextVar := varianceOf(rms[end:upper])
				if nextVar > variance*3 {
					break
				}
				end += step
			}
			endTime := math.Min(float64(end)*fd, trackDuration)
			dur := endTime - start
			if dur >= minMomentDuration && dur <= maxMomentDuration {
				out = append(out, &entities.Moment{
					ID:         uuid.New().String(),
					Type:       entities.MomentTypeTexture,
					StartTime:  start,
					EndTime:    endTime,
					Duration:   dur,
					Energy:     meanEnergy,
					Brightness: normalizedCentroidRange(centroid, i, end, sampleRate),
					Confidence: 0.6,
				})
			}
			i = end
		} else {
			i += windowFrames / 2
		}
	}
	return out
}

// detectChanges flags frames where the combined normalized RMS/centroid
// delta spikes above its 90th percentile, at least 2 seconds apart.
func detectChanges(rms, centroid []float64, sampleRate int) []*entities.Moment {
	if len(rms) < 2 {
		return nil
	}
	rmsDelta := absDiff(rms)
	centroidDelta := absDiff(centroid)
	rmsNorm := normalizeBy(rmsDelta, maxOf(rmsDelta))
	centroidNorm := normalizeBy(centroidDelta, maxOf(centroidDelta))

	score := make([]float64, len(rmsNorm))
	for i := range score {
		score[i] = rmsNorm[i]*0.6 + centroidNorm[i]*0.4
	}
	threshold := percentile(score, 90)
	fd := frameDuration(sampleRate)
	minGapFrames := int(2.0 / fd)
	lastChange := -minGapFrames

	var out []*entities.Moment
	for i, s := range score {
		if s > threshold && i-lastChange > minGapFrames {
			t := float64(i) * fd
			out = append(out, &entities.Moment{
				ID:         uuid.New().String(),
				Type:       entities.MomentTypeChange,
				StartTime:  t,
				EndTime:    t + 0.1,
				Duration:   0.1,
				Energy:     valueAt(rms, i),
				Brightness: normalizedCentroid(centroid, i, sampleRate),
				Confidence: s,
			})
			lastChange = i
		}
	}
	return out
}

// dedupeMoments prefers higher-confidence moments when two of the same
// type overlap by more than half of the shorter one's duration.
func dedupeMoments(moments []*entities.Moment) []*entities.Moment {
	if len(moments) == 0 {
		return nil
	}
	sort.Slice(moments, func(i, j int) bool {
		if moments[i].Confidence != moments[j].Confidence {
			return moments[i].Confidence > moments[j].Confidence
		}
		return moments[i].StartTime < moments[j].StartTime
	})

	var kept []*entities.Moment
	for _, m := range moments {
		overlaps := false
		for _, k := range kept {
			if m.EndTime < k.StartTime || m.StartTime > k.EndTime {
				continue
			}
			if m.Type != k.Type {
				continue
			}
			overlap := math.Min(m.EndTime, k.EndTime) - math.Max(m.StartTime, k.StartTime)
			if overlap > math.Min(m.Duration, k.Duration)*0.5 {
				overlaps = true
				break
			}
		}
		if !overlaps {
			kept = append(kept, m)
		}
	}
	return kept
}

func generateLabel(m *entities.Moment, index int) string {
	typeLabel := map[entities.MomentType]string{
		entities.MomentTypeHit:     "Hit",
		entities.MomentTypePhrase:  "Phrase",
		entities.MomentTypeTexture: "Texture",
		entities.MomentTypeChange:  "Change",
		entities.MomentTypeSilence: "Silence",
	}[m.Type]

	energyDesc := "quiet"
	switch {
	case m.Energy > 0.5:
		energyDesc = "loud"
	case m.Energy > 0.2:
		energyDesc = "soft"
	}
	brightnessDesc := "dark"
	switch {
	case m.Brightness > 0.6:
		brightnessDesc = "bright"
	case m.Brightness > 0.3:
		brightnessDesc = "warm"
	}
	return typeLabel + " " + itoa(index+1) + " - " + energyDesc + ", " + brightnessDesc
}
