package entities

import (
	"math"
	"math/rand"
)

// Slice is an immutable analysis record for one segment of a sliced
// source. Nominal boundaries are preserved for analysis; ZeroCrossingStart/
// End are the click-safe playback boundaries (§4.2 step 6).
type Slice struct {
	Index int `json:"index"`

	StartSample int `json:"start_sample"`
	EndSample   int `json:"end_sample"`

	StartTime float64 `json:"start_time"`
	EndTime   float64 `json:"end_time"`
	Duration  float64 `json:"duration"`

	TransientStrength float64 `json:"transient_strength"`
	SpectralCentroid  float64 `json:"spectral_centroid"`
	RMSEnergy         float64 `json:"rms_energy"`
	ZeroCrossingRate  float64 `json:"zero_crossing_rate"`
	SpectralFlatness  float64 `json:"spectral_flatness"`

	ZeroCrossingStart int `json:"zero_crossing_start"`
	ZeroCrossingEnd   int `json:"zero_crossing_end"`

	PitchHz  *float64 `json:"pitch_hz,omitempty"`
	NoteName *string  `json:"note_name,omitempty"`
}

// SliceBank is the durable result of slicing one audio source: an ordered,
// contiguous list of Slices plus aggregate energy statistics (§3).
type SliceBank struct {
	ID               string   `json:"id" db:"id"`
	SessionID        string   `json:"session_id" db:"session_id"`
	SourcePath        string   `json:"source_path" db:"source_path"`
	SourceFilename    string   `json:"source_filename" db:"source_filename"`
	StemRole          StemRole `json:"stem_role" db:"stem_role"`
	SampleRate        int      `json:"sample_rate" db:"sample_rate"`
	TotalSamples      int      `json:"total_samples" db:"total_samples"`
	TotalDuration     float64  `json:"total_duration" db:"total_duration"`
	BPM               *float64 `json:"bpm,omitempty" db:"bpm"`
	Key               *string  `json:"key,omitempty" db:"key"`
	MeanEnergy        float64  `json:"mean_energy" db:"mean_energy"`
	MaxEnergy         float64  `json:"max_energy" db:"max_energy"`
	VarianceEnergy    float64  `json:"variance_energy" db:"variance_energy"`
	Slices            []Slice  `json:"slices" db:"slice_data"`
}

// SliceAt returns the slice at index, wrapping around so continuous
// triggering never runs off the end of the bank.
func (b *SliceBank) SliceAt(index int) (Slice, bool) {
	if len(b.Slices) == 0 {
		return Slice{}, false
	}
	i := index % len(b.Slices)
	if i < 0 {
		i += len(b.Slices)
	}
	return b.Slices[i], true
}

// SlicesByEnergy returns every slice whose RMSEnergy falls in [min, max].
func (b *SliceBank) SlicesByEnergy(min, max float64) []Slice {
	var out []Slice
	for _, s := range b.Slices {
		if s.RMSEnergy >= min && s.RMSEnergy <= max {
			out = append(out, s)
		}
	}
	return out
}

// SlicesByBrightness returns every slice whose SpectralCentroid (Hz) falls
// in [min, max].
func (b *SliceBank) SlicesByBrightness(min, max float64) []Slice {
	var out []Slice
	for _, s := range b.Slices {
		if s.SpectralCentroid >= min && s.SpectralCentroid <= max {
			out = append(out, s)
		}
	}
	return out
}

// WeightAttribute selects which Slice field RandomWeighted biases its
// selection by.
type WeightAttribute string

const (
	WeightByEnergy     WeightAttribute = "energy"
	WeightByTransient  WeightAttribute = "transient"
	WeightByBrightness WeightAttribute = "brightness"
	WeightByUniform    WeightAttribute = "uniform"
)

// RandomWeighted draws one slice with probability proportional to its
// weight attribute raised to 1/temperature: temperature above 1 flattens
// the distribution toward uniform, below 1 sharpens it toward the
// highest-weighted slices. rng is always the caller's seeded generator, so
// selection is reproducible given the same seed and bank (§Open Questions:
// this engine never falls back to an unseeded global generator).
func (b *SliceBank) RandomWeighted(attribute WeightAttribute, temperature float64, rng *rand.Rand) (Slice, bool) {
	if len(b.Slices) == 0 {
		return Slice{}, false
	}
	if attribute == WeightByUniform {
		return b.Slices[rng.Intn(len(b.Slices))], true
	}
	if temperature < 0.01 {
		temperature = 0.01
	}

	weights := make([]float64, len(b.Slices))
	var sum float64
	for i, s := range b.Slices {
		var w float64
		switch attribute {
		case WeightByEnergy:
			w = s.RMSEnergy
		case WeightByTransient:
			w = s.TransientStrength
		case WeightByBrightness:
			w = s.SpectralCentroid / 10000
		default:
			w = 1.0
		}
		if w < 0 {
			w = 0
		}
		w = pow(w, 1.0/temperature)
		weights[i] = w
		sum += w
	}
	if sum <= 0 {
		return b.Slices[rng.Intn(len(b.Slices))], true
	}

	r := rng.Float64() * sum
	var cumulative float64
	for i, w := range weights {
		cumulative += w
		if r <= cumulative {
			return b.Slices[i], true
		}
	}
	return b.Slices[len(b.Slices)-1], true
}

func pow(base, exp float64) float64 {
	if base == 0 {
		return 0
	}
	return math.Exp(exp * math.Log(base))
}
