package triggerengine

import (
	"math"
	"math/rand"
	"sort"
)

const epsilon = 1e-6

// GridSource fires at offset + k/subdivision for k = 0, 1, ... while in
// range. Velocity is always 1.
type GridSource struct {
	Subdivision float64
	Offset      float64
}

func (s *GridSource) Type() string { return "grid" }

func (s *GridSource) TriggerTimes(durationBeats, bpm float64) []float64 {
	if s.Subdivision <= 0 {
		return nil
	}
	step := 1.0 / s.Subdivision
	var times []float64
	for t := s.Offset; t < durationBeats-epsilon; t += step {
		times = append(times, t)
	}
	return times
}

func (s *GridSource) Velocity(time float64) float64 { return 1.0 }

// EuclideanSource builds its pattern via Bjorklund's algorithm, rotates
// it, then tiles it across duration_beats. hits >= steps fires every
// step; hits == 0 fires never.
type EuclideanSource struct {
	Hits     int
	Steps    int
	Rotation int
}

func (s *EuclideanSource) Type() string { return "euclidean" }

func (s *EuclideanSource) TriggerTimes(durationBeats, bpm float64) []float64 {
	if s.Steps <= 0 {
		return nil
	}
	pattern := rotate(bjorklund(s.Hits, s.Steps), s.Rotation)
	stepDuration := durationBeats / float64(s.Steps)
	if stepDuration <= 0 {
		return nil
	}

	var times []float64
	for cycleStart := 0.0; cycleStart < durationBeats-epsilon; cycleStart += stepDuration * float64(s.Steps) {
		for i, hit := range pattern {
			if !hit {
				continue
			}
			t := cycleStart + float64(i)*stepDuration
			if t < durationBeats-epsilon {
				times = append(times, t)
			}
		}
	}
	sort.Float64s(times)
	return times
}

func (s *EuclideanSource) Velocity(time float64) float64 { return 1.0 }

// MIDINote is one parsed or user-supplied MIDI note event.
type MIDINote struct {
	Time     float64
	Note     int
	Velocity int
}

// MIDISource fires at each note's time. For MIDI_MAP mode the slice index
// is note - base_note, clamped into the bank's range by the caller.
type MIDISource struct {
	Notes    []MIDINote
	BaseNote int
}

func (s *MIDISource) Type() string { return "midi" }

func (s *MIDISource) TriggerTimes(durationBeats, bpm float64) []float64 {
	var times []float64
	for _, n := range s.Notes {
		if n.Time < durationBeats-epsilon {
			times = append(times, n.Time)
		}
	}
	sort.Float64s(times)
	return times
}

func (s *MIDISource) Velocity(time float64) float64 {
	for _, n := range s.Notes {
		if math.Abs(n.Time-time) < epsilon {
			return float64(n.Velocity) / 127.0
		}
	}
	return 1.0
}

// SliceIndexAt returns note - base_note for the note at time, unclamped;
// callers clamp into [0, num_slices).
func (s *MIDISource) SliceIndexAt(time float64) (int, bool) {
	for _, n := range s.Notes {
		if math.Abs(n.Time-time) < epsilon {
			return n.Note - s.BaseNote, true
		}
	}
	return 0, false
}

// TransientFollowSource fires delay_beats after each detected transient,
// carrying that transient's strength as velocity.
type TransientFollowSource struct {
	TransientTimes      []float64
	TransientStrengths  []float64
	DelayBeats          float64
}

func (s *TransientFollowSource) Type() string { return "transient_follow" }

func (s *TransientFollowSource) TriggerTimes(durationBeats, bpm float64) []float64 {
	var times []float64
	for _, t := range s.TransientTimes {
		shifted := t + s.DelayBeats
		if shifted >= 0 && shifted < durationBeats-epsilon {
			times = append(times, shifted)
		}
	}
	sort.Float64s(times)
	return times
}

func (s *TransientFollowSource) Velocity(time float64) float64 {
	for i, t := range s.TransientTimes {
		if math.Abs(t+s.DelayBeats-time) < epsilon && i < len(s.TransientStrengths) {
			return s.TransientStrengths[i]
		}
	}
	return 1.0
}

// ProbabilitySource samples a Bernoulli trial per step against that
// step's own probability, using the engine's seeded PRNG.
type ProbabilitySource struct {
	Subdivision   float64
	Probabilities []float64
	rng           *rand.Rand
}

func (s *ProbabilitySource) Type() string { return "probability" }

func (s *ProbabilitySource) TriggerTimes(durationBeats, bpm float64) []float64 {
	if s.Subdivision <= 0 || len(s.Probabilities) == 0 {
		return nil
	}
	step := 1.0 / s.Subdivision
	var times []float64
	i := 0
	for t := 0.0; t < durationBeats-epsilon; t += step {
		p := s.Probabilities[i%len(s.Probabilities)]
		if s.rng.Float64() < p {
			times = append(times, t)
		}
		i++
	}
	return times
}

func (s *ProbabilitySource) Velocity(time float64) float64 { return 1.0 }

// PolyrhythmLayer is one Euclidean voice inside a PolyrhythmicSource.
type PolyrhythmLayer struct {
	Hits        int
	Steps       int
	Subdivision float64
	Offset      float64
}

// PolyrhythmicSource unions several Euclidean layers, each scaled by its
// own subdivision and shifted by its own offset.
type PolyrhythmicSource struct {
	Layers []PolyrhythmLayer
}

func (s *PolyrhythmicSource) Type() string { return "polyrhythmic" }

func (s *PolyrhythmicSource) TriggerTimes(durationBeats, bpm float64) []float64 {
	var all []float64
	for _, layer := range s.Layers {
		if layer.Steps <= 0 || layer.Subdivision <= 0 {
			continue
		}
		pattern := bjorklund(layer.Hits, layer.Steps)
		stepDuration := 1.0 / layer.Subdivision
		cycleLength := stepDuration * float64(layer.Steps)
		for cycleStart := 0.0; cycleStart < durationBeats-epsilon; cycleStart += cycleLength {
			for i, hit := range pattern {
				if !hit {
					continue
				}
				t := cycleStart + float64(i)*stepDuration + layer.Offset
				if t >= 0 && t < durationBeats-epsilon {
					all = append(all, t)
				}
			}
		}
	}
	sort.Float64s(all)

	var deduped []float64
	for _, t := range all {
		if len(deduped) == 0 || t-deduped[len(deduped)-1] > epsilon {
			deduped = append(deduped, t)
		}
	}
	return deduped
}

func (s *PolyrhythmicSource) Velocity(time float64) float64 { return 1.0 }

// MicroTimingSource wraps a base source and nudges each of its times by a
// per-event offset: uniform random within offset_range when Randomize,
// else cyclically from OffsetPattern. Offsets that push a time out of
// range are dropped.
type MicroTimingSource struct {
	Base         Source
	OffsetRange  float64
	OffsetPattern []float64
	Randomize    bool
	rng          *rand.Rand

	offsets map[float64]float64
}

func (s *MicroTimingSource) Type() string { return "micro_timing" }

func (s *MicroTimingSource) TriggerTimes(durationBeats, bpm float64) []float64 {
	base := s.Base.TriggerTimes(durationBeats, bpm)
	s.offsets = make(map[float64]float64, len(base))

	var out []float64
	for i, t := range base {
		var offset float64
		if s.Randomize {
			offset = (s.rng.Float64()*2 - 1) * s.OffsetRange
		} else if len(s.OffsetPattern) > 0 {
			offset = s.OffsetPattern[i%len(s.OffsetPattern)]
		}
		shifted := t + offset
		if shifted < 0 || shifted >= durationBeats-epsilon {
			continue
		}
		s.offsets[shifted] = offset
		out = append(out, shifted)
	}
	sort.Float64s(out)
	return out
}

func (s *MicroTimingSource) Velocity(time float64) float64 { return s.Base.Velocity(time) }

// JukePatternEvent is one (time, velocity) pair in a tiled juke pattern.
type JukePatternEvent struct {
	Time     float64
	Velocity float64
}

// JukePatternSource tiles a fixed (time, velocity) list every loop_length
// beats across duration_beats.
type JukePatternSource struct {
	Pattern    []JukePatternEvent
	LoopLength float64

	lastVelocity map[float64]float64
}

func (s *JukePatternSource) Type() string { return "juke_pattern" }

func (s *JukePatternSource) TriggerTimes(durationBeats, bpm float64) []float64 {
	if s.LoopLength <= 0 || len(s.Pattern) == 0 {
		return nil
	}
	s.lastVelocity = make(map[float64]float64)
	var times []float64
	for cycleStart := 0.0; cycleStart < durationBeats-epsilon; cycleStart += s.LoopLength {
		for _, ev := range s.Pattern {
			t := cycleStart + ev.Time
			if t < durationBeats-epsilon {
				times = append(times, t)
				s.lastVelocity[t] = ev.Velocity
			}
		}
	}
	sort.Float64s(times)
	return times
}

func (s *JukePatternSource) Velocity(time float64) float64 {
	if v, ok := s.lastVelocity[time]; ok {
		return v
	}
	return 1.0
}

// Canonical juke/footwork patterns (loop_length in beats), enumerated per
// the closed set of named presets.
var (
	JukeBasicPattern = []JukePatternEvent{
		{Time: 0.0, Velocity: 1.0},
		{Time: 0.5, Velocity: 0.8},
		{Time: 1.0, Velocity: 0.6},
		{Time: 1.5, Velocity: 0.9},
		{Time: 2.0, Velocity: 0.7},
		{Time: 2.5, Velocity: 0.5},
		{Time: 3.0, Velocity: 1.0},
		{Time: 3.5, Velocity: 0.8},
	}
	GhettoHousePattern = []JukePatternEvent{
		{Time: 0.0, Velocity: 1.0},
		{Time: 0.25, Velocity: 0.4},
		{Time: 0.5, Velocity: 0.9},
		{Time: 0.75, Velocity: 0.3},
		{Time: 1.0, Velocity: 0.8},
		{Time: 1.25, Velocity: 0.5},
		{Time: 1.5, Velocity: 0.9},
		{Time: 1.75, Velocity: 0.4},
		{Time: 2.0, Velocity: 1.0},
		{Time: 2.25, Velocity: 0.3},
		{Time: 2.5, Velocity: 0.9},
		{Time: 2.75, Velocity: 0.5},
		{Time: 3.0, Velocity: 0.8},
		{Time: 3.25, Velocity: 0.4},
		{Time: 3.5, Velocity: 0.9},
		{Time: 3.75, Velocity: 0.3},
	}
	FootworkPolyPattern = []JukePatternEvent{
		{Time: 0.0, Velocity: 1.0},
		{Time: 0.33, Velocity: 0.7},
		{Time: 0.67, Velocity: 0.5},
		{Time: 1.0, Velocity: 0.9},
		{Time: 1.33, Velocity: 0.6},
		{Time: 1.67, Velocity: 0.4},
		{Time: 2.0, Velocity: 1.0},
		{Time: 2.33, Velocity: 0.8},
		{Time: 2.67, Velocity: 0.5},
		{Time: 3.0, Velocity: 0.9},
		{Time: 3.33, Velocity: 0.7},
		{Time: 3.67, Velocity: 0.4},
	}
)

// OffbeatSource shifts base-grid steps marked true in pattern off the
// grid by step_duration * offbeat_ratio * swing_amount.
type OffbeatSource struct {
	BaseSubdivision float64
	OffbeatRatio    float64
	SwingAmount     float64
	Pattern         []bool

	shiftedAt map[float64]bool
}

func (s *OffbeatSource) Type() string { return "offbeat" }

func (s *OffbeatSource) TriggerTimes(durationBeats, bpm float64) []float64 {
	if s.BaseSubdivision <= 0 {
		return nil
	}
	step := 1.0 / s.BaseSubdivision
	s.shiftedAt = make(map[float64]bool)

	var times []float64
	i := 0
	for t := 0.0; t < durationBeats-epsilon; t += step {
		shifted := false
		if len(s.Pattern) > 0 && s.Pattern[i%len(s.Pattern)] {
			t += step * s.OffbeatRatio * s.SwingAmount
			shifted = true
		}
		if t < durationBeats-epsilon {
			times = append(times, t)
			s.shiftedAt[t] = shifted
		}
		i++
	}
	return times
}

func (s *OffbeatSource) Velocity(time float64) float64 { return 1.0 }

// SwingAmountAt reports this source's configured swing amount for any
// shifted step, zero otherwise; FOOTWORK mode borrows this when an
// Offbeat source is present.
func (s *OffbeatSource) SwingAmountAt(time float64) float64 {
	if s.shiftedAt != nil && s.shiftedAt[time] {
		return s.SwingAmount
	}
	return 0
}
