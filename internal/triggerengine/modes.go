package triggerengine

import (
	"math/rand"

	"github.com/studiobgc/loopforge/internal/domain/entities"
)

// Mode selects how the slice index is chosen at each trigger time.
type Mode string

const (
	ModeSequential  Mode = "SEQUENTIAL"
	ModeRandom      Mode = "RANDOM"
	ModeProbability Mode = "PROBABILITY"
	ModeMIDIMap     Mode = "MIDI_MAP"
	ModePattern     Mode = "PATTERN"
	ModeFollow      Mode = "FOLLOW"
	ModeEuclidean   Mode = "EUCLIDEAN"
	ModeChaos       Mode = "CHAOS"
	ModeFootwork    Mode = "FOOTWORK"
)

// ParseMode validates a mode tag from outside the engine (e.g. an API
// request) against the closed set above.
func ParseMode(s string) (Mode, bool) {
	switch Mode(s) {
	case ModeSequential, ModeRandom, ModeProbability, ModeMIDIMap, ModePattern, ModeFollow, ModeEuclidean, ModeChaos, ModeFootwork:
		return Mode(s), true
	default:
		return "", false
	}
}

// modeExtras carries the side-channel fields FOOTWORK fills in beyond the
// plain slice index.
type modeExtras struct {
	microOffset      float64
	envelopeSweep    float64
	saturationAmount float64
	swingAmount      float64
}

// selectSlice picks the slice index for this trigger time under mode,
// using state for counters and rng for every weighted or random draw so
// the whole sequence stays reproducible for a given seed.
func selectSlice(mode Mode, state *engineState, bank *entities.SliceBank, source Source, time float64, velocity float64, rng *rand.Rand) (int, modeExtras) {
	n := len(bank.Slices)
	if n == 0 {
		return 0, modeExtras{}
	}

	switch mode {
	case ModeSequential, ModePattern, ModeFollow, ModeEuclidean:
		return state.totalPlays % n, modeExtras{}

	case ModeRandom:
		return rng.Intn(n), modeExtras{}

	case ModeProbability:
		slice, ok := bank.RandomWeighted(entities.WeightByEnergy, 1.0, rng)
		if !ok {
			return rng.Intn(n), modeExtras{}
		}
		return slice.Index, modeExtras{}

	case ModeMIDIMap:
		if sis, ok := source.(SliceIndexSource); ok {
			if idx, ok := sis.SliceIndexAt(time); ok {
				return clamp(idx, 0, n-1), modeExtras{}
			}
		}
		return state.totalPlays % n, modeExtras{}

	case ModeChaos:
		if state.hasLastSlice && rng.Float64() < 0.3 {
			return (state.lastSliceIndex + 1) % n, modeExtras{}
		}
		slice, ok := bank.RandomWeighted(entities.WeightByTransient, 1.0, rng)
		if !ok {
			return rng.Intn(n), modeExtras{}
		}
		return slice.Index, modeExtras{}

	case ModeFootwork:
		return footworkSelect(state, bank, source, time, velocity, rng)

	default:
		return state.totalPlays % n, modeExtras{}
	}
}

func footworkSelect(state *engineState, bank *entities.SliceBank, source Source, time float64, velocity float64, rng *rand.Rand) (int, modeExtras) {
	n := len(bank.Slices)
	slice, ok := bank.RandomWeighted(entities.WeightByTransient, 1.0, rng)
	idx := 0
	if ok {
		idx = slice.Index
	} else {
		idx = rng.Intn(n)
		slice, _ = bank.SliceAt(idx)
	}

	extras := modeExtras{
		saturationAmount: 0.3 + 0.4*velocity,
	}

	offsetRange := 0.03
	if _, isMicro := source.(*MicroTimingSource); isMicro {
		offsetRange = 0.02
	}
	extras.microOffset = (rng.Float64()*2 - 1) * offsetRange

	if ss, ok := source.(SwingSource); ok {
		extras.swingAmount = ss.SwingAmountAt(time)
	}

	if slice.Duration < 0.5 && slice.TransientStrength > 0.7 {
		extras.envelopeSweep = 0.5 + 0.3*velocity
	}

	return idx, extras
}

func clamp(v, min, max int) int {
	if v < min {
		return min
	}
	if v > max {
		return max
	}
	return v
}
