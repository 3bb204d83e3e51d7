package triggerengine

import (
	"math/rand"

	"github.com/studiobgc/loopforge/internal/domain/entities"
	loopforgeerrors "github.com/studiobgc/loopforge/internal/errors"
)

// Engine generates one deterministic TriggerSequence from a source, a
// mode, and a rule set, given the caller's seed. It never touches a
// process-global random source: everything random-shaped is drawn from
// its own *rand.Rand, so (source, mode, rules, bank stats, seed,
// duration, bpm) fully determines the output.
type Engine struct {
	source       Source
	sourceType   string
	sourceConfig Config
	sourceOK     bool
	mode         Mode
	rules        []entities.TriggerRule
	seed         int64
	rng          *rand.Rand
}

// New constructs an Engine from a closed source type tag, its config,
// the selection mode, and a rule set. An unrecognized sourceType falls
// back to a default Grid source (§4.3.6); the caller is told via ok so
// it can log the warning.
func New(sourceType string, sourceConfig Config, mode Mode, rules []entities.TriggerRule, seed int64) (*Engine, bool, error) {
	rng := rand.New(rand.NewSource(seed))
	source, ok, err := FromConfig(sourceType, sourceConfig, rng)
	if err != nil {
		return nil, false, err
	}
	return &Engine{
		source:       source,
		sourceType:   sourceType,
		sourceConfig: sourceConfig,
		sourceOK:     ok,
		mode:         mode,
		rules:        rules,
		seed:         seed,
		rng:          rng,
	}, ok, nil
}

// Generate runs the state machine in §4.3.4 end to end: for every trigger
// time from the source, unless latched to skip, select a slice, update
// counters, run the rules, and emit the event.
func (e *Engine) Generate(bank *entities.SliceBank, durationBeats, bpm float64) (*entities.TriggerSequence, error) {
	if bank == nil || len(bank.Slices) == 0 {
		return nil, loopforgeerrors.New(loopforgeerrors.KindBadInput, "EmptyBank: cannot generate a trigger sequence from an empty slice bank").WithDetails("field", "slice_bank")
	}

	times := e.source.TriggerTimes(durationBeats, bpm)
	state := newEngineState()

	events := make([]entities.TriggerEvent, 0, len(times))
	for _, t := range times {
		if state.skipNext {
			state.skipNext = false
			continue
		}

		velocity := e.source.Velocity(t)
		idx, extras := selectSlice(e.mode, state, bank, e.source, t, velocity, e.rng)

		if state.forceRandomSlice {
			idx = e.rng.Intn(len(bank.Slices))
			state.forceRandomSlice = false
		}

		event := entities.TriggerEvent{
			Time:             t,
			SliceIndex:       idx,
			Velocity:         velocity,
			PitchShift:       0,
			Pan:              0,
			MicroOffset:      extras.microOffset,
			EnvelopeSweep:    extras.envelopeSweep,
			SaturationAmount: extras.saturationAmount,
			SwingAmount:      extras.swingAmount,
			TriggeredBy:      e.sourceType,
		}

		state.advance(idx, t)
		evaluateRules(e.rules, state, &event, e.rng)
		events = append(events, event)
	}

	return &entities.TriggerSequence{
		SliceBankID:   bank.ID,
		Events:        events,
		SourceConfig:  map[string]interface{}(e.sourceConfig),
		Mode:          string(e.mode),
		Rules:         e.rules,
		Seed:          e.seed,
		DurationBeats: durationBeats,
		BPM:           bpm,
	}, nil
}
