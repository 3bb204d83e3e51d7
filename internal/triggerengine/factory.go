package triggerengine

import (
	"math/rand"

	loopforgeerrors "github.com/studiobgc/loopforge/internal/errors"
)

// FromConfig builds a Source from a closed set of type tags and a config
// dict. rng is the engine's own seeded generator; sources that need
// randomness (Probability, randomized MicroTiming) draw from it so the
// whole sequence stays reproducible for a given seed. An unrecognized
// type falls back to a default Grid source; callers should log a
// warning when ok is false.
func FromConfig(sourceType string, cfg Config, rng *rand.Rand) (source Source, ok bool, err error) {
	switch sourceType {
	case "grid":
		return &GridSource{
			Subdivision: cfg.float("subdivision", 4),
			Offset:      cfg.float("offset", 0),
		}, true, nil

	case "euclidean":
		return &EuclideanSource{
			Hits:     cfg.int("hits", 4),
			Steps:    cfg.int("steps", 16),
			Rotation: cfg.int("rotation", 0),
		}, true, nil

	case "midi":
		notes, err := parseMIDINotes(cfg)
		if err != nil {
			return nil, false, err
		}
		return &MIDISource{Notes: notes, BaseNote: cfg.int("base_note", 60)}, true, nil

	case "transient_follow":
		return &TransientFollowSource{
			TransientTimes:     cfg.floatSlice("transient_times"),
			TransientStrengths: cfg.floatSlice("transient_strengths"),
			DelayBeats:         cfg.float("delay_beats", 0),
		}, true, nil

	case "probability":
		return &ProbabilitySource{
			Subdivision:   cfg.float("subdivision", 4),
			Probabilities: cfg.floatSlice("probabilities"),
			rng:           rng,
		}, true, nil

	case "polyrhythmic":
		return &PolyrhythmicSource{Layers: parsePolyrhythmLayers(cfg)}, true, nil

	case "micro_timing":
		baseCfgRaw, _ := cfg["base_source"].(map[string]interface{})
		baseType := cfg.string("base_source_type", "grid")
		base, _, baseErr := FromConfig(baseType, Config(baseCfgRaw), rng)
		if baseErr != nil {
			return nil, false, baseErr
		}
		return &MicroTimingSource{
			Base:          base,
			OffsetRange:   cfg.float("offset_range", 0.05),
			OffsetPattern: cfg.floatSlice("offset_pattern"),
			Randomize:     cfg.bool("randomize", true),
			rng:           rng,
		}, true, nil

	case "juke_pattern":
		return newJukePatternSource(cfg), true, nil

	case "offbeat":
		return &OffbeatSource{
			BaseSubdivision: cfg.float("base_subdivision", 4),
			OffbeatRatio:    cfg.float("offbeat_ratio", 0.5),
			SwingAmount:     cfg.float("swing_amount", 0.5),
			Pattern:         parseBoolSlice(cfg["pattern"]),
		}, true, nil

	default:
		return &GridSource{Subdivision: 4, Offset: 0}, false, nil
	}
}

func parseMIDINotes(cfg Config) ([]MIDINote, error) {
	raw, ok := cfg["notes"].([]interface{})
	if !ok {
		return nil, nil
	}
	notes := make([]MIDINote, 0, len(raw))
	for _, item := range raw {
		m, ok := item.(map[string]interface{})
		if !ok {
			return nil, loopforgeerrors.BadInput("notes", "each MIDI note must be an object with time/note/velocity")
		}
		notes = append(notes, MIDINote{
			Time:     Config(m).float("time", 0),
			Note:     Config(m).int("note", 60),
			Velocity: Config(m).int("velocity", 100),
		})
	}
	return notes, nil
}

func parsePolyrhythmLayers(cfg Config) []PolyrhythmLayer {
	raw, ok := cfg["layers"].([]interface{})
	if !ok {
		return nil
	}
	layers := make([]PolyrhythmLayer, 0, len(raw))
	for _, item := range raw {
		m, ok := item.(map[string]interface{})
		if !ok {
			continue
		}
		c := Config(m)
		layers = append(layers, PolyrhythmLayer{
			Hits:        c.int("hits", 4),
			Steps:       c.int("steps", 16),
			Subdivision: c.float("subdivision", 4),
			Offset:      c.float("offset", 0),
		})
	}
	return layers
}

func parseBoolSlice(v interface{}) []bool {
	raw, ok := v.([]interface{})
	if !ok {
		return nil
	}
	out := make([]bool, 0, len(raw))
	for _, item := range raw {
		b, _ := item.(bool)
		out = append(out, b)
	}
	return out
}

func newJukePatternSource(cfg Config) *JukePatternSource {
	if name := cfg.string("pattern_name", ""); name != "" {
		switch name {
		case "juke_basic":
			return &JukePatternSource{Pattern: JukeBasicPattern, LoopLength: cfg.float("loop_length", 2.0)}
		case "ghetto_house":
			return &JukePatternSource{Pattern: GhettoHousePattern, LoopLength: cfg.float("loop_length", 2.0)}
		case "footwork_poly":
			return &JukePatternSource{Pattern: FootworkPolyPattern, LoopLength: cfg.float("loop_length", 2.0)}
		}
	}

	raw, _ := cfg["custom_pattern"].([]interface{})
	pattern := make([]JukePatternEvent, 0, len(raw))
	for _, item := range raw {
		pair, ok := item.([]interface{})
		if !ok || len(pair) < 2 {
			continue
		}
		t, _ := pair[0].(float64)
		v, _ := pair[1].(float64)
		pattern = append(pattern, JukePatternEvent{Time: t, Velocity: v})
	}
	return &JukePatternSource{Pattern: pattern, LoopLength: cfg.float("loop_length", 2.0)}
}
