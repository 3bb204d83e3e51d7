package triggerengine

import (
	"github.com/studiobgc/loopforge/internal/domain/entities"
)

func boolPattern(reps int, pattern ...bool) []bool {
	out := make([]bool, 0, len(pattern)*reps)
	for i := 0; i < reps; i++ {
		out = append(out, pattern...)
	}
	return out
}

// presetDef is one named entry in the trigger-preset catalog: a source
// type/config pair, the mode to drive it, and a canned rule set.
type presetDef struct {
	sourceType string
	config     Config
	mode       Mode
	rules      []entities.TriggerRule
}

var presetCatalog = map[string]presetDef{
	"linear": {
		sourceType: "grid",
		config:     Config{"subdivision": 1.0},
		mode:       ModeSequential,
	},
	"sixteenth_notes": {
		sourceType: "grid",
		config:     Config{"subdivision": 4.0},
		mode:       ModeSequential,
	},
	"euclidean_5_8": {
		sourceType: "euclidean",
		config:     Config{"hits": 5, "steps": 8},
		mode:       ModeEuclidean,
	},
	"euclidean_7_16": {
		sourceType: "euclidean",
		config:     Config{"hits": 7, "steps": 16},
		mode:       ModeEuclidean,
	},
	"autechre_basic": {
		sourceType: "euclidean",
		config:     Config{"hits": 5, "steps": 8},
		mode:       ModeChaos,
		rules: []entities.TriggerRule{
			{ID: "skip_triple", Name: "Skip after triple", Condition: "consecutive_plays > 3", Action: "skip_next", Probability: 0.7, Enabled: true},
			{ID: "random_on_even", Name: "Random on even plays", Condition: "total_plays % 8", Action: "random_slice", Probability: 0.5, Enabled: true},
		},
	},
	"autechre_glitch": {
		sourceType: "probability",
		config: Config{
			"subdivision":   4.0,
			"probabilities": []interface{}{1.0, 0.5, 0.8, 0.3, 1.0, 0.5, 0.7, 0.2, 1.0, 0.4, 0.9, 0.3, 1.0, 0.6, 0.8, 0.4},
		},
		mode: ModeChaos,
		rules: []entities.TriggerRule{
			{ID: "pitch_streak", Name: "Pitch up on streak", Condition: "consecutive_plays > 2", Action: "pitch_up_2", Probability: 0.6, Enabled: true},
			{ID: "reverse_random", Name: "Occasional reverse", Condition: "total_plays % 4", Action: "reverse", Probability: 0.3, Enabled: true},
		},
	},
	"footwork_basic": {
		sourceType: "polyrhythmic",
		config: Config{
			"layers": []interface{}{
				map[string]interface{}{"hits": 4, "steps": 4, "subdivision": 1.0, "offset": 0.0},
				map[string]interface{}{"hits": 3, "steps": 4, "subdivision": 1.0, "offset": 0.0},
				map[string]interface{}{"hits": 5, "steps": 8, "subdivision": 2.0, "offset": 0.0},
			},
		},
		mode: ModeFootwork,
	},
	"juke_pattern": {
		sourceType: "juke_pattern",
		config:     Config{"pattern_name": "juke_basic", "loop_length": 4.0},
		mode:       ModeFootwork,
	},
	"ghetto_house": {
		sourceType: "offbeat",
		config: Config{
			"base_subdivision": 4.0,
			"offbeat_ratio":    1.0 / 3.0,
			"swing_amount":     0.6,
			"pattern":          boolRefs(boolPattern(2, false, true, false, true, false, true, false, true)),
		},
		mode: ModeFootwork,
	},
	"footwork_poly": {
		sourceType: "polyrhythmic",
		config: Config{
			"layers": []interface{}{
				map[string]interface{}{"hits": 4, "steps": 4, "subdivision": 1.0, "offset": 0.0},
				map[string]interface{}{"hits": 3, "steps": 4, "subdivision": 1.0, "offset": 0.5},
				map[string]interface{}{"hits": 5, "steps": 8, "subdivision": 2.0, "offset": 0.0},
				map[string]interface{}{"hits": 7, "steps": 12, "subdivision": 3.0, "offset": 0.0},
			},
		},
		mode: ModeFootwork,
	},
}

func boolRefs(bs []bool) []interface{} {
	out := make([]interface{}, len(bs))
	for i, b := range bs {
		out[i] = b
	}
	return out
}

// Preset builds a ready-to-run Engine from one of the named catalog
// entries. An unknown name falls back to "linear", matching the
// original's dict.get(preset, TRIGGER_PRESETS['linear']) behavior.
func Preset(name string, seed int64) (*Engine, error) {
	def, ok := presetCatalog[name]
	if !ok {
		def = presetCatalog["linear"]
	}
	engine, _, err := New(def.sourceType, def.config, def.mode, def.rules, seed)
	return engine, err
}
