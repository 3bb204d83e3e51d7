package triggerengine

import (
	"strconv"
	"strings"

	"github.com/studiobgc/loopforge/internal/domain/entities"
)

// evaluateRules runs every enabled rule, in definition order, against
// state and the drafted event. A rule whose condition holds and whose
// probability roll succeeds applies its action and marks the event
// rule_modified; several rules may compose on the same event.
func evaluateRules(rules []entities.TriggerRule, state *engineState, event *entities.TriggerEvent, rng randFloater) {
	for _, rule := range rules {
		if !rule.Enabled {
			continue
		}
		if !conditionHolds(rule.Condition, state) {
			continue
		}
		if rule.Probability < 1.0 && rng.Float64() >= rule.Probability {
			continue
		}
		applyAction(rule.Action, state, event, rng)
		event.RuleModified = true
	}
}

type randFloater interface {
	Float64() float64
	Intn(n int) int
}

// conditionHolds evaluates the small closed condition grammar:
//
//	consecutive_plays {>,>=,==} N
//	total_plays {>, %} N          // '%' means "fires every N"
//	slice_index {==,!=} N
func conditionHolds(condition string, state *engineState) bool {
	fields := strings.Fields(condition)
	if len(fields) != 3 {
		return false
	}
	lhs, op, rhsStr := fields[0], fields[1], fields[2]
	n, err := strconv.Atoi(rhsStr)
	if err != nil {
		return false
	}

	var value int
	switch lhs {
	case "consecutive_plays":
		value = state.consecutivePlays
	case "total_plays":
		value = state.totalPlays
	case "slice_index":
		value = state.lastSliceIndex
	default:
		return false
	}

	switch op {
	case ">":
		return value > n
	case ">=":
		return value >= n
	case "==":
		return value == n
	case "!=":
		return value != n
	case "%":
		return n > 0 && value%n == 0
	default:
		return false
	}
}

// applyAction executes one of the closed set of rule actions. An
// undefined action token is a no-op (the caller is expected to log it).
func applyAction(action string, state *engineState, event *entities.TriggerEvent, rng randFloater) {
	switch {
	case action == "skip_next":
		state.skipNext = true
	case action == "double_trigger":
		event.Velocity = minFloat(event.Velocity*1.5, 1.0)
	case action == "reverse":
		event.Reverse = !event.Reverse
	case action == "random_slice":
		state.forceRandomSlice = true
	case action == "reset_sequence":
		state.reset()
	case action == "half_velocity":
		event.Velocity *= 0.5
	case action == "double_velocity":
		event.Velocity = minFloat(event.Velocity*2, 1.0)
	case strings.HasPrefix(action, "pitch_up_"):
		if n, err := strconv.ParseFloat(strings.TrimPrefix(action, "pitch_up_"), 64); err == nil {
			event.PitchShift += n
		}
	case strings.HasPrefix(action, "pitch_down_"):
		if n, err := strconv.ParseFloat(strings.TrimPrefix(action, "pitch_down_"), 64); err == nil {
			event.PitchShift -= n
		}
	}
}

func minFloat(a, b float64) float64 {
	if a < b {
		return a
	}
	return b
}
