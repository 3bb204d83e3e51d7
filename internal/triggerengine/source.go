// Package triggerengine implements the Trigger Engine (§4.3): a
// deterministic, seedable generative sequencer built from pluggable
// trigger sources, selection modes, and a rule layer.
package triggerengine

// Source is implemented by every trigger source. TriggerTimes returns, in
// ascending beat order, every time < durationBeats at which the source
// fires. Velocity reports the 0-1 velocity for a time previously returned
// by TriggerTimes.
type Source interface {
	Type() string
	TriggerTimes(durationBeats, bpm float64) []float64
	Velocity(time float64) float64
}

// SliceIndexSource is additionally implemented by sources that pick the
// slice index themselves (MIDI_MAP mode reads this off the MIDI source).
type SliceIndexSource interface {
	SliceIndexAt(time float64) (int, bool)
}

// SwingSource is additionally implemented by sources that carry a swing
// amount FOOTWORK mode can borrow (the Offbeat source).
type SwingSource interface {
	SwingAmountAt(time float64) float64
}
