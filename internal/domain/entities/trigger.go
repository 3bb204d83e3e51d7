package entities

// TriggerEvent is one sequenced trigger emitted by the Trigger Engine.
type TriggerEvent struct {
	Time        float64 `json:"time"`
	SliceIndex  int     `json:"slice_index"`
	Velocity    float64 `json:"velocity"`
	Duration    *float64 `json:"duration,omitempty"`
	PitchShift  float64 `json:"pitch_shift"`
	Reverse     bool    `json:"reverse"`
	Pan         float64 `json:"pan"`
	FilterCutoffHz *float64 `json:"filter_cutoff_hz,omitempty"`

	MicroOffset       float64 `json:"micro_offset"`
	EnvelopeSweep     float64 `json:"envelope_sweep"`
	SaturationAmount  float64 `json:"saturation_amount"`
	SwingAmount       float64 `json:"swing_amount"`

	TriggeredBy  string `json:"triggered_by"`
	RuleModified bool   `json:"rule_modified"`
}

// TriggerRule is a condition/action pair evaluated after each event is
// drafted and before it is appended (§4.3.3).
type TriggerRule struct {
	ID          string  `json:"id"`
	Name        string  `json:"name"`
	Condition   string  `json:"condition"`
	Action      string  `json:"action"`
	Probability float64 `json:"probability"`
	Enabled     bool    `json:"enabled"`
}

// TriggerSequence is an ordered list of TriggerEvents plus the generating
// parameters and seed, so that (bank, source, rules, seed) → sequence is
// reproducible (§4.3.5).
type TriggerSequence struct {
	ID            string         `json:"id" db:"id"`
	SliceBankID   string         `json:"slice_bank_id" db:"slice_bank_id"`
	Events        []TriggerEvent `json:"events" db:"events"`
	SourceConfig  map[string]interface{} `json:"source_config" db:"source_config"`
	Mode          string         `json:"mode" db:"mode"`
	Rules         []TriggerRule  `json:"rules" db:"rules"`
	Seed          int64          `json:"seed" db:"seed"`
	DurationBeats float64        `json:"duration_beats" db:"duration_beats"`
	BPM           float64        `json:"bpm" db:"bpm"`
}
