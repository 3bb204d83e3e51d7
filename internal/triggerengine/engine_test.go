package triggerengine

import (
	"testing"

	"github.com/studiobgc/loopforge/internal/domain/entities"
)

func testBank(n int) *entities.SliceBank {
	slices := make([]entities.Slice, n)
	for i := range slices {
		slices[i] = entities.Slice{
			Index:             i,
			RMSEnergy:         float64(i+1) / float64(n),
			TransientStrength: float64(i%3) / 2.0,
			Duration:          0.3,
		}
	}
	return &entities.SliceBank{ID: "bank-1", Slices: slices}
}

func TestBjorklundDistributesHitsEvenly(t *testing.T) {
	pattern := bjorklund(4, 8)
	count := 0
	for _, v := range pattern {
		if v {
			count++
		}
	}
	if count != 4 {
		t.Fatalf("expected 4 hits, got %d in %v", count, pattern)
	}
	if !pattern[0] {
		t.Fatalf("expected first step to be a hit for hits==steps/2: %v", pattern)
	}
}

func TestBjorklundBoundaryForms(t *testing.T) {
	all := bjorklund(8, 8)
	for i, v := range all {
		if !v {
			t.Fatalf("hits >= steps should fire every step, step %d false", i)
		}
	}
	none := bjorklund(0, 8)
	for i, v := range none {
		if v {
			t.Fatalf("hits == 0 should fire no steps, step %d true", i)
		}
	}
}

func TestGridSourceFiresAtSubdivision(t *testing.T) {
	s := &GridSource{Subdivision: 2, Offset: 0}
	times := s.TriggerTimes(2.0, 120)
	want := []float64{0, 0.5, 1.0, 1.5}
	if len(times) != len(want) {
		t.Fatalf("expected %d triggers, got %d: %v", len(want), len(times), times)
	}
	for i := range want {
		if times[i] != want[i] {
			t.Fatalf("trigger %d: want %v got %v", i, want[i], times[i])
		}
	}
}

func TestEuclideanSourceTilesAcrossDuration(t *testing.T) {
	s := &EuclideanSource{Hits: 3, Steps: 8, Rotation: 0}
	times := s.TriggerTimes(8.0, 120)
	if len(times) == 0 {
		t.Fatal("expected at least one trigger")
	}
	for _, tm := range times {
		if tm < 0 || tm >= 8.0 {
			t.Fatalf("trigger %v out of [0, duration) range", tm)
		}
	}
}

func TestConditionGrammar(t *testing.T) {
	state := newEngineState()
	state.consecutivePlays = 4
	state.totalPlays = 8
	state.lastSliceIndex = 2

	cases := []struct {
		cond string
		want bool
	}{
		{"consecutive_plays > 3", true},
		{"consecutive_plays >= 4", true},
		{"consecutive_plays == 4", true},
		{"total_plays % 4", true},
		{"total_plays % 5", false},
		{"slice_index == 2", true},
		{"slice_index != 2", false},
	}
	for _, c := range cases {
		if got := conditionHolds(c.cond, state); got != c.want {
			t.Errorf("condition %q: want %v got %v", c.cond, c.want, got)
		}
	}
}

func TestEngineGenerateIsDeterministicForSameSeed(t *testing.T) {
	bank := testBank(8)

	e1, _, err := New("euclidean", Config{"hits": 5, "steps": 8}, ModeChaos, nil, 42)
	if err != nil {
		t.Fatal(err)
	}
	seq1, err := e1.Generate(bank, 16.0, 120)
	if err != nil {
		t.Fatal(err)
	}

	e2, _, err := New("euclidean", Config{"hits": 5, "steps": 8}, ModeChaos, nil, 42)
	if err != nil {
		t.Fatal(err)
	}
	seq2, err := e2.Generate(bank, 16.0, 120)
	if err != nil {
		t.Fatal(err)
	}

	if len(seq1.Events) != len(seq2.Events) {
		t.Fatalf("expected same event count for same seed: %d vs %d", len(seq1.Events), len(seq2.Events))
	}
	for i := range seq1.Events {
		if seq1.Events[i] != seq2.Events[i] {
			t.Fatalf("event %d diverged between identically-seeded runs: %+v vs %+v", i, seq1.Events[i], seq2.Events[i])
		}
	}
}

func TestEngineGenerateRejectsEmptyBank(t *testing.T) {
	e, _, err := New("grid", Config{"subdivision": 4.0}, ModeSequential, nil, 1)
	if err != nil {
		t.Fatal(err)
	}
	_, err = e.Generate(&entities.SliceBank{}, 4.0, 120)
	if err == nil {
		t.Fatal("expected EmptyBank error for a bank with no slices")
	}
}

func TestUnknownSourceTypeFallsBackToGrid(t *testing.T) {
	_, ok, err := New("not_a_real_source", Config{}, ModeSequential, nil, 1)
	if err != nil {
		t.Fatal(err)
	}
	if ok {
		t.Fatal("expected ok=false for an unrecognized source type")
	}
}

func TestPresetUnknownNameFallsBackToLinear(t *testing.T) {
	bank := testBank(4)
	engine, err := Preset("not_a_real_preset", 7)
	if err != nil {
		t.Fatal(err)
	}
	seq, err := engine.Generate(bank, 4.0, 120)
	if err != nil {
		t.Fatal(err)
	}
	if seq.Mode != string(ModeSequential) {
		t.Fatalf("expected fallback to linear's SEQUENTIAL mode, got %s", seq.Mode)
	}
}

// TestCountersUpdateBeforeRuleEvaluation pins the state-machine order from
// §4.3.4: select slice, update counters, evaluate rules, emit. A rule
// conditioned on "total_plays == 0" can therefore never fire — by the time
// it is checked, advance() has already counted the current trigger.
func TestCountersUpdateBeforeRuleEvaluation(t *testing.T) {
	bank := testBank(4)
	rules := []entities.TriggerRule{
		{ID: "always_skip_first", Name: "skip", Condition: "total_plays == 0", Action: "skip_next", Probability: 1.0, Enabled: true},
	}
	engine, _, err := New("grid", Config{"subdivision": 1.0}, ModeSequential, rules, 3)
	if err != nil {
		t.Fatal(err)
	}
	seq, err := engine.Generate(bank, 4.0, 120)
	if err != nil {
		t.Fatal(err)
	}
	if len(seq.Events) != 4 {
		t.Fatalf("rule condition total_plays==0 can never hold post-advance, expected all 4 triggers emitted, got %d events", len(seq.Events))
	}
}

// TestSkipNextLatchSkipsExactlyOneTrigger traces the worked example from
// §4.3.4's concrete scenario: a single-slice bank at subdivision=4 with a
// "consecutive_plays > 3" rule. consecutive_plays climbs every trigger
// since the same slice repeats, so the rule latches skip_next once it
// first holds (after the 4th trigger) and then on every surviving trigger
// after that, producing triggers at 0, 0.25, 0.5, 0.75, a skip at 1.0,
// 1.25, a skip at 1.5, 1.75, a skip at 2.0, and so on.
func TestSkipNextLatchSkipsExactlyOneTrigger(t *testing.T) {
	bank := testBank(1)
	rules := []entities.TriggerRule{
		{ID: "skip_on_repeat", Name: "skip", Condition: "consecutive_plays > 3", Action: "skip_next", Probability: 1.0, Enabled: true},
	}
	engine, _, err := New("grid", Config{"subdivision": 4.0}, ModeSequential, rules, 3)
	if err != nil {
		t.Fatal(err)
	}
	seq, err := engine.Generate(bank, 4.0, 120)
	if err != nil {
		t.Fatal(err)
	}

	want := []float64{0, 0.25, 0.5, 0.75, 1.25, 1.75, 2.25, 2.75, 3.25, 3.75}
	if len(seq.Events) != len(want) {
		t.Fatalf("expected %d surviving triggers, got %d: %+v", len(want), len(seq.Events), seq.Events)
	}
	for i, ev := range seq.Events {
		if ev.Time != want[i] {
			t.Fatalf("event %d: want time %v got %v", i, want[i], ev.Time)
		}
	}
}

func TestJukeBasicPatternTilesTwiceOverEightBeats(t *testing.T) {
	s := &JukePatternSource{Pattern: JukeBasicPattern, LoopLength: 4.0}
	times := s.TriggerTimes(8.0, 160)
	if len(times) != 16 {
		t.Fatalf("expected 8 pattern entries tiled across 2 loops (16 events), got %d: %v", len(times), times)
	}
}

func TestParseModeAcceptsKnownTags(t *testing.T) {
	mode, ok := ParseMode("EUCLIDEAN")
	if !ok || mode != ModeEuclidean {
		t.Fatalf("expected EUCLIDEAN to parse, got %v, %v", mode, ok)
	}
}

func TestParseModeRejectsUnknownTag(t *testing.T) {
	if _, ok := ParseMode("NOT_A_MODE"); ok {
		t.Fatal("expected an unrecognized mode tag to be rejected")
	}
}
