package triggerengine

import (
	"gitlab.com/gomidi/midi/v2/smf"

	loopforgeerrors "github.com/studiobgc/loopforge/internal/errors"
)

// LoadMIDIFile reads note-on events from a standard MIDI file and
// converts their absolute timing to beats at bpm, supplementing the
// MIDI source's raw {time, note, velocity} list form with real SMF
// import. Note-off and non-note messages are ignored; a note-on with
// velocity 0 (the usual note-off idiom) is dropped too.
func LoadMIDIFile(path string, bpm float64) ([]MIDINote, error) {
	var notes []MIDINote

	err := smf.ReadFile(path, func(te smf.TrackEvent) error {
		var channel, key, velocity uint8
		if !te.Message.GetNoteOn(&channel, &key, &velocity) {
			return nil
		}
		if velocity == 0 {
			return nil
		}
		beats := (float64(te.AbsMicroSeconds) / 1e6) * (bpm / 60.0)
		notes = append(notes, MIDINote{
			Time:     beats,
			Note:     int(key),
			Velocity: int(velocity),
		})
		return nil
	})
	if err != nil {
		return nil, loopforgeerrors.Wrap(loopforgeerrors.KindBadInput, "read MIDI file "+path, err)
	}
	return notes, nil
}
