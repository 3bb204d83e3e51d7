package entities

import "time"

// Session is the root aggregate for one user workflow: a single uploaded
// track and everything derived from it. It survives forever unless
// explicitly deleted; deletion cascades to Assets, SliceBanks and Jobs.
type Session struct {
	ID               string    `json:"id" db:"id"`
	SourceFilename   string    `json:"source_filename" db:"source_filename"`
	DurationSeconds  float64   `json:"duration_seconds" db:"duration_seconds"`
	DetectedBPM      *float64  `json:"detected_bpm,omitempty" db:"detected_bpm"`
	DetectedKey      *string   `json:"detected_key,omitempty" db:"detected_key"`
	CreatedAt        time.Time `json:"created_at" db:"created_at"`
}
