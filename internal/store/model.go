// Package store persists finished transcripts.
package store

import (
	"time"

	"github.com/google/uuid"
)

// RecordingMetadata describes the capture that produced a transcript.
type RecordingMetadata struct {
	StartTime     time.Time     `json:"start_time"`
	EndTime       time.Time     `json:"end_time"`
	Duration      time.Duration `json:"duration"`
	AudioRef      string        `json:"audio_ref,omitempty"`
	AudioChecksum string        `json:"audio_checksum,omitempty"`
	Locale        string        `json:"locale"`
	OnDevice      bool          `json:"on_device"`
}

// Transcript is one finished recording.
//
// OriginalText and CreatedAt never change after creation; gateways keep the
// stored values on Update.
type Transcript struct {
	ID           string            `json:"id"`
	OriginalText string            `json:"original_text"`
	EditedText   string            `json:"edited_text"`
	CreatedAt    time.Time         `json:"created_at"`
	UpdatedAt    time.Time         `json:"updated_at"`
	Metadata     RecordingMetadata `json:"metadata"`
}

// NewTranscript creates a transcript with a fresh id whose edited text
// starts out equal to original.
func NewTranscript(original string, meta RecordingMetadata, now time.Time) Transcript {
	return Transcript{
		ID:           uuid.NewString(),
		OriginalText: original,
		EditedText:   original,
		CreatedAt:    now,
		UpdatedAt:    now,
		Metadata:     meta,
	}
}

// IsEdited reports whether the edited text diverged from the original.
func (t Transcript) IsEdited() bool {
	return t.EditedText != t.OriginalText
}

// DisplayText is the text shown to the user.
func (t Transcript) DisplayText() string {
	if t.EditedText == "" {
		return t.OriginalText
	}
	return t.EditedText
}

// merge applies an update onto the stored record.
func merge(stored, next Transcript) Transcript {
	next.OriginalText = stored.OriginalText
	next.CreatedAt = stored.CreatedAt
	return next
}
