package session

import (
	"github.com/rbright/scribe/internal/fsm"
	"github.com/rbright/scribe/internal/store"
)

// Status messages published by the engine.
const (
	StatusReady             = "Ready to record"
	StatusPreparing         = "Preparing..."
	StatusRecording         = "Recording"
	StatusRecordingOnDevice = "Recording (On-Device)"
	StatusListening         = "Listening..."
	StatusProcessing        = "Processing transcript..."
	StatusAnalyzing         = "Analyzing text..."
	StatusAnalyzingPartial  = "Analyzing interrupted text..."
	StatusSaved             = "Transcript saved"
	StatusInterrupted       = "Recording interrupted"
	StatusCancelled         = "Recording cancelled"
)

func errorStatus(err error) string {
	return "Error: " + err.Error()
}

// Snapshot is one mutually consistent view of the observable engine state.
// Snapshots are published in Seq order.
type Snapshot struct {
	Seq                 uint64             `json:"seq"`
	State               fsm.State          `json:"state"`
	IsRecording         bool               `json:"is_recording"`
	Editing             bool               `json:"editing"`
	IntelligentAnalysis bool               `json:"intelligent_analysis"`
	LiveText            string             `json:"live_text"`
	EditableText        string             `json:"editable_text"`
	StatusMessage       string             `json:"status_message"`
	TranscriptID        string             `json:"transcript_id,omitempty"`
	History             []store.Transcript `json:"history"`
	Notice              *Notice            `json:"notice,omitempty"`
}
