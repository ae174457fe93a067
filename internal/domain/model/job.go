package model

import "time"

type JobState string

const (
	JobStateQueued       JobState = "queued"
	JobStateFetching     JobState = "fetching"
	JobStateConverting   JobState = "converting"
	JobStateTranscribing JobState = "transcribing"
	JobStateDelivering   JobState = "delivering"
	JobStateSucceeded    JobState = "succeeded"
	JobStateFailed       JobState = "failed"
	JobStateCancelled    JobState = "cancelled"
)

// Terminal reports whether the state admits no further transitions.
func (s JobState) Terminal() bool {
	switch s {
	case JobStateSucceeded, JobStateFailed, JobStateCancelled:
		return true
	}
	return false
}

type InputKind string

const (
	InputKindVoice     InputKind = "voice"
	InputKindAudioFile InputKind = "audio_file"
	InputKindVideoFile InputKind = "video_file"
	InputKindVideoNote InputKind = "video_note"
	InputKindDocument  InputKind = "document"
)

// Job is one end-to-end transcription request. A job is mutated only by the
// worker currently holding it; other goroutines read it through ReadJob
// snapshots taken by the queue.
type Job struct {
	ID             string
	Source         SourceRef
	Kind           InputKind
	Filename       string
	SizeBytes      int64
	State          JobState
	Provider       string // immutable once assigned at admission
	Attempt        int    // attempts for the current stage; resets on advance
	CreatedAt      time.Time
	StageStartedAt time.Time
	LastError      string
}

// SourceRef is the opaque handle identifying the requester and the original
// file. It is owned by the transport adapter; the pipeline never looks inside.
type SourceRef interface{}

// ReadJob is an immutable snapshot of a Job for status queries.
type ReadJob struct {
	ID        string    `json:"id"`
	Kind      InputKind `json:"kind"`
	State     JobState  `json:"state"`
	Provider  string    `json:"provider"`
	Attempt   int       `json:"attempt"`
	CreatedAt time.Time `json:"created_at"`
	LastError string    `json:"last_error,omitempty"`
}

func (j *Job) Snapshot() ReadJob {
	return ReadJob{
		ID:        j.ID,
		Kind:      j.Kind,
		State:     j.State,
		Provider:  j.Provider,
		Attempt:   j.Attempt,
		CreatedAt: j.CreatedAt,
		LastError: j.LastError,
	}
}
