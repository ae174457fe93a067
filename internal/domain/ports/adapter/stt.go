package adapter

import "context"

// TargetSpec describes the audio format a provider wants its input in.
// The converter normalizes every job to the selected provider's spec.
type TargetSpec struct {
	Codec      string // ffmpeg codec name, e.g. "pcm_s16le", "flac"
	Container  string // ffmpeg format/extension, e.g. "wav", "flac", "ogg"
	SampleRate int
	Channels   int
}

// MimeType maps the container to the upload content type.
func (s TargetSpec) MimeType() string {
	switch s.Container {
	case "wav":
		return "audio/wav"
	case "flac":
		return "audio/flac"
	case "mp3":
		return "audio/mpeg"
	case "ogg":
		return "audio/ogg"
	case "m4a", "mp4":
		return "audio/mp4"
	default:
		return "application/octet-stream"
	}
}

// TranscribeRequest is a discrete audio file ready for a provider call.
type TranscribeRequest struct {
	AudioPath    string
	MimeType     string
	LanguageHint string // BCP-47 tag, empty when unknown
}

// Transcript is a provider-independent transcription result.
type Transcript struct {
	Text     string
	Language string // detected language when the provider reports one
}

// Transcriber is the capability every STT backend implements. Adding a
// backend means adding one implementation; the pipeline stays untouched.
type Transcriber interface {
	Name() string

	// InputSpec returns the audio format this backend requires.
	InputSpec() TargetSpec

	// Transcribe sends one audio file and returns its transcript. Errors are
	// classified into the domain taxonomy (rate limited, auth failed,
	// unsupported, transient) by the implementation.
	Transcribe(ctx context.Context, req TranscribeRequest) (*Transcript, error)
}
