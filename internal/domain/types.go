package domain

// SessionState models the dictation lifecycle.
type SessionState string

const (
	SessionStateIdle                SessionState = "idle"
	SessionStateListening           SessionState = "listening"
	SessionStateStoppingForFallback SessionState = "stopping_for_fallback"
)

// SessionStateReason provides a structured reason for state transitions.
type SessionStateReason string

const (
	SessionReasonIdle                 SessionStateReason = "idle"
	SessionReasonStartRequested       SessionStateReason = "start_requested"
	SessionReasonListening            SessionStateReason = "listening"
	SessionReasonListeningFallback    SessionStateReason = "listening_fallback"
	SessionReasonStopRequested        SessionStateReason = "stop_requested"
	SessionReasonTryingFallback       SessionStateReason = "trying_fallback"
	SessionReasonFallbackCancelled    SessionStateReason = "fallback_cancelled"
	SessionReasonFallbackStartFailed  SessionStateReason = "fallback_start_failed"
	SessionReasonStartFailed          SessionStateReason = "start_failed"
	SessionReasonLanguageNotSupported SessionStateReason = "language_not_supported"
	SessionReasonEngineError          SessionStateReason = "engine_error"
)

// ErrorCode identifies failures reported to the UI and to logs.
type ErrorCode string

const (
	ErrorCodeRetrieval         ErrorCode = "retrieval_failure"
	ErrorCodeParse             ErrorCode = "parse_failure"
	ErrorCodeEngineStart       ErrorCode = "engine_start"
	ErrorCodeEngineStop        ErrorCode = "engine_stop"
	ErrorCodeUnsupportedLocale ErrorCode = "unsupported_locale"
	ErrorCodeEngine            ErrorCode = "engine_error"
	ErrorCodeAudioStream       ErrorCode = "audio_stream"
)

// EngineErrorKind is the error identifier reported by a recognition engine.
// Values follow the Web Speech API error names.
type EngineErrorKind string

const (
	EngineErrorLanguageNotSupported EngineErrorKind = "language-not-supported"
	EngineErrorNoSpeech             EngineErrorKind = "no-speech"
	EngineErrorAborted              EngineErrorKind = "aborted"
	EngineErrorAudioCapture         EngineErrorKind = "audio-capture"
	EngineErrorNetwork              EngineErrorKind = "network"
	EngineErrorNotAllowed           EngineErrorKind = "not-allowed"
)

// RecognitionResult is one recognized entry of a result event.
type RecognitionResult struct {
	Transcript string `json:"transcript"`
	IsFinal    bool   `json:"isFinal"`
}

// ResultEvent carries the engine's full result list for the session.
// Entries before Index are unchanged since the previous event.
type ResultEvent struct {
	Index   int                 `json:"resultIndex"`
	Results []RecognitionResult `json:"results"`
}

// Status summarizes the current dictation state for rendering.
type Status struct {
	State       SessionState       `json:"state"`
	Reason      SessionStateReason `json:"reason,omitempty"`
	Active      bool               `json:"active"`
	Locale      string             `json:"locale"`
	SessionID   string             `json:"sessionId,omitempty"`
	Message     string             `json:"message"`
	DisplayText string             `json:"displayText"`
}

// Update is one personalized feed record.
type Update struct {
	ID      int    `json:"id"`
	Title   string `json:"title"`
	Message string `json:"message"`
}

// NavLink is one entry of the shared navigation fragment.
type NavLink struct {
	ID    string `json:"id,omitempty"`
	Href  string `json:"href"`
	Label string `json:"label"`
}
