package ports

import (
	"context"
	"errors"
	"io"

	"foryou/internal/domain"
)

// ErrEngineBusy is returned by RecognitionEngine.Start while a session is still active.
var ErrEngineBusy = errors.New("recognition engine already started")

// AudioConfig describes how the microphone should be captured.
type AudioConfig struct {
	SampleRate  int
	Channels    int
	InputFormat string
	InputDevice string
}

// AudioSession is a live capture session.
type AudioSession interface {
	io.ReadCloser
	Stop() error
}

// AudioCapture creates microphone capture sessions.
type AudioCapture interface {
	Start(ctx context.Context, cfg AudioConfig) (AudioSession, error)
}

// RecognitionConfig is applied to the engine on every start.
type RecognitionConfig struct {
	Lang           string
	InterimResults bool
	// Continuous=false ends the session automatically after a pause.
	Continuous bool
}

// RecognitionListener receives the events of one engine session.
//
// Engines must deliver events asynchronously: never from inside Start or Stop.
type RecognitionListener interface {
	OnStart()
	OnEnd()
	OnResult(event domain.ResultEvent)
	OnError(kind domain.EngineErrorKind, message string)
}

// RecognitionEngine is the speech-to-text capability driven by the session controller.
// Every successful Start is followed by exactly one OnEnd.
type RecognitionEngine interface {
	Start(cfg RecognitionConfig, listener RecognitionListener) error
	Stop() error
}

// EventSink emits session state and transcript updates to the UI.
type EventSink interface {
	SessionStateChanged(status domain.Status)
	TranscriptUpdated(text string)
	FinalTranscript(text string)
	SessionError(code domain.ErrorCode, detail string)
}
