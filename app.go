package main

import (
	"errors"
	"sync"

	"foryou/internal/bootstrap"
	"foryou/internal/domain"
	"foryou/internal/logger"
	"foryou/internal/usecase"
	"foryou/internal/web"
)

// App is the application root. It drives the session controller for the web
// layer and fans controller events out to the SSE hub.
type App struct {
	hub *web.Hub
	log *logger.Logger

	mu         sync.RWMutex
	controller *usecase.SessionController
}

func NewApp(hub *web.Hub, log *logger.Logger) *App {
	if log == nil {
		log = logger.Nop()
	}
	return &App{hub: hub, log: log.WithComponent("app")}
}

func (a *App) attach(services bootstrap.Services) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.controller = services.Controller
}

// Toggle starts or stops dictation.
func (a *App) Toggle() (domain.Status, error) {
	controller, err := a.requireReady()
	if err != nil {
		return a.Status(), err
	}
	return controller.Toggle()
}

// Status returns the current session status.
func (a *App) Status() domain.Status {
	a.mu.RLock()
	controller := a.controller
	a.mu.RUnlock()

	if controller == nil {
		return domain.Status{State: domain.SessionStateIdle, Reason: domain.SessionReasonIdle, Message: "Idle"}
	}
	return controller.Status()
}

// shutdown stops an in-flight session.
func (a *App) shutdown() {
	controller, err := a.requireReady()
	if err != nil {
		return
	}
	if err := controller.Close(); err != nil && !errors.Is(err, usecase.ErrNoActiveSession) {
		a.log.WithError(err).Warn("failed to stop session on shutdown")
	}
}

func (a *App) requireReady() (*usecase.SessionController, error) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	if a.controller == nil {
		return nil, web.ErrNotReady
	}
	return a.controller, nil
}

// SessionStateChanged emits session lifecycle updates to the page.
func (a *App) SessionStateChanged(status domain.Status) {
	a.hub.Publish(web.EventState, status)
}

// TranscriptUpdated emits the merged live transcript.
func (a *App) TranscriptUpdated(text string) {
	a.hub.Publish(web.EventTranscript, web.TextPayload{Text: text})
}

// FinalTranscript emits the committed transcript of a finished session.
func (a *App) FinalTranscript(text string) {
	a.hub.Publish(web.EventFinal, web.TextPayload{Text: text})
}

// SessionError emits backend errors to the page.
func (a *App) SessionError(code domain.ErrorCode, detail string) {
	a.hub.Publish(web.EventError, web.ErrorPayload{
		Code:    code,
		Message: errorMessage(code, detail),
		Detail:  detail,
	})
}

func errorMessage(code domain.ErrorCode, detail string) string {
	switch code {
	case domain.ErrorCodeEngineStart:
		return "Could not start recording"
	case domain.ErrorCodeEngineStop:
		return "Could not stop recording"
	case domain.ErrorCodeUnsupportedLocale:
		return "Speech recognition language not supported by this engine."
	case domain.ErrorCodeEngine:
		return "Speech recognition error"
	case domain.ErrorCodeAudioStream:
		return "Audio streaming issue"
	case domain.ErrorCodeRetrieval:
		return "Could not load content"
	case domain.ErrorCodeParse:
		return "Content could not be read"
	default:
		if detail == "" {
			return "Unknown error"
		}
		return detail
	}
}
