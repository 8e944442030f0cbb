package usecase

import (
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"foryou/internal/domain"
	"foryou/internal/logger"
	"foryou/internal/ports"
)

var ErrNoActiveSession = errors.New("no active recognition session")

// FallbackPolicy picks a replacement locale after an engine error.
type FallbackPolicy interface {
	Decide(failedLocale string, kind domain.EngineErrorKind) (string, bool)
}

// Config controls recognition behavior.
type Config struct {
	Locale         string
	InterimResults bool
}

// SessionController owns the recognition engine and drives one dictation
// session at a time. Engine events and UI calls are serialized by mu.
//
// The EventSink is called while mu is held and must not block or call back
// into the controller.
type SessionController struct {
	engine ports.RecognitionEngine
	policy FallbackPolicy
	events ports.EventSink
	log    *logger.Logger
	cfg    Config

	mu              sync.Mutex
	state           domain.SessionState
	reason          domain.SessionStateReason
	message         string
	currentLocale   string
	pendingFallback string
	engineActive    bool
	listener        *sessionListener
	transcript      *transcriptAccumulator
}

func NewSessionController(
	engine ports.RecognitionEngine,
	policy FallbackPolicy,
	events ports.EventSink,
	log *logger.Logger,
	cfg Config,
) *SessionController {
	if log == nil {
		log = logger.Nop()
	}
	return &SessionController{
		engine:        engine,
		policy:        policy,
		events:        events,
		log:           log.WithComponent("session"),
		cfg:           cfg,
		state:         domain.SessionStateIdle,
		reason:        domain.SessionReasonIdle,
		message:       statusMessage(domain.SessionReasonIdle, "", ""),
		currentLocale: cfg.Locale,
		transcript:    newTranscriptAccumulator(),
	}
}

// Toggle starts a session when idle and requests a stop otherwise.
func (c *SessionController) Toggle() (domain.Status, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var err error
	switch c.state {
	case domain.SessionStateIdle:
		err = c.beginLocked()
	case domain.SessionStateListening:
		err = c.requestStopLocked(domain.SessionReasonStopRequested)
	case domain.SessionStateStoppingForFallback:
		c.log.Info("pending fallback cancelled by user", map[string]interface{}{
			logger.FieldLocale: c.pendingFallback,
		})
		c.pendingFallback = ""
		c.state = domain.SessionStateListening
		err = c.requestStopLocked(domain.SessionReasonFallbackCancelled)
	}
	return c.statusLocked(), err
}

// Close stops an in-flight session, dropping any pending fallback.
func (c *SessionController) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state == domain.SessionStateIdle {
		return ErrNoActiveSession
	}
	c.pendingFallback = ""
	c.state = domain.SessionStateListening
	return c.requestStopLocked(domain.SessionReasonStopRequested)
}

// Status returns the current session status.
func (c *SessionController) Status() domain.Status {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.statusLocked()
}

// DisplayText returns the merged transcript of the current or last session.
func (c *SessionController) DisplayText() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.transcript.DisplayText()
}

func (c *SessionController) beginLocked() error {
	c.transcript.Reset()
	c.pendingFallback = ""
	c.events.TranscriptUpdated("")

	if err := c.startEngineLocked(); err != nil {
		c.log.WithError(err).Warn("recognition start failed", map[string]interface{}{
			logger.FieldLocale: c.currentLocale,
		})
		c.setStateLocked(domain.SessionStateIdle, domain.SessionReasonStartFailed, err.Error())
		c.events.SessionError(domain.ErrorCodeEngineStart, err.Error())
		return fmt.Errorf("start recognition: %w", err)
	}

	c.setStateLocked(domain.SessionStateListening, domain.SessionReasonStartRequested, "")
	return nil
}

// startEngineLocked starts the engine with a fresh listener. The listener is
// installed only when the engine accepts the start. Sessions are never
// continuous so listening ends by itself after a pause.
func (c *SessionController) startEngineLocked() error {
	listener := &sessionListener{controller: c, id: uuid.NewString()}
	err := c.engine.Start(ports.RecognitionConfig{
		Lang:           c.currentLocale,
		InterimResults: c.cfg.InterimResults,
		Continuous:     false,
	}, listener)
	if err != nil {
		return err
	}

	c.listener = listener
	c.engineActive = false
	c.log.Info("recognition started", map[string]interface{}{
		logger.FieldSessionID: listener.id,
		logger.FieldLocale:    c.currentLocale,
	})
	return nil
}

func (c *SessionController) requestStopLocked(reason domain.SessionStateReason) error {
	if err := c.engine.Stop(); err != nil {
		c.log.WithError(err).Warn("recognition stop failed")
		c.events.SessionError(domain.ErrorCodeEngineStop, err.Error())
		return fmt.Errorf("stop recognition: %w", err)
	}
	c.setStateLocked(c.state, reason, "")
	return nil
}

func (c *SessionController) handleStart(l *sessionListener) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.currentLocked(l) {
		return
	}

	c.engineActive = true
	if c.state != domain.SessionStateListening {
		return
	}
	reason := domain.SessionReasonListening
	if c.reason == domain.SessionReasonListeningFallback {
		reason = domain.SessionReasonListeningFallback
	}
	c.setStateLocked(domain.SessionStateListening, reason, "")
}

func (c *SessionController) handleResult(l *sessionListener, event domain.ResultEvent) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.currentLocked(l) {
		return
	}

	c.events.TranscriptUpdated(c.transcript.Merge(event))
}

func (c *SessionController) handleError(l *sessionListener, kind domain.EngineErrorKind, message string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.currentLocked(l) {
		return
	}

	c.log.Warn("recognition error", map[string]interface{}{
		logger.FieldSessionID: l.id,
		logger.FieldLocale:    c.currentLocale,
		"kind":                string(kind),
		"detail":              message,
	})

	if kind != domain.EngineErrorLanguageNotSupported {
		c.setStateLocked(c.state, domain.SessionReasonEngineError, errorDetail(kind, message))
		c.events.SessionError(domain.ErrorCodeEngine, errorDetail(kind, message))
		return
	}

	if c.state == domain.SessionStateStoppingForFallback {
		return
	}

	candidate, ok := c.policy.Decide(c.currentLocale, kind)
	if !ok {
		c.setStateLocked(c.state, domain.SessionReasonLanguageNotSupported, "")
		c.events.SessionError(domain.ErrorCodeUnsupportedLocale, c.currentLocale)
		return
	}

	if c.engineActive {
		if err := c.engine.Stop(); err != nil {
			c.log.WithError(err).Warn("stop for fallback failed")
			c.setStateLocked(c.state, domain.SessionReasonFallbackStartFailed, err.Error())
			c.events.SessionError(domain.ErrorCodeEngineStop, err.Error())
			return
		}
		c.pendingFallback = candidate
		c.setStateLocked(domain.SessionStateStoppingForFallback, domain.SessionReasonTryingFallback, candidate)
		return
	}

	c.restartWithLocked(candidate)
}

func (c *SessionController) handleEnd(l *sessionListener) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.currentLocked(l) {
		return
	}

	c.engineActive = false
	c.log.Info("recognition ended", map[string]interface{}{logger.FieldSessionID: l.id})

	if c.pendingFallback != "" {
		candidate := c.pendingFallback
		c.pendingFallback = ""
		c.restartWithLocked(candidate)
		return
	}

	c.setStateLocked(domain.SessionStateIdle, domain.SessionReasonIdle, "")
	if final := c.transcript.FinalText(); final != "" {
		c.events.FinalTranscript(final)
	}
}

// restartWithLocked applies candidate as the current locale and starts a new
// engine session. A failed start settles the controller in idle.
func (c *SessionController) restartWithLocked(candidate string) {
	previous := c.currentLocale
	c.currentLocale = candidate

	if err := c.startEngineLocked(); err != nil {
		c.log.WithError(err).Warn("fallback start failed", map[string]interface{}{
			logger.FieldLocale: candidate,
			"previous_locale":  previous,
		})
		c.setStateLocked(domain.SessionStateIdle, domain.SessionReasonFallbackStartFailed, err.Error())
		c.events.SessionError(domain.ErrorCodeEngineStart, err.Error())
		return
	}

	c.setStateLocked(domain.SessionStateListening, domain.SessionReasonListeningFallback, "")
}

func (c *SessionController) currentLocked(l *sessionListener) bool {
	if c.listener == l {
		return true
	}
	c.log.Debug("ignoring event from superseded session", map[string]interface{}{
		logger.FieldSessionID: l.id,
	})
	return false
}

func (c *SessionController) setStateLocked(state domain.SessionState, reason domain.SessionStateReason, detail string) {
	c.state = state
	c.reason = reason
	c.message = statusMessage(reason, c.currentLocale, detail)
	c.events.SessionStateChanged(c.statusLocked())
}

func (c *SessionController) statusLocked() domain.Status {
	status := domain.Status{
		State:       c.state,
		Reason:      c.reason,
		Active:      c.state != domain.SessionStateIdle,
		Locale:      c.currentLocale,
		Message:     c.message,
		DisplayText: c.transcript.DisplayText(),
	}
	if c.listener != nil && status.Active {
		status.SessionID = c.listener.id
	}
	return status
}

// sessionListener routes engine callbacks of one session to the controller.
type sessionListener struct {
	controller *SessionController
	id         string
}

func (l *sessionListener) OnStart() { l.controller.handleStart(l) }

func (l *sessionListener) OnEnd() { l.controller.handleEnd(l) }

func (l *sessionListener) OnResult(event domain.ResultEvent) {
	l.controller.handleResult(l, event)
}

func (l *sessionListener) OnError(kind domain.EngineErrorKind, message string) {
	l.controller.handleError(l, kind, message)
}
