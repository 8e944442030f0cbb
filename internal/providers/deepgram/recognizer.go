// Package deepgram implements the recognition engine on top of microphone
// capture and the Deepgram live-transcription websocket.
package deepgram

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"foryou/internal/domain"
	"foryou/internal/logger"
	"foryou/internal/ports"
)

const (
	defaultAPIBaseURL   = "https://api.deepgram.com/v1"
	defaultModel        = "nova-2"
	defaultChunkSize    = 4096
	defaultDrainTimeout = 4 * time.Second
)

// Config controls the Deepgram connection and audio capture.
type Config struct {
	APIKey        string
	APIBaseURL    string
	Model         string
	SmartFormat   bool
	EndpointingMS int
	ChunkSize     int
	Audio         ports.AudioConfig
	DrainTimeout  time.Duration
}

// Recognizer implements ports.RecognitionEngine. It runs at most one session;
// Start fails with ports.ErrEngineBusy until the previous session has ended.
type Recognizer struct {
	cfg     Config
	capture ports.AudioCapture
	dialer  *websocket.Dialer
	log     *logger.Logger

	mu     sync.Mutex
	active *recognition
}

func NewRecognizer(cfg Config, capture ports.AudioCapture, log *logger.Logger) *Recognizer {
	if cfg.APIBaseURL == "" {
		cfg.APIBaseURL = defaultAPIBaseURL
	}
	if cfg.Model == "" {
		cfg.Model = defaultModel
	}
	if cfg.ChunkSize < 256 {
		cfg.ChunkSize = defaultChunkSize
	}
	if cfg.DrainTimeout <= 0 {
		cfg.DrainTimeout = defaultDrainTimeout
	}
	if log == nil {
		log = logger.Nop()
	}
	return &Recognizer{
		cfg:     cfg,
		capture: capture,
		dialer:  websocket.DefaultDialer,
		log:     log.WithComponent("deepgram"),
	}
}

type recognition struct {
	stopOnce sync.Once
	stopC    chan struct{}
}

func (r *recognition) requestStop() {
	r.stopOnce.Do(func() { close(r.stopC) })
}

func (r *recognition) stopped() bool {
	select {
	case <-r.stopC:
		return true
	default:
		return false
	}
}

// Start begins a session in the background. Events are delivered to listener
// from the session goroutine.
func (r *Recognizer) Start(cfg ports.RecognitionConfig, listener ports.RecognitionListener) error {
	if strings.TrimSpace(r.cfg.APIKey) == "" {
		return errors.New("DEEPGRAM_API_KEY is not configured")
	}
	wsURL, err := buildListenURL(r.cfg, StreamConfig{
		SampleRate:     r.cfg.Audio.SampleRate,
		Channels:       r.cfg.Audio.Channels,
		InterimResults: cfg.InterimResults,
		Language:       cfg.Lang,
		EndpointingMS:  r.cfg.EndpointingMS,
	})
	if err != nil {
		return err
	}

	r.mu.Lock()
	if r.active != nil {
		r.mu.Unlock()
		return ports.ErrEngineBusy
	}
	rec := &recognition{stopC: make(chan struct{})}
	r.active = rec
	r.mu.Unlock()

	go r.run(rec, wsURL, cfg, listener)
	return nil
}

// Stop asks the active session to finish; it returns immediately and the
// session reports OnEnd once audio is flushed. Stop without a session is a no-op.
func (r *Recognizer) Stop() error {
	r.mu.Lock()
	rec := r.active
	r.mu.Unlock()

	if rec != nil {
		rec.requestStop()
	}
	return nil
}

func (r *Recognizer) run(rec *recognition, wsURL string, cfg ports.RecognitionConfig, listener ports.RecognitionListener) {
	ctx, cancel := context.WithCancel(context.Background())
	log := r.log.WithFields(map[string]interface{}{logger.FieldLocale: cfg.Lang})

	defer func() {
		cancel()
		r.mu.Lock()
		if r.active == rec {
			r.active = nil
		}
		r.mu.Unlock()
		listener.OnEnd()
	}()

	audioSession, err := r.capture.Start(ctx, r.cfg.Audio)
	if err != nil {
		log.WithError(err).Warn("audio capture failed")
		listener.OnError(domain.EngineErrorAudioCapture, err.Error())
		return
	}
	defer func() { _ = audioSession.Stop() }()

	listener.OnStart()

	dialCtx, cancelDial := context.WithCancel(ctx)
	go func() {
		select {
		case <-rec.stopC:
			cancelDial()
		case <-dialCtx.Done():
		}
	}()
	stream, err := dialStream(dialCtx, r.dialer, wsURL, r.cfg.APIKey)
	cancelDial()
	if err != nil {
		if rec.stopped() {
			return
		}
		kind := domain.EngineErrorNetwork
		var dialErr *DialError
		if errors.As(err, &dialErr) {
			kind = dialErr.Kind
		}
		log.WithError(err).Warn("deepgram connection failed", map[string]interface{}{"kind": string(kind)})
		listener.OnError(kind, err.Error())
		return
	}

	pumpErr := make(chan error, 1)
	pumpDone := make(chan struct{})
	go pumpAudio(audioSession, stream, r.cfg.ChunkSize, pumpErr, pumpDone)
	defer func() {
		_ = audioSession.Stop()
		_ = stream.Close()
		<-pumpDone
	}()

	r.consume(rec, stream, cfg, listener, pumpErr, audioSession)
}

// consume forwards stream results until Deepgram closes the stream.
func (r *Recognizer) consume(
	rec *recognition,
	stream *streamingSession,
	cfg ports.RecognitionConfig,
	listener ports.RecognitionListener,
	pumpErr <-chan error,
	audioSession ports.AudioSession,
) {
	results := &resultList{}
	stopC := rec.stopC
	stopping := false
	var drain <-chan time.Time

	for {
		select {
		case <-stopC:
			stopC = nil
			stopping = true
			_ = audioSession.Stop()
			_ = stream.CloseSend()
			drain = time.After(r.cfg.DrainTimeout)

		case <-drain:
			drain = nil
			r.log.Warn("deepgram did not close the stream in time")
			go func() { _ = stream.Close() }()

		case err := <-pumpErr:
			pumpErr = nil
			if stopping {
				r.log.WithError(err).Debug("audio pump failed after stop")
				continue
			}
			listener.OnError(domain.EngineErrorAudioCapture, err.Error())
			rec.requestStop()

		case msg, ok := <-stream.Events():
			if !ok {
				if err := stream.Wait(); err != nil && !stopping {
					listener.OnError(domain.EngineErrorNetwork, err.Error())
				}
				return
			}
			event, changed := results.apply(msg)
			if changed {
				listener.OnResult(event)
			}
			if msg.SpeechFinal && !cfg.Continuous {
				rec.requestStop()
			}
		}
	}
}

// resultList mirrors the Web Speech results list: the trailing interim entry
// is replaced until Deepgram finalizes it.
type resultList struct {
	results []domain.RecognitionResult
}

func (l *resultList) apply(msg transcriptMessage) (domain.ResultEvent, bool) {
	index := len(l.results)
	hasInterim := index > 0 && !l.results[index-1].IsFinal
	if hasInterim {
		index--
	}

	if msg.Text == "" {
		if !msg.IsFinal || !hasInterim {
			return domain.ResultEvent{}, false
		}
		l.results = l.results[:index]
		return l.snapshot(index), true
	}

	text := msg.Text
	if index > 0 {
		text = " " + text
	}
	entry := domain.RecognitionResult{Transcript: text, IsFinal: msg.IsFinal}
	if hasInterim {
		l.results[index] = entry
	} else {
		l.results = append(l.results, entry)
	}
	return l.snapshot(index), true
}

func (l *resultList) snapshot(index int) domain.ResultEvent {
	out := make([]domain.RecognitionResult, len(l.results))
	copy(out, l.results)
	return domain.ResultEvent{Index: index, Results: out}
}
