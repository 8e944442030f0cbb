package deepgram

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"

	"github.com/goccy/go-json"
	"github.com/gorilla/websocket"

	"foryou/internal/domain"
)

// errSendClosed is returned by SendAudio after CloseSend.
var errSendClosed = errors.New("audio stream is already closed")

// transcriptMessage is one decoded Deepgram result.
type transcriptMessage struct {
	Text        string
	IsFinal     bool
	SpeechFinal bool
}

// DialError is a websocket handshake failure classified as an engine error kind.
type DialError struct {
	Kind       domain.EngineErrorKind
	StatusCode int
	Body       string
	Err        error
}

func (e *DialError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("deepgram handshake failed with status %d: %s", e.StatusCode, e.Body)
	}
	return fmt.Sprintf("failed to connect to Deepgram websocket: %v", e.Err)
}

func (e *DialError) Unwrap() error { return e.Err }

func dialStream(ctx context.Context, dialer *websocket.Dialer, wsURL string, apiKey string) (*streamingSession, error) {
	headers := http.Header{}
	headers.Set("Authorization", "Token "+apiKey)

	conn, resp, err := dialer.DialContext(ctx, wsURL, headers)
	if err != nil {
		return nil, classifyDialError(resp, err)
	}

	session := &streamingSession{
		conn:   conn,
		events: make(chan transcriptMessage, 64),
		audio:  make(chan []byte, 32),
		done:   make(chan struct{}),
	}

	session.wg.Add(2)
	go session.readLoop()
	go session.writeLoop()
	go func() {
		session.wg.Wait()
		close(session.events)
		close(session.done)
		_ = conn.Close()
	}()

	return session, nil
}

func classifyDialError(resp *http.Response, err error) *DialError {
	if resp == nil {
		return &DialError{Kind: domain.EngineErrorNetwork, Err: err}
	}
	defer resp.Body.Close()

	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	body := strings.TrimSpace(string(raw))
	dialErr := &DialError{Kind: domain.EngineErrorNetwork, StatusCode: resp.StatusCode, Body: body, Err: err}

	switch {
	case resp.StatusCode == http.StatusBadRequest && strings.Contains(strings.ToLower(body), "language"):
		dialErr.Kind = domain.EngineErrorLanguageNotSupported
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		dialErr.Kind = domain.EngineErrorNotAllowed
	}
	return dialErr
}

type streamingSession struct {
	conn *websocket.Conn

	events chan transcriptMessage
	audio  chan []byte
	done   chan struct{}

	wg sync.WaitGroup

	errMu sync.Mutex
	err   error

	closeSendOnce sync.Once
	closeOnce     sync.Once
	sendMu        sync.RWMutex
	sendClosed    bool
}

func (s *streamingSession) SendAudio(chunk []byte) error {
	if len(chunk) == 0 {
		return nil
	}

	s.sendMu.RLock()
	defer s.sendMu.RUnlock()
	if s.sendClosed {
		return errSendClosed
	}

	copied := append([]byte(nil), chunk...)
	select {
	case s.audio <- copied:
		return nil
	case <-s.done:
		if err := s.waitErr(); err != nil {
			return err
		}
		return errors.New("session closed")
	}
}

// CloseSend stops accepting audio and asks Deepgram to flush and close.
func (s *streamingSession) CloseSend() error {
	s.closeSendOnce.Do(func() {
		s.sendMu.Lock()
		s.sendClosed = true
		close(s.audio)
		s.sendMu.Unlock()
	})
	return nil
}

func (s *streamingSession) Events() <-chan transcriptMessage {
	return s.events
}

func (s *streamingSession) Wait() error {
	<-s.done
	return s.waitErr()
}

func (s *streamingSession) Close() error {
	s.closeOnce.Do(func() {
		_ = s.CloseSend()
		_ = s.conn.Close()
	})
	<-s.done
	return s.waitErr()
}

func (s *streamingSession) waitErr() error {
	s.errMu.Lock()
	defer s.errMu.Unlock()
	return s.err
}

func (s *streamingSession) setErr(err error) {
	if err == nil {
		return
	}
	if websocket.IsCloseError(err,
		websocket.CloseNormalClosure,
		websocket.CloseGoingAway,
		websocket.CloseNoStatusReceived,
	) {
		return
	}

	s.errMu.Lock()
	defer s.errMu.Unlock()
	if s.err == nil {
		s.err = err
	}
}

func (s *streamingSession) writeLoop() {
	defer s.wg.Done()

	for chunk := range s.audio {
		if err := s.conn.WriteMessage(websocket.BinaryMessage, chunk); err != nil {
			s.setErr(fmt.Errorf("failed to send audio: %w", err))
			_ = s.conn.Close()
			return
		}
	}

	if err := s.conn.WriteMessage(websocket.TextMessage, []byte(`{"type":"CloseStream"}`)); err != nil {
		s.setErr(fmt.Errorf("failed to close stream: %w", err))
	}
}

func (s *streamingSession) readLoop() {
	defer s.wg.Done()

	for {
		_, payload, err := s.conn.ReadMessage()
		if err != nil {
			if errors.Is(err, net.ErrClosed) {
				return
			}
			s.setErr(fmt.Errorf("failed to read provider event: %w", err))
			return
		}

		var response deepgramResponse
		if err := json.Unmarshal(payload, &response); err != nil {
			continue
		}

		if strings.EqualFold(response.Type, "Error") {
			message := strings.TrimSpace(response.Message)
			if message == "" {
				message = "deepgram returned an unknown error"
			}
			s.setErr(errors.New(message))
			return
		}
		if response.Type != "" && !strings.EqualFold(response.Type, "Results") {
			continue
		}

		s.emit(transcriptMessage{
			Text:        extractTranscript(response),
			IsFinal:     response.IsFinal || response.SpeechFinal,
			SpeechFinal: response.SpeechFinal,
		})
	}
}

// emit blocks until the consumer reads; consumers drain Events until closed.
func (s *streamingSession) emit(msg transcriptMessage) {
	s.events <- msg
}

type deepgramResponse struct {
	Type        string `json:"type"`
	Message     string `json:"message"`
	IsFinal     bool   `json:"is_final"`
	SpeechFinal bool   `json:"speech_final"`

	Channel struct {
		Alternatives []struct {
			Transcript string `json:"transcript"`
		} `json:"alternatives"`
	} `json:"channel"`
}

func extractTranscript(response deepgramResponse) string {
	if len(response.Channel.Alternatives) == 0 {
		return ""
	}
	return strings.TrimSpace(response.Channel.Alternatives[0].Transcript)
}

// StreamConfig holds the audio parameters sent with the listen request.
type StreamConfig struct {
	Encoding       string
	SampleRate     int
	Channels       int
	InterimResults bool
	Language       string
	EndpointingMS  int
}

func buildListenURL(cfg Config, stream StreamConfig) (string, error) {
	base := strings.TrimSpace(cfg.APIBaseURL)
	if base == "" {
		base = defaultAPIBaseURL
	}

	if strings.HasPrefix(base, "https://") {
		base = "wss://" + strings.TrimPrefix(base, "https://")
	} else if strings.HasPrefix(base, "http://") {
		base = "ws://" + strings.TrimPrefix(base, "http://")
	}
	base = strings.TrimRight(base, "/")

	listenURL, err := url.Parse(base + "/listen")
	if err != nil {
		return "", fmt.Errorf("invalid Deepgram API base URL: %w", err)
	}

	if stream.Encoding == "" {
		stream.Encoding = "linear16"
	}
	if stream.SampleRate <= 0 {
		stream.SampleRate = 16000
	}
	if stream.Channels <= 0 {
		stream.Channels = 1
	}

	query := listenURL.Query()
	query.Set("model", cfg.Model)
	query.Set("encoding", stream.Encoding)
	query.Set("sample_rate", strconv.Itoa(stream.SampleRate))
	query.Set("channels", strconv.Itoa(stream.Channels))
	query.Set("interim_results", strconv.FormatBool(stream.InterimResults))
	query.Set("smart_format", strconv.FormatBool(cfg.SmartFormat))
	if stream.Language != "" {
		query.Set("language", stream.Language)
	}
	if stream.EndpointingMS > 0 {
		query.Set("endpointing", strconv.Itoa(stream.EndpointingMS))
	}
	listenURL.RawQuery = query.Encode()
	return listenURL.String(), nil
}
