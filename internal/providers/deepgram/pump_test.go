package deepgram

import (
	"errors"
	"io"
	"os"
	"sync"
	"testing"
)

func TestPumpAudioForwardsChunksUntilEOF(t *testing.T) {
	t.Parallel()

	audio := &chunkAudioSession{chunks: [][]byte{[]byte("abc"), []byte("def")}, err: io.EOF}
	stream := &recordingSink{}
	errs := make(chan error, 1)
	done := make(chan struct{})

	go pumpAudio(audio, stream, 256, errs, done)
	<-done

	if got := stream.joined(); got != "abcdef" {
		t.Fatalf("unexpected audio sent: %q", got)
	}
	if len(errs) != 0 {
		t.Fatalf("expected clean exit, got %v", <-errs)
	}
}

func TestPumpAudioTreatsClosedCaptureAsCleanExit(t *testing.T) {
	t.Parallel()

	audio := &chunkAudioSession{err: os.ErrClosed}
	errs := make(chan error, 1)
	done := make(chan struct{})

	go pumpAudio(audio, &recordingSink{}, 256, errs, done)
	<-done

	if len(errs) != 0 {
		t.Fatalf("expected clean exit, got %v", <-errs)
	}
}

func TestPumpAudioReportsSendError(t *testing.T) {
	t.Parallel()

	audio := &chunkAudioSession{chunks: [][]byte{[]byte("abc")}, err: io.EOF}
	stream := &recordingSink{err: errors.New("send failed")}
	errs := make(chan error, 1)
	done := make(chan struct{})

	go pumpAudio(audio, stream, 256, errs, done)
	<-done

	select {
	case err := <-errs:
		if !errors.Is(err, stream.err) {
			t.Fatalf("unexpected error: %v", err)
		}
	default:
		t.Fatalf("expected send error")
	}
}

func TestPumpAudioReportsReadError(t *testing.T) {
	t.Parallel()

	readErr := errors.New("read failed")
	errs := make(chan error, 1)
	done := make(chan struct{})

	go pumpAudio(&chunkAudioSession{err: readErr}, &recordingSink{}, 256, errs, done)
	<-done

	select {
	case err := <-errs:
		if !errors.Is(err, readErr) {
			t.Fatalf("unexpected error: %v", err)
		}
	default:
		t.Fatalf("expected read error")
	}
}

func TestPumpAudioStopsQuietlyAfterCloseSend(t *testing.T) {
	t.Parallel()

	audio := &chunkAudioSession{chunks: [][]byte{[]byte("abc"), []byte("late")}, err: io.EOF}
	stream := &recordingSink{closeAfter: 1}
	errs := make(chan error, 1)
	done := make(chan struct{})

	go pumpAudio(audio, stream, 256, errs, done)
	<-done

	if got := stream.joined(); got != "abc" {
		t.Fatalf("unexpected audio sent: %q", got)
	}
	if len(errs) != 0 {
		t.Fatalf("expected chunk after CloseSend to be dropped silently, got %v", <-errs)
	}
	if audio.reads != 2 {
		t.Fatalf("expected pump to stop after the rejected chunk, got %d reads", audio.reads)
	}
}

func TestStreamingSessionRejectsAudioAfterCloseSend(t *testing.T) {
	t.Parallel()

	s := &streamingSession{audio: make(chan []byte, 1), done: make(chan struct{})}
	if err := s.CloseSend(); err != nil {
		t.Fatalf("close send failed: %v", err)
	}
	if err := s.SendAudio([]byte("late")); !errors.Is(err, errSendClosed) {
		t.Fatalf("expected errSendClosed, got %v", err)
	}
}

type chunkAudioSession struct {
	chunks [][]byte
	err    error
	reads  int
}

func (s *chunkAudioSession) Read(p []byte) (int, error) {
	s.reads++
	if len(s.chunks) == 0 {
		return 0, s.err
	}
	n := copy(p, s.chunks[0])
	s.chunks = s.chunks[1:]
	return n, nil
}

func (s *chunkAudioSession) Close() error { return nil }
func (s *chunkAudioSession) Stop() error  { return nil }

type recordingSink struct {
	mu         sync.Mutex
	err        error
	closeAfter int
	sent       [][]byte
}

func (s *recordingSink) SendAudio(chunk []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	if s.closeAfter > 0 && len(s.sent) >= s.closeAfter {
		return errSendClosed
	}
	s.sent = append(s.sent, append([]byte(nil), chunk...))
	return nil
}

func (s *recordingSink) joined() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []byte
	for _, chunk := range s.sent {
		out = append(out, chunk...)
	}
	return string(out)
}
