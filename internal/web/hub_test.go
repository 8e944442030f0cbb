package web

import (
	"testing"
)

func TestHubPublishReachesSubscribers(t *testing.T) {
	t.Parallel()

	hub := NewHub(nil)
	_, first, cancelFirst := hub.Subscribe()
	defer cancelFirst()
	_, second, cancelSecond := hub.Subscribe()
	defer cancelSecond()

	hub.Publish(EventFinal, TextPayload{Text: "done"})

	for _, ch := range []<-chan Event{first, second} {
		event := <-ch
		if event.Name != EventFinal || string(event.Data) != `{"text":"done"}` {
			t.Fatalf("unexpected event: %s %s", event.Name, event.Data)
		}
	}
	if hub.ClientCount() != 2 {
		t.Fatalf("expected 2 clients, got %d", hub.ClientCount())
	}
}

func TestHubPublishDoesNotBlockOnSlowSubscriber(t *testing.T) {
	t.Parallel()

	hub := NewHub(nil)
	_, events, cancel := hub.Subscribe()
	defer cancel()

	for i := 0; i < subscriberBuffer+10; i++ {
		hub.Publish(EventTranscript, TextPayload{Text: "x"})
	}
	if len(events) != subscriberBuffer {
		t.Fatalf("expected buffer to be full, got %d", len(events))
	}
}

func TestHubCancelAndClose(t *testing.T) {
	t.Parallel()

	hub := NewHub(nil)
	_, events, cancel := hub.Subscribe()
	cancel()
	cancel()

	if _, ok := <-events; ok {
		t.Fatalf("expected channel to be closed after cancel")
	}
	if hub.ClientCount() != 0 {
		t.Fatalf("expected no clients after cancel")
	}

	_, open, cancelOpen := hub.Subscribe()
	defer cancelOpen()
	hub.Close()
	hub.Close()
	if _, ok := <-open; ok {
		t.Fatalf("expected channel to be closed by Close")
	}

	_, late, _ := hub.Subscribe()
	if _, ok := <-late; ok {
		t.Fatalf("expected subscription after Close to be closed")
	}
}
