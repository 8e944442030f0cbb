package web

import (
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/goccy/go-json"

	"foryou/internal/domain"
	"foryou/internal/feed"
)

// ErrNotReady is returned by a Voice that has no session controller yet.
var ErrNotReady = errors.New("voice control is not initialized")

// SSE event names.
const (
	EventState      = "state"
	EventTranscript = "transcript"
	EventFinal      = "final"
	EventError      = "error"
)

// TextPayload carries transcript text.
type TextPayload struct {
	Text string `json:"text"`
}

// ErrorPayload carries a user-facing error.
type ErrorPayload struct {
	Code    domain.ErrorCode `json:"code"`
	Message string           `json:"message"`
	Detail  string           `json:"detail,omitempty"`
}

type pageData struct {
	Nav     feed.Nav
	Updates []domain.Update
	Status  domain.Status
}

func (s *Server) handlePage(c *gin.Context) {
	ctx := c.Request.Context()
	c.HTML(http.StatusOK, "for_you.html", pageData{
		Nav:     s.feed.Nav(ctx),
		Updates: s.feed.Updates(ctx),
		Status:  s.voice.Status(),
	})
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *Server) handleUpdates(c *gin.Context) {
	c.JSON(http.StatusOK, s.feed.Updates(c.Request.Context()))
}

func (s *Server) handleStatus(c *gin.Context) {
	c.JSON(http.StatusOK, s.voice.Status())
}

func (s *Server) handleToggle(c *gin.Context) {
	status, err := s.voice.Toggle()
	if err != nil {
		code := http.StatusBadGateway
		if errors.Is(err, ErrNotReady) {
			code = http.StatusServiceUnavailable
		}
		c.JSON(code, gin.H{"error": err.Error(), "status": status})
		return
	}
	c.JSON(http.StatusOK, status)
}

func (s *Server) handleEvents(c *gin.Context) {
	_, events, cancel := s.hub.Subscribe()
	defer cancel()

	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")

	initial, err := json.Marshal(s.voice.Status())
	if err != nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}
	c.SSEvent(EventState, string(initial))
	c.Writer.Flush()

	keepAlive := time.NewTicker(s.cfg.KeepAlive)
	defer keepAlive.Stop()

	ctx := c.Request.Context()
	c.Stream(func(w io.Writer) bool {
		select {
		case <-ctx.Done():
			return false
		case event, ok := <-events:
			if !ok {
				return false
			}
			c.SSEvent(event.Name, string(event.Data))
			return true
		case <-keepAlive.C:
			_, _ = io.WriteString(w, ": keepalive\n\n")
			return true
		}
	})
}
