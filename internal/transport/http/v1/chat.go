package v1

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/KaanK026/Harvia/internal/domain"
	"github.com/KaanK026/Harvia/internal/service"
	"github.com/KaanK026/Harvia/internal/transport/http/middleware"
)

// HeaderSessionID carries the resolved session id of a chat response.
const HeaderSessionID = "X-Session-Id"

// Ask answers a question synchronously.
// POST /ask
func (h *Handler) Ask(c echo.Context) error {
	var req domain.QuestionRequest
	if err := c.Bind(&req); err != nil {
		return h.fail(c, domain.Invalid("invalid request body"), "")
	}

	resp, err := h.service.Ask(c.Request().Context(), middleware.UserID(c), req)
	if err != nil {
		return h.fail(c, err, req.SessionID)
	}

	c.Response().Header().Set(HeaderSessionID, resp.SessionID)
	return c.JSON(http.StatusOK, resp)
}

// AskStream answers a question as a Server-Sent-Events stream of fragments.
// Validation and readiness failures are answered before the stream starts.
// POST /ask-stream
func (h *Handler) AskStream(c echo.Context) error {
	var req domain.QuestionRequest
	if err := c.Bind(&req); err != nil {
		return h.fail(c, domain.Invalid("invalid request body"), "")
	}

	stream, err := h.service.OpenStream(middleware.UserID(c), req, service.ModeSSE)
	if err != nil {
		return h.fail(c, err, req.SessionID)
	}

	flusher, ok := c.Response().Writer.(http.Flusher)
	if !ok {
		return h.fail(c, domain.Internal("streaming not supported", nil), stream.SessionID())
	}

	header := c.Response().Header()
	header.Set(echo.HeaderContentType, "text/event-stream")
	header.Set("Cache-Control", "no-cache")
	header.Set("Connection", "keep-alive")
	header.Set("X-Accel-Buffering", "no")
	header.Set(HeaderSessionID, stream.SessionID())
	header.Set(echo.HeaderAccessControlExposeHeaders, HeaderSessionID)
	c.Response().WriteHeader(http.StatusOK)
	flusher.Flush()

	sink := &sseSink{w: c.Response(), flusher: flusher}

	ctx, cancel := context.WithCancel(c.Request().Context())
	defer cancel()

	var wg sync.WaitGroup
	if h.heartbeat > 0 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			sink.heartbeat(ctx, h.heartbeat, cancel)
		}()
	}

	if err := stream.Run(ctx, sink); err != nil {
		h.log.Debug("stream ended early", zap.String("session_id", stream.SessionID()), zap.Error(err))
	}
	cancel()
	wg.Wait()
	return nil
}

// sseSink writes fragments as SSE data lines. Writes are serialized so the
// heartbeat never interleaves with a fragment.
type sseSink struct {
	mu      sync.Mutex
	w       http.ResponseWriter
	flusher http.Flusher
}

func (s *sseSink) Send(f domain.Fragment) error {
	data, err := json.Marshal(f)
	if err != nil {
		return err
	}
	return s.write(fmt.Sprintf("data: %s\n\n", data))
}

func (s *sseSink) write(frame string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, err := fmt.Fprint(s.w, frame); err != nil {
		return err
	}
	s.flusher.Flush()
	return nil
}

// heartbeat writes a comment line every interval until ctx is done. A failed
// write means the client is gone and cancels the stream.
func (s *sseSink) heartbeat(ctx context.Context, interval time.Duration, cancel context.CancelFunc) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := s.write(": ping\n\n"); err != nil {
				cancel()
				return
			}
		}
	}
}
