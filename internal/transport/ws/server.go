// Package ws streams chat answers over WebSocket connections.
package ws

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/KaanK026/Harvia/internal/domain"
	"github.com/KaanK026/Harvia/internal/service"
	"github.com/KaanK026/Harvia/internal/transport/http/middleware"
)

// Message types sent by clients.
const (
	TypeAsk    = "ask"
	TypeCancel = "cancel"
)

const msgBusy = "A question is already being answered on this connection"

var errConnClosed = errors.New("connection closed")

// ClientMessage is a frame sent by the client.
type ClientMessage struct {
	Type      string `json:"type"`
	Question  string `json:"question,omitempty"`
	SessionID string `json:"session_id,omitempty"`
}

// Config holds the connection timings.
type Config struct {
	PingInterval   time.Duration
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
	MaxMessageSize int64
}

// DefaultConfig returns the timings used by the server.
func DefaultConfig() Config {
	return Config{
		PingInterval:   30 * time.Second,
		ReadTimeout:    60 * time.Second,
		WriteTimeout:   10 * time.Second,
		MaxMessageSize: 64 * 1024,
	}
}

// Server handles WebSocket connections.
type Server struct {
	service  *service.Service
	cfg      Config
	log      *zap.Logger
	upgrader websocket.Upgrader
}

// NewServer creates a new WebSocket server.
func NewServer(svc *service.Service, cfg Config, log *zap.Logger) *Server {
	if log == nil {
		log = zap.NewNop()
	}
	return &Server{
		service: svc,
		cfg:     cfg,
		log:     log.Named("ws"),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// Requests are authenticated by bearer token, not cookies.
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
}

// RegisterRoutes registers the WebSocket endpoint.
func (s *Server) RegisterRoutes(e *echo.Echo) {
	e.GET("/ws/ask", s.HandleWebSocket)
}

// HandleWebSocket upgrades the request and serves the connection until the
// client goes away.
func (s *Server) HandleWebSocket(c echo.Context) error {
	ws, err := s.upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		s.log.Warn("failed to upgrade websocket", zap.Error(err))
		return nil
	}

	ctx, cancel := context.WithCancel(context.Background())
	conn := &connection{
		id:     uuid.NewString(),
		uid:    middleware.UserID(c),
		ws:     ws,
		send:   make(chan []byte, 64),
		ctx:    ctx,
		cancel: cancel,
	}
	log := s.log.With(zap.String("conn_id", conn.id), zap.String("uid", conn.uid))
	log.Info("connection opened")

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		s.writePump(conn, log)
	}()

	s.readPump(conn, log)
	conn.cancel()
	conn.waitActive()
	wg.Wait()
	_ = ws.Close()

	log.Info("connection closed")
	return nil
}

// connection is one client socket. Only writePump writes to ws.
type connection struct {
	id     string
	uid    string
	ws     *websocket.Conn
	send   chan []byte
	ctx    context.Context
	cancel context.CancelFunc

	mu           sync.Mutex
	streamCancel context.CancelFunc
	streamDone   chan struct{}
}

// Send implements domain.FragmentSink.
func (c *connection) Send(f domain.Fragment) error {
	data, err := json.Marshal(f)
	if err != nil {
		return err
	}
	select {
	case c.send <- data:
		return nil
	case <-c.ctx.Done():
		return errConnClosed
	}
}

// cancelActive cancels the running stream, if any, and waits for it to end.
func (c *connection) cancelActive() {
	c.mu.Lock()
	cancel, done := c.streamCancel, c.streamDone
	c.mu.Unlock()
	if cancel == nil {
		return
	}
	cancel()
	<-done
}

func (c *connection) waitActive() {
	c.mu.Lock()
	done := c.streamDone
	c.mu.Unlock()
	if done != nil {
		<-done
	}
}

func (s *Server) readPump(conn *connection, log *zap.Logger) {
	conn.ws.SetReadLimit(s.cfg.MaxMessageSize)
	_ = conn.ws.SetReadDeadline(time.Now().Add(s.cfg.ReadTimeout))
	conn.ws.SetPongHandler(func(string) error {
		return conn.ws.SetReadDeadline(time.Now().Add(s.cfg.ReadTimeout))
	})

	for {
		_, data, err := conn.ws.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Warn("websocket read failed", zap.Error(err))
			}
			return
		}
		_ = conn.ws.SetReadDeadline(time.Now().Add(s.cfg.ReadTimeout))

		var msg ClientMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			s.notice(conn, "invalid JSON message")
			continue
		}

		switch msg.Type {
		case TypeAsk:
			s.handleAsk(conn, msg, log)
		case TypeCancel:
			conn.cancelActive()
		default:
			s.notice(conn, "unknown message type: "+msg.Type)
		}
	}
}

func (s *Server) writePump(conn *connection, log *zap.Logger) {
	ticker := time.NewTicker(s.cfg.PingInterval)
	defer ticker.Stop()

	for {
		select {
		case data := <-conn.send:
			_ = conn.ws.SetWriteDeadline(time.Now().Add(s.cfg.WriteTimeout))
			if err := conn.ws.WriteMessage(websocket.TextMessage, data); err != nil {
				log.Debug("websocket write failed", zap.Error(err))
				conn.cancel()
				return
			}
		case <-ticker.C:
			_ = conn.ws.SetWriteDeadline(time.Now().Add(s.cfg.WriteTimeout))
			if err := conn.ws.WriteMessage(websocket.PingMessage, nil); err != nil {
				conn.cancel()
				return
			}
		case <-conn.ctx.Done():
			_ = conn.ws.SetWriteDeadline(time.Now().Add(s.cfg.WriteTimeout))
			_ = conn.ws.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			return
		}
	}
}

func (s *Server) handleAsk(conn *connection, msg ClientMessage, log *zap.Logger) {
	conn.mu.Lock()
	if conn.streamCancel != nil {
		conn.mu.Unlock()
		s.reject(conn, msg.SessionID, msgBusy)
		return
	}

	stream, err := s.service.OpenStream(conn.uid, domain.QuestionRequest{
		Question:  msg.Question,
		SessionID: msg.SessionID,
	}, service.ModeWebSocket)
	if err != nil {
		conn.mu.Unlock()
		s.reject(conn, msg.SessionID, domain.ErrorBody(err, "").Error)
		return
	}

	ctx, cancel := context.WithCancel(conn.ctx)
	done := make(chan struct{})
	conn.streamCancel, conn.streamDone = cancel, done
	conn.mu.Unlock()

	go func() {
		defer close(done)
		defer cancel()
		if err := stream.Run(ctx, conn); err != nil {
			log.Debug("stream ended early", zap.String("session_id", stream.SessionID()), zap.Error(err))
		}
		conn.mu.Lock()
		conn.streamCancel = nil
		conn.mu.Unlock()
	}()
}

// reject answers an ask that never reached the service with a complete
// session_init, error sequence of its own.
func (s *Server) reject(conn *connection, sessionID, message string) {
	if sessionID == "" {
		sessionID = uuid.NewString()
	}
	if err := conn.Send(domain.Fragment{Type: domain.FragmentSessionInit, SessionID: sessionID}); err != nil {
		return
	}
	_ = conn.Send(domain.Fragment{Type: domain.FragmentError, Content: message, SessionID: sessionID})
}

// notice reports a malformed client message. It belongs to no session.
func (s *Server) notice(conn *connection, message string) {
	_ = conn.Send(domain.Fragment{Type: domain.FragmentError, Content: message})
}
