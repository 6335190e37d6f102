// Package assistant maintains the chat session with the assistant proxy
// over a WebSocket. The protocol is text frames: the first frame carries
// the auth token, "ping"/"pong" frames keep the connection alive, and
// everything else is a JSON message envelope.
package assistant

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"igait-client/pkg/result"
)

const (
	pingFrame = "ping"
	pongFrame = "pong"
)

// TokenSource supplies the auth token sent as the opening frame.
type TokenSource interface {
	IDToken(ctx context.Context) result.Result[string]
}

// Config carries the dial target and heartbeat cadence.
type Config struct {
	URL          string
	PingInterval time.Duration
	PongTimeout  time.Duration
}

// Session is one live assistant connection. Incoming messages arrive on
// Messages; a connection failure arrives on Errors and ends the session.
type Session struct {
	conn   *websocket.Conn
	logger *zap.Logger

	writeMu sync.Mutex

	messages chan Message
	errs     chan error

	pongMu   sync.Mutex
	lastPong time.Time

	done      chan struct{}
	closeOnce sync.Once
}

// Connect dials the assistant proxy, sends the auth token, and starts the
// read and heartbeat loops.
func Connect(ctx context.Context, cfg Config, tokens TokenSource, logger *zap.Logger) (*Session, error) {
	token := tokens.IDToken(ctx)
	if token.IsErr() {
		return nil, token.Error().WithContext("Assistant connection failed")
	}

	conn, resp, err := websocket.DefaultDialer.DialContext(ctx, cfg.URL, nil)
	if err != nil {
		if resp != nil {
			return nil, result.Newf("Server error (%d)", resp.StatusCode).
				WithContext("Assistant connection failed")
		}
		return nil, result.Newf("Network error - please check your connection").
			WithContext("Assistant connection failed")
	}

	s := &Session{
		conn:     conn,
		logger:   logger,
		messages: make(chan Message, 16),
		errs:     make(chan error, 1),
		lastPong: time.Now(),
		done:     make(chan struct{}),
	}

	if err := s.writeText(token.Value()); err != nil {
		s.Close()
		return nil, result.From(err).WithContext("Assistant connection failed")
	}

	go s.readLoop()
	go s.heartbeat(cfg.PingInterval, cfg.PongTimeout)

	logger.Debug("assistant session opened", zap.String("url", cfg.URL))
	return s, nil
}

// Messages streams incoming assistant messages. The channel closes when
// the session ends.
func (s *Session) Messages() <-chan Message {
	return s.messages
}

// Errors delivers at most one fatal session error.
func (s *Session) Errors() <-chan error {
	return s.errs
}

// Send writes one user message to the assistant.
func (s *Session) Send(text string) error {
	select {
	case <-s.done:
		return fmt.Errorf("session closed")
	default:
	}
	if err := s.writeText(text); err != nil {
		return fmt.Errorf("failed to send message: %w", err)
	}
	return nil
}

// Close tears the connection down. Safe to call more than once.
func (s *Session) Close() error {
	var err error
	s.closeOnce.Do(func() {
		close(s.done)
		s.writeMu.Lock()
		_ = s.conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(time.Second))
		s.writeMu.Unlock()
		err = s.conn.Close()
	})
	return err
}

func (s *Session) writeText(text string) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	return s.conn.WriteMessage(websocket.TextMessage, []byte(text))
}

func (s *Session) readLoop() {
	defer close(s.messages)

	for {
		_, data, err := s.conn.ReadMessage()
		if err != nil {
			s.fail(result.Newf("Connection to assistant lost"))
			return
		}

		if string(data) == pongFrame {
			s.pongMu.Lock()
			s.lastPong = time.Now()
			s.pongMu.Unlock()
			continue
		}

		var msg Message
		if err := json.Unmarshal(data, &msg); err != nil {
			s.logger.Warn("dropping malformed assistant frame", zap.Error(err))
			continue
		}

		select {
		case s.messages <- msg:
		case <-s.done:
			return
		}
	}
}

// heartbeat pings on a fixed cadence and fails the session when the server
// stops answering.
func (s *Session) heartbeat(interval, timeout time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-s.done:
			return
		case <-ticker.C:
			s.pongMu.Lock()
			silent := time.Since(s.lastPong)
			s.pongMu.Unlock()

			if silent > timeout {
				s.fail(result.Newf("Connection to assistant lost"))
				return
			}
			if err := s.writeText(pingFrame); err != nil {
				s.fail(result.Newf("Connection to assistant lost"))
				return
			}
		}
	}
}

// fail reports the first fatal error and closes the session. Errors after
// a deliberate Close are dropped.
func (s *Session) fail(err error) {
	select {
	case <-s.done:
		return
	default:
	}
	select {
	case s.errs <- err:
	default:
	}
	_ = s.Close()
}
