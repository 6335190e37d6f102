package assistant

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"igait-client/pkg/result"
)

func TestMessageUnmarshalText(t *testing.T) {
	var msg Message
	if err := json.Unmarshal([]byte(`{"type":"Message","content":"hello"}`), &msg); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if msg.Type != TypeMessage || msg.Content != "hello" || msg.Jobs != nil {
		t.Errorf("msg = %+v", msg)
	}
}

func TestMessageUnmarshalJobs(t *testing.T) {
	payload := `{"type":"Jobs","content":[{"id":"uid_0","email":"a@b.com","timestamp":5}]}`

	var msg Message
	if err := json.Unmarshal([]byte(payload), &msg); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if msg.Type != TypeJobs || msg.Content != "" {
		t.Errorf("msg = %+v", msg)
	}
	if len(msg.Jobs) != 1 || msg.Jobs[0].ID != "uid_0" || msg.Jobs[0].Timestamp != 5 {
		t.Errorf("jobs = %+v", msg.Jobs)
	}
}

func TestMessageUnmarshalEmptyContent(t *testing.T) {
	var msg Message
	if err := json.Unmarshal([]byte(`{"type":"Typing"}`), &msg); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if msg.Type != TypeTyping || msg.Content != "" {
		t.Errorf("msg = %+v", msg)
	}
}

func TestMessageUnmarshalMismatchedContent(t *testing.T) {
	var msg Message
	if err := json.Unmarshal([]byte(`{"type":"Message","content":[1,2]}`), &msg); err == nil {
		t.Fatal("array content for a text frame should fail")
	}
}

type staticTokens struct{ token string }

func (s staticTokens) IDToken(context.Context) result.Result[string] {
	return result.Ok(s.token)
}

type failingTokens struct{}

func (failingTokens) IDToken(context.Context) result.Result[string] {
	return result.Errf[string]("No authenticated user")
}

var upgrader = websocket.Upgrader{}

// assistantServer upgrades the connection, checks the token frame, answers
// pings, and hands the connection to fn.
func assistantServer(t *testing.T, wantToken string, fn func(*websocket.Conn)) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			t.Errorf("upgrade: %v", err)
			return
		}
		defer conn.Close()

		_, first, err := conn.ReadMessage()
		if err != nil {
			return
		}
		if string(first) != wantToken {
			t.Errorf("first frame = %q, want token", first)
			return
		}
		fn(conn)
	}))
}

func wsURL(server *httptest.Server) string {
	return "ws" + strings.TrimPrefix(server.URL, "http")
}

func testConfig(server *httptest.Server) Config {
	return Config{
		URL:          wsURL(server),
		PingInterval: 20 * time.Millisecond,
		PongTimeout:  200 * time.Millisecond,
	}
}

func TestSessionSendsTokenAndReceivesMessages(t *testing.T) {
	server := assistantServer(t, "the-token", func(conn *websocket.Conn) {
		_ = conn.WriteMessage(websocket.TextMessage,
			[]byte(`{"type":"Info","content":"connected"}`))
		for {
			_, data, err := conn.ReadMessage()
			if err != nil {
				return
			}
			if string(data) == pingFrame {
				_ = conn.WriteMessage(websocket.TextMessage, []byte(pongFrame))
				continue
			}
			reply, _ := json.Marshal(map[string]string{"type": "Message", "content": "echo: " + string(data)})
			_ = conn.WriteMessage(websocket.TextMessage, reply)
		}
	})
	defer server.Close()

	session, err := Connect(context.Background(), testConfig(server), staticTokens{"the-token"}, zap.NewNop())
	if err != nil {
		t.Fatalf("Connect: %v", err)
	}
	defer session.Close()

	first := waitMessage(t, session)
	if first.Type != TypeInfo || first.Content != "connected" {
		t.Errorf("first = %+v", first)
	}

	if err := session.Send("how is my job doing"); err != nil {
		t.Fatalf("Send: %v", err)
	}
	reply := waitMessage(t, session)
	if reply.Content != "echo: how is my job doing" {
		t.Errorf("reply = %+v", reply)
	}
}

func TestSessionPongFramesAreNotMessages(t *testing.T) {
	server := assistantServer(t, "tok", func(conn *websocket.Conn) {
		_ = conn.WriteMessage(websocket.TextMessage, []byte(pongFrame))
		_ = conn.WriteMessage(websocket.TextMessage,
			[]byte(`{"type":"Message","content":"real"}`))
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	})
	defer server.Close()

	session, err := Connect(context.Background(), testConfig(server), staticTokens{"tok"}, zap.NewNop())
	if err != nil {
		t.Fatalf("Connect: %v", err)
	}
	defer session.Close()

	msg := waitMessage(t, session)
	if msg.Content != "real" {
		t.Errorf("first delivered message = %+v, pong leaked through", msg)
	}
}

func TestSessionFailsWhenServerStopsAnswering(t *testing.T) {
	server := assistantServer(t, "tok", func(conn *websocket.Conn) {
		// Swallow everything, never pong.
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	})
	defer server.Close()

	cfg := testConfig(server)
	cfg.PongTimeout = 50 * time.Millisecond

	session, err := Connect(context.Background(), cfg, staticTokens{"tok"}, zap.NewNop())
	if err != nil {
		t.Fatalf("Connect: %v", err)
	}
	defer session.Close()

	select {
	case err := <-session.Errors():
		if !strings.Contains(err.Error(), "assistant") {
			t.Errorf("error = %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("heartbeat never failed the session")
	}
}

func TestConnectWithoutUser(t *testing.T) {
	_, err := Connect(context.Background(), Config{URL: "ws://127.0.0.1:0"}, failingTokens{}, zap.NewNop())
	if err == nil {
		t.Fatal("expected failure without a user")
	}
	if !strings.Contains(err.Error(), "No authenticated user") {
		t.Errorf("error = %v", err)
	}
}

func TestSendAfterClose(t *testing.T) {
	server := assistantServer(t, "tok", func(conn *websocket.Conn) {
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	})
	defer server.Close()

	session, err := Connect(context.Background(), testConfig(server), staticTokens{"tok"}, zap.NewNop())
	if err != nil {
		t.Fatalf("Connect: %v", err)
	}
	_ = session.Close()

	if err := session.Send("late"); err == nil {
		t.Fatal("Send after Close should fail")
	}
}

func waitMessage(t *testing.T, session *Session) Message {
	t.Helper()
	select {
	case msg, ok := <-session.Messages():
		if !ok {
			t.Fatal("message channel closed")
		}
		return msg
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for message")
		return Message{}
	}
}
