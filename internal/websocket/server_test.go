package websocket

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	gorillaws "github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mnoushir/site-assistant/pkg/logger"
)

func newTestHub(t *testing.T) (*Server, *httptest.Server) {
	t.Helper()

	hub := NewServer(logger.NewNop())
	go hub.Run()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hub.HandleConnection(w, r, r.URL.Query().Get("session"))
	}))
	t.Cleanup(srv.Close)
	return hub, srv
}

func dial(t *testing.T, srv *httptest.Server, sessionID string) *gorillaws.Conn {
	t.Helper()
	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/?session=" + sessionID
	conn, resp, err := gorillaws.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	if resp != nil {
		resp.Body.Close()
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func TestPublishReachesAttachedSession(t *testing.T) {
	hub, srv := newTestHub(t)
	conn := dial(t, srv, "sess-a")

	// Registration is asynchronous; keep publishing until delivery
	done := make(chan struct{})
	defer close(done)
	go func() {
		for {
			select {
			case <-done:
				return
			default:
				hub.Publish("sess-a", "message", map[string]any{"text": "hello"})
				time.Sleep(10 * time.Millisecond)
			}
		}
	}()

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var msg Message
	require.NoError(t, conn.ReadJSON(&msg))
	assert.Equal(t, "message", msg.Type)
	assert.Equal(t, "hello", msg.Data["text"])
}

func TestPublishScopedToSession(t *testing.T) {
	hub, srv := newTestHub(t)
	connA := dial(t, srv, "sess-a")
	connB := dial(t, srv, "sess-b")

	done := make(chan struct{})
	defer close(done)
	go func() {
		for {
			select {
			case <-done:
				return
			default:
				hub.Publish("sess-a", "pending", map[string]any{"pending": true})
				time.Sleep(10 * time.Millisecond)
			}
		}
	}()

	require.NoError(t, connA.SetReadDeadline(time.Now().Add(2*time.Second)))
	var msg Message
	require.NoError(t, connA.ReadJSON(&msg))
	assert.Equal(t, "pending", msg.Type)

	// The other session's client stays silent
	require.NoError(t, connB.SetReadDeadline(time.Now().Add(300*time.Millisecond)))
	_, _, err := connB.ReadMessage()
	assert.Error(t, err)
}

func TestPublishNeverBlocks(t *testing.T) {
	// No hub loop running: the queue fills up and further events drop
	hub := NewServer(logger.NewNop())

	finished := make(chan struct{})
	go func() {
		for i := 0; i < 200; i++ {
			hub.Publish("sess-a", "message", map[string]any{"i": i})
		}
		close(finished)
	}()

	select {
	case <-finished:
	case <-time.After(time.Second):
		t.Fatal("Publish blocked on a full queue")
	}
}
