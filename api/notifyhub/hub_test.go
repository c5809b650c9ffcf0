package notifyhub

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/shareflow/shareflow-go/session"
	"github.com/shareflow/shareflow-go/types"
)

func setupEventServer(t *testing.T) (*httptest.Server, *Hub, *session.Store, types.ShareSession) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	store := session.NewStore()
	mediator := session.NewMediator(store)
	hub := New()

	sess, err := store.Create([]types.FileRecord{
		{Name: "a.pdf", Size: 100, ContentRef: "blob-a"},
	}, types.CreatorContext{})
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	router := gin.New()
	router.GET("/api/shareflow/v1/session-events", HandleSessionEvents(hub, mediator))
	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)
	return srv, hub, store, sess
}

func dialEvents(t *testing.T, srv *httptest.Server, token string) (*websocket.Conn, *http.Response, error) {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/api/shareflow/v1/session-events?token=" + token
	return websocket.DefaultDialer.Dial(url, nil)
}

func readNotification(t *testing.T, conn *websocket.Conn) types.Notification {
	t.Helper()
	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, payload, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("ReadMessage failed: %v", err)
	}
	var n types.Notification
	if err := json.Unmarshal(payload, &n); err != nil {
		t.Fatalf("Failed to parse notification: %v", err)
	}
	return n
}

func TestOwnerReceivesCancelEvent(t *testing.T) {
	srv, hub, store, sess := setupEventServer(t)

	conn, _, err := dialEvents(t, srv, sess.OwnerToken)
	if err != nil {
		t.Fatalf("Owner dial failed: %v", err)
	}
	defer conn.Close()

	if err := store.Cancel(sess.SessionId); err != nil {
		t.Fatalf("Cancel failed: %v", err)
	}
	hub.Broadcast(&types.Notification{
		Type:      types.NotifySessionCancelled,
		SessionId: sess.SessionId,
	})

	n := readNotification(t, conn)
	if n.Type != types.NotifySessionCancelled {
		t.Errorf("Expected %s, got %s", types.NotifySessionCancelled, n.Type)
	}
	if n.SessionId != sess.SessionId {
		t.Errorf("Expected session %s, got %s", sess.SessionId, n.SessionId)
	}
}

func TestRecipientCannotSubscribe(t *testing.T) {
	srv, _, _, sess := setupEventServer(t)

	conn, resp, err := dialEvents(t, srv, sess.PublicToken)
	if err == nil {
		conn.Close()
		t.Fatal("Recipient token should not upgrade")
	}
	if resp == nil || resp.StatusCode != http.StatusForbidden {
		t.Errorf("Expected 403 handshake response, got %+v", resp)
	}
}

func TestSubscribeTerminalSessionShowsOwnerState(t *testing.T) {
	srv, _, store, sess := setupEventServer(t)

	if err := store.Cancel(sess.SessionId); err != nil {
		t.Fatalf("Cancel failed: %v", err)
	}

	// owner gets the concrete state
	conn, resp, err := dialEvents(t, srv, sess.OwnerToken)
	if err == nil {
		conn.Close()
		t.Fatal("Terminal session should not upgrade")
	}
	if resp == nil || resp.StatusCode != http.StatusGone {
		t.Fatalf("Expected 410 for owner on terminal session, got %+v", resp)
	}

	// recipient still gets the blurred not-found
	_, resp, err = dialEvents(t, srv, sess.PublicToken)
	if err == nil {
		t.Fatal("Recipient dial on terminal session should fail")
	}
	if resp == nil || resp.StatusCode != http.StatusNotFound {
		t.Errorf("Expected 404 for recipient on terminal session, got %+v", resp)
	}
}

// Broadcasts arrive from request handlers and the sweeper goroutine at
// the same time; a connection must survive that and deliver every
// message.
func TestConcurrentBroadcastsToOneConnection(t *testing.T) {
	srv, hub, _, sess := setupEventServer(t)

	conn, _, err := dialEvents(t, srv, sess.OwnerToken)
	if err != nil {
		t.Fatalf("Owner dial failed: %v", err)
	}
	defer conn.Close()

	const writers = 4
	const perWriter = 100

	var wg sync.WaitGroup
	wg.Add(writers)
	for i := 0; i < writers; i++ {
		go func() {
			defer wg.Done()
			for j := 0; j < perWriter; j++ {
				hub.Broadcast(&types.Notification{
					Type:      types.NotifyFileDownloaded,
					SessionId: sess.SessionId,
				})
			}
		}()
	}

	received := 0
	for received < writers*perWriter {
		_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
		if _, _, err := conn.ReadMessage(); err != nil {
			t.Fatalf("Connection broke after %d messages: %v", received, err)
		}
		received++
	}
	wg.Wait()
}
