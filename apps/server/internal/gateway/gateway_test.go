package gateway

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"idle-lite/apps/server/internal/codec"
	"idle-lite/apps/server/internal/game"
	"idle-lite/apps/server/internal/store"
	"idle-lite/profile"
)

type stateFrame struct {
	Type      string               `json:"type"`
	ServerSeq uint64               `json:"server_seq"`
	Payload   *game.GameState      `json:"payload"`
	Error     *codec.ErrorResponse `json:"error"`
}

func newFeedServer(t *testing.T) (*game.Service, *Feed, *httptest.Server) {
	t.Helper()
	tmpl := profile.DefaultTemplate()
	st := store.NewMemoryStore(tmpl)
	feed := New()
	svc := game.NewService(tmpl, st, st, game.WithPublisher(feed.Publish))
	feed.SetSource(svc)
	srv := httptest.NewServer(http.HandlerFunc(feed.HandleWebSocket))
	t.Cleanup(srv.Close)
	return svc, feed, srv
}

func dial(t *testing.T, srv *httptest.Server, query string) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws" + query
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readFrame(t *testing.T, conn *websocket.Conn) stateFrame {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	msgType, data, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	var f stateFrame
	if msgType == websocket.BinaryMessage {
		err = codec.UnmarshalProto(data, &f)
	} else {
		err = json.Unmarshal(data, &f)
	}
	if err != nil {
		t.Fatalf("decode frame: %v", err)
	}
	return f
}

func TestFeed_InitialStateThenBroadcast(t *testing.T) {
	svc, feed, srv := newFeedServer(t)
	conn := dial(t, srv, "")

	first := readFrame(t, conn)
	if first.Type != codec.TypeState || first.Payload == nil || len(first.Payload.Profiles) != 1 {
		t.Fatalf("unexpected initial frame %+v", first)
	}
	if feed.Count() != 1 {
		t.Fatalf("expected 1 connection, got %d", feed.Count())
	}

	if _, err := svc.ApplyAction(context.Background(), "mine-stone-button"); err != nil {
		t.Fatalf("action: %v", err)
	}
	next := readFrame(t, conn)
	if next.ServerSeq <= first.ServerSeq {
		t.Fatalf("expected increasing seq, got %d after %d", next.ServerSeq, first.ServerSeq)
	}
	if next.Payload.RecentGain == nil || next.Payload.RecentGain.Skill != "mining" {
		t.Fatalf("expected mining gain, got %+v", next.Payload.RecentGain)
	}
}

func TestFeed_ProtoFormat(t *testing.T) {
	svc, _, srv := newFeedServer(t)
	conn := dial(t, srv, "?format=proto")

	conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	msgType, _, err := conn.ReadMessage()
	if err != nil || msgType != websocket.BinaryMessage {
		t.Fatalf("expected binary initial frame, got type=%d err=%v", msgType, err)
	}

	if _, err := svc.CreateProfile(context.Background(), "Bob"); err != nil {
		t.Fatalf("create: %v", err)
	}
	f := readFrame(t, conn)
	if f.Payload == nil || f.Payload.SelectedIndex != 1 || f.Payload.Profiles[1].Name != "Bob" {
		t.Fatalf("unexpected proto state %+v", f.Payload)
	}
}

func TestFeed_ClientMessages(t *testing.T) {
	_, _, srv := newFeedServer(t)
	conn := dial(t, srv, "")
	readFrame(t, conn)

	if err := conn.WriteMessage(websocket.TextMessage, []byte(`{"type":"refresh"}`)); err != nil {
		t.Fatal(err)
	}
	if f := readFrame(t, conn); f.Type != codec.TypeState || f.Payload == nil {
		t.Fatalf("expected state after refresh, got %+v", f)
	}

	if err := conn.WriteMessage(websocket.TextMessage, []byte(`{"type":"dance"}`)); err != nil {
		t.Fatal(err)
	}
	if f := readFrame(t, conn); f.Type != codec.TypeError || f.Error == nil || f.Error.Code != 3 {
		t.Fatalf("expected error frame, got %+v", f)
	}
}

func TestFeed_NotReadyWithoutSource(t *testing.T) {
	feed := New()
	rec := httptest.NewRecorder()
	feed.HandleWebSocket(rec, httptest.NewRequest("GET", "/ws", nil))
	if rec.Code != 503 {
		t.Fatalf("expected 503, got %d", rec.Code)
	}
}
