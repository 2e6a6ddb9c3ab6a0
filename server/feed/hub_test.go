package feed

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"TitanMusic/core/catalog"
	"TitanMusic/model"

	"github.com/gorilla/websocket"
)

func dial(t *testing.T, srv *httptest.Server, hub *Hub, want int) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("failed to dial: %v", err)
	}
	deadline := time.Now().Add(2 * time.Second)
	for hub.ClientCount() < want {
		if time.Now().After(deadline) {
			t.Fatal("client was not registered")
		}
		time.Sleep(5 * time.Millisecond)
	}
	return conn
}

func readMessage(t *testing.T, conn *websocket.Conn) Message {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, data, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("failed to read: %v", err)
	}
	var msg Message
	if err := json.Unmarshal(data, &msg); err != nil {
		t.Fatalf("failed to decode: %v", err)
	}
	return msg
}

func TestHubBroadcastsEvents(t *testing.T) {
	hub := NewHub(nil)
	go hub.Run()
	defer hub.Stop()

	srv := httptest.NewServer(hub)
	defer srv.Close()

	a := dial(t, srv, hub, 1)
	defer a.Close()
	b := dial(t, srv, hub, 2)
	defer b.Close()

	at := time.UnixMilli(1700000000000)
	public := &model.Track{ID: "t1", Title: "Song", IsPublic: true, Status: model.TrackStatusActive}
	if err := hub.Publish(context.Background(), catalog.Event{Type: catalog.EventCreated, TrackID: "t1", Track: public, At: at}); err != nil {
		t.Fatalf("publish failed: %v", err)
	}

	for _, conn := range []*websocket.Conn{a, b} {
		msg := readMessage(t, conn)
		if msg.Type != catalog.EventCreated || msg.TrackID != "t1" || msg.Track == nil || msg.Track.Title != "Song" {
			t.Errorf("unexpected message %+v", msg)
		}
		if msg.Timestamp != 1700000000000 {
			t.Errorf("unexpected timestamp %d", msg.Timestamp)
		}
	}

	private := &model.Track{ID: "t2", Title: "Secret", IsPublic: false}
	if err := hub.Publish(context.Background(), catalog.Event{Type: catalog.EventUpdated, TrackID: "t2", Track: private, At: at}); err != nil {
		t.Fatalf("publish failed: %v", err)
	}
	if msg := readMessage(t, a); msg.TrackID != "t2" || msg.Track != nil {
		t.Errorf("private track body must not be broadcast: %+v", msg)
	}

	gone := &model.Track{ID: "t3", Title: "Gone", IsPublic: true, Status: model.TrackStatusRemoved}
	for _, typ := range []catalog.EventType{catalog.EventUpdated, catalog.EventRemoved} {
		if err := hub.Publish(context.Background(), catalog.Event{Type: typ, TrackID: "t3", Track: gone, At: at}); err != nil {
			t.Fatalf("publish failed: %v", err)
		}
		if msg := readMessage(t, a); msg.TrackID != "t3" || msg.Type != typ || msg.Track != nil {
			t.Errorf("removed track body must not be broadcast on %s: %+v", typ, msg)
		}
	}
}

func TestOriginChecker(t *testing.T) {
	check := originChecker([]string{"http://localhost:3000"})

	cases := []struct {
		origin string
		want   bool
	}{
		{"http://localhost:3000", true},
		{"http://evil.example", false},
		{"", true},
	}
	for _, c := range cases {
		r := httptest.NewRequest(http.MethodGet, "/ws/feed", nil)
		if c.origin != "" {
			r.Header.Set("Origin", c.origin)
		}
		if got := check(r); got != c.want {
			t.Errorf("origin %q: expected %v, got %v", c.origin, c.want, got)
		}
	}

	if !originChecker([]string{"*"})(httptest.NewRequest(http.MethodGet, "/", nil)) {
		t.Error("wildcard must accept everything")
	}
}

func TestPublishAfterStop(t *testing.T) {
	hub := NewHub(nil)
	hub.Stop()
	if err := hub.Publish(context.Background(), catalog.Event{Type: catalog.EventRemoved, TrackID: "x"}); err != nil {
		t.Errorf("publish on a stopped hub should be dropped silently, got %v", err)
	}
}
