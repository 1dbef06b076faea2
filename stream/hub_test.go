package stream

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/pthm-cable/rockets/game"
	"github.com/pthm-cable/rockets/telemetry"
)

func quietHub(info Info) *Hub {
	return NewHub(slog.New(slog.NewTextHandler(io.Discard, nil)), info)
}

type received struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

func dial(t *testing.T, srv *httptest.Server) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readMessage(t *testing.T, conn *websocket.Conn) received {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	var msg received
	if err := conn.ReadJSON(&msg); err != nil {
		t.Fatalf("read: %v", err)
	}
	return msg
}

func TestHub_ConfigThenBroadcast(t *testing.T) {
	hub := quietHub(Info{RunID: "r1", Width: 1920, Height: 1080, Lifespan: 500, Population: 3})
	srv := httptest.NewServer(hub)
	defer srv.Close()
	defer hub.Close()

	conn := dial(t, srv)

	msg := readMessage(t, conn)
	if msg.Type != TypeConfig {
		t.Fatalf("first message type = %q, want config", msg.Type)
	}
	var info Info
	if err := json.Unmarshal(msg.Data, &info); err != nil {
		t.Fatal(err)
	}
	if info.Width != 1920 || info.Lifespan != 500 || info.RunID != "r1" {
		t.Errorf("info = %+v", info)
	}
	if hub.Clients() != 1 {
		t.Errorf("Clients() = %d, want 1", hub.Clients())
	}

	hub.PublishState(game.Snapshot{Generation: 4, Frame: 12, Agents: []game.AgentState{{Slot: 0, X: 1, Active: true}}})
	msg = readMessage(t, conn)
	if msg.Type != TypeState {
		t.Fatalf("message type = %q, want state", msg.Type)
	}
	var snap game.Snapshot
	if err := json.Unmarshal(msg.Data, &snap); err != nil {
		t.Fatal(err)
	}
	if snap.Generation != 4 || snap.Frame != 12 || len(snap.Agents) != 1 || !snap.Agents[0].Active {
		t.Errorf("snapshot = %+v", snap)
	}

	hub.PublishGeneration(telemetry.GenerationStats{Generation: 4, Reason: "lifespan", BestFitness: 321})
	msg = readMessage(t, conn)
	if msg.Type != TypeGeneration {
		t.Fatalf("message type = %q, want generation", msg.Type)
	}
	var stats telemetry.GenerationStats
	if err := json.Unmarshal(msg.Data, &stats); err != nil {
		t.Fatal(err)
	}
	if stats.BestFitness != 321 || stats.Reason != "lifespan" {
		t.Errorf("stats = %+v", stats)
	}
}

func TestHub_DisconnectUnregisters(t *testing.T) {
	hub := quietHub(Info{})
	srv := httptest.NewServer(hub)
	defer srv.Close()

	conn := dial(t, srv)
	readMessage(t, conn)
	conn.Close()

	deadline := time.Now().Add(5 * time.Second)
	for hub.Clients() != 0 {
		if time.Now().After(deadline) {
			t.Fatal("client still registered after disconnect")
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestHub_PublishDropsFullQueue(t *testing.T) {
	hub := quietHub(Info{})

	// A viewer whose queue is never drained.
	slow := &client{send: make(chan []byte, 1)}
	hub.clients[slow] = struct{}{}

	done := make(chan struct{})
	go func() {
		hub.Publish(TypeState, 1)
		hub.Publish(TypeState, 2)
		hub.Publish(TypeState, 3)
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("Publish blocked on a slow viewer")
	}

	if hub.Clients() != 0 {
		t.Errorf("Clients() = %d, want slow viewer dropped", hub.Clients())
	}
	if _, ok := <-slow.send; !ok {
		t.Error("queued message lost before drop")
	}
	if _, ok := <-slow.send; ok {
		t.Error("queue should be closed after the drop")
	}
}
