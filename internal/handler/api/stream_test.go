package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"

	"github.com/layiku/data-simulator/internal/registry"
)

func newStreamServer(t *testing.T, connRate float64) (*httptest.Server, *StreamHub) {
	t.Helper()
	cfg := testConfig()
	reg := registry.Build(cfg, registry.Deps{Seed: 1})
	hub := NewStreamHub(nil, reg, 30*time.Millisecond, connRate)
	h := NewHandler(nil, reg, cfg)
	h.SetStream(hub)

	e := echo.New()
	h.RegisterRoutes(e)
	srv := httptest.NewServer(e)

	hub.Start()
	t.Cleanup(func() {
		hub.Stop()
		srv.Close()
	})
	return srv, hub
}

func dialStream(t *testing.T, srv *httptest.Server) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/api/stream"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func readFrame(t *testing.T, conn *websocket.Conn) streamFrame {
	t.Helper()
	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	for {
		mt, data, err := conn.ReadMessage()
		if err != nil {
			t.Fatalf("read: %v", err)
		}
		if mt != websocket.TextMessage {
			continue
		}
		var frame streamFrame
		if err := json.Unmarshal(data, &frame); err != nil {
			t.Fatalf("frame %q: %v", data, err)
		}
		return frame
	}
}

func TestStreamPushesFullSnapshotSet(t *testing.T) {
	srv, hub := newStreamServer(t, 100)
	conn := dialStream(t, srv)

	frame := readFrame(t, conn)
	if len(frame.Objects) != 3 {
		t.Fatalf("objects = %d, want 3", len(frame.Objects))
	}
	if _, ok := frame.Objects["cpu"]; !ok {
		t.Fatalf("frame misses cpu: %v", frame.Objects)
	}
	if hub.ClientCount() != 1 {
		t.Fatalf("client count = %d", hub.ClientCount())
	}
}

func TestStreamSubscribeNarrowsPushSet(t *testing.T) {
	srv, _ := newStreamServer(t, 100)
	conn := dialStream(t, srv)

	sub := `{"subscribe":["cpu","does-not-exist"]}`
	if err := conn.WriteMessage(websocket.TextMessage, []byte(sub)); err != nil {
		t.Fatalf("subscribe: %v", err)
	}

	// Frames already in flight may carry the full set; the narrowed set
	// must appear within a few pushes.
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		frame := readFrame(t, conn)
		if len(frame.Objects) == 1 {
			if _, ok := frame.Objects["cpu"]; !ok {
				t.Fatalf("narrowed to wrong object: %v", frame.Objects)
			}
			return
		}
	}
	t.Fatal("push set never narrowed")
}

func TestStreamConnectRateLimit(t *testing.T) {
	srv, _ := newStreamServer(t, 1)
	dialStream(t, srv)

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/api/stream"
	_, resp, err := websocket.DefaultDialer.Dial(url, nil)
	if err == nil {
		t.Fatal("second dial should be rejected")
	}
	if resp == nil || resp.StatusCode != http.StatusTooManyRequests {
		t.Fatalf("resp = %+v", resp)
	}
}

func TestStreamStopClosesClients(t *testing.T) {
	srv, hub := newStreamServer(t, 100)
	conn := dialStream(t, srv)
	readFrame(t, conn) // connection is live

	hub.Stop()

	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return // closed by the hub
		}
	}
}
