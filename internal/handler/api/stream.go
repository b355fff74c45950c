package api

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"

	"github.com/layiku/data-simulator/internal/domain/models"
	"github.com/layiku/data-simulator/internal/registry"
	"github.com/layiku/data-simulator/internal/service/ratelimit"
	xhttp "github.com/layiku/data-simulator/pkg/http"
	"github.com/layiku/data-simulator/pkg/logger"
)

const (
	// pingPeriod paces keepalive pings; a client silent for pongWait after
	// its last pong is dropped.
	pingPeriod = time.Second
	pongWait   = 5 * time.Second
	writeWait  = time.Second

	// Subscribe frames are tiny; anything bigger is a misbehaving client.
	maxFrameBytes = 1024
)

// Dashboards connect from file:// pages and foreign origins; the stream is
// read-only, so origin checks buy nothing here.
var upgrader = websocket.Upgrader{
	CheckOrigin: func(*http.Request) bool { return true },
}

// subscribeFrame is the only client-to-server message. Sending one replaces
// the connection's push set; an empty list restores the full set.
type subscribeFrame struct {
	Subscribe []string `json:"subscribe"`
}

// streamFrame is one server push.
type streamFrame struct {
	Timestamp time.Time                  `json:"timestamp"`
	Objects   map[string]models.Snapshot `json:"objects"`
}

type streamClient struct {
	conn *websocket.Conn

	// wmu serializes writes: the push loop and this client's ping loop
	// both write to the socket.
	wmu sync.Mutex

	mu   sync.RWMutex
	subs map[string]struct{} // nil means every object
}

func (cl *streamClient) write(messageType int, data []byte) error {
	cl.wmu.Lock()
	defer cl.wmu.Unlock()
	_ = cl.conn.SetWriteDeadline(time.Now().Add(writeWait))
	return cl.conn.WriteMessage(messageType, data)
}

func (cl *streamClient) setSubs(names map[string]struct{}) {
	cl.mu.Lock()
	cl.subs = names
	cl.mu.Unlock()
}

// wants narrows a full snapshot map to this client's push set.
func (cl *streamClient) wants(all map[string]models.Snapshot) map[string]models.Snapshot {
	cl.mu.RLock()
	defer cl.mu.RUnlock()
	if cl.subs == nil {
		return all
	}
	out := make(map[string]models.Snapshot, len(cl.subs))
	for name := range cl.subs {
		if snap, ok := all[name]; ok {
			out[name] = snap
		}
	}
	return out
}

// StreamHub owns the /api/stream WebSocket connections and pushes the
// current snapshot set to each on a fixed interval.
type StreamHub struct {
	log      *logger.Logger
	reg      *registry.Registry
	interval time.Duration
	limiter  *ratelimit.Limiter

	mu      sync.RWMutex
	clients map[*websocket.Conn]*streamClient

	runMu sync.Mutex
	quit  chan struct{}
	done  chan struct{}
}

func NewStreamHub(log *logger.Logger, reg *registry.Registry, interval time.Duration, connRate float64) *StreamHub {
	if log == nil {
		log = logger.Nop()
	}
	if interval <= 0 {
		interval = time.Second
	}
	return &StreamHub{
		log:      log,
		reg:      reg,
		interval: interval,
		limiter:  ratelimit.New(connRate, connRate),
		clients:  make(map[*websocket.Conn]*streamClient),
	}
}

// Serve upgrades the request and keeps the connection until the client goes
// away or the hub stops.
func (h *StreamHub) Serve(c echo.Context) error {
	remote := c.RealIP()
	if !h.limiter.Allow(remote) {
		h.log.Warn("stream connect rate limited", logger.String("remote", remote))
		return xhttp.DataResponse(c, http.StatusTooManyRequests, "too many connection attempts")
	}

	conn, err := upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		// Upgrade already wrote the HTTP error response.
		h.log.Warn("stream upgrade failed", logger.Error(err))
		return nil
	}

	cl := &streamClient{conn: conn}
	h.add(cl)
	h.log.Debug("stream client connected", logger.String("remote", remote))
	go h.keep(cl)
	return nil
}

func (h *StreamHub) add(cl *streamClient) {
	h.mu.Lock()
	h.clients[cl.conn] = cl
	h.mu.Unlock()
}

func (h *StreamHub) drop(cl *streamClient) {
	h.mu.Lock()
	_, present := h.clients[cl.conn]
	delete(h.clients, cl.conn)
	h.mu.Unlock()
	if present {
		_ = cl.conn.Close()
	}
}

// keep runs the per-connection read and keepalive loop. Pings go out every
// pingPeriod; a connection whose last pong is older than pongWait is dropped.
func (h *StreamHub) keep(cl *streamClient) {
	defer h.drop(cl)

	cl.conn.SetReadLimit(maxFrameBytes)

	var aliveMu sync.Mutex
	lastAlive := time.Now()
	touch := func() {
		aliveMu.Lock()
		lastAlive = time.Now()
		aliveMu.Unlock()
	}
	sinceAlive := func() time.Duration {
		aliveMu.Lock()
		defer aliveMu.Unlock()
		return time.Since(lastAlive)
	}

	ponger := cl.conn.PongHandler()
	cl.conn.SetPongHandler(func(appData string) error {
		touch()
		return ponger(appData)
	})

	type readMsg struct {
		mType int
		data  []byte
		err   error
	}
	read := make(chan readMsg)
	readerQuit := make(chan struct{})
	defer close(readerQuit)
	go func() {
		for {
			mt, data, err := cl.conn.ReadMessage()
			select {
			case read <- readMsg{mType: mt, data: data, err: err}:
			case <-readerQuit:
				return
			}
			if err != nil {
				return
			}
		}
	}()

	pinger := time.NewTicker(pingPeriod)
	defer pinger.Stop()

	for {
		select {
		case <-pinger.C:
			if err := cl.write(websocket.PingMessage, nil); err != nil {
				return
			}
			if sinceAlive() > pongWait {
				return
			}
		case msg := <-read:
			if msg.err != nil {
				return
			}
			switch msg.mType {
			case websocket.CloseMessage:
				return
			case websocket.TextMessage:
				h.applySubscribe(cl, msg.data)
			}
			touch()
		}
	}
}

// applySubscribe replaces the client's push set. Unknown object names are
// dropped; an empty or unparseable frame restores the full set.
func (h *StreamHub) applySubscribe(cl *streamClient, data []byte) {
	var frame subscribeFrame
	if err := json.Unmarshal(data, &frame); err != nil {
		h.log.Debug("stream frame ignored", logger.Error(err))
		return
	}
	if len(frame.Subscribe) == 0 {
		cl.setSubs(nil)
		return
	}
	subs := make(map[string]struct{}, len(frame.Subscribe))
	for _, name := range frame.Subscribe {
		if _, ok := h.reg.Lookup(name); ok {
			subs[name] = struct{}{}
		}
	}
	cl.setSubs(subs)
}

// Start launches the push loop. Starting a running hub is a no-op.
func (h *StreamHub) Start() {
	h.runMu.Lock()
	defer h.runMu.Unlock()
	if h.quit != nil {
		return
	}
	h.quit = make(chan struct{})
	h.done = make(chan struct{})
	go h.run(h.quit, h.done)
	h.log.Info("stream hub started", logger.Duration("interval", h.interval))
}

// Stop halts the push loop and closes every connection. Idempotent.
func (h *StreamHub) Stop() {
	h.runMu.Lock()
	defer h.runMu.Unlock()
	if h.quit == nil {
		return
	}
	close(h.quit)
	<-h.done
	h.quit, h.done = nil, nil

	h.mu.Lock()
	clients := make([]*streamClient, 0, len(h.clients))
	for _, cl := range h.clients {
		clients = append(clients, cl)
	}
	h.clients = make(map[*websocket.Conn]*streamClient)
	h.mu.Unlock()

	for _, cl := range clients {
		_ = cl.write(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseGoingAway, "shutting down"))
		_ = cl.conn.Close()
	}
	h.log.Info("stream hub stopped", logger.Int("clients", len(clients)))
}

func (h *StreamHub) run(quit, done chan struct{}) {
	defer close(done)
	ticker := time.NewTicker(h.interval)
	defer ticker.Stop()
	for {
		select {
		case <-quit:
			return
		case <-ticker.C:
			h.push()
		}
	}
}

// push sends one frame to every client: a single registry snapshot per tick,
// narrowed per connection. A failed write drops the connection.
func (h *StreamHub) push() {
	h.mu.RLock()
	if len(h.clients) == 0 {
		h.mu.RUnlock()
		return
	}
	clients := make([]*streamClient, 0, len(h.clients))
	for _, cl := range h.clients {
		clients = append(clients, cl)
	}
	h.mu.RUnlock()

	all := h.reg.CurrentAll()
	now := time.Now()

	var fullFrame []byte
	for _, cl := range clients {
		objects := cl.wants(all)
		var payload []byte
		if len(objects) == len(all) && fullFrame != nil {
			payload = fullFrame
		} else {
			b, err := json.Marshal(streamFrame{Timestamp: now, Objects: objects})
			if err != nil {
				h.log.Error("stream frame marshal failed", logger.Error(err))
				continue
			}
			payload = b
			if len(objects) == len(all) {
				fullFrame = b
			}
		}
		if err := cl.write(websocket.TextMessage, payload); err != nil {
			h.log.Debug("stream write failed, dropping client", logger.Error(err))
			h.drop(cl)
		}
	}
}

// ClientCount reports the number of live connections.
func (h *StreamHub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}
