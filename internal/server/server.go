package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/stokeworth/steamdisc/internal/discovery"
	"github.com/stokeworth/steamdisc/internal/logging"
)

const (
	// Time allowed to write a message to a client
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from a client
	pongWait = 60 * time.Second

	// Send pings with this period (must be less than pongWait)
	pingPeriod = (pongWait * 9) / 10

	// Per-client event buffer; a client this far behind is dropped
	clientBuffer = 32
)

// Config holds the server configuration.
type Config struct {
	// ListenAddr is the HTTP listen address, e.g. ":8030".
	ListenAddr string

	// Scanner drives the continuous discovery session the server
	// publishes. Its OnDevice callback is owned by the server.
	Scanner *discovery.Scanner
}

// Event is one merge event as sent to WebSocket clients.
type Event struct {
	Outcome string     `json:"outcome"` // "inserted" or "updated"
	Device  deviceJSON `json:"device"`
}

type deviceJSON struct {
	Addr     string            `json:"addr"`
	Hostname string            `json:"hostname,omitempty"`
	MAC      string            `json:"mac"`
	Name     string            `json:"name"`
	Model    string            `json:"model"`
	Extra    map[string]string `json:"extra,omitempty"`
	LastSeen time.Time         `json:"last_seen"`
}

func toDeviceJSON(d discovery.Device) deviceJSON {
	return deviceJSON{
		Addr:     d.Addr,
		Hostname: d.Hostname,
		MAC:      d.MAC,
		Name:     d.Name,
		Model:    d.Model,
		Extra:    d.Extra,
		LastSeen: d.LastSeen,
	}
}

// Server publishes a continuous discovery session over HTTP/WebSocket.
type Server struct {
	config   *Config
	upgrader websocket.Upgrader
	log      *zap.Logger

	mu       sync.Mutex
	clients  map[chan Event]struct{}
	listener *discovery.Listener
	httpSrv  *http.Server
}

// New creates a new Server instance.
func New(config *Config) *Server {
	return &Server{
		config:  config,
		clients: make(map[chan Event]struct{}),
		log:     logging.GetLogger(),
		upgrader: websocket.Upgrader{
			// Local tooling endpoint; cross-origin dashboards are expected.
			CheckOrigin: func(*http.Request) bool { return true },
		},
	}
}

// Start binds the HTTP listener and begins continuous discovery. It
// returns once both are running; Wait for errors via the returned
// channel, and stop everything with Stop.
func (s *Server) Start(ctx context.Context) (<-chan error, error) {
	s.config.Scanner.OnDevice = s.publish

	listener, err := s.config.Scanner.Listen(ctx)
	if err != nil {
		return nil, fmt.Errorf("start discovery: %w", err)
	}
	s.listener = listener

	ln, err := net.Listen("tcp", s.config.ListenAddr)
	if err != nil {
		listener.Stop()
		return nil, fmt.Errorf("bind %s: %w", s.config.ListenAddr, err)
	}

	s.httpSrv = &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		if err := s.httpSrv.Serve(ln); err != nil && err != http.ErrServerClosed {
			errc <- err
		}
		close(errc)
	}()

	s.log.Info("discovery server started",
		zap.String("addr", ln.Addr().String()),
	)
	return errc, nil
}

// Stop shuts the HTTP server down and tears down the discovery session.
func (s *Server) Stop(ctx context.Context) error {
	var err error
	if s.httpSrv != nil {
		err = s.httpSrv.Shutdown(ctx)
	}
	if s.listener != nil {
		s.listener.Stop()
	}
	return err
}

// Handler returns the HTTP routes.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /devices", s.handleDevices)
	mux.HandleFunc("GET /events", s.handleEvents)
	return mux
}

func (s *Server) handleDevices(w http.ResponseWriter, r *http.Request) {
	var devices []discovery.Device
	if s.listener != nil {
		devices = s.listener.Devices()
	}

	out := make([]deviceJSON, 0, len(devices))
	for _, d := range devices {
		out = append(out, toDeviceJSON(d))
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(out); err != nil {
		s.log.Warn("encode devices response", zap.Error(err))
	}
}

func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Warn("websocket upgrade failed",
			zap.String("remote_addr", r.RemoteAddr),
			zap.Error(err),
		)
		return
	}

	events := make(chan Event, clientBuffer)
	s.addClient(events)
	s.log.Info("event stream client connected",
		zap.String("remote_addr", r.RemoteAddr),
	)

	// Reader: consume control frames and detect close.
	go func() {
		defer s.removeClient(events)
		conn.SetReadLimit(512)
		_ = conn.SetReadDeadline(time.Now().Add(pongWait))
		conn.SetPongHandler(func(string) error {
			return conn.SetReadDeadline(time.Now().Add(pongWait))
		})
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	// Writer: forward events, ping on idle.
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		s.removeClient(events)
		_ = conn.Close()
		s.log.Info("event stream client disconnected",
			zap.String("remote_addr", r.RemoteAddr),
		)
	}()

	for {
		select {
		case ev, ok := <-events:
			if !ok {
				return
			}
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteJSON(ev); err != nil {
				return
			}
		case <-ticker.C:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// publish fans one merge event out to every connected client. Called from
// the discovery receive goroutine, so it must not block: clients whose
// buffer is full are dropped.
func (s *Server) publish(d discovery.Device, outcome discovery.MergeOutcome) {
	ev := Event{Outcome: outcome.String(), Device: toDeviceJSON(d)}

	s.mu.Lock()
	defer s.mu.Unlock()
	for c := range s.clients {
		select {
		case c <- ev:
		default:
			s.log.Warn("dropping slow event stream client")
			delete(s.clients, c)
			close(c)
		}
	}
}

func (s *Server) addClient(c chan Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.clients[c] = struct{}{}
}

func (s *Server) removeClient(c chan Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.clients[c]; ok {
		delete(s.clients, c)
		close(c)
	}
}
