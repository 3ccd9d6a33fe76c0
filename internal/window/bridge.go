package window

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"sync"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/google/uuid"
	"github.com/gorilla/mux"
	log "github.com/sirupsen/logrus"
)

const (
	// IPCPath is where the UI opens its websocket.
	IPCPath = "/ipc"

	defaultListenAddr     = "127.0.0.1:0"
	defaultReconnectGrace = 2 * time.Second
	defaultConnectTimeout = 30 * time.Second
	writeTimeout          = 5 * time.Second
	maxPending            = 64
)

// ErrBridgeNotStarted is returned by Open before Start.
var ErrBridgeNotStarted = errors.New("bridge not started")

//go:embed ui
var defaultUI embed.FS

// BridgeConfig configures where the UI is served from.
type BridgeConfig struct {
	// ListenAddr is the loopback address of the HTTP server.
	ListenAddr string
	// StaticDir serves the UI from disk instead of the built-in page.
	StaticDir string
	// DevURL redirects the UI to a development server. It takes precedence over StaticDir.
	DevURL string
	// Size hints passed to the page, which applies them where the browser allows.
	Width, Height       int
	MinWidth, MinHeight int
}

// Bridge is a Backend whose surfaces are browser pages talking to the shell
// over a websocket.
type Bridge struct {
	cfg    BridgeConfig
	opener  func(url string) error
	grace   time.Duration
	connect time.Duration
	router  *mux.Router

	mu       sync.Mutex
	surfaces map[uuid.UUID]*wsSurface
	listener net.Listener
	server   *http.Server
}

// BridgeOption configures a Bridge.
type BridgeOption func(*Bridge)

// WithOpener replaces the function that shows a window URL to the user.
func WithOpener(fn func(url string) error) BridgeOption {
	return func(b *Bridge) {
		b.opener = fn
	}
}

// WithReconnectGrace sets how long a page may stay disconnected, for example
// while reloading, before its window counts as closed.
func WithReconnectGrace(d time.Duration) BridgeOption {
	return func(b *Bridge) {
		b.grace = d
	}
}

// WithConnectTimeout sets how long a newly opened page has to connect before
// its window counts as closed.
func WithConnectTimeout(d time.Duration) BridgeOption {
	return func(b *Bridge) {
		b.connect = d
	}
}

// NewBridge creates a Bridge. Call Start before opening surfaces.
func NewBridge(cfg BridgeConfig, opts ...BridgeOption) *Bridge {
	if cfg.ListenAddr == "" {
		cfg.ListenAddr = defaultListenAddr
	}
	b := &Bridge{
		cfg:      cfg,
		opener:   OpenBrowser,
		grace:    defaultReconnectGrace,
		connect:  defaultConnectTimeout,
		surfaces: make(map[uuid.UUID]*wsSurface),
	}
	for _, opt := range opts {
		opt(b)
	}
	b.router = b.routes()
	return b
}

func (b *Bridge) routes() *mux.Router {
	r := mux.NewRouter()
	r.HandleFunc(IPCPath, b.handleIPC)

	switch {
	case b.cfg.DevURL != "":
		r.PathPrefix("/").HandlerFunc(b.redirectToDev)
	case b.cfg.StaticDir != "":
		r.PathPrefix("/").Handler(http.FileServer(http.Dir(b.cfg.StaticDir)))
	default:
		sub, err := fs.Sub(defaultUI, "ui")
		if err != nil {
			panic(err)
		}
		r.PathPrefix("/").Handler(http.FileServer(http.FS(sub)))
	}
	return r
}

// Handler returns the HTTP handler serving the UI and the IPC endpoint.
func (b *Bridge) Handler() http.Handler {
	return b.router
}

// Start listens on the configured address and serves until Shutdown.
func (b *Bridge) Start(ctx context.Context) error {
	listener, err := net.Listen("tcp", b.cfg.ListenAddr)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", b.cfg.ListenAddr, err)
	}
	server := &http.Server{
		Handler:           b.router,
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	b.mu.Lock()
	b.listener = listener
	b.server = server
	b.mu.Unlock()

	go func() {
		if err := server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Errorf("ui server error: %v", err)
		}
		log.Debug("ui server stopped")
	}()

	log.Infof("serving ui on http://%s", listener.Addr())
	return nil
}

// URL returns the base URL of the running server.
func (b *Bridge) URL() (string, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.listener == nil {
		return "", ErrBridgeNotStarted
	}
	return "http://" + b.listener.Addr().String(), nil
}

// Shutdown closes every surface and stops the server.
func (b *Bridge) Shutdown(ctx context.Context) error {
	b.mu.Lock()
	server := b.server
	surfaces := make([]*wsSurface, 0, len(b.surfaces))
	for _, s := range b.surfaces {
		surfaces = append(surfaces, s)
	}
	b.mu.Unlock()

	for _, s := range surfaces {
		if err := s.Close(); err != nil {
			log.Debugf("close window %s: %v", s.id, err)
		}
	}
	if server == nil {
		return nil
	}
	return server.Shutdown(ctx)
}

// Open implements Backend. The window appears once its page connects to IPCPath.
func (b *Bridge) Open(id uuid.UUID, events Events) (Surface, error) {
	base, err := b.URL()
	if err != nil {
		return nil, err
	}

	s := &wsSurface{id: id, events: events, grace: b.grace, onGone: b.forget}
	b.mu.Lock()
	b.surfaces[id] = s
	b.mu.Unlock()

	if err := b.opener(base + "/?" + b.windowQuery(id).Encode()); err != nil {
		b.forget(id)
		return nil, err
	}
	s.awaitConnect(b.connect)
	return s, nil
}

func (b *Bridge) windowQuery(id uuid.UUID) url.Values {
	q := url.Values{"window": {id.String()}}
	hints := []struct {
		key string
		val int
	}{
		{"w", b.cfg.Width}, {"h", b.cfg.Height}, {"minw", b.cfg.MinWidth}, {"minh", b.cfg.MinHeight},
	}
	for _, hint := range hints {
		if hint.val > 0 {
			q.Set(hint.key, strconv.Itoa(hint.val))
		}
	}
	return q
}

func (b *Bridge) surface(id uuid.UUID) *wsSurface {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.surfaces[id]
}

func (b *Bridge) forget(id uuid.UUID) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.surfaces, id)
}

func (b *Bridge) redirectToDev(w http.ResponseWriter, r *http.Request) {
	target := b.cfg.DevURL
	if r.URL.RawQuery != "" {
		target += "?" + r.URL.RawQuery
	}
	http.Redirect(w, r, target, http.StatusTemporaryRedirect)
}

func (b *Bridge) originPatterns() []string {
	if b.cfg.DevURL == "" {
		return nil
	}
	u, err := url.Parse(b.cfg.DevURL)
	if err != nil || u.Host == "" {
		return nil
	}
	return []string{u.Host}
}

func (b *Bridge) handleIPC(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.URL.Query().Get("window"))
	if err != nil {
		http.Error(w, "invalid window id", http.StatusBadRequest)
		return
	}
	s := b.surface(id)
	if s == nil {
		http.Error(w, "unknown window", http.StatusNotFound)
		return
	}

	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: b.originPatterns(),
	})
	if err != nil {
		log.Errorf("websocket upgrade failed from %s: %v", r.RemoteAddr, err)
		return
	}

	if err := s.attach(conn); err != nil {
		if errors.Is(err, ErrWindowClosed) {
			_ = conn.Close(websocket.StatusGoingAway, "window closed")
			return
		}
		log.WithField("window", id).Debugf("ipc attach: %v", err)
		_ = conn.CloseNow()
		return
	}
	log.WithField("window", id).Debugf("ui connected from %s", r.RemoteAddr)

	ctx := r.Context()
	for {
		var msg Message
		if err := wsjson.Read(ctx, conn, &msg); err != nil {
			switch {
			case ctx.Err() != nil:
				log.Debug("ipc reader stopping due to context cancellation")
			case websocket.CloseStatus(err) == websocket.StatusNormalClosure,
				websocket.CloseStatus(err) == websocket.StatusGoingAway:
				log.WithField("window", id).Debug("ui disconnected")
			default:
				log.WithField("window", id).Debugf("ipc read: %v", err)
			}
			s.detach(conn)
			_ = conn.CloseNow()
			return
		}
		s.events.Received(id, msg)
	}
}

// wsSurface is a browser page. Messages sent while the page is not connected
// are queued and flushed in order when it connects.
type wsSurface struct {
	id     uuid.UUID
	events Events
	grace  time.Duration
	onGone func(uuid.UUID)

	mu      sync.Mutex
	conn    *websocket.Conn
	pending []Message
	closed  bool
	timer   *time.Timer
}

func (s *wsSurface) Send(msg Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrWindowClosed
	}
	if s.conn == nil {
		if len(s.pending) == maxPending {
			s.pending = s.pending[1:]
		}
		s.pending = append(s.pending, msg)
		return nil
	}
	return write(s.conn, msg)
}

func (s *wsSurface) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	conn := s.conn
	s.conn = nil
	s.pending = nil
	if s.timer != nil {
		s.timer.Stop()
	}
	s.mu.Unlock()

	s.onGone(s.id)
	if conn != nil {
		return conn.Close(websocket.StatusNormalClosure, "window closed")
	}
	return nil
}

// awaitConnect closes the window unless its page connects within d.
func (s *wsSurface) awaitConnect(d time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.conn != nil || s.closed || s.timer != nil {
		return
	}
	s.timer = time.AfterFunc(d, s.expire)
}

// attach makes conn the page connection, replacing any previous one. If the
// queued messages cannot be flushed the connection is dropped again and the
// unsent messages stay queued for the next one.
func (s *wsSurface) attach(conn *websocket.Conn) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrWindowClosed
	}
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
	if old := s.conn; old != nil {
		go old.Close(websocket.StatusPolicyViolation, "replaced by a new connection")
	}
	s.conn = conn

	for i, msg := range s.pending {
		if err := write(conn, msg); err != nil {
			s.pending = s.pending[i:]
			s.conn = nil
			s.timer = time.AfterFunc(s.grace, s.expire)
			return fmt.Errorf("flush queued message: %w", err)
		}
	}
	s.pending = nil
	return nil
}

// detach forgets conn and starts the reconnect grace period.
func (s *wsSurface) detach(conn *websocket.Conn) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.conn != conn || s.closed {
		return
	}
	s.conn = nil
	s.timer = time.AfterFunc(s.grace, s.expire)
}

func (s *wsSurface) expire() {
	s.mu.Lock()
	if s.conn != nil || s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	s.pending = nil
	s.mu.Unlock()

	s.onGone(s.id)
	s.events.Closed(s.id)
}

func write(conn *websocket.Conn, msg Message) error {
	ctx, cancel := context.WithTimeout(context.Background(), writeTimeout)
	defer cancel()
	return wsjson.Write(ctx, conn, msg)
}
