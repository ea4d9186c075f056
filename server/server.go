package server

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/websocket"
	"github.com/jonboulle/clockwork"
	"github.com/rs/cors"
	"go.uber.org/multierr"

	"github.com/Mercetti/ALL-IN-CHAT-POKER-sub013/audio"
	"github.com/Mercetti/ALL-IN-CHAT-POKER-sub013/broadcast"
	"github.com/Mercetti/ALL-IN-CHAT-POKER-sub013/channel"
	"github.com/Mercetti/ALL-IN-CHAT-POKER-sub013/config"
	"github.com/Mercetti/ALL-IN-CHAT-POKER-sub013/engine"
	"github.com/Mercetti/ALL-IN-CHAT-POKER-sub013/logger"
	"github.com/Mercetti/ALL-IN-CHAT-POKER-sub013/monitor"
	"github.com/Mercetti/ALL-IN-CHAT-POKER-sub013/network"
	"github.com/Mercetti/ALL-IN-CHAT-POKER-sub013/session"
	"github.com/Mercetti/ALL-IN-CHAT-POKER-sub013/timer"
)

const (
	HeaderLogin   = "X-User-Login"
	HeaderChannel = "X-Channel"

	DefaultChannel = "default"
	AnonymousLogin = "anonymous"

	engineTimeout = 5 * time.Second
)

var ErrCloseTimeout = errors.New("close timed out")

type Option func(*Gateway)

func WithMonitor(m *monitor.Monitor) Option {
	return func(g *Gateway) { g.monitor = m }
}

// WithAudio enables the /audio routes.
func WithAudio(gate *audio.Gate, generator *audio.Generator) Option {
	return func(g *Gateway) {
		g.gate = gate
		g.generator = generator
	}
}

func WithClock(clock clockwork.Clock) Option {
	return func(g *Gateway) { g.clock = clock }
}

// Gateway accepts overlay WebSocket connections on the configured mounts
// and serves the small HTTP surface next to them.
type Gateway struct {
	cfg      config.ServerConfig
	gwCfg    config.GatewayConfig
	upgrader websocket.Upgrader
	handler  http.Handler

	sessions *session.Manager
	channels *channel.Registry
	router   *broadcast.Router
	engine   engine.Engine
	monitor  *monitor.Monitor
	timers   *timer.Manager
	clock    clockwork.Clock

	gate      *audio.Gate
	generator *audio.Generator

	controlMounts map[string]bool

	httpServer *http.Server
	baseCtx    context.Context
	cancel     context.CancelFunc
	conns      sync.WaitGroup
	mutex      sync.Mutex
	closing    bool
	shutdownCh chan struct{}
	shutdown   sync.Once
}

func NewGateway(cfg *config.Config, eng engine.Engine, opts ...Option) *Gateway {
	g := &Gateway{
		cfg:           cfg.Server,
		gwCfg:         cfg.Gateway,
		sessions:      session.NewManager(),
		channels:      channel.NewRegistry(),
		engine:        eng,
		controlMounts: make(map[string]bool),
		shutdownCh:    make(chan struct{}),
	}
	for _, opt := range opts {
		opt(g)
	}
	if g.monitor == nil {
		g.monitor = monitor.NewMonitor("overlay")
	}
	if g.clock == nil {
		g.clock = clockwork.NewRealClock()
	}
	g.timers = timer.NewTimerManager(g.clock)
	g.router = broadcast.NewRouter(g.sessions, g.channels, g.monitor)
	g.baseCtx, g.cancel = context.WithCancel(context.Background())

	for _, m := range g.cfg.ControlMounts {
		g.controlMounts[normalizeMount(m)] = true
	}
	g.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     originChecker(g.cfg.AllowedOrigins),
	}
	g.handler = g.routes()
	return g
}

func (g *Gateway) routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	for _, m := range g.cfg.Mounts {
		mount := normalizeMount(m)
		r.Get(mount, g.handleWebSocket(mount))
	}
	r.Get("/health", handleHealth)
	r.Get("/status", g.handleStatus)
	r.Handle("/metrics", g.monitor.Handler())
	if g.gate != nil && g.generator != nil {
		r.Get("/audio/{userID}", g.handleAvailableAudio)
		r.Post("/audio/generate", g.handleGenerateAudio)
	}

	c := cors.New(cors.Options{
		AllowedOrigins: g.cfg.AllowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Content-Type", HeaderLogin, HeaderChannel},
	})
	return c.Handler(r)
}

func (g *Gateway) Handler() http.Handler {
	return g.handler
}

func (g *Gateway) Router() *broadcast.Router {
	return g.router
}

func (g *Gateway) Sessions() *session.Manager {
	return g.sessions
}

func (g *Gateway) Channels() *channel.Registry {
	return g.channels
}

func (g *Gateway) Monitor() *monitor.Monitor {
	return g.monitor
}

func (g *Gateway) Start() error {
	g.mutex.Lock()
	g.httpServer = &http.Server{
		Addr:              g.cfg.HTTPAddress,
		Handler:           g.handler,
		ReadHeaderTimeout: 10 * time.Second,
	}
	srv := g.httpServer
	g.mutex.Unlock()

	logger.Log.Infof("Overlay gateway listening on %s, mounts %v", g.cfg.HTTPAddress, g.cfg.Mounts)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown stops accepting connections, closes every session and waits
// for their read loops to finish or ctx to expire.
func (g *Gateway) Shutdown(ctx context.Context) error {
	var errs error
	g.shutdown.Do(func() {
		g.mutex.Lock()
		g.closing = true
		srv := g.httpServer
		g.mutex.Unlock()

		close(g.shutdownCh)
		g.cancel()

		if srv != nil {
			errs = multierr.Append(errs, srv.Shutdown(ctx))
		}
		for _, s := range g.sessions.List() {
			errs = multierr.Append(errs, closeWithin(s, g.closeTimeout()))
		}

		done := make(chan struct{})
		go func() {
			g.conns.Wait()
			close(done)
		}()
		select {
		case <-done:
		case <-ctx.Done():
			errs = multierr.Append(errs, ctx.Err())
		}
		g.timers.RemoveAll()
	})
	return errs
}

func (g *Gateway) closeTimeout() time.Duration {
	if g.gwCfg.CloseTimeout > 0 {
		return g.gwCfg.CloseTimeout
	}
	return network.DefaultOptions().CloseTimeout
}

func (g *Gateway) connOptions() network.Options {
	return network.Options{
		PingInterval:   g.gwCfg.PingInterval,
		ReadTimeout:    g.gwCfg.ReadTimeout,
		WriteTimeout:   g.gwCfg.WriteTimeout,
		CloseTimeout:   g.gwCfg.CloseTimeout,
		MaxMessageSize: g.gwCfg.MaxMessageSize,
		SendBuffer:     g.gwCfg.SendBuffer,
	}
}

type closer interface {
	Close() error
}

// closeWithin gives up waiting on c after d. The close itself keeps
// running in the background.
func closeWithin(c closer, d time.Duration) error {
	done := make(chan error, 1)
	go func() { done <- c.Close() }()
	select {
	case err := <-done:
		return err
	case <-time.After(d):
		return ErrCloseTimeout
	}
}

func normalizeMount(m string) string {
	m = strings.TrimSpace(m)
	if !strings.HasPrefix(m, "/") {
		m = "/" + m
	}
	return m
}

func originChecker(allowed []string) func(*http.Request) bool {
	anyOrigin := len(allowed) == 0
	set := make(map[string]bool, len(allowed))
	for _, o := range allowed {
		if o == "*" {
			anyOrigin = true
		}
		set[o] = true
	}
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		// non-browser clients send no Origin
		return anyOrigin || origin == "" || set[origin]
	}
}
