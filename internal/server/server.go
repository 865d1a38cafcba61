package server

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/veiltext/veiltext/internal/audit"
	"github.com/veiltext/veiltext/internal/cache"
	"github.com/veiltext/veiltext/internal/config"
	"github.com/veiltext/veiltext/internal/logger"
	"github.com/veiltext/veiltext/internal/pii"
	"github.com/veiltext/veiltext/internal/security"
	"github.com/veiltext/veiltext/internal/web"
	"github.com/veiltext/veiltext/internal/websocket"
)

// Version is the service version reported by /info.
const Version = "0.1.0"

// Server is the VeilText HTTP service: the transformation endpoint plus the
// dashboard, event stream, and operational endpoints around it.
type Server struct {
	config      *config.Config
	logger      *logger.Logger
	engine      *pii.Engine
	router      *mux.Router
	server      *http.Server
	wsHub       *websocket.Hub
	rateLimiter *security.RateLimiter
	cache       *cache.ResponseCache
	auditStore  *audit.Store

	startTime       time.Time
	totalRequests   int64
	totalDetections int64

	// engineMu guards the request defaults that Reload may swap at runtime.
	engineMu       sync.RWMutex
	engineDefaults config.EngineConfig
}

// New creates a server instance. The cache and audit store are connected only
// when enabled in the configuration.
func New(cfg *config.Config, log *logger.Logger) (*Server, error) {
	engine := pii.NewEngine(pii.NewRegistry(), pii.Config{
		Filler: cfg.Engine.RedactFiller,
	}, log.WithComponent("engine").Logger)

	wsHub := websocket.NewHub(&websocket.HubConfig{
		BroadcastDetections: cfg.WebSocket.Events.BroadcastDetections,
		BroadcastRequests:   cfg.WebSocket.Events.BroadcastRequests,
		BroadcastSystem:     cfg.WebSocket.Events.BroadcastSystem,
		AllowedOrigins:      cfg.WebSocket.AllowedOrigins,
	}, log.WithComponent("websocket").Logger)

	s := &Server{
		config:      cfg,
		logger:      log.WithComponent("server"),
		engine:      engine,
		router:      mux.NewRouter(),
		wsHub:       wsHub,
		rateLimiter: security.NewRateLimiter(&cfg.Security),
		startTime:   time.Now(),
	}
	s.engineDefaults = cfg.Engine

	if cfg.Cache.Enabled {
		responseCache, err := cache.NewResponseCache(&cache.Config{
			RedisURL:       cfg.Cache.RedisURL,
			DefaultTTL:     cfg.Cache.DefaultTTL,
			KeyPrefix:      cfg.Cache.KeyPrefix,
			MaxConnections: cfg.Cache.MaxConnections,
			MinIdleConns:   cfg.Cache.MinIdleConns,
		}, log.WithComponent("cache").Logger)
		if err != nil {
			return nil, fmt.Errorf("failed to create response cache: %w", err)
		}
		s.cache = responseCache
	}

	if cfg.Audit.Enabled {
		store, err := audit.NewStore(&cfg.Audit, log.WithComponent("audit").Logger)
		if err != nil {
			return nil, fmt.Errorf("failed to create audit store: %w", err)
		}
		s.auditStore = store
	}

	s.setupRoutes()

	s.server = &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      s.router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	return s, nil
}

// setupRoutes configures all HTTP routes.
func (s *Server) setupRoutes() {
	s.router.HandleFunc("/health", s.handleHealth).Methods("GET")
	s.router.HandleFunc("/info", s.handleInfo).Methods("GET")

	s.router.HandleFunc("/", web.ServeDashboard).Methods("GET")
	s.router.HandleFunc("/dashboard", web.ServeDashboard).Methods("GET")

	if s.config.WebSocket.Enabled {
		s.router.HandleFunc(s.config.WebSocket.Path, s.handleWebSocket).Methods("GET")
	}

	api := s.router.PathPrefix("/v1").Subrouter()
	api.Use(s.loggingMiddleware)
	api.Use(s.rateLimitMiddleware)
	api.HandleFunc("/scrub", s.handleScrub).Methods("POST")
}

// Start starts the HTTP server and background routines. It blocks until the
// server stops.
func (s *Server) Start() error {
	s.logger.Info("Starting VeilText server",
		zap.Int("port", s.config.Server.Port),
		zap.String("default_policy", s.config.Engine.DefaultPolicy),
		zap.Bool("cache_enabled", s.config.Cache.Enabled),
		zap.Bool("audit_enabled", s.config.Audit.Enabled),
	)

	go s.wsHub.Run()
	s.rateLimiter.StartCleanupRoutine()
	if s.config.WebSocket.Events.BroadcastSystem {
		go s.systemStatusLoop()
	}

	return s.server.ListenAndServe()
}

// Stop gracefully stops the HTTP server and closes backend connections.
func (s *Server) Stop(ctx context.Context) error {
	s.logger.Info("Stopping VeilText server")

	if s.cache != nil {
		if err := s.cache.Close(); err != nil {
			s.logger.Error("Failed to close cache", zap.Error(err))
		}
	}
	if s.auditStore != nil {
		if err := s.auditStore.Close(); err != nil {
			s.logger.Error("Failed to close audit store", zap.Error(err))
		}
	}

	return s.server.Shutdown(ctx)
}

// systemStatusLoop periodically broadcasts service health to the dashboard.
func (s *Server) systemStatusLoop() {
	ticker := time.NewTicker(10 * time.Second)
	defer ticker.Stop()

	for range ticker.C {
		s.wsHub.BroadcastEvent(websocket.Event{
			Type:      websocket.EventTypeSystemStatus,
			Timestamp: time.Now(),
			Data: websocket.SystemStatusEvent{
				Status:           "healthy",
				Uptime:           time.Since(s.startTime).Round(time.Second).String(),
				TotalRequests:    atomic.LoadInt64(&s.totalRequests),
				TotalDetections:  atomic.LoadInt64(&s.totalDetections),
				ConnectedClients: s.wsHub.ActiveClients(),
			},
		})
	}
}

// Reload applies the runtime-tunable parts of a changed configuration: the
// request defaults and size limit. Server, cache, and audit settings still
// require a restart.
func (s *Server) Reload(cfg *config.Config) {
	s.engineMu.Lock()
	s.engineDefaults = cfg.Engine
	s.engineMu.Unlock()

	s.logger.Info("Applied engine defaults from reloaded configuration",
		zap.String("default_policy", cfg.Engine.DefaultPolicy),
		zap.Int64("max_text_bytes", cfg.Engine.MaxTextBytes))
}

// currentEngineDefaults returns a snapshot of the request defaults.
func (s *Server) currentEngineDefaults() config.EngineConfig {
	s.engineMu.RLock()
	defer s.engineMu.RUnlock()
	return s.engineDefaults
}

// handleWebSocket hands the connection to the hub.
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	s.wsHub.HandleWebSocket(w, r)
}
