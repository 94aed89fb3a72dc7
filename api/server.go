package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/OldStager01/fleet-autoscaler/api/handlers"
	"github.com/OldStager01/fleet-autoscaler/api/middleware"
	"github.com/OldStager01/fleet-autoscaler/api/websocket"
	"github.com/OldStager01/fleet-autoscaler/internal/auth"
	"github.com/OldStager01/fleet-autoscaler/internal/collector"
	"github.com/OldStager01/fleet-autoscaler/internal/cooldown"
	"github.com/OldStager01/fleet-autoscaler/internal/events"
	"github.com/OldStager01/fleet-autoscaler/internal/ledger"
	"github.com/OldStager01/fleet-autoscaler/internal/reconciler"
	"github.com/OldStager01/fleet-autoscaler/internal/resilience"
	"github.com/OldStager01/fleet-autoscaler/internal/thresholds"
	"github.com/OldStager01/fleet-autoscaler/pkg/config"
	"github.com/OldStager01/fleet-autoscaler/pkg/database"
	"github.com/OldStager01/fleet-autoscaler/pkg/database/queries"
)

const maxRequestBody = 64 * 1024

// Deps collects everything the operator API exposes. DB and EventRepo
// are nil when persistence is disabled; Registry is nil when the
// Prometheus endpoint is off.
type Deps struct {
	Loop       handlers.LoopStatus
	Collector  *collector.Collector
	Reconciler *reconciler.Reconciler
	Gate       *cooldown.Gate
	Thresholds *thresholds.Store
	Ledger     *ledger.Ledger
	Breaker    *resilience.CircuitBreaker
	EventBus   *events.EventBus
	DB         *database.DB
	EventRepo  *queries.ScalingEventRepository
	Registry   *prometheus.Registry
	Services   []string
}

type Server struct {
	router      *gin.Engine
	httpServer  *http.Server
	config      config.Config
	deps        Deps
	authService *auth.Service
	wsHub       *websocket.Hub
	wsBridge    *websocket.EventBridge
}

func NewServer(cfg config.Config, deps Deps) *Server {
	if cfg.App.Mode == "production" {
		gin.SetMode(gin.ReleaseMode)
	} else {
		gin.SetMode(gin.DebugMode)
	}

	router := gin.New()

	jwtDuration := cfg.API.JWTDuration
	if jwtDuration == 0 {
		jwtDuration = 24 * time.Hour
	}
	authService := auth.NewService(cfg.API.JWTSecret, jwtDuration)
	wsHub := websocket.NewHub(&cfg.WebSocket)

	s := &Server{
		router:      router,
		config:      cfg,
		deps:        deps,
		authService: authService,
		wsHub:       wsHub,
	}

	s.setupMiddleware()
	s.setupRoutes()

	go wsHub.Run()

	if deps.EventBus != nil {
		s.wsBridge = websocket.NewEventBridge(wsHub, deps.EventBus.SubscribeAll())
		s.wsBridge.Start()
	}

	return s
}

func (s *Server) setupMiddleware() {
	s.router.Use(gin.Recovery())
	s.router.Use(middleware.CORS(middleware.DefaultCORSConfig()))
	s.router.Use(middleware.RequestLogger())
	s.router.Use(middleware.TraceID())
	s.router.Use(middleware.SecurityHeaders())
	s.router.Use(middleware.RequestSizeLimit(maxRequestBody))

	rateLimiter := middleware.NewRateLimiter(s.config.API.RateLimit, time.Minute)
	s.router.Use(middleware.RateLimit(rateLimiter))
}

func (s *Server) setupRoutes() {
	healthHandler := handlers.NewHealthHandler(s.deps.DB, s.deps.Loop)
	authHandler := handlers.NewAuthHandler(s.config.API, s.authService)
	statusHandler := handlers.NewStatusHandler(
		s.deps.Loop, s.deps.Collector, s.deps.Reconciler,
		s.deps.Gate, s.deps.Thresholds, s.deps.Ledger,
		s.deps.Breaker, s.deps.Services,
	)
	thresholdsHandler := handlers.NewThresholdsHandler(s.deps.Thresholds)
	eventsHandler := handlers.NewEventsHandler(s.deps.Ledger, s.deps.EventRepo, s.config.API)

	// Public routes
	s.router.GET("/health", healthHandler.Health)
	s.router.GET("/health/ready", healthHandler.Ready)
	s.router.GET("/health/live", healthHandler.Live)

	// Auth routes
	s.router.POST("/auth/login", middleware.AuthRateLimiter(), authHandler.Login)

	// WebSocket route
	s.router.GET("/ws", websocket.ServeWebSocket(s.wsHub))

	// Prometheus scrape endpoint
	if s.config.Prometheus.Enabled && s.deps.Registry != nil {
		s.router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(s.deps.Registry, promhttp.HandlerOpts{})))
	}

	// Read-only observability routes
	s.router.GET("/status", statusHandler.Status)
	s.router.GET("/thresholds", thresholdsHandler.Get)
	s.router.GET("/events/recent", eventsHandler.GetRecent)
	s.router.GET("/events/history", eventsHandler.GetHistory)
	s.router.GET("/services/:service/events", eventsHandler.GetByService)
	s.router.GET("/services/:service/events/stats", eventsHandler.GetStats)

	// Mutating routes require an operator token
	protected := s.router.Group("/")
	protected.Use(middleware.JWTAuth(s.authService))
	{
		protected.PUT("/thresholds", thresholdsHandler.Update)
	}
}

func (s *Server) Start() error {
	addr := fmt.Sprintf(":%d", s.config.API.Port)

	s.httpServer = &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  s.config.API.ReadTimeout,
		WriteTimeout: s.config.API.WriteTimeout,
		IdleTimeout:  60 * time.Second,
	}

	return s.httpServer.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	if s.wsBridge != nil {
		s.wsBridge.Stop()
	}
	s.wsHub.Stop()

	if s.httpServer == nil {
		return nil
	}
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) Router() *gin.Engine {
	return s.router
}

func (s *Server) WebSocketHub() *websocket.Hub {
	return s.wsHub
}
