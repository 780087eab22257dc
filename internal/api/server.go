package api

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	"github.com/notyourromanticboyfriend/warehouse-apps-v2/config"
	"github.com/notyourromanticboyfriend/warehouse-apps-v2/internal/api/handlers"
	"github.com/notyourromanticboyfriend/warehouse-apps-v2/internal/auth"
	"github.com/notyourromanticboyfriend/warehouse-apps-v2/internal/metrics"
	"github.com/notyourromanticboyfriend/warehouse-apps-v2/internal/service"
)

// Server represents the HTTP server
type Server struct {
	config        config.Config
	router        *gin.Engine
	httpServer    *http.Server
	requests      *service.RequestService
	rosters       *service.RosterService
	authenticator auth.Authenticator
	metrics       *metrics.Metrics
}

// NewServer creates a new HTTP server
func NewServer(
	cfg config.Config,
	requests *service.RequestService,
	rosters *service.RosterService,
	authenticator auth.Authenticator,
	collector *metrics.Metrics,
) *Server {
	server := &Server{
		config:        cfg,
		requests:      requests,
		rosters:       rosters,
		authenticator: authenticator,
		metrics:       collector,
	}

	router := server.setupRouter()
	server.router = router

	httpServer := &http.Server{
		Addr:    cfg.HTTPServerAddress,
		Handler: router,
	}
	server.httpServer = httpServer

	return server
}

// setupRouter configures the HTTP router
func (s *Server) setupRouter() *gin.Engine {
	if s.config.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(RequestLogger())

	requestHandler := handlers.NewRequestHandler(s.requests)
	requestHandler.RegisterRoutes(router, AdminGate(s.config.AdminSecret))

	rosterHandler := handlers.NewRosterHandler(s.rosters)
	rosterHandler.RegisterRoutes(router)

	authHandler := handlers.NewAuthHandler(s.authenticator)
	authHandler.RegisterRoutes(router)

	metricsHandler := handlers.NewMetricsHandler(s.metrics)
	metricsHandler.RegisterRoutes(router)

	// Health check endpoint
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	return router
}

// Start starts the HTTP server
func (s *Server) Start() error {
	log.Info().Str("address", s.config.HTTPServerAddress).Msg("Starting HTTP server")

	if err := s.httpServer.ListenAndServe(); err != nil {
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return errors.Wrap(err, "HTTP server error")
	}

	return nil
}

// Shutdown gracefully stops the HTTP server
func (s *Server) Shutdown(ctx context.Context) error {
	log.Info().Msg("Shutting down HTTP server")

	shutdownCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		return errors.Wrap(err, "HTTP server shutdown error")
	}

	log.Info().Msg("HTTP server shut down successfully")
	return nil
}
