package httpserver

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"jan-server/services/plm-chat-api/internal/config"
	"jan-server/services/plm-chat-api/internal/domain/plm"
	middleware "jan-server/services/plm-chat-api/internal/interfaces/httpserver/middlewares"
	"jan-server/services/plm-chat-api/internal/interfaces/httpserver/routes/chat"
	v1 "jan-server/services/plm-chat-api/internal/interfaces/httpserver/routes/v1"
	"jan-server/services/plm-chat-api/internal/utils/redact"
)

const shutdownTimeout = 10 * time.Second

type HTTPServer struct {
	engine      *gin.Engine
	chatRoute   *chat.ChatRoute
	v1Route     *v1.V1Route
	credentials plm.CredentialProvider
	config      *config.Config
	log         zerolog.Logger
}

func NewHttpServer(
	chatRoute *chat.ChatRoute,
	v1Route *v1.V1Route,
	credentials plm.CredentialProvider,
	cfg *config.Config,
	log zerolog.Logger,
	redactor *redact.Redactor,
) *HTTPServer {
	gin.SetMode(gin.ReleaseMode)
	server := &HTTPServer{
		engine:      gin.New(),
		chatRoute:   chatRoute,
		v1Route:     v1Route,
		credentials: credentials,
		config:      cfg,
		log:         log,
	}
	server.engine.Use(gin.Recovery())
	server.engine.Use(middleware.RequestID())
	server.engine.Use(middleware.TracingMiddleware(cfg.ServiceName))
	server.engine.Use(middleware.LoggingMiddleware(log, redactor))
	server.engine.Use(middleware.CORSMiddleware(cfg.CORSAllowedOrigins))
	server.engine.Use(middleware.MetricsMiddleware())

	server.engine.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	server.engine.GET("/readyz", server.readyz)
	server.engine.GET("/metrics", gin.WrapH(promhttp.Handler()))

	sessions := server.engine.Group("/")
	sessions.Use(middleware.Session())
	server.chatRoute.RegisterRouter(sessions)
	server.v1Route.RegisterRouter(sessions)
	return server
}

// readyz reports not ready while the service holds no usable OpenBOM credentials.
func (s *HTTPServer) readyz(c *gin.Context) {
	if !s.credentials.IsAuthenticated(c.Request.Context()) {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "not_ready", "reason": "plm credentials missing or expired"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ready"})
}

// Handler exposes the router, mainly for tests.
func (s *HTTPServer) Handler() http.Handler {
	return s.engine
}

// Run serves until ctx is done, then shuts down gracefully.
func (s *HTTPServer) Run(ctx context.Context) error {
	addr := fmt.Sprintf(":%d", s.config.HTTPPort)
	server := &http.Server{
		Addr:              addr,
		Handler:           s.engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.Info().Str("addr", addr).Msg("plm-chat-api HTTP server listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
			return
		}
		errCh <- nil
	}()

	select {
	case <-ctx.Done():
		s.log.Info().Msg("context cancelled, shutting down HTTP server")
	case err := <-errCh:
		return err
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}
