package api

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	ginzap "github.com/gin-contrib/zap"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/sentry-vision/management-server/pkg/config"
	"github.com/sentry-vision/management-server/pkg/metrics"
	"github.com/sentry-vision/management-server/pkg/version"
)

// APIController is one mountable group of REST routes.
type APIController interface {
	BasePath() string
	Register(rg *gin.RouterGroup) error
	Handlers() []gin.HandlerFunc
}

// Server wires the router, the security middleware chain and the HTTP
// listener.
type Server struct {
	gin    *gin.Engine
	config config.Config
	log    *zap.Logger
	http   *http.Server
}

// NewServer builds the router with logging, recovery, CORS and the abuse
// gate. gateMiddleware runs on every request; controllers attach their
// own auth via Handlers.
func NewServer(log *zap.Logger, cfg config.Config, debug bool, gateMiddleware gin.HandlerFunc) *Server {
	if !debug {
		gin.SetMode(gin.ReleaseMode)
	}

	engine := gin.New()
	engine.Use(
		ginzap.Ginzap(log, time.RFC3339, true),
		ginzap.RecoveryWithZap(log, true),
	)

	if len(cfg.Server.TrustedProxies) > 0 {
		_ = engine.SetTrustedProxies(cfg.Server.TrustedProxies)
	}

	if len(cfg.Server.CORSOrigins) > 0 {
		engine.Use(cors.New(cors.Config{
			AllowOrigins: cfg.Server.CORSOrigins,
			AllowMethods: []string{"GET", "PUT", "PATCH", "POST", "DELETE", "OPTIONS"},
			AllowHeaders: []string{"Origin", "Authorization", "Content-Type", "X-API-Key"},
			MaxAge:       12 * time.Hour,
		}))
	}

	if gateMiddleware != nil {
		engine.Use(gateMiddleware)
	}

	engine.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	engine.GET("/metrics", gin.WrapH(metrics.MetricsHandler()))
	engine.GET("/api/version", func(c *gin.Context) {
		c.JSON(http.StatusOK, version.GetBuildInfo())
	})

	return &Server{
		gin:    engine,
		config: cfg,
		log:    log,
	}
}

// Engine exposes the router for route registration outside the api
// group, such as the WebSocket endpoint.
func (s *Server) Engine() *gin.Engine {
	return s.gin
}

// RegisterAll mounts the given controllers under /api.
func (s *Server) RegisterAll(controllers []APIController) error {
	r := s.gin.Group("api")
	for _, c := range controllers {
		if err := c.Register(r.Group(c.BasePath(), c.Handlers()...)); err != nil {
			return err
		}
	}
	return nil
}

// Listen serves until the context is canceled, then drains in-flight
// requests.
func (s *Server) Listen(ctx context.Context) error {
	s.http = &http.Server{
		Addr:              s.config.Server.ListenAddress,
		Handler:           s.gin,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		var err error
		if s.config.Server.TLSCertFile != "" && s.config.Server.TLSKeyFile != "" {
			err = s.http.ListenAndServeTLS(s.config.Server.TLSCertFile, s.config.Server.TLSKeyFile)
		} else {
			err = s.http.ListenAndServe()
		}
		if err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	s.log.Sugar().Infow("server listening", "address", s.config.Server.ListenAddress)

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	return s.http.Shutdown(shutdownCtx)
}
