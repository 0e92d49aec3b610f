package main

import (
	"context"
	"flag"
	stdlog "log"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/sentry-vision/management-server/pkg/alert"
	"github.com/sentry-vision/management-server/pkg/api"
	"github.com/sentry-vision/management-server/pkg/audit"
	"github.com/sentry-vision/management-server/pkg/camera"
	"github.com/sentry-vision/management-server/pkg/config"
	"github.com/sentry-vision/management-server/pkg/gate"
	"github.com/sentry-vision/management-server/pkg/store"
	"github.com/sentry-vision/management-server/pkg/stream"
	"github.com/sentry-vision/management-server/pkg/user"
	"github.com/sentry-vision/management-server/pkg/version"
)

func main() {
	var (
		debug      bool
		configPath string
	)
	flag.BoolVar(&debug, "debug", false, "enables debug mode")
	flag.StringVar(&configPath, "config", "", "path to the config file")
	flag.Parse()

	log := setupLogger(debug)
	log.Infow("starting sentry management server", "build", version.GetBuildInfo().String())

	cfg, err := config.Load(configPath)
	if err != nil {
		log.Fatalf("Error loading config: %v", err)
	}

	// Secret validation is fail-closed: a server with a rejected key
	// must not come up at all.
	validator, err := gate.NewCredentialValidator(cfg.Security.APIKey, cfg.Security.StrictSecrets, log)
	if err != nil {
		log.Fatalf("AI API key rejected: %v", err)
	}
	tokens, err := user.NewTokenService(cfg.JWT.Secret,
		time.Duration(cfg.JWT.ExpirationMinutes)*time.Minute,
		cfg.Security.StrictSecrets, log)
	if err != nil {
		log.Fatalf("JWT secret rejected: %v", err)
	}

	db, err := store.Open(cfg.Database, log)
	if err != nil {
		log.Fatalf("Error opening database: %v", err)
	}
	if err := store.Migrate(db, &alert.Alert{}, &camera.Camera{}, &user.User{}); err != nil {
		log.Fatalf("Error migrating schema: %v", err)
	}

	recorder := setupAudit(cfg.Audit, log)

	hub := stream.NewHub(log, cfg.Server.CORSOrigins)
	go hub.Run()

	g := gate.New(gate.Config{
		MaxRequestsPerMinute: cfg.Security.MaxRequestsPerMinute,
		RateWindow:           time.Duration(cfg.Security.RateWindowSeconds) * time.Second,
		MaxFailedAttempts:    cfg.Security.MaxFailedAttempts,
		FailedAttemptTTL:     time.Duration(cfg.Security.FailedAttemptTTLMinutes) * time.Minute,
		BlockDuration:        time.Duration(cfg.Security.BlockDurationMinutes) * time.Minute,
		PathPrefixes:         cfg.Security.ProtectedPathPrefixes,
	}, validator, log, recorder)

	users := user.NewService(db, tokens, log, recorder)
	if err := users.Bootstrap(cfg.Admin.Username, cfg.Admin.Password, cfg.Admin.Email, cfg.Security.StrictSecrets); err != nil {
		log.Fatalf("Error seeding admin account: %v", err)
	}

	auth := api.NewAuth(log, tokens)
	server := api.NewServer(log.Desugar(), cfg, debug, g.Middleware())

	err = server.RegisterAll([]api.APIController{
		user.NewAPIController(log, users),
		alert.NewAPIController(log, alert.NewService(db, log, hub), auth.Middleware()),
		camera.NewAPIController(log, camera.NewService(db, log),
			auth.Middleware(), auth.RequireRole(user.RoleAdmin, user.RoleOperator)),
	})
	if err != nil {
		log.Fatalf("Error registering controllers: %v", err)
	}
	server.Engine().GET("/ws/alerts", auth.Middleware(), hub.Handler())

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := server.Listen(ctx); err != nil {
		log.Errorf("Server error: %v", err)
	}

	hub.Stop()
	g.Stop()
	if closer, ok := recorder.(*audit.Manager); ok {
		if err := closer.Close(); err != nil {
			log.Warnf("Error closing audit manager: %v", err)
		}
	}
	log.Info("server stopped")
}

func setupAudit(cfg config.Audit, log *zap.SugaredLogger) audit.Recorder {
	if !cfg.Enabled {
		return audit.NopRecorder{}
	}

	sinks := []audit.Sink{audit.NewLogSink(log.Desugar())}
	if len(cfg.Brokers) > 0 {
		kafkaSink, err := audit.NewKafkaSink(audit.KafkaSinkConfig{
			Brokers: cfg.Brokers,
			Topic:   cfg.Topic,
		}, log.Desugar())
		if err != nil {
			log.Fatalf("Error building Kafka audit sink: %v", err)
		}
		sinks = append(sinks, kafkaSink)
	}
	return audit.NewManager(log.Desugar(), sinks...)
}

func setupLogger(debug bool) *zap.SugaredLogger {
	var zlog *zap.Logger
	var err error
	if debug {
		zlog, err = zap.NewDevelopment()
	} else {
		zlog, err = zap.NewProduction()
	}
	if err != nil {
		stdlog.Fatalf("failed to set up logger: %v", err)
	}
	return zlog.Sugar()
}
