package main

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"os"
	"os/signal"
	"syscall"
	"time"

	"community-cms/backend/internal/audit"
	auditrepo "community-cms/backend/internal/audit/repository"
	"community-cms/backend/internal/config"
	"community-cms/backend/internal/db"
	memberrepo "community-cms/backend/internal/member/repository"
	"community-cms/backend/internal/membershiprequest/domain"
	mrrepo "community-cms/backend/internal/membershiprequest/repository"
	"community-cms/backend/internal/membershiprequest/workflow"
	"community-cms/backend/internal/notification"
	"community-cms/backend/internal/permission"
	"community-cms/backend/internal/platform/rbac"
	"community-cms/backend/internal/security"
	"community-cms/backend/internal/server"
	"community-cms/backend/internal/server/interceptors"
	"community-cms/backend/internal/settings"
	settingsrepo "community-cms/backend/internal/settings/repository"
	"community-cms/backend/internal/telemetry"
	telemetryotel "community-cms/backend/internal/telemetry/otel"
	userrepo "community-cms/backend/internal/user/repository"
)

const notificationTimeout = 5 * time.Second

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("config", "error", err)
		os.Exit(1)
	}
	level, _ := cfg.SlogLevel()
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	if err := run(cfg, logger); err != nil {
		logger.Error("server exited", "error", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config, logger *slog.Logger) error {
	ctx := context.Background()

	if cfg.DatabaseURL == "" {
		return errors.New("DATABASE_URL is not set; create a .env from .env.example or set DATABASE_URL")
	}
	conn, err := db.Open(ctx, cfg.DatabaseURL)
	if err != nil {
		return err
	}
	defer conn.Close()

	providers, err := telemetryotel.NewProviders(ctx, telemetryotel.Config{
		Endpoint:    cfg.OTelEndpoint,
		ServiceName: cfg.OTelServiceName,
		Environment: cfg.Env,
		Insecure:    cfg.OTelInsecure,
	})
	if err != nil {
		return err
	}
	providers.SetGlobal()
	metrics, err := telemetry.NewWorkflowMetrics(providers.MeterProvider)
	if err != nil {
		return err
	}

	var tokens interceptors.AccessValidator
	if cfg.AuthEnabled() {
		tp, err := security.NewTokenProviderFromPEM("", cfg.JWTPublicKey, security.Options{
			Issuer:    cfg.JWTIssuer,
			Audience:  cfg.JWTAudience,
			AccessTTL: cfg.AccessTTL(),
			Leeway:    30 * time.Second,
		})
		if err != nil {
			return err
		}
		tokens = tp
	} else {
		logger.Warn("JWT_PUBLIC_KEY not set; only public RPCs will succeed")
	}

	var dispatcher notification.Dispatcher = notification.Noop{}
	if cfg.RedisURL != "" {
		rdb, err := notification.NewRedisClient(cfg.RedisURL)
		if err != nil {
			return err
		}
		defer rdb.Close()
		dispatcher = notification.NewRedisDispatcher(rdb, cfg.NotificationQueue)
	} else {
		logger.Warn("REDIS_URL not set; notifications are dropped")
	}
	notifier := notification.NewAsync(dispatcher, notificationTimeout, logger)

	settingsProvider := settings.NewProvider(settingsrepo.NewPostgresRepository(conn), settings.Options{
		PermissionTTL: cfg.PermissionCacheTTL,
		ThresholdTTL:  cfg.ThresholdCacheTTL,
		FetchTimeout:  cfg.SettingsFetchTimeout,
		Logger:        logger,
	})
	resolver, err := permission.NewResolver(ctx, settingsProvider, logger)
	if err != nil {
		return err
	}

	users := userrepo.NewPostgresRepository(conn)
	members := memberrepo.NewPostgresRepository(conn)
	gate := rbac.NewGate(users, resolver)
	auditRepo := auditrepo.NewPostgresRepository(conn)
	auditLogger := audit.NewLogger(auditRepo, interceptors.ClientIP, logger)

	engine := workflow.NewEngine(workflow.Deps{
		Store:      mrrepo.NewPostgresStore(conn),
		Gate:       gate,
		Roster:     users,
		Thresholds: settingsProvider,
		Notifier:   notifier,
		Audit:      auditLogger,
		Events:     telemetryotel.NewEventEmitter(providers.LoggerProvider),
		Metrics:    metrics,
		Logger:     logger,
	}, workflow.Config{
		AllowVoteChanges:      cfg.AllowVoteChanges,
		MemberNumberPrefix:    cfg.MemberNumberPrefix,
		DefaultApprovalSystem: domain.ApprovalSystem(cfg.DefaultApprovalSystem),
	})

	lis, err := net.Listen("tcp", cfg.GRPCAddr)
	if err != nil {
		return err
	}
	defer lis.Close()

	s := server.NewServer(server.Deps{
		Tokens:              tokens,
		Gate:                gate,
		Workflow:            engine,
		Capabilities:        resolver,
		AuditRepo:           auditRepo,
		AuditLogger:         auditLogger,
		Users:               users,
		Members:             members,
		HealthPinger:        conn,
		HealthPolicyChecker: resolver,
		Logger:              logger,
	})

	serveErr := make(chan error, 1)
	go func() {
		logger.Info("gRPC server listening", "addr", cfg.GRPCAddr)
		serveErr <- s.Serve(lis)
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	select {
	case <-quit:
	case err := <-serveErr:
		return err
	}

	logger.Info("shutting down gRPC server...")
	s.GracefulStop()

	drainCtx, cancel := context.WithTimeout(ctx, telemetry.ShutdownDrainDuration)
	defer cancel()
	if err := notifier.Wait(drainCtx); err != nil {
		logger.Warn("notifications still in flight at shutdown", "error", err)
	}
	// Async telemetry emits have their own timeout; give them the same window before flushing exporters.
	<-drainCtx.Done()
	if err := providers.Shutdown(context.Background()); err != nil {
		logger.Warn("telemetry shutdown", "error", err)
	}
	logger.Info("gRPC server stopped")
	return nil
}
