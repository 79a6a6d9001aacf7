// Package app wires configuration, storage and services into the running
// API server. cmd/api-server and cmd/libctl both build on it.
package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"libraryhub/database"
	"libraryhub/internal/config"
	"libraryhub/internal/microservices/http-api/handler"
	"libraryhub/internal/microservices/http-api/middleware"
	"libraryhub/internal/microservices/http-api/repository"
	"libraryhub/internal/microservices/http-api/repository/memory"
	"libraryhub/internal/microservices/http-api/service"
	"libraryhub/internal/notify"
	"libraryhub/internal/scheduler"
	"libraryhub/internal/security"
)

// Services is the full service layer over one store.
type Services struct {
	Auth          service.AuthService
	Catalog       service.CatalogService
	Members       service.MemberService
	Loans         service.LoanService
	Fines         service.FineService
	Reservations  service.ReservationService
	Notifications service.NotificationService
}

type App struct {
	cfg        *config.Config
	logger     *zap.Logger
	db         *gorm.DB
	tokens     security.TokenStore
	dispatcher notify.Dispatcher
	limiter    *middleware.RateLimiter

	Store    repository.Store
	Services Services
}

// New opens the configured backends and builds the services. Close
// releases them.
func New(cfg *config.Config, logger *zap.Logger) (*App, error) {
	a := &App{cfg: cfg, logger: logger}

	if cfg.UsesMemoryStore() {
		logger.Warn("using in-memory store, data is lost on exit")
		a.Store = memory.NewStore()
	} else {
		db, err := database.Connect(cfg, logger)
		if err != nil {
			return nil, err
		}
		a.db = db
		a.Store = repository.NewGormStore(db)
	}

	if cfg.RedisURL != "" {
		rs, err := security.NewRedisStore(cfg.RedisURL, cfg.RedisPassword)
		if err != nil {
			a.Close()
			return nil, fmt.Errorf("connect redis: %w", err)
		}
		a.tokens = rs
		logger.Info("security_store_ready", zap.String("backend", "redis"))
	} else {
		a.tokens = security.NewMemoryStore()
		logger.Info("security_store_ready", zap.String("backend", "memory"))
	}

	if cfg.NotifyWebhookURL != "" {
		a.dispatcher = notify.NewWebhookDispatcher(cfg.NotifyWebhookURL, logger.Named("notify"))
	} else {
		a.dispatcher = notify.NewLogDispatcher(logger.Named("notify"))
	}

	a.Services = buildServices(cfg, a.Store, a.tokens, a.dispatcher, logger)
	return a, nil
}

func buildServices(cfg *config.Config, store repository.Store, tokens security.TokenStore, dispatcher notify.Dispatcher, logger *zap.Logger) Services {
	var clock service.Clock
	policy := service.PolicyFromConfig(cfg)
	guard := security.NewGuard(tokens, security.GuardConfigFrom(cfg))

	notifications := service.NewNotificationService(store, dispatcher, logger.Named("notifications"), clock)
	receipts := service.NewReceiptService(clock)

	return Services{
		Auth:          service.NewAuthService(store, guard, cfg, logger.Named("auth"), clock),
		Catalog:       service.NewCatalogService(store, notifications, logger.Named("catalog"), clock),
		Members:       service.NewMemberService(store, logger.Named("members")),
		Loans:         service.NewLoanService(store, policy, notifications, receipts, logger.Named("loans"), clock),
		Fines:         service.NewFineService(store, policy, notifications, receipts, logger.Named("fines"), clock),
		Reservations:  service.NewReservationService(store, notifications, logger.Named("reservations"), clock),
		Notifications: notifications,
	}
}

// Router builds the gin engine over the services.
func (a *App) Router() *gin.Engine {
	if a.cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	s := a.Services
	if a.limiter == nil {
		a.limiter = middleware.NewRateLimiter(a.cfg.RateLimitRPS, a.cfg.RateLimitBurst)
	}
	return handler.NewRouter(handler.RouterConfig{
		Logger:      a.logger.Named("http"),
		CORSOrigins: a.cfg.CORSOrigins,
		Limiter:     a.limiter,
		Tokens:      s.Auth,
	}, handler.Handlers{
		Auth:          handler.NewAuthHandler(s.Auth, a.dispatcher, a.cfg.AccessTokenTTL, a.cfg.IsDevelopment()),
		Books:         handler.NewBookHandler(s.Catalog),
		Loans:         handler.NewLoanHandler(s.Loans, s.Fines),
		Fines:         handler.NewFineHandler(s.Fines, s.Members),
		Reservations:  handler.NewReservationHandler(s.Reservations),
		Notifications: handler.NewNotificationHandler(s.Notifications),
		Members:       handler.NewMemberHandler(s.Members, s.Loans),
		Admin:         handler.NewAdminHandler(s.Loans, s.Reservations),
	})
}

// Scheduler returns the cron runner for the circulation sweeps.
func (a *App) Scheduler() *scheduler.Scheduler {
	jobs := scheduler.NewJobs(a.Services.Loans, a.Services.Reservations, a.logger.Named("jobs"))
	return scheduler.New(jobs, scheduler.Schedules{
		OverdueSweep:     a.cfg.OverdueSweepSchedule,
		ReservationSweep: a.cfg.ReservationSweepSchedule,
	}, a.logger)
}

// Run serves HTTP and runs the sweeps until ctx is cancelled, then shuts
// down gracefully.
func (a *App) Run(ctx context.Context) error {
	sched := a.Scheduler()
	if err := sched.Start(); err != nil {
		return err
	}

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", a.cfg.HTTPPort),
		Handler:           a.Router(),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go a.sweepLimiter(ctx)

	errCh := make(chan error, 1)
	go func() {
		a.logger.Info("http_server_started", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	var serveErr error
	select {
	case <-ctx.Done():
	case serveErr = <-errCh:
	}

	a.logger.Info("shutting_down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		a.logger.Error("http_shutdown_failed", zap.Error(err))
	}
	select {
	case <-sched.Stop().Done():
	case <-shutdownCtx.Done():
		a.logger.Warn("sweep_still_running_at_shutdown")
	}
	return serveErr
}

func (a *App) sweepLimiter(ctx context.Context) {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			a.limiter.Sweep()
		}
	}
}

// Close flushes pending webhook posts and closes the backends.
func (a *App) Close() {
	if wd, ok := a.dispatcher.(*notify.WebhookDispatcher); ok {
		wd.Wait()
	}
	if rs, ok := a.tokens.(*security.RedisStore); ok {
		if err := rs.Close(); err != nil {
			a.logger.Warn("redis_close_failed", zap.Error(err))
		}
	}
	if a.db != nil {
		if err := database.Close(a.db); err != nil {
			a.logger.Warn("database_close_failed", zap.Error(err))
		}
	}
}
