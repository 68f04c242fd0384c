// Package app assembles the platform service: configuration, storage,
// token codec, audit sink, services, HTTP server and lifecycle.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/redis/go-redis/v9"

	"github.com/crewbase/crewbase/internal/platform/audit"
	"github.com/crewbase/crewbase/internal/platform/domain"
	httpapi "github.com/crewbase/crewbase/internal/platform/http"
	"github.com/crewbase/crewbase/internal/platform/metrics"
	"github.com/crewbase/crewbase/internal/platform/service"
	"github.com/crewbase/crewbase/internal/platform/store"
	"github.com/crewbase/crewbase/internal/platform/store/drivers/sqlite"
	"github.com/crewbase/crewbase/pkg/cryptox"
	"github.com/crewbase/crewbase/pkg/idx"
	"github.com/crewbase/crewbase/pkg/jwtx"
	"github.com/crewbase/crewbase/pkg/slogx"
)

// BuildVersion should be set at build time via ldflags.
const BuildVersion = "v0.1.0"

// Application encapsulates the platform service with all its dependencies.
type Application struct {
	cfg    Config
	logger *slog.Logger

	db      store.Store
	codec   *jwtx.Codec
	redis   *redis.Client
	sink    audit.Sink
	metrics *metrics.Metrics

	userService         *service.UserService
	sessionService      *service.SessionService
	tenantService       *service.TenantService
	membershipService   *service.MembershipService
	inviteService       *service.InviteService
	housekeepingService *service.HousekeepingService

	server *http.Server
	router *httpapi.Router
}

// New creates an Application with all dependencies initialized.
func New(cfg Config) (*Application, error) {
	app := &Application{
		cfg: cfg,
		logger: slogx.New(slogx.Config{
			Service: "crewbase-platform",
			Version: BuildVersion,
			Env:     cfg.Env,
			Level:   cfg.LogLevel,
			Format:  cfg.LogFormat,
		}),
	}

	cryptox.SetPepperPath(cfg.PepperFile)

	if err := app.initDatabase(); err != nil {
		return nil, err
	}
	if err := app.initCodec(); err != nil {
		_ = app.db.Close()
		return nil, err
	}

	app.metrics = metrics.New()
	app.initAudit()
	app.initServices()

	if err := app.bootstrapAdmin(context.Background()); err != nil {
		_ = app.db.Close()
		return nil, err
	}

	app.initHTTP()

	return app, nil
}

// Run starts the application and blocks until shutdown is requested.
func (app *Application) Run() error {
	app.housekeepingService.Start()

	app.logger.Info("platform service starting",
		slog.String("addr", app.cfg.Addr),
		slog.String("version", BuildVersion),
	)

	serverErrors := make(chan error, 1)
	go func() {
		serverErrors <- app.server.ListenAndServe()
	}()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server failed: %w", err)
		}
	case sig := <-shutdown:
		app.logger.Info("shutdown signal received", slog.Any("signal", sig))
		if err := app.Shutdown(); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
	}

	return nil
}

// Shutdown stops the server, the housekeeping worker and the stores.
func (app *Application) Shutdown() error {
	app.logger.Info("shutting down platform service")

	ctx, cancel := context.WithTimeout(context.Background(), app.cfg.ShutdownGracePeriod)
	defer cancel()

	if err := app.server.Shutdown(ctx); err != nil {
		app.logger.Error("graceful server shutdown failed", slog.Any("error", err))
		if err := app.server.Close(); err != nil {
			app.logger.Error("error closing server", slog.Any("error", err))
		}
	}

	app.housekeepingService.Stop()

	if app.redis != nil {
		if err := app.redis.Close(); err != nil {
			app.logger.Error("error closing redis client", slog.Any("error", err))
		}
	}

	if err := app.db.Close(); err != nil {
		app.logger.Error("error closing database", slog.Any("error", err))
		return err
	}

	app.logger.Info("platform service stopped")
	return nil
}

func (app *Application) initDatabase() error {
	dsn := fmt.Sprintf("file:%s?_busy_timeout=5000&_journal_mode=WAL", app.cfg.DatabaseFile)
	db, err := sqlite.NewStore(dsn)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	app.db = db

	if err := db.ApplyMigrations(); err != nil {
		_ = db.Close()
		return fmt.Errorf("failed to apply database migrations: %w", err)
	}

	app.logger.Info("database migrations applied")
	return nil
}

func (app *Application) initCodec() error {
	var err error
	if app.cfg.SigningSeed != "" {
		app.codec, err = jwtx.NewCodec(app.cfg.SigningSeed, app.cfg.Issuer, app.cfg.AccessTTL, app.cfg.RefreshTTL)
	} else {
		app.logger.Warn("no signing seed configured, using an ephemeral keypair")
		app.codec, err = jwtx.NewEphemeralCodec(app.cfg.Issuer, app.cfg.AccessTTL, app.cfg.RefreshTTL)
	}
	return err
}

func (app *Application) initAudit() {
	if app.cfg.RedisAddr == "" {
		app.sink = audit.NewSlogSink(app.logger)
		return
	}

	app.redis = redis.NewClient(&redis.Options{Addr: app.cfg.RedisAddr})
	app.sink = audit.NewRedisSink(app.redis, app.logger, app.cfg.AuditStream)
	app.logger.Info("audit events going to redis stream",
		slog.String("addr", app.cfg.RedisAddr),
		slog.String("stream", app.cfg.AuditStream),
	)
}

func (app *Application) initServices() {
	app.userService = &service.UserService{Store: app.db, Audit: app.sink}
	app.sessionService = &service.SessionService{
		Store:   app.db,
		Codec:   app.codec,
		Audit:   app.sink,
		Metrics: app.metrics,
	}
	app.membershipService = &service.MembershipService{Store: app.db, Audit: app.sink}
	app.tenantService = &service.TenantService{
		Store:        app.db,
		Audit:        app.sink,
		Dependencies: &membershipDependencies{store: app.db},
	}
	app.inviteService = &service.InviteService{
		Store:   app.db,
		Audit:   app.sink,
		Metrics: app.metrics,
		TTL:     app.cfg.InviteTTL,
	}
	app.housekeepingService = service.NewHousekeepingService(
		app.db,
		app.logger,
		app.metrics,
		app.cfg.HousekeepingInterval,
		app.cfg.SessionRetention,
	)
}

func (app *Application) initHTTP() {
	router := httpapi.NewRouter(
		app.codec,
		BuildVersion,
		app.db,
		app.logger,
		app.metrics,
		app.cfg.SecureCookies,
	)
	router.UserService = app.userService
	router.SessionService = app.sessionService
	router.TenantService = app.tenantService
	router.MembershipService = app.membershipService
	router.InviteService = app.inviteService
	router.ApplyRoutes()

	app.router = router
	app.server = &http.Server{
		Addr:    app.cfg.Addr,
		Handler: router,
	}
}

// bootstrapAdmin ensures the configured platform admin exists. Without one
// no tenant can ever be provisioned on a fresh database.
func (app *Application) bootstrapAdmin(ctx context.Context) error {
	if app.cfg.BootstrapAdminEmail == "" || app.cfg.BootstrapAdminPassword == "" {
		return nil
	}

	email := service.NormalizeEmail(app.cfg.BootstrapAdminEmail)
	if _, err := app.db.Users().GetUserByEmail(ctx, email); err == nil {
		return nil
	} else if !errors.Is(err, store.ErrNotFound) {
		return err
	}

	hash, err := cryptox.HashPassword(app.cfg.BootstrapAdminPassword)
	if err != nil {
		return fmt.Errorf("failed to hash bootstrap admin password: %w", err)
	}

	err = app.db.Users().CreateUser(ctx, domain.User{
		ID:           idx.New().String(),
		Email:        email,
		Name:         "Platform Admin",
		PasswordHash: hash,
		PlatformRole: domain.PlatformRoleAdmin,
		Active:       true,
	})
	if err != nil && !errors.Is(err, store.ErrAlreadyExists) {
		return fmt.Errorf("failed to create bootstrap admin: %w", err)
	}

	app.logger.Info("bootstrap platform admin created", slog.String("email", email))
	return nil
}

// membershipDependencies refuses tenant archival while anyone besides the
// admins still has an active membership: members must be offboarded first.
type membershipDependencies struct {
	store store.Store
}

func (d *membershipDependencies) CountTenantDependencies(ctx context.Context, tenantID string) (int, error) {
	total, err := d.store.Memberships().CountActiveMemberships(ctx, tenantID)
	if err != nil {
		return 0, err
	}
	admins, err := d.store.Memberships().CountActiveAdmins(ctx, tenantID)
	if err != nil {
		return 0, err
	}
	return total - admins, nil
}
