// Package app composes the console with fx.
package app

import (
	"context"
	"errors"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/fx"
	"go.uber.org/zap"

	httptransport "github.com/spec-kit/helpdesk-console/internal/api/http"
	"github.com/spec-kit/helpdesk-console/internal/api/http/handlers"
	"github.com/spec-kit/helpdesk-console/internal/auth"
	"github.com/spec-kit/helpdesk-console/internal/backend"
	"github.com/spec-kit/helpdesk-console/internal/cache"
	"github.com/spec-kit/helpdesk-console/internal/clock"
	"github.com/spec-kit/helpdesk-console/internal/config"
	"github.com/spec-kit/helpdesk-console/internal/domain"
	"github.com/spec-kit/helpdesk-console/internal/events"
	"github.com/spec-kit/helpdesk-console/internal/filter"
	"github.com/spec-kit/helpdesk-console/internal/observability"
	"github.com/spec-kit/helpdesk-console/internal/persistence"
	"github.com/spec-kit/helpdesk-console/internal/realtime"
	"github.com/spec-kit/helpdesk-console/internal/repository"
	"github.com/spec-kit/helpdesk-console/internal/tabs"
	"github.com/spec-kit/helpdesk-console/internal/workflow"
	"github.com/spec-kit/helpdesk-console/internal/workspace"
)

// Module returns the fx module of the console: configuration, stores,
// the workspace manager and the HTTP surface.
func Module(cfg *config.Config) fx.Option {
	return fx.Module("console",
		fx.Supply(cfg),
		fx.Provide(
			provideLogger,
			observability.NewMetrics,
			clock.Real,
			providePostgres,
			provideRedis,
			provideCollaborators,
			provideBackend,
			provideTabs,
			provideManager,
			provideTokens,
			provideServer,
		),
		fx.Invoke(registerLifecycle),
	)
}

func provideLogger(cfg *config.Config) (*zap.Logger, error) {
	return observability.NewLogger(cfg.Logger)
}

func providePostgres(lc fx.Lifecycle, cfg *config.Config, logger *zap.Logger) (*persistence.Postgres, error) {
	pg, err := persistence.NewPostgres(context.Background(), cfg.Postgres, logger)
	if err != nil {
		return nil, err
	}
	lc.Append(fx.StopHook(pg.Close))
	return pg, nil
}

func provideRedis(lc fx.Lifecycle, cfg *config.Config, logger *zap.Logger) *persistence.Redis {
	r := persistence.NewRedis(context.Background(), cfg.Redis, logger)
	lc.Append(fx.StopHook(r.Close))
	return r
}

// Collaborators are the audit and status history stores shared by every
// workspace.
type Collaborators struct {
	Audit   workflow.AuditTrail
	History workflow.StatusHistory
}

func provideCollaborators(pg *persistence.Postgres, logger *zap.Logger) Collaborators {
	if !pg.Enabled() {
		logger.Warn("no database configured, status changes are only logged")
		logOnly := repository.NewLogOnly(logger)
		return Collaborators{Audit: logOnly, History: logOnly}
	}
	return Collaborators{
		Audit:   repository.NewAuditRepository(pg.Pool),
		History: repository.NewStatusHistoryRepository(pg.Pool),
	}
}

func provideBackend(cfg *config.Config, logger *zap.Logger) *backend.Client {
	return backend.New(cfg.Backend, logger)
}

func provideTabs(cfg *config.Config) (*tabs.Set, error) {
	return tabs.LoadFile(cfg.Tabs.File)
}

func provideTokens(cfg *config.Config) *auth.TokenManager {
	return auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.Issuer, 0)
}

// provideManager builds every agent's workspace from shared stores and a
// per-agent cache, backend client, push source and notification feed.
func provideManager(cfg *config.Config, client *backend.Client, set *tabs.Set, collab Collaborators, r *persistence.Redis, metrics *observability.Metrics, clk clock.Clock, logger *zap.Logger) (*workspace.Manager, error) {
	if cfg.Realtime.Transport == config.TransportRedis && !r.Enabled() {
		return nil, errors.New("redis push transport selected but REDIS_ADDR is empty")
	}
	engine := filter.New(clk)
	lo, hi := cfg.Realtime.Backoff()

	factory := func(principal domain.ID, token string) workspace.Options {
		agentLogger := logger.With(zap.String("principal", principal.String()))
		dispatcher := events.NewInMemoryDispatcher()
		notes := events.NewNotificationLog(agentLogger, events.DefaultLogCapacity)
		notes.RegisterHandlers(dispatcher)

		api := client
		if cfg.Backend.Token == "" {
			api = client.WithToken(token)
		}

		var source realtime.Source
		backoff := realtime.Backoff{Min: lo, Max: hi}
		switch cfg.Realtime.Transport {
		case config.TransportSSE:
			pushToken := cfg.Backend.Token
			if pushToken == "" {
				pushToken = token
			}
			source = realtime.NewSSESource(cfg.Realtime.SSEURL, pushToken, backoff, agentLogger)
		case config.TransportRedis:
			source = realtime.NewRedisSource(r.Client, cfg.Realtime.RedisChannel, backoff, agentLogger)
		}

		return workspace.Options{
			API:           api,
			Tabs:          set,
			Cache:         cache.New(cfg.Cache.RefreshTTL(), clk),
			Filter:        engine,
			Source:        source,
			Audit:         collab.Audit,
			History:       collab.History,
			Notifier:      events.NewNotifier(dispatcher, agentLogger, clk),
			Notifications: notes,
			Metrics:       metrics,
			Logger:        agentLogger,
			Principal:     principal,
		}
	}
	return workspace.NewManager(factory, logger), nil
}

func provideServer(cfg *config.Config, manager *workspace.Manager, tokens *auth.TokenManager, pg *persistence.Postgres, r *persistence.Redis, metrics *observability.Metrics, logger *zap.Logger) *fiber.App {
	app := fiber.New(fiber.Config{
		AppName:               cfg.App.Name,
		DisableStartupMessage: true,
	})
	httptransport.RegisterMiddlewares(app, logger, metrics, cfg.App.RequestTimeout())
	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health:         handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, pg, r),
		Tabs:           handlers.NewTabsHandler(manager),
		Tickets:        handlers.NewTicketsHandler(manager),
		Notifications:  handlers.NewNotificationsHandler(manager),
		AuthMiddleware: auth.NewAuthMiddleware(tokens),
	})
	return app
}

func registerLifecycle(lc fx.Lifecycle, cfg *config.Config, app *fiber.App, manager *workspace.Manager, logger *zap.Logger) {
	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			go func() {
				if err := app.Listen(cfg.App.Addr()); err != nil {
					logger.Error("fiber listen", zap.Error(err))
				}
			}()
			logger.Info("console listening", zap.String("addr", cfg.App.Addr()))
			return nil
		},
		OnStop: func(ctx context.Context) error {
			manager.Close()
			err := app.ShutdownWithContext(ctx)
			_ = logger.Sync()
			return err
		},
	})
}
