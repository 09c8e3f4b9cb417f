package app

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"riakadm/internal/config"
	"riakadm/internal/core"
	"riakadm/internal/modules/host"
	"riakadm/internal/riak"
	"riakadm/internal/storage"
	"riakadm/internal/storage/sqlite"
	"riakadm/internal/transports/common"
	"riakadm/internal/transports/web"
)

// App агрегирует зависимости агента riakadm.
type App struct {
	Registry   *core.Registry
	Transports *core.TransportManager
	Authorizer core.Authorizer
	Store      storage.Store
	Config     config.Config

	log *slog.Logger
}

// NewRegistry строит реестр модулей: адаптер riak и метрики узла.
func NewRegistry(ctx context.Context, cfg config.Config) (*core.Registry, error) {
	r := core.NewRegistry()
	admin := riak.NewAdmin(riak.ShellRunner{}, cfg.Riak.Bin, cfg.Riak.AdminBin)
	if err := r.Register(ctx, riak.NewModule(admin)); err != nil {
		return nil, fmt.Errorf("register riak module: %w", err)
	}
	if err := r.Register(ctx, &host.Module{DataDir: cfg.Riak.DataDir}); err != nil {
		return nil, fmt.Errorf("register host module: %w", err)
	}
	return r, nil
}

// New строит приложение: реестр, хранилище и транспорты.
func New(ctx context.Context, cfg config.Config, log *slog.Logger) (*App, error) {
	registry, err := NewRegistry(ctx, cfg)
	if err != nil {
		return nil, err
	}

	st, err := sqlite.Open(cfg.SQLite.Path)
	if err != nil {
		return nil, fmt.Errorf("open storage: %w", err)
	}

	authz := core.NewAllowlistAuthorizer(cfg.Security.AuthAllowlist)
	transports := core.NewTransportManager()

	if cfg.Web.Enabled {
		tokens := make([]web.TokenEntry, 0, len(cfg.Web.Tokens))
		for _, token := range cfg.Web.Tokens {
			tokens = append(tokens, web.TokenEntry{
				ID:          token.ID,
				TokenSHA256: token.TokenSHA256,
				Subject:     token.Subject,
				Enabled:     token.Enabled,
			})
		}
		limiter := common.NewRateLimiter(cfg.Web.RateLimitPerSec, time.Second)
		webAdapter := web.NewAdapter(registry, authz, st, limiter, web.Config{
			ListenAddr:      cfg.Web.ListenAddr,
			ReadTimeout:     time.Duration(cfg.Web.ReadTimeoutMS) * time.Millisecond,
			WriteTimeout:    time.Duration(cfg.Web.WriteTimeoutMS) * time.Millisecond,
			RequestTimeout:  time.Duration(cfg.Web.RequestTimeoutMS) * time.Millisecond,
			ShutdownTimeout: time.Duration(cfg.Web.ShutdownTimeoutS) * time.Second,
			MaxRequestBody:  cfg.Web.MaxBodyBytes,
			Tokens:          tokens,
		})
		if err := transports.Register(webAdapter); err != nil {
			_ = st.Close()
			return nil, fmt.Errorf("register web transport: %w", err)
		}
	}

	return &App{
		Registry:   registry,
		Transports: transports,
		Authorizer: authz,
		Store:      st,
		Config:     cfg,
		log:        log,
	}, nil
}

// Close высвобождает ресурсы приложения.
func (a *App) Close() error {
	if a.Store != nil {
		return a.Store.Close()
	}
	return nil
}

// Serve запускает транспорты и периодический сбор срезов состояния
// до отмены контекста.
func (a *App) Serve(ctx context.Context) error {
	if err := a.Transports.StartAll(ctx); err != nil {
		return fmt.Errorf("start transports: %w", err)
	}
	defer func() {
		stopCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = a.Transports.StopAll(stopCtx)
	}()

	interval := time.Duration(a.Config.Scheduler.IntervalSeconds) * time.Second
	if interval <= 0 {
		interval = time.Minute
	}
	sched := core.NewScheduler(interval, a.log)

	sched.Add("riak_status_snapshot", a.snapshotJob("riak", "status"))
	sched.Add("host_status_snapshot", a.snapshotJob("host", "status"))

	sched.Start(ctx)
	return ctx.Err()
}

func (a *App) snapshotJob(module, command string) core.Job {
	return func(jobCtx context.Context) error {
		runCtx, cancel := context.WithTimeout(jobCtx, 10*time.Second)
		defer cancel()

		resp, err := a.Registry.Execute(runCtx, module, command, nil)
		if err != nil {
			return fmt.Errorf("%s %s: %w", module, command, err)
		}
		if resp.Status != "ok" {
			return fmt.Errorf("%s %s: %s", module, command, resp.ErrorCode)
		}
		payload, err := sqlite.MarshalPayload(resp.Data)
		if err != nil {
			return err
		}
		return a.Store.SaveSnapshot(jobCtx, storage.SnapshotRecord{Module: module, Payload: payload})
	}
}
