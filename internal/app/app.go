// Package app wires configuration into a ready-to-run listings service. The
// server, the worker and the CLI share it so they build identical stacks.
package app

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/lib/pq"
	"github.com/redis/go-redis/v9"

	"github.com/recares/dme-matcher/internal/config"
	"github.com/recares/dme-matcher/internal/matching"
	"github.com/recares/dme-matcher/internal/notify"
	"github.com/recares/dme-matcher/internal/pkg/distlock"
	"github.com/recares/dme-matcher/internal/pkg/logger"
	"github.com/recares/dme-matcher/internal/repository/memory"
	"github.com/recares/dme-matcher/internal/repository/postgres"
	"github.com/recares/dme-matcher/internal/service/listings"
	"github.com/recares/dme-matcher/internal/storage"
)

// App holds the long-lived dependencies.
type App struct {
	Config  *config.Config
	DB      *sql.DB
	Redis   *redis.Client
	Storage *storage.Storage
	Service *listings.Service
}

// New builds the application from cfg. Close must be called on the result.
func New(ctx context.Context, cfg *config.Config) (*App, error) {
	logger.Configure(cfg.Log.Level, !cfg.Log.DisableRedaction)

	a := &App{Config: cfg}
	ok := false
	defer func() {
		if !ok {
			a.Close()
		}
	}()

	repo, err := a.openStore(ctx)
	if err != nil {
		return nil, err
	}

	if cfg.Redis.URL != "" {
		opts, err := redis.ParseURL(cfg.Redis.URL)
		if err != nil {
			return nil, fmt.Errorf("parse redis url: %w", err)
		}
		a.Redis = redis.NewClient(opts)
		if err := a.Redis.Ping(ctx).Err(); err != nil {
			return nil, fmt.Errorf("ping redis: %w", err)
		}
		logger.Info("connected to redis")
	}

	channel, err := newChannel(ctx, cfg)
	if err != nil {
		return nil, err
	}
	composer, err := notify.NewComposer(notify.Links{
		OptOutForm:     cfg.Links.OptOutFormURL,
		SubmissionForm: cfg.Links.SubmissionFormURL,
	}, cfg.Notify.Signature)
	if err != nil {
		return nil, err
	}

	loc, err := cfg.Matching.Location()
	if err != nil {
		return nil, err
	}

	opts := listings.Options{
		Sheets: listings.Sheets{Main: cfg.Sheets.Main, OptOut: cfg.Sheets.OptOut},
		Rules: matching.Rules{
			FreshnessWindow: cfg.Matching.FreshnessWindow(),
			WarningDay:      cfg.Matching.WarningDay,
			OptInValue:      cfg.Matching.OptInValue,
		},
		OptInLabel: cfg.Matching.OptInLabel,
		LockRetry:  cfg.Lock.Retry(),
		Location:   loc,
	}

	a.Storage, err = storage.New(ctx, cfg.Storage)
	if err != nil {
		return nil, err
	}
	if a.Storage != nil {
		opts.Archiver = a.Storage
	}

	locks := distlock.NewFactory(a.Redis, a.DB, cfg.Lock.TTL())
	a.Service = listings.NewService(repo, notify.NewDispatcher(composer, channel), locks, opts)

	logger.Info("application ready",
		"store", cfg.Store.Type,
		"notify", cfg.Notify.Channel,
		"storage", cfg.Storage.Type,
		"redis", a.Redis != nil,
	)
	ok = true
	return a, nil
}

func (a *App) openStore(ctx context.Context) (listings.Repository, error) {
	switch a.Config.Store.Type {
	case "memory":
		logger.Warn("using in-memory record store; data is lost on exit")
		return memory.NewSheetRepo(), nil
	case "postgres":
	default:
		return nil, fmt.Errorf("unknown store type %q", a.Config.Store.Type)
	}

	db, err := sql.Open("postgres", a.Config.Store.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	a.DB = db
	db.SetMaxOpenConns(a.Config.Store.MaxOpenConns)
	db.SetMaxIdleConns(a.Config.Store.MaxOpenConns / 2)
	db.SetConnMaxLifetime(5 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		return nil, fmt.Errorf("ping database: %w", err)
	}
	logger.Info("connected to database")
	return postgres.NewSheetRepo(db), nil
}

func newChannel(ctx context.Context, cfg *config.Config) (notify.Channel, error) {
	switch cfg.Notify.Channel {
	case "ses":
		return notify.NewSESChannel(ctx, notify.SESConfig{
			Region:           cfg.SES.Region,
			AccessKey:        cfg.SES.AccessKey,
			SecretKey:        cfg.SES.SecretKey,
			FromEmail:        cfg.SES.FromEmail,
			FromName:         cfg.SES.FromName,
			ConfigurationSet: cfg.SES.ConfigurationSet,
			Timeout:          cfg.SES.Timeout(),
		})
	case "log", "":
		return notify.LogChannel{}, nil
	}
	return nil, fmt.Errorf("unknown notify channel %q", cfg.Notify.Channel)
}

// Close releases connections.
func (a *App) Close() {
	if a.Redis != nil {
		a.Redis.Close()
	}
	if a.DB != nil {
		a.DB.Close()
	}
}
