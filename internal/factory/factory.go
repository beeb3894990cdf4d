package factory

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/mcoot/futebolada/internal/config"
	"github.com/mcoot/futebolada/internal/dependencies/clock"
	"github.com/mcoot/futebolada/internal/dependencies/ids"
	"github.com/mcoot/futebolada/internal/dependencies/random"
	"github.com/mcoot/futebolada/internal/geocode"
	"github.com/mcoot/futebolada/internal/notify"
	"github.com/mcoot/futebolada/internal/services/auth"
	"github.com/mcoot/futebolada/internal/services/enrollment"
	"github.com/mcoot/futebolada/internal/services/games"
	"github.com/mcoot/futebolada/internal/storage"
	"github.com/mcoot/futebolada/internal/storage/memory"
	"github.com/mcoot/futebolada/internal/storage/postgres"
	"github.com/mcoot/futebolada/internal/waha"
)

// App contains all wired application components
type App struct {
	// Storage
	Storage storage.Storage

	// External dependencies
	Clock  clock.Clock
	Random random.Random
	IDs    ids.Generator

	// Services
	AuthService       *auth.Service
	GamesService      *games.Service
	EnrollmentService *enrollment.Service

	// Notifications. Queue is nil when notifications are disabled.
	Queue    *notify.Queue
	Notifier notify.Notifier

	closers []io.Closer
}

// Config holds configuration for the application factory
type Config struct {
	// AuthConfig holds configuration for the auth service
	AuthConfig auth.Config
	// Logger is the application logger (optional)
	// If nil, a no-op logger is used
	Logger *slog.Logger
	// StorageType selects the storage backend ("memory" or "postgres")
	// If empty, defaults to "memory"
	StorageType string
	// Database holds connection settings (required if StorageType is "postgres")
	Database config.DatabaseConfig
	// Location is the zone game times are interpreted in. Defaults to UTC.
	Location *time.Location
	// GeocoderURL enables reverse geocoding when set
	GeocoderURL string
	// Notifications holds messaging provider settings
	Notifications config.NotificationsConfig
}

// ConfigFrom maps environment configuration onto factory configuration
func ConfigFrom(c *config.Config, logger *slog.Logger) Config {
	return Config{
		AuthConfig:    auth.DefaultConfig(c.SessionSecret),
		Logger:        logger,
		StorageType:   c.StorageType,
		Database:      c.Database,
		Location:      c.Location,
		GeocoderURL:   c.GeocoderURL,
		Notifications: c.Notifications,
	}
}

// New creates a new application with all dependencies wired
func New(ctx context.Context, cfg Config) (*App, error) {
	// Use no-op logger if not provided
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}
	if cfg.AuthConfig.SessionSecret == "" {
		return nil, errors.New("AuthConfig.SessionSecret is required")
	}

	var closers []io.Closer

	// Create storage based on type
	var store storage.Storage
	storageType := cfg.StorageType
	if storageType == "" {
		storageType = config.StorageTypeMemory
	}

	switch storageType {
	case config.StorageTypeMemory:
		store = memory.New()
	case config.StorageTypePostgres:
		pgStore, err := postgres.New(ctx, cfg.Database)
		if err != nil {
			return nil, fmt.Errorf("connecting to database: %w", err)
		}
		store = pgStore
		closers = append(closers, pgStore)
	default:
		return nil, errors.New("invalid StorageType: must be 'memory' or 'postgres'")
	}

	// Create external dependencies
	clk := clock.New()
	rnd := random.New()

	var geocoder games.Geocoder
	if cfg.GeocoderURL != "" {
		geocoder = geocode.NewClient(cfg.GeocoderURL)
	}

	var queue *notify.Queue
	var notifier notify.Notifier = notify.NopNotifier{}
	if n := cfg.Notifications; n.Enabled {
		queueCfg := notify.DefaultConfig()
		if n.MessagesPerMinute > 0 {
			queueCfg.MessagesPerMinute = n.MessagesPerMinute
		}

		// A nil limiter paces in-process only
		var limiter notify.Limiter
		if n.RedisURL != "" {
			pacer, err := notify.NewRedisPacer(notify.DefaultRedisConfig(n.RedisURL, queueCfg.Interval()), clk)
			if err != nil {
				_ = closeAll(closers)
				return nil, fmt.Errorf("creating notification pacer: %w", err)
			}
			limiter = pacer
			closers = append(closers, pacer)
		}

		client := waha.NewClient(waha.Config{BaseURL: n.BaseURL, APIKey: n.APIKey, Session: n.Session})
		sender := waha.NewSafeSender(client, clk, rnd, logger)
		queue = notify.NewQueue(sender, limiter, clk, rnd, queueCfg, logger)
		notifier = notify.NewChatNotifier(queue, n.ChatID)
	}

	app := newWithDependencies(store, clk, rnd, ids.New(), geocoder, cfg.AuthConfig, cfg.Location, logger)
	app.Queue = queue
	app.Notifier = notifier
	app.closers = closers
	return app, nil
}

// newWithDependencies creates an App with the given dependencies (useful for testing)
func newWithDependencies(store storage.Storage, clk clock.Clock, rnd random.Random, idGen ids.Generator, geocoder games.Geocoder, authCfg auth.Config, location *time.Location, logger *slog.Logger) *App {
	if location == nil {
		location = time.UTC
	}

	// Create services
	authService := auth.New(store, clk, idGen, authCfg, logger)
	gamesService := games.New(store, clk, idGen, geocoder, location, logger)
	enrollmentService := enrollment.New(store, clk, idGen, location, logger)

	return &App{
		Storage:           store,
		Clock:             clk,
		Random:            rnd,
		IDs:               idGen,
		AuthService:       authService,
		GamesService:      gamesService,
		EnrollmentService: enrollmentService,
		Notifier:          notify.NopNotifier{},
	}
}

// Close drains pending notifications and releases connections
func (a *App) Close(ctx context.Context) error {
	var errs []error
	if a.Queue != nil {
		if err := a.Queue.Flush(ctx); err != nil {
			errs = append(errs, fmt.Errorf("flushing notifications: %w", err))
		}
	}
	if err := closeAll(a.closers); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

func closeAll(closers []io.Closer) error {
	var errs []error
	for i := len(closers) - 1; i >= 0; i-- {
		if err := closers[i].Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
