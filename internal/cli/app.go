package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/musicmoon/marketplace/internal/catalog"
	"github.com/musicmoon/marketplace/internal/config"
	"github.com/musicmoon/marketplace/internal/identity"
	"github.com/musicmoon/marketplace/internal/infra"
	"github.com/musicmoon/marketplace/internal/logging"
	"github.com/musicmoon/marketplace/internal/media"
	"github.com/musicmoon/marketplace/internal/notification"
	"github.com/musicmoon/marketplace/internal/session"
)

// resolveConcurrency bounds concurrent identity lookups per catalog load.
const resolveConcurrency = 4

// slotNamespace scopes the Redis session keys of the CLI.
const slotNamespace = "cli"

// App holds everything a command needs.
type App struct {
	Session *session.Session
	Engine  *catalog.Engine
	Catalog *catalog.Service
	Logger  *slog.Logger

	out io.Writer
}

// Deps are the stores and collaborators an App is built from.
type Deps struct {
	Identities identity.Repository
	Items      catalog.Repository
	Media      media.Store
	Slot       session.Slot
	Config     config.Config
	Out        io.Writer
	Err        io.Writer
	Logger     *slog.Logger
}

// NewApp wires the session and the catalog over d.
func NewApp(d Deps) *App {
	logger := d.Logger
	if logger == nil {
		logger = logging.Discard()
	}
	out := d.Out
	if out == nil {
		out = io.Discard
	}
	errOut := d.Err
	if errOut == nil {
		errOut = io.Discard
	}
	store := d.Media
	if store == nil {
		store = media.NewMemoryStore()
	}

	notifier := notification.NewWriterNotifier(errOut)
	ids := identity.NewService(d.Identities, identity.WithCallTimeout(d.Config.CallTimeout))
	engine := catalog.NewEngine(d.Items, catalog.NewResolver(ids, resolveConcurrency), catalog.EngineConfig{
		Notifier:    notifier,
		Logger:      logger,
		CallTimeout: d.Config.CallTimeout,
	})

	return &App{
		Session: session.New(ids, d.Slot, session.Config{
			Notifier:    notifier,
			Logger:      logger,
			CallTimeout: d.Config.CallTimeout,
			Reconcile:   d.Config.SessionReconcile,
		}),
		Engine:  engine,
		Catalog: catalog.NewService(d.Items, engine, store, ids, catalog.ServiceConfig{
			Notifier:    notifier,
			Logger:      logger,
			CallTimeout: d.Config.CallTimeout,
		}),
		Logger:  logger,
		out:     out,
	}
}

// Open connects the configured backends and the session slot. The returned
// func releases them.
func Open(ctx context.Context, cfg config.Config, out, errOut io.Writer) (*App, func(), error) {
	logger := logging.New(cfg.LogLevel, "text", errOut)

	backends, err := infra.Connect(ctx, cfg, logger)
	if err != nil {
		return nil, nil, err
	}
	slot, closeSlot, err := openSlot(ctx, cfg)
	if err != nil {
		backends.Close(logger)
		return nil, nil, err
	}
	closeAll := func() {
		closeSlot()
		backends.Close(logger)
	}

	deps := Deps{
		Media:  backends.Media,
		Slot:   slot,
		Config: cfg,
		Out:    out,
		Err:    errOut,
		Logger: logger,
	}
	if backends.DB != nil {
		deps.Identities = identity.NewPostgresRepository(backends.DB)
		deps.Items = catalog.NewPostgresRepository(backends.DB)
	} else {
		logger.Warn("DATABASE_URL not set, stores live for this invocation only")
		deps.Identities = identity.NewMemoryRepository()
		deps.Items = catalog.NewMemoryRepository()
	}

	return NewApp(deps), closeAll, nil
}

func openSlot(ctx context.Context, cfg config.Config) (session.Slot, func(), error) {
	if cfg.SessionRedisURL != "" {
		client, err := infra.NewRedisClient(ctx, cfg.SessionRedisURL, cfg.CallTimeout)
		if err != nil {
			return nil, nil, fmt.Errorf("session slot: %w", err)
		}
		return session.NewRedisSlot(client, slotNamespace), func() { _ = client.Close() }, nil
	}

	path, err := sessionPath(cfg)
	if err != nil {
		return nil, nil, err
	}
	db, err := infra.OpenSQLite(ctx, path)
	if err != nil {
		return nil, nil, fmt.Errorf("session slot: %w", err)
	}
	return session.NewSQLiteSlot(db), func() { _ = db.Close() }, nil
}

func sessionPath(cfg config.Config) (string, error) {
	if cfg.SessionPath != "" {
		return cfg.SessionPath, nil
	}
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("locate config dir: %w", err)
	}
	return filepath.Join(dir, "musicmoon", "session.db"), nil
}
