package main

import (
	"context"
	"database/sql"
	"io/fs"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	glog "github.com/goliatone/go-logger/glog"
	persistence "github.com/goliatone/go-persistence-bun"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/schema"

	inbox "github.com/goliatone/go-inbox"
	"github.com/goliatone/go-inbox/adapters/prommetrics"
	"github.com/goliatone/go-inbox/core"
	inboxmigrations "github.com/goliatone/go-inbox/migrations"
	sqlstore "github.com/goliatone/go-inbox/store/sql"
	"github.com/goliatone/go-inbox/transport"
	"github.com/goliatone/go-inbox/webhooks"

	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
)

func main() {
	_, logger := glog.Resolve("inbox-server", nil, nil)
	logger = glog.Ensure(logger)

	if err := run(logger); err != nil {
		logger.Error("server exited with error", "error", err.Error())
		os.Exit(1)
	}
}

func run(logger glog.Logger) error {
	ctx := context.Background()

	cfg, err := loadConfig(ctx)
	if err != nil {
		return err
	}

	client, cleanup, err := openPersistence(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer cleanup()

	factory, err := sqlstore.NewRepositoryFactoryFromPersistence(client)
	if err != nil {
		return err
	}

	recorder := prommetrics.New(prometheus.DefaultRegisterer)

	svc, err := inbox.NewService(cfg,
		inbox.WithLogger(logger),
		inbox.WithMetricsRecorder(recorder),
		inbox.WithPersistenceClient(client),
		inbox.WithRepositoryFactory(factory),
		inbox.WithSignatureVerifier(webhooks.NewHMACVerifier(cfg.WebhookSecret)),
	)
	if err != nil {
		return err
	}

	router := transport.NewRouter(svc, transport.RouterOptions{
		Logger:          logger,
		MetricsRecorder: recorder,
	})

	server := &http.Server{
		Addr:         cfg.Server.Address,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("starting inbox server",
			"address", cfg.Server.Address,
			"driver", cfg.Database.Driver,
		)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return err
	case sig := <-quit:
		logger.Info("shutting down", "signal", sig.String())
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return err
	}

	logger.Info("server stopped")
	return nil
}

// loadConfig resolves defaults, environment values, and validation through
// the same provider/resolver pipeline the service itself uses, so a missing
// webhook secret fails here at startup rather than on the first request.
func loadConfig(ctx context.Context) (core.Config, error) {
	defaults := inbox.DefaultConfig()
	provider := core.NewCfgxConfigProvider(core.MapRawConfigLoader{Values: envConfigLayer()})

	loaded, err := provider.Load(ctx, defaults)
	if err != nil {
		return core.Config{}, err
	}
	return core.GoOptionsResolver{}.Resolve(defaults, loaded, core.Config{})
}

func envConfigLayer() map[string]any {
	layer := map[string]any{}
	setEnv := func(target map[string]any, key, env string) {
		if value := strings.TrimSpace(os.Getenv(env)); value != "" {
			target[key] = value
		}
	}

	setEnv(layer, "service_name", "INBOX_SERVICE_NAME")
	setEnv(layer, "webhook_secret", "INBOX_WEBHOOK_SECRET")

	server := map[string]any{}
	setEnv(server, "address", "INBOX_SERVER_ADDRESS")
	setEnv(server, "signature_header", "INBOX_SIGNATURE_HEADER")
	if len(server) > 0 {
		layer["server"] = server
	}

	database := map[string]any{}
	setEnv(database, "driver", "INBOX_DB_DRIVER")
	setEnv(database, "dsn", "INBOX_DB_DSN")
	if len(database) > 0 {
		layer["database"] = database
	}

	return layer
}

func openPersistence(
	ctx context.Context,
	cfg core.Config,
	logger glog.Logger,
) (*persistence.Client, func(), error) {
	var dialect schema.Dialect
	migrationDialect := inboxmigrations.DialectSQLite
	switch cfg.Database.Driver {
	case "postgres":
		dialect = pgdialect.New()
		migrationDialect = inboxmigrations.DialectPostgres
	default:
		dialect = sqlitedialect.New()
	}

	sqlDB, err := sql.Open(cfg.Database.Driver, cfg.Database.DSN)
	if err != nil {
		return nil, nil, err
	}

	client, err := persistence.New(persistenceConfig{cfg: cfg}, sqlDB, dialect)
	if err != nil {
		_ = sqlDB.Close()
		return nil, nil, err
	}

	_, err = inboxmigrations.Register(ctx, func(_ context.Context, name string, _ string, fsys fs.FS) error {
		if name != migrationDialect {
			return nil
		}
		client.RegisterSQLMigrations(fsys)
		return nil
	}, inboxmigrations.WithValidationTargets(migrationDialect))
	if err != nil {
		_ = client.Close()
		return nil, nil, err
	}

	logger.Info("running migrations", "dialect", migrationDialect)
	if err := client.Migrate(ctx); err != nil {
		_ = client.Close()
		return nil, nil, err
	}

	return client, func() { _ = client.Close() }, nil
}

type persistenceConfig struct {
	cfg core.Config
}

func (c persistenceConfig) GetDebug() bool                { return false }
func (c persistenceConfig) GetDriver() string             { return c.cfg.Database.Driver }
func (c persistenceConfig) GetServer() string             { return c.cfg.Database.DSN }
func (c persistenceConfig) GetPingTimeout() time.Duration { return 5 * time.Second }
func (c persistenceConfig) GetOtelIdentifier() string     { return c.cfg.ServiceName }
