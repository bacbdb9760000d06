// Package server wires configuration, storage, notification delivery and
// rate limiting into the REST API and gRPC health servers, and runs them
// until a shutdown signal arrives.
package server

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/dmitrijs2005/lemonauth/internal/cryptox"
	"github.com/dmitrijs2005/lemonauth/internal/logging"
	"github.com/dmitrijs2005/lemonauth/internal/server/auth"
	"github.com/dmitrijs2005/lemonauth/internal/server/config"
	"github.com/dmitrijs2005/lemonauth/internal/server/httpapi"
	"github.com/dmitrijs2005/lemonauth/internal/server/notify"
	"github.com/dmitrijs2005/lemonauth/internal/server/ratelimit"
	"github.com/dmitrijs2005/lemonauth/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/lemonauth/internal/server/services"
	"github.com/redis/go-redis/v9"

	gs "github.com/dmitrijs2005/lemonauth/internal/server/grpc"
)

type App struct {
	config     *config.Config
	logger     logging.Logger
	db         *sql.DB
	dispatcher *notify.Dispatcher
	sender     notify.Sender
	redis      *redis.Client
	handler    *httpapi.Handler
	limiter    ratelimit.Limiter
}

// OpenDatabase connects to PostgreSQL through pgx.
func OpenDatabase(ctx context.Context, dsn string) (*sql.DB, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("db open error: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("db ping error: %w", err)
	}
	return db, nil
}

// Migrator applies the embedded migrations to DB.
type Migrator struct {
	DB      *sql.DB
	Manager repomanager.RepositoryManager
}

func (m Migrator) Migrate(ctx context.Context) error {
	if err := m.Manager.RunMigrations(ctx, m.DB); err != nil {
		return fmt.Errorf("migrations error: %w", err)
	}
	return nil
}

func NewApp(ctx context.Context, c *config.Config) (*App, error) {

	logger := logging.New(os.Stdout, c.LogLevel, c.LogFormat)

	db, err := OpenDatabase(ctx, c.DatabaseDSN)
	if err != nil {
		return nil, err
	}

	m := repomanager.NewPostgresRepositoryManager()
	if err := (Migrator{DB: db, Manager: m}).Migrate(ctx); err != nil {
		db.Close()
		return nil, err
	}

	sealer, err := cryptox.NewSealerFromHex(c.MFAEncryptionKey, c.SecretKey)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("mfa sealer init error: %w", err)
	}

	sender, err := newSender(c, logger)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("notifier init error: %w", err)
	}
	dispatcher := notify.NewDispatcher(sender, logger, c.NotifierQueueSize, c.NotifierTimeout)

	app := &App{config: c, logger: logger, db: db, dispatcher: dispatcher, sender: sender}

	if c.RedisAddr != "" {
		app.redis = redis.NewClient(&redis.Options{Addr: c.RedisAddr, Password: c.RedisPassword})
		app.limiter = ratelimit.NewRedisLimiter(app.redis, c.RateLimitMax, c.RateLimitWindow)
	} else {
		app.limiter = ratelimit.NewMemoryLimiter(c.RateLimitMax, c.RateLimitWindow)
	}

	store := repomanager.NewStore(db, m)
	issuer := services.NewSessionIssuer(c)
	hasher := auth.NewPasswordHasher(auth.DefaultArgon2Params)

	as := services.NewAuthService(store, hasher, issuer, dispatcher, logger, c)
	ms := services.NewMFAService(store, issuer, sealer, logger, c)
	opts := services.NewOptionService(store, logger)

	app.handler = httpapi.NewHandler(as, ms, opts, logger, c.SecretKey)

	return app, nil
}

func newSender(c *config.Config, logger logging.Logger) (notify.Sender, error) {
	switch c.NotifierKind {
	case config.NotifierSMTP:
		return notify.NewSMTPSender(notify.SMTPConfig{
			Host:     c.SMTPHost,
			Port:     c.SMTPPort,
			Username: c.SMTPUsername,
			Password: c.SMTPPassword,
			From:     c.SMTPFrom,
		}), nil
	case config.NotifierKafka:
		return notify.NewKafkaSender(c.KafkaBrokers, c.KafkaTopic)
	default:
		return notify.NewLogSender(logger), nil
	}
}

func (app *App) initSignalHandler(cancelFunc context.CancelFunc) {
	// Channel to catch OS signals.
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		<-sigs
		cancelFunc()
	}()
}

func (app *App) startHTTPServer(ctx context.Context, cancelFunc context.CancelFunc) {
	router := httpapi.NewRouter(app.handler, app.limiter, app.config.CORSOrigins, app.logger)
	s := httpapi.NewHTTPServer(app.config.HTTPAddr, router, app.logger)

	if err := s.Run(ctx); err != nil {
		app.logger.Error(ctx, err.Error())
		cancelFunc()
	}
}

func (app *App) startGRPCServer(ctx context.Context, cancelFunc context.CancelFunc) {
	s := gs.NewGRPCServer(app.config.GRPCAddr, app.logger, app.db)

	if err := s.Run(ctx); err != nil {
		app.logger.Error(ctx, err.Error())
		cancelFunc()
	}
}

func (app *App) Run(ctx context.Context) {

	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	app.logger.Info(ctx, "Starting app...")

	app.initSignalHandler(cancelFunc)

	var wg sync.WaitGroup

	wg.Add(2)
	go func() {
		defer wg.Done()
		app.startHTTPServer(ctx, cancelFunc)
	}()
	go func() {
		defer wg.Done()
		app.startGRPCServer(ctx, cancelFunc)
	}()

	wg.Wait()

	app.close(ctx)
}

// closeNotifier flushes queued notifications, then releases the sender's
// transport (the Kafka producer, for one).
func (app *App) closeNotifier(ctx context.Context) {
	app.dispatcher.Close()
	if d := app.dispatcher.Dropped(); d > 0 {
		app.logger.Warn(ctx, "notifications dropped", "count", d)
	}

	if c, ok := app.sender.(io.Closer); ok {
		if err := c.Close(); err != nil {
			app.logger.Error(ctx, "notifier close error", "error", err)
		}
	}
}

// close flushes queued notifications before releasing connections.
func (app *App) close(ctx context.Context) {
	app.closeNotifier(ctx)

	if app.redis != nil {
		if err := app.redis.Close(); err != nil {
			app.logger.Error(ctx, "redis close error", "error", err)
		}
	}
	if err := app.db.Close(); err != nil {
		app.logger.Error(ctx, "db close error", "error", err)
	}

	app.logger.Info(ctx, "App stopped")
}
