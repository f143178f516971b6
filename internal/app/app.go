package app

import (
	"context"
	"crypto/tls"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/lmittmann/tint"
	"github.com/niksmo/shopfront/config"
	"github.com/niksmo/shopfront/internal/adapter"
	"github.com/niksmo/shopfront/internal/adapter/backend"
	"github.com/niksmo/shopfront/internal/adapter/kafka"
	"github.com/niksmo/shopfront/internal/adapter/shell"
	"github.com/niksmo/shopfront/internal/adapter/terminal"
	"github.com/niksmo/shopfront/internal/adapter/tokenstore/memory"
	"github.com/niksmo/shopfront/internal/adapter/tokenstore/redis"
	"github.com/niksmo/shopfront/internal/adapter/tokenstore/sqlite"
	"github.com/niksmo/shopfront/internal/core/port"
	"github.com/niksmo/shopfront/internal/core/service"
	"github.com/niksmo/shopfront/internal/core/session"
	"github.com/niksmo/shopfront/pkg/schema"
	"github.com/twmb/franz-go/pkg/sr"
)

type tokenStore interface {
	port.TokenStore
	Close()
}

// Streams wires the app to the terminal.
type Streams struct {
	In  io.Reader
	Out io.Writer
	Err io.Writer
}

type App struct {
	ctx     context.Context
	cfg     config.Config
	streams Streams

	store    tokenStore
	session  *session.Session
	backend  *backend.Client
	producer port.ClientEventsProducer
	view     *terminal.View
	service  *service.Service
	shell    *shell.Shell
}

func New(ctx context.Context, cfg config.Config, streams Streams) *App {
	app := &App{ctx: ctx, cfg: cfg, streams: streams}

	app.initLogger()
	app.initTokenStore()
	app.initSession()
	app.initBackend()
	app.initEventsProducer()
	app.initView()
	app.initCoreService()
	app.initInboundAdapters()

	return app
}

func (app *App) initLogger() {
	var h slog.Handler
	switch app.cfg.LogFormat {
	case config.LogFormatJSON:
		opts := &slog.HandlerOptions{Level: app.cfg.LogLevel}
		h = slog.NewJSONHandler(app.streams.Err, opts)
	default:
		h = tint.NewHandler(app.streams.Err, &tint.Options{
			Level:      app.cfg.LogLevel,
			TimeFormat: time.TimeOnly,
			NoColor:    os.Getenv("NO_COLOR") != "",
		})
	}
	slog.SetDefault(slog.New(h))
}

func (app *App) initTokenStore() {
	const op = "App.initTokenStore"
	cfg := app.cfg.TokenStore

	switch cfg.Driver {
	case config.TokenStoreSQLite:
		store, err := sqlite.Open(app.ctx, cfg.SQLitePath, cfg.Key)
		if err != nil {
			app.fallDown(op, err)
		}
		app.store = store
	case config.TokenStoreRedis:
		store, err := redis.New(app.ctx, redis.Config{
			Addr:      cfg.RedisAddr,
			KeyPrefix: cfg.RedisPrefix,
			Key:       cfg.Key,
		})
		if err != nil {
			app.fallDown(op, err)
		}
		app.store = store
	default:
		app.store = memoryStore{memory.New()}
	}

	slog.Info("token store is ready", "op", op, "driver", cfg.Driver)
}

// memoryStore gives the in-memory store the lifecycle of the others.
type memoryStore struct {
	*memory.Store
}

func (memoryStore) Close() {}

func (app *App) initSession() {
	const op = "App.initSession"

	app.session = session.New(app.store)
	if err := app.session.Restore(app.ctx); err != nil {
		slog.Warn("failed to restore session", "op", op, "err", err)
	}
}

func (app *App) initBackend() {
	const op = "App.initBackend"
	cfg := app.cfg.Backend

	tlsConfig, err := makeTLSConfig(cfg.TLS.Enabled(), cfg.TLS.CA, cfg.TLS.Cert, cfg.TLS.Key)
	if err != nil {
		app.fallDown(op, err)
	}

	cl, err := backend.New(backend.Config{
		BaseURL:   cfg.BaseURL,
		Timeout:   cfg.RequestTimeout,
		TLSConfig: tlsConfig,
		RateLimit: cfg.RateLimit,
		Burst:     cfg.Burst,
	})
	if err != nil {
		app.fallDown(op, err)
	}
	app.backend = cl
}

// initEventsProducer connects the client events producer. Events are
// optional, so an unreachable broker or registry only disables them.
func (app *App) initEventsProducer() {
	const op = "App.initEventsProducer"
	log := slog.With("op", op)
	cfg := app.cfg.Events

	if !cfg.Enabled() {
		log.Info("client events are disabled")
		return
	}

	tlsConfig, err := makeTLSConfig(cfg.TLS.Enabled(), cfg.TLS.CA, cfg.TLS.Cert, cfg.TLS.Key)
	if err != nil {
		app.fallDown(op, err)
	}

	srOpts := []sr.ClientOpt{sr.URLs(cfg.SchemaRegistryURLs...)}
	if tlsConfig != nil {
		srOpts = append(srOpts, sr.DialTLSConfig(tlsConfig))
	}
	srClient, err := sr.NewClient(srOpts...)
	if err != nil {
		app.fallDown(op, err)
	}

	serde, err := schema.NewSerdeClientEventV1(
		app.ctx,
		schema.SubjectOpt(schema.ValueSubject(cfg.Topic)),
		schema.SchemaIdentifierOpt(schema.NewSchemaCreater(srClient)),
	)
	if err != nil {
		log.Warn("client events are disabled", "err", err)
		return
	}

	producer, err := kafka.NewClientEventsProducer(
		kafka.ProducerClientOpt(app.ctx, kafka.ClientConfig{
			SeedBrokers:     cfg.SeedBrokers,
			Topic:           cfg.Topic,
			TLSConfig:       tlsConfig,
			DeliveryTimeout: cfg.DeliveryTimeout,
		}),
		kafka.ProducerEncoderOpt(serde),
	)
	if err != nil {
		log.Warn("client events are disabled", "err", err)
		return
	}

	app.producer = producer
	log.Info("client events are enabled", "topic", cfg.Topic)
}

func (app *App) initView() {
	app.view = terminal.New(app.streams.Out)
}

func (app *App) initCoreService() {
	var events port.EventPublisher
	if app.producer != nil {
		events = app.producer
	}
	app.service = service.New(
		app.backend,
		app.session,
		app.view,
		app.view,
		events,
	)
}

func (app *App) initInboundAdapters() {
	app.shell = shell.New(
		app.service,
		app.streams.Out,
		shell.WithPrefill(app.view.Prefill),
	)
}

// Run renders the start page and serves shell commands until the input
// ends, then calls stopFn.
func (app *App) Run(stopFn context.CancelFunc) {
	const op = "App.Run"

	go func() {
		defer stopFn()

		app.service.Start(app.ctx)
		if err := app.shell.Run(app.ctx, app.streams.In); err != nil {
			slog.Error("shell stopped", "op", op, "err", err)
		}
	}()

	slog.Info("application is running", "backend", app.backend.BaseURL())
}

func (app *App) Close(ctx context.Context) {
	slog.Info("application is closing...")

	done := make(chan struct{})
	go func() {
		defer close(done)
		if app.producer != nil {
			app.producer.Close()
		}
		app.store.Close()
	}()

	select {
	case <-done:
		slog.Info("application is closed")
	case <-ctx.Done():
		slog.Warn("application close timed out")
	}
}

func (app *App) fallDown(op string, err error) {
	panic(fmt.Errorf("%s: %w", op, err))
}

func makeTLSConfig(enabled bool, ca, cert, key string) (*tls.Config, error) {
	if !enabled {
		return nil, nil
	}
	return adapter.MakeTLSConfig(ca, cert, key)
}
