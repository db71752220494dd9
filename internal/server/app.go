// Package server wires the API server and the thumbnail worker: it opens the
// configured backends, runs the HTTP server and/or worker, and handles
// graceful shutdown.
package server

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/dmitrijs2005/filesmanager/internal/logging"
	"github.com/dmitrijs2005/filesmanager/internal/metrics"
	"github.com/dmitrijs2005/filesmanager/internal/server/blobs"
	"github.com/dmitrijs2005/filesmanager/internal/server/config"
	"github.com/dmitrijs2005/filesmanager/internal/server/httpapi"
	"github.com/dmitrijs2005/filesmanager/internal/server/queue"
	"github.com/dmitrijs2005/filesmanager/internal/server/repositories/files"
	"github.com/dmitrijs2005/filesmanager/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/filesmanager/internal/server/services"
	"github.com/dmitrijs2005/filesmanager/internal/server/sessions"
	"github.com/dmitrijs2005/filesmanager/internal/server/thumbnails"
	"github.com/prometheus/client_golang/prometheus"
)

// queueBuffer is the capacity of the in-process job queue.
const queueBuffer = 256

type App struct {
	config   *config.Config
	logger   logging.Logger
	registry *prometheus.Registry
	recorder metrics.Recorder
	repo     files.Repository
	dbAlive  httpapi.Probe
	blobs    blobs.Store
	queue    queue.Queue
	closers  []io.Closer
}

// NewApp opens the metadata store, the blob store and the job queue shared
// by the API server and the worker.
func NewApp(ctx context.Context, c *config.Config, w io.Writer) (*App, error) {
	app := &App{
		config:   c,
		logger:   logging.New(w, c.LogLevel, c.LogFormat),
		recorder: metrics.Nop{},
	}

	if c.MetricsEnabled {
		app.registry = metrics.NewRegistry()
		app.recorder = metrics.NewRecorder(app.registry)
	}

	if err := app.openRepository(ctx); err != nil {
		app.Close()
		return nil, fmt.Errorf("metadata store init error: %w", err)
	}
	if err := app.openBlobStore(ctx); err != nil {
		app.Close()
		return nil, fmt.Errorf("blob store init error: %w", err)
	}
	if err := app.openQueue(); err != nil {
		app.Close()
		return nil, fmt.Errorf("queue init error: %w", err)
	}

	return app, nil
}

func (app *App) openRepository(ctx context.Context) error {
	switch app.config.MetadataBackend {
	case "badger":
		r, err := files.OpenBadger(app.config.BadgerDir)
		if err != nil {
			return err
		}
		app.closers = append(app.closers, r)
		app.repo = r
		app.dbAlive = func(context.Context) bool { return r.Alive() }
	default:
		db, err := repomanager.OpenPostgres(ctx, app.config.DatabaseDSN)
		if err != nil {
			return err
		}
		app.closers = append(app.closers, db)

		m := repomanager.NewPostgresRepositoryManager()
		if err := m.RunMigrations(ctx, db); err != nil {
			return fmt.Errorf("migrations: %w", err)
		}
		app.repo = m.Files(db)
		app.dbAlive = postgresProbe(db)
	}
	return nil
}

func postgresProbe(db *sql.DB) httpapi.Probe {
	return func(ctx context.Context) bool {
		return db.PingContext(ctx) == nil
	}
}

func (app *App) openBlobStore(ctx context.Context) error {
	c := app.config
	if c.StorageBackend != "s3" {
		app.blobs = blobs.NewLocalStore(c.FolderPath)
		return nil
	}

	s, err := blobs.NewS3Store(ctx, blobs.S3Config{
		Region:       c.S3Region,
		AccessKey:    c.S3RootUser,
		SecretKey:    c.S3RootPassword,
		BaseEndpoint: c.S3BaseEndpoint,
		Bucket:       c.S3Bucket,
		Prefix:       c.FolderPath,
	})
	if err != nil {
		return err
	}
	app.blobs = s
	return nil
}

func (app *App) openQueue() error {
	if app.config.QueueBackend == "memory" {
		app.queue = queue.NewMemoryQueue(queueBuffer)
		app.closers = append(app.closers, app.queue)
		return nil
	}

	q, err := queue.NewRabbitMQ(app.config.AMQPURL, app.config.QueueName, app.config.WorkerConcurrency)
	if err != nil {
		return err
	}
	app.queue = q
	app.closers = append(app.closers, q)
	return nil
}

// Close releases the backends in reverse order of opening.
func (app *App) Close() {
	for i := len(app.closers) - 1; i >= 0; i-- {
		if err := app.closers[i].Close(); err != nil {
			app.logger.Warn(context.Background(), "close failed", "error", err)
		}
	}
	app.closers = nil
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

func (app *App) newWorker() *thumbnails.Worker {
	return thumbnails.NewWorker(
		app.queue,
		thumbnails.NewProcessor(app.repo, app.blobs),
		app.config.WorkerConcurrency,
		app.config.RequeueOnFailure,
		app.recorder,
		app.logger,
	)
}

func (app *App) newHTTPServer(ctx context.Context) (*httpapi.Server, error) {
	cache, err := sessions.NewRedisCache(ctx, app.config.RedisAddr, app.config.RedisPassword, app.config.RedisDB)
	if err != nil {
		return nil, fmt.Errorf("session cache init error: %w", err)
	}
	app.closers = append(app.closers, cache)

	svc := services.NewFileService(
		sessions.NewAuthenticator(cache, app.logger),
		app.repo,
		app.blobs,
		app.queue,
		app.recorder,
		app.logger,
	)

	opts := httpapi.Options{
		Probes: map[string]httpapi.Probe{
			"redis": cache.Alive,
			"db":    app.dbAlive,
		},
		ShutdownTimeout: app.config.ShutdownTimeout,
	}
	if app.registry != nil {
		opts.Metrics = metrics.Handler(app.registry)
	}

	return httpapi.NewServer(app.config.HTTPAddr, svc, opts, app.logger), nil
}

// Run serves the HTTP API, plus the thumbnail worker when RunWorker is set,
// until a termination signal arrives or a component fails.
func (app *App) Run(ctx context.Context) error {
	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	app.logger.Info(ctx, "Starting app...")
	app.initSignalHandler(cancelFunc)

	srv, err := app.newHTTPServer(ctx)
	if err != nil {
		return err
	}

	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		errs []error
	)
	run := func(name string, fn func(context.Context) error) {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := fn(ctx); err != nil {
				app.logger.Error(ctx, name+" stopped", "error", err)
				mu.Lock()
				errs = append(errs, fmt.Errorf("%s: %w", name, err))
				mu.Unlock()
				cancelFunc()
			}
		}()
	}

	run("http server", srv.Run)
	if app.config.RunWorker {
		run("worker", app.newWorker().Run)
	}

	wg.Wait()
	app.logger.Info(context.Background(), "App stopped")
	return errors.Join(errs...)
}

// RunWorker runs the thumbnail worker alone.
func (app *App) RunWorker(ctx context.Context) error {
	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	app.logger.Info(ctx, "Starting worker...")
	app.initSignalHandler(cancelFunc)

	if app.registry != nil {
		go app.serveMetrics(ctx)
	}

	return app.newWorker().Run(ctx)
}

// serveMetrics exposes /metrics of a standalone worker on HTTPAddr.
func (app *App) serveMetrics(ctx context.Context) {
	mux := http.NewServeMux()
	mux.Handle("GET /metrics", metrics.Handler(app.registry))
	srv := &http.Server{Addr: app.config.HTTPAddr, Handler: mux, ReadHeaderTimeout: 10 * time.Second}

	go func() {
		<-ctx.Done()
		_ = srv.Close()
	}()

	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		app.logger.Warn(ctx, "metrics listener", "error", err)
	}
}
