// Package httpapi exposes the file service over HTTP.
package httpapi

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/dmitrijs2005/filesmanager/internal/logging"
	"github.com/dmitrijs2005/filesmanager/internal/server/models"
	"github.com/dmitrijs2005/filesmanager/internal/server/services"
)

// FileService is the business API served by the handlers.
type FileService interface {
	Create(ctx context.Context, token string, req services.CreateRequest) (*models.File, error)
	Get(ctx context.Context, token, id string) (*models.File, error)
	List(ctx context.Context, token, parentID string, page int) ([]*models.File, error)
	SetPublic(ctx context.Context, token, id string, public bool) (*models.File, error)
	Content(ctx context.Context, token, id, size string) (*services.Content, error)
	Count(ctx context.Context) (int64, error)
}

// Probe reports whether a backing service is reachable.
type Probe func(ctx context.Context) bool

// Options carries the optional parts of the HTTP surface.
type Options struct {
	// Probes are reported by GET /status under their map keys.
	Probes map[string]Probe
	// Metrics, when set, is served at GET /metrics.
	Metrics         http.Handler
	ShutdownTimeout time.Duration
}

type Server struct {
	address string
	files   FileService
	opts    Options
	logger  logging.Logger
}

func NewServer(address string, files FileService, opts Options, logger logging.Logger) *Server {
	if opts.ShutdownTimeout <= 0 {
		opts.ShutdownTimeout = 10 * time.Second
	}
	return &Server{
		address: address,
		files:   files,
		opts:    opts,
		logger:  logger.With("module", "http_server"),
	}
}

// Handler returns the routed handler with logging and panic recovery.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /status", s.getStatus)
	mux.HandleFunc("GET /stats", s.getStats)
	if s.opts.Metrics != nil {
		mux.Handle("GET /metrics", s.opts.Metrics)
	}

	mux.HandleFunc("POST /files", s.postFile)
	mux.HandleFunc("GET /files", s.listFiles)
	mux.HandleFunc("GET /files/{id}", s.getFile)
	mux.HandleFunc("PUT /files/{id}/publish", s.setPublic(true))
	mux.HandleFunc("PUT /files/{id}/unpublish", s.setPublic(false))
	mux.HandleFunc("GET /files/{id}/data", s.getFileData)

	return s.recoverer(s.accessLog(mux))
}

// Run serves until ctx is cancelled, then drains in-flight requests for up
// to the shutdown timeout.
func (s *Server) Run(ctx context.Context) error {
	listen, err := net.Listen("tcp", s.address)
	if err != nil {
		return err
	}

	srv := &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	go func() {
		<-ctx.Done()
		s.logger.Info(ctx, "Stopping HTTP server...")
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.opts.ShutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			s.logger.Error(ctx, "HTTP shutdown", "error", err)
		}
	}()

	s.logger.Info(ctx, "Starting HTTP server", "address", listen.Addr().String())

	if err := srv.Serve(listen); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
