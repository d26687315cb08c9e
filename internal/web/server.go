package web

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"net/http"
	"time"

	"github.com/cjeanneret/PanSplit/internal/debug"
)

// Shutdown budgets: the running split job first, then HTTP connections.
const (
	httpShutdownTimeout = 5 * time.Second
	jobShutdownTimeout  = 30 * time.Second
)

// Server serves the split control page and its API.
type Server struct {
	addr     string
	handlers *Handlers
}

// NewServer creates a server for addr. A nil runSplit leaves POST /run
// answering 503.
func NewServer(addr string, events *EventHub, runSplit RunSplitFunc, formDefaults FormConfig) (*Server, error) {
	subFS, err := fs.Sub(staticFiles, "static")
	if err != nil {
		return nil, fmt.Errorf("while opening embedded page: %w", err)
	}
	return &Server{
		addr:     addr,
		handlers: NewHandlers(events, runSplit, formDefaults, subFS),
	}, nil
}

// Mux returns an http.Handler with all routes registered.
func (s *Server) Mux() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("POST /run", s.handlers.HandleRun)
	mux.HandleFunc("POST /cancel", s.handlers.HandleCancel)
	mux.HandleFunc("GET /config", s.handlers.HandleConfig)
	mux.HandleFunc("GET /status/stream", s.handlers.HandleStatusStream)
	mux.Handle("/static/", http.StripPrefix("/static/", http.FileServer(http.FS(s.handlers.staticFS))))
	mux.HandleFunc("GET /{$}", s.handlers.ServeIndex) // exact match for root only

	return mux
}

// Handlers returns the handlers behind Mux.
func (s *Server) Handlers() *Handlers { return s.handlers }

// Run serves until ctx is done. It then cancels the running split job and
// waits for it so no output file is left half written, ends the status
// streams and shuts the HTTP server down.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{Addr: s.addr, Handler: s.Mux()}
	errCh := make(chan error, 1)
	go func() {
		debug.Info("Web control listening on %s", s.addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	debug.Info("Web control shutting down")
	jobCtx, cancelJob := context.WithTimeout(context.Background(), jobShutdownTimeout)
	defer cancelJob()
	jobErr := s.handlers.Shutdown(jobCtx)

	httpCtx, cancel := context.WithTimeout(context.Background(), httpShutdownTimeout)
	defer cancel()
	return errors.Join(jobErr, srv.Shutdown(httpCtx))
}
