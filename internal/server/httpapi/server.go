// Package httpapi exposes the HTTP surface of the server. Routing is a
// plain mux with one uniform middleware chain; handlers translate between
// the wire format and the core services.
package httpapi

import (
	"context"
	"net/http"
	"time"

	"github.com/dmitrijs2005/tubequery/internal/logging"
	"github.com/dmitrijs2005/tubequery/internal/server/documents"
	"github.com/dmitrijs2005/tubequery/internal/server/index"
	"github.com/dmitrijs2005/tubequery/internal/server/query"
	"github.com/dmitrijs2005/tubequery/internal/server/summary"
	"github.com/dmitrijs2005/tubequery/internal/server/transcript"
	"github.com/dmitrijs2005/tubequery/internal/server/users"
)

type Server struct {
	address    string
	logger     logging.Logger
	users      *users.Service
	documents  *documents.Service
	builder    *index.Builder
	gateway    *query.Gateway
	summarizer *summary.Summarizer
	fetcher    transcript.Fetcher
	jwtSecret  []byte
	corsOrigin string
}

func NewServer(
	address string,
	logger logging.Logger,
	us *users.Service,
	ds *documents.Service,
	builder *index.Builder,
	gateway *query.Gateway,
	summarizer *summary.Summarizer,
	fetcher transcript.Fetcher,
	secretKey string,
	corsOrigin string,
) *Server {
	return &Server{
		address:    address,
		logger:     logger.With("module", "http_server"),
		users:      us,
		documents:  ds,
		builder:    builder,
		gateway:    gateway,
		summarizer: summarizer,
		fetcher:    fetcher,
		jwtSecret:  []byte(secretKey),
		corsOrigin: corsOrigin,
	}
}

// Handler assembles the route table. register/login are public; everything
// else goes through BearerAuth.
func (s *Server) Handler() http.Handler {

	public := []Middleware{RequestLogging(s.logger), CORS(s.corsOrigin)}
	protected := append(append([]Middleware{}, public...), BearerAuth(s.jwtSecret))

	mux := http.NewServeMux()

	mux.Handle("POST /register", Chain(http.HandlerFunc(s.handleRegister), public...))
	mux.Handle("POST /login", Chain(http.HandlerFunc(s.handleLogin), public...))

	mux.Handle("POST /addData", Chain(http.HandlerFunc(s.handleAddData), protected...))
	mux.Handle("POST /summary", Chain(http.HandlerFunc(s.handleSummary), protected...))
	mux.Handle("POST /removeData", Chain(http.HandlerFunc(s.handleRemoveData), protected...))
	mux.Handle("GET /generate", Chain(http.HandlerFunc(s.handleGenerate), protected...))
	mux.Handle("POST /query", Chain(http.HandlerFunc(s.handleQuery), protected...))

	// preflight for any route
	mux.Handle("OPTIONS /", Chain(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}), public...))

	return mux
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {

	srv := &http.Server{
		Addr:    s.address,
		Handler: s.Handler(),
	}

	go func() {
		<-ctx.Done()
		s.logger.Info(ctx, "Stopping HTTP server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	s.logger.Info(ctx, "Starting HTTP server", "address", s.address)

	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}

	return nil
}
