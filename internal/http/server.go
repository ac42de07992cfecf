package http

import (
	"context"
	"errors"
	"fmt"
	"html/template"
	"io/fs"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"
	"golang.org/x/text/language"

	"chitieu/internal/core"
	"chitieu/internal/intake"
	"chitieu/internal/log"
	appweb "chitieu/web"
)

// RecordStore is the part of the record store the HTTP surface reads and mutates.
type RecordStore interface {
	Snapshot() []core.Record
	Remove(ctx context.Context, id string) bool
	Clear(ctx context.Context)
	Health() error
}

// Submitter validates and appends user input.
type Submitter interface {
	Submit(ctx context.Context, in intake.Input) (core.Record, error)
}

// Metrics is implemented by metrics.Collector.
type Metrics interface {
	ObserveHTTP(method, route string, status int, d time.Duration)
	Handler() http.Handler
}

// Deps are the collaborators of the HTTP server. Store and Intake are required.
type Deps struct {
	Store          RecordStore
	Intake         Submitter
	Logger         *log.Logger
	Metrics        Metrics
	Budgets        map[core.Category]decimal.Decimal
	Locale         language.Tag
	Location       *time.Location
	AllowedOrigins []string
	WriteLimit     int // write requests per client per minute; 0 disables limiting
	Now            func() time.Time
}

type Server struct {
	http.Server
	deps      Deps
	logger    *log.Logger
	templates *template.Template
	limiter   *rateLimiter
}

// NewServer configures routes and templates, returning a ready-to-run server.
func NewServer(addr string, deps Deps) (*Server, error) {
	if deps.Store == nil || deps.Intake == nil {
		return nil, errors.New("http server requires a store and an intake")
	}
	if deps.Logger == nil {
		deps.Logger = log.Discard()
	}
	if deps.Location == nil {
		deps.Location = time.Local
	}
	if deps.Locale == language.Und {
		deps.Locale = language.Vietnamese
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}

	t, err := template.New("").Funcs(templateFuncs(deps.Locale, deps.Location)).
		ParseFS(appweb.TemplatesFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("parse templates: %w", err)
	}

	s := &Server{
		deps:      deps,
		logger:    deps.Logger.WithComponent(log.ComponentHTTP),
		templates: t,
	}
	if deps.WriteLimit > 0 {
		s.limiter = newRateLimiter(deps.WriteLimit, 5*time.Minute)
	}
	s.Server = http.Server{
		Addr:              addr,
		Handler:           s.routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s, nil
}

func (s *Server) routes() http.Handler {
	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(log.Middleware(s.logger))
	r.Use(log.RequestIDMiddleware(func(r *http.Request) string {
		return chimiddleware.GetReqID(r.Context())
	}))
	r.Use(s.observe)
	r.Use(securityHeaders(defaultHeadersConfig()))

	origins := s.deps.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"http://localhost:*"}
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type", "X-Request-ID"},
		ExposedHeaders: []string{"X-Request-ID"},
		MaxAge:         300,
	}))

	if sub, err := fs.Sub(appweb.StaticFS, "static"); err == nil {
		static := http.StripPrefix("/static/", http.FileServer(http.FS(sub)))
		r.With(staticCache(3600)).Handle("/static/*", static)
	} else {
		s.logger.Warn("Failed to mount embedded static FS", log.FieldError, err)
	}

	r.Get("/healthz", handleHealth)
	r.Get("/readyz", s.handleReady)
	if s.deps.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", s.deps.Metrics.Handler())
	}

	r.Get("/", s.handleIndex)
	r.Get("/summary", s.handleSummary)
	r.Get("/export.csv", s.handleExportCSV)
	r.Route("/records", func(r chi.Router) {
		r.Get("/", s.handleListRecords)
		r.Group(func(r chi.Router) {
			if s.limiter != nil {
				r.Use(s.limiter.middleware)
			}
			r.Post("/", s.handleCreateRecord)
			r.Delete("/", s.handleClearRecords)
			r.Delete("/{id}", s.handleDeleteRecord)
			// HTML forms cannot send DELETE.
			r.Post("/{id}/delete", s.handleDeleteRecord)
		})
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeJSONError(w, http.StatusNotFound, "not found")
	})

	return r
}

// Run serves until ctx is cancelled, then shuts down within timeout.
func (s *Server) Run(ctx context.Context, timeout time.Duration) error {
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		s.logger.Info("HTTP server listening", "addr", s.Addr)
		if err := s.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("listen and serve: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		s.logger.Info("Shutting down HTTP server", log.FieldOperation, log.OpShutdown)
		return s.Shutdown(shutdownCtx)
	})

	return g.Wait()
}

// Shutdown stops the limiter janitor and gracefully shuts the server down.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.limiter != nil {
		s.limiter.stop()
	}
	return s.Server.Shutdown(ctx)
}

func (s *Server) now() time.Time {
	return s.deps.Now().In(s.deps.Location)
}
