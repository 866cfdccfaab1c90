package server

import (
	"embed"
	"html/template"
	"io/fs"
	"net/http"

	"ladder-console/internal/config"
	"ladder-console/internal/console"
	"ladder-console/internal/middleware"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/cors"
	"github.com/rs/zerolog"
)

//go:embed templates/*.html
var templatesFS embed.FS

//go:embed static
var staticFS embed.FS

// ConsoleServer serves the admin console pages and the JSON state feed.
type ConsoleServer struct {
	router    *chi.Mux
	console   *console.Console
	templates *template.Template
	logger    zerolog.Logger
}

func NewConsoleServer(c *console.Console, cfg *config.Config, logger zerolog.Logger) (*ConsoleServer, error) {
	tmpl, err := LoadTemplates(templatesFS)
	if err != nil {
		return nil, err
	}

	s := &ConsoleServer{
		router:    chi.NewRouter(),
		console:   c,
		templates: tmpl,
		logger:    logger,
	}
	s.setupRoutes(cfg)
	return s, nil
}

func (s *ConsoleServer) setupRoutes(cfg *config.Config) {
	r := s.router

	r.Use(chimw.RealIP)
	r.Use(middleware.RequestID(s.logger))
	r.Use(chimw.Recoverer)

	static, _ := fs.Sub(staticFS, "static")
	r.Handle("/static/*", http.StripPrefix("/static/", http.FileServer(http.FS(static))))

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})

	r.Group(func(r chi.Router) {
		r.Use(cors.New(cors.Options{
			AllowedOrigins: cfg.CORSOrigins,
			AllowedMethods: []string{http.MethodGet, http.MethodOptions},
			AllowedHeaders: []string{"*"},
		}).Handler)
		r.Get("/api/state", s.handleState)
	})

	r.Get("/", s.handleIndex)

	// every state-changing route rejects cross-site browser requests
	r.Group(func(r chi.Router) {
		r.Use(http.NewCrossOriginProtection().Handler)

		r.Post("/login", s.handleLogin)
		r.Post("/refresh", s.handleRefresh)
		r.Post("/view/{view}", s.handleView)
		r.Post("/sort/{key}", s.handleSort)
		r.Post("/filters", s.handleApplyFilters)
		r.Post("/filters/clear", s.handleClearFilters)
		r.Post("/banner/dismiss", s.handleDismissBanner)

		r.Group(func(r chi.Router) {
			r.Use(s.requireOperator)
			r.Post("/logout", s.handleLogout)
			r.Post("/players", s.handleAddPlayer)
			r.Post("/matches", s.handleRecordMatch)
			r.Post("/matches/{matchID}/annul", s.handleAnnulMatch)
		})
	})
}

// ServeHTTP implements http.Handler.
func (s *ConsoleServer) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}
