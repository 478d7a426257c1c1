package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// RouterConfig carries the transport settings chosen at startup.
type RouterConfig struct {
	CORSOrigins    []string
	RateLimitRPM   int
	RequestTimeout time.Duration
	MetricsHandler http.Handler
	Profiling      bool // mounts net/http/pprof under /debug
}

func (h *Handler) Routes(m *Middleware, cfg RouterConfig) *chi.Mux {
	r := chi.NewRouter()

	// Global middleware
	r.Use(m.RequestID)
	r.Use(m.RequestLogger)
	r.Use(m.Recoverer)
	r.Use(m.SecurityHeaders)
	r.Use(m.Compress)
	if cfg.RequestTimeout > 0 {
		r.Use(m.Timeout(cfg.RequestTimeout))
	}
	r.Use(middleware.Heartbeat("/ping"))

	r.Use(m.CORS(cfg.CORSOrigins))
	r.Use(m.RateLimit(cfg.RateLimitRPM))

	// Health endpoints
	r.Get("/healthz", h.Healthz)
	r.Get("/readyz", h.Readyz)
	if cfg.MetricsHandler != nil {
		r.Handle("/metrics", cfg.MetricsHandler)
	}
	if cfg.Profiling {
		r.Mount("/debug", middleware.Profiler())
	}

	r.Route("/api", func(r chi.Router) {
		r.Route("/movie", func(r chi.Router) {
			r.Get("/", h.ListMovies)
			r.Post("/", h.CreateMovie)
			r.Get("/export-all", h.ExportMovies)
			r.Post("/upload-xml", h.UploadMovies)
			r.Get("/imports", h.ListImports)
			r.Get("/imports/{runID}", h.GetImport)
			r.Get("/{id}", h.GetMovie)
			r.Put("/{id}", h.UpdateMovie)
			r.Delete("/{id}", h.DeleteMovie)
		})

		r.Route("/moviequery", func(r chi.Router) {
			r.Get("/by-director", h.MoviesByDirector)
			r.Get("/released-in-year", h.MoviesReleasedInYear)
			r.Get("/by-genre", h.MoviesByGenre)
			r.Get("/highly-rated", h.HighlyRatedMovies)
			r.Get("/top-rated", h.TopRatedMovies)
			r.Get("/released-between", h.MoviesReleasedBetween)
			r.Get("/action-highly-rated", h.ActionHighlyRatedMovies)
			r.Get("/sorted", h.SortedMovies)
			r.Get("/count-by-genre", h.MovieCountsByGenre)
			r.Get("/top-tarantino", h.TopTarantinoMovies)
			r.Get("/average-rating-by-genre", h.AverageRatingByGenre)
			r.Get("/nineties-highly-rated", h.NinetiesHighlyRatedMovies)
			r.Get("/king-high-rated", h.KingHighRatedMovies)
			r.Get("/title-contains-king-high-rated", h.KingHighRatedMovies)
			r.Get("/top-per-genre", h.TopMoviesPerGenre)
			r.Get("/above-director-average", h.AboveAverageMovies)
			r.Get("/nolan-above-average", h.AboveAverageMovies)
		})
	})

	return r
}
