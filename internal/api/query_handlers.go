package api

import (
	"net/http"

	"github.com/shopspring/decimal"

	"github.com/cinedex/cinedex-backend/internal/analytics"
	"github.com/cinedex/cinedex-backend/internal/db/entities"
)

var defaultMinRating = decimal.RequireFromString(analytics.DefaultMinRating)

func (h *Handler) writeResult(w http.ResponseWriter, r *http.Request, result any, err error) {
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, result)
}

func (h *Handler) MoviesByDirector(w http.ResponseWriter, r *http.Request) {
	director, err := requiredString(r, "director")
	if err != nil {
		h.writeParamError(w, err)
		return
	}
	movies, err := h.queries.ByDirector(r.Context(), director)
	h.writeResult(w, r, movies, err)
}

func (h *Handler) MoviesReleasedInYear(w http.ResponseWriter, r *http.Request) {
	year, err := requiredInt(r, "year")
	if err != nil {
		h.writeParamError(w, err)
		return
	}
	movies, err := h.queries.ReleasedInYear(r.Context(), year)
	h.writeResult(w, r, movies, err)
}

func (h *Handler) MoviesByGenre(w http.ResponseWriter, r *http.Request) {
	genre, err := requiredString(r, "genre")
	if err != nil {
		h.writeParamError(w, err)
		return
	}
	movies, err := h.queries.ByGenre(r.Context(), genre)
	h.writeResult(w, r, movies, err)
}

func (h *Handler) HighlyRatedMovies(w http.ResponseWriter, r *http.Request) {
	minRating, err := optionalDecimal(r, "minRating", defaultMinRating)
	if err != nil {
		h.writeParamError(w, err)
		return
	}
	movies, err := h.queries.HighlyRated(r.Context(), minRating)
	h.writeResult(w, r, movies, err)
}

func (h *Handler) TopRatedMovies(w http.ResponseWriter, r *http.Request) {
	count, err := optionalInt(r, "count", analytics.DefaultTopRatedCount)
	if err != nil {
		h.writeParamError(w, err)
		return
	}
	movies, err := h.queries.TopRated(r.Context(), count)
	h.writeResult(w, r, movies, err)
}

func (h *Handler) MoviesReleasedBetween(w http.ResponseWriter, r *http.Request) {
	startYear, err := requiredInt(r, "startYear")
	if err != nil {
		h.writeParamError(w, err)
		return
	}
	endYear, err := requiredInt(r, "endYear")
	if err != nil {
		h.writeParamError(w, err)
		return
	}
	movies, err := h.queries.ReleasedBetween(r.Context(), startYear, endYear)
	h.writeResult(w, r, movies, err)
}

func (h *Handler) ActionHighlyRatedMovies(w http.ResponseWriter, r *http.Request) {
	movies, err := h.queries.ActionHighlyRated(r.Context())
	h.writeResult(w, r, movies, err)
}

func (h *Handler) SortedMovies(w http.ResponseWriter, r *http.Request) {
	movies, err := h.queries.Sorted(r.Context())
	h.writeResult(w, r, movies, err)
}

func (h *Handler) MovieCountsByGenre(w http.ResponseWriter, r *http.Request) {
	counts, err := h.queries.CountByGenre(r.Context())
	h.writeResult(w, r, counts, err)
}

func (h *Handler) TopTarantinoMovies(w http.ResponseWriter, r *http.Request) {
	count, err := optionalInt(r, "count", analytics.DefaultTarantinoCount)
	if err != nil {
		h.writeParamError(w, err)
		return
	}
	movies, err := h.queries.TopTarantino(r.Context(), count)
	h.writeResult(w, r, movies, err)
}

func (h *Handler) AverageRatingByGenre(w http.ResponseWriter, r *http.Request) {
	averages, err := h.queries.AverageRatingByGenre(r.Context())
	h.writeResult(w, r, averages, err)
}

func (h *Handler) NinetiesHighlyRatedMovies(w http.ResponseWriter, r *http.Request) {
	movies, err := h.queries.NinetiesHighlyRated(r.Context())
	h.writeResult(w, r, movies, err)
}

func (h *Handler) KingHighRatedMovies(w http.ResponseWriter, r *http.Request) {
	movies, err := h.queries.TitleContainsKingHighRated(r.Context())
	h.writeResult(w, r, movies, err)
}

// TopMoviesPerGenre responds with a flat list: each genre's best movies,
// genre after genre.
func (h *Handler) TopMoviesPerGenre(w http.ResponseWriter, r *http.Request) {
	count, err := optionalInt(r, "count", analytics.DefaultPerGenreCount)
	if err != nil {
		h.writeParamError(w, err)
		return
	}
	rankings, err := h.queries.TopPerGenre(r.Context(), count)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	movies := []entities.Movie{}
	for _, ranking := range rankings {
		movies = append(movies, ranking.Movies...)
	}
	h.writeJSON(w, http.StatusOK, movies)
}

func (h *Handler) AboveAverageMovies(w http.ResponseWriter, r *http.Request) {
	director := optionalString(r, "director", analytics.DefaultAboveAvgDirector)
	movies, err := h.queries.AboveDirectorAverage(r.Context(), director)
	h.writeResult(w, r, movies, err)
}
