package analytics

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/cinedex/cinedex-backend/internal/db/entities"
	"github.com/cinedex/cinedex-backend/internal/db/query"
	"github.com/cinedex/cinedex-backend/internal/repository"
)

// Defaults applied by callers when a parameter is omitted.
const (
	DefaultMinRating        = "8.5"
	DefaultTopRatedCount    = 5
	DefaultTarantinoCount   = 3
	DefaultPerGenreCount    = 5
	DefaultAboveAvgDirector = "Christopher Nolan"
)

const catalogFetchTimeout = 30 * time.Second

const (
	tarantino    = "Quentin Tarantino"
	actionGenre  = "Action"
	titleKeyword = "King"
)

var (
	actionThreshold   = decimal.RequireFromString("8.0")
	ninetiesThreshold = decimal.RequireFromString("8.0")
	kingThreshold     = decimal.RequireFromString("8.5")
)

// MovieSource is the part of the repository the engine reads from.
type MovieSource interface {
	All() *repository.MovieView
}

// Engine runs read-only analytic queries over the movie catalog.
type Engine struct {
	movies MovieSource
	logger *zap.SugaredLogger
	sf     singleflight.Group // dedupes concurrent full-catalog fetches
}

func NewEngine(movies MovieSource, logger *zap.SugaredLogger) *Engine {
	return &Engine{
		movies: movies,
		logger: logger,
	}
}

func (e *Engine) ByDirector(ctx context.Context, director string) ([]entities.Movie, error) {
	return e.movies.All().
		Where(entities.ColumnDirector, query.Eq, director).
		List(ctx)
}

func (e *Engine) ReleasedInYear(ctx context.Context, year int) ([]entities.Movie, error) {
	return e.movies.All().
		Where(entities.ColumnReleaseYear, query.Eq, year).
		List(ctx)
}

func (e *Engine) ByGenre(ctx context.Context, genre string) ([]entities.Movie, error) {
	return e.movies.All().
		Where(entities.ColumnGenre, query.Eq, genre).
		List(ctx)
}

// HighlyRated returns movies rated strictly above minRating.
func (e *Engine) HighlyRated(ctx context.Context, minRating decimal.Decimal) ([]entities.Movie, error) {
	return e.movies.All().
		Where(entities.ColumnRating, query.Gt, minRating).
		List(ctx)
}

// TopRated returns the count best rated movies.
func (e *Engine) TopRated(ctx context.Context, count int) ([]entities.Movie, error) {
	return e.movies.All().
		OrderByDesc(entities.ColumnRating).
		Limit(count).
		List(ctx)
}

// ReleasedBetween returns movies released in [startYear, endYear].
func (e *Engine) ReleasedBetween(ctx context.Context, startYear, endYear int) ([]entities.Movie, error) {
	return e.movies.All().
		Where(entities.ColumnReleaseYear, query.Gte, startYear).
		Where(entities.ColumnReleaseYear, query.Lte, endYear).
		List(ctx)
}

func (e *Engine) ActionHighlyRated(ctx context.Context) ([]entities.Movie, error) {
	return e.movies.All().
		Where(entities.ColumnGenre, query.Eq, actionGenre).
		Where(entities.ColumnRating, query.Gt, actionThreshold).
		List(ctx)
}

// Sorted returns every movie by release year ascending, then rating descending.
func (e *Engine) Sorted(ctx context.Context) ([]entities.Movie, error) {
	return e.movies.All().
		OrderBy(entities.ColumnReleaseYear).
		OrderByDesc(entities.ColumnRating).
		List(ctx)
}

func (e *Engine) CountByGenre(ctx context.Context) ([]entities.GenreCount, error) {
	groups, err := e.movies.All().CountBy(ctx, entities.ColumnGenre)
	if err != nil {
		return nil, err
	}

	counts := make([]entities.GenreCount, 0, len(groups))
	for _, g := range groups {
		counts = append(counts, entities.GenreCount{Genre: g.Key, Count: g.Count})
	}
	return counts, nil
}

func (e *Engine) TopTarantino(ctx context.Context, count int) ([]entities.Movie, error) {
	return e.movies.All().
		Where(entities.ColumnDirector, query.Eq, tarantino).
		OrderByDesc(entities.ColumnRating).
		Limit(count).
		List(ctx)
}

func (e *Engine) AverageRatingByGenre(ctx context.Context) ([]entities.GenreAverage, error) {
	groups, err := e.movies.All().AverageBy(ctx, entities.ColumnGenre, entities.ColumnRating)
	if err != nil {
		return nil, err
	}

	averages := make([]entities.GenreAverage, 0, len(groups))
	for _, g := range groups {
		averages = append(averages, entities.GenreAverage{Genre: g.Key, AverageRating: g.Average})
	}
	return averages, nil
}

func (e *Engine) NinetiesHighlyRated(ctx context.Context) ([]entities.Movie, error) {
	return e.movies.All().
		Where(entities.ColumnReleaseYear, query.Gte, 1990).
		Where(entities.ColumnReleaseYear, query.Lte, 1999).
		Where(entities.ColumnRating, query.Gt, ninetiesThreshold).
		List(ctx)
}

// TitleContainsKingHighRated matches "King" anywhere in the title, case-sensitively.
func (e *Engine) TitleContainsKingHighRated(ctx context.Context) ([]entities.Movie, error) {
	return e.movies.All().
		Where(entities.ColumnTitle, query.Contains, titleKeyword).
		Where(entities.ColumnRating, query.Gt, kingThreshold).
		List(ctx)
}

// TopPerGenre ranks movies within each genre and keeps the count best of each.
// Grouping happens in memory after a single fetch of the whole catalog.
// Genres appear in the order their first movie appears in natural order, and
// equally rated movies keep natural order.
func (e *Engine) TopPerGenre(ctx context.Context, count int) ([]entities.GenreRanking, error) {
	all, err := e.catalog(ctx)
	if err != nil {
		return nil, err
	}

	order := []string{}
	byGenre := map[string][]entities.Movie{}
	for _, m := range all {
		if _, seen := byGenre[m.Genre]; !seen {
			order = append(order, m.Genre)
		}
		byGenre[m.Genre] = append(byGenre[m.Genre], m)
	}

	if count < 0 {
		count = 0
	}

	rankings := make([]entities.GenreRanking, 0, len(order))
	for _, genre := range order {
		movies := byGenre[genre]
		sort.SliceStable(movies, func(i, j int) bool {
			return movies[i].Rating.GreaterThan(movies[j].Rating)
		})
		if len(movies) > count {
			movies = movies[:count]
		}
		rankings = append(rankings, entities.GenreRanking{Genre: genre, Movies: movies})
	}

	e.logger.Debugw("Ranked movies per genre", "genres", len(rankings), "fetched", len(all))
	return rankings, nil
}

// catalog materializes every movie in natural order. Concurrent callers share
// a single fetch that is detached from any one caller's cancellation and
// bounded by catalogFetchTimeout. The returned slice must not be modified.
func (e *Engine) catalog(ctx context.Context) ([]entities.Movie, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	ch := e.sf.DoChan("catalog", func() (interface{}, error) {
		fetchCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), catalogFetchTimeout)
		defer cancel()
		return e.movies.All().List(fetchCtx)
	})

	select {
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		if res.Shared {
			e.logger.Debugw("Shared catalog fetch")
		}
		return res.Val.([]entities.Movie), nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// AboveDirectorAverage returns the director's movies rated strictly above the
// mean rating of the whole catalog. The mean is computed before the director
// filter is applied, and the comparison is done in decimal so a movie rated
// exactly at the mean is never included.
func (e *Engine) AboveDirectorAverage(ctx context.Context, director string) ([]entities.Movie, error) {
	mean, err := e.movies.All().Average(ctx, entities.ColumnRating)
	if err != nil {
		return nil, fmt.Errorf("failed to compute catalog mean: %w", err)
	}
	if !mean.Valid {
		return []entities.Movie{}, nil
	}

	movies, err := e.movies.All().
		Where(entities.ColumnDirector, query.Eq, director).
		List(ctx)
	if err != nil {
		return nil, err
	}

	above := make([]entities.Movie, 0, len(movies))
	for _, m := range movies {
		if m.Rating.GreaterThan(mean.Decimal) {
			above = append(above, m)
		}
	}
	return above, nil
}
