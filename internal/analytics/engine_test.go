package analytics

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/cinedex/cinedex-backend/internal/db"
	"github.com/cinedex/cinedex-backend/internal/db/entities"
	"github.com/cinedex/cinedex-backend/internal/repository"
)

func newTestEngine(t *testing.T, movies []entities.Movie) *Engine {
	e, _ := newTestEngineWithStore(t, movies)
	return e
}

func newTestEngineWithStore(t *testing.T, movies []entities.Movie) (*Engine, *db.Store) {
	t.Helper()
	ctx := context.Background()

	store, err := db.OpenMemory(ctx)
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	if len(movies) > 0 {
		_, err = db.Seed(ctx, store, movies)
		require.NoError(t, err)
	}

	logger := zap.NewNop().Sugar()
	return NewEngine(repository.NewMovieRepository(store, logger), logger), store
}

func titles(movies []entities.Movie) []string {
	out := make([]string, 0, len(movies))
	for _, m := range movies {
		out = append(out, m.Title)
	}
	return out
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func TestFilters(t *testing.T) {
	ctx := context.Background()
	e := newTestEngine(t, db.MovieFixtures)

	t.Run("by director is exact and case-sensitive", func(t *testing.T) {
		got, err := e.ByDirector(ctx, "Christopher Nolan")
		require.NoError(t, err)
		assert.Equal(t, []string{"The Dark Knight", "Inception", "Memento", "Dunkirk"}, titles(got))

		got, err = e.ByDirector(ctx, "christopher nolan")
		require.NoError(t, err)
		assert.Empty(t, got)
	})

	t.Run("released in year", func(t *testing.T) {
		got, err := e.ReleasedInYear(ctx, 1994)
		require.NoError(t, err)
		assert.Equal(t, []string{"The Shawshank Redemption", "Pulp Fiction", "The Lion King", "Speed"}, titles(got))
	})

	t.Run("by genre", func(t *testing.T) {
		got, err := e.ByGenre(ctx, "Action")
		require.NoError(t, err)
		assert.Equal(t, []string{"The Dark Knight", "Kill Bill: Vol. 1", "Mad Max: Fury Road", "Speed"}, titles(got))

		got, err = e.ByGenre(ctx, "Musical")
		require.NoError(t, err)
		assert.NotNil(t, got)
		assert.Empty(t, got)
	})

	t.Run("highly rated is strict", func(t *testing.T) {
		got, err := e.HighlyRated(ctx, dec(DefaultMinRating))
		require.NoError(t, err)
		assert.Len(t, got, 7)
		for _, m := range got {
			assert.True(t, m.Rating.GreaterThan(dec("8.5")), m.Title)
		}
		assert.NotContains(t, titles(got), "The Lion King")
	})

	t.Run("released between is inclusive", func(t *testing.T) {
		got, err := e.ReleasedBetween(ctx, 1994, 1999)
		require.NoError(t, err)
		assert.Equal(t, []string{
			"The Shawshank Redemption", "Pulp Fiction", "Fight Club", "The Lion King", "Speed",
		}, titles(got))

		got, err = e.ReleasedBetween(ctx, 2000, 1990)
		require.NoError(t, err)
		assert.Empty(t, got)
	})

	t.Run("action highly rated", func(t *testing.T) {
		got, err := e.ActionHighlyRated(ctx)
		require.NoError(t, err)
		assert.Equal(t, []string{"The Dark Knight", "Kill Bill: Vol. 1", "Mad Max: Fury Road"}, titles(got))
	})

	t.Run("nineties highly rated", func(t *testing.T) {
		got, err := e.NinetiesHighlyRated(ctx)
		require.NoError(t, err)
		assert.Equal(t, []string{"The Shawshank Redemption", "Pulp Fiction", "Fight Club", "The Lion King"}, titles(got))
	})
}

func TestRanking(t *testing.T) {
	ctx := context.Background()
	e := newTestEngine(t, db.MovieFixtures)

	t.Run("top rated breaks ties by natural order", func(t *testing.T) {
		got, err := e.TopRated(ctx, DefaultTopRatedCount)
		require.NoError(t, err)
		assert.Equal(t, []string{
			"The Shawshank Redemption",
			"The Godfather",
			"The Dark Knight",
			"The Lord of the Rings: The Return of the King",
			"Pulp Fiction",
		}, titles(got))
	})

	t.Run("top rated bounds", func(t *testing.T) {
		got, err := e.TopRated(ctx, 0)
		require.NoError(t, err)
		assert.Empty(t, got)

		got, err = e.TopRated(ctx, -1)
		require.NoError(t, err)
		assert.Empty(t, got)

		got, err = e.TopRated(ctx, 100)
		require.NoError(t, err)
		assert.Len(t, got, len(db.MovieFixtures))
	})

	t.Run("top tarantino", func(t *testing.T) {
		got, err := e.TopTarantino(ctx, DefaultTarantinoCount)
		require.NoError(t, err)
		assert.Equal(t, []string{"Pulp Fiction", "Django Unchained", "Inglourious Basterds"}, titles(got))
	})

	t.Run("sorted by year then rating", func(t *testing.T) {
		got, err := e.Sorted(ctx)
		require.NoError(t, err)
		require.Len(t, got, len(db.MovieFixtures))
		assert.Equal(t, []string{
			"The Godfather",
			"The Shawshank Redemption",
			"Pulp Fiction",
			"The Lion King",
			"Speed",
			"Fight Club",
		}, titles(got[:6]))

		for i := 1; i < len(got); i++ {
			prev, cur := got[i-1], got[i]
			require.LessOrEqual(t, prev.ReleaseYear, cur.ReleaseYear)
			if prev.ReleaseYear == cur.ReleaseYear {
				assert.True(t, prev.Rating.GreaterThanOrEqual(cur.Rating))
			}
		}
	})
}

func TestTitleContainsKingIsCaseSensitive(t *testing.T) {
	ctx := context.Background()
	movies := append([]entities.Movie{}, db.MovieFixtures...)
	movies = append(movies, entities.Movie{
		Title: "Viking Saga", Director: "Someone", ReleaseYear: 2020, Genre: "Drama", Rating: dec("9.5"),
	})
	e := newTestEngine(t, movies)

	got, err := e.TitleContainsKingHighRated(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"The Lord of the Rings: The Return of the King"}, titles(got))
}

func TestGrouping(t *testing.T) {
	ctx := context.Background()
	e := newTestEngine(t, db.MovieFixtures)

	t.Run("count by genre", func(t *testing.T) {
		got, err := e.CountByGenre(ctx)
		require.NoError(t, err)

		counts := map[string]int64{}
		var total int64
		for _, c := range got {
			counts[c.Genre] = c.Count
			total += c.Count
		}
		assert.Equal(t, int64(len(db.MovieFixtures)), total)
		assert.Equal(t, int64(4), counts["Action"])
		assert.Equal(t, int64(2), counts["Crime"])
		assert.Equal(t, int64(2), counts["War"])
		assert.Equal(t, int64(1), counts["Western"])
		assert.Len(t, counts, 10)
	})

	t.Run("average rating by genre", func(t *testing.T) {
		got, err := e.AverageRatingByGenre(ctx)
		require.NoError(t, err)

		averages := map[string]float64{}
		for _, a := range got {
			averages[a.Genre] = a.AverageRating.InexactFloat64()
		}
		assert.Len(t, averages, 10)
		assert.InDelta(t, 8.125, averages["Action"], 1e-9)
		assert.InDelta(t, 9.05, averages["Crime"], 1e-9)
		assert.InDelta(t, 8.05, averages["War"], 1e-9)
		assert.InDelta(t, 7.2, averages["Adventure"], 1e-9)
	})

	t.Run("top per genre", func(t *testing.T) {
		got, err := e.TopPerGenre(ctx, 2)
		require.NoError(t, err)

		genres := make([]string, 0, len(got))
		for _, g := range got {
			genres = append(genres, g.Genre)
			assert.LessOrEqual(t, len(g.Movies), 2)
			for i := 1; i < len(g.Movies); i++ {
				assert.True(t, g.Movies[i-1].Rating.GreaterThanOrEqual(g.Movies[i].Rating))
			}
			for _, m := range g.Movies {
				assert.Equal(t, g.Genre, m.Genre)
			}
		}
		assert.Equal(t, []string{
			"Drama", "Crime", "Action", "Fantasy", "Sci-Fi",
			"Animation", "Western", "War", "Mystery", "Adventure",
		}, genres)

		assert.Equal(t, []string{"The Dark Knight", "Kill Bill: Vol. 1"}, titles(got[2].Movies))
		assert.Equal(t, []string{"Inglourious Basterds", "Dunkirk"}, titles(got[7].Movies))
	})

	t.Run("top per genre with zero count", func(t *testing.T) {
		got, err := e.TopPerGenre(ctx, 0)
		require.NoError(t, err)
		for _, g := range got {
			assert.Empty(t, g.Movies)
		}
	})
}

func TestTopPerGenreTiesKeepNaturalOrder(t *testing.T) {
	ctx := context.Background()
	e := newTestEngine(t, []entities.Movie{
		{Title: "A", Genre: "Drama", Rating: dec("7")},
		{Title: "B", Genre: "Drama", Rating: dec("9")},
		{Title: "C", Genre: "Drama", Rating: dec("7")},
		{Title: "D", Genre: "Drama", Rating: dec("7")},
	})

	got, err := e.TopPerGenre(ctx, 3)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, []string{"B", "A", "C"}, titles(got[0].Movies))
}

func TestTopPerGenreConcurrentCallers(t *testing.T) {
	e := newTestEngine(t, db.MovieFixtures)

	const callers = 8
	results := make([][]entities.GenreRanking, callers)
	errs := make([]error, callers)

	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], errs[i] = e.TopPerGenre(context.Background(), 1)
		}(i)
	}
	wg.Wait()

	for i := 0; i < callers; i++ {
		require.NoError(t, errs[i])
		require.Len(t, results[i], 10)
		assert.Equal(t, results[0], results[i])
	}
}

func TestTopPerGenreCancelledContext(t *testing.T) {
	e := newTestEngine(t, db.MovieFixtures)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := e.TopPerGenre(ctx, 1)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestTopPerGenreSurvivesCancelledCaller(t *testing.T) {
	ctx := context.Background()
	e, store := newTestEngineWithStore(t, db.MovieFixtures)

	// The in-memory store has one connection; holding it parks the shared fetch.
	tx, err := store.DB.BeginTx(ctx, nil)
	require.NoError(t, err)

	cancelCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	first := make(chan error, 1)
	go func() {
		_, err := e.TopPerGenre(cancelCtx, 1)
		first <- err
	}()
	time.Sleep(50 * time.Millisecond)

	type result struct {
		rankings []entities.GenreRanking
		err      error
	}
	second := make(chan result, 1)
	go func() {
		rankings, err := e.TopPerGenre(ctx, 1)
		second <- result{rankings, err}
	}()
	time.Sleep(50 * time.Millisecond)

	cancel()
	assert.ErrorIs(t, <-first, context.Canceled)

	require.NoError(t, tx.Rollback())

	select {
	case res := <-second:
		require.NoError(t, res.err)
		assert.Len(t, res.rankings, 10)
	case <-time.After(5 * time.Second):
		t.Fatal("second caller never returned")
	}
}

func TestAboveDirectorAverageUsesCatalogMean(t *testing.T) {
	ctx := context.Background()

	// Catalog mean is 6.5; the director's own mean is 8.
	e := newTestEngine(t, []entities.Movie{
		{Title: "Best", Director: "Jane Roe", Genre: "Drama", Rating: dec("9")},
		{Title: "Good", Director: "Jane Roe", Genre: "Drama", Rating: dec("7")},
		{Title: "Filler One", Director: "John Doe", Genre: "Drama", Rating: dec("5")},
		{Title: "Filler Two", Director: "John Doe", Genre: "Drama", Rating: dec("5")},
	})

	got, err := e.AboveDirectorAverage(ctx, "Jane Roe")
	require.NoError(t, err)
	assert.Equal(t, []string{"Best", "Good"}, titles(got))

	got, err = e.AboveDirectorAverage(ctx, "John Doe")
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestAboveDirectorAverageExcludesMovieAtMean(t *testing.T) {
	ctx := context.Background()

	// Catalog mean is exactly 4.98, which has no binary representation.
	e := newTestEngine(t, []entities.Movie{
		{Title: "High One", Director: "Jane Roe", Genre: "Drama", Rating: dec("8.1")},
		{Title: "High Two", Director: "Jane Roe", Genre: "Drama", Rating: dec("8.2")},
		{Title: "High Three", Director: "Jane Roe", Genre: "Drama", Rating: dec("8.3")},
		{Title: "Low One", Director: "Jane Roe", Genre: "Drama", Rating: dec("0.1")},
		{Title: "Low Two", Director: "Jane Roe", Genre: "Drama", Rating: dec("0.2")},
		{Title: "At Mean", Director: "John Doe", Genre: "Drama", Rating: dec("4.98")},
	})

	got, err := e.AboveDirectorAverage(ctx, "John Doe")
	require.NoError(t, err)
	assert.Empty(t, got)

	got, err = e.AboveDirectorAverage(ctx, "Jane Roe")
	require.NoError(t, err)
	assert.Equal(t, []string{"High One", "High Two", "High Three"}, titles(got))
}

func TestAboveDirectorAverageOnFixtures(t *testing.T) {
	e := newTestEngine(t, db.MovieFixtures)

	got, err := e.AboveDirectorAverage(context.Background(), DefaultAboveAvgDirector)
	require.NoError(t, err)
	assert.Equal(t, []string{"The Dark Knight", "Inception"}, titles(got))
}

func TestEmptyCatalog(t *testing.T) {
	ctx := context.Background()
	e := newTestEngine(t, nil)

	movies, err := e.AboveDirectorAverage(ctx, DefaultAboveAvgDirector)
	require.NoError(t, err)
	assert.Empty(t, movies)

	movies, err = e.Sorted(ctx)
	require.NoError(t, err)
	assert.Empty(t, movies)

	counts, err := e.CountByGenre(ctx)
	require.NoError(t, err)
	assert.Empty(t, counts)

	averages, err := e.AverageRatingByGenre(ctx)
	require.NoError(t, err)
	assert.Empty(t, averages)

	rankings, err := e.TopPerGenre(ctx, DefaultPerGenreCount)
	require.NoError(t, err)
	assert.Empty(t, rankings)
}
