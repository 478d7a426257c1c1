package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/cinedex/cinedex-backend/internal/db"
	"github.com/cinedex/cinedex-backend/internal/db/entities"
	"github.com/cinedex/cinedex-backend/internal/db/query"
)

var movieColumns = strings.Join(entities.MovieColumns, ", ")

// MovieRepository mediates all access to stored movies.
type MovieRepository struct {
	db      *sql.DB
	dialect db.Dialect
	logger  *zap.SugaredLogger
}

func NewMovieRepository(store *db.Store, logger *zap.SugaredLogger) *MovieRepository {
	return &MovieRepository{
		db:      store.DB,
		dialect: store.Dialect,
		logger:  logger,
	}
}

// All returns a lazy view over every stored movie. No query runs until a
// terminal method of the view is called.
func (r *MovieRepository) All() *MovieView {
	return &MovieView{
		repo: r,
		q:    query.NewBuilder(r.dialect, entities.MovieTable).Tiebreak(entities.ColumnID),
	}
}

func (r *MovieRepository) Get(ctx context.Context, id int64) (entities.Movie, error) {
	q := fmt.Sprintf("SELECT %s FROM %s WHERE id = %s", movieColumns, entities.MovieTable, r.ph(1))

	movie, err := scanMovie(r.db.QueryRowContext(ctx, q, id))
	if errors.Is(err, sql.ErrNoRows) {
		return entities.Movie{}, ErrNotFound
	}
	if err != nil {
		return entities.Movie{}, storageErr("get movie", err)
	}
	return movie, nil
}

// Create persists movie and returns it with its store-assigned id. Any id on
// the input is ignored.
func (r *MovieRepository) Create(ctx context.Context, movie entities.Movie) (entities.Movie, error) {
	q := fmt.Sprintf(
		"INSERT INTO %s (title, director, release_year, genre, rating) VALUES (%s, %s, %s, %s, %s) RETURNING %s",
		entities.MovieTable, r.ph(1), r.ph(2), r.ph(3), r.ph(4), r.ph(5), movieColumns,
	)

	created, err := scanMovie(r.db.QueryRowContext(ctx, q,
		movie.Title,
		movie.Director,
		movie.ReleaseYear,
		movie.Genre,
		movie.Rating,
	))
	if err != nil {
		return entities.Movie{}, storageErr("create movie", err)
	}

	r.logger.Debugw("Created movie", "id", created.ID, "title", created.Title)
	return created, nil
}

// Update overwrites all mutable fields of the movie with the given id.
func (r *MovieRepository) Update(ctx context.Context, id int64, movie entities.Movie) (entities.Movie, error) {
	q := fmt.Sprintf(
		"UPDATE %s SET title = %s, director = %s, release_year = %s, genre = %s, rating = %s WHERE id = %s RETURNING %s",
		entities.MovieTable, r.ph(1), r.ph(2), r.ph(3), r.ph(4), r.ph(5), r.ph(6), movieColumns,
	)

	updated, err := scanMovie(r.db.QueryRowContext(ctx, q,
		movie.Title,
		movie.Director,
		movie.ReleaseYear,
		movie.Genre,
		movie.Rating,
		id,
	))
	if errors.Is(err, sql.ErrNoRows) {
		return entities.Movie{}, ErrNotFound
	}
	if err != nil {
		return entities.Movie{}, storageErr("update movie", err)
	}

	r.logger.Debugw("Updated movie", "id", updated.ID)
	return updated, nil
}

// Delete removes the movie with the given id and returns it as it was
// before removal.
func (r *MovieRepository) Delete(ctx context.Context, id int64) (entities.Movie, error) {
	q := fmt.Sprintf("DELETE FROM %s WHERE id = %s RETURNING %s", entities.MovieTable, r.ph(1), movieColumns)

	deleted, err := scanMovie(r.db.QueryRowContext(ctx, q, id))
	if errors.Is(err, sql.ErrNoRows) {
		return entities.Movie{}, ErrNotFound
	}
	if err != nil {
		return entities.Movie{}, storageErr("delete movie", err)
	}

	r.logger.Debugw("Deleted movie", "id", deleted.ID)
	return deleted, nil
}

func (r *MovieRepository) ph(n int) string {
	return r.dialect.Placeholder(n)
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanMovie(row rowScanner) (entities.Movie, error) {
	var m entities.Movie
	err := row.Scan(
		&m.ID,
		&m.Title,
		&m.Director,
		&m.ReleaseYear,
		&m.Genre,
		&m.Rating,
	)
	return m, err
}

func scanMovies(rows *sql.Rows) ([]entities.Movie, error) {
	movies := []entities.Movie{}
	for rows.Next() {
		m, err := scanMovie(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan movie: %w", err)
		}
		movies = append(movies, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating movies: %w", err)
	}
	return movies, nil
}
