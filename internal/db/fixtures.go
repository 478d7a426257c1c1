package db

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/cinedex/cinedex-backend/internal/db/entities"
)

// MovieFixtures provides sample movie data for seeding
var MovieFixtures = []entities.Movie{
	{Title: "The Shawshank Redemption", Director: "Frank Darabont", ReleaseYear: 1994, Genre: "Drama", Rating: decimal.RequireFromString("9.3")},
	{Title: "The Godfather", Director: "Francis Ford Coppola", ReleaseYear: 1972, Genre: "Crime", Rating: decimal.RequireFromString("9.2")},
	{Title: "The Dark Knight", Director: "Christopher Nolan", ReleaseYear: 2008, Genre: "Action", Rating: decimal.RequireFromString("9.0")},
	{Title: "Pulp Fiction", Director: "Quentin Tarantino", ReleaseYear: 1994, Genre: "Crime", Rating: decimal.RequireFromString("8.9")},
	{Title: "The Lord of the Rings: The Return of the King", Director: "Peter Jackson", ReleaseYear: 2003, Genre: "Fantasy", Rating: decimal.RequireFromString("9.0")},
	{Title: "Inception", Director: "Christopher Nolan", ReleaseYear: 2010, Genre: "Sci-Fi", Rating: decimal.RequireFromString("8.8")},
	{Title: "Fight Club", Director: "David Fincher", ReleaseYear: 1999, Genre: "Drama", Rating: decimal.RequireFromString("8.8")},
	{Title: "The Lion King", Director: "Roger Allers", ReleaseYear: 1994, Genre: "Animation", Rating: decimal.RequireFromString("8.5")},
	{Title: "Django Unchained", Director: "Quentin Tarantino", ReleaseYear: 2012, Genre: "Western", Rating: decimal.RequireFromString("8.4")},
	{Title: "Inglourious Basterds", Director: "Quentin Tarantino", ReleaseYear: 2009, Genre: "War", Rating: decimal.RequireFromString("8.3")},
	{Title: "Kill Bill: Vol. 1", Director: "Quentin Tarantino", ReleaseYear: 2003, Genre: "Action", Rating: decimal.RequireFromString("8.2")},
	{Title: "Mad Max: Fury Road", Director: "George Miller", ReleaseYear: 2015, Genre: "Action", Rating: decimal.RequireFromString("8.1")},
	{Title: "Memento", Director: "Christopher Nolan", ReleaseYear: 2000, Genre: "Mystery", Rating: decimal.RequireFromString("8.4")},
	{Title: "Dunkirk", Director: "Christopher Nolan", ReleaseYear: 2017, Genre: "War", Rating: decimal.RequireFromString("7.8")},
	{Title: "King Kong", Director: "Peter Jackson", ReleaseYear: 2005, Genre: "Adventure", Rating: decimal.RequireFromString("7.2")},
	{Title: "Speed", Director: "Jan de Bont", ReleaseYear: 1994, Genre: "Action", Rating: decimal.RequireFromString("7.2")},
}

// Seed inserts the given movies in order, returning them with their assigned ids.
func Seed(ctx context.Context, store *Store, movies []entities.Movie) ([]entities.Movie, error) {
	d := store.Dialect
	query := fmt.Sprintf(
		"INSERT INTO %s (title, director, release_year, genre, rating) VALUES (%s, %s, %s, %s, %s) RETURNING id",
		entities.MovieTable,
		d.Placeholder(1), d.Placeholder(2), d.Placeholder(3), d.Placeholder(4), d.Placeholder(5),
	)

	tx, err := store.DB.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer stmt.Close()

	seeded := make([]entities.Movie, 0, len(movies))
	for _, m := range movies {
		var id int64
		err := stmt.QueryRowContext(ctx, m.Title, m.Director, m.ReleaseYear, m.Genre, m.Rating).Scan(&id)
		if err != nil {
			if err == sql.ErrNoRows {
				return nil, fmt.Errorf("insert of %q returned no id", m.Title)
			}
			return nil, fmt.Errorf("failed to seed movie %q: %w", m.Title, err)
		}
		m.ID = id
		seeded = append(seeded, m)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}
	return seeded, nil
}
