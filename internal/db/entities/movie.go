package entities

import (
	"github.com/shopspring/decimal"
)

// Field length bounds for movie text columns.
const (
	MaxTitleLength    = 100
	MaxDirectorLength = 100
	MaxGenreLength    = 50
)

// MovieTable is the table that stores movies.
const MovieTable = "movies"

// Movie column names, in the order scanned by repositories.
const (
	ColumnID          = "id"
	ColumnTitle       = "title"
	ColumnDirector    = "director"
	ColumnReleaseYear = "release_year"
	ColumnGenre       = "genre"
	ColumnRating      = "rating"
)

// MovieColumns lists every column of the movies table in scan order.
var MovieColumns = []string{
	ColumnID,
	ColumnTitle,
	ColumnDirector,
	ColumnReleaseYear,
	ColumnGenre,
	ColumnRating,
}

// Movie represents a movie entity
type Movie struct {
	ID          int64           `json:"id" db:"id"`
	Title       string          `json:"title" db:"title"`
	Director    string          `json:"director" db:"director"`
	ReleaseYear int             `json:"releaseYear" db:"release_year"`
	Genre       string          `json:"genre" db:"genre"`
	Rating      decimal.Decimal `json:"rating" db:"rating"`
}

// GenreCount is one row of a count-by-genre aggregation.
type GenreCount struct {
	Genre string `json:"genre"`
	Count int64  `json:"count"`
}

// GenreAverage is one row of an average-rating-by-genre aggregation.
type GenreAverage struct {
	Genre         string          `json:"genre"`
	AverageRating decimal.Decimal `json:"averageRating"`
}

// GenreRanking holds the best rated movies of a single genre.
type GenreRanking struct {
	Genre  string  `json:"genre"`
	Movies []Movie `json:"movies"`
}
