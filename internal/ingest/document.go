package ingest

import (
	"bytes"
	"encoding/json"
	"encoding/xml"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/cinedex/cinedex-backend/internal/db/entities"
)

// Document is the bulk movie document exchanged on import and export.
type Document struct {
	XMLName xml.Name `xml:"MovieData"`
	Movies  []Entry  `xml:"Movie"`
}

// Entry is one movie in a Document. Numeric nodes are kept as text so blank
// values can be told apart from malformed ones.
type Entry struct {
	ID          int64  `xml:"Id,omitempty"`
	Title       string `xml:"Title"`
	Director    string `xml:"Director"`
	ReleaseYear string `xml:"ReleaseYear"`
	Genre       string `xml:"Genre"`
	Rating      string `xml:"Rating"`
}

// Movie converts the entry into a movie record. Blank numeric nodes become
// zero. Any id on the entry is dropped.
func (e Entry) Movie() (entities.Movie, error) {
	m := entities.Movie{
		Title:    e.Title,
		Director: e.Director,
		Genre:    e.Genre,
		Rating:   decimal.Zero,
	}

	if year := strings.TrimSpace(e.ReleaseYear); year != "" {
		y, err := strconv.Atoi(year)
		if err != nil {
			return entities.Movie{}, fmt.Errorf("invalid ReleaseYear %q", e.ReleaseYear)
		}
		m.ReleaseYear = y
	}

	if rating := strings.TrimSpace(e.Rating); rating != "" {
		r, err := decimal.NewFromString(rating)
		if err != nil {
			return entities.Movie{}, fmt.Errorf("invalid Rating %q", e.Rating)
		}
		m.Rating = r
	}

	return m, nil
}

// Parse decodes payload into movies in document order.
func Parse(payload []byte) ([]entities.Movie, error) {
	if len(bytes.TrimSpace(payload)) == 0 {
		return nil, ErrEmptyPayload
	}

	var doc Document
	if err := xml.Unmarshal(payload, &doc); err != nil {
		return nil, &MalformedDocumentError{Err: err}
	}

	movies := make([]entities.Movie, 0, len(doc.Movies))
	for i, entry := range doc.Movies {
		m, err := entry.Movie()
		if err != nil {
			return nil, &MalformedDocumentError{Err: fmt.Errorf("movie %d: %w", i+1, err)}
		}
		movies = append(movies, m)
	}
	return movies, nil
}

// NewDocument builds a document holding movies, ids included.
func NewDocument(movies []entities.Movie) Document {
	doc := Document{Movies: make([]Entry, 0, len(movies))}
	for _, m := range movies {
		doc.Movies = append(doc.Movies, Entry{
			ID:          m.ID,
			Title:       m.Title,
			Director:    m.Director,
			ReleaseYear: strconv.Itoa(m.ReleaseYear),
			Genre:       m.Genre,
			Rating:      m.Rating.String(),
		})
	}
	return doc
}

// WriteJSON writes movies as an indented JSON array.
func WriteJSON(w io.Writer, movies []entities.Movie) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(movies); err != nil {
		return fmt.Errorf("failed to encode movies: %w", err)
	}
	return nil
}

// WriteXML writes movies as an indented MovieData document that Parse accepts.
func WriteXML(w io.Writer, movies []entities.Movie) error {
	if _, err := io.WriteString(w, xml.Header); err != nil {
		return err
	}
	enc := xml.NewEncoder(w)
	enc.Indent("", "  ")
	if err := enc.Encode(NewDocument(movies)); err != nil {
		return fmt.Errorf("failed to encode movies: %w", err)
	}
	return enc.Flush()
}
