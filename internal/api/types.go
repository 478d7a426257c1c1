package api

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/cinedex/cinedex-backend/internal/db/entities"
	"github.com/cinedex/cinedex-backend/internal/ingest"
)

type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details string `json:"details,omitempty"`
}

// MovieRequest is the body of create and update requests.
type MovieRequest struct {
	Title       string          `json:"title"`
	Director    string          `json:"director"`
	ReleaseYear int             `json:"releaseYear"`
	Genre       string          `json:"genre"`
	Rating      decimal.Decimal `json:"rating"`
}

func (req MovieRequest) validate() error {
	if n := len([]rune(req.Title)); n > entities.MaxTitleLength {
		return fmt.Errorf("title must be at most %d characters, got %d", entities.MaxTitleLength, n)
	}
	if n := len([]rune(req.Director)); n > entities.MaxDirectorLength {
		return fmt.Errorf("director must be at most %d characters, got %d", entities.MaxDirectorLength, n)
	}
	if n := len([]rune(req.Genre)); n > entities.MaxGenreLength {
		return fmt.Errorf("genre must be at most %d characters, got %d", entities.MaxGenreLength, n)
	}
	return nil
}

func (req MovieRequest) movie() entities.Movie {
	return entities.Movie{
		Title:       req.Title,
		Director:    req.Director,
		ReleaseYear: req.ReleaseYear,
		Genre:       req.Genre,
		Rating:      req.Rating,
	}
}

type UploadResponse struct {
	RunID   uuid.UUID `json:"runId"`
	Count   int       `json:"count"`
	Message string    `json:"message"`
}

type ImportRunDTO struct {
	RunID      uuid.UUID `json:"runId"`
	Count      int       `json:"count"`
	StartedAt  time.Time `json:"startedAt"`
	FinishedAt time.Time `json:"finishedAt"`
	DurationMs int64     `json:"durationMs"`
}

func newImportRunDTO(c ingest.Completion) ImportRunDTO {
	return ImportRunDTO{
		RunID:      c.RunID,
		Count:      c.Count,
		StartedAt:  c.StartedAt,
		FinishedAt: c.FinishedAt,
		DurationMs: c.FinishedAt.Sub(c.StartedAt).Milliseconds(),
	}
}

type ReadinessDTO struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks"`
}
