package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/cinedex/cinedex-backend/internal/analytics"
	"github.com/cinedex/cinedex-backend/internal/db/entities"
	"github.com/cinedex/cinedex-backend/internal/ingest"
	"github.com/cinedex/cinedex-backend/internal/repository"
	"github.com/cinedex/cinedex-backend/internal/store"
)

// MetricsInterface defines the interface for metrics recording
type MetricsInterface interface {
	RecordHTTPRequest(ctx context.Context, method, path string, status int, duration time.Duration)
}

// MovieStore is the repository surface used by the movie endpoints.
type MovieStore interface {
	analytics.MovieSource
	Get(ctx context.Context, id int64) (entities.Movie, error)
	Create(ctx context.Context, movie entities.Movie) (entities.Movie, error)
	Update(ctx context.Context, id int64, movie entities.Movie) (entities.Movie, error)
	Delete(ctx context.Context, id int64) (entities.Movie, error)
}

// Importer runs bulk document imports.
type Importer interface {
	Run(ctx context.Context, payload []byte, listener ingest.Listener) (ingest.Summary, error)
}

// ImportLedger records and serves completed import runs.
type ImportLedger interface {
	Listener() ingest.Listener
	Get(ctx context.Context, runID uuid.UUID) (ingest.Completion, error)
	Recent(ctx context.Context, limit int) ([]ingest.Completion, error)
	Ping(ctx context.Context) error
}

// Pinger reports whether a dependency is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

const readinessTimeout = 2 * time.Second

type Handler struct {
	movies         MovieStore
	queries        *analytics.Engine
	importer       Importer
	ledger         ImportLedger
	database       Pinger
	logger         *zap.SugaredLogger
	maxUploadBytes int64
}

func NewHandler(
	movies MovieStore,
	queries *analytics.Engine,
	importer Importer,
	ledger ImportLedger,
	database Pinger,
	logger *zap.SugaredLogger,
	maxUploadBytes int64,
) *Handler {
	return &Handler{
		movies:         movies,
		queries:        queries,
		importer:       importer,
		ledger:         ledger,
		database:       database,
		logger:         logger,
		maxUploadBytes: maxUploadBytes,
	}
}

// Health and ops endpoints
func (h *Handler) Healthz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("OK"))
}

// Readyz pings the record store and the import ledger.
func (h *Handler) Readyz(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), readinessTimeout)
	defer cancel()

	dto := ReadinessDTO{Status: "ready", Checks: map[string]string{}}
	status := http.StatusOK

	check := func(name string, p Pinger) {
		if err := p.Ping(ctx); err != nil {
			h.logger.Warnw("Readiness check failed", "dependency", name, "error", err)
			dto.Checks[name] = err.Error()
			dto.Status = "unavailable"
			status = http.StatusServiceUnavailable
			return
		}
		dto.Checks[name] = "ok"
	}
	check("database", h.database)
	check("ledger", h.ledger)

	h.writeJSON(w, status, dto)
}

// Utility methods
func (h *Handler) writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func (h *Handler) writeError(w http.ResponseWriter, status int, code, message string) {
	if status >= http.StatusInternalServerError {
		h.logger.Errorw("API error", "code", code, "message", message, "status", status)
	} else {
		h.logger.Debugw("API error", "code", code, "message", message, "status", status)
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	err := ErrorResponse{
		Code:    code,
		Message: message,
	}
	json.NewEncoder(w).Encode(err)
}

// writeServiceError maps errors returned by the repository, engine and
// pipeline onto HTTP responses. Unexpected errors are logged in full and
// reported with a generic message.
func (h *Handler) writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	var malformed *ingest.MalformedDocumentError
	var tooLarge *http.MaxBytesError

	switch {
	case errors.Is(err, repository.ErrNotFound):
		h.writeError(w, http.StatusNotFound, "NOT_FOUND", "movie not found")
	case errors.Is(err, store.ErrRunNotFound):
		h.writeError(w, http.StatusNotFound, "NOT_FOUND", "import run not found")
	case errors.Is(err, ingest.ErrEmptyPayload):
		h.writeError(w, http.StatusBadRequest, "EMPTY_PAYLOAD", "no document was uploaded")
	case errors.As(err, &malformed):
		h.writeError(w, http.StatusBadRequest, "MALFORMED_DOCUMENT", malformed.Error())
	case errors.As(err, &tooLarge):
		h.writeError(w, http.StatusRequestEntityTooLarge, "PAYLOAD_TOO_LARGE",
			fmt.Sprintf("document exceeds %d bytes", tooLarge.Limit))
	default:
		h.logger.Errorw("Request failed",
			"request_id", middleware.GetReqID(r.Context()),
			"method", r.Method,
			"path", r.URL.Path,
			"error", err,
		)
		h.writeError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "internal server error")
	}
}

// Query parameter helpers

type paramError struct {
	name   string
	reason string
}

func (e *paramError) Error() string {
	return fmt.Sprintf("query parameter %q %s", e.name, e.reason)
}

func requiredString(r *http.Request, name string) (string, error) {
	values, ok := r.URL.Query()[name]
	if !ok || len(values) == 0 {
		return "", &paramError{name: name, reason: "is required"}
	}
	return values[0], nil
}

func optionalString(r *http.Request, name, def string) string {
	if values, ok := r.URL.Query()[name]; ok && len(values) > 0 && values[0] != "" {
		return values[0]
	}
	return def
}

func requiredInt(r *http.Request, name string) (int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return 0, &paramError{name: name, reason: "is required"}
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, &paramError{name: name, reason: "must be an integer"}
	}
	return n, nil
}

func optionalInt(r *http.Request, name string, def int) (int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, &paramError{name: name, reason: "must be an integer"}
	}
	return n, nil
}

func optionalDecimal(r *http.Request, name string, def decimal.Decimal) (decimal.Decimal, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def, nil
	}
	d, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Zero, &paramError{name: name, reason: "must be a decimal number"}
	}
	return d, nil
}

func (h *Handler) writeParamError(w http.ResponseWriter, err error) {
	h.writeError(w, http.StatusBadRequest, "INVALID_PARAMETER", err.Error())
}
