package api

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/cinedex/cinedex-backend/internal/db/entities"
	"github.com/cinedex/cinedex-backend/internal/ingest"
	"github.com/cinedex/cinedex-backend/internal/store"
)

const (
	uploadFormField     = "xmlFile"
	defaultRecentImport = 10
)

func (h *Handler) ListMovies(w http.ResponseWriter, r *http.Request) {
	movies, err := h.movies.All().List(r.Context())
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, movies)
}

func (h *Handler) GetMovie(w http.ResponseWriter, r *http.Request) {
	id, ok := h.movieID(w, r)
	if !ok {
		return
	}

	movie, err := h.movies.Get(r.Context(), id)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, movie)
}

func (h *Handler) CreateMovie(w http.ResponseWriter, r *http.Request) {
	req, ok := h.decodeMovieRequest(w, r)
	if !ok {
		return
	}

	movie, err := h.movies.Create(r.Context(), req.movie())
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	w.Header().Set("Location", fmt.Sprintf("/api/movie/%d", movie.ID))
	h.writeJSON(w, http.StatusCreated, movie)
}

func (h *Handler) UpdateMovie(w http.ResponseWriter, r *http.Request) {
	id, ok := h.movieID(w, r)
	if !ok {
		return
	}
	req, ok := h.decodeMovieRequest(w, r)
	if !ok {
		return
	}

	movie, err := h.movies.Update(r.Context(), id, req.movie())
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, movie)
}

func (h *Handler) DeleteMovie(w http.ResponseWriter, r *http.Request) {
	id, ok := h.movieID(w, r)
	if !ok {
		return
	}

	movie, err := h.movies.Delete(r.Context(), id)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, movie)
}

// ExportMovies serves the whole catalog as a downloadable JSON document, or
// as a MovieData XML document when format=xml.
func (h *Handler) ExportMovies(w http.ResponseWriter, r *http.Request) {
	format := optionalString(r, "format", "json")

	var write func(io.Writer, []entities.Movie) error
	var contentType, filename string

	switch format {
	case "json":
		write, contentType, filename = ingest.WriteJSON, "application/json", "ExportedMovies.json"
	case "xml":
		write, contentType, filename = ingest.WriteXML, "application/xml", "ExportedMovies.xml"
	default:
		h.writeError(w, http.StatusBadRequest, "INVALID_PARAMETER",
			fmt.Sprintf("unsupported export format %q (must be json or xml)", format))
		return
	}

	movies, err := h.movies.All().List(r.Context())
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	var buf bytes.Buffer
	if err := write(&buf, movies); err != nil {
		h.logger.Errorw("Export failed", "format", format, "error", err)
		h.writeError(w, http.StatusInternalServerError, "EXPORT_ERROR", "An error occurred while exporting movies.")
		return
	}

	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": filename}))
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	w.WriteHeader(http.StatusOK)
	w.Write(buf.Bytes())
}

// UploadMovies imports a MovieData document sent either as the xmlFile field
// of a multipart form or as the raw request body.
func (h *Handler) UploadMovies(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadBytes)

	payload, err := h.readUpload(r)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			h.writeServiceError(w, r, err)
			return
		}
		h.writeError(w, http.StatusBadRequest, "INVALID_UPLOAD", err.Error())
		return
	}

	summary, err := h.importer.Run(r.Context(), payload, h.ledger.Listener())
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	h.writeJSON(w, http.StatusOK, UploadResponse{
		RunID:   summary.RunID,
		Count:   summary.Count,
		Message: fmt.Sprintf("Successfully created %d movies.", summary.Count),
	})
}

func (h *Handler) readUpload(r *http.Request) ([]byte, error) {
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType != "multipart/form-data" {
		return io.ReadAll(r.Body)
	}

	if err := r.ParseMultipartForm(h.maxUploadBytes); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return nil, err
		}
		return nil, fmt.Errorf("invalid multipart form: %w", err)
	}
	defer r.MultipartForm.RemoveAll()

	file, _, err := r.FormFile(uploadFormField)
	if errors.Is(err, http.ErrMissingFile) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("invalid %s field: %w", uploadFormField, err)
	}
	defer file.Close()

	return io.ReadAll(file)
}

func (h *Handler) GetImport(w http.ResponseWriter, r *http.Request) {
	runID, err := uuid.Parse(chi.URLParam(r, "runID"))
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "INVALID_RUN_ID", "run id must be a UUID")
		return
	}

	completion, err := h.ledger.Get(r.Context(), runID)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, newImportRunDTO(completion))
}

func (h *Handler) ListImports(w http.ResponseWriter, r *http.Request) {
	limit, err := optionalInt(r, "limit", defaultRecentImport)
	if err != nil {
		h.writeParamError(w, err)
		return
	}
	if limit > store.MaxRecentImports {
		limit = store.MaxRecentImports
	}

	completions, err := h.ledger.Recent(r.Context(), limit)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	runs := make([]ImportRunDTO, 0, len(completions))
	for _, c := range completions {
		runs = append(runs, newImportRunDTO(c))
	}
	h.writeJSON(w, http.StatusOK, runs)
}

func (h *Handler) movieID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "INVALID_ID", "movie id must be an integer")
		return 0, false
	}
	return id, true
}

func (h *Handler) decodeMovieRequest(w http.ResponseWriter, r *http.Request) (MovieRequest, bool) {
	var req MovieRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "INVALID_BODY", fmt.Sprintf("invalid movie body: %v", err))
		return MovieRequest{}, false
	}
	if err := req.validate(); err != nil {
		h.writeError(w, http.StatusBadRequest, "VALIDATION_ERROR", err.Error())
		return MovieRequest{}, false
	}
	return req, true
}
