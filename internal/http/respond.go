package httpserver

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/Clark-Hu/mangareview/internal/domain"
	"github.com/Clark-Hu/mangareview/internal/validation"
)

const maxRequestBody = 1 << 20 // 1 MiB

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

func decodeJSONBody(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBody)
	defer r.Body.Close()
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return err
	}
	if dec.More() {
		return errTrailingData
	}
	return nil
}

var errTrailingData = errors.New("request body must contain a single JSON object")

func (s *Server) respondJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload != nil {
		if err := json.NewEncoder(w).Encode(payload); err != nil {
			s.logger.Warn("failed to encode response", zap.Error(err))
		}
	}
}

func (s *Server) respondError(w http.ResponseWriter, status int, code, message string) {
	s.respondJSON(w, status, errorResponse{
		Code:    code,
		Message: message,
	})
}

func (s *Server) respondDecodeError(w http.ResponseWriter, err error) {
	var syntaxError *json.SyntaxError
	var typeError *json.UnmarshalTypeError
	var maxBytesError *http.MaxBytesError
	switch {
	case errors.As(err, &syntaxError), errors.Is(err, io.ErrUnexpectedEOF):
		s.respondError(w, http.StatusUnprocessableEntity, "VALIDATION_ERROR", "Malformed JSON payload")
	case errors.As(err, &typeError):
		s.respondError(w, http.StatusUnprocessableEntity, "VALIDATION_ERROR", fmt.Sprintf("Invalid value for field %s", typeError.Field))
	case errors.Is(err, io.EOF):
		s.respondError(w, http.StatusUnprocessableEntity, "VALIDATION_ERROR", "Request body cannot be empty")
	case errors.As(err, &maxBytesError):
		s.respondError(w, http.StatusRequestEntityTooLarge, "VALIDATION_ERROR", "Request body too large")
	case strings.HasPrefix(err.Error(), "json: unknown field "):
		field := strings.TrimPrefix(err.Error(), "json: unknown field ")
		s.respondError(w, http.StatusUnprocessableEntity, "VALIDATION_ERROR", fmt.Sprintf("Unknown field %s", field))
	default:
		s.respondError(w, http.StatusBadRequest, "VALIDATION_ERROR", "Unable to parse request body")
	}
}

// respondServiceError maps domain and validation errors to their HTTP form.
// Anything unclassified is a persistence failure and is logged, not echoed.
func (s *Server) respondServiceError(w http.ResponseWriter, r *http.Request, err error) {
	var (
		verr *validation.Error
		derr *domain.Error
	)
	message := func(fallback string) string {
		if errors.As(err, &derr) {
			return derr.Message
		}
		return fallback
	}

	switch {
	case errors.As(err, &verr):
		s.respondJSON(w, http.StatusUnprocessableEntity, errorResponse{
			Code:    "VALIDATION_ERROR",
			Message: verr.Error(),
			Details: verr.Fields,
		})
	case errors.Is(err, domain.ErrNotFound):
		s.respondError(w, http.StatusNotFound, "NOT_FOUND", message("Resource not found"))
	case errors.Is(err, domain.ErrReviewNotInSeries):
		s.respondError(w, http.StatusBadRequest, "REVIEW_SERIES_MISMATCH", message("Review does not belong to this series"))
	case errors.Is(err, domain.ErrConflict):
		s.respondError(w, http.StatusConflict, "CONFLICT", message("Resource already exists"))
	case errors.Is(err, domain.ErrForbidden):
		s.respondError(w, http.StatusForbidden, "FORBIDDEN", message("Forbidden"))
	case errors.Is(err, domain.ErrInvalidCredentials):
		s.respondError(w, http.StatusUnauthorized, "UNAUTHORIZED", message("Invalid credentials"))
	default:
		s.logger.Error("request failed",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Error(err),
		)
		s.respondError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Internal server error")
	}
}

func idParam(r *http.Request, name string) (int64, error) {
	raw := chi.URLParam(r, name)
	if raw == "" {
		return 0, fmt.Errorf("missing %s parameter", name)
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid %s parameter", name)
	}
	return id, nil
}

// idParams reads the named positive integer path parameters, answering 400
// and returning false on the first bad one.
func (s *Server) idParams(w http.ResponseWriter, r *http.Request, names ...string) ([]int64, bool) {
	ids := make([]int64, 0, len(names))
	for _, name := range names {
		id, err := idParam(r, name)
		if err != nil {
			s.respondError(w, http.StatusBadRequest, "BAD_REQUEST", err.Error())
			return nil, false
		}
		ids = append(ids, id)
	}
	return ids, true
}
