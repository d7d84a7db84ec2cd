package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"go.uber.org/zap"

	"github.com/atinyakov/HomeKeeper/internal/logger"
	"github.com/atinyakov/HomeKeeper/internal/middleware"
	"github.com/atinyakov/HomeKeeper/internal/models"
	"github.com/atinyakov/HomeKeeper/internal/service"
)

// LogService is the record log as seen by the HTTP and relay handlers.
type LogService interface {
	// Append stores rec on behalf of caller and reports whether it was new.
	Append(ctx context.Context, caller string, rec models.Record) (bool, error)
	// Query returns matching records, newest first.
	Query(ctx context.Context, filter models.Filter) ([]models.Record, error)
}

// RecordsHandler serves /api/records.
type RecordsHandler struct {
	Log    LogService
	Logger *zap.Logger
}

// appendStatus maps a LogService.Append error to an HTTP status.
func appendStatus(err error) int {
	switch {
	case errors.Is(err, service.ErrInvalidRecord):
		return http.StatusBadRequest
	case errors.Is(err, service.ErrForbidden), errors.Is(err, service.ErrUnknownAuthor):
		return http.StatusForbidden
	default:
		return http.StatusInternalServerError
	}
}

// Append handles POST /api/records. It answers 201 for a new record and 200
// for a record the log already holds.
func (h *RecordsHandler) Append(w http.ResponseWriter, r *http.Request) {
	var rec models.Record
	if err := json.NewDecoder(r.Body).Decode(&rec); err != nil {
		http.Error(w, "invalid request", http.StatusBadRequest)
		return
	}

	created, err := h.Log.Append(r.Context(), middleware.AuthorFromContext(r.Context()), rec)
	if err != nil {
		status := appendStatus(err)
		if status == http.StatusInternalServerError {
			logger.OrNop(h.Logger).Error("append failed", zap.String("id", rec.ID), zap.Error(err))
			http.Error(w, "internal error", status)
			return
		}
		http.Error(w, err.Error(), status)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if created {
		w.WriteHeader(http.StatusCreated)
	}
	_ = json.NewEncoder(w).Encode(map[string]any{"id": rec.ID, "created": created})
}

// Query handles GET /api/records?author=..&namespace=..&since=..&limit=..
// author and namespace may be repeated.
func (h *RecordsHandler) Query(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := models.Filter{
		Authors:    q["author"],
		Namespaces: q["namespace"],
	}
	if v := q.Get("since"); v != "" {
		since, err := strconv.ParseInt(v, 10, 64)
		if err != nil || since < 0 {
			http.Error(w, "invalid since", http.StatusBadRequest)
			return
		}
		filter.Since = since
	}
	if v := q.Get("limit"); v != "" {
		limit, err := strconv.Atoi(v)
		if err != nil || limit < 0 {
			http.Error(w, "invalid limit", http.StatusBadRequest)
			return
		}
		filter.Limit = limit
	}

	records, err := h.Log.Query(r.Context(), filter)
	if err != nil {
		logger.OrNop(h.Logger).Error("query failed", zap.Error(err))
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	if records == nil {
		records = []models.Record{}
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(records)
}
