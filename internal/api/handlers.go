package api

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/recares/dme-matcher/internal/matching"
	"github.com/recares/dme-matcher/internal/pkg/distlock"
	"github.com/recares/dme-matcher/internal/pkg/httputil"
	"github.com/recares/dme-matcher/internal/service/listings"
)

// EventService is the part of listings.Service exposed over HTTP.
type EventService interface {
	Submit(ctx context.Context, sheet string, values []string) (*listings.EventResult, error)
	HandleFormSubmit(ctx context.Context, ev listings.FormEvent) (*listings.EventResult, error)
	SweepExpirations(ctx context.Context) (*listings.SweepResult, error)
	Resync(ctx context.Context) (*listings.ResyncResult, error)
	EnsureSchema(ctx context.Context) (matching.FieldHandles, error)
}

// Handlers contains the HTTP handlers of the intake server.
type Handlers struct {
	svc    EventService
	sheets listings.Sheets
}

// NewHandlers creates handlers.
func NewHandlers(svc EventService, sheets listings.Sheets) *Handlers {
	return &Handlers{svc: svc, sheets: sheets}
}

// FormResponseRequest is posted by the form host. Either Values carries a new
// response to store and process, or Row names a response already stored.
type FormResponseRequest struct {
	Values []string `json:"values,omitempty"`
	Row    int      `json:"row,omitempty"`
}

// HandleFormResponse processes a new form response.
//
//	POST /api/forms/{sheet}/responses
func (h *Handlers) HandleFormResponse(w http.ResponseWriter, r *http.Request) {
	sheet := h.resolveSheet(chi.URLParam(r, "sheet"))

	var req FormResponseRequest
	if !httputil.Decode(w, r, &req) {
		return
	}

	var (
		res *listings.EventResult
		err error
	)
	switch {
	case len(req.Values) > 0:
		res, err = h.svc.Submit(r.Context(), sheet, req.Values)
	case req.Row > 0:
		res, err = h.svc.HandleFormSubmit(r.Context(), listings.FormEvent{Sheet: sheet, Row: req.Row})
	default:
		httputil.BadRequest(w, "values or row is required")
		return
	}
	if err != nil {
		writeServiceError(w, err, res)
		return
	}
	httputil.OK(w, res)
}

// HandleExpirationSweep runs the expiration sweep now.
//
//	POST /api/sweeps/expiration
func (h *Handlers) HandleExpirationSweep(w http.ResponseWriter, r *http.Request) {
	res, err := h.svc.SweepExpirations(r.Context())
	if err != nil {
		writeServiceError(w, err, nil)
		return
	}
	httputil.OK(w, res)
}

// HandleResync reconciles the opt-out sheet against the main sheet.
//
//	POST /api/sweeps/resync
func (h *Handlers) HandleResync(w http.ResponseWriter, r *http.Request) {
	res, err := h.svc.Resync(r.Context())
	if err != nil {
		writeServiceError(w, err, nil)
		return
	}
	httputil.OK(w, res)
}

// HandleEnsureSchema adds missing tracking columns and returns the handles.
//
//	POST /api/schema
func (h *Handlers) HandleEnsureSchema(w http.ResponseWriter, r *http.Request) {
	handles, err := h.svc.EnsureSchema(r.Context())
	if err != nil {
		writeServiceError(w, err, nil)
		return
	}
	httputil.OK(w, handles)
}

// resolveSheet maps the path segment to a sheet name. "main" and "opt-out"
// are accepted as aliases for the configured names.
func (h *Handlers) resolveSheet(raw string) string {
	name, err := url.PathUnescape(raw)
	if err != nil {
		name = raw
	}
	switch strings.ToLower(name) {
	case "main":
		return h.sheets.Main
	case "opt-out", "optout":
		return h.sheets.OptOut
	}
	return name
}

// writeServiceError maps service errors to HTTP responses. A partially
// processed event (opt-in column missing) still returns its result.
func writeServiceError(w http.ResponseWriter, err error, partial any) {
	switch {
	case errors.Is(err, listings.ErrUnknownSheet):
		httputil.Error(w, http.StatusNotFound, "unknown_sheet", err.Error())
	case errors.Is(err, listings.ErrRowNotFound):
		httputil.Error(w, http.StatusNotFound, "row_not_found", err.Error())
	case errors.Is(err, listings.ErrEmptyRow):
		httputil.BadRequest(w, err.Error())
	case errors.Is(err, matching.ErrOptInFieldMissing):
		httputil.JSON(w, http.StatusUnprocessableEntity, httputil.ErrorResponse{
			Error:   err.Error(),
			Code:    "opt_in_missing",
			Details: partial,
		})
	case errors.Is(err, distlock.ErrNotAcquired), errors.Is(err, context.DeadlineExceeded):
		httputil.Error(w, http.StatusServiceUnavailable, "busy", "store is busy, retry later")
	default:
		httputil.InternalError(w, err)
	}
}
