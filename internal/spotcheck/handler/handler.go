// Package handler is the thin HTTP layer over the reconciliation engine.
// It parses and validates wire input, delegates to the service, and translates
// domain errors to JSON responses; no reconciliation rules live here.
package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"spotcheck/internal/platform/middleware"
	"spotcheck/internal/spotcheck/models"
	"spotcheck/pkg/platform/sentinel"
)

// Service defines the engine operations the HTTP layer needs.
type Service interface {
	SaveReport(ctx context.Context, report *models.Report) error
	GetMismatches(ctx context.Context, query models.MismatchQuery, limOff models.LimitOffset) (*models.PaginatedList[*models.Mismatch], error)
	GetMismatchSummary(ctx context.Context, ds models.DataSource, asOf time.Time) (*models.MismatchSummary, error)
	GetReport(ctx context.Context, id models.ReportID) (*models.ReportHistory, error)
	GetReportSummaries(ctx context.Context, refType *models.ReferenceType, start, end time.Time) ([]*models.ReportSummary, error)
	DeleteReport(ctx context.Context, id models.ReportID) error
	SetIgnoreStatus(ctx context.Context, mismatchID int64, level models.IgnoreLevel) error
	AddIssueID(ctx context.Context, mismatchID int64, issueID string) error
	DeleteIssueID(ctx context.Context, mismatchID int64, issueID string) error
}

const defaultPageLimit = 50

// Handler handles the spotcheck API endpoints.
type Handler struct {
	logger  *slog.Logger
	service Service
	admin   *middleware.AdminValidator
}

// New creates a new Handler.
func New(service Service, logger *slog.Logger, admin *middleware.AdminValidator) *Handler {
	return &Handler{logger: logger, service: service, admin: admin}
}

// Register registers the spotcheck routes with the chi router.
func (h *Handler) Register(r chi.Router) {
	api := chi.NewRouter()
	api.Use(middleware.Recovery(h.logger))
	api.Use(middleware.RequestID)
	api.Use(middleware.Logger(h.logger))

	api.Post("/reports", h.handleSaveReport)
	api.Get("/reports", h.handleListReports)
	api.Get("/reports/{refType}/{reportDateTime}", h.handleGetReport)
	api.Get("/mismatches", h.handleGetMismatches)
	api.Get("/summary", h.handleGetSummary)

	api.Group(func(g chi.Router) {
		g.Use(middleware.RequireAdmin(h.admin, h.logger))
		g.Delete("/reports/{refType}/{reportDateTime}", h.handleDeleteReport)
		g.Put("/mismatches/{id}/ignore", h.handleSetIgnore)
		g.Post("/mismatches/{id}/issues/{issueID}", h.handleAddIssue)
		g.Delete("/mismatches/{id}/issues/{issueID}", h.handleDeleteIssue)
	})

	r.Mount("/api/spotcheck", api)
}

func (h *Handler) handleSaveReport(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req reportRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeBadRequest(ctx, w, "invalid request body")
		return
	}
	report, err := req.toModel()
	if err != nil {
		h.writeBadRequest(ctx, w, err.Error())
		return
	}

	if err := h.service.SaveReport(ctx, report); err != nil {
		h.writeError(ctx, w, err)
		return
	}
	w.WriteHeader(http.StatusCreated)
}

func (h *Handler) handleGetMismatches(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	params := r.URL.Query()

	ds, err := models.ParseDataSource(params.Get("dataSource"))
	if err != nil {
		h.writeBadRequest(ctx, w, err.Error())
		return
	}
	query := models.MismatchQuery{DataSource: ds}

	for _, raw := range params["contentType"] {
		ct, err := models.ParseContentType(raw)
		if err != nil {
			h.writeBadRequest(ctx, w, err.Error())
			return
		}
		query.ContentTypes = append(query.ContentTypes, ct)
	}
	for _, raw := range params["status"] {
		status, err := models.ParseMismatchStatus(raw)
		if err != nil {
			h.writeBadRequest(ctx, w, err.Error())
			return
		}
		query.Statuses = append(query.Statuses, status)
	}
	// Suppressed lineages are hidden unless the caller asks for them.
	query.IgnoreLevels = []models.IgnoreLevel{models.NotIgnored}
	if levels := params["ignoreLevel"]; len(levels) > 0 {
		query.IgnoreLevels = nil
		for _, raw := range levels {
			level, err := models.ParseIgnoreLevel(raw)
			if err != nil {
				h.writeBadRequest(ctx, w, err.Error())
				return
			}
			query.IgnoreLevels = append(query.IgnoreLevels, level)
		}
	}
	if query.FromDate, err = parseTimeParam(params.Get("fromDate")); err != nil {
		h.writeBadRequest(ctx, w, "invalid fromDate")
		return
	}
	if query.ToDate, err = parseTimeParam(params.Get("toDate")); err != nil {
		h.writeBadRequest(ctx, w, "invalid toDate")
		return
	}

	limOff, err := parseLimitOffset(params.Get("limit"), params.Get("offset"))
	if err != nil {
		h.writeBadRequest(ctx, w, err.Error())
		return
	}

	page, err := h.service.GetMismatches(ctx, query, limOff)
	if err != nil {
		h.writeError(ctx, w, err)
		return
	}

	resp := paginatedResponse[mismatchResponse]{
		Total:   page.Total,
		Limit:   page.Limit,
		Offset:  page.Offset,
		Results: make([]mismatchResponse, 0, len(page.Results)),
	}
	for _, m := range page.Results {
		resp.Results = append(resp.Results, toMismatchResponse(m))
	}
	h.writeJSON(ctx, w, http.StatusOK, resp)
}

func (h *Handler) handleGetSummary(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	ds, err := models.ParseDataSource(r.URL.Query().Get("dataSource"))
	if err != nil {
		h.writeBadRequest(ctx, w, err.Error())
		return
	}
	asOf, err := parseTimeParam(r.URL.Query().Get("asOf"))
	if err != nil {
		h.writeBadRequest(ctx, w, "invalid asOf")
		return
	}

	summary, err := h.service.GetMismatchSummary(ctx, ds, asOf)
	if err != nil {
		h.writeError(ctx, w, err)
		return
	}
	h.writeJSON(ctx, w, http.StatusOK, toSummaryResponse(ds, summary))
}

func (h *Handler) handleListReports(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	params := r.URL.Query()

	var refType *models.ReferenceType
	if raw := params.Get("referenceType"); raw != "" {
		rt, err := models.ParseReferenceType(raw)
		if err != nil {
			h.writeBadRequest(ctx, w, err.Error())
			return
		}
		refType = &rt
	}
	start, err := parseTimeParam(params.Get("start"))
	if err != nil {
		h.writeBadRequest(ctx, w, "invalid start")
		return
	}
	end, err := parseTimeParam(params.Get("end"))
	if err != nil {
		h.writeBadRequest(ctx, w, "invalid end")
		return
	}
	if end.IsZero() {
		end = time.Now()
	}

	summaries, err := h.service.GetReportSummaries(ctx, refType, start, end)
	if err != nil {
		h.writeError(ctx, w, err)
		return
	}
	resp := make([]reportSummaryResponse, 0, len(summaries))
	for _, s := range summaries {
		resp = append(resp, toReportSummaryResponse(s))
	}
	h.writeJSON(ctx, w, http.StatusOK, resp)
}

func (h *Handler) handleGetReport(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	id, err := reportIDFromPath(r)
	if err != nil {
		h.writeBadRequest(ctx, w, err.Error())
		return
	}
	history, err := h.service.GetReport(ctx, id)
	if err != nil {
		h.writeError(ctx, w, err)
		return
	}
	h.writeJSON(ctx, w, http.StatusOK, toReportHistoryResponse(history))
}

func (h *Handler) handleDeleteReport(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	id, err := reportIDFromPath(r)
	if err != nil {
		h.writeBadRequest(ctx, w, err.Error())
		return
	}
	if err := h.service.DeleteReport(ctx, id); err != nil {
		h.writeError(ctx, w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleSetIgnore(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	mismatchID, err := mismatchIDFromPath(r)
	if err != nil {
		h.writeBadRequest(ctx, w, "invalid mismatch id")
		return
	}
	var req ignoreRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeBadRequest(ctx, w, "invalid request body")
		return
	}
	level, err := models.ParseIgnoreLevel(req.IgnoreLevel)
	if err != nil {
		h.writeBadRequest(ctx, w, err.Error())
		return
	}

	if err := h.service.SetIgnoreStatus(ctx, mismatchID, level); err != nil {
		h.writeError(ctx, w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleAddIssue(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	mismatchID, err := mismatchIDFromPath(r)
	if err != nil {
		h.writeBadRequest(ctx, w, "invalid mismatch id")
		return
	}
	if err := h.service.AddIssueID(ctx, mismatchID, chi.URLParam(r, "issueID")); err != nil {
		h.writeError(ctx, w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleDeleteIssue(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	mismatchID, err := mismatchIDFromPath(r)
	if err != nil {
		h.writeBadRequest(ctx, w, "invalid mismatch id")
		return
	}
	if err := h.service.DeleteIssueID(ctx, mismatchID, chi.URLParam(r, "issueID")); err != nil {
		h.writeError(ctx, w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func reportIDFromPath(r *http.Request) (models.ReportID, error) {
	refType, err := models.ParseReferenceType(chi.URLParam(r, "refType"))
	if err != nil {
		return models.ReportID{}, err
	}
	reportDateTime, err := time.Parse(time.RFC3339, chi.URLParam(r, "reportDateTime"))
	if err != nil {
		return models.ReportID{}, errors.New("invalid report date time, want RFC3339")
	}
	return models.ReportID{ReferenceType: refType, ReportDateTime: reportDateTime}, nil
}

func mismatchIDFromPath(r *http.Request) (int64, error) {
	return strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
}

func parseTimeParam(raw string) (time.Time, error) {
	if raw == "" {
		return time.Time{}, nil
	}
	return time.Parse(time.RFC3339, raw)
}

func parseLimitOffset(rawLimit, rawOffset string) (models.LimitOffset, error) {
	limOff := models.LimitOffset{Limit: defaultPageLimit}
	if rawLimit != "" {
		limit, err := strconv.Atoi(rawLimit)
		if err != nil || limit < 0 {
			return limOff, errors.New("invalid limit")
		}
		limOff.Limit = limit
	}
	if rawOffset != "" {
		offset, err := strconv.Atoi(rawOffset)
		if err != nil || offset < 0 {
			return limOff, errors.New("invalid offset")
		}
		limOff.Offset = offset
	}
	return limOff, nil
}

func (h *Handler) writeJSON(ctx context.Context, w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		h.logger.ErrorContext(ctx, "failed to write response",
			"request_id", middleware.GetRequestID(ctx),
			"error", err,
		)
	}
}

func (h *Handler) writeBadRequest(ctx context.Context, w http.ResponseWriter, msg string) {
	h.logger.WarnContext(ctx, "bad request",
		"request_id", middleware.GetRequestID(ctx),
		"error", msg,
	)
	h.writeJSON(ctx, w, http.StatusBadRequest, map[string]string{"error": msg})
}

// writeError translates domain errors to HTTP responses.
func (h *Handler) writeError(ctx context.Context, w http.ResponseWriter, err error) {
	var dup *models.DuplicateReportError
	var keyErr *models.ContentKeyConversionError
	switch {
	case errors.As(err, &dup):
		h.writeJSON(ctx, w, http.StatusConflict, map[string]string{"error": err.Error()})
	case errors.As(err, &keyErr):
		h.writeJSON(ctx, w, http.StatusBadRequest, map[string]string{"error": err.Error()})
	case errors.Is(err, sentinel.ErrNotFound):
		h.writeJSON(ctx, w, http.StatusNotFound, map[string]string{"error": "not found"})
	default:
		h.logger.ErrorContext(ctx, "request failed",
			"request_id", middleware.GetRequestID(ctx),
			"error", err,
		)
		h.writeJSON(ctx, w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
	}
}
