// Package handler exposes the portal over HTTP.
package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"dataportal/internal/portal/aggregator"
	"dataportal/internal/portal/models"
	"dataportal/internal/portal/scope"
	"dataportal/internal/portal/view"
	dErrors "dataportal/pkg/domain-errors"
	"dataportal/pkg/platform/httputil"
	"dataportal/pkg/platform/middleware/request"
)

// Service builds portal views and drops cached source data.
type Service interface {
	BuildPortalView(ctx context.Context, req aggregator.Request) *models.PortalView
	Refresh(ctx context.Context) error
}

type Handler struct {
	logger *slog.Logger
	portal Service
	now    func() time.Time
}

func New(portal Service, logger *slog.Logger) *Handler {
	return &Handler{
		logger: logger,
		portal: portal,
		now:    time.Now,
	}
}

// Register mounts the portal routes under /api/v1/portal.
func (h *Handler) Register(r chi.Router) {
	r.Route("/api/v1/portal", func(r chi.Router) {
		r.Get("/view", h.handleView)
		r.Get("/catalog", h.handleCatalog)
		r.Get("/kpis", h.handleKPIs)
		r.Get("/gallery", h.handleGallery)
		r.Get("/departments", h.handleDepartments)
		r.Post("/refresh", h.handleRefresh)
	})
}

func (h *Handler) handleView(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	q, ok := httputil.DecodeQuery[ViewQuery](w, r, h.logger, ctx, request.RequestIDFrom(ctx))
	if !ok {
		return
	}

	v := h.build(ctx, q)
	httputil.WriteJSON(w, http.StatusOK, ViewResponse{
		PortalView: v,
		ScopeLabel: q.ScopeContext().Label(),
		Headlines:  view.Headlines(v.Metrics),
	})
}

func (h *Handler) handleCatalog(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	q, ok := httputil.DecodeQuery[ViewQuery](w, r, h.logger, ctx, request.RequestIDFrom(ctx))
	if !ok {
		return
	}

	v := h.build(ctx, q)
	datasets := view.FilterDatasets(v.Datasets, q.Search, q.Domain)
	httputil.WriteJSON(w, http.StatusOK, CatalogResponse{
		Datasets: datasets,
		Domains:  view.Domains(v.Datasets),
		Count:    len(datasets),
		Errors:   v.Errors,
	})
}

func (h *Handler) handleKPIs(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	q, ok := httputil.DecodeQuery[ViewQuery](w, r, h.logger, ctx, request.RequestIDFrom(ctx))
	if !ok {
		return
	}

	v := h.build(ctx, q)
	httputil.WriteJSON(w, http.StatusOK, KPIResponse{KPIs: v.KPIs, Errors: v.Errors})
}

func (h *Handler) handleGallery(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	q, ok := httputil.DecodeQuery[ViewQuery](w, r, h.logger, ctx, request.RequestIDFrom(ctx))
	if !ok {
		return
	}

	sc := q.ScopeContext()
	httputil.WriteJSON(w, http.StatusOK, GalleryResponse{
		ScopeLabel: sc.Label(),
		Items:      view.Gallery(sc),
	})
}

func (h *Handler) handleDepartments(w http.ResponseWriter, _ *http.Request) {
	httputil.WriteJSON(w, http.StatusOK, DepartmentsResponse{
		Central:     scope.Department{ID: scope.CentralID, Name: scope.CentralName},
		Departments: scope.Departments(),
	})
}

func (h *Handler) handleRefresh(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := request.RequestIDFrom(ctx)

	if err := h.portal.Refresh(ctx); err != nil {
		h.logger.ErrorContext(ctx, "failed to refresh portal cache",
			"request_id", requestID,
			"error", err,
		)
		httputil.WriteError(w, dErrors.Wrap(err, dErrors.CodeUnavailable, "cache refresh failed"))
		return
	}

	h.logger.InfoContext(ctx, "portal cache refreshed", "request_id", requestID)
	httputil.WriteJSON(w, http.StatusOK, RefreshResponse{
		Status:    "cleared",
		ClearedAt: h.now().UTC().Format(time.RFC3339),
	})
}

func (h *Handler) build(ctx context.Context, q *ViewQuery) *models.PortalView {
	v := h.portal.BuildPortalView(ctx, q.Request())
	if len(v.Errors) > 0 {
		h.logger.WarnContext(ctx, "portal view degraded",
			"request_id", request.RequestIDFrom(ctx),
			"scope", q.ScopeContext().String(),
			"errors", len(v.Errors),
		)
	}
	return v
}
