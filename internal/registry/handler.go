package registry

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/lumina-hr/lumina-backoffice/internal/platform/httpx"
	"github.com/lumina-hr/lumina-backoffice/internal/shared"
)

// Handler serves registry administration endpoints. Callers are expected to
// be superadmins; the guard is mounted by the router.
type Handler struct {
	logger   *slog.Logger
	service  *Service
	validate *validator.Validate
}

// NewHandler builds Handler instance.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service, validate: validator.New()}
}

// MountRoutes registers registry routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/dashboards", h.listDashboards)
	r.Post("/dashboards", h.createDashboard)
	r.Get("/dashboards/{id}", h.getDashboard)
	r.Patch("/dashboards/{id}", h.updateDashboard)
	r.Delete("/dashboards/{id}", h.deleteDashboard)
	r.Get("/dashboards/{id}/features", h.listFeatures)
	r.Post("/dashboards/{id}/features", h.createFeature)
	r.Patch("/features/{id}", h.updateFeature)
	r.Delete("/features/{id}", h.deleteFeature)
}

type dashboardResponse struct {
	ID          int64  `json:"id"`
	Slug        string `json:"slug"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Icon        string `json:"icon"`
	IsActive    bool   `json:"is_active"`
}

type featureResponse struct {
	ID          int64  `json:"id"`
	DashboardID int64  `json:"dashboard_id"`
	Key         string `json:"feature_key"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Component   string `json:"component"`
	Icon        string `json:"icon"`
	OrderIndex  int    `json:"order_index"`
}

func toDashboardResponse(d Dashboard) dashboardResponse {
	return dashboardResponse{
		ID:          d.ID,
		Slug:        d.Slug,
		Name:        d.Name,
		Description: d.Description,
		Icon:        d.Icon,
		IsActive:    d.IsActive,
	}
}

func toFeatureResponse(f Feature) featureResponse {
	return featureResponse{
		ID:          f.ID,
		DashboardID: f.DashboardID,
		Key:         f.Key,
		Name:        f.Name,
		Description: f.Description,
		Component:   f.Component,
		Icon:        f.Icon,
		OrderIndex:  f.OrderIndex,
	}
}

func (h *Handler) listDashboards(w http.ResponseWriter, r *http.Request) {
	dashboards, err := h.service.ListDashboards(r.Context())
	if err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	out := make([]dashboardResponse, 0, len(dashboards))
	for _, d := range dashboards {
		out = append(out, toDashboardResponse(d))
	}
	httpx.JSON(w, http.StatusOK, out)
}

func (h *Handler) createDashboard(w http.ResponseWriter, r *http.Request) {
	var in CreateDashboardInput
	if err := httpx.DecodeJSON(r, &in); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid JSON body")
		return
	}
	if err := h.validate.Struct(in); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", err.Error())
		return
	}
	d, err := h.service.CreateDashboard(r.Context(), h.actorID(r), in)
	if err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, toDashboardResponse(d))
}

func (h *Handler) getDashboard(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}
	d, err := h.service.GetDashboard(r.Context(), id)
	if err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	httpx.JSON(w, http.StatusOK, toDashboardResponse(d))
}

func (h *Handler) updateDashboard(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}
	var in UpdateDashboardInput
	if err := httpx.DecodeJSON(r, &in); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid JSON body")
		return
	}
	if err := h.validate.Struct(in); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", err.Error())
		return
	}
	d, err := h.service.UpdateDashboard(r.Context(), h.actorID(r), id, in)
	if err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	httpx.JSON(w, http.StatusOK, toDashboardResponse(d))
}

func (h *Handler) deleteDashboard(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}
	if err := h.service.DeleteDashboard(r.Context(), h.actorID(r), id); err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) listFeatures(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}
	features, err := h.service.ListFeatures(r.Context(), id)
	if err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	out := make([]featureResponse, 0, len(features))
	for _, f := range features {
		out = append(out, toFeatureResponse(f))
	}
	httpx.JSON(w, http.StatusOK, out)
}

func (h *Handler) createFeature(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}
	var in CreateFeatureInput
	if err := httpx.DecodeJSON(r, &in); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid JSON body")
		return
	}
	if err := h.validate.Struct(in); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", err.Error())
		return
	}
	f, err := h.service.CreateFeature(r.Context(), h.actorID(r), id, in)
	if err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, toFeatureResponse(f))
}

func (h *Handler) updateFeature(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}
	var in UpdateFeatureInput
	if err := httpx.DecodeJSON(r, &in); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid JSON body")
		return
	}
	if err := h.validate.Struct(in); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", err.Error())
		return
	}
	f, err := h.service.UpdateFeature(r.Context(), h.actorID(r), id, in)
	if err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	httpx.JSON(w, http.StatusOK, toFeatureResponse(f))
}

func (h *Handler) deleteFeature(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}
	if err := h.service.DeleteFeature(r.Context(), h.actorID(r), id); err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) pathID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid id")
		return 0, false
	}
	return id, true
}

func (h *Handler) actorID(r *http.Request) int64 {
	if id := shared.IdentityFromContext(r.Context()); id != nil {
		return id.ID
	}
	return 0
}
