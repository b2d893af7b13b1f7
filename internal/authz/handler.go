package authz

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/lumina-hr/lumina-backoffice/internal/grants"
	"github.com/lumina-hr/lumina-backoffice/internal/platform/httpx"
	"github.com/lumina-hr/lumina-backoffice/internal/shared"
)

// Handler serves the admin-facing composition endpoints under /me.
type Handler struct {
	logger  *slog.Logger
	service *Service
}

// NewHandler builds Handler instance.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service}
}

// MountRoutes registers the composition routes. The authentication guard is
// mounted by the router.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/view", h.effectiveView)
	r.Get("/dashboards/{slug}", h.dashboardDetail)
	r.Get("/capabilities/{featureID}/{verb}", h.checkCapability)
}

type featureViewPayload struct {
	ID         int64  `json:"id"`
	Key        string `json:"feature_key"`
	Name       string `json:"name"`
	Component  string `json:"component"`
	Icon       string `json:"icon"`
	OrderIndex int    `json:"order_index"`
	CanView    bool   `json:"can_view"`
	CanCreate  bool   `json:"can_create"`
	CanEdit    bool   `json:"can_edit"`
	CanDelete  bool   `json:"can_delete"`
	CanExport  bool   `json:"can_export"`
}

type dashboardViewPayload struct {
	ID       int64                `json:"id"`
	Slug     string               `json:"slug"`
	Name     string               `json:"name"`
	Icon     string               `json:"icon"`
	Features []featureViewPayload `json:"features"`
}

type effectiveViewPayload struct {
	Dashboards []dashboardViewPayload `json:"dashboards"`
}

func toDashboardViewPayload(dv DashboardView) dashboardViewPayload {
	out := dashboardViewPayload{
		ID:       dv.Dashboard.ID,
		Slug:     dv.Dashboard.Slug,
		Name:     dv.Dashboard.Name,
		Icon:     dv.Dashboard.Icon,
		Features: make([]featureViewPayload, 0, len(dv.Features)),
	}
	for _, fv := range dv.Features {
		out.Features = append(out.Features, featureViewPayload{
			ID:         fv.Feature.ID,
			Key:        fv.Feature.Key,
			Name:       fv.Feature.Name,
			Component:  fv.Feature.Component,
			Icon:       fv.Feature.Icon,
			OrderIndex: fv.Feature.OrderIndex,
			CanView:    fv.Capabilities.View,
			CanCreate:  fv.Capabilities.Create,
			CanEdit:    fv.Capabilities.Edit,
			CanDelete:  fv.Capabilities.Delete,
			CanExport:  fv.Capabilities.Export,
		})
	}
	return out
}

func (h *Handler) effectiveView(w http.ResponseWriter, r *http.Request) {
	admin := shared.IdentityFromContext(r.Context())
	if admin == nil {
		httpx.RespondError(w, h.logger, shared.ErrAuthentication)
		return
	}
	view, err := h.service.GetEffectiveView(r.Context(), *admin)
	if err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	out := effectiveViewPayload{Dashboards: make([]dashboardViewPayload, 0, len(view.Dashboards))}
	for _, dv := range view.Dashboards {
		out.Dashboards = append(out.Dashboards, toDashboardViewPayload(dv))
	}
	httpx.JSON(w, http.StatusOK, out)
}

func (h *Handler) dashboardDetail(w http.ResponseWriter, r *http.Request) {
	admin := shared.IdentityFromContext(r.Context())
	if admin == nil {
		httpx.RespondError(w, h.logger, shared.ErrAuthentication)
		return
	}
	dv, err := h.service.GetDashboardDetail(r.Context(), *admin, chi.URLParam(r, "slug"))
	if err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	httpx.JSON(w, http.StatusOK, toDashboardViewPayload(dv))
}

func (h *Handler) checkCapability(w http.ResponseWriter, r *http.Request) {
	admin := shared.IdentityFromContext(r.Context())
	if admin == nil {
		httpx.RespondError(w, h.logger, shared.ErrAuthentication)
		return
	}
	featureID, err := strconv.ParseInt(chi.URLParam(r, "featureID"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid feature id")
		return
	}
	verb, err := grants.ParseVerb(chi.URLParam(r, "verb"))
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "unknown verb")
		return
	}
	allowed, err := h.service.CheckCapability(r.Context(), *admin, featureID, verb)
	if err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]bool{"allowed": allowed})
}
