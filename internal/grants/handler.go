package grants

import (
	"log/slog"
	"net/http"
	"sort"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/lumina-hr/lumina-backoffice/internal/platform/httpx"
	"github.com/lumina-hr/lumina-backoffice/internal/shared"
)

// Handler serves grant administration endpoints. The superadmin guard is
// mounted by the router.
type Handler struct {
	logger   *slog.Logger
	service  *Service
	validate *validator.Validate
}

// NewHandler builds Handler instance.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service, validate: validator.New()}
}

// MountRoutes registers grant routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/admins/{adminID}", h.getAdminGrants)
	r.Put("/admins/{adminID}", h.replaceAdminGrants)
	r.Delete("/admins/{adminID}", h.revokeAll)
}

type capabilitiesPayload struct {
	CanView   bool `json:"can_view"`
	CanCreate bool `json:"can_create"`
	CanEdit   bool `json:"can_edit"`
	CanDelete bool `json:"can_delete"`
	CanExport bool `json:"can_export"`
}

func (p capabilitiesPayload) toDomain() Capabilities {
	return Capabilities{
		View:   p.CanView,
		Create: p.CanCreate,
		Edit:   p.CanEdit,
		Delete: p.CanDelete,
		Export: p.CanExport,
	}
}

func toCapabilitiesPayload(c Capabilities) capabilitiesPayload {
	return capabilitiesPayload{
		CanView:   c.View,
		CanCreate: c.Create,
		CanEdit:   c.Edit,
		CanDelete: c.Delete,
		CanExport: c.Export,
	}
}

type replaceGrantsRequest struct {
	DashboardIDs []int64                        `json:"dashboard_ids" validate:"dive,gt=0"`
	Features     map[string]capabilitiesPayload `json:"feature_permissions"`
}

type profileResponse struct {
	DashboardIDs []int64                        `json:"dashboard_ids"`
	Features     map[string]capabilitiesPayload `json:"feature_permissions"`
}

func (h *Handler) getAdminGrants(w http.ResponseWriter, r *http.Request) {
	adminID, ok := h.pathAdminID(w, r)
	if !ok {
		return
	}
	profile, err := h.service.GetAdminGrants(r.Context(), adminID)
	if err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	out := profileResponse{
		DashboardIDs: make([]int64, 0, len(profile.DashboardIDs)),
		Features:     make(map[string]capabilitiesPayload, len(profile.Features)),
	}
	for id := range profile.DashboardIDs {
		out.DashboardIDs = append(out.DashboardIDs, id)
	}
	sort.Slice(out.DashboardIDs, func(i, j int) bool { return out.DashboardIDs[i] < out.DashboardIDs[j] })
	for id, c := range profile.Features {
		out.Features[strconv.FormatInt(id, 10)] = toCapabilitiesPayload(c)
	}
	httpx.JSON(w, http.StatusOK, out)
}

func (h *Handler) replaceAdminGrants(w http.ResponseWriter, r *http.Request) {
	adminID, ok := h.pathAdminID(w, r)
	if !ok {
		return
	}
	var in replaceGrantsRequest
	if err := httpx.DecodeJSON(r, &in); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid JSON body")
		return
	}
	if err := h.validate.Struct(in); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", err.Error())
		return
	}

	features := make(map[int64]Capabilities, len(in.Features))
	for key, payload := range in.Features {
		id, err := strconv.ParseInt(key, 10, 64)
		if err != nil || id <= 0 {
			httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid feature id "+key)
			return
		}
		features[id] = payload.toDomain()
	}

	if err := h.service.ReplaceAdminGrants(r.Context(), h.actorID(r), adminID, in.DashboardIDs, features); err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) revokeAll(w http.ResponseWriter, r *http.Request) {
	adminID, ok := h.pathAdminID(w, r)
	if !ok {
		return
	}
	if err := h.service.RevokeAll(r.Context(), h.actorID(r), adminID); err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) pathAdminID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "adminID"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid admin id")
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
