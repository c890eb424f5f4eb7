package profiles

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/yont-erp/yont-erp/internal/authz"
	"github.com/yont-erp/yont-erp/internal/platform/httpx"
	"github.com/yont-erp/yont-erp/internal/shared"
)

// Handler exposes profile inspection and the demo role switcher.
type Handler struct {
	logger    *slog.Logger
	registry  *Registry
	validator *validator.Validate
}

// NewHandler constructs a Handler instance.
func NewHandler(logger *slog.Logger, registry *Registry) *Handler {
	return &Handler{logger: logger, registry: registry, validator: validator.New()}
}

// MountRoutes registers profile routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/me", h.whoami)
	r.Post("/me/refresh", h.refresh)
	r.Post("/me/switch-role", h.switchRole)
}

// profileView is the outward shape of a profile. Grant internals are not
// echoed verbatim; callers get the resolved facts they can act on.
type profileView struct {
	UserID      int64    `json:"userId"`
	Version     string   `json:"version"`
	Authority   string   `json:"authority"`
	Departments []string `json:"departments"`
	Permissions []string `json:"permissions"`

	AllProvinces bool     `json:"allProvinces"`
	Provinces    []string `json:"provinces,omitempty"`
	AllBranches  bool     `json:"allBranches"`
	Branches     []string `json:"branches,omitempty"`

	HomeProvince string `json:"homeProvince,omitempty"`
	HomeBranch   string `json:"homeBranch,omitempty"`

	IsActive bool `json:"isActive"`
	IsDev    bool `json:"isDev"`
}

func viewOf(p *authz.UserAccessProfile) profileView {
	v := profileView{
		UserID:       p.UserID,
		Version:      p.Version.String(),
		Authority:    string(p.Authority),
		Departments:  make([]string, 0, len(p.Departments)),
		Permissions:  make([]string, 0, len(p.Permissions)),
		AllProvinces: p.AllowedProvinces.IsAll(),
		Provinces:    p.AllowedProvinces.IDs(),
		AllBranches:  p.AllowedBranches.IsAll(),
		Branches:     p.AllowedBranches.IDs(),
		HomeProvince: p.HomeProvince,
		HomeBranch:   p.HomeBranch,
		IsActive:     p.IsActive,
		IsDev:        p.IsDev,
	}
	for dept := range p.Departments {
		v.Departments = append(v.Departments, string(dept))
	}
	for perm := range p.Permissions {
		v.Permissions = append(v.Permissions, perm)
	}
	return v
}

func (h *Handler) whoami(w http.ResponseWriter, r *http.Request) {
	profile, ok := h.currentProfile(w, r)
	if !ok {
		return
	}
	httpx.JSON(w, http.StatusOK, viewOf(profile))
}

func (h *Handler) refresh(w http.ResponseWriter, r *http.Request) {
	actor, ok := shared.ActorFromContext(r.Context())
	if !ok || actor.UserID <= 0 {
		httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "request carries no resolved identity")
		return
	}
	profile, err := h.registry.Replace(r.Context(), actor.UserID)
	if err != nil {
		h.logger.Error("replace profile", slog.Int64("user_id", actor.UserID), slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, viewOf(profile))
}

type switchRoleRequest struct {
	Role string `json:"role" validate:"required,max=64"`
}

// switchRole simulates another role for demo and testing. Only dev profiles
// may switch; the simulated profile itself loses the dev bypass so the
// simulation behaves like the real role.
func (h *Handler) switchRole(w http.ResponseWriter, r *http.Request) {
	profile, ok := h.currentProfile(w, r)
	if !ok {
		return
	}
	if !profile.IsDev {
		httpx.Problem(w, http.StatusForbidden, "Forbidden", "role switching is a dev-only feature")
		return
	}
	var req switchRoleRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Body", "request body must be valid JSON")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	switched, err := h.registry.SwitchRole(r.Context(), profile.UserID, req.Role)
	if err != nil {
		h.logger.Error("switch role", slog.Int64("user_id", profile.UserID), slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, viewOf(switched))
}

func (h *Handler) currentProfile(w http.ResponseWriter, r *http.Request) (*authz.UserAccessProfile, bool) {
	actor, ok := shared.ActorFromContext(r.Context())
	if !ok || actor.UserID <= 0 {
		httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "request carries no resolved identity")
		return nil, false
	}
	profile, err := h.registry.ProfileFor(r.Context(), actor.UserID)
	if err != nil {
		h.logger.Error("resolve profile", slog.Int64("user_id", actor.UserID), slog.Any("error", err))
		httpx.RespondError(w, err)
		return nil, false
	}
	return profile, true
}
