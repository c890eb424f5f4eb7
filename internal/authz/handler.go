package authz

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/yont-erp/yont-erp/internal/observability"
	"github.com/yont-erp/yont-erp/internal/platform/httpx"
	"github.com/yont-erp/yont-erp/internal/shared"
)

// Handler exposes the permission engine over HTTP for UI-layer callers.
type Handler struct {
	logger    *slog.Logger
	engine    *Engine
	profiles  ProfileSource
	validator *validator.Validate
	metrics   *observability.Metrics
}

// NewHandler constructs a Handler instance.
func NewHandler(logger *slog.Logger, engine *Engine, profiles ProfileSource, metrics *observability.Metrics) *Handler {
	return &Handler{
		logger:    logger,
		engine:    engine,
		profiles:  profiles,
		validator: validator.New(),
		metrics:   metrics,
	}
}

// MountRoutes registers authorization routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Post("/check", h.check)
	r.Post("/menu", h.filterMenu)
	r.Post("/enhance", h.enhance)
	r.Get("/permissions", h.listPermissions)
	r.Get("/query-filters", h.queryFilters)
}

type checkRequest struct {
	Permission string   `json:"permission,omitempty" validate:"omitempty,max=128"`
	AnyOf      []string `json:"anyOf,omitempty" validate:"omitempty,max=32,dive,max=128"`
	AllOf      []string `json:"allOf,omitempty" validate:"omitempty,max=32,dive,max=128"`
	Authority  string   `json:"authority,omitempty" validate:"omitempty,oneof=ADMIN PROVINCE BRANCH DEPARTMENT"`
	Department string   `json:"department,omitempty" validate:"omitempty,max=64"`
	Geography  *GeoRef  `json:"geographic,omitempty"`
}

func (h *Handler) check(w http.ResponseWriter, r *http.Request) {
	profile, ok := h.currentProfile(w, r)
	if !ok {
		return
	}
	var req checkRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Body", "request body must be valid JSON")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	decision := h.engine.CachedGate().Evaluate(profile, Constraints{
		Permission: req.Permission,
		AnyOf:      req.AnyOf,
		AllOf:      req.AllOf,
		Authority:  AuthorityRank(req.Authority),
		Department: Department(req.Department),
		Geography:  req.Geography,
	})
	h.metrics.RecordDecision(decision.Allowed, decision.Reason)
	httpx.JSON(w, http.StatusOK, decision)
}

type menuRequest struct {
	Items []MenuNode `json:"items" validate:"required"`
}

type menuResponse struct {
	Items []MenuNode `json:"items"`
}

func (h *Handler) filterMenu(w http.ResponseWriter, r *http.Request) {
	profile, ok := h.currentProfile(w, r)
	if !ok {
		return
	}
	var req menuRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Body", "request body must be valid JSON")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	filtered := h.engine.Evaluator().FilterTree(profile, req.Items)
	if filtered == nil {
		filtered = []MenuNode{}
	}
	httpx.JSON(w, http.StatusOK, menuResponse{Items: filtered})
}

type enhanceRequest struct {
	Selection Selection  `json:"selection"`
	Payload   Submission `json:"payload"`
	Override  bool       `json:"override,omitempty"`
}

func (h *Handler) enhance(w http.ResponseWriter, r *http.Request) {
	profile, ok := h.currentProfile(w, r)
	if !ok {
		return
	}
	var req enhanceRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Body", "request body must be valid JSON")
		return
	}
	enhanced := h.engine.Resolver().EnhanceForSubmission(profile, req.Selection, req.Payload, req.Override)
	httpx.JSON(w, http.StatusOK, enhanced)
}

type permissionGroup struct {
	Department Department `json:"department"`
	Scopes     []string   `json:"scopes"`
}

func (h *Handler) listPermissions(w http.ResponseWriter, r *http.Request) {
	groups := make([]permissionGroup, 0, len(Departments()))
	for _, dept := range Departments() {
		groups = append(groups, permissionGroup{Department: dept, Scopes: DepartmentScopes(dept)})
	}
	httpx.JSON(w, http.StatusOK, groups)
}

func (h *Handler) queryFilters(w http.ResponseWriter, r *http.Request) {
	profile, ok := h.currentProfile(w, r)
	if !ok {
		return
	}
	sel := Selection{
		Province: r.URL.Query().Get("province"),
		Branch:   r.URL.Query().Get("branch"),
	}
	httpx.JSON(w, http.StatusOK, h.engine.Resolver().QueryFilters(profile, sel))
}

func (h *Handler) currentProfile(w http.ResponseWriter, r *http.Request) (*UserAccessProfile, bool) {
	actor, ok := shared.ActorFromContext(r.Context())
	if !ok || actor.UserID <= 0 {
		httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "request carries no resolved identity")
		return nil, false
	}
	profile, err := h.profiles.ProfileFor(r.Context(), actor.UserID)
	if err != nil {
		h.logger.Error("resolve profile", slog.Int64("user_id", actor.UserID), slog.Any("error", err))
		httpx.RespondError(w, err)
		return nil, false
	}
	return profile, true
}
