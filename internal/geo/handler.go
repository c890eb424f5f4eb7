package geo

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/yont-erp/yont-erp/internal/authz"
	"github.com/yont-erp/yont-erp/internal/platform/httpx"
	"github.com/yont-erp/yont-erp/internal/shared"
)

// Handler serves geographic reference listings scoped to the caller's
// accessible set.
type Handler struct {
	logger   *slog.Logger
	engine   *authz.Engine
	profiles authz.ProfileSource
}

// NewHandler constructs a Handler instance.
func NewHandler(logger *slog.Logger, engine *authz.Engine, profiles authz.ProfileSource) *Handler {
	return &Handler{logger: logger, engine: engine, profiles: profiles}
}

// MountRoutes registers geographic reference routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/provinces", h.listProvinces)
	r.Get("/provinces/{id}/branches", h.listBranches)
	r.Get("/branches/{code}", h.getBranch)
}

func (h *Handler) listProvinces(w http.ResponseWriter, r *http.Request) {
	profile, ok := h.currentProfile(w, r)
	if !ok {
		return
	}
	resolver := h.engine.Resolver()
	hierarchy := resolver.Hierarchy()
	scope := resolver.AccessibleProvinces(profile)
	ids := scope.IDs()
	if scope.IsAll() {
		ids = hierarchy.ProvinceIDs()
	}
	httpx.JSON(w, http.StatusOK, SortedProvinces(hierarchy, ids))
}

func (h *Handler) listBranches(w http.ResponseWriter, r *http.Request) {
	profile, ok := h.currentProfile(w, r)
	if !ok {
		return
	}
	provinceID := chi.URLParam(r, "id")
	resolver := h.engine.Resolver()
	if !resolver.CanAccessProvince(profile, provinceID) {
		httpx.Problem(w, http.StatusForbidden, "Forbidden", "province outside accessible scope")
		return
	}
	hierarchy := resolver.Hierarchy()
	codes := hierarchy.BranchesIn(provinceID)
	accessible := codes[:0]
	for _, code := range codes {
		if resolver.CanAccessBranch(profile, code) {
			accessible = append(accessible, code)
		}
	}
	httpx.JSON(w, http.StatusOK, SortedBranches(hierarchy, accessible))
}

func (h *Handler) getBranch(w http.ResponseWriter, r *http.Request) {
	profile, ok := h.currentProfile(w, r)
	if !ok {
		return
	}
	code := chi.URLParam(r, "code")
	resolver := h.engine.Resolver()
	branch, found := resolver.Hierarchy().BranchOf(code)
	if !found || !resolver.CanAccessBranch(profile, code) {
		// Unknown and inaccessible are indistinguishable to the caller.
		httpx.Problem(w, http.StatusNotFound, "Not Found", "no such branch")
		return
	}
	httpx.JSON(w, http.StatusOK, branch)
}

func (h *Handler) currentProfile(w http.ResponseWriter, r *http.Request) (*authz.UserAccessProfile, bool) {
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
