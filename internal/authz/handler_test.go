package authz_test

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"

	"github.com/yont-erp/yont-erp/internal/authz"
	"github.com/yont-erp/yont-erp/internal/shared"
	_ "github.com/yont-erp/yont-erp/testing"
)

type stubProfiles struct {
	profile *authz.UserAccessProfile
	err     error
}

func (s *stubProfiles) ProfileFor(ctx context.Context, userID int64) (*authz.UserAccessProfile, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.profile, nil
}

func newTestRouter(t *testing.T, profiles authz.ProfileSource) (chi.Router, *authz.Engine) {
	t.Helper()
	hierarchy, _ := authz.NewHierarchy(
		[]authz.Province{{ID: "NMA", Name: "นครราชสีมา"}, {ID: "KKN", Name: "ขอนแก่น"}},
		[]authz.Branch{
			{Code: "0450", Name: "ปากช่อง", ProvinceID: "NMA"},
			{Code: "0520", Name: "เมืองขอนแก่น", ProvinceID: "KKN"},
		},
	)
	engine := authz.NewEngine(hierarchy)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	handler := authz.NewHandler(logger, engine, profiles, nil)
	router := chi.NewRouter()
	handler.MountRoutes(router)
	return router, engine
}

func testProfile(t *testing.T) *authz.UserAccessProfile {
	t.Helper()
	p, err := authz.BuildProfile(authz.RawUserRecord{
		UserID:           101,
		Authority:        "BRANCH",
		Departments:      []string{"sales"},
		Permissions:      []string{"sales.view", "sales.create"},
		AllowedProvinces: []string{"NMA"},
		AllowedBranches:  []string{"0450"},
		HomeProvince:     "NMA",
		HomeBranch:       "0450",
		IsActive:         true,
	})
	if err != nil {
		t.Fatalf("BuildProfile: %v", err)
	}
	return p
}

func doRequest(router chi.Router, method, target, body string, userID int64) *httptest.ResponseRecorder {
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, reader)
	if userID > 0 {
		req = req.WithContext(shared.ContextWithActor(req.Context(), shared.Actor{UserID: userID}))
	}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestCheckEndpoint(t *testing.T) {
	router, _ := newTestRouter(t, &stubProfiles{profile: testProfile(t)})

	rec := doRequest(router, http.MethodPost, "/check", `{"permission":"sales.view"}`, 101)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d body = %s", rec.Code, rec.Body.String())
	}
	var decision authz.Decision
	if err := json.Unmarshal(rec.Body.Bytes(), &decision); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if !decision.Allowed || decision.Reason != authz.ReasonOK {
		t.Fatalf("decision = %+v", decision)
	}

	rec = doRequest(router, http.MethodPost, "/check", `{"permission":"accounting.view"}`, 101)
	if err := json.Unmarshal(rec.Body.Bytes(), &decision); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if decision.Allowed || decision.Reason != authz.ReasonPermission {
		t.Fatalf("decision = %+v", decision)
	}
}

func TestCheckEndpointValidation(t *testing.T) {
	router, _ := newTestRouter(t, &stubProfiles{profile: testProfile(t)})

	rec := doRequest(router, http.MethodPost, "/check", `{"authority":"SUPERVISOR"}`, 101)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}

	rec = doRequest(router, http.MethodPost, "/check", `not json`, 101)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestCheckEndpointRequiresActor(t *testing.T) {
	router, _ := newTestRouter(t, &stubProfiles{profile: testProfile(t)})
	rec := doRequest(router, http.MethodPost, "/check", `{"permission":"sales.view"}`, 0)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", rec.Code)
	}
}

func TestCheckEndpointProfileError(t *testing.T) {
	router, _ := newTestRouter(t, &stubProfiles{err: shared.ErrNotFound})
	rec := doRequest(router, http.MethodPost, "/check", `{"permission":"sales.view"}`, 101)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
}

func TestMenuEndpoint(t *testing.T) {
	router, _ := newTestRouter(t, &stubProfiles{profile: testProfile(t)})

	body := `{"items":[
		{"key":"sales","to":"/sales","permission":"sales.view"},
		{"key":"accounting","to":"/accounting","permission":"accounting.view"}
	]}`
	rec := doRequest(router, http.MethodPost, "/menu", body, 101)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d body = %s", rec.Code, rec.Body.String())
	}
	var resp struct {
		Items []authz.MenuNode `json:"items"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(resp.Items) != 1 || resp.Items[0].Key != "sales" {
		t.Fatalf("items = %+v", resp.Items)
	}
}

func TestEnhanceEndpoint(t *testing.T) {
	router, _ := newTestRouter(t, &stubProfiles{profile: testProfile(t)})

	rec := doRequest(router, http.MethodPost, "/enhance", `{"selection":{},"payload":{}}`, 101)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d body = %s", rec.Code, rec.Body.String())
	}
	var sub authz.Submission
	if err := json.Unmarshal(rec.Body.Bytes(), &sub); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if sub.ProvinceID != "NMA" || sub.BranchCode != "0450" {
		t.Fatalf("submission = %+v", sub)
	}
}

func TestListPermissionsEndpoint(t *testing.T) {
	router, _ := newTestRouter(t, &stubProfiles{profile: testProfile(t)})

	rec := doRequest(router, http.MethodGet, "/permissions", "", 101)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var groups []struct {
		Department string   `json:"department"`
		Scopes     []string `json:"scopes"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &groups); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(groups) != len(authz.Departments()) {
		t.Fatalf("expected %d groups got %d", len(authz.Departments()), len(groups))
	}
}

func TestQueryFiltersEndpoint(t *testing.T) {
	router, _ := newTestRouter(t, &stubProfiles{profile: testProfile(t)})

	rec := doRequest(router, http.MethodGet, "/query-filters", "", 101)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var filters map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &filters); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if filters[authz.QueryFieldProvince] != "NMA" || filters[authz.QueryFieldBranch] != "0450" {
		t.Fatalf("filters = %v", filters)
	}
}

func TestRequireAuthorityMiddleware(t *testing.T) {
	hierarchy, _ := authz.NewHierarchy([]authz.Province{{ID: "NMA"}}, nil)
	engine := authz.NewEngine(hierarchy)
	mw := authz.Middleware{Engine: engine, Profiles: &stubProfiles{profile: testProfile(t)}}

	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})

	handler := mw.RequireAuthority(authz.RankBranch)(next)
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req = req.WithContext(shared.ContextWithActor(req.Context(), shared.Actor{UserID: 101}))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("status = %d, want 204", rec.Code)
	}

	handler = mw.RequireAuthority(authz.RankAdmin)(next)
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusForbidden {
		t.Fatalf("status = %d, want 403", rec.Code)
	}

	// No actor on the request at all.
	handler = mw.RequireAuthority(authz.RankDepartment)(next)
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	if rec.Code != http.StatusForbidden {
		t.Fatalf("status = %d, want 403", rec.Code)
	}
}

func TestRequireAnyMiddleware(t *testing.T) {
	hierarchy, _ := authz.NewHierarchy([]authz.Province{{ID: "NMA"}}, nil)
	engine := authz.NewEngine(hierarchy)
	mw := authz.Middleware{Engine: engine, Profiles: &stubProfiles{profile: testProfile(t)}}

	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req = req.WithContext(shared.ContextWithActor(req.Context(), shared.Actor{UserID: 101}))

	rec := httptest.NewRecorder()
	mw.RequireAny("sales.view", "accounting.view")(next).ServeHTTP(rec, req)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("status = %d, want 204", rec.Code)
	}

	rec = httptest.NewRecorder()
	mw.RequireAll("sales.view", "accounting.view")(next).ServeHTTP(rec, req)
	if rec.Code != http.StatusForbidden {
		t.Fatalf("status = %d, want 403", rec.Code)
	}
}
