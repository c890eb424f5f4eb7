package authz

import (
	"sort"
	"testing"
)

func TestNewHierarchyExcludesOrphanBranches(t *testing.T) {
	h, orphans := NewHierarchy(
		[]Province{{ID: "NMA"}},
		[]Branch{
			{Code: "0450", ProvinceID: "NMA"},
			{Code: "9999", ProvinceID: "GONE"},
		},
	)
	if len(orphans) != 1 || orphans[0].Code != "9999" {
		t.Fatalf("orphans = %+v", orphans)
	}
	if _, ok := h.BranchOf("9999"); ok {
		t.Fatalf("orphan branch reachable in snapshot")
	}
	if _, ok := h.BranchOf("0450"); !ok {
		t.Fatalf("valid branch missing from snapshot")
	}
}

func TestAccessibleProvinces(t *testing.T) {
	r := testResolver()

	if !r.AccessibleProvinces(adminProfile()).IsAll() {
		t.Fatalf("admin province scope not ALL")
	}
	if r.AccessibleProvinces(nil).Contains("NMA") {
		t.Fatalf("nil profile granted province access")
	}

	branch := branchSalesProfile()
	scope := r.AccessibleProvinces(branch)
	if scope.IsAll() || !scope.Contains("NMA") || scope.Contains("KKN") {
		t.Fatalf("branch user province scope wrong: %+v", scope.IDs())
	}
}

func TestMultiProvinceWidensToAll(t *testing.T) {
	r := testResolver()
	p, err := BuildProfile(RawUserRecord{
		UserID:           5,
		Authority:        "PROVINCE",
		AllowedProvinces: []string{"NMA"},
		MultiProvince:    true,
		IsActive:         true,
	})
	if err != nil {
		t.Fatalf("BuildProfile returned error: %v", err)
	}
	if !r.AccessibleProvinces(p).IsAll() {
		t.Fatalf("multi-province remit did not widen to ALL")
	}
	if !r.AccessibleBranches(p).IsAll() {
		t.Fatalf("branch scope did not follow province ALL")
	}
}

func TestProvinceAllDominatesBranchEnumeration(t *testing.T) {
	r := testResolver()
	p, err := BuildProfile(RawUserRecord{
		UserID:           6,
		Authority:        "PROVINCE",
		AllowedProvinces: []string{"ALL"},
		AllowedBranches:  []string{"0450"},
		IsActive:         true,
	})
	if err != nil {
		t.Fatalf("BuildProfile returned error: %v", err)
	}
	branches := r.AccessibleBranches(p)
	if !branches.IsAll() {
		t.Fatalf("province ALL did not dominate the branch enumeration")
	}
	if !r.CanAccessBranch(p, "0520") {
		t.Fatalf("branch outside the enumeration denied under province ALL")
	}
}

func TestBranchAllEnumeratesWithinProvinces(t *testing.T) {
	r := testResolver()
	p, err := BuildProfile(RawUserRecord{
		UserID:           7,
		Authority:        "PROVINCE",
		AllowedProvinces: []string{"NMA"},
		AllowedBranches:  []string{"*"},
		IsActive:         true,
	})
	if err != nil {
		t.Fatalf("BuildProfile returned error: %v", err)
	}
	branches := r.AccessibleBranches(p)
	if branches.IsAll() {
		t.Fatalf("branch scope escaped the province restriction")
	}
	codes := branches.IDs()
	sort.Strings(codes)
	if len(codes) != 2 || codes[0] != "0450" || codes[1] != "0451" {
		t.Fatalf("accessible branches = %v", codes)
	}
}

func TestBranchGrantOutsideProvinceScopeIsUnreachable(t *testing.T) {
	r := testResolver()
	p, err := BuildProfile(RawUserRecord{
		UserID:           8,
		Authority:        "BRANCH",
		AllowedProvinces: []string{"NMA"},
		AllowedBranches:  []string{"0450", "0520"},
		IsActive:         true,
	})
	if err != nil {
		t.Fatalf("BuildProfile returned error: %v", err)
	}
	if r.CanAccessBranch(p, "0520") {
		t.Fatalf("branch reachable without its province")
	}
	if !r.CanAccessBranch(p, "0450") {
		t.Fatalf("in-scope branch denied")
	}
}

func TestCanAccessBranchImpliesProvince(t *testing.T) {
	r := testResolver()
	p := branchSalesProfile()
	for _, code := range r.AccessibleBranches(p).IDs() {
		provinceID, ok := r.Hierarchy().ProvinceOf(code)
		if !ok {
			t.Fatalf("accessible branch %q has no province", code)
		}
		if !r.CanAccessProvince(p, provinceID) {
			t.Fatalf("branch %q accessible without province %q", code, provinceID)
		}
	}
}

func TestCanAccessBranchUnknownDenies(t *testing.T) {
	r := testResolver()
	if r.CanAccessBranch(adminProfile(), "7777") {
		t.Fatalf("unknown branch granted")
	}
}

func TestCanAccessGeoRef(t *testing.T) {
	r := testResolver()
	p := branchSalesProfile()
	if !r.CanAccess(p, GeoRef{}) {
		t.Fatalf("empty reference denied")
	}
	if !r.CanAccess(p, GeoRef{ProvinceID: "NMA", BranchCode: "0450"}) {
		t.Fatalf("in-scope reference denied")
	}
	if r.CanAccess(p, GeoRef{ProvinceID: "NMA", BranchCode: "0520"}) {
		t.Fatalf("out-of-scope branch granted")
	}
	if r.CanAccess(p, GeoRef{ProvinceID: "KKN"}) {
		t.Fatalf("out-of-scope province granted")
	}
}

type geoRecord struct {
	id       string
	province string
	branch   string
}

func geoRecordFields(r geoRecord) GeoFields {
	return GeoFields{Province: r.province, Branch: r.branch}
}

func TestFilterByAccess(t *testing.T) {
	r := testResolver()
	p := branchSalesProfile()
	records := []geoRecord{
		{id: "a", province: "NMA", branch: "0450"},
		{id: "b", province: "NMA", branch: "0451"},
		{id: "c", province: "KKN", branch: "0520"},
		{id: "d", province: "NMA"},
		{id: "e", branch: "0450"},
		{id: "f"},
	}
	got := FilterByAccess(r, p, records, geoRecordFields)
	want := []string{"a", "d", "e"}
	if len(got) != len(want) {
		t.Fatalf("filtered %d records, want %d: %+v", len(got), len(want), got)
	}
	for i, rec := range got {
		if rec.id != want[i] {
			t.Fatalf("record %d = %q, want %q", i, rec.id, want[i])
		}
	}

	// Filtering an already-filtered set changes nothing.
	again := FilterByAccess(r, p, got, geoRecordFields)
	if len(again) != len(got) {
		t.Fatalf("filter not idempotent: %d then %d", len(got), len(again))
	}
}

func TestFilterByAccessAdminKeepsTaggedRecords(t *testing.T) {
	r := testResolver()
	records := []geoRecord{
		{id: "a", province: "NMA", branch: "0450"},
		{id: "b"},
	}
	got := FilterByAccess(r, adminProfile(), records, geoRecordFields)
	if len(got) != 1 || got[0].id != "a" {
		t.Fatalf("admin filter = %+v", got)
	}
}

func TestEnhanceForSubmission(t *testing.T) {
	r := testResolver()
	p := branchSalesProfile()

	// Empty payload: explicit selection wins over the home location.
	sub := r.EnhanceForSubmission(p, Selection{Province: "KKN", Branch: "0520"}, Submission{}, false)
	if sub.ProvinceID != "KKN" || sub.BranchCode != "0520" {
		t.Fatalf("selection not applied: %+v", sub)
	}

	// No selection: home location fills the gaps.
	sub = r.EnhanceForSubmission(p, Selection{}, Submission{}, false)
	if sub.ProvinceID != "NMA" || sub.BranchCode != "0450" {
		t.Fatalf("home location not applied: %+v", sub)
	}

	// A pre-set field is preserved, even against a conflicting selection.
	sub = r.EnhanceForSubmission(p, Selection{Province: "KKN"}, Submission{ProvinceID: "BKK"}, false)
	if sub.ProvinceID != "BKK" {
		t.Fatalf("explicit payload value overwritten: %+v", sub)
	}

	// Override replaces pre-set fields with the selection.
	sub = r.EnhanceForSubmission(p, Selection{Province: "KKN"}, Submission{ProvinceID: "BKK"}, true)
	if sub.ProvinceID != "KKN" {
		t.Fatalf("override did not apply selection: %+v", sub)
	}

	// Nil profile with no selection leaves the payload untouched.
	sub = r.EnhanceForSubmission(nil, Selection{}, Submission{}, false)
	if sub.ProvinceID != "" || sub.BranchCode != "" {
		t.Fatalf("fields invented from nothing: %+v", sub)
	}
}

func TestQueryFilters(t *testing.T) {
	r := testResolver()
	p := branchSalesProfile()

	// Single-element scopes collapse to equality filters.
	filters := r.QueryFilters(p, Selection{})
	if filters[QueryFieldProvince] != "NMA" || filters[QueryFieldBranch] != "0450" {
		t.Fatalf("filters = %v", filters)
	}

	// An accessible explicit selection is passed through.
	filters = r.QueryFilters(p, Selection{Province: "NMA", Branch: "0450"})
	if filters[QueryFieldProvince] != "NMA" || filters[QueryFieldBranch] != "0450" {
		t.Fatalf("filters = %v", filters)
	}

	// An inaccessible selection contributes nothing.
	filters = r.QueryFilters(p, Selection{Province: "KKN"})
	if _, ok := filters[QueryFieldProvince]; ok {
		t.Fatalf("inaccessible selection produced a filter: %v", filters)
	}

	// Broad scopes produce no filters; callers fetch and filter client-side.
	filters = r.QueryFilters(adminProfile(), Selection{})
	if len(filters) != 0 {
		t.Fatalf("ALL scope produced filters: %v", filters)
	}
}
