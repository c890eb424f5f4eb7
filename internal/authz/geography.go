package authz

// Province is a geographic reference node.
type Province struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Branch is a geographic reference node. Every branch belongs to exactly one
// province.
type Branch struct {
	Code       string `json:"code"`
	Name       string `json:"name"`
	ProvinceID string `json:"provinceId"`
}

// Hierarchy is an immutable province-to-branch containment snapshot. A
// replacement snapshot is a new value; the engine never patches one in
// place.
type Hierarchy struct {
	provinces  map[string]Province
	branches   map[string]Branch
	byProvince map[string][]string
}

// NewHierarchy builds a snapshot from reference rows. Branches that point at
// an unknown province are excluded from the snapshot and returned so the
// caller can log them once; they are unreachable for every profile.
func NewHierarchy(provinces []Province, branches []Branch) (Hierarchy, []Branch) {
	h := Hierarchy{
		provinces:  make(map[string]Province, len(provinces)),
		branches:   make(map[string]Branch, len(branches)),
		byProvince: make(map[string][]string, len(provinces)),
	}
	for _, p := range provinces {
		if p.ID == "" {
			continue
		}
		h.provinces[p.ID] = p
	}
	var orphans []Branch
	for _, b := range branches {
		if b.Code == "" {
			continue
		}
		if _, ok := h.provinces[b.ProvinceID]; !ok {
			orphans = append(orphans, b)
			continue
		}
		h.branches[b.Code] = b
		h.byProvince[b.ProvinceID] = append(h.byProvince[b.ProvinceID], b.Code)
	}
	return h, orphans
}

// BranchOf looks up a branch by code.
func (h Hierarchy) BranchOf(code string) (Branch, bool) {
	b, ok := h.branches[code]
	return b, ok
}

// ProvinceOf returns the owning province of a branch. A missing branch means
// "no such location" and propagates to a deny decision, never an error.
func (h Hierarchy) ProvinceOf(code string) (string, bool) {
	b, ok := h.branches[code]
	if !ok {
		return "", false
	}
	return b.ProvinceID, true
}

// Province looks up a province by id.
func (h Hierarchy) Province(id string) (Province, bool) {
	p, ok := h.provinces[id]
	return p, ok
}

// ProvinceIDs returns every province id in the snapshot.
func (h Hierarchy) ProvinceIDs() []string {
	ids := make([]string, 0, len(h.provinces))
	for id := range h.provinces {
		ids = append(ids, id)
	}
	return ids
}

// BranchesIn returns the branch codes contained in a province.
func (h Hierarchy) BranchesIn(provinceID string) []string {
	codes := h.byProvince[provinceID]
	out := make([]string, len(codes))
	copy(out, codes)
	return out
}

// GeoRef narrows a check to a province and/or branch.
type GeoRef struct {
	ProvinceID string `json:"provinceId,omitempty"`
	BranchCode string `json:"branchCode,omitempty"`
}

// Empty reports whether the reference carries no constraint.
func (g GeoRef) Empty() bool { return g.ProvinceID == "" && g.BranchCode == "" }

// GeoFields are the geographic attributes extracted from a data record by a
// caller-supplied accessor. The engine assumes nothing else about record
// shape.
type GeoFields struct {
	Province string
	Branch   string
}

// Selection is an explicit geographic choice made in the UI.
type Selection struct {
	Province string `json:"province,omitempty"`
	Branch   string `json:"branch,omitempty"`
}

// Submission carries the geographic fields stamped onto outbound writes.
type Submission struct {
	ProvinceID string `json:"provinceId,omitempty"`
	BranchCode string `json:"branchCode,omitempty"`
}

// Resolver computes accessible province/branch sets against one hierarchy
// snapshot. All methods are pure; two calls with the same profile and
// snapshot always agree.
type Resolver struct {
	hierarchy Hierarchy
}

// NewResolver constructs a Resolver over an immutable hierarchy snapshot.
func NewResolver(h Hierarchy) *Resolver {
	return &Resolver{hierarchy: h}
}

// Hierarchy returns the snapshot the resolver was built over.
func (r *Resolver) Hierarchy() Hierarchy { return r.hierarchy }

// AccessibleProvinces resolves the province scope. ADMIN rank and the
// multi-province PROVINCE remit widen the scope to ALL regardless of the
// enumerated grants.
func (r *Resolver) AccessibleProvinces(p *UserAccessProfile) Scope {
	if p == nil {
		return Scope{}
	}
	if p.AllowedProvinces.IsAll() {
		return ScopeAll()
	}
	if p.Authority == RankAdmin {
		return ScopeAll()
	}
	if p.Authority == RankProvince && p.MultiProvince {
		return ScopeAll()
	}
	return p.AllowedProvinces
}

// AccessibleBranches resolves the branch scope. Province-level full access
// dominates: an ALL province scope yields an ALL branch scope no matter what
// the branch enumeration holds. An enumerated result is closed under the
// province scope, so a branch is never reachable without its province.
func (r *Resolver) AccessibleBranches(p *UserAccessProfile) Scope {
	if p == nil {
		return Scope{}
	}
	provs := r.AccessibleProvinces(p)
	if provs.IsAll() {
		return ScopeAll()
	}
	if p.AllowedBranches.IsAll() {
		// Unrestricted branch grant inside a restricted province set:
		// enumerate the branches of the reachable provinces.
		var codes []string
		for _, id := range provs.IDs() {
			codes = append(codes, r.hierarchy.BranchesIn(id)...)
		}
		return ScopeOf(codes...)
	}
	var codes []string
	for _, code := range p.AllowedBranches.IDs() {
		provinceID, ok := r.hierarchy.ProvinceOf(code)
		if !ok || !provs.Contains(provinceID) {
			continue
		}
		codes = append(codes, code)
	}
	return ScopeOf(codes...)
}

// CanAccessProvince reports whether the profile may act on the province.
func (r *Resolver) CanAccessProvince(p *UserAccessProfile, provinceID string) bool {
	return r.AccessibleProvinces(p).Contains(provinceID)
}

// CanAccessBranch reports whether the profile may act on the branch. The
// province-closure invariant is checked here explicitly: access to a branch
// always implies access to its owning province, and a branch without a known
// province is unreachable.
func (r *Resolver) CanAccessBranch(p *UserAccessProfile, branchCode string) bool {
	if !r.AccessibleBranches(p).Contains(branchCode) {
		return false
	}
	provinceID, ok := r.hierarchy.ProvinceOf(branchCode)
	if !ok {
		return false
	}
	return r.CanAccessProvince(p, provinceID)
}

// CanAccess applies both halves of a geographic reference. An empty
// reference carries no constraint and passes.
func (r *Resolver) CanAccess(p *UserAccessProfile, geo GeoRef) bool {
	if geo.ProvinceID != "" && !r.CanAccessProvince(p, geo.ProvinceID) {
		return false
	}
	if geo.BranchCode != "" && !r.CanAccessBranch(p, geo.BranchCode) {
		return false
	}
	return true
}

// FilterByAccess keeps exactly the records whose geographic fields fall
// inside the profile's accessible sets. A record exposing neither field is
// dropped. The operation is idempotent and never mutates its input.
func FilterByAccess[T any](r *Resolver, p *UserAccessProfile, records []T, fields func(T) GeoFields) []T {
	out := make([]T, 0, len(records))
	for _, rec := range records {
		f := fields(rec)
		if f.Province == "" && f.Branch == "" {
			continue
		}
		if f.Province != "" && !r.CanAccessProvince(p, f.Province) {
			continue
		}
		if f.Branch != "" && !r.CanAccessBranch(p, f.Branch) {
			continue
		}
		out = append(out, rec)
	}
	return out
}

// EnhanceForSubmission fills the geographic fields of an outbound payload
// when they are absent, preferring the explicit UI selection over the
// profile's home location. An already-set field is preserved unless the
// caller passes override, so a conflicting explicit value is never silently
// replaced.
func (r *Resolver) EnhanceForSubmission(p *UserAccessProfile, sel Selection, sub Submission, override bool) Submission {
	if sub.ProvinceID == "" || override {
		switch {
		case sel.Province != "":
			sub.ProvinceID = sel.Province
		case p != nil && p.HomeProvince != "":
			sub.ProvinceID = p.HomeProvince
		}
	}
	if sub.BranchCode == "" || override {
		switch {
		case sel.Branch != "":
			sub.BranchCode = sel.Branch
		case p != nil && p.HomeBranch != "":
			sub.BranchCode = p.HomeBranch
		}
	}
	return sub
}

// Downstream query builder field names.
const (
	QueryFieldProvince = "provinceId"
	QueryFieldBranch   = "branchCode"
)

// QueryFilters returns an equality-filter map for a downstream query builder
// when the effective scope collapses to a single province or branch, or when
// the caller made an explicit accessible selection. Otherwise the map stays
// empty, which signals "fetch broadly and filter client-side with
// FilterByAccess". Backends that cannot run large IN queries rely on this
// degrade policy.
func (r *Resolver) QueryFilters(p *UserAccessProfile, sel Selection) map[string]string {
	filters := make(map[string]string)
	switch {
	case sel.Province != "":
		if r.CanAccessProvince(p, sel.Province) {
			filters[QueryFieldProvince] = sel.Province
		}
	default:
		if id, ok := r.AccessibleProvinces(p).Single(); ok {
			filters[QueryFieldProvince] = id
		}
	}
	switch {
	case sel.Branch != "":
		if r.CanAccessBranch(p, sel.Branch) {
			filters[QueryFieldBranch] = sel.Branch
		}
	default:
		if code, ok := r.AccessibleBranches(p).Single(); ok {
			filters[QueryFieldBranch] = code
		}
	}
	return filters
}
