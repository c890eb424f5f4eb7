package authz

// Evaluator answers permission questions for immutable profiles. Geographic
// refinements delegate to the resolver, so both views of a profile always
// agree on one hierarchy snapshot.
type Evaluator struct {
	resolver *Resolver
}

// NewEvaluator constructs an Evaluator over the given resolver.
func NewEvaluator(r *Resolver) *Evaluator {
	return &Evaluator{resolver: r}
}

// Resolver exposes the geographic half of the engine.
func (e *Evaluator) Resolver() *Resolver { return e.resolver }

// HasPermission reports whether the profile holds the permission. Dev
// profiles bypass every check; otherwise a grant matches exactly, through
// the universal wildcard, or through a department-wide wildcard.
func (e *Evaluator) HasPermission(p *UserAccessProfile, permission string) bool {
	if p == nil {
		return false
	}
	if p.IsDev {
		return true
	}
	if _, ok := p.Permissions[Wildcard]; ok {
		return true
	}
	if _, ok := p.Permissions[permission]; ok {
		// Still subject to grammar: an unparseable string grants nothing
		// even when present verbatim in the grant set.
		if _, valid := ParsePermission(permission); valid {
			return true
		}
	}
	for granted := range p.Permissions {
		if Matches(granted, permission) {
			return true
		}
	}
	return false
}

// HasPermissionAt is HasPermission further restricted to a geographic
// reference. The dev bypass applies before the geographic check, so a dev
// profile passes even for an out-of-scope location.
func (e *Evaluator) HasPermissionAt(p *UserAccessProfile, permission string, geo GeoRef) bool {
	if p != nil && p.IsDev {
		return true
	}
	if !e.HasPermission(p, permission) {
		return false
	}
	return e.resolver.CanAccess(p, geo)
}

// HasAnyPermission reports whether at least one of the permissions is held.
// An empty list holds nothing and denies.
func (e *Evaluator) HasAnyPermission(p *UserAccessProfile, permissions []string) bool {
	for _, perm := range permissions {
		if e.HasPermission(p, perm) {
			return true
		}
	}
	return false
}

// HasAllPermissions reports whether every permission is held. An empty list
// is vacuously true.
func (e *Evaluator) HasAllPermissions(p *UserAccessProfile, permissions []string) bool {
	for _, perm := range permissions {
		if !e.HasPermission(p, perm) {
			return false
		}
	}
	return true
}

// HasAuthorityLevel reports whether the profile's rank satisfies the
// requested rank. Unknown rank names deny.
func (e *Evaluator) HasAuthorityLevel(p *UserAccessProfile, requested AuthorityRank) bool {
	if p == nil {
		return false
	}
	if p.IsDev {
		return true
	}
	return p.Authority.AtLeast(requested)
}

// WorksInDepartment reports department membership. Dev profiles belong
// everywhere.
func (e *Evaluator) WorksInDepartment(p *UserAccessProfile, dept Department) bool {
	if p == nil {
		return false
	}
	if p.IsDev {
		return true
	}
	return p.InDepartment(dept)
}
