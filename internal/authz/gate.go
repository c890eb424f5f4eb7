package authz

// Constraints declares the access requirements for one UI surface. Only the
// fields actually present are checked; absent fields are vacuously
// satisfied, and all present checks are AND-ed.
type Constraints struct {
	Permission string   `json:"permission,omitempty"`
	AnyOf      []string `json:"anyOf,omitempty"`
	AllOf      []string `json:"allOf,omitempty"`

	Authority  AuthorityRank `json:"authority,omitempty"`
	Department Department    `json:"department,omitempty"`
	Geography  *GeoRef       `json:"geographic,omitempty"`
}

// Deny reason tags. Advisory only: callers may log or display them but must
// never branch on them.
const (
	ReasonOK         = "ok"
	ReasonNoProfile  = "no_profile"
	ReasonInactive   = "inactive"
	ReasonPermission = "permission"
	ReasonAnyOf      = "any_of"
	ReasonAllOf      = "all_of"
	ReasonAuthority  = "authority"
	ReasonDepartment = "department"
	ReasonGeography  = "geography"
)

// Decision is the outcome of a gate evaluation.
type Decision struct {
	Allowed bool   `json:"allowed"`
	Reason  string `json:"reason,omitempty"`
}

func deny(reason string) Decision { return Decision{Allowed: false, Reason: reason} }
func allow() Decision             { return Decision{Allowed: true, Reason: ReasonOK} }

// Gate composes evaluator and resolver checks into one declarative
// decision. It is stateless; callers that want caching wrap it in a
// CachedGate keyed on the profile version.
type Gate struct {
	eval *Evaluator
}

// NewGate constructs a Gate over the given evaluator.
func NewGate(e *Evaluator) *Gate {
	return &Gate{eval: e}
}

// Evaluate checks every present constraint against the profile. Inactive
// profiles are denied outright unless flagged as dev.
func (g *Gate) Evaluate(p *UserAccessProfile, c Constraints) Decision {
	if p == nil {
		return deny(ReasonNoProfile)
	}
	if !p.IsActive && !p.IsDev {
		return deny(ReasonInactive)
	}
	if c.Permission != "" && !g.eval.HasPermission(p, c.Permission) {
		return deny(ReasonPermission)
	}
	if len(c.AnyOf) > 0 && !g.eval.HasAnyPermission(p, c.AnyOf) {
		return deny(ReasonAnyOf)
	}
	if len(c.AllOf) > 0 && !g.eval.HasAllPermissions(p, c.AllOf) {
		return deny(ReasonAllOf)
	}
	if c.Authority != "" && !g.eval.HasAuthorityLevel(p, c.Authority) {
		return deny(ReasonAuthority)
	}
	if c.Department != "" && !g.eval.WorksInDepartment(p, c.Department) {
		return deny(ReasonDepartment)
	}
	if c.Geography != nil && !c.Geography.Empty() && !p.IsDev {
		if !g.eval.Resolver().CanAccess(p, *c.Geography) {
			return deny(ReasonGeography)
		}
	}
	return allow()
}
