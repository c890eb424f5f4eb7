package authz

// MenuNode is one entry in a permission-gated hierarchical structure, such
// as a navigation menu or a nested approval flow. Permission and Permissions
// are alternatives; when Permissions is set it is checked with any-of
// semantics unless RequireAll is set.
type MenuNode struct {
	Key string `json:"key"`
	// To is the node's direct target. A childless node without a target is
	// pruned when HideIfNoChildren is set.
	To string `json:"to,omitempty"`

	Permission  string   `json:"permission,omitempty"`
	Permissions []string `json:"permissions,omitempty"`
	RequireAll  bool     `json:"requireAll,omitempty"`

	MinAuthority AuthorityRank `json:"minAuthority,omitempty"`
	Geography    *GeoRef       `json:"requiredGeography,omitempty"`

	HideIfNoChildren bool `json:"hideIfNoChildren,omitempty"`

	Children []MenuNode `json:"children,omitempty"`
}

// FilterTree prunes a tree bottom-up against the profile, returning a new
// tree; the input is never mutated. A node whose own constraint fails is
// dropped together with its entire subtree, surviving children
// notwithstanding.
func (e *Evaluator) FilterTree(p *UserAccessProfile, nodes []MenuNode) []MenuNode {
	if len(nodes) == 0 {
		return nil
	}
	out := make([]MenuNode, 0, len(nodes))
	for _, node := range nodes {
		surviving := e.FilterTree(p, node.Children)
		if !e.nodeAllowed(p, node) {
			continue
		}
		if len(surviving) == 0 && node.To == "" && node.HideIfNoChildren {
			continue
		}
		copied := node
		copied.Children = surviving
		out = append(out, copied)
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

func (e *Evaluator) nodeAllowed(p *UserAccessProfile, node MenuNode) bool {
	switch {
	case node.Permission != "":
		if !e.HasPermission(p, node.Permission) {
			return false
		}
	case len(node.Permissions) > 0:
		if node.RequireAll {
			if !e.HasAllPermissions(p, node.Permissions) {
				return false
			}
		} else if !e.HasAnyPermission(p, node.Permissions) {
			return false
		}
	}
	if node.MinAuthority != "" && !e.HasAuthorityLevel(p, node.MinAuthority) {
		return false
	}
	if node.Geography != nil && !node.Geography.Empty() {
		if p == nil || !p.IsDev {
			if !e.resolver.CanAccess(p, *node.Geography) {
				return false
			}
		}
	}
	return true
}
