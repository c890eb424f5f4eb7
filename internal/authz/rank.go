package authz

// AuthorityRank places a user in the fixed command hierarchy. The order is
// total: ADMIN > PROVINCE > BRANCH > DEPARTMENT.
type AuthorityRank string

const (
	RankAdmin      AuthorityRank = "ADMIN"
	RankProvince   AuthorityRank = "PROVINCE"
	RankBranch     AuthorityRank = "BRANCH"
	RankDepartment AuthorityRank = "DEPARTMENT"
)

// level maps a rank to its position in the order. Unknown ranks map to zero
// and therefore never satisfy any requirement.
func (r AuthorityRank) level() int {
	switch r {
	case RankAdmin:
		return 4
	case RankProvince:
		return 3
	case RankBranch:
		return 2
	case RankDepartment:
		return 1
	}
	return 0
}

// Known reports whether the rank is part of the vocabulary.
func (r AuthorityRank) Known() bool {
	return r.level() > 0
}

// AtLeast reports whether r satisfies the requested rank, meaning r is equal
// or higher in the total order. An unknown rank on either side denies.
func (r AuthorityRank) AtLeast(requested AuthorityRank) bool {
	rl, ql := r.level(), requested.level()
	if rl == 0 || ql == 0 {
		return false
	}
	return rl >= ql
}
