package authz

// Shared fixtures for the engine tests. The hierarchy mirrors a small slice
// of the real reference data: two upcountry provinces plus Bangkok, four
// branches.
func testHierarchy() Hierarchy {
	h, _ := NewHierarchy(
		[]Province{
			{ID: "NMA", Name: "นครราชสีมา"},
			{ID: "KKN", Name: "ขอนแก่น"},
			{ID: "BKK", Name: "กรุงเทพมหานคร"},
		},
		[]Branch{
			{Code: "0450", Name: "ปากช่อง", ProvinceID: "NMA"},
			{Code: "0451", Name: "เมืองนครราชสีมา", ProvinceID: "NMA"},
			{Code: "0520", Name: "เมืองขอนแก่น", ProvinceID: "KKN"},
			{Code: "0101", Name: "ลาดพร้าว", ProvinceID: "BKK"},
		},
	)
	return h
}

func testResolver() *Resolver {
	return NewResolver(testHierarchy())
}

func testEvaluator() *Evaluator {
	return NewEvaluator(testResolver())
}

// branchSalesProfile is a BRANCH-rank sales user confined to one branch of
// one province.
func branchSalesProfile() *UserAccessProfile {
	p, err := BuildProfile(RawUserRecord{
		UserID:           101,
		Authority:        "BRANCH",
		Departments:      []string{"sales"},
		Permissions:      []string{"sales.view", "sales.create", "sales.edit"},
		AllowedProvinces: []string{"NMA"},
		AllowedBranches:  []string{"0450"},
		HomeProvince:     "NMA",
		HomeBranch:       "0450",
		IsActive:         true,
	})
	if err != nil {
		panic(err)
	}
	return p
}

func adminProfile() *UserAccessProfile {
	p, err := BuildProfile(RawUserRecord{UserID: 102, Role: "SUPER_ADMIN", IsActive: true})
	if err != nil {
		panic(err)
	}
	return p
}

func devProfile() *UserAccessProfile {
	p, err := BuildProfile(RawUserRecord{
		UserID:      103,
		Authority:   "DEPARTMENT",
		Departments: []string{"hr"},
		IsActive:    true,
		IsDev:       true,
	})
	if err != nil {
		panic(err)
	}
	return p
}
