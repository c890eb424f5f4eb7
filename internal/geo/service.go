package geo

import (
	"context"
	"log/slog"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"

	"github.com/yont-erp/yont-erp/internal/authz"
)

// Service builds immutable hierarchy snapshots from reference data and
// serves display-ordered listings. Snapshot replacement happens by swapping
// the engine, never by patching a live snapshot.
type Service struct {
	repo   Repository
	logger *slog.Logger
}

// NewService constructs a Service.
func NewService(repo Repository, logger *slog.Logger) *Service {
	return &Service{repo: repo, logger: logger}
}

// LoadSnapshot reads the reference table and builds a hierarchy snapshot.
// Branches pointing at an unknown province are unreachable for every
// profile; they are logged once here and excluded.
func (s *Service) LoadSnapshot(ctx context.Context) (authz.Hierarchy, error) {
	provinces, err := s.repo.ListProvinces(ctx)
	if err != nil {
		return authz.Hierarchy{}, err
	}
	branches, err := s.repo.ListBranches(ctx)
	if err != nil {
		return authz.Hierarchy{}, err
	}
	hierarchy, orphans := authz.NewHierarchy(provinces, branches)
	for _, orphan := range orphans {
		s.logger.Warn("branch references unknown province, excluded from snapshot",
			slog.String("branch", orphan.Code),
			slog.String("province", orphan.ProvinceID))
	}
	return hierarchy, nil
}

// Refresh loads a fresh snapshot and swaps it into the engine atomically.
func (s *Service) Refresh(ctx context.Context, engine *authz.Engine) error {
	hierarchy, err := s.LoadSnapshot(ctx)
	if err != nil {
		return err
	}
	engine.Swap(hierarchy)
	s.logger.Info("geographic hierarchy refreshed")
	return nil
}

// SortedProvinces returns the snapshot's provinces ordered by Thai-aware
// name collation for display.
func SortedProvinces(h authz.Hierarchy, ids []string) []authz.Province {
	provinces := make([]authz.Province, 0, len(ids))
	for _, id := range ids {
		if p, ok := h.Province(id); ok {
			provinces = append(provinces, p)
		}
	}
	c := collate.New(language.Thai)
	c.Sort(provinceSorter(provinces))
	return provinces
}

// SortedBranches returns the named branches ordered by Thai-aware name
// collation for display.
func SortedBranches(h authz.Hierarchy, codes []string) []authz.Branch {
	branches := make([]authz.Branch, 0, len(codes))
	for _, code := range codes {
		if b, ok := h.BranchOf(code); ok {
			branches = append(branches, b)
		}
	}
	c := collate.New(language.Thai)
	c.Sort(branchSorter(branches))
	return branches
}

type provinceSorter []authz.Province

func (s provinceSorter) Len() int           { return len(s) }
func (s provinceSorter) Swap(i, j int)      { s[i], s[j] = s[j], s[i] }
func (s provinceSorter) Bytes(i int) []byte { return []byte(s[i].Name) }

type branchSorter []authz.Branch

func (s branchSorter) Len() int           { return len(s) }
func (s branchSorter) Swap(i, j int)      { s[i], s[j] = s[j], s[i] }
func (s branchSorter) Bytes(i int) []byte { return []byte(s[i].Name) }
