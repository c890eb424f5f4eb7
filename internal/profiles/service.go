package profiles

import (
	"context"
	"strconv"

	"golang.org/x/sync/singleflight"

	"github.com/yont-erp/yont-erp/internal/authz"
)

// Service resolves raw user records into canonical access profiles.
type Service struct {
	repo  Repository
	group singleflight.Group
}

// NewService constructs a Service.
func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// Build fetches the user's raw record and normalizes it. Concurrent builds
// for the same user are collapsed; every caller receives the same snapshot.
func (s *Service) Build(ctx context.Context, userID int64) (*authz.UserAccessProfile, error) {
	v, err, _ := s.group.Do(strconv.FormatInt(userID, 10), func() (any, error) {
		raw, err := s.repo.FindUser(ctx, userID)
		if err != nil {
			return nil, err
		}
		return authz.BuildProfile(raw)
	})
	if err != nil {
		return nil, err
	}
	return v.(*authz.UserAccessProfile), nil
}

// BuildAs builds a profile for the user with the grants of the given legacy
// role, keeping the user's geography and home location. This backs the demo
// role switcher; the handler restricts it to dev profiles.
func (s *Service) BuildAs(ctx context.Context, userID int64, role string) (*authz.UserAccessProfile, error) {
	raw, err := s.repo.FindUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	raw.Role = role
	raw.Authority = ""
	raw.Departments = nil
	raw.Permissions = nil
	raw.IsDev = false
	return authz.BuildProfile(raw)
}
