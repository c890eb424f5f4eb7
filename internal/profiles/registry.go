package profiles

import (
	"context"
	"log/slog"
	"strconv"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/yont-erp/yont-erp/internal/authz"
)

// InvalidateChannel carries profile-replacement notifications between
// service instances.
const InvalidateChannel = "profiles:invalidate"

// Registry holds the current access profile per user. A role or geography
// change installs a brand-new profile under a fresh version and broadcasts
// the replacement; a live profile is never patched. Peer instances drop
// their copy on notification and rebuild lazily on next access.
type Registry struct {
	mu      sync.RWMutex
	entries map[int64]*authz.UserAccessProfile

	service    *Service
	engine     *authz.Engine
	rdb        *redis.Client
	logger     *slog.Logger
	instanceID string
}

// NewRegistry constructs a Registry. The redis client may be nil in tests
// that exercise a single instance.
func NewRegistry(service *Service, engine *authz.Engine, rdb *redis.Client, logger *slog.Logger) *Registry {
	return &Registry{
		entries:    make(map[int64]*authz.UserAccessProfile),
		service:    service,
		engine:     engine,
		rdb:        rdb,
		logger:     logger,
		instanceID: uuid.NewString(),
	}
}

// ProfileFor returns the current profile for the user, building it on first
// access. Implements authz.ProfileSource.
func (r *Registry) ProfileFor(ctx context.Context, userID int64) (*authz.UserAccessProfile, error) {
	r.mu.RLock()
	profile, ok := r.entries[userID]
	r.mu.RUnlock()
	if ok {
		return profile, nil
	}
	profile, err := r.service.Build(ctx, userID)
	if err != nil {
		return nil, err
	}
	r.install(userID, profile)
	return profile, nil
}

// Replace rebuilds the user's profile from storage, installs it under a
// fresh version and notifies peers. Derived caches are dropped wholesale.
func (r *Registry) Replace(ctx context.Context, userID int64) (*authz.UserAccessProfile, error) {
	r.Drop(userID)
	profile, err := r.service.Build(ctx, userID)
	if err != nil {
		return nil, err
	}
	r.install(userID, profile)
	r.engine.InvalidateMemo()
	r.publish(ctx, userID)
	return profile, nil
}

// SwitchRole installs a simulated-role profile for the user. The caller is
// responsible for restricting this to dev profiles.
func (r *Registry) SwitchRole(ctx context.Context, userID int64, role string) (*authz.UserAccessProfile, error) {
	profile, err := r.service.BuildAs(ctx, userID, role)
	if err != nil {
		return nil, err
	}
	r.install(userID, profile)
	r.engine.InvalidateMemo()
	r.publish(ctx, userID)
	return profile, nil
}

// Drop removes the user's cached profile; the next access rebuilds it.
func (r *Registry) Drop(userID int64) {
	r.mu.Lock()
	delete(r.entries, userID)
	r.mu.Unlock()
}

// Len reports the number of cached profiles.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.entries)
}

func (r *Registry) install(userID int64, profile *authz.UserAccessProfile) {
	r.mu.Lock()
	r.entries[userID] = profile
	r.mu.Unlock()
}

func (r *Registry) publish(ctx context.Context, userID int64) {
	if r.rdb == nil {
		return
	}
	payload := r.instanceID + ":" + strconv.FormatInt(userID, 10)
	if err := r.rdb.Publish(ctx, InvalidateChannel, payload).Err(); err != nil {
		r.logger.Warn("publish profile invalidation", slog.Any("error", err))
	}
}

// Listen consumes peer invalidation messages until the context ends. Own
// messages are ignored; a peer's replacement drops the local copy and the
// memo cache wholesale.
func (r *Registry) Listen(ctx context.Context) error {
	if r.rdb == nil {
		return nil
	}
	sub := r.rdb.Subscribe(ctx, InvalidateChannel)
	defer func() { _ = sub.Close() }()
	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg, ok := <-ch:
			if !ok {
				return nil
			}
			instance, rawID, found := strings.Cut(msg.Payload, ":")
			if !found || instance == r.instanceID {
				continue
			}
			userID, err := strconv.ParseInt(rawID, 10, 64)
			if err != nil {
				r.logger.Warn("malformed invalidation payload", slog.String("payload", msg.Payload))
				continue
			}
			r.Drop(userID)
			r.engine.InvalidateMemo()
		}
	}
}
