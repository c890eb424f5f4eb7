package profiles

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/yont-erp/yont-erp/internal/authz"
)

func newTestRegistry(t *testing.T, rdb *redis.Client) (*Registry, *stubRepo, *authz.Engine) {
	t.Helper()
	repo := &stubRepo{records: map[int64]authz.RawUserRecord{101: devUserRecord(101)}}
	hierarchy, _ := authz.NewHierarchy(
		[]authz.Province{{ID: "NMA"}},
		[]authz.Branch{{Code: "0450", ProvinceID: "NMA"}},
	)
	engine := authz.NewEngine(hierarchy)
	registry := NewRegistry(NewService(repo), engine, rdb, discardLogger())
	return registry, repo, engine
}

func TestRegistryProfileFor(t *testing.T) {
	registry, repo, _ := newTestRegistry(t, nil)

	p, err := registry.ProfileFor(context.Background(), 101)
	if err != nil {
		t.Fatalf("ProfileFor returned error: %v", err)
	}
	if registry.Len() != 1 {
		t.Fatalf("registry holds %d entries", registry.Len())
	}

	// Second access serves the cached profile without a rebuild.
	again, err := registry.ProfileFor(context.Background(), 101)
	if err != nil {
		t.Fatalf("ProfileFor returned error: %v", err)
	}
	if again != p {
		t.Fatalf("cached profile not reused")
	}
	if got := repo.finds.Load(); got != 1 {
		t.Fatalf("repository hit %d times", got)
	}

	if _, err := registry.ProfileFor(context.Background(), 999); err == nil {
		t.Fatalf("expected error for unknown user")
	}
}

func TestRegistryReplaceInstallsFreshVersion(t *testing.T) {
	registry, _, engine := newTestRegistry(t, nil)

	before, err := registry.ProfileFor(context.Background(), 101)
	if err != nil {
		t.Fatalf("ProfileFor returned error: %v", err)
	}
	engine.CachedGate().Evaluate(before, authz.Constraints{Permission: "sales.view"})
	if engine.CachedGate().Size() == 0 {
		t.Fatalf("decision not memoized")
	}

	after, err := registry.Replace(context.Background(), 101)
	if err != nil {
		t.Fatalf("Replace returned error: %v", err)
	}
	if after.Version == before.Version {
		t.Fatalf("replacement kept the old version")
	}
	if engine.CachedGate().Size() != 0 {
		t.Fatalf("memo cache survived a profile replacement")
	}
}

func TestRegistrySwitchRole(t *testing.T) {
	registry, _, _ := newTestRegistry(t, nil)

	p, err := registry.SwitchRole(context.Background(), 101, "SALES_STAFF")
	if err != nil {
		t.Fatalf("SwitchRole returned error: %v", err)
	}
	if p.Authority != authz.RankDepartment || p.IsDev {
		t.Fatalf("simulated profile = %+v", p)
	}

	// The simulated profile is what subsequent accesses see.
	current, err := registry.ProfileFor(context.Background(), 101)
	if err != nil {
		t.Fatalf("ProfileFor returned error: %v", err)
	}
	if current.Version != p.Version {
		t.Fatalf("simulated profile not installed")
	}
}

func TestRegistryDrop(t *testing.T) {
	registry, repo, _ := newTestRegistry(t, nil)

	if _, err := registry.ProfileFor(context.Background(), 101); err != nil {
		t.Fatalf("ProfileFor returned error: %v", err)
	}
	registry.Drop(101)
	if registry.Len() != 0 {
		t.Fatalf("registry holds %d entries after drop", registry.Len())
	}
	if _, err := registry.ProfileFor(context.Background(), 101); err != nil {
		t.Fatalf("ProfileFor returned error: %v", err)
	}
	if got := repo.finds.Load(); got != 2 {
		t.Fatalf("expected rebuild after drop, repository hit %d times", got)
	}
}

func TestRegistryPeerInvalidation(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	// Two instances share one redis; a replacement on one drops the copy on
	// the other.
	a, _, _ := newTestRegistry(t, rdb)
	b, _, engineB := newTestRegistry(t, rdb)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = b.Listen(ctx) }()

	if _, err := b.ProfileFor(ctx, 101); err != nil {
		t.Fatalf("ProfileFor returned error: %v", err)
	}
	profile, err := b.ProfileFor(ctx, 101)
	if err != nil {
		t.Fatalf("ProfileFor returned error: %v", err)
	}
	engineB.CachedGate().Evaluate(profile, authz.Constraints{Permission: "sales.view"})

	// Give the subscriber time to attach before publishing.
	time.Sleep(100 * time.Millisecond)
	if _, err := a.Replace(ctx, 101); err != nil {
		t.Fatalf("Replace returned error: %v", err)
	}

	deadline := time.Now().Add(2 * time.Second)
	for b.Len() != 0 {
		if time.Now().After(deadline) {
			t.Fatalf("peer registry still holds %d entries", b.Len())
		}
		time.Sleep(10 * time.Millisecond)
	}
	if engineB.CachedGate().Size() != 0 {
		t.Fatalf("peer memo cache survived invalidation")
	}
}

func TestRegistryIgnoresOwnMessages(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	registry, _, _ := newTestRegistry(t, rdb)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = registry.Listen(ctx) }()
	time.Sleep(100 * time.Millisecond)

	if _, err := registry.Replace(ctx, 101); err != nil {
		t.Fatalf("Replace returned error: %v", err)
	}

	// The instance's own broadcast must not evict the fresh profile.
	time.Sleep(200 * time.Millisecond)
	if registry.Len() != 1 {
		t.Fatalf("registry dropped its own replacement, %d entries", registry.Len())
	}
}

func TestRegistryListenStopsOnContextCancel(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	registry, _, _ := newTestRegistry(t, rdb)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- registry.Listen(ctx) }()
	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Fatalf("Listen returned %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("Listen did not stop on cancellation")
	}
}
