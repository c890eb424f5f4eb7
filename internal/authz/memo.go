package authz

import (
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/google/uuid"
	"golang.org/x/crypto/blake2b"
)

// MemoKey identifies one memoized decision argument set.
type MemoKey [blake2b.Size256]byte

// ArgsKey hashes a deterministic argument serialization into a memo key.
// Every part is length-prefixed, so no byte sequence inside a part can
// mimic a part boundary and collide two distinct argument lists.
func ArgsKey(parts ...string) MemoKey {
	var b strings.Builder
	for _, part := range parts {
		b.WriteString(strconv.Itoa(len(part)))
		b.WriteByte(':')
		b.WriteString(part)
	}
	return MemoKey(blake2b.Sum256([]byte(b.String())))
}

// constraintKey serializes a constraint set deterministically. List order
// must not change the key, so AnyOf/AllOf are sorted on copies; element
// counts mark where one list ends and the next field begins.
func constraintKey(c Constraints) MemoKey {
	anyOf := append([]string(nil), c.AnyOf...)
	allOf := append([]string(nil), c.AllOf...)
	sort.Strings(anyOf)
	sort.Strings(allOf)
	geo := GeoRef{}
	if c.Geography != nil {
		geo = *c.Geography
	}
	parts := make([]string, 0, len(anyOf)+len(allOf)+7)
	parts = append(parts, c.Permission, strconv.Itoa(len(anyOf)))
	parts = append(parts, anyOf...)
	parts = append(parts, strconv.Itoa(len(allOf)))
	parts = append(parts, allOf...)
	parts = append(parts,
		string(c.Authority),
		string(c.Department),
		geo.ProvinceID,
		geo.BranchCode,
	)
	return ArgsKey(parts...)
}

type memoEntryKey struct {
	version uuid.UUID
	key     MemoKey
}

// MemoCache memoizes gate decisions keyed by profile version and argument
// hash. Entries under a stale version can never be observed because a
// replaced profile carries a fresh version; invalidation is wholesale only,
// partial eviction is deliberately unsupported.
type MemoCache struct {
	mu      sync.RWMutex
	entries map[memoEntryKey]Decision
}

// NewMemoCache constructs an empty cache.
func NewMemoCache() *MemoCache {
	return &MemoCache{entries: make(map[memoEntryKey]Decision)}
}

// Get returns the memoized decision for the key under the given profile
// version.
func (c *MemoCache) Get(version uuid.UUID, key MemoKey) (Decision, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	d, ok := c.entries[memoEntryKey{version: version, key: key}]
	return d, ok
}

// Put stores a decision under the given profile version.
func (c *MemoCache) Put(version uuid.UUID, key MemoKey, d Decision) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[memoEntryKey{version: version, key: key}] = d
}

// Invalidate drops every entry. Called on any profile replacement; stale
// versions are unreachable anyway, this merely reclaims the memory.
func (c *MemoCache) Invalidate() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[memoEntryKey]Decision)
}

// Len reports the number of memoized decisions.
func (c *MemoCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// CachedGate wraps a Gate with a memo cache. Referential transparency of
// the underlying evaluation makes the cache safe: a memoized decision can
// never disagree with a fresh one for the same profile version.
type CachedGate struct {
	gate  *Gate
	cache *MemoCache
}

// NewCachedGate constructs a CachedGate.
func NewCachedGate(g *Gate) *CachedGate {
	return &CachedGate{gate: g, cache: NewMemoCache()}
}

// Evaluate returns the memoized decision when present, evaluating and
// storing it otherwise.
func (g *CachedGate) Evaluate(p *UserAccessProfile, c Constraints) Decision {
	if p == nil {
		return g.gate.Evaluate(p, c)
	}
	key := constraintKey(c)
	if d, ok := g.cache.Get(p.Version, key); ok {
		return d
	}
	d := g.gate.Evaluate(p, c)
	g.cache.Put(p.Version, key, d)
	return d
}

// Invalidate drops the memo cache wholesale.
func (g *CachedGate) Invalidate() {
	g.cache.Invalidate()
}

// Size reports the number of memoized decisions.
func (g *CachedGate) Size() int {
	return g.cache.Len()
}
