package manager

import (
	"crypto/sha256"
	"fmt"
	"sort"
	"sync"
	"time"
)

// Registry is a thread-safe in-memory store for loaded policies. Updates
// replace the whole set atomically so readers never observe a partially
// applied reload.
type Registry struct {
	mu       sync.RWMutex
	policies map[string]*Policy
	version  string
	loadTime time.Time
}

// NewRegistry creates a new empty policy registry.
func NewRegistry() *Registry {
	return &Registry{
		policies: make(map[string]*Policy),
		loadTime: time.Now(),
	}
}

// Register adds a policy to the registry. An existing policy with the
// same ID is replaced.
func (r *Registry) Register(policy *Policy) error {
	if policy == nil {
		return &RegistryError{Operation: "register", Message: "policy cannot be nil"}
	}
	if policy.ID == "" {
		return &RegistryError{Operation: "register", Message: "policy id cannot be empty"}
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.policies[policy.ID] = policy
	r.updateVersion()
	return nil
}

// Unregister removes a policy from the registry by ID.
func (r *Registry) Unregister(id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.policies[id]; !ok {
		return &RegistryError{PolicyID: id, Operation: "unregister", Message: "policy not found"}
	}
	delete(r.policies, id)
	r.updateVersion()
	return nil
}

// Get retrieves a policy by ID.
func (r *Registry) Get(id string) (*Policy, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	policy, ok := r.policies[id]
	return policy, ok
}

// GetAll retrieves all policies sorted by ID. The returned slice is a
// copy and will not be modified by the registry.
func (r *Registry) GetAll() []*Policy {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ids := make([]string, 0, len(r.policies))
	for id := range r.policies {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	policies := make([]*Policy, 0, len(ids))
	for _, id := range ids {
		policies = append(policies, r.policies[id])
	}
	return policies
}

// Count returns the number of policies in the registry.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return len(r.policies)
}

// Replace atomically replaces the entire policy set.
func (r *Registry) Replace(policies []*Policy) error {
	if policies == nil {
		return &RegistryError{Operation: "replace", Message: "policies cannot be nil"}
	}
	for _, policy := range policies {
		if policy == nil {
			return &RegistryError{Operation: "replace", Message: "policy cannot be nil"}
		}
		if policy.ID == "" {
			return &RegistryError{Operation: "replace", Message: "policy id cannot be empty"}
		}
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	newPolicies := make(map[string]*Policy, len(policies))
	for _, policy := range policies {
		newPolicies[policy.ID] = policy
	}

	r.policies = newPolicies
	r.loadTime = time.Now()
	r.updateVersion()
	return nil
}

// GetVersion returns the current registry version. The version changes
// whenever policies are added, removed, or replaced.
func (r *Registry) GetVersion() string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return r.version
}

// GetLoadTime returns when the policy set was last replaced.
func (r *Registry) GetLoadTime() time.Time {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return r.loadTime
}

// GetPolicyIDs returns a sorted list of all policy IDs.
func (r *Registry) GetPolicyIDs() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ids := make([]string, 0, len(r.policies))
	for id := range r.policies {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// updateVersion recomputes the registry version. Caller holds the write
// lock.
func (r *Registry) updateVersion() {
	h := sha256.New()

	ids := make([]string, 0, len(r.policies))
	for id := range r.policies {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	for _, id := range ids {
		policy := r.policies[id]
		h.Write([]byte(policy.ID))
		h.Write([]byte(policy.Version))
		h.Write([]byte(policy.SourceFile))
	}

	r.version = fmt.Sprintf("%x", h.Sum(nil))[:16]
}
