package warpscript

import (
	"sync"

	"github.com/google/uuid"
)

// StackInfo is a point-in-time snapshot of a registered stack's identity
// and vitals, the introspection shape a process-wide "list running
// stacks" administrative command would expose.
type StackInfo struct {
	ID         uuid.UUID
	Name       string
	Section    string
	Depth      int
	Ops        int64
	Recursion  int64
	SecureMode bool
}

// Registry is the process-global, thread-safe set of named stacks
// described in §3's Lifecycles ("the stack is registered in a
// process-global registry once a name attribute is set") and §9's design
// note that global state should be modeled as an explicit, injectable
// object rather than a hidden singleton — globalRegistry below is the
// package's own default instance, but every method is usable on a
// caller-constructed *Registry too.
type Registry struct {
	mu   sync.RWMutex
	byID map[uuid.UUID]*Stack
}

// NewRegistry creates an empty stack registry. Most callers use the
// package-level default, which SetAttribute(AttrName, ...) registers into
// and RegistrySnapshot reads; NewRegistry
// exists for hosts that want an isolated registry per tenant or test.
func NewRegistry() *Registry {
	return &Registry{byID: make(map[uuid.UUID]*Stack)}
}

func (r *Registry) register(s *Stack) {
	r.mu.Lock()
	r.byID[s.ID] = s
	r.mu.Unlock()
}

func (r *Registry) unregister(id uuid.UUID) {
	r.mu.Lock()
	delete(r.byID, id)
	r.mu.Unlock()
}

// Snapshot returns a StackInfo for every currently registered stack.
func (r *Registry) Snapshot() []StackInfo {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]StackInfo, 0, len(r.byID))
	for _, s := range r.byID {
		out = append(out, StackInfo{
			ID:         s.ID,
			Name:       s.Name,
			Section:    s.Section(),
			Depth:      s.Depth(),
			Ops:        s.CurrentOps(),
			Recursion:  s.CurrentRecursion(),
			SecureMode: s.InSecureMacro(),
		})
	}
	return out
}

// globalRegistry is the default process-wide registry that SetAttribute
// registers into when a stack's "name" attribute is set.
var globalRegistry = NewRegistry()

// RegistrySnapshot returns a snapshot of every stack registered in the
// package's default process-wide registry.
func RegistrySnapshot() []StackInfo {
	return globalRegistry.Snapshot()
}

// Unregister removes the stack from the default process-wide registry,
// intended for callers that tear down a named stack explicitly.
func (s *Stack) Unregister() {
	globalRegistry.unregister(s.ID)
}
