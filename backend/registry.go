package backend

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/odr-dev/deepresearch/types"
)

// ClientConfig carries the credentials and transport settings a factory needs
// to build an adapter instance.
type ClientConfig struct {
	APIKey  string
	BaseURL string
	Timeout time.Duration
	// Params carries provider-specific settings.
	Params map[string]string
}

// Factory builds an adapter from a client config.
type Factory func(cfg ClientConfig) (Adapter, error)

// Registry maps provider ids to adapter factories. It implements the catalog
// interface consumed by the configuration resolver.
type Registry struct {
	mu        sync.RWMutex
	factories map[string]Factory
	caps      map[string][]Capability
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		factories: make(map[string]Factory),
		caps:      make(map[string][]Capability),
	}
}

// Register adds a provider factory. Registering a duplicate id panics; ids
// are wired once at startup.
func (r *Registry) Register(id string, caps []Capability, f Factory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.factories[id]; exists {
		panic(fmt.Sprintf("backend: provider %q registered twice", id))
	}
	r.factories[id] = f
	r.caps[id] = caps
}

// New builds an adapter for the given provider id.
func (r *Registry) New(id string, cfg ClientConfig) (Adapter, error) {
	r.mu.RLock()
	f, ok := r.factories[id]
	r.mu.RUnlock()
	if !ok {
		return nil, types.NewError(types.ErrInvalidConfig,
			fmt.Sprintf("unknown provider %q", id))
	}
	return f(cfg)
}

// Providers returns the sorted registered provider ids.
func (r *Registry) Providers() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ids := make([]string, 0, len(r.factories))
	for id := range r.factories {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

func (r *Registry) hasCapability(id string, c Capability) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, got := range r.caps[id] {
		if got == c {
			return true
		}
	}
	return false
}

// HasModelProvider reports whether id is registered with generate capability.
func (r *Registry) HasModelProvider(id string) bool {
	return r.hasCapability(id, CapabilityGenerate)
}

// HasSearchProvider reports whether id is registered with search capability.
func (r *Registry) HasSearchProvider(id string) bool {
	return r.hasCapability(id, CapabilitySearch)
}
