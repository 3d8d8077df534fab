package llm

import (
	"fmt"
	"strings"
	"sync"
)

type registration struct {
	factory    Factory
	credential string
}

// Router resolves provider names to adapter instances. The set of known names
// is fixed at registration; instances are built lazily and cached.
type Router struct {
	mu              sync.RWMutex
	order           []string
	registrations   map[string]registration
	instances       map[string]Provider
	defaultProvider string
}

// NewRouter creates a new LLM router
func NewRouter(defaultProvider string) *Router {
	return &Router{
		registrations:   make(map[string]registration),
		instances:       make(map[string]Provider),
		defaultProvider: normalizeName(defaultProvider),
	}
}

func normalizeName(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

// Register adds a provider under name. Re-registering replaces the factory
// and drops any cached instance.
func (r *Router) Register(name, credential string, factory Factory) {
	name = normalizeName(name)

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.registrations[name]; !exists {
		r.order = append(r.order, name)
	}
	r.registrations[name] = registration{factory: factory, credential: strings.TrimSpace(credential)}
	delete(r.instances, name)
}

// RegisterProvider registers a ready-made instance, treated as configured.
func (r *Router) RegisterProvider(p Provider) {
	r.Register(p.Name(), "static", func(string) Provider { return p })
}

// Resolve returns the provider for name, or the default when name is blank.
func (r *Router) Resolve(name string) (Provider, error) {
	name = normalizeName(name)
	if name == "" {
		name = r.defaultProvider
	}

	r.mu.RLock()
	p, cached := r.instances[name]
	reg, known := r.registrations[name]
	r.mu.RUnlock()

	if cached {
		return p, nil
	}
	if !known {
		return nil, fmt.Errorf("%w: %s", ErrUnknownProvider, name)
	}
	if reg.credential == "" {
		return nil, fmt.Errorf("%w: %s", ErrMissingCredential, name)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if p, ok := r.instances[name]; ok {
		return p, nil
	}
	p = reg.factory(reg.credential)
	r.instances[name] = p
	return p, nil
}

// Known returns every registered name in registration order.
func (r *Router) Known() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]string(nil), r.order...)
}

// Available returns the names whose credential is present, in registration order.
func (r *Router) Available() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	providers := make([]string, 0, len(r.order))
	for _, name := range r.order {
		if r.registrations[name].credential != "" {
			providers = append(providers, name)
		}
	}
	return providers
}

// IsAvailable reports whether name is known and has a credential.
func (r *Router) IsAvailable(name string) bool {
	name = normalizeName(name)
	r.mu.RLock()
	defer r.mu.RUnlock()
	reg, ok := r.registrations[name]
	return ok && reg.credential != ""
}

// DefaultProvider returns the default provider name
func (r *Router) DefaultProvider() string {
	return r.defaultProvider
}

// ProviderInfo contains information about an LLM provider
type ProviderInfo struct {
	Name         string   `json:"name"`
	Models       []string `json:"models"`
	DefaultModel string   `json:"default_model"`
	Default      bool     `json:"default"`
	Configured   bool     `json:"configured"`
}

// Info describes every registered provider in registration order.
func (r *Router) Info() []ProviderInfo {
	r.mu.RLock()
	defer r.mu.RUnlock()

	infos := make([]ProviderInfo, 0, len(r.order))
	for _, name := range r.order {
		reg := r.registrations[name]
		p, ok := r.instances[name]
		if !ok {
			p = reg.factory(reg.credential)
		}
		infos = append(infos, ProviderInfo{
			Name:         name,
			Models:       p.AvailableModels(),
			DefaultModel: p.DefaultModel(),
			Default:      name == r.defaultProvider,
			Configured:   reg.credential != "",
		})
	}
	return infos
}
