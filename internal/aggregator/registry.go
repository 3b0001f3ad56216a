package aggregator

import (
	"log"
	"strings"
	"sync"
)

// Factory constructs a provider instance. Registered per variant by the
// composition root; variants without a factory resolve to NotImplementedError.
type Factory func() (Provider, error)

// Institutions that need a non-default provider. A handful of institutions
// have limited or no coverage at the default aggregator.
var (
	finicityInstitutions = map[string]struct{}{
		"Fidelity":             {},
		"Fidelity Investments": {},
		"Fidelity NetBenefits": {},
		"Fidelity 401k":        {},
	}
	mxInstitutions = map[string]struct{}{
		"USAA": {},
	}
)

// Registry resolves and caches provider instances by type, and routes
// institutions to the provider that supports them. It is an explicitly
// constructed, injected instance owned by the composition root; there is
// no package-level singleton.
type Registry struct {
	defaultType Type
	factories   map[Type]Factory

	mu        sync.Mutex
	providers map[Type]Provider
}

// NewRegistry creates a registry with the given default provider type and
// the factories for the backed variants.
func NewRegistry(defaultType Type, factories map[Type]Factory) *Registry {
	return &Registry{
		defaultType: defaultType,
		factories:   factories,
		providers:   make(map[Type]Provider),
	}
}

// GetProvider returns the cached instance for the type, lazily constructing
// it on first use. Declared-but-unbacked variants return NotImplementedError.
func (r *Registry) GetProvider(t Type) (Provider, error) {
	switch t {
	case TypePlaid, TypeFinicity, TypeYodlee, TypeMX, TypeAkoya:
	default:
		return nil, ErrUnknownProvider
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if p, ok := r.providers[t]; ok {
		return p, nil
	}

	factory, ok := r.factories[t]
	if !ok {
		return nil, &NotImplementedError{Provider: t}
	}

	p, err := factory()
	if err != nil {
		return nil, err
	}

	r.providers[t] = p
	return p, nil
}

// GetDefaultProvider returns the default provider.
func (r *Registry) GetDefaultProvider() (Provider, error) {
	return r.GetProvider(r.defaultType)
}

// GetProviderForInstitution returns the provider that best serves the
// institution. When the required provider is not backed yet, it falls back
// to the default provider and logs the routing decision instead of failing
// the caller.
func (r *Registry) GetProviderForInstitution(institutionName string) (Provider, error) {
	name := strings.TrimSpace(institutionName)

	required := r.defaultType
	if _, ok := finicityInstitutions[name]; ok {
		required = TypeFinicity
	} else if _, ok := mxInstitutions[name]; ok {
		required = TypeMX
	}

	if required != r.defaultType {
		p, err := r.GetProvider(required)
		if err == nil {
			return p, nil
		}
		if !IsNotImplemented(err) {
			return nil, err
		}
		log.Printf("Provider %s not available for institution %q, using %s", required, name, r.defaultType)
	}

	return r.GetDefaultProvider()
}

// AvailableProviders returns the variants that currently resolve to a
// backed implementation.
func (r *Registry) AvailableProviders() []Type {
	var available []Type
	for _, t := range AllTypes() {
		if _, err := r.GetProvider(t); err == nil {
			available = append(available, t)
		}
	}
	return available
}
