package gateway

import (
	"payment-orchestrator/internal/core/ports"
	"payment-orchestrator/pkg/apperror"
)

// Registry resolves provider names to constructed adapters. It implements
// ports.GatewayFactory. Adapters are registered once at startup; Resolve is
// read-only afterwards, so no locking is needed.
type Registry struct {
	defaultName string
	adapters    map[string]ports.PaymentGateway
}

// NewRegistry creates a factory with the given default provider and adapters.
func NewRegistry(defaultName string, adapters ...ports.PaymentGateway) *Registry {
	r := &Registry{
		defaultName: defaultName,
		adapters:    make(map[string]ports.PaymentGateway, len(adapters)),
	}
	for _, a := range adapters {
		r.Register(a)
	}
	return r
}

// Register adds an adapter under its own name, replacing any previous entry.
func (r *Registry) Register(g ports.PaymentGateway) {
	r.adapters[g.Name()] = g
}

// Resolve returns the adapter for name. An empty name selects the configured
// default provider.
func (r *Registry) Resolve(name string) (ports.PaymentGateway, error) {
	if name == "" {
		name = r.defaultName
	}
	g, ok := r.adapters[name]
	if !ok {
		return nil, apperror.ErrUnsupportedGateway(name)
	}
	return g, nil
}
