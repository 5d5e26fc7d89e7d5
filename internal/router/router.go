package router

import (
	"fmt"

	"llm-bridge/internal/models"
	"llm-bridge/internal/provider"
	"llm-bridge/internal/request"
	"llm-bridge/internal/session"
)

// Router resolves model ids, aliases and vendors to configured providers.
type Router struct {
	registry *provider.Registry
}

// New constructs a router backed by the provided registry.
func New(registry *provider.Registry) *Router {
	return &Router{
		registry: registry,
	}
}

// Target is a resolved destination: the provider and the model to ask for.
// An empty Model lets the request fall back to the provider default.
type Target struct {
	Provider provider.Provider
	Model    string
}

// Resolve picks the provider for a request. A model id or alias wins; a
// vendor alone selects the first provider speaking it; with neither, the
// first registered provider is used.
func (r *Router) Resolve(modelID string, vendor models.Vendor) (Target, error) {
	if modelID != "" {
		modelInfo, providerImpl, err := r.registry.LookupModel(modelID)
		if err != nil {
			return Target{}, err
		}
		if vendor != "" && providerImpl.Vendor() != vendor {
			return Target{}, fmt.Errorf("model %s is served by %s, not %s: %w", modelID, providerImpl.Vendor(), vendor, provider.ErrUnknownModel)
		}
		return Target{Provider: providerImpl, Model: modelInfo.ID}, nil
	}

	if vendor != "" {
		providerImpl, err := r.registry.LookupVendor(vendor)
		if err != nil {
			return Target{}, err
		}
		return Target{Provider: providerImpl}, nil
	}

	providers := r.registry.Providers()
	if len(providers) == 0 {
		return Target{}, fmt.Errorf("%w: none configured", provider.ErrUnknownProvider)
	}
	return Target{Provider: providers[0]}, nil
}

// Request starts a builder addressed to the resolved provider.
func (r *Router) Request(modelID string, vendor models.Vendor) (*request.Builder, error) {
	target, err := r.Resolve(modelID, vendor)
	if err != nil {
		return nil, err
	}

	b := request.New(target.Provider)
	if target.Model != "" {
		b.Model(target.Model)
	}
	return b, nil
}

// Session starts a chat session with the resolved provider. The resolved
// model replaces cfg.Model.
func (r *Router) Session(modelID string, vendor models.Vendor, cfg session.Config) (session.Session, error) {
	target, err := r.Resolve(modelID, vendor)
	if err != nil {
		return session.Session{}, err
	}

	cfg.Model = target.Model
	return session.New(target.Provider, cfg), nil
}

// Models lists every routable model.
func (r *Router) Models() []models.Model {
	return r.registry.Models()
}
