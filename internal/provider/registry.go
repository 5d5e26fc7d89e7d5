package provider

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"

	"llm-bridge/internal/models"
	"llm-bridge/internal/response"
)

// ErrUnknownModel indicates the requested model is not registered.
var ErrUnknownModel = errors.New("unknown model")

// ErrDuplicateModel indicates an attempt to register the same model twice.
var ErrDuplicateModel = errors.New("model already registered")

// ErrUnknownProvider indicates no provider is registered under a name or vendor.
var ErrUnknownProvider = errors.New("unknown provider")

// Provider is a configured vendor endpoint. It is both the Transport used by
// Exchange and the sender a request builder delivers to.
type Provider interface {
	Transport
	Name() string
	Vendor() models.Vendor
	DefaultModel() string
	ListModels(ctx context.Context) ([]models.Model, error)
	SendMessage(ctx context.Context, payload []byte) (*response.Message, error)
}

type modelEntry struct {
	model    models.Model
	provider Provider
}

// Registry maintains a mapping of model IDs to providers.
type Registry struct {
	mu     sync.RWMutex
	models map[string]modelEntry
	byName map[string]Provider
	order  []Provider
}

// NewRegistry constructs an empty provider registry.
func NewRegistry() *Registry {
	return &Registry{
		models: make(map[string]modelEntry),
		byName: make(map[string]Provider),
	}
}

// RegisterProvider adds the provider and its models to the registry, wiring optional aliases.
func (r *Registry) RegisterProvider(ctx context.Context, p Provider, aliases map[string]string) error {
	if p == nil {
		return errors.New("provider must not be nil")
	}

	modelsList, err := p.ListModels(ctx)
	if err != nil {
		return fmt.Errorf("list models for provider %q: %w", p.Name(), err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.byName[p.Name()]; exists {
		return fmt.Errorf("provider %q already registered", p.Name())
	}

	own := make(map[string]struct{}, len(modelsList))
	for _, model := range modelsList {
		if _, exists := r.models[model.ID]; exists {
			return fmt.Errorf("%w: %s", ErrDuplicateModel, model.ID)
		}
		if _, exists := own[model.ID]; exists {
			return fmt.Errorf("%w: %s listed twice by provider %q", ErrDuplicateModel, model.ID, p.Name())
		}
		own[model.ID] = struct{}{}
	}
	for alias, target := range aliases {
		if _, exists := r.models[alias]; exists {
			return fmt.Errorf("alias %q conflicts with existing model", alias)
		}
		if _, exists := own[alias]; exists {
			return fmt.Errorf("alias %q conflicts with model of provider %q", alias, p.Name())
		}
		if _, exists := own[target]; !exists {
			return fmt.Errorf("alias %q references unknown model %q", alias, target)
		}
	}

	r.byName[p.Name()] = p
	r.order = append(r.order, p)
	for _, model := range modelsList {
		r.models[model.ID] = modelEntry{
			model:    model,
			provider: p,
		}
	}
	for alias, target := range aliases {
		r.models[alias] = r.models[target]
	}

	return nil
}

// LookupModel returns the provider and metadata for a given model ID or alias.
func (r *Registry) LookupModel(modelID string) (models.Model, Provider, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	entry, ok := r.models[modelID]
	if !ok {
		return models.Model{}, nil, fmt.Errorf("%w: %s", ErrUnknownModel, modelID)
	}
	return entry.model, entry.provider, nil
}

// LookupProvider returns the provider registered under name.
func (r *Registry) LookupProvider(name string) (Provider, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	p, ok := r.byName[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownProvider, name)
	}
	return p, nil
}

// LookupVendor returns the first registered provider speaking vendor.
func (r *Registry) LookupVendor(vendor models.Vendor) (Provider, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, p := range r.order {
		if p.Vendor() == vendor {
			return p, nil
		}
	}
	return nil, fmt.Errorf("%w: no provider for vendor %s", ErrUnknownProvider, vendor)
}

// Models lists every registered model, aliases excluded, ordered by ID.
func (r *Registry) Models() []models.Model {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]models.Model, 0, len(r.models))
	for id, entry := range r.models {
		if id == entry.model.ID {
			out = append(out, entry.model)
		}
	}
	slices.SortFunc(out, func(a, b models.Model) int {
		return strings.Compare(a.ID, b.ID)
	})
	return out
}

// Providers returns the registered providers in registration order.
func (r *Registry) Providers() []Provider {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return slices.Clone(r.order)
}
