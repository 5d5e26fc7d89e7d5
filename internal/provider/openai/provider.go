// Package openai posts rendered documents to an OpenAI compatible chat
// completions endpoint.
package openai

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"llm-bridge/internal/config"
	"llm-bridge/internal/models"
	"llm-bridge/internal/provider"
	"llm-bridge/internal/response"
)

const (
	contentTypeJSON = "application/json"
	userAgent       = "llm-bridge/0.1"
)

// Provider implements chat completions for OpenAI-compatible APIs.
type Provider struct {
	name         string
	apiKey       string
	defaultModel string
	headers      map[string]string
	client       *http.Client
	models       []models.Model
	chatURL      string
}

// New creates a new OpenAI provider.
func New(cfg config.ProviderConfig, client *http.Client) (*Provider, error) {
	if client == nil {
		return nil, errors.New("http client must not be nil")
	}

	baseURL := strings.TrimRight(cfg.BaseURL, "/")
	if baseURL == "" {
		return nil, errors.New("base url must not be empty")
	}
	if vendor, err := models.ParseVendor(cfg.Vendor); err != nil || vendor != models.VendorOpenAI {
		return nil, fmt.Errorf("openai provider %q configured with vendor %q", cfg.Name, cfg.Vendor)
	}

	modelsList := make([]models.Model, 0, len(cfg.Models))
	for _, id := range cfg.Models {
		modelsList = append(modelsList, models.Model{
			ID:       id,
			Provider: cfg.Name,
			Vendor:   models.VendorOpenAI,
		})
	}

	return &Provider{
		name:         cfg.Name,
		apiKey:       cfg.APIKey,
		defaultModel: cfg.DefaultModel,
		headers:      cfg.Headers,
		client:       client,
		models:       modelsList,
		chatURL:      baseURL + "/chat/completions",
	}, nil
}

func (p *Provider) Name() string {
	return p.name
}

func (p *Provider) Vendor() models.Vendor {
	return models.VendorOpenAI
}

func (p *Provider) DefaultModel() string {
	return p.defaultModel
}

func (p *Provider) ListModels(ctx context.Context) ([]models.Model, error) {
	result := make([]models.Model, len(p.models))
	copy(result, p.models)
	return result, nil
}

// Post sends an already rendered chat completions document.
func (p *Provider) Post(ctx context.Context, payload []byte) (provider.Result, error) {
	req, err := p.newRequest(ctx, payload)
	if err != nil {
		return provider.Result{}, &provider.RequestError{Err: err}
	}
	return provider.Do(p.client, req)
}

// SendMessage posts payload and normalizes the reply.
func (p *Provider) SendMessage(ctx context.Context, payload []byte) (*response.Message, error) {
	return provider.Exchange(ctx, p, payload)
}

func (p *Provider) newRequest(ctx context.Context, payload []byte) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.chatURL, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("construct request: %w", err)
	}

	req.Header.Set("Content-Type", contentTypeJSON)
	req.Header.Set("Accept", contentTypeJSON)
	req.Header.Set("User-Agent", userAgent)
	if p.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+p.apiKey)
	}

	for k, v := range p.headers {
		req.Header.Set(k, v)
	}

	return req, nil
}
