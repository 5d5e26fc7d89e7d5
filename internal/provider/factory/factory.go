package factory

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"llm-bridge/internal/config"
	"llm-bridge/internal/models"
	"llm-bridge/internal/provider"
	claudeProvider "llm-bridge/internal/provider/claude"
	openaiProvider "llm-bridge/internal/provider/openai"
)

const (
	defaultDialTimeout     = 10 * time.Second
	defaultKeepAlive       = 30 * time.Second
	defaultIdleConnTimeout = 90 * time.Second
)

// RegisterConfiguredProviders constructs providers from configuration and stores them in the registry.
func RegisterConfiguredProviders(ctx context.Context, cfg config.Config, registry *provider.Registry) error {
	if registry == nil {
		return errors.New("registry must not be nil")
	}

	for _, pc := range cfg.Providers {
		p, err := New(pc)
		if err != nil {
			return fmt.Errorf("initialise %s provider: %w", pc.Name, err)
		}
		if err := registry.RegisterProvider(ctx, p, pc.Aliases); err != nil {
			return fmt.Errorf("register %s provider: %w", pc.Name, err)
		}
	}

	return nil
}

// New builds the transport for one configured provider.
func New(pc config.ProviderConfig) (provider.Provider, error) {
	vendor, err := models.ParseVendor(pc.Vendor)
	if err != nil {
		return nil, err
	}

	timeout := pc.Timeout
	if timeout <= 0 {
		timeout = config.DefaultTimeout
	}
	client := newHTTPClient(timeout)

	switch vendor {
	case models.VendorAnthropic:
		p, err := claudeProvider.New(pc, client)
		if err != nil {
			return nil, err
		}
		return p, nil
	case models.VendorOpenAI:
		p, err := openaiProvider.New(pc, client)
		if err != nil {
			return nil, err
		}
		return p, nil
	default:
		return nil, fmt.Errorf("no transport for vendor %s", vendor)
	}
}

func newHTTPClient(timeout time.Duration) *http.Client {
	transport := &http.Transport{
		Proxy:                 http.ProxyFromEnvironment,
		DialContext:           (&net.Dialer{Timeout: defaultDialTimeout, KeepAlive: defaultKeepAlive}).DialContext,
		ForceAttemptHTTP2:     true,
		MaxIdleConns:          50,
		IdleConnTimeout:       defaultIdleConnTimeout,
		TLSHandshakeTimeout:   10 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
	}

	return &http.Client{
		Timeout:   timeout,
		Transport: transport,
	}
}
