package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"llm-bridge/internal/models"
)

const (
	envPrefix = "LLM_BRIDGE"

	DefaultPort         = 8080
	DefaultTimeout      = 60 * time.Second
	DefaultAnthropicURL = "https://api.anthropic.com"
	DefaultOpenAIURL    = "https://api.openai.com/v1"

	defaultLogLevel  = "info"
	defaultLogFormat = "text"

	anthropicKeyEnv = "ANTHROPIC_API_KEY"
	openAIKeyEnv    = "OPENAI_API_KEY"
)

// Config represents the application configuration parsed from YAML.
type Config struct {
	Server    ServerConfig     `yaml:"server"`
	Log       LogConfig        `yaml:"log"`
	Providers []ProviderConfig `yaml:"providers"`
}

// ServerConfig defines listener configuration.
type ServerConfig struct {
	Port int `yaml:"port"`
}

// LogConfig selects the slog handler.
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// ProviderConfig captures authentication and routing info for a provider.
type ProviderConfig struct {
	Name         string            `yaml:"name"`
	Vendor       string            `yaml:"vendor"`
	APIKey       string            `yaml:"api_key"`
	BaseURL      string            `yaml:"base_url"`
	DefaultModel string            `yaml:"default_model"`
	Models       []string          `yaml:"models"`
	Headers      Headers           `yaml:"headers"`
	Aliases      map[string]string `yaml:"aliases"`
	Timeout      time.Duration     `yaml:"timeout"`
}

// Headers contains additional HTTP headers to send with a provider request.
type Headers map[string]string

// Default returns one provider per vendor with no credentials.
func Default() Config {
	return Config{
		Server: ServerConfig{Port: DefaultPort},
		Log:    LogConfig{Level: defaultLogLevel, Format: defaultLogFormat},
		Providers: []ProviderConfig{
			{
				Name:         "anthropic",
				Vendor:       string(models.VendorAnthropic),
				BaseURL:      DefaultAnthropicURL,
				DefaultModel: "claude-3-haiku-20240307",
				Models:       []string{"claude-3-haiku-20240307", "claude-3-5-sonnet-20240620"},
				Timeout:      DefaultTimeout,
			},
			{
				Name:         "openai",
				Vendor:       string(models.VendorOpenAI),
				BaseURL:      DefaultOpenAIURL,
				DefaultModel: "gpt-4o",
				Models:       []string{"gpt-4o", "gpt-4o-mini"},
				Timeout:      DefaultTimeout,
			},
		},
	}
}

// Load reads YAML configuration from disk, applies environment overrides and
// validates the result. An empty path starts from Default and drops the
// providers that end up without an API key.
func Load(path string) (Config, error) {
	cfg := Default()
	fromFile := path != ""

	if fromFile {
		absPath, err := filepath.Abs(path)
		if err != nil {
			return Config{}, fmt.Errorf("resolve config path: %w", err)
		}

		data, err := os.ReadFile(absPath)
		if err != nil {
			return Config{}, fmt.Errorf("read config file %q: %w", absPath, err)
		}

		cfg = Config{}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config file %q: %w", absPath, err)
		}
	}

	cfg.applyDefaults()
	if err := cfg.applyEnv(newEnv()); err != nil {
		return Config{}, err
	}

	if !fromFile {
		cfg.Providers = withCredentials(cfg.Providers)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func newEnv() *viper.Viper {
	v := viper.New()
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()
	return v
}

func (c *Config) applyDefaults() {
	if c.Server.Port == 0 {
		c.Server.Port = DefaultPort
	}
	if c.Log.Level == "" {
		c.Log.Level = defaultLogLevel
	}
	if c.Log.Format == "" {
		c.Log.Format = defaultLogFormat
	}

	for i := range c.Providers {
		p := &c.Providers[i]
		if p.Vendor == "" {
			p.Vendor = p.Name
		}
		if p.Timeout == 0 {
			p.Timeout = DefaultTimeout
		}
		if p.BaseURL == "" {
			switch vendor, _ := models.ParseVendor(p.Vendor); vendor {
			case models.VendorAnthropic:
				p.BaseURL = DefaultAnthropicURL
			case models.VendorOpenAI:
				p.BaseURL = DefaultOpenAIURL
			}
		}
		if p.DefaultModel == "" && len(p.Models) > 0 {
			p.DefaultModel = p.Models[0]
		}
		if p.DefaultModel != "" && !contains(p.Models, p.DefaultModel) {
			p.Models = append([]string{p.DefaultModel}, p.Models...)
		}
	}
}

// applyEnv overlays LLM_BRIDGE_* variables. Provider keys are looked up as
// LLM_BRIDGE_<NAME>_API_KEY first and then through the vendor's conventional
// variable.
func (c *Config) applyEnv(v *viper.Viper) error {
	if v.IsSet("server.port") {
		port := v.GetInt("server.port")
		if port == 0 {
			return fmt.Errorf("%s_SERVER_PORT must be an integer, got %q", envPrefix, v.GetString("server.port"))
		}
		c.Server.Port = port
	}
	if level := v.GetString("log.level"); level != "" {
		c.Log.Level = level
	}
	if format := v.GetString("log.format"); format != "" {
		c.Log.Format = format
	}

	if err := v.BindEnv("vendor_keys.anthropic", anthropicKeyEnv); err != nil {
		return fmt.Errorf("bind %s: %w", anthropicKeyEnv, err)
	}
	if err := v.BindEnv("vendor_keys.openai", openAIKeyEnv); err != nil {
		return fmt.Errorf("bind %s: %w", openAIKeyEnv, err)
	}

	for i := range c.Providers {
		p := &c.Providers[i]
		if key := v.GetString(p.Name + ".api_key"); key != "" {
			p.APIKey = key
			continue
		}
		if p.APIKey != "" {
			continue
		}
		if vendor, err := models.ParseVendor(p.Vendor); err == nil {
			p.APIKey = v.GetString("vendor_keys." + string(vendor))
		}
	}
	return nil
}

func withCredentials(providers []ProviderConfig) []ProviderConfig {
	kept := providers[:0]
	for _, p := range providers {
		if strings.TrimSpace(p.APIKey) != "" {
			kept = append(kept, p)
		}
	}
	return kept
}

// Validate performs strict sanity checks on the configuration.
func (c Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port must be a valid TCP port, got %d", c.Server.Port)
	}
	if _, err := ParseLogLevel(c.Log.Level); err != nil {
		return err
	}
	switch c.Log.Format {
	case "text", "json":
	default:
		return fmt.Errorf("log.format must be text or json, got %q", c.Log.Format)
	}

	seen := make(map[string]struct{}, len(c.Providers))
	for _, provider := range c.Providers {
		if _, dup := seen[provider.Name]; dup {
			return fmt.Errorf("provider %s: configured more than once", provider.Name)
		}
		seen[provider.Name] = struct{}{}

		if err := validateProvider(provider); err != nil {
			return err
		}
	}

	return nil
}

func validateProvider(provider ProviderConfig) error {
	name := provider.Name
	if strings.TrimSpace(name) == "" {
		return errors.New("provider name must not be empty")
	}
	if _, err := models.ParseVendor(provider.Vendor); err != nil {
		return fmt.Errorf("provider %s: %w", name, err)
	}
	if strings.TrimSpace(provider.APIKey) == "" {
		return fmt.Errorf("provider %s: api_key must be provided", name)
	}
	if strings.TrimSpace(provider.BaseURL) == "" {
		return fmt.Errorf("provider %s: base_url must be provided", name)
	}
	if len(provider.Models) == 0 {
		return fmt.Errorf("provider %s: at least one model must be configured", name)
	}
	if provider.Timeout < 0 {
		return fmt.Errorf("provider %s: timeout must not be negative", name)
	}

	for _, model := range provider.Models {
		if strings.TrimSpace(model) == "" {
			return fmt.Errorf("provider %s: model id must not be empty", name)
		}
	}

	for headerKey := range provider.Headers {
		if !isCanonicalHTTPHeader(headerKey) {
			return fmt.Errorf("provider %s: header %q is not a valid canonical HTTP header", name, headerKey)
		}
	}

	for alias, target := range provider.Aliases {
		if strings.TrimSpace(alias) == "" {
			return fmt.Errorf("provider %s: alias name must not be empty", name)
		}
		if strings.TrimSpace(target) == "" {
			return fmt.Errorf("provider %s: alias %q target must not be empty", name, alias)
		}
	}

	return nil
}

func isCanonicalHTTPHeader(header string) bool {
	if header == "" {
		return false
	}

	for _, r := range header {
		if !(r == '-' || (r >= 'A' && r <= 'Z') || (r >= 'a' && r <= 'z')) {
			return false
		}
	}
	return true
}

func contains(list []string, value string) bool {
	for _, item := range list {
		if item == value {
			return true
		}
	}
	return false
}
