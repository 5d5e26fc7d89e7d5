package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"llm-bridge/internal/config"
	"llm-bridge/internal/models"
	"llm-bridge/internal/provider"
	providerfactory "llm-bridge/internal/provider/factory"
	"llm-bridge/internal/request"
	"llm-bridge/internal/router"
)

// options are the flags shared by every command.
type options struct {
	configPath  string
	verbose     bool
	model       string
	vendor      string
	system      string
	maxTokens   uint32
	temperature float64
}

// Execute runs the CLI with the provided arguments.
func Execute(ctx context.Context, args []string) error {
	root := newRootCmd()
	root.SetArgs(args)
	return root.ExecuteContext(ctx)
}

func newRootCmd() *cobra.Command {
	opts := &options{}

	root := &cobra.Command{
		Use:   "llm-bridge",
		Short: "Talk to Anthropic and OpenAI chat models through one request shape",
		Long: `llm-bridge renders one vendor-neutral chat request into the Anthropic
Messages or OpenAI Chat Completions format, sends it, and normalizes the reply.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	flags := root.PersistentFlags()
	flags.StringVarP(&opts.configPath, "config", "c", "", "path to YAML configuration file (default: built-in providers keyed from the environment)")
	flags.BoolVarP(&opts.verbose, "verbose", "v", false, "enable debug logging")
	flags.StringVarP(&opts.model, "model", "m", "", "model id or alias")
	flags.StringVar(&opts.vendor, "vendor", "", "vendor dialect: anthropic or openai")
	flags.StringVarP(&opts.system, "system", "s", "", "system prompt")
	flags.Uint32Var(&opts.maxTokens, "max-tokens", request.DefaultMaxTokens, "maximum tokens to generate")
	flags.Float64VarP(&opts.temperature, "temperature", "t", request.DefaultTemperature, "sampling temperature")

	root.AddCommand(
		newServeCmd(opts),
		newAskCmd(opts),
		newChatCmd(opts),
		newRenderCmd(opts),
	)
	return root
}

// app is what every command needs once configuration is loaded.
type app struct {
	cfg    config.Config
	router *router.Router
}

func (o *options) load(ctx context.Context) (*app, error) {
	path := o.configPath
	if path == "" {
		path = os.Getenv("LLM_BRIDGE_CONFIG")
	}

	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}

	logCfg := cfg.Log
	if o.verbose {
		logCfg.Level = "debug"
	}
	slog.SetDefault(logCfg.NewLogger(os.Stderr))

	registry := provider.NewRegistry()
	if err := providerfactory.RegisterConfiguredProviders(ctx, cfg, registry); err != nil {
		return nil, err
	}
	slog.Debug("configuration loaded", "config", path, "providers", len(cfg.Providers))

	return &app{cfg: cfg, router: router.New(registry)}, nil
}

func (o *options) parsedVendor() (models.Vendor, error) {
	if o.vendor == "" {
		return "", nil
	}
	return models.ParseVendor(o.vendor)
}

// builder resolves the target and applies the shared flags. With renderOnly a
// vendor that has no configured provider can still be addressed.
func (o *options) builder(a *app, renderOnly bool) (*request.Builder, error) {
	vendor, err := o.parsedVendor()
	if err != nil {
		return nil, err
	}

	b, err := a.router.Request(o.model, vendor)
	if err != nil {
		if !renderOnly || vendor == "" {
			return nil, fmt.Errorf("%w (configure a provider or set ANTHROPIC_API_KEY / OPENAI_API_KEY)", err)
		}
		b = request.ForVendor(vendor)
		if o.model != "" {
			b.Model(o.model)
		}
	}

	b.MaxTokens(o.maxTokens).Temperature(o.temperature)
	if o.system != "" {
		b.SystemPrompt(o.system)
	}
	return b, nil
}
