// Package request accumulates a vendor-agnostic chat request and renders it
// into the Anthropic or OpenAI wire document.
package request

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"slices"

	"llm-bridge/internal/models"
	"llm-bridge/internal/response"
	"llm-bridge/internal/tool"
)

const (
	DefaultAnthropicModel = "claude-3-haiku-20240307"
	DefaultOpenAIModel    = "gpt-4o"
	DefaultMaxTokens      = 100
	DefaultTemperature    = 0.0
)

// DefaultModel returns the model used when the caller did not pick one.
func DefaultModel(vendor models.Vendor) string {
	switch vendor {
	case models.VendorAnthropic:
		return DefaultAnthropicModel
	case models.VendorOpenAI:
		return DefaultOpenAIModel
	default:
		return ""
	}
}

// Sender delivers a rendered document to a vendor and normalizes the reply.
type Sender interface {
	Vendor() models.Vendor
	SendMessage(ctx context.Context, payload []byte) (*response.Message, error)
}

// defaultModeler is implemented by senders configured with their own default model.
type defaultModeler interface {
	DefaultModel() string
}

// Builder accumulates request parameters. Setters only assign; Render never
// mutates the builder and may be called any number of times.
type Builder struct {
	sender Sender
	vendor models.Vendor

	model        *string
	messages     []models.Message
	maxTokens    *uint32
	temperature  *float64
	systemPrompt *string
	tools        []tool.Tool
}

// New starts a request targeting the sender's vendor.
func New(sender Sender) *Builder {
	b := &Builder{sender: sender}
	if sender != nil {
		b.vendor = sender.Vendor()
	}
	return b
}

// ForVendor starts a request that can be rendered but not sent.
func ForVendor(vendor models.Vendor) *Builder {
	return &Builder{vendor: vendor}
}

func (b *Builder) Model(model string) *Builder {
	b.model = &model
	return b
}

// UserMessage appends a user turn.
func (b *Builder) UserMessage(content string) *Builder {
	return b.AddMessage(models.UserMessage(content))
}

// AssistantMessage appends an assistant turn.
func (b *Builder) AssistantMessage(content string) *Builder {
	return b.AddMessage(models.AssistantMessage(content))
}

// AddMessage appends msg to the conversation.
func (b *Builder) AddMessage(msg models.Message) *Builder {
	b.messages = append(b.messages, msg)
	return b
}

func (b *Builder) MaxTokens(maxTokens uint32) *Builder {
	b.maxTokens = &maxTokens
	return b
}

func (b *Builder) Temperature(temperature float64) *Builder {
	b.temperature = &temperature
	return b
}

func (b *Builder) SystemPrompt(prompt string) *Builder {
	b.systemPrompt = &prompt
	return b
}

func (b *Builder) AddTool(t tool.Tool) *Builder {
	b.tools = append(b.tools, t)
	return b
}

// Vendor reports the dialect Render produces.
func (b *Builder) Vendor() models.Vendor {
	return b.vendor
}

// Messages returns a copy of the accumulated conversation.
func (b *Builder) Messages() []models.Message {
	return slices.Clone(b.messages)
}

type anthropicPayload struct {
	Model       string           `json:"model"`
	Messages    []models.Message `json:"messages"`
	MaxTokens   uint32           `json:"max_tokens"`
	Temperature float64          `json:"temperature"`
	System      string           `json:"system"`
	Tools       []map[string]any `json:"tools,omitempty"`
}

type openAIPayload struct {
	Model       string           `json:"model"`
	Messages    []models.Message `json:"messages"`
	MaxTokens   uint32           `json:"max_tokens"`
	Temperature float64          `json:"temperature"`
	Tools       []map[string]any `json:"tools,omitempty"`
}

// Render produces the vendor wire document for the current state.
func (b *Builder) Render() ([]byte, error) {
	model := b.resolveModel()

	if len(b.messages) == 0 {
		return nil, ErrMissingMessages
	}

	maxTokens := uint32(DefaultMaxTokens)
	if b.maxTokens != nil {
		maxTokens = *b.maxTokens
	}
	temperature := DefaultTemperature
	if b.temperature != nil {
		temperature = *b.temperature
	}
	if math.IsNaN(temperature) || math.IsInf(temperature, 0) {
		return nil, &InvalidUsageError{Reason: fmt.Sprintf("temperature must be finite, got %v", temperature)}
	}

	var systemPrompt string
	if b.systemPrompt != nil {
		systemPrompt = *b.systemPrompt
	}

	var payload any
	switch b.vendor {
	case models.VendorAnthropic:
		p := anthropicPayload{
			Model:       model,
			Messages:    slices.Clone(b.messages),
			MaxTokens:   maxTokens,
			Temperature: temperature,
			System:      systemPrompt,
		}
		for _, t := range b.tools {
			p.Tools = append(p.Tools, t.ToAnthropicFormat())
		}
		payload = p
	case models.VendorOpenAI:
		messages := slices.Clone(b.messages)
		// OpenAI carries the system prompt as a trailing message.
		if systemPrompt != "" {
			messages = append(messages, models.SystemMessage(systemPrompt))
		}
		p := openAIPayload{
			Model:       model,
			Messages:    messages,
			MaxTokens:   maxTokens,
			Temperature: temperature,
		}
		for _, t := range b.tools {
			p.Tools = append(p.Tools, t.ToOpenAIFormat())
		}
		payload = p
	default:
		return nil, &InvalidUsageError{Reason: fmt.Sprintf("unsupported vendor %q", b.vendor)}
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal %s request: %w", b.vendor, err)
	}
	return body, nil
}

func (b *Builder) resolveModel() string {
	if b.model != nil {
		return *b.model
	}
	if dm, ok := b.sender.(defaultModeler); ok {
		if model := dm.DefaultModel(); model != "" {
			return model
		}
	}
	return DefaultModel(b.vendor)
}

// Send renders the request and delegates it to the sender.
func (b *Builder) Send(ctx context.Context) (*response.Message, error) {
	payload, err := b.Render()
	if err != nil {
		return nil, err
	}
	if b.sender == nil {
		return nil, &InvalidUsageError{Reason: "request has no sender"}
	}
	return b.sender.SendMessage(ctx, payload)
}
