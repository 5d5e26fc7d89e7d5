package models

import "fmt"

// Vendor identifies a chat-completion wire dialect.
type Vendor string

const (
	// VendorAnthropic speaks the Anthropic /v1/messages dialect.
	VendorAnthropic Vendor = "anthropic"
	// VendorOpenAI speaks the OpenAI /v1/chat/completions dialect.
	VendorOpenAI Vendor = "openai"
)

// ParseVendor resolves a configured vendor name.
func ParseVendor(name string) (Vendor, error) {
	switch Vendor(name) {
	case VendorAnthropic, VendorOpenAI:
		return Vendor(name), nil
	case "claude":
		return VendorAnthropic, nil
	default:
		return "", fmt.Errorf("unknown vendor %q, must be one of %q or %q", name, VendorAnthropic, VendorOpenAI)
	}
}

const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleSystem    = "system"
)

// Message represents a single conversational turn.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// UserMessage builds a message with the user role.
func UserMessage(content string) Message {
	return Message{Role: RoleUser, Content: content}
}

// AssistantMessage builds a message with the assistant role.
func AssistantMessage(content string) Message {
	return Message{Role: RoleAssistant, Content: content}
}

// SystemMessage builds a message with the system role.
func SystemMessage(content string) Message {
	return Message{Role: RoleSystem, Content: content}
}

// Usage records token accounting information independent of vendor naming.
type Usage struct {
	InputTokens  int `json:"input_tokens"`
	OutputTokens int `json:"output_tokens"`
}

// Add returns the sum of both usages.
func (u Usage) Add(other Usage) Usage {
	return Usage{
		InputTokens:  u.InputTokens + other.InputTokens,
		OutputTokens: u.OutputTokens + other.OutputTokens,
	}
}

// Total is the combined input and output token count.
func (u Usage) Total() int {
	return u.InputTokens + u.OutputTokens
}

// Model identifies a known model with provider metadata.
type Model struct {
	ID       string `json:"id"`
	Provider string `json:"provider"`
	Vendor   Vendor `json:"vendor"`
}
