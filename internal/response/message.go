// Package response parses vendor chat replies into one normalized view.
//
// A Message holds exactly one vendor payload. The variant is chosen while
// parsing from the fields actually present in the JSON, never from the vendor
// that was asked, and every accessor is answered by that payload.
package response

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"llm-bridge/internal/models"
)

// Kind identifies which vendor shape a Message holds.
type Kind int

const (
	KindUnknown Kind = iota
	KindAnthropic
	KindOpenAI
)

func (k Kind) String() string {
	switch k {
	case KindAnthropic:
		return "anthropic"
	case KindOpenAI:
		return "openai"
	default:
		return "unknown"
	}
}

const functionCallPrefix = "Function call: "

func functionCallPlaceholder(name string) string {
	return functionCallPrefix + name
}

// payload is the capability set each vendor variant implements.
type payload interface {
	responseID() string
	firstMessage() string
	role() string
	model() string
	stopReason() string
	usage() models.Usage
	tools() []ToolResponse
}

// ToolResponse describes a tool the model asked to invoke.
type ToolResponse struct {
	ID    string          `json:"id"`
	Name  string          `json:"name"`
	Input json.RawMessage `json:"input"`
}

// Decode unmarshals the tool input into v.
func (t ToolResponse) Decode(v any) error {
	if len(t.Input) == 0 {
		return fmt.Errorf("tool %s: empty input", t.Name)
	}
	if err := json.Unmarshal(t.Input, v); err != nil {
		return fmt.Errorf("decode tool %s input: %w", t.Name, err)
	}
	return nil
}

// Message is the normalized response. It is immutable once constructed.
type Message struct {
	kind    Kind
	payload payload
}

// FromAnthropic wraps an Anthropic-shaped payload.
func FromAnthropic(r *AnthropicResponse) *Message {
	if r == nil {
		return &Message{}
	}
	return &Message{kind: KindAnthropic, payload: r}
}

// FromOpenAI wraps an OpenAI-shaped payload.
func FromOpenAI(r *OpenAIResponse) *Message {
	if r == nil {
		return &Message{}
	}
	return &Message{kind: KindOpenAI, payload: r}
}

// Kind reports the variant detected at parse time.
func (m *Message) Kind() Kind {
	if m == nil {
		return KindUnknown
	}
	return m.kind
}

// Anthropic returns the Anthropic payload when the message holds one.
func (m *Message) Anthropic() (*AnthropicResponse, bool) {
	if m == nil {
		return nil, false
	}
	r, ok := m.payload.(*AnthropicResponse)
	return r, ok
}

// OpenAI returns the OpenAI payload when the message holds one.
func (m *Message) OpenAI() (*OpenAIResponse, bool) {
	if m == nil {
		return nil, false
	}
	r, ok := m.payload.(*OpenAIResponse)
	return r, ok
}

func (m *Message) valid() bool {
	return m != nil && m.payload != nil
}

// ID returns the vendor-assigned response identifier.
func (m *Message) ID() string {
	if !m.valid() {
		return ""
	}
	return m.payload.responseID()
}

// FirstMessage returns the reply text. When the model only requested tools it
// returns a placeholder naming the first tool; otherwise an empty string.
func (m *Message) FirstMessage() string {
	if !m.valid() {
		return ""
	}
	return m.payload.firstMessage()
}

// Role returns the sender role, or an empty string when there is none.
func (m *Message) Role() string {
	if !m.valid() {
		return ""
	}
	return m.payload.role()
}

// Model returns the model identifier reported by the vendor.
func (m *Message) Model() string {
	if !m.valid() {
		return ""
	}
	return m.payload.model()
}

// StopReason returns stop_reason or the first choice's finish_reason.
func (m *Message) StopReason() string {
	if !m.valid() {
		return ""
	}
	return m.payload.stopReason()
}

// Usage returns token counts under vendor-independent names.
func (m *Message) Usage() models.Usage {
	if !m.valid() {
		return models.Usage{}
	}
	return m.payload.usage()
}

// Tools returns every tool invocation in reply order. The boolean is false
// when the model did not ask for any tool.
func (m *Message) Tools() ([]ToolResponse, bool) {
	if !m.valid() {
		return nil, false
	}
	calls := m.payload.tools()
	if len(calls) == 0 {
		return nil, false
	}
	return calls, true
}

func (m *Message) String() string {
	if !m.valid() {
		return "response{}"
	}
	var b strings.Builder
	fmt.Fprintf(&b, "response{kind: %s, id: %s, model: %s, role: %s, stop_reason: %s",
		m.kind, m.ID(), m.Model(), m.Role(), m.StopReason())
	if calls, ok := m.Tools(); ok {
		names := make([]string, 0, len(calls))
		for _, call := range calls {
			names = append(names, call.Name)
		}
		fmt.Fprintf(&b, ", tools: [%s]", strings.Join(names, " "))
	}
	b.WriteString("}")
	return b.String()
}

// MarshalJSON emits the vendor-native payload.
func (m *Message) MarshalJSON() ([]byte, error) {
	if !m.valid() {
		return nil, errors.New("marshal response: empty message")
	}
	return json.Marshal(m.payload)
}

// UnmarshalJSON detects the vendor shape like Parse.
func (m *Message) UnmarshalJSON(data []byte) error {
	parsed, err := Parse(string(data))
	if err != nil {
		return err
	}
	*m = *parsed
	return nil
}
