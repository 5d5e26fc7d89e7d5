package response

import (
	"encoding/json"
	"errors"
	"fmt"

	"llm-bridge/internal/models"
)

const (
	BlockTypeText    = "text"
	BlockTypeToolUse = "tool_use"
)

// AnthropicResponse models the Anthropic /v1/messages response payload.
type AnthropicResponse struct {
	ID           string         `json:"id"`
	Type         string         `json:"type,omitempty"`
	Role         string         `json:"role"`
	Content      []ContentBlock `json:"content"`
	Model        string         `json:"model"`
	StopReason   string         `json:"stop_reason"`
	StopSequence *string        `json:"stop_sequence"`
	Usage        AnthropicUsage `json:"usage"`
}

// AnthropicUsage mirrors the Anthropic usage block.
type AnthropicUsage struct {
	InputTokens  int `json:"input_tokens"`
	OutputTokens int `json:"output_tokens"`
}

// ContentBlock is one unit of an Anthropic reply: literal text or a tool
// invocation, discriminated by Type.
type ContentBlock struct {
	Type string

	// Text is set for text blocks.
	Text string

	// ID, Name and Input are set for tool_use blocks.
	ID    string
	Name  string
	Input json.RawMessage
}

// TextBlock builds a text content block.
func TextBlock(text string) ContentBlock {
	return ContentBlock{Type: BlockTypeText, Text: text}
}

// ToolUseBlock builds a tool_use content block.
func ToolUseBlock(id, name string, input json.RawMessage) ContentBlock {
	return ContentBlock{Type: BlockTypeToolUse, ID: id, Name: name, Input: input}
}

// UnmarshalJSON decodes the block variant selected by its type field.
func (b *ContentBlock) UnmarshalJSON(data []byte) error {
	type alias struct {
		Type  string          `json:"type"`
		Text  *string         `json:"text"`
		ID    *string         `json:"id"`
		Name  *string         `json:"name"`
		Input json.RawMessage `json:"input"`
	}

	var raw alias
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("decode content block: %w", err)
	}

	switch raw.Type {
	case BlockTypeText:
		if raw.Text == nil {
			return errors.New("text content block is missing text")
		}
		*b = TextBlock(*raw.Text)
	case BlockTypeToolUse:
		if raw.ID == nil || raw.Name == nil || len(raw.Input) == 0 {
			return errors.New("tool_use content block requires id, name and input")
		}
		*b = ToolUseBlock(*raw.ID, *raw.Name, append(json.RawMessage(nil), raw.Input...))
	default:
		return fmt.Errorf("unsupported content block type %q", raw.Type)
	}
	return nil
}

// MarshalJSON emits only the fields that belong to the block's variant.
func (b ContentBlock) MarshalJSON() ([]byte, error) {
	switch b.Type {
	case BlockTypeText:
		return json.Marshal(struct {
			Type string `json:"type"`
			Text string `json:"text"`
		}{b.Type, b.Text})
	case BlockTypeToolUse:
		input := b.Input
		if len(input) == 0 {
			input = json.RawMessage("null")
		}
		return json.Marshal(struct {
			Type  string          `json:"type"`
			ID    string          `json:"id"`
			Name  string          `json:"name"`
			Input json.RawMessage `json:"input"`
		}{b.Type, b.ID, b.Name, input})
	default:
		return nil, fmt.Errorf("unsupported content block type %q", b.Type)
	}
}

func (r *AnthropicResponse) responseID() string {
	return r.ID
}

func (r *AnthropicResponse) firstMessage() string {
	for _, block := range r.Content {
		if block.Type == BlockTypeText {
			return block.Text
		}
	}
	for _, block := range r.Content {
		if block.Type == BlockTypeToolUse {
			return functionCallPlaceholder(block.Name)
		}
	}
	return ""
}

func (r *AnthropicResponse) role() string {
	return r.Role
}

func (r *AnthropicResponse) model() string {
	return r.Model
}

func (r *AnthropicResponse) stopReason() string {
	return r.StopReason
}

func (r *AnthropicResponse) usage() models.Usage {
	return models.Usage{
		InputTokens:  r.Usage.InputTokens,
		OutputTokens: r.Usage.OutputTokens,
	}
}

func (r *AnthropicResponse) tools() []ToolResponse {
	var out []ToolResponse
	for _, block := range r.Content {
		if block.Type != BlockTypeToolUse {
			continue
		}
		out = append(out, ToolResponse{
			ID:    block.ID,
			Name:  block.Name,
			Input: append(json.RawMessage(nil), block.Input...),
		})
	}
	return out
}
