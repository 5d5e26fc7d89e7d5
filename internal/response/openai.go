package response

import (
	"encoding/json"

	"llm-bridge/internal/models"
)

// OpenAIResponse models the OpenAI chat completion response payload.
type OpenAIResponse struct {
	ID                string         `json:"id"`
	Object            string         `json:"object"`
	Created           int64          `json:"created"`
	Model             string         `json:"model"`
	Choices           []OpenAIChoice `json:"choices"`
	Usage             OpenAIUsage    `json:"usage"`
	SystemFingerprint string         `json:"system_fingerprint,omitempty"`
}

// OpenAIChoice represents a single choice in the response payload.
type OpenAIChoice struct {
	Index        int             `json:"index"`
	Message      OpenAIMessage   `json:"message"`
	Logprobs     json.RawMessage `json:"logprobs,omitempty"`
	FinishReason string          `json:"finish_reason"`
}

// OpenAIMessage is the assistant message of a choice. Content is nil when the
// model answered with tool calls only.
type OpenAIMessage struct {
	Role      string           `json:"role"`
	Content   *string          `json:"content"`
	ToolCalls []OpenAIToolCall `json:"tool_calls,omitempty"`
}

// OpenAIToolCall is a function invocation requested by the model.
type OpenAIToolCall struct {
	ID       string         `json:"id"`
	Type     string         `json:"type"`
	Function OpenAIFunction `json:"function"`
}

// OpenAIFunction carries the function name and its JSON-encoded arguments.
type OpenAIFunction struct {
	Name      string `json:"name"`
	Arguments string `json:"arguments"`
}

// OpenAIUsage mirrors the token usage block in OpenAI responses.
type OpenAIUsage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

func (r *OpenAIResponse) responseID() string {
	return r.ID
}

func (r *OpenAIResponse) firstMessage() string {
	if len(r.Choices) == 0 {
		return ""
	}
	msg := r.Choices[0].Message
	if msg.Content != nil {
		return *msg.Content
	}
	if len(msg.ToolCalls) > 0 {
		return functionCallPlaceholder(msg.ToolCalls[0].Function.Name)
	}
	return ""
}

func (r *OpenAIResponse) role() string {
	if len(r.Choices) == 0 {
		return ""
	}
	return r.Choices[0].Message.Role
}

func (r *OpenAIResponse) model() string {
	return r.Model
}

func (r *OpenAIResponse) stopReason() string {
	if len(r.Choices) == 0 {
		return ""
	}
	return r.Choices[0].FinishReason
}

func (r *OpenAIResponse) usage() models.Usage {
	return models.Usage{
		InputTokens:  r.Usage.PromptTokens,
		OutputTokens: r.Usage.CompletionTokens,
	}
}

func (r *OpenAIResponse) tools() []ToolResponse {
	var out []ToolResponse
	for _, choice := range r.Choices {
		for _, call := range choice.Message.ToolCalls {
			out = append(out, ToolResponse{
				ID:    call.ID,
				Name:  call.Function.Name,
				Input: decodeArguments(call.Function.Arguments),
			})
		}
	}
	return out
}

// decodeArguments keeps the arguments string as raw JSON, falling back to
// null when the model produced something that is not valid JSON.
func decodeArguments(arguments string) json.RawMessage {
	if !json.Valid([]byte(arguments)) {
		return json.RawMessage("null")
	}
	return json.RawMessage(arguments)
}
