package response

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/tidwall/gjson"
)

// ErrUnrecognizedShape indicates a body that matches no known vendor shape.
var ErrUnrecognizedShape = errors.New("response does not match a known vendor shape")

// ParseError reports a response body that could not be normalized.
type ParseError struct {
	Body string
	Err  error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse response: %v", e.Err)
}

func (e *ParseError) Unwrap() []error {
	return []error{ErrUnrecognizedShape, e.Err}
}

var (
	anthropicFields = []string{
		"id", "role", "content", "model", "stop_reason",
		"usage.input_tokens", "usage.output_tokens",
	}
	openAIFields = []string{
		"id", "object", "created", "model", "choices",
		"usage.prompt_tokens", "usage.completion_tokens", "usage.total_tokens",
	}
	openAIChoiceFields = []string{"index", "message", "message.role", "finish_reason"}
)

// Parse normalizes a raw response body. Shapes are tried in order and the
// first structural match wins; the two vendors never share the fields that
// decide a match.
func Parse(text string) (*Message, error) {
	if !gjson.Valid(text) {
		return nil, &ParseError{Body: text, Err: errors.New("body is not valid JSON")}
	}
	root := gjson.Parse(text)
	if !root.IsObject() {
		return nil, &ParseError{Body: text, Err: fmt.Errorf("body is a JSON %s, not an object", root.Type)}
	}

	anthropic, errA := parseAnthropic(root)
	if errA == nil {
		return FromAnthropic(anthropic), nil
	}

	openai, errO := parseOpenAI(root)
	if errO == nil {
		return FromOpenAI(openai), nil
	}

	return nil, &ParseError{
		Body: text,
		Err: errors.Join(
			fmt.Errorf("anthropic shape: %w", errA),
			fmt.Errorf("openai shape: %w", errO),
		),
	}
}

func parseAnthropic(root gjson.Result) (*AnthropicResponse, error) {
	if err := requireFields(root, anthropicFields...); err != nil {
		return nil, err
	}
	if !root.Get("content").IsArray() {
		return nil, errors.New("content is not an array")
	}
	if err := requireCounts(root, "usage.input_tokens", "usage.output_tokens"); err != nil {
		return nil, err
	}

	var resp AnthropicResponse
	if err := json.Unmarshal([]byte(root.Raw), &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func parseOpenAI(root gjson.Result) (*OpenAIResponse, error) {
	if err := requireFields(root, openAIFields...); err != nil {
		return nil, err
	}
	if err := requireCounts(root, "usage.prompt_tokens", "usage.completion_tokens", "usage.total_tokens"); err != nil {
		return nil, err
	}
	choices := root.Get("choices")
	if !choices.IsArray() {
		return nil, errors.New("choices is not an array")
	}

	for i, choice := range choices.Array() {
		if err := requireFields(choice, openAIChoiceFields...); err != nil {
			return nil, fmt.Errorf("choices[%d]: %w", i, err)
		}
	}

	var resp OpenAIResponse
	if err := json.Unmarshal([]byte(root.Raw), &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// requireFields checks that every path exists and is not null.
func requireFields(obj gjson.Result, paths ...string) error {
	var missing []string
	for i, value := range gjson.GetMany(obj.Raw, paths...) {
		if !value.Exists() || value.Type == gjson.Null {
			missing = append(missing, paths[i])
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing fields: %s", strings.Join(missing, ", "))
	}
	return nil
}

// requireCounts checks that every path holds a non-negative integer.
func requireCounts(obj gjson.Result, paths ...string) error {
	for i, value := range gjson.GetMany(obj.Raw, paths...) {
		if value.Type != gjson.Number || value.Num < 0 || value.Num != math.Trunc(value.Num) {
			return fmt.Errorf("%s must be a non-negative integer, got %s", paths[i], value.Raw)
		}
	}
	return nil
}
