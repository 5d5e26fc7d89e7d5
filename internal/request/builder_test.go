package request

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"math/rand/v2"
	"reflect"
	"testing"

	"llm-bridge/internal/models"
	"llm-bridge/internal/response"
	"llm-bridge/internal/tool"
)

type fakeSender struct {
	vendor       models.Vendor
	defaultModel string
	payloads     [][]byte
	reply        *response.Message
	err          error
}

func (f *fakeSender) Vendor() models.Vendor { return f.vendor }

func (f *fakeSender) DefaultModel() string { return f.defaultModel }

func (f *fakeSender) SendMessage(_ context.Context, payload []byte) (*response.Message, error) {
	f.payloads = append(f.payloads, payload)
	return f.reply, f.err
}

func decode(t *testing.T, data []byte) map[string]any {
	t.Helper()
	var out map[string]any
	if err := json.Unmarshal(data, &out); err != nil {
		t.Fatalf("rendered document is not JSON: %v\n%s", err, data)
	}
	return out
}

func TestRenderAnthropic(t *testing.T) {
	body, err := ForVendor(models.VendorAnthropic).
		Model("claude-3-haiku-20240307").
		UserMessage("Hello, Claude!").
		MaxTokens(100).
		Temperature(0.7).
		Render()
	if err != nil {
		t.Fatalf("Render() error = %v", err)
	}

	want := `{"model":"claude-3-haiku-20240307","messages":[{"role":"user","content":"Hello, Claude!"}],"max_tokens":100,"temperature":0.7,"system":""}`
	if string(body) != want {
		t.Fatalf("Render() =\n%s\nwant\n%s", body, want)
	}
}

func TestRenderDefaults(t *testing.T) {
	tests := []struct {
		vendor models.Vendor
		model  string
	}{
		{vendor: models.VendorAnthropic, model: DefaultAnthropicModel},
		{vendor: models.VendorOpenAI, model: DefaultOpenAIModel},
	}
	for _, tt := range tests {
		t.Run(string(tt.vendor), func(t *testing.T) {
			body, err := ForVendor(tt.vendor).UserMessage("hi").Render()
			if err != nil {
				t.Fatalf("Render() error = %v", err)
			}
			doc := decode(t, body)
			if doc["model"] != tt.model {
				t.Errorf("model = %v, want %s", doc["model"], tt.model)
			}
			if doc["max_tokens"] != float64(100) {
				t.Errorf("max_tokens = %v, want 100", doc["max_tokens"])
			}
			if doc["temperature"] != float64(0) {
				t.Errorf("temperature = %v, want 0", doc["temperature"])
			}
			if _, ok := doc["tools"]; ok {
				t.Errorf("tools present without any tool: %v", doc["tools"])
			}
		})
	}
}

func TestRenderWithoutSettings(t *testing.T) {
	body, err := ForVendor(models.VendorAnthropic).UserMessage("Hello, Claude!").Render()
	if err != nil {
		t.Fatalf("Render() error = %v", err)
	}

	want := `{"model":"claude-3-haiku-20240307","messages":[{"role":"user","content":"Hello, Claude!"}],"max_tokens":100,"temperature":0,"system":""}`
	if string(body) != want {
		t.Fatalf("Render() =\n%s\nwant\n%s", body, want)
	}
}

func TestRenderTemperatureRoundTrips(t *testing.T) {
	tests := []float64{
		0,
		0.7,
		0.1 + 0.2,
		5e-324,
		-2.5,
		1e-7,
		math.MaxFloat64,
		-math.MaxFloat64,
		math.SmallestNonzeroFloat64,
	}
	for _, vendor := range []models.Vendor{models.VendorAnthropic, models.VendorOpenAI} {
		for _, temp := range tests {
			t.Run(fmt.Sprintf("%s/%g", vendor, temp), func(t *testing.T) {
				body, err := ForVendor(vendor).UserMessage("hi").Temperature(temp).Render()
				if err != nil {
					t.Fatalf("Render() error = %v", err)
				}
				var doc struct {
					Temperature float64 `json:"temperature"`
				}
				if err := json.Unmarshal(body, &doc); err != nil {
					t.Fatal(err)
				}
				if doc.Temperature != temp {
					t.Errorf("temperature = %v, want %v", doc.Temperature, temp)
				}
			})
		}
	}
}

// renderParams is one combination of builder settings; apply can be called
// any number of times to get identical builders.
type renderParams struct {
	vendor      models.Vendor
	model       string
	messages    []models.Message
	maxTokens   *uint32
	temperature *float64
	system      string
	tools       []tool.Tool
}

func (p renderParams) apply() *Builder {
	b := ForVendor(p.vendor)
	if p.model != "" {
		b.Model(p.model)
	}
	for _, m := range p.messages {
		b.AddMessage(m)
	}
	if p.maxTokens != nil {
		b.MaxTokens(*p.maxTokens)
	}
	if p.temperature != nil {
		b.Temperature(*p.temperature)
	}
	if p.system != "" {
		b.SystemPrompt(p.system)
	}
	for _, tl := range p.tools {
		b.AddTool(tl)
	}
	return b
}

func randomParams(t *testing.T, rng *rand.Rand) renderParams {
	t.Helper()
	words := []string{"alpha", "beta", "gamma", "delta", "ünïcode", `"quoted"`, "tab\there", ""}
	pick := func() string { return words[rng.IntN(len(words))] }

	p := renderParams{
		vendor: []models.Vendor{models.VendorAnthropic, models.VendorOpenAI}[rng.IntN(2)],
	}
	if rng.IntN(2) == 0 {
		p.model = "model-" + pick()
	}
	for i, n := 0, 1+rng.IntN(6); i < n; i++ {
		role := models.RoleUser
		if i%2 == 1 {
			role = models.RoleAssistant
		}
		p.messages = append(p.messages, models.Message{Role: role, Content: pick() + " " + pick()})
	}
	if rng.IntN(2) == 0 {
		v := rng.Uint32()
		p.maxTokens = &v
	}
	if rng.IntN(2) == 0 {
		v := rng.NormFloat64() * 2
		p.temperature = &v
	}
	if rng.IntN(2) == 0 {
		p.system = pick()
	}
	for i, n := 0, rng.IntN(3); i < n; i++ {
		tb := tool.NewBuilder().Name(fmt.Sprintf("tool_%d", i)).Description("Tool " + pick())
		for j, m := 0, rng.IntN(5); j < m; j++ {
			name := fmt.Sprintf("p%d", rng.IntN(8))
			if rng.IntN(3) == 0 {
				tb.AddEnumParameter(name, pick(), rng.IntN(2) == 0, []string{"a", "b"})
			} else {
				tb.AddParameter(name, "string", pick(), rng.IntN(2) == 0)
			}
		}
		built, err := tb.Build()
		if err != nil {
			t.Fatal(err)
		}
		p.tools = append(p.tools, built)
	}
	return p
}

func TestRenderIsDeterministic(t *testing.T) {
	rng := rand.New(rand.NewPCG(1, 2))
	for i := 0; i < 200; i++ {
		p := randomParams(t, rng)

		b := p.apply()
		first, err := b.Render()
		if err != nil {
			t.Fatalf("case %d (%s): Render() error = %v", i, p.vendor, err)
		}
		again, err := b.Render()
		if err != nil {
			t.Fatalf("case %d: second Render() error = %v", i, err)
		}
		fresh, err := p.apply().Render()
		if err != nil {
			t.Fatalf("case %d: fresh Render() error = %v", i, err)
		}
		if !bytes.Equal(first, again) || !bytes.Equal(first, fresh) {
			t.Fatalf("case %d (%s): renders differ:\n%s\n%s\n%s", i, p.vendor, first, again, fresh)
		}
		if len(b.Messages()) != len(p.messages) {
			t.Fatalf("case %d: Render changed the builder's messages", i)
		}
	}
}

func TestRenderSenderDefaultModel(t *testing.T) {
	sender := &fakeSender{vendor: models.VendorOpenAI, defaultModel: "gpt-4o-mini"}
	body, err := New(sender).UserMessage("hi").Render()
	if err != nil {
		t.Fatalf("Render() error = %v", err)
	}
	if got := decode(t, body)["model"]; got != "gpt-4o-mini" {
		t.Fatalf("model = %v, want gpt-4o-mini", got)
	}

	body, err = New(sender).Model("gpt-4.1").UserMessage("hi").Render()
	if err != nil {
		t.Fatalf("Render() error = %v", err)
	}
	if got := decode(t, body)["model"]; got != "gpt-4.1" {
		t.Fatalf("model = %v, want explicit gpt-4.1", got)
	}
}

func TestRenderSystemPlacement(t *testing.T) {
	t.Run("openai appends system message last", func(t *testing.T) {
		b := ForVendor(models.VendorOpenAI).
			SystemPrompt("Be terse.").
			UserMessage("one").
			AssistantMessage("two").
			UserMessage("three")
		body, err := b.Render()
		if err != nil {
			t.Fatalf("Render() error = %v", err)
		}
		var doc struct {
			Messages []models.Message `json:"messages"`
			System   *string          `json:"system"`
		}
		if err := json.Unmarshal(body, &doc); err != nil {
			t.Fatal(err)
		}
		want := []models.Message{
			models.UserMessage("one"),
			models.AssistantMessage("two"),
			models.UserMessage("three"),
			models.SystemMessage("Be terse."),
		}
		if !reflect.DeepEqual(doc.Messages, want) {
			t.Errorf("messages = %+v, want %+v", doc.Messages, want)
		}
		if doc.System != nil {
			t.Errorf("openai document has a system field: %q", *doc.System)
		}
		if len(b.Messages()) != 3 {
			t.Errorf("Render mutated the builder: %d messages", len(b.Messages()))
		}
	})

	t.Run("openai omits empty system prompt", func(t *testing.T) {
		body, err := ForVendor(models.VendorOpenAI).UserMessage("hi").Render()
		if err != nil {
			t.Fatalf("Render() error = %v", err)
		}
		msgs := decode(t, body)["messages"].([]any)
		if len(msgs) != 1 {
			t.Errorf("messages = %v, want only the user turn", msgs)
		}
	})

	t.Run("anthropic keeps system out of messages", func(t *testing.T) {
		body, err := ForVendor(models.VendorAnthropic).
			SystemPrompt("Be terse.").
			UserMessage("hi").
			Render()
		if err != nil {
			t.Fatalf("Render() error = %v", err)
		}
		doc := decode(t, body)
		if doc["system"] != "Be terse." {
			t.Errorf("system = %v", doc["system"])
		}
		for _, m := range doc["messages"].([]any) {
			if m.(map[string]any)["role"] == models.RoleSystem {
				t.Errorf("anthropic messages contain a system turn: %v", m)
			}
		}
	})
}

func TestRenderTools(t *testing.T) {
	weather, err := tool.NewBuilder().
		Name("get_weather").
		Description("Get the weather").
		AddParameter("location", "string", "City", true).
		Build()
	if err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		vendor models.Vendor
		check  func(t *testing.T, entry map[string]any)
	}{
		{
			vendor: models.VendorAnthropic,
			check: func(t *testing.T, entry map[string]any) {
				if entry["name"] != "get_weather" {
					t.Errorf("name = %v", entry["name"])
				}
				if _, ok := entry["input_schema"]; !ok {
					t.Errorf("missing input_schema: %v", entry)
				}
			},
		},
		{
			vendor: models.VendorOpenAI,
			check: func(t *testing.T, entry map[string]any) {
				if entry["type"] != "function" {
					t.Errorf("type = %v", entry["type"])
				}
				fn := entry["function"].(map[string]any)
				if fn["name"] != "get_weather" {
					t.Errorf("function.name = %v", fn["name"])
				}
			},
		},
	}
	for _, tt := range tests {
		t.Run(string(tt.vendor), func(t *testing.T) {
			body, err := ForVendor(tt.vendor).UserMessage("weather?").AddTool(weather).Render()
			if err != nil {
				t.Fatalf("Render() error = %v", err)
			}
			tools, ok := decode(t, body)["tools"].([]any)
			if !ok || len(tools) != 1 {
				t.Fatalf("tools = %v, want one entry", decode(t, body)["tools"])
			}
			tt.check(t, tools[0].(map[string]any))
		})
	}
}

func TestRenderIsRepeatable(t *testing.T) {
	weather, err := tool.NewBuilder().
		Name("get_weather").
		Description("Get the weather").
		AddParameter("location", "string", "City", true).
		AddParameter("unit", "string", "Unit", true).
		AddParameter("day", "string", "Day", false).
		Build()
	if err != nil {
		t.Fatal(err)
	}

	for _, vendor := range []models.Vendor{models.VendorAnthropic, models.VendorOpenAI} {
		b := ForVendor(vendor).SystemPrompt("sys").UserMessage("hi").AddTool(weather)
		first, err := b.Render()
		if err != nil {
			t.Fatalf("%s: Render() error = %v", vendor, err)
		}
		for i := 0; i < 20; i++ {
			next, err := b.Render()
			if err != nil {
				t.Fatalf("%s: Render() error = %v", vendor, err)
			}
			if !bytes.Equal(first, next) {
				t.Fatalf("%s: render %d differs:\n%s\n%s", vendor, i, first, next)
			}
		}
	}
}

func TestRenderErrors(t *testing.T) {
	tests := []struct {
		name    string
		builder *Builder
		want    error
	}{
		{
			name:    "no messages",
			builder: ForVendor(models.VendorAnthropic).Model("m").MaxTokens(10),
			want:    ErrMissingMessages,
		},
		{
			name:    "nan temperature",
			builder: ForVendor(models.VendorOpenAI).UserMessage("hi").Temperature(math.NaN()),
			want:    ErrInvalidUsage,
		},
		{
			name:    "infinite temperature",
			builder: ForVendor(models.VendorAnthropic).UserMessage("hi").Temperature(math.Inf(1)),
			want:    ErrInvalidUsage,
		},
		{
			name:    "negative infinite temperature",
			builder: ForVendor(models.VendorOpenAI).UserMessage("hi").Temperature(math.Inf(-1)),
			want:    ErrInvalidUsage,
		},
		{
			name:    "unknown vendor",
			builder: ForVendor(models.Vendor("gemini")).UserMessage("hi"),
			want:    ErrInvalidUsage,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			body, err := tt.builder.Render()
			if !errors.Is(err, tt.want) {
				t.Fatalf("Render() error = %v, want %v", err, tt.want)
			}
			if body != nil {
				t.Errorf("Render() body = %s, want nil", body)
			}
		})
	}
}

func TestSend(t *testing.T) {
	reply, err := response.Parse(`{"id":"msg_1","type":"message","role":"assistant","content":[{"type":"text","text":"hello"}],"model":"claude-3-haiku-20240307","stop_reason":"end_turn","stop_sequence":null,"usage":{"input_tokens":5,"output_tokens":1}}`)
	if err != nil {
		t.Fatal(err)
	}
	sender := &fakeSender{vendor: models.VendorAnthropic, reply: reply}

	got, err := New(sender).UserMessage("hi").Send(context.Background())
	if err != nil {
		t.Fatalf("Send() error = %v", err)
	}
	if got.FirstMessage() != "hello" {
		t.Errorf("FirstMessage() = %q", got.FirstMessage())
	}
	if len(sender.payloads) != 1 {
		t.Fatalf("sender called %d times, want 1", len(sender.payloads))
	}
	if decode(t, sender.payloads[0])["model"] != DefaultAnthropicModel {
		t.Errorf("payload = %s", sender.payloads[0])
	}
}

func TestSendDoesNotCallSenderOnInvalidRequest(t *testing.T) {
	sender := &fakeSender{vendor: models.VendorOpenAI}
	if _, err := New(sender).Send(context.Background()); !errors.Is(err, ErrMissingMessages) {
		t.Fatalf("Send() error = %v, want ErrMissingMessages", err)
	}
	if len(sender.payloads) != 0 {
		t.Fatalf("sender called %d times for an invalid request", len(sender.payloads))
	}
}

func TestSendPropagatesSenderError(t *testing.T) {
	boom := errors.New("boom")
	sender := &fakeSender{vendor: models.VendorOpenAI, err: boom}
	if _, err := New(sender).UserMessage("hi").Send(context.Background()); !errors.Is(err, boom) {
		t.Fatalf("Send() error = %v, want %v", err, boom)
	}
}

func TestSendWithoutSender(t *testing.T) {
	_, err := ForVendor(models.VendorOpenAI).UserMessage("hi").Send(context.Background())
	if !errors.Is(err, ErrInvalidUsage) {
		t.Fatalf("Send() error = %v, want ErrInvalidUsage", err)
	}
}
