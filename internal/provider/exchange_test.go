package provider

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"llm-bridge/internal/metrics"
	"llm-bridge/internal/models"
	"llm-bridge/internal/response"
)

const anthropicReply = `{"id":"msg_01","type":"message","role":"assistant","content":[{"type":"text","text":"hi"}],"model":"claude-3-haiku-20240307","stop_reason":"end_turn","stop_sequence":null,"usage":{"input_tokens":5,"output_tokens":3}}`

type fakeTransport struct {
	name   string
	vendor models.Vendor
	result Result
	err    error
	posted [][]byte
}

func (f *fakeTransport) Name() string          { return f.name }
func (f *fakeTransport) Vendor() models.Vendor { return f.vendor }

func (f *fakeTransport) Post(_ context.Context, payload []byte) (Result, error) {
	f.posted = append(f.posted, payload)
	return f.result, f.err
}

func TestClassify(t *testing.T) {
	tests := []struct {
		name   string
		result Result
		want   error
		detail string
	}{
		{
			name:   "ok",
			result: Result{StatusCode: 200, Body: "{}"},
		},
		{
			name:   "redirect is left to the parser",
			result: Result{StatusCode: 302, Body: "moved"},
		},
		{
			name:   "client error with status text",
			result: Result{StatusCode: 401, Status: "401 Unauthorized", Body: `{"error":"bad key"}`},
			want:   ErrClient,
			detail: `Status: 401 Unauthorized - Error: {"error":"bad key"}`,
		},
		{
			name:   "client error without status text",
			result: Result{StatusCode: 429, Body: "slow down"},
			want:   ErrClient,
			detail: "Status: 429 Too Many Requests - Error: slow down",
		},
		{
			name:   "server error",
			result: Result{StatusCode: 503, Body: "overloaded"},
			want:   ErrServer,
			detail: "Status: 503 Service Unavailable - Error: overloaded",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Classify(tt.result)
			if tt.want == nil {
				if err != nil {
					t.Fatalf("Classify() = %v, want nil", err)
				}
				return
			}
			if !errors.Is(err, tt.want) {
				t.Fatalf("Classify() = %v, want %v", err, tt.want)
			}
			if !strings.Contains(err.Error(), tt.detail) {
				t.Errorf("Classify() = %q, want detail %q", err.Error(), tt.detail)
			}
		})
	}
}

func TestClassifyKeepsStatusCode(t *testing.T) {
	var clientErr *ClientError
	if err := Classify(Result{StatusCode: 404}); !errors.As(err, &clientErr) || clientErr.StatusCode != 404 {
		t.Fatalf("Classify() = %#v, want *ClientError with status 404", err)
	}
	var serverErr *ServerError
	if err := Classify(Result{StatusCode: 500}); !errors.As(err, &serverErr) || serverErr.StatusCode != 500 {
		t.Fatalf("Classify() = %#v, want *ServerError with status 500", err)
	}
}

func TestExchange(t *testing.T) {
	transport := &fakeTransport{
		name:   "exchange-ok",
		vendor: models.VendorAnthropic,
		result: Result{StatusCode: 200, Body: anthropicReply},
	}

	msg, err := Exchange(context.Background(), transport, []byte(`{"model":"m"}`))
	if err != nil {
		t.Fatalf("Exchange() error = %v", err)
	}
	if msg.Kind() != response.KindAnthropic || msg.FirstMessage() != "hi" {
		t.Errorf("Exchange() = %v", msg)
	}
	if string(transport.posted[0]) != `{"model":"m"}` {
		t.Errorf("posted = %s", transport.posted[0])
	}

	ok := testutil.ToFloat64(metrics.ExchangesTotal.WithLabelValues("exchange-ok", "anthropic", metrics.OutcomeOK))
	if ok != 1 {
		t.Errorf("ok exchanges = %v, want 1", ok)
	}
	if got := testutil.ToFloat64(metrics.TokensTotal.WithLabelValues("exchange-ok", "input")); got != 5 {
		t.Errorf("input tokens = %v, want 5", got)
	}
}

func TestExchangeErrors(t *testing.T) {
	boom := errors.New("connection refused")
	tests := []struct {
		name    string
		result  Result
		err     error
		want    error
		outcome string
	}{
		{
			name:    "transport failure",
			err:     boom,
			want:    ErrRequest,
			outcome: metrics.OutcomeRequestError,
		},
		{
			name:    "transport request error kept",
			err:     &RequestError{Err: boom},
			want:    ErrRequest,
			outcome: metrics.OutcomeRequestError,
		},
		{
			name:    "client status",
			result:  Result{StatusCode: 400, Body: anthropicReply},
			want:    ErrClient,
			outcome: metrics.OutcomeClientError,
		},
		{
			name:    "server status",
			result:  Result{StatusCode: 500, Body: "oops"},
			want:    ErrServer,
			outcome: metrics.OutcomeServerError,
		},
		{
			name:    "unrecognized body",
			result:  Result{StatusCode: 200, Body: `{"hello":"world"}`},
			want:    response.ErrUnrecognizedShape,
			outcome: metrics.OutcomeParseError,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			name := "exchange-" + strings.ReplaceAll(tt.name, " ", "-")
			transport := &fakeTransport{name: name, vendor: models.VendorOpenAI, result: tt.result, err: tt.err}

			msg, err := Exchange(context.Background(), transport, []byte("{}"))
			if msg != nil {
				t.Errorf("Exchange() message = %v, want nil", msg)
			}
			if !errors.Is(err, tt.want) {
				t.Fatalf("Exchange() error = %v, want %v", err, tt.want)
			}
			if tt.err != nil && !errors.Is(err, boom) {
				t.Errorf("Exchange() error = %v, want cause preserved", err)
			}
			got := testutil.ToFloat64(metrics.ExchangesTotal.WithLabelValues(name, "openai", tt.outcome))
			if got != 1 {
				t.Errorf("%s exchanges = %v, want 1", tt.outcome, got)
			}
		})
	}
}

func TestExchangeWithoutIdentity(t *testing.T) {
	var transport anonymousTransport
	if _, err := Exchange(context.Background(), transport, nil); err != nil {
		t.Fatalf("Exchange() error = %v", err)
	}
}

type anonymousTransport struct{}

func (anonymousTransport) Post(context.Context, []byte) (Result, error) {
	return Result{StatusCode: 200, Body: anthropicReply}, nil
}
