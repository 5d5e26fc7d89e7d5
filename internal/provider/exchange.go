package provider

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"llm-bridge/internal/metrics"
	"llm-bridge/internal/models"
	"llm-bridge/internal/response"
)

// Result is what a transport observed: a status and the raw body text.
type Result struct {
	StatusCode int
	// Status is the status line text, e.g. "404 Not Found". Optional.
	Status string
	Body   string
}

// Transport posts a rendered document to a vendor endpoint. It returns a
// Result for every response it receives, whatever the status, and a
// *RequestError only when no status was obtained.
type Transport interface {
	Post(ctx context.Context, payload []byte) (Result, error)
}

// statusLine renders "<code> <text>" when the transport did not keep one.
func (r Result) statusLine() string {
	if r.Status != "" {
		return r.Status
	}
	return fmt.Sprintf("%d %s", r.StatusCode, http.StatusText(r.StatusCode))
}

// Classify maps 4xx and 5xx results to typed errors. Any other status is left
// to the response parser.
func Classify(result Result) error {
	detail := fmt.Sprintf("Status: %s - Error: %s", result.statusLine(), result.Body)
	switch {
	case result.StatusCode >= 400 && result.StatusCode < 500:
		return &ClientError{StatusCode: result.StatusCode, Detail: detail}
	case result.StatusCode >= 500 && result.StatusCode < 600:
		return &ServerError{StatusCode: result.StatusCode, Detail: detail}
	default:
		return nil
	}
}

// Exchange performs one round trip: post, classify the status, then parse the
// body. Nothing is retried.
func Exchange(ctx context.Context, t Transport, payload []byte) (*response.Message, error) {
	name, vendor := describe(t)
	logger := slog.With("provider", name, "vendor", vendor)
	start := time.Now()

	result, err := t.Post(ctx, payload)
	if err != nil {
		metrics.ObserveExchange(name, vendor, metrics.OutcomeRequestError, time.Since(start))
		var reqErr *RequestError
		if !errors.As(err, &reqErr) {
			err = &RequestError{Err: err}
		}
		logger.Error("vendor request failed", "error", err)
		return nil, err
	}

	if err := Classify(result); err != nil {
		outcome := metrics.OutcomeServerError
		if errors.Is(err, ErrClient) {
			outcome = metrics.OutcomeClientError
		}
		metrics.ObserveExchange(name, vendor, outcome, time.Since(start))
		logger.Error("vendor returned an error status", "status", result.StatusCode, "error", err)
		return nil, err
	}

	msg, err := response.Parse(result.Body)
	if err != nil {
		metrics.ObserveExchange(name, vendor, metrics.OutcomeParseError, time.Since(start))
		logger.Error("vendor response not understood", "status", result.StatusCode, "error", err)
		return nil, err
	}

	metrics.ObserveExchange(name, vendor, metrics.OutcomeOK, time.Since(start))
	metrics.AddTokens(name, msg.Usage())
	logger.Debug("vendor exchange complete",
		"id", msg.ID(),
		"kind", msg.Kind(),
		"stop_reason", msg.StopReason(),
		"duration", time.Since(start),
	)
	return msg, nil
}

// describe reads metric labels from transports that carry provider identity.
func describe(t Transport) (string, models.Vendor) {
	name, vendor := "unknown", models.Vendor("unknown")
	if named, ok := t.(interface{ Name() string }); ok {
		name = named.Name()
	}
	if vendored, ok := t.(interface{ Vendor() models.Vendor }); ok {
		vendor = vendored.Vendor()
	}
	return name, vendor
}
