package payparts

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	jsoniter "github.com/json-iterator/go"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"checkout-service/apperr"
	"checkout-service/monitoring"
)

var json = jsoniter.Config{
	EscapeHTML:             true,
	SortMapKeys:            true,
	ValidateJsonRawMessage: true,
	UseNumber:              true,
}.Froze()

// Client calls the PayParts JSON API.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient returns a client with an instrumented transport and no retries.
func NewClient(baseURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		baseURL: NormalizeBaseURL(baseURL),
		httpClient: &http.Client{
			Transport: otelhttp.NewTransport(http.DefaultTransport),
			Timeout:   timeout,
		},
	}
}

// BaseURL is the normalized API root.
func (c *Client) BaseURL() string { return c.baseURL }

// CreatePayment posts a signed create request.
func (c *Client) CreatePayment(ctx context.Context, req CreatePaymentRequest) (CreatePaymentResponse, error) {
	var out CreatePaymentResponse
	err := c.call(ctx, "create", "/payment/create", req, &out)
	return out, err
}

// PaymentState posts a signed state request.
func (c *Client) PaymentState(ctx context.Context, req StateRequest) (StateResponse, error) {
	var out StateResponse
	err := c.call(ctx, "state", "/payment/state", req, &out)
	return out, err
}

func (c *Client) call(ctx context.Context, action, path string, payload, out any) error {
	span := trace.SpanFromContext(ctx)
	span.SetAttributes(
		attribute.String("external.service", "payparts"),
		attribute.String("payparts.action", action),
	)

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encode payparts %s request: %w", action, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build payparts %s request: %w", action, err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Accept-Encoding", "UTF-8")
	req.Header.Set("Content-Type", "application/json; charset=UTF-8")

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	duration := time.Since(start).Seconds()
	if err != nil {
		c.record(ctx, action, "error", duration)
		span.SetAttributes(attribute.String("external.status", "error"))
		return apperr.Upstream("Не вдалося виконати запит до сервісу кредитування", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		c.record(ctx, action, "error", duration)
		return apperr.Upstream("Не вдалося прочитати відповідь сервісу кредитування", err)
	}

	// A non-JSON body is reported before the status so the snippet is kept.
	if err := json.Unmarshal(raw, out); err != nil {
		c.record(ctx, action, "failed", duration)
		span.SetAttributes(attribute.String("external.status", "failed"))
		return apperr.Upstream("Сервіс кредитування повернув неочікувану відповідь: "+apperr.Snippet(raw), err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		c.record(ctx, action, "failed", duration)
		span.SetAttributes(
			attribute.Int("external.status_code", resp.StatusCode),
			attribute.String("external.status", "failed"),
		)
		return apperr.Upstream(
			"Не вдалося виконати запит до сервісу кредитування",
			fmt.Errorf("status %d: %s", resp.StatusCode, apperr.Snippet(raw)),
		)
	}

	c.record(ctx, action, "success", duration)
	span.SetAttributes(attribute.String("external.status", "success"))
	return nil
}

func (c *Client) record(ctx context.Context, action, status string, seconds float64) {
	monitoring.ExternalCallDuration.Record(ctx, seconds,
		metric.WithAttributes(
			attribute.String("provider", "payparts"),
			attribute.String("action", action),
			attribute.String("status", status),
		),
	)
}
