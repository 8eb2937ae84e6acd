package liqpay

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"checkout-service/apperr"
	"checkout-service/logging"
	"checkout-service/monitoring"
)

// Client calls the LiqPay server-to-server API.
type Client struct {
	apiURL     string
	publicKey  string
	privateKey string
	httpClient *http.Client
}

// NewClient returns a client with an instrumented transport. Requests are
// never retried; timeout bounds each call.
func NewClient(apiURL, publicKey, privateKey string, timeout time.Duration) *Client {
	if apiURL == "" {
		apiURL = DefaultAPIURL
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		apiURL:     apiURL,
		publicKey:  publicKey,
		privateKey: privateKey,
		httpClient: &http.Client{
			Transport: otelhttp.NewTransport(http.DefaultTransport),
			Timeout:   timeout,
		},
	}
}

// PublicKey is the merchant public key payloads are built with.
func (c *Client) PublicKey() string { return c.publicKey }

// Status queries the current state of orderID.
func (c *Client) Status(ctx context.Context, orderID string) (Transaction, error) {
	return c.Request(ctx, BuildStatusPayload(orderID, c.publicKey))
}

// Request signs p and posts it as a form to the API endpoint.
func (c *Client) Request(ctx context.Context, p Payload) (Transaction, error) {
	action := p.Action()
	span := trace.SpanFromContext(ctx)
	span.SetAttributes(
		attribute.String("external.service", "liqpay"),
		attribute.String("liqpay.action", action),
		attribute.String("payment.order_id", p.OrderID()),
	)

	signed, err := SignPayload(p, c.privateKey)
	if err != nil {
		return Transaction{}, err
	}

	form := url.Values{}
	form.Set("data", signed.Data)
	form.Set("signature", signed.Signature)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.apiURL, strings.NewReader(form.Encode()))
	if err != nil {
		return Transaction{}, fmt.Errorf("build liqpay request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	duration := time.Since(start).Seconds()
	if err != nil {
		c.record(ctx, action, "error", duration)
		span.SetAttributes(attribute.String("external.status", "error"))
		return Transaction{}, apperr.Upstream("Не вдалося виконати запит до LiqPay", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		c.record(ctx, action, "error", duration)
		return Transaction{}, apperr.Upstream("Не вдалося прочитати відповідь LiqPay", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		c.record(ctx, action, "failed", duration)
		span.SetAttributes(
			attribute.Int("external.status_code", resp.StatusCode),
			attribute.String("external.status", "failed"),
		)
		return Transaction{}, apperr.Upstream(
			fmt.Sprintf("LiqPay повернув статус %d", resp.StatusCode),
			fmt.Errorf("body: %s", apperr.Snippet(body)),
		)
	}

	var decoded map[string]any
	if err := codec.Unmarshal(body, &decoded); err != nil || decoded == nil {
		c.record(ctx, action, "failed", duration)
		return Transaction{}, apperr.Upstream(
			"LiqPay повернув неочікувану відповідь: "+apperr.Snippet(body),
			err,
		)
	}

	c.record(ctx, action, "success", duration)
	tx := TransactionFromMap(decoded)
	span.SetAttributes(
		attribute.String("external.status", "success"),
		attribute.String("liqpay.status", string(tx.Status)),
	)

	if tx.Result == "error" {
		logging.FromContext(ctx).Warn("liqpay_api_error",
			zap.String("action", action),
			zap.String("order_id", p.OrderID()),
			zap.String("err_code", tx.ErrCode),
			zap.String("err_description", tx.ErrDescription),
		)
	}
	return tx, nil
}

func (c *Client) record(ctx context.Context, action, status string, seconds float64) {
	monitoring.ExternalCallDuration.Record(ctx, seconds,
		metric.WithAttributes(
			attribute.String("provider", "liqpay"),
			attribute.String("action", action),
			attribute.String("status", status),
		),
	)
}
