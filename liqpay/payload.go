// Package liqpay builds, signs and verifies LiqPay API payloads.
//
// The wire protocol sends data=base64(JSON payload) and
// signature=base64(sha1(private_key + data + private_key)). Inbound signatures
// are also accepted under sha3-256.
package liqpay

import (
	"encoding/base64"
	"fmt"
	"net/url"

	jsoniter "github.com/json-iterator/go"

	"checkout-service/apperr"
	"checkout-service/models"
	"checkout-service/money"
	"checkout-service/orderid"
	"checkout-service/pricing"
)

const (
	// Version is the LiqPay API version.
	Version = 3
	// Currency is the only supported currency.
	Currency = "UAH"

	DefaultCheckoutURL = "https://www.liqpay.ua/api/3/checkout"
	DefaultAPIURL      = "https://www.liqpay.ua/api/request"
)

// Action values used by this service.
const (
	ActionPay            = "pay"
	ActionStatus         = "status"
	ActionHoldCompletion = "hold_completion"
)

// ErrUndecodableData is returned for callback data that is not base64 JSON.
var ErrUndecodableData = apperr.Validation("invalid data")

// codec matches encoding/json output (sorted keys) and decodes numbers as
// json.Number so amounts keep their exact text.
var codec = jsoniter.Config{
	EscapeHTML:             true,
	SortMapKeys:            true,
	ValidateJsonRawMessage: true,
	UseNumber:              true,
}.Froze()

// Payload is the flat key-value body of a LiqPay request.
type Payload map[string]any

// OrderID returns the order_id field.
func (p Payload) OrderID() string {
	return models.AsString(p["order_id"])
}

// Action returns the action field.
func (p Payload) Action() string {
	return models.AsString(p["action"])
}

// Paytypes maps a storefront method onto the LiqPay paytypes filter. Full
// payments get no filter.
func Paytypes(m pricing.Method) string {
	switch m {
	case pricing.MethodPaypart:
		return "paypart"
	case pricing.MethodMomentPart:
		return "moment_part"
	default:
		return ""
	}
}

// BuildCheckoutPayload returns a pay payload with a fresh order id. The order
// id is appended to resultURL so the storefront result page always receives it.
func BuildCheckoutPayload(n models.NormalizedCheckout, publicKey, resultURL, callbackURL string) (Payload, error) {
	orderID := orderid.New(orderid.PrefixLiqPay)

	result, err := withQuery(resultURL, "order_id", orderID)
	if err != nil {
		return nil, err
	}

	p := Payload{
		"version":     Version,
		"public_key":  publicKey,
		"action":      ActionPay,
		"amount":      n.Amount,
		"currency":    Currency,
		"description": n.Description(),
		"order_id":    orderID,
		"language":    "uk",
		"result_url":  result,
		"server_url":  callbackURL,
	}
	if pt := Paytypes(n.Method); pt != "" {
		p["paytypes"] = pt
	}
	return p, nil
}

// BuildStatusPayload returns a status query for orderID.
func BuildStatusPayload(orderID, publicKey string) Payload {
	return Payload{
		"version":    Version,
		"public_key": publicKey,
		"action":     ActionStatus,
		"order_id":   orderID,
	}
}

// BuildHoldCompletionPayload completes a hold for the given amount.
func BuildHoldCompletionPayload(orderID string, amount money.Cents, publicKey string) Payload {
	return Payload{
		"version":    Version,
		"public_key": publicKey,
		"action":     ActionHoldCompletion,
		"order_id":   orderID,
		"amount":     amount,
	}
}

// Encode serializes p as base64(JSON).
func Encode(p Payload) (string, error) {
	raw, err := codec.Marshal(p)
	if err != nil {
		return "", fmt.Errorf("encode liqpay payload: %w", err)
	}
	return base64.StdEncoding.EncodeToString(raw), nil
}

// Decode parses base64(JSON) into a map.
func Decode(data string) (map[string]any, error) {
	raw, err := base64.StdEncoding.DecodeString(data)
	if err != nil {
		return nil, ErrUndecodableData
	}
	var out map[string]any
	if err := codec.Unmarshal(raw, &out); err != nil || out == nil {
		return nil, ErrUndecodableData
	}
	return out, nil
}

func withQuery(raw, key, value string) (string, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return "", fmt.Errorf("invalid result url: %w", err)
	}
	q := u.Query()
	q.Set(key, value)
	u.RawQuery = q.Encode()
	return u.String(), nil
}
