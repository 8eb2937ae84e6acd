// Package orderid generates merchant order ids and routes them back to a
// provider by prefix alone.
package orderid

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"strings"
	"time"
)

// Prefix identifies the provider and merchant type that issued an order id.
type Prefix string

const (
	// PrefixLiqPay is used for every LiqPay checkout, installments included.
	PrefixLiqPay Prefix = "VS"
	// PrefixPaypart is the PayParts "PP" merchant type (short installments).
	PrefixPaypart Prefix = "PP"
	// PrefixMomentPart is the PayParts "II" merchant type (long installments).
	PrefixMomentPart Prefix = "II"
)

// Provider names used in API responses and routing.
const (
	ProviderLiqPay   = "liqpay"
	ProviderPayParts = "payparts"
)

var now = time.Now

// New returns <prefix>-<epoch_ms>-<10 hex chars>.
func New(prefix Prefix) string {
	var entropy [5]byte
	if _, err := rand.Read(entropy[:]); err != nil {
		panic(fmt.Sprintf("orderid: read random: %v", err))
	}
	return fmt.Sprintf("%s-%d-%s", prefix, now().UnixMilli(), hex.EncodeToString(entropy[:]))
}

// Route is the result of classifying an order id.
type Route struct {
	Provider string
	Prefix   Prefix
}

// Infer classifies id by prefix. Ids without a PayParts prefix belong to LiqPay.
func Infer(id string) Route {
	id = strings.TrimSpace(id)
	switch {
	case strings.HasPrefix(id, string(PrefixPaypart)+"-"):
		return Route{Provider: ProviderPayParts, Prefix: PrefixPaypart}
	case strings.HasPrefix(id, string(PrefixMomentPart)+"-"):
		return Route{Provider: ProviderPayParts, Prefix: PrefixMomentPart}
	default:
		return Route{Provider: ProviderLiqPay, Prefix: PrefixLiqPay}
	}
}
