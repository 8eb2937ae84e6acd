package models

import (
	"fmt"

	"checkout-service/money"
	"checkout-service/pricing"
)

// CheckoutRequest is the storefront checkout body
type CheckoutRequest struct {
	ProductType      string      `json:"productType"`
	Quantity         FlexNumber  `json:"quantity"`
	UnitPrice        FlexNumber  `json:"unitPrice"`
	PaymentMethod    string      `json:"paymentMethod"`
	InstallmentCount *FlexNumber `json:"installmentCount,omitempty"`
}

// NormalizedCheckout is a validated and priced checkout
type NormalizedCheckout struct {
	ProductType      string
	Quantity         int64 // hundredths of a unit
	UnitPrice        money.Cents
	BaseAmount       money.Cents
	Method           pricing.Method
	InstallmentCount int
	SurchargeBP      int64
	Amount           money.Cents
}

// Description is the line shown on the provider payment page
func (n NormalizedCheckout) Description() string {
	return fmt.Sprintf("%s (%s м²)", n.ProductType, money.FormatQuantity(n.Quantity))
}

// CheckoutResponse is returned to the storefront. LiqPay checkouts carry the
// form triple, PayParts checkouts a redirect URL.
type CheckoutResponse struct {
	Provider    string      `json:"provider"`
	ActionURL   string      `json:"actionUrl,omitempty"`
	Data        string      `json:"data,omitempty"`
	Signature   string      `json:"signature,omitempty"`
	RedirectURL string      `json:"redirectUrl,omitempty"`
	OrderID     string      `json:"orderId"`
	Amount      money.Cents `json:"amount"`
	Currency    string      `json:"currency"`
}

// StatusRequest asks for the current state of an order
type StatusRequest struct {
	OrderID  string `json:"orderId"`
	Provider string `json:"provider,omitempty"`
}

// StatusResponse is the normalized payment state
type StatusResponse struct {
	Provider         string       `json:"provider"`
	Status           string       `json:"status"`
	StatusKind       string       `json:"statusKind"`
	Final            bool         `json:"final"`
	OrderID          string       `json:"orderId"`
	Amount           *money.Cents `json:"amount"`
	Currency         string       `json:"currency"`
	Paytype          string       `json:"paytype"`
	ErrorDescription string       `json:"errorDescription,omitempty"`
}

// InstallmentSettingsResponse tells the storefront which credit options to show
type InstallmentSettingsResponse struct {
	CreditProvider string         `json:"creditProvider"`
	ShowMomentPart bool           `json:"showMomentPart"`
	Plans          []pricing.Plan `json:"plans"`
}

// ErrorResponse is the JSON error body
type ErrorResponse struct {
	Error string `json:"error"`
}
