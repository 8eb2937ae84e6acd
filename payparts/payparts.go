// Package payparts talks to the PrivatBank PayParts installment-credit API.
//
// Every request and response is signed with
// base64(sha1(password + field1 + field2 + ... + password)); field order and
// the absence of separators are part of the wire contract.
package payparts

import (
	"net/url"
	"strconv"
	"strings"

	"checkout-service/money"
	"checkout-service/orderid"
	"checkout-service/pricing"
	"checkout-service/signature"
)

// DefaultBaseURL is the production API root.
const DefaultBaseURL = "https://payparts2.privatbank.ua/ipp/v2"

// Published sandbox store. Payments created with it never settle.
const (
	DemoStoreID  = "4AAD1369CF734B64B70F"
	DemoPassword = "75bef16bfdce4d0e9c0ad5a19b9940df"
)

// MerchantType selects the PayParts credit product.
type MerchantType string

const (
	// MerchantPaypart is "оплата частинами", interest-free short installments.
	MerchantPaypart MerchantType = "PP"
	// MerchantMomentPart is "миттєва розстрочка", long installments.
	MerchantMomentPart MerchantType = "II"
)

// MerchantTypeFor maps a deferred payment method onto a merchant type.
func MerchantTypeFor(m pricing.Method) MerchantType {
	if m == pricing.MethodMomentPart {
		return MerchantMomentPart
	}
	return MerchantPaypart
}

// MethodFor is the inverse of MerchantTypeFor.
func MethodFor(t MerchantType) pricing.Method {
	if t == MerchantMomentPart {
		return pricing.MethodMomentPart
	}
	return pricing.MethodPaypart
}

// NewOrderID returns <TYPE>-<epoch_ms>-<hex>. The prefix routes later status
// queries back to PayParts.
func NewOrderID(t MerchantType) string {
	return orderid.New(orderid.Prefix(t))
}

// NormalizeBaseURL trims trailing slashes and applies the default.
func NormalizeBaseURL(base string) string {
	base = strings.TrimSpace(base)
	if base == "" {
		base = DefaultBaseURL
	}
	return strings.TrimRight(base, "/")
}

// CheckoutURL is the page the customer is redirected to after create.
func CheckoutURL(base, token string) string {
	return NormalizeBaseURL(base) + "/payment?token=" + url.QueryEscape(token)
}

// Product is one line item of a payment.
type Product struct {
	Name  string      `json:"name"`
	Count int         `json:"count"`
	Price money.Cents `json:"price"`
}

// BuildProducts returns the single line item the storefront sells.
func BuildProducts(productType string, quantity int64, amount money.Cents) []Product {
	return []Product{{
		Name:  productType + " (" + money.FormatQuantity(quantity) + " м²)",
		Count: 1,
		Price: amount,
	}}
}

func productsString(products []Product) string {
	var b strings.Builder
	for _, p := range products {
		b.WriteString(p.Name)
		b.WriteString(strconv.Itoa(p.Count))
		b.WriteString(centsText(p.Price))
	}
	return b.String()
}

func centsText(c money.Cents) string {
	return strconv.FormatInt(int64(c), 10)
}

func sign(password string, fields ...string) string {
	return signature.Sandwich(signature.SHA1, password, fields...)
}

// CreatePaymentParams are the inputs of a create-payment request.
type CreatePaymentParams struct {
	StoreID      string
	Password     string
	OrderID      string
	Amount       money.Cents
	PartsCount   int
	MerchantType MerchantType
	Products     []Product
	ResponseURL  string
	RedirectURL  string
}

// CreatePaymentRequest is the JSON body of POST /payment/create.
type CreatePaymentRequest struct {
	StoreID      string       `json:"storeId"`
	OrderID      string       `json:"orderId"`
	Amount       money.Cents  `json:"amount"`
	PartsCount   int          `json:"partsCount"`
	MerchantType MerchantType `json:"merchantType"`
	Products     []Product    `json:"products"`
	ResponseURL  string       `json:"responseUrl"`
	RedirectURL  string       `json:"redirectUrl"`
	Signature    string       `json:"signature"`
}

// BuildCreatePaymentRequest signs
// password+storeId+orderId+amountCents+partsCount+merchantType+responseUrl+redirectUrl+products+password.
func BuildCreatePaymentRequest(p CreatePaymentParams) CreatePaymentRequest {
	sig := sign(p.Password,
		p.StoreID,
		p.OrderID,
		centsText(p.Amount),
		strconv.Itoa(p.PartsCount),
		string(p.MerchantType),
		p.ResponseURL,
		p.RedirectURL,
		productsString(p.Products),
	)
	return CreatePaymentRequest{
		StoreID:      p.StoreID,
		OrderID:      p.OrderID,
		Amount:       p.Amount,
		PartsCount:   p.PartsCount,
		MerchantType: p.MerchantType,
		Products:     p.Products,
		ResponseURL:  p.ResponseURL,
		RedirectURL:  p.RedirectURL,
		Signature:    sig,
	}
}

// StateRequest is the JSON body of POST /payment/state.
type StateRequest struct {
	StoreID    string `json:"storeId"`
	OrderID    string `json:"orderId"`
	Signature  string `json:"signature"`
	ShowAmount bool   `json:"showAmount,omitempty"`
	ShowInfo   bool   `json:"showInfo,omitempty"`
	ShowRefund bool   `json:"showRefund,omitempty"`
}

// BuildStateRequest signs password+storeId+orderId+password.
func BuildStateRequest(storeID, orderID, password string) StateRequest {
	return StateRequest{
		StoreID:    storeID,
		OrderID:    orderID,
		Signature:  sign(password, storeID, orderID),
		ShowAmount: true,
	}
}
