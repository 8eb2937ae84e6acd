package payparts

import (
	"strings"

	"checkout-service/models"
	"checkout-service/money"
	"checkout-service/signature"
)

// CreatePaymentResponse is the reply to /payment/create.
type CreatePaymentResponse struct {
	State     string `json:"state,omitempty"`
	StoreID   string `json:"storeId,omitempty"`
	OrderID   string `json:"orderId,omitempty"`
	Token     string `json:"token,omitempty"`
	Message   string `json:"message,omitempty"`
	Signature string `json:"signature,omitempty"`
	SendPhone string `json:"sendPhone,omitempty"`
}

// StateResponse is the reply to /payment/state.
type StateResponse struct {
	State        string `json:"state,omitempty"`
	PaymentState string `json:"paymentState,omitempty"`
	StoreID      string `json:"storeId,omitempty"`
	OrderID      string `json:"orderId,omitempty"`
	Amount       any    `json:"amount,omitempty"`
	Message      string `json:"message,omitempty"`
	Signature    string `json:"signature,omitempty"`
}

// Callback is the payment-state notification posted to responseUrl.
type Callback struct {
	StoreID         string `json:"storeId,omitempty" form:"storeId"`
	StoreIdentifier string `json:"storeIdentifier,omitempty" form:"storeIdentifier"`
	OrderID         string `json:"orderId,omitempty" form:"orderId"`
	PaymentState    string `json:"paymentState,omitempty" form:"paymentState"`
	Message         string `json:"message,omitempty" form:"message"`
	Signature       string `json:"signature,omitempty" form:"signature"`
}

// Store returns storeId, falling back to storeIdentifier.
func (c Callback) Store() string {
	if s := strings.TrimSpace(c.StoreID); s != "" {
		return s
	}
	return strings.TrimSpace(c.StoreIdentifier)
}

// createCandidate yields the signed fields of one candidate formula, or
// ok=false when a field it needs is absent.
type createCandidate func(state, store, order, token, message string) (fields []string, ok bool)

// The provider documentation is ambiguous about which fields the create
// response signs, so each known variant is tried in order.
var createCandidates = []createCandidate{
	func(state, store, order, token, message string) ([]string, bool) {
		return []string{state, store, order, token}, token != ""
	},
	func(state, store, order, token, message string) ([]string, bool) {
		return []string{state, store, order, message}, message != ""
	},
	func(state, store, order, token, message string) ([]string, bool) {
		return []string{state, store, order, message, token}, message != "" && token != ""
	},
	func(state, store, order, token, message string) ([]string, bool) {
		return []string{state, store, order}, token == "" && message == ""
	},
}

// VerifyCreateResponseSignature accepts the response when any candidate
// formula reproduces its signature.
func VerifyCreateResponseSignature(r CreatePaymentResponse, password string) bool {
	got := strings.TrimSpace(r.Signature)
	if got == "" {
		return false
	}
	state := strings.TrimSpace(r.State)
	store := strings.TrimSpace(r.StoreID)
	order := strings.TrimSpace(r.OrderID)
	token := strings.TrimSpace(r.Token)
	message := strings.TrimSpace(r.Message)

	for _, candidate := range createCandidates {
		fields, ok := candidate(state, store, order, token, message)
		if !ok {
			continue
		}
		if signature.Equal(sign(password, fields...), got) {
			return true
		}
	}
	return false
}

// VerifyStateResponseSignature checks
// password+state+storeId+orderId+paymentState+message+password.
func VerifyStateResponseSignature(r StateResponse, password string) bool {
	got := strings.TrimSpace(r.Signature)
	if got == "" {
		return false
	}
	expected := sign(password,
		strings.TrimSpace(r.State),
		strings.TrimSpace(r.StoreID),
		strings.TrimSpace(r.OrderID),
		strings.TrimSpace(r.PaymentState),
		strings.TrimSpace(r.Message),
	)
	return signature.Equal(expected, got)
}

// VerifyCallbackSignature checks
// password+storeId+orderId+paymentState+message+password.
func VerifyCallbackSignature(c Callback, password string) bool {
	got := strings.TrimSpace(c.Signature)
	if got == "" {
		return false
	}
	expected := sign(password,
		c.Store(),
		strings.TrimSpace(c.OrderID),
		strings.TrimSpace(c.PaymentState),
		strings.TrimSpace(c.Message),
	)
	return signature.Equal(expected, got)
}

// StateAmount returns the amount of a state response, when present.
func (r StateResponse) StateAmount() (money.Cents, bool) {
	return models.AsPositiveAmount(r.Amount)
}
