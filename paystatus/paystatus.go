// Package paystatus partitions provider payment statuses into kinds that drive
// hold completion and storefront messaging.
package paystatus

import "strings"

// Status is a provider status, lowercased.
type Status string

// LiqPay statuses referenced by the service.
const (
	Success          Status = "success"
	Subscribed       Status = "subscribed"
	WaitCompensation Status = "wait_compensation"
	WaitAccept       Status = "wait_accept"
	HoldWait         Status = "hold_wait"
	Error            Status = "error"
	Failure          Status = "failure"
	Reversed         Status = "reversed"
	Unsubscribed     Status = "unsubscribed"
	Processing       Status = "processing"
)

// Kind is the partition a status belongs to.
type Kind string

const (
	KindSuccess  Kind = "success"
	KindApproved Kind = "approved"
	KindFailure  Kind = "failure"
	KindPending  Kind = "pending"
)

var kinds = map[Status]Kind{
	Success:          KindSuccess,
	Subscribed:       KindSuccess,
	WaitCompensation: KindSuccess,

	WaitAccept: KindApproved,
	HoldWait:   KindApproved,

	Error:        KindFailure,
	Failure:      KindFailure,
	Reversed:     KindFailure,
	Unsubscribed: KindFailure,

	"3ds_verify":       KindPending,
	"captcha_verify":   KindPending,
	"cvv_verify":       KindPending,
	"ivr_verify":       KindPending,
	"otp_verify":       KindPending,
	"password_verify":  KindPending,
	"phone_verify":     KindPending,
	"pin_verify":       KindPending,
	"receiver_verify":  KindPending,
	"sender_verify":    KindPending,
	"senderapp_verify": KindPending,
	"wait_qr":          KindPending,
	"wait_sender":      KindPending,
	"cash_wait":        KindPending,
	"invoice_wait":     KindPending,
	"prepared":         KindPending,
	Processing:         KindPending,
	"wait_card":        KindPending,
	"wait_lc":          KindPending,
	"wait_reserve":     KindPending,
	"wait_secure":      KindPending,

	// PayParts payment states
	"fail":        KindFailure,
	"canceled":    KindFailure,
	"client_wait": KindPending,
	"otp_waiting": KindPending,
	"pp_creation": KindPending,
	"locked":      KindApproved,
	"created":     KindPending,
}

// Parse normalizes a raw provider value.
func Parse(raw string) Status {
	return Status(strings.ToLower(strings.TrimSpace(raw)))
}

// Kind returns the partition of s. Unknown statuses are pending.
func (s Status) Kind() Kind {
	if k, ok := kinds[s]; ok {
		return k
	}
	return KindPending
}

// Final reports whether polling can stop.
func (s Status) Final() bool {
	k := s.Kind()
	return k == KindSuccess || k == KindApproved || k == KindFailure
}

// InstallmentPaytypes are the LiqPay paytypes whose holds need completion.
var InstallmentPaytypes = map[string]bool{
	"paypart":     true,
	"moment_part": true,
}

// NeedsHoldCompletion reports whether a transaction in status s paid with
// paytype is an installment hold waiting for the merchant to complete it.
func NeedsHoldCompletion(s Status, paytype string, amountPositive bool) bool {
	return s == HoldWait && InstallmentPaytypes[strings.ToLower(strings.TrimSpace(paytype))] && amountPositive
}
