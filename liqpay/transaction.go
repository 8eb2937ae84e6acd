package liqpay

import (
	"checkout-service/models"
	"checkout-service/money"
	"checkout-service/paystatus"
)

// Transaction is the subset of a LiqPay status response or callback that the
// service acts on. Every field is optional on the wire.
type Transaction struct {
	Result         string
	Status         paystatus.Status
	OrderID        string
	LiqPayOrderID  string
	Amount         money.Cents
	HasAmount      bool
	Currency       string
	Paytype        string
	Action         string
	ErrCode        string
	ErrDescription string
}

// TransactionFromMap coerces a decoded LiqPay object.
func TransactionFromMap(m map[string]any) Transaction {
	amount, ok := models.AsPositiveAmount(m["amount"])
	return Transaction{
		Result:         models.AsLower(m["result"]),
		Status:         paystatus.Parse(models.AsString(m["status"])),
		OrderID:        models.AsString(m["order_id"]),
		LiqPayOrderID:  models.AsString(m["liqpay_order_id"]),
		Amount:         amount,
		HasAmount:      ok,
		Currency:       models.AsString(m["currency"]),
		Paytype:        models.AsLower(m["paytype"]),
		Action:         models.AsLower(m["action"]),
		ErrCode:        models.AsString(m["err_code"]),
		ErrDescription: models.AsString(m["err_description"]),
	}
}

// NeedsHoldCompletion reports whether t is an installment hold awaiting completion.
func (t Transaction) NeedsHoldCompletion() bool {
	return paystatus.NeedsHoldCompletion(t.Status, t.Paytype, t.HasAmount)
}
