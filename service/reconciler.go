package service

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"

	"checkout-service/apperr"
	"checkout-service/liqpay"
	"checkout-service/logging"
	"checkout-service/monitoring"
)

// Reconciler completes LiqPay installment holds. An installment payment that
// stops at hold_wait is never charged unless the merchant confirms it.
type Reconciler struct {
	client    LiqPayAPI
	publicKey string
}

// NewReconciler returns a reconciler that confirms holds through client.
func NewReconciler(client LiqPayAPI, publicKey string) *Reconciler {
	return &Reconciler{client: client, publicKey: publicKey}
}

// CompleteHold sends hold_completion for tx when it is an installment hold.
// It reports whether a completion was attempted. Failures are logged and
// never returned; the caller's response does not depend on them.
func (r *Reconciler) CompleteHold(ctx context.Context, tx liqpay.Transaction, source string) bool {
	if !tx.NeedsHoldCompletion() || tx.OrderID == "" {
		return false
	}

	logger := logging.FromContext(ctx).With(
		zap.String("order_id", tx.OrderID),
		zap.String("paytype", tx.Paytype),
		zap.Stringer("amount", tx.Amount),
		zap.String("source", source),
	)

	if r.client == nil || r.publicKey == "" {
		r.record(ctx, source, "skipped")
		logger.Error("liqpay_hold_completion_failed", zap.Error(apperr.Reconciliation("liqpay client not configured", nil)))
		return false
	}

	res, err := r.client.Request(ctx, liqpay.BuildHoldCompletionPayload(tx.OrderID, tx.Amount, r.publicKey))
	if err == nil && res.Result == "error" {
		err = apperr.Reconciliation(res.ErrDescription, nil)
	}
	if err != nil {
		r.record(ctx, source, "failed")
		logger.Error("liqpay_hold_completion_failed", zap.Error(apperr.Reconciliation("hold completion", err)))
		return true
	}

	r.record(ctx, source, "success")
	logger.Info("liqpay_hold_completed", zap.String("status", string(res.Status)))
	return true
}

func (r *Reconciler) record(ctx context.Context, source, outcome string) {
	monitoring.HoldCompletions.Add(ctx, 1,
		metric.WithAttributes(
			attribute.String("source", source),
			attribute.String("outcome", outcome),
		),
	)
}
