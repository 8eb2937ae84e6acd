package service

import (
	"context"
	"strings"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"checkout-service/apperr"
	"checkout-service/liqpay"
	"checkout-service/logging"
	"checkout-service/orderid"
	"checkout-service/payparts"
)

// Callback rejections. Messages are the plain-text bodies providers receive.
var (
	ErrCallbackKeyMissing     = apperr.Configuration("private key missing")
	ErrCallbackCredsMissing   = apperr.Configuration("payparts credentials missing")
	ErrMissingSignature       = apperr.Signature("missing data/signature")
	ErrInvalidSignature       = apperr.Signature("invalid signature")
	ErrCallbackStoreMismatch  = apperr.Signature("store mismatch")
	ErrMissingCallbackPayload = apperr.Validation("missing payload")
)

// HandleLiqPayCallback verifies a server_url notification and completes an
// installment hold if one is pending. The hold is not re-queried.
func (s *PaymentService) HandleLiqPayCallback(ctx context.Context, data, sig string) (liqpay.Transaction, error) {
	ctx, span := s.tracer.Start(ctx, "liqpay_callback")
	defer span.End()

	logger := logging.WithTraceContext(span)

	if s.cfg.LiqPayPrivateKey == "" {
		logger.Error("liqpay_private_key_missing")
		return liqpay.Transaction{}, ErrCallbackKeyMissing
	}
	if data == "" || sig == "" {
		return liqpay.Transaction{}, ErrMissingSignature
	}

	result := liqpay.Verify(data, sig, s.cfg.LiqPayPrivateKey)
	recordSignature(ctx, orderid.ProviderLiqPay, string(result.Algorithm), result.Valid)
	if !result.Valid {
		return liqpay.Transaction{}, ErrInvalidSignature
	}

	decoded, err := liqpay.Decode(data)
	if err != nil {
		logger.Error("liqpay_callback_decode_failed", zap.Error(err))
		return liqpay.Transaction{}, err
	}
	tx := liqpay.TransactionFromMap(decoded)

	span.SetAttributes(
		attribute.String("payment.order_id", tx.OrderID),
		attribute.String("liqpay.status", string(tx.Status)),
	)
	logger.Info("liqpay_callback_verified",
		zap.String("order_id", tx.OrderID),
		zap.String("status", string(tx.Status)),
		zap.Stringer("amount", tx.Amount),
		zap.String("currency", tx.Currency),
		zap.String("paytype", tx.Paytype),
		zap.String("signature_algorithm", string(result.Algorithm)),
		zap.String("liqpay_order_id", tx.LiqPayOrderID),
	)

	s.reconciler.CompleteHold(ctx, tx, sourceCallback)
	return tx, nil
}

// HandlePayPartsCallback verifies a responseUrl notification.
func (s *PaymentService) HandlePayPartsCallback(ctx context.Context, cb payparts.Callback) error {
	ctx, span := s.tracer.Start(ctx, "payparts_callback")
	defer span.End()

	logger := logging.WithTraceContext(span)

	if !s.cfg.HasPayParts() {
		logger.Error("payparts_credentials_missing",
			zap.Bool("has_store_id", s.cfg.PayPartsStoreID != ""),
			zap.Bool("has_password", s.cfg.PayPartsPassword != ""),
		)
		return ErrCallbackCredsMissing
	}
	if strings.TrimSpace(cb.OrderID) == "" && cb.Store() == "" {
		return ErrMissingCallbackPayload
	}
	if strings.TrimSpace(cb.Signature) == "" {
		return ErrMissingSignature
	}

	valid := payparts.VerifyCallbackSignature(cb, s.cfg.PayPartsPassword)
	recordSignature(ctx, orderid.ProviderPayParts, "sha1", valid)
	if !valid {
		return ErrInvalidSignature
	}
	if cb.Store() != s.cfg.PayPartsStoreID {
		logger.Warn("payparts_callback_store_mismatch", zap.String("order_id", cb.OrderID))
		return ErrCallbackStoreMismatch
	}

	span.SetAttributes(
		attribute.String("payment.order_id", cb.OrderID),
		attribute.String("payparts.payment_state", cb.PaymentState),
	)
	logger.Info("payparts_callback_verified",
		zap.String("order_id", cb.OrderID),
		zap.String("payment_state", cb.PaymentState),
		zap.String("message", cb.Message),
	)
	return nil
}
