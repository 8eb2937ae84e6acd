package service

import (
	"context"
	"strings"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"checkout-service/apperr"
	"checkout-service/liqpay"
	"checkout-service/logging"
	"checkout-service/models"
	"checkout-service/orderid"
	"checkout-service/payparts"
	"checkout-service/paystatus"
)

// Reconciliation sources.
const (
	sourcePolling  = "polling"
	sourceCallback = "callback"
)

// GetStatus queries the provider that issued req.OrderID. The provider is
// taken from the request or inferred from the order id prefix.
func (s *PaymentService) GetStatus(ctx context.Context, req models.StatusRequest) (models.StatusResponse, error) {
	ctx, span := s.tracer.Start(ctx, "get_payment_status")
	defer span.End()

	orderID := strings.TrimSpace(req.OrderID)
	if orderID == "" {
		return models.StatusResponse{}, apperr.Validation("Вкажіть номер замовлення")
	}

	provider := strings.ToLower(strings.TrimSpace(req.Provider))
	if provider == "" {
		provider = orderid.Infer(orderID).Provider
	}

	span.SetAttributes(
		attribute.String("payment.order_id", orderID),
		attribute.String("payment.provider", provider),
	)

	switch provider {
	case orderid.ProviderLiqPay:
		return s.liqPayStatus(ctx, orderID)
	case orderid.ProviderPayParts:
		return s.payPartsStatus(ctx, orderID)
	default:
		return models.StatusResponse{}, apperr.Validation("Невідомий платіжний провайдер")
	}
}

func (s *PaymentService) liqPayStatus(ctx context.Context, orderID string) (models.StatusResponse, error) {
	if !s.cfg.HasLiqPay() {
		logging.Error("liqpay_keys_missing",
			zap.Bool("has_public_key", s.cfg.LiqPayPublicKey != ""),
			zap.Bool("has_private_key", s.cfg.LiqPayPrivateKey != ""),
		)
		return models.StatusResponse{}, ErrNotConfigured
	}

	tx, err := s.liqpay.Status(ctx, orderID)
	if err != nil {
		return models.StatusResponse{}, err
	}

	if s.reconciler.CompleteHold(ctx, tx, sourcePolling) {
		// One re-query so the storefront sees the post-completion state.
		if next, err := s.liqpay.Status(ctx, orderID); err != nil {
			logging.FromContext(ctx).Warn("liqpay_status_requery_failed",
				zap.String("order_id", orderID),
				zap.Error(err),
			)
		} else {
			tx = next
		}
	}

	resp := models.StatusResponse{
		Provider:   orderid.ProviderLiqPay,
		Status:     string(tx.Status),
		StatusKind: string(tx.Status.Kind()),
		Final:      tx.Status.Final(),
		OrderID:    orderID,
		Currency:   tx.Currency,
		Paytype:    tx.Paytype,
	}
	if tx.OrderID != "" {
		resp.OrderID = tx.OrderID
	}
	if tx.HasAmount {
		amount := tx.Amount
		resp.Amount = &amount
	}
	if tx.Result == "error" || tx.Status.Kind() == paystatus.KindFailure {
		resp.ErrorDescription = tx.ErrDescription
	}
	return resp, nil
}

func (s *PaymentService) payPartsStatus(ctx context.Context, orderID string) (models.StatusResponse, error) {
	if !s.cfg.HasPayParts() {
		logging.Error("payparts_credentials_missing",
			zap.Bool("has_store_id", s.cfg.PayPartsStoreID != ""),
			zap.Bool("has_password", s.cfg.PayPartsPassword != ""),
		)
		return models.StatusResponse{}, ErrNotConfigured
	}

	st, err := s.payparts.PaymentState(ctx,
		payparts.BuildStateRequest(s.cfg.PayPartsStoreID, orderID, s.cfg.PayPartsPassword))
	if err != nil {
		return models.StatusResponse{}, err
	}

	valid := payparts.VerifyStateResponseSignature(st, s.cfg.PayPartsPassword)
	recordSignature(ctx, orderid.ProviderPayParts, "sha1", valid)
	if !valid {
		logging.FromContext(ctx).Warn("payparts_state_invalid_signature",
			zap.String("order_id", orderID),
			zap.String("state", st.State),
		)
		return models.StatusResponse{}, apperr.Upstream("Сервіс кредитування повернув відповідь з некоректним підписом", nil)
	}

	raw := st.PaymentState
	if strings.TrimSpace(raw) == "" {
		raw = st.State
	}
	status := paystatus.Parse(raw)

	resp := models.StatusResponse{
		Provider:   orderid.ProviderPayParts,
		Status:     string(status),
		StatusKind: string(status.Kind()),
		Final:      status.Final(),
		OrderID:    orderID,
		Currency:   liqpay.Currency,
		Paytype:    string(payparts.MethodFor(payparts.MerchantType(orderid.Infer(orderID).Prefix))),
	}
	if amount, ok := st.StateAmount(); ok {
		resp.Amount = &amount
	}
	if !strings.EqualFold(st.State, "SUCCESS") || status.Kind() == paystatus.KindFailure {
		resp.ErrorDescription = strings.TrimSpace(st.Message)
	}
	return resp, nil
}
