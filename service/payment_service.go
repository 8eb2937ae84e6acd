package service

import (
	"context"
	"net/url"
	"strings"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"checkout-service/apperr"
	"checkout-service/config"
	"checkout-service/liqpay"
	"checkout-service/logging"
	"checkout-service/models"
	"checkout-service/money"
	"checkout-service/monitoring"
	"checkout-service/orderid"
	"checkout-service/payparts"
	"checkout-service/pricing"
)

// LiqPayAPI is the subset of *liqpay.Client the service uses.
type LiqPayAPI interface {
	Request(ctx context.Context, p liqpay.Payload) (liqpay.Transaction, error)
	Status(ctx context.Context, orderID string) (liqpay.Transaction, error)
}

// PayPartsAPI is the subset of *payparts.Client the service uses.
type PayPartsAPI interface {
	CreatePayment(ctx context.Context, req payparts.CreatePaymentRequest) (payparts.CreatePaymentResponse, error)
	PaymentState(ctx context.Context, req payparts.StateRequest) (payparts.StateResponse, error)
}

// ErrNotConfigured is shown to storefront clients when provider keys are absent.
var ErrNotConfigured = apperr.Configuration("Сервер не налаштований для проведення платежів")

// PaymentService prices checkouts and talks to the payment providers
type PaymentService struct {
	tracer     trace.Tracer
	cfg        *config.Config
	engine     *pricing.Engine
	liqpay     LiqPayAPI
	payparts   PayPartsAPI
	reconciler *Reconciler
}

// NewPaymentService creates a new payment service. Plans come from cfg.
func NewPaymentService(tracer trace.Tracer, cfg *config.Config, lp LiqPayAPI, pp PayPartsAPI) (*PaymentService, error) {
	engine, err := pricing.NewEngine(cfg.Plans)
	if err != nil {
		return nil, err
	}
	return &PaymentService{
		tracer:     tracer,
		cfg:        cfg,
		engine:     engine,
		liqpay:     lp,
		payparts:   pp,
		reconciler: NewReconciler(lp, cfg.LiqPayPublicKey),
	}, nil
}

// Normalize validates a storefront request and prices it.
func (s *PaymentService) Normalize(req models.CheckoutRequest) (models.NormalizedCheckout, error) {
	productType := strings.TrimSpace(req.ProductType)
	if productType == "" {
		return models.NormalizedCheckout{}, apperr.Validation("Вкажіть тип виробу")
	}

	quantity, err := money.ParseQuantity(string(req.Quantity))
	if err != nil {
		return models.NormalizedCheckout{}, err
	}
	unitPrice, err := money.ParsePrice(string(req.UnitPrice))
	if err != nil {
		return models.NormalizedCheckout{}, err
	}
	method, err := pricing.ParseMethod(strings.TrimSpace(req.PaymentMethod))
	if err != nil {
		return models.NormalizedCheckout{}, err
	}

	var requested *int
	if req.InstallmentCount != nil && strings.TrimSpace(string(*req.InstallmentCount)) != "" {
		n, err := req.InstallmentCount.Int()
		if err != nil {
			return models.NormalizedCheckout{}, pricing.ErrInvalidInstallmentCount
		}
		requested = &n
	}
	count, err := s.engine.ResolveCount(method, requested)
	if err != nil {
		return models.NormalizedCheckout{}, err
	}
	surcharge, err := s.engine.SurchargeBP(method, count)
	if err != nil {
		return models.NormalizedCheckout{}, err
	}

	base, err := money.AmountCents(unitPrice, quantity)
	if err != nil {
		return models.NormalizedCheckout{}, err
	}
	amount, err := pricing.Apply(base, surcharge)
	if err != nil {
		return models.NormalizedCheckout{}, err
	}

	return models.NormalizedCheckout{
		ProductType:      productType,
		Quantity:         quantity,
		UnitPrice:        unitPrice,
		BaseAmount:       base,
		Method:           method,
		InstallmentCount: count,
		SurchargeBP:      surcharge,
		Amount:           amount,
	}, nil
}

// InstallmentSettings reports which credit options the storefront should offer.
func (s *PaymentService) InstallmentSettings(ctx context.Context) models.InstallmentSettingsResponse {
	provider, reason := s.cfg.ResolveCreditProvider()
	if reason != "" && provider == orderid.ProviderLiqPay {
		logging.FromContext(ctx).Debug("credit provider fallback", zap.String("reason", reason))
	}
	return models.InstallmentSettingsResponse{
		CreditProvider: provider,
		ShowMomentPart: s.cfg.ShowMomentPart,
		Plans:          s.engine.Plans(),
	}
}

// CreateCheckout normalizes req and builds the provider checkout. callbackBase
// is the public root of this service; provider callbacks are posted below it.
func (s *PaymentService) CreateCheckout(ctx context.Context, req models.CheckoutRequest, callbackBase string) (models.CheckoutResponse, error) {
	ctx, span := s.tracer.Start(ctx, "create_checkout")
	defer span.End()

	logger := logging.WithTraceContext(span)

	n, err := s.Normalize(req)
	if err != nil {
		logger.Info("Checkout rejected", zap.Error(err))
		return models.CheckoutResponse{}, err
	}

	provider := orderid.ProviderLiqPay
	if n.Method.Deferred() {
		var reason string
		provider, reason = s.cfg.ResolveCreditProvider()
		if reason != "" {
			logger.Warn("Installment checkout routed to LiqPay", zap.String("reason", reason))
		}
	}

	span.SetAttributes(
		attribute.String("checkout.provider", provider),
		attribute.String("checkout.method", string(n.Method)),
		attribute.Int("checkout.installments", n.InstallmentCount),
		attribute.Int64("checkout.amount_cents", int64(n.Amount)),
	)

	var resp models.CheckoutResponse
	if provider == orderid.ProviderPayParts {
		resp, err = s.payPartsCheckout(ctx, n, callbackBase)
	} else {
		resp, err = s.liqPayCheckout(n, callbackBase)
	}

	status := "success"
	if err != nil {
		status = "failed"
	}
	monitoring.CheckoutCounter.Add(ctx, 1,
		metric.WithAttributes(
			attribute.String("provider", provider),
			attribute.String("payment_method", string(n.Method)),
			attribute.String("status", status),
		),
	)
	if err != nil {
		logger.Error("Checkout failed",
			zap.Error(err),
			zap.String("provider", provider),
			zap.String("payment_method", string(n.Method)),
		)
		return models.CheckoutResponse{}, err
	}

	monitoring.CheckoutAmount.Record(ctx, n.Amount.Float64(),
		metric.WithAttributes(
			attribute.String("provider", provider),
			attribute.String("payment_method", string(n.Method)),
		),
	)
	span.SetAttributes(attribute.String("payment.order_id", resp.OrderID))

	logger.Info("Checkout created",
		zap.String("order_id", resp.OrderID),
		zap.String("provider", provider),
		zap.String("payment_method", string(n.Method)),
		zap.Int("installments", n.InstallmentCount),
		zap.Stringer("amount", n.Amount),
		zap.Stringer("base_amount", n.BaseAmount),
	)
	return resp, nil
}

func (s *PaymentService) liqPayCheckout(n models.NormalizedCheckout, callbackBase string) (models.CheckoutResponse, error) {
	if !s.cfg.HasLiqPay() {
		logging.Error("liqpay_keys_missing",
			zap.Bool("has_public_key", s.cfg.LiqPayPublicKey != ""),
			zap.Bool("has_private_key", s.cfg.LiqPayPrivateKey != ""),
		)
		return models.CheckoutResponse{}, ErrNotConfigured
	}

	payload, err := liqpay.BuildCheckoutPayload(n,
		s.cfg.LiqPayPublicKey,
		s.cfg.SiteURL+"/payment/result",
		config.NormalizeURL(callbackBase)+"/liqpayCallback",
	)
	if err != nil {
		return models.CheckoutResponse{}, err
	}
	signed, err := liqpay.SignPayload(payload, s.cfg.LiqPayPrivateKey)
	if err != nil {
		return models.CheckoutResponse{}, err
	}

	return models.CheckoutResponse{
		Provider:  orderid.ProviderLiqPay,
		ActionURL: s.cfg.LiqPayCheckoutURL,
		Data:      signed.Data,
		Signature: signed.Signature,
		OrderID:   payload.OrderID(),
		Amount:    n.Amount,
		Currency:  liqpay.Currency,
	}, nil
}

func (s *PaymentService) payPartsCheckout(ctx context.Context, n models.NormalizedCheckout, callbackBase string) (models.CheckoutResponse, error) {
	if !s.cfg.HasPayParts() {
		logging.Error("payparts_credentials_missing",
			zap.Bool("has_store_id", s.cfg.PayPartsStoreID != ""),
			zap.Bool("has_password", s.cfg.PayPartsPassword != ""),
		)
		return models.CheckoutResponse{}, ErrNotConfigured
	}

	merchantType := payparts.MerchantTypeFor(n.Method)
	orderID := payparts.NewOrderID(merchantType)

	req := payparts.BuildCreatePaymentRequest(payparts.CreatePaymentParams{
		StoreID:      s.cfg.PayPartsStoreID,
		Password:     s.cfg.PayPartsPassword,
		OrderID:      orderID,
		Amount:       n.Amount,
		PartsCount:   n.InstallmentCount,
		MerchantType: merchantType,
		Products:     payparts.BuildProducts(n.ProductType, n.Quantity, n.Amount),
		ResponseURL:  config.NormalizeURL(callbackBase) + "/paypartsCallback",
		RedirectURL:  s.cfg.SiteURL + "/payment/result?order_id=" + url.QueryEscape(orderID),
	})

	created, err := s.payparts.CreatePayment(ctx, req)
	if err != nil {
		return models.CheckoutResponse{}, err
	}

	if !payparts.VerifyCreateResponseSignature(created, s.cfg.PayPartsPassword) {
		recordSignature(ctx, orderid.ProviderPayParts, "", false)
		logging.FromContext(ctx).Warn("payparts_create_invalid_signature",
			zap.String("order_id", orderID),
			zap.String("state", created.State),
			zap.String("message", created.Message),
		)
		return models.CheckoutResponse{}, apperr.Upstream("Сервіс кредитування повернув відповідь з некоректним підписом", nil)
	}
	recordSignature(ctx, orderid.ProviderPayParts, "sha1", true)

	if !strings.EqualFold(created.State, "SUCCESS") || strings.TrimSpace(created.Token) == "" {
		msg := strings.TrimSpace(created.Message)
		if msg == "" {
			msg = "Сервіс кредитування відхилив запит"
		}
		return models.CheckoutResponse{}, apperr.Upstream(msg, nil)
	}

	return models.CheckoutResponse{
		Provider:    orderid.ProviderPayParts,
		RedirectURL: payparts.CheckoutURL(s.cfg.PayPartsBaseURL, created.Token),
		OrderID:     orderID,
		Amount:      n.Amount,
		Currency:    liqpay.Currency,
	}, nil
}

func recordSignature(ctx context.Context, provider, algorithm string, valid bool) {
	outcome := "valid"
	if !valid {
		outcome = "invalid"
	}
	monitoring.SignatureVerifications.Add(ctx, 1,
		metric.WithAttributes(
			attribute.String("provider", provider),
			attribute.String("algorithm", algorithm),
			attribute.String("outcome", outcome),
		),
	)
}
