package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"checkout-service/apperr"
	"checkout-service/config"
	"checkout-service/logging"
	"checkout-service/middleware"
	"checkout-service/models"
	"checkout-service/payparts"
	"checkout-service/service"
)

// PaymentHandler handles HTTP requests for checkouts and provider callbacks
type PaymentHandler struct {
	paymentService   *service.PaymentService
	functionsBaseURL string
}

// NewPaymentHandler creates a new payment handler. An empty functionsBaseURL
// makes callback URLs follow the request host.
func NewPaymentHandler(paymentService *service.PaymentService, functionsBaseURL string) *PaymentHandler {
	return &PaymentHandler{
		paymentService:   paymentService,
		functionsBaseURL: config.NormalizeURL(functionsBaseURL),
	}
}

// Register mounts the public routes on r. Storefront routes require an
// allowed Origin; provider callbacks do not.
func (h *PaymentHandler) Register(r gin.IRouter, policy middleware.OriginPolicy) {
	storefront := r.Group("", middleware.RequireOrigin(policy))
	storefront.POST("/createCheckoutPayload", h.CreateCheckoutPayload)
	storefront.POST("/getPaymentStatus", h.GetPaymentStatus)
	storefront.POST("/getInstallmentSettings", h.GetInstallmentSettings)

	r.POST("/liqpayCallback", h.LiqpayCallback)
	r.POST("/paypartsCallback", h.PaypartsCallback)
}

// CreateCheckoutPayload prices a checkout and returns the provider form or redirect
func (h *PaymentHandler) CreateCheckoutPayload(c *gin.Context) {
	ctx := c.Request.Context()
	span := trace.SpanFromContext(ctx)

	var req models.CheckoutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: "Помилка запиту"})
		return
	}

	resp, err := h.paymentService.CreateCheckout(ctx, req, h.callbackBase(c))
	if err != nil {
		status := apperr.HTTPStatus(err)
		if apperr.KindOf(err) == apperr.KindInternal {
			status = http.StatusBadRequest
		}
		c.JSON(status, models.ErrorResponse{Error: apperr.Message(err, "Помилка запиту")})
		return
	}

	span.AddEvent("checkout_created")
	c.JSON(http.StatusOK, resp)
}

// GetPaymentStatus returns the normalized provider status of an order
func (h *PaymentHandler) GetPaymentStatus(c *gin.Context) {
	ctx := c.Request.Context()

	var req models.StatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: "Помилка запиту"})
		return
	}

	resp, err := h.paymentService.GetStatus(ctx, req)
	if err != nil {
		logging.FromContext(ctx).Warn("Payment status lookup failed",
			zap.Error(err),
			zap.String("order_id", req.OrderID),
			zap.String("request_id", middleware.GetRequestID(c)),
		)
		c.JSON(apperr.HTTPStatus(err), models.ErrorResponse{Error: apperr.Message(err, "Не вдалося отримати статус платежу")})
		return
	}
	c.JSON(http.StatusOK, resp)
}

// GetInstallmentSettings tells the storefront which credit options to offer
func (h *PaymentHandler) GetInstallmentSettings(c *gin.Context) {
	c.JSON(http.StatusOK, h.paymentService.InstallmentSettings(c.Request.Context()))
}

type liqpayCallbackBody struct {
	Data      string `json:"data" form:"data"`
	Signature string `json:"signature" form:"signature"`
}

// LiqpayCallback receives server_url notifications. Bodies may be JSON or
// form encoded. Responses are plain text.
func (h *PaymentHandler) LiqpayCallback(c *gin.Context) {
	var body liqpayCallbackBody
	_ = c.ShouldBind(&body)

	_, err := h.paymentService.HandleLiqPayCallback(c.Request.Context(),
		strings.TrimSpace(body.Data), strings.TrimSpace(body.Signature))
	if err != nil {
		h.callbackError(c, "liqpay", err)
		return
	}
	c.String(http.StatusOK, "ok")
}

// PaypartsCallback receives responseUrl notifications.
func (h *PaymentHandler) PaypartsCallback(c *gin.Context) {
	var cb payparts.Callback
	_ = c.ShouldBind(&cb)

	if err := h.paymentService.HandlePayPartsCallback(c.Request.Context(), cb); err != nil {
		h.callbackError(c, "payparts", err)
		return
	}
	c.String(http.StatusOK, "ok")
}

func (h *PaymentHandler) callbackError(c *gin.Context, provider string, err error) {
	if apperr.KindOf(err) == apperr.KindSignature {
		logging.FromContext(c.Request.Context()).Warn(provider+"_callback_invalid_signature",
			zap.String("request_id", middleware.GetRequestID(c)),
			zap.String("ip", c.ClientIP()),
			zap.String("user_agent", c.Request.UserAgent()),
			zap.String("reason", apperr.Message(err, "")),
		)
	}
	c.String(apperr.HTTPStatus(err), apperr.Message(err, "error"))
}

// HealthCheck handles health check requests
func (h *PaymentHandler) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "healthy"})
}

// MethodNotAllowed answers requests with a known path and the wrong method
func MethodNotAllowed(c *gin.Context) {
	c.JSON(http.StatusMethodNotAllowed, models.ErrorResponse{Error: "Method not allowed"})
}

// callbackBase is the public root provider callbacks are posted to.
func (h *PaymentHandler) callbackBase(c *gin.Context) string {
	if h.functionsBaseURL != "" {
		return h.functionsBaseURL
	}
	host := c.Request.Host
	if host == "" {
		return config.DefaultFunctionsBaseURL
	}
	return forwardedProto(c) + "://" + host
}

func forwardedProto(c *gin.Context) string {
	if v := c.GetHeader("X-Forwarded-Proto"); v != "" {
		first, _, _ := strings.Cut(v, ",")
		if strings.TrimSpace(first) == "https" {
			return "https"
		}
		return "http"
	}
	if c.Request.TLS != nil {
		return "https"
	}
	return "http"
}
