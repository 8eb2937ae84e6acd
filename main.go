package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"checkout-service/config"
	"checkout-service/handlers"
	"checkout-service/liqpay"
	"checkout-service/logging"
	"checkout-service/monitoring"
	"checkout-service/payparts"
	"checkout-service/service"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

	// Initialize structured logging
	if err := logging.InitLogger(cfg.ServiceName, cfg.OTELEndpoint); err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}
	defer logging.Sync()
	defer func() {
		if err := logging.Shutdown(context.Background()); err != nil {
			logging.Error("Error shutting down logger provider", zap.Error(err))
		}
	}()

	// Initialize OpenTelemetry
	tp, tracer, err := monitoring.InitTracer(cfg.ServiceName, cfg.OTELEndpoint)
	if err != nil {
		logging.Fatal("Failed to initialize tracer", zap.Error(err))
	}
	defer func() {
		if err := tp.Shutdown(context.Background()); err != nil {
			logging.Error("Error shutting down tracer provider", zap.Error(err))
		}
	}()

	mp, _, err := monitoring.InitMeter(cfg.ServiceName, cfg.OTELEndpoint)
	if err != nil {
		logging.Fatal("Failed to initialize meter", zap.Error(err))
	}
	defer func() {
		if err := mp.Shutdown(context.Background()); err != nil {
			logging.Error("Error shutting down meter provider", zap.Error(err))
		}
	}()

	provider, reason := cfg.ResolveCreditProvider()
	logging.Info("Payment providers configured",
		zap.Bool("liqpay_configured", cfg.HasLiqPay()),
		zap.Bool("payparts_configured", cfg.HasPayParts()),
		zap.Bool("payparts_demo", cfg.PayPartsDemo()),
		zap.String("credit_provider_mode", string(cfg.CreditProvider)),
		zap.String("credit_provider", provider),
	)
	if reason != "" {
		logging.Warn("Installment checkouts fall back to LiqPay", zap.String("reason", reason))
	}

	// Initialize service layer
	liqpayClient := liqpay.NewClient(cfg.LiqPayAPIURL, cfg.LiqPayPublicKey, cfg.LiqPayPrivateKey, cfg.HTTPTimeout)
	paypartsClient := payparts.NewClient(cfg.PayPartsBaseURL, cfg.HTTPTimeout)

	paymentService, err := service.NewPaymentService(tracer, cfg, liqpayClient, paypartsClient)
	if err != nil {
		logging.Fatal("Failed to initialize payment service", zap.Error(err))
	}

	// Initialize handlers
	paymentHandler := handlers.NewPaymentHandler(paymentService, cfg.FunctionsBaseURL)
	router := handlers.NewRouter(cfg.ServiceName, paymentHandler, cfg)

	server := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logging.Info("Checkout service starting", zap.String("port", cfg.Port))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logging.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logging.Info("Checkout service shutting down")

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		logging.Error("Server shutdown failed", zap.Error(err))
	}
}
