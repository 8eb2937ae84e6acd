// Package config loads the service configuration from the environment.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"checkout-service/liqpay"
	"checkout-service/orderid"
	"checkout-service/payparts"
	"checkout-service/pricing"
)

// CreditProvider selects which gateway serves installment checkouts.
type CreditProvider string

const (
	CreditAuto     CreditProvider = "auto"
	CreditPayParts CreditProvider = orderid.ProviderPayParts
	CreditLiqPay   CreditProvider = orderid.ProviderLiqPay
)

// Storefront origins that are always allowed.
var (
	LocalOrigins = []string{"http://localhost:3000", "http://127.0.0.1:3000"}
	ProdOrigins  = []string{"https://vikna-service.run.place", "https://vikna-service.netlify.app"}
)

const (
	DefaultSiteURL          = "https://vikna-service.run.place"
	DefaultFunctionsBaseURL = "https://europe-west1-vikna-service-prod.cloudfunctions.net"
	DefaultHTTPTimeout      = 10 * time.Second
	DefaultOTELEndpoint     = "localhost:4317"
)

// Config holds application configuration. It is built once by Load and never
// mutated afterwards.
type Config struct {
	ServiceName  string
	Port         string
	OTELEndpoint string

	LiqPayPublicKey   string
	LiqPayPrivateKey  string
	LiqPayAPIURL      string
	LiqPayCheckoutURL string

	PayPartsStoreID  string
	PayPartsPassword string
	PayPartsBaseURL  string

	CreditProvider CreditProvider
	ShowMomentPart bool
	Plans          []pricing.Plan

	AllowedOrigins   []string
	SiteURL          string
	FunctionsBaseURL string
	HTTPTimeout      time.Duration
}

// Load reads .env when present, then the process environment.
func Load() (*Config, error) {
	_ = godotenv.Load()
	return FromLookup(os.LookupEnv)
}

// FromLookup builds a Config from an arbitrary variable source.
func FromLookup(lookup func(string) (string, bool)) (*Config, error) {
	get := func(key, def string) string {
		if v, ok := lookup(key); ok && strings.TrimSpace(v) != "" {
			return strings.TrimSpace(v)
		}
		return def
	}

	cfg := &Config{
		ServiceName:  get("SERVICE_NAME", "checkout-service"),
		Port:         get("PORT", "8080"),
		OTELEndpoint: get("OTEL_EXPORTER_OTLP_ENDPOINT", DefaultOTELEndpoint),

		LiqPayPublicKey:   get("LIQPAY_PUBLIC_KEY", ""),
		LiqPayPrivateKey:  get("LIQPAY_PRIVATE_KEY", ""),
		LiqPayAPIURL:      get("LIQPAY_API_URL", liqpay.DefaultAPIURL),
		LiqPayCheckoutURL: get("LIQPAY_CHECKOUT_URL", liqpay.DefaultCheckoutURL),

		PayPartsStoreID:  get("PAYPARTS_STORE_ID", ""),
		PayPartsPassword: get("PAYPARTS_PASSWORD", ""),
		PayPartsBaseURL:  payparts.NormalizeBaseURL(get("PAYPARTS_BASE_URL", "")),

		SiteURL:          NormalizeURL(get("SITE_URL", DefaultSiteURL)),
		FunctionsBaseURL: NormalizeURL(get("FUNCTIONS_BASE_URL", "")),
	}

	var errs []error

	switch mode := CreditProvider(strings.ToLower(get("CREDIT_PROVIDER", string(CreditAuto)))); mode {
	case CreditAuto, CreditPayParts, CreditLiqPay:
		cfg.CreditProvider = mode
	default:
		errs = append(errs, fmt.Errorf("CREDIT_PROVIDER: unknown value %q", mode))
	}

	show, err := parseBool(get("SHOW_MOMENT_PART", "true"))
	if err != nil {
		errs = append(errs, fmt.Errorf("SHOW_MOMENT_PART: %w", err))
	}
	cfg.ShowMomentPart = show

	timeout, err := time.ParseDuration(get("HTTP_TIMEOUT", DefaultHTTPTimeout.String()))
	if err != nil || timeout <= 0 {
		errs = append(errs, errors.New("HTTP_TIMEOUT: invalid duration"))
		timeout = DefaultHTTPTimeout
	}
	cfg.HTTPTimeout = timeout

	for _, def := range pricing.DefaultPlans() {
		key := strings.ToUpper(string(def.Method)) + "_INSTALLMENTS"
		plan, err := ParsePlan(def.Method, get(key, ""), def)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", key, err))
			plan = def
		}
		cfg.Plans = append(cfg.Plans, plan)
	}

	cfg.AllowedOrigins = append(cfg.AllowedOrigins, LocalOrigins...)
	cfg.AllowedOrigins = append(cfg.AllowedOrigins, ProdOrigins...)
	for _, o := range strings.Split(get("ALLOWED_ORIGINS", ""), ",") {
		if o = strings.TrimSpace(o); o != "" {
			cfg.AllowedOrigins = append(cfg.AllowedOrigins, o)
		}
	}

	if err := errors.Join(errs...); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ParsePlan parses "min-max:default" (":default" optional). An empty value
// yields def.
func ParsePlan(method pricing.Method, value string, def pricing.Plan) (pricing.Plan, error) {
	if value == "" {
		return def, nil
	}
	rangePart, defPart, hasDefault := strings.Cut(value, ":")
	minText, maxText, ok := strings.Cut(rangePart, "-")
	if !ok {
		return pricing.Plan{}, fmt.Errorf("expected min-max[:default], got %q", value)
	}
	minCount, err := strconv.Atoi(strings.TrimSpace(minText))
	if err != nil {
		return pricing.Plan{}, fmt.Errorf("min: %w", err)
	}
	maxCount, err := strconv.Atoi(strings.TrimSpace(maxText))
	if err != nil {
		return pricing.Plan{}, fmt.Errorf("max: %w", err)
	}
	plan := pricing.Plan{Method: method, Min: minCount, Max: maxCount, Default: minCount}
	if def.Default >= minCount && def.Default <= maxCount {
		plan.Default = def.Default
	}
	if hasDefault {
		if plan.Default, err = strconv.Atoi(strings.TrimSpace(defPart)); err != nil {
			return pricing.Plan{}, fmt.Errorf("default: %w", err)
		}
	}
	if err := plan.Validate(); err != nil {
		return pricing.Plan{}, err
	}
	return plan, nil
}

func parseBool(v string) (bool, error) {
	switch strings.ToLower(v) {
	case "1", "true", "yes", "on":
		return true, nil
	case "0", "false", "no", "off":
		return false, nil
	}
	return false, fmt.Errorf("invalid boolean %q", v)
}

// NormalizeURL trims whitespace and trailing slashes.
func NormalizeURL(v string) string {
	return strings.TrimRight(strings.TrimSpace(v), "/")
}

// HasLiqPay reports whether both LiqPay keys are set.
func (c *Config) HasLiqPay() bool {
	return c.LiqPayPublicKey != "" && c.LiqPayPrivateKey != ""
}

// HasPayParts reports whether PayParts credentials are set.
func (c *Config) HasPayParts() bool {
	return c.PayPartsStoreID != "" && c.PayPartsPassword != ""
}

// PayPartsDemo reports whether the configured PayParts credentials are the
// public sandbox store.
func (c *Config) PayPartsDemo() bool {
	return c.PayPartsStoreID == payparts.DemoStoreID && c.PayPartsPassword == payparts.DemoPassword
}

// ResolveCreditProvider returns the provider installment checkouts go to. In
// auto mode real PayParts credentials win; missing or sandbox credentials
// fall back to LiqPay and reason explains why.
func (c *Config) ResolveCreditProvider() (provider string, reason string) {
	switch c.CreditProvider {
	case CreditPayParts:
		return orderid.ProviderPayParts, ""
	case CreditLiqPay:
		return orderid.ProviderLiqPay, ""
	}
	switch {
	case !c.HasPayParts():
		return orderid.ProviderLiqPay, "payparts credentials are not configured"
	case c.PayPartsDemo():
		return orderid.ProviderLiqPay, "payparts credentials are the public sandbox store"
	}
	return orderid.ProviderPayParts, ""
}

// IsAllowedOrigin reports whether origin may call the storefront routes.
func (c *Config) IsAllowedOrigin(origin string) bool {
	if origin == "" {
		return false
	}
	for _, o := range c.AllowedOrigins {
		if o == origin {
			return true
		}
	}
	return false
}
