// Package pricing computes the client surcharge for installment payments.
package pricing

import (
	"fmt"
	"math"
	"sort"

	"github.com/shopspring/decimal"

	"checkout-service/apperr"
	"checkout-service/money"
)

// Method is the storefront payment method.
type Method string

const (
	MethodFull       Method = "full"
	MethodPaypart    Method = "paypart"
	MethodMomentPart Method = "moment_part"
)

// Deferred reports whether m is paid in installments.
func (m Method) Deferred() bool {
	return m == MethodPaypart || m == MethodMomentPart
}

// ParseMethod accepts the storefront enumeration. An empty value means full.
func ParseMethod(s string) (Method, error) {
	switch Method(s) {
	case "", MethodFull:
		return MethodFull, nil
	case MethodPaypart, MethodMomentPart:
		return Method(s), nil
	default:
		return "", ErrUnknownMethod
	}
}

var (
	ErrUnknownMethod           = apperr.Validation("Невідомий спосіб оплати")
	ErrInvalidInstallmentCount = apperr.Validation("Некоректна кількість платежів")
)

// MerchantCoverageBP is the share of the service rate absorbed by the merchant,
// in basis points of the amount.
const MerchantCoverageBP = 500

// FreeInstallments is the largest count for which the client pays no surcharge.
const FreeInstallments = 4

// serviceRateBP maps an installment count to the provider service rate in
// basis points (650 = 6.50%).
var serviceRateBP = map[int]int64{
	2: 220, 3: 300, 4: 390, 5: 480,
	6: 650, 7: 760, 8: 860, 9: 960,
	10: 1060, 11: 1160, 12: 1260, 13: 1360,
	14: 1470, 15: 1570, 16: 1680, 17: 1790,
	18: 1900, 19: 2010, 20: 2120, 21: 2240,
	22: 2360, 23: 2480, 24: 2600, 25: 2730,
}

// ServiceRateBP returns the service rate for count and whether the table covers it.
func ServiceRateBP(count int) (int64, bool) {
	bp, ok := serviceRateBP[count]
	return bp, ok
}

// Plan is the allowed installment range of one deferred method.
type Plan struct {
	Method  Method `json:"method"`
	Min     int    `json:"min"`
	Max     int    `json:"max"`
	Default int    `json:"default"`
}

// Validate checks that the plan lies inside the service-rate table.
func (p Plan) Validate() error {
	if !p.Method.Deferred() {
		return fmt.Errorf("plan %q: not an installment method", p.Method)
	}
	if p.Min > p.Max {
		return fmt.Errorf("plan %q: min %d exceeds max %d", p.Method, p.Min, p.Max)
	}
	if _, ok := ServiceRateBP(p.Min); !ok {
		return fmt.Errorf("plan %q: min %d outside rate table", p.Method, p.Min)
	}
	if _, ok := ServiceRateBP(p.Max); !ok {
		return fmt.Errorf("plan %q: max %d outside rate table", p.Method, p.Max)
	}
	if p.Default < p.Min || p.Default > p.Max {
		return fmt.Errorf("plan %q: default %d outside [%d,%d]", p.Method, p.Default, p.Min, p.Max)
	}
	return nil
}

// DefaultPlans mirrors the storefront selectors.
func DefaultPlans() []Plan {
	return []Plan{
		{Method: MethodPaypart, Min: 2, Max: 5, Default: 4},
		{Method: MethodMomentPart, Min: 5, Max: 25, Default: 5},
	}
}

// Engine prices installment checkouts against a fixed set of plans.
type Engine struct {
	plans map[Method]Plan
}

// NewEngine validates plans and returns an engine.
func NewEngine(plans []Plan) (*Engine, error) {
	e := &Engine{plans: make(map[Method]Plan, len(plans))}
	for _, p := range plans {
		if err := p.Validate(); err != nil {
			return nil, err
		}
		e.plans[p.Method] = p
	}
	return e, nil
}

// Plans returns the configured plans ordered by their smallest count, the
// order the storefront lists them in.
func (e *Engine) Plans() []Plan {
	out := make([]Plan, 0, len(e.plans))
	for _, p := range e.plans {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Min != out[j].Min {
			return out[i].Min < out[j].Min
		}
		return out[i].Method < out[j].Method
	})
	return out
}

// Plan returns the plan for m.
func (e *Engine) Plan(m Method) (Plan, bool) {
	p, ok := e.plans[m]
	return p, ok
}

// ResolveCount applies the plan default when count is nil.
func (e *Engine) ResolveCount(m Method, count *int) (int, error) {
	if !m.Deferred() {
		return 0, nil
	}
	p, ok := e.plans[m]
	if !ok {
		return 0, ErrUnknownMethod
	}
	if count == nil {
		return p.Default, nil
	}
	return *count, nil
}

// SurchargeBP returns the client surcharge for count installments of method m.
// Full payments carry no surcharge.
func (e *Engine) SurchargeBP(m Method, count int) (int64, error) {
	if !m.Deferred() {
		return 0, nil
	}
	p, ok := e.plans[m]
	if !ok {
		return 0, ErrUnknownMethod
	}
	if count < p.Min || count > p.Max {
		return 0, &apperr.Error{
			Kind:    apperr.KindValidation,
			Message: fmt.Sprintf("Оберіть кількість платежів від %d до %d", p.Min, p.Max),
			Err:     ErrInvalidInstallmentCount,
		}
	}
	rate, ok := ServiceRateBP(count)
	if !ok {
		return 0, ErrInvalidInstallmentCount
	}
	if count <= FreeInstallments {
		return 0, nil
	}
	if rate <= MerchantCoverageBP {
		return 0, nil
	}
	return rate - MerchantCoverageBP, nil
}

// Apply returns round(base * (100% + surcharge)). Never less than base. A base
// whose surcharged amount does not fit in Cents is rejected with
// money.ErrPriceRange.
func Apply(base money.Cents, surchargeBP int64) (money.Cents, error) {
	if base <= 0 {
		return 0, money.ErrPriceRange
	}
	if surchargeBP <= 0 {
		return base, nil
	}
	factor := 10000 + surchargeBP
	if int64(base) > (math.MaxInt64-5000)/factor {
		return 0, money.ErrPriceRange
	}
	return money.Cents((int64(base)*factor + 5000) / 10000), nil
}

// Percent renders basis points as a percentage for API responses.
func Percent(bp int64) float64 {
	return decimal.New(bp, -2).InexactFloat64()
}
