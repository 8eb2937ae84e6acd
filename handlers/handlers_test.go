package handlers

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/trace/noop"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"checkout-service/config"
	"checkout-service/liqpay"
	"checkout-service/logging"
	"checkout-service/models"
	"checkout-service/payparts"
	"checkout-service/service"
	"checkout-service/signature"
)

const (
	origin     = "https://vikna-service.run.place"
	privateKey = "sandbox_private"
	storeID    = "store-1"
	password   = "secret"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type fixture struct {
	router        *gin.Engine
	holdRequests  *int32
	liqpayBackend *httptest.Server
}

// newFixture builds the real stack against a LiqPay API fake that rejects
// every request with 500.
func newFixture(t *testing.T, env map[string]string) fixture {
	t.Helper()

	var holds int32
	backend := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err == nil {
			if decoded, err := liqpay.Decode(r.PostForm.Get("data")); err == nil && decoded["action"] == liqpay.ActionHoldCompletion {
				atomic.AddInt32(&holds, 1)
			}
		}
		w.WriteHeader(http.StatusInternalServerError)
	}))
	t.Cleanup(backend.Close)

	vars := map[string]string{
		"LIQPAY_PUBLIC_KEY":  "sandbox_public",
		"LIQPAY_PRIVATE_KEY": privateKey,
		"LIQPAY_API_URL":     backend.URL,
		"FUNCTIONS_BASE_URL": "https://api.example",
		"PAYPARTS_STORE_ID":  storeID,
		"PAYPARTS_PASSWORD":  password,
		"CREDIT_PROVIDER":    "liqpay",
	}
	for k, v := range env {
		vars[k] = v
	}
	cfg, err := config.FromLookup(func(k string) (string, bool) {
		v, ok := vars[k]
		return v, ok
	})
	require.NoError(t, err)

	lp := liqpay.NewClient(cfg.LiqPayAPIURL, cfg.LiqPayPublicKey, cfg.LiqPayPrivateKey, time.Second)
	pp := payparts.NewClient(backend.URL, time.Second)
	svc, err := service.NewPaymentService(noop.NewTracerProvider().Tracer("test"), cfg, lp, pp)
	require.NoError(t, err)

	h := NewPaymentHandler(svc, cfg.FunctionsBaseURL)
	return fixture{
		router:        NewRouter("checkout-service-test", h, cfg),
		holdRequests:  &holds,
		liqpayBackend: backend,
	}
}

func (f fixture) postJSON(path string, body any, hdr map[string]string) *httptest.ResponseRecorder {
	raw, _ := json.Marshal(body)
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(raw))
	req.Header.Set("Content-Type", "application/json")
	for k, v := range hdr {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)
	return w
}

func (f fixture) postForm(path string, form url.Values) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)
	return w
}

func TestCreateCheckoutPayload(t *testing.T) {
	t.Parallel()

	f := newFixture(t, nil)

	for _, path := range []string{"/createCheckoutPayload", "/api/createCheckoutPayload"} {
		w := f.postJSON(path, map[string]any{
			"productType":   "Вікно",
			"quantity":      2,
			"unitPrice":     "100.00",
			"paymentMethod": "full",
		}, map[string]string{"Origin": origin})
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
		assert.Equal(t, origin, w.Header().Get("Access-Control-Allow-Origin"))

		var resp struct {
			ActionURL string      `json:"actionUrl"`
			Data      string      `json:"data"`
			Signature string      `json:"signature"`
			OrderID   string      `json:"orderId"`
			Amount    json.Number `json:"amount"`
			Currency  string      `json:"currency"`
		}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))

		assert.Equal(t, liqpay.DefaultCheckoutURL, resp.ActionURL)
		assert.Equal(t, "200", resp.Amount.String())
		assert.Equal(t, "UAH", resp.Currency)
		assert.True(t, strings.HasPrefix(resp.OrderID, "VS-"))
		assert.Equal(t, signature.Result{Valid: true, Algorithm: signature.SHA1}, liqpay.Verify(resp.Data, resp.Signature, privateKey))

		decoded, err := liqpay.Decode(resp.Data)
		require.NoError(t, err)
		assert.Equal(t, "https://api.example/liqpayCallback", decoded["server_url"])
	}
}

func TestCreateCheckoutPayloadErrors(t *testing.T) {
	t.Parallel()

	f := newFixture(t, nil)
	noKeys := newFixture(t, map[string]string{"LIQPAY_PUBLIC_KEY": ""})

	tests := []struct {
		name       string
		f          fixture
		body       map[string]any
		origin     string
		wantStatus int
		wantError  string
	}{
		{
			name:       "foreign_origin",
			f:          f,
			body:       map[string]any{"productType": "Вікно", "quantity": 1, "unitPrice": 1},
			origin:     "https://evil.example",
			wantStatus: http.StatusForbidden,
			wantError:  "Origin is not allowed",
		},
		{
			name:       "precision",
			f:          f,
			body:       map[string]any{"productType": "Вікно", "quantity": "1.234", "unitPrice": 1},
			origin:     origin,
			wantStatus: http.StatusBadRequest,
			wantError:  "Значення має містити не більше 2 знаків після коми",
		},
		{
			name:       "installment_range",
			f:          f,
			body:       map[string]any{"productType": "Вікно", "quantity": 1, "unitPrice": 1, "paymentMethod": "paypart", "installmentCount": 9},
			origin:     origin,
			wantStatus: http.StatusBadRequest,
			wantError:  "Оберіть кількість платежів від 2 до 5",
		},
		{
			name:       "not_configured",
			f:          noKeys,
			body:       map[string]any{"productType": "Вікно", "quantity": 1, "unitPrice": 1},
			origin:     origin,
			wantStatus: http.StatusInternalServerError,
			wantError:  "Сервер не налаштований для проведення платежів",
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			w := tt.f.postJSON("/createCheckoutPayload", tt.body, map[string]string{"Origin": tt.origin})
			assert.Equal(t, tt.wantStatus, w.Code)
			assert.JSONEq(t, `{"error":"`+tt.wantError+`"}`, w.Body.String())
		})
	}
}

func TestMethodsAndPreflight(t *testing.T) {
	t.Parallel()

	f := newFixture(t, nil)

	req := httptest.NewRequest(http.MethodOptions, "/createCheckoutPayload", nil)
	req.Header.Set("Origin", origin)
	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, origin, w.Header().Get("Access-Control-Allow-Origin"))

	req = httptest.NewRequest(http.MethodGet, "/liqpayCallback", nil)
	w = httptest.NewRecorder()
	f.router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusMethodNotAllowed, w.Code)
	assert.JSONEq(t, `{"error":"Method not allowed"}`, w.Body.String())

	req = httptest.NewRequest(http.MethodGet, "/health", nil)
	w = httptest.NewRecorder()
	f.router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"healthy"}`, w.Body.String())
}

func TestGetInstallmentSettings(t *testing.T) {
	t.Parallel()

	f := newFixture(t, map[string]string{"SHOW_MOMENT_PART": "false"})

	w := f.postJSON("/api/getInstallmentSettings", map[string]any{}, map[string]string{"Origin": origin})
	require.Equal(t, http.StatusOK, w.Code)

	var resp models.InstallmentSettingsResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "liqpay", resp.CreditProvider)
	assert.False(t, resp.ShowMomentPart)
	assert.Len(t, resp.Plans, 2)
}

func TestGetPaymentStatusUpstreamFailure(t *testing.T) {
	t.Parallel()

	f := newFixture(t, nil)

	w := f.postJSON("/getPaymentStatus", map[string]any{"orderId": "VS-1-ab"}, map[string]string{"Origin": origin})
	assert.Equal(t, http.StatusBadGateway, w.Code)

	w = f.postJSON("/getPaymentStatus", map[string]any{"orderId": ""}, map[string]string{"Origin": origin})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestGetPaymentStatusLogsRequestID(t *testing.T) {
	core, logs := observer.New(zapcore.WarnLevel)
	logging.SetLogger(zap.New(core))
	defer logging.SetLogger(nil)

	f := newFixture(t, nil)
	requestID := "6f1c1d55-9a3e-4c1b-8d0e-2f9a8b7c6d5e"

	w := f.postJSON("/getPaymentStatus", map[string]any{"orderId": "VS-1-ab"}, map[string]string{
		"Origin":       origin,
		"X-Request-ID": requestID,
	})
	assert.Equal(t, http.StatusBadGateway, w.Code)
	assert.Equal(t, requestID, w.Header().Get("X-Request-ID"))

	entries := logs.FilterMessage("Payment status lookup failed").All()
	require.Len(t, entries, 1)
	assert.Equal(t, requestID, entries[0].ContextMap()["request_id"])
}

func TestLiqpayCallback(t *testing.T) {
	t.Parallel()

	f := newFixture(t, nil)

	data, err := liqpay.Encode(liqpay.Payload{
		"status":   "hold_wait",
		"paytype":  "moment_part",
		"amount":   150.00,
		"order_id": "VS-9-ab",
	})
	require.NoError(t, err)

	// hold_completion fails upstream with 500; the callback is still accepted.
	w := f.postForm("/liqpayCallback", url.Values{"data": {data}, "signature": {liqpay.Sign(data, privateKey)}})
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "ok", w.Body.String())
	assert.Equal(t, int32(1), atomic.LoadInt32(f.holdRequests))

	w = f.postJSON("/api/liqpayCallback", map[string]string{"data": data, "signature": liqpay.SignSHA3(data, privateKey)}, nil)
	assert.Equal(t, http.StatusOK, w.Code)

	tests := []struct {
		name       string
		form       url.Values
		wantStatus int
		wantBody   string
	}{
		{name: "missing", form: url.Values{"data": {data}}, wantStatus: http.StatusBadRequest, wantBody: "missing data/signature"},
		{name: "tampered", form: url.Values{"data": {data}, "signature": {liqpay.Sign(data, "other")}}, wantStatus: http.StatusBadRequest, wantBody: "invalid signature"},
		{name: "garbage", form: url.Values{"data": {"@@@"}, "signature": {liqpay.Sign("@@@", privateKey)}}, wantStatus: http.StatusBadRequest, wantBody: "invalid data"},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			w := f.postForm("/liqpayCallback", tt.form)
			assert.Equal(t, tt.wantStatus, w.Code)
			assert.Equal(t, tt.wantBody, w.Body.String())
		})
	}
}

func TestLiqpayCallbackMissingKey(t *testing.T) {
	t.Parallel()

	f := newFixture(t, map[string]string{"LIQPAY_PRIVATE_KEY": ""})

	w := f.postForm("/liqpayCallback", url.Values{"data": {"x"}, "signature": {"y"}})
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, "private key missing", w.Body.String())
}

func TestPaypartsCallback(t *testing.T) {
	t.Parallel()

	f := newFixture(t, nil)

	sig := signature.Sandwich(signature.SHA1, password, storeID, "PP-1-ab", "SUCCESS", "")
	w := f.postForm("/paypartsCallback", url.Values{
		"storeId": {storeID}, "orderId": {"PP-1-ab"}, "paymentState": {"SUCCESS"}, "signature": {sig},
	})
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "ok", w.Body.String())

	w = f.postJSON("/paypartsCallback", map[string]string{
		"storeIdentifier": storeID, "orderId": "PP-1-ab", "paymentState": "FAIL", "signature": sig,
	}, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "invalid signature", w.Body.String())
}
