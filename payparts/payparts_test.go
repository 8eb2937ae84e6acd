package payparts

import (
	"context"
	"crypto/sha1"
	"encoding/base64"
	stdjson "encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"checkout-service/apperr"
	"checkout-service/money"
	"checkout-service/orderid"
	"checkout-service/pricing"
)

const password = "75bef16bfdce4d0e9c0ad5a19b9940df"

func sha1b64(s string) string {
	sum := sha1.Sum([]byte(s))
	return base64.StdEncoding.EncodeToString(sum[:])
}

func TestMerchantTypeRoundTrip(t *testing.T) {
	t.Parallel()

	assert.Equal(t, MerchantPaypart, MerchantTypeFor(pricing.MethodPaypart))
	assert.Equal(t, MerchantMomentPart, MerchantTypeFor(pricing.MethodMomentPart))

	for _, m := range []pricing.Method{pricing.MethodPaypart, pricing.MethodMomentPart} {
		id := NewOrderID(MerchantTypeFor(m))
		route := orderid.Infer(id)
		assert.Equal(t, orderid.ProviderPayParts, route.Provider)
		assert.Equal(t, m, MethodFor(MerchantType(route.Prefix)))
	}
}

func TestBuildCreatePaymentRequestSignature(t *testing.T) {
	t.Parallel()

	products := BuildProducts("Вікно", 250, 25000)
	require.Len(t, products, 1)
	assert.Equal(t, "Вікно (2.5 м²)", products[0].Name)

	req := BuildCreatePaymentRequest(CreatePaymentParams{
		StoreID:      "4AAD1369CF734B64B70F",
		Password:     password,
		OrderID:      "PP-1-ab",
		Amount:       25000,
		PartsCount:   4,
		MerchantType: MerchantPaypart,
		Products:     products,
		ResponseURL:  "https://api.example/paypartsCallback",
		RedirectURL:  "https://shop.example/payment/result?order_id=PP-1-ab",
	})

	source := password + "4AAD1369CF734B64B70F" + "PP-1-ab" + "25000" + "4" + "PP" +
		"https://api.example/paypartsCallback" +
		"https://shop.example/payment/result?order_id=PP-1-ab" +
		"Вікно (2.5 м²)" + "1" + "25000" + password
	assert.Equal(t, sha1b64(source), req.Signature)

	raw, err := stdjson.Marshal(req)
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"amount":250`)
	assert.Contains(t, string(raw), `"price":250`)
	assert.Contains(t, string(raw), `"merchantType":"PP"`)
}

func TestBuildStateRequest(t *testing.T) {
	t.Parallel()

	req := BuildStateRequest("store", "II-1-ab", password)
	assert.Equal(t, sha1b64(password+"store"+"II-1-ab"+password), req.Signature)
	assert.True(t, req.ShowAmount)
}

func TestVerifyCreateResponseCandidates(t *testing.T) {
	t.Parallel()

	base := CreatePaymentResponse{State: "SUCCESS", StoreID: "store", OrderID: "PP-1", Token: "tok", Message: "ok"}

	tests := []struct {
		name   string
		source string
		resp   CreatePaymentResponse
		want   bool
	}{
		{name: "token", source: "SUCCESS" + "store" + "PP-1" + "tok", resp: base, want: true},
		{name: "message", source: "SUCCESS" + "store" + "PP-1" + "ok", resp: base, want: true},
		{name: "message_token", source: "SUCCESS" + "store" + "PP-1" + "ok" + "tok", resp: base, want: true},
		{name: "token_message_order_is_not_accepted", source: "SUCCESS" + "store" + "PP-1" + "tok" + "ok", resp: base, want: false},
		{
			name:   "bare",
			source: "FAIL" + "store" + "PP-1",
			resp:   CreatePaymentResponse{State: "FAIL", StoreID: "store", OrderID: "PP-1"},
			want:   true,
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			resp := tt.resp
			resp.Signature = sha1b64(password + tt.source + password)
			assert.Equal(t, tt.want, VerifyCreateResponseSignature(resp, password))
		})
	}

	assert.False(t, VerifyCreateResponseSignature(base, password), "missing signature")
}

func TestVerifyStateAndCallback(t *testing.T) {
	t.Parallel()

	state := StateResponse{State: "SUCCESS", StoreID: "store", OrderID: "II-1", PaymentState: "SUCCESS", Message: "done"}
	state.Signature = sha1b64(password + "SUCCESS" + "store" + "II-1" + "SUCCESS" + "done" + password)
	assert.True(t, VerifyStateResponseSignature(state, password))
	state.Message = "changed"
	assert.False(t, VerifyStateResponseSignature(state, password))

	cb := Callback{StoreIdentifier: "store", OrderID: "PP-1", PaymentState: "SUCCESS"}
	cb.Signature = sha1b64(password + "store" + "PP-1" + "SUCCESS" + "" + password)
	assert.True(t, VerifyCallbackSignature(cb, password))

	cb.Signature = strings.ToLower(cb.Signature)
	assert.False(t, VerifyCallbackSignature(cb, password), "comparison is case-sensitive")
}

func TestCheckoutURL(t *testing.T) {
	t.Parallel()

	assert.Equal(t, DefaultBaseURL+"/payment?token=a%2Bb", CheckoutURL("", "a+b"))
	assert.Equal(t, "https://x.test/ipp/payment?token=t", CheckoutURL("https://x.test/ipp//", "t"))
}

func TestClientCreateAndState(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "application/json; charset=UTF-8", r.Header.Get("Content-Type"))
		switch r.URL.Path {
		case "/payment/create":
			var req CreatePaymentRequest
			assert.NoError(t, stdjson.NewDecoder(r.Body).Decode(&req))
			_, _ = w.Write([]byte(`{"state":"SUCCESS","storeId":"store","orderId":"` + req.OrderID + `","token":"tok"}`))
		case "/payment/state":
			_, _ = w.Write([]byte(`{"state":"SUCCESS","paymentState":"SUCCESS","storeId":"store","orderId":"PP-1","amount":150.00}`))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer srv.Close()

	c := NewClient(srv.URL+"/", time.Second)
	created, err := c.CreatePayment(context.Background(), CreatePaymentRequest{OrderID: "PP-1"})
	require.NoError(t, err)
	assert.Equal(t, "tok", created.Token)

	state, err := c.PaymentState(context.Background(), BuildStateRequest("store", "PP-1", password))
	require.NoError(t, err)
	amount, ok := state.StateAmount()
	assert.True(t, ok)
	assert.Equal(t, money.Cents(15000), amount)
}

func TestClientErrors(t *testing.T) {
	t.Parallel()

	page := "<!doctype html>" + strings.Repeat("Помилка ", 100)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/payment/state" {
			w.WriteHeader(http.StatusInternalServerError)
			_, _ = w.Write([]byte(`{"state":"FAIL","message":"internal"}`))
			return
		}
		_, _ = w.Write([]byte(page))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, time.Second)

	_, err := c.CreatePayment(context.Background(), CreatePaymentRequest{})
	require.Error(t, err)
	assert.Equal(t, apperr.KindUpstream, apperr.KindOf(err))
	msg := apperr.Message(err, "")
	assert.Contains(t, msg, "<!doctype html>")
	assert.NotContains(t, msg, strings.Repeat("Помилка ", 30))

	_, err = c.PaymentState(context.Background(), StateRequest{})
	require.Error(t, err)
	assert.Equal(t, apperr.KindUpstream, apperr.KindOf(err))
}
