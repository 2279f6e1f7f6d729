package handlers

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/bazarioapp/bazario/internal/address"
	"github.com/bazarioapp/bazario/internal/auth"
	"github.com/bazarioapp/bazario/internal/cache"
	"github.com/bazarioapp/bazario/internal/config"
	"github.com/bazarioapp/bazario/internal/crypto"
	"github.com/bazarioapp/bazario/internal/draft"
	"github.com/bazarioapp/bazario/internal/email"
	"github.com/bazarioapp/bazario/internal/payment"
	"github.com/bazarioapp/bazario/internal/services"
	"github.com/bazarioapp/bazario/internal/sslcommerz"
	"github.com/bazarioapp/bazario/internal/storeapi"
)

const (
	testSecret        = "test-secret"
	testEncryptionKey = "0123456789abcdef0123456789abcdef"
)

type fakeAddressAPI struct {
	grouped  map[string][]address.Address
	createID int64
}

func (f *fakeAddressAPI) List(ctx context.Context) (map[string][]address.Address, error) {
	return f.grouped, nil
}

func (f *fakeAddressAPI) Create(ctx context.Context, a address.Address) (int64, error) {
	return f.createID, nil
}

type fakeCartAPI struct {
	summary *storeapi.CartSummary
}

func (f *fakeCartAPI) Summary(ctx context.Context, couponCode string, shippingMethodID int64) (*storeapi.CartSummary, error) {
	return f.summary, nil
}

type fakeOrderAPI struct {
	placeIDs     []int64
	digitalIDs   []int64
	verifyResult *storeapi.VerificationResult
	verifyCalls  int
}

func (f *fakeOrderAPI) Place(ctx context.Context, req storeapi.OrderRequest) ([]int64, error) {
	return f.placeIDs, nil
}

func (f *fakeOrderAPI) PlaceWithDigitalPayment(ctx context.Context, req storeapi.OrderRequest) ([]int64, error) {
	return f.digitalIDs, nil
}

func (f *fakeOrderAPI) PlaceByOfflinePayment(ctx context.Context, req storeapi.OfflineOrderRequest) ([]string, error) {
	return []string{"order received"}, nil
}

func (f *fakeOrderAPI) VerifyAndComplete(ctx context.Context, req storeapi.VerificationRequest) (*storeapi.VerificationResult, error) {
	f.verifyCalls++
	return f.verifyResult, nil
}

func (f *fakeOrderAPI) OfflineMethods(ctx context.Context) ([]payment.OfflineMethod, error) {
	return []payment.OfflineMethod{{ID: 3, MethodName: "bKash"}}, nil
}

type fakeGateway struct {
	session *sslcommerz.Session
}

func (f *fakeGateway) InitiateSession(ctx context.Context, req sslcommerz.PaymentRequest) (*sslcommerz.Session, error) {
	return f.session, nil
}

type testFixture struct {
	handlers *Handlers
	drafts   *draft.Manager
	orders   *fakeOrderAPI
}

func newTestHandlers(t *testing.T) *testFixture {
	t.Helper()

	cfg := &config.Config{
		BaseURL:             "https://shop.example.com",
		CustomerTokenSecret: testSecret,
	}

	enc, err := crypto.NewEncryptor(testEncryptionKey)
	if err != nil {
		t.Fatalf("failed to create encryptor: %v", err)
	}
	drafts := draft.NewManager(draft.NewMemoryStore(), enc, false)

	verifier, err := auth.NewVerifier(testSecret)
	if err != nil {
		t.Fatalf("failed to create verifier: %v", err)
	}

	processed, err := cache.NewMemoryProvider()
	if err != nil {
		t.Fatalf("failed to create cache: %v", err)
	}

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	addresses := &fakeAddressAPI{grouped: map[string][]address.Address{}, createID: 42}
	cart := &fakeCartAPI{summary: &storeapi.CartSummary{Total: 1500}}
	orders := &fakeOrderAPI{
		placeIDs:     []int64{501},
		digitalIDs:   []int64{601},
		verifyResult: &storeapi.VerificationResult{OrderIDs: []int64{601}, Messages: []string{"ok"}},
	}
	gateway := &fakeGateway{session: &sslcommerz.Session{SessionKey: "sk", PaymentURL: "https://sandbox.sslcommerz.com/pay/sk"}}
	profile := config.DefaultMethodsProfile()

	h, err := New(Dependencies{
		Config:          cfg,
		Verifier:        verifier,
		DraftManager:    drafts,
		CheckoutService: services.NewCheckoutService(addresses, cart, drafts, logger),
		OrderService:    services.NewOrderService(orders, gateway, cart, drafts, profile, cfg.CallbackURL(), logger),
		CallbackService: services.NewCallbackService(orders, drafts, processed, email.NoopProvider{}, logger),
		Logger:          logger,
	})
	if err != nil {
		t.Fatalf("failed to build handlers: %v", err)
	}

	return &testFixture{handlers: h, drafts: drafts, orders: orders}
}

func customerToken(t *testing.T, secret string) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":   "7",
		"name":  "Rahim Uddin",
		"email": "rahim@example.com",
		"phone": "+8801712345678",
		"exp":   time.Now().Add(time.Hour).Unix(),
	})
	signed, err := token.SignedString([]byte(secret))
	if err != nil {
		t.Fatalf("failed to sign token: %v", err)
	}
	return signed
}

func checkoutCookie(resp *http.Response) *http.Cookie {
	for _, c := range resp.Cookies() {
		if c.Name == "bazario_checkout" {
			return c
		}
	}
	return nil
}

func TestRequireCustomer(t *testing.T) {
	t.Parallel()

	fx := newTestHandlers(t)
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		customer := auth.CustomerFromContext(r.Context())
		if customer == nil {
			t.Error("expected customer on context")
			return
		}
		w.WriteHeader(http.StatusNoContent)
	})
	protected := fx.handlers.RequireCustomer(next)

	t.Run("missing token", func(t *testing.T) {
		t.Parallel()
		req := httptest.NewRequest(http.MethodGet, "/api/checkout/draft", nil)
		rec := httptest.NewRecorder()
		protected.ServeHTTP(rec, req)
		if rec.Code != http.StatusUnauthorized {
			t.Fatalf("expected 401, got %d", rec.Code)
		}
	})

	t.Run("invalid token", func(t *testing.T) {
		t.Parallel()
		req := httptest.NewRequest(http.MethodGet, "/api/checkout/draft", nil)
		req.Header.Set("Authorization", "Bearer not-a-token")
		rec := httptest.NewRecorder()
		protected.ServeHTTP(rec, req)
		if rec.Code != http.StatusUnauthorized {
			t.Fatalf("expected 401, got %d", rec.Code)
		}
	})

	t.Run("valid token", func(t *testing.T) {
		t.Parallel()
		req := httptest.NewRequest(http.MethodGet, "/api/checkout/draft", nil)
		req.Header.Set("Authorization", "Bearer "+customerToken(t, testSecret))
		rec := httptest.NewRecorder()
		protected.ServeHTTP(rec, req)
		if rec.Code != http.StatusNoContent {
			t.Fatalf("expected 204, got %d (%s)", rec.Code, rec.Body.String())
		}
	})
}

func TestSubmitAddress(t *testing.T) {
	t.Parallel()

	t.Run("valid submission sets the session cookie and records ids", func(t *testing.T) {
		t.Parallel()

		fx := newTestHandlers(t)
		body := `{"shipping":{"contact_person_name":"Rahim Uddin","phone":"+8801712345678","email":"rahim@example.com","country":"Bangladesh","city":"Dhaka","zip":"1207","address":"House 7, Road 3"},"same_as_shipping":true}`
		req := httptest.NewRequest(http.MethodPost, "/api/checkout/address", strings.NewReader(body))
		rec := httptest.NewRecorder()
		fx.handlers.SubmitAddress(rec, req)

		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d (%s)", rec.Code, rec.Body.String())
		}
		if checkoutCookie(rec.Result()) == nil {
			t.Fatal("expected the checkout session cookie to be set")
		}

		var resp struct {
			Draft draft.Draft `json:"draft"`
		}
		if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
			t.Fatalf("failed to decode response: %v", err)
		}
		if resp.Draft.ShippingAddressID != 42 || resp.Draft.BillingAddressID != 42 {
			t.Fatalf("unexpected draft ids: %+v", resp.Draft)
		}
	})

	t.Run("invalid submission returns field errors", func(t *testing.T) {
		t.Parallel()

		fx := newTestHandlers(t)
		body := `{"shipping":{"contact_person_name":"Rahim Uddin"},"same_as_shipping":true}`
		req := httptest.NewRequest(http.MethodPost, "/api/checkout/address", strings.NewReader(body))
		rec := httptest.NewRecorder()
		fx.handlers.SubmitAddress(rec, req)

		if rec.Code != http.StatusUnprocessableEntity {
			t.Fatalf("expected 422, got %d", rec.Code)
		}
		var resp struct {
			Fields map[string]string `json:"fields"`
		}
		if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
			t.Fatalf("failed to decode response: %v", err)
		}
		if _, ok := resp.Fields["phone"]; !ok {
			t.Fatalf("expected a phone field error, got %v", resp.Fields)
		}
	})

	t.Run("malformed body is a 400", func(t *testing.T) {
		t.Parallel()

		fx := newTestHandlers(t)
		req := httptest.NewRequest(http.MethodPost, "/api/checkout/address", strings.NewReader("{not json"))
		rec := httptest.NewRecorder()
		fx.handlers.SubmitAddress(rec, req)
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", rec.Code)
		}
	})
}

func TestUpdateAndGetDraft(t *testing.T) {
	t.Parallel()

	fx := newTestHandlers(t)

	body := `{"shipping_method_id":2,"coupon_code":"EID10","order_note":"leave at the gate"}`
	req := httptest.NewRequest(http.MethodPut, "/api/checkout/draft", strings.NewReader(body))
	rec := httptest.NewRecorder()
	fx.handlers.UpdateDraft(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d (%s)", rec.Code, rec.Body.String())
	}
	cookie := checkoutCookie(rec.Result())
	if cookie == nil {
		t.Fatal("expected the checkout session cookie to be set")
	}

	getReq := httptest.NewRequest(http.MethodGet, "/api/checkout/draft", nil)
	getReq.AddCookie(cookie)
	getRec := httptest.NewRecorder()
	fx.handlers.GetDraft(getRec, getReq)
	if getRec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", getRec.Code)
	}

	var resp struct {
		Draft   draft.Draft           `json:"draft"`
		Summary *storeapi.CartSummary `json:"summary"`
	}
	if err := json.Unmarshal(getRec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp.Draft.ShippingMethodID != 2 || resp.Draft.CouponCode != "EID10" {
		t.Fatalf("draft did not survive the round trip: %+v", resp.Draft)
	}
	if resp.Summary == nil || resp.Summary.Total != 1500 {
		t.Fatalf("expected the cart summary mirror, got %+v", resp.Summary)
	}
}

func TestPaymentMethods(t *testing.T) {
	t.Parallel()

	fx := newTestHandlers(t)
	req := httptest.NewRequest(http.MethodGet, "/api/checkout/payment-methods", nil)
	rec := httptest.NewRecorder()
	fx.handlers.PaymentMethods(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var resp struct {
		Methods        []string                `json:"methods"`
		OfflineMethods []payment.OfflineMethod `json:"offline_methods"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if len(resp.Methods) != 3 {
		t.Fatalf("expected three methods, got %v", resp.Methods)
	}
	if len(resp.OfflineMethods) != 1 || resp.OfflineMethods[0].MethodName != "bKash" {
		t.Fatalf("unexpected offline methods: %+v", resp.OfflineMethods)
	}
}

func seedDraftCookie(t *testing.T, fx *testFixture) *http.Cookie {
	t.Helper()
	body := `{"shipping_address_id":10}`
	req := httptest.NewRequest(http.MethodPut, "/api/checkout/draft", strings.NewReader(body))
	rec := httptest.NewRecorder()
	fx.handlers.UpdateDraft(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("failed to seed draft: %d (%s)", rec.Code, rec.Body.String())
	}
	cookie := checkoutCookie(rec.Result())
	if cookie == nil {
		t.Fatal("expected a session cookie")
	}
	return cookie
}

func TestPlaceOrder(t *testing.T) {
	t.Parallel()

	t.Run("cash on delivery returns order ids", func(t *testing.T) {
		t.Parallel()

		fx := newTestHandlers(t)
		cookie := seedDraftCookie(t, fx)

		req := httptest.NewRequest(http.MethodPost, "/api/checkout/place-order", strings.NewReader(`{"payment_method":"cash_on_delivery"}`))
		req.AddCookie(cookie)
		rec := httptest.NewRecorder()
		fx.handlers.PlaceOrder(rec, req)

		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d (%s)", rec.Code, rec.Body.String())
		}
		var resp placeOrderResponse
		if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
			t.Fatalf("failed to decode response: %v", err)
		}
		if len(resp.OrderIDs) != 1 || resp.OrderIDs[0] != 501 {
			t.Fatalf("unexpected order ids: %v", resp.OrderIDs)
		}
		if resp.PaymentURL != "" {
			t.Fatal("cash on delivery must not return a payment url")
		}
	})

	t.Run("gateway returns the payment url", func(t *testing.T) {
		t.Parallel()

		fx := newTestHandlers(t)
		cookie := seedDraftCookie(t, fx)

		req := httptest.NewRequest(http.MethodPost, "/api/checkout/place-order", strings.NewReader(`{"payment_method":"ssl_commerz"}`))
		req.AddCookie(cookie)
		rec := httptest.NewRecorder()
		fx.handlers.PlaceOrder(rec, req)

		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d (%s)", rec.Code, rec.Body.String())
		}
		var resp placeOrderResponse
		if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
			t.Fatalf("failed to decode response: %v", err)
		}
		if resp.PaymentURL != "https://sandbox.sslcommerz.com/pay/sk" {
			t.Fatalf("unexpected payment url %q", resp.PaymentURL)
		}
	})

	t.Run("incomplete draft is a 409", func(t *testing.T) {
		t.Parallel()

		fx := newTestHandlers(t)
		req := httptest.NewRequest(http.MethodPost, "/api/checkout/place-order", strings.NewReader(`{"payment_method":"cash_on_delivery"}`))
		rec := httptest.NewRecorder()
		fx.handlers.PlaceOrder(rec, req)
		if rec.Code != http.StatusConflict {
			t.Fatalf("expected 409, got %d", rec.Code)
		}
	})

	t.Run("unknown method is a 400", func(t *testing.T) {
		t.Parallel()

		fx := newTestHandlers(t)
		req := httptest.NewRequest(http.MethodPost, "/api/checkout/place-order", strings.NewReader(`{"payment_method":"wire_transfer"}`))
		rec := httptest.NewRecorder()
		fx.handlers.PlaceOrder(rec, req)
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", rec.Code)
		}
	})
}

func seedPendingOrderCookie(t *testing.T, fx *testFixture) *http.Cookie {
	t.Helper()
	cookie := seedDraftCookie(t, fx)
	err := fx.drafts.SetPendingOrder(context.Background(), cookie.Value, &draft.PendingOrder{
		OrderID:       601,
		PaymentMethod: "ssl_commerz",
		Customer:      draft.CustomerSnapshot{Name: "Rahim Uddin", Email: "rahim@example.com"},
		Amount:        1500,
		Currency:      "BDT",
	})
	if err != nil {
		t.Fatalf("failed to seed pending order: %v", err)
	}
	return cookie
}

func TestPaymentCallback(t *testing.T) {
	t.Parallel()

	t.Run("success renders the panel with a delayed redirect home", func(t *testing.T) {
		t.Parallel()

		fx := newTestHandlers(t)
		cookie := seedPendingOrderCookie(t, fx)

		form := "status=VALID&tran_id=601-abc&val_id=val-1&amount=1500.00&currency=BDT"
		req := httptest.NewRequest(http.MethodPost, "/payment/sslcommerz/callback", strings.NewReader(form))
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		req.AddCookie(cookie)
		rec := httptest.NewRecorder()
		fx.handlers.PaymentCallback(rec, req)

		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rec.Code)
		}
		body := rec.Body.String()
		if !strings.Contains(body, "Payment successful") {
			t.Fatalf("expected a success panel, got %q", body)
		}
		if !strings.Contains(body, `http-equiv="refresh" content="3;url=/"`) {
			t.Fatalf("expected a delayed meta refresh to /, got %q", body)
		}
		if fx.orders.verifyCalls != 1 {
			t.Fatalf("expected one verification, got %d", fx.orders.verifyCalls)
		}
	})

	t.Run("success settles via the gateway session reference when the cookie is withheld", func(t *testing.T) {
		t.Parallel()

		fx := newTestHandlers(t)
		cookie := seedPendingOrderCookie(t, fx)

		// Browsers may drop the session cookie on the gateway's
		// cross-site POST; the value_a echo alone must be enough to
		// find the pending order.
		form := "status=VALID&tran_id=601-abc&val_id=val-1&amount=1500.00&currency=BDT&value_a=" + cookie.Value
		req := httptest.NewRequest(http.MethodPost, "/payment/sslcommerz/callback", strings.NewReader(form))
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		rec := httptest.NewRecorder()
		fx.handlers.PaymentCallback(rec, req)

		body := rec.Body.String()
		if !strings.Contains(body, "Payment successful") {
			t.Fatalf("expected a success panel, got %q", body)
		}
		if fx.orders.verifyCalls != 1 {
			t.Fatalf("expected one verification, got %d", fx.orders.verifyCalls)
		}
		d, err := fx.drafts.Get(context.Background(), cookie.Value)
		if err != nil {
			t.Fatalf("Get() error: %v", err)
		}
		if d.PendingOrder != nil {
			t.Fatalf("settled draft must be cleared: %+v", d)
		}
	})

	t.Run("cancel redirects back to the cart", func(t *testing.T) {
		t.Parallel()

		fx := newTestHandlers(t)
		cookie := seedPendingOrderCookie(t, fx)

		req := httptest.NewRequest(http.MethodGet, "/payment/sslcommerz/callback?status=CANCELLED&tran_id=601-abc", nil)
		req.AddCookie(cookie)
		rec := httptest.NewRecorder()
		fx.handlers.PaymentCallback(rec, req)

		body := rec.Body.String()
		if !strings.Contains(body, "Payment canceled") {
			t.Fatalf("expected a canceled panel, got %q", body)
		}
		if !strings.Contains(body, "url=/cart") {
			t.Fatalf("expected a redirect to /cart, got %q", body)
		}
	})

	t.Run("bare hop shows processing without a redirect", func(t *testing.T) {
		t.Parallel()

		fx := newTestHandlers(t)
		req := httptest.NewRequest(http.MethodGet, "/payment/sslcommerz/callback", nil)
		rec := httptest.NewRecorder()
		fx.handlers.PaymentCallback(rec, req)

		body := rec.Body.String()
		if !strings.Contains(body, "Processing payment") {
			t.Fatalf("expected a processing panel, got %q", body)
		}
		if strings.Contains(body, "http-equiv") {
			t.Fatalf("expected no redirect on a bare hop, got %q", body)
		}
	})

	t.Run("success without a session cookie is a support case", func(t *testing.T) {
		t.Parallel()

		fx := newTestHandlers(t)
		req := httptest.NewRequest(http.MethodGet, "/payment/sslcommerz/callback?status=VALID&tran_id=601-abc", nil)
		rec := httptest.NewRecorder()
		fx.handlers.PaymentCallback(rec, req)

		body := rec.Body.String()
		if !strings.Contains(body, "Payment failed") {
			t.Fatalf("expected a failed panel, got %q", body)
		}
		if !strings.Contains(body, "contact support") {
			t.Fatalf("expected a contact-support message, got %q", body)
		}
	})
}

func TestSecureCookiesFromConfig(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		cfg  *config.Config
		want bool
	}{
		{name: "nil config", cfg: nil, want: false},
		{name: "https base url", cfg: &config.Config{BaseURL: "https://shop.example.com"}, want: true},
		{name: "http base url", cfg: &config.Config{BaseURL: "http://localhost:8080"}, want: false},
		{name: "tls port fallback", cfg: &config.Config{Port: "443"}, want: true},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			if got := SecureCookiesFromConfig(tc.cfg); got != tc.want {
				t.Fatalf("SecureCookiesFromConfig() = %v, want %v", got, tc.want)
			}
		})
	}
}
