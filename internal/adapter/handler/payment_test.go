package handler

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/techcsc21/paybridge/internal/adapter/middleware"
	"github.com/techcsc21/paybridge/internal/adapter/storage"
	"github.com/techcsc21/paybridge/internal/core/config"
	"github.com/techcsc21/paybridge/internal/core/domain"
	"github.com/techcsc21/paybridge/internal/core/gateway"
	"github.com/techcsc21/paybridge/internal/core/payment"
)

const (
	testMerchantCode = "MERCH01"
	testMerchantKey  = "secret-key"
	testReference    = "A1B2C3D4E5F6A7B8C9D0"
)

type apiFixture struct {
	app       *fiber.App
	store     *storage.MemoryStore
	cfg       *config.Config
	accountID uuid.UUID
}

// newAPIFixture wires the handlers into a fiber app exactly as main does, but
// on the in-memory store and with a stub auth middleware that injects the
// account id directly.
func newAPIFixture(t *testing.T) *apiFixture {
	t.Helper()

	cfg := &config.Config{
		MerchantCode:      testMerchantCode,
		MerchantKey:       testMerchantKey,
		PublicBaseURL:     "http://localhost:3000",
		GatewayEntryURL:   "http://gateway.test/epayment/entry",
		GatewayRequeryURL: "http://127.0.0.1:1/epayment/requery",
	}

	store := storage.NewMemoryStore()
	accountID := uuid.New()

	f := &apiFixture{
		store:     store,
		cfg:       cfg,
		accountID: accountID,
	}

	h := &PaymentHandler{
		Intents:    payment.NewIntentBuilder(store, cfg),
		Reconciler: payment.NewReconciler(store, cfg),
		Store:      store,
		Client:     gateway.NewClient(cfg),
	}

	app := fiber.New()
	authStub := func(c *fiber.Ctx) error {
		c.Locals(middleware.AccountIDKey, accountID.String())
		return c.Next()
	}
	v1 := app.Group("/v1")
	v1.Post("/payments", authStub, h.Initiate)
	v1.Post("/payments/verify", h.Verify)
	v1.Post("/payments/webhook", h.Webhook)
	v1.Get("/payments/status", authStub, h.Status)
	v1.Get("/payments", authStub, h.History)
	f.app = app
	return f
}

// seedPending inserts a PENDING deposit of 100.00 USD under the fixture's
// account.
func (f *apiFixture) seedPending(t *testing.T) *domain.Transaction {
	t.Helper()
	tx := &domain.Transaction{
		UUID:      uuid.New(),
		Reference: testReference,
		AccountID: f.accountID,
		Kind:      domain.KindDeposit,
		Status:    domain.StatusPending,
		Amount:    decimal.RequireFromString("100.00"),
		Currency:  "USD",
	}
	require.NoError(t, f.store.CreateTransaction(context.Background(), tx))
	return tx
}

// webhookForm builds a correctly signed gateway callback for the seeded
// transaction. Tests tamper by mutating fields after signing.
func webhookForm(status string) url.Values {
	v := url.Values{}
	v.Set("MerchantCode", testMerchantCode)
	v.Set("PaymentId", "998877")
	v.Set("RefNo", testReference)
	v.Set("Amount", "10000")
	v.Set("Currency", "USD")
	v.Set("TransId", "T-5521")
	v.Set("AuthCode", "00")
	v.Set("Status", status)
	v.Set("Signature", gateway.SignResponse(
		testMerchantKey, testMerchantCode, "998877", testReference, "10000", "USD", status))
	return v
}

func postForm(t *testing.T, app *fiber.App, path string, form url.Values) (*http.Response, string) {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	resp, err := app.Test(req, 15000)
	require.NoError(t, err)
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, string(body)
}

func TestWebhookSuccessRepliesReceiveOK(t *testing.T) {
	f := newAPIFixture(t)
	f.seedPending(t)

	resp, body := postForm(t, f.app, "/v1/payments/webhook", webhookForm("1"))

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "RECEIVEOK", body)

	tx, err := f.store.FindByReference(context.Background(), testReference)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusCompleted, tx.Status)
	assert.True(t, f.store.WalletBalance(f.accountID, "USD").Equal(decimal.RequireFromString("100.00")))
}

func TestWebhookDuplicateDeliveryCreditsOnce(t *testing.T) {
	f := newAPIFixture(t)
	f.seedPending(t)

	for i := 0; i < 3; i++ {
		resp, body := postForm(t, f.app, "/v1/payments/webhook", webhookForm("1"))
		assert.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Equal(t, "RECEIVEOK", body)
	}

	assert.True(t, f.store.WalletBalance(f.accountID, "USD").Equal(decimal.RequireFromString("100.00")),
		"replayed webhooks must not credit the wallet again")
}

func TestWebhookMissingFieldsRepliesFail(t *testing.T) {
	f := newAPIFixture(t)
	f.seedPending(t)

	form := webhookForm("1")
	form.Del("Signature")

	resp, body := postForm(t, f.app, "/v1/payments/webhook", form)

	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "FAIL", body)
}

func TestWebhookUnknownReferenceRepliesFail(t *testing.T) {
	f := newAPIFixture(t)

	resp, body := postForm(t, f.app, "/v1/payments/webhook", webhookForm("1"))

	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Equal(t, "FAIL", body)
}

func TestWebhookTamperedSignatureRepliesFail(t *testing.T) {
	f := newAPIFixture(t)
	f.seedPending(t)

	form := webhookForm("1")
	form.Set("Amount", "999999") // amount changed after signing

	resp, body := postForm(t, f.app, "/v1/payments/webhook", form)

	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "FAIL", body)

	assert.True(t, f.store.WalletBalance(f.accountID, "USD").IsZero())
}

func TestVerifyReturnsReconciledStatus(t *testing.T) {
	f := newAPIFixture(t)
	f.seedPending(t)

	resp, body := postForm(t, f.app, "/v1/payments/verify", webhookForm("1"))

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body, `"status":"COMPLETED"`)
	assert.Contains(t, body, `"reference":"`+testReference+`"`)
}

func TestVerifyRejectsForeignMerchant(t *testing.T) {
	f := newAPIFixture(t)
	f.seedPending(t)

	form := webhookForm("1")
	form.Set("MerchantCode", "OTHER99")
	form.Set("Signature", gateway.SignResponse(
		testMerchantKey, "OTHER99", "998877", testReference, "10000", "USD", "1"))

	resp, _ := postForm(t, f.app, "/v1/payments/verify", form)

	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestInitiateCreatesPendingDeposit(t *testing.T) {
	f := newAPIFixture(t)

	req := httptest.NewRequest(http.MethodPost, "/v1/payments",
		strings.NewReader(`{"amount":"50.25","currency":"USD","description":"Top up"}`))
	req.Header.Set("Content-Type", "application/json")
	resp, err := f.app.Test(req, 15000)
	require.NoError(t, err)
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	assert.Equal(t, http.StatusCreated, resp.StatusCode)
	assert.Contains(t, string(body), `"payment_url"`)
	assert.Contains(t, string(body), `"status":"PENDING"`)
}

func TestInitiateRejectsUnsupportedCurrency(t *testing.T) {
	f := newAPIFixture(t)

	req := httptest.NewRequest(http.MethodPost, "/v1/payments",
		strings.NewReader(`{"amount":"50.25","currency":"XXX"}`))
	req.Header.Set("Content-Type", "application/json")
	resp, err := f.app.Test(req, 15000)
	require.NoError(t, err)

	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestStatusFallsBackToLocalWhenGatewayDown(t *testing.T) {
	f := newAPIFixture(t) // requery URL points at a closed port
	f.seedPending(t)

	req := httptest.NewRequest(http.MethodGet, "/v1/payments/status?reference="+testReference, nil)
	resp, err := f.app.Test(req, 15000)
	require.NoError(t, err)
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), `"source":"local"`)
	assert.Contains(t, string(body), `"status":"PENDING"`)
}

func TestStatusRequeriesGatewayWhenPending(t *testing.T) {
	f := newAPIFixture(t)
	f.seedPending(t)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/x-www-form-urlencoded")
		_, _ = w.Write([]byte(webhookForm("1").Encode()))
	}))
	defer srv.Close()
	f.cfg.GatewayRequeryURL = srv.URL

	req := httptest.NewRequest(http.MethodGet, "/v1/payments/status?reference="+testReference, nil)
	resp, err := f.app.Test(req, 15000)
	require.NoError(t, err)
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), `"source":"gateway"`)
	assert.Contains(t, string(body), `"status":"COMPLETED"`)

	assert.True(t, f.store.WalletBalance(f.accountID, "USD").Equal(decimal.RequireFromString("100.00")))
}

func TestStatusHidesForeignTransactions(t *testing.T) {
	f := newAPIFixture(t)
	tx := &domain.Transaction{
		UUID:      uuid.New(),
		Reference: testReference,
		AccountID: uuid.New(), // someone else's deposit
		Kind:      domain.KindDeposit,
		Status:    domain.StatusPending,
		Amount:    decimal.RequireFromString("100.00"),
		Currency:  "USD",
	}
	require.NoError(t, f.store.CreateTransaction(context.Background(), tx))

	req := httptest.NewRequest(http.MethodGet, "/v1/payments/status?reference="+testReference, nil)
	resp, err := f.app.Test(req, 15000)
	require.NoError(t, err)

	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestHistoryListsOwnDeposits(t *testing.T) {
	f := newAPIFixture(t)
	f.seedPending(t)

	req := httptest.NewRequest(http.MethodGet, "/v1/payments", nil)
	resp, err := f.app.Test(req, 15000)
	require.NoError(t, err)
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), testReference)
}
