package payment

import (
	"context"
	"net/url"
	"regexp"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/techcsc21/paybridge/internal/adapter/storage"
	"github.com/techcsc21/paybridge/internal/core/config"
	"github.com/techcsc21/paybridge/internal/core/domain"
	"github.com/techcsc21/paybridge/internal/core/gateway"
)

func intentFixture() (*IntentBuilder, *storage.MemoryStore) {
	cfg := &config.Config{
		MerchantCode:    testMerchantCode,
		MerchantKey:     testMerchantKey,
		PublicBaseURL:   "https://shop.example.com",
		GatewayEntryURL: "https://sandbox.gateway.example.com/epayment/entry",
	}
	store := storage.NewMemoryStore()
	return NewIntentBuilder(store, cfg), store
}

func TestCreateIntent(t *testing.T) {
	builder, store := intentFixture()
	accountID := uuid.New()

	intent, err := builder.Create(context.Background(), IntentInput{
		AccountID:     accountID,
		Amount:        decimal.RequireFromString("100.50"),
		Currency:      "usd",
		Description:   "Wallet top-up",
		CustomerName:  "Jane Doe",
		CustomerEmail: "jane@example.com",
	})
	require.NoError(t, err)

	// Reference format: uppercase alphanumeric, bounded length.
	assert.Regexp(t, regexp.MustCompile(`^[A-Z0-9]{20}$`), intent.Reference)
	assert.Equal(t, domain.StatusPending, intent.Status)
	assert.Equal(t, testMerchantCode, intent.MerchantCode)

	// Redirect URL carries the signed payload and both callback URLs.
	parsed, err := url.Parse(intent.PaymentURL)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(intent.PaymentURL, "https://sandbox.gateway.example.com/epayment/entry?"))

	q := parsed.Query()
	assert.Equal(t, testMerchantCode, q.Get("MerchantCode"))
	assert.Equal(t, intent.Reference, q.Get("RefNo"))
	assert.Equal(t, "10050", q.Get("Amount"))
	assert.Equal(t, "USD", q.Get("Currency"))
	assert.Equal(t, "https://shop.example.com/v1/payments/verify", q.Get("ResponseURL"))
	assert.Equal(t, "https://shop.example.com/v1/payments/webhook", q.Get("BackendURL"))
	assert.Equal(t,
		gateway.Sign(testMerchantKey, testMerchantCode, intent.Reference, "10050", "USD"),
		q.Get("Signature"))

	// The transaction is persisted PENDING with the audit payload.
	tx, err := store.FindByReference(context.Background(), intent.Reference)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusPending, tx.Status)
	assert.Equal(t, accountID, tx.AccountID)
	assert.Equal(t, domain.KindDeposit, tx.Kind)
	assert.True(t, tx.Amount.Equal(decimal.RequireFromString("100.50")))
	assert.Equal(t, "USD", tx.Currency)
	assert.Equal(t, intent.Signature, tx.Metadata.RequestSignature)
	assert.NotEmpty(t, tx.Metadata.RequestPayload)
}

func TestCreateIntentRejectsBadInput(t *testing.T) {
	builder, _ := intentFixture()

	tests := []struct {
		name  string
		input IntentInput
	}{
		{"zero amount", IntentInput{AccountID: uuid.New(), Amount: decimal.Zero, Currency: "USD"}},
		{"negative amount", IntentInput{AccountID: uuid.New(), Amount: decimal.RequireFromString("-5"), Currency: "USD"}},
		{"unsupported currency", IntentInput{AccountID: uuid.New(), Amount: decimal.RequireFromString("10"), Currency: "XAU"}},
		{"empty currency", IntentInput{AccountID: uuid.New(), Amount: decimal.RequireFromString("10")}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := builder.Create(context.Background(), tt.input)
			assert.ErrorIs(t, err, domain.ErrInvalidRequest)
		})
	}
}

func TestReferenceDerivation(t *testing.T) {
	id := uuid.New()
	// Deterministic: the same UUID always yields the same reference.
	assert.Equal(t, newReference(id), newReference(id))
	assert.NotEqual(t, newReference(id), newReference(uuid.New()))
}
