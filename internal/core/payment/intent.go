package payment

import (
	"context"
	"encoding/hex"
	"fmt"
	"net/url"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/techcsc21/paybridge/internal/core/config"
	"github.com/techcsc21/paybridge/internal/core/domain"
	"github.com/techcsc21/paybridge/internal/core/gateway"
)

var supportedCurrencies = map[string]bool{
	"USD": true,
	"EUR": true,
	"TZS": true,
}

// referenceLength is the gateway's bound on RefNo: uppercase alphanumeric,
// at most 20 characters.
const referenceLength = 20

// IntentBuilder creates outbound payment requests: it persists the PENDING
// transaction and hands the UI a signed redirect URL to the gateway's hosted
// payment page.
type IntentBuilder struct {
	store Store
	cfg   *config.Config
}

func NewIntentBuilder(store Store, cfg *config.Config) *IntentBuilder {
	return &IntentBuilder{store: store, cfg: cfg}
}

type IntentInput struct {
	AccountID     uuid.UUID
	Amount        decimal.Decimal
	Currency      string
	PaymentMethod string
	Description   string
	CustomerName  string
	CustomerEmail string
	CustomerPhone string
	Lang          string
}

type Intent struct {
	TransactionID uuid.UUID                `json:"transaction_id"`
	Reference     string                   `json:"reference"`
	PaymentURL    string                   `json:"payment_url"`
	Signature     string                   `json:"signature"`
	MerchantCode  string                   `json:"merchant_code"`
	Status        domain.TransactionStatus `json:"status"`
}

// Create validates the request, persists a PENDING deposit and builds the
// redirect URL. The outbound payload and signature land in the transaction's
// metadata for later audit.
func (b *IntentBuilder) Create(ctx context.Context, input IntentInput) (*Intent, error) {
	if !input.Amount.IsPositive() {
		return nil, fmt.Errorf("%w: amount must be greater than zero", domain.ErrInvalidRequest)
	}
	currency := strings.ToUpper(input.Currency)
	if !supportedCurrencies[currency] {
		return nil, fmt.Errorf("%w: unsupported currency %q", domain.ErrInvalidRequest, input.Currency)
	}

	id := uuid.New()
	reference := newReference(id)
	amountMinor := domain.ToMinorUnits(input.Amount)
	signature := gateway.Sign(b.cfg.MerchantKey, b.cfg.MerchantCode, reference, amountMinor, currency)

	params := url.Values{}
	params.Set("MerchantCode", b.cfg.MerchantCode)
	params.Set("RefNo", reference)
	params.Set("Amount", amountMinor)
	params.Set("Currency", currency)
	params.Set("ProdDesc", input.Description)
	params.Set("UserName", input.CustomerName)
	params.Set("UserEmail", input.CustomerEmail)
	params.Set("UserContact", input.CustomerPhone)
	params.Set("Remark", input.PaymentMethod)
	params.Set("Lang", input.Lang)
	params.Set("SignatureType", "SHA256")
	params.Set("Signature", signature)
	params.Set("ResponseURL", b.cfg.PublicBaseURL+"/v1/payments/verify")
	params.Set("BackendURL", b.cfg.PublicBaseURL+"/v1/payments/webhook")
	paymentURL := b.cfg.GatewayEntryURL + "?" + params.Encode()

	tx := &domain.Transaction{
		UUID:      id,
		Reference: reference,
		AccountID: input.AccountID,
		Kind:      domain.KindDeposit,
		Status:    domain.StatusPending,
		Amount:    input.Amount,
		Currency:  currency,
		Metadata: domain.Metadata{
			RequestPayload:   params.Encode(),
			RequestSignature: signature,
		},
	}
	if err := b.store.CreateTransaction(ctx, tx); err != nil {
		return nil, fmt.Errorf("persist payment intent: %w", err)
	}

	return &Intent{
		TransactionID: id,
		Reference:     reference,
		PaymentURL:    paymentURL,
		Signature:     signature,
		MerchantCode:  b.cfg.MerchantCode,
		Status:        domain.StatusPending,
	}, nil
}

// newReference derives the gateway-visible reference from the transaction
// UUID: uppercase hex, truncated to the gateway's length bound. Deterministic
// so the same transaction always maps to the same RefNo.
func newReference(id uuid.UUID) string {
	return strings.ToUpper(hex.EncodeToString(id[:]))[:referenceLength]
}
