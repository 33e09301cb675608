package payment

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/techcsc21/paybridge/internal/core/config"
	"github.com/techcsc21/paybridge/internal/core/domain"
	"github.com/techcsc21/paybridge/internal/core/gateway"
)

// Reconciler reconciles a gateway status payload against the stored
// transaction exactly once, regardless of which path delivered it (webhook,
// browser-return verify, or requery). It owns the PENDING -> terminal state
// machine; the wallet is credited only on the first transition into COMPLETED.
type Reconciler struct {
	store Store
	cfg   *config.Config
}

func NewReconciler(store Store, cfg *config.Config) *Reconciler {
	return &Reconciler{store: store, cfg: cfg}
}

// Result reports the reconciliation outcome to the delivery path.
type Result struct {
	Reference string
	Status    domain.TransactionStatus
	Credited  bool
	// Replayed marks deliveries that found the transaction already terminal.
	Replayed bool
	Message  string
}

// Reconcile runs the full check sequence: required fields, merchant identity,
// signature, amount, status mapping, idempotent transition. Steps before the
// transition never touch external state and are safe to retry.
func (r *Reconciler) Reconcile(ctx context.Context, resp *gateway.Response) (*Result, error) {
	if missing := missingFields(resp); len(missing) > 0 {
		return nil, fmt.Errorf("%w: %s", domain.ErrMissingFields, strings.Join(missing, ", "))
	}

	if resp.MerchantCode != r.cfg.MerchantCode {
		slog.Warn("Gateway response for foreign merchant rejected",
			"merchant_code", resp.MerchantCode, "ref_no", resp.RefNo)
		return nil, fmt.Errorf("%w: got %q", domain.ErrMerchantMismatch, resp.MerchantCode)
	}

	tx, err := r.store.FindByReference(ctx, resp.RefNo)
	if err != nil {
		return nil, err
	}

	if !gateway.VerifyResponse(r.cfg.MerchantKey, r.cfg.MerchantCode,
		resp.PaymentID, resp.RefNo, resp.Amount, resp.Currency, resp.Status, resp.Signature) {
		return nil, r.recordSignatureFailure(ctx, tx, resp)
	}

	reported, err := domain.FromMinorUnits(resp.Amount)
	if err != nil {
		// Malformed amount is a verification failure, never a zero amount.
		if mergeErr := r.store.MergeMetadata(ctx, tx.Reference, domain.Metadata{RawPayload: rawPayload(resp)}); mergeErr != nil {
			slog.Error("Failed to record malformed amount", "error", mergeErr, "reference", tx.Reference)
		}
		return nil, err
	}
	if !domain.AmountsMatch(tx.Amount, reported) || !strings.EqualFold(tx.Currency, resp.Currency) {
		slog.Warn("Gateway amount does not reconcile",
			"reference", tx.Reference, "stored", tx.Amount.String(), "reported", reported.String())
		if mergeErr := r.store.MergeMetadata(ctx, tx.Reference, domain.Metadata{RawPayload: rawPayload(resp)}); mergeErr != nil {
			slog.Error("Failed to record amount mismatch", "error", mergeErr, "reference", tx.Reference)
		}
		return nil, fmt.Errorf("%w: stored %s, reported %s %s",
			domain.ErrAmountMismatch, tx.Amount.String(), reported.String(), resp.Currency)
	}

	canonical := gateway.MapStatus(resp.Status)
	message := gateway.AuthMessage(resp.AuthCode, resp.ErrDesc)

	// Idempotent replay: same terminal status again is a successful no-op.
	// The crediting flag in metadata is deliberately left untouched.
	if tx.Status.Terminal() {
		if tx.Status != canonical {
			slog.Warn("Conflicting status for terminal transaction ignored",
				"reference", tx.Reference, "stored", tx.Status, "reported", canonical)
		}
		return &Result{Reference: tx.Reference, Status: tx.Status, Replayed: true, Message: message}, nil
	}

	// Gateway still pending: keep the correlation fields, no transition.
	if canonical == domain.StatusPending {
		patch := correlationPatch(resp)
		if err := r.store.MergeMetadata(ctx, tx.Reference, patch); err != nil {
			return nil, fmt.Errorf("merge pending metadata: %w", err)
		}
		return &Result{Reference: tx.Reference, Status: domain.StatusPending, Message: message}, nil
	}

	now := time.Now().UTC()
	credit := canonical == domain.StatusCompleted
	patch := correlationPatch(resp)
	patch.SignatureValid = domain.BoolPtr(true)
	if credit {
		patch.CompletedAt = domain.TimePtr(now)
		patch.WalletUpdated = domain.BoolPtr(true)
		patch.CreditedAt = domain.TimePtr(now)
	} else {
		patch.FailedAt = domain.TimePtr(now)
	}

	// The conditional update is the race guard: concurrent deliveries of the
	// same success can both reach this point, only one wins the PENDING row.
	transitioned, err := r.store.Resolve(ctx, tx.Reference, canonical, patch, credit)
	if err != nil {
		// The status change and the wallet credit are one unit: if the credit
		// could not be confirmed, the transition did not commit either.
		return nil, fmt.Errorf("resolve transaction %s: %w", tx.Reference, err)
	}
	if !transitioned {
		current, err := r.store.FindByReference(ctx, tx.Reference)
		if err != nil {
			return nil, err
		}
		if current.Status != canonical {
			slog.Warn("Concurrent delivery resolved to a different status",
				"reference", tx.Reference, "stored", current.Status, "reported", canonical)
		}
		return &Result{Reference: tx.Reference, Status: current.Status, Replayed: true, Message: message}, nil
	}

	slog.Info("Transaction reconciled",
		"reference", tx.Reference, "status", canonical, "credited", credit)
	return &Result{Reference: tx.Reference, Status: canonical, Credited: credit, Message: message}, nil
}

// recordSignatureFailure marks tampering: the failure itself is terminal. A
// correctly signed retry for the same reference will be treated as a replay
// against a FAILED transaction; a fresh reference is always required.
func (r *Reconciler) recordSignatureFailure(ctx context.Context, tx *domain.Transaction, resp *gateway.Response) error {
	patch := domain.Metadata{
		SignatureValid: domain.BoolPtr(false),
		RawPayload:     rawPayload(resp),
		FailedAt:       domain.TimePtr(time.Now().UTC()),
	}

	if tx.Status.Terminal() {
		if err := r.store.MergeMetadata(ctx, tx.Reference, patch); err != nil {
			slog.Error("Failed to record signature failure", "error", err, "reference", tx.Reference)
		}
		return fmt.Errorf("%w: reference %s", domain.ErrInvalidSignature, tx.Reference)
	}

	transitioned, err := r.store.Resolve(ctx, tx.Reference, domain.StatusFailed, patch, false)
	if err != nil {
		slog.Error("Failed to persist signature failure", "error", err, "reference", tx.Reference)
	} else if !transitioned {
		// Lost the row to a concurrent delivery, still keep the evidence.
		if err := r.store.MergeMetadata(ctx, tx.Reference, patch); err != nil {
			slog.Error("Failed to record signature failure", "error", err, "reference", tx.Reference)
		}
	}
	return fmt.Errorf("%w: reference %s", domain.ErrInvalidSignature, tx.Reference)
}

func missingFields(resp *gateway.Response) []string {
	var missing []string
	for _, f := range []struct {
		name  string
		value string
	}{
		{"MerchantCode", resp.MerchantCode},
		{"RefNo", resp.RefNo},
		{"Amount", resp.Amount},
		{"Currency", resp.Currency},
		{"Status", resp.Status},
		{"Signature", resp.Signature},
	} {
		if f.value == "" {
			missing = append(missing, f.name)
		}
	}
	return missing
}

// correlationPatch lifts the gateway correlation fields out of the payload.
func correlationPatch(resp *gateway.Response) domain.Metadata {
	return domain.Metadata{
		GatewayPaymentID: resp.PaymentID,
		GatewayTransID:   resp.TransID,
		AuthCode:         resp.AuthCode,
		AuthMessage:      gateway.AuthMessage(resp.AuthCode, resp.ErrDesc),
		ErrDesc:          resp.ErrDesc,
		PaymentMethod:    paymentMethod(resp),
		RawPayload:       rawPayload(resp),
	}
}

// paymentMethod classifies how the customer paid, from whichever of the
// card-holder or bank-name fields the gateway filled in.
func paymentMethod(resp *gateway.Response) string {
	switch {
	case resp.CCName != "":
		return "CARD"
	case resp.BankName != "":
		return "BANK"
	default:
		return ""
	}
}

func rawPayload(resp *gateway.Response) string {
	return fmt.Sprintf("MerchantCode=%s&PaymentId=%s&RefNo=%s&Amount=%s&Currency=%s&TransId=%s&AuthCode=%s&Status=%s&ErrDesc=%s&Signature=%s",
		resp.MerchantCode, resp.PaymentID, resp.RefNo, resp.Amount, resp.Currency,
		resp.TransID, resp.AuthCode, resp.Status, resp.ErrDesc, resp.Signature)
}
