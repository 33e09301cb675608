package domain

import "time"

// Metadata is the transaction's gateway correlation bag. It is only ever
// merged, never replaced: every reconciliation attempt may add fields, and
// earlier diagnostic fields must survive later updates.
type Metadata struct {
	GatewayPaymentID string `json:"gateway_payment_id,omitempty"`
	GatewayTransID   string `json:"gateway_trans_id,omitempty"`
	AuthCode         string `json:"auth_code,omitempty"`
	AuthMessage      string `json:"auth_message,omitempty"`
	ErrDesc          string `json:"err_desc,omitempty"`
	PaymentMethod    string `json:"payment_method,omitempty"`

	// RawPayload keeps the last gateway payload verbatim for manual review.
	RawPayload string `json:"raw_payload,omitempty"`

	SignatureValid *bool `json:"signature_valid,omitempty"`
	WalletUpdated  *bool `json:"wallet_updated,omitempty"`

	RequestPayload   string `json:"request_payload,omitempty"`
	RequestSignature string `json:"request_signature,omitempty"`

	CompletedAt *time.Time `json:"completed_at,omitempty"`
	FailedAt    *time.Time `json:"failed_at,omitempty"`
	CreditedAt  *time.Time `json:"credited_at,omitempty"`
}

// Merge returns m extended with every field set in patch. Fields absent from
// patch keep their current value, so history is never dropped.
func (m Metadata) Merge(patch Metadata) Metadata {
	if patch.GatewayPaymentID != "" {
		m.GatewayPaymentID = patch.GatewayPaymentID
	}
	if patch.GatewayTransID != "" {
		m.GatewayTransID = patch.GatewayTransID
	}
	if patch.AuthCode != "" {
		m.AuthCode = patch.AuthCode
	}
	if patch.AuthMessage != "" {
		m.AuthMessage = patch.AuthMessage
	}
	if patch.ErrDesc != "" {
		m.ErrDesc = patch.ErrDesc
	}
	if patch.PaymentMethod != "" {
		m.PaymentMethod = patch.PaymentMethod
	}
	if patch.RawPayload != "" {
		m.RawPayload = patch.RawPayload
	}
	if patch.SignatureValid != nil {
		m.SignatureValid = patch.SignatureValid
	}
	if patch.WalletUpdated != nil {
		m.WalletUpdated = patch.WalletUpdated
	}
	if patch.RequestPayload != "" {
		m.RequestPayload = patch.RequestPayload
	}
	if patch.RequestSignature != "" {
		m.RequestSignature = patch.RequestSignature
	}
	if patch.CompletedAt != nil {
		m.CompletedAt = patch.CompletedAt
	}
	if patch.FailedAt != nil {
		m.FailedAt = patch.FailedAt
	}
	if patch.CreditedAt != nil {
		m.CreditedAt = patch.CreditedAt
	}
	return m
}

// BoolPtr is a small helper for the optional metadata flags.
func BoolPtr(b bool) *bool { return &b }

// TimePtr is a small helper for the optional metadata timestamps.
func TimePtr(t time.Time) *time.Time { return &t }
