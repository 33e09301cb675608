package gateway

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"strings"
)

// The gateway authenticates both directions with a SHA-256 over a fixed,
// delimiter-free field concatenation. Field order is part of the wire
// contract and differs between request and response, so a request signature
// can never be replayed as a response signature.

// Sign computes the outbound request signature:
// sha256(key + merchantCode + refNo + amount + currency), hex encoded.
// Amount is the minor-unit string exactly as sent on the wire.
func Sign(merchantKey, merchantCode, refNo, amount, currency string) string {
	sum := sha256.Sum256([]byte(merchantKey + merchantCode + refNo + amount + currency))
	return hex.EncodeToString(sum[:])
}

// SignResponse computes the inbound response signature:
// sha256(key + merchantCode + paymentID + refNo + amount + currency + status).
func SignResponse(merchantKey, merchantCode, paymentID, refNo, amount, currency, status string) string {
	sum := sha256.Sum256([]byte(merchantKey + merchantCode + paymentID + refNo + amount + currency + status))
	return hex.EncodeToString(sum[:])
}

// VerifyResponse recomputes the response signature and compares it against the
// supplied one in constant time. A missing or malformed signature is a
// mismatch, never an error.
func VerifyResponse(merchantKey, merchantCode, paymentID, refNo, amount, currency, status, supplied string) bool {
	if supplied == "" {
		return false
	}
	expected := SignResponse(merchantKey, merchantCode, paymentID, refNo, amount, currency, status)
	return subtle.ConstantTimeCompare([]byte(expected), []byte(strings.ToLower(supplied))) == 1
}
