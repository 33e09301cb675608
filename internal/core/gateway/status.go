package gateway

import "github.com/techcsc21/paybridge/internal/core/domain"

// statusTable is the closed mapping from the gateway's status code to our
// canonical transaction status.
var statusTable = map[string]domain.TransactionStatus{
	"1":  domain.StatusCompleted,
	"0":  domain.StatusFailed,
	"-1": domain.StatusPending,
	"2":  domain.StatusCancelled,
}

// MapStatus resolves a gateway status code. Unknown codes (including empty)
// fail closed: an authenticated response we cannot interpret must not leave
// money in limbo, so it becomes FAILED and the retained raw payload flags it
// for manual review.
func MapStatus(code string) domain.TransactionStatus {
	if status, ok := statusTable[code]; ok {
		return status
	}
	return domain.StatusFailed
}

// authCodeMessages maps the gateway's authorization codes to display text.
// Advisory only, never part of a status decision.
var authCodeMessages = map[string]string{
	"00": "Payment approved",
	"05": "Do not honor",
	"12": "Invalid transaction",
	"14": "Invalid card number",
	"51": "Insufficient funds",
	"54": "Expired card",
	"91": "Issuer unavailable",
}

// AuthMessage returns a human-readable description for an authorization code,
// falling back to the gateway's free-text error description, then to a
// generic string.
func AuthMessage(authCode, errDesc string) string {
	if msg, ok := authCodeMessages[authCode]; ok {
		return msg
	}
	if errDesc != "" {
		return errDesc
	}
	return "Unknown response"
}
