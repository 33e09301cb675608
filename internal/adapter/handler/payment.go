package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/techcsc21/paybridge/internal/adapter/middleware"
	"github.com/techcsc21/paybridge/internal/core/domain"
	"github.com/techcsc21/paybridge/internal/core/gateway"
	"github.com/techcsc21/paybridge/internal/core/payment"
)

type PaymentHandler struct {
	Intents    *payment.IntentBuilder
	Reconciler *payment.Reconciler
	Store      payment.Store
	Client     *gateway.Client
}

type InitiateRequest struct {
	Amount        decimal.Decimal `json:"amount"`
	Currency      string          `json:"currency"`
	PaymentMethod string          `json:"payment_method"`
	Description   string          `json:"description"`
	CustomerName  string          `json:"customer_name"`
	CustomerEmail string          `json:"customer_email"`
	CustomerPhone string          `json:"customer_phone"`
	Lang          string          `json:"lang"`
}

// Initiate creates a payment intent and returns the redirect URL to the
// gateway's hosted page.
func (h *PaymentHandler) Initiate(c *fiber.Ctx) error {
	var req InitiateRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(http.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}

	accountID, err := callerAccountID(c)
	if err != nil {
		return c.Status(http.StatusUnauthorized).JSON(fiber.Map{"error": "Unauthenticated"})
	}

	intent, err := h.Intents.Create(c.Context(), payment.IntentInput{
		AccountID:     accountID,
		Amount:        req.Amount,
		Currency:      req.Currency,
		PaymentMethod: req.PaymentMethod,
		Description:   req.Description,
		CustomerName:  req.CustomerName,
		CustomerEmail: req.CustomerEmail,
		CustomerPhone: req.CustomerPhone,
		Lang:          req.Lang,
	})
	if err != nil {
		if errors.Is(err, domain.ErrInvalidRequest) {
			return c.Status(http.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
		}
		slog.Error("Failed to create payment intent", "error", err, "account_id", accountID)
		return c.Status(http.StatusInternalServerError).JSON(fiber.Map{"error": "Could not create payment"})
	}

	slog.Info("Payment intent created", "reference", intent.Reference, "account_id", accountID)
	return c.Status(http.StatusCreated).JSON(intent)
}

// Verify handles the browser-return POST from the gateway after the customer
// leaves the hosted payment page.
func (h *PaymentHandler) Verify(c *fiber.Ctx) error {
	resp, err := gateway.ParseResponse(c.Body())
	if err != nil {
		return c.Status(http.StatusBadRequest).JSON(fiber.Map{"error": "Unparseable payload"})
	}

	result, err := h.Reconciler.Reconcile(c.Context(), resp)
	if err != nil {
		return respondReconcileError(c, resp.RefNo, err)
	}

	return c.JSON(fiber.Map{
		"reference": result.Reference,
		"status":    result.Status,
		"message":   result.Message,
	})
}

// Webhook handles the asynchronous server-to-server notification. The body
// must be exactly RECEIVEOK on success or FAIL otherwise; anything else makes
// the gateway retry forever.
func (h *PaymentHandler) Webhook(c *fiber.Ctx) error {
	resp, err := gateway.ParseResponse(c.Body())
	if err != nil {
		return c.Status(http.StatusBadRequest).SendString("FAIL")
	}

	_, err = h.Reconciler.Reconcile(c.Context(), resp)
	if err != nil {
		slog.Warn("Webhook rejected", "reference", resp.RefNo, "error", err)
		switch {
		case errors.Is(err, domain.ErrNotFound):
			return c.Status(http.StatusNotFound).SendString("FAIL")
		case errors.Is(err, domain.ErrMissingFields),
			errors.Is(err, domain.ErrMerchantMismatch),
			errors.Is(err, domain.ErrInvalidSignature),
			errors.Is(err, domain.ErrAmountMismatch),
			errors.Is(err, domain.ErrMalformedAmount):
			return c.Status(http.StatusBadRequest).SendString("FAIL")
		default:
			return c.Status(http.StatusInternalServerError).SendString("FAIL")
		}
	}

	return c.SendString("RECEIVEOK")
}

// Status returns the current reconciled status of the caller's deposit,
// requerying the gateway when the deposit is still pending and falling back
// to the stored state when the gateway is unreachable.
func (h *PaymentHandler) Status(c *fiber.Ctx) error {
	reference := c.Query("reference")
	if reference == "" {
		return c.Status(http.StatusBadRequest).JSON(fiber.Map{"error": "reference is required"})
	}

	accountID, err := callerAccountID(c)
	if err != nil {
		return c.Status(http.StatusUnauthorized).JSON(fiber.Map{"error": "Unauthenticated"})
	}

	tx, err := h.Store.FindByReference(c.Context(), reference)
	if err != nil || tx.AccountID != accountID {
		return c.Status(http.StatusNotFound).JSON(fiber.Map{"error": "Transaction not found"})
	}

	if !tx.Status.Terminal() && h.Client != nil {
		resp, err := h.Client.Requery(c.Context(), tx.Reference, domain.ToMinorUnits(tx.Amount), tx.Currency)
		if err != nil {
			// Degrade to the stored state, never block the caller on the gateway.
			slog.Warn("Requery failed, returning local status", "reference", reference, "error", err)
			return c.JSON(fiber.Map{"reference": reference, "status": tx.Status, "source": "local"})
		}

		result, err := h.Reconciler.Reconcile(c.Context(), resp)
		if err != nil {
			slog.Warn("Requery response did not reconcile", "reference", reference, "error", err)
			return c.JSON(fiber.Map{"reference": reference, "status": tx.Status, "source": "local"})
		}
		return c.JSON(fiber.Map{"reference": reference, "status": result.Status, "source": "gateway"})
	}

	return c.JSON(fiber.Map{"reference": reference, "status": tx.Status, "source": "local"})
}

// History lists the caller's recent deposits.
func (h *PaymentHandler) History(c *fiber.Ctx) error {
	accountID, err := callerAccountID(c)
	if err != nil {
		return c.Status(http.StatusUnauthorized).JSON(fiber.Map{"error": "Unauthenticated"})
	}

	transactions, err := h.Store.ListByAccount(c.Context(), accountID, 20)
	if err != nil {
		slog.Error("Failed to list transactions", "error", err, "account_id", accountID)
		return c.Status(http.StatusInternalServerError).JSON(fiber.Map{"error": "Could not fetch history"})
	}

	return c.JSON(fiber.Map{"transactions": transactions})
}

func callerAccountID(c *fiber.Ctx) (uuid.UUID, error) {
	raw, _ := c.Locals(middleware.AccountIDKey).(string)
	return uuid.Parse(raw)
}

func respondReconcileError(c *fiber.Ctx, reference string, err error) error {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		return c.Status(http.StatusNotFound).JSON(fiber.Map{"error": "Transaction not found"})
	case errors.Is(err, domain.ErrMissingFields),
		errors.Is(err, domain.ErrMerchantMismatch),
		errors.Is(err, domain.ErrInvalidSignature),
		errors.Is(err, domain.ErrAmountMismatch),
		errors.Is(err, domain.ErrMalformedAmount):
		return c.Status(http.StatusBadRequest).JSON(fiber.Map{"error": err.Error(), "reference": reference})
	default:
		slog.Error("Reconciliation failed", "error", err, "reference", reference)
		return c.Status(http.StatusInternalServerError).JSON(fiber.Map{"error": "Internal error"})
	}
}
