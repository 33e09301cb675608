package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/techcsc21/paybridge/internal/adapter/storage"
	"github.com/techcsc21/paybridge/internal/core/domain"
	"github.com/techcsc21/paybridge/internal/core/security"
)

type AccountHandler struct {
	Accounts *storage.AccountRepository
	Wallets  *storage.WalletRepository
}

type CreateAccountRequest struct {
	OwnerName string `json:"owner_name"`
	Email     string `json:"email"`
}

func (h *AccountHandler) CreateAccount(c *fiber.Ctx) error {
	var req CreateAccountRequest
	if err := c.BodyParser(&req); err != nil {
		slog.Warn("Invalid account body", "error", err)
		return c.Status(http.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}

	if req.OwnerName == "" {
		return c.Status(http.StatusBadRequest).JSON(fiber.Map{"error": "Owner Name is required"})
	}
	if req.Email == "" {
		return c.Status(http.StatusBadRequest).JSON(fiber.Map{"error": "Email is required"})
	}

	account, err := h.Accounts.CreateAccount(c.Context(), req.OwnerName, req.Email)
	if err != nil {
		slog.Error("Failed to create account", "error", err, "owner", req.OwnerName)
		return c.Status(http.StatusInternalServerError).JSON(fiber.Map{"error": "Could not create account"})
	}

	slog.Info("Account created", "id", account.ID, "owner", req.OwnerName)
	return c.Status(http.StatusCreated).JSON(account)
}

func (h *AccountHandler) GenerateKey(c *fiber.Ctx) error {
	accountID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(http.StatusBadRequest).JSON(fiber.Map{"error": "Invalid Account ID format"})
	}

	if _, err := h.Accounts.GetAccountByID(c.Context(), accountID); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return c.Status(http.StatusNotFound).JSON(fiber.Map{"error": "Account not found"})
		}
		slog.Error("Failed to load account", "error", err, "account_id", accountID)
		return c.Status(http.StatusInternalServerError).JSON(fiber.Map{"error": "Could not load account"})
	}

	realKey, keyHash, err := security.GenerateAPIKey()
	if err != nil {
		slog.Error("Crypto error generating key", "error", err)
		return c.Status(http.StatusInternalServerError).JSON(fiber.Map{"error": "Crypto error"})
	}

	if err := h.Accounts.SaveAPIKey(c.Context(), accountID, keyHash, "pb_live_"); err != nil {
		slog.Error("Failed to save API key", "error", err, "account_id", accountID)
		return c.Status(http.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to save key"})
	}

	slog.Info("API key generated", "account_id", accountID)

	// Shown once; only the hash is stored.
	return c.JSON(fiber.Map{
		"api_key": realKey,
		"warning": "Save this now! We won't show it again.",
	})
}

// ListWallets returns the caller's per-currency balances.
func (h *AccountHandler) ListWallets(c *fiber.Ctx) error {
	accountID, err := callerAccountID(c)
	if err != nil {
		return c.Status(http.StatusUnauthorized).JSON(fiber.Map{"error": "Unauthenticated"})
	}

	wallets, err := h.Wallets.ListByAccount(c.Context(), accountID)
	if err != nil {
		slog.Error("Failed to list wallets", "error", err, "account_id", accountID)
		return c.Status(http.StatusInternalServerError).JSON(fiber.Map{"error": "Could not fetch wallets"})
	}

	return c.JSON(fiber.Map{"wallets": wallets})
}
