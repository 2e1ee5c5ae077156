package handler

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"clickearn/internal/money"
	"clickearn/internal/service"
	"clickearn/internal/util"
)

// WithdrawalHandler handles payout requests and history
type WithdrawalHandler struct {
	withdrawalService *service.WithdrawalService
	logger            *zap.Logger
}

func NewWithdrawalHandler(withdrawalService *service.WithdrawalService, logger *zap.Logger) *WithdrawalHandler {
	return &WithdrawalHandler{
		withdrawalService: withdrawalService,
		logger:            logger,
	}
}

// RegisterRoutes registers withdrawal routes behind the session middleware
func (h *WithdrawalHandler) RegisterRoutes(r chi.Router) {
	r.Post("/withdraw", h.Request)
	r.Get("/withdraw-history", h.History)
}

// Request files a withdrawal and debits the balance immediately
func (h *WithdrawalHandler) Request(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	startTime := time.Now()
	user := currentUser(r)

	var req struct {
		Amount      money.Cents `json:"amount"`
		PaypalEmail string      `json:"paypal_email"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, h.logger, fmt.Errorf("%w: malformed request body", service.ErrInvalidInput))
		return
	}

	withdrawal, newBalance, err := h.withdrawalService.Request(ctx, user.UserID, req.Amount, req.PaypalEmail)
	if err != nil {
		respondWithError(w, h.logger, err)
		return
	}

	respondWithJSON(w, h.logger, http.StatusOK, map[string]interface{}{
		"success":       true,
		"withdrawal_id": withdrawal.WithdrawalID,
		"message":       fmt.Sprintf("Solicitação de saque de $%s enviada. Processamento em até 24h.", withdrawal.Amount),
		"new_balance":   newBalance,
	})
	h.logger.Info("Withdrawal requested via HTTP",
		util.String("user_id", user.UserID),
		util.String("withdrawal_id", withdrawal.WithdrawalID),
		util.Duration("duration", time.Since(startTime)),
		util.String("method", "Request"),
	)
}

// History lists the user's withdrawal requests, newest first
func (h *WithdrawalHandler) History(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	user := currentUser(r)

	withdrawals, err := h.withdrawalService.List(ctx, user.UserID)
	if err != nil {
		respondWithError(w, h.logger, err)
		return
	}

	respondWithJSON(w, h.logger, http.StatusOK, map[string]interface{}{
		"withdrawals": withdrawals,
	})
}
