package handler

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"clickearn/internal/service"
	"clickearn/internal/util"
)

// EarningHandler handles the dashboard and the two rewarded actions
type EarningHandler struct {
	earningService *service.EarningService
	logger         *zap.Logger
}

func NewEarningHandler(earningService *service.EarningService, logger *zap.Logger) *EarningHandler {
	return &EarningHandler{
		earningService: earningService,
		logger:         logger,
	}
}

// RegisterRoutes registers earning routes; the router mounts these behind
// the session middleware except /stats which is an ops surface.
func (h *EarningHandler) RegisterRoutes(r chi.Router) {
	r.Get("/dashboard", h.Dashboard)
	r.Post("/click", h.Click)
	r.Post("/video/complete", h.VideoComplete)
}

// Dashboard serves the account snapshot
func (h *EarningHandler) Dashboard(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	user := currentUser(r)

	dashboard, err := h.earningService.Dashboard(ctx, user)
	if err != nil {
		respondWithError(w, h.logger, err)
		return
	}

	respondWithJSON(w, h.logger, http.StatusOK, dashboard)
}

// Click credits the fixed click reward
func (h *EarningHandler) Click(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	startTime := time.Now()
	user := currentUser(r)

	var req struct {
		ContentID string `json:"content_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, h.logger, fmt.Errorf("%w: malformed request body", service.ErrInvalidInput))
		return
	}
	if req.ContentID == "" {
		respondWithError(w, h.logger, fmt.Errorf("%w: content_id is required", service.ErrInvalidInput))
		return
	}

	result, err := h.earningService.RecordClick(ctx, user.UserID, req.ContentID, clientMeta(r))
	if err != nil {
		respondWithError(w, h.logger, err)
		return
	}

	respondWithJSON(w, h.logger, http.StatusOK, map[string]interface{}{
		"success":          true,
		"amount_earned":    result.Amount,
		"new_balance":      result.NewBalance,
		"clicks_remaining": result.Remaining,
		"message":          fmt.Sprintf("Clique válido! $%s adicionado ao seu saldo.", result.Amount),
	})
	h.logger.Info("Click recorded via HTTP",
		util.String("user_id", user.UserID),
		util.Duration("duration", time.Since(startTime)),
		util.String("method", "Click"),
	)
}

// VideoComplete credits the fixed video reward for a finished watch
func (h *EarningHandler) VideoComplete(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	startTime := time.Now()
	user := currentUser(r)

	var req struct {
		VideoID       string `json:"video_id"`
		WatchDuration int    `json:"watch_duration"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, h.logger, fmt.Errorf("%w: malformed request body", service.ErrInvalidInput))
		return
	}
	if req.VideoID == "" {
		respondWithError(w, h.logger, fmt.Errorf("%w: video_id is required", service.ErrInvalidInput))
		return
	}

	result, err := h.earningService.RecordVideoWatch(ctx, user.UserID, req.VideoID, req.WatchDuration, clientMeta(r))
	if err != nil {
		respondWithError(w, h.logger, err)
		return
	}

	respondWithJSON(w, h.logger, http.StatusOK, map[string]interface{}{
		"success":          true,
		"amount_earned":    result.Amount,
		"new_balance":      result.NewBalance,
		"videos_remaining": result.Remaining,
		"message":          fmt.Sprintf("Vídeo concluído! $%s adicionado ao seu saldo.", result.Amount),
	})
	h.logger.Info("Video watch recorded via HTTP",
		util.String("user_id", user.UserID),
		util.Duration("duration", time.Since(startTime)),
		util.String("method", "VideoComplete"),
	)
}

// Stats serves the ops aggregate from the analytics sink
func (h *EarningHandler) Stats(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	days := 7
	if daysStr := r.URL.Query().Get("days"); daysStr != "" {
		parsed, err := strconv.Atoi(daysStr)
		if err != nil || parsed <= 0 || parsed > 90 {
			respondWithError(w, h.logger, fmt.Errorf("%w: days must be between 1 and 90", service.ErrInvalidInput))
			return
		}
		days = parsed
	}

	stats, err := h.earningService.DailyStats(ctx, days)
	if err != nil {
		respondWithError(w, h.logger, err)
		return
	}

	respondWithJSON(w, h.logger, http.StatusOK, map[string]interface{}{
		"days":  days,
		"stats": stats,
	})
}
