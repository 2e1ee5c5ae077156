package handler

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"clickearn/internal/models"
	"clickearn/internal/service"
	"clickearn/internal/util"
)

// AuthHandler handles registration, login, external auth and phone codes
type AuthHandler struct {
	authService *service.AuthService
	logger      *zap.Logger
}

func NewAuthHandler(authService *service.AuthService, logger *zap.Logger) *AuthHandler {
	return &AuthHandler{
		authService: authService,
		logger:      logger,
	}
}

// RegisterRoutes registers all auth routes
func (h *AuthHandler) RegisterRoutes(router chi.Router) {
	router.Route("/auth", func(r chi.Router) {
		r.Post("/register", h.Register)
		r.Post("/login", h.Login)
		r.Post("/profile", h.AuthenticateExternal)
		r.Post("/send-code", h.SendCode)
		r.Post("/verify-code", h.VerifyCode)
	})
}

// authResponse is the shared register/login/profile success payload
type authResponse struct {
	User         models.PublicProfile `json:"user"`
	SessionID    string               `json:"session_id"`
	SessionToken string               `json:"session_token,omitempty"`
	ExpiresAt    time.Time            `json:"expires_at"`
}

func newAuthResponse(user *models.User, session *models.Session) authResponse {
	return authResponse{
		User:         user.Public(),
		SessionID:    session.SessionID,
		SessionToken: session.SessionToken,
		ExpiresAt:    session.ExpiresAt,
	}
}

// Register handles account creation with a password credential
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	startTime := time.Now()

	var req service.RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, h.logger, fmt.Errorf("%w: malformed request body", service.ErrInvalidInput))
		return
	}

	user, session, err := h.authService.Register(ctx, &req)
	if err != nil {
		respondWithError(w, h.logger, err)
		return
	}

	respondWithJSON(w, h.logger, http.StatusOK, newAuthResponse(user, session))
	h.logger.Info("User registered via HTTP",
		util.String("user_id", user.UserID),
		util.Duration("duration", time.Since(startTime)),
		util.String("method", "Register"),
	)
}

// Login handles password authentication
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	startTime := time.Now()

	var req struct {
		Email    string `json:"email"`
		Phone    string `json:"phone"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, h.logger, fmt.Errorf("%w: malformed request body", service.ErrInvalidInput))
		return
	}

	handle := req.Email
	if handle == "" {
		handle = req.Phone
	}

	user, session, err := h.authService.Login(ctx, handle, req.Password)
	if err != nil {
		respondWithError(w, h.logger, err)
		return
	}

	respondWithJSON(w, h.logger, http.StatusOK, newAuthResponse(user, session))
	h.logger.Info("User logged in via HTTP",
		util.String("user_id", user.UserID),
		util.Duration("duration", time.Since(startTime)),
		util.String("method", "Login"),
	)
}

// AuthenticateExternal exchanges the session header with the identity
// provider. The external token arrives in the same X-Session-ID header the
// resulting session will later be presented in.
func (h *AuthHandler) AuthenticateExternal(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	startTime := time.Now()

	user, session, err := h.authService.AuthenticateExternal(ctx, r.Header.Get(SessionHeader))
	if err != nil {
		respondWithError(w, h.logger, err)
		return
	}

	respondWithJSON(w, h.logger, http.StatusOK, newAuthResponse(user, session))
	h.logger.Info("External auth completed via HTTP",
		util.String("user_id", user.UserID),
		util.Duration("duration", time.Since(startTime)),
		util.String("method", "AuthenticateExternal"),
	)
}

// SendCode issues a phone verification code. The code is echoed in the
// response because SMS delivery is mocked.
func (h *AuthHandler) SendCode(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req struct {
		Phone string `json:"phone"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, h.logger, fmt.Errorf("%w: malformed request body", service.ErrInvalidInput))
		return
	}

	code, err := h.authService.SendCode(ctx, req.Phone)
	if err != nil {
		respondWithError(w, h.logger, err)
		return
	}

	respondWithJSON(w, h.logger, http.StatusOK, map[string]interface{}{
		"success":    true,
		"code":       code.Code,
		"expires_at": code.ExpiresAt,
		"message":    "Código de verificação enviado",
	})
}

// VerifyCode consumes a pending verification code
func (h *AuthHandler) VerifyCode(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req struct {
		Phone string `json:"phone"`
		Code  string `json:"code"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, h.logger, fmt.Errorf("%w: malformed request body", service.ErrInvalidInput))
		return
	}

	if err := h.authService.VerifyCode(ctx, req.Phone, req.Code); err != nil {
		respondWithError(w, h.logger, err)
		return
	}

	respondWithJSON(w, h.logger, http.StatusOK, map[string]interface{}{
		"success": true,
		"message": "Telefone verificado com sucesso",
	})
}
