package handlers

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/nkiryanov/passkeeper/internal/apperrors"
	"github.com/nkiryanov/passkeeper/internal/handlers/render"
	"github.com/nkiryanov/passkeeper/internal/models"
	"github.com/nkiryanov/passkeeper/internal/service/auth/tokenmanager"
)

type authService interface {
	// Register user with username and password
	// Has to return apperrors.ErrUserAlreadyExists if user already exists
	Register(ctx context.Context, username string, password string) (models.TokenPair, error)

	// Login user with username and password
	// Has to return apperrors.ErrInvalidCredentials on any mismatch
	Login(ctx context.Context, username string, password string) (models.TokenPair, error)

	// Refresh rotates the refresh token and returns a new pair
	// Has to return apperrors.ErrRefreshTokenInvalid if token is unknown or consumed
	Refresh(ctx context.Context, refresh string) (models.TokenPair, error)

	// Logout revokes the access token and drops the refresh token
	Logout(ctx context.Context, access string, refresh string)

	// Validate verifies the access token, revocation list first
	Validate(ctx context.Context, access string) (tokenmanager.TokenInfo, error)

	// Token carriers (auth header + refresh cookie)
	SetTokenPairToResponse(w http.ResponseWriter, pair models.TokenPair)
	GetAccess(r *http.Request) (string, error)
	GetRefresh(r *http.Request) (string, error)
}

type AuthHandler struct {
	authService authService
}

func NewAuth(auth authService) *AuthHandler {
	return &AuthHandler{authService: auth}
}

func (h *AuthHandler) register(w http.ResponseWriter, r *http.Request) {
	type RegisterRequest struct {
		Login    string `json:"login" validate:"required,min=2,max=50"`
		Password string `json:"password" validate:"required,min=8"`
	}
	type RegisterSuccessResponse struct {
		Message string `json:"message"`
	}

	data, err := render.BindAndValidate[RegisterRequest](w, r)
	if err != nil {
		return
	}

	pair, err := h.authService.Register(r.Context(), data.Login, data.Password)
	if err != nil {
		switch {
		case errors.Is(err, apperrors.ErrUserAlreadyExists):
			render.ServiceError(w, "User already exists", http.StatusConflict)
		default:
			render.ServiceError(w, "Internal server error", http.StatusInternalServerError)
		}
		return
	}

	h.authService.SetTokenPairToResponse(w, pair)
	render.JSON(w, RegisterSuccessResponse{Message: "User registered successfully"})
}

func (h *AuthHandler) login(w http.ResponseWriter, r *http.Request) {
	type LoginRequest struct {
		Login    string `json:"login" validate:"required"`
		Password string `json:"password" validate:"required"`
	}
	type LoginSuccessResponse struct {
		Message string `json:"message"`
	}

	data, err := render.BindAndValidate[LoginRequest](w, r)
	if err != nil {
		return
	}

	pair, err := h.authService.Login(r.Context(), data.Login, data.Password)
	if err != nil {
		switch {
		case errors.Is(err, apperrors.ErrInvalidCredentials):
			render.ServiceError(w, "Invalid username or password", http.StatusUnauthorized)
		default:
			render.ServiceError(w, "Internal server error", http.StatusInternalServerError)
		}
		return
	}

	h.authService.SetTokenPairToResponse(w, pair)
	render.JSON(w, LoginSuccessResponse{Message: "User logged in successfully"})
}

func (h *AuthHandler) refresh(w http.ResponseWriter, r *http.Request) {
	type RefreshSuccessResponse struct {
		Message string `json:"message"`
	}

	refresh, err := h.authService.GetRefresh(r)
	if err != nil {
		render.ServiceError(w, "Refresh token not found", http.StatusUnauthorized)
		return
	}

	pair, err := h.authService.Refresh(r.Context(), refresh)
	if err != nil {
		switch {
		case errors.Is(err, apperrors.ErrRefreshTokenInvalid):
			render.ServiceError(w, "Refresh token is invalid", http.StatusUnauthorized)
		default:
			render.ServiceError(w, "Internal server error", http.StatusInternalServerError)
		}
		return
	}

	h.authService.SetTokenPairToResponse(w, pair)
	render.JSON(w, RefreshSuccessResponse{Message: "Tokens refreshed successfully"})
}

func (h *AuthHandler) logout(w http.ResponseWriter, r *http.Request) {
	type LogoutSuccessResponse struct {
		Message string `json:"message"`
	}

	// Both tokens are optional here: logout of a half dead session still
	// has to succeed
	access, _ := h.authService.GetAccess(r)
	refresh, _ := h.authService.GetRefresh(r)

	h.authService.Logout(r.Context(), access, refresh)

	render.JSON(w, LogoutSuccessResponse{Message: "User logged out"})
}

func (h *AuthHandler) validate(w http.ResponseWriter, r *http.Request) {
	type ValidateResponse struct {
		Valid     bool     `json:"valid"`
		Subject   string   `json:"subject,omitempty"`
		Roles     []string `json:"roles,omitempty"`
		ExpiresIn int64    `json:"expires_in,omitempty"`
	}

	access, err := h.authService.GetAccess(r)
	if err != nil {
		render.JSON(w, ValidateResponse{Valid: false})
		return
	}

	info, err := h.authService.Validate(r.Context(), access)
	if err != nil {
		render.JSON(w, ValidateResponse{Valid: false})
		return
	}

	render.JSON(w, ValidateResponse{
		Valid:     true,
		Subject:   info.Subject,
		Roles:     info.Roles,
		ExpiresIn: int64(info.RemainingTTL / time.Second),
	})
}
