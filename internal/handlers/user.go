package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/google/uuid"

	"github.com/nkiryanov/passkeeper/internal/apperrors"
	"github.com/nkiryanov/passkeeper/internal/handlers/render"
	"github.com/nkiryanov/passkeeper/internal/handlers/userctx"
	"github.com/nkiryanov/passkeeper/internal/models"
)

type pinService interface {
	// SetPin stores a new pin after re-verifying the primary password
	SetPin(ctx context.Context, user models.User, password string, newPin string) error
}

type UserHandler struct {
	pinService pinService
}

func NewUser(pinService pinService) *UserHandler {
	return &UserHandler{pinService: pinService}
}

func (h *UserHandler) me(w http.ResponseWriter, r *http.Request) {
	type response struct {
		ID       uuid.UUID `json:"id"`
		Username string    `json:"username"`
		Role     string    `json:"role"`
		HasPin   bool      `json:"has_pin"`
	}

	user, _ := userctx.FromContext(r.Context())
	render.JSON(w, response{ID: user.ID, Username: user.Username, Role: user.Role, HasPin: user.HasPin()})
}

func (h *UserHandler) setPin(w http.ResponseWriter, r *http.Request) {
	type SetPinRequest struct {
		Password string `json:"password" validate:"required"`
		Pin      string `json:"pin" validate:"required,min=4,max=6,numeric"`
	}
	type SetPinSuccessResponse struct {
		Message string `json:"message"`
	}

	user, _ := userctx.FromContext(r.Context())

	data, err := render.BindAndValidate[SetPinRequest](w, r)
	if err != nil {
		return
	}

	err = h.pinService.SetPin(r.Context(), user, data.Password, data.Pin)
	if err != nil {
		switch {
		case errors.Is(err, apperrors.ErrInvalidCredentials):
			render.ServiceError(w, "Invalid password", http.StatusUnauthorized)
		case errors.Is(err, apperrors.ErrPinFormat):
			render.ServiceError(w, "Pin must be 4 to 6 digits", http.StatusBadRequest)
		default:
			render.ServiceError(w, "Internal server error", http.StatusInternalServerError)
		}
		return
	}

	render.JSON(w, SetPinSuccessResponse{Message: "Pin updated"})
}
