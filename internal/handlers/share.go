package handlers

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/nkiryanov/passkeeper/internal/apperrors"
	"github.com/nkiryanov/passkeeper/internal/handlers/render"
	"github.com/nkiryanov/passkeeper/internal/handlers/userctx"
	"github.com/nkiryanov/passkeeper/internal/models"
)

type sharingService interface {
	Create(ctx context.Context, owner models.User, credentialID uuid.UUID, recipientID uuid.UUID, pin string, expiresAt *time.Time) (models.ShareGrant, error)
	Accept(ctx context.Context, grantID uuid.UUID, recipient models.User, pin string) (models.ShareGrant, error)
	Revoke(ctx context.Context, grantID uuid.UUID, requester models.User, pin string) error
	ListByOwner(ctx context.Context, user models.User) ([]models.ShareGrant, error)
	ListByRecipient(ctx context.Context, user models.User) ([]models.ShareGrant, error)
	CountActiveByUser(ctx context.Context, user models.User) (int64, error)
}

type ShareHandler struct {
	sharing sharingService
}

type ShareResponse struct {
	ID           uuid.UUID `json:"id"`
	CredentialID uuid.UUID `json:"credential_id"`
	OwnerID      uuid.UUID `json:"owner_id"`
	RecipientID  uuid.UUID `json:"recipient_id"`
	Accepted     bool      `json:"accepted"`
	CreatedAt    time.Time `json:"created_at"`
	ExpiresAt    time.Time `json:"expires_at"`
}

func NewShare(sharing sharingService) *ShareHandler {
	return &ShareHandler{sharing: sharing}
}

func toShareResponse(g models.ShareGrant) ShareResponse {
	return ShareResponse{
		ID:           g.ID,
		CredentialID: g.CredentialID,
		OwnerID:      g.OwnerID,
		RecipientID:  g.RecipientID,
		Accepted:     g.Accepted,
		CreatedAt:    g.CreatedAt,
		ExpiresAt:    g.ExpiresAt,
	}
}

func (h *ShareHandler) create(w http.ResponseWriter, r *http.Request) {
	type CreateRequest struct {
		CredentialID uuid.UUID  `json:"credential_id" validate:"required"`
		RecipientID  uuid.UUID  `json:"recipient_id" validate:"required"`
		Pin          string     `json:"pin" validate:"required"`
		ExpiresAt    *time.Time `json:"expires_at"`
	}

	user, _ := userctx.FromContext(r.Context())

	data, err := render.BindAndValidate[CreateRequest](w, r)
	if err != nil {
		return
	}

	grant, err := h.sharing.Create(r.Context(), user, data.CredentialID, data.RecipientID, data.Pin, data.ExpiresAt)
	if err != nil {
		renderShareError(w, err)
		return
	}

	render.JSONWithStatus(w, toShareResponse(grant), http.StatusCreated)
}

func (h *ShareHandler) accept(w http.ResponseWriter, r *http.Request) {
	type AcceptRequest struct {
		Pin string `json:"pin" validate:"required"`
	}

	user, _ := userctx.FromContext(r.Context())

	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		render.ServiceError(w, "Share not found", http.StatusNotFound)
		return
	}

	data, err := render.BindAndValidate[AcceptRequest](w, r)
	if err != nil {
		return
	}

	grant, err := h.sharing.Accept(r.Context(), id, user, data.Pin)
	if err != nil {
		renderShareError(w, err)
		return
	}

	render.JSON(w, toShareResponse(grant))
}

func (h *ShareHandler) revoke(w http.ResponseWriter, r *http.Request) {
	type RevokeRequest struct {
		Pin string `json:"pin" validate:"required"`
	}

	user, _ := userctx.FromContext(r.Context())

	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		render.ServiceError(w, "Share not found", http.StatusNotFound)
		return
	}

	data, err := render.BindAndValidate[RevokeRequest](w, r)
	if err != nil {
		return
	}

	err = h.sharing.Revoke(r.Context(), id, user, data.Pin)
	if err != nil {
		renderShareError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *ShareHandler) listOutgoing(w http.ResponseWriter, r *http.Request) {
	user, _ := userctx.FromContext(r.Context())

	grants, err := h.sharing.ListByOwner(r.Context(), user)
	if err != nil {
		render.ServiceError(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	h.renderList(w, grants)
}

func (h *ShareHandler) listIncoming(w http.ResponseWriter, r *http.Request) {
	user, _ := userctx.FromContext(r.Context())

	grants, err := h.sharing.ListByRecipient(r.Context(), user)
	if err != nil {
		render.ServiceError(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	h.renderList(w, grants)
}

func (h *ShareHandler) countActive(w http.ResponseWriter, r *http.Request) {
	type CountResponse struct {
		Count int64 `json:"count"`
	}

	user, _ := userctx.FromContext(r.Context())

	count, err := h.sharing.CountActiveByUser(r.Context(), user)
	if err != nil {
		render.ServiceError(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	render.JSON(w, CountResponse{Count: count})
}

func (h *ShareHandler) renderList(w http.ResponseWriter, grants []models.ShareGrant) {
	response := make([]ShareResponse, 0, len(grants))
	for _, g := range grants {
		response = append(response, toShareResponse(g))
	}

	render.JSON(w, response)
}

func renderShareError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, apperrors.ErrPinMissing):
		render.ServiceError(w, "Pin is required", http.StatusBadRequest)
	case errors.Is(err, apperrors.ErrPinNotConfigured):
		render.ServiceError(w, "Pin is not configured", http.StatusPreconditionRequired)
	case errors.Is(err, apperrors.ErrPinInvalid):
		render.ServiceError(w, "Invalid pin", http.StatusUnauthorized)
	case errors.Is(err, apperrors.ErrCredentialNotFound):
		render.ServiceError(w, "Credential not found", http.StatusNotFound)
	case errors.Is(err, apperrors.ErrShareNotFound):
		render.ServiceError(w, "Share not found", http.StatusNotFound)
	case errors.Is(err, apperrors.ErrUserNotFound):
		render.ServiceError(w, "Recipient not found", http.StatusNotFound)
	case errors.Is(err, apperrors.ErrSelfShare):
		render.ServiceError(w, "Credential can't be shared with its owner", http.StatusConflict)
	case errors.Is(err, apperrors.ErrShareAlreadyAccepted):
		render.ServiceError(w, "Share already accepted", http.StatusConflict)
	case errors.Is(err, apperrors.ErrNotAuthorized):
		render.ServiceError(w, "Not allowed", http.StatusForbidden)
	default:
		render.ServiceError(w, "Internal server error", http.StatusInternalServerError)
	}
}
