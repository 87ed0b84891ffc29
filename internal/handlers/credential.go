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
	"github.com/nkiryanov/passkeeper/internal/service/credential"
)

type credentialService interface {
	Create(ctx context.Context, owner models.User, params credential.CreateParams) (models.Credential, error)
	List(ctx context.Context, owner models.User) ([]models.Credential, error)
	Get(ctx context.Context, owner models.User, id uuid.UUID) (models.Credential, error)
	Update(ctx context.Context, owner models.User, id uuid.UUID, params credential.UpdateParams) (models.Credential, error)

	// Delete refuses to remove a shared credential unless confirmed
	Delete(ctx context.Context, owner models.User, id uuid.UUID, confirmed bool) error

	CreateCategory(ctx context.Context, owner models.User, name string) (models.Category, error)
	ListCategories(ctx context.Context, owner models.User) ([]models.Category, error)
	DeleteCategory(ctx context.Context, owner models.User, id uuid.UUID) error
}

type secretGate interface {
	// Reveal decrypts the secret after the pin check
	Reveal(ctx context.Context, user models.User, credentialID uuid.UUID, pin string) (string, error)
}

type CredentialHandler struct {
	credService credentialService
	gate        secretGate
}

type CredentialResponse struct {
	ID            uuid.UUID  `json:"id"`
	Name          string     `json:"name"`
	URL           string     `json:"url,omitempty"`
	Notes         string     `json:"notes,omitempty"`
	CategoryID    *uuid.UUID `json:"category_id,omitempty"`
	StrengthScore int        `json:"strength_score"`
	CreatedAt     time.Time  `json:"created_at"`
}

func NewCredential(credService credentialService, gate secretGate) *CredentialHandler {
	return &CredentialHandler{credService: credService, gate: gate}
}

func toCredentialResponse(c models.Credential) CredentialResponse {
	// The sealed secret deliberately never leaves through listing endpoints
	return CredentialResponse{
		ID:            c.ID,
		Name:          c.Name,
		URL:           c.URL,
		Notes:         c.Notes,
		CategoryID:    c.CategoryID,
		StrengthScore: c.StrengthScore,
		CreatedAt:     c.CreatedAt,
	}
}

func (h *CredentialHandler) create(w http.ResponseWriter, r *http.Request) {
	type CreateRequest struct {
		Name       string     `json:"name" validate:"required,max=100"`
		Secret     string     `json:"secret" validate:"required"`
		URL        string     `json:"url" validate:"max=500"`
		Notes      string     `json:"notes" validate:"max=2000"`
		CategoryID *uuid.UUID `json:"category_id"`
	}

	user, _ := userctx.FromContext(r.Context())

	data, err := render.BindAndValidate[CreateRequest](w, r)
	if err != nil {
		return
	}

	cred, err := h.credService.Create(r.Context(), user, credential.CreateParams{
		Name:       data.Name,
		Secret:     data.Secret,
		URL:        data.URL,
		Notes:      data.Notes,
		CategoryID: data.CategoryID,
	})
	if err != nil {
		render.ServiceError(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	render.JSONWithStatus(w, toCredentialResponse(cred), http.StatusCreated)
}

func (h *CredentialHandler) list(w http.ResponseWriter, r *http.Request) {
	user, _ := userctx.FromContext(r.Context())

	creds, err := h.credService.List(r.Context(), user)
	if err != nil {
		render.ServiceError(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	response := make([]CredentialResponse, 0, len(creds))
	for _, c := range creds {
		response = append(response, toCredentialResponse(c))
	}

	render.JSON(w, response)
}

func (h *CredentialHandler) get(w http.ResponseWriter, r *http.Request) {
	user, _ := userctx.FromContext(r.Context())

	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		render.ServiceError(w, "Credential not found", http.StatusNotFound)
		return
	}

	cred, err := h.credService.Get(r.Context(), user, id)
	if err != nil {
		switch {
		case errors.Is(err, apperrors.ErrCredentialNotFound):
			render.ServiceError(w, "Credential not found", http.StatusNotFound)
		default:
			render.ServiceError(w, "Internal server error", http.StatusInternalServerError)
		}
		return
	}

	render.JSON(w, toCredentialResponse(cred))
}

func (h *CredentialHandler) update(w http.ResponseWriter, r *http.Request) {
	type UpdateRequest struct {
		Name       string     `json:"name" validate:"required,max=100"`
		Secret     string     `json:"secret"`
		URL        string     `json:"url" validate:"max=500"`
		Notes      string     `json:"notes" validate:"max=2000"`
		CategoryID *uuid.UUID `json:"category_id"`
	}

	user, _ := userctx.FromContext(r.Context())

	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		render.ServiceError(w, "Credential not found", http.StatusNotFound)
		return
	}

	data, err := render.BindAndValidate[UpdateRequest](w, r)
	if err != nil {
		return
	}

	cred, err := h.credService.Update(r.Context(), user, id, credential.UpdateParams{
		Name:       data.Name,
		Secret:     data.Secret,
		URL:        data.URL,
		Notes:      data.Notes,
		CategoryID: data.CategoryID,
	})
	if err != nil {
		switch {
		case errors.Is(err, apperrors.ErrCredentialNotFound):
			render.ServiceError(w, "Credential not found", http.StatusNotFound)
		default:
			render.ServiceError(w, "Internal server error", http.StatusInternalServerError)
		}
		return
	}

	render.JSON(w, toCredentialResponse(cred))
}

func (h *CredentialHandler) delete(w http.ResponseWriter, r *http.Request) {
	user, _ := userctx.FromContext(r.Context())

	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		render.ServiceError(w, "Credential not found", http.StatusNotFound)
		return
	}

	confirmed := r.URL.Query().Get("confirm") == "true"

	err = h.credService.Delete(r.Context(), user, id, confirmed)
	if err != nil {
		switch {
		case errors.Is(err, apperrors.ErrCredentialNotFound):
			render.ServiceError(w, "Credential not found", http.StatusNotFound)
		case errors.Is(err, apperrors.ErrConfirmationRequired):
			render.ConfirmationRequired(w, "Credential is shared, repeat with confirm=true to delete it with its grants")
		default:
			render.ServiceError(w, "Internal server error", http.StatusInternalServerError)
		}
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *CredentialHandler) reveal(w http.ResponseWriter, r *http.Request) {
	type RevealRequest struct {
		Pin string `json:"pin" validate:"required"`
	}
	type RevealResponse struct {
		Secret string `json:"secret"`
	}

	user, _ := userctx.FromContext(r.Context())

	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		render.ServiceError(w, "Credential not found", http.StatusNotFound)
		return
	}

	data, err := render.BindAndValidate[RevealRequest](w, r)
	if err != nil {
		return
	}

	secretValue, err := h.gate.Reveal(r.Context(), user, id, data.Pin)
	if err != nil {
		renderRevealError(w, err)
		return
	}

	render.JSON(w, RevealResponse{Secret: secretValue})
}

func (h *CredentialHandler) createCategory(w http.ResponseWriter, r *http.Request) {
	type CreateCategoryRequest struct {
		Name string `json:"name" validate:"required,max=50"`
	}
	type CategoryResponse struct {
		ID   uuid.UUID `json:"id"`
		Name string    `json:"name"`
	}

	user, _ := userctx.FromContext(r.Context())

	data, err := render.BindAndValidate[CreateCategoryRequest](w, r)
	if err != nil {
		return
	}

	category, err := h.credService.CreateCategory(r.Context(), user, data.Name)
	if err != nil {
		switch {
		case errors.Is(err, apperrors.ErrCategoryExists):
			render.ServiceError(w, "Category already exists", http.StatusConflict)
		default:
			render.ServiceError(w, "Internal server error", http.StatusInternalServerError)
		}
		return
	}

	render.JSONWithStatus(w, CategoryResponse{ID: category.ID, Name: category.Name}, http.StatusCreated)
}

func (h *CredentialHandler) listCategories(w http.ResponseWriter, r *http.Request) {
	type CategoryResponse struct {
		ID   uuid.UUID `json:"id"`
		Name string    `json:"name"`
	}

	user, _ := userctx.FromContext(r.Context())

	categories, err := h.credService.ListCategories(r.Context(), user)
	if err != nil {
		render.ServiceError(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	response := make([]CategoryResponse, 0, len(categories))
	for _, c := range categories {
		response = append(response, CategoryResponse{ID: c.ID, Name: c.Name})
	}

	render.JSON(w, response)
}

func (h *CredentialHandler) deleteCategory(w http.ResponseWriter, r *http.Request) {
	user, _ := userctx.FromContext(r.Context())

	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		render.ServiceError(w, "Category not found", http.StatusNotFound)
		return
	}

	err = h.credService.DeleteCategory(r.Context(), user, id)
	if err != nil {
		switch {
		case errors.Is(err, apperrors.ErrCategoryNotFound):
			render.ServiceError(w, "Category not found", http.StatusNotFound)
		default:
			render.ServiceError(w, "Internal server error", http.StatusInternalServerError)
		}
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// renderRevealError maps pin and lookup failures of the secret gate
// Wrong pin and missing credential stay distinguishable, but a foreign
// credential looks exactly like a missing one
func renderRevealError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, apperrors.ErrPinMissing):
		render.ServiceError(w, "Pin is required", http.StatusBadRequest)
	case errors.Is(err, apperrors.ErrPinNotConfigured):
		render.ServiceError(w, "Pin is not configured", http.StatusPreconditionRequired)
	case errors.Is(err, apperrors.ErrPinInvalid):
		render.ServiceError(w, "Invalid pin", http.StatusUnauthorized)
	case errors.Is(err, apperrors.ErrCredentialNotFound):
		render.ServiceError(w, "Credential not found", http.StatusNotFound)
	default:
		render.ServiceError(w, "Internal server error", http.StatusInternalServerError)
	}
}
