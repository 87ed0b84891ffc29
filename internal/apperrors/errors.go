package apperrors

import (
	"errors"
)

var (
	ErrUserAlreadyExists  = errors.New("user already exists")
	ErrUserNotFound       = errors.New("user not found")
	ErrInvalidCredentials = errors.New("invalid username or password")

	ErrRefreshTokenInvalid = errors.New("refresh token is invalid or already used")
	ErrTokenExpired        = errors.New("token is expired")
	ErrTokenRevoked        = errors.New("token is revoked")

	ErrPinMissing       = errors.New("pin is required")
	ErrPinNotConfigured = errors.New("pin is not configured")
	ErrPinInvalid       = errors.New("pin is invalid")
	ErrPinFormat        = errors.New("pin must be 4 to 6 digits")

	// Returned both when a credential does not exist and when it belongs to
	// someone else, so callers can't probe which ids exist
	ErrCredentialNotFound = errors.New("credential not found")

	ErrCategoryNotFound = errors.New("category not found")
	ErrCategoryExists   = errors.New("category already exists")

	ErrShareNotFound        = errors.New("share not found")
	ErrShareAlreadyAccepted = errors.New("share already accepted")
	ErrSelfShare            = errors.New("credential can't be shared with its owner")
	ErrNotAuthorized        = errors.New("not allowed for this user")

	// Deleting a shared credential requires an explicit confirmation
	ErrConfirmationRequired = errors.New("credential is shared, confirmation required")

	ErrDecryption = errors.New("can't decrypt secret")
)
