package identity

import "errors"

var (
	ErrNotFound           = errors.New("identity: not found")
	ErrConflict           = errors.New("identity: already exists")
	ErrValidation         = errors.New("identity: invalid input")
	ErrInvalidCredentials = errors.New("identity: invalid credentials")
	ErrMissingEmailClaim  = errors.New("identity: external provider returned no email claim")
	ErrExternalProvider   = errors.New("identity: external provider error")
)
