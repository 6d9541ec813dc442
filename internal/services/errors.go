package services

import "errors"

// Sentinel errors. Services wrap them with context via fmt.Errorf("...: %w", ...) and the
// HTTP layer maps them to status codes with errors.Is.
var (
	ErrValidation         = errors.New("validation failed")
	ErrNotFound           = errors.New("not found")
	ErrConflict           = errors.New("conflict")
	ErrPermissionDenied   = errors.New("permission denied")
	ErrInvalidState       = errors.New("invalid state")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrInvalidToken       = errors.New("invalid token")
	ErrInvalidProvider    = errors.New("invalid payment provider")
	ErrGateway            = errors.New("payment gateway error")
	ErrInvalidSignature   = errors.New("invalid webhook signature")
)
