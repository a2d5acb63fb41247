// README: Error kinds shared by modules; the HTTP layer maps them with errors.Is.
package types

import "errors"

var (
	ErrValidation           = errors.New("validation error")
	ErrNotFound             = errors.New("not found")
	ErrForbidden            = errors.New("forbidden")
	ErrInvalidTransition    = errors.New("invalid state transition")
	ErrPricingConfiguration = errors.New("pricing configuration error")
	ErrInvalidAmount        = errors.New("invalid amount")
	ErrConflict             = errors.New("conflict")
)
