package core

import "errors"

// Error kinds surfaced by the core. Callers match with errors.Is and translate
// to protocol-specific codes; the core itself never logs and never panics.
var (
	ErrNotFound              = errors.New("not found")
	ErrCodeConflict          = errors.New("code already exists")
	ErrInvalidCode           = errors.New("invalid code shape")
	ErrInvalidCodeHierarchy  = errors.New("code does not extend its parent code")
	ErrValidation            = errors.New("validation failed")
	ErrImmutableFieldChange  = errors.New("field cannot be changed after creation")
	ErrConfiguration         = errors.New("pricing configuration yields a negative price")
	ErrHidden                = errors.New("service is hidden for this company")
	ErrNoHistory             = errors.New("no pricing history recorded")
	ErrAlreadyInProgress     = errors.New("operation already in progress for this company")
	ErrPropagationIncomplete = errors.New("propagation incomplete, retry to finish")
	ErrTaxRateMissing        = errors.New("no applicable tax rate")
	ErrInvalidTransition     = errors.New("invalid document status transition")
)
