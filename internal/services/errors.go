package services

import (
	"errors"

	"github.com/diewo77/go-facture/internal/entitlement"
	"github.com/diewo77/go-facture/internal/models"
	"github.com/diewo77/go-facture/validation"
)

// ErrNotFound covers both a genuinely missing record and a record owned by
// another user; the two cases are deliberately indistinguishable.
var ErrNotFound = errors.New("not_found")

// ErrDeliveryFailed wraps a mailer failure so callers can distinguish it
// from an internal error. The document status is left untouched.
var ErrDeliveryFailed = errors.New("delivery_failed")

// ValidationError carries field-level violations for malformed input.
type ValidationError struct {
	Violations validation.Violations
}

func (e *ValidationError) Error() string { return "validation_failed" }

// EntitlementError reports a denied quota or subscription gate.
type EntitlementError struct {
	Resource entitlement.Resource
	Decision entitlement.Decision
	// Code is "quota_exceeded" or "subscription_required".
	Code string
}

func (e *EntitlementError) Error() string { return e.Code }

// AsStateError unwraps a status-guard violation, if any.
func AsStateError(err error) (*models.StateError, bool) {
	var se *models.StateError
	if errors.As(err, &se) {
		return se, true
	}
	return nil, false
}

// AsValidationError unwraps a validation failure, if any.
func AsValidationError(err error) (*ValidationError, bool) {
	var ve *ValidationError
	if errors.As(err, &ve) {
		return ve, true
	}
	return nil, false
}

// AsEntitlementError unwraps a denied gate, if any.
func AsEntitlementError(err error) (*EntitlementError, bool) {
	var ee *EntitlementError
	if errors.As(err, &ee) {
		return ee, true
	}
	return nil, false
}
