package billing

import "errors"

// Classification errors. Concrete failures are joined with one of these so
// callers at the edge can map them with errors.Is.
var (
	ErrValidation       = errors.New("billing: validation failed")
	ErrUpstream         = errors.New("billing: payment processor request failed")
	ErrInvalidSignature = errors.New("billing: webhook signature verification failed")
	ErrRecordNotFound   = errors.New("billing: subscription record not found")
)

var (
	ErrInvalidPlan           = errors.New("invalid plan selected")
	ErrInvalidBillingPeriod  = errors.New("invalid billing period")
	ErrMissingSubscriptionID = errors.New("subscription ID is required")
	ErrMissingEmail          = errors.New("email is required")
	ErrInvalidRecord         = errors.New("invalid subscription record")
	ErrUnknownTier           = errors.New("cannot derive tier from product name")
	ErrInvalidCatalog        = errors.New("invalid plan catalog")

	// ErrDuplicateSubscription is returned by a Store when a record with the same
	// subscription ID already exists.
	ErrDuplicateSubscription = errors.New("subscription record already exists")
	// ErrEmailTaken is returned by a Store when another subscription already
	// holds the record for the same user email.
	ErrEmailTaken = errors.New("user email already has a subscription record")

	// ErrIdentitySync wraps failures pushing a record to the identity system.
	// The record store change it follows is kept.
	ErrIdentitySync = errors.New("identity sync failed")

	// ErrTransient marks processor errors worth retrying (network, 429, 5xx).
	ErrTransient = errors.New("transient processor error")
)

func validationError(err error) error {
	return errors.Join(ErrValidation, err)
}
