package billing

import "context"

// Store persists subscription records. Implementations enforce uniqueness of
// both SubscriptionID and UserEmail.
type Store interface {
	// Create inserts a new record. Returns ErrDuplicateSubscription when the
	// subscription ID exists and ErrEmailTaken when the email is held by a
	// different subscription.
	Create(ctx context.Context, rec Record) error

	// Replace swaps the record held by rec.UserEmail for rec, dropping the
	// previous subscription. Returns ErrRecordNotFound if the email has no record.
	Replace(ctx context.Context, rec Record) (previous Record, err error)

	// GetBySubscriptionID returns ErrRecordNotFound if absent.
	GetBySubscriptionID(ctx context.Context, subscriptionID string) (Record, error)
	GetByEmail(ctx context.Context, email string) (Record, error)

	// ListByEmail and List never return a nil slice.
	ListByEmail(ctx context.Context, email string) ([]Record, error)
	List(ctx context.Context) ([]Record, error)

	// Update applies u to the record and returns the updated copy.
	Update(ctx context.Context, subscriptionID string, u SubscriptionUpdate) (Record, error)

	// Delete removes the record. Returns ErrRecordNotFound if absent.
	Delete(ctx context.Context, subscriptionID string) error
}
