package billing

import (
	"context"
	"errors"
	"strings"
	"time"
)

// Canceller schedules subscriptions to end at the close of the current
// billing period. The local record changes only when the processor's
// subscription update event arrives.
type Canceller struct {
	processor Processor
}

func NewCanceller(processor Processor) *Canceller {
	if processor == nil {
		panic("billing: Processor is required")
	}
	return &Canceller{processor: processor}
}

// Cancel returns the time the subscription will end, in UTC.
func (c *Canceller) Cancel(ctx context.Context, subscriptionID string) (time.Time, error) {
	subscriptionID = strings.TrimSpace(subscriptionID)
	if subscriptionID == "" {
		return time.Time{}, validationError(ErrMissingSubscriptionID)
	}

	sub, err := c.processor.CancelAtPeriodEnd(ctx, subscriptionID)
	if err != nil {
		return time.Time{}, errors.Join(ErrUpstream, err)
	}
	if !sub.CancelAt.IsZero() {
		return sub.CancelAt.UTC(), nil
	}
	return sub.CurrentPeriodEnd.UTC(), nil
}
