package billing

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

const maxEmailLength = 100

// PlanDetails is a snapshot of the purchased plan taken when the subscription
// record is created. It is not re-synced when catalog prices change.
type PlanDetails struct {
	Name          string `json:"name" bson:"name"`
	Description   string `json:"description" bson:"description"`
	BillingPeriod string `json:"billingPeriod" bson:"billingPeriod"`
	Price         int64  `json:"price" bson:"price"` // minor currency units
}

// Record is the locally mirrored state of one processor subscription.
// SubscriptionID is the primary correlation key; UserEmail is unique as well.
type Record struct {
	UserEmail         string      `json:"userEmail" bson:"userEmail"`
	Tier              Tier        `json:"tier" bson:"tier"`
	CustomerID        string      `json:"customerId" bson:"customerId"`
	SubscriptionID    string      `json:"subscriptionId" bson:"subscriptionId"`
	PlanDetails       PlanDetails `json:"planDetails" bson:"planDetails"`
	Status            Status      `json:"status" bson:"status"`
	CurrentPeriodEnd  time.Time   `json:"currentPeriodEnd" bson:"currentPeriodEnd"`
	CancelAtPeriodEnd bool        `json:"cancelAtPeriodEnd" bson:"cancelAtPeriodEnd"`
	CreatedAt         time.Time   `json:"createdAt" bson:"createdAt"`
}

// Validate checks required fields and enum membership.
func (r *Record) Validate() error {
	var errs []error
	if r.UserEmail == "" {
		errs = append(errs, errors.New("userEmail is required"))
	} else if len(r.UserEmail) > maxEmailLength {
		errs = append(errs, fmt.Errorf("userEmail cannot be more than %d characters", maxEmailLength))
	}
	if !r.Tier.Valid() {
		errs = append(errs, fmt.Errorf("unknown tier %q", r.Tier))
	}
	if r.CustomerID == "" {
		errs = append(errs, errors.New("customerId is required"))
	}
	if r.SubscriptionID == "" {
		errs = append(errs, errors.New("subscriptionId is required"))
	}
	if r.PlanDetails.Name == "" {
		errs = append(errs, errors.New("planDetails.name is required"))
	}
	if r.PlanDetails.Description == "" {
		errs = append(errs, errors.New("planDetails.description is required"))
	}
	if r.PlanDetails.BillingPeriod == "" {
		errs = append(errs, errors.New("planDetails.billingPeriod is required"))
	}
	if !r.Status.Valid() {
		errs = append(errs, fmt.Errorf("unknown status %q", r.Status))
	}
	if r.CurrentPeriodEnd.IsZero() {
		errs = append(errs, errors.New("currentPeriodEnd is required"))
	}
	if len(errs) == 0 {
		return nil
	}
	return validationError(errors.Join(append([]error{ErrInvalidRecord}, errs...)...))
}

// SubscriptionUpdate carries the fields a subscription update event may change.
// A zero CurrentPeriodEnd leaves the stored value untouched.
type SubscriptionUpdate struct {
	Status            Status
	CurrentPeriodEnd  time.Time
	CancelAtPeriodEnd bool
}

// apply mutates rec in place.
func (u SubscriptionUpdate) apply(rec *Record) {
	rec.Status = u.Status
	if !u.CurrentPeriodEnd.IsZero() {
		rec.CurrentPeriodEnd = u.CurrentPeriodEnd.UTC()
	}
	rec.CancelAtPeriodEnd = u.CancelAtPeriodEnd
}

// NormalizeEmail lowercases and trims an email for storage and lookup.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
