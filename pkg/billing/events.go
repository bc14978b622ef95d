package billing

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"
)

// Processor event types the reconciler acts on.
const (
	EventCheckoutCompleted   = "checkout.session.completed"
	EventSubscriptionUpdated = "customer.subscription.updated"
	EventSubscriptionDeleted = "customer.subscription.deleted"
)

// Event is a verified, decoded webhook event. The set of implementations is
// closed; the reconciler switches over every one of them.
type Event interface {
	EventID() string
	isEvent()
}

// CheckoutCompleted reports a finished checkout for a new subscription.
type CheckoutCompleted struct {
	ID             string
	SessionID      string
	SubscriptionID string
	CustomerID     string
	CustomerEmail  string
	Metadata       map[string]string
}

// SubscriptionUpdated carries the changed subscription state.
type SubscriptionUpdated struct {
	ID             string
	SubscriptionID string
	Update         SubscriptionUpdate
}

// SubscriptionDeleted reports that a subscription has ended.
type SubscriptionDeleted struct {
	ID             string
	SubscriptionID string
}

// Unhandled is any event type the reconciler acknowledges without acting on.
type Unhandled struct {
	ID   string
	Type string
}

func (e CheckoutCompleted) EventID() string   { return e.ID }
func (e SubscriptionUpdated) EventID() string { return e.ID }
func (e SubscriptionDeleted) EventID() string { return e.ID }
func (e Unhandled) EventID() string           { return e.ID }

func (CheckoutCompleted) isEvent()   {}
func (SubscriptionUpdated) isEvent() {}
func (SubscriptionDeleted) isEvent() {}
func (Unhandled) isEvent()           {}

// EventType returns the processor event type name for e.
func EventType(e Event) string {
	switch ev := e.(type) {
	case CheckoutCompleted:
		return EventCheckoutCompleted
	case SubscriptionUpdated:
		return EventSubscriptionUpdated
	case SubscriptionDeleted:
		return EventSubscriptionDeleted
	case Unhandled:
		return ev.Type
	}
	return ""
}

// Narrow views of the processor's data objects. Only the fields the
// reconciler reads are decoded.
type (
	checkoutSessionObject struct {
		ID              string       `json:"id"`
		Subscription    expandableID `json:"subscription"`
		Customer        expandableID `json:"customer"`
		CustomerEmail   string       `json:"customer_email"`
		CustomerDetails *struct {
			Email string `json:"email"`
		} `json:"customer_details"`
		Metadata map[string]string `json:"metadata"`
	}

	subscriptionObject struct {
		ID                string `json:"id"`
		Status            string `json:"status"`
		CurrentPeriodEnd  int64  `json:"current_period_end"`
		CancelAtPeriodEnd bool   `json:"cancel_at_period_end"`
		Items             struct {
			Data []struct {
				CurrentPeriodEnd int64 `json:"current_period_end"`
			} `json:"data"`
		} `json:"items"`
	}
)

// expandableID decodes a field that is either an object ID or an expanded
// object carrying an "id".
type expandableID string

func (e *expandableID) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		return nil
	}
	if b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*e = expandableID(s)
		return nil
	}
	var obj struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(b, &obj); err != nil {
		return err
	}
	*e = expandableID(obj.ID)
	return nil
}

// periodEnd prefers the subscription-level value and falls back to the first
// item, where newer API versions report it.
func (s subscriptionObject) periodEnd() time.Time {
	ts := s.CurrentPeriodEnd
	if ts == 0 {
		for _, item := range s.Items.Data {
			if item.CurrentPeriodEnd > ts {
				ts = item.CurrentPeriodEnd
			}
		}
	}
	if ts == 0 {
		return time.Time{}
	}
	return time.Unix(ts, 0).UTC()
}

// ParseEvent decodes a verified envelope into one of the Event variants.
// Unknown event types become Unhandled.
func ParseEvent(env Envelope) (Event, error) {
	switch env.Type {
	case EventCheckoutCompleted:
		var obj checkoutSessionObject
		if err := json.Unmarshal(env.Data, &obj); err != nil {
			return nil, fmt.Errorf("decode %s: %w", env.Type, err)
		}
		email := obj.CustomerEmail
		if email == "" && obj.CustomerDetails != nil {
			email = obj.CustomerDetails.Email
		}
		return CheckoutCompleted{
			ID:             env.ID,
			SessionID:      obj.ID,
			SubscriptionID: string(obj.Subscription),
			CustomerID:     string(obj.Customer),
			CustomerEmail:  email,
			Metadata:       obj.Metadata,
		}, nil

	case EventSubscriptionUpdated:
		var obj subscriptionObject
		if err := json.Unmarshal(env.Data, &obj); err != nil {
			return nil, fmt.Errorf("decode %s: %w", env.Type, err)
		}
		return SubscriptionUpdated{
			ID:             env.ID,
			SubscriptionID: obj.ID,
			Update: SubscriptionUpdate{
				Status:            Status(obj.Status),
				CurrentPeriodEnd:  obj.periodEnd(),
				CancelAtPeriodEnd: obj.CancelAtPeriodEnd,
			},
		}, nil

	case EventSubscriptionDeleted:
		var obj subscriptionObject
		if err := json.Unmarshal(env.Data, &obj); err != nil {
			return nil, fmt.Errorf("decode %s: %w", env.Type, err)
		}
		return SubscriptionDeleted{ID: env.ID, SubscriptionID: obj.ID}, nil
	}

	return Unhandled{ID: env.ID, Type: env.Type}, nil
}
