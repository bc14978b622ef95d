package billing

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/sethvargo/go-retry"
	"golang.org/x/sync/singleflight"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/agentcoach/billing/pkg/logger"
)

// Outcome classifies how a verified webhook event was handled.
type Outcome string

const (
	OutcomeApplied   Outcome = "applied"
	OutcomeDuplicate Outcome = "duplicate"
	OutcomeIgnored   Outcome = "ignored"
	OutcomeUnhandled Outcome = "unhandled"
	OutcomeFailed    Outcome = "failed"
)

// Result describes a reconciled event. Err holds an internal failure that was
// logged but must not be reported back to the processor.
type Result struct {
	EventID   string
	EventType string
	Outcome   Outcome
	Err       error
}

// IdentitySync receives the user's current subscription record whenever it
// changes.
type IdentitySync interface {
	Push(ctx context.Context, rec Record) error
}

// Observer is notified about reconciliation results, typically to export
// metrics.
type Observer interface {
	EventReconciled(eventType string, outcome Outcome, elapsed time.Duration)
	SignatureRejected()
	IdentitySyncFailed(eventType string)
	RecordSuperseded()
}

type nopObserver struct{}

func (nopObserver) EventReconciled(string, Outcome, time.Duration) {}
func (nopObserver) SignatureRejected()                             {}
func (nopObserver) IdentitySyncFailed(string)                      {}
func (nopObserver) RecordSuperseded()                              {}

// Reconciler applies verified processor webhook events to the record store
// and forwards the resulting state to the identity system.
type Reconciler struct {
	verifier  EventVerifier
	processor Processor
	store     Store
	identity  IdentitySync
	deduper   EventDeduper
	observer  Observer
	log       *slog.Logger
	now       func() time.Time

	lookupTimeout time.Duration
	lookupRetries uint64
	lookupBackoff time.Duration

	checkouts singleflight.Group
}

// ReconcilerOption configures a Reconciler.
type ReconcilerOption func(*Reconciler)

// WithDeduper drops redelivered events by ID. Without it every delivery is
// processed and idempotency relies on the store's unique keys.
func WithDeduper(d EventDeduper) ReconcilerOption {
	return func(r *Reconciler) {
		if d != nil {
			r.deduper = d
		}
	}
}

func WithObserver(o Observer) ReconcilerOption {
	return func(r *Reconciler) {
		if o != nil {
			r.observer = o
		}
	}
}

func WithLogger(l *slog.Logger) ReconcilerOption {
	return func(r *Reconciler) {
		if l != nil {
			r.log = l
		}
	}
}

// WithLookupPolicy bounds each processor lookup by timeout and retries
// transient failures up to retries times with exponential backoff from base.
func WithLookupPolicy(timeout time.Duration, retries int, base time.Duration) ReconcilerOption {
	return func(r *Reconciler) {
		if timeout > 0 {
			r.lookupTimeout = timeout
		}
		if retries >= 0 {
			r.lookupRetries = uint64(retries)
		}
		if base > 0 {
			r.lookupBackoff = base
		}
	}
}

// WithClock overrides time.Now for record creation timestamps.
func WithClock(now func() time.Time) ReconcilerOption {
	return func(r *Reconciler) {
		if now != nil {
			r.now = now
		}
	}
}

// NewReconciler panics if a required dependency is nil.
func NewReconciler(verifier EventVerifier, processor Processor, store Store, identity IdentitySync, opts ...ReconcilerOption) *Reconciler {
	if verifier == nil {
		panic("billing: EventVerifier is required")
	}
	if processor == nil {
		panic("billing: Processor is required")
	}
	if store == nil {
		panic("billing: Store is required")
	}
	if identity == nil {
		panic("billing: IdentitySync is required")
	}

	r := &Reconciler{
		verifier:      verifier,
		processor:     processor,
		store:         store,
		identity:      identity,
		deduper:       nopDeduper{},
		observer:      nopObserver{},
		log:           slog.Default(),
		now:           time.Now,
		lookupTimeout: 10 * time.Second,
		lookupRetries: 3,
		lookupBackoff: 200 * time.Millisecond,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Handle verifies and applies one webhook delivery. The only error returned
// is ErrInvalidSignature, in which case nothing was changed. Every other
// failure is logged and reported through Result.Err so the delivery can
// still be acknowledged.
func (r *Reconciler) Handle(ctx context.Context, payload []byte, signature string) (Result, error) {
	started := time.Now()

	env, err := r.verifier.Verify(payload, signature)
	if err != nil {
		r.observer.SignatureRejected()
		r.log.WarnContext(ctx, "webhook signature rejected", logger.Error(err))
		return Result{}, errors.Join(ErrInvalidSignature, err)
	}

	res := Result{EventID: env.ID, EventType: env.Type}
	log := r.log.With(logger.EventID(env.ID), logger.EventType(env.Type))

	event, err := ParseEvent(env)
	if err != nil {
		res.Outcome, res.Err = OutcomeFailed, err
		log.ErrorContext(ctx, "failed to decode webhook event", logger.Error(err))
		r.observer.EventReconciled(res.EventType, res.Outcome, time.Since(started))
		return res, nil
	}

	claimed, err := r.deduper.Claim(ctx, env.ID)
	if err != nil {
		// Process anyway; the store's unique keys still guard creation.
		log.WarnContext(ctx, "event dedupe unavailable", logger.Error(err))
		claimed = true
	}
	if !claimed {
		res.Outcome = OutcomeDuplicate
		log.InfoContext(ctx, "webhook event already processed")
		r.observer.EventReconciled(res.EventType, res.Outcome, time.Since(started))
		return res, nil
	}

	res.Outcome, res.Err = r.dispatch(ctx, log, event)

	switch {
	case res.Outcome == OutcomeFailed:
		if err := r.deduper.Release(ctx, env.ID); err != nil {
			log.WarnContext(ctx, "failed to release event claim", logger.Error(err))
		}
		log.ErrorContext(ctx, "webhook event reconciliation failed", logger.Error(res.Err))
	case res.Err != nil:
		log.ErrorContext(ctx, "webhook event applied with errors", logger.Outcome(res.Outcome), logger.Error(res.Err))
	default:
		log.InfoContext(ctx, "webhook event reconciled", logger.Outcome(res.Outcome))
	}
	r.observer.EventReconciled(res.EventType, res.Outcome, time.Since(started))
	return res, nil
}

// dispatch runs exactly one transition per event variant.
func (r *Reconciler) dispatch(ctx context.Context, log *slog.Logger, event Event) (Outcome, error) {
	switch ev := event.(type) {
	case CheckoutCompleted:
		return r.checkoutCompleted(ctx, log, ev)
	case SubscriptionUpdated:
		return r.subscriptionUpdated(ctx, log, ev)
	case SubscriptionDeleted:
		return r.subscriptionDeleted(ctx, log, ev)
	case Unhandled:
		log.DebugContext(ctx, "ignoring unhandled webhook event type")
		return OutcomeUnhandled, nil
	default:
		return OutcomeFailed, fmt.Errorf("unexpected event variant %T", event)
	}
}

type checkoutResult struct {
	outcome Outcome
	err     error
}

func (r *Reconciler) checkoutCompleted(ctx context.Context, log *slog.Logger, ev CheckoutCompleted) (Outcome, error) {
	if ev.SubscriptionID == "" {
		return OutcomeFailed, validationError(ErrMissingSubscriptionID)
	}
	// Concurrent deliveries of the same completion share one attempt.
	v, _, _ := r.checkouts.Do("checkout:"+ev.SubscriptionID, func() (any, error) {
		outcome, err := r.completeCheckout(ctx, log.With(logger.SubscriptionID(ev.SubscriptionID)), ev)
		return checkoutResult{outcome: outcome, err: err}, nil
	})
	res := v.(checkoutResult)
	return res.outcome, res.err
}

func (r *Reconciler) completeCheckout(ctx context.Context, log *slog.Logger, ev CheckoutCompleted) (Outcome, error) {
	if _, err := r.store.GetBySubscriptionID(ctx, ev.SubscriptionID); err == nil {
		log.InfoContext(ctx, "subscription record already exists")
		return OutcomeDuplicate, nil
	} else if !errors.Is(err, ErrRecordNotFound) {
		return OutcomeFailed, fmt.Errorf("load subscription record: %w", err)
	}

	sub, err := lookup(ctx, r, "subscription", func(ctx context.Context) (*ProcessorSubscription, error) {
		return r.processor.GetSubscription(ctx, ev.SubscriptionID)
	})
	if err != nil {
		return OutcomeFailed, err
	}

	customerID := ev.CustomerID
	if customerID == "" {
		customerID = sub.CustomerID
	}
	customer, err := lookup(ctx, r, "customer", func(ctx context.Context) (*ProcessorCustomer, error) {
		return r.processor.GetCustomer(ctx, customerID)
	})
	if err != nil {
		return OutcomeFailed, err
	}

	if sub.ProductID == "" {
		return OutcomeFailed, errors.Join(ErrUpstream, errors.New("subscription has no product"))
	}
	product, err := lookup(ctx, r, "product", func(ctx context.Context) (*ProcessorProduct, error) {
		return r.processor.GetProduct(ctx, sub.ProductID)
	})
	if err != nil {
		return OutcomeFailed, err
	}

	email := firstNonEmpty(customer.Email, ev.CustomerEmail, ev.Metadata["email"])
	if email == "" {
		return OutcomeFailed, validationError(ErrMissingEmail)
	}

	tier, err := TierFromProductName(product.Name)
	if err != nil {
		if t := Tier(ev.Metadata["planId"]); t.Paid() {
			log.WarnContext(ctx, "tier derived from checkout metadata", logger.Error(err))
			tier = t
		} else {
			return OutcomeFailed, err
		}
	}

	rec := Record{
		UserEmail:         NormalizeEmail(email),
		Tier:              tier,
		CustomerID:        customerID,
		SubscriptionID:    ev.SubscriptionID,
		PlanDetails:       planDetails(ev.Metadata, product, sub),
		Status:            sub.Status,
		CurrentPeriodEnd:  sub.CurrentPeriodEnd.UTC(),
		CancelAtPeriodEnd: sub.CancelAtPeriodEnd,
		CreatedAt:         r.now().UTC(),
	}
	log = log.With(logger.Email(rec.UserEmail), logger.CustomerID(rec.CustomerID))

	err = r.store.Create(ctx, rec)
	switch {
	case errors.Is(err, ErrDuplicateSubscription):
		log.InfoContext(ctx, "subscription record created concurrently")
		return OutcomeDuplicate, nil
	case errors.Is(err, ErrEmailTaken):
		prev, err := r.store.Replace(ctx, rec)
		if err != nil {
			return OutcomeFailed, fmt.Errorf("supersede subscription record: %w", err)
		}
		r.observer.RecordSuperseded()
		log.WarnContext(ctx, "subscription record superseded by new checkout",
			slog.String("superseded_subscription_id", prev.SubscriptionID))
	case err != nil:
		return OutcomeFailed, fmt.Errorf("create subscription record: %w", err)
	}

	return OutcomeApplied, r.push(ctx, EventCheckoutCompleted, rec)
}

func (r *Reconciler) subscriptionUpdated(ctx context.Context, log *slog.Logger, ev SubscriptionUpdated) (Outcome, error) {
	log = log.With(logger.SubscriptionID(ev.SubscriptionID))

	rec, err := r.store.Update(ctx, ev.SubscriptionID, ev.Update)
	if errors.Is(err, ErrRecordNotFound) {
		log.InfoContext(ctx, "no subscription record to update")
		return OutcomeIgnored, nil
	}
	if err != nil {
		return OutcomeFailed, fmt.Errorf("update subscription record: %w", err)
	}

	return OutcomeApplied, r.push(ctx, EventSubscriptionUpdated, rec)
}

func (r *Reconciler) subscriptionDeleted(ctx context.Context, log *slog.Logger, ev SubscriptionDeleted) (Outcome, error) {
	log = log.With(logger.SubscriptionID(ev.SubscriptionID))

	rec, err := r.store.GetBySubscriptionID(ctx, ev.SubscriptionID)
	if errors.Is(err, ErrRecordNotFound) {
		log.InfoContext(ctx, "no subscription record to delete")
		return OutcomeIgnored, nil
	}
	if err != nil {
		return OutcomeFailed, fmt.Errorf("load subscription record: %w", err)
	}

	reset := rec
	reset.Tier = TierFree
	reset.Status = StatusCanceled
	pushErr := r.push(ctx, EventSubscriptionDeleted, reset)

	// The push may outlast the processor's delivery timeout; the delete must
	// still land so a redelivery does not push the reset again.
	if err := r.store.Delete(context.WithoutCancel(ctx), ev.SubscriptionID); err != nil && !errors.Is(err, ErrRecordNotFound) {
		return OutcomeFailed, errors.Join(fmt.Errorf("delete subscription record: %w", err), pushErr)
	}
	return OutcomeApplied, pushErr
}

func (r *Reconciler) push(ctx context.Context, eventType string, rec Record) error {
	if err := r.identity.Push(ctx, rec); err != nil {
		r.observer.IdentitySyncFailed(eventType)
		return errors.Join(ErrIdentitySync, err)
	}
	return nil
}

// TierFromProductName matches the case-normalized product name against the
// paid tiers, first exactly and then as a word within the name, so both
// "Team" and "AgentCoach.AI Team Plan (monthly)" resolve to TierTeam.
func TierFromProductName(name string) (Tier, error) {
	// Casers keep state and cannot be shared between goroutines.
	normalized := strings.TrimSpace(cases.Lower(language.Und).String(name))
	if t := Tier(normalized); t.Paid() {
		return t, nil
	}
	words := strings.FieldsFunc(normalized, func(r rune) bool {
		return !(r >= 'a' && r <= 'z')
	})
	for _, w := range words {
		if t := Tier(w); t.Paid() {
			return t, nil
		}
	}
	return "", validationError(fmt.Errorf("%w: %q", ErrUnknownTier, name))
}

// planDetails snapshots the plan from checkout metadata, falling back to the
// processor's product and price for anything the metadata lacks.
func planDetails(meta map[string]string, product *ProcessorProduct, sub *ProcessorSubscription) PlanDetails {
	d := PlanDetails{
		Name:          firstNonEmpty(meta["planName"], product.Name),
		Description:   firstNonEmpty(meta["planDescription"], product.Description, product.Name),
		BillingPeriod: firstNonEmpty(meta["billingPeriod"], periodFromInterval(sub.Interval)),
		Price:         sub.UnitAmount,
	}
	if p, err := strconv.ParseInt(meta["price"], 10, 64); err == nil && p > 0 {
		d.Price = p
	}
	return d
}

// lookup calls fn with a per-attempt timeout, retrying ErrTransient failures.
func lookup[T any](ctx context.Context, r *Reconciler, what string, fn func(context.Context) (T, error)) (T, error) {
	var out T
	backoff := retry.WithMaxRetries(r.lookupRetries, retry.NewExponential(r.lookupBackoff))
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		attemptCtx, cancel := context.WithTimeout(ctx, r.lookupTimeout)
		defer cancel()

		v, err := fn(attemptCtx)
		if err != nil {
			if errors.Is(err, ErrTransient) || errors.Is(err, context.DeadlineExceeded) {
				return retry.RetryableError(err)
			}
			return err
		}
		out = v
		return nil
	})
	if err != nil {
		return out, errors.Join(ErrUpstream, fmt.Errorf("get %s: %w", what, err))
	}
	return out, nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}
