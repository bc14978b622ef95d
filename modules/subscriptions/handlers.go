package subscriptions

import (
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/agentcoach/billing/handler"
	"github.com/agentcoach/billing/pkg/billing"
	"github.com/agentcoach/billing/pkg/binder"
	"github.com/agentcoach/billing/pkg/logger"
)

// SignatureHeader carries the processor's webhook signature.
const SignatureHeader = "Stripe-Signature"

// cancellationDateLayout is ISO-8601 in UTC with millisecond precision.
const cancellationDateLayout = "2006-01-02T15:04:05.000Z"

const cancellationMessage = "Subscription will be canceled at the end of the current billing period"

// Handlers exposes billing.Service over HTTP.
type Handlers struct {
	svc    billing.Service
	cfg    Config
	log    *slog.Logger
	errors handler.ErrorHandler
}

// NewHandlers panics if svc is nil.
func NewHandlers(svc billing.Service, cfg Config, log *slog.Logger) *Handlers {
	if svc == nil {
		panic("subscriptions: Service is required")
	}
	if log == nil {
		log = slog.Default()
	}
	log = log.With(logger.Component("http"))
	return &Handlers{
		svc:    svc,
		cfg:    cfg,
		log:    log,
		errors: handler.JSONErrorHandler(log, classify),
	}
}

// Handle returns the billing routes.
func (h *Handlers) Handle() http.Handler {
	r := chi.NewRouter()
	jsonBody := handler.WithBinders(binder.JSON(binder.WithMaxBytes(h.cfg.MaxBodyBytes)))
	errs := handler.WithErrorHandler(h.errors)

	r.Post("/create-checkout-session", handler.Wrap(h.createCheckoutSession, jsonBody, errs))
	r.Post("/create-customer-portal-session", handler.Wrap(h.createPortalSession, jsonBody, errs))
	r.Post("/cancel-subscription", handler.Wrap(h.cancelSubscription, jsonBody, errs))
	r.Get("/payments", handler.Wrap(h.listPayments, errs))
	r.Get("/payments/{email}", handler.Wrap(h.listPaymentsByEmail, handler.WithBinders(bindEmailParam), errs))
	r.Post("/webhook", handler.Wrap(h.webhook, handler.WithBinders(h.bindWebhook), errs))

	return r
}

type checkoutRequest struct {
	Plan          string `json:"plan"`
	BillingPeriod string `json:"billingPeriod"`
	BillingCycle  string `json:"billingCycle"`
	Email         string `json:"email"`
	ClerkEmail    string `json:"clerkEmail"`
	ClerkUserID   string `json:"clerkUserId"`
}

func (h *Handlers) createCheckoutSession(r *http.Request, req checkoutRequest) handler.Response {
	session, err := h.svc.CreateCheckoutSession(r.Context(), billing.CheckoutInput{
		Plan:           req.Plan,
		BillingPeriod:  firstNonEmpty(req.BillingPeriod, req.BillingCycle),
		Email:          firstNonEmpty(req.Email, req.ClerkEmail),
		ExternalUserID: req.ClerkUserID,
	})
	if err != nil {
		return handler.Error(err)
	}
	return handler.JSON(session)
}

type portalRequest struct {
	Email string `json:"email"`
}

type portalResponse struct {
	URL string `json:"url"`
}

func (h *Handlers) createPortalSession(r *http.Request, req portalRequest) handler.Response {
	portalURL, err := h.svc.CreatePortalSession(r.Context(), req.Email)
	if err != nil {
		return handler.Error(err)
	}
	return handler.JSON(portalResponse{URL: portalURL})
}

type cancelRequest struct {
	SubscriptionID string `json:"subscriptionId"`
}

type cancelResponse struct {
	Message          string `json:"message"`
	CancellationDate string `json:"cancellationDate"`
}

func (h *Handlers) cancelSubscription(r *http.Request, req cancelRequest) handler.Response {
	at, err := h.svc.CancelSubscription(r.Context(), req.SubscriptionID)
	if err != nil {
		return handler.Error(err)
	}
	h.log.InfoContext(r.Context(), "subscription cancellation scheduled",
		logger.SubscriptionID(req.SubscriptionID),
		slog.Time("cancel_at", at),
	)
	return handler.JSON(cancelResponse{
		Message:          cancellationMessage,
		CancellationDate: formatCancellationDate(at),
	})
}

func (h *Handlers) listPayments(r *http.Request, _ struct{}) handler.Response {
	records, err := h.svc.ListRecords(r.Context())
	if err != nil {
		return handler.Error(err)
	}
	return handler.JSON(nonNil(records))
}

type emailParam struct {
	Email string
}

func bindEmailParam(r *http.Request, v any) error {
	raw := chi.URLParam(r, "email")
	email, err := url.PathUnescape(raw)
	if err != nil {
		email = raw
	}
	v.(*emailParam).Email = email
	return nil
}

func (h *Handlers) listPaymentsByEmail(r *http.Request, req emailParam) handler.Response {
	records, err := h.svc.ListRecordsByEmail(r.Context(), req.Email)
	if err != nil {
		return handler.Error(err)
	}
	return handler.JSON(nonNil(records))
}

type webhookRequest struct {
	Payload   []byte
	Signature string
}

func (h *Handlers) bindWebhook(r *http.Request, v any) error {
	payload, err := binder.RawBody(r, h.cfg.WebhookMaxBodyBytes)
	if err != nil {
		return err
	}
	req := v.(*webhookRequest)
	req.Payload = payload
	req.Signature = r.Header.Get(SignatureHeader)
	return nil
}

type webhookResponse struct {
	Received bool `json:"received"`
}

// webhook acknowledges every verified event. Reconciliation failures are
// logged by the reconciler and never reported back to the processor.
func (h *Handlers) webhook(r *http.Request, req webhookRequest) handler.Response {
	if _, err := h.svc.HandleWebhook(r.Context(), req.Payload, req.Signature); err != nil {
		return handler.Error(err)
	}
	return handler.JSON(webhookResponse{Received: true})
}

func formatCancellationDate(t time.Time) string {
	return t.UTC().Format(cancellationDateLayout)
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

func nonNil(records []billing.Record) []billing.Record {
	if records == nil {
		return []billing.Record{}
	}
	return records
}
