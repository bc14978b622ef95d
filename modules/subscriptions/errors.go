package subscriptions

import (
	"errors"
	"net/http"
	"strings"

	"github.com/agentcoach/billing/handler"
	"github.com/agentcoach/billing/pkg/billing"
	"github.com/agentcoach/billing/pkg/binder"
)

// validationMessages lists the user-facing validation causes, most specific first.
var validationMessages = []error{
	billing.ErrInvalidPlan,
	billing.ErrInvalidBillingPeriod,
	billing.ErrMissingSubscriptionID,
	billing.ErrMissingEmail,
}

// classify maps domain and binding errors to a status and a message that is
// safe to show to API clients.
func classify(err error) (int, string) {
	switch {
	case errors.Is(err, billing.ErrInvalidSignature):
		return http.StatusBadRequest, "webhook signature verification failed"
	case errors.Is(err, billing.ErrValidation):
		for _, cause := range validationMessages {
			if errors.Is(err, cause) {
				return http.StatusBadRequest, cause.Error()
			}
		}
		return http.StatusBadRequest, "invalid request"
	case errors.Is(err, billing.ErrRecordNotFound):
		return http.StatusNotFound, "subscription record not found"
	case errors.Is(err, billing.ErrUpstream):
		return http.StatusBadGateway, "payment processor request failed"
	case errors.Is(err, binder.ErrBodyTooLarge):
		return http.StatusRequestEntityTooLarge, firstLine(err)
	case errors.Is(err, binder.ErrUnsupportedMediaType), errors.Is(err, binder.ErrMissingContentType):
		return http.StatusUnsupportedMediaType, firstLine(err)
	case errors.Is(err, binder.ErrFailedToParseJSON), errors.Is(err, binder.ErrEmptyBody):
		return http.StatusBadRequest, firstLine(err)
	}
	return handler.DefaultClassifier(err)
}

func firstLine(err error) string {
	msg, _, _ := strings.Cut(err.Error(), "\n")
	return msg
}
