package billing

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// PortalService opens hosted customer portal sessions for subscribers.
type PortalService struct {
	processor Processor
	store     Store
	returnURL string
}

func NewPortalService(processor Processor, store Store, frontendURL string) *PortalService {
	if processor == nil {
		panic("billing: Processor is required")
	}
	if store == nil {
		panic("billing: Store is required")
	}
	return &PortalService{
		processor: processor,
		store:     store,
		returnURL: strings.TrimRight(frontendURL, "/") + "/pricing",
	}
}

// Create returns a portal URL for the customer holding email's subscription.
func (p *PortalService) Create(ctx context.Context, email string) (string, error) {
	email = NormalizeEmail(email)
	if email == "" {
		return "", validationError(ErrMissingEmail)
	}

	rec, err := p.store.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, ErrRecordNotFound) {
			return "", err
		}
		return "", fmt.Errorf("load subscription record: %w", err)
	}

	url, err := p.processor.CreatePortalSession(ctx, rec.CustomerID, p.returnURL)
	if err != nil {
		return "", errors.Join(ErrUpstream, err)
	}
	return url, nil
}
