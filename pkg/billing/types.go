package billing

import "strings"

// Tier is the service level granted to a user.
type Tier string

const (
	TierFree         Tier = "free"
	TierIndividual   Tier = "individual"
	TierTeam         Tier = "team"
	TierOrganization Tier = "organization"
)

// Tiers lists every known tier, free first.
var Tiers = []Tier{TierFree, TierIndividual, TierTeam, TierOrganization}

func (t Tier) Valid() bool {
	switch t {
	case TierFree, TierIndividual, TierTeam, TierOrganization:
		return true
	}
	return false
}

// Paid reports whether the tier can be purchased through checkout.
func (t Tier) Paid() bool {
	return t.Valid() && t != TierFree
}

// Status mirrors the processor's subscription status.
type Status string

const (
	StatusActive            Status = "active"
	StatusPastDue           Status = "past_due"
	StatusUnpaid            Status = "unpaid"
	StatusCanceled          Status = "canceled"
	StatusIncomplete        Status = "incomplete"
	StatusIncompleteExpired Status = "incomplete_expired"
	StatusTrialing          Status = "trialing"
)

func (s Status) Valid() bool {
	switch s {
	case StatusActive, StatusPastDue, StatusUnpaid, StatusCanceled,
		StatusIncomplete, StatusIncompleteExpired, StatusTrialing:
		return true
	}
	return false
}

// BillingPeriod is the billing frequency a customer selects at checkout.
type BillingPeriod string

const (
	PeriodMonthly BillingPeriod = "monthly"
	PeriodAnnual  BillingPeriod = "annual"
)

// ParseBillingPeriod validates a raw billing period value.
func ParseBillingPeriod(s string) (BillingPeriod, error) {
	p := BillingPeriod(strings.ToLower(strings.TrimSpace(s)))
	if !p.Valid() {
		return "", validationError(ErrInvalidBillingPeriod)
	}
	return p, nil
}

func (p BillingPeriod) Valid() bool {
	return p == PeriodMonthly || p == PeriodAnnual
}

// Interval returns the processor's recurring interval unit for the period.
func (p BillingPeriod) Interval() string {
	if p == PeriodAnnual {
		return "year"
	}
	return "month"
}

// periodFromInterval maps a processor recurring interval back to a period.
// Unknown intervals are returned verbatim.
func periodFromInterval(interval string) string {
	switch interval {
	case "month":
		return string(PeriodMonthly)
	case "year":
		return string(PeriodAnnual)
	}
	return interval
}
