package billing

import (
	"bytes"
	"cmp"
	_ "embed"
	"errors"
	"fmt"
	"io"
	"os"
	"slices"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed catalog.yaml
var defaultCatalogYAML []byte

// Plan is a purchasable catalog plan. Prices are in minor currency units.
type Plan struct {
	ID           string `yaml:"id"`
	Name         string `yaml:"name"`
	Description  string `yaml:"description"`
	MonthlyPrice int64  `yaml:"monthlyPrice"`
	AnnualPrice  int64  `yaml:"annualPrice"`
}

// Price returns the plan price for the given period.
func (p Plan) Price(period BillingPeriod) int64 {
	if period == PeriodAnnual {
		return p.AnnualPrice
	}
	return p.MonthlyPrice
}

// CatalogEntry is the result of a catalog lookup for one plan and period.
type CatalogEntry struct {
	PlanID      string
	Name        string
	Description string
	UnitPrice   int64
	Currency    string
	Interval    string
	Period      BillingPeriod
}

// Catalog is an immutable plan price table, fixed at startup.
type Catalog struct {
	currency string
	plans    map[string]Plan
}

type catalogFile struct {
	Currency string `yaml:"currency"`
	Plans    []Plan `yaml:"plans"`
}

// NewCatalog builds a catalog from the given plans. Plan IDs must name a paid
// tier, so the tier granted by a checkout can always be derived from the plan.
func NewCatalog(currency string, plans ...Plan) (*Catalog, error) {
	currency = strings.ToLower(strings.TrimSpace(currency))
	if currency == "" {
		return nil, errors.Join(ErrInvalidCatalog, errors.New("currency is required"))
	}
	if len(plans) == 0 {
		return nil, errors.Join(ErrInvalidCatalog, errors.New("at least one plan is required"))
	}

	c := &Catalog{currency: currency, plans: make(map[string]Plan, len(plans))}
	for _, p := range plans {
		if !Tier(p.ID).Paid() {
			return nil, errors.Join(ErrInvalidCatalog, fmt.Errorf("plan id %q is not a paid tier", p.ID))
		}
		if _, dup := c.plans[p.ID]; dup {
			return nil, errors.Join(ErrInvalidCatalog, fmt.Errorf("duplicate plan %q", p.ID))
		}
		if p.Name == "" || p.Description == "" {
			return nil, errors.Join(ErrInvalidCatalog, fmt.Errorf("plan %q needs a name and description", p.ID))
		}
		if p.MonthlyPrice <= 0 || p.AnnualPrice <= 0 {
			return nil, errors.Join(ErrInvalidCatalog, fmt.Errorf("plan %q prices must be positive", p.ID))
		}
		c.plans[p.ID] = p
	}
	return c, nil
}

// LoadCatalog parses a YAML catalog document.
func LoadCatalog(r io.Reader) (*Catalog, error) {
	var f catalogFile
	if err := yaml.NewDecoder(r).Decode(&f); err != nil {
		return nil, errors.Join(ErrInvalidCatalog, err)
	}
	return NewCatalog(f.Currency, f.Plans...)
}

// LoadCatalogFile reads a YAML catalog from path. An empty path yields the
// built-in catalog.
func LoadCatalogFile(path string) (*Catalog, error) {
	if path == "" {
		return DefaultCatalog(), nil
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open catalog: %w", err)
	}
	defer f.Close()
	return LoadCatalog(f)
}

// DefaultCatalog returns the built-in plan catalog.
func DefaultCatalog() *Catalog {
	c, err := LoadCatalog(bytes.NewReader(defaultCatalogYAML))
	if err != nil {
		panic("billing: embedded catalog is invalid: " + err.Error())
	}
	return c
}

// Lookup returns price, name and interval for a plan and billing period.
func (c *Catalog) Lookup(planID string, period BillingPeriod) (CatalogEntry, error) {
	plan, ok := c.plans[planID]
	if !ok {
		return CatalogEntry{}, validationError(ErrInvalidPlan)
	}
	if !period.Valid() {
		return CatalogEntry{}, validationError(ErrInvalidBillingPeriod)
	}
	return CatalogEntry{
		PlanID:      plan.ID,
		Name:        plan.Name,
		Description: plan.Description,
		UnitPrice:   plan.Price(period),
		Currency:    c.currency,
		Interval:    period.Interval(),
		Period:      period,
	}, nil
}

// Plan returns a copy of a single plan.
func (c *Catalog) Plan(planID string) (Plan, bool) {
	p, ok := c.plans[planID]
	return p, ok
}

// Plans returns all plans ordered by monthly price.
func (c *Catalog) Plans() []Plan {
	out := make([]Plan, 0, len(c.plans))
	for _, p := range c.plans {
		out = append(out, p)
	}
	slices.SortFunc(out, func(a, b Plan) int {
		if c := cmp.Compare(a.MonthlyPrice, b.MonthlyPrice); c != 0 {
			return c
		}
		return strings.Compare(a.ID, b.ID)
	})
	return out
}

func (c *Catalog) Currency() string {
	return c.currency
}

// WithCurrency returns a copy of the catalog priced in currency. An empty
// currency returns c unchanged.
func (c *Catalog) WithCurrency(currency string) *Catalog {
	currency = strings.ToLower(strings.TrimSpace(currency))
	if currency == "" || currency == c.currency {
		return c
	}
	cp := &Catalog{currency: currency, plans: make(map[string]Plan, len(c.plans))}
	for id, p := range c.plans {
		cp.plans[id] = p
	}
	return cp
}
