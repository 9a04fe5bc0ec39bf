// Package catalog supplies the seed data the simulation draws from: demo
// accounts, weighted merchant pools, and the roster of fake services shown
// on the dashboard. The built-in defaults can be replaced by a TOML file.
package catalog

import (
	"fmt"
	"os"

	"github.com/BurntSushi/toml"
)

// Account is a demo cash account.
type Account struct {
	ID           string `toml:"id"`
	Name         string `toml:"name"`
	Currency     string `toml:"currency"`
	OpeningCents int64  `toml:"opening_cents"`
}

// Merchant is one entry in the weighted merchant pool. Weight biases random
// selection; amounts are drawn uniformly from [MinCents, MaxCents].
type Merchant struct {
	Name     string `toml:"name"`
	Category string `toml:"category"`
	Weight   int    `toml:"weight"`
	MinCents int64  `toml:"min_cents"`
	MaxCents int64  `toml:"max_cents"`
	Credit   bool   `toml:"credit"` // money in rather than out
}

// Service is a fake backing service shown on the health panel.
type Service struct {
	Name              string  `toml:"name"`
	BaselineLatencyMs float64 `toml:"baseline_latency_ms"`
	BaselineErrorPct  float64 `toml:"baseline_error_pct"`
}

// Catalog is the full seed set.
type Catalog struct {
	Accounts  []Account  `toml:"accounts"`
	Merchants []Merchant `toml:"merchants"`
	Services  []Service  `toml:"services"`
}

// Default returns the built-in seed data.
func Default() *Catalog {
	return &Catalog{
		Accounts: []Account{
			{ID: "acct-operating", Name: "Operating", Currency: "USD", OpeningCents: 48_250_000},
			{ID: "acct-payroll", Name: "Payroll", Currency: "USD", OpeningCents: 12_800_000},
			{ID: "acct-tax-reserve", Name: "Tax Reserve", Currency: "USD", OpeningCents: 9_400_000},
			{ID: "acct-savings", Name: "Savings", Currency: "USD", OpeningCents: 30_000_000},
		},
		Merchants: []Merchant{
			{Name: "Acme Cloud Services", Category: "infrastructure", Weight: 8, MinCents: 12_000, MaxCents: 480_000},
			{Name: "Globex Office Supply", Category: "office", Weight: 5, MinCents: 2_500, MaxCents: 65_000},
			{Name: "Initech SaaS", Category: "software", Weight: 7, MinCents: 4_900, MaxCents: 199_000},
			{Name: "Stark Logistics", Category: "shipping", Weight: 4, MinCents: 8_000, MaxCents: 320_000},
			{Name: "Wayne Utilities", Category: "utilities", Weight: 3, MinCents: 15_000, MaxCents: 95_000},
			{Name: "Pied Piper Compression", Category: "software", Weight: 2, MinCents: 9_900, MaxCents: 49_900},
			{Name: "Hooli Ads", Category: "marketing", Weight: 6, MinCents: 25_000, MaxCents: 1_200_000},
			{Name: "Dunder Mifflin Paper", Category: "office", Weight: 2, MinCents: 3_200, MaxCents: 28_000},
			{Name: "Customer Receipts", Category: "revenue", Weight: 10, MinCents: 50_000, MaxCents: 4_500_000, Credit: true},
			{Name: "Interest Income", Category: "revenue", Weight: 2, MinCents: 1_000, MaxCents: 40_000, Credit: true},
		},
		Services: []Service{
			{Name: "api-gateway", BaselineLatencyMs: 24, BaselineErrorPct: 0.2},
			{Name: "transaction-processor", BaselineLatencyMs: 42, BaselineErrorPct: 0.4},
			{Name: "ml-forecaster", BaselineLatencyMs: 180, BaselineErrorPct: 0.8},
			{Name: "event-bus", BaselineLatencyMs: 6, BaselineErrorPct: 0.1},
			{Name: "ledger-service", BaselineLatencyMs: 31, BaselineErrorPct: 0.3},
		},
	}
}

// Load reads a catalog from a TOML file. Empty path returns Default().
func Load(path string) (*Catalog, error) {
	if path == "" {
		return Default(), nil
	}
	var c Catalog
	if _, err := toml.DecodeFile(path, &c); err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("catalog file %s not found", path)
		}
		return nil, fmt.Errorf("decoding catalog %s: %w", path, err)
	}
	if err := c.validate(); err != nil {
		return nil, fmt.Errorf("catalog %s: %w", path, err)
	}
	return &c, nil
}

func (c *Catalog) validate() error {
	if len(c.Accounts) == 0 {
		return fmt.Errorf("at least one account is required")
	}
	if len(c.Merchants) == 0 {
		return fmt.Errorf("at least one merchant is required")
	}
	for _, m := range c.Merchants {
		if m.Weight <= 0 {
			return fmt.Errorf("merchant %q: weight must be positive", m.Name)
		}
		if m.MaxCents < m.MinCents {
			return fmt.Errorf("merchant %q: max_cents < min_cents", m.Name)
		}
	}
	return nil
}

// TotalWeight sums all merchant weights.
func (c *Catalog) TotalWeight() int {
	total := 0
	for _, m := range c.Merchants {
		total += m.Weight
	}
	return total
}
