package catalog

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefault_IsValid(t *testing.T) {
	c := Default()
	if err := c.validate(); err != nil {
		t.Fatalf("default catalog invalid: %v", err)
	}
	if c.TotalWeight() <= 0 {
		t.Errorf("TotalWeight = %d, want > 0", c.TotalWeight())
	}
}

func TestLoad_EmptyPathReturnsDefault(t *testing.T) {
	c, err := Load("")
	if err != nil {
		t.Fatalf("Load(\"\") error: %v", err)
	}
	if len(c.Accounts) != len(Default().Accounts) {
		t.Errorf("accounts = %d, want %d", len(c.Accounts), len(Default().Accounts))
	}
}

func TestLoad_FromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "catalog.toml")
	data := `
[[accounts]]
id = "acct-test"
name = "Test"
currency = "EUR"
opening_cents = 100000

[[merchants]]
name = "Test Vendor"
category = "test"
weight = 1
min_cents = 100
max_cents = 200

[[services]]
name = "test-service"
baseline_latency_ms = 10.0
baseline_error_pct = 0.5
`
	if err := os.WriteFile(path, []byte(data), 0o600); err != nil {
		t.Fatalf("writing fixture: %v", err)
	}

	c, err := Load(path)
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}
	if len(c.Accounts) != 1 || c.Accounts[0].ID != "acct-test" {
		t.Errorf("accounts = %+v, want single acct-test", c.Accounts)
	}
	if len(c.Merchants) != 1 || c.Merchants[0].MaxCents != 200 {
		t.Errorf("merchants = %+v", c.Merchants)
	}
	if len(c.Services) != 1 || c.Services[0].Name != "test-service" {
		t.Errorf("services = %+v", c.Services)
	}
}

func TestLoad_MissingFile(t *testing.T) {
	if _, err := Load("/nonexistent/catalog.toml"); err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestLoad_RejectsInvalid(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{
			name: "no accounts",
			data: "[[merchants]]\nname = \"m\"\ncategory = \"c\"\nweight = 1\nmin_cents = 1\nmax_cents = 2\n",
		},
		{
			name: "zero weight",
			data: "[[accounts]]\nid = \"a\"\nname = \"a\"\ncurrency = \"USD\"\nopening_cents = 1\n\n[[merchants]]\nname = \"m\"\ncategory = \"c\"\nweight = 0\nmin_cents = 1\nmax_cents = 2\n",
		},
		{
			name: "inverted amount range",
			data: "[[accounts]]\nid = \"a\"\nname = \"a\"\ncurrency = \"USD\"\nopening_cents = 1\n\n[[merchants]]\nname = \"m\"\ncategory = \"c\"\nweight = 1\nmin_cents = 5\nmax_cents = 2\n",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "catalog.toml")
			if err := os.WriteFile(path, []byte(tt.data), 0o600); err != nil {
				t.Fatalf("writing fixture: %v", err)
			}
			if _, err := Load(path); err == nil {
				t.Error("expected validation error")
			}
		})
	}
}
