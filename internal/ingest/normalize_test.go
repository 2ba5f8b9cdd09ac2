package ingest

import (
	"testing"
	"time"

	"github.com/Aura-Ki/Corespeed-Finance-Agent/internal/core"
)

func fixedNormalizer() *Normalizer {
	return &Normalizer{now: func() time.Time {
		return time.Date(2024, 6, 15, 12, 0, 0, 0, time.UTC)
	}}
}

func TestNormalizeDate(t *testing.T) {
	n := fixedNormalizer()
	cases := []struct {
		in   string
		want string
	}{
		{"2024-01-05", "2024-01-05"},
		{" 2024-01-05 ", "2024-01-05"},
		{"2024/01/05", "2024-01-05"},
		{"01/20/2024", "2024-01-20"},
		{"1/5/2024", "2024-01-05"},
		{"01-20-2024", "2024-01-20"},
		{"20 Jan 2024", "2024-01-20"},
		{"Jan 5, 2024", "2024-01-05"},
		{"5 January 2024", "2024-01-05"},
		{"2024-03-04T10:30:00Z", "2024-03-04"},
		{"2024-03-04 10:30:00", "2024-03-04"},
		{"not a date", "2024-06-15"}, // falls back to processing date
		{"", "2024-06-15"},
	}
	for i, tc := range cases {
		if got := n.Date(tc.in); got != tc.want {
			t.Fatalf("case %d %q got %q, want %q", i, tc.in, got, tc.want)
		}
	}
}

func TestNormalizeAmount(t *testing.T) {
	n := fixedNormalizer()
	cases := []struct {
		in   string
		want float64
	}{
		{"40.00", 40},
		{"-4.50", 4.5}, // sign stripped
		{"$1,234.56", 1234.56},
		{"USD 12", 12},
		{"(12.00)", 12},
		{"3.5 EUR", 3.5},
		{"N/A", 0},
		{"", 0},
		{"--5", 0},
		{"1.2.3", 0},
	}
	for i, tc := range cases {
		if got := n.Amount(tc.in); got != tc.want {
			t.Fatalf("case %d %q got %v, want %v", i, tc.in, got, tc.want)
		}
	}
}

func TestBuildTransactionFallbacks(t *testing.T) {
	n := fixedNormalizer()

	tx := n.Transaction("2024-01-05", "", "10", "", "", false)
	if tx.Merchant != core.DefaultMerchant {
		t.Fatalf("merchant = %q, want %q", tx.Merchant, core.DefaultMerchant)
	}
	if tx.Description != core.DefaultMerchant {
		t.Fatalf("description should fall back to merchant, got %q", tx.Description)
	}

	tx = n.Transaction("2024-01-05", "Starbucks", "4.50", "", "", false)
	if tx.Description != "Starbucks" {
		t.Fatalf("description = %q, want merchant fallback", tx.Description)
	}
	if tx.Category != core.CategoryDining {
		t.Fatalf("category = %q, want %q", tx.Category, core.CategoryDining)
	}
}

func TestBuildTransactionExplicitCategory(t *testing.T) {
	n := fixedNormalizer()

	// An explicit category is trusted verbatim even when the rule engine
	// would disagree.
	tx := n.Transaction("2024-01-05", "Netflix", "15.99", "", "Subscriptions", true)
	if tx.Category != "Subscriptions" {
		t.Fatalf("category = %q, want Subscriptions", tx.Category)
	}

	tx = n.Transaction("2024-01-05", "Netflix", "15.99", "", "  ", true)
	if tx.Category != core.CategoryUncategorized {
		t.Fatalf("blank explicit category = %q, want %q", tx.Category, core.CategoryUncategorized)
	}

	tx = n.Transaction("2024-01-05", "Netflix", "15.99", "", "", false)
	if tx.Category != core.CategoryEntertainment {
		t.Fatalf("implicit category = %q, want %q", tx.Category, core.CategoryEntertainment)
	}
}
