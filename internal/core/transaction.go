// Package core holds the pure statement domain: normalized transactions,
// the keyword categorizer, and the analytics report derivation. Nothing in
// this package performs I/O, reads the clock, or keeps state between calls.
package core

import (
	"errors"
	"time"
)

// DateLayout is the canonical wire format for transaction dates. Dates are
// stored as strings in this layout so lexicographic order equals
// chronological order.
const DateLayout = "2006-01-02"

// DefaultMerchant is assigned when a source row carries no merchant field.
const DefaultMerchant = "Unknown"

type (
	// Transaction is the atomic normalized record produced by ingestion.
	// The category is assigned exactly once, at ingestion time, and is
	// never recomputed afterwards.
	Transaction struct {
		Date        string  `json:"date"`
		Merchant    string  `json:"merchant"`
		Amount      float64 `json:"amount"`
		Category    string  `json:"category"`
		Description string  `json:"description"`
	}
)

var (
	ErrEmptyDate      = errors.New("transaction date is empty")
	ErrBadDate        = errors.New("transaction date is not YYYY-MM-DD")
	ErrNegativeAmount = errors.New("transaction amount is negative")
	ErrEmptyCategory  = errors.New("transaction category is empty")
	ErrEmptyMerchant  = errors.New("transaction merchant is empty")
)

// Validate checks the invariants every ingested transaction must satisfy.
func (t Transaction) Validate() error {
	if t.Date == "" {
		return ErrEmptyDate
	}
	if _, err := time.Parse(DateLayout, t.Date); err != nil {
		return ErrBadDate
	}
	if t.Amount < 0 {
		return ErrNegativeAmount
	}
	if t.Merchant == "" {
		return ErrEmptyMerchant
	}
	if t.Category == "" {
		return ErrEmptyCategory
	}
	return nil
}

// Month returns the YYYY-MM prefix of the transaction date.
func (t Transaction) Month() string {
	if len(t.Date) < 7 {
		return t.Date
	}
	return t.Date[:7]
}
