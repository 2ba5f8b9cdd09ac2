package ingest

import (
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/Aura-Ki/Corespeed-Finance-Agent/internal/core"
)

// dateLayouts are tried in order when canonicalizing statement dates.
var dateLayouts = []string{
	"2006-01-02",
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006/01/02",
	"01/02/2006",
	"1/2/2006",
	"01-02-2006",
	"02 Jan 2006",
	"Jan 2, 2006",
	"2 January 2006",
}

// Normalizer canonicalizes raw field text into transaction values. The
// clock is injectable so the unparseable-date fallback stays deterministic
// under test.
type Normalizer struct {
	now func() time.Time
}

func NewNormalizer() *Normalizer {
	return &Normalizer{now: time.Now}
}

// Date canonicalizes s to YYYY-MM-DD. Unparseable input, including an
// empty string, falls back to the current processing date.
func (n *Normalizer) Date(s string) string {
	s = strings.TrimSpace(s)
	if s != "" {
		for _, layout := range dateLayouts {
			if t, err := time.Parse(layout, s); err == nil {
				return t.Format(core.DateLayout)
			}
		}
	}
	return n.now().Format(core.DateLayout)
}

// Amount extracts a non-negative amount from raw cell text. Everything but
// digits, dot, and minus is stripped before parsing; a parse failure
// coerces to 0 instead of rejecting the row.
func (n *Normalizer) Amount(s string) float64 {
	var b strings.Builder
	for _, r := range s {
		if (r >= '0' && r <= '9') || r == '.' || r == '-' {
			b.WriteRune(r)
		}
	}
	v, err := strconv.ParseFloat(b.String(), 64)
	if err != nil {
		return 0
	}
	return math.Abs(v)
}

// Transaction assembles a normalized transaction from raw field text. The
// merchant defaults to Unknown, the description falls back to the
// merchant, and the category comes from the rule engine unless the source
// carried an explicit one.
func (n *Normalizer) Transaction(date, merchant, amount, description, category string, explicit bool) core.Transaction {
	merchant = strings.TrimSpace(merchant)
	if merchant == "" {
		merchant = core.DefaultMerchant
	}
	description = strings.TrimSpace(description)
	if description == "" {
		description = merchant
	}

	cat := strings.TrimSpace(category)
	if explicit {
		if cat == "" {
			cat = core.CategoryUncategorized
		}
	} else {
		cat = core.Categorize(description, merchant)
	}

	return core.Transaction{
		Date:        n.Date(date),
		Merchant:    merchant,
		Amount:      n.Amount(amount),
		Category:    cat,
		Description: description,
	}
}
