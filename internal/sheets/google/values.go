package google

import (
	"fmt"
	"strings"

	"github.com/Aura-Ki/Corespeed-Finance-Agent/internal/core"
)

// headerColumns is the first row of a sheet this client manages.
var headerColumns = []string{"Date", "Merchant", "Amount", "Category", "Description", "Session"}

func headerValues() []interface{} {
	row := make([]interface{}, len(headerColumns))
	for i, name := range headerColumns {
		row[i] = name
	}
	return row
}

// headerPresent reports whether the first row of a values matrix matches
// the managed header, case-insensitively.
func headerPresent(values [][]interface{}) bool {
	if len(values) == 0 {
		return false
	}
	row := toStrings(values[0])
	if len(row) < len(headerColumns) {
		return false
	}
	for i, want := range headerColumns {
		if !strings.EqualFold(row[i], want) {
			return false
		}
	}
	return true
}

// rowValues renders one transaction as a sheet row in header order. The
// amount stays numeric so the sheet can sum it.
func rowValues(sessionID string, t core.Transaction) []interface{} {
	return []interface{}{t.Date, t.Merchant, t.Amount, t.Category, t.Description, sessionID}
}

func toStrings(in []interface{}) []string {
	out := make([]string, len(in))
	for i, v := range in {
		out[i] = strings.TrimSpace(fmt.Sprint(v))
	}
	return out
}
