package ingest

import "strings"

// Role predicates for statement column headers. A header is bound to a
// role when its lowercased name contains any keyword. Headers are scanned
// left to right and the first hit wins, so when several headers satisfy
// the same role the earliest one decides.
var (
	dateKeywords        = []string{"date"}
	merchantKeywords    = []string{"merchant", "description", "name"}
	amountKeywords      = []string{"amount", "price", "total"}
	descriptionKeywords = []string{"description"}
	categoryKeywords    = []string{"category", "type"}
)

// resolveColumn returns the index of the first header matching any of the
// role's keywords, or -1 when none does.
func resolveColumn(names []string, keywords []string) int {
	for i, name := range names {
		lower := strings.ToLower(name)
		for _, kw := range keywords {
			if strings.Contains(lower, kw) {
				return i
			}
		}
	}
	return -1
}

// record views one spreadsheet row as its own key/value set. keys keep
// header order so per-row role resolution stays deterministic.
type record struct {
	keys []string
	vals map[string]string
}

// rowRecord pairs header names with the row's cells, skipping blank header
// names and empty cells. An empty cell therefore reads as an absent key,
// which is what drops workbook rows lacking a date or amount.
func rowRecord(header, row []string) record {
	rec := record{vals: make(map[string]string, len(header))}
	for i, name := range header {
		name = strings.TrimSpace(name)
		if name == "" || i >= len(row) || row[i] == "" {
			continue
		}
		if _, dup := rec.vals[name]; dup {
			continue
		}
		rec.keys = append(rec.keys, name)
		rec.vals[name] = row[i]
	}
	return rec
}

// lookup resolves a role against this record's own keys, first key wins.
func (r record) lookup(keywords []string) (string, bool) {
	for _, k := range r.keys {
		lower := strings.ToLower(k)
		for _, kw := range keywords {
			if strings.Contains(lower, kw) {
				return r.vals[k], true
			}
		}
	}
	return "", false
}
