package ingest

import (
	"log/slog"
	"strings"

	"github.com/Aura-Ki/Corespeed-Finance-Agent/internal/core"
)

// parseDelimited reads a separator-delimited statement. The first
// non-blank line is the header and binds roles to column indexes once;
// every later non-blank line is a candidate row. Lines are split on the
// literal separator with no quoting, so a value embedding the separator
// misaligns its row.
func (p *Parser) parseDelimited(raw []byte, sep string) []core.Transaction {
	lines := strings.Split(string(raw), "\n")

	start := 0
	for start < len(lines) && strings.TrimSpace(lines[start]) == "" {
		start++
	}
	if start == len(lines) {
		slog.Debug("Statement has no header line")
		return []core.Transaction{}
	}

	names := splitFields(lines[start], sep)
	dateIdx := resolveColumn(names, dateKeywords)
	amountIdx := resolveColumn(names, amountKeywords)
	if dateIdx < 0 || amountIdx < 0 {
		slog.Warn("Header resolves no date or amount column", "header", lines[start])
		return []core.Transaction{}
	}
	merchantIdx := resolveColumn(names, merchantKeywords)
	descIdx := resolveColumn(names, descriptionKeywords)

	txns := []core.Transaction{}
	for _, line := range lines[start+1:] {
		if strings.TrimSpace(line) == "" {
			continue
		}
		fields := splitFields(line, sep)
		if dateIdx >= len(fields) || amountIdx >= len(fields) {
			slog.Debug("Dropped row missing required columns", "fields", len(fields))
			continue
		}
		txns = append(txns, p.norm.Transaction(
			fields[dateIdx],
			fieldAt(fields, merchantIdx),
			fields[amountIdx],
			fieldAt(fields, descIdx),
			"", false,
		))
	}
	return txns
}

// splitFields drops a trailing carriage return, splits on the literal
// separator, and trims each field.
func splitFields(line, sep string) []string {
	line = strings.TrimRight(line, "\r")
	fields := strings.Split(line, sep)
	for i, f := range fields {
		fields[i] = strings.TrimSpace(f)
	}
	return fields
}

// fieldAt tolerates unresolved or out-of-range indexes for the optional
// columns.
func fieldAt(fields []string, idx int) string {
	if idx < 0 || idx >= len(fields) {
		return ""
	}
	return fields[idx]
}
