package ingest

import (
	"bytes"
	"log/slog"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/Aura-Ki/Corespeed-Finance-Agent/internal/core"
)

// parseWorkbook reads the first sheet of an xlsx workbook. Unlike the
// delimited adapter, every data row is resolved against its own key set,
// so a row whose date or amount cell is empty lacks that key and is
// dropped. A resolvable category column is trusted verbatim and the rule
// engine is not consulted for that row.
func (p *Parser) parseWorkbook(raw []byte) []core.Transaction {
	wb, err := excelize.OpenReader(bytes.NewReader(raw))
	if err != nil {
		slog.Warn("Failed to open workbook", "error", err)
		return []core.Transaction{}
	}
	defer wb.Close()

	sheets := wb.GetSheetList()
	if len(sheets) == 0 {
		return []core.Transaction{}
	}
	rows, err := wb.GetRows(sheets[0])
	if err != nil {
		slog.Warn("Failed to read sheet rows", "sheet", sheets[0], "error", err)
		return []core.Transaction{}
	}

	start := 0
	for start < len(rows) && blankRow(rows[start]) {
		start++
	}
	if start == len(rows) {
		return []core.Transaction{}
	}
	header := rows[start]

	txns := []core.Transaction{}
	for _, row := range rows[start+1:] {
		rec := rowRecord(header, row)
		date, okDate := rec.lookup(dateKeywords)
		amount, okAmount := rec.lookup(amountKeywords)
		if !okDate || !okAmount {
			slog.Debug("Dropped workbook row without date or amount key")
			continue
		}
		merchant, _ := rec.lookup(merchantKeywords)
		desc, _ := rec.lookup(descriptionKeywords)
		category, explicit := rec.lookup(categoryKeywords)
		txns = append(txns, p.norm.Transaction(date, merchant, amount, desc, category, explicit))
	}
	return txns
}

func blankRow(cells []string) bool {
	for _, c := range cells {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}
