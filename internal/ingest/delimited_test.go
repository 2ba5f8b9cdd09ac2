package ingest

import (
	"testing"

	"github.com/Aura-Ki/Corespeed-Finance-Agent/internal/core"
)

func testParser() *Parser {
	return NewParser(fixedNormalizer())
}

func TestParseCSVEndToEnd(t *testing.T) {
	raw := []byte("Date,Merchant,Amount\n" +
		"2024-01-05,Starbucks,-4.50\n" +
		"2024-01-20,Shell Gas,40.00\n")

	txns := testParser().Parse(FormatCSV, raw)
	if len(txns) != 2 {
		t.Fatalf("got %d transactions, want 2", len(txns))
	}
	if txns[0].Amount != 4.5 || txns[1].Amount != 40 {
		t.Fatalf("amounts = %v, %v; want 4.5, 40", txns[0].Amount, txns[1].Amount)
	}
	if txns[0].Category != core.CategoryDining || txns[1].Category != core.CategoryTransport {
		t.Fatalf("categories = %q, %q", txns[0].Category, txns[1].Category)
	}

	r := core.GenerateReport(txns)
	if r.TotalSpent != 44.5 {
		t.Fatalf("totalSpent = %v, want 44.5", r.TotalSpent)
	}
	if len(r.ByMonth) != 1 || r.ByMonth["2024-01"] != 44.5 {
		t.Fatalf("byMonth = %v", r.ByMonth)
	}
	if r.Forecast != nil {
		t.Fatalf("forecast should be nil for a single month, got %+v", r.Forecast)
	}
}

func TestParseCSVHeaderTieBreak(t *testing.T) {
	// Both Total and Amount satisfy the amount role; the earlier header
	// wins.
	raw := []byte("Date,Total,Amount\n2024-01-05,10,20\n")
	txns := testParser().Parse(FormatCSV, raw)
	if len(txns) != 1 {
		t.Fatalf("got %d transactions, want 1", len(txns))
	}
	if txns[0].Amount != 10 {
		t.Fatalf("amount = %v, want 10 from the Total column", txns[0].Amount)
	}
}

func TestParseCSVDescriptionDoublesAsMerchant(t *testing.T) {
	raw := []byte("Date,Description,Amount\n2024-01-05,Starbucks latte,4.50\n")
	txns := testParser().Parse(FormatCSV, raw)
	if len(txns) != 1 {
		t.Fatalf("got %d transactions, want 1", len(txns))
	}
	if txns[0].Merchant != "Starbucks latte" || txns[0].Description != "Starbucks latte" {
		t.Fatalf("got merchant %q description %q", txns[0].Merchant, txns[0].Description)
	}
	if txns[0].Category != core.CategoryDining {
		t.Fatalf("category = %q", txns[0].Category)
	}
}

func TestParseCSVDropsShortRows(t *testing.T) {
	raw := []byte("Date,Merchant,Amount\n" +
		"2024-01-05,Starbucks,4.50\n" +
		"2024-01-06\n" + // no amount column present
		"2024-01-07,OnlyMerchant\n") // still no amount column
	txns := testParser().Parse(FormatCSV, raw)
	if len(txns) != 1 {
		t.Fatalf("got %d transactions, want 1 (short rows dropped)", len(txns))
	}
	if txns[0].Merchant != "Starbucks" {
		t.Fatalf("kept the wrong row: %+v", txns[0])
	}
}

func TestParseCSVUnresolvableHeader(t *testing.T) {
	raw := []byte("When,Who,HowMuch\n2024-01-05,Starbucks,4.50\n")
	if txns := testParser().Parse(FormatCSV, raw); len(txns) != 0 {
		t.Fatalf("expected no transactions without date/amount headers, got %d", len(txns))
	}
}

func TestParseCSVMalformedAmountKept(t *testing.T) {
	raw := []byte("Date,Merchant,Amount\n2024-01-05,Starbucks,N/A\n")
	txns := testParser().Parse(FormatCSV, raw)
	if len(txns) != 1 {
		t.Fatalf("malformed amount must keep the row, got %d transactions", len(txns))
	}
	if txns[0].Amount != 0 {
		t.Fatalf("amount = %v, want 0", txns[0].Amount)
	}
}

func TestParseCSVBlankLinesAndCRLF(t *testing.T) {
	raw := []byte("\n\r\n  \nDate,Merchant,Amount\r\n2024-01-05,Starbucks,4.50\r\n\r\n")
	txns := testParser().Parse(FormatCSV, raw)
	if len(txns) != 1 {
		t.Fatalf("got %d transactions, want 1", len(txns))
	}
	if txns[0].Date != "2024-01-05" || txns[0].Amount != 4.5 {
		t.Fatalf("unexpected transaction %+v", txns[0])
	}
}

func TestParseCSVUnparseableDateFallsBack(t *testing.T) {
	raw := []byte("Date,Merchant,Amount\nsometime,Starbucks,4.50\n")
	txns := testParser().Parse(FormatCSV, raw)
	if len(txns) != 1 {
		t.Fatalf("got %d transactions, want 1", len(txns))
	}
	if txns[0].Date != "2024-06-15" { // fixed test clock
		t.Fatalf("date = %q, want processing-date fallback", txns[0].Date)
	}
}

func TestParseTSV(t *testing.T) {
	raw := []byte("Date\tMerchant\tAmount\n2024-01-05\tShell Gas\t40.00\n")
	txns := testParser().Parse(FormatTSV, raw)
	if len(txns) != 1 {
		t.Fatalf("got %d transactions, want 1", len(txns))
	}
	if txns[0].Merchant != "Shell Gas" || txns[0].Amount != 40 {
		t.Fatalf("unexpected transaction %+v", txns[0])
	}
}

func TestParseUnsupportedFormat(t *testing.T) {
	txns := testParser().Parse(FormatUnsupported, []byte("%PDF-1.7 ..."))
	if txns == nil || len(txns) != 0 {
		t.Fatalf("unsupported format must yield an empty slice, got %v", txns)
	}
}

func TestParseEmptyInput(t *testing.T) {
	if txns := testParser().Parse(FormatCSV, nil); len(txns) != 0 {
		t.Fatalf("empty input must yield no transactions, got %d", len(txns))
	}
	if txns := testParser().Parse(FormatCSV, []byte("\n\n")); len(txns) != 0 {
		t.Fatalf("blank input must yield no transactions, got %d", len(txns))
	}
}
