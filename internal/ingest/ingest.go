// Package ingest parses uploaded bank statements into normalized
// transactions. Parsing is best-effort and never fails: rows missing
// required fields are dropped, malformed amounts coerce to zero, and
// unsupported formats yield an empty result with a log diagnostic.
package ingest

import (
	"bytes"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/Aura-Ki/Corespeed-Finance-Agent/internal/core"
)

// Format tags a statement upload with the adapter that will parse it.
type Format string

const (
	FormatCSV         Format = "csv"
	FormatTSV         Format = "tsv"
	FormatXLSX        Format = "xlsx"
	FormatUnsupported Format = "unsupported"
)

var zipMagic = []byte("PK\x03\x04")

// DetectFormat classifies an upload by filename extension, falling back to
// content sniffing for workbooks uploaded under another name.
func DetectFormat(filename string, raw []byte) Format {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".csv":
		return FormatCSV
	case ".tsv":
		return FormatTSV
	case ".txt":
		return sniffDelimited(raw)
	case ".xlsx", ".xlsm", ".xltx":
		return FormatXLSX
	}
	if bytes.HasPrefix(raw, zipMagic) {
		return FormatXLSX
	}
	return FormatUnsupported
}

// sniffDelimited inspects the header line of a plain-text upload: a tab
// with no comma means tab-separated, everything else reads as CSV.
func sniffDelimited(raw []byte) Format {
	head := raw
	if i := bytes.IndexByte(head, '\n'); i >= 0 {
		head = head[:i]
	}
	if bytes.IndexByte(head, '\t') >= 0 && bytes.IndexByte(head, ',') < 0 {
		return FormatTSV
	}
	return FormatCSV
}

// Parser converts raw statement bytes into transactions.
type Parser struct {
	norm *Normalizer
}

func NewParser(norm *Normalizer) *Parser {
	if norm == nil {
		norm = NewNormalizer()
	}
	return &Parser{norm: norm}
}

// Parse runs the adapter selected by format. It never returns an error:
// any failure, including an unsupported format, yields an empty slice.
func (p *Parser) Parse(format Format, raw []byte) []core.Transaction {
	switch format {
	case FormatCSV:
		return p.parseDelimited(raw, ",")
	case FormatTSV:
		return p.parseDelimited(raw, "\t")
	case FormatXLSX:
		return p.parseWorkbook(raw)
	default:
		slog.Warn("Unsupported statement format", "format", string(format))
		return []core.Transaction{}
	}
}
