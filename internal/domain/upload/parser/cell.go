// Package parser turns an uploaded workbook into candidate upload
// records: it reads typed cells with excelize, normalizes loosely-typed
// values, and maps positional rows onto the upload detail fields.
package parser

import (
	"math"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"
)

// CellKind is the runtime type of a spreadsheet cell.
type CellKind int

const (
	CellEmpty CellKind = iota
	CellText
	CellNumber
	CellBool
	CellFormula
	CellError
)

// Cell is one raw spreadsheet cell. Raw holds the stored value (for
// formula cells, the cached last-computed result); Formula holds the
// formula source when present. IsDate marks number cells carrying a
// date-formatted serial value.
type Cell struct {
	Kind       CellKind
	Raw        string
	Formula    string
	CachedKind CellKind
	IsDate     bool
}

// StringValue normalizes the cell into a trimmed string. The second
// return is false when the cell yields no value at all (empty or error
// cells); a present-but-blank text cell returns ("", true).
func (c Cell) StringValue() (string, bool) {
	switch c.Kind {
	case CellText:
		return strings.TrimSpace(c.Raw), true
	case CellNumber:
		if c.IsDate {
			return dateString(c.Raw), true
		}
		return numericString(c.Raw), true
	case CellBool:
		return boolString(c.Raw), true
	case CellFormula:
		// Use the cached result when it is itself text or numeric,
		// otherwise fall back to the formula source.
		switch c.CachedKind {
		case CellText:
			return strings.TrimSpace(c.Raw), true
		case CellNumber:
			if c.IsDate {
				return dateString(c.Raw), true
			}
			return numericString(c.Raw), true
		default:
			return c.Formula, true
		}
	default:
		return "", false
	}
}

// DecimalValue extracts a decimal from the cell. Numeric cells parse
// directly; text cells are stripped down to digits, '.' and '-' first.
// Anything unparsable yields absence. Used only for the amount columns.
func (c Cell) DecimalValue() (decimal.Decimal, bool) {
	switch c.Kind {
	case CellNumber:
		return parseDecimal(c.Raw)
	case CellText:
		cleaned := stripNonNumeric(c.Raw)
		if cleaned == "" {
			return decimal.Decimal{}, false
		}
		return parseDecimal(cleaned)
	case CellFormula:
		if c.CachedKind == CellNumber {
			return parseDecimal(c.Raw)
		}
		return decimal.Decimal{}, false
	default:
		return decimal.Decimal{}, false
	}
}

// IsBlank reports whether the cell normalizes to absence or an empty
// string. Rows where every data column is blank are skipped entirely.
func (c Cell) IsBlank() bool {
	s, ok := c.StringValue()
	return !ok || s == ""
}

// numericString renders a numeric raw value the way operators expect:
// integer-looking when there is no fractional part, decimal otherwise.
// Account and code columns often arrive as numbers.
func numericString(raw string) string {
	raw = strings.TrimSpace(raw)
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return raw
	}
	if v == math.Floor(v) && math.Abs(v) < 1e15 {
		return strconv.FormatInt(int64(v), 10)
	}
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// dateString converts an Excel date serial into an ISO calendar date.
func dateString(raw string) string {
	serial, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil {
		return strings.TrimSpace(raw)
	}
	t, err := excelize.ExcelDateToTime(serial, false)
	if err != nil {
		return strings.TrimSpace(raw)
	}
	return t.Format("2006-01-02")
}

func boolString(raw string) string {
	switch strings.TrimSpace(raw) {
	case "1", "TRUE", "true":
		return "true"
	default:
		return "false"
	}
}

func parseDecimal(raw string) (decimal.Decimal, bool) {
	d, err := decimal.NewFromString(strings.TrimSpace(raw))
	if err != nil {
		return decimal.Decimal{}, false
	}
	return d, true
}

// stripNonNumeric drops currency symbols, grouping separators and other
// noise, keeping digits, '.' and '-'.
func stripNonNumeric(s string) string {
	return strings.Map(func(r rune) rune {
		if (r >= '0' && r <= '9') || r == '.' || r == '-' {
			return r
		}
		return -1
	}, s)
}
