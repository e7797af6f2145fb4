package parser

import (
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/xuri/excelize/v2"
)

// Fixed positional layout of the upload template. Column 0 is reserved
// in the current layout.
const (
	ColRelCust       = 1
	ColAccount       = 2
	ColAccountBranch = 3
	ColDrCr          = 4
	ColCcyCd         = 5
	ColAmount        = 6
	ColLcyEquivalent = 7
	ColTxnCode       = 8
	ColAddlText      = 9

	ColumnCount = 10

	// HeaderRows is the number of leading header rows; data starts at
	// row index HeaderRows (1-based row HeaderRows+1).
	HeaderRows = 2
)

// Row is one sheet row resolved into typed cells. Number is the 1-based
// row number as displayed to the user. Err records a non-fatal read
// problem for the row; the orchestrator reports it as a processing error
// instead of aborting the batch.
type Row struct {
	Number int
	Cells  [ColumnCount]Cell
	Err    error
}

// Cell returns the cell at the given column index, tolerating
// out-of-range indices.
func (r Row) Cell(col int) Cell {
	if col < 0 || col >= ColumnCount {
		return Cell{}
	}
	return r.Cells[col]
}

// IsEmpty reports whether every data-bearing column is blank.
func (r Row) IsEmpty() bool {
	for _, c := range r.Cells {
		if !c.IsBlank() {
			return false
		}
	}
	return true
}

// Workbook wraps an open spreadsheet and reads its first sheet as
// positional rows of typed cells.
type Workbook struct {
	f      *excelize.File
	sheet  string
	logger *slog.Logger
}

// OpenWorkbook opens a workbook from a reader. Only OOXML workbooks are
// supported; extension policy is enforced by the caller.
func OpenWorkbook(r io.Reader, logger *slog.Logger) (*Workbook, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("failed to open workbook: %w", err)
	}
	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		f.Close()
		return nil, fmt.Errorf("workbook contains no sheets")
	}
	return &Workbook{f: f, sheet: sheets[0], logger: logger}, nil
}

// Close releases the underlying file.
func (w *Workbook) Close() error {
	if w.f != nil {
		return w.f.Close()
	}
	return nil
}

// SheetName returns the name of the data sheet being read.
func (w *Workbook) SheetName() string { return w.sheet }

// DataRows reads every row past the header block, in sheet order, as
// typed cells. A short sheet returns an empty slice; per-cell read
// failures degrade to empty cells and a warning log.
func (w *Workbook) DataRows() ([]Row, error) {
	raw, err := w.f.GetRows(w.sheet)
	if err != nil {
		return nil, fmt.Errorf("failed to read sheet %s: %w", w.sheet, err)
	}
	if len(raw) <= HeaderRows {
		return nil, nil
	}

	rows := make([]Row, 0, len(raw)-HeaderRows)
	for idx := HeaderRows; idx < len(raw); idx++ {
		rows = append(rows, w.buildRow(idx))
	}
	return rows, nil
}

func (w *Workbook) buildRow(rowIdx int) Row {
	row := Row{Number: rowIdx + 1}
	for col := 0; col < ColumnCount; col++ {
		cell, err := w.cellAt(col, rowIdx)
		if err != nil {
			w.logger.Warn("error reading cell value",
				slog.Int("row", rowIdx+1),
				slog.Int("col", col),
				slog.Any("error", err),
			)
			if row.Err == nil {
				row.Err = err
			}
			cell = Cell{}
		}
		row.Cells[col] = cell
	}
	return row
}

// cellAt resolves one cell into its typed form.
func (w *Workbook) cellAt(col, rowIdx int) (Cell, error) {
	axis, err := excelize.CoordinatesToCellName(col+1, rowIdx+1)
	if err != nil {
		return Cell{}, err
	}

	raw, err := w.f.GetCellValue(w.sheet, axis, excelize.Options{RawCellValue: true})
	if err != nil {
		return Cell{}, err
	}
	ctype, err := w.f.GetCellType(w.sheet, axis)
	if err != nil {
		return Cell{}, err
	}

	kind := CellEmpty
	isDate := false
	switch ctype {
	case excelize.CellTypeBool:
		kind = CellBool
	case excelize.CellTypeError:
		kind = CellError
	case excelize.CellTypeSharedString, excelize.CellTypeInlineString:
		kind = CellText
	case excelize.CellTypeFormula:
		// "str" cells are formulas with a cached string result.
		kind = CellText
	case excelize.CellTypeDate:
		kind = CellNumber
		isDate = true
	default:
		if strings.TrimSpace(raw) != "" {
			kind = CellNumber
		}
	}

	if kind == CellNumber && !isDate {
		isDate = w.isDateStyled(axis)
	}

	formula, _ := w.f.GetCellFormula(w.sheet, axis)
	if formula != "" {
		return Cell{Kind: CellFormula, Raw: raw, Formula: formula, CachedKind: kind, IsDate: isDate}, nil
	}
	return Cell{Kind: kind, Raw: raw, IsDate: isDate}, nil
}

// isDateStyled checks the cell's number format: built-in date format
// ids, or a custom format carrying date tokens.
func (w *Workbook) isDateStyled(axis string) bool {
	styleID, err := w.f.GetCellStyle(w.sheet, axis)
	if err != nil {
		return false
	}
	style, err := w.f.GetStyle(styleID)
	if err != nil || style == nil {
		return false
	}
	if builtInDateFormat(style.NumFmt) {
		return true
	}
	if style.CustomNumFmt != nil {
		return customFormatHasDateTokens(*style.CustomNumFmt)
	}
	return false
}

func builtInDateFormat(id int) bool {
	switch {
	case id >= 14 && id <= 22:
		return true
	case id >= 27 && id <= 36:
		return true
	case id >= 45 && id <= 47:
		return true
	case id >= 50 && id <= 58:
		return true
	}
	return false
}

func customFormatHasDateTokens(format string) bool {
	f := strings.ToLower(format)
	// Strip quoted literals so "d" inside text does not count.
	for {
		start := strings.IndexByte(f, '"')
		if start < 0 {
			break
		}
		end := strings.IndexByte(f[start+1:], '"')
		if end < 0 {
			break
		}
		f = f[:start] + f[start+1+end+1:]
	}
	return strings.ContainsAny(f, "ymd") || strings.Contains(f, "hh")
}
