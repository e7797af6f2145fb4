package service

import (
	"fmt"

	"github.com/xuri/excelize/v2"

	"github.com/vrbank/batch-upload/internal/domain/upload/parser"
)

// Column headings of the upload template, indexed by sheet column.
var templateHeadings = map[int]string{
	parser.ColRelCust:       "Rel Customer",
	parser.ColAccount:       "Account",
	parser.ColAccountBranch: "Account Branch",
	parser.ColDrCr:          "Dr/Cr",
	parser.ColCcyCd:         "Currency",
	parser.ColAmount:        "Amount",
	parser.ColLcyEquivalent: "LCY Equivalent",
	parser.ColTxnCode:       "Txn Code",
	parser.ColAddlText:      "Additional Text",
}

// Template renders an empty upload workbook with the expected header
// block, so operators start from the exact layout the parser reads.
func (s *UploadService) Template() ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	sheet := f.GetSheetName(0)
	if err := f.SetCellValue(sheet, "B1", "Batch Transaction Upload"); err != nil {
		return nil, fmt.Errorf("failed to build template: %w", err)
	}
	for col, heading := range templateHeadings {
		axis, err := excelize.CoordinatesToCellName(col+1, parser.HeaderRows)
		if err != nil {
			return nil, fmt.Errorf("failed to build template: %w", err)
		}
		if err := f.SetCellValue(sheet, axis, heading); err != nil {
			return nil, fmt.Errorf("failed to build template: %w", err)
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("failed to render template: %w", err)
	}
	return buf.Bytes(), nil
}
