package parser

import (
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vrbank/batch-upload/internal/domain/upload"
)

func testParams() upload.Params {
	return upload.Params{
		BatchNo:    "BATCH001",
		BranchCode: "BR01",
		SourceCode: "SRC1",
		ExchRate:   decimal.NewFromInt(1),
		EntryDate:  time.Date(2025, time.March, 15, 0, 0, 0, 0, time.UTC),
	}
}

func textCell(s string) Cell   { return Cell{Kind: CellText, Raw: s} }
func numberCell(s string) Cell { return Cell{Kind: CellNumber, Raw: s} }

func customerRow(number int) Row {
	row := Row{Number: number}
	row.Cells[ColRelCust] = textCell("CUST0001")
	row.Cells[ColAccount] = textCell("001234567890123")
	row.Cells[ColAccountBranch] = textCell("BR01")
	row.Cells[ColDrCr] = textCell("d")
	row.Cells[ColCcyCd] = textCell("vnd")
	row.Cells[ColAmount] = numberCell("1500000")
	row.Cells[ColLcyEquivalent] = numberCell("1500000")
	row.Cells[ColTxnCode] = textCell("TXN")
	row.Cells[ColAddlText] = textCell("salary batch")
	return row
}

func TestExtract_CustomerAccountRow(t *testing.T) {
	fixed := time.Date(2025, time.March, 20, 10, 30, 0, 0, time.UTC)
	e := &Extractor{now: func() time.Time { return fixed }}

	detail, rowErr := e.Extract(customerRow(3), testParams(), 3)
	require.Nil(t, rowErr)
	require.NotNil(t, detail)

	assert.Equal(t, "BATCH001", detail.BatchNo)
	assert.Equal(t, "BR01", detail.BranchCode)
	assert.Equal(t, "SRC1", detail.SourceCode)
	assert.Equal(t, "CUST0001", detail.RelCust)
	assert.Equal(t, "001234567890123", detail.Account)
	assert.Equal(t, "D", detail.DrCr)
	assert.Equal(t, "VND", detail.CcyCd)
	assert.True(t, decimal.NewFromInt(1500000).Equal(detail.Amount))
	assert.Equal(t, "TXN", detail.TxnCode)
	assert.Equal(t, "salary batch", detail.AddlText)

	assert.Equal(t, testParams().EntryDate, detail.InitiationDate)
	assert.Equal(t, testParams().EntryDate, detail.ValueDate)
	assert.Equal(t, fixed, detail.UploadDate)
	assert.Equal(t, "FY2025", detail.FinCycle)
	assert.Equal(t, "MAR", detail.PeriodCode)
	assert.Equal(t, "1", detail.CurrNo)
	assert.Equal(t, upload.StatusPending, detail.UploadStat)
	assert.Equal(t, upload.StatusPending, detail.DeleteStat)
}

func TestExtract_GLAccountRowDropsRelCust(t *testing.T) {
	row := customerRow(5)
	row.Cells[ColAccount] = textCell("001234567")

	detail, rowErr := NewExtractor().Extract(row, testParams(), 5)
	require.Nil(t, rowErr)
	require.NotNil(t, detail)

	assert.Equal(t, "001234567", detail.Account)
	assert.Empty(t, detail.RelCust, "GL rows carry no relationship customer even when the column is filled")
	assert.Equal(t, "3", detail.CurrNo)
}

func TestExtract_EmptyRowSkipped(t *testing.T) {
	detail, rowErr := NewExtractor().Extract(Row{Number: 4}, testParams(), 4)
	assert.Nil(t, detail)
	assert.Nil(t, rowErr)
}

func TestExtract_RowReadErrorBecomesProcessingError(t *testing.T) {
	row := customerRow(6)
	row.Err = errors.New("cell read failed")

	detail, rowErr := NewExtractor().Extract(row, testParams(), 6)
	assert.Nil(t, detail)
	require.NotNil(t, rowErr)
	assert.Equal(t, upload.CodeProcessing, rowErr.Code)
	assert.Equal(t, 6, rowErr.RowNumber)
	assert.Contains(t, rowErr.Message, "cell read failed")
}

func TestExtract_UnparsableAmountStaysZero(t *testing.T) {
	row := customerRow(3)
	row.Cells[ColAmount] = textCell("n/a")

	detail, rowErr := NewExtractor().Extract(row, testParams(), 3)
	require.Nil(t, rowErr)
	require.NotNil(t, detail)
	assert.True(t, detail.Amount.IsZero(), "unreadable amounts degrade to zero and fail validation later")
}

func TestExtract_PeriodCodeCoversYearBoundaries(t *testing.T) {
	tests := []struct {
		month time.Month
		want  string
	}{
		{time.January, "JAN"},
		{time.June, "JUN"},
		{time.December, "DEC"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			params := testParams()
			params.EntryDate = time.Date(2024, tt.month, 1, 0, 0, 0, 0, time.UTC)

			detail, rowErr := NewExtractor().Extract(customerRow(3), params, 3)
			require.Nil(t, rowErr)
			assert.Equal(t, tt.want, detail.PeriodCode)
			assert.Equal(t, "FY2024", detail.FinCycle)
		})
	}
}
