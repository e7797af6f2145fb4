package parser

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/vrbank/batch-upload/internal/domain/upload"
)

var monthCodes = [12]string{
	"JAN", "FEB", "MAR", "APR", "MAY", "JUN",
	"JUL", "AUG", "SEP", "OCT", "NOV", "DEC",
}

// Extractor maps one sheet row plus the fixed batch parameters onto a
// candidate upload record.
type Extractor struct {
	now func() time.Time
}

// NewExtractor creates a row extractor.
func NewExtractor() *Extractor {
	return &Extractor{now: time.Now}
}

// Extract builds a candidate record from one data row. It returns
// (nil, nil) for an empty row, which is skipped without counting, and a
// RowError when the row could not be read; neither outcome aborts the
// batch. rowNumber is the 1-based row number shown to the user.
func (e *Extractor) Extract(row Row, params upload.Params, rowNumber int) (*upload.Detail, *upload.RowError) {
	if row.IsEmpty() {
		return nil, nil
	}
	if row.Err != nil {
		err := upload.NewProcessingError(rowNumber, fmt.Sprintf("Error processing row: %v", row.Err))
		return nil, &err
	}

	d := &upload.Detail{
		BatchNo:        params.BatchNo,
		BranchCode:     params.BranchCode,
		SourceCode:     params.SourceCode,
		ExchRate:       params.ExchRate,
		InitiationDate: params.EntryDate,
		ValueDate:      params.EntryDate,
		UploadDate:     e.now(),
		FinCycle:       fmt.Sprintf("FY%d", params.EntryDate.Year()),
		PeriodCode:     monthCodes[params.EntryDate.Month()-1],
		CurrNo:         strconv.Itoa(rowNumber - HeaderRows),
		UploadStat:     upload.StatusPending,
		DeleteStat:     upload.StatusPending,
	}

	d.Account = stringAt(row, ColAccount)

	// The account kind decides whether a linked customer id applies:
	// long account numbers are customer accounts, short ones are GL
	// codes with no customer link.
	if upload.KindOfAccount(d.Account) == upload.AccountKindCustomer {
		d.RelCust = stringAt(row, ColRelCust)
	}

	d.AccountBranch = stringAt(row, ColAccountBranch)
	d.DrCr = strings.ToUpper(stringAt(row, ColDrCr))
	d.CcyCd = strings.ToUpper(stringAt(row, ColCcyCd))
	if amount, ok := row.Cell(ColAmount).DecimalValue(); ok {
		d.Amount = amount
	}
	if lcy, ok := row.Cell(ColLcyEquivalent).DecimalValue(); ok {
		d.LcyEquivalent = lcy
	}
	d.TxnCode = stringAt(row, ColTxnCode)
	d.AddlText = stringAt(row, ColAddlText)

	return d, nil
}

func stringAt(row Row, col int) string {
	s, _ := row.Cell(col).StringValue()
	return s
}
