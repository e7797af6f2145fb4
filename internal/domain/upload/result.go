package upload

import (
	"fmt"
	"time"

	"github.com/gocarina/gocsv"
	"github.com/shopspring/decimal"
)

// ErrorCode categorizes a row error for operator review.
type ErrorCode string

const (
	CodeValidation ErrorCode = "VALIDATION_ERROR"
	CodeAccount    ErrorCode = "ACCOUNT_ERROR"
	CodeAmount     ErrorCode = "AMOUNT_ERROR"
	CodeProcessing ErrorCode = "PROCESSING_ERROR"
	CodeWarning    ErrorCode = "WARNING"
)

// Severity of a row error entry.
type Severity string

const (
	SeverityError   Severity = "ERROR"
	SeverityWarning Severity = "WARNING"
	SeverityInfo    Severity = "INFO"
)

// RowError records one problem detected for one spreadsheet row. The
// snapshot fields copy whatever the candidate record had resolved at the
// point of failure so operators can review the offending data without
// reopening the file. Row numbers are 1-based as shown in the sheet.
type RowError struct {
	RowNumber int       `json:"rowNumber" csv:"row"`
	Code      ErrorCode `json:"code" csv:"code"`
	Message   string    `json:"message" csv:"message"`
	Severity  Severity  `json:"severity" csv:"severity"`

	RelCust       string              `json:"relCust,omitempty" csv:"rel_cust"`
	Account       string              `json:"account,omitempty" csv:"account"`
	AccountBranch string              `json:"accountBranch,omitempty" csv:"account_branch"`
	DrCr          string              `json:"drCr,omitempty" csv:"dr_cr"`
	CcyCd         string              `json:"ccyCd,omitempty" csv:"ccy_cd"`
	Amount        decimal.NullDecimal `json:"amount,omitempty" csv:"amount"`
	LcyEquivalent decimal.NullDecimal `json:"lcyEquivalent,omitempty" csv:"lcy_equivalent"`
	TxnCode       string              `json:"txnCode,omitempty" csv:"txn_code"`
	AddlText      string              `json:"addlText,omitempty" csv:"addl_text"`
}

func (e RowError) Error() string {
	return fmt.Sprintf("row %d: %s", e.RowNumber, e.Message)
}

// IsWarning reports whether the entry is advisory only.
func (e RowError) IsWarning() bool { return e.Severity == SeverityWarning }

// SnapshotFrom copies the resolved record fields into the error entry.
func (e *RowError) SnapshotFrom(d *Detail) {
	if d == nil {
		return
	}
	e.RelCust = d.RelCust
	e.Account = d.Account
	e.AccountBranch = d.AccountBranch
	e.DrCr = d.DrCr
	e.CcyCd = d.CcyCd
	e.Amount = decimal.NewNullDecimal(d.Amount)
	e.LcyEquivalent = decimal.NewNullDecimal(d.LcyEquivalent)
	e.TxnCode = d.TxnCode
	e.AddlText = d.AddlText
}

// NewValidationError reports a structural or format problem on one field.
func NewValidationError(rowNumber int, field, message string) RowError {
	return RowError{
		RowNumber: rowNumber,
		Code:      CodeValidation,
		Message:   fmt.Sprintf("Field '%s': %s", field, message),
		Severity:  SeverityError,
	}
}

// NewAccountError reports a failed business check on the account.
func NewAccountError(rowNumber int, account, message string) RowError {
	return RowError{
		RowNumber: rowNumber,
		Code:      CodeAccount,
		Message:   message,
		Severity:  SeverityError,
		Account:   account,
	}
}

// NewAmountError reports a numeric-scale problem on an amount field.
func NewAmountError(rowNumber int, message string, amount decimal.Decimal, ccy string) RowError {
	return RowError{
		RowNumber: rowNumber,
		Code:      CodeAmount,
		Message:   message,
		Severity:  SeverityError,
		Amount:    decimal.NewNullDecimal(amount),
		CcyCd:     ccy,
	}
}

// NewProcessingError reports a row that could not be parsed at all.
func NewProcessingError(rowNumber int, message string) RowError {
	return RowError{
		RowNumber: rowNumber,
		Code:      CodeProcessing,
		Message:   message,
		Severity:  SeverityError,
	}
}

// NewWarning reports an advisory condition that does not reject the row.
func NewWarning(rowNumber int, message string) RowError {
	return RowError{
		RowNumber: rowNumber,
		Code:      CodeWarning,
		Message:   message,
		Severity:  SeverityWarning,
	}
}

// Result is the outcome of one upload invocation. Counts cover rows that
// were actually judged: empty rows and rows dropped past the batch limit
// are excluded, so TotalRows == SuccessCount + ErrorCount always holds.
type Result struct {
	Success          bool       `json:"success"`
	Message          string     `json:"message"`
	BatchNo          string     `json:"batchNo"`
	TotalRows        int        `json:"totalRows"`
	SuccessCount     int        `json:"successCount"`
	ErrorCount       int        `json:"errorCount"`
	Errors           []RowError `json:"errors"`
	ProcessingTimeMs int64      `json:"processingTimeMs"`
	UploadedAt       time.Time  `json:"uploadedAt"`
}

// ErrorResult builds a batch-level rejection with zero rows processed.
func ErrorResult(batchNo, message string) *Result {
	return &Result{
		Success: false,
		Message: message,
		BatchNo: batchNo,
		Errors:  []RowError{},
	}
}

// PartialSuccess builds the outcome of a completed row loop. The batch
// is successful only when the error list is empty; partial success is
// reported but flagged non-success.
func PartialSuccess(batchNo string, totalRows, successCount, errorCount int) *Result {
	r := &Result{
		Success:      errorCount == 0,
		BatchNo:      batchNo,
		TotalRows:    totalRows,
		SuccessCount: successCount,
		ErrorCount:   errorCount,
		Errors:       []RowError{},
	}
	if errorCount > 0 {
		r.Message = fmt.Sprintf("Upload completed with errors. %d/%d rows processed successfully", successCount, totalRows)
	} else {
		r.Message = fmt.Sprintf("Upload completed successfully. %d rows processed", successCount)
	}
	return r
}

// HasErrors reports whether any row error was recorded.
func (r *Result) HasErrors() bool { return len(r.Errors) > 0 }

// SuccessRate returns the percentage of judged rows that were accepted.
func (r *Result) SuccessRate() float64 {
	if r.TotalRows == 0 {
		return 0
	}
	return float64(r.SuccessCount) / float64(r.TotalRows) * 100
}

// ErrorRate returns the percentage of judged rows that were rejected.
func (r *Result) ErrorRate() float64 {
	if r.TotalRows == 0 {
		return 0
	}
	return float64(r.ErrorCount) / float64(r.TotalRows) * 100
}

// DurationSummary renders the processing time for display.
func (r *Result) DurationSummary() string {
	if r.ProcessingTimeMs < 1000 {
		return fmt.Sprintf("%d ms", r.ProcessingTimeMs)
	}
	return fmt.Sprintf("%.2f seconds", float64(r.ProcessingTimeMs)/1000)
}

// ErrorReportCSV renders the error list as a CSV document for download.
func (r *Result) ErrorReportCSV() ([]byte, error) {
	errs := r.Errors
	if errs == nil {
		errs = []RowError{}
	}
	out, err := gocsv.MarshalBytes(&errs)
	if err != nil {
		return nil, fmt.Errorf("failed to render error report: %w", err)
	}
	return out, nil
}
