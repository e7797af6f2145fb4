// Package upload holds the core types of the batch transaction upload
// pipeline: the candidate record built from a spreadsheet row, the batch
// parameters, the per-row error entries and the batch result.
package upload

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Upload and delete status flags stored on every record.
const (
	StatusPending   = "N" // not yet processed
	StatusProcessed = "Y"
)

// Parameter length limits, matching the detb_upload_detail columns.
const (
	MaxBatchNoLen    = 20
	MaxBranchCodeLen = 10
	MaxSourceCodeLen = 10
)

// CustomerAccountLen is the minimum account-number length that marks a
// customer account; anything shorter is treated as a general-ledger code.
const CustomerAccountLen = 15

// AccountKind tags an account number as a customer account or a
// general-ledger account. It is derived once from the account length and
// drives both extraction (rel-cust population) and business validation.
type AccountKind int

const (
	AccountKindGeneralLedger AccountKind = iota
	AccountKindCustomer
)

func (k AccountKind) String() string {
	if k == AccountKindCustomer {
		return "customer"
	}
	return "gl"
}

// KindOfAccount derives the account kind from the account number length.
func KindOfAccount(account string) AccountKind {
	if len(strings.TrimSpace(account)) >= CustomerAccountLen {
		return AccountKindCustomer
	}
	return AccountKindGeneralLedger
}

// Params are the fixed batch-level parameters supplied with an upload.
type Params struct {
	BatchNo    string          `json:"batchNo"`
	BranchCode string          `json:"branchCode"`
	SourceCode string          `json:"sourceCode"`
	ExchRate   decimal.Decimal `json:"exchRate"`
	EntryDate  time.Time       `json:"entryDate"`
}

// Validate checks presence and length limits of the upload parameters.
// It returns the first problem found; a batch failing this check is
// rejected before any row is read.
func (p Params) Validate() error {
	switch {
	case strings.TrimSpace(p.BatchNo) == "":
		return fmt.Errorf("batch number is required")
	case len(p.BatchNo) > MaxBatchNoLen:
		return fmt.Errorf("batch number cannot exceed %d characters", MaxBatchNoLen)
	case strings.TrimSpace(p.BranchCode) == "":
		return fmt.Errorf("branch code is required")
	case len(p.BranchCode) > MaxBranchCodeLen:
		return fmt.Errorf("branch code cannot exceed %d characters", MaxBranchCodeLen)
	case strings.TrimSpace(p.SourceCode) == "":
		return fmt.Errorf("source code is required")
	case len(p.SourceCode) > MaxSourceCodeLen:
		return fmt.Errorf("source code cannot exceed %d characters", MaxSourceCodeLen)
	case p.ExchRate.Sign() <= 0:
		return fmt.Errorf("exchange rate must be greater than zero")
	case p.EntryDate.IsZero():
		return fmt.Errorf("entry date is required")
	}
	return nil
}

// Detail is one candidate transaction record extracted from a data row.
// It maps 1:1 to a detb_upload_detail row once accepted.
type Detail struct {
	BatchNo       string          `json:"batchNo"`
	BranchCode    string          `json:"branchCode"`
	SourceCode    string          `json:"sourceCode"`
	RelCust       string          `json:"relCust,omitempty"`
	Account       string          `json:"account"`
	AccountBranch string          `json:"accountBranch"`
	DrCr          string          `json:"drCr"`
	CcyCd         string          `json:"ccyCd"`
	Amount        decimal.Decimal `json:"amount"`
	LcyEquivalent decimal.Decimal `json:"lcyEquivalent"`
	TxnCode       string          `json:"txnCode"`
	AddlText      string          `json:"addlText,omitempty"`
	ExchRate      decimal.Decimal `json:"exchRate"`

	InitiationDate time.Time `json:"initiationDate"`
	ValueDate      time.Time `json:"valueDate"`
	UploadDate     time.Time `json:"uploadDate"`

	FinCycle   string `json:"finCycle"`
	PeriodCode string `json:"periodCode"`
	CurrNo     string `json:"currNo"`

	UploadStat string `json:"uploadStat"`
	DeleteStat string `json:"deleteStat"`
}

// AccountKind reports the tagged kind of the record's account number.
func (d *Detail) AccountKind() AccountKind {
	return KindOfAccount(d.Account)
}

// BatchSummary is one row of the per-batch overview, ordered by most
// recent upload first.
type BatchSummary struct {
	BatchNo    string    `json:"batchNo"`
	Rows       int64     `json:"rows"`
	LastUpload time.Time `json:"lastUpload"`
}

// BatchStats holds processing counters for a single batch.
type BatchStats struct {
	BatchNo   string `json:"batchNo"`
	Total     int64  `json:"total"`
	Processed int64  `json:"processed"`
	Pending   int64  `json:"pending"`
}
