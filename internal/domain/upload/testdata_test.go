package upload

import (
	"fmt"
	"time"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/shopspring/decimal"
)

// validCustomerDetail builds a structurally valid customer-account
// record with randomized free-text fields.
func validCustomerDetail() *Detail {
	return &Detail{
		BatchNo:        fmt.Sprintf("BATCH%03d", gofakeit.Number(1, 999)),
		BranchCode:     "BR01",
		SourceCode:     "SRC1",
		RelCust:        fmt.Sprintf("CUST%04d", gofakeit.Number(1, 9999)),
		Account:        gofakeit.DigitN(15),
		AccountBranch:  "BR01",
		DrCr:           "D",
		CcyCd:          "VND",
		Amount:         decimal.NewFromInt(int64(gofakeit.Number(1, 1000)) * 1000),
		LcyEquivalent:  decimal.NewFromInt(int64(gofakeit.Number(1, 1000)) * 1000),
		TxnCode:        "TXN",
		AddlText:       gofakeit.Sentence(3),
		ExchRate:       decimal.NewFromInt(1),
		InitiationDate: time.Date(2025, time.March, 15, 0, 0, 0, 0, time.UTC),
		ValueDate:      time.Date(2025, time.March, 15, 0, 0, 0, 0, time.UTC),
		UploadDate:     time.Now(),
		FinCycle:       "FY2025",
		PeriodCode:     "MAR",
		CurrNo:         "1",
		UploadStat:     StatusPending,
		DeleteStat:     StatusPending,
	}
}

// validGLDetail builds a structurally valid general-ledger record.
func validGLDetail() *Detail {
	d := validCustomerDetail()
	d.Account = gofakeit.DigitN(9)
	d.RelCust = ""
	return d
}
