package upload

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// mockBusinessValidator returns canned verdicts and records calls.
type mockBusinessValidator struct {
	customerVerdict string
	glVerdict       string
	customerCalls   int
	glCalls         int
}

func (m *mockBusinessValidator) CustomerAccountVerdict(_ context.Context, _, _, _ string, _ decimal.Decimal, _ string) string {
	m.customerCalls++
	return m.customerVerdict
}

func (m *mockBusinessValidator) GLAccountVerdict(_ context.Context, _ string) string {
	m.glCalls++
	return m.glVerdict
}

func newTestValidator(business *mockBusinessValidator) *Validator {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewValidator(business, logger)
}

func TestValidate_AcceptsCleanCustomerRecord(t *testing.T) {
	business := &mockBusinessValidator{customerVerdict: VerdictOK}
	v := newTestValidator(business)

	errs := v.Validate(context.Background(), validCustomerDetail(), 3)
	assert.Empty(t, errs)
	assert.Equal(t, 1, business.customerCalls)
	assert.Equal(t, 0, business.glCalls)
}

func TestValidate_AcceptsCleanGLRecord(t *testing.T) {
	business := &mockBusinessValidator{glVerdict: VerdictOK}
	v := newTestValidator(business)

	errs := v.Validate(context.Background(), validGLDetail(), 3)
	assert.Empty(t, errs)
	assert.Equal(t, 0, business.customerCalls)
	assert.Equal(t, 1, business.glCalls)
}

func TestValidate_StructuralFailures(t *testing.T) {
	tests := []struct {
		name        string
		mutate      func(d *Detail)
		wantMessage string
	}{
		{
			"missing account",
			func(d *Detail) { d.Account = "  " },
			"Field 'Account': Account number is required",
		},
		{
			"account length between GL and customer",
			func(d *Detail) { d.Account = "12345" },
			"Field 'Account': Account number must be either 9 digits (GL) or 15 digits (Customer)",
		},
		{
			"customer account with letters",
			func(d *Detail) { d.Account = "12345678901234X" },
			"Field 'Account': Customer account must be 15 digits",
		},
		{
			"GL account with letters",
			func(d *Detail) { d.Account = "12345678X" },
			"Field 'Account': GL account must be 9 digits",
		},
		{
			"zero amount",
			func(d *Detail) { d.Amount = decimal.Zero },
			"Field 'Amount': Amount must be greater than zero",
		},
		{
			"negative amount",
			func(d *Detail) { d.Amount = decimal.NewFromInt(-100) },
			"Field 'Amount': Amount must be greater than zero",
		},
		{
			"zero LCY equivalent",
			func(d *Detail) { d.LcyEquivalent = decimal.Zero },
			"Field 'LCY Equivalent': LCY equivalent must be greater than zero",
		},
		{
			"missing currency",
			func(d *Detail) { d.CcyCd = "" },
			"Field 'Currency': Currency code is required",
		},
		{
			"currency wrong length",
			func(d *Detail) { d.CcyCd = "VNDX" },
			"Field 'Currency': Currency code must be 3 characters",
		},
		{
			"currency with digits",
			func(d *Detail) { d.CcyCd = "V1D" },
			"Field 'Currency': Currency code must contain only letters",
		},
		{
			"missing dr/cr",
			func(d *Detail) { d.DrCr = "" },
			"Field 'Dr/Cr': Dr/Cr flag is required",
		},
		{
			"invalid dr/cr",
			func(d *Detail) { d.DrCr = "X" },
			"Field 'Dr/Cr': Dr/Cr flag must be 'D' (Debit) or 'C' (Credit)",
		},
		{
			"missing transaction code",
			func(d *Detail) { d.TxnCode = "" },
			"Field 'Transaction Code': Transaction code is required",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			business := &mockBusinessValidator{customerVerdict: VerdictOK, glVerdict: VerdictOK}
			v := newTestValidator(business)

			d := validCustomerDetail()
			tt.mutate(d)

			errs := v.Validate(context.Background(), d, 3)
			require.NotEmpty(t, errs)

			var messages []string
			for _, e := range errs {
				assert.Equal(t, CodeValidation, e.Code)
				messages = append(messages, e.Message)
			}
			assert.Contains(t, messages, tt.wantMessage)

			// Business checks only run on a structurally clean record.
			assert.Zero(t, business.customerCalls)
			assert.Zero(t, business.glCalls)
		})
	}
}

func TestValidate_CollectsAllStructuralFailures(t *testing.T) {
	v := newTestValidator(&mockBusinessValidator{})

	d := validCustomerDetail()
	d.Account = ""
	d.Amount = decimal.Zero
	d.CcyCd = ""
	d.DrCr = ""
	d.TxnCode = ""

	errs := v.Validate(context.Background(), d, 3)
	assert.Len(t, errs, 5)
}

func TestValidate_UnknownButWellFormedCurrencyAccepted(t *testing.T) {
	business := &mockBusinessValidator{customerVerdict: VerdictOK}
	v := newTestValidator(business)

	d := validCustomerDetail()
	d.CcyCd = "ZZZ"
	d.Amount = decimal.NewFromInt(100)

	errs := v.Validate(context.Background(), d, 3)
	assert.Empty(t, errs)
}

func TestValidate_VNDWholeNumberRules(t *testing.T) {
	tests := []struct {
		name      string
		ccy       string
		amount    string
		lcy       string
		wantCount int
		wantMsg   string
	}{
		{"VND fractional amount", "VND", "100.50", "100", 1, "VND amount must be a whole number"},
		{"VND fractional LCY", "VND", "100", "100.50", 1, "VND LCY equivalent must be a whole number"},
		{"VND both fractional", "VND", "100.50", "100.50", 2, "VND amount must be a whole number"},
		{"foreign fractional amount allowed", "USD", "100.50", "2500000", 0, ""},
		{"foreign fractional LCY rejected", "USD", "100.50", "2500000.75", 1, "LCY equivalent must be a whole number"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			business := &mockBusinessValidator{customerVerdict: VerdictOK}
			v := newTestValidator(business)

			d := validCustomerDetail()
			d.CcyCd = tt.ccy
			d.Amount = decimal.RequireFromString(tt.amount)
			d.LcyEquivalent = decimal.RequireFromString(tt.lcy)

			errs := v.Validate(context.Background(), d, 3)
			require.Len(t, errs, tt.wantCount)
			if tt.wantCount > 0 {
				assert.Equal(t, CodeAmount, errs[0].Code)
				assert.Equal(t, tt.wantMsg, errs[0].Message)
				// Amount failures stop the row before any account lookup.
				assert.Zero(t, business.customerCalls)
			}
		})
	}
}

func TestValidate_BusinessVerdictsBecomeAccountErrors(t *testing.T) {
	verdicts := []string{
		"Account not found",
		"Account is not active",
		"Customer is not active",
		"Account not authorized",
		"Customer not authorized",
		"Validation error",
	}

	for _, verdict := range verdicts {
		t.Run(verdict, func(t *testing.T) {
			v := newTestValidator(&mockBusinessValidator{customerVerdict: verdict})

			d := validCustomerDetail()
			errs := v.Validate(context.Background(), d, 7)
			require.Len(t, errs, 1)
			assert.Equal(t, CodeAccount, errs[0].Code)
			assert.Equal(t, verdict, errs[0].Message)
			assert.Equal(t, 7, errs[0].RowNumber)
			assert.Equal(t, d.Account, errs[0].Account)
		})
	}
}

func TestValidate_GLVerdictFailure(t *testing.T) {
	v := newTestValidator(&mockBusinessValidator{glVerdict: "GL Account not found"})

	errs := v.Validate(context.Background(), validGLDetail(), 3)
	require.Len(t, errs, 1)
	assert.Equal(t, CodeAccount, errs[0].Code)
	assert.Equal(t, "GL Account not found", errs[0].Message)
}

func TestValidate_BalanceRuleRunsAfterCustomerVerdict(t *testing.T) {
	business := &mockBusinessValidator{customerVerdict: VerdictOK}
	v := newTestValidator(business).WithBalanceRule(func(_ context.Context, _ *Detail) string {
		return "Insufficient balance"
	})

	errs := v.Validate(context.Background(), validCustomerDetail(), 3)
	require.Len(t, errs, 1)
	assert.Equal(t, "Insufficient balance", errs[0].Message)
}

func TestValidate_BalanceRuleSkippedWhenVerdictFails(t *testing.T) {
	balanceCalls := 0
	v := newTestValidator(&mockBusinessValidator{customerVerdict: "Account not found"}).
		WithBalanceRule(func(_ context.Context, _ *Detail) string {
			balanceCalls++
			return "Insufficient balance"
		})

	errs := v.Validate(context.Background(), validCustomerDetail(), 3)
	require.Len(t, errs, 1)
	assert.Equal(t, "Account not found", errs[0].Message)
	assert.Zero(t, balanceCalls)
}

func TestValidate_ErrorsCarryRecordSnapshot(t *testing.T) {
	v := newTestValidator(&mockBusinessValidator{customerVerdict: "Account not found"})

	d := validCustomerDetail()
	errs := v.Validate(context.Background(), d, 3)
	require.Len(t, errs, 1)

	e := errs[0]
	assert.Equal(t, d.RelCust, e.RelCust)
	assert.Equal(t, d.Account, e.Account)
	assert.Equal(t, d.DrCr, e.DrCr)
	assert.Equal(t, d.CcyCd, e.CcyCd)
	require.True(t, e.Amount.Valid)
	assert.True(t, d.Amount.Equal(e.Amount.Decimal))
	assert.Equal(t, d.TxnCode, e.TxnCode)
}
