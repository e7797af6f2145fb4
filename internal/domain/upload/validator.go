package upload

import (
	"context"
	"log/slog"
	"strings"

	"github.com/Rhymond/go-money"
	"github.com/shopspring/decimal"
)

// VerdictOK is the sentinel returned by business checks when a record
// passes; anything else is a human-readable failure description.
const VerdictOK = "OK"

// BusinessValidator is the reference-data collaborator. Implementations
// return VerdictOK or a reason string; they never return errors, so a
// lookup failure must be folded into a generic verdict by the
// implementation.
type BusinessValidator interface {
	CustomerAccountVerdict(ctx context.Context, relCust, account, ccy string, amount decimal.Decimal, drCr string) string
	GLAccountVerdict(ctx context.Context, account string) string
}

// BalanceRule is an optional balance-sufficiency check applied to
// customer-account debits after the business verdict passes. The default
// rule accepts everything; enabling a real check is a product decision.
type BalanceRule func(ctx context.Context, d *Detail) string

// NoBalanceCheck is the default BalanceRule.
func NoBalanceCheck(context.Context, *Detail) string { return VerdictOK }

// Validator applies the ordered battery of structural, format and
// business checks to one candidate record. Validation runs in two
// explicit phases: structural/format first, business rules only on a
// structurally clean record.
type Validator struct {
	business BusinessValidator
	balance  BalanceRule
	logger   *slog.Logger
}

// NewValidator creates a record validator.
func NewValidator(business BusinessValidator, logger *slog.Logger) *Validator {
	return &Validator{
		business: business,
		balance:  NoBalanceCheck,
		logger:   logger,
	}
}

// WithBalanceRule replaces the default no-op balance rule.
func (v *Validator) WithBalanceRule(rule BalanceRule) *Validator {
	if rule != nil {
		v.balance = rule
	}
	return v
}

// Validate returns the error entries for one record; an empty slice
// means the record is accepted. Every returned entry carries a snapshot
// of the record's resolved fields.
func (v *Validator) Validate(ctx context.Context, d *Detail, rowNumber int) []RowError {
	errs := v.validateStructural(d, rowNumber)
	if len(errs) == 0 {
		errs = v.validateBusiness(ctx, d, rowNumber)
	}
	for i := range errs {
		errs[i].SnapshotFrom(d)
	}
	return errs
}

// validateStructural runs the independent format checks. All failures
// are collected; nothing short-circuits inside this phase.
func (v *Validator) validateStructural(d *Detail, rowNumber int) []RowError {
	var errs []RowError

	if strings.TrimSpace(d.Account) == "" {
		errs = append(errs, NewValidationError(rowNumber, "Account", "Account number is required"))
	} else if msg := accountFormatProblem(d.Account); msg != "" {
		errs = append(errs, NewValidationError(rowNumber, "Account", msg))
	}

	if d.Amount.Sign() <= 0 {
		errs = append(errs, NewValidationError(rowNumber, "Amount", "Amount must be greater than zero"))
	}
	if d.LcyEquivalent.Sign() <= 0 {
		errs = append(errs, NewValidationError(rowNumber, "LCY Equivalent", "LCY equivalent must be greater than zero"))
	}

	if msg := v.currencyProblem(d.CcyCd); msg != "" {
		errs = append(errs, NewValidationError(rowNumber, "Currency", msg))
	}

	if msg := drCrProblem(d.DrCr); msg != "" {
		errs = append(errs, NewValidationError(rowNumber, "Dr/Cr", msg))
	}

	if strings.TrimSpace(d.TxnCode) == "" {
		errs = append(errs, NewValidationError(rowNumber, "Transaction Code", "Transaction code is required"))
	}

	return errs
}

// validateBusiness runs the numeric-scale rules and exactly one
// existence/authorization check selected by the account kind.
func (v *Validator) validateBusiness(ctx context.Context, d *Detail, rowNumber int) []RowError {
	var errs []RowError

	// LCY amounts are always whole local-currency units. The foreign
	// amount keeps its precision unless the currency itself is VND.
	if d.CcyCd == "VND" {
		if !d.Amount.IsInteger() {
			errs = append(errs, NewAmountError(rowNumber, "VND amount must be a whole number", d.Amount, d.CcyCd))
		}
		if !d.LcyEquivalent.IsInteger() {
			errs = append(errs, NewAmountError(rowNumber, "VND LCY equivalent must be a whole number", d.LcyEquivalent, d.CcyCd))
		}
	} else if !d.LcyEquivalent.IsInteger() {
		errs = append(errs, NewAmountError(rowNumber, "LCY equivalent must be a whole number", d.LcyEquivalent, "VND"))
	}

	if len(errs) > 0 {
		return errs
	}

	var verdict string
	switch d.AccountKind() {
	case AccountKindCustomer:
		verdict = v.business.CustomerAccountVerdict(ctx, d.RelCust, d.Account, d.CcyCd, d.Amount, d.DrCr)
		if verdict == VerdictOK {
			verdict = v.balance(ctx, d)
		}
	default:
		verdict = v.business.GLAccountVerdict(ctx, d.Account)
	}
	if verdict != VerdictOK {
		errs = append(errs, NewAccountError(rowNumber, d.Account, verdict))
	}

	return errs
}

// accountFormatProblem checks the two accepted account shapes: 15 digits
// for customer accounts, 9 digits for GL codes.
func accountFormatProblem(account string) string {
	account = strings.TrimSpace(account)
	switch len(account) {
	case CustomerAccountLen:
		if !allDigits(account) {
			return "Customer account must be 15 digits"
		}
	case 9:
		if !allDigits(account) {
			return "GL account must be 9 digits"
		}
	default:
		return "Account number must be either 9 digits (GL) or 15 digits (Customer)"
	}
	return ""
}

// currencyProblem validates the currency code shape. Well-formed codes
// missing from the ISO-4217 registry are logged but never rejected.
func (v *Validator) currencyProblem(ccy string) string {
	ccy = strings.TrimSpace(ccy)
	if ccy == "" {
		return "Currency code is required"
	}
	if len(ccy) != 3 {
		return "Currency code must be 3 characters"
	}
	for _, r := range ccy {
		if r < 'A' || r > 'Z' {
			return "Currency code must contain only letters"
		}
	}
	if money.GetCurrency(ccy) == nil {
		v.logger.Warn("unsupported currency code", slog.String("ccy", ccy))
	}
	return ""
}

func drCrProblem(drCr string) string {
	drCr = strings.TrimSpace(drCr)
	if drCr == "" {
		return "Dr/Cr flag is required"
	}
	if drCr != "D" && drCr != "C" {
		return "Dr/Cr flag must be 'D' (Debit) or 'C' (Credit)"
	}
	return ""
}

func allDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
