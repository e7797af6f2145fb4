// Package account implements the reference-data validation collaborator:
// customer-account and GL-account verdicts plus the branch/source-code
// lookups the upload form needs.
package account

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/shopspring/decimal"

	"github.com/vrbank/batch-upload/internal/domain/upload"
)

// Verdict descriptions. Business checks never return Go errors to the
// validator; any unexpected lookup failure folds into the generic
// validation-error verdict.
const (
	authStatus   = "A"
	activeStatus = "A"

	descAccountNotFound  = "Account not found"
	descAccountInactive  = "Account is not active"
	descCustomerInactive = "Customer is not active"
	descAccountNotAuth   = "Account not authorized"
	descCustomerNotAuth  = "Customer not authorized"
	descGLNotFound       = "GL Account not found"
	descOther            = "Validation error"
)

// DB is the subset of pgxpool.Pool the validator needs.
type DB interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// Validator answers business-rule checks against the reference tables.
type Validator struct {
	db     DB
	logger *slog.Logger
}

// NewValidator creates a reference-data validator.
func NewValidator(db DB, logger *slog.Logger) *Validator {
	return &Validator{db: db, logger: logger}
}

// CustomerAccountVerdict checks existence, active status and
// authorization of a customer account and its relationship customer.
func (v *Validator) CustomerAccountVerdict(ctx context.Context, relCust, acct, ccy string, amount decimal.Decimal, drCr string) string {
	query := `
		SELECT a.auth_stat, c.auth_stat, a.status, c.status
		FROM account_master a
		JOIN customer_master c ON a.customer_no = c.customer_no
		WHERE a.account_no = $1 AND a.currency_code = $2 AND c.customer_no = $3
	`

	var authStatAcct, authStatCif, accountStatus, customerStatus string
	err := v.db.QueryRow(ctx, query, acct, ccy, relCust).Scan(&authStatAcct, &authStatCif, &accountStatus, &customerStatus)
	if errors.Is(err, pgx.ErrNoRows) {
		v.logger.Warn("account not found for customer",
			slog.String("account", acct),
			slog.String("ccy", ccy),
			slog.String("relCust", relCust),
		)
		return descAccountNotFound
	}
	if err != nil {
		v.logger.Error("error validating customer account",
			slog.String("account", acct),
			slog.Any("error", err),
		)
		return descOther
	}

	switch {
	case accountStatus != activeStatus:
		return descAccountInactive
	case customerStatus != activeStatus:
		return descCustomerInactive
	case authStatAcct != authStatus:
		return descAccountNotAuth
	case authStatCif != authStatus:
		return descCustomerNotAuth
	}

	return upload.VerdictOK
}

// GLAccountVerdict checks that a GL code exists and is active.
func (v *Validator) GLAccountVerdict(ctx context.Context, glAccount string) string {
	var count int
	err := v.db.QueryRow(ctx,
		`SELECT COUNT(*) FROM gl_master WHERE gl_code = $1 AND status = 'A'`,
		glAccount,
	).Scan(&count)
	if err != nil {
		v.logger.Error("error validating GL account",
			slog.String("account", glAccount),
			slog.Any("error", err),
		)
		return descGLNotFound
	}
	if count == 0 {
		v.logger.Warn("GL account not found or inactive", slog.String("account", glAccount))
		return descGLNotFound
	}
	return upload.VerdictOK
}

// AccountBalance returns the available balance for a customer account,
// zero when unknown. Only consulted by a wired balance rule.
func (v *Validator) AccountBalance(ctx context.Context, acct, ccy string) decimal.Decimal {
	var balance decimal.Decimal
	err := v.db.QueryRow(ctx,
		`SELECT acy_avl_bal FROM account_master WHERE account_no = $1 AND currency_code = $2`,
		acct, ccy,
	).Scan(&balance)
	if err != nil {
		if !errors.Is(err, pgx.ErrNoRows) {
			v.logger.Error("error getting account balance",
				slog.String("account", acct),
				slog.Any("error", err),
			)
		}
		return decimal.Zero
	}
	return balance
}

// Branch is one active branch for the upload form dropdown.
type Branch struct {
	Code string `json:"branchCode"`
	Name string `json:"branchName"`
}

// Branches lists active branches ordered by name.
func (v *Validator) Branches(ctx context.Context) ([]Branch, error) {
	rows, err := v.db.Query(ctx,
		`SELECT branch_code, branch_name FROM branch_master WHERE status = 'A' ORDER BY branch_name`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var branches []Branch
	for rows.Next() {
		var b Branch
		if err := rows.Scan(&b.Code, &b.Name); err != nil {
			return nil, err
		}
		branches = append(branches, b)
	}
	return branches, rows.Err()
}

// SourceCodes lists active source codes.
func (v *Validator) SourceCodes(ctx context.Context) ([]string, error) {
	rows, err := v.db.Query(ctx,
		`SELECT source_code FROM source_master WHERE status = 'A' ORDER BY source_code`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var codes []string
	for rows.Next() {
		var code string
		if err := rows.Scan(&code); err != nil {
			return nil, err
		}
		codes = append(codes, code)
	}
	return codes, rows.Err()
}

// WorkingDay returns the current business processing date for a branch,
// falling back to today when no working day is configured.
func (v *Validator) WorkingDay(ctx context.Context, branchCode string) time.Time {
	var day time.Time
	err := v.db.QueryRow(ctx,
		`SELECT working_date FROM branch_working_day WHERE branch_code = $1 AND status = 'A'`,
		branchCode,
	).Scan(&day)
	if err != nil {
		if !errors.Is(err, pgx.ErrNoRows) {
			v.logger.Warn("error getting working day, using current date",
				slog.String("branch", branchCode),
				slog.Any("error", err),
			)
		}
		return time.Now()
	}
	return day
}
