package account

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/pashagolub/pgxmock/v3"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vrbank/batch-upload/internal/domain/upload"
)

func newMockValidator(t *testing.T) (pgxmock.PgxPoolIface, *Validator) {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(mock.Close)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return mock, NewValidator(mock, logger)
}

func expectAccountLookup(mock pgxmock.PgxPoolIface) *pgxmock.ExpectedQuery {
	return mock.ExpectQuery(`SELECT a\.auth_stat, c\.auth_stat, a\.status, c\.status`).
		WithArgs("001234567890123", "VND", "CUST0001")
}

func customerVerdict(v *Validator) string {
	return v.CustomerAccountVerdict(context.Background(),
		"CUST0001", "001234567890123", "VND", decimal.NewFromInt(1000), "D")
}

func TestCustomerAccountVerdict(t *testing.T) {
	tests := []struct {
		name    string
		row     []any // auth_stat_acct, auth_stat_cif, account_status, customer_status
		verdict string
	}{
		{"all checks pass", []any{"A", "A", "A", "A"}, upload.VerdictOK},
		{"inactive account", []any{"A", "A", "C", "A"}, "Account is not active"},
		{"inactive customer", []any{"A", "A", "A", "C"}, "Customer is not active"},
		{"unauthorized account", []any{"U", "A", "A", "A"}, "Account not authorized"},
		{"unauthorized customer", []any{"A", "U", "A", "A"}, "Customer not authorized"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mock, v := newMockValidator(t)
			expectAccountLookup(mock).WillReturnRows(
				pgxmock.NewRows([]string{"auth_stat", "auth_stat", "status", "status"}).
					AddRow(tt.row...))

			assert.Equal(t, tt.verdict, customerVerdict(v))
			require.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestCustomerAccountVerdict_LookupFailure(t *testing.T) {
	mock, v := newMockValidator(t)
	expectAccountLookup(mock).WillReturnError(errors.New("connection reset"))

	// Any lookup failure other than no-rows folds into the generic verdict.
	assert.Equal(t, "Validation error", customerVerdict(v))
}

func TestCustomerAccountVerdict_NoRows(t *testing.T) {
	mock, v := newMockValidator(t)
	expectAccountLookup(mock).WillReturnRows(
		pgxmock.NewRows([]string{"auth_stat", "auth_stat", "status", "status"}))

	assert.Equal(t, "Account not found", customerVerdict(v))
}

func TestGLAccountVerdict(t *testing.T) {
	t.Run("active GL code", func(t *testing.T) {
		mock, v := newMockValidator(t)
		mock.ExpectQuery(`SELECT COUNT\(\*\) FROM gl_master`).
			WithArgs("001234567").
			WillReturnRows(pgxmock.NewRows([]string{"count"}).AddRow(1))

		assert.Equal(t, upload.VerdictOK, v.GLAccountVerdict(context.Background(), "001234567"))
	})

	t.Run("unknown GL code", func(t *testing.T) {
		mock, v := newMockValidator(t)
		mock.ExpectQuery(`SELECT COUNT\(\*\) FROM gl_master`).
			WithArgs("999999999").
			WillReturnRows(pgxmock.NewRows([]string{"count"}).AddRow(0))

		assert.Equal(t, "GL Account not found", v.GLAccountVerdict(context.Background(), "999999999"))
	})

	t.Run("lookup failure", func(t *testing.T) {
		mock, v := newMockValidator(t)
		mock.ExpectQuery(`SELECT COUNT\(\*\) FROM gl_master`).
			WithArgs("001234567").
			WillReturnError(errors.New("connection reset"))

		assert.Equal(t, "GL Account not found", v.GLAccountVerdict(context.Background(), "001234567"))
	})
}

func TestAccountBalance(t *testing.T) {
	mock, v := newMockValidator(t)
	mock.ExpectQuery(`SELECT acy_avl_bal FROM account_master`).
		WithArgs("001234567890123", "VND").
		WillReturnRows(pgxmock.NewRows([]string{"acy_avl_bal"}).
			AddRow(decimal.NewFromInt(500000)))

	bal := v.AccountBalance(context.Background(), "001234567890123", "VND")
	assert.True(t, decimal.NewFromInt(500000).Equal(bal))
}

func TestAccountBalance_UnknownAccountIsZero(t *testing.T) {
	mock, v := newMockValidator(t)
	mock.ExpectQuery(`SELECT acy_avl_bal FROM account_master`).
		WithArgs("999999999999999", "VND").
		WillReturnRows(pgxmock.NewRows([]string{"acy_avl_bal"}))

	bal := v.AccountBalance(context.Background(), "999999999999999", "VND")
	assert.True(t, bal.IsZero())
}

func TestBranches(t *testing.T) {
	mock, v := newMockValidator(t)
	mock.ExpectQuery(`SELECT branch_code, branch_name FROM branch_master`).
		WillReturnRows(pgxmock.NewRows([]string{"branch_code", "branch_name"}).
			AddRow("BR01", "Head Office").
			AddRow("BR02", "West Branch"))

	branches, err := v.Branches(context.Background())
	require.NoError(t, err)
	require.Len(t, branches, 2)
	assert.Equal(t, Branch{Code: "BR01", Name: "Head Office"}, branches[0])
}

func TestSourceCodes(t *testing.T) {
	mock, v := newMockValidator(t)
	mock.ExpectQuery(`SELECT source_code FROM source_master`).
		WillReturnRows(pgxmock.NewRows([]string{"source_code"}).
			AddRow("SRC1").
			AddRow("SRC2"))

	codes, err := v.SourceCodes(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"SRC1", "SRC2"}, codes)
}

func TestWorkingDay(t *testing.T) {
	day := time.Date(2025, time.March, 17, 0, 0, 0, 0, time.UTC)

	t.Run("configured working day", func(t *testing.T) {
		mock, v := newMockValidator(t)
		mock.ExpectQuery(`SELECT working_date FROM branch_working_day`).
			WithArgs("BR01").
			WillReturnRows(pgxmock.NewRows([]string{"working_date"}).AddRow(day))

		assert.Equal(t, day, v.WorkingDay(context.Background(), "BR01"))
	})

	t.Run("falls back to today", func(t *testing.T) {
		mock, v := newMockValidator(t)
		mock.ExpectQuery(`SELECT working_date FROM branch_working_day`).
			WithArgs("BR99").
			WillReturnRows(pgxmock.NewRows([]string{"working_date"}))

		got := v.WorkingDay(context.Background(), "BR99")
		assert.WithinDuration(t, time.Now(), got, time.Minute)
	})
}
