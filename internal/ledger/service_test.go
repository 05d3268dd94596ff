package ledger

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/vaultline/vaultyield-backend/pkg/db"
	pkgerrors "github.com/vaultline/vaultyield-backend/pkg/errors"
)

func openLedgerDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared&_busy_timeout=5000", t.Name())
	conn, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, conn.Exec(`CREATE TABLE accounts (
		id TEXT PRIMARY KEY,
		balance NUMERIC NOT NULL DEFAULT 0,
		escrow_balance NUMERIC NOT NULL DEFAULT 0,
		created_at DATETIME,
		updated_at DATETIME
	)`).Error)
	return conn
}

func newLedger(t *testing.T, conn *gorm.DB) (Service, Repository) {
	t.Helper()
	repo := NewRepository(conn)
	svc, err := NewService(repo, db.NewRetryRunner(conn, 10, time.Millisecond))
	require.NoError(t, err)
	return svc, repo
}

func seedAccount(t *testing.T, svc Service, balance string) uuid.UUID {
	t.Helper()
	account, err := svc.CreateAccount(context.Background(), CreateAccountInput{
		OpeningBalance: decimal.RequireFromString(balance),
	})
	require.NoError(t, err)
	return account.ID
}

func TestCreditIncreasesBalance(t *testing.T) {
	conn := openLedgerDB(t)
	svc, repo := newLedger(t, conn)
	id := seedAccount(t, svc, "100.00")

	require.NoError(t, svc.Credit(context.Background(), id, decimal.RequireFromString("25.50")))

	account, err := repo.Get(context.Background(), id)
	require.NoError(t, err)
	require.True(t, account.Balance.Equal(decimal.RequireFromString("125.50")), "got %s", account.Balance)
}

func TestDebitDecreasesBalance(t *testing.T) {
	conn := openLedgerDB(t)
	svc, repo := newLedger(t, conn)
	id := seedAccount(t, svc, "100.00")

	require.NoError(t, svc.Debit(context.Background(), id, decimal.RequireFromString("40.00")))

	account, err := repo.Get(context.Background(), id)
	require.NoError(t, err)
	require.True(t, account.Balance.Equal(decimal.RequireFromString("60.00")), "got %s", account.Balance)
}

func TestDebitRejectsOverdraft(t *testing.T) {
	conn := openLedgerDB(t)
	svc, repo := newLedger(t, conn)
	id := seedAccount(t, svc, "100.00")

	err := svc.Debit(context.Background(), id, decimal.RequireFromString("100.01"))
	require.True(t, pkgerrors.HasCode(err, pkgerrors.CodeInsufficientFunds), "got %v", err)

	account, getErr := repo.Get(context.Background(), id)
	require.NoError(t, getErr)
	require.True(t, account.Balance.Equal(decimal.RequireFromString("100.00")))
}

func TestDebitExactBalanceSucceeds(t *testing.T) {
	conn := openLedgerDB(t)
	svc, repo := newLedger(t, conn)
	id := seedAccount(t, svc, "100.00")

	require.NoError(t, svc.Debit(context.Background(), id, decimal.RequireFromString("100.00")))

	account, err := repo.Get(context.Background(), id)
	require.NoError(t, err)
	require.True(t, account.Balance.IsZero())
}

func TestMovesAgainstUnknownAccount(t *testing.T) {
	conn := openLedgerDB(t)
	svc, _ := newLedger(t, conn)

	err := svc.Credit(context.Background(), uuid.New(), decimal.NewFromInt(10))
	require.True(t, pkgerrors.HasCode(err, pkgerrors.CodeNotFound), "got %v", err)

	err = svc.Debit(context.Background(), uuid.New(), decimal.NewFromInt(10))
	require.True(t, pkgerrors.HasCode(err, pkgerrors.CodeNotFound), "got %v", err)
}

func TestMoveValidation(t *testing.T) {
	conn := openLedgerDB(t)
	svc, _ := newLedger(t, conn)
	id := seedAccount(t, svc, "100.00")

	err := svc.Credit(context.Background(), uuid.Nil, decimal.NewFromInt(10))
	require.True(t, pkgerrors.HasCode(err, pkgerrors.CodeValidation))

	err = svc.Debit(context.Background(), id, decimal.Zero)
	require.True(t, pkgerrors.HasCode(err, pkgerrors.CodeValidation))

	err = svc.EscrowDebit(context.Background(), id, decimal.NewFromInt(-5))
	require.True(t, pkgerrors.HasCode(err, pkgerrors.CodeValidation))
}

func TestEscrowDebitMovesFundsToEscrow(t *testing.T) {
	conn := openLedgerDB(t)
	svc, repo := newLedger(t, conn)
	id := seedAccount(t, svc, "100.00")

	require.NoError(t, svc.EscrowDebit(context.Background(), id, decimal.RequireFromString("30.00")))

	account, err := repo.Get(context.Background(), id)
	require.NoError(t, err)
	require.True(t, account.Balance.Equal(decimal.RequireFromString("70.00")), "balance %s", account.Balance)
	require.True(t, account.EscrowBalance.Equal(decimal.RequireFromString("30.00")), "escrow %s", account.EscrowBalance)
}

func TestEscrowReleaseRoundTrip(t *testing.T) {
	conn := openLedgerDB(t)
	svc, repo := newLedger(t, conn)
	id := seedAccount(t, svc, "100.00")
	amount := decimal.RequireFromString("30.00")

	require.NoError(t, svc.EscrowDebit(context.Background(), id, amount))
	require.NoError(t, repo.EscrowRelease(context.Background(), id, amount))

	account, err := repo.Get(context.Background(), id)
	require.NoError(t, err)
	require.True(t, account.Balance.Equal(decimal.RequireFromString("100.00")), "balance %s", account.Balance)
	require.True(t, account.EscrowBalance.IsZero(), "escrow %s", account.EscrowBalance)
}

func TestEscrowSettleReducesEscrowOnly(t *testing.T) {
	conn := openLedgerDB(t)
	svc, repo := newLedger(t, conn)
	id := seedAccount(t, svc, "100.00")
	amount := decimal.RequireFromString("30.00")

	require.NoError(t, svc.EscrowDebit(context.Background(), id, amount))
	require.NoError(t, repo.EscrowSettle(context.Background(), id, amount))

	account, err := repo.Get(context.Background(), id)
	require.NoError(t, err)
	require.True(t, account.Balance.Equal(decimal.RequireFromString("70.00")), "balance %s", account.Balance)
	require.True(t, account.EscrowBalance.IsZero(), "escrow %s", account.EscrowBalance)
}

func TestEscrowDebitRejectsOverdraft(t *testing.T) {
	conn := openLedgerDB(t)
	svc, _ := newLedger(t, conn)
	id := seedAccount(t, svc, "20.00")

	err := svc.EscrowDebit(context.Background(), id, decimal.RequireFromString("20.01"))
	require.True(t, pkgerrors.HasCode(err, pkgerrors.CodeInsufficientFunds), "got %v", err)
}

func TestConcurrentDebitsNeverOverdraw(t *testing.T) {
	conn := openLedgerDB(t)
	svc, repo := newLedger(t, conn)
	id := seedAccount(t, svc, "50.00")

	const workers = 10
	var wg sync.WaitGroup
	results := make([]error, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i] = svc.Debit(context.Background(), id, decimal.NewFromInt(10))
		}(i)
	}
	wg.Wait()

	succeeded := 0
	for _, err := range results {
		if err == nil {
			succeeded++
		} else {
			require.True(t,
				pkgerrors.HasCode(err, pkgerrors.CodeInsufficientFunds) ||
					pkgerrors.HasCode(err, pkgerrors.CodeTemporaryFailure),
				"unexpected error: %v", err)
		}
	}
	require.LessOrEqual(t, succeeded, 5)

	account, err := repo.Get(context.Background(), id)
	require.NoError(t, err)
	expected := decimal.NewFromInt(50 - int64(succeeded)*10)
	require.True(t, account.Balance.Equal(expected), "balance %s after %d debits", account.Balance, succeeded)
	require.False(t, account.Balance.IsNegative())
}
