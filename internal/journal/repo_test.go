package journal

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
	"github.com/vaultline/vaultyield-backend/pkg/enums"
	pkgerrors "github.com/vaultline/vaultyield-backend/pkg/errors"
)

func openJournalDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared&_busy_timeout=5000", t.Name())
	conn, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, conn.Exec(`CREATE TABLE transactions (
		id TEXT PRIMARY KEY,
		account_id TEXT NOT NULL,
		kind TEXT NOT NULL,
		amount NUMERIC NOT NULL,
		fee NUMERIC NOT NULL DEFAULT 0,
		status TEXT NOT NULL DEFAULT 'pending',
		proof_key TEXT,
		reference_id TEXT,
		destination TEXT,
		reject_reason TEXT,
		created_at DATETIME,
		resolved_at DATETIME
	)`).Error)
	require.NoError(t, conn.Exec(`CREATE UNIQUE INDEX idx_transactions_proof_key ON transactions(proof_key)`).Error)
	return conn
}

func newJournal(t *testing.T, conn *gorm.DB) (Service, Repository) {
	t.Helper()
	repo := NewRepository(conn)
	svc, err := NewService(repo, db.NewRetryRunner(conn, 10, time.Millisecond))
	require.NoError(t, err)
	return svc, repo
}

func strPtr(s string) *string { return &s }

func TestAppendDeposit(t *testing.T) {
	conn := openJournalDB(t)
	svc, repo := newJournal(t, conn)
	accountID := uuid.New()

	txn, err := svc.Append(context.Background(), AppendInput{
		AccountID: accountID,
		Kind:      enums.TransactionKindDeposit,
		Amount:    decimal.RequireFromString("100.00"),
		ProofKey:  strPtr("proof-abc"),
	})
	require.NoError(t, err)
	require.Equal(t, enums.TransactionStatusPending, txn.Status)

	stored, err := repo.GetByID(context.Background(), txn.ID)
	require.NoError(t, err)
	require.Equal(t, accountID, stored.AccountID)
	require.True(t, stored.Amount.Equal(decimal.RequireFromString("100.00")))
}

func TestAppendRejectsReplayedProof(t *testing.T) {
	conn := openJournalDB(t)
	svc, _ := newJournal(t, conn)
	input := AppendInput{
		AccountID: uuid.New(),
		Kind:      enums.TransactionKindDeposit,
		Amount:    decimal.RequireFromString("100.00"),
		ProofKey:  strPtr("proof-dup"),
	}

	_, err := svc.Append(context.Background(), input)
	require.NoError(t, err)

	_, err = svc.Append(context.Background(), input)
	require.True(t, pkgerrors.HasCode(err, pkgerrors.CodeDuplicateHash), "got %v", err)
}

func TestAppendValidation(t *testing.T) {
	conn := openJournalDB(t)
	svc, _ := newJournal(t, conn)

	tests := []struct {
		name  string
		input AppendInput
	}{
		{
			name: "missing account",
			input: AppendInput{
				Kind:     enums.TransactionKindDeposit,
				Amount:   decimal.NewFromInt(10),
				ProofKey: strPtr("p"),
			},
		},
		{
			name: "invalid kind",
			input: AppendInput{
				AccountID: uuid.New(),
				Kind:      enums.TransactionKind("not_real"),
				Amount:    decimal.NewFromInt(10),
			},
		},
		{
			name: "zero amount",
			input: AppendInput{
				AccountID: uuid.New(),
				Kind:      enums.TransactionKindWithdrawal,
				Amount:    decimal.Zero,
			},
		},
		{
			name: "deposit without proof",
			input: AppendInput{
				AccountID: uuid.New(),
				Kind:      enums.TransactionKindDeposit,
				Amount:    decimal.NewFromInt(10),
			},
		},
		{
			name: "negative fee",
			input: AppendInput{
				AccountID: uuid.New(),
				Kind:      enums.TransactionKindWithdrawal,
				Amount:    decimal.NewFromInt(10),
				Fee:       decimal.NewFromInt(-1),
			},
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.Append(context.Background(), tc.input)
			require.True(t, pkgerrors.HasCode(err, pkgerrors.CodeValidation), "got %v", err)
		})
	}
}

func TestResolveFlipsPendingExactlyOnce(t *testing.T) {
	conn := openJournalDB(t)
	svc, repo := newJournal(t, conn)

	txn, err := svc.Append(context.Background(), AppendInput{
		AccountID: uuid.New(),
		Kind:      enums.TransactionKindWithdrawal,
		Amount:    decimal.RequireFromString("50.00"),
	})
	require.NoError(t, err)

	now := time.Now().UTC()
	require.NoError(t, repo.Resolve(context.Background(), txn.ID, enums.TransactionStatusCompleted, nil, now))

	err = repo.Resolve(context.Background(), txn.ID, enums.TransactionStatusRejected, strPtr("too late"), now)
	require.True(t, pkgerrors.HasCode(err, pkgerrors.CodeTransactionNotPending), "got %v", err)

	stored, err := repo.GetByID(context.Background(), txn.ID)
	require.NoError(t, err)
	require.Equal(t, enums.TransactionStatusCompleted, stored.Status)
	require.Nil(t, stored.RejectReason)
	require.NotNil(t, stored.ResolvedAt)
}

func TestResolveConcurrentWinnersAreExclusive(t *testing.T) {
	conn := openJournalDB(t)
	svc, repo := newJournal(t, conn)

	txn, err := svc.Append(context.Background(), AppendInput{
		AccountID: uuid.New(),
		Kind:      enums.TransactionKindWithdrawal,
		Amount:    decimal.RequireFromString("50.00"),
	})
	require.NoError(t, err)

	statuses := []enums.TransactionStatus{
		enums.TransactionStatusCompleted,
		enums.TransactionStatusRejected,
	}
	var wg sync.WaitGroup
	results := make([]error, len(statuses))
	for i, status := range statuses {
		wg.Add(1)
		go func(i int, status enums.TransactionStatus) {
			defer wg.Done()
			results[i] = repo.Resolve(context.Background(), txn.ID, status, nil, time.Now().UTC())
		}(i, status)
	}
	wg.Wait()

	wins := 0
	for _, err := range results {
		if err == nil {
			wins++
		} else {
			require.True(t,
				pkgerrors.HasCode(err, pkgerrors.CodeTransactionNotPending) ||
					db.IsRetryable(err),
				"unexpected error: %v", err)
		}
	}
	require.LessOrEqual(t, wins, 1)
}

func TestResolveUnknownTransaction(t *testing.T) {
	conn := openJournalDB(t)
	_, repo := newJournal(t, conn)

	err := repo.Resolve(context.Background(), uuid.New(), enums.TransactionStatusCompleted, nil, time.Now().UTC())
	require.True(t, pkgerrors.HasCode(err, pkgerrors.CodeNotFound), "got %v", err)
}

func TestResolveRejectsNonTerminalStatus(t *testing.T) {
	conn := openJournalDB(t)
	_, repo := newJournal(t, conn)

	err := repo.Resolve(context.Background(), uuid.New(), enums.TransactionStatusPending, nil, time.Now().UTC())
	require.True(t, pkgerrors.HasCode(err, pkgerrors.CodeValidation), "got %v", err)
}

func TestPendingApprovalsFiltersByKind(t *testing.T) {
	conn := openJournalDB(t)
	svc, repo := newJournal(t, conn)
	accountID := uuid.New()

	deposit, err := svc.Append(context.Background(), AppendInput{
		AccountID: accountID,
		Kind:      enums.TransactionKindDeposit,
		Amount:    decimal.NewFromInt(100),
		ProofKey:  strPtr("proof-1"),
	})
	require.NoError(t, err)

	withdrawal, err := svc.Append(context.Background(), AppendInput{
		AccountID: accountID,
		Kind:      enums.TransactionKindWithdrawal,
		Amount:    decimal.NewFromInt(20),
	})
	require.NoError(t, err)

	resolved, err := svc.Append(context.Background(), AppendInput{
		AccountID: accountID,
		Kind:      enums.TransactionKindWithdrawal,
		Amount:    decimal.NewFromInt(30),
	})
	require.NoError(t, err)
	require.NoError(t, repo.Resolve(context.Background(), resolved.ID, enums.TransactionStatusRejected, strPtr("no"), time.Now().UTC()))

	pending, err := svc.PendingApprovals(context.Background(), "")
	require.NoError(t, err)
	require.Len(t, pending, 2)

	deposits, err := svc.PendingApprovals(context.Background(), enums.TransactionKindDeposit)
	require.NoError(t, err)
	require.Len(t, deposits, 1)
	require.Equal(t, deposit.ID, deposits[0].ID)

	withdrawals, err := svc.PendingApprovals(context.Background(), enums.TransactionKindWithdrawal)
	require.NoError(t, err)
	require.Len(t, withdrawals, 1)
	require.Equal(t, withdrawal.ID, withdrawals[0].ID)
}

func TestHistoryReturnsNewestFirst(t *testing.T) {
	conn := openJournalDB(t)
	svc, _ := newJournal(t, conn)
	accountID := uuid.New()

	for i := 0; i < 3; i++ {
		txn, err := BuildEntry(AppendInput{
			AccountID: accountID,
			Kind:      enums.TransactionKindAccrualCredit,
			Amount:    decimal.NewFromInt(int64(i + 1)),
			Status:    enums.TransactionStatusCompleted,
		})
		require.NoError(t, err)
		txn.CreatedAt = time.Now().UTC().Add(time.Duration(i) * time.Minute)
		require.NoError(t, conn.Create(txn).Error)
	}

	history, err := svc.History(context.Background(), accountID, 2)
	require.NoError(t, err)
	require.Len(t, history, 2)
	require.True(t, history[0].CreatedAt.After(history[1].CreatedAt))
}
