//go:build integration

package repository

import (
	"context"
	"errors"
	"testing"

	"github.com/perflog/perflog/internal/migrate"
	"github.com/perflog/perflog/internal/model"
	"github.com/perflog/perflog/internal/testutil"
)

// ============================================================================
// Tx Status Repository Integration Tests
// ============================================================================

func TestIntegrationTxStatus_InsertAndGet(t *testing.T) {
	ctx, repo := newTxStatusTestEnv(t)

	status := testutil.NewTestTxStatus(t, model.TxTypeCoinTransfer)
	if err := repo.InsertTxStatus(ctx, status); err != nil {
		t.Fatalf("InsertTxStatus failed: %v", err)
	}

	got, err := repo.GetTxStatus(ctx, status.TxHash)
	if err != nil {
		t.Fatalf("GetTxStatus failed: %v", err)
	}
	if got.Type != status.Type {
		t.Errorf("Type = %q, want %q", got.Type, status.Type)
	}
	if got.To != status.To || got.From != status.From {
		t.Errorf("addresses = %q/%q, want %q/%q", got.To, got.From, status.To, status.From)
	}
	if got.Accepted != status.Accepted {
		t.Errorf("Accepted = %d, want %d", got.Accepted, status.Accepted)
	}
	if got.CreatedAt.IsZero() {
		t.Error("CreatedAt should be set")
	}
}

func TestIntegrationTxStatus_DuplicateHash(t *testing.T) {
	ctx, repo := newTxStatusTestEnv(t)

	status := testutil.NewTestTxStatus(t, model.TxTypeContractCall)
	if err := repo.InsertTxStatus(ctx, status); err != nil {
		t.Fatalf("first insert failed: %v", err)
	}
	if err := repo.InsertTxStatus(ctx, status); !errors.Is(err, ErrTxStatusExists) {
		t.Fatalf("expected ErrTxStatusExists, got %v", err)
	}
}

func TestIntegrationTxStatus_DeploymentHasNoRecipient(t *testing.T) {
	ctx, repo := newTxStatusTestEnv(t)

	status := testutil.NewTestTxStatus(t, model.TxTypeDeployment)
	status.To = ""
	if err := repo.InsertTxStatus(ctx, status); err != nil {
		t.Fatalf("InsertTxStatus failed: %v", err)
	}

	var isNull bool
	if err := repo.Pool().QueryRow(ctx, `SELECT "to" IS NULL FROM transactions WHERE hash = $1`, status.TxHash).Scan(&isNull); err != nil {
		t.Fatalf("query failed: %v", err)
	}
	if !isNull {
		t.Error("deployment recipient should be stored as NULL")
	}
}

func TestIntegrationTxStatus_NotFound(t *testing.T) {
	ctx, repo := newTxStatusTestEnv(t)

	if _, err := repo.GetTxStatus(ctx, testutil.UniqueID("0xmissing")); !errors.Is(err, ErrTxStatusNotFound) {
		t.Fatalf("expected ErrTxStatusNotFound, got %v", err)
	}
}

func TestIntegrationTxStatus_List(t *testing.T) {
	ctx, repo := newTxStatusTestEnv(t)

	transfer := testutil.NewTestTxStatus(t, model.TxTypeCoinTransfer)
	call := testutil.NewTestTxStatus(t, model.TxTypeContractCall)
	call.Accepted = model.ReasonCode(model.ReasonMaxLoad)
	for _, s := range []*model.DetailedTxStatus{transfer, call} {
		if err := repo.InsertTxStatus(ctx, s); err != nil {
			t.Fatalf("InsertTxStatus failed: %v", err)
		}
	}

	byType, err := repo.ListTxStatuses(ctx, TxStatusFilter{Types: []string{string(model.TxTypeCoinTransfer)}})
	if err != nil {
		t.Fatalf("ListTxStatuses failed: %v", err)
	}
	if len(byType) != 1 || byType[0].TxHash != transfer.TxHash {
		t.Errorf("type filter returned %d rows", len(byType))
	}

	accepted := call.Accepted
	byCode, err := repo.ListTxStatuses(ctx, TxStatusFilter{Accepted: &accepted})
	if err != nil {
		t.Fatalf("ListTxStatuses failed: %v", err)
	}
	if len(byCode) != 1 || byCode[0].TxHash != call.TxHash {
		t.Errorf("accepted filter returned %d rows", len(byCode))
	}
}

// ============================================================================
// Test Environment Setup
// ============================================================================

func newTxStatusTestEnv(t *testing.T) (context.Context, *Repository) {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping integration tests in short mode")
	}

	ctx := context.Background()
	dbURL := testutil.RequireEnv(t, "DATABASE_URL")

	runner, err := migrate.New(dbURL, nil)
	if err != nil {
		t.Fatalf("migrate runner: %v", err)
	}
	if err := runner.Up(ctx); err != nil {
		t.Fatalf("apply migrations: %v", err)
	}

	repo, err := New(ctx, dbURL, PoolOptions{MaxConns: 4})
	if err != nil {
		t.Fatalf("connect db: %v", err)
	}
	t.Cleanup(repo.Close)

	unlock, err := testutil.AcquireDBLock(ctx, repo.Pool())
	if err != nil {
		t.Fatalf("acquire db lock: %v", err)
	}
	t.Cleanup(func() {
		_ = unlock()
	})

	if err := testutil.TruncateTransactions(ctx, repo.Pool()); err != nil {
		t.Fatalf("truncate transactions: %v", err)
	}

	return ctx, repo
}
