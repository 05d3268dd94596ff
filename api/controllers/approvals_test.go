package controllers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/vaultline/vaultyield-backend/internal/approvals"
	"github.com/vaultline/vaultyield-backend/pkg/db/models"
	"github.com/vaultline/vaultyield-backend/pkg/enums"
	pkgerrors "github.com/vaultline/vaultyield-backend/pkg/errors"
)

type testApprovalsService struct {
	depositFn    func(ctx context.Context, input approvals.DepositInput) (*models.Transaction, error)
	withdrawalFn func(ctx context.Context, input approvals.WithdrawalInput) (*models.Transaction, error)
	approveFn    func(ctx context.Context, id uuid.UUID) (*models.Transaction, error)
	rejectFn     func(ctx context.Context, id uuid.UUID, reason string) (*models.Transaction, error)
}

func (s *testApprovalsService) RequestDeposit(ctx context.Context, input approvals.DepositInput) (*models.Transaction, error) {
	if s.depositFn != nil {
		return s.depositFn(ctx, input)
	}
	return nil, nil
}

func (s *testApprovalsService) RequestWithdrawal(ctx context.Context, input approvals.WithdrawalInput) (*models.Transaction, error) {
	if s.withdrawalFn != nil {
		return s.withdrawalFn(ctx, input)
	}
	return nil, nil
}

func (s *testApprovalsService) Approve(ctx context.Context, id uuid.UUID) (*models.Transaction, error) {
	if s.approveFn != nil {
		return s.approveFn(ctx, id)
	}
	return nil, nil
}

func (s *testApprovalsService) Reject(ctx context.Context, id uuid.UUID, reason string) (*models.Transaction, error) {
	if s.rejectFn != nil {
		return s.rejectFn(ctx, id, reason)
	}
	return nil, nil
}

func TestRequestDepositSuccess(t *testing.T) {
	accountID := uuid.New()
	var gotInput approvals.DepositInput
	svc := &testApprovalsService{
		depositFn: func(ctx context.Context, input approvals.DepositInput) (*models.Transaction, error) {
			gotInput = input
			return &models.Transaction{ID: uuid.New(), Status: enums.TransactionStatusPending}, nil
		},
	}

	body := `{"account_id":"` + accountID.String() + `","amount":"250.50","proof_key":"0xabc123"}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/deposits", strings.NewReader(body))
	resp := httptest.NewRecorder()
	RequestDeposit(svc, testingLogger())(resp, req)

	if resp.Code != http.StatusCreated {
		t.Fatalf("unexpected status %d: %s", resp.Code, resp.Body.String())
	}
	if gotInput.AccountID != accountID || gotInput.ProofKey != "0xabc123" {
		t.Fatalf("unexpected input %+v", gotInput)
	}
	if !gotInput.Amount.Equal(decimal.RequireFromString("250.50")) {
		t.Fatalf("unexpected amount %s", gotInput.Amount)
	}
}

func TestRequestDepositRequiresProofKey(t *testing.T) {
	svc := &testApprovalsService{
		depositFn: func(ctx context.Context, input approvals.DepositInput) (*models.Transaction, error) {
			t.Fatal("service should not run")
			return nil, nil
		},
	}

	body := `{"account_id":"` + uuid.NewString() + `","amount":"250.50"}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/deposits", strings.NewReader(body))
	resp := httptest.NewRecorder()
	RequestDeposit(svc, testingLogger())(resp, req)

	if resp.Code != http.StatusBadRequest {
		t.Fatalf("unexpected status %d", resp.Code)
	}
}

func TestRequestDepositMapsDuplicateHash(t *testing.T) {
	svc := &testApprovalsService{
		depositFn: func(ctx context.Context, input approvals.DepositInput) (*models.Transaction, error) {
			return nil, pkgerrors.New(pkgerrors.CodeDuplicateHash, "proof key already submitted")
		},
	}

	body := `{"account_id":"` + uuid.NewString() + `","amount":"250.50","proof_key":"0xabc123"}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/deposits", strings.NewReader(body))
	resp := httptest.NewRecorder()
	RequestDeposit(svc, testingLogger())(resp, req)

	if resp.Code != http.StatusConflict {
		t.Fatalf("unexpected status %d", resp.Code)
	}
}

func TestApproveTransactionRouteParam(t *testing.T) {
	txnID := uuid.New()
	svc := &testApprovalsService{
		approveFn: func(ctx context.Context, id uuid.UUID) (*models.Transaction, error) {
			if id != txnID {
				t.Fatalf("unexpected id %s", id)
			}
			return &models.Transaction{ID: id, Status: enums.TransactionStatusCompleted}, nil
		},
	}

	req := httptest.NewRequest(http.MethodPost, "/api/admin/v1/approvals/"+txnID.String()+"/approve", nil)
	routeCtx := chi.NewRouteContext()
	routeCtx.URLParams.Add("transactionId", txnID.String())
	req = req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, routeCtx))

	resp := httptest.NewRecorder()
	ApproveTransaction(svc, testingLogger())(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("unexpected status %d", resp.Code)
	}
}

func TestRejectTransactionRequiresReason(t *testing.T) {
	svc := &testApprovalsService{
		rejectFn: func(ctx context.Context, id uuid.UUID, reason string) (*models.Transaction, error) {
			t.Fatal("service should not run")
			return nil, nil
		},
	}

	txnID := uuid.New()
	req := httptest.NewRequest(http.MethodPost, "/api/admin/v1/approvals/"+txnID.String()+"/reject", strings.NewReader(`{}`))
	routeCtx := chi.NewRouteContext()
	routeCtx.URLParams.Add("transactionId", txnID.String())
	req = req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, routeCtx))

	resp := httptest.NewRecorder()
	RejectTransaction(svc, testingLogger())(resp, req)

	if resp.Code != http.StatusBadRequest {
		t.Fatalf("unexpected status %d", resp.Code)
	}
}

func TestRejectTransactionResolvedConflict(t *testing.T) {
	svc := &testApprovalsService{
		rejectFn: func(ctx context.Context, id uuid.UUID, reason string) (*models.Transaction, error) {
			return nil, pkgerrors.New(pkgerrors.CodeTransactionNotPending, "transaction already resolved")
		},
	}

	txnID := uuid.New()
	req := httptest.NewRequest(http.MethodPost, "/api/admin/v1/approvals/"+txnID.String()+"/reject", strings.NewReader(`{"reason":"proof mismatch"}`))
	routeCtx := chi.NewRouteContext()
	routeCtx.URLParams.Add("transactionId", txnID.String())
	req = req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, routeCtx))

	resp := httptest.NewRecorder()
	RejectTransaction(svc, testingLogger())(resp, req)

	if resp.Code != http.StatusConflict {
		t.Fatalf("unexpected status %d", resp.Code)
	}
	var envelope struct {
		Error struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	if err := json.Unmarshal(resp.Body.Bytes(), &envelope); err != nil {
		t.Fatalf("unmarshal response: %v", err)
	}
	if envelope.Error.Code != string(pkgerrors.CodeTransactionNotPending) {
		t.Fatalf("unexpected code %s", envelope.Error.Code)
	}
}
