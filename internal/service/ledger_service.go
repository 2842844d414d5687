package service

import (
	"context"
	"log/slog"

	"connectrpc.com/connect"

	"github.com/mmynk/splitwiser/internal/ledger"
	"github.com/mmynk/splitwiser/internal/models"
	"github.com/mmynk/splitwiser/pkg/api"
)

// LedgerService implements the Connect LedgerService over a ledger.Ledger.
// The caller's identity comes from the auth interceptor; the caller is the
// payer of every expense they create.
type LedgerService struct {
	ledger    *ledger.Ledger
	validator *requestValidator
}

// NewLedgerService creates a new LedgerService.
func NewLedgerService(l *ledger.Ledger) *LedgerService {
	return &LedgerService{ledger: l, validator: newRequestValidator()}
}

// CalculateSplits previews how an amount would be divided.
func (s *LedgerService) CalculateSplits(ctx context.Context, req *connect.Request[api.CalculateSplitsRequest]) (*connect.Response[api.CalculateSplitsResponse], error) {
	userID, err := callerID(ctx)
	if err != nil {
		return nil, err
	}
	if err := s.validator.check(req.Msg); err != nil {
		return nil, err
	}

	payerID := req.Msg.PayerID
	if payerID == "" {
		payerID = userID
	}
	splits, err := s.ledger.ComputeSplits(req.Msg.Amount, payerID, req.Msg.ParticipantIDs,
		splitKind(req.Msg.SplitKind), fromAPIShares(req.Msg.Shares))
	if err != nil {
		return nil, toConnectError("CalculateSplits", err)
	}

	return connect.NewResponse(&api.CalculateSplitsResponse{Splits: toAPISplits(splits)}), nil
}

// CreateExpense records an expense paid by the caller and returns the
// obligations it generated.
func (s *LedgerService) CreateExpense(ctx context.Context, req *connect.Request[api.CreateExpenseRequest]) (*connect.Response[api.CreateExpenseResponse], error) {
	userID, err := callerID(ctx)
	if err != nil {
		return nil, err
	}
	if err := s.validator.check(req.Msg); err != nil {
		return nil, err
	}
	slog.Info("CreateExpense request received",
		"user_id", userID,
		"group_id", req.Msg.GroupID,
		"split_kind", req.Msg.SplitKind,
		"participants", len(req.Msg.ParticipantIDs)+len(req.Msg.Shares)+len(req.Msg.Splits),
	)

	kind := splitKind(req.Msg.SplitKind)
	var splits []models.Split
	if len(req.Msg.Splits) > 0 {
		if req.Msg.SplitKind == "" {
			kind = models.SplitUnequal
		}
		splits = fromAPISplits(req.Msg.Splits)
	} else {
		splits, err = s.ledger.ComputeSplits(req.Msg.Amount, userID, req.Msg.ParticipantIDs,
			kind, fromAPIShares(req.Msg.Shares))
		if err != nil {
			return nil, toConnectError("CreateExpense", err)
		}
	}

	expense, obligations, err := s.ledger.CreateExpense(ctx, ledger.NewExpense{
		Description: req.Msg.Description,
		Amount:      req.Msg.Amount,
		PayerID:     userID,
		GroupID:     req.Msg.GroupID,
		Category:    req.Msg.Category,
		Kind:        kind,
		Splits:      splits,
		Date:        req.Msg.Date,
	})
	if err != nil {
		return nil, toConnectError("CreateExpense", err)
	}

	return connect.NewResponse(&api.CreateExpenseResponse{
		Expense:     toAPIExpense(expense),
		Obligations: toAPIObligations(obligations),
	}), nil
}

// GetExpense returns one expense visible to the caller.
func (s *LedgerService) GetExpense(ctx context.Context, req *connect.Request[api.GetExpenseRequest]) (*connect.Response[api.GetExpenseResponse], error) {
	userID, err := callerID(ctx)
	if err != nil {
		return nil, err
	}
	if err := s.validator.check(req.Msg); err != nil {
		return nil, err
	}

	expense, err := s.ledger.GetExpense(ctx, req.Msg.ExpenseID, userID)
	if err != nil {
		return nil, toConnectError("GetExpense", err)
	}
	return connect.NewResponse(&api.GetExpenseResponse{Expense: toAPIExpense(expense)}), nil
}

// ListExpenses returns a group's expenses or every expense involving the caller.
func (s *LedgerService) ListExpenses(ctx context.Context, req *connect.Request[api.ListExpensesRequest]) (*connect.Response[api.ListExpensesResponse], error) {
	userID, err := callerID(ctx)
	if err != nil {
		return nil, err
	}

	expenses, err := s.ledger.ListExpenses(ctx, userID, req.Msg.GroupID)
	if err != nil {
		return nil, toConnectError("ListExpenses", err)
	}

	out := make([]api.Expense, len(expenses))
	for i, e := range expenses {
		out[i] = toAPIExpense(e)
	}
	return connect.NewResponse(&api.ListExpensesResponse{Expenses: out}), nil
}

// DeleteExpense deletes an expense the caller paid, with its obligations.
func (s *LedgerService) DeleteExpense(ctx context.Context, req *connect.Request[api.DeleteExpenseRequest]) (*connect.Response[api.DeleteExpenseResponse], error) {
	userID, err := callerID(ctx)
	if err != nil {
		return nil, err
	}
	if err := s.validator.check(req.Msg); err != nil {
		return nil, err
	}

	if err := s.ledger.DeleteExpense(ctx, req.Msg.ExpenseID, userID); err != nil {
		return nil, toConnectError("DeleteExpense", err)
	}
	return connect.NewResponse(&api.DeleteExpenseResponse{}), nil
}

// GetBalances returns the caller's net balance with each counterparty.
func (s *LedgerService) GetBalances(ctx context.Context, req *connect.Request[api.GetBalancesRequest]) (*connect.Response[api.GetBalancesResponse], error) {
	userID, err := callerID(ctx)
	if err != nil {
		return nil, err
	}

	balances, err := s.ledger.GetBalances(ctx, userID)
	if err != nil {
		return nil, toConnectError("GetBalances", err)
	}

	out := make([]api.Balance, len(balances))
	for i, b := range balances {
		out[i] = api.Balance{CounterpartyID: b.CounterpartyID, Net: b.Net}
	}
	return connect.NewResponse(&api.GetBalancesResponse{Balances: out}), nil
}

// ListObligations returns the obligations the caller is party to.
func (s *LedgerService) ListObligations(ctx context.Context, req *connect.Request[api.ListObligationsRequest]) (*connect.Response[api.ListObligationsResponse], error) {
	userID, err := callerID(ctx)
	if err != nil {
		return nil, err
	}
	if err := s.validator.check(req.Msg); err != nil {
		return nil, err
	}

	obligations, err := s.ledger.ListObligations(ctx, userID, ledger.ObligationFilter{
		GroupID: req.Msg.GroupID,
		Status:  models.ObligationStatus(req.Msg.Status),
	})
	if err != nil {
		return nil, toConnectError("ListObligations", err)
	}
	return connect.NewResponse(&api.ListObligationsResponse{Obligations: toAPIObligations(obligations)}), nil
}

// SettleObligation settles an obligation the caller owes.
func (s *LedgerService) SettleObligation(ctx context.Context, req *connect.Request[api.SettleObligationRequest]) (*connect.Response[api.SettleObligationResponse], error) {
	userID, err := callerID(ctx)
	if err != nil {
		return nil, err
	}
	if err := s.validator.check(req.Msg); err != nil {
		return nil, err
	}

	o, err := s.ledger.Settle(ctx, req.Msg.ObligationID, userID)
	if err != nil {
		return nil, toConnectError("SettleObligation", err)
	}
	return connect.NewResponse(&api.SettleObligationResponse{Obligation: toAPIObligation(o)}), nil
}

// splitKind defaults an empty kind to an equal split.
func splitKind(kind string) models.SplitKind {
	if kind == "" {
		return models.SplitEqual
	}
	return models.SplitKind(kind)
}
