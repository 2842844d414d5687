package api

import (
	"context"
	"net/http"

	"connectrpc.com/connect"
	"github.com/shopspring/decimal"
)

// LedgerServiceName is the fully-qualified name of the ledger service.
const LedgerServiceName = "splitwiser.v1.LedgerService"

// Ledger service procedures.
const (
	LedgerServiceCalculateSplitsProcedure  = "/splitwiser.v1.LedgerService/CalculateSplits"
	LedgerServiceCreateExpenseProcedure    = "/splitwiser.v1.LedgerService/CreateExpense"
	LedgerServiceGetExpenseProcedure       = "/splitwiser.v1.LedgerService/GetExpense"
	LedgerServiceListExpensesProcedure     = "/splitwiser.v1.LedgerService/ListExpenses"
	LedgerServiceDeleteExpenseProcedure    = "/splitwiser.v1.LedgerService/DeleteExpense"
	LedgerServiceGetBalancesProcedure      = "/splitwiser.v1.LedgerService/GetBalances"
	LedgerServiceListObligationsProcedure  = "/splitwiser.v1.LedgerService/ListObligations"
	LedgerServiceSettleObligationProcedure = "/splitwiser.v1.LedgerService/SettleObligation"
)

// Split is one participant's share of an expense.
type Split struct {
	UserID     string           `json:"userId" validate:"required"`
	Amount     decimal.Decimal  `json:"amount"`
	Percentage *decimal.Decimal `json:"percentage,omitempty"`
	Shares     int64            `json:"shares,omitempty" validate:"gte=0"`
}

// Share is a caller-supplied line of an unequal, percentage or shares split.
type Share struct {
	UserID     string           `json:"userId" validate:"required"`
	Amount     *decimal.Decimal `json:"amount,omitempty"`
	Percentage *decimal.Decimal `json:"percentage,omitempty"`
	Shares     int64            `json:"shares,omitempty" validate:"gte=0"`
}

type Expense struct {
	ID          string          `json:"id"`
	Description string          `json:"description"`
	Amount      decimal.Decimal `json:"amount"`
	PayerID     string          `json:"payerId"`
	GroupID     string          `json:"groupId,omitempty"`
	Category    string          `json:"category"`
	SplitKind   string          `json:"splitKind"`
	Splits      []Split         `json:"splits"`
	Date        int64           `json:"date"`
	CreatedAt   int64           `json:"createdAt"`
}

type Obligation struct {
	ID         string          `json:"id"`
	DebtorID   string          `json:"debtorId"`
	CreditorID string          `json:"creditorId"`
	Amount     decimal.Decimal `json:"amount"`
	GroupID    string          `json:"groupId,omitempty"`
	ExpenseID  string          `json:"expenseId"`
	Status     string          `json:"status"`
	CreatedAt  int64           `json:"createdAt"`
	SettledAt  int64           `json:"settledAt,omitempty"`
}

// Balance is the caller's signed net position with one counterparty.
// Positive: the caller owes; negative: the counterparty owes the caller.
type Balance struct {
	CounterpartyID string          `json:"counterpartyId"`
	Net            decimal.Decimal `json:"net"`
}

// CalculateSplitsRequest previews a split without recording anything.
// PayerID defaults to the caller.
type CalculateSplitsRequest struct {
	Amount         decimal.Decimal `json:"amount"`
	PayerID        string          `json:"payerId,omitempty"`
	ParticipantIDs []string        `json:"participantIds,omitempty" validate:"dive,required"`
	SplitKind      string          `json:"splitKind,omitempty" validate:"omitempty,oneof=equal unequal percentage shares"`
	Shares         []Share         `json:"shares,omitempty" validate:"dive"`
}

type CalculateSplitsResponse struct {
	Splits []Split `json:"splits"`
}

// CreateExpenseRequest records an expense paid by the caller.
// Splits, when given, are stored as-is; otherwise they are computed from
// SplitKind, ParticipantIDs and Shares.
type CreateExpenseRequest struct {
	Description    string          `json:"description" validate:"required,max=200"`
	Amount         decimal.Decimal `json:"amount"`
	GroupID        string          `json:"groupId,omitempty"`
	Category       string          `json:"category,omitempty" validate:"max=50"`
	SplitKind      string          `json:"splitKind,omitempty" validate:"omitempty,oneof=equal unequal percentage shares"`
	ParticipantIDs []string        `json:"participantIds,omitempty" validate:"dive,required"`
	Shares         []Share         `json:"shares,omitempty" validate:"dive"`
	Splits         []Split         `json:"splits,omitempty" validate:"dive"`
	Date           int64           `json:"date,omitempty" validate:"gte=0"`
}

type CreateExpenseResponse struct {
	Expense     Expense      `json:"expense"`
	Obligations []Obligation `json:"obligations"`
}

type GetExpenseRequest struct {
	ExpenseID string `json:"expenseId" validate:"required"`
}

type GetExpenseResponse struct {
	Expense Expense `json:"expense"`
}

// ListExpensesRequest lists a group's expenses, or every expense involving
// the caller when GroupID is empty.
type ListExpensesRequest struct {
	GroupID string `json:"groupId,omitempty"`
}

type ListExpensesResponse struct {
	Expenses []Expense `json:"expenses"`
}

type DeleteExpenseRequest struct {
	ExpenseID string `json:"expenseId" validate:"required"`
}

type DeleteExpenseResponse struct{}

type GetBalancesRequest struct{}

type GetBalancesResponse struct {
	Balances []Balance `json:"balances"`
}

type ListObligationsRequest struct {
	GroupID string `json:"groupId,omitempty"`
	Status  string `json:"status,omitempty" validate:"omitempty,oneof=pending settled"`
}

type ListObligationsResponse struct {
	Obligations []Obligation `json:"obligations"`
}

type SettleObligationRequest struct {
	ObligationID string `json:"obligationId" validate:"required"`
}

type SettleObligationResponse struct {
	Obligation Obligation `json:"obligation"`
}

// LedgerServiceHandler is implemented by the server side of the ledger service.
type LedgerServiceHandler interface {
	CalculateSplits(context.Context, *connect.Request[CalculateSplitsRequest]) (*connect.Response[CalculateSplitsResponse], error)
	CreateExpense(context.Context, *connect.Request[CreateExpenseRequest]) (*connect.Response[CreateExpenseResponse], error)
	GetExpense(context.Context, *connect.Request[GetExpenseRequest]) (*connect.Response[GetExpenseResponse], error)
	ListExpenses(context.Context, *connect.Request[ListExpensesRequest]) (*connect.Response[ListExpensesResponse], error)
	DeleteExpense(context.Context, *connect.Request[DeleteExpenseRequest]) (*connect.Response[DeleteExpenseResponse], error)
	GetBalances(context.Context, *connect.Request[GetBalancesRequest]) (*connect.Response[GetBalancesResponse], error)
	ListObligations(context.Context, *connect.Request[ListObligationsRequest]) (*connect.Response[ListObligationsResponse], error)
	SettleObligation(context.Context, *connect.Request[SettleObligationRequest]) (*connect.Response[SettleObligationResponse], error)
}

// NewLedgerServiceHandler returns the path prefix and handler serving svc.
func NewLedgerServiceHandler(svc LedgerServiceHandler, opts ...connect.HandlerOption) (string, http.Handler) {
	m := newServiceMux(opts)
	handle(m, LedgerServiceCalculateSplitsProcedure, svc.CalculateSplits)
	handle(m, LedgerServiceCreateExpenseProcedure, svc.CreateExpense)
	handle(m, LedgerServiceGetExpenseProcedure, svc.GetExpense)
	handle(m, LedgerServiceListExpensesProcedure, svc.ListExpenses)
	handle(m, LedgerServiceDeleteExpenseProcedure, svc.DeleteExpense)
	handle(m, LedgerServiceGetBalancesProcedure, svc.GetBalances)
	handle(m, LedgerServiceListObligationsProcedure, svc.ListObligations)
	handle(m, LedgerServiceSettleObligationProcedure, svc.SettleObligation)
	return "/" + LedgerServiceName + "/", m.mux
}

// LedgerServiceClient calls the ledger service.
type LedgerServiceClient struct {
	calculateSplits  *connect.Client[CalculateSplitsRequest, CalculateSplitsResponse]
	createExpense    *connect.Client[CreateExpenseRequest, CreateExpenseResponse]
	getExpense       *connect.Client[GetExpenseRequest, GetExpenseResponse]
	listExpenses     *connect.Client[ListExpensesRequest, ListExpensesResponse]
	deleteExpense    *connect.Client[DeleteExpenseRequest, DeleteExpenseResponse]
	getBalances      *connect.Client[GetBalancesRequest, GetBalancesResponse]
	listObligations  *connect.Client[ListObligationsRequest, ListObligationsResponse]
	settleObligation *connect.Client[SettleObligationRequest, SettleObligationResponse]
}

// NewLedgerServiceClient creates a client for the ledger service at baseURL.
func NewLedgerServiceClient(httpClient connect.HTTPClient, baseURL string, opts ...connect.ClientOption) *LedgerServiceClient {
	return &LedgerServiceClient{
		calculateSplits:  unaryClient[CalculateSplitsRequest, CalculateSplitsResponse](httpClient, baseURL, LedgerServiceCalculateSplitsProcedure, opts),
		createExpense:    unaryClient[CreateExpenseRequest, CreateExpenseResponse](httpClient, baseURL, LedgerServiceCreateExpenseProcedure, opts),
		getExpense:       unaryClient[GetExpenseRequest, GetExpenseResponse](httpClient, baseURL, LedgerServiceGetExpenseProcedure, opts),
		listExpenses:     unaryClient[ListExpensesRequest, ListExpensesResponse](httpClient, baseURL, LedgerServiceListExpensesProcedure, opts),
		deleteExpense:    unaryClient[DeleteExpenseRequest, DeleteExpenseResponse](httpClient, baseURL, LedgerServiceDeleteExpenseProcedure, opts),
		getBalances:      unaryClient[GetBalancesRequest, GetBalancesResponse](httpClient, baseURL, LedgerServiceGetBalancesProcedure, opts),
		listObligations:  unaryClient[ListObligationsRequest, ListObligationsResponse](httpClient, baseURL, LedgerServiceListObligationsProcedure, opts),
		settleObligation: unaryClient[SettleObligationRequest, SettleObligationResponse](httpClient, baseURL, LedgerServiceSettleObligationProcedure, opts),
	}
}

func (c *LedgerServiceClient) CalculateSplits(ctx context.Context, req *connect.Request[CalculateSplitsRequest]) (*connect.Response[CalculateSplitsResponse], error) {
	return c.calculateSplits.CallUnary(ctx, req)
}

func (c *LedgerServiceClient) CreateExpense(ctx context.Context, req *connect.Request[CreateExpenseRequest]) (*connect.Response[CreateExpenseResponse], error) {
	return c.createExpense.CallUnary(ctx, req)
}

func (c *LedgerServiceClient) GetExpense(ctx context.Context, req *connect.Request[GetExpenseRequest]) (*connect.Response[GetExpenseResponse], error) {
	return c.getExpense.CallUnary(ctx, req)
}

func (c *LedgerServiceClient) ListExpenses(ctx context.Context, req *connect.Request[ListExpensesRequest]) (*connect.Response[ListExpensesResponse], error) {
	return c.listExpenses.CallUnary(ctx, req)
}

func (c *LedgerServiceClient) DeleteExpense(ctx context.Context, req *connect.Request[DeleteExpenseRequest]) (*connect.Response[DeleteExpenseResponse], error) {
	return c.deleteExpense.CallUnary(ctx, req)
}

func (c *LedgerServiceClient) GetBalances(ctx context.Context, req *connect.Request[GetBalancesRequest]) (*connect.Response[GetBalancesResponse], error) {
	return c.getBalances.CallUnary(ctx, req)
}

func (c *LedgerServiceClient) ListObligations(ctx context.Context, req *connect.Request[ListObligationsRequest]) (*connect.Response[ListObligationsResponse], error) {
	return c.listObligations.CallUnary(ctx, req)
}

func (c *LedgerServiceClient) SettleObligation(ctx context.Context, req *connect.Request[SettleObligationRequest]) (*connect.Response[SettleObligationResponse], error) {
	return c.settleObligation.CallUnary(ctx, req)
}
