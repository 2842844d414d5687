package service

import (
	"context"
	"sync"
	"testing"

	"connectrpc.com/connect"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/mmynk/splitwiser/internal/metrics"
	"github.com/mmynk/splitwiser/pkg/api"
)

func TestCalculateSplits(t *testing.T) {
	c := setupTestServer(t)
	alice := c.register(t, "Alice")

	resp, err := c.ledger.CalculateSplits(context.Background(), as(alice, &api.CalculateSplitsRequest{
		Amount:         d("100"),
		ParticipantIDs: []string{"bob", "carol"},
	}))
	if err != nil {
		t.Fatalf("CalculateSplits failed: %v", err)
	}

	want := []struct{ user, amount string }{
		{alice.id, "33.34"},
		{"bob", "33.33"},
		{"carol", "33.33"},
	}
	if len(resp.Msg.Splits) != len(want) {
		t.Fatalf("splits: got %d, want %d", len(resp.Msg.Splits), len(want))
	}
	for i, w := range want {
		got := resp.Msg.Splits[i]
		if got.UserID != w.user || got.Amount.StringFixed(2) != w.amount {
			t.Errorf("split %d = %s %s, want %s %s", i, got.UserID, got.Amount.StringFixed(2), w.user, w.amount)
		}
	}

	_, err = c.ledger.CalculateSplits(context.Background(), as(alice, &api.CalculateSplitsRequest{
		Amount:    d("100"),
		SplitKind: "percentage",
		Shares:    []api.Share{{UserID: "bob", Percentage: ptr(d("60"))}},
	}))
	assertCode(t, err, connect.CodeInvalidArgument)
}

func TestLedgerService_ExpenseLifecycle(t *testing.T) {
	c := setupTestServer(t)
	ctx := context.Background()
	alice := c.register(t, "Alice")
	bob := c.register(t, "Bob")
	carol := c.register(t, "Carol")

	okBefore := testutil.ToFloat64(metrics.RPCRequests.WithLabelValues(api.LedgerServiceCreateExpenseProcedure, "ok"))

	created, err := c.ledger.CreateExpense(ctx, as(alice, &api.CreateExpenseRequest{
		Description:    "Dinner",
		Amount:         d("100"),
		ParticipantIDs: []string{bob.id, carol.id},
	}))
	if err != nil {
		t.Fatalf("CreateExpense failed: %v", err)
	}
	expense := created.Msg.Expense
	if expense.PayerID != alice.id || expense.SplitKind != "equal" || expense.Category != "General" {
		t.Errorf("unexpected expense: %+v", expense)
	}
	if len(created.Msg.Obligations) != 2 {
		t.Fatalf("obligations: got %d, want 2", len(created.Msg.Obligations))
	}
	if got := testutil.ToFloat64(metrics.RPCRequests.WithLabelValues(api.LedgerServiceCreateExpenseProcedure, "ok")); got != okBefore+1 {
		t.Errorf("rpc counter = %v, want %v", got, okBefore+1)
	}

	var bobsDebt api.Obligation
	for _, o := range created.Msg.Obligations {
		if o.DebtorID == bob.id {
			bobsDebt = o
		}
	}

	t.Run("balances net from both sides", func(t *testing.T) {
		got := balanceOf(t, c, alice)
		if got[bob.id] != "-33.33" || got[carol.id] != "-33.33" {
			t.Errorf("alice balances = %v", got)
		}
		if got := balanceOf(t, c, bob); got[alice.id] != "33.33" {
			t.Errorf("bob balances = %v", got)
		}
	})

	t.Run("expense visibility", func(t *testing.T) {
		resp, err := c.ledger.GetExpense(ctx, as(carol, &api.GetExpenseRequest{ExpenseID: expense.ID}))
		if err != nil {
			t.Fatalf("GetExpense failed: %v", err)
		}
		if len(resp.Msg.Expense.Splits) != 3 {
			t.Errorf("splits: got %d, want 3", len(resp.Msg.Expense.Splits))
		}

		dave := c.register(t, "Dave")
		_, err = c.ledger.GetExpense(ctx, as(dave, &api.GetExpenseRequest{ExpenseID: expense.ID}))
		assertCode(t, err, connect.CodePermissionDenied)

		list, err := c.ledger.ListExpenses(ctx, as(bob, &api.ListExpensesRequest{}))
		if err != nil {
			t.Fatalf("ListExpenses failed: %v", err)
		}
		if len(list.Msg.Expenses) != 1 {
			t.Errorf("bob sees %d expenses, want 1", len(list.Msg.Expenses))
		}
	})

	t.Run("settlement rules", func(t *testing.T) {
		_, err := c.ledger.SettleObligation(ctx, as(carol, &api.SettleObligationRequest{ObligationID: bobsDebt.ID}))
		assertCode(t, err, connect.CodePermissionDenied)

		resp, err := c.ledger.SettleObligation(ctx, as(bob, &api.SettleObligationRequest{ObligationID: bobsDebt.ID}))
		if err != nil {
			t.Fatalf("SettleObligation failed: %v", err)
		}
		if resp.Msg.Obligation.Status != "settled" || resp.Msg.Obligation.SettledAt == 0 {
			t.Errorf("unexpected obligation: %+v", resp.Msg.Obligation)
		}

		_, err = c.ledger.SettleObligation(ctx, as(bob, &api.SettleObligationRequest{ObligationID: bobsDebt.ID}))
		assertCode(t, err, connect.CodeFailedPrecondition)

		_, err = c.ledger.SettleObligation(ctx, as(bob, &api.SettleObligationRequest{ObligationID: "missing"}))
		assertCode(t, err, connect.CodeNotFound)

		if got := balanceOf(t, c, bob); got[alice.id] != "0.00" {
			t.Errorf("settled relationship should show 0, got %v", got)
		}

		pending, err := c.ledger.ListObligations(ctx, as(alice, &api.ListObligationsRequest{Status: "pending"}))
		if err != nil {
			t.Fatalf("ListObligations failed: %v", err)
		}
		if len(pending.Msg.Obligations) != 1 || pending.Msg.Obligations[0].DebtorID != carol.id {
			t.Errorf("unexpected pending obligations: %+v", pending.Msg.Obligations)
		}

		_, err = c.ledger.ListObligations(ctx, as(alice, &api.ListObligationsRequest{Status: "void"}))
		assertCode(t, err, connect.CodeInvalidArgument)
	})

	t.Run("delete rules", func(t *testing.T) {
		_, err := c.ledger.DeleteExpense(ctx, as(bob, &api.DeleteExpenseRequest{ExpenseID: expense.ID}))
		assertCode(t, err, connect.CodePermissionDenied)

		if _, err := c.ledger.DeleteExpense(ctx, as(alice, &api.DeleteExpenseRequest{ExpenseID: expense.ID})); err != nil {
			t.Fatalf("DeleteExpense failed: %v", err)
		}
		_, err = c.ledger.GetExpense(ctx, as(alice, &api.GetExpenseRequest{ExpenseID: expense.ID}))
		assertCode(t, err, connect.CodeNotFound)
		if got := balanceOf(t, c, alice); len(got) != 0 {
			t.Errorf("balances should be empty after delete, got %v", got)
		}
	})
}

func TestLedgerService_ExplicitSplits(t *testing.T) {
	c := setupTestServer(t)
	ctx := context.Background()
	alice := c.register(t, "Alice")
	bob := c.register(t, "Bob")

	t.Run("percentage shares", func(t *testing.T) {
		resp, err := c.ledger.CreateExpense(ctx, as(alice, &api.CreateExpenseRequest{
			Description: "Rent",
			Amount:      d("200"),
			SplitKind:   "percentage",
			Shares: []api.Share{
				{UserID: alice.id, Percentage: ptr(d("75"))},
				{UserID: bob.id, Percentage: ptr(d("25"))},
			},
		}))
		if err != nil {
			t.Fatalf("CreateExpense failed: %v", err)
		}
		obligations := resp.Msg.Obligations
		if len(obligations) != 1 || obligations[0].DebtorID != bob.id || obligations[0].Amount.StringFixed(2) != "50.00" {
			t.Errorf("unexpected obligations: %+v", obligations)
		}
		if resp.Msg.Expense.Splits[1].Percentage == nil {
			t.Error("percentage should be recorded on the split")
		}
	})

	t.Run("precomputed splits", func(t *testing.T) {
		resp, err := c.ledger.CreateExpense(ctx, as(alice, &api.CreateExpenseRequest{
			Description: "Taxi",
			Amount:      d("30"),
			Splits: []api.Split{
				{UserID: alice.id, Amount: d("10")},
				{UserID: bob.id, Amount: d("20")},
			},
		}))
		if err != nil {
			t.Fatalf("CreateExpense failed: %v", err)
		}
		if resp.Msg.Expense.SplitKind != "unequal" {
			t.Errorf("SplitKind = %q, want unequal", resp.Msg.Expense.SplitKind)
		}
	})

	t.Run("splits that do not add up", func(t *testing.T) {
		_, err := c.ledger.CreateExpense(ctx, as(alice, &api.CreateExpenseRequest{
			Description: "Taxi",
			Amount:      d("30"),
			Splits: []api.Split{
				{UserID: alice.id, Amount: d("10")},
				{UserID: bob.id, Amount: d("10")},
			},
		}))
		assertCode(t, err, connect.CodeInvalidArgument)
	})

	t.Run("request validation", func(t *testing.T) {
		_, err := c.ledger.CreateExpense(ctx, as(alice, &api.CreateExpenseRequest{Amount: d("10")}))
		assertCode(t, err, connect.CodeInvalidArgument)

		_, err = c.ledger.CreateExpense(ctx, as(alice, &api.CreateExpenseRequest{Description: "x", Amount: d("0")}))
		assertCode(t, err, connect.CodeInvalidArgument)

		_, err = c.ledger.CreateExpense(ctx, as(alice, &api.CreateExpenseRequest{Description: "x", Amount: d("10"), SplitKind: "random"}))
		assertCode(t, err, connect.CodeInvalidArgument)
	})

	t.Run("unauthenticated", func(t *testing.T) {
		_, err := c.ledger.CreateExpense(ctx, connect.NewRequest(&api.CreateExpenseRequest{Description: "x", Amount: d("10")}))
		assertCode(t, err, connect.CodeUnauthenticated)
	})
}

func TestLedgerService_ConcurrentSettle(t *testing.T) {
	c := setupTestServer(t)
	ctx := context.Background()
	alice := c.register(t, "Alice")
	bob := c.register(t, "Bob")

	created, err := c.ledger.CreateExpense(ctx, as(alice, &api.CreateExpenseRequest{
		Description:    "Tickets",
		Amount:         d("40"),
		ParticipantIDs: []string{bob.id},
	}))
	if err != nil {
		t.Fatalf("CreateExpense failed: %v", err)
	}
	id := created.Msg.Obligations[0].ID

	const callers = 6
	var (
		wg    sync.WaitGroup
		mu    sync.Mutex
		codes = map[string]int{}
	)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := c.ledger.SettleObligation(ctx, as(bob, &api.SettleObligationRequest{ObligationID: id}))
			key := "ok"
			if err != nil {
				key = connect.CodeOf(err).String()
			}
			mu.Lock()
			codes[key]++
			mu.Unlock()
		}()
	}
	wg.Wait()

	if codes["ok"] != 1 || codes[connect.CodeFailedPrecondition.String()] != callers-1 {
		t.Errorf("outcomes = %v, want one ok and %d failed_precondition", codes, callers-1)
	}
}
