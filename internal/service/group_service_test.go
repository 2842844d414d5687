package service

import (
	"context"
	"testing"

	"connectrpc.com/connect"

	"github.com/mmynk/splitwiser/pkg/api"
)

func TestGroupService(t *testing.T) {
	c := setupTestServer(t)
	ctx := context.Background()
	alice := c.register(t, "Alice")
	bob := c.register(t, "Bob")
	carol := c.register(t, "Carol")
	dave := c.register(t, "Dave")

	created, err := c.groups.CreateGroup(ctx, as(alice, &api.CreateGroupRequest{
		Name:      "Roommates",
		MemberIDs: []string{bob.id},
	}))
	if err != nil {
		t.Fatalf("CreateGroup failed: %v", err)
	}
	group := created.Msg.Group
	if group.ID == "" || group.CreatedBy != alice.id || len(group.Members) != 2 {
		t.Fatalf("unexpected group: %+v", group)
	}
	if group.Members[0].UserID != alice.id || group.Members[0].Role != "admin" {
		t.Errorf("creator should be admin: %+v", group.Members[0])
	}

	t.Run("create requires known members", func(t *testing.T) {
		_, err := c.groups.CreateGroup(ctx, as(alice, &api.CreateGroupRequest{Name: "Ghosts", MemberIDs: []string{"nobody"}}))
		assertCode(t, err, connect.CodeNotFound)

		_, err = c.groups.CreateGroup(ctx, as(alice, &api.CreateGroupRequest{}))
		assertCode(t, err, connect.CodeInvalidArgument)
	})

	t.Run("only members can read", func(t *testing.T) {
		if _, err := c.groups.GetGroup(ctx, as(bob, &api.GetGroupRequest{GroupID: group.ID})); err != nil {
			t.Errorf("member GetGroup failed: %v", err)
		}
		_, err := c.groups.GetGroup(ctx, as(dave, &api.GetGroupRequest{GroupID: group.ID}))
		assertCode(t, err, connect.CodePermissionDenied)

		_, err = c.groups.GetGroup(ctx, as(alice, &api.GetGroupRequest{GroupID: "missing"}))
		assertCode(t, err, connect.CodeNotFound)
	})

	t.Run("only admins manage members", func(t *testing.T) {
		_, err := c.groups.AddMember(ctx, as(bob, &api.AddMemberRequest{GroupID: group.ID, UserID: carol.id}))
		assertCode(t, err, connect.CodePermissionDenied)

		resp, err := c.groups.AddMember(ctx, as(alice, &api.AddMemberRequest{GroupID: group.ID, UserID: carol.id}))
		if err != nil {
			t.Fatalf("AddMember failed: %v", err)
		}
		if len(resp.Msg.Group.Members) != 3 {
			t.Errorf("members: got %d, want 3", len(resp.Msg.Group.Members))
		}

		_, err = c.groups.AddMember(ctx, as(alice, &api.AddMemberRequest{GroupID: group.ID, UserID: carol.id}))
		assertCode(t, err, connect.CodeAlreadyExists)

		_, err = c.groups.AddMember(ctx, as(alice, &api.AddMemberRequest{GroupID: group.ID, UserID: "nobody"}))
		assertCode(t, err, connect.CodeNotFound)
	})

	t.Run("group expenses and balances", func(t *testing.T) {
		_, err := c.ledger.CreateExpense(ctx, as(carol, &api.CreateExpenseRequest{
			Description:    "Groceries",
			Amount:         d("90"),
			GroupID:        group.ID,
			ParticipantIDs: []string{alice.id, bob.id},
		}))
		if err != nil {
			t.Fatalf("CreateExpense failed: %v", err)
		}

		_, err = c.ledger.CreateExpense(ctx, as(dave, &api.CreateExpenseRequest{
			Description: "Sneaky",
			Amount:      d("10"),
			GroupID:     group.ID,
		}))
		assertCode(t, err, connect.CodePermissionDenied)

		list, err := c.ledger.ListExpenses(ctx, as(bob, &api.ListExpensesRequest{GroupID: group.ID}))
		if err != nil {
			t.Fatalf("ListExpenses failed: %v", err)
		}
		if len(list.Msg.Expenses) != 1 {
			t.Errorf("group expenses: got %d, want 1", len(list.Msg.Expenses))
		}

		balances, err := c.groups.GetGroupBalances(ctx, as(alice, &api.GetGroupBalancesRequest{GroupID: group.ID}))
		if err != nil {
			t.Fatalf("GetGroupBalances failed: %v", err)
		}
		if len(balances.Msg.Debts) != 2 {
			t.Fatalf("debts: got %d, want 2", len(balances.Msg.Debts))
		}
		for _, debt := range balances.Msg.Debts {
			if debt.To != carol.id || debt.Amount.StringFixed(2) != "30.00" {
				t.Errorf("unexpected debt: %+v", debt)
			}
		}

		_, err = c.groups.GetGroupBalances(ctx, as(dave, &api.GetGroupBalancesRequest{GroupID: group.ID}))
		assertCode(t, err, connect.CodePermissionDenied)
	})

	t.Run("remove members", func(t *testing.T) {
		_, err := c.groups.RemoveMember(ctx, as(alice, &api.RemoveMemberRequest{GroupID: group.ID, UserID: alice.id}))
		assertCode(t, err, connect.CodeFailedPrecondition)

		resp, err := c.groups.RemoveMember(ctx, as(alice, &api.RemoveMemberRequest{GroupID: group.ID, UserID: bob.id}))
		if err != nil {
			t.Fatalf("RemoveMember failed: %v", err)
		}
		if len(resp.Msg.Group.Members) != 2 {
			t.Errorf("members: got %d, want 2", len(resp.Msg.Group.Members))
		}

		_, err = c.groups.RemoveMember(ctx, as(alice, &api.RemoveMemberRequest{GroupID: group.ID, UserID: bob.id}))
		assertCode(t, err, connect.CodeNotFound)
	})

	t.Run("list groups", func(t *testing.T) {
		resp, err := c.groups.ListGroups(ctx, as(carol, &api.ListGroupsRequest{}))
		if err != nil {
			t.Fatalf("ListGroups failed: %v", err)
		}
		if len(resp.Msg.Groups) != 1 || resp.Msg.Groups[0].ID != group.ID {
			t.Errorf("unexpected groups: %+v", resp.Msg.Groups)
		}

		resp, err = c.groups.ListGroups(ctx, as(dave, &api.ListGroupsRequest{}))
		if err != nil {
			t.Fatalf("ListGroups failed: %v", err)
		}
		if len(resp.Msg.Groups) != 0 {
			t.Errorf("dave should have no groups: %+v", resp.Msg.Groups)
		}
	})
}
