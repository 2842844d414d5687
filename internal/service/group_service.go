package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"connectrpc.com/connect"

	"github.com/mmynk/splitwiser/internal/ledger"
	"github.com/mmynk/splitwiser/internal/models"
	"github.com/mmynk/splitwiser/internal/storage"
	"github.com/mmynk/splitwiser/pkg/api"
)

var (
	errNotGroupAdmin  = errors.New("only group admins can manage members")
	errRemoveCreator  = errors.New("the group creator cannot be removed")
	errAlreadyMember  = errors.New("user is already a member")
	errGroupNotFound  = errors.New("group not found")
	errMemberNotFound = errors.New("member not found")
)

// GroupStore is the storage the group service needs.
type GroupStore interface {
	storage.GroupStore
	storage.UserStore
}

// GroupService implements the Connect GroupService.
type GroupService struct {
	store     GroupStore
	ledger    *ledger.Ledger
	validator *requestValidator
}

// NewGroupService creates a new GroupService.
func NewGroupService(store GroupStore, l *ledger.Ledger) *GroupService {
	return &GroupService{store: store, ledger: l, validator: newRequestValidator()}
}

// CreateGroup creates a new group with the caller as admin.
func (s *GroupService) CreateGroup(ctx context.Context, req *connect.Request[api.CreateGroupRequest]) (*connect.Response[api.CreateGroupResponse], error) {
	userID, err := callerID(ctx)
	if err != nil {
		return nil, err
	}
	if err := s.validator.check(req.Msg); err != nil {
		return nil, err
	}
	slog.Info("CreateGroup request received",
		"name", req.Msg.Name,
		"members_count", len(req.Msg.MemberIDs),
	)

	group := &models.Group{Name: strings.TrimSpace(req.Msg.Name), CreatedBy: userID}
	for _, memberID := range req.Msg.MemberIDs {
		if err := s.requireUser(ctx, memberID); err != nil {
			return nil, err
		}
		group.Members = append(group.Members, models.GroupMember{UserID: memberID, Role: models.RoleMember})
	}

	// Save to storage (generates ID and CreatedAt)
	if err := s.store.CreateGroup(ctx, group); err != nil {
		slog.Error("CreateGroup failed", "error", err)
		return nil, connect.NewError(connect.CodeInternal, errInternal)
	}

	slog.Info("Group created", "group_id", group.ID, "created_by", userID)
	return connect.NewResponse(&api.CreateGroupResponse{Group: toAPIGroup(group)}), nil
}

// GetGroup retrieves a group the caller belongs to.
func (s *GroupService) GetGroup(ctx context.Context, req *connect.Request[api.GetGroupRequest]) (*connect.Response[api.GetGroupResponse], error) {
	userID, err := callerID(ctx)
	if err != nil {
		return nil, err
	}
	if err := s.validator.check(req.Msg); err != nil {
		return nil, err
	}

	group, err := s.loadGroup(ctx, req.Msg.GroupID)
	if err != nil {
		return nil, err
	}
	if !group.HasMember(userID) {
		return nil, connect.NewError(connect.CodePermissionDenied, ledger.ErrUnauthorized)
	}
	return connect.NewResponse(&api.GetGroupResponse{Group: toAPIGroup(group)}), nil
}

// ListGroups retrieves the caller's groups.
func (s *GroupService) ListGroups(ctx context.Context, req *connect.Request[api.ListGroupsRequest]) (*connect.Response[api.ListGroupsResponse], error) {
	userID, err := callerID(ctx)
	if err != nil {
		return nil, err
	}

	groups, err := s.store.ListGroupsForUser(ctx, userID)
	if err != nil {
		slog.Error("ListGroups failed", "error", err)
		return nil, connect.NewError(connect.CodeInternal, errInternal)
	}

	out := make([]api.Group, len(groups))
	for i, g := range groups {
		out[i] = toAPIGroup(g)
	}
	slog.Info("ListGroups successful", "user_id", userID, "count", len(groups))
	return connect.NewResponse(&api.ListGroupsResponse{Groups: out}), nil
}

// AddMember adds a registered user to a group. Admins only.
func (s *GroupService) AddMember(ctx context.Context, req *connect.Request[api.AddMemberRequest]) (*connect.Response[api.AddMemberResponse], error) {
	userID, err := callerID(ctx)
	if err != nil {
		return nil, err
	}
	if err := s.validator.check(req.Msg); err != nil {
		return nil, err
	}

	group, err := s.adminGroup(ctx, req.Msg.GroupID, userID)
	if err != nil {
		return nil, err
	}
	if err := s.requireUser(ctx, req.Msg.UserID); err != nil {
		return nil, err
	}

	member := models.GroupMember{UserID: req.Msg.UserID, Role: models.GroupRole(req.Msg.Role)}
	err = s.store.AddGroupMember(ctx, group.ID, member)
	switch {
	case errors.Is(err, storage.ErrConflict):
		return nil, connect.NewError(connect.CodeAlreadyExists, errAlreadyMember)
	case errors.Is(err, storage.ErrNotFound):
		return nil, connect.NewError(connect.CodeNotFound, errGroupNotFound)
	case err != nil:
		slog.Error("AddMember failed", "group_id", group.ID, "error", err)
		return nil, connect.NewError(connect.CodeInternal, errInternal)
	}

	slog.Info("Group member added", "group_id", group.ID, "user_id", req.Msg.UserID, "by", userID)
	return groupResponseOf(ctx, s, group.ID, func(g api.Group) *api.AddMemberResponse {
		return &api.AddMemberResponse{Group: g}
	})
}

// RemoveMember removes a user from a group. Admins only; the creator stays.
func (s *GroupService) RemoveMember(ctx context.Context, req *connect.Request[api.RemoveMemberRequest]) (*connect.Response[api.RemoveMemberResponse], error) {
	userID, err := callerID(ctx)
	if err != nil {
		return nil, err
	}
	if err := s.validator.check(req.Msg); err != nil {
		return nil, err
	}

	group, err := s.adminGroup(ctx, req.Msg.GroupID, userID)
	if err != nil {
		return nil, err
	}
	if req.Msg.UserID == group.CreatedBy {
		return nil, connect.NewError(connect.CodeFailedPrecondition, errRemoveCreator)
	}

	err = s.store.RemoveGroupMember(ctx, group.ID, req.Msg.UserID)
	switch {
	case errors.Is(err, storage.ErrNotFound):
		return nil, connect.NewError(connect.CodeNotFound, errMemberNotFound)
	case err != nil:
		slog.Error("RemoveMember failed", "group_id", group.ID, "error", err)
		return nil, connect.NewError(connect.CodeInternal, errInternal)
	}

	slog.Info("Group member removed", "group_id", group.ID, "user_id", req.Msg.UserID, "by", userID)
	return groupResponseOf(ctx, s, group.ID, func(g api.Group) *api.RemoveMemberResponse {
		return &api.RemoveMemberResponse{Group: g}
	})
}

// GetGroupBalances returns the simplified payments that settle a group.
func (s *GroupService) GetGroupBalances(ctx context.Context, req *connect.Request[api.GetGroupBalancesRequest]) (*connect.Response[api.GetGroupBalancesResponse], error) {
	userID, err := callerID(ctx)
	if err != nil {
		return nil, err
	}
	if err := s.validator.check(req.Msg); err != nil {
		return nil, err
	}

	edges, err := s.ledger.GroupBalances(ctx, req.Msg.GroupID, userID)
	if err != nil {
		return nil, toConnectError("GetGroupBalances", err)
	}

	debts := make([]api.Debt, len(edges))
	for i, e := range edges {
		debts[i] = api.Debt{From: e.From, To: e.To, Amount: e.Amount}
	}
	slog.Info("GetGroupBalances successful", "group_id", req.Msg.GroupID, "debts_count", len(debts))
	return connect.NewResponse(&api.GetGroupBalancesResponse{Debts: debts}), nil
}

func (s *GroupService) loadGroup(ctx context.Context, groupID string) (*models.Group, error) {
	group, err := s.store.GetGroup(ctx, groupID)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, connect.NewError(connect.CodeNotFound, errGroupNotFound)
	}
	if err != nil {
		slog.Error("GetGroup failed", "group_id", groupID, "error", err)
		return nil, connect.NewError(connect.CodeInternal, errInternal)
	}
	return group, nil
}

// adminGroup loads a group and checks that userID administers it.
func (s *GroupService) adminGroup(ctx context.Context, groupID, userID string) (*models.Group, error) {
	group, err := s.loadGroup(ctx, groupID)
	if err != nil {
		return nil, err
	}
	if !group.IsAdmin(userID) {
		return nil, connect.NewError(connect.CodePermissionDenied, errNotGroupAdmin)
	}
	return group, nil
}

func (s *GroupService) requireUser(ctx context.Context, userID string) error {
	_, err := s.store.GetUserByID(ctx, userID)
	if errors.Is(err, storage.ErrNotFound) {
		return connect.NewError(connect.CodeNotFound, fmt.Errorf("user %s not found", userID))
	}
	if err != nil {
		slog.Error("GetUserByID failed", "user_id", userID, "error", err)
		return connect.NewError(connect.CodeInternal, errInternal)
	}
	return nil
}

// groupResponseOf reloads a group and wraps it in a response message.
func groupResponseOf[T any](ctx context.Context, s *GroupService, groupID string, wrap func(api.Group) *T) (*connect.Response[T], error) {
	group, err := s.loadGroup(ctx, groupID)
	if err != nil {
		return nil, err
	}
	return connect.NewResponse(wrap(toAPIGroup(group))), nil
}
