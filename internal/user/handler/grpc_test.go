package handler

import (
	"context"
	"database/sql"
	"io"
	"log/slog"
	"testing"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"

	memberdomain "community-cms/backend/internal/member/domain"
	"community-cms/backend/internal/permission"
	"community-cms/backend/internal/platform/rbac"
	"community-cms/backend/internal/server/interceptors"
	"community-cms/backend/internal/user/domain"
	userrepo "community-cms/backend/internal/user/repository"
)

// mockUsers implements UserStore and rbac.PrincipalLoader for tests.
type mockUsers struct {
	principals map[string]*domain.Principal
	members    map[string]*memberdomain.Member
	linkErr    error
}

func (m *mockUsers) GetPrincipal(_ context.Context, id string) (*domain.Principal, error) {
	return m.principals[id], nil
}

func (m *mockUsers) LinkMember(_ context.Context, userID, memberID string) error {
	if m.linkErr != nil {
		return m.linkErr
	}
	p := m.principals[userID]
	if p == nil {
		return sql.ErrNoRows
	}
	p.User.LinkedMemberID = memberID
	if mem := m.members[memberID]; mem != nil && mem.Status == memberdomain.MemberStatusActive {
		p.LinkedMemberType = mem.MembershipType
	}
	return nil
}

type mockMembers map[string]*memberdomain.Member

func (m mockMembers) GetByID(_ context.Context, id string) (*memberdomain.Member, error) {
	return m[id], nil
}

func newTestServer(t *testing.T) (*Server, *mockUsers) {
	t.Helper()
	resolver, err := permission.NewResolver(context.Background(), nil, slog.New(slog.NewTextHandler(io.Discard, nil)))
	if err != nil {
		t.Fatalf("NewResolver: %v", err)
	}
	user := func(id string, role domain.Role) *domain.Principal {
		return &domain.Principal{User: &domain.User{ID: id, Email: id + "@example.org", Role: role, Status: domain.UserStatusActive}}
	}
	members := mockMembers{
		"m1": {ID: "m1", MemberNumber: "M2026-00001", MembershipType: memberdomain.MembershipTypeBoard, Status: memberdomain.MemberStatusActive},
	}
	users := &mockUsers{
		principals: map[string]*domain.Principal{
			"admin":  user("admin", domain.RoleAdmin),
			"editor": user("editor", domain.RoleEditor),
			"author": user("author", domain.RoleAuthor),
		},
		members: members,
	}
	return NewServer(users, members, rbac.NewGate(users, resolver)), users
}

func req(t *testing.T, fields map[string]any) *structpb.Struct {
	t.Helper()
	s, err := structpb.NewStruct(fields)
	if err != nil {
		t.Fatalf("NewStruct: %v", err)
	}
	return s
}

func as(userID string) context.Context {
	return interceptors.WithIdentity(context.Background(), userID)
}

func TestGetCurrentUser(t *testing.T) {
	srv, _ := newTestServer(t)
	resp, err := srv.GetCurrentUser(as("editor"), req(t, nil))
	if err != nil {
		t.Fatalf("GetCurrentUser: %v", err)
	}
	if got := resp.GetFields()["role"].GetStringValue(); got != "EDITOR" {
		t.Errorf("role = %q, want EDITOR", got)
	}
	if resp.GetFields()["board_authorized"].GetBoolValue() {
		t.Error("editor must not be board authorized")
	}

	_, err = srv.GetCurrentUser(context.Background(), req(t, nil))
	if status.Code(err) != codes.Unauthenticated {
		t.Errorf("anonymous code = %v, want Unauthenticated", status.Code(err))
	}
}

func TestGetUser(t *testing.T) {
	srv, _ := newTestServer(t)
	testCases := []struct {
		name   string
		caller string
		target string
		code   codes.Code
	}{
		{"self", "author", "author", codes.OK},
		{"other without view_members", "author", "editor", codes.PermissionDenied},
		{"editor reads other", "editor", "author", codes.OK},
		{"unknown user", "admin", "ghost", codes.NotFound},
		{"missing user_id", "admin", "", codes.InvalidArgument},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := srv.GetUser(as(tc.caller), req(t, map[string]any{"user_id": tc.target}))
			if status.Code(err) != tc.code {
				t.Errorf("code = %v, want %v (err %v)", status.Code(err), tc.code, err)
			}
		})
	}
}

func TestLinkMember(t *testing.T) {
	srv, users := newTestServer(t)

	_, err := srv.LinkMember(as("editor"), req(t, map[string]any{"user_id": "author", "member_id": "m1"}))
	if status.Code(err) != codes.PermissionDenied {
		t.Fatalf("editor link code = %v, want PermissionDenied", status.Code(err))
	}

	resp, err := srv.LinkMember(as("admin"), req(t, map[string]any{"user_id": "author", "member_id": "m1"}))
	if err != nil {
		t.Fatalf("LinkMember: %v", err)
	}
	if got := resp.GetFields()["linked_member_id"].GetStringValue(); got != "m1" {
		t.Errorf("linked_member_id = %q, want m1", got)
	}
	if !resp.GetFields()["board_authorized"].GetBoolValue() {
		t.Error("author linked to a board member should be board authorized")
	}

	_, err = srv.LinkMember(as("admin"), req(t, map[string]any{"user_id": "author", "member_id": "nope"}))
	if status.Code(err) != codes.NotFound {
		t.Errorf("unknown member code = %v, want NotFound", status.Code(err))
	}
	_, err = srv.LinkMember(as("admin"), req(t, map[string]any{"user_id": "ghost", "member_id": "m1"}))
	if status.Code(err) != codes.NotFound {
		t.Errorf("unknown user code = %v, want NotFound", status.Code(err))
	}

	users.linkErr = userrepo.ErrMemberAlreadyLinked
	_, err = srv.LinkMember(as("admin"), req(t, map[string]any{"user_id": "editor", "member_id": "m1"}))
	if status.Code(err) != codes.AlreadyExists {
		t.Errorf("already linked code = %v, want AlreadyExists", status.Code(err))
	}
}
