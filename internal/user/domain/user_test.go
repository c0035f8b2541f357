package domain

import (
	"testing"

	memberdomain "community-cms/backend/internal/member/domain"
)

func TestRole_Order(t *testing.T) {
	roles := Roles()
	for i := 1; i < len(roles); i++ {
		if roles[i].Rank() <= roles[i-1].Rank() {
			t.Errorf("%s rank %d should be above %s rank %d", roles[i], roles[i].Rank(), roles[i-1], roles[i-1].Rank())
		}
		if !roles[i].AtLeast(roles[i-1]) {
			t.Errorf("%s should be at least %s", roles[i], roles[i-1])
		}
		if roles[i-1].AtLeast(roles[i]) {
			t.Errorf("%s should not be at least %s", roles[i-1], roles[i])
		}
	}
}

func TestRole_Unknown(t *testing.T) {
	r := Role("SUPERUSER")
	if r.Valid() {
		t.Error("unknown role should be invalid")
	}
	if r.Rank() != -1 {
		t.Errorf("Rank = %d, want -1", r.Rank())
	}
	if r.AtLeast(RoleUser) {
		t.Error("unknown role must not satisfy AtLeast")
	}
	if _, err := ParseRole("SUPERUSER"); err == nil {
		t.Error("ParseRole should reject unknown role")
	}
	if got, err := ParseRole("EDITOR"); err != nil || got != RoleEditor {
		t.Errorf("ParseRole(EDITOR) = %q, %v", got, err)
	}
}

func TestPrincipal_IsBoardAuthorized(t *testing.T) {
	testCases := []struct {
		name       string
		principal  *Principal
		wantBoard  bool
	}{
		{"nil principal", nil, false},
		{"nil user", &Principal{}, false},
		{"board role", &Principal{User: &User{ID: "u1", Role: RoleBoard}}, true},
		{"editor linked to board member", &Principal{User: &User{ID: "u2", Role: RoleEditor}, LinkedMemberType: memberdomain.MembershipTypeBoard}, true},
		{"editor linked to regular member", &Principal{User: &User{ID: "u3", Role: RoleEditor}, LinkedMemberType: memberdomain.MembershipTypeRegular}, false},
		{"admin without board link", &Principal{User: &User{ID: "u4", Role: RoleAdmin}}, false},
		{"user linked to board member", &Principal{User: &User{ID: "u5", Role: RoleUser}, LinkedMemberType: memberdomain.MembershipTypeBoard}, true},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			if got := tc.principal.IsBoardAuthorized(); got != tc.wantBoard {
				t.Errorf("IsBoardAuthorized = %v, want %v", got, tc.wantBoard)
			}
		})
	}
}

func TestUser_Validate(t *testing.T) {
	u := &User{Email: "a@example.com", Role: RoleAuthor}
	if err := u.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if u.Status != UserStatusActive {
		t.Errorf("Status = %q, want active default", u.Status)
	}
	if err := (&User{Role: RoleAuthor}).Validate(); err == nil {
		t.Error("missing email should fail")
	}
	if err := (&User{Email: "a@example.com", Role: "ROOT"}).Validate(); err == nil {
		t.Error("invalid role should fail")
	}
}
