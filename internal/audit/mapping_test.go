package audit

import "testing"

func TestParseFullMethod(t *testing.T) {
	tests := []struct {
		fullMethod   string
		wantAction   string
		wantResource string
	}{
		{"/cms.membership.v1.MembershipRequestService/GetMembershipRequest", "get", "membership_request"},
		{"/cms.membership.v1.MembershipRequestService/ListMembershipRequests", "list", "membership_request"},
		{"/cms.membership.v1.MembershipRequestService/GetHistory", "get", "membership_request"},
		{"/cms.membership.v1.MembershipRequestService/CastVote", "vote_cast", "membership_request"},
		{"/cms.membership.v1.MembershipRequestService/BeginReview", "review_started", "membership_request"},
		{"/cms.membership.v1.MembershipRequestService/Decide", "decided", "membership_request"},
		{"/cms.membership.v1.MembershipRequestService/SubmitMembershipRequest", "submitted", "membership_request"},
		{"/cms.authz.v1.AuthzService/CheckPermission", "check", "authz"},
		{"/cms.audit.v1.AuditService/ListAuditLogs", "list", "audit"},
		{"invalid-format", "unknown", "unknown"},
		{"/cms.user.v1.UserService/GetCurrentUser", "get", "user"},
		{"/cms.user.v1.UserService/LinkMember", "link_member", "user"},
		{"SomeService/SomeMethod", "some_method", "unknown"},
		{"/pkg.Service/Method", "method", "unknown"},
	}
	for _, tt := range tests {
		ar := ParseFullMethod(tt.fullMethod)
		if ar.Action != tt.wantAction {
			t.Errorf("ParseFullMethod(%q).Action = %q, want %q", tt.fullMethod, ar.Action, tt.wantAction)
		}
		if ar.Resource != tt.wantResource {
			t.Errorf("ParseFullMethod(%q).Resource = %q, want %q", tt.fullMethod, ar.Resource, tt.wantResource)
		}
	}
}
