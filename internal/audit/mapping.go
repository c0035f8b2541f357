package audit

import (
	"strings"
	"unicode"
)

// ActionResource is the audit action and resource an RPC is recorded under.
type ActionResource struct {
	Action   string
	Resource string
}

const unknown = "unknown"

const membershipRequestService = "/cms.membership.v1.MembershipRequestService/"

// Workflow RPCs use the action names the workflow writes to request history.
var methodOverrides = map[string]ActionResource{
	membershipRequestService + "SubmitMembershipRequest": {Action: "submitted", Resource: "membership_request"},
	membershipRequestService + "BeginReview":             {Action: "review_started", Resource: "membership_request"},
	membershipRequestService + "Decide":                  {Action: "decided", Resource: "membership_request"},
	membershipRequestService + "CastVote":                {Action: "vote_cast", Resource: "membership_request"},
}

// verbPrefixes collapse CRUD-style method names to a single verb.
var verbPrefixes = []struct{ prefix, action string }{
	{"Get", "get"},
	{"List", "list"},
	{"Create", "create"},
	{"Update", "update"},
	{"Delete", "delete"},
	{"Check", "check"},
}

// ParseFullMethod maps "/pkg.v1.FooBarService/GetThing" to {get, foo_bar}.
// Methods without a known verb prefix become their snake_case name.
func ParseFullMethod(fullMethod string) ActionResource {
	if ar, ok := methodOverrides[fullMethod]; ok {
		return ar
	}
	slash := strings.LastIndex(fullMethod, "/")
	if slash < 0 {
		return ActionResource{Action: unknown, Resource: unknown}
	}
	service, method := fullMethod[:slash], fullMethod[slash+1:]
	ar := ActionResource{Action: methodAction(method), Resource: unknown}
	if dot := strings.LastIndex(service, "."); dot >= 0 {
		if name := strings.TrimSuffix(service[dot+1:], "Service"); name != "" {
			ar.Resource = snakeCase(name)
		}
	}
	return ar
}

func methodAction(method string) string {
	for _, v := range verbPrefixes {
		if rest, ok := strings.CutPrefix(method, v.prefix); ok && rest != "" {
			return v.action
		}
	}
	return snakeCase(method)
}

func snakeCase(s string) string {
	var b strings.Builder
	for i, r := range s {
		if unicode.IsUpper(r) {
			if i > 0 {
				b.WriteByte('_')
			}
			r = unicode.ToLower(r)
		}
		b.WriteRune(r)
	}
	return b.String()
}
