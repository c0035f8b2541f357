package permission

const policyPackage = "cms.authz"

const allowQuery = "data.cms.authz.allow"

// capabilityPolicy is the structural capability table. Overrides only ever add an allow
// rule; nothing in settings can remove a capability a role already has.
const capabilityPolicy = `package cms.authz

default allow := false

role_rank := {
	"USER": 0,
	"AUTHOR": 1,
	"MODERATOR": 2,
	"EDITOR": 3,
	"BOARD": 4,
	"ADMIN": 5,
}

minimum_role := {
	"view_admin": "AUTHOR",
	"create_content": "AUTHOR",
	"edit_own_content": "AUTHOR",
	"manage_media": "AUTHOR",
	"moderate_others": "MODERATOR",
	"edit_others_content": "EDITOR",
	"publish_direct": "EDITOR",
	"view_members": "EDITOR",
}

board_capabilities := {"approve_membership", "edit_members", "view_members"}

# capability -> setting key -> lowest role the setting grants to
overrides := {
	"publish_direct": {"author_can_publish": "AUTHOR", "moderator_can_publish": "MODERATOR"},
	"edit_others_content": {"author_can_edit_others": "AUTHOR", "moderator_can_edit_others": "MODERATOR"},
	"moderate_others": {"author_can_moderate": "AUTHOR"},
}

allow if input.role == "ADMIN"

allow if {
	required := minimum_role[input.capability]
	role_rank[input.role] >= role_rank[required]
}

allow if {
	board_capabilities[input.capability]
	input.board_authorized == true
}

allow if {
	some key, granted_role in overrides[input.capability]
	input.overrides[key] == true
	role_rank[input.role] >= role_rank[granted_role]
}
`
