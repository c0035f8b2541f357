package permission

// Capability names an action that may be permitted to a principal.
type Capability string

const (
	ViewAdmin         Capability = "view_admin"
	CreateContent     Capability = "create_content"
	EditOwnContent    Capability = "edit_own_content"
	EditOthersContent Capability = "edit_others_content"
	PublishDirect     Capability = "publish_direct"
	ModerateOthers    Capability = "moderate_others"
	ManageMedia       Capability = "manage_media"
	ViewMembers       Capability = "view_members"
	EditMembers       Capability = "edit_members"
	ApproveMembership Capability = "approve_membership"
	ManageSettings    Capability = "manage_settings"
	ManageUsers       Capability = "manage_users"
)

var allCapabilities = []Capability{
	ViewAdmin,
	CreateContent,
	EditOwnContent,
	EditOthersContent,
	PublishDirect,
	ModerateOthers,
	ManageMedia,
	ViewMembers,
	EditMembers,
	ApproveMembership,
	ManageSettings,
	ManageUsers,
}

// AllCapabilities returns every known capability.
func AllCapabilities() []Capability {
	out := make([]Capability, len(allCapabilities))
	copy(out, allCapabilities)
	return out
}

// Known reports whether c is a defined capability.
func (c Capability) Known() bool {
	for _, k := range allCapabilities {
		if k == c {
			return true
		}
	}
	return false
}
