package domain

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Setting is one key/value pair of runtime configuration managed by administrators.
type Setting struct {
	Category  string
	Key       string
	Value     string
	UpdatedAt time.Time
}

const (
	CategoryPermissions = "permissions"
	CategoryMembership  = "membership"
)

// Permission override keys (category permissions).
const (
	KeyAuthorCanPublish       = "author_can_publish"
	KeyAuthorCanEditOthers    = "author_can_edit_others"
	KeyAuthorCanModerate      = "author_can_moderate"
	KeyModeratorCanPublish    = "moderator_can_publish"
	KeyModeratorCanEditOthers = "moderator_can_edit_others"
	KeyApprovalThreshold      = "approval_threshold"
)

// OverrideKeys lists the permission override keys in a stable order.
func OverrideKeys() []string {
	return []string{
		KeyAuthorCanPublish,
		KeyAuthorCanEditOthers,
		KeyAuthorCanModerate,
		KeyModeratorCanPublish,
		KeyModeratorCanEditOthers,
	}
}

// PermissionOverrides is a snapshot of the boolean permission override settings keyed by setting key.
// A missing key is false.
type PermissionOverrides map[string]bool

// Conservative returns the overrides used when settings cannot be read: every override disabled.
func Conservative() PermissionOverrides {
	return PermissionOverrides{}
}

// Enabled reports whether key is set to true.
func (o PermissionOverrides) Enabled(key string) bool {
	return o[key]
}

// OverridesFromSettings builds a snapshot from category permissions rows. Unparseable values are false.
func OverridesFromSettings(settings []Setting) PermissionOverrides {
	out := PermissionOverrides{}
	known := make(map[string]bool, 5)
	for _, k := range OverrideKeys() {
		known[k] = true
	}
	for _, s := range settings {
		if !known[s.Key] {
			continue
		}
		if v, err := ParseBool(s.Value); err == nil && v {
			out[s.Key] = true
		}
	}
	return out
}

// ApprovalThreshold is the vote rule used for MULTI_BOARD membership requests.
type ApprovalThreshold string

const (
	ThresholdMajority  ApprovalThreshold = "MAJORITY"
	ThresholdUnanimous ApprovalThreshold = "UNANIMOUS"
)

// DefaultApprovalThreshold applies when the approval_threshold setting is absent.
const DefaultApprovalThreshold = ThresholdMajority

// ParseApprovalThreshold parses s case-insensitively.
func ParseApprovalThreshold(s string) (ApprovalThreshold, error) {
	switch ApprovalThreshold(strings.ToUpper(strings.TrimSpace(s))) {
	case ThresholdMajority:
		return ThresholdMajority, nil
	case ThresholdUnanimous:
		return ThresholdUnanimous, nil
	}
	return "", fmt.Errorf("invalid approval threshold %q", s)
}

// ParseBool accepts true/false/1/0 and treats empty as false.
func ParseBool(s string) (bool, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "true", "1":
		return true, nil
	case "false", "0", "":
		return false, nil
	default:
		return false, strconv.ErrSyntax
	}
}
