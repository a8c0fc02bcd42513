package plugin

// AccessMode selects how AccessControl.Allowed interprets its id sets.
type AccessMode int

const (
	// AccessAll allows every group and friend (the default).
	AccessAll AccessMode = iota
	// AccessWhitelist allows only ids present in the set.
	AccessWhitelist
	// AccessBlacklist allows every id except those present in the set.
	AccessBlacklist
)

// AccessControl gates which groups/friends a plugin's message
// listeners fire for. It is consulted only for MsgEvent; notices,
// requests, and lifecycle events are never filtered by it.
type AccessControl struct {
	Mode    AccessMode
	Groups  map[int64]bool
	Friends map[int64]bool
}

// NewAccessControl builds an AccessControl from the plain id slices
// found in config.PluginEntry.
func NewAccessControl(mode AccessMode, groups, friends []int64) AccessControl {
	ac := AccessControl{Mode: mode, Groups: map[int64]bool{}, Friends: map[int64]bool{}}
	for _, g := range groups {
		ac.Groups[g] = true
	}
	for _, f := range friends {
		ac.Friends[f] = true
	}
	return ac
}

// Allowed reports whether a message from the given group/user is
// admitted. isGroup selects which id set is consulted; for private
// messages pass isGroup=false and userID as the friend id.
func (a AccessControl) Allowed(groupID, userID int64, isGroup bool) bool {
	id := userID
	set := a.Friends
	if isGroup {
		id = groupID
		set = a.Groups
	}
	switch a.Mode {
	case AccessWhitelist:
		return set[id]
	case AccessBlacklist:
		return !set[id]
	default:
		return true
	}
}
