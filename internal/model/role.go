package model

import (
	"encoding/json"
	"sort"

	"conference_registration/internal/apperrors"
)

// Role is a tag held by a user. A user holds a set of roles at once.
type Role string

const (
	RoleParticipant      Role = "participant"
	RoleAmbassador       Role = "ambassador"
	RoleRegistrationTeam Role = "registration_team"
	RoleAdmin            Role = "admin"
)

// Capability names a privileged action.
type Capability string

const (
	CapParticipate        Capability = "participate"
	CapCollectCash        Capability = "collect_cash"
	CapLookupParticipants Capability = "lookup_participants"
	CapRegisterManual     Capability = "register_manual"
	CapVerifyOnline       Capability = "verify_online"
	CapCheckIn            Capability = "check_in"
	CapManageUsers        Capability = "manage_users"
	CapViewReports        Capability = "view_reports"
)

// Admin is not listed: it satisfies every requirement.
var roleCapabilities = map[Role][]Capability{
	RoleParticipant:      {CapParticipate},
	RoleAmbassador:       {CapParticipate, CapCollectCash, CapLookupParticipants},
	RoleRegistrationTeam: {CapParticipate, CapRegisterManual, CapLookupParticipants},
}

// ParseRole reports whether s names a known role.
func ParseRole(s string) (Role, bool) {
	switch r := Role(s); r {
	case RoleParticipant, RoleAmbassador, RoleRegistrationTeam, RoleAdmin:
		return r, true
	}
	return "", false
}

// RoleSet is the set of roles held by one user.
type RoleSet map[Role]struct{}

// NewRoleSet builds a set from roles.
func NewRoleSet(roles ...Role) RoleSet {
	set := make(RoleSet, len(roles))
	for _, r := range roles {
		set[r] = struct{}{}
	}
	return set
}

// ParseRoleSet converts stored or token role names, rejecting unknown ones.
func ParseRoleSet(names []string) (RoleSet, error) {
	set := make(RoleSet, len(names))
	for _, name := range names {
		r, ok := ParseRole(name)
		if !ok {
			return nil, apperrors.Validation("unknown role %q", name)
		}
		set[r] = struct{}{}
	}
	return set, nil
}

func (s RoleSet) Has(r Role) bool {
	_, ok := s[r]
	return ok
}

// Strings returns the role names sorted, for storage and tokens.
func (s RoleSet) Strings() []string {
	out := make([]string, 0, len(s))
	for r := range s {
		out = append(out, string(r))
	}
	sort.Strings(out)
	return out
}

// Capabilities returns the union of capabilities granted by every role.
func (s RoleSet) Capabilities() map[Capability]struct{} {
	caps := make(map[Capability]struct{})
	for r := range s {
		for _, c := range roleCapabilities[r] {
			caps[c] = struct{}{}
		}
	}
	return caps
}

// Can reports whether the set satisfies at least one required capability.
func (s RoleSet) Can(required ...Capability) bool {
	if s.Has(RoleAdmin) {
		return true
	}
	caps := s.Capabilities()
	for _, c := range required {
		if _, ok := caps[c]; ok {
			return true
		}
	}
	return false
}

// Authorize is Can with an error suitable for returning to callers.
func (s RoleSet) Authorize(required ...Capability) error {
	if s.Can(required...) {
		return nil
	}
	return apperrors.Permission("you do not have permission to perform this action")
}

func (s RoleSet) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.Strings())
}
