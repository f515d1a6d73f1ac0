package models

import "fmt"

// Role identifies the class of a platform identity. The four roles map to
// separate tables in the relational schema (one Sequelize model each on the
// backend that owns the schema).
type Role string

const (
	RoleCareGiver     Role = "care_giver"
	RoleCareRecipient Role = "care_recipient"
	RoleAdmin         Role = "admin"
	RoleSupport       Role = "support"
)

// ParseRole validates a role string coming off the wire.
func ParseRole(s string) (Role, bool) {
	switch Role(s) {
	case RoleCareGiver, RoleCareRecipient, RoleAdmin, RoleSupport:
		return Role(s), true
	}
	return "", false
}

// IsAgent reports whether the role belongs to the helpdesk side
// (support or admin).
func (r Role) IsAgent() bool {
	return r == RoleSupport || r == RoleAdmin
}

// UserKey returns the canonical presence/room key for an identity,
// e.g. "care_giver:12".
func UserKey(role Role, id int64) string {
	return fmt.Sprintf("%s:%d", role, id)
}
