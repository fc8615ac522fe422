package auth

// Kind separates student-principal resolution from admin-principal
// resolution. A token minted for one kind never resolves under the other.
type Kind string

const (
	// KindStudent marks principals resolved through the student guard.
	KindStudent Kind = "student"
	// KindAdmin marks principals resolved through the admin guard.
	KindAdmin Kind = "admin"
)

// Role is the fine-grained role stored on the account record.
type Role string

const (
	RoleStudent    Role = "student"
	RoleMentor     Role = "mentor"
	RoleAdmin      Role = "admin"
	RoleSuperAdmin Role = "super_admin"
	RoleModerator  Role = "moderator"
)

// Kind maps a role onto the guard kind allowed to resolve it. Accounts use a
// single table; the role is the only discriminator, so a role change is
// enough to revoke admin access on the next request.
func (r Role) Kind() Kind {
	switch r {
	case RoleAdmin, RoleSuperAdmin, RoleModerator:
		return KindAdmin
	default:
		return KindStudent
	}
}

// Account statuses as stored on the account record.
const (
	StatusActive   = "active"
	StatusInactive = "inactive"
	StatusBlocked  = "blocked"
)

// Account is the read-only slice of the account record the auth subsystem
// needs. The persistence layer owns the full record.
type Account struct {
	ID               string
	Role             Role
	Email            string
	RegistrationType string
	Permissions      []string
	Status           string
	IsDeleted        bool
}

// Eligible reports whether the account may hold a session at all.
func (a *Account) Eligible() bool {
	return a != nil && !a.IsDeleted && a.Status == StatusActive
}

// Principal is the resolved, trusted identity of the caller for the duration
// of one request. It is rebuilt from the database on every request and never
// persisted.
type Principal struct {
	ID               string
	Kind             Kind
	Role             Role
	Email            string
	RegistrationType string
	Permissions      []string
}
