package entity

// Role is the closed set of actor roles.
type Role string

const (
	RoleAdmin   Role = "admin"
	RoleDoctor  Role = "doctor"
	RolePatient Role = "patient"
)

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	switch r {
	case RoleAdmin, RoleDoctor, RolePatient:
		return true
	default:
		return false
	}
}

// ParseRole returns the role named by s, or false when s is unknown.
func ParseRole(s string) (Role, bool) {
	r := Role(s)
	return r, r.Valid()
}

func (r Role) String() string {
	return string(r)
}
