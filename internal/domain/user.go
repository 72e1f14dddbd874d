package domain

import "time"

// Role identifies what a user may do in the system.
type Role string

const (
	RoleResident   Role = "resident"
	RoleTechnician Role = "technician"
	RoleAdmin      Role = "admin"
)

// Valid reports whether the role is one of the known values.
func (r Role) Valid() bool {
	switch r {
	case RoleResident, RoleTechnician, RoleAdmin:
		return true
	}
	return false
}

// User is the domain model for residents, technicians and admins.
//
// Password holds the stored credential in whatever form the configured
// verifier produced; verification is isolated behind auth.Verifier so
// hashing can be swapped in without touching call sites.
type User struct {
	ID        int64
	Username  string
	Password  string
	Role      Role
	Name      string
	Phone     *string
	Avatar    *string
	CreatedAt time.Time
}
