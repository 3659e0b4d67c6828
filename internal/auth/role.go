package auth

import "socialapi/internal/user"

// roleHierarchy maps a role to the role it also satisfies.
var roleHierarchy = map[string]string{
	user.RoleAdmin: user.RoleUser,
	user.RoleUser:  user.RoleUser,
}

// RoleSatisfies reports whether a caller holding have may access a route
// requiring want.
func RoleSatisfies(have, want string) bool {
	if have == "" {
		return false
	}
	return have == want || roleHierarchy[have] == want
}
