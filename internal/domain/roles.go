package domain

type Role string

const (
	// User can publish listings and manage their own.
	RoleUser Role = "user"
	// Moderator can additionally edit or take down other users' listings.
	RoleModerator Role = "moderator"
	// Admin can delete any listing and look up accounts for support.
	RoleAdmin Role = "admin"
)

func IsValidRole(r string) bool {
	return r == string(RoleUser) || r == string(RoleModerator) || r == string(RoleAdmin)
}

// RoleRank: bigger => higher privilege
func RoleRank(r string) int {
	switch r {
	case string(RoleUser):
		return 1
	case string(RoleModerator):
		return 2
	case string(RoleAdmin):
		return 3
	default:
		return 0
	}
}
