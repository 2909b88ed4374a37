package domain

// Role enumerates wiki account privileges.
type Role string

const (
	RoleContributor Role = "contributor"
	RoleModerator   Role = "moderator"
	RoleAdmin       Role = "admin"
)

var roleRank = map[Role]int{
	RoleContributor: 1,
	RoleModerator:   2,
	RoleAdmin:       3,
}

// IsValid reports whether the role is known.
func (r Role) IsValid() bool {
	_, ok := roleRank[r]
	return ok
}

// AtLeast reports whether r grants the privileges of min.
func (r Role) AtLeast(min Role) bool {
	return roleRank[r] >= roleRank[min] && roleRank[r] > 0
}

// Account is a configured login allowed to obtain tokens.
type Account struct {
	Name         string
	Role         Role
	PasswordHash string
}
