package domain

// Role names carried in User.Roles and in the session token.
const (
	RoleUser  = "USER"
	RoleAdmin = "ADMIN"
)
