package domain

import "time"

// UserRole is the platform-wide role of a user.
type UserRole string

const (
	UserRoleUser  UserRole = "user"
	UserRoleAdmin UserRole = "admin"
)

type User struct {
	ID        int64
	Account   string
	Name      string
	Avatar    string
	Profile   string
	Role      UserRole
	CreatedAt time.Time
}

// IsAdmin reports whether the user holds the platform admin role.
func (u *User) IsAdmin() bool {
	return u.Role == UserRoleAdmin
}

// DisplayName returns the name shown to other editors, falling back to the account.
func (u *User) DisplayName() string {
	if u.Name != "" {
		return u.Name
	}
	return u.Account
}

// UserSummary is the displayable projection embedded in outbound notifications.
// The id is encoded as a string so browser clients do not lose precision.
type UserSummary struct {
	ID      int64    `json:"id,string"`
	Name    string   `json:"userName"`
	Avatar  string   `json:"userAvatar,omitempty"`
	Profile string   `json:"userProfile,omitempty"`
	Role    UserRole `json:"userRole"`
}

// Summary projects the user into a UserSummary.
func (u *User) Summary() UserSummary {
	return UserSummary{
		ID:      u.ID,
		Name:    u.DisplayName(),
		Avatar:  u.Avatar,
		Profile: u.Profile,
		Role:    u.Role,
	}
}
