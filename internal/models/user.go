package models

type Role string

const (
	RoleUser      Role = "USER"
	RoleOrganizer Role = "ORGANIZER"
	RoleAdmin     Role = "ADMIN"
)

func (r Role) Valid() bool {
	switch r {
	case RoleUser, RoleOrganizer, RoleAdmin:
		return true
	}
	return false
}

type User struct {
	Base
	Email        string  `gorm:"uniqueIndex;not null" json:"email"`
	PasswordHash string  `json:"-"`
	Name         *string `json:"name"`
	Avatar       *string `json:"avatar"`
	Phone        *string `json:"phone,omitempty"`
	Role         Role    `gorm:"type:varchar(20);not null;index" json:"role"`
	DiscordID    *string `gorm:"uniqueIndex" json:"-"`
}

// DisplayName falls back to the email when no name was given.
func (u User) DisplayName() string {
	if u.Name != nil && *u.Name != "" {
		return *u.Name
	}
	return u.Email
}
