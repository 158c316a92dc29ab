package models

import "time"

type Role string

const (
	RoleAdmin  Role = "admin"
	RoleMember Role = "member"
)

func (r Role) Valid() bool {
	return r == RoleAdmin || r == RoleMember
}

type User struct {
	ID              uint         `gorm:"primaryKey;autoIncrement" json:"id"`
	TokenIdentifier string       `gorm:"type:varchar(255);uniqueIndex;not null" json:"token_identifier"`
	Name            string       `gorm:"type:varchar(255)" json:"name"`
	Image           string       `gorm:"type:varchar(1000)" json:"image,omitempty"`
	Memberships     []Membership `gorm:"foreignKey:UserID" json:"org_ids"`
	CreatedAt       time.Time    `json:"created_at"`
	UpdatedAt       time.Time    `json:"updated_at"`
}

// RoleIn reports the user's role in orgID, if any.
func (u User) RoleIn(orgID string) (Role, bool) {
	for _, m := range u.Memberships {
		if m.OrgID == orgID {
			return m.Role, true
		}
	}
	return "", false
}

func (u User) IsAdminOf(orgID string) bool {
	role, ok := u.RoleIn(orgID)
	return ok && role == RoleAdmin
}
