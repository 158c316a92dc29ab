package models

import "time"

type Membership struct {
	ID        uint      `gorm:"primaryKey;autoIncrement" json:"-"`
	UserID    uint      `gorm:"not null;uniqueIndex:idx_membership_user_org,priority:1" json:"-"`
	OrgID     string    `gorm:"type:varchar(191);not null;uniqueIndex:idx_membership_user_org,priority:2;index" json:"org_id"`
	Role      Role      `gorm:"type:varchar(10);not null" json:"role"`
	CreatedAt time.Time `json:"-"`
	UpdatedAt time.Time `json:"-"`
}
