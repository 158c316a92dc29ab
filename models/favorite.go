package models

import "time"

type Favorite struct {
	ID        uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID    uint      `gorm:"not null;uniqueIndex:idx_favorite_user_org_file,priority:1" json:"user_id"`
	OrgID     string    `gorm:"type:varchar(191);not null;uniqueIndex:idx_favorite_user_org_file,priority:2" json:"org_id"`
	FileID    uint      `gorm:"not null;uniqueIndex:idx_favorite_user_org_file,priority:3;index" json:"file_id"`
	CreatedAt time.Time `json:"created_at"`
}
