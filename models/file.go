package models

import "time"

type FileType string

const (
	FileTypeImage FileType = "image"
	FileTypeCSV   FileType = "csv"
	FileTypePDF   FileType = "pdf"
)

// FileTypeAll disables type filtering when listing files.
const FileTypeAll = "all"

func (t FileType) Valid() bool {
	switch t {
	case FileTypeImage, FileTypeCSV, FileTypePDF:
		return true
	}
	return false
}

// File is the metadata row of an uploaded blob. A non-nil DeleteAt marks the
// file as trashed; the sweep removes it once DeleteAt has passed.
type File struct {
	ID          uint       `gorm:"primaryKey;autoIncrement" json:"id"`
	Name        string     `gorm:"type:varchar(255);not null;index" json:"name"`
	Type        FileType   `gorm:"type:varchar(10);not null;index" json:"type"`
	OrgID       string     `gorm:"type:varchar(191);not null;index" json:"org_id"`
	StorageID   string     `gorm:"type:varchar(64);not null;uniqueIndex" json:"storage_id"`
	URL         string     `gorm:"type:varchar(1000);not null" json:"url"`
	UserID      uint       `gorm:"not null;index" json:"user_id"`
	ContentType string     `gorm:"type:varchar(100)" json:"content_type"`
	Size        int64      `json:"size"`
	Width       int        `json:"width,omitempty"`
	Height      int        `json:"height,omitempty"`
	DeleteAt    *time.Time `gorm:"index" json:"delete_at,omitempty"`
	CreatedAt   time.Time  `gorm:"index" json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

func (f File) Trashed() bool {
	return f.DeleteAt != nil
}
