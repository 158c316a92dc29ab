package repositories

import (
	"context"
	"time"

	"github.com/bbasli/bdrive/models"

	"gorm.io/gorm"
)

type TxManager interface {
	WithTransaction(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type UserRepository interface {
	Create(ctx context.Context, tx *gorm.DB, user *models.User) error
	GetByID(ctx context.Context, tx *gorm.DB, userID uint) (models.User, error)
	GetByTokenIdentifier(ctx context.Context, tx *gorm.DB, tokenIdentifier string) (models.User, error)
	UpdateProfile(ctx context.Context, tx *gorm.DB, userID uint, name string, image string) error
	AddMembership(ctx context.Context, tx *gorm.DB, membership *models.Membership) error
	UpdateMembershipRole(ctx context.Context, tx *gorm.DB, userID uint, orgID string, role models.Role) error
	DeleteMembership(ctx context.Context, tx *gorm.DB, userID uint, orgID string) error
}

// ListFilesInput selects files of one org. Trashed picks trashed files when
// true and active files otherwise. FavoritesOf, when non-zero, restricts the
// result to files that user has favorited in the org.
type ListFilesInput struct {
	OrgID       string
	Query       string
	Type        models.FileType
	Trashed     bool
	FavoritesOf uint
}

type FileRepository interface {
	Create(ctx context.Context, tx *gorm.DB, file *models.File) error
	GetByID(ctx context.Context, tx *gorm.DB, fileID uint) (models.File, error)
	ListByOrg(ctx context.Context, tx *gorm.DB, in ListFilesInput) ([]models.File, error)
	SetDeleteAt(ctx context.Context, tx *gorm.DB, fileID uint, deleteAt *time.Time) error
	ListDeletable(ctx context.Context, tx *gorm.DB, now time.Time, limit int) ([]models.File, error)
	// LockDeletable re-reads the file under a row lock and returns
	// gorm.ErrRecordNotFound unless its deadline is still before now.
	LockDeletable(ctx context.Context, tx *gorm.DB, fileID uint, now time.Time) (models.File, error)
	// DeleteDeletable removes the row only while its deadline is before now.
	DeleteDeletable(ctx context.Context, tx *gorm.DB, fileID uint, now time.Time) (bool, error)
}

type FavoriteRepository interface {
	Get(ctx context.Context, tx *gorm.DB, userID uint, orgID string, fileID uint) (models.Favorite, error)
	ListByUserAndOrg(ctx context.Context, tx *gorm.DB, userID uint, orgID string) ([]models.Favorite, error)
	Create(ctx context.Context, tx *gorm.DB, favorite *models.Favorite) error
	DeleteByID(ctx context.Context, tx *gorm.DB, favoriteID uint) error
	DeleteByFileID(ctx context.Context, tx *gorm.DB, fileID uint) error
}

// UploadTicket binds an allocated storage id to the identity that asked for it.
type UploadTicket struct {
	StorageID       string    `json:"storage_id"`
	TokenIdentifier string    `json:"token_identifier"`
	ContentType     string    `json:"content_type,omitempty"`
	ExpiresAt       time.Time `json:"expires_at"`
}

type UploadTicketRepository interface {
	Save(ctx context.Context, ticket UploadTicket, ttl time.Duration) error
	Get(ctx context.Context, storageID string) (UploadTicket, error)
	// Take atomically reads and removes the ticket; only one caller wins.
	Take(ctx context.Context, storageID string) (UploadTicket, error)
}

type LockRepository interface {
	// Acquire returns a release token when the lock was taken, "" otherwise.
	Acquire(ctx context.Context, key string, ttl time.Duration) (string, error)
	Release(ctx context.Context, key string, token string) error
}

type Container struct {
	TxManager     TxManager
	Users         UserRepository
	Files         FileRepository
	Favorites     FavoriteRepository
	UploadTickets UploadTicketRepository
	Locks         LockRepository
}
