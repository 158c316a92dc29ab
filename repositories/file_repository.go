package repositories

import (
	"context"
	"strings"
	"time"

	"github.com/bbasli/bdrive/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type GormFileRepository struct {
	db *gorm.DB
}

func NewGormFileRepository(db *gorm.DB) *GormFileRepository {
	return &GormFileRepository{db: db}
}

func (r *GormFileRepository) Create(ctx context.Context, tx *gorm.DB, file *models.File) error {
	return useTx(ctx, r.db, tx).Create(file).Error
}

func (r *GormFileRepository) GetByID(ctx context.Context, tx *gorm.DB, fileID uint) (models.File, error) {
	var file models.File
	err := useTx(ctx, r.db, tx).First(&file, fileID).Error
	return file, err
}

func (r *GormFileRepository) ListByOrg(ctx context.Context, tx *gorm.DB, in ListFilesInput) ([]models.File, error) {
	query := useTx(ctx, r.db, tx).Model(&models.File{}).Where("org_id = ?", in.OrgID)

	if in.Trashed {
		query = query.Where("delete_at IS NOT NULL")
	} else {
		query = query.Where("delete_at IS NULL")
	}

	if in.Type != "" {
		query = query.Where("type = ?", in.Type)
	}

	if term := strings.TrimSpace(in.Query); term != "" {
		query = query.Where("LOWER(name) LIKE ? ESCAPE '!'", "%"+escapeLike(strings.ToLower(term))+"%")
	}

	if in.FavoritesOf > 0 {
		favorites := useTx(ctx, r.db, tx).Model(&models.Favorite{}).
			Select("file_id").
			Where("user_id = ? AND org_id = ?", in.FavoritesOf, in.OrgID)
		query = query.Where("id IN (?)", favorites)
	}

	var files []models.File
	err := query.Order("created_at DESC").Order("id DESC").Find(&files).Error
	return files, err
}

func (r *GormFileRepository) SetDeleteAt(ctx context.Context, tx *gorm.DB, fileID uint, deleteAt *time.Time) error {
	return useTx(ctx, r.db, tx).Model(&models.File{}).
		Where("id = ?", fileID).
		Update("delete_at", deleteAt).Error
}

func (r *GormFileRepository) ListDeletable(ctx context.Context, tx *gorm.DB, now time.Time, limit int) ([]models.File, error) {
	query := useTx(ctx, r.db, tx).
		Where("delete_at IS NOT NULL AND delete_at < ?", now).
		Order("delete_at ASC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	var files []models.File
	err := query.Find(&files).Error
	return files, err
}

func (r *GormFileRepository) LockDeletable(ctx context.Context, tx *gorm.DB, fileID uint, now time.Time) (models.File, error) {
	var file models.File
	err := useTx(ctx, r.db, tx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ? AND delete_at IS NOT NULL AND delete_at < ?", fileID, now).
		First(&file).Error
	return file, err
}

func (r *GormFileRepository) DeleteDeletable(ctx context.Context, tx *gorm.DB, fileID uint, now time.Time) (bool, error) {
	res := useTx(ctx, r.db, tx).
		Where("id = ? AND delete_at IS NOT NULL AND delete_at < ?", fileID, now).
		Delete(&models.File{})
	return res.RowsAffected > 0, res.Error
}

var likeEscaper = strings.NewReplacer("!", "!!", "%", "!%", "_", "!_")

func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}
