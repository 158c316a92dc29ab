package repositories

import (
	"context"

	"github.com/bbasli/bdrive/models"

	"gorm.io/gorm"
)

type GormFavoriteRepository struct {
	db *gorm.DB
}

func NewGormFavoriteRepository(db *gorm.DB) *GormFavoriteRepository {
	return &GormFavoriteRepository{db: db}
}

func (r *GormFavoriteRepository) Get(ctx context.Context, tx *gorm.DB, userID uint, orgID string, fileID uint) (models.Favorite, error) {
	var favorite models.Favorite
	err := useTx(ctx, r.db, tx).
		Where("user_id = ? AND org_id = ? AND file_id = ?", userID, orgID, fileID).
		First(&favorite).Error
	return favorite, err
}

func (r *GormFavoriteRepository) ListByUserAndOrg(ctx context.Context, tx *gorm.DB, userID uint, orgID string) ([]models.Favorite, error) {
	var favorites []models.Favorite
	err := useTx(ctx, r.db, tx).
		Where("user_id = ? AND org_id = ?", userID, orgID).
		Find(&favorites).Error
	return favorites, err
}

func (r *GormFavoriteRepository) Create(ctx context.Context, tx *gorm.DB, favorite *models.Favorite) error {
	return useTx(ctx, r.db, tx).Create(favorite).Error
}

func (r *GormFavoriteRepository) DeleteByID(ctx context.Context, tx *gorm.DB, favoriteID uint) error {
	return useTx(ctx, r.db, tx).Delete(&models.Favorite{}, favoriteID).Error
}

func (r *GormFavoriteRepository) DeleteByFileID(ctx context.Context, tx *gorm.DB, fileID uint) error {
	return useTx(ctx, r.db, tx).Where("file_id = ?", fileID).Delete(&models.Favorite{}).Error
}
