package repositories

import (
	"context"

	"github.com/bbasli/bdrive/models"

	"gorm.io/gorm"
)

type GormUserRepository struct {
	db *gorm.DB
}

func NewGormUserRepository(db *gorm.DB) *GormUserRepository {
	return &GormUserRepository{db: db}
}

func (r *GormUserRepository) Create(ctx context.Context, tx *gorm.DB, user *models.User) error {
	return useTx(ctx, r.db, tx).Create(user).Error
}

func (r *GormUserRepository) GetByID(ctx context.Context, tx *gorm.DB, userID uint) (models.User, error) {
	var user models.User
	err := useTx(ctx, r.db, tx).Preload("Memberships").First(&user, userID).Error
	return user, err
}

func (r *GormUserRepository) GetByTokenIdentifier(ctx context.Context, tx *gorm.DB, tokenIdentifier string) (models.User, error) {
	var user models.User
	err := useTx(ctx, r.db, tx).Preload("Memberships").
		Where("token_identifier = ?", tokenIdentifier).
		First(&user).Error
	return user, err
}

func (r *GormUserRepository) UpdateProfile(ctx context.Context, tx *gorm.DB, userID uint, name string, image string) error {
	return useTx(ctx, r.db, tx).Model(&models.User{}).
		Where("id = ?", userID).
		Updates(map[string]interface{}{"name": name, "image": image}).Error
}

func (r *GormUserRepository) AddMembership(ctx context.Context, tx *gorm.DB, membership *models.Membership) error {
	return useTx(ctx, r.db, tx).Create(membership).Error
}

func (r *GormUserRepository) UpdateMembershipRole(ctx context.Context, tx *gorm.DB, userID uint, orgID string, role models.Role) error {
	res := useTx(ctx, r.db, tx).Model(&models.Membership{}).
		Where("user_id = ? AND org_id = ?", userID, orgID).
		Update("role", role)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *GormUserRepository) DeleteMembership(ctx context.Context, tx *gorm.DB, userID uint, orgID string) error {
	return useTx(ctx, r.db, tx).
		Where("user_id = ? AND org_id = ?", userID, orgID).
		Delete(&models.Membership{}).Error
}
