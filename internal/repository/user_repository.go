package repository

import (
	"context"
	"time"

	"github.com/ANTONINEUTRON/tita-flow-sub001/internal/model"
	"gorm.io/gorm"
)

type UserRepository struct {
	db *gorm.DB
}

func NewUserRepository(db *gorm.DB) *UserRepository {
	return &UserRepository{db: db}
}

func (r *UserRepository) Create(ctx context.Context, u *model.UserModel) error {
	return dbError(r.db.WithContext(ctx).Create(u).Error, "用户")
}

func (r *UserRepository) Get(ctx context.Context, id string) (*model.UserModel, error) {
	var u model.UserModel
	if err := r.db.WithContext(ctx).Where("id = ?", id).Take(&u).Error; err != nil {
		return nil, dbError(err, "用户")
	}
	return &u, nil
}

// GetByWallet 按绑定的钱包地址查找
func (r *UserRepository) GetByWallet(ctx context.Context, address string) (*model.UserModel, error) {
	var u model.UserModel
	if err := r.db.WithContext(ctx).Where("wallet_address = ?", address).Take(&u).Error; err != nil {
		return nil, dbError(err, "用户")
	}
	return &u, nil
}

// ListByIds 批量查询，不存在的 id 被忽略
func (r *UserRepository) ListByIds(ctx context.Context, ids []string) ([]model.UserModel, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var list []model.UserModel
	if err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&list).Error; err != nil {
		return nil, dbError(err, "用户")
	}
	return list, nil
}

// UpdateProfile 保存资料与偏好，不涉及钱包字段
func (r *UserRepository) UpdateProfile(ctx context.Context, u *model.UserModel) error {
	err := r.db.WithContext(ctx).Model(u).
		Select("email", "username", "name", "avatar_url",
			"pref_email_notifications", "pref_push_notifications", "pref_marketing_notifications",
			"pref_display_currency", "pref_timezone", "pref_language", "updated_at").
		Updates(u).Error
	return dbError(err, "用户")
}

// LinkWallet 绑定钱包，地址已被占用时返回 InvalidState
func (r *UserRepository) LinkWallet(ctx context.Context, id, address string, at time.Time) error {
	res := r.db.WithContext(ctx).Model(&model.UserModel{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{"wallet_address": address, "wallet_linked_at": at})
	if res.Error != nil {
		return dbError(res.Error, "钱包地址")
	}
	if res.RowsAffected == 0 {
		return dbError(gorm.ErrRecordNotFound, "用户")
	}
	return nil
}
