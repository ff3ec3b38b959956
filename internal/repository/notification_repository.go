package repository

import (
	"context"

	"github.com/ANTONINEUTRON/tita-flow-sub001/internal/model"
	"gorm.io/gorm"
)

type NotificationRepository struct {
	db *gorm.DB
}

func NewNotificationRepository(db *gorm.DB) *NotificationRepository {
	return &NotificationRepository{db: db}
}

func (r *NotificationRepository) CreateBatch(ctx context.Context, list []model.NotificationModel) error {
	if len(list) == 0 {
		return nil
	}
	return dbError(r.db.WithContext(ctx).CreateInBatches(list, 100).Error, "通知")
}

// ListByUser 最新在前，limit<=0 不限制
func (r *NotificationRepository) ListByUser(ctx context.Context, userId string, limit int) ([]model.NotificationModel, error) {
	db := r.db.WithContext(ctx).
		Where("user_id = ?", userId).
		Order("created_at DESC").
		Order("id DESC")
	if limit > 0 {
		db = db.Limit(limit)
	}
	var list []model.NotificationModel
	if err := db.Find(&list).Error; err != nil {
		return nil, dbError(err, "通知")
	}
	return list, nil
}

func (r *NotificationRepository) CountUnread(ctx context.Context, userId string) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&model.NotificationModel{}).
		Where("user_id = ? AND read = ?", userId, false).
		Count(&n).Error
	if err != nil {
		return 0, dbError(err, "通知")
	}
	return n, nil
}

// MarkRead 仅作用于该用户的通知，不存在时不报错
func (r *NotificationRepository) MarkRead(ctx context.Context, userId, id string) error {
	err := r.db.WithContext(ctx).Model(&model.NotificationModel{}).
		Where("id = ? AND user_id = ?", id, userId).
		Update("read", true).Error
	return dbError(err, "通知")
}

func (r *NotificationRepository) MarkAllRead(ctx context.Context, userId string) error {
	err := r.db.WithContext(ctx).Model(&model.NotificationModel{}).
		Where("user_id = ? AND read = ?", userId, false).
		Update("read", true).Error
	return dbError(err, "通知")
}

func (r *NotificationRepository) Delete(ctx context.Context, userId, id string) error {
	err := r.db.WithContext(ctx).
		Where("id = ? AND user_id = ?", id, userId).
		Delete(&model.NotificationModel{}).Error
	return dbError(err, "通知")
}

func (r *NotificationRepository) Clear(ctx context.Context, userId string) error {
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userId).
		Delete(&model.NotificationModel{}).Error
	return dbError(err, "通知")
}
