package repository

import (
	"context"

	"github.com/ANTONINEUTRON/tita-flow-sub001/internal/model"
	"gorm.io/gorm"
)

// UpdateRepository 项目动态与评论
type UpdateRepository struct {
	db *gorm.DB
}

func NewUpdateRepository(db *gorm.DB) *UpdateRepository {
	return &UpdateRepository{db: db}
}

func (r *UpdateRepository) CreateUpdate(ctx context.Context, u *model.FlowUpdateModel) error {
	return dbError(r.db.WithContext(ctx).Create(u).Error, "动态")
}

func (r *UpdateRepository) GetUpdate(ctx context.Context, id string) (*model.FlowUpdateModel, error) {
	var u model.FlowUpdateModel
	if err := r.db.WithContext(ctx).Where("id = ?", id).Take(&u).Error; err != nil {
		return nil, dbError(err, "动态")
	}
	return &u, nil
}

// ListUpdates 按时间先后
func (r *UpdateRepository) ListUpdates(ctx context.Context, flowId string) ([]model.FlowUpdateModel, error) {
	var list []model.FlowUpdateModel
	err := r.db.WithContext(ctx).
		Where("flow_id = ?", flowId).
		Order("created_at").
		Order("id").
		Find(&list).Error
	if err != nil {
		return nil, dbError(err, "动态")
	}
	return list, nil
}

func (r *UpdateRepository) CreateComment(ctx context.Context, c *model.UpdateCommentModel) error {
	return dbError(r.db.WithContext(ctx).Create(c).Error, "评论")
}

// ListComments 按时间先后
func (r *UpdateRepository) ListComments(ctx context.Context, updateId string) ([]model.UpdateCommentModel, error) {
	var list []model.UpdateCommentModel
	err := r.db.WithContext(ctx).
		Where("update_id = ?", updateId).
		Order("created_at").
		Order("id").
		Find(&list).Error
	if err != nil {
		return nil, dbError(err, "评论")
	}
	return list, nil
}
