package repository

import (
	"context"

	"github.com/ANTONINEUTRON/tita-flow-sub001/internal/model"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GovernanceEventRepository 治理事件入站日志
type GovernanceEventRepository struct {
	db *gorm.DB
}

func NewGovernanceEventRepository(db *gorm.DB) *GovernanceEventRepository {
	return &GovernanceEventRepository{db: db}
}

// Insert 按 external_id 去重写入，重复时返回 false
func (r *GovernanceEventRepository) Insert(ctx context.Context, ev *model.GovernanceEventModel) (bool, error) {
	res := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "external_id"}}, DoNothing: true}).
		Create(ev)
	if res.Error != nil {
		return false, dbError(res.Error, "治理事件")
	}
	return res.RowsAffected > 0, nil
}

func (r *GovernanceEventRepository) GetByExternalId(ctx context.Context, externalId string) (*model.GovernanceEventModel, error) {
	var ev model.GovernanceEventModel
	if err := r.db.WithContext(ctx).Where("external_id = ?", externalId).Take(&ev).Error; err != nil {
		return nil, dbError(err, "治理事件")
	}
	return &ev, nil
}

// MarkProcessed 记录处理结果，processed 为 false 表示可重试
func (r *GovernanceEventRepository) MarkProcessed(ctx context.Context, id int64, processed bool, lastError string) error {
	err := r.db.WithContext(ctx).Model(&model.GovernanceEventModel{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{"processed": processed, "last_error": lastError}).Error
	return dbError(err, "治理事件")
}
