package repository

import (
	"context"
	"strings"
	"time"

	"github.com/ANTONINEUTRON/tita-flow-sub001/internal/model"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// FlowFilter 流程列表过滤条件
type FlowFilter struct {
	Title         string
	CreatedAfter  *time.Time
	CreatedBefore *time.Time
	Status        model.FlowStatus
}

// FlowQuery 列表查询，SortBy 必须是已校验的列名
type FlowQuery struct {
	Filter FlowFilter
	SortBy string
	Desc   bool
	Offset int
	Limit  int
}

type FlowRepository struct {
	db *gorm.DB
}

func NewFlowRepository(db *gorm.DB) *FlowRepository {
	return &FlowRepository{db: db}
}

func preloadChildren(db *gorm.DB) *gorm.DB {
	return db.
		Preload("Milestones", func(db *gorm.DB) *gorm.DB { return db.Order("ordinal") }).
		Preload("Recipients", func(db *gorm.DB) *gorm.DB { return db.Order("ordinal") })
}

// Create 创建流程及其里程碑、接收方
func (r *FlowRepository) Create(ctx context.Context, flow *model.FlowModel) error {
	return dbError(r.db.WithContext(ctx).Create(flow).Error, "流程")
}

func (r *FlowRepository) Get(ctx context.Context, id string) (*model.FlowModel, error) {
	var flow model.FlowModel
	if err := preloadChildren(r.db.WithContext(ctx)).Where("id = ?", id).Take(&flow).Error; err != nil {
		return nil, dbError(err, "流程")
	}
	return &flow, nil
}

// ListByCreator 分页查询用户创建的流程
func (r *FlowRepository) ListByCreator(ctx context.Context, creatorId string, q FlowQuery) ([]model.FlowModel, int64, error) {
	db := r.db.WithContext(ctx).Model(&model.FlowModel{}).Where("creator_id = ?", creatorId)

	f := q.Filter
	if f.Title != "" {
		db = db.Where("LOWER(title) LIKE ? ESCAPE '\\'", "%"+escapeLike(strings.ToLower(f.Title))+"%")
	}
	if f.CreatedAfter != nil {
		db = db.Where("created_at >= ?", *f.CreatedAfter)
	}
	if f.CreatedBefore != nil {
		db = db.Where("created_at <= ?", *f.CreatedBefore)
	}
	if f.Status != "" {
		db = db.Where("status = ?", f.Status)
	}

	var total int64
	if err := db.Count(&total).Error; err != nil {
		return nil, 0, dbError(err, "流程")
	}

	var flows []model.FlowModel
	err := preloadChildren(db).
		Order(clause.OrderByColumn{Column: clause.Column{Name: q.SortBy}, Desc: q.Desc}).
		Order("id").
		Offset(q.Offset).
		Limit(q.Limit).
		Find(&flows).Error
	if err != nil {
		return nil, 0, dbError(err, "流程")
	}
	return flows, total, nil
}

// ListAllByCreator 用户创建的全部流程，不加载子表
func (r *FlowRepository) ListAllByCreator(ctx context.Context, creatorId string) ([]model.FlowModel, error) {
	var flows []model.FlowModel
	if err := r.db.WithContext(ctx).Where("creator_id = ?", creatorId).Order("created_at").Find(&flows).Error; err != nil {
		return nil, dbError(err, "流程")
	}
	return flows, nil
}

// ListExpired 已过结束时间但仍在进行中的流程
func (r *FlowRepository) ListExpired(ctx context.Context, now time.Time, limit int) ([]model.FlowModel, error) {
	var flows []model.FlowModel
	err := r.db.WithContext(ctx).
		Where("status = ? AND end_date IS NOT NULL AND end_date < ?", model.FlowStatusActive, now).
		Order("end_date").
		Limit(limit).
		Find(&flows).Error
	if err != nil {
		return nil, dbError(err, "流程")
	}
	return flows, nil
}

// TransitionStatus 条件更新状态，返回是否命中
func (r *FlowRepository) TransitionStatus(ctx context.Context, id string, from, to model.FlowStatus) (bool, error) {
	res := r.db.WithContext(ctx).Model(&model.FlowModel{}).
		Where("id = ? AND status = ?", id, from).
		Update("status", to)
	if res.Error != nil {
		return false, dbError(res.Error, "流程")
	}
	return res.RowsAffected > 0, nil
}

func (r *FlowRepository) GetMilestone(ctx context.Context, flowId string, ordinal int) (*model.FlowMilestoneModel, error) {
	var m model.FlowMilestoneModel
	if err := r.db.WithContext(ctx).Where("flow_id = ? AND ordinal = ?", flowId, ordinal).Take(&m).Error; err != nil {
		return nil, dbError(err, "里程碑")
	}
	return &m, nil
}

// TransitionMilestone 条件更新里程碑状态
func (r *FlowRepository) TransitionMilestone(ctx context.Context, flowId string, ordinal int, from, to model.MilestoneStatus) (bool, error) {
	res := r.db.WithContext(ctx).Model(&model.FlowMilestoneModel{}).
		Where("flow_id = ? AND ordinal = ? AND status = ?", flowId, ordinal, from).
		Update("status", to)
	if res.Error != nil {
		return false, dbError(res.Error, "里程碑")
	}
	return res.RowsAffected > 0, nil
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}
