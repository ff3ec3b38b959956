package repository

import (
	"context"
	"errors"
	"time"

	"github.com/ANTONINEUTRON/tita-flow-sub001/internal/apperror"
	"github.com/ANTONINEUTRON/tita-flow-sub001/internal/model"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// RecordResult 记账后的最新状态
type RecordResult struct {
	Raised       int64
	Goal         int64
	Contributors int64 // 该流程的贡献者人数
	Aggregate    model.ContributionAggregateModel
}

// FlowContributorStat 单个流程的贡献者统计
type FlowContributorStat struct {
	FlowId            string
	Contributors      int64
	ContributionCount int64
}

var errFlowNotActive = errors.New("flow not active")

type ContributionRepository struct {
	db *gorm.DB
}

func NewContributionRepository(db *gorm.DB) *ContributionRepository {
	return &ContributionRepository{db: db}
}

// Record 在同一事务中写入流水、原子累加 raised 并 upsert 贡献者累计
func (r *ContributionRepository) Record(ctx context.Context, c *model.ContributionModel) (*RecordResult, error) {
	var result RecordResult

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// 条件自增，流程不在进行中时不命中
		res := tx.Model(&model.FlowModel{}).
			Where("id = ? AND status = ?", c.FlowId, model.FlowStatusActive).
			Update("raised", gorm.Expr("raised + ?", c.Amount))
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return errFlowNotActive
		}

		if err := tx.Create(c).Error; err != nil {
			return err
		}

		agg := model.ContributionAggregateModel{
			FlowId:            c.FlowId,
			ContributorId:     c.ContributorId,
			TotalAmount:       c.Amount,
			ContributionCount: 1,
			FirstContributed:  c.CreatedAt,
			LastContributed:   c.CreatedAt,
		}
		err := tx.Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "flow_id"}, {Name: "contributor_id"}},
			DoUpdates: clause.Set{
				{Column: clause.Column{Name: "total_amount"}, Value: gorm.Expr("contribution_aggregate.total_amount + excluded.total_amount")},
				{Column: clause.Column{Name: "contribution_count"}, Value: gorm.Expr("contribution_aggregate.contribution_count + 1")},
				{Column: clause.Column{Name: "last_contributed"}, Value: gorm.Expr("excluded.last_contributed")},
			},
		}).Create(&agg).Error
		if err != nil {
			return err
		}

		if err := tx.Where("flow_id = ? AND contributor_id = ?", c.FlowId, c.ContributorId).
			Take(&result.Aggregate).Error; err != nil {
			return err
		}

		var flow model.FlowModel
		if err := tx.Select("raised", "goal").Where("id = ?", c.FlowId).Take(&flow).Error; err != nil {
			return err
		}
		result.Raised = flow.Raised
		result.Goal = flow.Goal

		return tx.Model(&model.ContributionAggregateModel{}).
			Where("flow_id = ?", c.FlowId).
			Count(&result.Contributors).Error
	})
	if errors.Is(err, errFlowNotActive) {
		return nil, apperror.InvalidState("流程不在进行中，无法接受贡献")
	}
	if err != nil {
		return nil, dbError(err, "贡献")
	}
	return &result, nil
}

// ListAggregatesByFlow 按累计金额降序，其次按首次贡献时间
func (r *ContributionRepository) ListAggregatesByFlow(ctx context.Context, flowId string) ([]model.ContributionAggregateModel, error) {
	var aggs []model.ContributionAggregateModel
	err := r.db.WithContext(ctx).
		Where("flow_id = ?", flowId).
		Order("total_amount DESC").
		Order("first_contributed").
		Order("contributor_id").
		Find(&aggs).Error
	if err != nil {
		return nil, dbError(err, "贡献")
	}
	return aggs, nil
}

// ListByContributor 用户的贡献流水，最新在前
func (r *ContributionRepository) ListByContributor(ctx context.Context, contributorId string) ([]model.ContributionModel, error) {
	var list []model.ContributionModel
	err := r.db.WithContext(ctx).
		Where("contributor_id = ?", contributorId).
		Order("created_at DESC").
		Order("id").
		Find(&list).Error
	if err != nil {
		return nil, dbError(err, "贡献")
	}
	return list, nil
}

// ContributorIds 流程的全部贡献者
func (r *ContributionRepository) ContributorIds(ctx context.Context, flowId string) ([]string, error) {
	var ids []string
	err := r.db.WithContext(ctx).Model(&model.ContributionAggregateModel{}).
		Where("flow_id = ?", flowId).
		Order("contributor_id").
		Pluck("contributor_id", &ids).Error
	if err != nil {
		return nil, dbError(err, "贡献")
	}
	return ids, nil
}

// StatsByCreator 创建者名下每个流程的贡献者数与贡献次数
func (r *ContributionRepository) StatsByCreator(ctx context.Context, creatorId string) ([]FlowContributorStat, error) {
	var stats []FlowContributorStat
	err := r.db.WithContext(ctx).
		Table("contribution_aggregate AS a").
		Select("a.flow_id AS flow_id, COUNT(*) AS contributors, COALESCE(SUM(a.contribution_count), 0) AS contribution_count").
		Joins("JOIN flow f ON f.id = a.flow_id").
		Where("f.creator_id = ?", creatorId).
		Group("a.flow_id").
		Scan(&stats).Error
	if err != nil {
		return nil, dbError(err, "贡献")
	}
	return stats, nil
}

// CountDistinctContributorsByCreator 跨流程去重的贡献者数
func (r *ContributionRepository) CountDistinctContributorsByCreator(ctx context.Context, creatorId string) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).
		Table("contribution_aggregate AS a").
		Joins("JOIN flow f ON f.id = a.flow_id").
		Where("f.creator_id = ?", creatorId).
		Distinct("a.contributor_id").
		Count(&n).Error
	if err != nil {
		return 0, dbError(err, "贡献")
	}
	return n, nil
}

// ListByCreatorSince 创建者名下流程自 since 起的贡献流水
func (r *ContributionRepository) ListByCreatorSince(ctx context.Context, creatorId string, since time.Time) ([]model.ContributionModel, error) {
	var list []model.ContributionModel
	err := r.db.WithContext(ctx).
		Table("contribution AS c").
		Select("c.*").
		Joins("JOIN flow f ON f.id = c.flow_id").
		Where("f.creator_id = ? AND c.created_at >= ?", creatorId, since).
		Order("c.created_at").
		Find(&list).Error
	if err != nil {
		return nil, dbError(err, "贡献")
	}
	return list, nil
}
