package logic

import (
	"context"
	"time"

	"github.com/ANTONINEUTRON/tita-flow-sub001/internal/model"
	"github.com/ANTONINEUTRON/tita-flow-sub001/internal/repository"
)

// FlowStore 流程存储
type FlowStore interface {
	Create(ctx context.Context, flow *model.FlowModel) error
	Get(ctx context.Context, id string) (*model.FlowModel, error)
	ListByCreator(ctx context.Context, creatorId string, q repository.FlowQuery) ([]model.FlowModel, int64, error)
	ListAllByCreator(ctx context.Context, creatorId string) ([]model.FlowModel, error)
	ListExpired(ctx context.Context, now time.Time, limit int) ([]model.FlowModel, error)
	TransitionStatus(ctx context.Context, id string, from, to model.FlowStatus) (bool, error)
	GetMilestone(ctx context.Context, flowId string, ordinal int) (*model.FlowMilestoneModel, error)
	TransitionMilestone(ctx context.Context, flowId string, ordinal int, from, to model.MilestoneStatus) (bool, error)
}

// ContributionStore 贡献存储
type ContributionStore interface {
	Record(ctx context.Context, c *model.ContributionModel) (*repository.RecordResult, error)
	ListAggregatesByFlow(ctx context.Context, flowId string) ([]model.ContributionAggregateModel, error)
	ListByContributor(ctx context.Context, contributorId string) ([]model.ContributionModel, error)
	StatsByCreator(ctx context.Context, creatorId string) ([]repository.FlowContributorStat, error)
	CountDistinctContributorsByCreator(ctx context.Context, creatorId string) (int64, error)
	ListByCreatorSince(ctx context.Context, creatorId string, since time.Time) ([]model.ContributionModel, error)
}

// NotificationStore 通知存储
type NotificationStore interface {
	ListByUser(ctx context.Context, userId string, limit int) ([]model.NotificationModel, error)
	CountUnread(ctx context.Context, userId string) (int64, error)
	MarkRead(ctx context.Context, userId, id string) error
	MarkAllRead(ctx context.Context, userId string) error
	Delete(ctx context.Context, userId, id string) error
	Clear(ctx context.Context, userId string) error
}

// UpdateStore 动态与评论存储
type UpdateStore interface {
	CreateUpdate(ctx context.Context, u *model.FlowUpdateModel) error
	GetUpdate(ctx context.Context, id string) (*model.FlowUpdateModel, error)
	ListUpdates(ctx context.Context, flowId string) ([]model.FlowUpdateModel, error)
	CreateComment(ctx context.Context, c *model.UpdateCommentModel) error
	ListComments(ctx context.Context, updateId string) ([]model.UpdateCommentModel, error)
}

// UserStore 用户存储
type UserStore interface {
	Create(ctx context.Context, u *model.UserModel) error
	Get(ctx context.Context, id string) (*model.UserModel, error)
	GetByWallet(ctx context.Context, address string) (*model.UserModel, error)
	UpdateProfile(ctx context.Context, u *model.UserModel) error
	LinkWallet(ctx context.Context, id, address string, at time.Time) error
}

// Clock 可替换的时间来源
type Clock func() time.Time

func systemClock() time.Time {
	return time.Now().UTC()
}
