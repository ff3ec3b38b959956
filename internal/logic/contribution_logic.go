package logic

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/ANTONINEUTRON/tita-flow-sub001/internal/apperror"
	"github.com/ANTONINEUTRON/tita-flow-sub001/internal/event"
	"github.com/ANTONINEUTRON/tita-flow-sub001/internal/logger"
	"github.com/ANTONINEUTRON/tita-flow-sub001/internal/metrics"
	"github.com/ANTONINEUTRON/tita-flow-sub001/internal/model"
	"github.com/ANTONINEUTRON/tita-flow-sub001/internal/money"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// 最近月份数，月度序列至少保留这么多个月
const recentMonths = 12

// RecordContributionInput 贡献参数
type RecordContributionInput struct {
	FlowId        string          `json:"-"`
	ContributorId string          `json:"-"`
	Amount        decimal.Decimal `json:"amount"`
	Currency      string          `json:"currency"`
	TxSignature   string          `json:"tx_signature"`
}

// ContributionReceipt 记账结果
type ContributionReceipt struct {
	Contribution model.ContributionModel          `json:"contribution"`
	Aggregate    model.ContributionAggregateModel `json:"aggregate"`
	Raised       int64                            `json:"raised"`
}

// FlowAnalytics 单个流程的统计
type FlowAnalytics struct {
	FlowId        string           `json:"flow_id"`
	Title         string           `json:"title"`
	Currency      string           `json:"currency"`
	Status        model.FlowStatus `json:"status"`
	Goal          int64            `json:"goal"`
	Raised        int64            `json:"raised"`
	Contributors  int64            `json:"contributors"`
	Contributions int64            `json:"contributions"`
}

// MonthlyPoint 月度贡献额，按币种分列
type MonthlyPoint struct {
	Month         string           `json:"month"` // 2006-01
	Amounts       map[string]int64 `json:"amounts"`
	Contributions int64            `json:"contributions"`
}

// CreatorAnalytics 创建者的汇总统计
type CreatorAnalytics struct {
	CreatorId          string           `json:"creator_id"`
	TotalFlows         int              `json:"total_flows"`
	ActiveFlows        int              `json:"active_flows"`
	RaisedByCurrency   map[string]int64 `json:"raised_by_currency"`
	TotalContributors  int64            `json:"total_contributors"`
	TotalContributions int64            `json:"total_contributions"`
	Flows              []FlowAnalytics  `json:"flows"`
	Monthly            []MonthlyPoint   `json:"monthly"`
}

// ContributionLogic 贡献账本业务逻辑
type ContributionLogic struct {
	flows         FlowStore
	contributions ContributionStore
	currencies    *money.Registry
	events        event.Publisher
	now           Clock
}

// NewContributionLogic 创建贡献业务逻辑
func NewContributionLogic(flows FlowStore, contributions ContributionStore, currencies *money.Registry, events event.Publisher) *ContributionLogic {
	return &ContributionLogic{
		flows:         flows,
		contributions: contributions,
		currencies:    currencies,
		events:        events,
		now:           systemClock,
	}
}

// WithClock 替换时间来源
func (l *ContributionLogic) WithClock(now Clock) *ContributionLogic {
	l.now = now
	return l
}

// RecordContribution 记录一笔贡献
func (l *ContributionLogic) RecordContribution(ctx context.Context, in RecordContributionInput) (*ContributionReceipt, error) {
	currency := strings.ToUpper(strings.TrimSpace(in.Currency))

	var v apperror.Collector
	v.Check(in.FlowId != "", "flow_id", "不能为空")
	v.Check(in.ContributorId != "", "contributor_id", "不能为空")
	v.Check(in.Amount.IsPositive(), "amount", "贡献金额必须大于0")
	v.Check(currency != "", "currency", "不能为空")
	if err := v.Err(); err != nil {
		return nil, err
	}

	flow, err := l.flows.Get(ctx, in.FlowId)
	if err != nil {
		return nil, err
	}
	if flow.Status != model.FlowStatusActive {
		return nil, apperror.InvalidState("流程不在进行中，无法接受贡献")
	}
	if currency != flow.Currency {
		return nil, apperror.Invalid("currency", "币种必须与流程一致: %s", flow.Currency)
	}
	units, err := l.currencies.ToUnits(flow.Currency, in.Amount)
	if err != nil {
		return nil, apperror.Invalid("amount", "金额无效: %v", err)
	}

	c := &model.ContributionModel{
		Id:            uuid.NewString(),
		CreatedAt:     l.now(),
		FlowId:        flow.Id,
		ContributorId: in.ContributorId,
		Amount:        units,
		Currency:      flow.Currency,
	}
	if sig := strings.TrimSpace(in.TxSignature); sig != "" {
		c.TxSignature = &sig
	}

	res, err := l.contributions.Record(ctx, c)
	if err != nil {
		if apperror.Is(err, apperror.KindDependency) {
			logger.Error("Failed to record contribution to flow %s: %v", flow.Id, err)
		}
		return nil, err
	}

	metrics.RecordContribution(flow.Currency)
	logger.Info("Contribution %s recorded: %d %s to flow %s by %s", c.Id, units, flow.Currency, flow.Id, c.ContributorId)

	l.events.Publish(event.Event{
		Type:       event.ContributionRecorded,
		OccurredAt: c.CreatedAt,
		FlowId:     flow.Id,
		FlowTitle:  flow.Title,
		OwnerId:    flow.CreatorId,
		ActorId:    c.ContributorId,
		Amount:     units,
		Currency:   flow.Currency,
	})

	// 本次贡献使 raised 越过目标
	if before := res.Raised - units; before < res.Goal && res.Raised >= res.Goal {
		l.events.Publish(event.Event{
			Type:         event.FlowGoalReached,
			OccurredAt:   c.CreatedAt,
			FlowId:       flow.Id,
			FlowTitle:    flow.Title,
			OwnerId:      flow.CreatorId,
			Amount:       res.Goal,
			Currency:     flow.Currency,
			Raised:       res.Raised,
			Contributors: res.Contributors,
		})
	}

	return &ContributionReceipt{Contribution: *c, Aggregate: res.Aggregate, Raised: res.Raised}, nil
}

// GetContributionsByFlow 流程的贡献者累计，金额高者在前
func (l *ContributionLogic) GetContributionsByFlow(ctx context.Context, flowId string) ([]model.ContributionAggregateModel, error) {
	if flowId == "" {
		return nil, apperror.Invalid("flow_id", "不能为空")
	}
	if _, err := l.flows.Get(ctx, flowId); err != nil {
		return nil, err
	}
	return l.contributions.ListAggregatesByFlow(ctx, flowId)
}

// ListContributionsByContributor 用户自己的贡献记录
func (l *ContributionLogic) ListContributionsByContributor(ctx context.Context, userId string) ([]model.ContributionModel, error) {
	if userId == "" {
		return nil, apperror.Invalid("user_id", "不能为空")
	}
	return l.contributions.ListByContributor(ctx, userId)
}

// GetAnalyticsByCreator 创建者名下所有流程的汇总
func (l *ContributionLogic) GetAnalyticsByCreator(ctx context.Context, creatorId string) (*CreatorAnalytics, error) {
	if creatorId == "" {
		return nil, apperror.Invalid("creator_id", "不能为空")
	}

	flows, err := l.flows.ListAllByCreator(ctx, creatorId)
	if err != nil {
		return nil, err
	}
	stats, err := l.contributions.StatsByCreator(ctx, creatorId)
	if err != nil {
		return nil, err
	}
	distinct, err := l.contributions.CountDistinctContributorsByCreator(ctx, creatorId)
	if err != nil {
		return nil, err
	}

	byFlow := make(map[string]FlowAnalytics, len(stats))
	for _, s := range stats {
		byFlow[s.FlowId] = FlowAnalytics{Contributors: s.Contributors, Contributions: s.ContributionCount}
	}

	out := &CreatorAnalytics{
		CreatorId:         creatorId,
		TotalFlows:        len(flows),
		RaisedByCurrency:  make(map[string]int64),
		TotalContributors: distinct,
		Flows:             make([]FlowAnalytics, 0, len(flows)),
	}
	for _, f := range flows {
		fa := byFlow[f.Id]
		fa.FlowId = f.Id
		fa.Title = f.Title
		fa.Currency = f.Currency
		fa.Status = f.Status
		fa.Goal = f.Goal
		fa.Raised = f.Raised
		out.Flows = append(out.Flows, fa)

		out.RaisedByCurrency[f.Currency] += f.Raised
		out.TotalContributions += fa.Contributions
		if f.Status == model.FlowStatusActive {
			out.ActiveFlows++
		}
	}

	now := l.now()
	since := time.Date(now.Year()-1, time.January, 1, 0, 0, 0, 0, time.UTC)
	list, err := l.contributions.ListByCreatorSince(ctx, creatorId, since)
	if err != nil {
		return nil, err
	}
	out.Monthly = monthlySeries(list, since, now)
	return out, nil
}

// monthlySeries 从 since 所在月到 now 所在月，保留有贡献的月份以及最近12个月
func monthlySeries(list []model.ContributionModel, since, now time.Time) []MonthlyPoint {
	buckets := make(map[string]*MonthlyPoint)
	for _, c := range list {
		key := monthKey(c.CreatedAt)
		p, ok := buckets[key]
		if !ok {
			p = &MonthlyPoint{Month: key, Amounts: make(map[string]int64)}
			buckets[key] = p
		}
		p.Amounts[c.Currency] += c.Amount
		p.Contributions++
	}

	var months []time.Time
	for m := time.Date(since.Year(), since.Month(), 1, 0, 0, 0, 0, time.UTC); !m.After(now); m = m.AddDate(0, 1, 0) {
		months = append(months, m)
	}

	series := make([]MonthlyPoint, 0, len(months))
	for i, m := range months {
		key := monthKey(m)
		recent := i >= len(months)-recentMonths
		if p, ok := buckets[key]; ok {
			series = append(series, *p)
		} else if recent {
			series = append(series, MonthlyPoint{Month: key, Amounts: map[string]int64{}})
		}
	}
	return series
}

func monthKey(t time.Time) string {
	t = t.UTC()
	return fmt.Sprintf("%04d-%02d", t.Year(), int(t.Month()))
}
