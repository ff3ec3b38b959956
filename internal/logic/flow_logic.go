package logic

import (
	"context"
	"math"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/ANTONINEUTRON/tita-flow-sub001/internal/apperror"
	"github.com/ANTONINEUTRON/tita-flow-sub001/internal/event"
	"github.com/ANTONINEUTRON/tita-flow-sub001/internal/logger"
	"github.com/ANTONINEUTRON/tita-flow-sub001/internal/model"
	"github.com/ANTONINEUTRON/tita-flow-sub001/internal/money"
	"github.com/ANTONINEUTRON/tita-flow-sub001/internal/repository"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const (
	maxFlowIdLen    = 64
	maxTitleLen     = 200
	maxPageSize     = 100
	expiredBatch    = 100
	defaultSortBy   = "created_at"
	defaultSortDesc = true
)

// 允许排序的列，兼容前端的驼峰写法
var flowSortColumns = map[string]string{
	"created_at": "created_at",
	"createdAt":  "created_at",
	"title":      "title",
	"goal":       "goal",
	"raised":     "raised",
	"start_date": "start_date",
	"startDate":  "start_date",
}

// MilestoneInput 里程碑输入
type MilestoneInput struct {
	Description string          `json:"description"`
	Amount      decimal.Decimal `json:"amount"`
	Deadline    time.Time       `json:"deadline"`
}

// RecipientInput 加权分配接收方输入，百分比为整数
type RecipientInput struct {
	Address    string `json:"address"`
	Name       string `json:"name"`
	Percentage int    `json:"percentage"`
}

// CreateFlowInput 创建流程参数
type CreateFlowInput struct {
	Id           string          `json:"id"`
	Title        string          `json:"title"`
	Description  string          `json:"description"`
	Goal         decimal.Decimal `json:"goal"`
	Currency     string          `json:"currency"`
	StartDate    time.Time       `json:"start_date"`
	DurationDays int             `json:"duration_days"`
	CreatorId    string          `json:"-"`
	CreatorName  string          `json:"creator_name"`

	Rules      model.FlowRules  `json:"rules"`
	Milestones []MilestoneInput `json:"milestones"`
	Recipients []RecipientInput `json:"weighted_distribution"`

	VotingPowerModel   model.VotingPowerModel `json:"voting_power_model"`
	QuorumPercentage   int                    `json:"quorum_percentage"`
	ApprovalPercentage int                    `json:"approval_percentage"`
	VotingPeriodDays   int                    `json:"voting_period_days"`

	Images   []string `json:"images"`
	VideoURL string   `json:"video_url"`
}

// ListFlowsParams 列表参数
type ListFlowsParams struct {
	Page      int
	PageSize  int
	Filter    repository.FlowFilter
	SortBy    string
	SortOrder string
}

// FlowPage 分页结果
type FlowPage struct {
	Items      []model.FlowModel `json:"items"`
	Total      int64             `json:"total"`
	Page       int               `json:"page"`
	PageSize   int               `json:"page_size"`
	TotalPages int               `json:"total_pages"`
	HasMore    bool              `json:"has_more"`
}

// FlowLogic 流程登记业务逻辑
type FlowLogic struct {
	flows      FlowStore
	currencies *money.Registry
	events     event.Publisher
	now        Clock
}

// NewFlowLogic 创建流程业务逻辑
func NewFlowLogic(flows FlowStore, currencies *money.Registry, events event.Publisher) *FlowLogic {
	return &FlowLogic{flows: flows, currencies: currencies, events: events, now: systemClock}
}

// WithClock 替换时间来源
func (l *FlowLogic) WithClock(now Clock) *FlowLogic {
	l.now = now
	return l
}

// CreateFlow 校验并创建流程，校验失败时不写入任何数据
func (l *FlowLogic) CreateFlow(ctx context.Context, in CreateFlowInput) (*model.FlowModel, error) {
	flow, err := l.buildFlow(in)
	if err != nil {
		return nil, err
	}

	if err := l.flows.Create(ctx, flow); err != nil {
		if apperror.Is(err, apperror.KindDependency) {
			logger.Error("Failed to create flow %s: %v", flow.Id, err)
		}
		return nil, err
	}
	logger.Info("Flow %s created by %s", flow.Id, flow.CreatorId)

	l.events.Publish(event.Event{
		Type:       event.FlowCreated,
		OccurredAt: flow.CreatedAt,
		FlowId:     flow.Id,
		FlowTitle:  flow.Title,
		OwnerId:    flow.CreatorId,
		Amount:     flow.Goal,
		Currency:   flow.Currency,
	})
	return flow, nil
}

// buildFlow 收集全部校验错误后一次返回
func (l *FlowLogic) buildFlow(in CreateFlowInput) (*model.FlowModel, error) {
	now := l.now()
	var v apperror.Collector

	id := strings.TrimSpace(in.Id)
	if id == "" {
		id = uuid.NewString()
	}
	v.Check(len(id) <= maxFlowIdLen, "id", "长度不能超过%d", maxFlowIdLen)

	title := strings.TrimSpace(in.Title)
	v.Check(title != "", "title", "不能为空")
	v.Check(utf8.RuneCountInString(title) <= maxTitleLen, "title", "长度不能超过%d", maxTitleLen)
	v.Check(strings.TrimSpace(in.Description) != "", "description", "不能为空")
	v.Check(in.CreatorId != "", "creator_id", "不能为空")
	v.Check(!in.StartDate.IsZero(), "start_date", "不能为空")
	v.Check(in.DurationDays >= 0, "duration_days", "不能为负数")

	currency := strings.ToUpper(strings.TrimSpace(in.Currency))
	currencyOK := currency != "" && l.currencies.Supports(currency)
	if currency == "" {
		v.Add("currency", "不能为空")
	} else if !currencyOK {
		v.Add("currency", "不支持的币种 %s，可选: %s", currency, strings.Join(l.currencies.Codes(), ", "))
	}

	var goal int64
	if !in.Goal.IsPositive() {
		v.Add("goal", "必须大于0")
	} else if currencyOK {
		units, err := l.currencies.ToUnits(currency, in.Goal)
		if err != nil {
			v.Add("goal", "金额无效: %v", err)
		} else {
			goal = units
		}
	}

	rules := in.Rules
	v.Check(rules.Direct || rules.Milestone || rules.Weighted, "rules", "至少启用 direct、milestone、weighted 中的一种")

	flow := &model.FlowModel{
		Id:          id,
		CreatedAt:   now,
		UpdatedAt:   now,
		Title:       title,
		Description: strings.TrimSpace(in.Description),
		Goal:        goal,
		Currency:    currency,
		StartDate:   in.StartDate.UTC(),
		CreatorId:   in.CreatorId,
		CreatorName: strings.TrimSpace(in.CreatorName),
		Status:      model.FlowStatusActive,
		Rules:       rules,
		Images:      in.Images,
		VideoURL:    strings.TrimSpace(in.VideoURL),
	}
	if in.DurationDays > 0 && !in.StartDate.IsZero() {
		end := flow.StartDate.AddDate(0, 0, in.DurationDays)
		flow.EndDate = &end
	}

	if rules.Milestone {
		flow.Milestones = l.buildMilestones(&v, in.Milestones, currency, currencyOK, goal, now)
	}
	if rules.Weighted {
		flow.Recipients = buildRecipients(&v, in.Recipients)
	}
	if rules.Governance {
		applyGovernance(&v, flow, in)
	}

	for i, img := range in.Images {
		v.Check(strings.TrimSpace(img) != "", "images", "第%d项不能为空", i)
	}

	if err := v.Err(); err != nil {
		return nil, err
	}
	return flow, nil
}

func (l *FlowLogic) buildMilestones(v *apperror.Collector, in []MilestoneInput, currency string, currencyOK bool, goal int64, now time.Time) []model.FlowMilestoneModel {
	if len(in) == 0 {
		v.Add("milestones", "启用里程碑规则时至少需要一个里程碑")
		return nil
	}

	milestones := make([]model.FlowMilestoneModel, 0, len(in))
	var sum int64
	exceeded := false
	for i, m := range in {
		field := "milestones[" + strconv.Itoa(i) + "]"
		desc := strings.TrimSpace(m.Description)
		v.Check(desc != "", field+".description", "不能为空")
		v.Check(m.Deadline.After(now), field+".deadline", "必须晚于当前时间")

		var amount int64
		if !m.Amount.IsPositive() {
			v.Add(field+".amount", "必须大于0")
		} else if currencyOK {
			units, err := l.currencies.ToUnits(currency, m.Amount)
			if err != nil {
				v.Add(field+".amount", "金额无效: %v", err)
			} else {
				amount = units
			}
		}

		// 避免溢出
		if amount > math.MaxInt64-sum {
			exceeded = true
		} else {
			sum += amount
		}

		milestones = append(milestones, model.FlowMilestoneModel{
			Ordinal:     i,
			Description: desc,
			Amount:      amount,
			Deadline:    m.Deadline.UTC(),
			Status:      model.MilestoneStatusPending,
			UpdatedAt:   now,
		})
	}
	if goal > 0 && (exceeded || sum > goal) {
		v.Add("milestones", "里程碑金额合计不能超过目标金额")
	}
	return milestones
}

func buildRecipients(v *apperror.Collector, in []RecipientInput) []model.FlowRecipientModel {
	if len(in) == 0 {
		v.Add("weighted_distribution", "启用加权分配时至少需要一个接收方")
		return nil
	}

	recipients := make([]model.FlowRecipientModel, 0, len(in))
	total := 0
	for i, r := range in {
		field := "weighted_distribution[" + strconv.Itoa(i) + "]"
		addr := strings.TrimSpace(r.Address)
		v.Check(addr != "", field+".address", "不能为空")
		v.Check(r.Percentage > 0 && r.Percentage <= 100, field+".percentage", "必须在1到100之间")
		total += r.Percentage
		recipients = append(recipients, model.FlowRecipientModel{
			Ordinal:    i,
			Address:    addr,
			Name:       strings.TrimSpace(r.Name),
			Percentage: r.Percentage,
		})
	}
	v.Check(total == 100, "weighted_distribution", "百分比合计必须等于100，当前为%d", total)
	return recipients
}

func applyGovernance(v *apperror.Collector, flow *model.FlowModel, in CreateFlowInput) {
	vpm := in.VotingPowerModel
	if vpm == "" {
		vpm = model.VotingTokenWeighted
	}
	v.Check(vpm.Valid(), "voting_power_model", "无效的投票模型 %s", vpm)

	quorum := orDefault(in.QuorumPercentage, model.DefaultQuorumPercent)
	approval := orDefault(in.ApprovalPercentage, model.DefaultApprovalPercent)
	period := orDefault(in.VotingPeriodDays, model.DefaultVotingPeriodDays)
	v.Check(quorum >= 1 && quorum <= 100, "quorum_percentage", "必须在1到100之间")
	v.Check(approval >= 51 && approval <= 100, "approval_percentage", "必须在51到100之间")
	v.Check(period >= 1 && period <= 30, "voting_period_days", "必须在1到30天之间")

	flow.VotingPowerModel = vpm
	flow.QuorumPercentage = quorum
	flow.ApprovalPercentage = approval
	flow.VotingPeriodDays = period
}

// GetFlow 获取流程详情
func (l *FlowLogic) GetFlow(ctx context.Context, id string) (*model.FlowModel, error) {
	if strings.TrimSpace(id) == "" {
		return nil, apperror.Invalid("id", "不能为空")
	}
	return l.flows.Get(ctx, id)
}

// ListFlowsByUser 分页查询用户创建的流程
func (l *FlowLogic) ListFlowsByUser(ctx context.Context, userId string, p ListFlowsParams) (*FlowPage, error) {
	var v apperror.Collector
	v.Check(userId != "", "user_id", "不能为空")
	v.Check(p.Page >= 1, "page", "必须大于等于1")
	v.Check(p.PageSize >= 1 && p.PageSize <= maxPageSize, "page_size", "必须在1到%d之间", maxPageSize)

	column := defaultSortBy
	if p.SortBy != "" {
		c, ok := flowSortColumns[p.SortBy]
		v.Check(ok, "sort_by", "不支持的排序字段 %s", p.SortBy)
		column = c
	}
	desc := defaultSortDesc
	switch strings.ToLower(p.SortOrder) {
	case "":
	case "asc":
		desc = false
	case "desc":
		desc = true
	default:
		v.Add("sort_order", "只能是 asc 或 desc")
	}

	f := p.Filter
	if f.CreatedAfter != nil && f.CreatedBefore != nil {
		v.Check(!f.CreatedAfter.After(*f.CreatedBefore), "created_after", "不能晚于 created_before")
	}
	if f.Status != "" {
		v.Check(f.Status.Valid(), "status", "无效的状态 %s", f.Status)
	}
	if err := v.Err(); err != nil {
		return nil, err
	}

	items, total, err := l.flows.ListByCreator(ctx, userId, repository.FlowQuery{
		Filter: f,
		SortBy: column,
		Desc:   desc,
		Offset: (p.Page - 1) * p.PageSize,
		Limit:  p.PageSize,
	})
	if err != nil {
		return nil, err
	}

	totalPages := int((total + int64(p.PageSize) - 1) / int64(p.PageSize))
	return &FlowPage{
		Items:      items,
		Total:      total,
		Page:       p.Page,
		PageSize:   p.PageSize,
		TotalPages: totalPages,
		HasMore:    p.Page < totalPages,
	}, nil
}

// CancelFlow 创建者取消进行中的流程
func (l *FlowLogic) CancelFlow(ctx context.Context, flowId, actorId, reason string) (*model.FlowModel, error) {
	flow, err := l.GetFlow(ctx, flowId)
	if err != nil {
		return nil, err
	}
	if flow.CreatorId != actorId {
		return nil, apperror.Forbidden("只有创建者可以取消流程")
	}
	return l.transition(ctx, flow, model.FlowStatusCancelled, reason)
}

// TransitionFlow 由治理事件或定时任务驱动的状态变更
func (l *FlowLogic) TransitionFlow(ctx context.Context, flowId string, status model.FlowStatus, reason string) (*model.FlowModel, error) {
	if status != model.FlowStatusCompleted && status != model.FlowStatusCancelled {
		return nil, apperror.Invalid("status", "目标状态必须是 completed 或 cancelled")
	}
	flow, err := l.GetFlow(ctx, flowId)
	if err != nil {
		return nil, err
	}
	return l.transition(ctx, flow, status, reason)
}

func (l *FlowLogic) transition(ctx context.Context, flow *model.FlowModel, status model.FlowStatus, reason string) (*model.FlowModel, error) {
	if !flow.Status.CanTransitionTo(status) {
		return nil, apperror.InvalidState("流程状态为 %s，不能变更为 %s", flow.Status, status)
	}
	ok, err := l.flows.TransitionStatus(ctx, flow.Id, flow.Status, status)
	if err != nil {
		return nil, err
	}
	if !ok {
		// 并发请求已先行变更
		return nil, apperror.InvalidState("流程状态已变更")
	}

	logger.Info("Flow %s transitioned %s -> %s (%s)", flow.Id, flow.Status, status, reason)
	flow.Status = status
	l.events.Publish(event.Event{
		Type:       event.FlowStatusChanged,
		OccurredAt: l.now(),
		FlowId:     flow.Id,
		FlowTitle:  flow.Title,
		OwnerId:    flow.CreatorId,
		Status:     string(status),
		Reason:     reason,
	})
	return flow, nil
}

// TransitionMilestone 里程碑审批结果
func (l *FlowLogic) TransitionMilestone(ctx context.Context, flowId string, ordinal int, status model.MilestoneStatus) (*model.FlowMilestoneModel, error) {
	if status != model.MilestoneStatusApproved && status != model.MilestoneStatusRejected {
		return nil, apperror.Invalid("status", "目标状态必须是 approved 或 rejected")
	}
	flow, err := l.GetFlow(ctx, flowId)
	if err != nil {
		return nil, err
	}
	m, err := l.flows.GetMilestone(ctx, flowId, ordinal)
	if err != nil {
		return nil, err
	}
	if !m.Status.CanTransitionTo(status) {
		return nil, apperror.InvalidState("里程碑状态为 %s，不能变更为 %s", m.Status, status)
	}
	ok, err := l.flows.TransitionMilestone(ctx, flowId, ordinal, m.Status, status)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, apperror.InvalidState("里程碑状态已变更")
	}

	logger.Info("Milestone %d of flow %s transitioned %s -> %s", ordinal, flowId, m.Status, status)
	m.Status = status
	l.events.Publish(event.Event{
		Type:             event.MilestoneStatusChanged,
		OccurredAt:       l.now(),
		FlowId:           flow.Id,
		FlowTitle:        flow.Title,
		OwnerId:          flow.CreatorId,
		MilestoneOrdinal: ordinal,
		Amount:           m.Amount,
		Currency:         flow.Currency,
		Status:           string(status),
	})
	return m, nil
}

// CompleteExpiredFlows 将已过结束时间的流程置为完成，返回处理数量
func (l *FlowLogic) CompleteExpiredFlows(ctx context.Context) (int, error) {
	flows, err := l.flows.ListExpired(ctx, l.now(), expiredBatch)
	if err != nil {
		return 0, err
	}

	completed := 0
	for i := range flows {
		if _, err := l.transition(ctx, &flows[i], model.FlowStatusCompleted, "duration elapsed"); err != nil {
			logger.Warn("Failed to complete expired flow %s: %v", flows[i].Id, err)
			continue
		}
		completed++
	}
	return completed, nil
}

func orDefault(v, def int) int {
	if v == 0 {
		return def
	}
	return v
}
