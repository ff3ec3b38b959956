package handler

import (
	"time"

	"github.com/ANTONINEUTRON/tita-flow-sub001/internal/logic"
	"github.com/ANTONINEUTRON/tita-flow-sub001/internal/model"
	"github.com/ANTONINEUTRON/tita-flow-sub001/internal/money"
	"github.com/shopspring/decimal"
)

// 对外响应中的金额统一按币种精度换算为十进制

// MilestoneResponse 里程碑
type MilestoneResponse struct {
	Ordinal     int                   `json:"ordinal"`
	Description string                `json:"description"`
	Amount      decimal.Decimal       `json:"amount"`
	Deadline    time.Time             `json:"deadline"`
	Status      model.MilestoneStatus `json:"status"`
}

// RecipientResponse 加权分配接收方
type RecipientResponse struct {
	Address    string `json:"address"`
	Name       string `json:"name"`
	Percentage int    `json:"percentage"`
}

// FlowResponse 流程响应模型
type FlowResponse struct {
	Id                 string                 `json:"id"`
	Title              string                 `json:"title"`
	Description        string                 `json:"description"`
	Goal               decimal.Decimal        `json:"goal"`
	Raised             decimal.Decimal        `json:"raised"`
	Currency           string                 `json:"currency"`
	StartDate          time.Time              `json:"start_date"`
	EndDate            *time.Time             `json:"end_date"`
	CreatorId          string                 `json:"creator_id"`
	CreatorName        string                 `json:"creator_name"`
	Status             model.FlowStatus       `json:"status"`
	Rules              model.FlowRules        `json:"rules"`
	Milestones         []MilestoneResponse    `json:"milestones"`
	Recipients         []RecipientResponse    `json:"weighted_distribution"`
	VotingPowerModel   model.VotingPowerModel `json:"voting_power_model,omitempty"`
	QuorumPercentage   int                    `json:"quorum_percentage,omitempty"`
	ApprovalPercentage int                    `json:"approval_percentage,omitempty"`
	VotingPeriodDays   int                    `json:"voting_period_days,omitempty"`
	Images             []string               `json:"images"`
	VideoURL           string                 `json:"video_url"`
	CreatedAt          time.Time              `json:"created_at"`
	UpdatedAt          time.Time              `json:"updated_at"`
}

// FlowPageResponse 分页列表
type FlowPageResponse struct {
	Items      []FlowResponse `json:"items"`
	Total      int64          `json:"total"`
	Page       int            `json:"page"`
	PageSize   int            `json:"page_size"`
	TotalPages int            `json:"total_pages"`
	HasMore    bool           `json:"has_more"`
}

// ContributionResponse 单笔贡献
type ContributionResponse struct {
	Id            string          `json:"id"`
	FlowId        string          `json:"flow_id"`
	ContributorId string          `json:"contributor_id"`
	Amount        decimal.Decimal `json:"amount"`
	Currency      string          `json:"currency"`
	TxSignature   string          `json:"tx_signature,omitempty"`
	Refunded      bool            `json:"refunded"`
	RefundAmount  decimal.Decimal `json:"refund_amount"`
	CreatedAt     time.Time       `json:"created_at"`
}

// ContributorResponse 贡献者在某流程下的累计
type ContributorResponse struct {
	ContributorId     string          `json:"contributor_id"`
	TotalAmount       decimal.Decimal `json:"total_amount"`
	Currency          string          `json:"currency"`
	ContributionCount int64           `json:"contribution_count"`
	FirstContributed  time.Time       `json:"first_contributed_at"`
	LastContributed   time.Time       `json:"last_contributed_at"`
}

// ReceiptResponse 记账结果
type ReceiptResponse struct {
	Contribution ContributionResponse `json:"contribution"`
	Contributor  ContributorResponse  `json:"contributor"`
	Raised       decimal.Decimal      `json:"raised"`
}

// FlowStatsResponse 单个流程统计
type FlowStatsResponse struct {
	FlowId        string           `json:"flow_id"`
	Title         string           `json:"title"`
	Currency      string           `json:"currency"`
	Status        model.FlowStatus `json:"status"`
	Goal          decimal.Decimal  `json:"goal"`
	Raised        decimal.Decimal  `json:"raised"`
	Contributors  int64            `json:"contributors"`
	Contributions int64            `json:"contributions"`
}

// MonthlyResponse 月度序列中的一项
type MonthlyResponse struct {
	Month         string                     `json:"month"`
	Amounts       map[string]decimal.Decimal `json:"amounts"`
	Contributions int64                      `json:"contributions"`
}

// AnalyticsResponse 创建者统计
type AnalyticsResponse struct {
	CreatorId          string                     `json:"creator_id"`
	TotalFlows         int                        `json:"total_flows"`
	ActiveFlows        int                        `json:"active_flows"`
	RaisedByCurrency   map[string]decimal.Decimal `json:"raised_by_currency"`
	TotalContributors  int64                      `json:"total_contributors"`
	TotalContributions int64                      `json:"total_contributions"`
	Flows              []FlowStatsResponse        `json:"flows"`
	Monthly            []MonthlyResponse          `json:"monthly"`
}

// PublicUserResponse 他人可见的资料
type PublicUserResponse struct {
	Id            string `json:"id"`
	Username      string `json:"username"`
	Name          string `json:"name"`
	AvatarURL     string `json:"avatar_url"`
	WalletAddress string `json:"wallet_address,omitempty"`
}

// presenter 模型到响应的转换
type presenter struct {
	currencies *money.Registry
}

func (p presenter) amounts(byCurrency map[string]int64) map[string]decimal.Decimal {
	out := make(map[string]decimal.Decimal, len(byCurrency))
	for code, units := range byCurrency {
		out[code] = p.currencies.FromUnits(code, units)
	}
	return out
}

func (p presenter) flow(f *model.FlowModel) FlowResponse {
	resp := FlowResponse{
		Id:                 f.Id,
		Title:              f.Title,
		Description:        f.Description,
		Goal:               p.currencies.FromUnits(f.Currency, f.Goal),
		Raised:             p.currencies.FromUnits(f.Currency, f.Raised),
		Currency:           f.Currency,
		StartDate:          f.StartDate,
		EndDate:            f.EndDate,
		CreatorId:          f.CreatorId,
		CreatorName:        f.CreatorName,
		Status:             f.Status,
		Rules:              f.Rules,
		Milestones:         make([]MilestoneResponse, 0, len(f.Milestones)),
		Recipients:         make([]RecipientResponse, 0, len(f.Recipients)),
		VotingPowerModel:   f.VotingPowerModel,
		QuorumPercentage:   f.QuorumPercentage,
		ApprovalPercentage: f.ApprovalPercentage,
		VotingPeriodDays:   f.VotingPeriodDays,
		Images:             f.Images,
		VideoURL:           f.VideoURL,
		CreatedAt:          f.CreatedAt,
		UpdatedAt:          f.UpdatedAt,
	}
	if resp.Images == nil {
		resp.Images = []string{}
	}
	for _, m := range f.Milestones {
		resp.Milestones = append(resp.Milestones, MilestoneResponse{
			Ordinal:     m.Ordinal,
			Description: m.Description,
			Amount:      p.currencies.FromUnits(f.Currency, m.Amount),
			Deadline:    m.Deadline,
			Status:      m.Status,
		})
	}
	for _, r := range f.Recipients {
		resp.Recipients = append(resp.Recipients, RecipientResponse{
			Address:    r.Address,
			Name:       r.Name,
			Percentage: r.Percentage,
		})
	}
	return resp
}

func (p presenter) flowPage(page *logic.FlowPage) FlowPageResponse {
	items := make([]FlowResponse, 0, len(page.Items))
	for i := range page.Items {
		items = append(items, p.flow(&page.Items[i]))
	}
	return FlowPageResponse{
		Items:      items,
		Total:      page.Total,
		Page:       page.Page,
		PageSize:   page.PageSize,
		TotalPages: page.TotalPages,
		HasMore:    page.HasMore,
	}
}

func (p presenter) contribution(c *model.ContributionModel) ContributionResponse {
	resp := ContributionResponse{
		Id:            c.Id,
		FlowId:        c.FlowId,
		ContributorId: c.ContributorId,
		Amount:        p.currencies.FromUnits(c.Currency, c.Amount),
		Currency:      c.Currency,
		Refunded:      c.Refunded,
		RefundAmount:  p.currencies.FromUnits(c.Currency, c.RefundAmount),
		CreatedAt:     c.CreatedAt,
	}
	if c.TxSignature != nil {
		resp.TxSignature = *c.TxSignature
	}
	return resp
}

func (p presenter) contributor(a *model.ContributionAggregateModel, currency string) ContributorResponse {
	return ContributorResponse{
		ContributorId:     a.ContributorId,
		TotalAmount:       p.currencies.FromUnits(currency, a.TotalAmount),
		Currency:          currency,
		ContributionCount: a.ContributionCount,
		FirstContributed:  a.FirstContributed,
		LastContributed:   a.LastContributed,
	}
}

func (p presenter) receipt(r *logic.ContributionReceipt) ReceiptResponse {
	currency := r.Contribution.Currency
	return ReceiptResponse{
		Contribution: p.contribution(&r.Contribution),
		Contributor:  p.contributor(&r.Aggregate, currency),
		Raised:       p.currencies.FromUnits(currency, r.Raised),
	}
}

func (p presenter) analytics(a *logic.CreatorAnalytics) AnalyticsResponse {
	resp := AnalyticsResponse{
		CreatorId:          a.CreatorId,
		TotalFlows:         a.TotalFlows,
		ActiveFlows:        a.ActiveFlows,
		RaisedByCurrency:   p.amounts(a.RaisedByCurrency),
		TotalContributors:  a.TotalContributors,
		TotalContributions: a.TotalContributions,
		Flows:              make([]FlowStatsResponse, 0, len(a.Flows)),
		Monthly:            make([]MonthlyResponse, 0, len(a.Monthly)),
	}
	for _, f := range a.Flows {
		resp.Flows = append(resp.Flows, FlowStatsResponse{
			FlowId:        f.FlowId,
			Title:         f.Title,
			Currency:      f.Currency,
			Status:        f.Status,
			Goal:          p.currencies.FromUnits(f.Currency, f.Goal),
			Raised:        p.currencies.FromUnits(f.Currency, f.Raised),
			Contributors:  f.Contributors,
			Contributions: f.Contributions,
		})
	}
	for _, m := range a.Monthly {
		resp.Monthly = append(resp.Monthly, MonthlyResponse{
			Month:         m.Month,
			Amounts:       p.amounts(m.Amounts),
			Contributions: m.Contributions,
		})
	}
	return resp
}

func publicUser(u *model.UserModel) PublicUserResponse {
	resp := PublicUserResponse{
		Id:        u.Id,
		Username:  u.Username,
		Name:      u.Name,
		AvatarURL: u.AvatarURL,
	}
	if u.WalletAddress != nil {
		resp.WalletAddress = *u.WalletAddress
	}
	return resp
}
