package model

import (
	"time"

	"gorm.io/datatypes"
)

// FlowStatus 众筹流程状态
type FlowStatus string

const (
	FlowStatusActive    FlowStatus = "active"    // 进行中
	FlowStatusCompleted FlowStatus = "completed" // 已完成
	FlowStatusCancelled FlowStatus = "cancelled" // 已取消
)

// CanTransitionTo 状态机: active -> completed/cancelled，终态不可变
func (s FlowStatus) CanTransitionTo(next FlowStatus) bool {
	return s == FlowStatusActive && (next == FlowStatusCompleted || next == FlowStatusCancelled)
}

func (s FlowStatus) Valid() bool {
	switch s {
	case FlowStatusActive, FlowStatusCompleted, FlowStatusCancelled:
		return true
	}
	return false
}

// VotingPowerModel 投票权重模型
type VotingPowerModel string

const (
	VotingTokenWeighted VotingPowerModel = "tokenWeighted"
	VotingQuadratic     VotingPowerModel = "quadraticVoting"
	VotingIndividual    VotingPowerModel = "individualVoting"
)

// 治理参数默认值
const (
	DefaultQuorumPercent    = 30
	DefaultApprovalPercent  = 51
	DefaultVotingPeriodDays = 7
)

func (m VotingPowerModel) Valid() bool {
	switch m {
	case VotingTokenWeighted, VotingQuadratic, VotingIndividual:
		return true
	}
	return false
}

// FlowRules 规则开关
type FlowRules struct {
	Direct     bool `json:"direct"`
	Milestone  bool `json:"milestone"`
	Weighted   bool `json:"weighted"`
	Governance bool `json:"governance"`
}

// FlowModel 众筹流程，金额单位为币种最小单位
type FlowModel struct {
	Id        string    `json:"id" gorm:"primaryKey;size:64"`
	CreatedAt time.Time `json:"created_at" gorm:"index"`
	UpdatedAt time.Time `json:"updated_at"`

	Title       string `json:"title" gorm:"not null"`
	Description string `json:"description" gorm:"type:text"`
	Goal        int64  `json:"goal" gorm:"not null"`
	Raised      int64  `json:"raised" gorm:"not null;default:0"`
	Currency    string `json:"currency" gorm:"size:16;not null"`

	StartDate time.Time  `json:"start_date" gorm:"not null"`
	EndDate   *time.Time `json:"end_date" gorm:"index"`

	CreatorId   string     `json:"creator_id" gorm:"size:64;not null;index"`
	CreatorName string     `json:"creator_name"`
	Status      FlowStatus `json:"status" gorm:"size:16;not null;default:'active';index"`

	Rules FlowRules `json:"rules" gorm:"embedded;embeddedPrefix:rule_"`

	// 治理参数
	VotingPowerModel   VotingPowerModel `json:"voting_power_model" gorm:"size:32"`
	QuorumPercentage   int              `json:"quorum_percentage"`
	ApprovalPercentage int              `json:"approval_percentage"`
	VotingPeriodDays   int              `json:"voting_period_days"`

	Images   datatypes.JSONSlice[string] `json:"images"`
	VideoURL string                      `json:"video_url"`

	Milestones []FlowMilestoneModel `json:"milestones" gorm:"foreignKey:FlowId;references:Id"`
	Recipients []FlowRecipientModel `json:"recipients" gorm:"foreignKey:FlowId;references:Id"`
}

func (FlowModel) TableName() string {
	return "flow"
}

// MilestoneStatus 里程碑状态
type MilestoneStatus string

const (
	MilestoneStatusPending  MilestoneStatus = "pending"
	MilestoneStatusApproved MilestoneStatus = "approved"
	MilestoneStatusRejected MilestoneStatus = "rejected"
)

// CanTransitionTo 状态机: pending -> approved/rejected
func (s MilestoneStatus) CanTransitionTo(next MilestoneStatus) bool {
	return s == MilestoneStatusPending && (next == MilestoneStatusApproved || next == MilestoneStatusRejected)
}

// FlowMilestoneModel 里程碑，以 (flow_id, ordinal) 定位
type FlowMilestoneModel struct {
	FlowId      string          `json:"flow_id" gorm:"primaryKey;size:64"`
	Ordinal     int             `json:"ordinal" gorm:"primaryKey;autoIncrement:false"`
	Description string          `json:"description" gorm:"type:text;not null"`
	Amount      int64           `json:"amount" gorm:"not null"`
	Deadline    time.Time       `json:"deadline" gorm:"not null"`
	Status      MilestoneStatus `json:"status" gorm:"size:16;not null;default:'pending'"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

func (FlowMilestoneModel) TableName() string {
	return "flow_milestone"
}

// FlowRecipientModel 加权分配接收方
type FlowRecipientModel struct {
	FlowId     string `json:"flow_id" gorm:"primaryKey;size:64"`
	Ordinal    int    `json:"ordinal" gorm:"primaryKey;autoIncrement:false"`
	Address    string `json:"address" gorm:"not null"`
	Name       string `json:"name"`
	Percentage int    `json:"percentage" gorm:"not null"`
}

func (FlowRecipientModel) TableName() string {
	return "flow_recipient"
}
