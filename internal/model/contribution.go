package model

import (
	"time"
)

// ContributionModel 贡献流水，写入后只允许修改退款字段
type ContributionModel struct {
	Id        string    `json:"id" gorm:"primaryKey;size:36"`
	CreatedAt time.Time `json:"created_at"`

	FlowId        string  `json:"flow_id" gorm:"size:64;not null;index"`
	ContributorId string  `json:"contributor_id" gorm:"size:64;not null;index"`
	Amount        int64   `json:"amount" gorm:"not null"`
	Currency      string  `json:"currency" gorm:"size:16;not null"`
	TxSignature   *string `json:"tx_signature,omitempty" gorm:"size:128;uniqueIndex"`
	Refunded      bool    `json:"refunded" gorm:"default:false"`
	RefundAmount  int64   `json:"refund_amount" gorm:"default:0"`
}

func (ContributionModel) TableName() string {
	return "contribution"
}

// ContributionAggregateModel 每个 (流程, 贡献者) 的累计
type ContributionAggregateModel struct {
	FlowId            string    `json:"flow_id" gorm:"primaryKey;size:64"`
	ContributorId     string    `json:"contributor_id" gorm:"primaryKey;size:64;index"`
	TotalAmount       int64     `json:"total_amount" gorm:"not null"`
	ContributionCount int64     `json:"contribution_count" gorm:"not null"`
	FirstContributed  time.Time `json:"first_contributed_at" gorm:"not null"`
	LastContributed   time.Time `json:"last_contributed_at" gorm:"not null"`
}

func (ContributionAggregateModel) TableName() string {
	return "contribution_aggregate"
}
