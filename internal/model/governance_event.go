package model

import (
	"time"
)

// GovernanceEventModel 治理协作方推送的事件，按外部 id 去重
type GovernanceEventModel struct {
	Id        int64     `json:"id" gorm:"primaryKey"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	ExternalId string `json:"external_id" gorm:"size:128;not null;uniqueIndex"`
	EventType  string `json:"event_type" gorm:"size:64;not null"`
	FlowId     string `json:"flow_id" gorm:"size:64;index"`
	Data       string `json:"data" gorm:"type:text"`
	Processed  bool   `json:"processed" gorm:"default:false"`
	LastError  string `json:"last_error"`
}

func (GovernanceEventModel) TableName() string {
	return "governance_event"
}
