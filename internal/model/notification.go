package model

import (
	"time"

	"gorm.io/datatypes"
)

// NotificationType 通知类型
type NotificationType string

const (
	NotificationAccountCreated    NotificationType = "account_created"
	NotificationFlowCreated       NotificationType = "flow_created"
	NotificationNewContribution   NotificationType = "new_contribution"
	NotificationFlowGoalReached   NotificationType = "flow_goal_reached"
	NotificationMilestoneApproved NotificationType = "milestone_approved"
	NotificationMilestoneRejected NotificationType = "milestone_rejected"
	NotificationFlowCompleted     NotificationType = "flow_completed"
	NotificationFlowCanceled      NotificationType = "flow_canceled"
	NotificationNewUpdate         NotificationType = "new_update"
)

type NotificationModel struct {
	Id        string    `json:"id" gorm:"primaryKey;size:36"`
	CreatedAt time.Time `json:"created_at" gorm:"index:idx_notification_user_created,priority:2"`

	UserId    string            `json:"user_id" gorm:"size:64;not null;index:idx_notification_user_created,priority:1"`
	Type      NotificationType  `json:"type" gorm:"size:32;not null"`
	ActionURL string            `json:"action_url"`
	Read      bool              `json:"read" gorm:"not null;default:false"`
	Metadata  datatypes.JSONMap `json:"metadata"`
}

func (NotificationModel) TableName() string {
	return "notification"
}
