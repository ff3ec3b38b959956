package model

import (
	"time"

	"gorm.io/datatypes"
)

// FlowUpdateModel 项目动态
type FlowUpdateModel struct {
	Id        string    `json:"id" gorm:"primaryKey;size:36"`
	CreatedAt time.Time `json:"created_at" gorm:"index"`

	FlowId   string                      `json:"flow_id" gorm:"size:64;not null;index"`
	AuthorId string                      `json:"author_id" gorm:"size:64;not null"`
	Body     string                      `json:"body" gorm:"type:text;not null"`
	Files    datatypes.JSONSlice[string] `json:"files"`
}

func (FlowUpdateModel) TableName() string {
	return "flow_update"
}

// UpdateCommentModel 动态下的评论
type UpdateCommentModel struct {
	Id        string    `json:"id" gorm:"primaryKey;size:36"`
	CreatedAt time.Time `json:"created_at" gorm:"index"`

	UpdateId string `json:"update_id" gorm:"size:36;not null;index"`
	AuthorId string `json:"author_id" gorm:"size:64;not null"`
	Body     string `json:"body" gorm:"type:text;not null"`
}

func (UpdateCommentModel) TableName() string {
	return "update_comment"
}
