package logic

import (
	"context"
	"strings"

	"github.com/ANTONINEUTRON/tita-flow-sub001/internal/apperror"
	"github.com/ANTONINEUTRON/tita-flow-sub001/internal/event"
	"github.com/ANTONINEUTRON/tita-flow-sub001/internal/logger"
	"github.com/ANTONINEUTRON/tita-flow-sub001/internal/model"
	"github.com/google/uuid"
	"github.com/microcosm-cc/bluemonday"
)

const (
	maxBodyLen     = 10000
	maxUpdateFiles = 10
)

// PostUpdateInput 发布动态参数
type PostUpdateInput struct {
	FlowId   string   `json:"-"`
	AuthorId string   `json:"-"`
	Body     string   `json:"body"`
	Files    []string `json:"files"`
}

// UpdateLogic 项目动态与评论
type UpdateLogic struct {
	flows   FlowStore
	updates UpdateStore
	events  event.Publisher
	policy  *bluemonday.Policy
	now     Clock
}

func NewUpdateLogic(flows FlowStore, updates UpdateStore, events event.Publisher) *UpdateLogic {
	return &UpdateLogic{
		flows:   flows,
		updates: updates,
		events:  events,
		policy:  bluemonday.UGCPolicy(),
		now:     systemClock,
	}
}

// WithClock 替换时间来源
func (l *UpdateLogic) WithClock(now Clock) *UpdateLogic {
	l.now = now
	return l
}

// sanitize 按 UGC 策略清洗，返回空串表示内容无效
func (l *UpdateLogic) sanitize(field, body string) (string, error) {
	clean := strings.TrimSpace(l.policy.Sanitize(body))
	if clean == "" {
		return "", apperror.Invalid(field, "不能为空")
	}
	if len(clean) > maxBodyLen {
		return "", apperror.Invalid(field, "长度不能超过%d", maxBodyLen)
	}
	return clean, nil
}

// PostUpdate 只有流程创建者可以发布动态
func (l *UpdateLogic) PostUpdate(ctx context.Context, in PostUpdateInput) (*model.FlowUpdateModel, error) {
	if in.FlowId == "" {
		return nil, apperror.Invalid("flow_id", "不能为空")
	}
	flow, err := l.flows.Get(ctx, in.FlowId)
	if err != nil {
		return nil, err
	}
	if in.AuthorId == "" || flow.CreatorId != in.AuthorId {
		return nil, apperror.Forbidden("只有流程创建者可以发布动态")
	}

	body, err := l.sanitize("body", in.Body)
	if err != nil {
		return nil, err
	}
	if len(in.Files) > maxUpdateFiles {
		return nil, apperror.Invalid("files", "最多%d个文件", maxUpdateFiles)
	}
	files := make([]string, 0, len(in.Files))
	for _, f := range in.Files {
		if f = strings.TrimSpace(f); f != "" {
			files = append(files, f)
		}
	}

	u := &model.FlowUpdateModel{
		Id:        uuid.NewString(),
		CreatedAt: l.now(),
		FlowId:    flow.Id,
		AuthorId:  in.AuthorId,
		Body:      body,
		Files:     files,
	}
	if err := l.updates.CreateUpdate(ctx, u); err != nil {
		return nil, err
	}
	logger.Info("Update %s posted on flow %s", u.Id, flow.Id)

	l.events.Publish(event.Event{
		Type:       event.UpdatePosted,
		OccurredAt: u.CreatedAt,
		FlowId:     flow.Id,
		FlowTitle:  flow.Title,
		OwnerId:    flow.CreatorId,
		ActorId:    in.AuthorId,
		ActorName:  flow.CreatorName,
		UpdateId:   u.Id,
	})
	return u, nil
}

// ListUpdates 按时间先后
func (l *UpdateLogic) ListUpdates(ctx context.Context, flowId string) ([]model.FlowUpdateModel, error) {
	if flowId == "" {
		return nil, apperror.Invalid("flow_id", "不能为空")
	}
	if _, err := l.flows.Get(ctx, flowId); err != nil {
		return nil, err
	}
	return l.updates.ListUpdates(ctx, flowId)
}

// PostComment 任何登录用户都可以评论
func (l *UpdateLogic) PostComment(ctx context.Context, updateId, authorId, body string) (*model.UpdateCommentModel, error) {
	var v apperror.Collector
	v.Check(updateId != "", "update_id", "不能为空")
	v.Check(authorId != "", "author_id", "不能为空")
	if err := v.Err(); err != nil {
		return nil, err
	}
	if _, err := l.updates.GetUpdate(ctx, updateId); err != nil {
		return nil, err
	}
	clean, err := l.sanitize("body", body)
	if err != nil {
		return nil, err
	}

	c := &model.UpdateCommentModel{
		Id:        uuid.NewString(),
		CreatedAt: l.now(),
		UpdateId:  updateId,
		AuthorId:  authorId,
		Body:      clean,
	}
	if err := l.updates.CreateComment(ctx, c); err != nil {
		return nil, err
	}
	return c, nil
}

// ListComments 按时间先后
func (l *UpdateLogic) ListComments(ctx context.Context, updateId string) ([]model.UpdateCommentModel, error) {
	if updateId == "" {
		return nil, apperror.Invalid("update_id", "不能为空")
	}
	if _, err := l.updates.GetUpdate(ctx, updateId); err != nil {
		return nil, err
	}
	return l.updates.ListComments(ctx, updateId)
}
