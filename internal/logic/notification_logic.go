package logic

import (
	"context"

	"github.com/ANTONINEUTRON/tita-flow-sub001/internal/apperror"
	"github.com/ANTONINEUTRON/tita-flow-sub001/internal/model"
)

// 单次返回的通知上限
const maxNotifications = 200

// NotificationList 用户通知列表，HasMore 表示还有更早的通知未返回
type NotificationList struct {
	Items   []model.NotificationModel `json:"items"`
	Unread  int64                     `json:"unread"`
	HasMore bool                      `json:"has_more"`
}

// NotificationLogic 用户侧的通知读写，所有操作限定在 userId 名下
type NotificationLogic struct {
	notifications NotificationStore
	limit         int
}

func NewNotificationLogic(notifications NotificationStore) *NotificationLogic {
	return &NotificationLogic{notifications: notifications, limit: maxNotifications}
}

// ListByUser 最新在前，最多返回 limit 条
func (l *NotificationLogic) ListByUser(ctx context.Context, userId string) (*NotificationList, error) {
	if userId == "" {
		return nil, apperror.Invalid("user_id", "不能为空")
	}
	// 多取一条用于判断是否被截断
	items, err := l.notifications.ListByUser(ctx, userId, l.limit+1)
	if err != nil {
		return nil, err
	}
	hasMore := len(items) > l.limit
	if hasMore {
		items = items[:l.limit]
	}
	unread, err := l.notifications.CountUnread(ctx, userId)
	if err != nil {
		return nil, err
	}
	return &NotificationList{Items: items, Unread: unread, HasMore: hasMore}, nil
}

// MarkRead 幂等，通知不存在或不属于该用户时视为成功
func (l *NotificationLogic) MarkRead(ctx context.Context, userId, id string) error {
	if err := requireIds(userId, id); err != nil {
		return err
	}
	return l.notifications.MarkRead(ctx, userId, id)
}

func (l *NotificationLogic) MarkAllRead(ctx context.Context, userId string) error {
	if userId == "" {
		return apperror.Invalid("user_id", "不能为空")
	}
	return l.notifications.MarkAllRead(ctx, userId)
}

// Delete 幂等
func (l *NotificationLogic) Delete(ctx context.Context, userId, id string) error {
	if err := requireIds(userId, id); err != nil {
		return err
	}
	return l.notifications.Delete(ctx, userId, id)
}

func (l *NotificationLogic) Clear(ctx context.Context, userId string) error {
	if userId == "" {
		return apperror.Invalid("user_id", "不能为空")
	}
	return l.notifications.Clear(ctx, userId)
}

func requireIds(userId, id string) error {
	var v apperror.Collector
	v.Check(userId != "", "user_id", "不能为空")
	v.Check(id != "", "id", "不能为空")
	return v.Err()
}
