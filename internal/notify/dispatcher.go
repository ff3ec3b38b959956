// Package notify 将领域事件异步转换为用户通知并投递
package notify

import (
	"context"
	"errors"
	"strconv"
	"sync"
	"time"

	"github.com/ANTONINEUTRON/tita-flow-sub001/internal/event"
	"github.com/ANTONINEUTRON/tita-flow-sub001/internal/logger"
	"github.com/ANTONINEUTRON/tita-flow-sub001/internal/metrics"
	"github.com/ANTONINEUTRON/tita-flow-sub001/internal/model"
	"github.com/ANTONINEUTRON/tita-flow-sub001/internal/money"
	"github.com/google/uuid"
	"github.com/panjf2000/ants/v2"
	"gorm.io/datatypes"
)

// Store 通知写入
type Store interface {
	CreateBatch(ctx context.Context, list []model.NotificationModel) error
}

// Contributors 查询流程的贡献者
type Contributors interface {
	ContributorIds(ctx context.Context, flowId string) ([]string, error)
}

// Users 批量查询用户，用于读取通知偏好与邮箱
type Users interface {
	ListByIds(ctx context.Context, ids []string) ([]model.UserModel, error)
}

// Realtime 推送到在线客户端
type Realtime interface {
	Publish(ctx context.Context, userId string, n model.NotificationModel) error
}

// Mailer 邮件渠道
type Mailer interface {
	Send(ctx context.Context, to string, n model.NotificationModel) error
}

// ErrClosed 分发器已关闭
var ErrClosed = errors.New("dispatcher closed")

// Options 分发器参数
type Options struct {
	PoolSize  int
	QueueSize int
	Timeout   time.Duration
}

// Dispatcher 事件进入有界队列，由协程池逐个处理；队列满时丢弃，至多投递一次
type Dispatcher struct {
	store        Store
	contributors Contributors
	users        Users
	realtime     Realtime
	mailer       Mailer
	currencies   *money.Registry

	pool    *ants.Pool
	queue   chan event.Event
	timeout time.Duration

	mu      sync.RWMutex
	closed  bool
	pending sync.WaitGroup
	feeder  sync.WaitGroup
}

// NewDispatcher realtime 与 mailer 可以为 nil
func NewDispatcher(opts Options, store Store, contributors Contributors, users Users, realtime Realtime, mailer Mailer, currencies *money.Registry) (*Dispatcher, error) {
	if opts.PoolSize <= 0 {
		opts.PoolSize = 8
	}
	if opts.QueueSize <= 0 {
		opts.QueueSize = 256
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 10 * time.Second
	}

	pool, err := ants.NewPool(opts.PoolSize, ants.WithPanicHandler(func(p interface{}) {
		logger.Error("Notification worker panic: %v", p)
	}))
	if err != nil {
		return nil, err
	}

	d := &Dispatcher{
		store:        store,
		contributors: contributors,
		users:        users,
		realtime:     realtime,
		mailer:       mailer,
		currencies:   currencies,
		pool:         pool,
		queue:        make(chan event.Event, opts.QueueSize),
		timeout:      opts.Timeout,
	}
	d.feeder.Add(1)
	go d.feed()
	return d, nil
}

// Publish 实现 event.Publisher，不阻塞调用方
func (d *Dispatcher) Publish(evt event.Event) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	if d.closed {
		logger.Warn("Dropped %s event for flow %s: dispatcher closed", evt.Type, evt.FlowId)
		metrics.RecordDelivery("queue", string(evt.Type), "dropped")
		return
	}

	d.pending.Add(1)
	select {
	case d.queue <- evt:
	default:
		d.pending.Done()
		logger.Warn("Dropped %s event for flow %s: queue full", evt.Type, evt.FlowId)
		metrics.RecordDelivery("queue", string(evt.Type), "dropped")
	}
}

func (d *Dispatcher) feed() {
	defer d.feeder.Done()
	for evt := range d.queue {
		evt := evt
		// 阻塞提交，队列负责限流
		if err := d.pool.Submit(func() {
			defer d.pending.Done()
			d.handle(evt)
		}); err != nil {
			d.pending.Done()
			logger.Error("Failed to submit %s event: %v", evt.Type, err)
			metrics.RecordDelivery("queue", string(evt.Type), "dropped")
		}
	}
}

func (d *Dispatcher) handle(evt event.Event) {
	ctx, cancel := context.WithTimeout(context.Background(), d.timeout)
	defer cancel()

	if _, err := d.Dispatch(ctx, evt); err != nil {
		logger.Error("Failed to dispatch %s event for flow %s: %v", evt.Type, evt.FlowId, err)
	}
}

// Wait 等待已接收的事件处理完毕
func (d *Dispatcher) Wait() {
	d.pending.Wait()
}

// Close 停止接收新事件，处理完队列后释放协程池
func (d *Dispatcher) Close() {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return
	}
	d.closed = true
	close(d.queue)
	d.mu.Unlock()

	d.feeder.Wait()
	d.pending.Wait()
	d.pool.Release()
}

// Dispatch 同步处理一个事件：确定接收人、写入通知，再尽力推送实时消息与邮件
func (d *Dispatcher) Dispatch(ctx context.Context, evt event.Event) ([]model.NotificationModel, error) {
	recipients, err := d.recipients(ctx, evt)
	if err != nil {
		return nil, err
	}
	if len(recipients) == 0 {
		return nil, nil
	}

	nType, ok := notificationType(evt)
	if !ok {
		logger.Warn("No notification mapping for event %s", evt.Type)
		return nil, nil
	}

	created := evt.OccurredAt
	if created.IsZero() {
		created = time.Now().UTC()
	}
	metadata := d.metadata(evt)
	list := make([]model.NotificationModel, 0, len(recipients))
	for _, userId := range recipients {
		list = append(list, model.NotificationModel{
			Id:        uuid.NewString(),
			CreatedAt: created,
			UserId:    userId,
			Type:      nType,
			ActionURL: actionURL(evt),
			Metadata:  copyMap(metadata),
		})
	}

	if err := d.store.CreateBatch(ctx, list); err != nil {
		metrics.RecordDelivery("store", string(nType), "error")
		return nil, err
	}
	metrics.RecordDelivery("store", string(nType), "ok")

	d.deliver(ctx, list)
	return list, nil
}

// deliver 实时推送与邮件互不影响，失败只记录
func (d *Dispatcher) deliver(ctx context.Context, list []model.NotificationModel) {
	if d.realtime != nil {
		for _, n := range list {
			if err := d.realtime.Publish(ctx, n.UserId, n); err != nil {
				logger.Warn("Realtime publish to %s failed: %v", n.UserId, err)
				metrics.RecordDelivery("realtime", string(n.Type), "error")
				continue
			}
			metrics.RecordDelivery("realtime", string(n.Type), "ok")
		}
	}

	if d.mailer == nil || d.users == nil {
		return
	}
	ids := make([]string, 0, len(list))
	for _, n := range list {
		ids = append(ids, n.UserId)
	}
	users, err := d.users.ListByIds(ctx, ids)
	if err != nil {
		logger.Warn("Failed to load recipients for email: %v", err)
		return
	}
	byId := make(map[string]model.UserModel, len(users))
	for _, u := range users {
		byId[u.Id] = u
	}
	for _, n := range list {
		u, ok := byId[n.UserId]
		if !ok || u.Email == "" || !u.Preferences.EmailNotifications {
			continue
		}
		if err := d.mailer.Send(ctx, u.Email, n); err != nil {
			logger.Warn("Email to user %s failed: %v", u.Id, err)
			metrics.RecordDelivery("email", string(n.Type), "error")
			continue
		}
		metrics.RecordDelivery("email", string(n.Type), "ok")
	}
}

func (d *Dispatcher) recipients(ctx context.Context, evt event.Event) ([]string, error) {
	switch evt.Type {
	case event.AccountCreated, event.FlowCreated, event.ContributionRecorded, event.FlowGoalReached:
		if evt.OwnerId == "" {
			return nil, nil
		}
		return []string{evt.OwnerId}, nil
	case event.MilestoneStatusChanged, event.UpdatePosted:
		ids, err := d.contributors.ContributorIds(ctx, evt.FlowId)
		if err != nil {
			return nil, err
		}
		return unique(ids, evt.ActorId), nil
	case event.FlowStatusChanged:
		ids, err := d.contributors.ContributorIds(ctx, evt.FlowId)
		if err != nil {
			return nil, err
		}
		return unique(append([]string{evt.OwnerId}, ids...), ""), nil
	default:
		return nil, nil
	}
}

func notificationType(evt event.Event) (model.NotificationType, bool) {
	switch evt.Type {
	case event.AccountCreated:
		return model.NotificationAccountCreated, true
	case event.FlowCreated:
		return model.NotificationFlowCreated, true
	case event.ContributionRecorded:
		return model.NotificationNewContribution, true
	case event.FlowGoalReached:
		return model.NotificationFlowGoalReached, true
	case event.UpdatePosted:
		return model.NotificationNewUpdate, true
	case event.MilestoneStatusChanged:
		if evt.Status == string(model.MilestoneStatusApproved) {
			return model.NotificationMilestoneApproved, true
		}
		return model.NotificationMilestoneRejected, true
	case event.FlowStatusChanged:
		switch model.FlowStatus(evt.Status) {
		case model.FlowStatusCompleted:
			return model.NotificationFlowCompleted, true
		case model.FlowStatusCancelled:
			return model.NotificationFlowCanceled, true
		}
	}
	return "", false
}

func actionURL(evt event.Event) string {
	switch evt.Type {
	case event.AccountCreated:
		return "/dashboard"
	case event.UpdatePosted:
		return "/dashboard/flows/" + evt.FlowId + "?tab=updates"
	default:
		return "/dashboard/flows/" + evt.FlowId
	}
}

// metadata 与前端约定的字段名
func (d *Dispatcher) metadata(evt event.Event) datatypes.JSONMap {
	m := datatypes.JSONMap{}
	if evt.FlowId != "" {
		m["flowId"] = evt.FlowId
		m["flowTitle"] = evt.FlowTitle
	}
	amount := ""
	if evt.Currency != "" {
		amount = d.currencies.FromUnits(evt.Currency, evt.Amount).String()
		m["currency"] = evt.Currency
	}
	switch evt.Type {
	case event.AccountCreated:
		if evt.ActorName != "" {
			m["username"] = evt.ActorName
		}
	case event.ContributionRecorded:
		m["amount"] = amount
		m["contributorId"] = evt.ActorId
	case event.FlowCreated:
		m["goalAmount"] = amount
	case event.FlowGoalReached:
		m["goalAmount"] = amount
		m["totalRaised"] = d.currencies.FromUnits(evt.Currency, evt.Raised).String()
		m["contributorCount"] = evt.Contributors
	case event.MilestoneStatusChanged:
		m["milestone"] = strconv.Itoa(evt.MilestoneOrdinal + 1)
		m["amount"] = amount
		m["status"] = evt.Status
	case event.FlowStatusChanged:
		m["status"] = evt.Status
		if evt.Reason != "" {
			m["reason"] = evt.Reason
		}
	case event.UpdatePosted:
		m["updateId"] = evt.UpdateId
		m["creatorName"] = evt.ActorName
	}
	return m
}

func unique(ids []string, exclude string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if id == "" || id == exclude {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

func copyMap(m datatypes.JSONMap) datatypes.JSONMap {
	out := make(datatypes.JSONMap, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
