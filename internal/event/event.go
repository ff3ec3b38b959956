// Package event 定义业务写操作产生的领域事件
package event

import (
	"sync"
	"time"
)

// Type 领域事件类型
type Type string

const (
	AccountCreated         Type = "account_created"
	FlowCreated            Type = "flow_created"
	ContributionRecorded   Type = "contribution_recorded"
	FlowGoalReached        Type = "flow_goal_reached"
	MilestoneStatusChanged Type = "milestone_status_changed"
	FlowStatusChanged      Type = "flow_status_changed"
	UpdatePosted           Type = "update_posted"
)

// Event 领域事件，字段按类型选填
type Event struct {
	Type       Type
	OccurredAt time.Time

	FlowId    string
	FlowTitle string
	OwnerId   string // 流程创建者；AccountCreated 时为新用户
	ActorId   string // 贡献者或动态作者
	ActorName string

	Amount   int64
	Currency string
	// FlowGoalReached 时 Amount 为目标金额
	Raised       int64
	Contributors int64

	MilestoneOrdinal int
	Status           string
	Reason           string
	UpdateId         string
}

// Publisher 事件发布，实现方不得阻塞或返回错误给调用方
type Publisher interface {
	Publish(evt Event)
}

// PublisherFunc 函数适配
type PublisherFunc func(evt Event)

func (f PublisherFunc) Publish(evt Event) {
	f(evt)
}

// Nop 丢弃所有事件
type Nop struct{}

func (Nop) Publish(Event) {}

// Recorder 记录发布过的事件
type Recorder struct {
	mu     sync.Mutex
	events []Event
}

func (r *Recorder) Publish(evt Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, evt)
}

// Events 返回副本
func (r *Recorder) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Event(nil), r.events...)
}

// OfType 过滤指定类型
func (r *Recorder) OfType(t Type) []Event {
	var out []Event
	for _, evt := range r.Events() {
		if evt.Type == t {
			out = append(out, evt)
		}
	}
	return out
}
