package governance

import (
	"context"
	"encoding/json"

	"github.com/ANTONINEUTRON/tita-flow-sub001/internal/apperror"
	"github.com/ANTONINEUTRON/tita-flow-sub001/internal/logger"
	"github.com/ANTONINEUTRON/tita-flow-sub001/internal/model"
)

// EventStore 入站事件日志
type EventStore interface {
	Insert(ctx context.Context, ev *model.GovernanceEventModel) (bool, error)
	GetByExternalId(ctx context.Context, externalId string) (*model.GovernanceEventModel, error)
	MarkProcessed(ctx context.Context, id int64, processed bool, lastError string) error
}

// Inbound 治理协作方推送的事件
type Inbound struct {
	Id     string          `json:"id"`
	Type   string          `json:"type"`
	FlowId string          `json:"flow_id"`
	Data   json.RawMessage `json:"data"`
}

// Result 处理结果
type Result struct {
	Duplicate bool `json:"duplicate"`
	Processed bool `json:"processed"`
}

// Intake 事件按外部 id 去重后交给对应处理器
type Intake struct {
	store    EventStore
	registry *ProcessorManager
}

func NewIntake(store EventStore, registry *ProcessorManager) *Intake {
	return &Intake{store: store, registry: registry}
}

// Handle 已处理的重复事件直接确认；依赖失败的事件保持未处理，允许上游重投
func (s *Intake) Handle(ctx context.Context, in Inbound) (*Result, error) {
	var v apperror.Collector
	v.Check(in.Id != "", "id", "不能为空")
	v.Check(in.FlowId != "", "flow_id", "不能为空")
	processor, ok := s.registry.GetProcessor(in.Type)
	v.Check(ok, "type", "不支持的事件类型 %s", in.Type)
	if err := v.Err(); err != nil {
		return nil, err
	}

	data := string(in.Data)
	if data == "" {
		data = "{}"
	}
	ev := &model.GovernanceEventModel{
		ExternalId: in.Id,
		EventType:  in.Type,
		FlowId:     in.FlowId,
		Data:       data,
	}
	created, err := s.store.Insert(ctx, ev)
	if err != nil {
		return nil, err
	}
	if !created {
		existing, err := s.store.GetByExternalId(ctx, in.Id)
		if err != nil {
			return nil, err
		}
		if existing.Processed {
			logger.Info("Governance event %s already processed", in.Id)
			return &Result{Duplicate: true, Processed: true}, nil
		}
		ev = existing
	}

	perr := processor.Process(ctx, ev)
	switch {
	case perr == nil:
		if err := s.store.MarkProcessed(ctx, ev.Id, true, ""); err != nil {
			return nil, err
		}
		logger.Info("Governance event %s (%s) processed for flow %s", ev.ExternalId, ev.EventType, ev.FlowId)
		return &Result{Duplicate: !created, Processed: true}, nil
	case apperror.KindOf(perr) == apperror.KindDependency:
		logger.Error("Governance event %s failed, will accept redelivery: %v", ev.ExternalId, perr)
		if err := s.store.MarkProcessed(ctx, ev.Id, false, perr.Error()); err != nil {
			logger.Error("Failed to record governance event %s error: %v", ev.ExternalId, err)
		}
		return nil, perr
	default:
		// 业务拒绝不可重试
		logger.Warn("Governance event %s rejected: %v", ev.ExternalId, perr)
		if err := s.store.MarkProcessed(ctx, ev.Id, true, perr.Error()); err != nil {
			return nil, err
		}
		return nil, perr
	}
}
