package governance

import (
	"context"
	"encoding/json"

	"github.com/ANTONINEUTRON/tita-flow-sub001/internal/apperror"
	"github.com/ANTONINEUTRON/tita-flow-sub001/internal/model"
)

const (
	EventFlowStatusChanged      = "flow_status_changed"
	EventMilestoneStatusChanged = "milestone_status_changed"
)

// FlowTransitioner 流程状态机
type FlowTransitioner interface {
	TransitionFlow(ctx context.Context, flowId string, status model.FlowStatus, reason string) (*model.FlowModel, error)
	TransitionMilestone(ctx context.Context, flowId string, ordinal int, status model.MilestoneStatus) (*model.FlowMilestoneModel, error)
}

// FlowStatusProcessor 流程完成或取消
type FlowStatusProcessor struct {
	flows FlowTransitioner
}

func NewFlowStatusProcessor(flows FlowTransitioner) *FlowStatusProcessor {
	return &FlowStatusProcessor{flows: flows}
}

func (p *FlowStatusProcessor) GetEventType() string {
	return EventFlowStatusChanged
}

// Process data: {"status": "completed|cancelled", "reason": "..."}
func (p *FlowStatusProcessor) Process(ctx context.Context, ev *model.GovernanceEventModel) error {
	var data struct {
		Status model.FlowStatus `json:"status"`
		Reason string           `json:"reason"`
	}
	if err := json.Unmarshal([]byte(ev.Data), &data); err != nil {
		return apperror.Invalid("data", "格式无效: %v", err)
	}
	_, err := p.flows.TransitionFlow(ctx, ev.FlowId, data.Status, data.Reason)
	return err
}

// MilestoneStatusProcessor 里程碑投票结果
type MilestoneStatusProcessor struct {
	flows FlowTransitioner
}

func NewMilestoneStatusProcessor(flows FlowTransitioner) *MilestoneStatusProcessor {
	return &MilestoneStatusProcessor{flows: flows}
}

func (p *MilestoneStatusProcessor) GetEventType() string {
	return EventMilestoneStatusChanged
}

// Process data: {"milestone": 0, "status": "approved|rejected"}
func (p *MilestoneStatusProcessor) Process(ctx context.Context, ev *model.GovernanceEventModel) error {
	var data struct {
		Milestone *int                  `json:"milestone"`
		Status    model.MilestoneStatus `json:"status"`
	}
	if err := json.Unmarshal([]byte(ev.Data), &data); err != nil {
		return apperror.Invalid("data", "格式无效: %v", err)
	}
	if data.Milestone == nil {
		return apperror.Invalid("data.milestone", "不能为空")
	}
	_, err := p.flows.TransitionMilestone(ctx, ev.FlowId, *data.Milestone, data.Status)
	return err
}
