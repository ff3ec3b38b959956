package governance

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"

	"github.com/ANTONINEUTRON/tita-flow-sub001/internal/apperror"
	"github.com/ANTONINEUTRON/tita-flow-sub001/internal/model"
	"github.com/ANTONINEUTRON/tita-flow-sub001/internal/repository"
	"github.com/ANTONINEUTRON/tita-flow-sub001/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type call struct {
	flowId  string
	ordinal int
	status  string
	reason  string
}

type fakeFlows struct {
	mu    sync.Mutex
	calls []call
	err   error
}

func (f *fakeFlows) TransitionFlow(_ context.Context, flowId string, status model.FlowStatus, reason string) (*model.FlowModel, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, call{flowId: flowId, status: string(status), reason: reason})
	if f.err != nil {
		return nil, f.err
	}
	return &model.FlowModel{Id: flowId, Status: status}, nil
}

func (f *fakeFlows) TransitionMilestone(_ context.Context, flowId string, ordinal int, status model.MilestoneStatus) (*model.FlowMilestoneModel, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, call{flowId: flowId, ordinal: ordinal, status: string(status)})
	if f.err != nil {
		return nil, f.err
	}
	return &model.FlowMilestoneModel{FlowId: flowId, Ordinal: ordinal, Status: status}, nil
}

func newIntake(t *testing.T) (*Intake, *fakeFlows, *repository.GovernanceEventRepository) {
	flows := &fakeFlows{}
	store := repository.NewGovernanceEventRepository(testutil.NewDB(t))
	return NewIntake(store, NewProcessorManager(flows)), flows, store
}

func TestProcessorManager_SupportedTypes(t *testing.T) {
	pm := NewProcessorManager(&fakeFlows{})
	assert.Equal(t, []string{EventFlowStatusChanged, EventMilestoneStatusChanged}, pm.GetSupportedEventTypes())

	_, ok := pm.GetProcessor("project_created")
	assert.False(t, ok)
}

func TestIntake_MilestoneApproved(t *testing.T) {
	intake, flows, store := newIntake(t)
	ctx := context.Background()

	res, err := intake.Handle(ctx, Inbound{
		Id:     "evt-1",
		Type:   EventMilestoneStatusChanged,
		FlowId: "flow-1",
		Data:   json.RawMessage(`{"milestone":0,"status":"approved"}`),
	})
	require.NoError(t, err)
	assert.True(t, res.Processed)
	assert.False(t, res.Duplicate)
	require.Len(t, flows.calls, 1)
	assert.Equal(t, call{flowId: "flow-1", ordinal: 0, status: "approved"}, flows.calls[0])

	ev, err := store.GetByExternalId(ctx, "evt-1")
	require.NoError(t, err)
	assert.True(t, ev.Processed)
	assert.Empty(t, ev.LastError)
}

func TestIntake_DuplicateIsAcknowledged(t *testing.T) {
	intake, flows, _ := newIntake(t)
	ctx := context.Background()
	in := Inbound{
		Id:     "evt-2",
		Type:   EventFlowStatusChanged,
		FlowId: "flow-1",
		Data:   json.RawMessage(`{"status":"cancelled","reason":"vote failed"}`),
	}

	_, err := intake.Handle(ctx, in)
	require.NoError(t, err)

	res, err := intake.Handle(ctx, in)
	require.NoError(t, err)
	assert.True(t, res.Duplicate)
	assert.Len(t, flows.calls, 1)
	assert.Equal(t, "vote failed", flows.calls[0].reason)
}

func TestIntake_DependencyFailureAllowsRedelivery(t *testing.T) {
	intake, flows, store := newIntake(t)
	ctx := context.Background()
	in := Inbound{
		Id:     "evt-3",
		Type:   EventFlowStatusChanged,
		FlowId: "flow-1",
		Data:   json.RawMessage(`{"status":"completed"}`),
	}

	flows.err = apperror.Dependency(errors.New("db down"), "流程存储失败")
	_, err := intake.Handle(ctx, in)
	require.Error(t, err)
	assert.Equal(t, apperror.KindDependency, apperror.KindOf(err))

	ev, err := store.GetByExternalId(ctx, "evt-3")
	require.NoError(t, err)
	assert.False(t, ev.Processed)
	assert.NotEmpty(t, ev.LastError)

	flows.err = nil
	res, err := intake.Handle(ctx, in)
	require.NoError(t, err)
	assert.True(t, res.Processed)
	assert.Len(t, flows.calls, 2)
}

func TestIntake_BusinessRejectionIsFinal(t *testing.T) {
	intake, flows, store := newIntake(t)
	ctx := context.Background()
	in := Inbound{
		Id:     "evt-4",
		Type:   EventMilestoneStatusChanged,
		FlowId: "flow-1",
		Data:   json.RawMessage(`{"milestone":1,"status":"rejected"}`),
	}

	flows.err = apperror.InvalidState("里程碑状态为 approved，不能变更为 rejected")
	_, err := intake.Handle(ctx, in)
	assert.True(t, apperror.Is(err, apperror.KindInvalidState))

	ev, err := store.GetByExternalId(ctx, "evt-4")
	require.NoError(t, err)
	assert.True(t, ev.Processed)
	assert.Contains(t, ev.LastError, "approved")

	res, err := intake.Handle(ctx, in)
	require.NoError(t, err)
	assert.True(t, res.Duplicate)
	assert.Len(t, flows.calls, 1)
}

func TestIntake_Validation(t *testing.T) {
	intake, flows, _ := newIntake(t)
	ctx := context.Background()

	_, err := intake.Handle(ctx, Inbound{Type: "unknown"})
	require.Error(t, err)
	appErr, ok := apperror.As(err)
	require.True(t, ok)
	assert.Equal(t, apperror.KindValidation, appErr.Kind)
	assert.Len(t, appErr.Violations, 3)

	_, err = intake.Handle(ctx, Inbound{
		Id:     "evt-5",
		Type:   EventMilestoneStatusChanged,
		FlowId: "flow-1",
		Data:   json.RawMessage(`{"status":"approved"}`),
	})
	assert.True(t, apperror.Is(err, apperror.KindValidation))
	assert.Empty(t, flows.calls)
}
