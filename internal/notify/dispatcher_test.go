package notify

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/ANTONINEUTRON/tita-flow-sub001/internal/event"
	"github.com/ANTONINEUTRON/tita-flow-sub001/internal/model"
	"github.com/ANTONINEUTRON/tita-flow-sub001/internal/money"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memoryStore struct {
	mu    sync.Mutex
	list  []model.NotificationModel
	err   error
	block chan struct{}
}

func (s *memoryStore) CreateBatch(_ context.Context, list []model.NotificationModel) error {
	if s.block != nil {
		<-s.block
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.list = append(s.list, list...)
	return nil
}

func (s *memoryStore) all() []model.NotificationModel {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]model.NotificationModel(nil), s.list...)
}

type staticContributors map[string][]string

func (c staticContributors) ContributorIds(_ context.Context, flowId string) ([]string, error) {
	return c[flowId], nil
}

type staticUsers []model.UserModel

func (u staticUsers) ListByIds(_ context.Context, ids []string) ([]model.UserModel, error) {
	want := make(map[string]bool, len(ids))
	for _, id := range ids {
		want[id] = true
	}
	var out []model.UserModel
	for _, user := range u {
		if want[user.Id] {
			out = append(out, user)
		}
	}
	return out, nil
}

type recordingRealtime struct {
	mu    sync.Mutex
	users []string
	err   error
}

func (r *recordingRealtime) Publish(_ context.Context, userId string, _ model.NotificationModel) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.users = append(r.users, userId)
	return r.err
}

type recordingMailer struct {
	mu sync.Mutex
	to []string
}

func (m *recordingMailer) Send(_ context.Context, to string, _ model.NotificationModel) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.to = append(m.to, to)
	return nil
}

type harness struct {
	store    *memoryStore
	realtime *recordingRealtime
	mailer   *recordingMailer
	d        *Dispatcher
}

func newHarness(t *testing.T, opts Options) *harness {
	h := &harness{
		store:    &memoryStore{},
		realtime: &recordingRealtime{},
		mailer:   &recordingMailer{},
	}
	contributors := staticContributors{"flow-1": {"alice", "bob", "alice", "owner"}}
	users := staticUsers{
		{Id: "owner", Email: "owner@example.com", Preferences: model.UserPreferences{EmailNotifications: true}},
		{Id: "alice", Email: "alice@example.com", Preferences: model.UserPreferences{EmailNotifications: false}},
		{Id: "bob", Preferences: model.UserPreferences{EmailNotifications: true}},
	}
	d, err := NewDispatcher(opts, h.store, contributors, users, h.realtime, h.mailer,
		money.NewRegistry(map[string]int32{"USDC": 6}))
	require.NoError(t, err)
	t.Cleanup(d.Close)
	h.d = d
	return h
}

var occurred = time.Date(2026, time.March, 15, 12, 0, 0, 0, time.UTC)

func TestDispatch_ContributionNotifiesOwner(t *testing.T) {
	h := newHarness(t, Options{})

	list, err := h.d.Dispatch(context.Background(), event.Event{
		Type:       event.ContributionRecorded,
		OccurredAt: occurred,
		FlowId:     "flow-1",
		FlowTitle:  "Garden",
		OwnerId:    "owner",
		ActorId:    "alice",
		Amount:     12_500000,
		Currency:   "USDC",
	})
	require.NoError(t, err)
	require.Len(t, list, 1)

	n := list[0]
	assert.Equal(t, "owner", n.UserId)
	assert.Equal(t, model.NotificationNewContribution, n.Type)
	assert.Equal(t, "/dashboard/flows/flow-1", n.ActionURL)
	assert.True(t, n.CreatedAt.Equal(occurred))
	assert.False(t, n.Read)
	assert.Equal(t, "12.5", n.Metadata["amount"])
	assert.Equal(t, "USDC", n.Metadata["currency"])
	assert.Equal(t, "alice", n.Metadata["contributorId"])
	assert.Equal(t, "Garden", n.Metadata["flowTitle"])

	assert.Len(t, h.store.all(), 1)
	assert.Equal(t, []string{"owner"}, h.realtime.users)
	assert.Equal(t, []string{"owner@example.com"}, h.mailer.to)
}

func TestDispatch_Recipients(t *testing.T) {
	h := newHarness(t, Options{})
	ctx := context.Background()

	milestone, err := h.d.Dispatch(ctx, event.Event{
		Type:             event.MilestoneStatusChanged,
		FlowId:           "flow-1",
		OwnerId:          "owner",
		ActorId:          "owner",
		MilestoneOrdinal: 0,
		Status:           string(model.MilestoneStatusApproved),
	})
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"alice", "bob"}, userIds(milestone))
	assert.Equal(t, model.NotificationMilestoneApproved, milestone[0].Type)
	assert.Equal(t, "1", milestone[0].Metadata["milestone"])

	cancelled, err := h.d.Dispatch(ctx, event.Event{
		Type:    event.FlowStatusChanged,
		FlowId:  "flow-1",
		OwnerId: "owner",
		Status:  string(model.FlowStatusCancelled),
		Reason:  "vote failed",
	})
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"owner", "alice", "bob"}, userIds(cancelled))
	assert.Equal(t, model.NotificationFlowCanceled, cancelled[0].Type)
	assert.Equal(t, "vote failed", cancelled[0].Metadata["reason"])

	update, err := h.d.Dispatch(ctx, event.Event{
		Type:      event.UpdatePosted,
		FlowId:    "flow-1",
		OwnerId:   "owner",
		ActorId:   "owner",
		ActorName: "Ada",
		UpdateId:  "upd-1",
	})
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"alice", "bob"}, userIds(update))
	assert.Equal(t, "/dashboard/flows/flow-1?tab=updates", update[0].ActionURL)
	assert.Equal(t, "Ada", update[0].Metadata["creatorName"])

	none, err := h.d.Dispatch(ctx, event.Event{Type: event.FlowCreated})
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestDispatch_GoalReachedRendersGoal(t *testing.T) {
	h := newHarness(t, Options{})

	list, err := h.d.Dispatch(context.Background(), event.Event{
		Type:         event.FlowGoalReached,
		OccurredAt:   occurred,
		FlowId:       "flow-1",
		FlowTitle:    "Garden",
		OwnerId:      "owner",
		Amount:       1000_000000,
		Currency:     "USDC",
		Raised:       1100_000000,
		Contributors: 1,
	})
	require.NoError(t, err)
	require.Len(t, list, 1)

	n := list[0]
	assert.Equal(t, model.NotificationFlowGoalReached, n.Type)
	assert.Equal(t, "1000", n.Metadata["goalAmount"])
	assert.Equal(t, "1100", n.Metadata["totalRaised"])

	content := Render(n)
	assert.Equal(t, `Congratulations! Your flow "Garden" has reached its funding goal of 1000 USDC.`+
		" Total raised: 1100 USDC. 1 contributor helped make this possible.", content.Message)
}

func TestDispatch_AccountCreatedCarriesUsername(t *testing.T) {
	h := newHarness(t, Options{})

	list, err := h.d.Dispatch(context.Background(), event.Event{
		Type:      event.AccountCreated,
		OwnerId:   "alice",
		ActorName: "alice_w",
	})
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "alice_w", list[0].Metadata["username"])
	assert.Contains(t, Render(list[0]).Message, "Welcome alice_w!")
}

func TestDispatch_DeliveryFailuresAreNotPropagated(t *testing.T) {
	h := newHarness(t, Options{})
	h.realtime.err = errors.New("redis down")

	list, err := h.d.Dispatch(context.Background(), event.Event{
		Type:    event.FlowStatusChanged,
		FlowId:  "flow-1",
		OwnerId: "owner",
		Status:  string(model.FlowStatusCompleted),
	})
	require.NoError(t, err)
	assert.Len(t, list, 3)
	assert.Len(t, h.store.all(), 3)
	// alice 关闭了邮件，bob 没有邮箱
	assert.Equal(t, []string{"owner@example.com"}, h.mailer.to)
}

func TestDispatch_StoreFailure(t *testing.T) {
	h := newHarness(t, Options{})
	h.store.err = errors.New("db down")

	_, err := h.d.Dispatch(context.Background(), event.Event{Type: event.AccountCreated, OwnerId: "owner"})
	assert.Error(t, err)
	assert.Empty(t, h.realtime.users)
}

func TestPublish_Async(t *testing.T) {
	h := newHarness(t, Options{PoolSize: 4, QueueSize: 64})

	for i := 0; i < 10; i++ {
		h.d.Publish(event.Event{Type: event.ContributionRecorded, FlowId: "flow-1", OwnerId: "owner", Currency: "USDC", Amount: 1})
	}
	h.d.Wait()
	assert.Len(t, h.store.all(), 10)
}

func TestPublish_DropsWhenQueueFull(t *testing.T) {
	h := newHarness(t, Options{PoolSize: 1, QueueSize: 1})
	h.store.block = make(chan struct{})

	for i := 0; i < 10; i++ {
		h.d.Publish(event.Event{Type: event.AccountCreated, OwnerId: "owner"})
	}
	close(h.store.block)
	h.d.Wait()

	stored := len(h.store.all())
	assert.GreaterOrEqual(t, stored, 1)
	assert.Less(t, stored, 10)
}

func TestPublish_AfterClose(t *testing.T) {
	h := newHarness(t, Options{})
	h.d.Close()

	assert.NotPanics(t, func() {
		h.d.Publish(event.Event{Type: event.AccountCreated, OwnerId: "owner"})
	})
	assert.Empty(t, h.store.all())
}

func userIds(list []model.NotificationModel) []string {
	out := make([]string, 0, len(list))
	for _, n := range list {
		out = append(out, n.UserId)
	}
	return out
}
