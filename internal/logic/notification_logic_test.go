package logic

import (
	"context"
	"testing"
	"time"

	"github.com/ANTONINEUTRON/tita-flow-sub001/internal/apperror"
	"github.com/ANTONINEUTRON/tita-flow-sub001/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seedNotifications(t *testing.T, f *fixture) {
	t.Helper()
	list := []model.NotificationModel{
		{Id: "n1", CreatedAt: testNow, UserId: "alice", Type: model.NotificationFlowCreated},
		{Id: "n2", CreatedAt: testNow.Add(time.Minute), UserId: "alice", Type: model.NotificationNewContribution},
		{Id: "n3", CreatedAt: testNow.Add(2 * time.Minute), UserId: "alice", Type: model.NotificationFlowGoalReached},
		{Id: "n4", CreatedAt: testNow, UserId: "bob", Type: model.NotificationNewUpdate},
	}
	require.NoError(t, f.notificationRepo.CreateBatch(context.Background(), list))
}

func TestNotifications_ListNewestFirst(t *testing.T) {
	f := newFixture(t)
	seedNotifications(t, f)

	got, err := f.notifications.ListByUser(context.Background(), "alice")
	require.NoError(t, err)
	require.Len(t, got.Items, 3)
	assert.Equal(t, "n3", got.Items[0].Id)
	assert.Equal(t, "n1", got.Items[2].Id)
	assert.Equal(t, int64(3), got.Unread)
	assert.False(t, got.HasMore)
}

func TestNotifications_ListReportsTruncation(t *testing.T) {
	f := newFixture(t)
	seedNotifications(t, f)
	ctx := context.Background()

	f.notifications.limit = 2
	got, err := f.notifications.ListByUser(ctx, "alice")
	require.NoError(t, err)
	require.Len(t, got.Items, 2)
	assert.Equal(t, "n3", got.Items[0].Id)
	assert.Equal(t, "n2", got.Items[1].Id)
	assert.True(t, got.HasMore)
	// 未读数统计全部通知
	assert.Equal(t, int64(3), got.Unread)

	f.notifications.limit = 3
	got, err = f.notifications.ListByUser(ctx, "alice")
	require.NoError(t, err)
	assert.Len(t, got.Items, 3)
	assert.False(t, got.HasMore)
}

func TestNotifications_MarkReadIsIdempotentAndScoped(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	seedNotifications(t, f)

	require.NoError(t, f.notifications.MarkRead(ctx, "alice", "n2"))
	require.NoError(t, f.notifications.MarkRead(ctx, "alice", "n2"))
	require.NoError(t, f.notifications.MarkRead(ctx, "alice", "does-not-exist"))
	// 他人的通知不受影响
	require.NoError(t, f.notifications.MarkRead(ctx, "alice", "n4"))

	alice, err := f.notifications.ListByUser(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, int64(2), alice.Unread)
	bob, err := f.notifications.ListByUser(ctx, "bob")
	require.NoError(t, err)
	assert.Equal(t, int64(1), bob.Unread)

	require.NoError(t, f.notifications.MarkAllRead(ctx, "alice"))
	alice, err = f.notifications.ListByUser(ctx, "alice")
	require.NoError(t, err)
	assert.Zero(t, alice.Unread)
	for _, n := range alice.Items {
		assert.True(t, n.Read)
	}
}

func TestNotifications_DeleteAndClear(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	seedNotifications(t, f)

	require.NoError(t, f.notifications.Delete(ctx, "alice", "n1"))
	require.NoError(t, f.notifications.Delete(ctx, "alice", "n1"))
	require.NoError(t, f.notifications.Delete(ctx, "alice", "n4"))

	alice, err := f.notifications.ListByUser(ctx, "alice")
	require.NoError(t, err)
	assert.Len(t, alice.Items, 2)

	require.NoError(t, f.notifications.Clear(ctx, "alice"))
	alice, err = f.notifications.ListByUser(ctx, "alice")
	require.NoError(t, err)
	assert.Empty(t, alice.Items)

	bob, err := f.notifications.ListByUser(ctx, "bob")
	require.NoError(t, err)
	assert.Len(t, bob.Items, 1)

	err = f.notifications.MarkRead(ctx, "", "")
	assert.True(t, apperror.Is(err, apperror.KindValidation))
}
