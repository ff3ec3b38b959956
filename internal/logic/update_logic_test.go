package logic

import (
	"context"
	"testing"
	"time"

	"github.com/ANTONINEUTRON/tita-flow-sub001/internal/apperror"
	"github.com/ANTONINEUTRON/tita-flow-sub001/internal/event"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// tickingClock 每次调用前进一秒
func tickingClock() Clock {
	t := testNow
	return func() time.Time {
		t = t.Add(time.Second)
		return t
	}
}

func TestPostUpdate(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	updates := f.updates.WithClock(tickingClock())
	flow := f.createFlow(t, directFlow("creator-1"))

	_, err := updates.PostUpdate(ctx, PostUpdateInput{FlowId: flow.Id, AuthorId: "intruder", Body: "hi"})
	assert.True(t, apperror.Is(err, apperror.KindForbidden))

	_, err = updates.PostUpdate(ctx, PostUpdateInput{FlowId: "missing", AuthorId: "creator-1", Body: "hi"})
	assert.True(t, apperror.Is(err, apperror.KindNotFound))

	_, err = updates.PostUpdate(ctx, PostUpdateInput{FlowId: flow.Id, AuthorId: "creator-1", Body: "<script>alert(1)</script>"})
	assert.True(t, apperror.Is(err, apperror.KindValidation))

	first, err := updates.PostUpdate(ctx, PostUpdateInput{
		FlowId:   flow.Id,
		AuthorId: "creator-1",
		Body:     `<p onclick="steal()">Beds are <b>in</b></p><script>x()</script>`,
		Files:    []string{"https://cdn.example/a.png", " "},
	})
	require.NoError(t, err)
	assert.Equal(t, "<p>Beds are <b>in</b></p>", first.Body)
	assert.Equal(t, []string{"https://cdn.example/a.png"}, []string(first.Files))

	second, err := updates.PostUpdate(ctx, PostUpdateInput{FlowId: flow.Id, AuthorId: "creator-1", Body: "Soil delivered"})
	require.NoError(t, err)

	list, err := updates.ListUpdates(ctx, flow.Id)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, first.Id, list[0].Id)
	assert.Equal(t, second.Id, list[1].Id)

	posted := f.events.OfType(event.UpdatePosted)
	require.Len(t, posted, 2)
	assert.Equal(t, "Ada", posted[0].ActorName)
	assert.Equal(t, first.Id, posted[0].UpdateId)
}

func TestComments(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	updates := f.updates.WithClock(tickingClock())
	flow := f.createFlow(t, directFlow("creator-1"))
	update, err := updates.PostUpdate(ctx, PostUpdateInput{FlowId: flow.Id, AuthorId: "creator-1", Body: "news"})
	require.NoError(t, err)

	_, err = updates.PostComment(ctx, "missing", "user-a", "nice")
	assert.True(t, apperror.Is(err, apperror.KindNotFound))

	_, err = updates.PostComment(ctx, update.Id, "user-a", "   ")
	assert.True(t, apperror.Is(err, apperror.KindValidation))

	c1, err := updates.PostComment(ctx, update.Id, "user-a", "nice <img src=x onerror=alert(1)>")
	require.NoError(t, err)
	assert.NotContains(t, c1.Body, "onerror")
	c2, err := updates.PostComment(ctx, update.Id, "user-b", "great")
	require.NoError(t, err)

	list, err := updates.ListComments(ctx, update.Id)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, c1.Id, list[0].Id)
	assert.Equal(t, c2.Id, list[1].Id)
}
