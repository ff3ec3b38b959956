package scheduler

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeCompleter struct {
	calls atomic.Int32
	err   error
}

func (f *fakeCompleter) CompleteExpiredFlows(ctx context.Context) (int, error) {
	f.calls.Add(1)
	if _, ok := ctx.Deadline(); !ok {
		return 0, errors.New("missing deadline")
	}
	return 2, f.err
}

func TestFlowCompletionJob_Defaults(t *testing.T) {
	job := NewFlowCompletionJob(&fakeCompleter{}, 0)
	assert.Equal(t, "flow_completion_updater", job.GetName())
	assert.Equal(t, 60*time.Second, job.interval)
	assert.NotNil(t, job.GetSchedule())
}

func TestFlowCompletionJob_Execute(t *testing.T) {
	completer := &fakeCompleter{}
	job := NewFlowCompletionJob(completer, 30)

	job.Execute()
	assert.Equal(t, int32(1), completer.calls.Load())

	// 失败只记录日志
	completer.err = errors.New("db down")
	assert.NotPanics(t, job.Execute)
	assert.Equal(t, int32(2), completer.calls.Load())
}

func TestManager_RunsRegisteredJobs(t *testing.T) {
	completer := &fakeCompleter{}
	job := NewFlowCompletionJob(completer, 1)

	m, err := NewManager(job)
	require.NoError(t, err)
	require.NoError(t, m.Start())
	defer m.Stop()

	assert.Eventually(t, func() bool {
		return completer.calls.Load() >= 1
	}, 3*time.Second, 50*time.Millisecond)
}
