package scheduler

import (
	"context"
	"time"

	"github.com/ANTONINEUTRON/tita-flow-sub001/internal/logger"
	"github.com/ANTONINEUTRON/tita-flow-sub001/internal/metrics"
	"github.com/go-co-op/gocron/v2"
)

const flowCompletionJobName = "flow_completion_updater"

// FlowCompleter 将到期流程置为完成
type FlowCompleter interface {
	CompleteExpiredFlows(ctx context.Context) (int, error)
}

// FlowCompletionJob 流程到期完成任务
type FlowCompletionJob struct {
	flows    FlowCompleter
	interval time.Duration
}

// NewFlowCompletionJob interval 不大于 0 时按 60 秒
func NewFlowCompletionJob(flows FlowCompleter, intervalSeconds int) *FlowCompletionJob {
	if intervalSeconds <= 0 {
		intervalSeconds = 60
	}
	return &FlowCompletionJob{
		flows:    flows,
		interval: time.Duration(intervalSeconds) * time.Second,
	}
}

// GetName 获取任务名称
func (j *FlowCompletionJob) GetName() string {
	return flowCompletionJobName
}

// GetSchedule 获取调度配置
func (j *FlowCompletionJob) GetSchedule() gocron.JobDefinition {
	return gocron.DurationJob(j.interval)
}

// Execute 执行任务，单次运行不超过一个调度周期
func (j *FlowCompletionJob) Execute() {
	ctx, cancel := context.WithTimeout(context.Background(), j.interval)
	defer cancel()

	logger.Debug("Starting flow completion task")
	completed, err := j.flows.CompleteExpiredFlows(ctx)
	metrics.RecordJobRun(flowCompletionJobName, err == nil)
	if err != nil {
		logger.Error("Flow completion task failed: %v", err)
		return
	}
	if completed > 0 {
		logger.Info("Flow completion task completed. Updated %d flows", completed)
	}
}
