// Package governance 接收治理协作方推送的投票结果并驱动流程状态机
package governance

import (
	"context"
	"sort"
	"sync"

	"github.com/ANTONINEUTRON/tita-flow-sub001/internal/logger"
	"github.com/ANTONINEUTRON/tita-flow-sub001/internal/model"
)

// EventProcessor 事件处理器接口
type EventProcessor interface {
	Process(ctx context.Context, ev *model.GovernanceEventModel) error
	GetEventType() string
}

// ProcessorManager 事件处理器管理器
type ProcessorManager struct {
	mu         sync.RWMutex
	processors map[string]EventProcessor
}

// NewProcessorManager 创建处理器管理器并注册内置处理器
func NewProcessorManager(flows FlowTransitioner) *ProcessorManager {
	manager := &ProcessorManager{
		processors: make(map[string]EventProcessor),
	}

	manager.RegisterProcessor(NewFlowStatusProcessor(flows))
	manager.RegisterProcessor(NewMilestoneStatusProcessor(flows))

	logger.Info("ProcessorManager initialized with %d processors", len(manager.processors))
	return manager
}

// RegisterProcessor 注册事件处理器
func (pm *ProcessorManager) RegisterProcessor(processor EventProcessor) {
	pm.mu.Lock()
	defer pm.mu.Unlock()

	eventType := processor.GetEventType()
	pm.processors[eventType] = processor
	logger.Info("Registered processor for event type: %s", eventType)
}

// GetProcessor 获取指定事件类型的处理器
func (pm *ProcessorManager) GetProcessor(eventType string) (EventProcessor, bool) {
	pm.mu.RLock()
	defer pm.mu.RUnlock()

	processor, exists := pm.processors[eventType]
	return processor, exists
}

// GetSupportedEventTypes 已注册的事件类型，已排序
func (pm *ProcessorManager) GetSupportedEventTypes() []string {
	pm.mu.RLock()
	defer pm.mu.RUnlock()

	eventTypes := make([]string, 0, len(pm.processors))
	for eventType := range pm.processors {
		eventTypes = append(eventTypes, eventType)
	}
	sort.Strings(eventTypes)
	return eventTypes
}
