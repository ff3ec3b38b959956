package handler

import (
	"net/http"
	"strconv"
	"time"

	"github.com/ANTONINEUTRON/tita-flow-sub001/internal/apperror"
	"github.com/ANTONINEUTRON/tita-flow-sub001/internal/logic"
	"github.com/ANTONINEUTRON/tita-flow-sub001/internal/middleware"
	"github.com/ANTONINEUTRON/tita-flow-sub001/internal/model"
	"github.com/ANTONINEUTRON/tita-flow-sub001/internal/money"
	"github.com/ANTONINEUTRON/tita-flow-sub001/internal/repository"
	"github.com/gin-gonic/gin"
)

type FlowHandler struct {
	flowLogic         *logic.FlowLogic
	contributionLogic *logic.ContributionLogic
	presenter
}

func NewFlowHandler(flows *logic.FlowLogic, contributions *logic.ContributionLogic, currencies *money.Registry) *FlowHandler {
	return &FlowHandler{
		flowLogic:         flows,
		contributionLogic: contributions,
		presenter:         presenter{currencies: currencies},
	}
}

// CreateFlow 创建流程，创建者为当前登录用户
func (h *FlowHandler) CreateFlow(c *gin.Context) {
	var in logic.CreateFlowInput
	if err := c.ShouldBindJSON(&in); err != nil {
		bindError(c, err)
		return
	}
	in.CreatorId = middleware.UserID(c)

	flow, err := h.flowLogic.CreateFlow(c.Request.Context(), in)
	if err != nil {
		HandleError(c, err)
		return
	}
	SuccessResponse(c, http.StatusCreated, "流程创建成功", h.flow(flow))
}

// GetFlow 获取流程详情
func (h *FlowHandler) GetFlow(c *gin.Context) {
	flow, err := h.flowLogic.GetFlow(c.Request.Context(), c.Param("id"))
	if err != nil {
		HandleError(c, err)
		return
	}
	SuccessResponse(c, http.StatusOK, "ok", h.flow(flow))
}

// CancelFlow 创建者取消流程
func (h *FlowHandler) CancelFlow(c *gin.Context) {
	var req struct {
		Reason string `json:"reason"`
	}
	// 允许空请求体
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			bindError(c, err)
			return
		}
	}

	flow, err := h.flowLogic.CancelFlow(c.Request.Context(), c.Param("id"), middleware.UserID(c), req.Reason)
	if err != nil {
		HandleError(c, err)
		return
	}
	SuccessResponse(c, http.StatusOK, "流程已取消", h.flow(flow))
}

// ListUserFlows 用户创建的流程列表
func (h *FlowHandler) ListUserFlows(c *gin.Context) {
	var v apperror.Collector
	page := queryInt(&v, c, "page", 1)
	pageSize := queryInt(&v, c, "page_size", 10)
	after := queryTime(&v, c, "created_after", false)
	before := queryTime(&v, c, "created_before", true)
	if err := v.Err(); err != nil {
		HandleError(c, err)
		return
	}

	result, err := h.flowLogic.ListFlowsByUser(c.Request.Context(), c.Param("id"), logic.ListFlowsParams{
		Page:     page,
		PageSize: pageSize,
		Filter: repository.FlowFilter{
			Title:         c.Query("title"),
			CreatedAfter:  after,
			CreatedBefore: before,
			Status:        model.FlowStatus(c.Query("status")),
		},
		SortBy:    c.Query("sort_by"),
		SortOrder: c.Query("sort_order"),
	})
	if err != nil {
		HandleError(c, err)
		return
	}
	SuccessResponse(c, http.StatusOK, "ok", h.flowPage(result))
}

// GetMyAnalytics 当前用户作为创建者的统计
func (h *FlowHandler) GetMyAnalytics(c *gin.Context) {
	analytics, err := h.contributionLogic.GetAnalyticsByCreator(c.Request.Context(), middleware.UserID(c))
	if err != nil {
		HandleError(c, err)
		return
	}
	SuccessResponse(c, http.StatusOK, "ok", h.analytics(analytics))
}

func queryInt(v *apperror.Collector, c *gin.Context, key string, def int) int {
	raw := c.Query(key)
	if raw == "" {
		return def
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		v.Add(key, "必须是整数")
		return def
	}
	return n
}

// queryTime 接受 RFC3339 或 2006-01-02
// 仅有日期时 endOfDay 取当天最后一微秒，使上界包含整天
func queryTime(v *apperror.Collector, c *gin.Context, key string, endOfDay bool) *time.Time {
	raw := c.Query(key)
	if raw == "" {
		return nil
	}
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		t = t.UTC()
		return &t
	}
	if t, err := time.Parse("2006-01-02", raw); err == nil {
		if endOfDay {
			t = t.AddDate(0, 0, 1).Add(-time.Microsecond)
		}
		return &t
	}
	v.Add(key, "时间格式无效")
	return nil
}
