package handler

import (
	"net/http"

	"github.com/ANTONINEUTRON/tita-flow-sub001/internal/logic"
	"github.com/ANTONINEUTRON/tita-flow-sub001/internal/middleware"
	"github.com/ANTONINEUTRON/tita-flow-sub001/internal/money"
	"github.com/gin-gonic/gin"
)

type ContributionHandler struct {
	flowLogic         *logic.FlowLogic
	contributionLogic *logic.ContributionLogic
	presenter
}

func NewContributionHandler(flows *logic.FlowLogic, contributions *logic.ContributionLogic, currencies *money.Registry) *ContributionHandler {
	return &ContributionHandler{
		flowLogic:         flows,
		contributionLogic: contributions,
		presenter:         presenter{currencies: currencies},
	}
}

// RecordContribution 记录一笔贡献，贡献者为当前登录用户
func (h *ContributionHandler) RecordContribution(c *gin.Context) {
	var in logic.RecordContributionInput
	if err := c.ShouldBindJSON(&in); err != nil {
		bindError(c, err)
		return
	}
	in.FlowId = c.Param("id")
	in.ContributorId = middleware.UserID(c)

	receipt, err := h.contributionLogic.RecordContribution(c.Request.Context(), in)
	if err != nil {
		HandleError(c, err)
		return
	}
	SuccessResponse(c, http.StatusCreated, "贡献记录成功", h.receipt(receipt))
}

// GetFlowContributions 流程的贡献者排行
func (h *ContributionHandler) GetFlowContributions(c *gin.Context) {
	ctx := c.Request.Context()
	flow, err := h.flowLogic.GetFlow(ctx, c.Param("id"))
	if err != nil {
		HandleError(c, err)
		return
	}
	list, err := h.contributionLogic.GetContributionsByFlow(ctx, flow.Id)
	if err != nil {
		HandleError(c, err)
		return
	}

	items := make([]ContributorResponse, 0, len(list))
	for i := range list {
		items = append(items, h.contributor(&list[i], flow.Currency))
	}
	SuccessResponse(c, http.StatusOK, "ok", items)
}

// GetMyContributions 当前用户的贡献流水
func (h *ContributionHandler) GetMyContributions(c *gin.Context) {
	list, err := h.contributionLogic.ListContributionsByContributor(c.Request.Context(), middleware.UserID(c))
	if err != nil {
		HandleError(c, err)
		return
	}

	items := make([]ContributionResponse, 0, len(list))
	for i := range list {
		items = append(items, h.contribution(&list[i]))
	}
	SuccessResponse(c, http.StatusOK, "ok", items)
}
