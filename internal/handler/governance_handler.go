package handler

import (
	"net/http"

	"github.com/ANTONINEUTRON/tita-flow-sub001/internal/governance"
	"github.com/gin-gonic/gin"
)

type GovernanceHandler struct {
	intake *governance.Intake
}

func NewGovernanceHandler(intake *governance.Intake) *GovernanceHandler {
	return &GovernanceHandler{intake: intake}
}

// ReceiveEvent 治理协作方推送的投票结果
func (h *GovernanceHandler) ReceiveEvent(c *gin.Context) {
	var in governance.Inbound
	if err := c.ShouldBindJSON(&in); err != nil {
		bindError(c, err)
		return
	}

	result, err := h.intake.Handle(c.Request.Context(), in)
	if err != nil {
		HandleError(c, err)
		return
	}
	SuccessResponse(c, http.StatusOK, "ok", result)
}
