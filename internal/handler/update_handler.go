package handler

import (
	"net/http"

	"github.com/ANTONINEUTRON/tita-flow-sub001/internal/logic"
	"github.com/ANTONINEUTRON/tita-flow-sub001/internal/middleware"
	"github.com/gin-gonic/gin"
)

type UpdateHandler struct {
	updateLogic *logic.UpdateLogic
}

func NewUpdateHandler(updates *logic.UpdateLogic) *UpdateHandler {
	return &UpdateHandler{updateLogic: updates}
}

// PostUpdate 创建者发布动态
func (h *UpdateHandler) PostUpdate(c *gin.Context) {
	var in logic.PostUpdateInput
	if err := c.ShouldBindJSON(&in); err != nil {
		bindError(c, err)
		return
	}
	in.FlowId = c.Param("id")
	in.AuthorId = middleware.UserID(c)

	update, err := h.updateLogic.PostUpdate(c.Request.Context(), in)
	if err != nil {
		HandleError(c, err)
		return
	}
	SuccessResponse(c, http.StatusCreated, "动态发布成功", update)
}

func (h *UpdateHandler) ListUpdates(c *gin.Context) {
	list, err := h.updateLogic.ListUpdates(c.Request.Context(), c.Param("id"))
	if err != nil {
		HandleError(c, err)
		return
	}
	SuccessResponse(c, http.StatusOK, "ok", list)
}

func (h *UpdateHandler) PostComment(c *gin.Context) {
	var req struct {
		Body string `json:"body"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}

	comment, err := h.updateLogic.PostComment(c.Request.Context(), c.Param("id"), middleware.UserID(c), req.Body)
	if err != nil {
		HandleError(c, err)
		return
	}
	SuccessResponse(c, http.StatusCreated, "评论成功", comment)
}

func (h *UpdateHandler) ListComments(c *gin.Context) {
	list, err := h.updateLogic.ListComments(c.Request.Context(), c.Param("id"))
	if err != nil {
		HandleError(c, err)
		return
	}
	SuccessResponse(c, http.StatusOK, "ok", list)
}
