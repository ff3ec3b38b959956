package handler

import (
	"net/http"

	"github.com/ANTONINEUTRON/tita-flow-sub001/internal/logic"
	"github.com/ANTONINEUTRON/tita-flow-sub001/internal/middleware"
	"github.com/gin-gonic/gin"
)

type UserHandler struct {
	userLogic *logic.UserLogic
	authLogic *logic.AuthLogic
}

func NewUserHandler(users *logic.UserLogic, auth *logic.AuthLogic) *UserHandler {
	return &UserHandler{userLogic: users, authLogic: auth}
}

type walletRequest struct {
	Address   string `json:"address"`
	Signature string `json:"signature"`
}

// Challenge 签发待签名的登录挑战
func (h *UserHandler) Challenge(c *gin.Context) {
	var req walletRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}

	challenge, err := h.authLogic.Challenge(c.Request.Context(), req.Address)
	if err != nil {
		HandleError(c, err)
		return
	}
	SuccessResponse(c, http.StatusOK, "ok", challenge)
}

// Verify 校验签名并签发令牌，首次登录时创建用户
func (h *UserHandler) Verify(c *gin.Context) {
	var req walletRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}

	session, err := h.authLogic.Verify(c.Request.Context(), req.Address, req.Signature)
	if err != nil {
		HandleError(c, err)
		return
	}
	status := http.StatusOK
	if session.Created {
		status = http.StatusCreated
	}
	SuccessResponse(c, status, "登录成功", session)
}

// GetUser 他人资料只返回公开字段
func (h *UserHandler) GetUser(c *gin.Context) {
	user, err := h.userLogic.GetProfile(c.Request.Context(), c.Param("id"))
	if err != nil {
		HandleError(c, err)
		return
	}
	SuccessResponse(c, http.StatusOK, "ok", publicUser(user))
}

func (h *UserHandler) GetMe(c *gin.Context) {
	user, err := h.userLogic.GetProfile(c.Request.Context(), middleware.UserID(c))
	if err != nil {
		HandleError(c, err)
		return
	}
	SuccessResponse(c, http.StatusOK, "ok", user)
}

func (h *UserHandler) UpdateMe(c *gin.Context) {
	var in logic.ProfileInput
	if err := c.ShouldBindJSON(&in); err != nil {
		bindError(c, err)
		return
	}

	userId := middleware.UserID(c)
	user, err := h.userLogic.UpdateProfile(c.Request.Context(), userId, userId, in)
	if err != nil {
		HandleError(c, err)
		return
	}
	SuccessResponse(c, http.StatusOK, "资料已更新", user)
}

// LinkWallet 绑定新的钱包地址，需先获取挑战
func (h *UserHandler) LinkWallet(c *gin.Context) {
	var req walletRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}

	user, err := h.authLogic.LinkWallet(c.Request.Context(), middleware.UserID(c), req.Address, req.Signature)
	if err != nil {
		HandleError(c, err)
		return
	}
	SuccessResponse(c, http.StatusOK, "钱包已绑定", user)
}
