package handler

import (
	"github.com/ANTONINEUTRON/tita-flow-sub001/internal/apperror"
	"github.com/ANTONINEUTRON/tita-flow-sub001/internal/logger"
	"github.com/gin-gonic/gin"
)

// Response 通用响应结构
type Response struct {
	Success bool        `json:"success"`
	Message string      `json:"message"`
	Data    interface{} `json:"data"`
}

// SuccessResponse 成功响应
func SuccessResponse(c *gin.Context, statusCode int, message string, data interface{}) {
	c.JSON(statusCode, Response{
		Success: true,
		Message: message,
		Data:    data,
	})
}

// ErrorResponse 错误响应
func ErrorResponse(c *gin.Context, statusCode int, message string) {
	c.JSON(statusCode, Response{
		Success: false,
		Message: message,
		Data:    nil,
	})
}

// HandleError 按错误类别输出；依赖失败只记录日志，对外统一为 internal error
func HandleError(c *gin.Context, err error) {
	appErr, ok := apperror.As(err)
	if !ok || appErr.Kind == apperror.KindDependency {
		logger.Error("%s %s failed: %v", c.Request.Method, c.FullPath(), err)
		ErrorResponse(c, apperror.HTTPStatus(apperror.KindDependency), "internal error")
		return
	}

	var data interface{}
	if len(appErr.Violations) > 0 {
		data = gin.H{"violations": appErr.Violations}
	}
	c.JSON(apperror.HTTPStatus(appErr.Kind), Response{
		Success: false,
		Message: appErr.Message,
		Data:    data,
	})
}

// bindError 请求体无法解析
func bindError(c *gin.Context, err error) {
	HandleError(c, apperror.Invalid("body", "请求格式错误: %v", err))
}
