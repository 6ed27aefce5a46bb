package api

import (
	"log"
	"net/http"

	"kontas/config"
	"kontas/service"

	"github.com/gin-gonic/gin"
)

// SafeErrorMessage 生产环境下不向客户端暴露内部错误详情，避免信息泄露
func SafeErrorMessage(err error, fallback string) string {
	return config.SafeErrorMessage(err, fallback)
}

// HandleServiceError 将领域错误翻译为固定的 HTTP 状态码和用户可读消息
// 存储层的内部错误码不会泄露给调用方
func HandleServiceError(c *gin.Context, err error) {
	se, ok := service.AsServiceError(err)
	if !ok {
		// 未分类错误：服务端记录，客户端只收到通用消息
		log.Printf("未分类错误: %v", err)
		InternalError(c, "服务器内部错误")
		return
	}

	switch se.Kind {
	case service.KindValidation:
		c.JSON(http.StatusBadRequest, Response{
			Code:    400,
			Message: se.Message,
			Errors:  se.Fields,
		})
	case service.KindNotFound:
		NotFound(c, se.Message)
	case service.KindConflict:
		Conflict(c, se.Message)
	case service.KindUnavailable:
		log.Printf("存储层错误: %v", se.Unwrap())
		ServiceUnavailable(c, se.Message)
	default:
		InternalError(c, SafeErrorMessage(se.Unwrap(), se.Message))
	}
}
