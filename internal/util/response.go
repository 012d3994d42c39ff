package util

import (
	"errors"
	"net/http"
	"phish_trainer_backend/pkg/logger"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Response 统一响应结构
type Response struct {
	Code    int         `json:"code"`
	Success bool        `json:"success"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

func Success(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, Response{
		Code:    http.StatusOK,
		Success: true,
		Message: "success",
		Data:    data,
	})
}

func SuccessMessage(c *gin.Context, message string, data interface{}) {
	c.JSON(http.StatusOK, Response{
		Code:    http.StatusOK,
		Success: true,
		Message: message,
		Data:    data,
	})
}

func Created(c *gin.Context, data interface{}) {
	c.JSON(http.StatusCreated, Response{
		Code:    http.StatusCreated,
		Success: true,
		Message: "created",
		Data:    data,
	})
}

func Error(c *gin.Context, code int, message string) {
	c.JSON(code, Response{
		Code:    code,
		Success: false,
		Message: message,
	})
}

func Unauthorized(c *gin.Context) {
	Error(c, http.StatusUnauthorized, "Unauthorized")
}

func Forbidden(c *gin.Context) {
	Error(c, http.StatusForbidden, "Forbidden")
}

func BadRequest(c *gin.Context, message string) {
	Error(c, http.StatusBadRequest, message)
}

func InternalServerError(c *gin.Context) {
	Error(c, http.StatusInternalServerError, "Internal server error")
}

func LogInternalError(c *gin.Context, err error) {
	logger.Log.Error("Internal server error", zap.Error(err), zap.String("path", c.FullPath()))
	InternalServerError(c)
}

// HandleError 按错误类别映射 HTTP 状态码
func HandleError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, ErrNotFound):
		Error(c, http.StatusNotFound, PublicMessage(err))
	case errors.Is(err, ErrValidation):
		Error(c, http.StatusBadRequest, PublicMessage(err))
	case errors.Is(err, ErrInsufficientPrivilege), errors.Is(err, ErrSelfDeletion):
		Error(c, http.StatusForbidden, PublicMessage(err))
	case errors.Is(err, ErrDuplicate), errors.Is(err, ErrConflict):
		Error(c, http.StatusConflict, PublicMessage(err))
	case errors.Is(err, ErrUnauthenticated):
		Error(c, http.StatusUnauthorized, PublicMessage(err))
	case errors.Is(err, ErrTooManyAttempts):
		Error(c, http.StatusTooManyRequests, PublicMessage(err))
	case errors.Is(err, ErrPersistence):
		logger.Log.Error("persistence failure", zap.Error(err), zap.String("path", c.FullPath()))
		Error(c, http.StatusInternalServerError, PublicMessage(err))
	default:
		LogInternalError(c, err)
	}
}
