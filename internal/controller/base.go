package controller

import (
	"phish_trainer_backend/internal/model"
	"phish_trainer_backend/internal/util"

	"github.com/gin-gonic/gin"
)

// callerFrom 取出令牌中的调用方身份，缺失时已写回 401
func callerFrom(ctx *gin.Context) (model.CallerContext, bool) {
	claims := util.GetUserFromContext(ctx)
	if claims == nil {
		util.Unauthorized(ctx)
		return model.CallerContext{}, false
	}
	return claims.Caller(), true
}

// idParam 解析路径中的数字 ID，非法时已写回 400
func idParam(ctx *gin.Context, name string) (uint, bool) {
	id, err := util.ParseID(ctx.Param(name))
	if err != nil {
		util.HandleError(ctx, err)
		return 0, false
	}
	return id, true
}
