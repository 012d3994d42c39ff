package controller

import (
	"phish_trainer_backend/internal/service"
	"phish_trainer_backend/internal/util"
	"strconv"

	"github.com/gin-gonic/gin"
)

// TestController 受测者答题相关接口
type TestController struct {
	QuizService     *service.QuizService
	ProgressService *service.ProgressService
}

func NewTestController(quizService *service.QuizService, progressService *service.ProgressService) *TestController {
	return &TestController{
		QuizService:     quizService,
		ProgressService: progressService,
	}
}

// ListTests godoc
// @Summary 可参加的测验
// @Description 启用的测验，附带当前用户的完成状态、得分和次数
// @Tags 测验
// @Produce json
// @Security ApiKeyAuth
// @Success 200 {object} util.Response{data=[]repository.QuizListRow}
// @Router /api/tests [get]
func (c *TestController) ListTests(ctx *gin.Context) {
	caller, ok := callerFrom(ctx)
	if !ok {
		return
	}

	tests, err := c.QuizService.ListQuizzes(&caller.UserID)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, tests)
}

// GetTest godoc
// @Summary 获取测验题目
// @Description 不包含标准答案和解析
// @Tags 测验
// @Produce json
// @Security ApiKeyAuth
// @Param id path int true "测验ID"
// @Success 200 {object} util.Response{data=model.Quiz}
// @Failure 404 {object} util.Response
// @Router /api/test/{id} [get]
func (c *TestController) GetTest(ctx *gin.Context) {
	caller, ok := callerFrom(ctx)
	if !ok {
		return
	}
	id, ok := idParam(ctx, "id")
	if !ok {
		return
	}

	quiz, err := c.QuizService.GetQuizForTaking(ctx.Request.Context(), caller, id)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, quiz)
}

// StartTest godoc
// @Summary 开始测验
// @Description 进度标记为 in_progress，已完成的记录不受影响
// @Tags 测验
// @Produce json
// @Security ApiKeyAuth
// @Param id path int true "测验ID"
// @Success 200 {object} util.Response{data=model.Progress}
// @Failure 404 {object} util.Response
// @Router /api/test/{id}/start [post]
func (c *TestController) StartTest(ctx *gin.Context) {
	caller, ok := callerFrom(ctx)
	if !ok {
		return
	}
	id, ok := idParam(ctx, "id")
	if !ok {
		return
	}

	progress, err := c.ProgressService.StartQuiz(ctx.Request.Context(), caller, id)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, progress)
}

// SubmitTest godoc
// @Summary 提交答案
// @Description answers 以题目 ID 为键；单选题提交索引，多选题提交索引数组
// @Tags 测验
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param id path int true "测验ID"
// @Param body body service.SubmitReq true "答案"
// @Success 200 {object} util.Response{data=service.SubmitResult}
// @Failure 400 {object} util.Response
// @Failure 404 {object} util.Response
// @Failure 500 {object} util.Response "记账失败，未写入任何数据"
// @Router /api/test/{id}/submit [post]
func (c *TestController) SubmitTest(ctx *gin.Context) {
	caller, ok := callerFrom(ctx)
	if !ok {
		return
	}
	id, ok := idParam(ctx, "id")
	if !ok {
		return
	}

	var req service.SubmitReq
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	result, err := c.ProgressService.Submit(ctx.Request.Context(), caller, id, req)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, result)
}

// GetAttempts godoc
// @Summary 我在某个测验上的提交记录
// @Description 包含每次提交的判分明细
// @Tags 测验
// @Produce json
// @Security ApiKeyAuth
// @Param id path int true "测验ID"
// @Success 200 {object} util.Response{data=[]model.Attempt}
// @Failure 404 {object} util.Response
// @Router /api/test/{id}/attempts [get]
func (c *TestController) GetAttempts(ctx *gin.Context) {
	caller, ok := callerFrom(ctx)
	if !ok {
		return
	}
	id, ok := idParam(ctx, "id")
	if !ok {
		return
	}

	attempts, err := c.ProgressService.QuizAttempts(ctx.Request.Context(), caller, id)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, attempts)
}

// GetResults godoc
// @Summary 我的答题记录
// @Tags 测验
// @Produce json
// @Security ApiKeyAuth
// @Param limit query int false "返回条数，缺省为全部"
// @Success 200 {object} util.Response{data=[]repository.HistoryRow}
// @Router /api/test_results [get]
func (c *TestController) GetResults(ctx *gin.Context) {
	caller, ok := callerFrom(ctx)
	if !ok {
		return
	}
	limit, err := strconv.Atoi(ctx.DefaultQuery("limit", "0"))
	if err != nil || limit < 0 {
		util.BadRequest(ctx, "invalid limit")
		return
	}

	rows, err := c.ProgressService.History(caller, limit)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, rows)
}

// GetStats godoc
// @Summary 我的统计
// @Tags 测验
// @Produce json
// @Security ApiKeyAuth
// @Success 200 {object} util.Response{data=service.UserStats}
// @Router /api/user/stats [get]
func (c *TestController) GetStats(ctx *gin.Context) {
	caller, ok := callerFrom(ctx)
	if !ok {
		return
	}

	stats, err := c.ProgressService.UserStats(caller)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, stats)
}
