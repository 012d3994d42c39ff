package controller

import (
	"phish_trainer_backend/internal/service"
	"phish_trainer_backend/internal/util"
	"strconv"

	"github.com/gin-gonic/gin"
)

// QuizController 管理员维护测验
type QuizController struct {
	QuizService     *service.QuizService
	ProgressService *service.ProgressService
}

func NewQuizController(quizService *service.QuizService, progressService *service.ProgressService) *QuizController {
	return &QuizController{
		QuizService:     quizService,
		ProgressService: progressService,
	}
}

// ListAll godoc
// @Summary 全部测验
// @Description 包含未启用的测验
// @Tags 测验管理
// @Produce json
// @Security ApiKeyAuth
// @Success 200 {object} util.Response{data=[]repository.QuizListRow}
// @Router /api/admin/tests [get]
func (c *QuizController) ListAll(ctx *gin.Context) {
	caller, ok := callerFrom(ctx)
	if !ok {
		return
	}

	quizzes, err := c.QuizService.ListAllQuizzes(caller)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, quizzes)
}

// Get godoc
// @Summary 测验详情
// @Description 包含标准答案和解析
// @Tags 测验管理
// @Produce json
// @Security ApiKeyAuth
// @Param id path int true "测验ID"
// @Success 200 {object} util.Response{data=model.Quiz}
// @Failure 404 {object} util.Response
// @Router /api/admin/tests/{id} [get]
func (c *QuizController) Get(ctx *gin.Context) {
	caller, ok := callerFrom(ctx)
	if !ok {
		return
	}
	id, ok := idParam(ctx, "id")
	if !ok {
		return
	}

	quiz, err := c.QuizService.GetQuizForManagement(ctx.Request.Context(), caller, id)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, quiz)
}

// Create godoc
// @Summary 创建测验
// @Tags 测验管理
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param body body service.QuizReq true "测验及题目"
// @Success 201 {object} util.Response{data=model.Quiz}
// @Failure 400 {object} util.Response
// @Failure 403 {object} util.Response
// @Router /api/create_test [post]
func (c *QuizController) Create(ctx *gin.Context) {
	caller, ok := callerFrom(ctx)
	if !ok {
		return
	}

	var req service.QuizReq
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	quiz, err := c.QuizService.CreateQuiz(ctx.Request.Context(), caller, req)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Created(ctx, quiz)
}

// Update godoc
// @Summary 更新测验
// @Description 携带 questions 时整体替换题目
// @Tags 测验管理
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param id path int true "测验ID"
// @Param body body service.QuizReq true "测验"
// @Success 200 {object} util.Response{data=model.Quiz}
// @Failure 400 {object} util.Response
// @Failure 404 {object} util.Response
// @Router /api/admin/tests/{id} [put]
func (c *QuizController) Update(ctx *gin.Context) {
	caller, ok := callerFrom(ctx)
	if !ok {
		return
	}
	id, ok := idParam(ctx, "id")
	if !ok {
		return
	}

	var req service.QuizReq
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	quiz, err := c.QuizService.UpdateQuiz(ctx.Request.Context(), caller, id, req)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, quiz)
}

// Delete godoc
// @Summary 删除测验
// @Description 已有答题记录时返回 409，force=true 时连同记录和进度一起删除
// @Tags 测验管理
// @Produce json
// @Security ApiKeyAuth
// @Param id path int true "测验ID"
// @Param force query bool false "级联删除答题记录"
// @Success 200 {object} util.Response
// @Failure 404 {object} util.Response
// @Failure 409 {object} util.Response
// @Router /api/delete_test/{id} [post]
func (c *QuizController) Delete(ctx *gin.Context) {
	caller, ok := callerFrom(ctx)
	if !ok {
		return
	}
	id, ok := idParam(ctx, "id")
	if !ok {
		return
	}
	force, err := strconv.ParseBool(ctx.DefaultQuery("force", "false"))
	if err != nil {
		util.BadRequest(ctx, "invalid force flag")
		return
	}

	if err := c.QuizService.DeleteQuiz(ctx.Request.Context(), caller, id, force); err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.SuccessMessage(ctx, "quiz deleted", nil)
}

// AddQuestion godoc
// @Summary 追加题目
// @Tags 测验管理
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param id path int true "测验ID"
// @Param body body service.QuestionReq true "题目"
// @Success 201 {object} util.Response{data=model.Question}
// @Failure 400 {object} util.Response
// @Failure 404 {object} util.Response
// @Router /api/admin/tests/{id}/questions [post]
func (c *QuizController) AddQuestion(ctx *gin.Context) {
	caller, ok := callerFrom(ctx)
	if !ok {
		return
	}
	id, ok := idParam(ctx, "id")
	if !ok {
		return
	}

	var req service.QuestionReq
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	question, err := c.QuizService.AddQuestion(ctx.Request.Context(), caller, id, req)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Created(ctx, question)
}

// Statistics godoc
// @Summary 测验统计
// @Tags 测验管理
// @Produce json
// @Security ApiKeyAuth
// @Param id path int true "测验ID"
// @Success 200 {object} util.Response{data=repository.QuizStatistics}
// @Failure 404 {object} util.Response
// @Router /api/admin/tests/{id}/statistics [get]
func (c *QuizController) Statistics(ctx *gin.Context) {
	caller, ok := callerFrom(ctx)
	if !ok {
		return
	}
	id, ok := idParam(ctx, "id")
	if !ok {
		return
	}

	stats, err := c.ProgressService.QuizStatistics(caller, id)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, stats)
}
