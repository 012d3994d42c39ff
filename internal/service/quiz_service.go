package service

import (
	"context"
	"phish_trainer_backend/internal/model"
	"phish_trainer_backend/internal/repository"
	"phish_trainer_backend/internal/util"
	"phish_trainer_backend/pkg/logger"
	"strings"

	"go.uber.org/zap"
)

// QuestionReq 题目请求体
// swagger:model QuestionReq
type QuestionReq struct {
	QuestionText  string             `json:"question_text"`
	QuestionType  model.QuestionType `json:"question_type"`
	Options       []string           `json:"options"`
	CorrectAnswer []int              `json:"correct_answer"`
	Explanation   string             `json:"explanation"`
	Points        *int               `json:"points"`
}

// QuizReq 创建/更新试卷请求体；更新时 questions 缺省表示保留原题目
// swagger:model QuizReq
type QuizReq struct {
	Title       string        `json:"title"`
	Description string        `json:"description"`
	Difficulty  string        `json:"difficulty"`
	TimeLimit   int           `json:"time_limit"`
	IsActive    *bool         `json:"is_active"`
	Questions   []QuestionReq `json:"questions"`
}

type QuizService struct {
	QuizRepo *repository.QuizRepository
	Cache    repository.QuizCache
	Access   *AccessControl
	Archive  *ReportArchive
}

// NewQuizService archive 为 nil 时强制删除不清理归档报告
func NewQuizService(quizRepo *repository.QuizRepository, cache repository.QuizCache, access *AccessControl, archive *ReportArchive) *QuizService {
	if cache == nil {
		cache = repository.NopQuizCache{}
	}
	return &QuizService{
		QuizRepo: quizRepo,
		Cache:    cache,
		Access:   access,
		Archive:  archive,
	}
}

// BuildQuestion 校验请求并转换为题目模型
func BuildQuestion(req QuestionReq) (model.Question, error) {
	text := strings.TrimSpace(req.QuestionText)
	if text == "" {
		return model.Question{}, util.Validationf("question text is required")
	}
	if !req.QuestionType.Valid() {
		return model.Question{}, util.Validationf("unknown question type %q", req.QuestionType)
	}
	if len(req.Options) < 2 {
		return model.Question{}, util.Validationf("a question needs at least 2 options")
	}
	if len(req.CorrectAnswer) == 0 {
		return model.Question{}, util.Validationf("correct answer is required")
	}
	if req.QuestionType == model.SingleChoice && len(req.CorrectAnswer) != 1 {
		return model.Question{}, util.Validationf("single choice question must have exactly one correct answer")
	}

	seen := make(map[int]bool, len(req.CorrectAnswer))
	for _, idx := range req.CorrectAnswer {
		if idx < 0 || idx >= len(req.Options) {
			return model.Question{}, util.Validationf("correct answer index %d out of range", idx)
		}
		if seen[idx] {
			return model.Question{}, util.Validationf("duplicate correct answer index %d", idx)
		}
		seen[idx] = true
	}

	points := 1
	if req.Points != nil {
		points = *req.Points
	}
	if points < 1 {
		return model.Question{}, util.Validationf("points must be at least 1")
	}

	return model.Question{
		Text:          text,
		Type:          req.QuestionType,
		Options:       append(model.OptionList(nil), req.Options...),
		CorrectAnswer: append(model.IndexSet(nil), req.CorrectAnswer...),
		Explanation:   req.Explanation,
		Points:        points,
	}, nil
}

func buildQuestions(reqs []QuestionReq) ([]model.Question, error) {
	questions := make([]model.Question, 0, len(reqs))
	for i, req := range reqs {
		q, err := BuildQuestion(req)
		if err != nil {
			return nil, util.Validationf("question %d: %s", i+1, util.PublicMessage(err))
		}
		q.Position = i
		questions = append(questions, q)
	}
	return questions, nil
}

func validateQuizMeta(title, difficulty string, timeLimit int) error {
	if strings.TrimSpace(title) == "" {
		return util.Validationf("title is required")
	}
	if !model.ValidDifficulty(difficulty) {
		return util.Validationf("unknown difficulty %q", difficulty)
	}
	if timeLimit < 0 {
		return util.Validationf("time limit must not be negative")
	}
	return nil
}

// GetQuiz 返回包含标准答案的完整试卷，优先读缓存
func (s *QuizService) GetQuiz(ctx context.Context, id uint) (*model.Quiz, error) {
	if cached, err := s.Cache.Get(ctx, id); err != nil {
		logger.Log.Warn("quiz cache read failed", zap.Uint("quiz_id", id), zap.Error(err))
	} else if cached != nil {
		return cached, nil
	}

	quiz, err := s.QuizRepo.FindByID(id)
	if err != nil {
		return nil, repoError(err, "quiz")
	}

	if err := s.Cache.Set(ctx, quiz); err != nil {
		logger.Log.Warn("quiz cache write failed", zap.Uint("quiz_id", id), zap.Error(err))
	}
	return quiz, nil
}

func (s *QuizService) invalidate(ctx context.Context, id uint) {
	if err := s.Cache.Invalidate(ctx, id); err != nil {
		logger.Log.Warn("quiz cache invalidate failed", zap.Uint("quiz_id", id), zap.Error(err))
	}
}

// GetQuizForManagement 管理端读取，保留标准答案
func (s *QuizService) GetQuizForManagement(ctx context.Context, caller model.CallerContext, id uint) (*model.Quiz, error) {
	if err := s.Access.Require(caller, PermQuizzesManage); err != nil {
		return nil, err
	}
	return s.GetQuiz(ctx, id)
}

// GetQuizForTaking 答题端读取：去掉标准答案和解析，未启用的试卷只有管理员可见
func (s *QuizService) GetQuizForTaking(ctx context.Context, caller model.CallerContext, id uint) (*model.Quiz, error) {
	if err := s.Access.Require(caller, PermQuizzesTake); err != nil {
		return nil, err
	}
	quiz, err := s.GetQuiz(ctx, id)
	if err != nil {
		return nil, err
	}
	if !quiz.IsActive && !caller.IsAdmin() {
		return nil, util.NotFoundf("quiz not found")
	}

	public := *quiz
	public.Questions = make([]model.Question, len(quiz.Questions))
	for i, q := range quiz.Questions {
		public.Questions[i] = q.WithoutAnswerKey()
	}
	return &public, nil
}

// ListQuizzes 启用的试卷，新建在前；forUser 非空时附带该用户的进度
func (s *QuizService) ListQuizzes(forUser *uint) ([]repository.QuizListRow, error) {
	var userID uint
	if forUser != nil {
		userID = *forUser
	}
	rows, err := s.QuizRepo.List(true, userID)
	if err != nil {
		return nil, repoError(err, "quizzes")
	}

	if forUser != nil {
		for i := range rows {
			if rows[i].Status == nil {
				status := model.StatusNotStarted
				zero, noAttempts := 0, 0
				rows[i].Status = &status
				rows[i].Score = &zero
				rows[i].Attempts = &noAttempts
			}
		}
	}
	return rows, nil
}

// ListAllQuizzes 管理视角，包含未启用的试卷
func (s *QuizService) ListAllQuizzes(caller model.CallerContext) ([]repository.QuizListRow, error) {
	if err := s.Access.Require(caller, PermQuizzesManage); err != nil {
		return nil, err
	}
	rows, err := s.QuizRepo.List(false, 0)
	if err != nil {
		return nil, repoError(err, "quizzes")
	}
	return rows, nil
}

func (s *QuizService) CreateQuiz(ctx context.Context, caller model.CallerContext, req QuizReq) (*model.Quiz, error) {
	if err := s.Access.Require(caller, PermQuizzesManage); err != nil {
		return nil, err
	}
	if req.Difficulty == "" {
		req.Difficulty = model.DifficultyBeginner
	}
	if err := validateQuizMeta(req.Title, req.Difficulty, req.TimeLimit); err != nil {
		return nil, err
	}
	if len(req.Questions) == 0 {
		return nil, util.Validationf("quiz must have at least one question")
	}
	questions, err := buildQuestions(req.Questions)
	if err != nil {
		return nil, err
	}

	quiz := &model.Quiz{
		Title:       strings.TrimSpace(req.Title),
		Description: req.Description,
		Difficulty:  req.Difficulty,
		TimeLimit:   req.TimeLimit,
		IsActive:    req.IsActive == nil || *req.IsActive,
		CreatedBy:   caller.UserID,
		Questions:   questions,
	}
	if err := s.QuizRepo.CreateWithQuestions(quiz); err != nil {
		return nil, repoError(err, "quiz")
	}

	logger.Log.Info("quiz created",
		zap.Uint("quiz_id", quiz.ID),
		zap.Uint("created_by", caller.UserID),
		zap.Int("questions", len(questions)))
	return quiz, nil
}

// UpdateQuiz 更新元数据；请求中携带 questions 时整体替换题目
func (s *QuizService) UpdateQuiz(ctx context.Context, caller model.CallerContext, id uint, req QuizReq) (*model.Quiz, error) {
	if err := s.Access.Require(caller, PermQuizzesManage); err != nil {
		return nil, err
	}
	existing, err := s.QuizRepo.FindByID(id)
	if err != nil {
		return nil, repoError(err, "quiz")
	}

	if req.Difficulty == "" {
		req.Difficulty = existing.Difficulty
	}
	if err := validateQuizMeta(req.Title, req.Difficulty, req.TimeLimit); err != nil {
		return nil, err
	}

	var questions []model.Question
	if req.Questions != nil {
		if len(req.Questions) == 0 {
			return nil, util.Validationf("quiz must have at least one question")
		}
		if questions, err = buildQuestions(req.Questions); err != nil {
			return nil, err
		}
	}

	existing.Title = strings.TrimSpace(req.Title)
	existing.Description = req.Description
	existing.Difficulty = req.Difficulty
	existing.TimeLimit = req.TimeLimit
	if req.IsActive != nil {
		existing.IsActive = *req.IsActive
	}
	if err := s.QuizRepo.Update(existing, questions); err != nil {
		return nil, repoError(err, "quiz")
	}
	s.invalidate(ctx, id)

	return s.GetQuiz(ctx, id)
}

// DeleteQuiz 存在答题记录时需要 force 才会级联删除
func (s *QuizService) DeleteQuiz(ctx context.Context, caller model.CallerContext, id uint, force bool) error {
	if err := s.Access.Require(caller, PermQuizzesManage); err != nil {
		return err
	}
	removed, err := s.QuizRepo.Delete(id, force)
	if err != nil {
		return repoError(err, "quiz")
	}
	s.invalidate(ctx, id)

	purged := 0
	if s.Archive != nil && len(removed) > 0 {
		purged = s.Archive.Purge(ctx, removed)
	}

	logger.Log.Info("quiz deleted",
		zap.Uint("quiz_id", id),
		zap.Uint("deleted_by", caller.UserID),
		zap.Bool("force", force),
		zap.Int("attempts_removed", len(removed)),
		zap.Int("reports_purged", purged))
	return nil
}

// AddQuestion 追加到题目末尾
func (s *QuizService) AddQuestion(ctx context.Context, caller model.CallerContext, quizID uint, req QuestionReq) (*model.Question, error) {
	if err := s.Access.Require(caller, PermQuizzesManage); err != nil {
		return nil, err
	}
	quiz, err := s.QuizRepo.FindByID(quizID)
	if err != nil {
		return nil, repoError(err, "quiz")
	}

	question, err := BuildQuestion(req)
	if err != nil {
		return nil, err
	}
	question.QuizID = quiz.ID
	question.Position = len(quiz.Questions)
	if err := s.QuizRepo.AddQuestion(&question); err != nil {
		return nil, repoError(err, "question")
	}
	s.invalidate(ctx, quizID)
	return &question, nil
}
