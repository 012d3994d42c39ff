// 从 YAML 文件批量导入测验
//
// 首次部署或需要一次性导入题库时使用，测验以初始管理员身份创建。
//
// 用法: go run scripts/import_quizzes.go configs/quizzes/email_basics.yaml

package main

import (
	"context"
	"log"
	"os"
	"phish_trainer_backend/internal/config"
	"phish_trainer_backend/internal/model"
	"phish_trainer_backend/internal/repository"
	"phish_trainer_backend/internal/service"
	"phish_trainer_backend/pkg/database"
	"phish_trainer_backend/pkg/logger"

	"gopkg.in/yaml.v3"
)

type questionFile struct {
	Text          string   `yaml:"text"`
	Type          string   `yaml:"type"`
	Options       []string `yaml:"options"`
	CorrectAnswer []int    `yaml:"correct_answer"`
	Explanation   string   `yaml:"explanation"`
	Points        *int     `yaml:"points"`
}

type quizFile struct {
	Title       string         `yaml:"title"`
	Description string         `yaml:"description"`
	Difficulty  string         `yaml:"difficulty"`
	TimeLimit   int            `yaml:"time_limit"`
	Inactive    bool           `yaml:"inactive"`
	Questions   []questionFile `yaml:"questions"`
}

func (q quizFile) request() service.QuizReq {
	active := !q.Inactive
	req := service.QuizReq{
		Title:       q.Title,
		Description: q.Description,
		Difficulty:  q.Difficulty,
		TimeLimit:   q.TimeLimit,
		IsActive:    &active,
	}
	for _, qq := range q.Questions {
		req.Questions = append(req.Questions, service.QuestionReq{
			QuestionText:  qq.Text,
			QuestionType:  model.QuestionType(qq.Type),
			Options:       qq.Options,
			CorrectAnswer: qq.CorrectAnswer,
			Explanation:   qq.Explanation,
			Points:        qq.Points,
		})
	}
	return req
}

func main() {
	if len(os.Args) < 2 {
		log.Fatal("用法: go run scripts/import_quizzes.go <quizzes.yaml>")
	}

	cfg, err := config.LoadConfig("configs")
	if err != nil {
		log.Fatalf("无法读取配置文件: %v", err)
	}
	logger.InitLogger(cfg)

	data, err := os.ReadFile(os.Args[1])
	if err != nil {
		log.Fatalf("无法读取测验文件: %v", err)
	}
	var quizzes []quizFile
	if err := yaml.Unmarshal(data, &quizzes); err != nil {
		log.Fatalf("解析测验文件失败: %v", err)
	}

	db, err := database.InitDB(cfg)
	if err != nil {
		log.Fatalf("数据库连接失败: %v", err)
	}

	userRepo := repository.NewUserRepository(db)
	admin, err := userRepo.FindByUsername(cfg.Bootstrap.AdminUsername)
	if err != nil {
		log.Fatalf("找不到管理员账号 %q: %v", cfg.Bootstrap.AdminUsername, err)
	}
	caller := model.CallerContext{UserID: admin.ID, Role: admin.Role, Organization: admin.Organization}

	quizService := service.NewQuizService(repository.NewQuizRepository(db), nil, service.NewAccessControl(nil), nil)
	for _, q := range quizzes {
		quiz, err := quizService.CreateQuiz(context.Background(), caller, q.request())
		if err != nil {
			log.Fatalf("导入 %q 失败: %v", q.Title, err)
		}
		log.Printf("已导入 %q (id=%d, %d 题)", quiz.Title, quiz.ID, len(quiz.Questions))
	}
	log.Println("完成！")
}
