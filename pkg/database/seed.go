package database

import (
	"phish_trainer_backend/internal/config"
	"phish_trainer_backend/internal/model"
	"phish_trainer_backend/pkg/logger"

	"github.com/pkg/errors"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// Seed 空库时写入初始管理员和示例试卷，重复执行无副作用
func Seed(db *gorm.DB, cfg *config.BootstrapConfig) error {
	var userCount int64
	if err := db.Model(&model.User{}).Count(&userCount).Error; err != nil {
		return errors.Wrap(err, "count users")
	}

	var admin model.User
	if userCount == 0 && cfg.AdminUsername != "" {
		hashed, err := bcrypt.GenerateFromPassword([]byte(cfg.AdminPassword), bcrypt.DefaultCost)
		if err != nil {
			return errors.Wrap(err, "hash admin password")
		}
		admin = model.User{
			Username:      cfg.AdminUsername,
			Email:         cfg.AdminEmail,
			PasswordHash:  string(hashed),
			FullName:      "Administrator",
			Role:          model.Admin,
			IsActive:      true,
			SecurityLevel: model.SecurityExpert,
		}
		if err := db.Create(&admin).Error; err != nil {
			return errors.Wrap(err, "create admin")
		}
		logger.Log.Info("bootstrap admin created", zap.String("username", admin.Username))
	}

	if !cfg.SampleQuiz {
		return nil
	}
	var quizCount int64
	if err := db.Model(&model.Quiz{}).Count(&quizCount).Error; err != nil {
		return errors.Wrap(err, "count quizzes")
	}
	if quizCount > 0 {
		return nil
	}

	quiz := SampleQuiz(admin.ID)
	if err := db.Create(quiz).Error; err != nil {
		return errors.Wrap(err, "create sample quiz")
	}
	logger.Log.Info("sample quiz created", zap.Uint("quiz_id", quiz.ID))
	return nil
}

// SampleQuiz 入门级钓鱼识别测验
func SampleQuiz(createdBy uint) *model.Quiz {
	return &model.Quiz{
		Title:       "Phishing recognition basics",
		Description: "Baseline check of how well you recognise phishing attacks",
		Difficulty:  model.DifficultyBeginner,
		IsActive:    true,
		CreatedBy:   createdBy,
		Questions: []model.Question{
			{
				Text: "Which of these signs can indicate a phishing email?",
				Type: model.MultipleChoice,
				Options: model.OptionList{
					"Typos in the sender's domain name",
					"Urgent demands for immediate action",
					"Requests for confidential information",
					"The official company logo",
				},
				CorrectAnswer: model.IndexSet{0, 1, 2},
				Explanation:   "Phishing emails often misspell domains, create a sense of urgency and ask for confidential data.",
				Points:        2,
				Position:      0,
			},
			{
				Text: "You received an email from your bank linking to my-bank-security.com. What should you do?",
				Type: model.SingleChoice,
				Options: model.OptionList{
					"Follow the link and enter your details",
					"Call the bank on its official number",
					"Ignore the email",
					"Forward the email to a friend",
				},
				CorrectAnswer: model.IndexSet{1},
				Explanation:   "Always confirm with the bank on its official number. Domains padded with extra words are often phishing.",
				Points:        1,
				Position:      1,
			},
			{
				Text: "An email from \"support\" carries an attachment named Security_update.exe. What do you do?",
				Type: model.SingleChoice,
				Options: model.OptionList{
					"Open the attachment, security matters",
					"Delete the email without opening the attachment",
					"Forward it to the IT department",
					"Save the attachment to your computer",
				},
				CorrectAnswer: model.IndexSet{1},
				Explanation:   "Executable attachments from unknown senders are a classic sign of malware phishing.",
				Points:        1,
				Position:      2,
			},
		},
	}
}
