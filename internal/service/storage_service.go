package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"phish_trainer_backend/internal/config"
	"phish_trainer_backend/internal/model"
	"phish_trainer_backend/internal/repository"
	"phish_trainer_backend/internal/util"
	"phish_trainer_backend/pkg/logger"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"go.uber.org/zap"
)

// StorageProvider 定义通用存储接口
type StorageProvider interface {
	Upload(ctx context.Context, filename string, reader io.Reader, size int64, contentType string) (string, error)
	Delete(ctx context.Context, filename string) error
	GetURL(filename string) string
}

// LocalStorageProvider 本地存储实现
type LocalStorageProvider struct {
	Config *config.StorageConfig
}

func (p *LocalStorageProvider) Upload(ctx context.Context, filename string, reader io.Reader, size int64, contentType string) (string, error) {
	dst := filepath.Join(p.Config.LocalPath, filename)
	dir := filepath.Dir(dst)
	if _, err := os.Stat(dir); os.IsNotExist(err) {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return "", err
		}
	}

	out, err := os.Create(dst)
	if err != nil {
		return "", err
	}
	defer out.Close()

	if _, err = io.Copy(out, reader); err != nil {
		return "", err
	}

	return p.GetURL(filename), nil
}

// Delete 文件不存在视为已删除
func (p *LocalStorageProvider) Delete(ctx context.Context, filename string) error {
	err := os.Remove(filepath.Join(p.Config.LocalPath, filename))
	if os.IsNotExist(err) {
		return nil
	}
	return err
}

func (p *LocalStorageProvider) GetURL(filename string) string {
	return "/reports/" + filename
}

// MinioStorageProvider MinIO存储实现
type MinioStorageProvider struct {
	Config *config.StorageConfig
	Client *minio.Client
}

func NewMinioStorageProvider(cfg *config.StorageConfig) (*MinioStorageProvider, error) {
	client, err := minio.New(cfg.MinioEndpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.MinioAccessID, cfg.MinioSecret, ""),
		Secure: cfg.MinioUseSSL,
	})
	if err != nil {
		return nil, err
	}
	return &MinioStorageProvider{Config: cfg, Client: client}, nil
}

func (p *MinioStorageProvider) Upload(ctx context.Context, filename string, reader io.Reader, size int64, contentType string) (string, error) {
	_, err := p.Client.PutObject(ctx, p.Config.MinioBucket, filename, reader, size, minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		return "", err
	}
	return p.GetURL(filename), nil
}

func (p *MinioStorageProvider) Delete(ctx context.Context, filename string) error {
	return p.Client.RemoveObject(ctx, p.Config.MinioBucket, filename, minio.RemoveObjectOptions{})
}

func (p *MinioStorageProvider) GetURL(filename string) string {
	return "/" + p.Config.MinioBucket + "/" + filename
}

// ReportArchive 把答题报告归档到对象存储，作为数据库之外的审计副本
type ReportArchive struct {
	Provider StorageProvider
	Timeout  time.Duration
}

func NewReportArchive(cfg *config.Config) *ReportArchive {
	var provider StorageProvider
	if cfg.Storage.Type == util.StorageMinio {
		p, err := NewMinioStorageProvider(&cfg.Storage)
		if err != nil {
			logger.Log.Warn("minio unavailable, falling back to local report storage", zap.Error(err))
		} else {
			provider = p
		}
	}

	if provider == nil {
		provider = &LocalStorageProvider{Config: &cfg.Storage}
	}

	return &ReportArchive{Provider: provider, Timeout: 10 * time.Second}
}

// AttemptReport 归档内容
type AttemptReport struct {
	AttemptID   string      `json:"attempt_id"`
	UserID      uint        `json:"user_id"`
	QuizID      uint        `json:"quiz_id"`
	QuizTitle   string      `json:"quiz_title"`
	Score       int         `json:"score"`
	MaxScore    int         `json:"max_score"`
	Percentage  int         `json:"percentage"`
	TimeSpent   int         `json:"time_spent"`
	CompletedAt time.Time   `json:"completed_at"`
	Attempts    int         `json:"attempts"`
	Breakdown   interface{} `json:"breakdown"`
}

func ReportKey(entry *repository.LedgerEntry) string {
	return attemptReportKey(entry.Attempt)
}

func attemptReportKey(attempt model.Attempt) string {
	return fmt.Sprintf("attempts/%d/%d/%s.json", attempt.UserID, attempt.QuizID, attempt.ID)
}

func (a *ReportArchive) Archive(ctx context.Context, quizTitle string, entry *repository.LedgerEntry) (string, error) {
	report := AttemptReport{
		AttemptID:   entry.Attempt.ID,
		UserID:      entry.Attempt.UserID,
		QuizID:      entry.Attempt.QuizID,
		QuizTitle:   quizTitle,
		Score:       entry.Attempt.Score,
		MaxScore:    entry.Attempt.MaxScore,
		Percentage:  Percentage(entry.Attempt.Score, entry.Attempt.MaxScore),
		TimeSpent:   entry.Attempt.TimeSpent,
		CompletedAt: entry.Attempt.CompletedAt,
		Attempts:    entry.Progress.Attempts,
		Breakdown:   entry.Attempt.Answers,
	}
	raw, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return "", err
	}
	return a.Provider.Upload(ctx, ReportKey(entry), bytes.NewReader(raw), int64(len(raw)), "application/json")
}

// ArchiveAsync 归档失败只记录日志，不影响提交结果
func (a *ReportArchive) ArchiveAsync(quizTitle string, entry *repository.LedgerEntry) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), a.Timeout)
		defer cancel()
		if _, err := a.Archive(ctx, quizTitle, entry); err != nil {
			logger.Log.Warn("archive attempt report failed",
				zap.String("attempt_id", entry.Attempt.ID),
				zap.Error(err))
		}
	}()
}

// Purge 删除答题记录对应的归档报告，失败只记录日志；返回成功删除的数量
func (a *ReportArchive) Purge(ctx context.Context, attempts []model.Attempt) int {
	ctx, cancel := context.WithTimeout(ctx, a.Timeout)
	defer cancel()

	purged := 0
	for _, attempt := range attempts {
		if err := a.Provider.Delete(ctx, attemptReportKey(attempt)); err != nil {
			logger.Log.Warn("purge attempt report failed",
				zap.String("attempt_id", attempt.ID),
				zap.Error(err))
			continue
		}
		purged++
	}
	return purged
}
