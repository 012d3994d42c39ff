package service

import (
	"errors"
	"phish_trainer_backend/internal/repository"
	"phish_trainer_backend/internal/util"

	"gorm.io/gorm"
)

// repoError 把存储层错误翻译成领域错误类别
func repoError(err error, what string) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return util.NotFoundf("%s not found", what)
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return util.Duplicatef("%s already exists", what)
	case errors.Is(err, repository.ErrQuizHasAttempts):
		return util.Conflictf("%s has recorded attempts; delete with force to remove them", what)
	}
	var de *util.DomainError
	if errors.As(err, &de) {
		return err
	}
	return util.Persistence(err, "failed to access "+what)
}
