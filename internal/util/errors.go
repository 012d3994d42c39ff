package util

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound              = errors.New("resource not found")
	ErrValidation            = errors.New("validation failed")
	ErrInsufficientPrivilege = errors.New("insufficient privilege")
	ErrSelfDeletion          = errors.New("cannot delete own account")
	ErrDuplicate             = errors.New("duplicate record")
	ErrConflict              = errors.New("referential integrity conflict")
	ErrPersistence           = errors.New("persistence failure")
	ErrUnauthenticated       = errors.New("authentication required")
	ErrTooManyAttempts       = errors.New("too many attempts")
)

// DomainError 带给调用方看的消息，Unwrap 同时暴露错误类别和底层原因
type DomainError struct {
	Kind    error
	Message string
	Cause   error
}

func (e *DomainError) Error() string {
	if e.Cause != nil {
		return e.Message + ": " + e.Cause.Error()
	}
	return e.Message
}

func (e *DomainError) Unwrap() []error {
	if e.Cause != nil {
		return []error{e.Kind, e.Cause}
	}
	return []error{e.Kind}
}

func NewError(kind error, format string, args ...interface{}) error {
	return &DomainError{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

func NotFoundf(format string, args ...interface{}) error {
	return NewError(ErrNotFound, format, args...)
}

func Validationf(format string, args ...interface{}) error {
	return NewError(ErrValidation, format, args...)
}

func Forbiddenf(format string, args ...interface{}) error {
	return NewError(ErrInsufficientPrivilege, format, args...)
}

func Conflictf(format string, args ...interface{}) error {
	return NewError(ErrConflict, format, args...)
}

func Duplicatef(format string, args ...interface{}) error {
	return NewError(ErrDuplicate, format, args...)
}

// Persistence 包装存储层错误，对外只暴露通用消息
func Persistence(cause error, message string) error {
	return &DomainError{Kind: ErrPersistence, Message: message, Cause: cause}
}

// PublicMessage 取出可以返回给调用方的消息
func PublicMessage(err error) string {
	var de *DomainError
	if errors.As(err, &de) {
		return de.Message
	}
	return err.Error()
}
