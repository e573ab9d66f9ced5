package common

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound 未找到错误 (未知比赛 ID)
	ErrNotFound = errors.New("not found")

	// ErrValidationFailed 验证失败错误 (非法事件/聊天内容)
	ErrValidationFailed = errors.New("validation failed")

	// ErrMatchFinished 比赛已结束, 不再接受事件
	ErrMatchFinished = fmt.Errorf("%w: match already finished", ErrValidationFailed)

	// ErrStorageFailed 存储失败错误
	ErrStorageFailed = errors.New("storage failed")
)

// ValidationError 带字段信息的验证错误
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// Unwrap 使 errors.Is(err, ErrValidationFailed) 成立
func (e *ValidationError) Unwrap() error {
	return ErrValidationFailed
}

// NewValidationError 创建验证错误
func NewValidationError(field, reason string) *ValidationError {
	return &ValidationError{Field: field, Reason: reason}
}

// AppError 应用错误 (存储层使用, 保留底层原因)
type AppError struct {
	Code    string
	Message string
	Cause   error
}

func (e *AppError) Error() string {
	if e.Cause != nil {
		return e.Message + ": " + e.Cause.Error()
	}
	return e.Message
}

// Unwrap 暴露底层原因和分类错误
func (e *AppError) Unwrap() []error {
	errs := []error{}
	if e.Code == "storage" {
		errs = append(errs, ErrStorageFailed)
	}
	if e.Cause != nil {
		errs = append(errs, e.Cause)
	}
	return errs
}

// NewAppError 创建应用错误
func NewAppError(code string, message string, cause error) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Cause:   cause,
	}
}

// StorageError 包装存储层错误
func StorageError(op string, cause error) error {
	return NewAppError("storage", op, cause)
}

// IsNotFound 辅助判断
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsValidation 辅助判断
func IsValidation(err error) bool {
	return errors.Is(err, ErrValidationFailed)
}
