package apperrors

import (
	"errors"
	"fmt"
)

// 错误分类
var (
	ErrValidation            = errors.New("validation error")
	ErrInsufficientData      = errors.New("insufficient data")
	ErrDependencyUnavailable = errors.New("dependency unavailable")
	ErrNotFound              = errors.New("resource not found")
)

// ValidationError 输入校验失败（阈值设置、样本等边界校验）
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("validation error: %s", e.Message)
	}
	return fmt.Sprintf("validation error: %s: %s", e.Field, e.Message)
}

func (e *ValidationError) Unwrap() error {
	return ErrValidation
}

// Validation 创建校验错误
func Validation(field, message string) *ValidationError {
	return &ValidationError{Field: field, Message: message}
}

// InsufficientDataError 学习数据不足
type InsufficientDataError struct {
	Count    int `json:"count"`
	Required int `json:"required"`
}

func (e *InsufficientDataError) Error() string {
	return fmt.Sprintf("数据不足，需要至少%d条记录，当前仅有%d条", e.Required, e.Count)
}

func (e *InsufficientDataError) Unwrap() error {
	return ErrInsufficientData
}

// InsufficientData 创建数据不足错误
func InsufficientData(count, required int) *InsufficientDataError {
	return &InsufficientDataError{Count: count, Required: required}
}

// DependencyError 外部依赖（数据存储、文本生成服务）不可用
type DependencyError struct {
	Dependency string
	Err        error
}

func (e *DependencyError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s unavailable: %v", e.Dependency, e.Err)
	}
	return fmt.Sprintf("%s unavailable", e.Dependency)
}

// Is 同时匹配 ErrDependencyUnavailable 与被包装的底层错误
func (e *DependencyError) Is(target error) bool {
	return target == ErrDependencyUnavailable
}

func (e *DependencyError) Unwrap() error {
	return e.Err
}

// DependencyUnavailable 创建依赖不可用错误
func DependencyUnavailable(dependency string, err error) *DependencyError {
	return &DependencyError{Dependency: dependency, Err: err}
}

// NotFound 创建资源不存在错误
func NotFound(resource, id string) error {
	return fmt.Errorf("%s not found: %s: %w", resource, id, ErrNotFound)
}
