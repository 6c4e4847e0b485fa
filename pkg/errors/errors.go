package errors

import (
	"errors"
	"fmt"
)

// AppError 应用错误类型
// 用于统一管理业务错误，包含错误码和错误消息
type AppError struct {
	Code    int    // 错误码
	Message string // 用户可见的错误消息
	Err     error  // 原始错误（可选，用于调试）
}

// Error 实现 error 接口
func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%d] %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%d] %s", e.Code, e.Message)
}

// Unwrap 支持 errors.Unwrap
func (e *AppError) Unwrap() error {
	return e.Err
}

// NewError 创建新错误
func NewError(code int, message string) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
	}
}

// Wrap 包装原始错误
func (e *AppError) Wrap(err error) *AppError {
	return &AppError{
		Code:    e.Code,
		Message: e.Message,
		Err:     err,
	}
}

// Is 判断是否为指定错误
func Is(err error, target *AppError) bool {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code == target.Code
	}
	return false
}

// GetCode 获取错误码，如果不是 AppError 返回默认错误码
func GetCode(err error) int {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code
	}
	return CodeServerError
}

// GetMessage 获取错误消息
func GetMessage(err error) string {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Message
	}
	return "服务器内部错误"
}

// ============== 错误码定义 ==============

const (
	CodeSuccess = 0

	// 参数相关 11000-11999
	CodeInvalidParams = 11002

	// 社交相关 12000-12999
	CodeRemoteActionFailed = 12001
	CodeSearchFailed       = 12002

	// 系统错误 50000-50999
	CodeServerError      = 50001
	CodeStoreUnavailable = 50002
)

// ============== 预定义错误 ==============

var (
	ErrInvalidParams = NewError(CodeInvalidParams, "参数校验失败")
)

// 社交相关
var (
	// ErrRemoteActionFailed 模拟的远端动作失败（发送好友请求 / 搜索）
	ErrRemoteActionFailed = NewError(CodeRemoteActionFailed, "远端操作失败，请重试")
	ErrSearchFailed       = NewError(CodeSearchFailed, "用户搜索失败，请重试")
)

// 系统相关
var (
	ErrServerError = NewError(CodeServerError, "服务器内部错误")
	// ErrStoreUnavailable 持久化存储不可用；只记录日志，内存状态仍然有效
	ErrStoreUnavailable = NewError(CodeStoreUnavailable, "本地存储不可用")
)
