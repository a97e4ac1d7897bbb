package executor

import (
	"fmt"
)

// ExecutionErrorType 执行器错误类型
type ExecutionErrorType int

const (
	ExecutionErrorTypeCommandNotFound ExecutionErrorType = iota // 命令未找到
	ExecutionErrorTypeCommandFailed                             // 命令执行失败
	ExecutionErrorTypeRedirectError                             // 重定向错误
	ExecutionErrorTypePipeError                                 // 管道错误
	ExecutionErrorTypeExpansionError                            // 参数展开失败
)

// ExecutionError 表示执行器错误
type ExecutionError struct {
	Type        ExecutionErrorType
	Message     string
	Command     string // 命令名
	exitCode    int    // 退出码（如果可用）
	OriginalErr error  // 原始错误（如果可用）
}

// Error 实现 error 接口
func (e *ExecutionError) Error() string {
	switch e.Type {
	case ExecutionErrorTypeCommandNotFound:
		return fmt.Sprintf("%s: command not found", e.Command)
	case ExecutionErrorTypeCommandFailed:
		if e.OriginalErr != nil {
			return e.OriginalErr.Error()
		}
		return fmt.Sprintf("%s: exit status %d", e.Command, e.ExitCode())
	case ExecutionErrorTypeRedirectError:
		return fmt.Sprintf("%s: %s", e.Command, e.Message)
	case ExecutionErrorTypePipeError:
		return fmt.Sprintf("pipe: %s", e.Message)
	case ExecutionErrorTypeExpansionError:
		if e.OriginalErr != nil {
			return e.OriginalErr.Error()
		}
		return fmt.Sprintf("%s: expansion failed", e.Command)
	default:
		return e.Message
	}
}

// Unwrap 返回原始错误
func (e *ExecutionError) Unwrap() error {
	return e.OriginalErr
}

// ExitCode 返回退出码
func (e *ExecutionError) ExitCode() int {
	if e.exitCode != 0 {
		return e.exitCode
	}
	// 根据错误类型返回默认退出码
	switch e.Type {
	case ExecutionErrorTypeCommandNotFound:
		return 127
	default:
		return 1
	}
}

// newExecutionError 创建新的执行器错误
func newExecutionError(errType ExecutionErrorType, message string, command string, exitCode int, originalErr error) *ExecutionError {
	return &ExecutionError{
		Type:        errType,
		Message:     message,
		Command:     command,
		exitCode:    exitCode,
		OriginalErr: originalErr,
	}
}
