package executor

import (
	"errors"
	"os/exec"
	"testing"

	"github.com/stretchr/testify/assert"
)

// TestExecutionErrorHandling 测试执行器错误处理
func TestExecutionErrorHandling(t *testing.T) {
	cause := errors.New("cd: x: no such file or directory")

	tests := []struct {
		name     string
		err      *ExecutionError
		message  string
		exitCode int
	}{
		{
			name:     "命令未找到",
			err:      newExecutionError(ExecutionErrorTypeCommandNotFound, "", "foo", 0, nil),
			message:  "foo: command not found",
			exitCode: 127,
		},
		{
			name:     "命令执行失败（带原始错误）",
			err:      newExecutionError(ExecutionErrorTypeCommandFailed, "", "cd", 1, cause),
			message:  "cd: x: no such file or directory",
			exitCode: 1,
		},
		{
			name:     "命令执行失败（仅退出码）",
			err:      newExecutionError(ExecutionErrorTypeCommandFailed, "", "make", 2, nil),
			message:  "make: exit status 2",
			exitCode: 2,
		},
		{
			name:     "重定向错误",
			err:      newExecutionError(ExecutionErrorTypeRedirectError, "7: bad file descriptor", "echo", 0, nil),
			message:  "echo: 7: bad file descriptor",
			exitCode: 1,
		},
		{
			name:     "管道错误",
			err:      newExecutionError(ExecutionErrorTypePipeError, "too many open files", "ls", 0, nil),
			message:  "pipe: too many open files",
			exitCode: 1,
		},
		{
			name:     "展开失败",
			err:      newExecutionError(ExecutionErrorTypeExpansionError, "", "ls", 0, nil),
			message:  "ls: expansion failed",
			exitCode: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.Error(); got != tt.message {
				t.Errorf("错误消息不匹配，期望 %q，得到 %q", tt.message, got)
			}
			if got := tt.err.ExitCode(); got != tt.exitCode {
				t.Errorf("退出码不匹配，期望 %d，得到 %d", tt.exitCode, got)
			}
		})
	}
}

func TestExecutionErrorUnwrap(t *testing.T) {
	err := newExecutionError(ExecutionErrorTypeCommandFailed, "", "cd", 1, exec.ErrNotFound)
	assert.ErrorIs(t, err, exec.ErrNotFound)
}

func TestStartError(t *testing.T) {
	_, err := exec.LookPath("nonexistent_command_xyz")
	got := startError("nonexistent_command_xyz", err)
	assert.Equal(t, ExecutionErrorTypeCommandNotFound, got.Type)
	assert.Equal(t, 127, got.ExitCode())
}
