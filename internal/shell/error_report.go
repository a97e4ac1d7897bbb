package shell

import (
	"errors"
	"fmt"
	"io"

	"shelldone/internal/parser"
)

// ErrorReporter 错误报告器
type ErrorReporter struct {
	out        io.Writer
	scriptPath string // 脚本文件路径（如果是在执行脚本）
	lineNum    int    // 当前行号
}

// NewErrorReporter 创建新的错误报告器
func NewErrorReporter(out io.Writer, scriptPath string) *ErrorReporter {
	return &ErrorReporter{
		out:        out,
		scriptPath: scriptPath,
	}
}

// SetLineNum 设置当前行号
func (er *ErrorReporter) SetLineNum(lineNum int) {
	er.lineNum = lineNum
}

// ReportError 报告错误
// 根据错误类型格式化错误消息，参考 bash 的错误格式
func (er *ErrorReporter) ReportError(err error) {
	if err == nil {
		return
	}
	fmt.Fprintln(er.out, er.Format(err))
}

// Format 格式化错误消息
// 语法错误附带出错行和指向出错列的 ^，其余错误自带完整的消息
func (er *ErrorReporter) Format(err error) string {
	var syntaxErr *parser.SyntaxError
	if errors.As(err, &syntaxErr) {
		return er.prefix() + ": " + syntaxErr.Error() + "\n" + syntaxErr.Caret()
	}
	return er.prefix() + ": " + err.Error()
}

// prefix 参考 bash 的错误格式：shelldone: 文件名: 行号
func (er *ErrorReporter) prefix() string {
	switch {
	case er.scriptPath != "" && er.lineNum > 0:
		return fmt.Sprintf("%s: %s: line %d", appName, er.scriptPath, er.lineNum)
	case er.scriptPath != "":
		return fmt.Sprintf("%s: %s", appName, er.scriptPath)
	default:
		return appName
	}
}
