package parser

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
)

// SyntaxError 表示命令行语法错误
type SyntaxError struct {
	Line   string // 出错的整行输入
	Column int    // 从 1 开始的列号
	Reason string
}

// Error 实现 error 接口
func (e *SyntaxError) Error() string {
	return fmt.Sprintf("syntax error near column %d: %s", e.Column, e.Reason)
}

// Caret 返回出错行及指向出错列的标记
func (e *SyntaxError) Caret() string {
	line := e.Line
	col := e.Column
	// 只展示出错位置所在的物理行
	if i := strings.LastIndexByte(line[:min(col-1, len(line))], '\n'); i >= 0 {
		line = line[i+1:]
		col -= i + 1
	}
	if j := strings.IndexByte(line, '\n'); j >= 0 {
		line = line[:j]
	}
	if col < 1 {
		col = 1
	}
	return line + "\n" + strings.Repeat(" ", col-1) + "^"
}

// IOError 表示重定向目标无法打开
type IOError struct {
	File string
	Err  error
}

// Error 实现 error 接口，格式为 "<file>: <系统错误文本>"
func (e *IOError) Error() string {
	return e.File + ": " + e.Err.Error()
}

// Unwrap 返回底层系统错误
func (e *IOError) Unwrap() error {
	return e.Err
}

// newIOError 从 os.OpenFile 的错误构造 IOError，去掉 PathError 的重复前缀
func newIOError(name string, err error) *IOError {
	var pathErr *fs.PathError
	if errors.As(err, &pathErr) {
		err = pathErr.Err
	}
	return &IOError{File: name, Err: err}
}
