// Package builtin 提供在 shell 进程内执行的命令
package builtin

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"slices"
	"strconv"
	"strings"

	"shelldone/internal/history"
	"shelldone/pkg/platform"
)

// Context 内置命令的运行环境
type Context struct {
	Stdin   io.Reader
	Stdout  io.Writer
	Stderr  io.Writer
	History *history.History
}

// BuiltinFunc 内置命令函数类型
type BuiltinFunc func(ctx *Context, args []string) error

// ExitError 由 exit/quit 返回，请求 shell 以给定状态退出
type ExitError struct {
	Code int
}

// Error 实现 error 接口
func (e *ExitError) Error() string {
	return fmt.Sprintf("exit %d", e.Code)
}

var builtins map[string]BuiltinFunc

func init() {
	builtins = map[string]BuiltinFunc{
		"cd":      cd,
		"pwd":     pwd,
		"echo":    echo,
		"exit":    exit,
		"quit":    exit,
		"history": historyCmd,
	}
}

// Lookup 查找内置命令
func Lookup(name string) (BuiltinFunc, bool) {
	fn, ok := builtins[name]
	return fn, ok
}

// Names 返回所有内置命令名，按字典序排列
func Names() []string {
	names := make([]string, 0, len(builtins))
	for name := range builtins {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// cd 改变目录
func cd(ctx *Context, args []string) error {
	var dir string
	switch {
	case len(args) == 0:
		// 没有参数，切换到home目录
		dir = platform.HomeDir()
		if dir == "" {
			return errors.New("cd: HOME not set")
		}
	case args[0] == "-":
		dir = os.Getenv("OLDPWD")
		if dir == "" {
			return errors.New("cd: OLDPWD not set")
		}
		fmt.Fprintln(ctx.Stdout, dir)
	default:
		dir = platform.ExpandHome(args[0])
	}

	old, _ := os.Getwd()
	if err := os.Chdir(dir); err != nil {
		var pathErr *fs.PathError
		if errors.As(err, &pathErr) {
			err = pathErr.Err
		}
		return fmt.Errorf("cd: %s: %w", args0(args, dir), err)
	}

	// 更新PWD环境变量
	pwd, err := os.Getwd()
	if err != nil {
		return err
	}
	os.Setenv("OLDPWD", old)
	os.Setenv("PWD", pwd)
	return nil
}

func args0(args []string, fallback string) string {
	if len(args) > 0 {
		return args[0]
	}
	return fallback
}

// pwd 打印当前工作目录
func pwd(ctx *Context, args []string) error {
	dir, err := os.Getwd()
	if err != nil {
		return err
	}
	fmt.Fprintln(ctx.Stdout, dir)
	return nil
}

// echo 打印参数
func echo(ctx *Context, args []string) error {
	newline := true
	if len(args) > 0 && args[0] == "-n" {
		newline = false
		args = args[1:]
	}
	fmt.Fprint(ctx.Stdout, strings.Join(args, " "))
	if newline {
		fmt.Fprintln(ctx.Stdout)
	}
	return nil
}

// exit 请求退出shell
func exit(ctx *Context, args []string) error {
	code := 0
	if len(args) > 0 {
		n, err := strconv.Atoi(args[0])
		if err != nil {
			fmt.Fprintf(ctx.Stderr, "exit: %s: numeric argument required\n", args[0])
			return &ExitError{Code: 2}
		}
		code = n & 0xff
	}
	return &ExitError{Code: code}
}

// historyCmd 显示或清除命令历史
func historyCmd(ctx *Context, args []string) error {
	if ctx.History == nil {
		return nil
	}
	if len(args) > 0 && args[0] == "-c" {
		ctx.History.Clear()
		return nil
	}

	if len(args) == 0 {
		ctx.History.Print(ctx.Stdout)
		return nil
	}

	// 显示最后N条历史
	n, err := strconv.Atoi(args[0])
	if err != nil || n < 0 {
		return fmt.Errorf("history: %s: numeric argument required", args[0])
	}
	entries := ctx.History.Entries()
	first := max(0, len(entries)-n)
	for i := first; i < len(entries); i++ {
		fmt.Fprintf(ctx.Stdout, "%5d  %s\n", i+1, entries[i])
	}
	return nil
}
