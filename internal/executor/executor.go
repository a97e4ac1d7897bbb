// Package executor 按操作符执行解析得到的命令序列
package executor

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"os/exec"
	"sync"
	"syscall"

	"github.com/rs/zerolog"

	"shelldone/internal/builtin"
	"shelldone/internal/expand"
	"shelldone/internal/history"
	"shelldone/internal/parser"
)

// Executor 执行器
type Executor struct {
	expander *expand.Registry
	history  *history.History
	logger   zerolog.Logger
	report   func(error)

	stdin  io.Reader
	stdout io.Writer
	stderr io.Writer

	status int // 最近一条命令的退出状态
}

// New 创建新的执行器
func New(expander *expand.Registry, h *history.History) *Executor {
	if expander == nil {
		expander = expand.NewRegistry(zerolog.Nop())
	}
	e := &Executor{
		expander: expander,
		history:  h,
		logger:   zerolog.Nop(),
		stdin:    os.Stdin,
	}
	e.stdout, e.stderr = guardWriters(os.Stdout, os.Stderr)
	e.report = func(err error) {
		fmt.Fprintf(e.stderr, "shelldone: %v\n", err)
	}
	return e
}

// SetIO 设置默认的标准流
func (e *Executor) SetIO(stdin io.Reader, stdout, stderr io.Writer) {
	e.stdin = stdin
	e.stdout, e.stderr = guardWriters(stdout, stderr)
}

// lockedWriter 串行化多个命令对同一个 Writer 的写入
type lockedWriter struct {
	mu *sync.Mutex
	w  io.Writer
}

func (l *lockedWriter) Write(p []byte) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.w.Write(p)
}

// guardWriters 为非文件的输出流加锁
// 管道中的每个外部命令都会启动一个复制 goroutine 写入这些流，内置命令也并发写入
// 两个流共用一把锁，因为它们可能指向同一个 Writer
func guardWriters(stdout, stderr io.Writer) (io.Writer, io.Writer) {
	mu := new(sync.Mutex)
	guard := func(w io.Writer) io.Writer {
		if _, ok := w.(*os.File); ok || w == nil {
			return w
		}
		return &lockedWriter{mu: mu, w: w}
	}
	return guard(stdout), guard(stderr)
}

// SetLogger 设置日志记录器
func (e *Executor) SetLogger(logger zerolog.Logger) {
	e.logger = logger.With().Str("component", "executor").Logger()
}

// SetReporter 设置错误报告函数
func (e *Executor) SetReporter(report func(error)) {
	e.report = report
}

// LastStatus 返回最近一条命令的退出状态
func (e *Executor) LastStatus() int {
	return e.status
}

// Execute 执行一行命令
// 管道连接的命令组成一组；&& 和 || 根据上一组的状态决定是否执行下一组
// 命令自身的失败只会被报告，只有 exit 会作为错误返回
func (e *Executor) Execute(line *parser.Line) error {
	prev := parser.OpEnd
	cmds := line.Commands()
	for start := 0; start < len(cmds); {
		end := start
		for end < len(cmds)-1 && cmds[end].Op == parser.OpPipe {
			end++
		}
		group := cmds[start : end+1]
		op := group[len(group)-1].Op
		start = end + 1

		if !e.shouldRun(prev) {
			e.logger.Debug().Str("command", group[0].Name).Stringer("after", prev).Msg("skipped")
			closeCommands(group)
			prev = op
			continue
		}
		prev = op

		if err := e.runPipeline(group, op == parser.OpBackground); err != nil {
			var exitErr *builtin.ExitError
			if errors.As(err, &exitErr) {
				// 丢弃剩余命令的重定向
				closeCommands(cmds[start:])
				return err
			}
			e.report(err)
		}
	}
	return nil
}

// shouldRun 根据连接上一组的操作符判断是否执行
func (e *Executor) shouldRun(prev parser.Operator) bool {
	switch prev {
	case parser.OpAnd:
		return e.status == 0
	case parser.OpOr:
		return e.status != 0
	default:
		return true
	}
}

// process 管道中的一个命令
type process struct {
	cmd     *parser.Command
	stdin   io.Reader
	stdout  io.Writer
	stderr  io.Writer
	closers []*os.File // 父进程持有的管道端，启动或结束后关闭

	ext    *exec.Cmd
	done   chan error
	status int
	exit   *builtin.ExitError
}

// runPipeline 执行一组由管道连接的命令
func (e *Executor) runPipeline(group []*parser.Command, background bool) error {
	for _, cmd := range group {
		if err := e.expander.Expand(cmd); err != nil {
			closeCommands(group)
			e.status = 1
			return newExecutionError(ExecutionErrorTypeExpansionError, "", cmd.Name, 1, err)
		}
		_, cmd.Builtin = builtin.Lookup(cmd.Name)
	}

	procs, err := e.connect(group)
	if err != nil {
		closeCommands(group)
		e.status = 1
		return err
	}

	var startErr error
	for _, p := range procs {
		// 某个命令启动失败时其余命令照常执行
		if err := e.start(p); err != nil {
			p.status = exitCode(err)
			if startErr == nil {
				startErr = err
			}
		}
	}

	if background {
		// 内置命令修改 shell 自身的状态，必须在返回前结束
		for _, p := range procs {
			if p.done != nil {
				e.waitBuiltin(p)
			}
		}
		go func() {
			e.wait(procs)
			closeCommands(group)
			e.logger.Debug().Str("command", group[0].Name).Int("status", procs[len(procs)-1].status).Msg("background finished")
		}()
		e.status = 0
		return startErr
	}

	e.wait(procs)
	closeCommands(group)
	e.status = procs[len(procs)-1].status
	if startErr != nil {
		return startErr
	}
	// 管道中的 exit 只影响状态
	if len(procs) == 1 && procs[0].exit != nil {
		return procs[0].exit
	}
	return nil
}

// connect 创建管道并计算每个命令的标准流
func (e *Executor) connect(group []*parser.Command) ([]*process, error) {
	procs := make([]*process, len(group))
	var prevReader *os.File
	for i, cmd := range group {
		p := &process{cmd: cmd, stdin: e.stdin, stdout: e.stdout, stderr: e.stderr}
		if prevReader != nil {
			p.stdin = prevReader
			p.closers = append(p.closers, prevReader)
			prevReader = nil
		}
		if i < len(group)-1 {
			r, w, err := os.Pipe()
			if err != nil {
				for _, q := range procs[:i] {
					closeFiles(q.closers)
				}
				closeFiles(p.closers)
				return nil, newExecutionError(ExecutionErrorTypePipeError, err.Error(), cmd.Name, 0, err)
			}
			p.stdout = w
			p.closers = append(p.closers, w)
			prevReader = r
		}
		if err := applyRedirects(p); err != nil {
			closeFiles(p.closers)
			for _, q := range procs[:i] {
				closeFiles(q.closers)
			}
			if prevReader != nil {
				prevReader.Close()
			}
			return nil, err
		}
		procs[i] = p
	}
	return procs, nil
}

// applyRedirects 先应用文件重定向，再解析描述符复制
func applyRedirects(p *process) error {
	stdio := [3]any{p.stdin, p.stdout, p.stderr}
	for fd := 0; fd < 3; fd++ {
		if s := p.cmd.Stream(fd); s.Kind == parser.StreamFile {
			stdio[fd] = s.File
		}
	}
	for fd := 0; fd < 3; fd++ {
		s := p.cmd.Stream(fd)
		if s.Kind != parser.StreamDup {
			continue
		}
		if s.FD < 0 || s.FD > 2 {
			return newExecutionError(ExecutionErrorTypeRedirectError,
				fmt.Sprintf("%d: bad file descriptor", s.FD), p.cmd.Name, 1, nil)
		}
		stdio[fd] = stdio[s.FD]
	}

	var ok bool
	if p.stdin, ok = stdio[0].(io.Reader); !ok {
		return newExecutionError(ExecutionErrorTypeRedirectError, "0: bad file descriptor", p.cmd.Name, 1, nil)
	}
	if p.stdout, ok = stdio[1].(io.Writer); !ok {
		return newExecutionError(ExecutionErrorTypeRedirectError, "1: bad file descriptor", p.cmd.Name, 1, nil)
	}
	if p.stderr, ok = stdio[2].(io.Writer); !ok {
		return newExecutionError(ExecutionErrorTypeRedirectError, "2: bad file descriptor", p.cmd.Name, 1, nil)
	}
	return nil
}

// start 启动一个命令：内置命令在 goroutine 中运行，外部命令创建子进程
func (e *Executor) start(p *process) error {
	argv := p.cmd.Argv()
	e.logger.Debug().Strs("argv", argv).Bool("builtin", p.cmd.Builtin).Msg("start")

	if p.cmd.Builtin {
		fn, _ := builtin.Lookup(p.cmd.Name)
		ctx := &builtin.Context{
			Stdin:   p.stdin,
			Stdout:  p.stdout,
			Stderr:  p.stderr,
			History: e.history,
		}
		p.done = make(chan error, 1)
		go func() {
			err := fn(ctx, argv[1:])
			closeFiles(p.closers)
			p.done <- err
		}()
		return nil
	}

	p.ext = exec.Command(argv[0], argv[1:]...)
	p.ext.Stdin = p.stdin
	p.ext.Stdout = p.stdout
	p.ext.Stderr = p.stderr
	err := p.ext.Start()
	closeFiles(p.closers)
	if err != nil {
		p.ext = nil
		return startError(p.cmd.Name, err)
	}
	return nil
}

// wait 等待所有已启动的命令结束
func (e *Executor) wait(procs []*process) {
	for _, p := range procs {
		switch {
		case p.done != nil:
			e.waitBuiltin(p)
		case p.ext != nil:
			e.waitExternal(p)
		}
	}
}

func (e *Executor) waitBuiltin(p *process) {
	err := <-p.done
	p.done = nil
	if err == nil {
		p.status = 0
		return
	}
	if errors.As(err, &p.exit) {
		p.status = p.exit.Code
		return
	}
	p.status = 1
	e.report(newExecutionError(ExecutionErrorTypeCommandFailed, "", p.cmd.Name, 1, err))
}

func (e *Executor) waitExternal(p *process) {
	err := p.ext.Wait()
	if err == nil {
		p.status = 0
		return
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		if ws, ok := exitErr.Sys().(syscall.WaitStatus); ok && ws.Signaled() {
			p.status = 128 + int(ws.Signal())
		} else {
			p.status = exitErr.ExitCode()
		}
		return
	}
	p.status = 1
	e.report(newExecutionError(ExecutionErrorTypeCommandFailed, "", p.cmd.Name, 1, fmt.Errorf("%s: %w", p.cmd.Name, err)))
}

// startError 把启动失败转换为执行器错误
func startError(name string, err error) *ExecutionError {
	switch {
	case errors.Is(err, exec.ErrNotFound), errors.Is(err, fs.ErrNotExist):
		return newExecutionError(ExecutionErrorTypeCommandNotFound, "", name, 127, err)
	case errors.Is(err, fs.ErrPermission):
		return newExecutionError(ExecutionErrorTypeCommandFailed, "", name, 126,
			fmt.Errorf("%s: permission denied", name))
	default:
		return newExecutionError(ExecutionErrorTypeCommandFailed, "", name, 126, fmt.Errorf("%s: %w", name, err))
	}
}

func exitCode(err error) int {
	var execErr *ExecutionError
	if errors.As(err, &execErr) {
		return execErr.ExitCode()
	}
	return 1
}

func closeFiles(files []*os.File) {
	for _, f := range files {
		f.Close()
	}
}

// closeCommands 关闭命令持有的重定向文件
func closeCommands(cmds []*parser.Command) {
	for _, c := range cmds {
		c.Close()
	}
}
