// Package shell 把行编辑器、解析器和执行器组合成一个会话
package shell

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"sync/atomic"

	"github.com/chzyer/readline"
	"github.com/rs/zerolog"

	"shelldone/internal/builtin"
	"shelldone/internal/complete"
	"shelldone/internal/config"
	"shelldone/internal/editor"
	"shelldone/internal/executor"
	"shelldone/internal/expand"
	"shelldone/internal/history"
	"shelldone/internal/parser"
)

const appName = config.AppName

// 交互模式下直接结束会话的输入，不记入历史
const quitLine = "quit"

// Session Shell会话
type Session struct {
	cfg      *config.Config
	logger   zerolog.Logger
	logClose io.Closer

	history  *history.History
	index    *complete.Index
	executor *executor.Executor
	reporter *ErrorReporter
	prompt   *promptCache

	stdin  io.Reader
	stdout io.Writer
	stderr io.Writer

	interrupted atomic.Bool // 收到 SIGINT 后置位，每次读取新行前清除
	interactive bool
	running     bool
	status      int
}

// New 创建新的Shell会话
// 返回的错误只是警告（日志文件或历史文件不可用），会话本身总是可用的
func New(cfg *config.Config) (*Session, error) {
	if cfg == nil {
		cfg = config.Default()
	}
	logger, logClose, logErr := newLogger(cfg)

	s := &Session{
		cfg:      cfg,
		logger:   logger,
		logClose: logClose,
		history:  history.New(cfg.HistorySize),
		prompt:   newPromptCache(),
		running:  true,
	}

	histErr := s.history.Load(cfg.HistoryFile)
	if histErr != nil {
		logger.Warn().Err(histErr).Str("file", cfg.HistoryFile).Msg("load history")
		histErr = fmt.Errorf("history_file: %w", histErr)
	}

	// 命令索引包含 PATH 中的可执行文件和内置命令
	names := complete.BuildIndex(os.Getenv("PATH")).Names()
	s.index = complete.NewIndex(append(names, builtin.Names()...))

	s.reporter = NewErrorReporter(os.Stderr, "")
	s.executor = executor.New(expand.Default(logger), s.history)
	s.executor.SetLogger(logger)
	s.executor.SetReporter(s.reporter.ReportError)
	s.SetIO(os.Stdin, os.Stdout, os.Stderr)

	logger.Info().
		Str("config", cfg.Path).
		Str("editor", cfg.Editor).
		Int("commands", s.index.Len()).
		Int("history", s.history.Len()).
		Msg("session started")
	return s, errors.Join(logErr, histErr)
}

// SetIO 设置会话使用的标准流
func (s *Session) SetIO(stdin io.Reader, stdout, stderr io.Writer) {
	s.stdin = stdin
	s.stdout = stdout
	s.stderr = stderr
	s.reporter.out = stderr
	s.executor.SetIO(stdin, stdout, stderr)
}

// Status 返回会话的退出状态
func (s *Session) Status() int {
	return s.status
}

// History 返回会话的历史记录
func (s *Session) History() *history.History {
	return s.history
}

// Close 保存历史记录并释放日志文件
func (s *Session) Close() error {
	var errs []error
	if s.interactive {
		if err := s.history.Save(s.cfg.HistoryFile); err != nil {
			errs = append(errs, fmt.Errorf("history_file: %w", err))
		}
	}
	s.logger.Info().Int("status", s.status).Msg("session closed")
	if s.logClose != nil {
		errs = append(errs, s.logClose.Close())
	}
	return errors.Join(errs...)
}

// Run 运行交互式Shell，返回退出状态
func (s *Session) Run() int {
	s.interactive = true
	if s.cfg.Editor == config.EditorReadline {
		err := s.runReadline()
		if err == nil {
			return s.status
		}
		// 如果readline初始化失败，回退到原生编辑器
		s.logger.Warn().Err(err).Msg("readline unavailable")
	}
	s.runNative()
	return s.status
}

// runNative 使用原生行编辑器运行
func (s *Session) runNative() {
	ed := editor.New(s.stdin, s.stdout, s.history, s.index)
	ed.ContinuationPrompt = s.cfg.ContinuationPrompt
	ed.SetLogger(s.logger)
	defer ed.Close()

	stop := s.watchInterrupts(ed.Interrupt)
	defer stop()

	for s.running {
		s.interrupted.Store(false)
		line, err := ed.ReadLine(s.prompt.get())
		switch {
		case errors.Is(err, editor.ErrInterrupted):
			// Ctrl+C，丢弃当前行
			fmt.Fprint(s.stdout, "^C\n")
			continue
		case errors.Is(err, io.EOF):
			fmt.Fprintln(s.stdout, "exit")
			return
		case err != nil:
			s.reporter.ReportError(err)
			s.status = 1
			return
		}
		s.executeInteractive(line, nil)
	}
}

// runReadline 使用readline运行，与原生编辑器共用历史和命令索引
func (s *Session) runReadline() error {
	stdin, ok := s.stdin.(io.ReadCloser)
	if !ok {
		stdin = io.NopCloser(s.stdin)
	}
	rl, err := readline.NewEx(&readline.Config{
		Prompt:                 s.prompt.get(),
		AutoComplete:           NewCompleter(s.index),
		HistoryLimit:           s.cfg.HistorySize,
		DisableAutoSaveHistory: true,
		InterruptPrompt:        "^C",
		EOFPrompt:              "exit",
		Stdin:                  stdin,
		Stdout:                 s.stdout,
		Stderr:                 s.stderr,
	})
	if err != nil {
		return err
	}
	defer rl.Close()

	for _, entry := range s.history.Entries() {
		rl.SaveHistory(entry)
	}

	// 终端处于原始模式时 Ctrl+C 由 readline 处理，这里只处理命令执行期间的信号
	stop := s.watchInterrupts(nil)
	defer stop()

	for s.running {
		s.interrupted.Store(false)
		rl.SetPrompt(s.prompt.get())
		line, err := rl.Readline()
		if errors.Is(err, readline.ErrInterrupt) {
			continue
		}
		if err != nil {
			// EOF或其他错误，退出
			return nil
		}

		// 引号未闭合或以反斜杠结尾时继续读取
		for editor.Incomplete(line) {
			rl.SetPrompt(s.cfg.ContinuationPrompt)
			next, err := rl.Readline()
			if err != nil {
				line = ""
				break
			}
			line += "\n" + next
		}

		s.executeInteractive(line, rl.SaveHistory)
	}
	return nil
}

// watchInterrupts 转发 SIGINT：置位中断标志并调用 interrupt
func (s *Session) watchInterrupts(interrupt func() bool) (stop func()) {
	ch := make(chan os.Signal, 1)
	signal.Notify(ch, os.Interrupt)
	done := make(chan struct{})
	go func() {
		for {
			select {
			case <-ch:
				s.interrupted.Store(true)
				if interrupt != nil && interrupt() {
					s.logger.Debug().Msg("read interrupted")
				}
			case <-done:
				return
			}
		}
	}()
	return func() {
		signal.Stop(ch)
		close(done)
	}
}

// executeInteractive 执行交互输入的一行：先记入历史，再解析执行
// remember 只接收被历史记录接受的行，用于同步编辑器自己的历史
func (s *Session) executeInteractive(line string, remember func(string) error) {
	if line == quitLine {
		s.running = false
		return
	}
	if s.history.Add(line) && remember != nil {
		if err := remember(line); err != nil {
			s.logger.Warn().Err(err).Msg("editor history")
		}
	}
	s.executeLine(line)

	// 命令执行期间按下 Ctrl+C，换行后再显示提示符
	if s.interrupted.Load() {
		fmt.Fprintln(s.stdout)
	}
}

// executeLine 解析并执行一行命令
func (s *Session) executeLine(text string) {
	line, err := parser.Parse(text)
	if err != nil {
		s.reporter.ReportError(err)
		var syntaxErr *parser.SyntaxError
		if errors.As(err, &syntaxErr) {
			s.status = 2
		} else {
			s.status = 1
		}
		return
	}
	s.logger.Debug().Str("line", text).Int("commands", line.Len()).Msg("parsed")

	err = s.executor.Execute(line)
	var exitErr *builtin.ExitError
	if errors.As(err, &exitErr) {
		s.status = exitErr.Code
		s.running = false
		return
	}
	s.status = s.executor.LastStatus()
}

// ExecuteScript 执行脚本文件
func (s *Session) ExecuteScript(scriptPath string) error {
	file, err := os.Open(scriptPath)
	if err != nil {
		s.status = 127
		return fmt.Errorf("cannot open script: %w", err)
	}
	defer file.Close()

	s.reporter.scriptPath = scriptPath
	defer func() { s.reporter.scriptPath = "" }()
	return s.ExecuteReader(file)
}

// ExecuteReader 从Reader逐行执行命令
// 引号未闭合或以反斜杠结尾的行与下一行合并；收到 SIGINT 后停止执行剩余的行
func (s *Session) ExecuteReader(reader io.Reader) error {
	stop := s.watchInterrupts(nil)
	defer stop()

	scanner := bufio.NewScanner(reader)
	var pending strings.Builder
	lineNum, startLine := 0, 0

	for s.running && scanner.Scan() {
		lineNum++
		text := scanner.Text()

		// 跳过shebang行
		if lineNum == 1 && strings.HasPrefix(text, "#!") {
			continue
		}

		if pending.Len() == 0 {
			startLine = lineNum
		} else {
			pending.WriteByte('\n')
		}
		pending.WriteString(text)
		if editor.Incomplete(pending.String()) {
			continue
		}

		s.reporter.SetLineNum(startLine)
		s.executeLine(pending.String())
		pending.Reset()

		if s.interrupted.Load() {
			s.status = 130
			return nil
		}
	}

	// 输入结束时引号仍未闭合，按已读到的内容执行
	if s.running && pending.Len() > 0 {
		s.reporter.SetLineNum(startLine)
		s.executeLine(pending.String())
	}
	return scanner.Err()
}
