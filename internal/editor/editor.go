// Package editor 实现原始终端模式下的行编辑
// 支持历史回溯、命令名补全以及引号和反斜杠续行
package editor

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/muesli/cancelreader"
	"github.com/muesli/termenv"
	"github.com/rs/zerolog"
	"golang.org/x/term"

	"shelldone/internal/complete"
	"shelldone/internal/history"
)

// ErrInterrupted 读取被 Interrupt 取消，未完成的行被丢弃
var ErrInterrupted = errors.New("interrupted")

// DefaultContinuationPrompt 续行提示符
const DefaultContinuationPrompt = "> "

// 每次读取的字节数，足以一次容纳常见的转义序列
const readChunk = 16

// 屏幕控制序列
var (
	clearLine  = "\r" + termenv.CSI + termenv.EraseEntireLineSeq
	eraseBack  = "\b \b"
	lineBreak  = "\n"
	tabJoiner  = "\t"
	columnsGap = 2
)

// Editor 行编辑器
type Editor struct {
	in      io.Reader
	out     io.Writer
	history *history.History
	index   *complete.Index
	logger  zerolog.Logger

	// ContinuationPrompt 引号未闭合或反斜杠续行时显示的提示符
	ContinuationPrompt string

	dec     decoder
	pending []byte // 已读取但尚未处理的字节
	chunk   [readChunk]byte

	mu      sync.Mutex
	reader  cancelreader.CancelReader
	reading bool
}

// New 创建新的行编辑器
func New(in io.Reader, out io.Writer, h *history.History, idx *complete.Index) *Editor {
	if h == nil {
		h = history.New(history.DefaultCapacity)
	}
	if idx == nil {
		idx = complete.NewIndex(nil)
	}
	return &Editor{
		in:                 in,
		out:                out,
		history:            h,
		index:              idx,
		logger:             zerolog.Nop(),
		ContinuationPrompt: DefaultContinuationPrompt,
	}
}

// SetLogger 设置日志记录器
func (e *Editor) SetLogger(logger zerolog.Logger) {
	e.logger = logger.With().Str("component", "editor").Logger()
}

// Interrupt 取消正在进行的读取，ReadLine 随后返回 ErrInterrupted
// 不在读取中时什么也不做，返回 false
func (e *Editor) Interrupt() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.reading || e.reader == nil {
		return false
	}
	e.reader.Cancel()
	return true
}

// Close 释放输入读取器
func (e *Editor) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.reader == nil {
		return nil
	}
	err := e.reader.Close()
	e.reader = nil
	return err
}

// ReadLine 显示提示符并读取一个逻辑行
// 输入结束返回 io.EOF，被中断返回 ErrInterrupted
func (e *Editor) ReadLine(prompt string) (string, error) {
	restore := e.enterRaw()
	defer restore()

	r, err := e.beginRead()
	if err != nil {
		return "", err
	}
	defer e.endRead()

	st := newLineState(e, prompt)
	e.write(prompt)

	for {
		if line, done, err := st.drain(); done {
			return line, err
		}

		n, err := r.Read(e.chunk[:])
		e.pending = append(e.pending, e.chunk[:n]...)
		if err == nil {
			continue
		}
		if line, done, derr := st.drain(); done {
			return line, derr
		}

		switch {
		case errors.Is(err, cancelreader.ErrCanceled):
			e.logger.Debug().Msg("read interrupted")
			e.discardReader()
			e.pending = e.pending[:0]
			e.dec.reset()
			return "", ErrInterrupted
		case errors.Is(err, io.EOF):
			if len(st.buf) > 0 {
				e.write(lineBreak)
				return string(st.buf), nil
			}
			return "", io.EOF
		default:
			return "", fmt.Errorf("read input: %w", err)
		}
	}
}

// enterRaw 输入是终端时进入原始模式，返回恢复函数
func (e *Editor) enterRaw() func() {
	f, ok := e.in.(*os.File)
	if !ok || !term.IsTerminal(int(f.Fd())) {
		return func() {}
	}
	restore, err := makeRaw(int(f.Fd()))
	if err != nil {
		e.logger.Warn().Err(err).Msg("cannot enter raw mode")
		return func() {}
	}
	return func() {
		if err := restore(); err != nil {
			e.logger.Error().Err(err).Msg("cannot restore terminal")
		}
	}
}

// beginRead 准备可取消的读取器
// 普通文件不支持取消，直接读取
func (e *Editor) beginRead() (io.Reader, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.reader == nil {
		cr, err := cancelreader.NewReader(e.in)
		if err != nil {
			e.logger.Debug().Err(err).Msg("input is not cancelable")
			e.reading = true
			return e.in, nil
		}
		e.reader = cr
	}
	e.reading = true
	return e.reader, nil
}

func (e *Editor) endRead() {
	e.mu.Lock()
	e.reading = false
	e.mu.Unlock()
}

// discardReader 被取消的读取器不能再使用，下次读取时重新创建
func (e *Editor) discardReader() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.reader != nil {
		e.reader.Close()
		e.reader = nil
	}
}

func (e *Editor) write(s string) {
	io.WriteString(e.out, s)
}

// width 返回输出终端的列数，不是终端时返回 0
func (e *Editor) width() int {
	f, ok := e.out.(*os.File)
	if !ok || !term.IsTerminal(int(f.Fd())) {
		return 0
	}
	w, _, err := term.GetSize(int(f.Fd()))
	if err != nil {
		return 0
	}
	return w
}

// lineState 一次 ReadLine 调用的编辑状态
type lineState struct {
	e      *Editor
	prompt string // 当前物理行的提示符
	buf    []byte // 整个逻辑行
	start  int    // 当前物理行在 buf 中的起点
	escape bool   // 上一个字节是反斜杠
	tabAt  int    // 上次补全时的 buf 长度，-1 表示没有
	cursor *history.Cursor
}

func newLineState(e *Editor, prompt string) *lineState {
	return &lineState{
		e:      e,
		prompt: prompt,
		tabAt:  -1,
		cursor: history.NewCursor(e.history),
	}
}

// drain 处理所有待处理字节，直到得到一个完整的行
func (st *lineState) drain() (string, bool, error) {
	e := st.e
	for len(e.pending) > 0 {
		b := e.pending[0]
		e.pending = e.pending[1:]
		for _, k := range e.dec.feed(b) {
			if line, done, err := st.handle(k); done {
				return line, true, err
			}
		}
	}
	return "", false, nil
}

// handle 处理一个按键
func (st *lineState) handle(k key) (string, bool, error) {
	if k.kind != keyByte || k.b != keyTab {
		st.tabAt = -1
	}

	switch k.kind {
	case keyUp:
		st.escape = false
		st.recall(true)
		return "", false, nil
	case keyDown:
		st.escape = false
		st.recall(false)
		return "", false, nil
	case keyLeft, keyRight:
		return "", false, nil
	}

	b := k.b
	if st.escape {
		st.escape = false
		switch b {
		case keyLF, keyCR:
			// 反斜杠续行：去掉反斜杠，不保存换行
			st.buf = st.buf[:len(st.buf)-1]
			st.continueLine()
			return "", false, nil
		case keyDelete, keyBackspace:
			st.erase()
			return "", false, nil
		default:
			st.insert(b)
			return "", false, nil
		}
	}

	switch b {
	case keyLF, keyCR:
		if scan(st.buf).quote != 0 {
			st.buf = append(st.buf, '\n')
			st.continueLine()
			return "", false, nil
		}
		st.e.write(lineBreak)
		return string(st.buf), true, nil
	case keyDelete, keyBackspace:
		st.erase()
	case keyTab:
		st.complete()
	case keyCtrlD:
		if len(st.buf) == 0 {
			return "", true, io.EOF
		}
	case keyCtrlW, keyCtrlL, keyCtrlR:
		// 保留
	case '\\':
		st.insert(b)
		st.escape = true
	default:
		if b >= 0x20 {
			st.insert(b)
		}
	}
	return "", false, nil
}

func (st *lineState) insert(b byte) {
	st.buf = append(st.buf, b)
	st.e.write(string(b))
}

// erase 删除当前物理行的最后一个字符，不会越过已保存的换行
func (st *lineState) erase() {
	if len(st.buf) <= st.start {
		return
	}
	i := len(st.buf) - 1
	for i > st.start && st.buf[i]&0xc0 == 0x80 {
		i--
	}
	st.buf = st.buf[:i]
	st.e.write(eraseBack)
}

// continueLine 换到新的物理行并显示续行提示符
func (st *lineState) continueLine() {
	st.prompt = st.e.ContinuationPrompt
	st.start = len(st.buf)
	st.e.write(lineBreak + st.prompt)
}

// redraw 清除当前物理行并重新显示提示符和内容
func (st *lineState) redraw() {
	st.e.write(clearLine + st.prompt + string(st.buf[st.start:]))
}

// recall 用历史记录替换当前行，跨越多个物理行时不做处理
func (st *lineState) recall(older bool) {
	if st.start > 0 {
		return
	}
	var entry string
	var ok bool
	if older {
		if entry, ok = st.cursor.Older(); !ok {
			return
		}
	} else {
		entry, _ = st.cursor.Newer()
	}
	st.buf = append(st.buf[:0], entry...)
	st.e.logger.Debug().Bool("older", older).Str("entry", entry).Msg("history recall")

	if i := strings.LastIndexByte(entry, '\n'); i >= 0 {
		// 多行记录：逐行显示，之后的编辑只作用于最后一行
		st.e.write(clearLine + st.prompt + strings.ReplaceAll(entry, "\n", lineBreak+st.e.ContinuationPrompt))
		st.prompt = st.e.ContinuationPrompt
		st.start = i + 1
		return
	}
	st.redraw()
}

// complete 补全命令位置上正在输入的单词
func (st *lineState) complete() {
	if st.tabAt == len(st.buf) {
		return
	}
	st.tabAt = len(st.buf)

	word, ok := CommandWord(string(st.buf))
	if !ok {
		return
	}

	matches := st.e.index.Complete(word)
	st.e.logger.Debug().Str("prefix", word).Int("matches", len(matches)).Msg("complete")
	switch len(matches) {
	case 0:
		return
	case 1:
		for _, b := range []byte(matches[0][len(word):] + " ") {
			st.insert(b)
		}
	default:
		st.e.write(lineBreak + layout(matches, st.e.width()) + lineBreak)
		if lcp := complete.CommonPrefix(matches); len(lcp) > len(word) {
			st.buf = append(st.buf, lcp[len(word):]...)
		}
		st.e.write(st.prompt + string(st.buf[st.start:]))
	}
	st.tabAt = len(st.buf)
}

// layout 排列候选项；width 为 0 时用制表符分隔
func layout(names []string, width int) string {
	if width <= 0 {
		return strings.Join(names, tabJoiner)
	}
	colWidth := 0
	for _, n := range names {
		colWidth = max(colWidth, len(n))
	}
	colWidth += columnsGap
	cols := max(1, width/colWidth)
	rows := (len(names) + cols - 1) / cols

	var b strings.Builder
	for r := 0; r < rows; r++ {
		if r > 0 {
			b.WriteString(lineBreak)
		}
		for c := 0; c < cols; c++ {
			i := c*rows + r
			if i >= len(names) {
				break
			}
			b.WriteString(names[i])
			if c < cols-1 && i+rows < len(names) {
				b.WriteString(strings.Repeat(" ", colWidth-len(names[i])))
			}
		}
	}
	return b.String()
}

// scanState 扫描缓冲区得到的词法状态
type scanState struct {
	quote   byte // 未闭合的引号字符，0 表示没有
	escape  bool // 以未处理的反斜杠结尾
	comment bool // 结尾处于注释中
	start   int  // 最后一个未加引号的操作符之后的位置
}

// scan 按解析器的规则扫描缓冲区
func scan(buf []byte) scanState {
	var s scanState
	for i, b := range buf {
		switch {
		case s.comment:
			if b == '\n' {
				s.comment = false
			}
		case s.escape:
			s.escape = false
		case s.quote == '\'':
			if b == '\'' {
				s.quote = 0
			}
		case s.quote == '"':
			if b == '"' {
				s.quote = 0
			} else if b == '\\' {
				s.escape = true
			}
		case b == '\\':
			s.escape = true
		case b == '\'' || b == '"':
			s.quote = b
		case b == '#':
			s.comment = true
		case b == '|' || b == '&' || b == ';':
			s.start = i + 1
		}
	}
	return s
}

// CommandWord 返回行尾处于命令位置、可以补全的单词
// 引号、转义或注释未结束，或单词已经带有空白和重定向符号时返回 false
func CommandWord(line string) (string, bool) {
	s := scan([]byte(line))
	if s.quote != 0 || s.escape || s.comment {
		return "", false
	}
	word := strings.TrimLeft(line[s.start:], " \t\n")
	if word == "" || strings.ContainsAny(word, " \t\n<>") {
		return "", false
	}
	return word, true
}

// Incomplete 判断一行是否停在未闭合的引号或行尾反斜杠上，需要续行
func Incomplete(line string) bool {
	s := scan([]byte(line))
	return s.quote != 0 || s.escape
}
