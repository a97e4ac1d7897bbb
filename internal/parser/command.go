package parser

import (
	"os"
	"strings"
)

// Operator 命令与其后继命令之间的连接关系
type Operator int

const (
	OpPipe       Operator = iota + 1 // |
	OpBackground                     // &
	OpOr                             // ||
	OpAnd                            // &&
	OpEnd                            // ; 或行尾
)

// String 返回操作符的字面形式
func (o Operator) String() string {
	switch o {
	case OpPipe:
		return "|"
	case OpBackground:
		return "&"
	case OpOr:
		return "||"
	case OpAnd:
		return "&&"
	case OpEnd:
		return ";"
	default:
		return "?"
	}
}

// Quote 保护一个单词的引号模式
// 数值越大保护越强，混合引号的单词取最强的一种
type Quote int

const (
	QuoteNone Quote = iota
	QuoteDouble
	QuoteSingle
)

// String 返回引号模式名称
func (q Quote) String() string {
	switch q {
	case QuoteDouble:
		return "double"
	case QuoteSingle:
		return "single"
	default:
		return "none"
	}
}

// Word 一个已解析的单词
type Word struct {
	Text  string
	Quote Quote
}

// StreamKind 标准流的重定向方式
type StreamKind int

const (
	StreamInherit StreamKind = iota // 继承 shell 的流
	StreamFile                      // 重定向到已打开的文件
	StreamDup                       // 复制另一个描述符
)

// Stream 标准输入、输出或错误的重定向目标
type Stream struct {
	Kind StreamKind
	File *os.File // Kind == StreamFile 时有效
	FD   int      // Kind == StreamDup 时有效
}

// setFile 把流指向文件，之前打开的文件会被关闭
func (s *Stream) setFile(f *os.File) {
	s.release()
	s.Kind = StreamFile
	s.File = f
}

// dup 把流指向另一个描述符
func (s *Stream) dup(fd int) {
	s.release()
	s.Kind = StreamDup
	s.FD = fd
}

func (s *Stream) release() {
	if s.File != nil {
		s.File.Close()
	}
	*s = Stream{}
}

// Command 一次可执行调用
type Command struct {
	Name      string
	NameQuote Quote
	Args      []Word
	Op        Operator

	Stdin  Stream
	Stdout Stream
	Stderr Stream

	// Builtin 由执行器在识别出内置命令时设置
	Builtin bool
	// Expanded 由展开处理器写入，nil 表示尚未展开
	Expanded []Word
}

// Stream 按描述符编号返回对应的流，0/1/2 以外返回 nil
func (c *Command) Stream(fd int) *Stream {
	switch fd {
	case 0:
		return &c.Stdin
	case 1:
		return &c.Stdout
	case 2:
		return &c.Stderr
	}
	return nil
}

// Words 返回展开后的参数；未展开时返回原始参数
func (c *Command) Words() []Word {
	if c.Expanded != nil {
		return c.Expanded
	}
	return c.Args
}

// Argv 返回命令名加参数文本
func (c *Command) Argv() []string {
	words := c.Words()
	argv := make([]string, 0, len(words)+1)
	argv = append(argv, c.Name)
	for _, w := range words {
		argv = append(argv, w.Text)
	}
	return argv
}

// String 返回便于日志和错误信息展示的形式
func (c *Command) String() string {
	return strings.Join(c.Argv(), " ")
}

// Close 关闭命令持有的所有重定向文件
func (c *Command) Close() {
	c.Stdin.release()
	c.Stdout.release()
	c.Stderr.release()
}

// Line 一次逻辑输入解析出的命令序列，由 Line 独占
type Line struct {
	commands []*Command
}

// Len 返回命令数量
func (l *Line) Len() int {
	return len(l.commands)
}

// At 返回第 i 个命令
func (l *Line) At(i int) *Command {
	return l.commands[i]
}

// Prev 返回第 i 个命令的前驱，没有时返回 nil
func (l *Line) Prev(i int) *Command {
	if i <= 0 || i > len(l.commands) {
		return nil
	}
	return l.commands[i-1]
}

// Next 返回第 i 个命令的后继，没有时返回 nil
func (l *Line) Next(i int) *Command {
	if i < 0 || i+1 >= len(l.commands) {
		return nil
	}
	return l.commands[i+1]
}

// Commands 返回命令序列，调用方不应修改切片本身
func (l *Line) Commands() []*Command {
	return l.commands
}

// Close 关闭所有命令持有的重定向文件
func (l *Line) Close() {
	for _, c := range l.commands {
		c.Close()
	}
}
