// Package parser 将一行用户输入解析为带操作符、引号和重定向信息的命令序列
package parser

import (
	"os"
	"strings"
)

// 重定向文件的创建权限
const redirectPerm os.FileMode = 0o660

// OpenFunc 打开重定向目标文件
type OpenFunc func(name string, flag int, perm os.FileMode) (*os.File, error)

// Parser 命令行解析器
// 逐字符扫描输入，维护引号模式和单词位置两个状态
type Parser struct {
	input        string
	position     int  // 当前字符位置
	readPosition int  // 下一个读取位置
	ch           byte // 当前字符

	// OpenFile 打开重定向目标，默认为 os.OpenFile
	OpenFile OpenFunc

	quote     Quote           // 当前引号模式
	word      strings.Builder // 正在构造的单词
	wordQuote Quote           // 正在构造的单词用到的最强引号
	inWord    bool
	named     bool // 当前命令是否已有命令名
	cmd       *Command
	line      *Line
	opened    []*os.File // 本次解析打开的全部文件
}

// New 创建新的解析器
func New() *Parser {
	return &Parser{OpenFile: os.OpenFile}
}

// Parse 使用默认解析器解析一行输入
func Parse(input string) (*Line, error) {
	return New().Parse(input)
}

// Parse 解析一行输入
// 失败时返回 *SyntaxError 或 *IOError，并关闭本次解析打开的所有文件
func (p *Parser) Parse(input string) (line *Line, err error) {
	p.reset(input)
	defer func() {
		if err != nil {
			p.closeOpened()
			line = nil
		}
		p.cmd = nil
		p.line = nil
		p.opened = nil
	}()

	for p.readChar(); !p.eof(); p.readChar() {
		if err := p.consume(); err != nil {
			return nil, err
		}
	}
	p.closeCommand(OpEnd)
	return p.line, nil
}

// reset 重置解析状态
func (p *Parser) reset(input string) {
	if p.OpenFile == nil {
		p.OpenFile = os.OpenFile
	}
	p.input = input
	p.position = 0
	p.readPosition = 0
	p.ch = 0
	p.quote = QuoteNone
	p.word.Reset()
	p.wordQuote = QuoteNone
	p.inWord = false
	p.named = false
	p.cmd = &Command{Op: OpEnd}
	p.line = &Line{}
	p.opened = nil
}

// readChar 读取下一个字符
func (p *Parser) readChar() {
	if p.readPosition >= len(p.input) {
		p.ch = 0
	} else {
		p.ch = p.input[p.readPosition]
	}
	p.position = p.readPosition
	p.readPosition++
}

// peekChar 查看下一个字符但不移动位置
func (p *Parser) peekChar() byte {
	if p.readPosition >= len(p.input) {
		return 0
	}
	return p.input[p.readPosition]
}

// peekChar2 查看下下个字符
func (p *Parser) peekChar2() byte {
	if p.readPosition+1 >= len(p.input) {
		return 0
	}
	return p.input[p.readPosition+1]
}

func (p *Parser) eof() bool {
	return p.position >= len(p.input)
}

// consume 处理当前字符
func (p *Parser) consume() error {
	switch p.quote {
	case QuoteSingle:
		if p.ch == '\'' {
			p.quote = QuoteNone
		} else {
			p.appendByte(p.ch)
		}
		return nil
	case QuoteDouble:
		switch p.ch {
		case '"':
			p.quote = QuoteNone
		case '\\':
			if next := p.peekChar(); next == '"' || next == '\\' {
				p.readChar()
			}
			p.appendByte(p.ch)
		default:
			p.appendByte(p.ch)
		}
		return nil
	}

	switch p.ch {
	case ' ', '\t', '\n', '\r':
		p.closeWord()
	case '#':
		p.skipComment()
	case '\'':
		p.openQuote(QuoteSingle)
	case '"':
		p.openQuote(QuoteDouble)
	case '\\':
		p.escape()
	case '<':
		return p.redirectInput()
	case '>':
		return p.redirectOutput()
	case '|':
		if p.peekChar() == '|' {
			p.readChar()
			p.closeCommand(OpOr)
		} else {
			p.closeCommand(OpPipe)
		}
	case '&':
		if p.peekChar() == '&' {
			p.readChar()
			p.closeCommand(OpAnd)
		} else {
			p.closeCommand(OpBackground)
		}
	case ';':
		p.closeCommand(OpEnd)
	default:
		p.appendByte(p.ch)
	}
	return nil
}

// skipComment 跳过到物理行尾
func (p *Parser) skipComment() {
	p.closeWord()
	for p.peekChar() != '\n' && p.readPosition < len(p.input) {
		p.readChar()
	}
}

// openQuote 进入引号模式，"" 也会产生一个空单词
func (p *Parser) openQuote(q Quote) {
	p.quote = q
	p.inWord = true
	p.wordQuote = max(p.wordQuote, q)
}

// escape 处理引号外的反斜杠
func (p *Parser) escape() {
	switch {
	case p.readPosition >= len(p.input):
		p.appendByte('\\')
	case p.peekChar() == '\n':
		// 续行
		p.readChar()
	default:
		p.readChar()
		p.appendByte(p.ch)
		p.wordQuote = max(p.wordQuote, QuoteDouble)
	}
}

func (p *Parser) appendByte(ch byte) {
	p.word.WriteByte(ch)
	p.inWord = true
}

// closeWord 结束当前单词：第一个单词是命令名，之后的是参数
func (p *Parser) closeWord() {
	if !p.inWord {
		return
	}
	w := Word{Text: p.word.String(), Quote: p.wordQuote}
	p.word.Reset()
	p.wordQuote = QuoteNone
	p.inWord = false

	if !p.named {
		// 空的命令名被丢弃，下一个单词成为命令名
		if w.Text == "" {
			return
		}
		p.cmd.Name = w.Text
		p.cmd.NameQuote = w.Quote
		p.named = true
		return
	}
	p.cmd.Args = append(p.cmd.Args, w)
}

// closeCommand 结束当前命令并设置其操作符，没有命令名的命令被丢弃
func (p *Parser) closeCommand(op Operator) {
	p.closeWord()
	cmd := p.cmd
	named := p.named
	p.cmd = &Command{Op: OpEnd}
	p.named = false

	if !named {
		cmd.Close()
		return
	}
	cmd.Op = op
	p.line.commands = append(p.line.commands, cmd)
}

// takeDescriptor 若紧挨 '>' 之前的单词是一个未加引号的数字，把它作为目标描述符取走
func (p *Parser) takeDescriptor() int {
	if !p.inWord || p.wordQuote != QuoteNone || p.word.Len() != 1 {
		return 1
	}
	d := p.word.String()[0]
	if !isDigit(d) {
		return 1
	}
	p.word.Reset()
	p.inWord = false
	switch d {
	case '0':
		return 0
	case '2':
		return 2
	default:
		return 1
	}
}

// redirectInput 处理 '<'
func (p *Parser) redirectInput() error {
	p.closeWord()
	name, err := p.readFilename()
	if err != nil {
		return err
	}
	f, err := p.open(name, os.O_RDONLY)
	if err != nil {
		return err
	}
	p.cmd.Stdin.setFile(f)
	return nil
}

// redirectOutput 处理 '>'、'>>' 和 '>&N'
func (p *Parser) redirectOutput() error {
	stream := p.cmd.Stream(p.takeDescriptor())
	p.closeWord()

	flag := os.O_CREATE | os.O_WRONLY | os.O_TRUNC
	if p.peekChar() == '>' {
		p.readChar()
		flag = os.O_CREATE | os.O_WRONLY | os.O_APPEND
	}

	if p.peekChar() == '&' && isDigit(p.peekChar2()) {
		p.readChar()
		p.readChar()
		fd := int(p.ch - '0')
		if isDigit(p.peekChar()) {
			p.readChar()
			return p.syntaxError(p.position+1, "ambiguous descriptor duplication")
		}
		stream.dup(fd)
		return nil
	}

	name, err := p.readFilename()
	if err != nil {
		return err
	}
	f, err := p.open(name, flag)
	if err != nil {
		return err
	}
	stream.setFile(f)
	return nil
}

// readFilename 跳过空白后读取文件名
func (p *Parser) readFilename() (string, error) {
	for p.peekChar() == ' ' || p.peekChar() == '\t' {
		p.readChar()
	}
	column := p.readPosition + 1
	start := p.readPosition
	for isFilenameChar(p.peekChar()) {
		p.readChar()
	}
	if p.readPosition == start {
		return "", p.syntaxError(column, "missing redirection target")
	}
	return p.input[start:p.readPosition], nil
}

// open 打开重定向文件并记录，以便失败时统一关闭
func (p *Parser) open(name string, flag int) (*os.File, error) {
	f, err := p.OpenFile(name, flag, redirectPerm)
	if err != nil {
		return nil, newIOError(name, err)
	}
	p.opened = append(p.opened, f)
	return f, nil
}

// closeOpened 关闭本次解析打开的所有文件
func (p *Parser) closeOpened() {
	for _, f := range p.opened {
		f.Close()
	}
	if p.cmd != nil {
		p.cmd.Close()
	}
}

func (p *Parser) syntaxError(column int, reason string) *SyntaxError {
	return &SyntaxError{Line: p.input, Column: column, Reason: reason}
}

func isDigit(ch byte) bool {
	return '0' <= ch && ch <= '9'
}

// isFilenameChar 重定向文件名允许的字符
func isFilenameChar(ch byte) bool {
	return 'a' <= ch && ch <= 'z' || 'A' <= ch && ch <= 'Z' || isDigit(ch) ||
		ch == '.' || ch == '-' || ch == '_' || ch == '/'
}
