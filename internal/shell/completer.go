package shell

import (
	"shelldone/internal/complete"
	"shelldone/internal/editor"
)

// Completer 实现readline的自动补全接口，与原生编辑器共用命令索引
type Completer struct {
	index *complete.Index
}

// NewCompleter 创建新的补全器
func NewCompleter(idx *complete.Index) *Completer {
	return &Completer{index: idx}
}

// Do 执行自动补全
// 返回每个候选项在已输入前缀之后的部分，以及前缀的长度
func (c *Completer) Do(line []rune, pos int) (newLine [][]rune, length int) {
	word, ok := editor.CommandWord(string(line[:pos]))
	if !ok {
		return nil, 0
	}

	prefix := []rune(word)
	for _, name := range c.index.Complete(word) {
		newLine = append(newLine, []rune(name)[len(prefix):])
	}
	// 唯一匹配时补上空格，与原生编辑器一致
	if len(newLine) == 1 {
		newLine[0] = append(newLine[0], ' ')
	}
	return newLine, len(prefix)
}
