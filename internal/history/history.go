// Package history 提供固定容量的命令历史环形缓冲区
package history

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// DefaultCapacity 默认历史容量
const DefaultCapacity = 1000

// History 命令历史管理器
// 容量满时覆盖最旧的记录
type History struct {
	entries []string
	head    int // 最旧记录所在的槽位
	size    int
}

// New 创建指定容量的历史管理器，容量小于 1 时使用默认容量
func New(capacity int) *History {
	if capacity < 1 {
		capacity = DefaultCapacity
	}
	return &History{entries: make([]string, capacity)}
}

// Add 添加命令到历史
// 空行和与最新记录相同的行不会被添加，返回是否添加成功
func (h *History) Add(line string) bool {
	if strings.TrimSpace(line) == "" {
		return false
	}
	if h.size > 0 && h.At(h.size-1) == line {
		return false
	}

	if h.size < len(h.entries) {
		h.entries[(h.head+h.size)%len(h.entries)] = line
		h.size++
		return true
	}
	// 已满，覆盖最旧的槽位
	h.entries[h.head] = line
	h.head = (h.head + 1) % len(h.entries)
	return true
}

// Len 获取历史记录数量
func (h *History) Len() int {
	return h.size
}

// Cap 获取历史容量
func (h *History) Cap() int {
	return len(h.entries)
}

// At 获取第 i 条记录，0 是最旧的；越界时返回空字符串
func (h *History) At(i int) string {
	if i < 0 || i >= h.size {
		return ""
	}
	return h.entries[(h.head+i)%len(h.entries)]
}

// Entries 按从旧到新的顺序返回所有记录
func (h *History) Entries() []string {
	out := make([]string, h.size)
	for i := range out {
		out[i] = h.At(i)
	}
	return out
}

// Clear 清空历史
func (h *History) Clear() {
	clear(h.entries)
	h.head = 0
	h.size = 0
}

// Print 打印历史记录
func (h *History) Print(w io.Writer) {
	for i := 0; i < h.size; i++ {
		fmt.Fprintf(w, "%5d  %s\n", i+1, strings.ReplaceAll(h.At(i), "\n", "\n       "))
	}
}

// Load 从文件加载历史记录，文件不存在不算错误
func (h *History) Load(filename string) error {
	f, err := os.Open(filename)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		h.Add(decode(scanner.Text()))
	}
	return scanner.Err()
}

// Save 保存历史记录到文件，每行一条，多行记录中的换行会被转义
func (h *History) Save(filename string) error {
	dir := filepath.Dir(filename)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}

	var b strings.Builder
	for i := 0; i < h.size; i++ {
		b.WriteString(encode(h.At(i)))
		b.WriteByte('\n')
	}
	return os.WriteFile(filename, []byte(b.String()), 0o600)
}

// encode 转义反斜杠和换行
func encode(line string) string {
	return strings.NewReplacer(`\`, `\\`, "\n", `\n`).Replace(line)
}

func decode(line string) string {
	var b strings.Builder
	for i := 0; i < len(line); i++ {
		if line[i] == '\\' && i+1 < len(line) {
			switch line[i+1] {
			case 'n':
				b.WriteByte('\n')
				i++
				continue
			case '\\':
				b.WriteByte('\\')
				i++
				continue
			}
		}
		b.WriteByte(line[i])
	}
	return b.String()
}
