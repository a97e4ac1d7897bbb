// Package complete 提供可执行命令索引和命令名补全
package complete

import (
	"os"
	"path/filepath"
	"slices"
	"strings"
)

// Index PATH 中可执行文件名的有序索引，构建后只读
type Index struct {
	names []string
}

// BuildIndex 扫描 PATH 中每个目录的普通文件构建索引
// 无法读取的目录被跳过；重名只保留一个，与 PATH 中的先后顺序无关
func BuildIndex(pathEnv string) *Index {
	var names []string
	for _, dir := range filepath.SplitList(pathEnv) {
		if dir == "" {
			continue
		}
		entries, err := os.ReadDir(dir)
		if err != nil {
			continue
		}
		for _, entry := range entries {
			if !entry.Type().IsRegular() {
				continue
			}
			names = append(names, entry.Name())
		}
	}
	return NewIndex(names)
}

// NewIndex 用给定名字构建索引，名字会被排序并去重
func NewIndex(names []string) *Index {
	sorted := slices.Clone(names)
	slices.Sort(sorted)
	return &Index{names: slices.Compact(sorted)}
}

// Len 返回索引中的名字数量
func (idx *Index) Len() int {
	return len(idx.names)
}

// Names 返回索引中的全部名字
func (idx *Index) Names() []string {
	return slices.Clone(idx.names)
}

// Complete 返回以 prefix 开头的所有名字
// 线性扫描有序列表，遇到第一个匹配之后的第一个不匹配即停止
func (idx *Index) Complete(prefix string) []string {
	var matches []string
	for _, name := range idx.names {
		if strings.HasPrefix(name, prefix) {
			matches = append(matches, name)
		} else if len(matches) > 0 {
			break
		}
	}
	return matches
}

// CommonPrefix 返回所有候选的最长公共前缀
func CommonPrefix(candidates []string) string {
	if len(candidates) == 0 {
		return ""
	}
	prefix := candidates[0]
	for _, c := range candidates[1:] {
		n := 0
		for n < len(prefix) && n < len(c) && prefix[n] == c[n] {
			n++
		}
		prefix = prefix[:n]
		if prefix == "" {
			break
		}
	}
	return prefix
}
