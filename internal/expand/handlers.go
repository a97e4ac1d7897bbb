package expand

import (
	"fmt"
	"slices"
	"strings"

	"github.com/bmatcuk/doublestar/v4"

	"shelldone/internal/parser"
	"shelldone/pkg/platform"
)

// globChars 未加引号时触发通配的字符
const globChars = "*?["

// NoMatchError 通配模式没有匹配到任何文件
type NoMatchError struct {
	Pattern string
}

// Error 实现 error 接口
func (e *NoMatchError) Error() string {
	return fmt.Sprintf("%s: no match found!", e.Pattern)
}

// Tilde 展开未加引号的 ~ 和 ~/ 前缀
type Tilde struct{}

func (Tilde) Name() string  { return "tilde" }
func (Tilde) Priority() int { return -2 }

// Expand 实现 Handler
func (Tilde) Expand(cmd *parser.Command) (Result, error) {
	changed := false
	if cmd.NameQuote == parser.QuoteNone {
		if name := platform.ExpandHome(cmd.Name); name != cmd.Name {
			cmd.Name = name
			changed = true
		}
	}

	words := cmd.Words()
	out := make([]parser.Word, len(words))
	for i, w := range words {
		out[i] = w
		if w.Quote != parser.QuoteNone {
			continue
		}
		if text := platform.ExpandHome(w.Text); text != w.Text {
			out[i].Text = text
			changed = true
		}
	}
	if !changed {
		return Skipped, nil
	}
	cmd.Expanded = out
	return Applied, nil
}

// Wildcards 用 doublestar 展开未加引号的通配模式
type Wildcards struct{}

func (Wildcards) Name() string  { return "wildcards" }
func (Wildcards) Priority() int { return -1 }

// Expand 实现 Handler
// 任何一个模式没有匹配都会使整个命令失败
func (Wildcards) Expand(cmd *parser.Command) (Result, error) {
	words := cmd.Words()
	if !slices.ContainsFunc(words, isPattern) {
		return Skipped, nil
	}

	out := make([]parser.Word, 0, len(words))
	for _, w := range words {
		if !isPattern(w) {
			out = append(out, w)
			continue
		}
		matches, err := doublestar.FilepathGlob(w.Text)
		if err != nil {
			return Failed, fmt.Errorf("%s: %w", w.Text, err)
		}
		if len(matches) == 0 {
			return Failed, &NoMatchError{Pattern: w.Text}
		}
		slices.Sort(matches)
		for _, m := range matches {
			out = append(out, parser.Word{Text: m, Quote: parser.QuoteNone})
		}
	}
	cmd.Expanded = out
	return Applied, nil
}

func isPattern(w parser.Word) bool {
	return w.Quote == parser.QuoteNone && strings.ContainsAny(w.Text, globChars)
}
