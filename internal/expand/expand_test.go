package expand

import (
	"errors"
	"os"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"shelldone/internal/parser"
)

func parseOne(t *testing.T, input string) *parser.Command {
	t.Helper()
	line, err := parser.Parse(input)
	require.NoError(t, err)
	require.Equal(t, 1, line.Len())
	return line.At(0)
}

// recorder 记录调用顺序的测试处理器
type recorder struct {
	name     string
	priority int
	result   Result
	err      error
	calls    *[]string
}

func (r recorder) Name() string  { return r.name }
func (r recorder) Priority() int { return r.priority }
func (r recorder) Expand(*parser.Command) (Result, error) {
	*r.calls = append(*r.calls, r.name)
	return r.result, r.err
}

// TestRegistryOrder 测试按优先级执行
func TestRegistryOrder(t *testing.T) {
	var calls []string
	r := NewRegistry(zerolog.Nop(),
		recorder{name: "late", priority: 5, calls: &calls},
		recorder{name: "first", priority: -3, calls: &calls},
		recorder{name: "tie-a", priority: 0, calls: &calls},
		recorder{name: "tie-b", priority: 0, calls: &calls},
	)

	require.NoError(t, r.Expand(&parser.Command{Name: "x"}))
	assert.Equal(t, []string{"first", "tie-a", "tie-b", "late"}, calls)
	assert.Len(t, r.Handlers(), 4)
}

// TestRegistryStopsOnFailure 测试第一个失败后停止
func TestRegistryStopsOnFailure(t *testing.T) {
	var calls []string
	boom := errors.New("boom")
	r := NewRegistry(zerolog.Nop(),
		recorder{name: "a", priority: 0, result: Applied, calls: &calls},
		recorder{name: "b", priority: 1, result: Failed, err: boom, calls: &calls},
		recorder{name: "c", priority: 2, calls: &calls},
	)

	assert.ErrorIs(t, r.Expand(&parser.Command{Name: "x"}), boom)
	assert.Equal(t, []string{"a", "b"}, calls)

	// 没有给出错误的失败也要返回错误
	calls = nil
	r = NewRegistry(zerolog.Nop(), recorder{name: "silent", result: Failed, calls: &calls})
	assert.EqualError(t, r.Expand(&parser.Command{Name: "x"}), "silent: expansion failed")
}

// TestDefaultRegistry 测试内置处理器顺序
func TestDefaultRegistry(t *testing.T) {
	handlers := Default(zerolog.Nop()).Handlers()
	require.Len(t, handlers, 2)
	assert.Equal(t, "tilde", handlers[0].Name())
	assert.Equal(t, "wildcards", handlers[1].Name())
}

// TestTilde 测试波浪号展开
func TestTilde(t *testing.T) {
	t.Setenv("HOME", "/home/ada")

	tests := []struct {
		name   string
		input  string
		argv   []string
		result Result
	}{
		{"参数", "ls ~ ~/src", []string{"ls", "/home/ada", "/home/ada/src"}, Applied},
		{"命令名", "~/bin/tool -v", []string{"/home/ada/bin/tool", "-v"}, Applied},
		{"引号内不展开", `ls "~" '~/x'`, []string{"ls", "~", "~/x"}, Skipped},
		{"其他用户不展开", "ls ~bob", []string{"ls", "~bob"}, Skipped},
		{"中间的波浪号不展开", "echo a~b", []string{"echo", "a~b"}, Skipped},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cmd := parseOne(t, tt.input)
			res, err := Tilde{}.Expand(cmd)
			require.NoError(t, err)
			assert.Equal(t, tt.result, res)
			assert.Equal(t, tt.argv, cmd.Argv())
		})
	}
}

// TestWildcards 测试通配符展开
func TestWildcards(t *testing.T) {
	chdir(t, t.TempDir())
	for _, name := range []string{"b.go", "a.go", "c.txt"} {
		require.NoError(t, os.WriteFile(name, nil, 0o644))
	}
	require.NoError(t, os.MkdirAll("pkg/sub", 0o755))
	require.NoError(t, os.WriteFile("pkg/sub/d.go", nil, 0o644))

	tests := []struct {
		name   string
		input  string
		argv   []string
		result Result
	}{
		{"星号", "ls *.go", []string{"ls", "a.go", "b.go"}, Applied},
		{"问号", "ls ?.txt", []string{"ls", "c.txt"}, Applied},
		{"字符类", "ls [ab].go -l", []string{"ls", "a.go", "b.go", "-l"}, Applied},
		{"双星号", "ls **/*.go", []string{"ls", "a.go", "b.go", "pkg/sub/d.go"}, Applied},
		{"引号保护", `ls "*.go" '?.txt'`, []string{"ls", "*.go", "?.txt"}, Skipped},
		{"转义保护", `ls \*.go`, []string{"ls", "*.go"}, Skipped},
		{"无模式", "ls -l", []string{"ls", "-l"}, Skipped},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cmd := parseOne(t, tt.input)
			res, err := Wildcards{}.Expand(cmd)
			require.NoError(t, err)
			assert.Equal(t, tt.result, res)
			assert.Equal(t, tt.argv, cmd.Argv())
		})
	}
}

// TestWildcardsNoMatch 测试没有匹配
func TestWildcardsNoMatch(t *testing.T) {
	chdir(t, t.TempDir())

	cmd := parseOne(t, "ls *.nothing")
	res, err := Wildcards{}.Expand(cmd)
	assert.Equal(t, Failed, res)
	var nm *NoMatchError
	require.ErrorAs(t, err, &nm)
	assert.Equal(t, "*.nothing", nm.Pattern)
	assert.Equal(t, "*.nothing: no match found!", err.Error())
	assert.Nil(t, cmd.Expanded)
}

// TestChain 测试波浪号结果交给通配符继续处理
func TestChain(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	require.NoError(t, os.WriteFile(home+"/notes.md", nil, 0o644))

	cmd := parseOne(t, "cat ~/*.md")
	require.NoError(t, Default(zerolog.Nop()).Expand(cmd))
	assert.Equal(t, []string{"cat", home + "/notes.md"}, cmd.Argv())
}
