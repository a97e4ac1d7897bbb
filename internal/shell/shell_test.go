package shell

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"shelldone/internal/config"
)

func newTestSession(t *testing.T, input string) (*Session, *bytes.Buffer, *bytes.Buffer) {
	t.Helper()
	cfg := config.Default()
	cfg.HistoryFile = filepath.Join(t.TempDir(), "history")

	s, err := New(cfg)
	require.NoError(t, err)

	var out, errOut bytes.Buffer
	s.SetIO(strings.NewReader(input), &out, &errOut)
	return s, &out, &errOut
}

func TestRunNative(t *testing.T) {
	s, out, errOut := newTestSession(t, "echo hi\nexit 3\n")

	assert.Equal(t, 3, s.Run())
	assert.Contains(t, out.String(), "echo hi\nhi\n")
	assert.Empty(t, errOut.String())
	assert.Equal(t, []string{"echo hi", "exit 3"}, s.History().Entries())

	// 关闭会话时保存历史
	require.NoError(t, s.Close())
	data, err := os.ReadFile(s.cfg.HistoryFile)
	require.NoError(t, err)
	assert.Equal(t, "echo hi\nexit 3\n", string(data))
}

func TestRunQuit(t *testing.T) {
	s, out, _ := newTestSession(t, "echo a\nquit\necho b\n")

	assert.Equal(t, 0, s.Run())
	assert.Contains(t, out.String(), "a\n")
	assert.NotContains(t, out.String(), "echo b")
	assert.Equal(t, []string{"echo a"}, s.History().Entries(), "quit 不记入历史")
}

func TestRunEOF(t *testing.T) {
	s, out, _ := newTestSession(t, "echo x")

	assert.Equal(t, 0, s.Run())
	assert.Contains(t, out.String(), "x\n")
	assert.True(t, strings.HasSuffix(out.String(), "exit\n"), "输入结束时应打印 exit，得到 %q", out.String())
}

func TestRunMultiline(t *testing.T) {
	s, out, _ := newTestSession(t, "echo 'a\nb'\n")

	s.Run()
	assert.Contains(t, out.String(), "a\nb\n")
	assert.Equal(t, []string{"echo 'a\nb'"}, s.History().Entries())
}

func TestRunSyntaxError(t *testing.T) {
	s, _, errOut := newTestSession(t, "cmd >\n")

	assert.Equal(t, 2, s.Run())
	assert.Equal(t,
		"shelldone: syntax error near column 6: missing redirection target\ncmd >\n     ^\n",
		errOut.String())
	assert.Equal(t, []string{"cmd >"}, s.History().Entries(), "解析前先记入历史")
}

func TestRunIOError(t *testing.T) {
	chdir(t, t.TempDir())
	s, _, errOut := newTestSession(t, "cat < missing.txt\n")

	assert.Equal(t, 1, s.Run())
	assert.Equal(t, "shelldone: missing.txt: no such file or directory\n", errOut.String())
}

func TestRunLoadsHistory(t *testing.T) {
	cfg := config.Default()
	cfg.HistoryFile = filepath.Join(t.TempDir(), "history")
	require.NoError(t, os.WriteFile(cfg.HistoryFile, []byte("ls\npwd\n"), 0o600))

	s, err := New(cfg)
	require.NoError(t, err)
	assert.Equal(t, []string{"ls", "pwd"}, s.History().Entries())
}

func TestExecuteScript(t *testing.T) {
	dir := t.TempDir()
	chdir(t, dir)
	script := filepath.Join(dir, "test.sh")
	require.NoError(t, os.WriteFile(script, []byte(`#!/usr/bin/env shelldone
echo one
echo 'two
three'
nonexistent_command_xyz
echo *.nomatch
echo done
`), 0o644))

	s, out, errOut := newTestSession(t, "")
	require.NoError(t, s.ExecuteScript(script))

	assert.Equal(t, "one\ntwo\nthree\ndone\n", out.String())
	assert.Equal(t,
		"shelldone: "+script+": line 5: nonexistent_command_xyz: command not found\n"+
			"shelldone: "+script+": line 6: *.nomatch: no match found!\n",
		errOut.String())
	assert.Equal(t, 0, s.Status())
	assert.Zero(t, s.History().Len(), "脚本不记入历史")
}

func TestExecuteScriptMissing(t *testing.T) {
	s, _, _ := newTestSession(t, "")
	err := s.ExecuteScript(filepath.Join(t.TempDir(), "missing.sh"))
	assert.Error(t, err)
	assert.Equal(t, 127, s.Status())
}

func TestExecuteReader(t *testing.T) {
	tests := []struct {
		name   string
		input  string
		output string
		status int
	}{
		{"单行", "echo hello", "hello\n", 0},
		{"多行", "echo a\necho b\n", "a\nb\n", 0},
		{"注释", "# comment\necho a # trailing\n", "a\n", 0},
		{"反斜杠续行", "echo a \\\nb\n", "a b\n", 0},
		{"exit 停止执行", "echo a; exit 4\necho b\n", "a\n", 4},
		{"状态取最后一行", "true\nfalse\n", "", 1},
		{"引号未闭合", "echo 'x", "x\n", 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, out, _ := newTestSession(t, "")
			require.NoError(t, s.ExecuteReader(strings.NewReader(tt.input)))
			assert.Equal(t, tt.output, out.String())
			assert.Equal(t, tt.status, s.Status())
		})
	}
}

func TestLogFile(t *testing.T) {
	dir := t.TempDir()
	cfg := config.Default()
	cfg.HistoryFile = filepath.Join(dir, "history")
	cfg.LogFile = filepath.Join(dir, "logs", "shelldone.log")
	cfg.LogLevel = "debug"

	s, err := New(cfg)
	require.NoError(t, err)
	var out bytes.Buffer
	s.SetIO(strings.NewReader(""), &out, &out)
	require.NoError(t, s.ExecuteReader(strings.NewReader("echo hi\n")))
	require.NoError(t, s.Close())

	data, err := os.ReadFile(cfg.LogFile)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"message":"session started"`)
	assert.Contains(t, string(data), `"component":"executor"`)
	assert.Contains(t, string(data), `"message":"session closed"`)
}

func TestExecuteInteractiveRemember(t *testing.T) {
	s, _, _ := newTestSession(t, "")

	var remembered []string
	remember := func(line string) error {
		remembered = append(remembered, line)
		return nil
	}
	for _, line := range []string{"true", "true", "  ", "false", "true", "quit"} {
		s.executeInteractive(line, remember)
	}

	// 连续重复、空白行和 quit 都不进入编辑器历史
	assert.Equal(t, []string{"true", "false", "true"}, remembered)
	assert.Equal(t, remembered, s.History().Entries())
}
