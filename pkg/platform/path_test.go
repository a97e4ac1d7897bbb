package platform

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExpandHome(t *testing.T) {
	t.Setenv("HOME", "/home/ada")

	tests := []struct {
		input string
		want  string
	}{
		{"~", "/home/ada"},
		{"~/src", "/home/ada/src"},
		{"~ada/src", "~ada/src"},
		{"/tmp/~", "/tmp/~"},
		{"", ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ExpandHome(tt.input), tt.input)
	}
}

func TestNormalizePath(t *testing.T) {
	t.Setenv("HOME", "/home/ada")
	assert.Equal(t, "/home/ada/src", NormalizePath("~/src/"))
	assert.Equal(t, "a/b", NormalizePath(`a\b`))
	assert.Equal(t, "/usr/bin", NormalizePath("/usr/local/../bin"))
}

func TestShortenHome(t *testing.T) {
	tests := []struct {
		path string
		home string
		want string
	}{
		{"/home/ada", "/home/ada", "~"},
		{"/home/ada/src", "/home/ada", "~/src"},
		{"/home/ada/src", "/home/ada/", "~/src"},
		{"/home/adam", "/home/ada", "/home/adam"},
		{"/tmp", "/home/ada", "/tmp"},
		{"/tmp", "", "/tmp"},
		{"/tmp", "/", "/tmp"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ShortenHome(tt.path, tt.home), "%s in %s", tt.path, tt.home)
	}
}
