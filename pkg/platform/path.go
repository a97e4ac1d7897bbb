// Package platform 处理与运行环境相关的路径细节
package platform

import (
	"os"
	"os/user"
	"path/filepath"
	"strings"
)

// HomeDir 返回当前用户的主目录，依次尝试 HOME、USERPROFILE 和系统用户数据库
func HomeDir() string {
	if home := os.Getenv("HOME"); home != "" {
		return home
	}
	if home := os.Getenv("USERPROFILE"); home != "" {
		return home
	}
	if usr, err := user.Current(); err == nil {
		return usr.HomeDir
	}
	return ""
}

// ExpandHome 展开开头的 ~ 或 ~/，其他形式（如 ~user）原样返回
func ExpandHome(path string) string {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path
	}
	home := HomeDir()
	if home == "" {
		return path
	}
	return home + path[1:]
}

// NormalizePath 规范化路径，处理Windows和Unix路径差异
func NormalizePath(path string) string {
	// 将反斜杠转换为正斜杠（Windows兼容）
	path = strings.ReplaceAll(path, "\\", "/")
	return filepath.Clean(ExpandHome(path))
}

// ShortenHome 把位于 home 之下的路径改写为以 ~ 开头的形式
func ShortenHome(path, home string) string {
	path = strings.ReplaceAll(path, "\\", "/")
	home = strings.ReplaceAll(home, "\\", "/")
	if home == "" || home == "/" {
		return path
	}
	home = strings.TrimSuffix(home, "/")
	if path == home {
		return "~"
	}
	if strings.HasPrefix(path, home+"/") {
		return "~" + path[len(home):]
	}
	return path
}
