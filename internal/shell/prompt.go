package shell

import (
	"fmt"
	"os"

	"shelldone/pkg/platform"
)

// promptCache 按工作目录缓存提示符，目录不变时直接复用
type promptCache struct {
	host   string
	pwd    string
	prompt string
}

func newPromptCache() *promptCache {
	hostname, _ := os.Hostname()
	if hostname == "" {
		hostname = "host"
	}
	return &promptCache{host: hostname}
}

// get 获取提示符，格式为 user@host:dir$
func (c *promptCache) get() string {
	wd := os.Getenv("PWD")
	if wd == "" {
		wd, _ = os.Getwd()
	}
	if c.prompt != "" && wd == c.pwd {
		return c.prompt
	}

	// 尝试获取用户名
	username := os.Getenv("USER")
	if username == "" {
		username = os.Getenv("USERNAME")
	}
	if username == "" {
		username = "user"
	}

	// 简化路径显示
	dir := platform.ShortenHome(wd, platform.HomeDir())

	c.pwd = wd
	c.prompt = fmt.Sprintf("%s@%s:%s$ ", username, c.host, dir)
	return c.prompt
}
