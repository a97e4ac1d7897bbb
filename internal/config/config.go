// Package config 加载 shelldone 的配置文件
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/adrg/xdg"
	"github.com/goccy/go-yaml"
	"github.com/rs/zerolog"

	"shelldone/pkg/platform"
)

const (
	AppName        = "shelldone"
	ConfigRelPath  = AppName + "/config.yaml"
	HistoryRelPath = AppName + "/history"

	// EnvConfig 指定配置文件路径的环境变量
	EnvConfig = "SHELLDONE_CONFIG"

	EditorNative   = "native"
	EditorReadline = "readline"

	DefaultHistorySize        = 1000
	DefaultContinuationPrompt = "> "
	DefaultLogLevel           = "info"
)

// Config shelldone 配置
type Config struct {
	HistorySize        int    `yaml:"history_size"`
	HistoryFile        string `yaml:"history_file"`
	Editor             string `yaml:"editor"`
	ContinuationPrompt string `yaml:"continuation_prompt"`
	LogFile            string `yaml:"log_file"`
	LogLevel           string `yaml:"log_level"`

	// Path 加载的配置文件，使用默认配置时为空
	Path string `yaml:"-"`
}

// Default 返回默认配置
func Default() *Config {
	return &Config{
		HistorySize:        DefaultHistorySize,
		HistoryFile:        filepath.Join(xdg.StateHome, HistoryRelPath),
		Editor:             EditorNative,
		ContinuationPrompt: DefaultContinuationPrompt,
		LogLevel:           DefaultLogLevel,
	}
}

// Load 加载配置
// path 为空时依次尝试 SHELLDONE_CONFIG 和 XDG 配置目录，都找不到时返回默认配置
func Load(path string) (*Config, error) {
	if path == "" {
		path = os.Getenv(EnvConfig)
	}
	if path == "" {
		found, err := xdg.SearchConfigFile(ConfigRelPath)
		if err != nil {
			return Default(), nil
		}
		path = found
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return Default(), fmt.Errorf("读取配置文件失败: %w", err)
	}
	cfg, err := Parse(data)
	cfg.Path = path
	if err != nil {
		return cfg, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// Parse 解析 YAML 配置，未给出的键使用默认值
// 非法的值会被替换为默认值，并通过返回的错误说明
func Parse(data []byte) (*Config, error) {
	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return Default(), err
	}
	return cfg, cfg.Validate()
}

// Validate 检查配置并把非法的值恢复为默认值
func (c *Config) Validate() error {
	var errs []error

	if c.HistorySize < 1 {
		errs = append(errs, fmt.Errorf("history_size must be positive, got %d", c.HistorySize))
		c.HistorySize = DefaultHistorySize
	}

	switch strings.ToLower(c.Editor) {
	case EditorNative, EditorReadline:
		c.Editor = strings.ToLower(c.Editor)
	case "":
		c.Editor = EditorNative
	default:
		errs = append(errs, fmt.Errorf("unknown editor %q", c.Editor))
		c.Editor = EditorNative
	}

	if c.HistoryFile == "" {
		c.HistoryFile = filepath.Join(xdg.StateHome, HistoryRelPath)
	}
	c.HistoryFile = platform.NormalizePath(c.HistoryFile)
	c.LogFile = platform.ExpandHome(c.LogFile)

	if _, err := zerolog.ParseLevel(strings.ToLower(c.LogLevel)); err != nil || c.LogLevel == "" {
		if c.LogLevel != "" {
			errs = append(errs, fmt.Errorf("unknown log_level %q", c.LogLevel))
		}
		c.LogLevel = DefaultLogLevel
	}

	return errors.Join(errs...)
}

// Level 返回日志级别
func (c *Config) Level() zerolog.Level {
	level, err := zerolog.ParseLevel(strings.ToLower(c.LogLevel))
	if err != nil {
		return zerolog.InfoLevel
	}
	return level
}
