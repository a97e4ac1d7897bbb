// Package expand 在执行前对命令参数做展开
// 展开处理器按优先级静态注册，依次作用于同一个命令
package expand

import (
	"fmt"
	"slices"

	"github.com/rs/zerolog"

	"shelldone/internal/parser"
)

// Result 处理器的执行结果
type Result int

const (
	Skipped Result = iota // 无需处理
	Applied               // 已替换展开结果
	Failed                // 展开失败，命令不应执行
)

// String 返回结果名称
func (r Result) String() string {
	switch r {
	case Applied:
		return "applied"
	case Failed:
		return "failed"
	default:
		return "skipped"
	}
}

// Handler 参数展开处理器
// Expand 可以替换 cmd.Expanded；应读取 cmd.Words() 以便接续前一个处理器的结果
type Handler interface {
	Name() string
	Priority() int
	Expand(cmd *parser.Command) (Result, error)
}

// Registry 有序的处理器集合，优先级小的先执行，相同优先级按注册顺序
type Registry struct {
	handlers []Handler
	logger   zerolog.Logger
}

// NewRegistry 创建处理器集合
func NewRegistry(logger zerolog.Logger, handlers ...Handler) *Registry {
	r := &Registry{logger: logger.With().Str("component", "expand").Logger()}
	for _, h := range handlers {
		r.Register(h)
	}
	return r
}

// Default 返回内置处理器：波浪号和通配符
func Default(logger zerolog.Logger) *Registry {
	return NewRegistry(logger, Tilde{}, Wildcards{})
}

// Register 注册处理器
func (r *Registry) Register(h Handler) {
	r.handlers = append(r.handlers, h)
	slices.SortStableFunc(r.handlers, func(a, b Handler) int {
		return a.Priority() - b.Priority()
	})
}

// Handlers 返回按执行顺序排列的处理器
func (r *Registry) Handlers() []Handler {
	return slices.Clone(r.handlers)
}

// Expand 依次执行所有处理器，遇到第一个失败即停止
func (r *Registry) Expand(cmd *parser.Command) error {
	for _, h := range r.handlers {
		res, err := h.Expand(cmd)
		r.logger.Debug().
			Str("handler", h.Name()).
			Str("command", cmd.Name).
			Stringer("result", res).
			Msg("expand")
		if res == Failed {
			if err == nil {
				err = fmt.Errorf("%s: expansion failed", h.Name())
			}
			return err
		}
	}
	return nil
}
