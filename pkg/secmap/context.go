package secmap

import (
	"fmt"
	"log/slog"
	"maps"
	"strings"
	"unicode/utf8"

	"github.com/lwmacct/251207-go-pkg-secmap/pkg/store"
)

// Env 是解释上下文：一组具名变量，可继承父上下文。
//
// 变量查找支持点分路径，如 lut.greeting 会先找变量 lut，再进入其映射值查找 greeting。
type Env struct {
	vars   map[string]any
	parent *Env
}

// NewEnv 创建空的解释上下文。
func NewEnv() *Env {
	return &Env{vars: make(map[string]any)}
}

// With 设置变量并返回自身，便于链式调用。
func (e *Env) With(name string, value any) *Env {
	e.vars[name] = value

	return e
}

// Copy 复制当前层变量（父上下文共享）。
func (e *Env) Copy() *Env {
	return &Env{vars: maps.Clone(e.vars), parent: e.parent}
}

// Inherit 返回以 parent 为回退的新上下文，当前层变量优先。
func (e *Env) Inherit(parent *Env) *Env {
	if e == nil {
		return parent
	}
	out := e.Copy()
	if out.parent == nil {
		out.parent = parent
	} else if parent != nil && parent != out.parent {
		out.parent = out.parent.Inherit(parent)
	}

	return out
}

// Lookup 查找变量，支持点分路径。
func (e *Env) Lookup(name string) (any, bool) {
	for env := e; env != nil; env = env.parent {
		if val, ok := env.vars[name]; ok {
			return val, true
		}
	}

	head, rest, found := strings.Cut(name, ".")
	if !found {
		return nil, false
	}
	for env := e; env != nil; env = env.parent {
		if val, ok := env.vars[head]; ok {
			return lookupIn(val, rest)
		}
	}

	return nil, false
}

func lookupIn(val any, path string) (any, bool) {
	for part := range strings.SplitSeq(path, ".") {
		switch typed := val.(type) {
		case map[string]any:
			next, ok := typed[part]
			if !ok {
				return nil, false
			}
			val = next
		case *store.Map:
			next, ok := typed.Lookup(part)
			if !ok {
				return nil, false
			}
			val = next
		default:
			return nil, false
		}
	}

	return val, true
}

// Sink 接收诊断事件：源文本、字节偏移、消息与可选原因。
//
// 引擎本身不写入 Sink，而是传给构造出的 section，供其解析内嵌的模板时使用。
type Sink interface {
	Log(source string, pos int, message string, cause error)
}

// SinkFunc 将普通函数适配为 [Sink]。
type SinkFunc func(source string, pos int, message string, cause error)

// Log 实现 [Sink]。
func (f SinkFunc) Log(source string, pos int, message string, cause error) {
	f(source, pos, message, cause)
}

// Discard 丢弃所有诊断。
var Discard Sink = SinkFunc(func(string, int, string, error) {})

// SlogSink 以 WARN 级别输出错误屏（源文本所在行、指示符与消息），name 通常为文件名。
func SlogSink(logger *slog.Logger, name string) Sink {
	if logger == nil {
		logger = slog.Default()
	}

	return SinkFunc(func(source string, pos int, message string, cause error) {
		for _, line := range ErrorScreen(source, pos, message) {
			logger.Warn(fmt.Sprintf("[%s] %s", name, line))
		}
		if cause != nil {
			logger.Warn(fmt.Sprintf("[%s] The following error occurred", name), "error", cause)
		}
	})
}

// ErrorScreen 生成三行错误提示：pos 所在的源文本行、指向该位置的 "^" 与消息。
func ErrorScreen(source string, pos int, message string) []string {
	pos = max(0, min(pos, len(source)))

	lineStart := strings.LastIndexByte(source[:pos], '\n') + 1
	lineEnd := len(source)
	if idx := strings.IndexByte(source[pos:], '\n'); idx >= 0 {
		lineEnd = pos + idx
	}

	column := utf8.RuneCountInString(source[lineStart:pos])

	return []string{
		source[lineStart:lineEnd],
		strings.Repeat(" ", column) + "^",
		message,
	}
}
