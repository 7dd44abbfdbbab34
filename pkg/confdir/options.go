package confdir

import (
	"io/fs"
	"log/slog"
	"reflect"

	"github.com/urfave/cli/v3"

	"github.com/lwmacct/251207-go-pkg-secmap/pkg/secmap"
	"github.com/lwmacct/251207-go-pkg-secmap/pkg/templexp"
)

// options 目录加载选项。
type options struct {
	defaults  fs.FS            // 内置默认文件，按文件名查找
	envPrefix string           // 非空时启用环境变量覆盖
	expand    templexp.Lookup  // 非 nil 时在解析前展开 ${...}
	overrides map[string]any   // key=value 覆盖，优先级高于环境变量
	flags     []flagBinding    // CLI flags，优先级最高
	converter secmap.Converter // 排在内置转换器之前
	variables map[string]any   // 解释上下文中的额外变量
	logger    *slog.Logger
}

// Option 配置 [Handler]。
type Option func(*options)

// WithDefaults 设置内置默认文件（通常来自 go:embed）。
//
// 文件不存在时从这里复制；已存在时用它补齐缺失的 key 并回写。
func WithDefaults(fsys fs.FS) Option {
	return func(o *options) {
		o.defaults = fsys
	}
}

// WithEnvPrefix 启用环境变量前缀覆盖。
//
// 环境变量命名规则：
//   - 前缀 + 大写的配置 key
//   - 点号 (.) 和连字符 (-) 转为下划线 (_)
//
// 示例 (前缀为 "MYAPP_")：
//   - MYAPP_SERVER_ADDR → server.addr
//   - MYAPP_LOG_LEVEL → log.level
//
// 注意：只覆盖文件中已存在的叶子 key。
func WithEnvPrefix(prefix string) Option {
	return func(o *options) {
		o.envPrefix = prefix
	}
}

// WithTemplateExpansion 在解析前对文件内容执行 Shell 参数展开（如 ${VAR:-default}）。
//
// lookup 为 nil 时读取环境变量。默认不展开，${...} 留给 section.Text 在渲染时处理。
// 回写补齐的 key 时始终使用展开前的内容。
func WithTemplateExpansion(lookup templexp.Lookup) Option {
	return func(o *options) {
		if lookup == nil {
			lookup = templexp.Environ()
		}
		o.expand = lookup
	}
}

// WithOverrides 设置 key=value 覆盖（如 CLI 的 --set），优先级高于文件与环境变量。
func WithOverrides(overrides map[string]string) Option {
	return func(o *options) {
		if o.overrides == nil {
			o.overrides = make(map[string]any, len(overrides))
		}
		for key, value := range overrides {
			o.overrides[key] = value
		}
	}
}

// WithCommand 把用户显式设置的 CLI flags 写入 root 下的配置，优先级最高。
//
// flag 名称由 section 字段的有效路径生成，仅把 "." 替换为 "-"：
//   - server.addr → --server-addr
//   - log.level → --log-level
//
// typ 为 root 对应的 section 类型，可多次调用以绑定多棵树。
func WithCommand(cmd *cli.Command, typ reflect.Type, root string) Option {
	return func(o *options) {
		if cmd != nil {
			o.flags = append(o.flags, flagBinding{cmd: cmd, typ: typ, root: root})
		}
	}
}

// WithVariable 向解释上下文添加变量，模板中以 ${name} 引用。
//
// 名称 lut 由查找表占用，会被覆盖。
func WithVariable(name string, value any) Option {
	return func(o *options) {
		if o.variables == nil {
			o.variables = make(map[string]any)
		}
		o.variables[name] = value
	}
}

// WithConverter 追加自定义转换钩子，先于内置的 Text 与宽松转换执行。
func WithConverter(conv secmap.Converter) Option {
	return func(o *options) {
		o.converter = conv
	}
}

// WithLogger 设置日志输出，默认 slog.Default()。
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}
