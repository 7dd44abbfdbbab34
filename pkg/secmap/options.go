package secmap

import "log/slog"

// Option 配置 [Mapper]。
type Option func(*Mapper)

// WithEnv 设置传给 section 的解释上下文。
func WithEnv(env *Env) Option {
	return func(m *Mapper) {
		if env != nil {
			m.env = env
		}
	}
}

// WithSink 设置传给 section 的诊断输出。
func WithSink(sink Sink) Option {
	return func(m *Mapper) {
		if sink != nil {
			m.sink = sink
		}
	}
}

// WithConverter 替换自定义转换钩子，传入 nil 表示不使用钩子。
//
// 需要保留默认行为时可组合：ChainConverters(custom, WeakConverter)。
func WithConverter(conv Converter) Option {
	return func(m *Mapper) {
		m.converter = conv
	}
}

// WithLogger 设置调试日志输出。
func WithLogger(logger *slog.Logger) Option {
	return func(m *Mapper) {
		if logger != nil {
			m.logger = logger
		}
	}
}
