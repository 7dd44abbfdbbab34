// Package config 提供应用配置。
//
// 配置加载优先级 (从低到高)：
//  1. 默认值 - 各 section 的 Construct 中设置
//  2. 配置文件 - settings.yaml，缺失时由内置默认文件创建
//  3. 环境变量 - 前缀 SECMAP_
//  4. --set key=value 覆盖
//  5. CLI flags
package config

import (
	"embed"
	"fmt"
	"io/fs"
	"time"

	"github.com/lwmacct/251207-go-pkg-secmap/pkg/secmap"
	"github.com/lwmacct/251207-go-pkg-secmap/pkg/section"
	"github.com/lwmacct/251207-go-pkg-secmap/pkg/store"
)

// FileName 是主配置文件名。
const FileName = "settings.yaml"

//go:embed defaults
var defaultFiles embed.FS

// Defaults 返回内置默认文件，供 confdir.WithDefaults 使用。
func Defaults() fs.FS {
	sub, err := fs.Sub(defaultFiles, "defaults")
	if err != nil {
		panic(err)
	}

	return sub
}

// Config 应用配置。
type Config struct {
	secmap.Base
	Server    ServerConfig                      `secmap:"server"`
	Client    ClientConfig                      `secmap:"client"`
	Log       LogConfig                         `secmap:"log"`
	Banner    section.Text                      `secmap:"banner"`
	Endpoints secmap.Ordered[string, *Endpoint] `secmap:"endpoints"`
}

// ServerConfig 服务端配置。
type ServerConfig struct {
	secmap.Base
	Addr     string        `secmap:"addr"`
	Timeout  time.Duration `secmap:"timeout"`
	Idletime time.Duration `secmap:"idletime"`
}

// Construct 设置默认值。
func (c *ServerConfig) Construct(env *secmap.Env, sink secmap.Sink) {
	c.Base.Construct(env, sink)
	c.Addr = ":40117"
	c.Timeout = 15 * time.Second
	c.Idletime = 60 * time.Second
}

// Finalize 校验超时。
func (c *ServerConfig) Finalize([]secmap.Field) error {
	if c.Timeout <= 0 || c.Idletime <= 0 {
		return fmt.Errorf("timeouts must be positive, got timeout=%s idletime=%s", c.Timeout, c.Idletime)
	}

	return nil
}

// ClientConfig 客户端配置。
type ClientConfig struct {
	secmap.Base
	URL     string        `secmap:"url"`
	Timeout time.Duration `secmap:"timeout"`
	Retries int           `secmap:"retries"`
}

// Construct 设置默认值。
func (c *ClientConfig) Construct(env *secmap.Env, sink secmap.Sink) {
	c.Base.Construct(env, sink)
	c.URL = "http://localhost:40117"
	c.Timeout = 30 * time.Second
	c.Retries = 3
}

// Finalize 校验重试次数。
func (c *ClientConfig) Finalize([]secmap.Field) error {
	if c.Retries < 0 {
		return fmt.Errorf("retries must not be negative, got %d", c.Retries)
	}

	return nil
}

// LogLevel 日志级别。
type LogLevel string

const (
	LevelDebug LogLevel = "DEBUG"
	LevelInfo  LogLevel = "INFO"
	LevelWarn  LogLevel = "WARN"
	LevelError LogLevel = "ERROR"
)

// EnumValues 实现 secmap.Enum。
func (LogLevel) EnumValues() []any {
	return []any{LevelDebug, LevelInfo, LevelWarn, LevelError}
}

// LogFormat 日志格式。
type LogFormat string

const (
	FormatText LogFormat = "text"
	FormatJSON LogFormat = "json"
)

// EnumValues 实现 secmap.Enum。
func (LogFormat) EnumValues() []any {
	return []any{FormatText, FormatJSON}
}

// LogConfig 日志配置。
type LogConfig struct {
	secmap.Base
	Level  LogLevel  `secmap:"level"`
	Format LogFormat `secmap:"format"`
}

// Construct 设置默认值。
func (c *LogConfig) Construct(env *secmap.Env, sink secmap.Sink) {
	c.Base.Construct(env, sink)
	c.Level = LevelInfo
	c.Format = FormatText
}

// Endpoint 是 serve 命令在 /endpoints/{name} 下提供的静态响应。
type Endpoint struct {
	secmap.Base
	Status      int          `secmap:"status"`
	ContentType string       `secmap:"contentType"`
	Body        section.Text `secmap:"body"`
}

// Construct 设置默认值。
func (e *Endpoint) Construct(env *secmap.Env, sink secmap.Sink) {
	e.Base.Construct(env, sink)
	e.Status = 200
	e.ContentType = "text/plain; charset=utf-8"
}

// Finalize 校验状态码。
func (e *Endpoint) Finalize([]secmap.Field) error {
	if e.Status < 100 || e.Status > 599 {
		return fmt.Errorf("status %d is not a valid HTTP status code", e.Status)
	}

	return nil
}

// DefaultConfig 返回由内置默认文件绑定得到的配置，是 flag 默认值的单一来源。
func DefaultConfig() *Config {
	content, err := fs.ReadFile(Defaults(), FileName)
	if err != nil {
		panic(err)
	}
	doc, err := store.Parse(content)
	if err != nil {
		panic(err)
	}

	env := secmap.NewEnv()

	return secmap.MustBind[Config](secmap.New(doc,
		secmap.WithEnv(env),
		secmap.WithConverter(secmap.ChainConverters(section.Converter(env, nil), secmap.WeakConverter)),
	), "")
}
