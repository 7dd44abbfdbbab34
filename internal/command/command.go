// Package command 提供命令行共享的 flags 与配置加载。
package command

import (
	"context"
	"fmt"
	"log/slog"
	"reflect"
	"strings"

	"github.com/urfave/cli/v3"

	"github.com/lwmacct/251207-go-pkg-secmap/internal/config"
	"github.com/lwmacct/251207-go-pkg-secmap/internal/logging"
	"github.com/lwmacct/251207-go-pkg-secmap/internal/version"
	"github.com/lwmacct/251207-go-pkg-secmap/pkg/confdir"
	"github.com/lwmacct/251207-go-pkg-secmap/pkg/secmap"
)

// EnvPrefix 是环境变量覆盖的默认前缀。
const EnvPrefix = "SECMAP_"

// Defaults 为默认配置的单一来源。
var Defaults = config.DefaultConfig()

// Flags 返回根命令上的配置 flags，子命令均可使用，每次调用创建新的实例。
//
// log-level 与 log-format 按配置路径命名，由 [confdir.WithCommand] 写入 log.level 与 log.format。
func Flags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "dir",
			Aliases: []string{"d"},
			Usage:   "配置目录，默认按 ./.secmap、~/.config/secmap、/etc/secmap、./config 查找",
		},
		&cli.StringSliceFlag{
			Name:  "set",
			Usage: "覆盖配置项 key=value，可重复",
		},
		&cli.StringFlag{
			Name:  "env-prefix",
			Value: EnvPrefix,
			Usage: "环境变量覆盖前缀，为空时禁用",
		},
		&cli.BoolFlag{
			Name:  "expand",
			Usage: "解析前展开配置文件中的 ${VAR} 环境变量引用",
		},
		&cli.StringFlag{
			Name:  "log-level",
			Value: string(Defaults.Log.Level),
			Usage: "日志级别 (DEBUG, INFO, WARN, ERROR)",
		},
		&cli.StringFlag{
			Name:  "log-format",
			Value: string(Defaults.Log.Format),
			Usage: "日志格式 (text, json)",
		},
	}
}

// ParseOverrides 解析 key=value 形式的覆盖项。
func ParseOverrides(pairs []string) (map[string]string, error) {
	out := make(map[string]string, len(pairs))
	for _, pair := range pairs {
		key, value, ok := strings.Cut(pair, "=")
		key = strings.TrimSpace(key)
		if !ok || key == "" {
			return nil, fmt.Errorf("invalid override %q, expected key=value", pair)
		}
		out[key] = value
	}

	return out, nil
}

// OpenHandler 按命令行 flags 创建配置目录。
func OpenHandler(cmd *cli.Command) (*confdir.Handler, error) {
	overrides, err := ParseOverrides(cmd.StringSlice("set"))
	if err != nil {
		return nil, err
	}

	dir := cmd.String("dir")
	if dir == "" {
		dir = confdir.ResolveDir(version.AppRawName)
	}

	opts := []confdir.Option{
		confdir.WithDefaults(config.Defaults()),
		confdir.WithEnvPrefix(cmd.String("env-prefix")),
		confdir.WithOverrides(overrides),
		confdir.WithCommand(cmd, reflect.TypeFor[config.Config](), ""),
		confdir.WithVariable("version", version.GetVersion()),
		confdir.WithLogger(slog.Default()),
	}
	if cmd.Bool("expand") {
		opts = append(opts, confdir.WithTemplateExpansion(nil))
	}

	return confdir.New(dir, opts...)
}

// Load 加载主配置文件并绑定 [config.Config]，同时按配置设置默认日志。
func Load(cmd *cli.Command) (*confdir.Handler, *config.Config, error) {
	h, err := OpenHandler(cmd)
	if err != nil {
		return nil, nil, err
	}

	m, err := h.Load(config.FileName)
	if err != nil {
		return nil, nil, err
	}

	cfg, err := secmap.Bind[config.Config](m, "")
	if err != nil {
		return nil, nil, fmt.Errorf("bind %s: %w", config.FileName, err)
	}
	SetupLogger(cmd, cfg.Log)

	return h, cfg, nil
}

// SetupLogger 按日志配置替换默认 logger，输出到命令的错误输出。
func SetupLogger(cmd *cli.Command, cfg config.LogConfig) {
	logger := logging.NewLogger(string(cfg.Level), string(cfg.Format), cmd.Root().ErrWriter)
	slog.SetDefault(logger)
}

// Before 在加载配置前按 flags 设置默认日志，使加载过程的日志也遵循 --log-level。
func Before(ctx context.Context, cmd *cli.Command) (context.Context, error) {
	logger := logging.NewLogger(cmd.String("log-level"), cmd.String("log-format"), cmd.Root().ErrWriter)
	slog.SetDefault(logger)

	return ctx, nil
}
