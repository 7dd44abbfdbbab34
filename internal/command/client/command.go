// Package client 提供 HTTP 客户端命令。
package client

import (
	"github.com/urfave/cli/v3"

	"github.com/lwmacct/251207-go-pkg-secmap/internal/command"
	"github.com/lwmacct/251207-go-pkg-secmap/internal/version"
)

// Command 客户端命令，flags 与 client 配置段一一对应。
var Command = &cli.Command{
	Name:   "client",
	Usage:  "HTTP 客户端工具，默认检查服务器健康状态",
	Action: action,
	Flags: []cli.Flag{
		&cli.StringFlag{
			Name:    "client-url",
			Aliases: []string{"s"},
			Value:   command.Defaults.Client.URL,
			Usage:   "服务器地址，对应 client.url",
		},
		&cli.DurationFlag{
			Name:  "client-timeout",
			Value: command.Defaults.Client.Timeout,
			Usage: "单次请求超时，对应 client.timeout",
		},
		&cli.IntFlag{
			Name:  "client-retries",
			Value: command.Defaults.Client.Retries,
			Usage: "网络错误与 5xx 的重试次数，对应 client.retries",
		},
	},
	Commands: []*cli.Command{
		version.Command,
		{
			Name:   "health",
			Usage:  "检查服务器健康状态",
			Action: healthAction,
		},
		{
			Name:      "get",
			Usage:     "发送 GET 请求",
			ArgsUsage: "[path]",
			Action:    getAction,
		},
		{
			Name:   "reload",
			Usage:  "请求服务器重载配置",
			Action: reloadAction,
		},
	},
}
