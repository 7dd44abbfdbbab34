// Package server 提供 HTTP 服务器命令。
package server

import (
	"github.com/urfave/cli/v3"

	"github.com/lwmacct/251207-go-pkg-secmap/internal/command"
	"github.com/lwmacct/251207-go-pkg-secmap/internal/version"
)

// Command 服务器命令
//
// flag 名称与配置路径一一对应（server.addr → --server-addr），
// 仅在显式设置时覆盖配置文件。
var Command = &cli.Command{
	Name:     "server",
	Usage:    "启动 HTTP 服务器，收到 SIGHUP 或 POST /reload 时重载配置",
	Action:   action,
	Commands: []*cli.Command{version.Command},
	Flags: []cli.Flag{
		&cli.StringFlag{
			Name:    "server-addr",
			Aliases: []string{"a"},
			Value:   command.Defaults.Server.Addr,
			Usage:   "服务器监听地址",
		},
		&cli.DurationFlag{
			Name:  "server-timeout",
			Value: command.Defaults.Server.Timeout,
			Usage: "HTTP 读写超时",
		},
		&cli.DurationFlag{
			Name:  "server-idletime",
			Value: command.Defaults.Server.Idletime,
			Usage: "HTTP 空闲超时",
		},
	},
}
