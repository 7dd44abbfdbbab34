// Package inspect 提供查看与维护配置文件的命令。
package inspect

import (
	"github.com/urfave/cli/v3"
)

// Commands 返回 get、keys、dump、extend 四个命令，每次调用创建新的实例。
func Commands() []*cli.Command {
	return []*cli.Command{
		{
			Name:      "get",
			Usage:     "输出配置项的原始值（已应用环境变量与覆盖）",
			ArgsUsage: "[path]",
			Flags: []cli.Flag{
				&cli.StringFlag{
					Name:    "format",
					Aliases: []string{"f"},
					Value:   "yaml",
					Usage:   "输出格式 (yaml, spew)",
				},
			},
			Action: getAction,
		},
		{
			Name:   "keys",
			Usage:  "列出所有叶子配置项及对应的环境变量",
			Action: keysAction,
		},
		{
			Name:   "dump",
			Usage:  "输出绑定后的完整配置（含默认值）",
			Action: dumpAction,
		},
		{
			Name:   "extend",
			Usage:  "从内置默认文件创建或补齐配置文件",
			Action: extendAction,
		},
	}
}
