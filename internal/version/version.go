// Package version 提供构建版本信息与 version 子命令。
package version

import (
	"context"
	"fmt"
	"runtime"

	"github.com/urfave/cli/v3"
)

// AppRawName 是程序名，也用作配置目录与环境变量前缀。
const AppRawName = "secmap"

//nolint:gochecknoglobals // set via ldflags at build time.
var (
	// Version 通过 ldflags 注入。
	Version = "dev"
	// Commit 通过 ldflags 注入。
	Commit = "unknown"
	// CompiledAt 通过 ldflags 注入。
	CompiledAt = "unknown"
)

// GetVersion 返回版本号。
func GetVersion() string {
	return Version
}

// Info 返回多行版本详情。
func Info() string {
	return fmt.Sprintf("%s %s\ncommit: %s\ncompiled at: %s\ngo: %s %s/%s",
		AppRawName, Version, Commit, CompiledAt, runtime.Version(), runtime.GOOS, runtime.GOARCH)
}

// Command 版本命令
var Command = &cli.Command{
	Name:  "version",
	Usage: "显示版本信息",
	Action: func(_ context.Context, cmd *cli.Command) error {
		_, err := fmt.Fprintln(cmd.Root().Writer, Info())

		return err
	},
}
