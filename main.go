package main

import (
	"context"
	"fmt"
	"os"

	"github.com/urfave/cli/v3"

	"github.com/lwmacct/251207-go-pkg-secmap/internal/command"
	"github.com/lwmacct/251207-go-pkg-secmap/internal/command/client"
	"github.com/lwmacct/251207-go-pkg-secmap/internal/command/inspect"
	"github.com/lwmacct/251207-go-pkg-secmap/internal/command/server"
	"github.com/lwmacct/251207-go-pkg-secmap/internal/version"
)

func main() {
	app := &cli.Command{
		Name:    version.AppRawName,
		Usage:   "分层配置的 section 绑定工具",
		Version: version.GetVersion(),
		Flags:   command.Flags(),
		Before:  command.Before,
		Commands: append([]*cli.Command{
			version.Command,
			client.Command,
			server.Command,
		}, inspect.Commands()...),
	}

	if err := app.Run(context.Background(), os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
