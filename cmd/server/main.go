package main

import (
	"context"
	"log/slog"
	"os"

	"github.com/lwmacct/251207-go-pkg-secmap/internal/command"
	app "github.com/lwmacct/251207-go-pkg-secmap/internal/command/server"
)

func main() {
	app.Command.Flags = append(app.Command.Flags, command.Flags()...)
	app.Command.Before = command.Before

	if err := app.Command.Run(context.Background(), os.Args); err != nil {
		slog.Error("应用程序运行失败", "error", err)
		os.Exit(1)
	}
}
