package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/urfave/cli/v3"

	"github.com/lwmacct/251207-go-pkg-secmap/internal/command"
	"github.com/lwmacct/251207-go-pkg-secmap/internal/config"
	"github.com/lwmacct/251207-go-pkg-secmap/pkg/confdir"
	"github.com/lwmacct/251207-go-pkg-secmap/pkg/secmap"
)

func action(ctx context.Context, cmd *cli.Command) error {
	// 加载配置：默认值 → 配置文件 → 环境变量 → --set → CLI flags
	h, err := command.OpenHandler(cmd)
	if err != nil {
		return err
	}
	keeper, err := confdir.Open[config.Config](h, config.FileName, "")
	if err != nil {
		return err
	}
	cfg := keeper.Root()
	command.SetupLogger(cmd, cfg.Log)
	keeper.SetLogger(slog.Default())

	registerListeners(cmd, keeper, cfg.Server)

	reloads := newReloader(keeper)

	server := &http.Server{
		Addr:         cfg.Server.Addr,
		Handler:      NewHandler(keeper, reloads.Reload),
		ReadTimeout:  cfg.Server.Timeout,
		WriteTimeout: cfg.Server.Timeout,
		IdleTimeout:  cfg.Server.Idletime,
	}

	// 启动服务器（非阻塞）
	serveErr := make(chan error, 1)
	go func() {
		slog.Info("Server starting", "addr", cfg.Server.Addr, "dir", h.Dir())
		slog.Info(cfg.Banner.String())
		err := server.ListenAndServe()
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	// SIGHUP 重载配置，SIGINT/SIGTERM 退出
	hupChan := make(chan os.Signal, 1)
	signal.Notify(hupChan, syscall.SIGHUP)
	defer signal.Stop(hupChan)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	runCtx, stop := context.WithCancel(ctx)
	defer stop()
	go reloads.Run(runCtx, hupChan)

	select {
	case <-sigChan:
	case <-ctx.Done():
	case err, ok := <-serveErr:
		if ok {
			slog.Error("Server error", "error", err)

			return fmt.Errorf("server error: %w", err)
		}
	}

	slog.Info("Shutting down")

	// 优雅关闭，最多等待一个读写超时
	// 使用 WithoutCancel 保持 context 链，同时防止父 context 取消影响 shutdown
	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), keeper.Root().Server.Timeout)
	defer cancel()

	err = server.Shutdown(shutdownCtx)
	if err != nil {
		slog.Error("Server shutdown failed", "error", err)

		return fmt.Errorf("server shutdown failed: %w", err)
	}

	slog.Info("Server stopped gracefully")

	return nil
}

// registerListeners 注册重载监听器：先切换日志，再检查需要重启的项，最后汇报。
func registerListeners(cmd *cli.Command, keeper *secmap.Keeper[config.Config], running config.ServerConfig) {
	keeper.OnReloadPriority(secmap.PriorityHighest, func() error {
		command.SetupLogger(cmd, keeper.Root().Log)
		keeper.SetLogger(slog.Default())

		return nil
	})

	keeper.OnReload(func() error {
		next := keeper.Root().Server
		if next.Addr != running.Addr || next.Timeout != running.Timeout || next.Idletime != running.Idletime {
			slog.Warn("Server settings changed, restart to apply",
				"addr", next.Addr, "timeout", next.Timeout, "idletime", next.Idletime)
		}

		return nil
	})

	keeper.OnReloadPriority(secmap.PriorityLowest, func() error {
		cfg := keeper.Root()
		slog.Info("Configuration reloaded", "banner", cfg.Banner.String(), "endpoints", cfg.Endpoints.Keys())

		return nil
	})
}

// reloader 在单个 goroutine 中串行执行重载。
type reloader struct {
	keeper   *secmap.Keeper[config.Config]
	requests chan chan error
}

func newReloader(keeper *secmap.Keeper[config.Config]) *reloader {
	return &reloader{keeper: keeper, requests: make(chan chan error)}
}

// Run 处理重载请求与信号，直到 ctx 结束。
func (r *reloader) Run(ctx context.Context, signals <-chan os.Signal) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-signals:
			if err := r.keeper.Reload(); err != nil {
				slog.Error("Reload on SIGHUP failed", "error", err)
			}
		case done := <-r.requests:
			done <- r.keeper.Reload()
		}
	}
}

// Reload 请求一次重载并等待结果。
func (r *reloader) Reload(ctx context.Context) error {
	done := make(chan error, 1)
	select {
	case r.requests <- done:
	case <-ctx.Done():
		return ctx.Err()
	}

	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}
