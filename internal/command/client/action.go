package client

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/urfave/cli/v3"

	"github.com/lwmacct/251207-go-pkg-secmap/internal/command"
	"github.com/lwmacct/251207-go-pkg-secmap/internal/config"
)

// Client 按客户端配置发送请求，失败时重试。
type Client struct {
	cfg  config.ClientConfig
	http *http.Client
}

// New 创建客户端。
func New(cfg config.ClientConfig) *Client {
	return &Client{cfg: cfg, http: &http.Client{Timeout: cfg.Timeout}}
}

// Do 发送请求并返回状态码与响应体；网络错误与 5xx 会重试 Retries 次。
func (c *Client) Do(ctx context.Context, method, path string) (int, string, error) {
	url := strings.TrimRight(c.cfg.URL, "/") + "/" + strings.TrimLeft(path, "/")

	var lastErr error
	for attempt := 0; attempt <= c.cfg.Retries; attempt++ {
		status, body, err := c.once(ctx, method, url)
		if err == nil && status < http.StatusInternalServerError {
			return status, body, nil
		}
		if err == nil {
			lastErr = fmt.Errorf("%s %s: %d %s", method, url, status, strings.TrimSpace(body))
		} else {
			lastErr = err
		}
		if ctx.Err() != nil {
			break
		}
		slog.Debug("Request failed", "url", url, "attempt", attempt+1, "error", lastErr)
	}

	return 0, "", lastErr
}

func (c *Client) once(ctx context.Context, method, url string) (int, string, error) {
	req, err := http.NewRequestWithContext(ctx, method, url, nil)
	if err != nil {
		return 0, "", fmt.Errorf("create request: %w", err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return 0, "", fmt.Errorf("%s %s: %w", method, url, err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, "", fmt.Errorf("read response: %w", err)
	}

	return resp.StatusCode, string(body), nil
}

func newClient(cmd *cli.Command) (*Client, error) {
	_, cfg, err := command.Load(cmd)
	if err != nil {
		return nil, err
	}

	return New(cfg.Client), nil
}

func action(ctx context.Context, cmd *cli.Command) error {
	return healthAction(ctx, cmd)
}

func healthAction(ctx context.Context, cmd *cli.Command) error {
	return request(ctx, cmd, http.MethodGet, "/health")
}

func getAction(ctx context.Context, cmd *cli.Command) error {
	return request(ctx, cmd, http.MethodGet, cmd.Args().First())
}

func reloadAction(ctx context.Context, cmd *cli.Command) error {
	return request(ctx, cmd, http.MethodPost, "/reload")
}

func request(ctx context.Context, cmd *cli.Command, method, path string) error {
	c, err := newClient(cmd)
	if err != nil {
		return err
	}

	status, body, err := c.Do(ctx, method, path)
	if err != nil {
		return err
	}
	if status >= http.StatusBadRequest {
		return fmt.Errorf("%s %s: %d %s", method, path, status, strings.TrimSpace(body))
	}

	_, err = fmt.Fprintln(cmd.Root().Writer, strings.TrimRight(body, "\n"))

	return err
}
