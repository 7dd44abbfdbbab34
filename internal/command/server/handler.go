package server

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/lwmacct/251207-go-pkg-secmap/internal/config"
	"github.com/lwmacct/251207-go-pkg-secmap/pkg/secmap"
	"github.com/lwmacct/251207-go-pkg-secmap/pkg/store"
)

// ReloadFunc 触发一次配置重载。
type ReloadFunc func(ctx context.Context) error

// NewHandler 创建 HTTP 路由，每个请求都读取 keeper 的当前配置。
func NewHandler(keeper *secmap.Keeper[config.Config], reload ReloadFunc) http.Handler {
	mux := http.NewServeMux()

	// 健康检查端点
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	// 当前配置（绑定后，含默认值）
	mux.HandleFunc("GET /settings", func(w http.ResponseWriter, _ *http.Request) {
		dumped, _ := secmap.Dump(keeper.Root()).(*store.Map)
		if dumped == nil {
			dumped = store.NewMap()
		}
		w.Header().Set("Content-Type", "application/yaml")
		if err := store.NewDocumentFrom(dumped).Encode(w); err != nil {
			slog.Error("Encode settings failed", "error", err)
		}
	})

	mux.HandleFunc("POST /reload", func(w http.ResponseWriter, r *http.Request) {
		if err := reload(r.Context()); err != nil {
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})

			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "reloaded"})
	})

	mux.HandleFunc("GET /endpoints/{name}", func(w http.ResponseWriter, r *http.Request) {
		endpoint, ok := keeper.Root().Endpoints.Get(r.PathValue("name"))
		if !ok || endpoint == nil {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "unknown endpoint"})

			return
		}

		body, err := endpoint.Body.Render(nil)
		if err != nil {
			slog.Warn("Render endpoint failed", "endpoint", r.PathValue("name"), "error", err)
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})

			return
		}
		w.Header().Set("Content-Type", endpoint.ContentType)
		w.WriteHeader(endpoint.Status)
		_, _ = w.Write([]byte(body))
	})

	// 默认首页（{$} 精确匹配根路径）
	mux.HandleFunc("GET /{$}", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"message": keeper.Root().Banner.String()})
	})

	return mux
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		slog.Error("Encode response failed", "error", err)
	}
}
