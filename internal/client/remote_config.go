package client

import (
	"context"
	"net/http"
)

// RemoteConfig типизированная конфигурация, которую отдаёт бэкенд по GET /api/config.
// Данные только читаются, никакого исполнения.
type RemoteConfig struct {
	APIBaseURL             string `json:"api_base_url"`
	AdminEnabled           *bool  `json:"admin_enabled,omitempty"`
	RefreshIntervalSeconds int    `json:"refresh_interval_seconds,omitempty"`
	LowStockThreshold      int    `json:"low_stock_threshold,omitempty"`
	Locale                 string `json:"locale,omitempty"`
}

// FetchRemoteConfig загружает удалённую конфигурацию.
func (c *Client) FetchRemoteConfig(ctx context.Context) (RemoteConfig, error) {
	var cfg RemoteConfig
	if err := c.do(ctx, request{method: http.MethodGet, path: "/api/config", endpoint: "remote_config"}, &cfg); err != nil {
		return RemoteConfig{}, err
	}
	return cfg, nil
}
