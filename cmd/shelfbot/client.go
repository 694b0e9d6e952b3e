package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/kalambet/shelfbot/internal/config"
)

// apiClient talks to the ops HTTP API of a running `shelfbot serve`.
type apiClient struct {
	baseURL    string
	token      string
	httpClient *http.Client
}

var newAPIClient = func(cfg config.Config) *apiClient {
	return &apiClient{
		baseURL:    fmt.Sprintf("http://127.0.0.1:%d", cfg.Server.Port),
		token:      cfg.API.Token,
		httpClient: &http.Client{Timeout: 5 * time.Second},
	}
}

func (c *apiClient) get(ctx context.Context, path string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return nil, err
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("server not reachable, is shelfbot serve running? (%w)", err)
	}
	return resp, nil
}

func decodeJSON(resp *http.Response, v any) error {
	defer resp.Body.Close()
	if resp.StatusCode >= 400 {
		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return fmt.Errorf("server returned %d (failed to read body: %w)", resp.StatusCode, err)
		}
		return fmt.Errorf("server returned %d: %s", resp.StatusCode, string(body))
	}
	return json.NewDecoder(resp.Body).Decode(v)
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show whether a shelfbot server is running",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}
		return showStatus(cmd.Context(), cfg, newAPIClient(cfg))
	},
}

func showStatus(ctx context.Context, cfg config.Config, client *apiClient) error {
	var health map[string]string
	resp, err := client.get(ctx, "/health")
	if err == nil {
		err = decodeJSON(resp, &health)
	}
	if err != nil {
		printStatus("Server", "stopped")
	} else {
		printStatus("Server", "%s on port %d", health["status"], cfg.Server.Port)
	}

	if err == nil && client.token != "" {
		var ads struct {
			Ads []json.RawMessage `json:"ads"`
		}
		if resp, adsErr := client.get(ctx, "/ads"); adsErr == nil {
			if decodeJSON(resp, &ads) == nil {
				printStatus("Active ads", "%d", len(ads.Ads))
			}
		}
	} else if client.token == "" {
		printWarning("SHELFBOT_API_TOKEN not set; protected endpoints are disabled")
	}

	printStatus("Admins", "%d", len(cfg.Telegram.AdminIDs))
	printStatus("Data dir", "%s", cfg.Storage.DataDir)
	if _, statErr := os.Stat(config.Path()); statErr == nil {
		printStatus("Config", "%s", config.Path())
	} else {
		printStatus("Config", "%s (not created)", config.Path())
	}
	return nil
}
