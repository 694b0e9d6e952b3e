package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/mark3labs/mcp-go/server"
	"github.com/spf13/cobra"

	"github.com/kalambet/shelfbot/internal/api"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Serve the shelf over MCP on stdio",
	Long: `Serve the shelf over the Model Context Protocol on stdin/stdout.

Stored messages are not re-checked against Telegram in this mode.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, log, err := loadCLI()
		if err != nil {
			return err
		}
		sh, err := openShelf(cfg, nil, log)
		if err != nil {
			return err
		}
		defer sh.Close()

		ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		srv := api.NewMCPServer(api.MCPDeps{
			Search:  sh.search,
			Catalog: sh.catalog,
			Version: version,
		})
		stdio := server.NewStdioServer(srv)
		if err := stdio.Listen(ctx, os.Stdin, os.Stdout); err != nil && !errors.Is(err, context.Canceled) {
			return err
		}
		return nil
	},
}
