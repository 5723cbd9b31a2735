package cli

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"mcp-nutrition-tracker/internal/server"
)

func init() {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the MCP tool server over HTTP",
		Run:   runServe,
	}

	cmd.Flags().String("transport", "http", "Transport mode: http")
	cmd.Flags().IntP("port", "p", 8011, "Port for HTTP transport")
	cmd.Flags().String("host", "0.0.0.0", "Host address")
	cmd.Flags().String("address", "", "Address (alias for host)")
	cmd.Flags().String("upload-url", os.Getenv("UPLOAD_URL"), "Image upload endpoint (default: $UPLOAD_URL)")
	cmd.Flags().Duration("session-ttl", 2*time.Hour, "Discard meal sessions idle for longer than this")

	RootCmd.AddCommand(cmd)
}

func runServe(cmd *cobra.Command, args []string) {
	transport, _ := cmd.Flags().GetString("transport")
	port, _ := cmd.Flags().GetInt("port")
	host, _ := cmd.Flags().GetString("host")
	address, _ := cmd.Flags().GetString("address")
	uploadURL, _ := cmd.Flags().GetString("upload-url")
	sessionTTL, _ := cmd.Flags().GetDuration("session-ttl")

	if address != "" {
		host = address
	}

	logger := newLogger(os.Stderr)

	srv, err := server.NewNutritionServer(&server.Config{
		Transport:   transport,
		Host:        host,
		Port:        port,
		DBPath:      getDBPath(),
		UploadURL:   uploadURL,
		DefaultTDEE: defaultTDEE(),
		SessionTTL:  sessionTTL,
		Logger:      logger,
	})
	if err != nil {
		exitErr("create server", err)
	}

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	errCh := make(chan error, 1)
	go func() {
		if err := srv.Start(ctx); err != nil {
			errCh <- err
		}
	}()

	select {
	case <-sigCh:
		logger.Info("received shutdown signal")
	case err := <-errCh:
		logger.Error("server error", "error", err)
	}

	logger.Info("shutting down")
	shutdownCtx, stop := context.WithTimeout(context.Background(), 10*time.Second)
	defer stop()
	if err := srv.Stop(shutdownCtx); err != nil {
		logger.Error("error during shutdown", "error", err)
	}
}
