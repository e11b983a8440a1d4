package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/derickschaefer/appmeta/internal/server"
)

var (
	serveAddr      string
	servePerMinute int
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve app metadata over a read-only HTTP API",
	Long: `Start an HTTP server exposing the same lookups as the app commands.

Routes:
  GET /health
  GET /apps/{id}            numeric store ID or bundle ID
  GET /apps/{id}/privacy    numeric store ID
  GET /lookup?ids=1,2&by=id|bundleId

Each route accepts ?country= and ?lang=. Inbound requests are limited per
client IP (see --per-minute); outbound requests follow --rate.`,
	Example: `  appmeta serve
  appmeta serve --addr 127.0.0.1:9000 --rate 5`,
	RunE: func(cmd *cobra.Command, args []string) error {
		deps, err := buildDeps()
		if err != nil {
			return err
		}
		defer deps.Close()

		addr := deps.Config.Addr
		if serveAddr != "" {
			addr = serveAddr
		}
		logger := newLogger(deps.Config.Debug)

		srv := &http.Server{
			Addr: addr,
			Handler: server.NewRouter(server.Deps{
				Apps:           deps.Client,
				Country:        deps.Config.Country,
				Lang:           deps.Config.Lang,
				RateLimit:      deps.Config.Rate,
				RequestsPerMin: servePerMinute,
				Logger:         logger,
			}),
			ReadHeaderTimeout: 10 * time.Second,
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		errCh := make(chan error, 1)
		go func() {
			logger.Info("listening", slog.String("addr", addr))
			errCh <- srv.ListenAndServe()
		}()

		select {
		case err := <-errCh:
			if errors.Is(err, http.ErrServerClosed) {
				return nil
			}
			return fmt.Errorf("server: %w", err)
		case <-ctx.Done():
		}

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		logger.Info("shutting down")
		return srv.Shutdown(shutdownCtx)
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "listen address (default: config addr or :8080)")
	serveCmd.Flags().IntVar(&servePerMinute, "per-minute", 100, "max inbound requests per client IP per minute")
}
