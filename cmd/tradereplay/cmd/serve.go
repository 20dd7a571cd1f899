package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	gin "github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/rustyeddy/tradereplay/server"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve replay sessions over HTTP",
	Long: `Run the HTTP API. Each POST /api/sessions creates an independent replay
session; the playback section of the config provides the default query.

Example:
  tradereplay serve --addr :8080`,
	RunE: runServe,
}

var serveAddr string

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "listen address (overrides server.addr)")
}

func runServe(cmd *cobra.Command, args []string) error {
	a, err := setup(false)
	if err != nil {
		return err
	}
	defer teardown(a)

	cfg := a.Config
	if serveAddr != "" {
		cfg.Server.Addr = serveAddr
	}
	defaults, err := cfg.Query()
	if err != nil {
		return err
	}

	if !cfg.Log.Development {
		gin.SetMode(gin.ReleaseMode)
	}
	metrics := promhttp.HandlerFor(a.Registry, promhttp.HandlerOpts{})
	srv := server.NewServer(a.NewSession, defaults, a.Log, cfg.Server.CORSOrigin, metrics)
	defer srv.Close()

	httpSrv := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           srv.R,
		ReadHeaderTimeout: 5 * time.Second,
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		a.Log.Info("server_starting", zap.String("addr", httpSrv.Addr))
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("listen: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		a.Log.Info("server_stopping")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return httpSrv.Shutdown(shutdownCtx)
	})

	return g.Wait()
}
