package cli

import (
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	httpapi "github.com/custodia-labs/policywatch/internal/adapters/driving/http"
	"github.com/custodia-labs/policywatch/internal/logger"
)

var (
	serveAddr  string
	serveNoAPI bool
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the monitor and the HTTP API",
	Long: `Summarise every document that has no stored summary, then poll both
collections for added and removed documents. New documents are summarised,
checked for inconsistencies against the other collection and announced by
email. The HTTP API serves uploads, summaries, search and metrics.`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "HTTP listen address (default from settings)")
	serveCmd.Flags().BoolVar(&serveNoAPI, "no-api", false, "run the monitor without the HTTP API")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	rt, err := newRuntime(ctx)
	if err != nil {
		return err
	}
	defer func() {
		if err := rt.Close(); err != nil {
			logger.Warn("serve: close: %v", err)
		}
	}()

	logger.Section("Warm-up")
	loaded, err := rt.warm(ctx, true)
	if err != nil {
		return fmt.Errorf("warm-up: %w", err)
	}
	cmd.Printf("%s %d summaries loaded\n", styled(cmd.OutOrStdout(), okStyle, "ready:"), loaded)

	monitor, err := rt.newMonitor()
	if err != nil {
		return err
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := monitor.Start(gctx); err != nil && gctx.Err() == nil {
			return err
		}
		return nil
	})

	if !serveNoAPI {
		addr := serveAddr
		if addr == "" {
			addr = rt.settings.Server.Addr
		}
		server, err := httpapi.NewServer(addr, &httpapi.Ports{
			Summary: rt.summary,
			Query:   rt.query,
			Monitor: monitor,
		}, httpapi.WithMetricsHandler(rt.metrics.Handler()))
		if err != nil {
			stop()
			_ = g.Wait()
			return err
		}
		cmd.Printf("API listening on %s\n", styled(cmd.OutOrStdout(), headingStyle, server.Addr()))
		g.Go(func() error {
			return server.Run(gctx)
		})
	}

	cmd.Println(styled(cmd.OutOrStdout(), dimStyle, "Press Ctrl+C to stop."))
	if err := g.Wait(); err != nil {
		return err
	}
	cmd.Println("Stopped.")
	return nil
}
