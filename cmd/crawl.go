package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// newCrawlCmd creates the crawl command, the long-running mode of the
// archiver: both crawl workers plus the operational HTTP server.
func newCrawlCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "crawl",
		Short: "Run the bidirectional crawl until interrupted.",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runCrawlCommand(cmd.Context())
		},
	}
}

func runCrawlCommand(ctx context.Context) error {
	appInstance, err := resolveApp(ctx)
	if err != nil {
		return err
	}

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", appInstance.Config.Server.Port),
		Handler:           appInstance.Server.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		appInstance.Logger.Info("ops server listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
			return
		}
		serverErr <- nil
	}()

	runErr := appInstance.Engine.Run(ctx)

	// The crawl has stopped, either on interrupt or on a fatal
	// error. Drain the ops server before reporting.
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		appInstance.Logger.Warn("ops server shutdown", zap.Error(err))
	}

	return errors.Join(runErr, <-serverErr)
}
