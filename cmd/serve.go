package cmd

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/theloz33-bot/jino-ai-interviewer/internal/transport/rest"
)

const shutdownTimeout = 30 * time.Second

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the interview chat API over HTTP",
	Run: func(_ *cobra.Command, _ []string) {
		serve()
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().StringP("listen", "l", "", "address to listen on (default :8503)")
	serveCmd.Flags().String("static-dir", "", "directory with the web UI served at /")

	viper.BindPFlag("listen", serveCmd.Flags().Lookup("listen"))
	viper.BindPFlag("static-dir", serveCmd.Flags().Lookup("static-dir"))
}

func serve() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a := newApplication(ctx)
	defer a.close(context.Background())

	var startWords []string
	if a.config.Interview != nil {
		startWords = a.config.Interview.StartWords
	}

	router := rest.NewRouter(&rest.Container{
		Interviewer: a.orchestrator,
		UserID:      a.userID(),
		StartWords:  startWords,
		StaticDir:   a.config.StaticDir,
		Logger:      a.logger,
	})

	srv := &http.Server{
		Addr:              a.config.Listen,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		a.logger.Info("server starting",
			zap.String("addr", srv.Addr),
			zap.String("static_dir", a.config.StaticDir),
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			a.logger.Fatal("listen and serve", zap.Error(err))
		}
	case <-ctx.Done():
	}

	a.logger.Info("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		a.logger.Error("server forced to shutdown", zap.Error(err))
		return
	}

	a.logger.Info("server exited")
}
