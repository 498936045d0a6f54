package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/spigell/applyflow/internal/api"
	"github.com/spigell/applyflow/internal/secrets"
)

const shutdownTimeout = 15 * time.Second

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the HTTP API",
	RunE: func(cmd *cobra.Command, _ []string) error {
		return serve(cmd.Context())
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().IntP("port", "p", 0, "port to listen on (overrides api.port)")
	viper.BindPFlag("api.port", serveCmd.Flags().Lookup("port"))
}

func serve(parent context.Context) error {
	if parent == nil {
		parent = context.Background()
	}
	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	rt, err := newRuntime(ctx)
	if err != nil {
		return err
	}
	defer rt.Close()

	internalSecret, err := secrets.LoadOptional(secrets.Source{
		Name:  "internal api secret",
		Value: rt.config.API.InternalSecret,
		File:  rt.config.API.InternalSecretFile,
		Env:   "APPLYFLOW_INTERNAL_SECRET",
	})
	if err != nil {
		return err
	}
	if internalSecret == "" {
		rt.logger.Warn("internal api secret is not set, /v1 is unauthenticated")
	}

	if !viper.GetBool("debug") {
		gin.SetMode(gin.ReleaseMode)
	}

	handlerCfg := api.HandlerConfig{
		Stages:          rt.pipeline,
		Records:         rt.store,
		Tenants:         rt.resolver,
		Logger:          rt.logger,
		MaxUploadBytes:  rt.config.API.MaxUploadBytes,
		DocumentLinkTTL: rt.config.API.DocumentLinkTTL,
	}
	if rt.files != nil {
		handlerCfg.Documents = rt.files
	}

	router := api.NewRouter(api.NewHandler(handlerCfg), api.RouterConfig{
		InternalSecret: internalSecret,
		Metrics:        rt.config.API.Metrics,
	}, rt.logger)

	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", rt.config.API.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		rt.logger.Info("starting the applyflow api", zap.String("addr", server.Addr), zap.String("version", version))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("serving http: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	rt.logger.Info("shutting down", zap.Duration("timeout", shutdownTimeout))

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutting down http server: %w", err)
	}
	return nil
}
