// Package run contains the command to run the shared-layer HTTP server.
package run

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/cors"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/juanma-plia/PLIA-SHARED/internal/authn/presharedkey"
	"github.com/juanma-plia/PLIA-SHARED/pkg/acl"
	"github.com/juanma-plia/PLIA-SHARED/pkg/logger"
	"github.com/juanma-plia/PLIA-SHARED/pkg/server"
	serverconfig "github.com/juanma-plia/PLIA-SHARED/pkg/server/config"
	"github.com/juanma-plia/PLIA-SHARED/pkg/storage"
	"github.com/juanma-plia/PLIA-SHARED/pkg/storage/firestore"
	"github.com/juanma-plia/PLIA-SHARED/pkg/storage/memory"
	"github.com/juanma-plia/PLIA-SHARED/pkg/storage/mongodb"
)

func NewRunCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the shared-layer HTTP server",
		RunE:  run,
		Args:  cobra.NoArgs,
	}

	defaultConfig := serverconfig.DefaultConfig()
	flags := cmd.Flags()

	flags.String("datastore-engine", defaultConfig.Datastore.Engine, "the document store engine to use (e.g. 'memory', 'firestore', 'mongodb')")
	flags.String("datastore-project-id", defaultConfig.Datastore.ProjectID, "the Firestore project id (firestore engine only)")
	flags.String("datastore-uri", defaultConfig.Datastore.URI, "the connection uri of the document store (mongodb engine only)")
	flags.String("datastore-database", defaultConfig.Datastore.Database, "the database name (mongodb engine only)")

	flags.String("http-addr", defaultConfig.HTTP.Addr, "the host:port address to serve the HTTP server on")
	flags.StringSlice("http-cors-allowed-origins", defaultConfig.HTTP.CORSAllowedOrigins, "the allowed CORS origins")
	flags.StringSlice("http-cors-allowed-headers", defaultConfig.HTTP.CORSAllowedHeaders, "the allowed CORS headers")

	flags.String("authn-method", defaultConfig.Authn.Method, "the authentication method to enforce (e.g. 'none', 'preshared')")
	flags.StringSlice("authn-preshared-keys", defaultConfig.Authn.Keys, "the accepted API keys for the 'preshared' authentication method")

	flags.String("log-format", defaultConfig.Log.Format, "the log format to output logs in (e.g. 'text', 'json')")
	flags.String("log-level", defaultConfig.Log.Level, "the log level to use (e.g. 'none', 'debug', 'info', 'warn', 'error')")

	flags.Int("retry-max-attempts", defaultConfig.Retry.MaxAttempts, "total attempts per batched query chunk, the first one included")
	flags.Duration("retry-initial-interval", defaultConfig.Retry.InitialInterval, "the delay before the first retry of a failed chunk")
	flags.Float64("retry-multiplier", defaultConfig.Retry.Multiplier, "the growth factor of the retry delay")
	flags.Duration("retry-max-interval", defaultConfig.Retry.MaxInterval, "the maximum delay between retries of a failed chunk")

	flags.Duration("request-timeout", defaultConfig.RequestTimeout, "a limit on the time a request may take, retries included; 0 disables it")

	cmd.PreRun = func(cmd *cobra.Command, _ []string) {
		_ = viper.BindPFlags(cmd.Flags())
	}

	return cmd
}

// ReadConfig assembles the server configuration from viper's resolved view of
// flags, environment, and the optional config file.
func ReadConfig() serverconfig.Config {
	config := serverconfig.DefaultConfig()

	config.Datastore.Engine = viper.GetString("datastore-engine")
	config.Datastore.ProjectID = viper.GetString("datastore-project-id")
	config.Datastore.URI = viper.GetString("datastore-uri")
	config.Datastore.Database = viper.GetString("datastore-database")

	config.HTTP.Addr = viper.GetString("http-addr")
	config.HTTP.CORSAllowedOrigins = viper.GetStringSlice("http-cors-allowed-origins")
	config.HTTP.CORSAllowedHeaders = viper.GetStringSlice("http-cors-allowed-headers")

	config.Authn.Method = viper.GetString("authn-method")
	config.Authn.Keys = viper.GetStringSlice("authn-preshared-keys")

	config.Log.Format = viper.GetString("log-format")
	config.Log.Level = viper.GetString("log-level")

	config.Retry.MaxAttempts = viper.GetInt("retry-max-attempts")
	config.Retry.InitialInterval = viper.GetDuration("retry-initial-interval")
	config.Retry.Multiplier = viper.GetFloat64("retry-multiplier")
	config.Retry.MaxInterval = viper.GetDuration("retry-max-interval")

	config.RequestTimeout = viper.GetDuration("request-timeout")

	return config
}

func run(cmd *cobra.Command, _ []string) error {
	config := ReadConfig()
	if err := config.Verify(); err != nil {
		return err
	}

	log := logger.MustNewLogger(config.Log.Format, config.Log.Level)

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	datastore, err := buildDatastore(ctx, config, log)
	if err != nil {
		return err
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := datastore.Close(shutdownCtx); err != nil {
			log.Error("failed to close datastore", zap.Error(err))
		}
	}()

	policy := storage.RetryPolicy{
		MaxAttempts:     config.Retry.MaxAttempts,
		InitialInterval: config.Retry.InitialInterval,
		Multiplier:      config.Retry.Multiplier,
		MaxInterval:     config.Retry.MaxInterval,
	}
	batch := storage.NewBatchQuerier(datastore, policy, log)
	resolver := acl.NewResolver(datastore, batch, log)
	svc := server.New(datastore, resolver, log, config.RequestTimeout)

	middlewares, err := buildMiddlewares(config, svc)
	if err != nil {
		return err
	}

	httpServer := &http.Server{
		Addr:    config.HTTP.Addr,
		Handler: svc.Handler(middlewares...),
		BaseContext: func(net.Listener) context.Context {
			return ctx
		},
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("starting HTTP server", zap.String("addr", config.HTTP.Addr))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info("shutting down HTTP server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return httpServer.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		return fmt.Errorf("server exited: %w", err)
	}
	return nil
}

func buildDatastore(ctx context.Context, config serverconfig.Config, log logger.Logger) (storage.DocumentStore, error) {
	switch config.Datastore.Engine {
	case "memory":
		return memory.New(), nil
	case "firestore":
		return firestore.New(config.Datastore.ProjectID, log), nil
	case "mongodb":
		return mongodb.New(ctx, config.Datastore.URI, config.Datastore.Database, log)
	default:
		return nil, fmt.Errorf("unsupported datastore engine: '%s'", config.Datastore.Engine)
	}
}

func buildMiddlewares(config serverconfig.Config, svc *server.Server) ([]func(http.Handler) http.Handler, error) {
	middlewares := []func(http.Handler) http.Handler{
		cors.New(cors.Options{
			AllowedOrigins: config.HTTP.CORSAllowedOrigins,
			AllowedHeaders: config.HTTP.CORSAllowedHeaders,
			AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPatch, http.MethodDelete},
		}).Handler,
	}

	if config.Authn.Method == "preshared" {
		authenticator, err := presharedkey.NewAuthenticator(config.Authn.Keys, svc.Unauthenticated)
		if err != nil {
			return nil, err
		}
		middlewares = append(middlewares, authenticator.Middleware)
	}

	return middlewares, nil
}
