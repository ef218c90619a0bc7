package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"ripestat-abuse/config"
	"ripestat-abuse/logging"
	"ripestat-abuse/lookup"
)

var (
	configPath string
	envFile    string
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:          "ripestat-abuse",
		Short:        "Abuse contact and announced prefix lookups against RIPEstat",
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVarP(&configPath, "config", "c", "", "YAML config file")
	root.PersistentFlags().StringVar(&envFile, "env-file", "", "env file to load (default .env when present)")

	root.AddCommand(serveCmd(), lookupCmd(), detailsCmd())
	return root
}

// setup loads configuration, builds the logger and runs startup once.
func setup() (*config.Config, *zap.Logger, *lookup.Integration, error) {
	cfg, err := config.Load(configPath, envFile)
	if err != nil {
		return nil, nil, nil, err
	}
	logger, err := logging.New(cfg.Logging.Level, cfg.Logging.Format)
	if err != nil {
		return nil, nil, nil, err
	}
	integration, err := lookup.Startup(cfg, logger)
	if err != nil {
		logger.Error("Startup failed", zap.Error(err))
		return nil, nil, nil, err
	}
	return cfg, logger, integration, nil
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve the lookup API over HTTP",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, integration, err := setup()
			if err != nil {
				return err
			}
			defer logger.Sync()

			srv := &http.Server{
				Addr:              ":" + cfg.Server.Port,
				Handler:           lookup.NewRouter(integration, logger),
				ReadHeaderTimeout: 10 * time.Second,
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			errCh := make(chan error, 1)
			go func() {
				logger.Info("Lookup service listening",
					zap.String("addr", srv.Addr),
					zap.Strings("endpoints", []string{"POST /lookup", "POST /details", "GET /healthz"}),
				)
				errCh <- srv.ListenAndServe()
			}()

			select {
			case err := <-errCh:
				if errors.Is(err, http.ErrServerClosed) {
					return nil
				}
				return err
			case <-ctx.Done():
			}

			logger.Info("Shutting down")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		},
	}
}

func lookupCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "lookup <entity>...",
		Short: "Look up abuse contacts for IPs, prefixes or AS numbers",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			entities, err := parseEntities(args)
			if err != nil {
				return err
			}
			_, logger, integration, err := setup()
			if err != nil {
				return err
			}
			defer logger.Sync()

			results, err := integration.DoLookup(cmd.Context(), entities)
			if err != nil {
				return err
			}
			return printJSON(cmd, results)
		},
	}
}

func detailsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "details <entity>",
		Short: "Look up an entity and fetch its announced prefixes",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			entities, err := parseEntities(args)
			if err != nil {
				return err
			}
			_, logger, integration, err := setup()
			if err != nil {
				return err
			}
			defer logger.Sync()

			results, err := integration.DoLookup(cmd.Context(), entities)
			if err != nil {
				return err
			}
			if results[0].Data == nil {
				return fmt.Errorf("no registry data for %s", entities[0].Value)
			}
			data, err := integration.OnDetails(cmd.Context(), &results[0])
			if err != nil {
				return err
			}
			return printJSON(cmd, data)
		},
	}
}

func parseEntities(args []string) ([]lookup.Entity, error) {
	entities := make([]lookup.Entity, 0, len(args))
	for _, arg := range args {
		entity, err := lookup.ParseEntity(arg)
		if err != nil {
			return nil, err
		}
		entities = append(entities, entity)
	}
	return entities, nil
}

func printJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
