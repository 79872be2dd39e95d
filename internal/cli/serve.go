package cli

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/formloom/formloom/internal/config"
	"github.com/formloom/formloom/internal/runtime"
	"github.com/formloom/formloom/internal/server"
	"github.com/formloom/formloom/internal/store"
)

var (
	servePort int
	verbose   bool
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP server",
	Long: `Start the formloom HTTP server.

The server provides:
  - Admin API for forms, fields, styles, rules and A/B tests
  - Public runtime: embed script, resolved forms, submissions, beacons
  - Dashboard for funnel and test results

Example:
  formloom serve --port 8080`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().IntVarP(&servePort, "port", "p", 0, "port to listen on (overrides config)")
	serveCmd.Flags().BoolVar(&verbose, "verbose", false, "debug logging")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	return withStore(func(cfg *config.Config, s *store.SQLStore) error {
		log, err := newLogger()
		if err != nil {
			return err
		}
		defer log.Sync()

		port := cfg.Server.Port
		if servePort != 0 {
			port = servePort
		}

		loader := &runtime.Loader{
			Store: s,
			TTL:   time.Duration(cfg.Redis.TTLSecs) * time.Second,
		}
		if cfg.Redis.Addr != "" {
			loader.Cache = redis.NewClient(&redis.Options{
				Addr:     cfg.Redis.Addr,
				Password: cfg.Redis.Password,
				DB:       cfg.Redis.DB,
			})
			log.Info("snapshot cache enabled", zap.String("addr", cfg.Redis.Addr))
		}

		srv := server.New(s, loader, log, server.Options{
			Port:        port,
			PublicURL:   cfg.Server.PublicURL,
			TokenFile:   tokenFilePath(cfg),
			CORSOrigins: cfg.Server.CORSOrigins,
		})
		return srv.Start()
	})
}

func newLogger() (*zap.Logger, error) {
	if verbose {
		log, err := zap.NewDevelopment()
		if err != nil {
			return nil, fmt.Errorf("failed to build logger: %w", err)
		}
		return log, nil
	}
	log, err := zap.NewProduction()
	if err != nil {
		return nil, fmt.Errorf("failed to build logger: %w", err)
	}
	return log, nil
}

// tokenFilePath places the dashboard token alongside the sqlite file, or
// in the working directory for postgres deployments.
func tokenFilePath(cfg *config.Config) string {
	if cfg.Database.Driver == "sqlite" {
		return filepath.Join(filepath.Dir(cfg.Database.Path), ".formloom-token")
	}
	return "./.formloom-token"
}
