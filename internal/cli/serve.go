package cli

import (
	"errors"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/apprenticelog/apprenticelog/internal/controller"
	"github.com/apprenticelog/apprenticelog/internal/httpapi/server"
	"github.com/apprenticelog/apprenticelog/pkg/cache"
	"github.com/apprenticelog/apprenticelog/pkg/clients/ldap"
	"github.com/apprenticelog/apprenticelog/pkg/config"
	"github.com/apprenticelog/apprenticelog/pkg/logger"
	"github.com/apprenticelog/apprenticelog/pkg/store"
)

func newServeCmd() *cobra.Command {
	var env string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the apprenticelog HTTP API and periodic jobs",
		RunE: func(cmd *cobra.Command, args []string) error {
			// Resolve environment: flag > env > default
			if env == "" {
				env = os.Getenv("APP_ENV")
			}
			if env == "" {
				env = "default"
			}

			logger.Init()
			log := logger.Logger(cmd.Context()).WithField("environment", env)

			cfg, err := config.LoadConfig(env)
			if err != nil {
				return fmt.Errorf("loading config: %w", err)
			}

			cacheClient, err := cache.New(&cfg.Cache)
			if err != nil {
				return fmt.Errorf("initializing cache: %w", err)
			}

			// shared between the API and the periodic jobs
			var cacheMutex sync.RWMutex
			commentContexts := store.New(cacheClient, cfg.Store.TTL, &cacheMutex)

			var directory ldap.LDAPClient
			if cfg.LDAP.Enabled() {
				if directory, err = ldap.InitLdap(cfg.LDAP); err != nil {
					return fmt.Errorf("initializing LDAP client: %w", err)
				}
			} else {
				log.Warn("LDAP is not configured, resolve is disabled")
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			runner := controller.NewPeriodicTasksRunner(cfg, cacheClient, commentContexts)
			if err := runner.Start(ctx); err != nil {
				return fmt.Errorf("starting periodic tasks: %w", err)
			}

			srv := server.NewAPIServer(cfg, commentContexts, directory)
			serveErr := srv.Start(ctx)

			stop()
			runner.Wait()
			log.Info("apprenticelog stopped")

			return errors.Join(serveErr, closeCache(cacheClient))
		},
	}

	cmd.Flags().StringVar(&env, "env", "", "configuration environment (appconfig/<env>.yaml), defaults to APP_ENV")

	return cmd
}

func closeCache(c cache.Cache) error {
	if closer, ok := c.(interface{ Disconnect() error }); ok {
		return closer.Disconnect()
	}
	return nil
}
