package main

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
	"gorm.io/gorm"

	"github.com/inkwelllabs/corkboard/internal/actions"
	"github.com/inkwelllabs/corkboard/internal/auth"
	"github.com/inkwelllabs/corkboard/internal/config"
	"github.com/inkwelllabs/corkboard/internal/database"
	"github.com/inkwelllabs/corkboard/internal/logging"
	"github.com/inkwelllabs/corkboard/internal/presence"
	"github.com/inkwelllabs/corkboard/internal/server"
	"github.com/inkwelllabs/corkboard/internal/store"
)

const tokenIssuerName = "corkboard-auth"

var cfgFile string

func main() {
	rootCmd := &cobra.Command{
		Use:   "corkboard-api",
		Short: "Corkboard collaborative canvas backend service",
		PreRunE: func(cmd *cobra.Command, args []string) error {
			return initConfig()
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(cmd.Context())
		},
	}

	setupFlags(rootCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func setupFlags(cmd *cobra.Command) {
	config.ApplyDefaults(viper.GetViper())
	defaults := config.NewViper()
	cmd.PersistentFlags().StringVar(&cfgFile, "config", "", "Path to configuration file")
	cmd.PersistentFlags().String("http-address", defaults.GetString("http.address"), "HTTP listen address")
	cmd.PersistentFlags().String("database-path", defaults.GetString("database.path"), "SQLite database path")
	cmd.PersistentFlags().String("log-level", defaults.GetString("log.level"), "Log level (debug, info, warn, error)")
	cmd.PersistentFlags().String("signing-secret", "", "Identity token signing secret (overrides env)")
	cmd.PersistentFlags().String("presence-redis-addr", defaults.GetString("presence.redis_addr"), "Redis address for presence (empty uses the database)")
	cmd.PersistentFlags().Duration("presence-ttl", defaults.GetDuration("presence.ttl"), "Presence staleness TTL")

	bindFlag(cmd, "http.address", "http-address")
	bindFlag(cmd, "database.path", "database-path")
	bindFlag(cmd, "log.level", "log-level")
	bindFlag(cmd, "auth.signing_secret", "signing-secret")
	bindFlag(cmd, "presence.redis_addr", "presence-redis-addr")
	bindFlag(cmd, "presence.ttl", "presence-ttl")
}

func bindFlag(cmd *cobra.Command, key, flag string) {
	if err := viper.BindPFlag(key, cmd.PersistentFlags().Lookup(flag)); err != nil {
		panic(err)
	}
}

func initConfig() error {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	}

	if err := viper.ReadInConfig(); err != nil {
		var configNotFound viper.ConfigFileNotFoundError
		if cfgFile != "" && errors.As(err, &configNotFound) {
			return err
		}
	}

	return nil
}

func runServer(ctx context.Context) error {
	appConfig, err := config.Load(viper.GetViper())
	if err != nil {
		return err
	}

	logger, err := logging.NewLogger(appConfig.LogLevel)
	if err != nil {
		return err
	}
	defer logger.Sync() //nolint:errcheck

	db, err := database.OpenSQLite(appConfig.DatabasePath, logger)
	if err != nil {
		return err
	}
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	defer sqlDB.Close()

	client, err := store.NewClient(store.ClientConfig{
		Database: db,
		Logger:   logger,
	})
	if err != nil {
		return err
	}

	roster, err := buildPresenceStore(appConfig, db)
	if err != nil {
		return err
	}

	validator, err := auth.NewValidator(auth.ValidatorConfig{
		SigningSecret: []byte(appConfig.AuthSigningKey),
		Issuer:        tokenIssuerName,
	})
	if err != nil {
		return err
	}

	handler, err := server.NewHTTPHandler(server.Dependencies{
		Store:     client,
		Presence:  roster,
		Executor:  actions.NewExecutor(client, logger),
		Validator: validator,
		Logger:    logger,
	})
	if err != nil {
		return err
	}

	httpServer := &http.Server{
		Addr:    appConfig.HTTPAddress,
		Handler: handler,
	}

	signalCtx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server starting", zap.String("address", appConfig.HTTPAddress))
		err := httpServer.ListenAndServe()
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-signalCtx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return httpServer.Shutdown(shutdownCtx)
	case err := <-errCh:
		return err
	}
}

// buildPresenceStore picks redis when an address is configured, otherwise
// the shared database.
func buildPresenceStore(appConfig config.AppConfig, db *gorm.DB) (presence.Store, error) {
	if appConfig.PresenceRedisAddr != "" {
		return presence.NewRedisStore(appConfig.PresenceRedisAddr, "", 0, appConfig.PresenceTTL)
	}
	return presence.NewGormStore(db)
}
