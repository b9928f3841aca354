package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/scalarorg/bridge-core/config"
	"github.com/scalarorg/bridge-core/internal/bridge"
	"github.com/scalarorg/bridge-core/pkg/api"
	"github.com/scalarorg/bridge-core/pkg/db"
	"github.com/scalarorg/bridge-core/pkg/events"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	environment string
	rootCmd     = &cobra.Command{
		Use:   "bridged",
		Short: "Scalar Bridge",
		Run:   run,
	}
)

// Execute executes the root command.
func Execute() error {
	return rootCmd.Execute()
}

func run(cmd *cobra.Command, args []string) {
	// Load and initialize global config
	if err := config.Load(environment); err != nil {
		panic("Failed to load config: " + err.Error())
	}
	config.InitLogger()

	eventBus := events.NewBus(config.GlobalConfig.EventBus.BufferSize)
	dbAdapter, err := db.NewDatabaseAdapter(config.GlobalConfig)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create database adapter")
	}

	service, err := bridge.NewService(config.GlobalConfig, dbAdapter, eventBus)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create bridge service")
	}

	if err := service.Start(context.TODO()); err != nil {
		log.Fatal().Err(err).Msg("Failed to start bridge service")
	}

	server := api.NewServer(&config.GlobalConfig.API, service)
	go func() {
		if err := server.Start(); err != nil {
			log.Fatal().Err(err).Msg("Failed to start api server")
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down bridge...")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("Failed to shut down api server")
	}
	service.Stop()
	if err := dbAdapter.Close(); err != nil {
		log.Error().Err(err).Msg("Failed to close database adapter")
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(
		&environment,
		"env",
		"local",
		"Environment name to select the configuration file",
	)
	viper.BindPFlag("env", rootCmd.PersistentFlags().Lookup("env"))
}
