// Package cmd implements the sunward command line interface.
package cmd

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/sunwardhq/sunward/internal/rules"
	"github.com/sunwardhq/sunward/internal/version"
)

var (
	configFilename string
	RootCmd        = cobra.Command{
		Use:     "sunward",
		Short:   "schedules a device over MQTT by time and solar windows",
		Version: version.BuildVersion,
		RunE:    run,
	}
)

func init() {
	cobra.OnInitialize(initConfig)
	RootCmd.PersistentFlags().StringVar(&configFilename, "config", "", "Configuration file")
	RootCmd.PersistentFlags().Bool("debug", false, "Log debug messages")
	_ = viper.BindPFlag("debug", RootCmd.PersistentFlags().Lookup("debug"))

	RootCmd.AddCommand(&runCmd, &checkCmd)
}

func initConfig() {
	if configFilename != "" {
		viper.SetConfigFile(configFilename)
	} else {
		viper.AddConfigPath("/etc/sunward/")
		viper.AddConfigPath("$HOME/.sunward")
		viper.AddConfigPath(".")
		viper.SetConfigName("config")
	}

	viper.SetDefault("debug", false)
	viper.SetDefault("mqtt.url", "tcp://127.0.0.1:1883")
	viper.SetDefault("mqtt.clientId", "sunward")
	viper.SetDefault("mqtt.connectTimeout", 30*time.Second)
	viper.SetDefault("topics.control", "cmnd/device/")
	viper.SetDefault("topics.events", "stat/device/")
	viper.SetDefault("location.latitude", 0.0)
	viper.SetDefault("location.longitude", 0.0)
	viper.SetDefault("rules", "rules.yaml")
	viper.SetDefault("heartbeat.interval", time.Minute)
	viper.SetDefault("engine.interval", time.Minute)
	viper.SetDefault("engine.applyTimeout", 10*time.Second)
	viper.SetDefault("presence.timeout", 20*time.Second)
	viper.SetDefault("ledger.path", "sunward.db")
	viper.SetDefault("ledger.retention", 30*24*time.Hour)
	viper.SetDefault("metrics.addr", ":9090")
	viper.SetDefault("health.addr", ":8080")

	viper.SetEnvPrefix("SUNWARD")
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		// every setting has a default, so running without a config file is fine
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			slog.Error("failed to read config file", "err", err)
			os.Exit(1)
		}
	}
}

func newLogger() *slog.Logger {
	var opts slog.HandlerOptions
	if viper.GetBool("debug") {
		opts.Level = slog.LevelDebug
	}
	return slog.New(slog.NewJSONHandler(os.Stderr, &opts))
}

func loadResolver(logger *slog.Logger) (rules.Resolver, error) {
	path := viper.GetString("rules")
	f, err := os.Open(path)
	if err != nil {
		return rules.Resolver{}, fmt.Errorf("rules: %w", err)
	}
	defer func() { _ = f.Close() }()

	descriptors, err := rules.Load(f)
	if err != nil {
		return rules.Resolver{}, fmt.Errorf("rules %s: %w", path, err)
	}
	return rules.Resolver{
		Descriptors: descriptors,
		Location: rules.Location{
			Latitude:  viper.GetFloat64("location.latitude"),
			Longitude: viper.GetFloat64("location.longitude"),
		},
		Logger: logger.With(slog.String("component", "rules")),
	}, nil
}
