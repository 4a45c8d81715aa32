package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/moodlight-community/moodlight-agent/internal/agent"
	"github.com/moodlight-community/moodlight-agent/pkg/log"
	"github.com/sierrasoftworks/humane-errors-go"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

var (
	Version string
	Commit  string
	Date    string
)

const shutdownTimeout = 10 * time.Second

var (
	configFile string
	debug      bool
)

var rootCmd = &cobra.Command{
	Use:     "moodlight-agent",
	Short:   "moodlight-agent drives an addressable LED strip with scenes, wake alarms and sleep timers",
	Version: fmt.Sprintf("%s (commit %s, built %s)", Version, Commit, Date),
	Args:    cobra.NoArgs,
	RunE:    runAgent,
}

func init() {
	rootCmd.Flags().StringVarP(&configFile, "config", "c", "", "path to the agent configuration file")
	rootCmd.Flags().BoolVar(&debug, "debug", false, "enable debug logging")
	rootCmd.Flags().String("driver", "", "LED transmitter driver: auto, rp1, spi, serial or terminal")
	rootCmd.Flags().Int("count", 0, "number of LEDs on the strip")
	rootCmd.Flags().String("listen", "", "gRPC listen address")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func newLogger() (*zap.Logger, error) {
	if debug {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}

func loadConfig(cmd *cobra.Command) (agent.AgentConfig, humane.Error) {
	v := viper.New()
	agent.SetDefaults(v)

	v.SetEnvPrefix("MOODLIGHT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	for key, flag := range map[string]string{
		"strip.driver": "driver",
		"strip.count":  "count",
		"listen.grpc":  "listen",
	} {
		if f := cmd.Flags().Lookup(flag); f != nil && f.Changed {
			_ = v.BindPFlag(key, f)
		}
	}

	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath("/etc/moodlight-agent")
		v.AddConfigPath("$HOME/.config/moodlight")
		v.AddConfigPath(".")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return agent.AgentConfig{}, humane.Wrap(err, "failed to read agent configuration",
				"ensure the configuration file exists and is valid YAML",
			)
		}
	}

	return agent.LoadConfig(v)
}

func runAgent(cmd *cobra.Command, _ []string) error {
	logger, err := newLogger()
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()
	zap.ReplaceGlobals(logger)

	ctx, cancelCtx := context.WithCancelCause(log.IntoContext(cmd.Context(), logger))
	defer cancelCtx(context.Canceled)

	config, herr := loadConfig(cmd)
	if herr != nil {
		logger.Fatal("Invalid configuration", humane.Zap(herr)...)
	}

	// setup signal handlers for SIGINT and SIGTERM
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)
	defer signal.Stop(sigs)
	go func() {
		select {
		case <-ctx.Done():
		case sig := <-sigs:
			logger.Info("Received signal, shutting down", zap.String("signal", sig.String()))
			cancelCtx(context.Canceled)
		}
	}()

	a, err := agent.NewMoodlightAgent(ctx, config)
	if err != nil {
		var herr humane.Error
		if errors.As(err, &herr) {
			logger.Fatal("Failed to create agent", humane.Zap(herr)...)
		}
		logger.Fatal("Failed to create agent", zap.Error(err))
	}

	a.RunAsync(ctx, cancelCtx)
	<-ctx.Done()

	stopCtx, cancelStop := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
	defer cancelStop()
	if err := a.GracefulStop(stopCtx); err != nil {
		logger.Error("Failed to shut down cleanly", zap.Error(err))
	}

	if cause := context.Cause(ctx); cause != nil && !errors.Is(cause, context.Canceled) {
		return cause
	}
	return nil
}
