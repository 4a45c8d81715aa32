package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	lightapiv1 "github.com/moodlight-community/moodlight-agent/api/lightapi/v1"
	"github.com/moodlight-community/moodlight-agent/pkg/lightctlconfig"
	"github.com/moodlight-community/moodlight-agent/pkg/log"
	"github.com/sierrasoftworks/humane-errors-go"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
)

var (
	grpcAddr   string
	configPath string
	lightName  string
	timeout    time.Duration
)

func init() {
	flags := pflag.NewFlagSet("lightctl", pflag.ContinueOnError)
	flags.StringVar(&grpcAddr, "addr", "", "address of the moodlight-agent gRPC server (overrides the configuration file)")
	flags.StringVar(&configPath, "config", "", "path to the lightctl configuration file (default $HOME/.config/lightctl/config.yaml)")
	flags.StringVar(&lightName, "light", "", "name of the light to talk to (overrides current-light)")
	flags.DurationVar(&timeout, "timeout", 10*time.Second, "timeout for gRPC requests")
	rootCmd.PersistentFlags().AddFlagSet(flags)

	rootCmd.AddCommand(cmdSet)
	rootCmd.AddCommand(cmdGet)
	rootCmd.AddCommand(cmdRemove)
	rootCmd.AddCommand(cmdDescribe)
}

var (
	cmdSet = &cobra.Command{
		Use:   "set",
		Short: "Configure the light",
	}

	cmdGet = &cobra.Command{
		Use:   "get",
		Short: "Read the state of the light",
	}

	cmdRemove = &cobra.Command{
		Use:     "remove",
		Aliases: []string{"rm", "unset"},
		Short:   "Clear a setting or stop a running effect",
	}

	cmdDescribe = &cobra.Command{
		Use:   "describe",
		Short: "Show detailed information about the light",
	}
)

var rootCmd = &cobra.Command{
	Use:     "lightctl",
	Short:   "lightctl interacts with the moodlight-agent and controls the LED strip it drives",
	Version: fmt.Sprintf("%s (commit %s, built %s)", Version, Commit, Date),
	PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
		origCtx := cmd.Context()

		// setup signal handlers for SIGINT and SIGTERM
		ctx, cancelCtx := context.WithTimeout(origCtx, timeout)

		// setup signal handler channels
		sigs := make(chan os.Signal, 1)
		signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)
		go func() {
			select {
			// Wait for context cancel
			case <-ctx.Done():

			// Wait for signal
			case sig := <-sigs:
				switch sig {
				case syscall.SIGTERM, syscall.SIGINT, syscall.SIGQUIT:
					cancelCtx()

				default:
					log.FromContext(ctx).Warn("Received unknown signal", zap.String("signal", sig.String()))
				}
			}
		}()

		target, err := resolveTarget()
		if err != nil {
			return err
		}

		conn, err := grpc.NewClient(target, grpc.WithTransportCredentials(insecure.NewCredentials()))
		if err != nil {
			return humane.Wrap(err, "failed to dial grpc server", "ensure the gRPC server you are trying to connect to is running and the address is correct")
		}

		client := lightapiv1.NewLightServiceClient(conn)
		cmd.SetContext(clientIntoContext(ctx, client))
		return nil
	},
}

// resolveTarget picks the agent address: --addr wins, then the selected light
// from the configuration file, then the agent's default socket.
func resolveTarget() (string, error) {
	if grpcAddr != "" {
		return lightctlconfig.Light{Server: grpcAddr}.Target(), nil
	}

	v := viper.New()
	v.SetConfigType("yaml")
	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		home, err := os.UserHomeDir()
		if err != nil {
			return defaultTarget(), nil
		}
		v.SetConfigFile(filepath.Join(home, ".config", "lightctl", "config.yaml"))
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if configPath == "" && (errors.As(err, &notFound) || errors.Is(err, os.ErrNotExist)) {
			return defaultTarget(), nil
		}
		return "", humane.Wrap(err, "failed to read lightctl configuration",
			"ensure the configuration file exists and is valid YAML",
			"use --addr to talk to an agent without a configuration file",
		)
	}

	var config lightctlconfig.LightctlConfig
	if err := v.Unmarshal(&config); err != nil {
		return "", humane.Wrap(err, "failed to parse lightctl configuration", "check the lights and current-light keys")
	}
	if lightName != "" {
		config.CurrentLight = lightName
	}

	light, herr := lightctlconfig.FindCurrentLight(config)
	if herr != nil {
		return "", herr
	}
	return light.Target(), nil
}

func defaultTarget() string {
	return lightctlconfig.Light{Server: "/tmp/moodlight-agent.sock"}.Target()
}
