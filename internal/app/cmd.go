package app

import (
	"fmt"
	"runtime"

	"github.com/radiocast/radio/internal/build"
	"github.com/radiocast/radio/internal/config"

	"github.com/spf13/cobra"
)

// Radio returns the root command.
func Radio() *cobra.Command {
	var configFile string
	cmd := &cobra.Command{
		Use:           "radio",
		Short:         "Radio",
		Long:          "Radio – client for channel broadcasting servers",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.PersistentFlags().StringVarP(&configFile, "config", "c", "config.json", "path to config file")
	config.DefineFlags(cmd)
	cmd.AddCommand(listenCommand(&configFile), whisperCommand(&configFile), versionCommand())
	return cmd
}

func listenCommand(configFile *string) *cobra.Command {
	var opts ListenOptions
	cmd := &cobra.Command{
		Use:   "listen",
		Short: "Join channels and log received events",
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := setup(cmd, *configFile)
			if err != nil {
				return err
			}
			defer env.close()
			return Listen(cmd.Context(), env, opts)
		},
	}
	cmd.Flags().StringSliceVar(&opts.Channels, "channel", nil, "public channel to join, can be repeated")
	cmd.Flags().StringSliceVar(&opts.Private, "private", nil, "private channel to join, without prefix")
	cmd.Flags().StringSliceVar(&opts.Presence, "presence", nil, "presence channel to join, without prefix")
	cmd.Flags().StringSliceVar(&opts.Events, "event", nil, "event to listen for on every joined channel")
	return cmd
}

func whisperCommand(configFile *string) *cobra.Command {
	var opts WhisperOptions
	cmd := &cobra.Command{
		Use:   "whisper",
		Short: "Send a client event to a private channel",
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := setup(cmd, *configFile)
			if err != nil {
				return err
			}
			defer env.close()
			return Whisper(cmd.Context(), env, opts)
		},
	}
	cmd.Flags().StringVar(&opts.Channel, "private", "", "private channel, without prefix")
	cmd.Flags().StringVar(&opts.Event, "event", "", "client event name, without client- prefix")
	cmd.Flags().StringVar(&opts.Data, "data", "null", "JSON payload")
	_ = cmd.MarkFlagRequired("private")
	_ = cmd.MarkFlagRequired("event")
	return cmd
}

func versionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Radio version information",
		Run: func(cmd *cobra.Command, args []string) {
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Radio v%s (Go version: %s)\n", build.Version, runtime.Version())
		},
	}
}
