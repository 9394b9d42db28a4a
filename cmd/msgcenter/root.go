package main

import (
	"os"

	"tarun-kavipurapu/msgcenter/pkg/config"
	"tarun-kavipurapu/msgcenter/pkg/logger"

	"github.com/spf13/cobra"
)

var (
	configPath string
	logLevel   string
	logFile    string

	cfg config.Config
)

var rootCmd = &cobra.Command{
	Use:   "msgcenter",
	Short: "Length-prefixed message stream server and client",
	Long:  `Reassembles 4-byte length-prefixed frames from TCP byte streams, with a demo server and burst client.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		cfg = config.Default()
		if configPath != "" {
			loaded, err := config.Load(configPath)
			if err != nil {
				return err
			}
			cfg = loaded
		}
		if cmd.Flags().Changed("log-level") {
			cfg.LogLevel = logLevel
		}
		if cmd.Flags().Changed("log-file") {
			cfg.LogFile = logFile
		}
		return logger.Configure(cfg.LogLevel, cfg.LogFile)
	},
	SilenceUsage: true,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		logger.Sugar.Error(err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Path to a TOML config file")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "Log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&logFile, "log-file", "", "Append logs to this file instead of stderr")
}
