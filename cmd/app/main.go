package main

import (
	"fmt"
	"os"

	"github.com/Domenick1991/garagebooking/config"
	"github.com/Domenick1991/garagebooking/internal/logging"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var cfgPath string

	root := &cobra.Command{
		Use:           "garagebooking",
		Short:         "Garage booking and payment service",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&cfgPath, "config", "", "path to config file (default $CONFIG_PATH or config.yaml)")

	load := func() (*config.Config, *logrus.Logger, error) {
		path := cfgPath
		if path == "" {
			path = os.Getenv("CONFIG_PATH")
		}
		if path == "" {
			path = "config.yaml"
		}
		cfg, err := config.LoadConfig(path)
		if err != nil {
			return nil, nil, fmt.Errorf("load config: %w", err)
		}
		log, err := logging.New(cfg.Log)
		if err != nil {
			return nil, nil, err
		}
		return cfg, log, nil
	}

	root.AddCommand(newServeCmd(load))
	root.AddCommand(newMigrateCmd(load))
	root.AddCommand(newQuoteCmd(load))
	root.AddCommand(newAuditCmd(load))
	return root
}

type loader func() (*config.Config, *logrus.Logger, error)
