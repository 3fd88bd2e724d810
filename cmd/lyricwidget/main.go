package main

import (
	"os"

	"github.com/spf13/cobra"
)

func main() {
	root := &cobra.Command{
		Use:           "lyricwidget",
		Short:         "Audio player widget with synchronized lyrics and a live spectrum",
		SilenceUsage:  true,
		SilenceErrors: false,
	}
	root.PersistentFlags().StringVar(&configPath, "config", "", "config file (default $XDG_CONFIG_HOME/lyricwidget/config.toml)")
	root.AddCommand(
		playCmd(),
		parseCmd(),
		saveCmd(),
		urlCmd(),
	)
	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}
