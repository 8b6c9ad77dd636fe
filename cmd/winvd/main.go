package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/winvd/winvd/internal/config"
	"github.com/winvd/winvd/internal/logging"
)

var (
	version = "0.1.0"
	cfgFile string
	cfg     *config.Config

	log = logging.L("cli")
)

var rootCmd = &cobra.Command{
	Use:   "winvd",
	Short: "Windows virtual desktop control",
	Long:  `winvd - enumerate, switch, create and remove Windows virtual desktops, and move windows between them`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.Load(cfgFile)
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		logging.Init(cfg.LogFormat, cfg.LogLevel, os.Stderr)
		return nil
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("winvd v%s\n", version)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is the platform config dir)")

	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(currentCmd)
	rootCmd.AddCommand(switchCmd)
	rootCmd.AddCommand(nextCmd)
	rootCmd.AddCommand(prevCmd)
	rootCmd.AddCommand(createCmd)
	rootCmd.AddCommand(removeCmd)
	rootCmd.AddCommand(moveWindowCmd)
	rootCmd.AddCommand(windowsCmd)
	rootCmd.AddCommand(exportCmd)
	rootCmd.AddCommand(serveCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
