// Command touch runs the contact form service and its maintenance tasks.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/stereo-express/touch"
	"github.com/stereo-express/touch/pkg/cl/config"
	"github.com/stereo-express/touch/pkg/cl/logger"
)

var (
	// configFile is set by the --config flag.
	configFile string

	cfg *config.Config
	log logger.Logger
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "touch",
	Short: "Touch is a site-wide contact form",
	Long: `Touch serves a contact form whose messages are stored and mailed to the
address of the chosen subject, plus an admin area to review, edit and delete
the stored submissions.`,
	SilenceUsage:      true,
	PersistentPreRunE: loadConfig,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "config.yaml", "config file")

	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(migrateCmd)
	rootCmd.AddCommand(subjectsCmd)
	rootCmd.AddCommand(hashPasswordCmd)
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "touch v%s\n", touch.Version)
	},
}

func loadConfig(cmd *cobra.Command, args []string) error {
	cfg = config.LoadFile(configFile)
	log = logger.New(cfg.Log.Level)
	return nil
}
