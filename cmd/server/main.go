package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/actuallystonmai/song-recommendation-service/internal/config"
	"github.com/actuallystonmai/song-recommendation-service/internal/logging"
)

var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "songrec",
	Short: "Song recommendations from a short rating session",
	Long: `songrec serves rating sessions over HTTP: a user rates a random sample of
songs and gets back the catalog songs closest to the star-weighted centre
of what they rated. The train command builds the model the server loads.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		loaded, err := config.Load()
		if err != nil {
			return err
		}
		cfg = loaded
		logging.Init(logging.Config{Level: cfg.LogLevel, Format: cfg.LogFormat})
		return nil
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServe(cmd.Context())
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(trainCmd)
	rootCmd.AddCommand(seedCmd)
	rootCmd.AddCommand(migrateUpCmd)
	rootCmd.AddCommand(migrateDownCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
