package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/xiaot623/gogo/imagechat/internal/config"
)

var (
	configPath string
	version    string = "dev"
	commit     string = "unknown"
	date       string = "unknown"
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "imagechat",
	Short: "Chat about an uploaded image with a multimodal model",
	Long: `imagechat serves a browser UI for asking questions about an image.

Upload a PNG or JPG, ask about it, and have the latest answer read aloud.
The API key is entered per session in the page and is never read from
the environment.

Quick Start:
  imagechat serve                        # Serve the UI on :8080
  imagechat serve --config imagechat.yaml
  imagechat check --api-key sk-...       # Verify the key and models`,
	Version: fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, date),
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "YAML config file (environment variables override it)")

	rootCmd.SetVersionTemplate(`{{printf "%s\n" .Version}}`)
}

// loadConfig reads the config file when one is given, else the environment.
func loadConfig() (*config.Config, error) {
	if configPath == "" {
		return config.Load(), nil
	}
	return config.LoadFile(configPath)
}
