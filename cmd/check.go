package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/uriiusero/chatterino7/internal/config"
	"github.com/uriiusero/chatterino7/internal/logging"
	"github.com/uriiusero/chatterino7/internal/updater"
	"github.com/uriiusero/chatterino7/internal/version"
)

// CreateCheckCmd creates the check command, a one-shot release-feed
// query that prints the result and exits.
func CreateCheckCmd() *cobra.Command {
	var configFile string
	var endpoint string
	var channel string
	var logJSON bool

	checkCmd := &cobra.Command{
		Use:   "check",
		Short: "Check the release feed once",
		Long: `Queries the release feed for the latest published version, compares it ` +
			`against this build and prints the outcome. Nothing is downloaded.`,
		Args: cobra.NoArgs,
		Run: func(_ *cobra.Command, _ []string) {
			loggingConfig := config.LoadLoggingConfig(configFile)
			if logJSON {
				loggingConfig.Format = "json"
			}
			logging.Initialize(loggingConfig)
			logger := logging.GetLogger("check")

			if reason := version.UpdateCheckDisabledReason(); reason != "" {
				fmt.Printf("update checking is disabled: %s\n", reason)
				os.Exit(2)
			}

			platform := updater.DetectPlatform(false)
			query := updater.NewReleaseQuery(endpoint, platform)

			rel, err := query.Check(context.Background(), channel)
			if err != nil {
				logger.Error("Release feed check failed", "error", err)
				fmt.Printf("check failed: %v\n", err)
				os.Exit(1)
			}

			current := version.String()
			online := version.NormalizeTag(rel.TagName)
			switch version.Compare(online, current) {
			case version.OrderEqual:
				fmt.Printf("up to date (%s)\n", current)
			case version.OrderIncomparable:
				fmt.Printf("cannot compare %q against %s\n", rel.TagName, current)
				os.Exit(1)
			case version.OrderLess:
				fmt.Printf("feed offers %s, older than this build (%s)\n", rel.TagName, current)
			default:
				fmt.Printf("update available: %s (running %s)\n", rel.TagName, current)
			}
		},
	}

	checkCmd.Flags().StringVarP(&configFile, "config", "c", "config.toml", "Path to configuration file")
	checkCmd.Flags().StringVar(&endpoint, "endpoint", updater.DefaultEndpoint, "Release feed endpoint")
	checkCmd.Flags().StringVar(&channel, "channel", "stable", "Release channel (stable, beta)")
	checkCmd.Flags().BoolVar(&logJSON, "log-json", false, "Log in JSON format")

	return checkCmd
}
