package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"SocialPoster/internal/app"
	"SocialPoster/internal/config"
	"SocialPoster/internal/domain"
	"SocialPoster/internal/logging"
	"SocialPoster/internal/usecase"
)

var runPlatforms []string

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Execute one posting pass and exit",
	RunE:  runOnce,
}

func init() {
	runCmd.Flags().StringSliceVar(&runPlatforms, "platform", nil, "platforms to publish to (instagram, twitter); default is all")
}

func runOnce(cmd *cobra.Command, _ []string) error {
	cfg := config.Load()
	logger := logging.New(cfg.Logging.Level)

	application := app.New(cfg, logger)
	defer application.Close()

	report, err := application.RunOnce(cmd.Context(), runPlatforms)
	if errors.Is(err, usecase.ErrNoNewContent) {
		logger.Info("nothing to post, all candidates already used")
		return nil
	}
	if err != nil {
		return err
	}

	printReport(report)
	if !report.Success {
		return fmt.Errorf("one or more publishes failed")
	}
	return nil
}

func printReport(report domain.Report) {
	for _, o := range report.Outcomes {
		if o.Success {
			fmt.Printf("%-10s ok    %s (%s)\n", o.Platform, o.Title, o.ExternalID)
		} else {
			fmt.Printf("%-10s FAIL  %s: %s\n", o.Platform, o.Title, o.Error)
		}
	}
}
