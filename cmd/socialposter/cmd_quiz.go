package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"SocialPoster/internal/app"
	"SocialPoster/internal/config"
	"SocialPoster/internal/logging"
	"SocialPoster/internal/usecase"
)

var quizCmd = &cobra.Command{
	Use:   "quiz <language>",
	Short: "Generate and publish a programming quiz post",
	Args:  cobra.ExactArgs(1),
	RunE:  runQuiz,
}

func runQuiz(cmd *cobra.Command, args []string) error {
	cfg := config.Load()
	logger := logging.New(cfg.Logging.Level)

	application := app.New(cfg, logger)
	defer application.Close()

	report, err := application.RunQuiz(cmd.Context(), args[0])
	if errors.Is(err, usecase.ErrNoNewContent) {
		logger.Info("no fresh quiz questions generated")
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
