package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

// version is set at build time via -ldflags.
var version = "dev"

var rootCmd = &cobra.Command{
	Use:   "socialposter",
	Short: "Automated entertainment-news posting for Instagram and Twitter",
	Long: "SocialPoster pulls entertainment RSS feeds, selects and rewrites the best\n" +
		"headlines with a language model, renders caption cards, and publishes them\n" +
		"to Instagram and Twitter with redis-backed dedup between runs.",
	CompletionOptions: cobra.CompletionOptions{
		HiddenDefaultCmd: true,
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(quizCmd)
	rootCmd.Version = version
}

func main() {
	_ = godotenv.Load()

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
