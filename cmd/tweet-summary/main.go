// Command tweet-summary writes a detailed engagement analysis of a JSON dump
// produced by tweet-thread.
package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/charmbracelet/glamour"
	"github.com/spf13/cobra"

	"github.com/anatolykoptev/go-twitter-thread/internal/report"
)

var (
	outputDir string
	printOut  bool
)

var rootCmd = &cobra.Command{
	Use:           "tweet-summary <json-file>",
	Short:         "Analyze a tweet-thread JSON dump",
	Args:          cobra.ExactArgs(1),
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		records, err := report.LoadRecords(args[0])
		if err != nil {
			return err
		}
		slog.Info("tweets loaded", slog.String("file", args[0]), slog.Int("count", len(records)))

		path, md, err := report.NewWriter(outputDir).WriteAnalysis(records)
		if err != nil {
			return err
		}
		slog.Info("analysis saved", slog.String("path", path))

		if !printOut {
			return nil
		}
		r, err := glamour.NewTermRenderer(glamour.WithAutoStyle(), glamour.WithWordWrap(80))
		if err != nil {
			return fmt.Errorf("terminal renderer: %w", err)
		}
		out, err := r.Render(report.StripFrontMatter(md))
		if err != nil {
			return fmt.Errorf("render analysis: %w", err)
		}
		fmt.Fprint(cmd.OutOrStdout(), out)
		return nil
	},
}

func init() {
	rootCmd.Flags().StringVar(&outputDir, "output-dir", report.DefaultOutputDir, "directory for the analysis file")
	rootCmd.Flags().BoolVar(&printOut, "print", false, "also render the analysis to the terminal")
}

func main() {
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, nil)))
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
