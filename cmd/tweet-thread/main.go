// Command tweet-thread collects a tweet and its replies, a few levels deep,
// into a JSON dump and a Markdown summary.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/anatolykoptev/go-twitter-thread/internal/config"
	"github.com/anatolykoptev/go-twitter-thread/internal/report"
	"github.com/anatolykoptev/go-twitter-thread/internal/session"
	"github.com/anatolykoptev/go-twitter-thread/internal/thread"
)

const defaultURL = "https://x.com/Dwriteway/status/1991025255859544564"

var rootCmd = &cobra.Command{
	Use:   "tweet-thread [tweet-url]",
	Short: "Extract a tweet's reply thread to JSON and Markdown",
	Long: `tweet-thread fetches a tweet, searches its conversation for replies up to
max_depth levels deep and writes two files to output_dir:

  tweet-thread-<id>-<timestamp>.json   every collected tweet
  tweet-summary-<id>-<timestamp>.md    a digest grouped by reply level

TWITTER_USERNAME and TWITTER_PASSWORD enable a logged-in session; without
them the run is anonymous and may return fewer replies.`,
	Args:          cobra.MaximumNArgs(1),
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		url := defaultURL
		if len(args) == 1 {
			url = args[0]
		}
		return run(cmd.Context(), url)
	},
}

// threadSession is the part of a session a run uses.
type threadSession interface {
	thread.Source
	UsesCredentials() bool
	Logout(ctx context.Context) error
	Stats() session.RequestStats
}

var openSession = func(ctx context.Context, cfg *config.Config) (threadSession, error) {
	s, err := session.Open(ctx, cfg)
	if err != nil {
		return nil, err
	}
	return s, nil
}

func run(ctx context.Context, url string) error {
	cfg, err := config.Load("")
	if err != nil {
		return err
	}
	setupLogger(cfg)

	slog.Info("starting extraction", slog.String("url", url))
	rootID, err := thread.ParseStatusURL(url)
	if err != nil {
		return err
	}
	order, err := thread.ParseOrder(cfg.Order)
	if err != nil {
		return err
	}
	opts := thread.Options{MaxDepth: cfg.MaxDepth, SearchLimit: cfg.SearchLimit, Order: order}
	if err := opts.Validate(); err != nil {
		return err
	}
	if cfg.File != "" {
		slog.Debug("config loaded", slog.String("file", cfg.File))
	}

	sess, err := openSession(ctx, cfg)
	if err != nil {
		return err
	}
	walker, err := thread.NewWalker(sess, opts)
	if err != nil {
		return err
	}

	res, err := walker.Walk(ctx, rootID)
	if err != nil {
		return err
	}
	slog.Info("thread collected",
		slog.Int("tweets", len(res.Records)),
		slog.Int("searches", res.Searches),
		slog.Int("failed_branches", len(res.Failures)))

	paths, err := report.NewWriter(cfg.OutputDir).WriteThread(rootID, res.Records)
	if err != nil {
		return err
	}
	st := sess.Stats()
	slog.Info("extraction complete",
		slog.String("json", paths.JSON),
		slog.String("summary", paths.Summary),
		slog.Int64("requests", st.Requests),
		slog.Int64("failed_requests", st.Failed),
		slog.Int64("rate_limited", st.RateLimited))

	if sess.UsesCredentials() {
		if err := sess.Logout(ctx); err != nil {
			slog.Warn("logout failed", slog.Any("error", err))
		}
	}
	return nil
}

func setupLogger(cfg *config.Config) {
	h := slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.SlogLevel()})
	slog.SetDefault(slog.New(h).With(slog.String("run", uuid.NewString())))
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		slog.Error("extraction failed", slog.Any("error", err))
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
