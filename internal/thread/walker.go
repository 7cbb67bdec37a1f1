package thread

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"log/slog"
	"slices"
	"strings"
	"time"

	twitter "github.com/anatolykoptev/go-twitter-thread"
)

const (
	// DefaultMaxDepth is how many reply levels a walk explores.
	DefaultMaxDepth = 3
	// MaxDepthLimit is the deepest walk a Walker accepts.
	MaxDepthLimit = 5
	// DefaultSearchLimit caps the tweets requested per conversation search.
	DefaultSearchLimit = 100
)

// ErrRootNotFound is returned when the root tweet cannot be loaded.
var ErrRootNotFound = errors.New("root tweet not found")

// Source is the subset of the Twitter client a walk needs.
type Source interface {
	GetTweet(ctx context.Context, id string) (*twitter.Tweet, error)
	SearchTweets(ctx context.Context, query string, limit int) iter.Seq2[*twitter.Tweet, error]
}

// Order selects how pending tweets are expanded.
type Order int

const (
	// DepthFirst expands each reply's subtree before its next sibling.
	DepthFirst Order = iota
	// BreadthFirst records every tweet of a level before the next level.
	BreadthFirst
)

func (o Order) String() string {
	if o == BreadthFirst {
		return "breadth-first"
	}
	return "depth-first"
}

// ParseOrder accepts "depth-first"/"dfs" and "breadth-first"/"bfs".
func ParseOrder(s string) (Order, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "depth-first", "dfs":
		return DepthFirst, nil
	case "breadth-first", "bfs":
		return BreadthFirst, nil
	}
	return DepthFirst, fmt.Errorf("unknown traversal order %q", s)
}

// Options configures a Walker. Zero fields take the package defaults.
type Options struct {
	MaxDepth    int
	SearchLimit int
	Order       Order
	// Now stamps records whose tweet carried no creation time.
	Now func() time.Time
}

// Walker collects a conversation into a flat, depth-tagged record list.
type Walker struct {
	src  Source
	opts Options
}

// Validate reports whether opts describe a walk a Walker accepts.
func (o Options) Validate() error {
	if o.MaxDepth != 0 && (o.MaxDepth < 1 || o.MaxDepth > MaxDepthLimit) {
		return fmt.Errorf("max depth %d out of range 1..%d", o.MaxDepth, MaxDepthLimit)
	}
	return nil
}

// NewWalker validates opts and returns a Walker reading from src.
func NewWalker(src Source, opts Options) (*Walker, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	if opts.MaxDepth == 0 {
		opts.MaxDepth = DefaultMaxDepth
	}
	if opts.SearchLimit <= 0 {
		opts.SearchLimit = DefaultSearchLimit
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Walker{src: src, opts: opts}, nil
}

// BranchResult is the outcome of expanding one tweet: the conversation
// items found for it and, if the search stopped early, the reason.
type BranchResult struct {
	ParentID string
	Depth    int
	Items    []*twitter.Tweet
	Err      error
}

// Failed reports whether the branch search failed.
func (b BranchResult) Failed() bool { return b.Err != nil }

// BranchFailure records a branch whose search stopped on an error.
type BranchFailure struct {
	ParentID string
	Depth    int
	Err      error
}

// Result is the outcome of a walk.
type Result struct {
	// Records holds the root at index 0 followed by replies in traversal order.
	Records  []Record
	Failures []BranchFailure
	Searches int
}

// frame is a discovered tweet waiting to be recorded and expanded.
type frame struct {
	tweet *twitter.Tweet
	depth int
}

// Walk loads rootID and explores its conversation up to MaxDepth levels.
// Only the root fetch is fatal. A failed branch search is recorded in
// Result.Failures; replies it yielded before failing are still recorded
// and expanded, and no further replies are read from it.
// Tweets are not deduplicated: a tweet reachable from several branches is
// recorded once per branch.
func (w *Walker) Walk(ctx context.Context, rootID string) (*Result, error) {
	root, err := w.src.GetTweet(ctx, rootID)
	if err != nil {
		return nil, fmt.Errorf("fetch root tweet %s: %w", rootID, err)
	}
	if root == nil {
		return nil, fmt.Errorf("%w: %s", ErrRootNotFound, rootID)
	}

	rootRec := Decode(root, 0, w.opts.Now())
	rootRec.ID = rootID
	res := &Result{Records: []Record{rootRec}}
	slog.Info("root tweet fetched",
		slog.String("id", rootID),
		slog.String("author", rootRec.Author),
		slog.String("content", preview(rootRec.Content, 100)))

	var pending []frame
	pending = w.schedule(pending, res, w.expand(ctx, rootID, 1))

	for len(pending) > 0 {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		var f frame
		if w.opts.Order == BreadthFirst {
			f, pending = pending[0], pending[1:]
		} else {
			f, pending = pending[len(pending)-1], pending[:len(pending)-1]
		}

		res.Records = append(res.Records, Decode(f.tweet, f.depth, w.opts.Now()))
		if f.tweet.ID == "" || f.depth+1 > w.opts.MaxDepth {
			continue
		}
		pending = w.schedule(pending, res, w.expand(ctx, f.tweet.ID, f.depth+1))
	}
	return res, nil
}

// expand searches the conversation of id and returns every item other
// than id itself, tagged for depth. Items read before a search error are
// kept alongside it.
func (w *Walker) expand(ctx context.Context, id string, depth int) BranchResult {
	slog.Info("searching replies", slog.String("id", id), slog.Int("depth", depth))
	br := BranchResult{ParentID: id, Depth: depth}
	for t, err := range w.src.SearchTweets(ctx, "conversation_id:"+id, w.opts.SearchLimit) {
		if err != nil {
			br.Err = err
			return br
		}
		if t == nil || t.ID == id {
			continue
		}
		br.Items = append(br.Items, t)
	}
	return br
}

// schedule records a branch failure, if any, and queues the branch's items
// so that pending pops them in traversal order.
func (w *Walker) schedule(pending []frame, res *Result, br BranchResult) []frame {
	res.Searches++
	if br.Failed() {
		slog.Warn("reply search failed, keeping replies read so far",
			slog.String("id", br.ParentID),
			slog.Int("depth", br.Depth),
			slog.Int("kept", len(br.Items)),
			slog.Any("error", br.Err))
		res.Failures = append(res.Failures, BranchFailure{ParentID: br.ParentID, Depth: br.Depth, Err: br.Err})
	} else {
		slog.Info("replies found", slog.String("id", br.ParentID), slog.Int("depth", br.Depth), slog.Int("count", len(br.Items)))
	}

	frames := make([]frame, len(br.Items))
	for i, t := range br.Items {
		frames[i] = frame{tweet: t, depth: br.Depth}
	}
	if w.opts.Order == DepthFirst {
		slices.Reverse(frames)
	}
	return append(pending, frames...)
}

func preview(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}
