package report

import (
	"cmp"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"
	"unicode/utf8"

	"go.yaml.in/yaml/v3"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/anatolykoptev/go-twitter-thread/internal/thread"
)

const (
	topReplies       = 20
	topAnalysisUsers = 15
	topWords         = 30
	minWordRunes     = 5
	longTweetRunes   = 200
	replyMaxLen      = 500

	highLikes   = 10
	mediumLikes = 3
)

// AuthorStats aggregates one author's replies.
type AuthorStats struct {
	Author   string
	Tweets   int
	Likes    int
	Retweets int
}

// AvgLikes is the mean likes per tweet.
func (a AuthorStats) AvgLikes() float64 {
	if a.Tweets == 0 {
		return 0
	}
	return float64(a.Likes) / float64(a.Tweets)
}

// WordCount is one row of the frequent-words table.
type WordCount struct {
	Word  string
	Count int
}

// Analysis holds the statistics of a walked thread. Replies are every
// record after the root.
type Analysis struct {
	GeneratedAt time.Time
	Root        thread.Record
	Total       int
	Replies     []thread.Record

	// TopReplies is ordered by EngagementScore, ties in input order.
	TopReplies    []thread.Record
	UniqueAuthors int
	TopAuthors    []AuthorStats

	First, Last time.Time
	Timestamped int

	Likes, Retweets, ReplyCount int

	Words      []WordCount
	AvgLength  float64
	LongTweets int

	High, Medium, Low int
}

// EngagementScore weighs a retweet as two likes.
func EngagementScore(r thread.Record) int {
	return r.Likes + 2*r.Retweets
}

// Analyze computes the statistics for records. records[0] is the root.
func Analyze(records []thread.Record, now time.Time) (*Analysis, error) {
	if len(records) == 0 {
		return nil, ErrNoRecords
	}
	a := &Analysis{
		GeneratedAt: now,
		Root:        records[0],
		Total:       len(records),
		Replies:     records[1:],
	}

	a.TopReplies = slices.Clone(a.Replies)
	slices.SortStableFunc(a.TopReplies, func(x, y thread.Record) int {
		return cmp.Compare(EngagementScore(y), EngagementScore(x))
	})
	a.TopReplies = a.TopReplies[:min(topReplies, len(a.TopReplies))]

	authors := rank(a.Replies, -1, func(r thread.Record) string { return r.Author })
	a.UniqueAuthors = len(authors)
	for _, ac := range authors[:min(topAnalysisUsers, len(authors))] {
		st := AuthorStats{Author: ac.Author, Tweets: ac.Count}
		for _, r := range a.Replies {
			if r.Author == ac.Author {
				st.Likes += r.Likes
				st.Retweets += r.Retweets
			}
		}
		a.TopAuthors = append(a.TopAuthors, st)
	}

	var words []string
	var length int
	for _, r := range records {
		a.Likes += r.Likes
		a.Retweets += r.Retweets
		a.ReplyCount += r.Replies

		n := utf8.RuneCountInString(r.Content)
		length += n
		if n > longTweetRunes {
			a.LongTweets++
		}
		for _, w := range strings.Fields(strings.ToLower(r.Content)) {
			if utf8.RuneCountInString(w) >= minWordRunes {
				words = append(words, w)
			}
		}

		if r.CreatedAt.IsZero() {
			continue
		}
		a.Timestamped++
		if a.First.IsZero() || r.CreatedAt.Before(a.First) {
			a.First = r.CreatedAt
		}
		if r.CreatedAt.After(a.Last) {
			a.Last = r.CreatedAt
		}
	}
	a.AvgLength = float64(length) / float64(len(records))
	for _, wc := range rank(words, topWords, func(w string) string { return w }) {
		a.Words = append(a.Words, WordCount{Word: wc.Author, Count: wc.Count})
	}

	for _, r := range a.Replies {
		switch {
		case r.Likes >= highLikes:
			a.High++
		case r.Likes >= mediumLikes:
			a.Medium++
		default:
			a.Low++
		}
	}
	return a, nil
}

type frontMatter struct {
	Title         string `yaml:"title"`
	RootID        string `yaml:"root_id"`
	Author        string `yaml:"author"`
	Tweets        int    `yaml:"tweets"`
	Replies       int    `yaml:"replies"`
	UniqueAuthors int    `yaml:"unique_authors"`
	Likes         int    `yaml:"likes"`
	Retweets      int    `yaml:"retweets"`
	Generated     string `yaml:"generated"`
}

// RenderAnalysis renders a as Markdown preceded by YAML front matter.
func RenderAnalysis(a *Analysis) (string, error) {
	fm, err := yaml.Marshal(frontMatter{
		Title:         "Detailed thread analysis",
		RootID:        a.Root.ID,
		Author:        a.Root.Author,
		Tweets:        a.Total,
		Replies:       len(a.Replies),
		UniqueAuthors: a.UniqueAuthors,
		Likes:         a.Likes,
		Retweets:      a.Retweets,
		Generated:     isoTime(a.GeneratedAt),
	})
	if err != nil {
		return "", fmt.Errorf("encode front matter: %w", err)
	}

	p := message.NewPrinter(language.English)
	var b strings.Builder
	b.WriteString("---\n")
	b.Write(fm)
	b.WriteString("---\n\n")

	b.WriteString("# Detailed Thread Analysis\n\n")
	fmt.Fprintf(&b, "**Generated:** %s\n", a.GeneratedAt.Format(time.DateTime))
	fmt.Fprintf(&b, "**Total tweets:** %d\n\n", a.Total)

	root := a.Root
	b.WriteString("## Main tweet\n\n")
	fmt.Fprintf(&b, "**Author:** @%s\n", root.Author)
	fmt.Fprintf(&b, "**Date:** %s\n\n", isoTime(root.CreatedAt))
	fmt.Fprintf(&b, "> %s\n\n", root.Content)
	b.WriteString("**Engagement:**\n")
	p.Fprintf(&b, "- Likes: %d\n", root.Likes)
	p.Fprintf(&b, "- Retweets: %d\n", root.Retweets)
	p.Fprintf(&b, "- Replies: %d\n", root.Replies)
	p.Fprintf(&b, "- Total: %d\n\n", root.Likes+root.Retweets+root.Replies)

	if len(a.Replies) == 0 {
		return b.String(), nil
	}

	fmt.Fprintf(&b, "## Replies (%d total)\n\n", len(a.Replies))
	fmt.Fprintf(&b, "### Top %d replies by engagement\n\n", topReplies)
	for i, r := range a.TopReplies {
		fmt.Fprintf(&b, "#### %d. @%s (%d likes, %d retweets)\n\n", i+1, r.Author, r.Likes, r.Retweets)
		fmt.Fprintf(&b, "%s\n\n", Truncate(r.Content, replyMaxLen))
		fmt.Fprintf(&b, "*Engagement score: %d*\n\n---\n\n", EngagementScore(r))
	}

	b.WriteString("## Authors\n\n")
	fmt.Fprintf(&b, "**Unique authors:** %d\n\n", a.UniqueAuthors)
	fmt.Fprintf(&b, "### Top %d most active authors\n\n", topAnalysisUsers)
	for i, s := range a.TopAuthors {
		fmt.Fprintf(&b, "%d. **@%s** - %d tweets\n", i+1, s.Author, s.Tweets)
		p.Fprintf(&b, "   - Total likes: %d\n", s.Likes)
		p.Fprintf(&b, "   - Total retweets: %d\n", s.Retweets)
		fmt.Fprintf(&b, "   - Average likes per tweet: %.1f\n\n", s.AvgLikes())
	}

	b.WriteString("## Timeline\n\n")
	if a.Timestamped > 0 {
		fmt.Fprintf(&b, "**Period:** %s to %s\n", isoTime(a.First), isoTime(a.Last))
		fmt.Fprintf(&b, "**Tweets with timestamp:** %d/%d\n\n", a.Timestamped, a.Total)
	}

	n := float64(a.Total)
	b.WriteString("## Statistics\n\n### Total engagement\n\n")
	p.Fprintf(&b, "- **Likes:** %d\n", a.Likes)
	p.Fprintf(&b, "- **Retweets:** %d\n", a.Retweets)
	p.Fprintf(&b, "- **Replies:** %d\n", a.ReplyCount)
	p.Fprintf(&b, "- **Engagement:** %d\n\n", a.Likes+a.Retweets+a.ReplyCount)
	b.WriteString("### Averages\n\n")
	fmt.Fprintf(&b, "- **Likes per tweet:** %.2f\n", float64(a.Likes)/n)
	fmt.Fprintf(&b, "- **Retweets per tweet:** %.2f\n", float64(a.Retweets)/n)
	fmt.Fprintf(&b, "- **Replies per tweet:** %.2f\n\n", float64(a.ReplyCount)/n)

	b.WriteString("## Content\n\n")
	fmt.Fprintf(&b, "### Most frequent words (%d+ letters)\n\n", minWordRunes)
	for _, w := range a.Words {
		fmt.Fprintf(&b, "- `%s`: %d times\n", w.Word, w.Count)
	}
	b.WriteString("\n### Text statistics\n\n")
	fmt.Fprintf(&b, "- **Average length:** %.0f characters\n", a.AvgLength)
	fmt.Fprintf(&b, "- **Long tweets (%d+ chars):** %d (%.1f%%)\n", longTweetRunes, a.LongTweets, percent(a.LongTweets, a.Total))

	r := len(a.Replies)
	b.WriteString("\n## Engagement distribution\n\n")
	fmt.Fprintf(&b, "- **High (%d+ likes):** %d tweets (%.1f%%)\n", highLikes, a.High, percent(a.High, r))
	fmt.Fprintf(&b, "- **Medium (%d-%d likes):** %d tweets (%.1f%%)\n", mediumLikes, highLikes-1, a.Medium, percent(a.Medium, r))
	fmt.Fprintf(&b, "- **Low (0-%d likes):** %d tweets (%.1f%%)\n\n", mediumLikes-1, a.Low, percent(a.Low, r))

	b.WriteString("## Executive summary\n\n")
	fmt.Fprintf(&b, "1. **Reach:** the main tweet drew %d replies\n", r)
	p.Fprintf(&b, "2. **Engagement:** %d likes and %d retweets in total\n", a.Likes, a.Retweets)
	fmt.Fprintf(&b, "3. **Participation:** %d unique users\n", a.UniqueAuthors)
	if len(a.TopAuthors) > 0 {
		fmt.Fprintf(&b, "4. **Most active user:** @%s with %d tweets\n", a.TopAuthors[0].Author, a.TopAuthors[0].Tweets)
	}
	if len(a.TopReplies) > 0 {
		fmt.Fprintf(&b, "5. **Most popular reply:** @%s with %d likes\n", a.TopReplies[0].Author, a.TopReplies[0].Likes)
	}
	return b.String(), nil
}

func percent(part, whole int) float64 {
	if whole == 0 {
		return 0
	}
	return float64(part) / float64(whole) * 100
}

// WriteAnalysis analyzes records and writes analysis-tweets-<YYYYMMDD-HHMMSS>.md
// into the writer's directory. It returns the path and the rendered report.
func (w *Writer) WriteAnalysis(records []thread.Record) (string, string, error) {
	now := w.Now()
	a, err := Analyze(records, now)
	if err != nil {
		return "", "", err
	}
	md, err := RenderAnalysis(a)
	if err != nil {
		return "", "", err
	}
	if err := os.MkdirAll(w.Dir, 0o755); err != nil {
		return "", "", fmt.Errorf("create output dir: %w", err)
	}
	path := filepath.Join(w.Dir, "analysis-tweets-"+now.Format("20060102-150405")+".md")
	if err := os.WriteFile(path, []byte(md), 0o644); err != nil {
		return "", "", fmt.Errorf("write analysis: %w", err)
	}
	return path, md, nil
}

// StripFrontMatter returns md without a leading YAML front matter block.
func StripFrontMatter(md string) string {
	rest, ok := strings.CutPrefix(md, "---\n")
	if !ok {
		return md
	}
	if _, body, ok := strings.Cut(rest, "\n---\n"); ok {
		return strings.TrimLeft(body, "\n")
	}
	return md
}
