// Package report turns walked thread records into the JSON dump, the
// Markdown summary and the longer engagement analysis.
package report

import (
	"cmp"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/anatolykoptev/go-twitter-thread/internal/thread"
)

const (
	topPerDepth   = 10
	topAuthors    = 10
	contentMaxLen = 200
)

// isoLayout matches JavaScript's Date.toISOString for UTC times.
const isoLayout = "2006-01-02T15:04:05.000Z07:00"

// RenderSummary renders the Markdown digest of a walked thread. records[0]
// must be the root. The output depends only on records.
func RenderSummary(records []thread.Record) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# Twitter Thread Summary\n\n")
	fmt.Fprintf(&b, "**Total tweets:** %d\n\n", len(records))
	if len(records) == 0 {
		return b.String()
	}

	root := records[0]
	b.WriteString("## Main\n\n")
	fmt.Fprintf(&b, "- **Author:** @%s\n", root.Author)
	fmt.Fprintf(&b, "- **Date:** %s\n", isoTime(root.CreatedAt))
	fmt.Fprintf(&b, "- **Content:** %s\n", root.Content)
	fmt.Fprintf(&b, "- **Stats:** %d likes, %d retweets, %d replies\n\n", root.Likes, root.Retweets, root.Replies)

	b.WriteString("## Opinions and replies\n\n")
	byDepth := GroupByDepth(records)
	for depth := 1; depth <= maxDepth(records); depth++ {
		level := byDepth[depth]
		if len(level) == 0 {
			continue
		}
		fmt.Fprintf(&b, "### Level %d (%d replies)\n\n", depth, len(level))
		for i, r := range TopByLikes(level, topPerDepth) {
			fmt.Fprintf(&b, "%d. **@%s** (%d likes)\n", i+1, r.Author, r.Likes)
			fmt.Fprintf(&b, "   %s\n\n", Truncate(r.Content, contentMaxLen))
		}
		if len(level) > topPerDepth {
			fmt.Fprintf(&b, "   _(and %d more replies)_\n\n", len(level)-topPerDepth)
		}
	}

	b.WriteString("## Most active authors\n\n")
	for i, a := range RankAuthors(records, topAuthors) {
		fmt.Fprintf(&b, "%d. @%s - %d tweets\n", i+1, a.Author, a.Count)
	}
	return b.String()
}

// GroupByDepth buckets records by depth, keeping traversal order within a bucket.
func GroupByDepth(records []thread.Record) map[int][]thread.Record {
	out := make(map[int][]thread.Record)
	for _, r := range records {
		out[r.Depth] = append(out[r.Depth], r)
	}
	return out
}

func maxDepth(records []thread.Record) int {
	d := 0
	for _, r := range records {
		d = max(d, r.Depth)
	}
	return d
}

// TopByLikes returns up to n records ordered by likes, most first. Records
// with equal likes keep their input order. The input slice is not modified.
func TopByLikes(records []thread.Record, n int) []thread.Record {
	sorted := slices.Clone(records)
	slices.SortStableFunc(sorted, func(a, b thread.Record) int {
		return cmp.Compare(b.Likes, a.Likes)
	})
	return sorted[:min(n, len(sorted))]
}

// AuthorCount is one row of an author ranking.
type AuthorCount struct {
	Author string
	Count  int
}

// RankAuthors counts records per author and returns the top n by count.
// Ties keep the order in which authors first appear.
func RankAuthors(records []thread.Record, n int) []AuthorCount {
	return rank(records, n, func(r thread.Record) string { return r.Author })
}

// rank counts keys in first-seen order and stable-sorts by count.
func rank[T any](items []T, n int, key func(T) string) []AuthorCount {
	index := make(map[string]int)
	var counts []AuthorCount
	for _, it := range items {
		k := key(it)
		if i, ok := index[k]; ok {
			counts[i].Count++
			continue
		}
		index[k] = len(counts)
		counts = append(counts, AuthorCount{Author: k, Count: 1})
	}
	slices.SortStableFunc(counts, func(a, b AuthorCount) int {
		return cmp.Compare(b.Count, a.Count)
	})
	if n >= 0 && len(counts) > n {
		counts = counts[:n]
	}
	return counts
}

// Truncate shortens s to n characters, appending "..." when it cut anything.
func Truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}

func isoTime(t time.Time) string {
	return t.UTC().Format(isoLayout)
}
