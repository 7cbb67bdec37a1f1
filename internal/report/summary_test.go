package report

import (
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/anatolykoptev/go-twitter-thread/internal/thread"
)

var fixedNow = time.Date(2025, 11, 19, 12, 0, 0, 0, time.UTC)

func rec(id, author string, likes, depth int) thread.Record {
	return thread.Record{
		ID:        id,
		Author:    author,
		Content:   "content " + id,
		CreatedAt: fixedNow,
		Likes:     likes,
		Depth:     depth,
	}
}

func TestTruncate(t *testing.T) {
	s200 := strings.Repeat("a", 200)
	assert.Equal(t, s200, Truncate(s200, 200))

	s201 := strings.Repeat("a", 201)
	assert.Equal(t, s200+"...", Truncate(s201, 200))

	// Counts characters, not bytes.
	assert.Equal(t, "ñññ", Truncate("ñññ", 3))
	assert.Equal(t, "ññ...", Truncate("ñññ", 2))
}

func TestTopByLikes_Stable(t *testing.T) {
	in := []thread.Record{rec("a", "x", 5, 1), rec("b", "x", 10, 1), rec("c", "x", 10, 1)}
	got := TopByLikes(in, 10)

	var order []string
	for _, r := range got {
		order = append(order, r.ID)
	}
	assert.Equal(t, []string{"b", "c", "a"}, order)
	assert.Equal(t, "a", in[0].ID, "input must not be reordered")
}

func TestRankAuthors(t *testing.T) {
	var in []thread.Record
	for i, a := range []string{"a", "a", "b", "a", "c"} {
		in = append(in, rec(string(rune('0'+i)), a, 0, 1))
	}
	want := []AuthorCount{{"a", 3}, {"b", 1}, {"c", 1}}
	if diff := cmp.Diff(want, RankAuthors(in, 10)); diff != "" {
		t.Fatalf("ranking mismatch (-want +got):\n%s", diff)
	}
	assert.Len(t, RankAuthors(in, 2), 2)
}

func TestRenderSummary(t *testing.T) {
	records := []thread.Record{
		rec("1", "root", 100, 0),
		rec("2", "alice", 5, 1),
		rec("3", "bob", 7, 1),
		rec("4", "alice", 1, 2),
	}
	out := RenderSummary(records)

	assert.True(t, strings.HasPrefix(out, "# Twitter Thread Summary\n\n**Total tweets:** 4\n\n## Main\n\n"))
	assert.Contains(t, out, "- **Author:** @root\n")
	assert.Contains(t, out, "- **Date:** 2025-11-19T12:00:00.000Z\n")
	assert.Contains(t, out, "- **Stats:** 100 likes, 0 retweets, 0 replies\n")
	assert.Contains(t, out, "### Level 1 (2 replies)\n\n1. **@bob** (7 likes)\n   content 3\n\n2. **@alice** (5 likes)\n")
	assert.Contains(t, out, "### Level 2 (1 replies)\n")
	assert.Contains(t, out, "## Most active authors\n\n1. @alice - 2 tweets\n2. @root - 1 tweets\n3. @bob - 1 tweets\n")
	assert.NotContains(t, out, "more replies")

	assert.Equal(t, out, RenderSummary(records), "rendering must be deterministic")
}

func TestRenderSummary_OmittedNote(t *testing.T) {
	records := []thread.Record{rec("0", "root", 0, 0)}
	for i := range 13 {
		records = append(records, rec(string(rune('a'+i)), "u", i, 1))
	}
	out := RenderSummary(records)
	assert.Contains(t, out, "### Level 1 (13 replies)")
	assert.Contains(t, out, "   _(and 3 more replies)_\n")
	assert.Contains(t, out, "10. **@u** (3 likes)")
	assert.NotContains(t, out, "11. **@u**")
}

func TestRenderSummary_Empty(t *testing.T) {
	assert.Equal(t, "# Twitter Thread Summary\n\n**Total tweets:** 0\n\n", RenderSummary(nil))
}

func TestGroupByDepth(t *testing.T) {
	g := GroupByDepth([]thread.Record{rec("1", "r", 0, 0), rec("2", "a", 0, 2), rec("3", "b", 0, 2)})
	require.Len(t, g[2], 2)
	assert.Equal(t, "2", g[2][0].ID)
	assert.Empty(t, g[1])
}
