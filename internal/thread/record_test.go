package thread

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	twitter "github.com/anatolykoptev/go-twitter-thread"
)

func TestDecode_Defaults(t *testing.T) {
	got := Decode(&twitter.Tweet{ID: "9"}, 2, fixedNow)
	assert.Equal(t, Record{
		ID:        "9",
		Author:    UnknownAuthor,
		Content:   "",
		CreatedAt: fixedNow,
		Depth:     2,
	}, got)
}

func TestDecode_MissingTimeIsUTC(t *testing.T) {
	local := fixedNow.In(time.FixedZone("CEST", 2*60*60))
	got := Decode(&twitter.Tweet{ID: "9"}, 1, local)
	assert.Equal(t, time.UTC, got.CreatedAt.Location())
	assert.True(t, got.CreatedAt.Equal(fixedNow))

	data, err := json.Marshal(got)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"createdAt":"2025-11-19T12:00:00Z"`)
}

func TestDecode_CopiesFields(t *testing.T) {
	created := time.Date(2024, 3, 1, 8, 0, 0, 0, time.UTC)
	got := Decode(&twitter.Tweet{
		ID:        "10",
		Username:  "eve",
		Text:      "hola",
		CreatedAt: created,
		Likes:     3,
		Retweets:  2,
		Replies:   1,
		Views:     999,
	}, 1, fixedNow)

	assert.Equal(t, "eve", got.Author)
	assert.Equal(t, "hola", got.Content)
	assert.True(t, got.CreatedAt.Equal(created))
	assert.Equal(t, []int{3, 2, 1, 1}, []int{got.Likes, got.Retweets, got.Replies, got.Depth})
}

func TestParseStatusURL(t *testing.T) {
	tests := []struct {
		url  string
		want string
	}{
		{"https://x.com/foo/status/12345", "12345"},
		{"https://twitter.com/foo/status/1991025255859544564?s=20", "1991025255859544564"},
		{"https://x.com/i/web/status/42/photo/1", "42"},
	}
	for _, tt := range tests {
		got, err := ParseStatusURL(tt.url)
		require.NoError(t, err, tt.url)
		assert.Equal(t, tt.want, got)
	}

	for _, bad := range []string{"https://x.com/foo", "https://x.com/foo/status/", "status/abc", ""} {
		_, err := ParseStatusURL(bad)
		assert.ErrorIs(t, err, ErrInvalidURL, bad)
	}
}
