// Package thread walks a tweet's conversation and flattens it into depth-tagged records.
package thread

import (
	"time"

	twitter "github.com/anatolykoptev/go-twitter-thread"
)

// UnknownAuthor is recorded when the API returned no screen name.
const UnknownAuthor = "unknown"

// Record is one tweet of a thread. Depth 0 is the root; replies found while
// expanding a depth-d tweet are recorded at depth d+1.
type Record struct {
	ID        string    `json:"id"`
	Author    string    `json:"author"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"createdAt"`
	Likes     int       `json:"likes"`
	Retweets  int       `json:"retweets"`
	Replies   int       `json:"replies"`
	Depth     int       `json:"depth"`
}

// Decode maps a client tweet onto a Record, filling what the API left out:
//
//	author    -> "unknown"
//	content   -> ""
//	createdAt -> now, in UTC
//	counts    -> 0
func Decode(t *twitter.Tweet, depth int, now time.Time) Record {
	r := Record{
		ID:        t.ID,
		Author:    t.Username,
		Content:   t.Text,
		CreatedAt: t.CreatedAt,
		Likes:     max(t.Likes, 0),
		Retweets:  max(t.Retweets, 0),
		Replies:   max(t.Replies, 0),
		Depth:     depth,
	}
	if r.Author == "" {
		r.Author = UnknownAuthor
	}
	if r.CreatedAt.IsZero() {
		r.CreatedAt = now.UTC()
	}
	return r
}
