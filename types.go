package twitter

import "time"

// Tweet represents a single tweet as returned by the GraphQL API.
// Fields the API omitted are left at their zero value.
type Tweet struct {
	ID             string
	AuthorID       string
	Username       string
	Text           string
	CreatedAt      time.Time
	ConversationID string
	InReplyToID    string
	Views          int
	Likes          int
	Retweets       int
	Replies        int
	Quotes         int
}
