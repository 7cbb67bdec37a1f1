package twitter

import (
	"context"
	"fmt"
	"iter"
)

// searchPageSize is the largest page SearchTimeline serves reliably.
const searchPageSize = 20

// GetTweet fetches a single tweet by its rest ID.
// It returns (nil, nil) when the conversation loads but the tweet itself is absent.
func (c *Client) GetTweet(ctx context.Context, id string) (*Tweet, error) {
	variables := map[string]any{
		"focalTweetId":                           id,
		"with_rux_injections":                    false,
		"includePromotedContent":                 false,
		"withCommunity":                          true,
		"withQuickPromoteEligibilityTweetFields": false,
		"withBirdwatchNotes":                     false,
		"withVoice":                              true,
		"withV2Timeline":                         true,
	}
	url := addGraphQLParams(graphQLURL(opTweetDetail), variables, tweetFeatures, readFieldToggles)

	body, _, err := c.doGET(ctx, opTweetDetail, url)
	if err != nil {
		return nil, fmt.Errorf("TweetDetail: %w", err)
	}
	return parseTweetDetail(body, id)
}

// SearchTweets lazily yields tweets matching query, newest first, stopping
// after limit tweets or when the timeline runs out. Pages are requested only
// as the caller consumes the sequence. A request or parse failure is yielded
// once as the error value and ends the sequence.
func (c *Client) SearchTweets(ctx context.Context, query string, limit int) iter.Seq2[*Tweet, error] {
	return func(yield func(*Tweet, error) bool) {
		var cursor string
		seen := 0
		for seen < limit {
			if err := ctx.Err(); err != nil {
				yield(nil, err)
				return
			}

			batch, next, err := c.searchPage(ctx, query, min(searchPageSize, limit-seen), cursor)
			if err != nil {
				yield(nil, err)
				return
			}
			for _, t := range batch {
				if !yield(t, nil) {
					return
				}
				seen++
				if seen >= limit {
					return
				}
			}
			if len(batch) == 0 || next == "" || next == cursor {
				return
			}
			cursor = next
		}
	}
}

// searchPage fetches one SearchTimeline page.
func (c *Client) searchPage(ctx context.Context, query string, count int, cursor string) ([]*Tweet, string, error) {
	variables := map[string]any{
		"rawQuery":    query,
		"count":       count,
		"querySource": "typed_query",
		"product":     "Latest",
	}
	if cursor != "" {
		variables["cursor"] = cursor
	}
	url := addGraphQLParams(graphQLURL(opSearchTimeline), variables, tweetFeatures, readFieldToggles)

	body, _, err := c.doGET(ctx, opSearchTimeline, url)
	if err != nil {
		return nil, "", fmt.Errorf("SearchTimeline: %w", err)
	}
	tweets, next, err := parseSearchTimeline(body)
	if err != nil {
		return nil, "", fmt.Errorf("parse SearchTimeline: %w", err)
	}
	return tweets, next, nil
}
