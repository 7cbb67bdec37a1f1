package twitter

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"
)

// twitterTimeLayout is the created_at format used by the legacy API objects.
const twitterTimeLayout = "Mon Jan 02 15:04:05 +0000 2006"

// parseTweetDetail parses a TweetDetail response and returns the tweet with
// the requested ID. Other tweets in the conversation are ignored.
func parseTweetDetail(body []byte, id string) (*Tweet, error) {
	var raw struct {
		Data struct {
			Conversation struct {
				Instructions []timelineInstruction `json:"instructions"`
			} `json:"threaded_conversation_with_injections_v2"`
		} `json:"data"`
		Errors []struct {
			Message string `json:"message"`
		} `json:"errors"`
	}
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, fmt.Errorf("unmarshal TweetDetail: %w", err)
	}
	tweets, _ := extractTweetsFromTimeline(timelineObj{Instructions: raw.Data.Conversation.Instructions})
	for _, t := range tweets {
		if t.ID == id {
			return t, nil
		}
	}
	if len(raw.Errors) > 0 {
		return nil, fmt.Errorf("twitter API error: %s", raw.Errors[0].Message)
	}
	return nil, nil
}

// parseSearchTimeline parses a SearchTimeline response into tweets and the
// bottom cursor for the next page ("" when there is none).
func parseSearchTimeline(body []byte) ([]*Tweet, string, error) {
	var raw struct {
		Data struct {
			SearchByRawQuery struct {
				SearchTimeline struct {
					Timeline timelineObj `json:"timeline"`
				} `json:"search_timeline"`
			} `json:"search_by_raw_query"`
		} `json:"data"`
	}
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, "", fmt.Errorf("unmarshal search timeline: %w", err)
	}
	tweets, cursor := extractTweetsFromTimeline(raw.Data.SearchByRawQuery.SearchTimeline.Timeline)
	return tweets, cursor, nil
}

// --- Timeline types ---

type timelineObj struct {
	Instructions []timelineInstruction `json:"instructions"`
}

type timelineInstruction struct {
	Type    string          `json:"type"`
	Entries []timelineEntry `json:"entries"`
	Entry   *timelineEntry  `json:"entry"`
}

type timelineEntry struct {
	EntryID   string          `json:"entryId"`
	SortIndex string          `json:"sortIndex"`
	Content   timelineContent `json:"content"`
}

type timelineContent struct {
	EntryType   string          `json:"entryType"`
	TypeName    string          `json:"__typename"`
	ItemContent json.RawMessage `json:"itemContent"`
	Items       []struct {
		Item struct {
			ItemContent json.RawMessage `json:"itemContent"`
		} `json:"item"`
	} `json:"items"`
	Value      string `json:"value"`
	CursorType string `json:"cursorType"`
}

type userResult struct {
	TypeName string `json:"__typename"`
	RestID   string `json:"rest_id"`
	Core     struct {
		ScreenName string `json:"screen_name"`
	} `json:"core"`
	Legacy struct {
		ScreenName string `json:"screen_name"`
	} `json:"legacy"`
}

// screenName prefers the newer core object and falls back to legacy.
func (u userResult) screenName() string {
	if u.Core.ScreenName != "" {
		return u.Core.ScreenName
	}
	return u.Legacy.ScreenName
}

type tweetResult struct {
	TypeName string `json:"__typename"`
	RestID   string `json:"rest_id"`
	Core     struct {
		UserResults struct {
			Result userResult `json:"result"`
		} `json:"user_results"`
	} `json:"core"`
	Legacy struct {
		FullText          string `json:"full_text"`
		CreatedAt         string `json:"created_at"`
		ConversationIDStr string `json:"conversation_id_str"`
		InReplyToStatus   string `json:"in_reply_to_status_id_str"`
		FavoriteCount     int    `json:"favorite_count"`
		RetweetCount      int    `json:"retweet_count"`
		ReplyCount        int    `json:"reply_count"`
		QuoteCount        int    `json:"quote_count"`
		UserIDStr         string `json:"user_id_str"`
	} `json:"legacy"`
	NoteTweet struct {
		Results struct {
			Result struct {
				Text string `json:"text"`
			} `json:"result"`
		} `json:"note_tweet_results"`
	} `json:"note_tweet"`
	Views struct {
		Count string `json:"count"`
	} `json:"views"`

	// Set when __typename is TweetWithVisibilityResults.
	Tweet *tweetResult `json:"tweet"`
}

// --- Extraction helpers ---

// extractTweetsFromTimeline walks every instruction, collecting tweets from
// single items and conversation modules, and returns the bottom cursor.
func extractTweetsFromTimeline(tl timelineObj) ([]*Tweet, string) {
	var tweets []*Tweet
	var nextCursor string

	for _, instruction := range tl.Instructions {
		entries := instruction.Entries
		if instruction.Entry != nil {
			entries = append(entries, *instruction.Entry)
		}
		for _, entry := range entries {
			if entry.Content.EntryType == "TimelineTimelineCursor" || entry.Content.TypeName == "TimelineTimelineCursor" {
				if entry.Content.CursorType == "Bottom" || strings.Contains(entry.EntryID, "cursor-bottom") {
					nextCursor = entry.Content.Value
				}
				continue
			}
			if t := tweetFromItem(entry.Content.ItemContent); t != nil {
				tweets = append(tweets, t)
			}
			for _, module := range entry.Content.Items {
				if t := tweetFromItem(module.Item.ItemContent); t != nil {
					tweets = append(tweets, t)
				}
			}
		}
	}
	return tweets, nextCursor
}

// tweetFromItem decodes a TimelineTweet item, returning nil for anything else.
func tweetFromItem(raw json.RawMessage) *Tweet {
	if raw == nil {
		return nil
	}
	var item struct {
		TypeName     string `json:"__typename"`
		TweetResults struct {
			Result tweetResult `json:"result"`
		} `json:"tweet_results"`
	}
	if err := json.Unmarshal(raw, &item); err != nil || item.TypeName != "TimelineTweet" {
		return nil
	}
	t, err := parseTweetResult(item.TweetResults.Result)
	if err != nil {
		slog.Debug("skip tweet parse error", slog.Any("error", err))
		return nil
	}
	return t
}

func parseTweetResult(r tweetResult) (*Tweet, error) {
	if r.TypeName == "TweetWithVisibilityResults" && r.Tweet != nil {
		r = *r.Tweet
	}
	if r.TypeName == "TweetTombstone" || r.TypeName == "TweetUnavailable" {
		return nil, fmt.Errorf("tweet unavailable (%s)", r.TypeName)
	}
	if r.RestID == "" {
		return nil, fmt.Errorf("empty tweet rest_id")
	}

	var createdAt time.Time
	if r.Legacy.CreatedAt != "" {
		t, err := time.Parse(twitterTimeLayout, r.Legacy.CreatedAt)
		if err == nil {
			createdAt = t
		}
	}

	views := 0
	if r.Views.Count != "" {
		views, _ = strconv.Atoi(r.Views.Count)
	}

	text := r.Legacy.FullText
	if long := r.NoteTweet.Results.Result.Text; long != "" {
		text = long
	}

	authorID := r.Legacy.UserIDStr
	if authorID == "" {
		authorID = r.Core.UserResults.Result.RestID
	}

	return &Tweet{
		ID:             r.RestID,
		AuthorID:       authorID,
		Username:       r.Core.UserResults.Result.screenName(),
		Text:           text,
		CreatedAt:      createdAt,
		ConversationID: r.Legacy.ConversationIDStr,
		InReplyToID:    r.Legacy.InReplyToStatus,
		Views:          views,
		Likes:          r.Legacy.FavoriteCount,
		Retweets:       r.Legacy.RetweetCount,
		Replies:        r.Legacy.ReplyCount,
		Quotes:         r.Legacy.QuoteCount,
	}, nil
}
