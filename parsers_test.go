package twitter

import (
	"testing"
	"time"
)

const tweetDetailBody = `{
	"data": {
		"threaded_conversation_with_injections_v2": {
			"instructions": [{
				"type": "TimelineAddEntries",
				"entries": [{
					"entryId": "tweet-100",
					"content": {
						"entryType": "TimelineTimelineItem",
						"itemContent": {
							"__typename": "TimelineTweet",
							"tweet_results": {
								"result": {
									"__typename": "Tweet",
									"rest_id": "100",
									"core": {"user_results": {"result": {"rest_id": "7", "core": {"screen_name": "rootuser"}}}},
									"legacy": {
										"full_text": "root text",
										"created_at": "Mon Jan 02 15:04:05 +0000 2024",
										"conversation_id_str": "100",
										"favorite_count": 42,
										"retweet_count": 3,
										"reply_count": 9,
										"user_id_str": "7"
									}
								}
							}
						}
					}
				}, {
					"entryId": "conversationthread-101",
					"content": {
						"entryType": "TimelineTimelineModule",
						"items": [{
							"item": {
								"itemContent": {
									"__typename": "TimelineTweet",
									"tweet_results": {
										"result": {
											"__typename": "TweetWithVisibilityResults",
											"tweet": {
												"rest_id": "101",
												"core": {"user_results": {"result": {"legacy": {"screen_name": "replier"}}}},
												"legacy": {
													"full_text": "a reply",
													"in_reply_to_status_id_str": "100",
													"conversation_id_str": "100"
												}
											}
										}
									}
								}
							}
						}]
					}
				}]
			}]
		}
	}
}`

func TestParseTweetDetail(t *testing.T) {
	tw, err := parseTweetDetail([]byte(tweetDetailBody), "100")
	if err != nil {
		t.Fatal(err)
	}
	if tw == nil {
		t.Fatal("expected tweet 100")
	}
	if tw.Username != "rootuser" {
		t.Fatalf("expected username rootuser, got %q", tw.Username)
	}
	if tw.Likes != 42 || tw.Retweets != 3 || tw.Replies != 9 {
		t.Fatalf("unexpected counts %d/%d/%d", tw.Likes, tw.Retweets, tw.Replies)
	}
	want := time.Date(2024, 1, 2, 15, 4, 5, 0, time.UTC)
	if !tw.CreatedAt.Equal(want) {
		t.Fatalf("expected created %v, got %v", want, tw.CreatedAt)
	}
}

func TestParseTweetDetail_VisibilityWrapper(t *testing.T) {
	tw, err := parseTweetDetail([]byte(tweetDetailBody), "101")
	if err != nil {
		t.Fatal(err)
	}
	if tw == nil {
		t.Fatal("expected tweet 101 from conversation module")
	}
	if tw.Username != "replier" {
		t.Fatalf("expected legacy screen_name fallback, got %q", tw.Username)
	}
	if tw.InReplyToID != "100" {
		t.Fatalf("expected reply to 100, got %q", tw.InReplyToID)
	}
	if !tw.CreatedAt.IsZero() {
		t.Fatalf("expected zero time for missing created_at, got %v", tw.CreatedAt)
	}
}

func TestParseTweetDetail_Missing(t *testing.T) {
	tw, err := parseTweetDetail([]byte(tweetDetailBody), "999")
	if err != nil {
		t.Fatal(err)
	}
	if tw != nil {
		t.Fatalf("expected nil tweet, got %+v", tw)
	}

	_, err = parseTweetDetail([]byte(`{"errors":[{"message":"_Missing: No status found with that ID."}]}`), "999")
	if err == nil {
		t.Fatal("expected API error to surface")
	}
}

func TestParseSearchTimeline(t *testing.T) {
	body := `{
		"data": {
			"search_by_raw_query": {
				"search_timeline": {
					"timeline": {
						"instructions": [{
							"type": "TimelineAddEntries",
							"entries": [{
								"entryId": "tweet-123",
								"content": {
									"entryType": "TimelineTimelineItem",
									"__typename": "TimelineTimelineItem",
									"itemContent": {
										"__typename": "TimelineTweet",
										"tweet_results": {
											"result": {
												"__typename": "Tweet",
												"rest_id": "123",
												"legacy": {
													"full_text": "short",
													"created_at": "Mon Jan 02 15:04:05 +0000 2024",
													"favorite_count": 10,
													"retweet_count": 5,
													"quote_count": 2,
													"user_id_str": "999"
												},
												"note_tweet": {"note_tweet_results": {"result": {"text": "the full long text"}}},
												"views": {"count": "1000"}
											}
										}
									}
								}
							}, {
								"entryId": "cursor-top-1",
								"content": {"entryType": "TimelineTimelineCursor", "cursorType": "Top", "value": "TOP"}
							}, {
								"entryId": "cursor-bottom-1",
								"content": {"entryType": "TimelineTimelineCursor", "cursorType": "Bottom", "value": "BOTTOM"}
							}]
						}, {
							"type": "TimelineReplaceEntry",
							"entry": {
								"entryId": "cursor-bottom-2",
								"content": {"__typename": "TimelineTimelineCursor", "value": "BOTTOM2"}
							}
						}]
					}
				}
			}
		}
	}`

	tweets, cursor, err := parseSearchTimeline([]byte(body))
	if err != nil {
		t.Fatal(err)
	}
	if len(tweets) != 1 {
		t.Fatalf("expected 1 tweet, got %d", len(tweets))
	}
	tw := tweets[0]
	if tw.ID != "123" || tw.AuthorID != "999" {
		t.Fatalf("unexpected ids %s/%s", tw.ID, tw.AuthorID)
	}
	if tw.Views != 1000 || tw.Likes != 10 {
		t.Fatalf("unexpected views/likes %d/%d", tw.Views, tw.Likes)
	}
	if tw.Text != "the full long text" {
		t.Fatalf("expected note tweet text, got %q", tw.Text)
	}
	if cursor != "BOTTOM2" {
		t.Fatalf("expected last bottom cursor, got %q", cursor)
	}
}

func TestParseSearchTimeline_Invalid(t *testing.T) {
	if _, _, err := parseSearchTimeline([]byte(`{nope`)); err == nil {
		t.Fatal("expected unmarshal error")
	}
}

func TestParseTweetResult_Tombstone(t *testing.T) {
	if _, err := parseTweetResult(tweetResult{TypeName: "TweetTombstone"}); err == nil {
		t.Fatal("expected error for tombstone")
	}
	if _, err := parseTweetResult(tweetResult{TypeName: "Tweet"}); err == nil {
		t.Fatal("expected error for empty rest_id")
	}
}

func TestCT0(t *testing.T) {
	ct0 := GenerateCT0()
	if len(ct0) != 64 {
		t.Fatalf("expected 64 char hex, got %d chars", len(ct0))
	}
	if ct0 == GenerateCT0() {
		t.Fatal("expected different ct0 values")
	}
}

func TestExtractCT0FromHeaders(t *testing.T) {
	tests := []struct {
		header string
		want   string
	}{
		{"", ""},
		{"ct0=abc; Path=/; Secure", "abc"},
		{"guest_id=1; ct0=def; Domain=.x.com", "def"},
		{"ct0=; Path=/", ""},
	}
	for _, tt := range tests {
		if got := extractCT0FromHeaders(map[string]string{"set-cookie": tt.header}); got != tt.want {
			t.Fatalf("extractCT0FromHeaders(%q) = %q, want %q", tt.header, got, tt.want)
		}
	}
}
