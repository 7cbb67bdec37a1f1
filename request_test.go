package twitter

import (
	"errors"
	"net/url"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAddGraphQLParams(t *testing.T) {
	u := addGraphQLParams("https://x.com/i/api/graphql/ID/SearchTimeline",
		map[string]any{"rawQuery": "conversation_id:123", "count": 20},
		map[string]any{"flag": true},
		map[string]any{"withArticleRichContentState": false},
	)

	parsed, err := url.Parse(u)
	require.NoError(t, err)
	q := parsed.Query()
	assert.JSONEq(t, `{"count":20,"rawQuery":"conversation_id:123"}`, q.Get("variables"))
	assert.JSONEq(t, `{"flag":true}`, q.Get("features"))
	assert.JSONEq(t, `{"withArticleRichContentState":false}`, q.Get("fieldToggles"))
	assert.NotContains(t, parsed.RawQuery, `"`)
}

func TestAddGraphQLParams_ExistingQuery(t *testing.T) {
	u := addGraphQLParams("https://example.com/op?x=1", map[string]any{}, map[string]any{})
	assert.True(t, strings.HasPrefix(u, "https://example.com/op?x=1&variables="))
	assert.NotContains(t, u, "fieldToggles")
}

func TestJSONEscape_ReservedQueryChars(t *testing.T) {
	assert.Equal(t, "%7B%22q%22%3A%22a%20%23b%26c%2Bd%22%7D", jsonEscape([]byte(`{"q":"a #b&c+d"}`)))
}

func TestHasResponseData(t *testing.T) {
	assert.True(t, hasResponseData([]byte(`{"data":{"x":1},"errors":[{"code":131}]}`)))
	assert.False(t, hasResponseData([]byte(`{"data":null}`)))
	assert.False(t, hasResponseData([]byte(`{"errors":[]}`)))
	assert.False(t, hasResponseData([]byte(`garbage`)))
}

func TestIsProxyError(t *testing.T) {
	assert.False(t, isProxyError(nil))
	assert.True(t, isProxyError(errors.New("proxyconnect tcp: connection refused")))
	assert.True(t, isProxyError(errors.New("SOCKS5 handshake failed")))
	assert.False(t, isProxyError(errors.New("unexpected EOF")))
}

func TestRetryableWrapsSentinel(t *testing.T) {
	err := retry("account error: %s", errBlocked)
	assert.ErrorIs(t, err, errRetry)
	assert.Equal(t, "account error: blocked", err.Error())

	var re retryable
	require.ErrorAs(t, err, &re)
}

func TestTruncateBytes(t *testing.T) {
	assert.Equal(t, "abc", truncateBytes([]byte("abc"), 3))
	assert.Equal(t, "ab...", truncateBytes([]byte("abc"), 2))
}

func TestRequiresAuth(t *testing.T) {
	assert.True(t, requiresAuth("Logout"))
	assert.False(t, requiresAuth("SearchTimeline"))
	assert.False(t, requiresAuth("TweetDetail"))
}

func TestGraphQLURL(t *testing.T) {
	assert.Equal(t, "https://x.com/i/api/graphql/AIdc203rPpK_k_2KWSdm7g/SearchTimeline", graphQLURL(opSearchTimeline))
	assert.Equal(t, "https://x.com/i/api/graphql/_8aYOgEDz35BrBcBal1-_w/TweetDetail", graphQLURL(opTweetDetail))
}
