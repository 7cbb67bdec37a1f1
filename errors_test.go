package twitter

import (
	"strconv"
	"testing"
	"time"
)

func TestClassifyError(t *testing.T) {
	tests := []struct {
		name     string
		body     string
		expected errorClass
	}{
		{"no errors", `{"data":{"tweetResult":{}}}`, errNone},
		{"empty errors", `{"errors":[]}`, errNone},
		{"banned 88", `{"errors":[{"code":88}]}`, errBanned},
		{"suspended 64", `{"errors":[{"code":64}]}`, errSuspended},
		{"locked 326", `{"errors":[{"code":326}]}`, errLocked},
		{"csrf 353", `{"errors":[{"code":353}]}`, errCSRF},
		{"auth expired 32", `{"errors":[{"code":32}]}`, errAuthExpired},
		{"blocked 161", `{"errors":[{"code":161}]}`, errBlocked},
		{"not authorized 179", `{"errors":[{"code":179}]}`, errNotAuthorized},
		{"not authorized 219", `{"errors":[{"code":219}]}`, errNotAuthorized},
		{"internal 131", `{"errors":[{"code":131}]}`, errInternal},
		{"first known code wins", `{"errors":[{"code":999},{"code":353},{"code":88}]}`, errCSRF},
		{"unknown code", `{"errors":[{"code":999}]}`, errNone},
		{"invalid json", `{invalid`, errNone},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := classifyError([]byte(tt.body), nil)
			if result != tt.expected {
				t.Fatalf("classifyError(%s) = %s, want %s", tt.body, result, tt.expected)
			}
		})
	}
}

func TestErrorClassString(t *testing.T) {
	if got := errCSRF.String(); got != "csrf" {
		t.Fatalf("errCSRF.String() = %q", got)
	}
	if got := errorClass(42).String(); got != "unknown" {
		t.Fatalf("errorClass(42).String() = %q", got)
	}
}

func TestParseRateLimitReset(t *testing.T) {
	want := time.Now().Add(5 * time.Minute).Truncate(time.Second)
	if got := parseRateLimitReset(strconv.FormatInt(want.Unix(), 10)); !got.Equal(want) {
		t.Fatalf("parseRateLimitReset = %v, want %v", got, want)
	}

	for _, in := range []string{"", "not-a-number"} {
		if time.Until(parseRateLimitReset(in)) < 14*time.Minute {
			t.Fatalf("expected ~15min fallback for %q", in)
		}
	}
}
