package thread

import (
	"errors"
	"fmt"
	"regexp"
)

// ErrInvalidURL is returned when a URL carries no status/<digits> segment.
var ErrInvalidURL = errors.New("invalid tweet URL")

var statusIDRe = regexp.MustCompile(`status/(\d+)`)

// ParseStatusURL extracts the tweet ID from a status URL such as
// https://x.com/user/status/12345.
func ParseStatusURL(raw string) (string, error) {
	m := statusIDRe.FindStringSubmatch(raw)
	if m == nil {
		return "", fmt.Errorf("%w: %q has no status/<id>", ErrInvalidURL, raw)
	}
	return m[1], nil
}
