// Package captcha solves the Arkose challenges Twitter raises during login.
package captcha

import "context"

// Solver turns an Arkose challenge into the token the login flow submits.
type Solver interface {
	Solve(ctx context.Context, siteKey, pageURL string) (token string, err error)
}
