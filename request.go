package twitter

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	stealth "github.com/anatolykoptev/go-stealth"
)

const maxRetries = 3

// errRetry marks an attempt outcome that should move on to the next attempt.
var errRetry = errors.New("retry")

// doGET executes a GET request with multi-account retry, ct0 rotation, relogin,
// and guest-token fallback.
func (c *Client) doGET(ctx context.Context, endpoint, url string) ([]byte, map[string]string, error) {
	// Anti-fingerprint jitter
	if err := stealth.DefaultJitter.Sleep(ctx); err != nil {
		return nil, nil, err
	}

	var lastErr error
	for attempt := range maxRetries {
		if err := waitBackoff(ctx, attempt); err != nil {
			return nil, nil, err
		}

		acc, err := c.pickAccount(ctx, endpoint)
		if err != nil {
			lastErr = err
			break
		}

		body, hdrs, err := c.attempt(acc, endpoint, "GET", url, nil)
		if err == nil {
			return body, hdrs, nil
		}
		var re retryable
		if !errors.As(err, &re) {
			return nil, nil, err
		}
		lastErr = re.err
	}

	if requiresAuth(endpoint) {
		if lastErr != nil {
			return nil, nil, fmt.Errorf("pool exhausted for %s (requires auth): %w", endpoint, lastErr)
		}
		return nil, nil, fmt.Errorf("%s requires authenticated account", endpoint)
	}
	return c.guestGET(ctx, endpoint, url, lastErr)
}

// doPOST executes a POST with a specific account.
// Unlike doGET, it does not rotate accounts from the pool; the caller provides the account.
func (c *Client) doPOST(ctx context.Context, acc *Account, endpoint, url string, payload []byte) ([]byte, error) {
	if err := stealth.DefaultJitter.Sleep(ctx); err != nil {
		return nil, err
	}

	var lastErr error
	for attempt := range maxRetries {
		if err := waitBackoff(ctx, attempt); err != nil {
			return nil, err
		}
		body, _, err := c.attempt(acc, endpoint, "POST", url, payload)
		if err == nil {
			return body, nil
		}
		var re retryable
		if !errors.As(err, &re) {
			return nil, err
		}
		lastErr = re.err
	}
	return nil, fmt.Errorf("%s failed after %d attempts: %w", endpoint, maxRetries, lastErr)
}

// retryable wraps an attempt error that should not end the retry loop.
type retryable struct{ err error }

func (r retryable) Error() string { return r.err.Error() }
func (r retryable) Unwrap() error { return errRetry }

func retry(format string, args ...any) error {
	return retryable{err: fmt.Errorf(format, args...)}
}

func waitBackoff(ctx context.Context, attempt int) error {
	if attempt == 0 {
		return nil
	}
	select {
	case <-time.After(stealth.DefaultBackoff.Duration(attempt)):
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// pickAccount selects the next usable account for endpoint.
func (c *Client) pickAccount(ctx context.Context, endpoint string) (*Account, error) {
	filter := func(a *Account) bool {
		return a.AllowRequest(endpoint) && time.Now().After(a.proxyBackoffUntil())
	}
	if requiresAuth(endpoint) {
		return c.pool.NextWithWait(ctx, filter, 5*time.Minute)
	}
	return c.pool.Next(filter)
}

// attempt performs one request with acc and interprets the response.
// A nil error means success; a retryable error means try another attempt.
func (c *Client) attempt(acc *Account, endpoint, method, url string, payload []byte) ([]byte, map[string]string, error) {
	if acc.CT0Age() > ct0MaxAge {
		_, oldCT0, _ := acc.Credentials()
		acc.RotateCT0()
		slog.Info("ct0 rotated (proactive)", slog.String("user", acc.Username), slog.String("old_prefix", oldCT0[:min(8, len(oldCT0))]))
		c.persist(acc)
	}

	bc := c.clientForAccount(acc)
	authTok, ct0, ua := acc.Credentials()
	body, hdrs, status, err := c.doRequest(bc, method, url, twitterHeaders(authTok, ct0, ua), payload)
	if err != nil {
		if acc.Proxy != "" && isProxyError(err) {
			c.markProxyDown(acc)
		} else {
			acc.RecordFailure()
		}
		return nil, nil, retryable{err: err}
	}
	acc.resetProxyFailures()

	switch {
	case status == 429:
		c.recordAPICall(endpoint, false, true)
		acc.MarkEndpointRateLimited(endpoint, parseRateLimitReset(hdrs["x-rate-limit-reset"]))
		return nil, nil, retry("429 rate limited")

	case status == 401 || status == 403:
		c.recordAPICall(endpoint, false, false)
		class := classifyError(body, hdrs)
		if class == errCSRF || class == errAuthExpired {
			return c.recoverSession(acc, class, endpoint, method, url, payload)
		}
		acc.RecordFailure()
		return nil, nil, retry("%s HTTP %d: %s", endpoint, status, truncateBytes(body, 200))

	case !isSuccess(status):
		c.recordAPICall(endpoint, false, false)
		slog.Warn("non-2xx response", slog.String("endpoint", endpoint), slog.Int("status", status), slog.String("body", truncateBytes(body, 500)))
		if acc.RecordFailure() {
			total, failed, consec := acc.Stats()
			slog.Warn("account unhealthy, deactivating",
				slog.String("user", acc.Username),
				slog.Int("total", total),
				slog.Int("failed", failed),
				slog.Int("consec", consec))
			c.pool.DeactivateItem(acc)
		}
		return nil, nil, fmt.Errorf("%s HTTP %d: %s", endpoint, status, truncateBytes(body, 200))
	}

	class := classifyError(body, hdrs)
	switch class {
	case errNone:
		c.succeed(acc, endpoint, ct0, hdrs)
		return body, hdrs, nil

	case errCSRF, errAuthExpired:
		return c.recoverSession(acc, class, endpoint, method, url, payload)

	case errInternal:
		if hasResponseData(body) {
			c.succeed(acc, endpoint, ct0, hdrs)
			slog.Debug("error 131 with usable data, treating as success", slog.String("endpoint", endpoint))
			return body, hdrs, nil
		}
		slog.Warn("error 131 without data, retrying", slog.String("user", acc.Username), slog.String("endpoint", endpoint))
		return nil, nil, retry("twitter internal error (131)")

	case errBanned:
		c.recordAPICall(endpoint, false, false)
		slog.Warn("account banned (code 88)", slog.String("user", acc.Username))
		c.pool.SoftDeactivate(acc, c.cfg.BanCooldown)
		return nil, nil, retry("account banned")

	case errSuspended:
		c.recordAPICall(endpoint, false, false)
		slog.Warn("account suspended (code 64), permanently deactivating", slog.String("user", acc.Username))
		c.pool.DeactivateItem(acc)
		return nil, nil, retry("account suspended")

	case errLocked:
		c.recordAPICall(endpoint, false, false)
		slog.Warn("account locked (code 326, captcha needed)", slog.String("user", acc.Username))
		if c.cfg.CaptchaSolver != nil {
			slog.Info("attempting CAPTCHA unlock via relogin", slog.String("user", acc.Username))
			if reErr := c.relogin(acc); reErr == nil {
				if body2, hdrs2, ok := c.resend(acc, method, url, payload); ok {
					c.recordAPICall(endpoint, true, false)
					acc.RecordSuccess()
					slog.Info("CAPTCHA unlock succeeded", slog.String("user", acc.Username))
					return body2, hdrs2, nil
				}
			} else {
				slog.Warn("CAPTCHA unlock failed", slog.String("user", acc.Username), slog.Any("error", reErr))
			}
		}
		c.pool.SoftDeactivate(acc, c.cfg.BanCooldown)
		return nil, nil, retry("account locked")

	default: // errBlocked, errNotAuthorized
		c.recordAPICall(endpoint, false, false)
		slog.Warn("account error", slog.String("user", acc.Username), slog.String("class", class.String()))
		c.pool.SoftDeactivate(acc, c.cfg.AuthCooldown)
		return nil, nil, retry("account error: %s", class)
	}
}

// recoverSession handles CSRF mismatches (rotate ct0) and expired auth
// (relogin), then replays the request once.
func (c *Client) recoverSession(acc *Account, class errorClass, endpoint, method, url string, payload []byte) ([]byte, map[string]string, error) {
	switch class {
	case errCSRF:
		slog.Warn("CSRF error 353, rotating ct0", slog.String("user", acc.Username))
		acc.RotateCT0()
		c.persist(acc)
	case errAuthExpired:
		slog.Warn("auth expired (code 32), attempting relogin", slog.String("user", acc.Username))
		if err := c.relogin(acc); err != nil {
			slog.Warn("relogin failed, soft-deactivating", slog.String("user", acc.Username), slog.Any("error", err))
			c.pool.SoftDeactivate(acc, c.cfg.AuthCooldown)
			return nil, nil, retryable{err: err}
		}
	}

	body, hdrs, ok := c.resend(acc, method, url, payload)
	if ok {
		if newCT0 := extractCT0FromHeaders(hdrs); newCT0 != "" {
			acc.SetCT0(newCT0)
			c.persist(acc)
		}
		c.recordAPICall(endpoint, true, false)
		acc.RecordSuccess()
		return body, hdrs, nil
	}

	if class == errAuthExpired {
		c.pool.SoftDeactivate(acc, c.cfg.AuthCooldown)
		return nil, nil, retry("post-relogin request failed")
	}
	acc.RecordFailure()
	return nil, nil, retry("CSRF retry failed")
}

// resend replays a request with acc's current credentials and reports
// whether it came back 2xx without an error payload.
func (c *Client) resend(acc *Account, method, url string, payload []byte) ([]byte, map[string]string, bool) {
	authTok, ct0, ua := acc.Credentials()
	body, hdrs, status, err := c.doRequest(c.clientForAccount(acc), method, url, twitterHeaders(authTok, ct0, ua), payload)
	if err != nil || !isSuccess(status) || classifyError(body, hdrs) != errNone {
		return nil, nil, false
	}
	return body, hdrs, true
}

// succeed records a successful call and adopts any ct0 the server rotated.
func (c *Client) succeed(acc *Account, endpoint, sentCT0 string, hdrs map[string]string) {
	if newCT0 := extractCT0FromHeaders(hdrs); newCT0 != "" && newCT0 != sentCT0 {
		acc.SetCT0(newCT0)
		c.persist(acc)
	}
	c.recordAPICall(endpoint, true, false)
	acc.RecordSuccess()
}

// persist saves acc's current cookies; failures only cost a relogin next run.
func (c *Client) persist(acc *Account) {
	authTok, ct0, _ := acc.Credentials()
	if err := saveSession(c.cfg.SessionDir, acc.Username, authTok, ct0); err != nil {
		slog.Debug("session save failed", slog.String("user", acc.Username), slog.Any("error", err))
	}
}

// guestGET is the unauthenticated fallback once the account pool is exhausted.
func (c *Client) guestGET(ctx context.Context, endpoint, url string, poolErr error) ([]byte, map[string]string, error) {
	gt, ok := c.getGuestTokenCached()
	if !ok {
		token, err := c.acquireGuestToken(ctx, c.client)
		if err != nil {
			if poolErr != nil {
				return nil, nil, fmt.Errorf("pool exhausted for %s: %w", endpoint, poolErr)
			}
			return nil, nil, fmt.Errorf("guest token unavailable for %s: %w", endpoint, err)
		}
		c.setGuestToken(token)
		gt = token
		slog.Info("guest token acquired as fallback", slog.String("endpoint", endpoint))
	}

	body, hdrs, status, err := c.doRequest(c.client, "GET", url, guestHeaders(gt), nil)
	if err != nil {
		return nil, nil, err
	}
	switch status {
	case 200:
		c.recordAPICall(endpoint, true, false)
		return body, hdrs, nil
	case 429:
		c.recordAPICall(endpoint, false, true)
		c.markGuestTokenRateLimited(parseRateLimitReset(hdrs["x-rate-limit-reset"]))
		return nil, nil, fmt.Errorf("guest token rate-limited for %s", endpoint)
	case 401, 403:
		slog.Warn("guest token expired, reacquiring", slog.String("endpoint", endpoint), slog.Int("status", status))
		c.setGuestToken("")
		newGT, gtErr := c.acquireGuestToken(ctx, c.client)
		if gtErr != nil {
			c.recordAPICall(endpoint, false, false)
			return nil, nil, fmt.Errorf("guest token reacquisition failed for %s: %w", endpoint, gtErr)
		}
		c.setGuestToken(newGT)
		body, hdrs, status, err = c.doRequest(c.client, "GET", url, guestHeaders(newGT), nil)
		if err != nil {
			return nil, nil, err
		}
		if status != 200 {
			c.recordAPICall(endpoint, false, false)
			return nil, nil, fmt.Errorf("%s (guest retry) HTTP %d: %s", endpoint, status, truncateBytes(body, 200))
		}
		c.recordAPICall(endpoint, true, false)
		return body, hdrs, nil
	default:
		c.recordAPICall(endpoint, false, false)
		return nil, nil, fmt.Errorf("%s (guest) HTTP %d: %s", endpoint, status, truncateBytes(body, 200))
	}
}

// doRequest executes a single HTTP request with Twitter's header order.
func (c *Client) doRequest(bc *stealth.BrowserClient, method, url string, headers map[string]string, payload []byte) ([]byte, map[string]string, int, error) {
	var body io.Reader
	if payload != nil {
		body = bytes.NewReader(payload)
	}
	return bc.DoWithHeaderOrder(method, url, headers, body, twitterHeaderOrder)
}

func isSuccess(status int) bool {
	return status == 200 || status == 201
}

// requiresAuth returns true for endpoints that need a real authenticated account.
func requiresAuth(endpoint string) bool {
	switch endpoint {
	case opLogout:
		return true
	}
	return false
}

// isProxyError returns true if the error looks like a proxy connectivity failure.
func isProxyError(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "proxy") ||
		strings.Contains(msg, "SOCKS") ||
		strings.Contains(msg, "tunnel") ||
		strings.Contains(msg, "connection refused") ||
		strings.Contains(msg, "no such host")
}

// markProxyDown applies exponential backoff for proxy failures.
func (c *Client) markProxyDown(acc *Account) {
	fails := acc.incProxyFailures()
	duration := c.cfg.ProxyBackoff.Duration(fails - 1)
	acc.setProxyBackoff(time.Now().Add(duration))

	slog.Warn("proxy down, backing off",
		slog.String("user", acc.Username),
		slog.String("proxy", stealth.MaskProxy(acc.Proxy)),
		slog.Int("consec_fails", fails),
		slog.Duration("backoff", duration))
}

func truncateBytes(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "..."
}

// hasResponseData returns true if the JSON body contains a non-null "data" field.
func hasResponseData(body []byte) bool {
	var envelope struct {
		Data json.RawMessage `json:"data"`
	}
	if json.Unmarshal(body, &envelope) != nil {
		return false
	}
	return len(envelope.Data) > 0 && string(envelope.Data) != "null"
}

// addGraphQLParams builds the full URL with variables, features, and optional fieldToggles.
func addGraphQLParams(url string, variables, features map[string]any, fieldToggles ...map[string]any) string {
	v, _ := json.Marshal(variables)
	f, _ := json.Marshal(features)
	sep := "?"
	if strings.Contains(url, "?") {
		sep = "&"
	}
	result := url + sep + "variables=" + jsonEscape(v) + "&features=" + jsonEscape(f)
	if len(fieldToggles) > 0 && fieldToggles[0] != nil {
		ft, _ := json.Marshal(fieldToggles[0])
		result += "&fieldToggles=" + jsonEscape(ft)
	}
	return result
}

// jsonEscape percent-encodes the characters Twitter rejects in GraphQL query params.
func jsonEscape(b []byte) string {
	return graphQLEscaper.Replace(string(b))
}

var graphQLEscaper = strings.NewReplacer(
	" ", "%20",
	`"`, "%22",
	"{", "%7B",
	"}", "%7D",
	"[", "%5B",
	"]", "%5D",
	":", "%3A",
	",", "%2C",
	"'", "%27",
	"|", "%7C",
	"#", "%23",
	"&", "%26",
	"+", "%2B",
)
