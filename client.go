package twitter

import (
	"fmt"
	"log/slog"
	"sync"
	"time"

	stealth "github.com/anatolykoptev/go-stealth"
	"github.com/anatolykoptev/go-stealth/pool"
	"github.com/anatolykoptev/go-stealth/ratelimit"
)

// Client is the top-level Twitter scraping client.
type Client struct {
	client   *stealth.BrowserClient
	pool     *pool.Pool[*Account]
	accounts []*Account
	cfg      ClientConfig

	mu                sync.Mutex
	guestToken        string
	guestLimitedUntil time.Time
}

// NewClient creates a fully-wired Twitter client and logs in every account.
// With no accounts the client runs on guest tokens only. Login failures
// deactivate the account, or abort construction when cfg.StrictLogin is set.
func NewClient(cfg ClientConfig) (*Client, error) {
	cfg.defaults()

	for _, acc := range cfg.Accounts {
		acc.rateLimiter = ratelimit.NewLimiter(cfg.RateLimit)
		acc.HealthTracker = pool.DefaultHealthTracker()
	}

	opts := []stealth.ClientOption{
		stealth.WithHeaderOrder(twitterHeaderOrder),
	}
	if cfg.Proxy != "" {
		opts = append(opts, stealth.WithProxy(cfg.Proxy))
	}
	bc, err := stealth.NewClient(opts...)
	if err != nil {
		return nil, fmt.Errorf("stealth client: %w", err)
	}

	poolCfg := pool.Config{
		AlertHook: func(topic string, payload any) {
			slog.Warn("pool alert", slog.String("topic", topic), slog.Any("payload", payload))
		},
		ProxyBackoff: pool.BackoffConfig{
			InitialWait: cfg.ProxyBackoff.InitialWait,
			MaxWait:     cfg.ProxyBackoff.MaxWait,
			Multiplier:  cfg.ProxyBackoff.Multiplier,
			JitterPct:   cfg.ProxyBackoff.JitterPct,
		},
	}

	c := &Client{
		client:   bc,
		pool:     pool.New(cfg.Accounts, poolCfg),
		accounts: cfg.Accounts,
		cfg:      cfg,
	}

	for _, acc := range cfg.Accounts {
		if acc.Proxy != "" {
			accClient, err := stealth.NewClient(
				stealth.WithProxy(acc.Proxy),
				stealth.WithProfile(acc.Profile.TLSProfile),
				stealth.WithHeaderOrder(twitterHeaderOrder),
			)
			if err != nil {
				slog.Warn("per-account client failed", slog.String("user", acc.Username), slog.Any("error", err))
			} else {
				acc.client = accClient
			}
		}

		if err := c.loadOrLogin(acc, c.clientForAccount(acc)); err != nil {
			if cfg.StrictLogin {
				return nil, err
			}
			slog.Warn("account login failed", slog.String("user", acc.Username), slog.Any("error", err))
			acc.SetActive(false)
		}
	}

	return c, nil
}

// Authenticated reports whether at least one account holds a live session.
func (c *Client) Authenticated() bool {
	for _, acc := range c.accounts {
		if acc.IsActive() && acc.LoggedIn() {
			return true
		}
	}
	return false
}

// clientForAccount returns the per-account client if available, otherwise the shared client.
func (c *Client) clientForAccount(acc *Account) *stealth.BrowserClient {
	if acc.client != nil {
		return acc.client
	}
	return c.client
}

func (c *Client) recordAPICall(endpoint string, ok, rateLimited bool) {
	if c.cfg.OnRequest != nil {
		c.cfg.OnRequest(endpoint, ok, rateLimited)
	}
}

// setGuestToken stores a fresh guest token.
func (c *Client) setGuestToken(token string) {
	c.mu.Lock()
	c.guestToken = token
	c.guestLimitedUntil = time.Time{}
	c.mu.Unlock()
}

// markGuestTokenRateLimited marks the guest token as rate-limited.
func (c *Client) markGuestTokenRateLimited(until time.Time) {
	c.mu.Lock()
	c.guestLimitedUntil = until
	c.mu.Unlock()
}

// getGuestTokenCached returns the current guest token and whether it is usable.
func (c *Client) getGuestTokenCached() (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.guestToken == "" || time.Now().Before(c.guestLimitedUntil) {
		return "", false
	}
	return c.guestToken, true
}
