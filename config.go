package twitter

import (
	"time"

	stealth "github.com/anatolykoptev/go-stealth"
	"github.com/anatolykoptev/go-stealth/ratelimit"
	"github.com/anatolykoptev/go-twitter-thread/captcha"
)

// ClientConfig configures NewClient. Zero fields take the defaults below.
type ClientConfig struct {
	// Accounts log in at construction. None means guest-token reads only.
	Accounts []*Account

	// StrictLogin turns a failed login into a NewClient error and makes every
	// account log in afresh instead of trusting a saved session.
	StrictLogin bool

	// Proxy routes all traffic without a per-account proxy.
	Proxy string

	// SessionDir keeps auth_token/ct0 between runs. Empty disables it.
	SessionDir string
	SessionTTL time.Duration

	// Soft-deactivation periods for auth errors and for banned or locked accounts.
	AuthCooldown time.Duration
	BanCooldown  time.Duration

	CaptchaSolver captcha.Solver
	RateLimit     ratelimit.Config

	// ProxyBackoff spaces retries through a proxy that stopped answering.
	ProxyBackoff stealth.BackoffConfig

	// OnRequest observes the outcome of every API call.
	OnRequest func(endpoint string, ok, rateLimited bool)
}

func (cfg *ClientConfig) defaults() {
	if cfg.SessionTTL == 0 {
		cfg.SessionTTL = 24 * time.Hour
	}
	if cfg.AuthCooldown == 0 {
		cfg.AuthCooldown = time.Hour
	}
	if cfg.BanCooldown == 0 {
		cfg.BanCooldown = 6 * time.Hour
	}
	if cfg.RateLimit.RequestsPerWindow == 0 {
		cfg.RateLimit = ratelimit.DefaultConfig
	}
	if cfg.ProxyBackoff.InitialWait == 0 {
		cfg.ProxyBackoff = stealth.BackoffConfig{
			InitialWait: 30 * time.Second,
			MaxWait:     30 * time.Minute,
			Multiplier:  2.0,
			JitterPct:   0.3,
		}
	}
}
