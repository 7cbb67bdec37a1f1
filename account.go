package twitter

import (
	"sync"
	"time"

	stealth "github.com/anatolykoptev/go-stealth"
	"github.com/anatolykoptev/go-stealth/pool"
	"github.com/anatolykoptev/go-stealth/ratelimit"
)

// Account represents a Twitter account with credentials for the pool.
type Account struct {
	Username   string
	Password   string
	AuthToken  string
	CT0        string
	TOTPSecret string
	Proxy      string
	UserAgent  string
	Profile    stealth.BrowserProfile

	active       bool
	reactivateAt time.Time
	client       *stealth.BrowserClient

	mu               sync.Mutex
	ct0RefreshedAt   time.Time
	proxyBackoff     time.Time
	proxyConsecFails int
	rateLimiter      *ratelimit.Limiter

	pool.HealthTracker
}

// NewAccount returns an active account for username/password login.
// totpSecret may be empty when the account has no 2FA.
func NewAccount(username, password, totpSecret string) *Account {
	acc := &Account{
		Username:   username,
		Password:   password,
		TOTPSecret: totpSecret,
		active:     true,
	}
	AssignBrowserProfile(acc, 0)
	return acc
}

// ID implements pool.Identity.
func (a *Account) ID() string { return a.Username }

// IsActive implements pool.Identity.
func (a *Account) IsActive() bool { return a.active }

// SetActive implements pool.Identity.
func (a *Account) SetActive(v bool) { a.active = v }

// ReactivateAt implements pool.Identity.
func (a *Account) ReactivateAt() time.Time { return a.reactivateAt }

// SetReactivateAt implements pool.Identity.
func (a *Account) SetReactivateAt(t time.Time) { a.reactivateAt = t }

// CT0Age returns the time since the ct0 token was last refreshed.
func (a *Account) CT0Age() time.Duration {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.ct0RefreshedAt.IsZero() {
		return 24 * time.Hour
	}
	return time.Since(a.ct0RefreshedAt)
}

// RotateCT0 generates a fresh ct0 token and updates the refresh timestamp.
func (a *Account) RotateCT0() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.CT0 = GenerateCT0()
	a.ct0RefreshedAt = time.Now()
}

// SetCT0 updates the ct0 from a server response.
func (a *Account) SetCT0(ct0 string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.CT0 = ct0
	a.ct0RefreshedAt = time.Now()
}

// Credentials returns a snapshot of (authToken, ct0, userAgent) under lock.
func (a *Account) Credentials() (authToken, ct0, userAgent string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.AuthToken, a.CT0, a.UserAgent
}

// SetCredentials atomically updates auth_token and ct0.
func (a *Account) SetCredentials(authToken, ct0 string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.AuthToken = authToken
	a.CT0 = ct0
	a.ct0RefreshedAt = time.Now()
}

// LoggedIn reports whether the account currently holds an auth_token.
func (a *Account) LoggedIn() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.AuthToken != ""
}

// AllowRequest checks if this account can make a request to the given endpoint.
func (a *Account) AllowRequest(endpoint string) bool {
	if rl := a.limiter(); rl != nil {
		return rl.Allow(endpoint)
	}
	return true
}

// MarkEndpointRateLimited marks an endpoint as rate-limited for this account.
func (a *Account) MarkEndpointRateLimited(endpoint string, until time.Time) {
	if rl := a.limiter(); rl != nil {
		rl.MarkRateLimited(endpoint, until)
	}
}

func (a *Account) limiter() *ratelimit.Limiter {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.rateLimiter
}

func (a *Account) proxyBackoffUntil() time.Time {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.proxyBackoff
}

func (a *Account) setProxyBackoff(until time.Time) {
	a.mu.Lock()
	a.proxyBackoff = until
	a.mu.Unlock()
}

func (a *Account) incProxyFailures() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.proxyConsecFails++
	return a.proxyConsecFails
}

// resetProxyFailures is called on any HTTP response, whatever its status.
func (a *Account) resetProxyFailures() {
	a.mu.Lock()
	a.proxyConsecFails = 0
	a.mu.Unlock()
}

// AssignBrowserProfile sets a browser profile based on index.
func AssignBrowserProfile(acc *Account, idx int) {
	p := stealth.BuiltinProfiles[idx%len(stealth.BuiltinProfiles)]
	acc.Profile = p
	acc.UserAgent = p.UserAgent
}
