// Package session opens the Twitter session a run reads through: logged in
// when credentials are configured, guest-token based otherwise.
package session

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"

	twitter "github.com/anatolykoptev/go-twitter-thread"
	"github.com/anatolykoptev/go-twitter-thread/captcha"
	"github.com/anatolykoptev/go-twitter-thread/internal/config"
)

// RequestStats counts the API calls a session made.
type RequestStats struct {
	Requests    int64
	Failed      int64
	RateLimited int64
}

// Session serves tweet lookups and conversation searches.
type Session struct {
	*twitter.Client
	username string

	requests, failed, rateLimited atomic.Int64
}

// Open builds the client described by cfg. Configured credentials that
// fail to log in are an error; without credentials the session is anonymous
// and may see fewer results.
func Open(ctx context.Context, cfg *config.Config) (*Session, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s := &Session{}
	cc := s.clientConfig(cfg)
	if len(cc.Accounts) == 0 {
		slog.Warn("no TWITTER_USERNAME/TWITTER_PASSWORD set, continuing without login")
	} else {
		slog.Info("logging in", slog.String("user", cfg.Username))
	}

	c, err := twitter.NewClient(cc)
	if err != nil {
		return nil, fmt.Errorf("login %s: %w", cfg.Username, err)
	}
	s.Client = c
	if len(cc.Accounts) > 0 {
		s.username = cfg.Username
		slog.Info("logged in", slog.String("user", cfg.Username))
	}
	return s, nil
}

// clientConfig maps run configuration onto the client's. Sessions are
// persisted only when a session dir is configured.
func (s *Session) clientConfig(cfg *config.Config) twitter.ClientConfig {
	cc := twitter.ClientConfig{
		StrictLogin: true,
		Proxy:       cfg.Proxy,
		SessionDir:  cfg.SessionDir,
		OnRequest:   s.count,
	}
	if cfg.HasCredentials() {
		cc.Accounts = []*twitter.Account{twitter.NewAccount(cfg.Username, cfg.Password, cfg.TOTPSecret)}
	}
	if cfg.CapsolverKey != "" {
		cc.CaptchaSolver = captcha.NewCapsolver(cfg.CapsolverKey)
	}
	return cc
}

func (s *Session) count(_ string, ok, rateLimited bool) {
	s.requests.Add(1)
	if !ok {
		s.failed.Add(1)
	}
	if rateLimited {
		s.rateLimited.Add(1)
	}
}

// Stats returns the API calls made so far.
func (s *Session) Stats() RequestStats {
	return RequestStats{
		Requests:    s.requests.Load(),
		Failed:      s.failed.Load(),
		RateLimited: s.rateLimited.Load(),
	}
}

// UsesCredentials reports whether the session logged in with an account.
func (s *Session) UsesCredentials() bool {
	return s.username != ""
}

// Logout ends the logged-in session. It does nothing for anonymous sessions.
func (s *Session) Logout(ctx context.Context) error {
	if !s.UsesCredentials() {
		return nil
	}
	if err := s.Client.Logout(ctx); err != nil {
		return err
	}
	slog.Info("session closed", slog.String("user", s.username))
	return nil
}
