package twitter

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"net/url"
	"os"
	"path/filepath"
	"time"
)

// sessionPath returns the file for username's session inside dir. The name
// is escaped so it cannot leave dir.
func sessionPath(dir, username string) string {
	return filepath.Join(dir, url.PathEscape(username)+".json")
}

// savedSession holds serialized cookie data for persistence.
type savedSession struct {
	AuthToken string    `json:"auth_token"`
	CT0       string    `json:"ct0"`
	SavedAt   time.Time `json:"saved_at"`
}

// saveSession persists auth_token and ct0 to disk. An empty dir disables
// persistence.
func saveSession(dir, username, authToken, ct0 string) error {
	if dir == "" {
		return nil
	}
	if err := os.MkdirAll(dir, 0700); err != nil {
		return fmt.Errorf("create session dir: %w", err)
	}
	data, err := json.MarshalIndent(savedSession{AuthToken: authToken, CT0: ct0, SavedAt: time.Now()}, "", "  ")
	if err != nil {
		return err
	}
	path := sessionPath(dir, username)
	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("write session %s: %w", path, err)
	}
	slog.Debug("session saved", slog.String("user", username))
	return nil
}

// loadSession loads a persisted session from disk. A missing or expired
// session yields empty credentials and no error.
func loadSession(dir, username string, ttl time.Duration) (authToken, ct0 string, err error) {
	if dir == "" {
		return "", "", nil
	}
	data, err := os.ReadFile(sessionPath(dir, username))
	if errors.Is(err, fs.ErrNotExist) {
		return "", "", nil
	}
	if err != nil {
		return "", "", err
	}
	var s savedSession
	if err := json.Unmarshal(data, &s); err != nil {
		return "", "", fmt.Errorf("decode session %s: %w", username, err)
	}
	if time.Since(s.SavedAt) > ttl {
		slog.Debug("session expired", slog.String("user", username))
		return "", "", nil
	}
	return s.AuthToken, s.CT0, nil
}

// removeSession deletes a persisted session; a missing file is not an error.
func removeSession(dir, username string) error {
	if dir == "" {
		return nil
	}
	err := os.Remove(sessionPath(dir, username))
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return nil
}
