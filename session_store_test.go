package twitter

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSessionRoundTrip(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, saveSession(dir, "alice", "tok", "ct0val"))

	info, err := os.Stat(filepath.Join(dir, "alice.json"))
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())

	authToken, ct0, err := loadSession(dir, "alice", time.Hour)
	require.NoError(t, err)
	assert.Equal(t, "tok", authToken)
	assert.Equal(t, "ct0val", ct0)
}

func TestLoadSession_MissingAndExpired(t *testing.T) {
	dir := t.TempDir()

	authToken, ct0, err := loadSession(dir, "nobody", time.Hour)
	require.NoError(t, err)
	assert.Empty(t, authToken)
	assert.Empty(t, ct0)

	require.NoError(t, saveSession(dir, "bob", "tok", "ct0"))
	authToken, _, err = loadSession(dir, "bob", -time.Second)
	require.NoError(t, err)
	assert.Empty(t, authToken, "expired session must be ignored")
}

func TestLoadSession_Corrupt(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "carol.json"), []byte("{"), 0600))
	_, _, err := loadSession(dir, "carol", time.Hour)
	assert.Error(t, err)
}

func TestRemoveSession(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, saveSession(dir, "dave", "tok", "ct0"))
	require.NoError(t, removeSession(dir, "dave"))
	_, err := os.Stat(filepath.Join(dir, "dave.json"))
	assert.True(t, os.IsNotExist(err))

	assert.NoError(t, removeSession(dir, "dave"), "removing twice is fine")
}

func TestAccountCredentials(t *testing.T) {
	acc := NewAccount("erin", "pw", "")
	assert.True(t, acc.IsActive())
	assert.False(t, acc.LoggedIn())
	assert.NotEmpty(t, acc.UserAgent)

	acc.SetCredentials("tok", "c0")
	assert.True(t, acc.LoggedIn())
	assert.Less(t, acc.CT0Age(), time.Minute)

	acc.RotateCT0()
	_, ct0, _ := acc.Credentials()
	assert.Len(t, ct0, 64)

	acc.SetCredentials("", "")
	assert.False(t, acc.LoggedIn())
}

func TestAccountWithoutLimiterAllowsRequests(t *testing.T) {
	acc := NewAccount("frank", "pw", "")
	assert.True(t, acc.AllowRequest("SearchTimeline"))
	acc.MarkEndpointRateLimited("SearchTimeline", time.Now().Add(time.Minute))
}

func TestSessionPersistenceDisabledByDefault(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)

	require.NoError(t, saveSession("", "frank", "tok", "ct0"))
	authToken, ct0, err := loadSession("", "frank", time.Hour)
	require.NoError(t, err)
	assert.Empty(t, authToken)
	assert.Empty(t, ct0)
	assert.NoError(t, removeSession("", "frank"))

	entries, err := os.ReadDir(home)
	require.NoError(t, err)
	assert.Empty(t, entries, "nothing may be written without a session dir")
}

func TestSessionPathStaysInDir(t *testing.T) {
	root := t.TempDir()
	dir := filepath.Join(root, "sessions")
	require.NoError(t, saveSession(dir, "../evil", "tok", "ct0"))

	_, err := os.Stat(filepath.Join(root, "evil.json"))
	assert.True(t, os.IsNotExist(err))
	assert.Equal(t, dir, filepath.Dir(sessionPath(dir, "../evil")))
	assert.Equal(t, dir, filepath.Dir(sessionPath(dir, `..\..\evil`)))

	authToken, _, err := loadSession(dir, "../evil", time.Hour)
	require.NoError(t, err)
	assert.Equal(t, "tok", authToken)
}

// An empty password makes any fallback login fail before touching the network.
func TestNewClient_StrictLoginIgnoresSavedSession(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, saveSession(dir, "alice", "stale-token", "stale-ct0"))

	acc := NewAccount("alice", "", "")
	_, err := NewClient(ClientConfig{StrictLogin: true, SessionDir: dir, Accounts: []*Account{acc}})
	require.Error(t, err)
	assert.False(t, acc.LoggedIn())
}

func TestNewClient_LenientLoginReusesSavedSession(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, saveSession(dir, "alice", "saved-token", "saved-ct0"))

	acc := NewAccount("alice", "", "")
	c, err := NewClient(ClientConfig{SessionDir: dir, Accounts: []*Account{acc}})
	require.NoError(t, err)
	assert.True(t, c.Authenticated())
	authToken, ct0, _ := acc.Credentials()
	assert.Equal(t, "saved-token", authToken)
	assert.Equal(t, "saved-ct0", ct0)
}

func TestNewClient_StrictLoginWithoutPasswordFails(t *testing.T) {
	_, err := NewClient(ClientConfig{StrictLogin: true, Accounts: []*Account{NewAccount("bob", "", "")}})
	assert.ErrorContains(t, err, "no password")
}
