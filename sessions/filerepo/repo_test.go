package filerepo_test

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/jrsteele09/go-timetrack-client/sessions"
	"github.com/jrsteele09/go-timetrack-client/sessions/filerepo"
	"github.com/stretchr/testify/require"
)

type testFixture struct {
	dir         string
	sessionFile string
	keyFile     string
	repo        *filerepo.Repo
}

func setupTestFixture(t *testing.T) *testFixture {
	t.Helper()
	dir := t.TempDir()
	f := &testFixture{
		dir:         dir,
		sessionFile: filepath.Join(dir, "state", "session.yml"),
		keyFile:     filepath.Join(dir, "state", "session.key"),
	}
	repo, err := filerepo.Open(f.sessionFile, f.keyFile)
	require.NoError(t, err)
	f.repo = repo
	return f
}

func TestRepo_MissingFileIsEmpty(t *testing.T) {
	f := setupTestFixture(t)

	values, err := f.repo.Load()
	require.NoError(t, err)
	require.Empty(t, values)
}

func TestRepo_UpdateAndLoad(t *testing.T) {
	f := setupTestFixture(t)

	require.NoError(t, f.repo.Update(map[string]string{
		sessions.KeyAccessToken: "secret-token",
		sessions.KeyUserEmail:   "e@x.com",
	}))

	values, err := f.repo.Load()
	require.NoError(t, err)
	require.Equal(t, map[string]string{
		sessions.KeyAccessToken: "secret-token",
		sessions.KeyUserEmail:   "e@x.com",
	}, values)

	info, err := os.Stat(f.sessionFile)
	require.NoError(t, err)
	require.Equal(t, os.FileMode(0600), info.Mode().Perm())

	raw, err := os.ReadFile(f.sessionFile)
	require.NoError(t, err)
	require.NotContains(t, string(raw), "secret-token")
	require.Contains(t, string(raw), sessions.KeyAccessToken)
}

func TestRepo_RemoveDeletesKeys(t *testing.T) {
	f := setupTestFixture(t)
	require.NoError(t, f.repo.Update(map[string]string{
		sessions.KeyAccessToken:  "a",
		sessions.KeyRefreshToken: "b",
		sessions.KeyUserEmail:    "e@x.com",
	}))

	require.NoError(t, f.repo.Update(nil, sessions.KeyRefreshToken))
	keys, err := f.repo.Keys()
	require.NoError(t, err)
	require.Equal(t, []string{sessions.KeyAccessToken, sessions.KeyUserEmail}, keys)

	require.NoError(t, f.repo.Update(nil, sessions.PersistedKeys...))
	require.NoFileExists(t, f.sessionFile)
}

func TestRepo_KeyMaterialIsReused(t *testing.T) {
	f := setupTestFixture(t)
	require.NoError(t, f.repo.Update(map[string]string{sessions.KeyUserEmail: "e@x.com"}))

	reopened, err := filerepo.Open(f.sessionFile, f.keyFile)
	require.NoError(t, err)
	values, err := reopened.Load()
	require.NoError(t, err)
	require.Equal(t, "e@x.com", values[sessions.KeyUserEmail])

	info, err := os.Stat(f.keyFile)
	require.NoError(t, err)
	require.Equal(t, os.FileMode(0600), info.Mode().Perm())
}

func TestRepo_ForeignKeyCannotOpen(t *testing.T) {
	f := setupTestFixture(t)
	require.NoError(t, f.repo.Update(map[string]string{sessions.KeyAccessToken: "a", sessions.KeyUserEmail: "e@x.com"}))

	other, err := filerepo.Open(f.sessionFile, filepath.Join(f.dir, "other.key"))
	require.NoError(t, err)
	_, err = other.Load()
	require.Error(t, err)
}

func TestRepo_SwappedValuesAreRejected(t *testing.T) {
	f := setupTestFixture(t)
	require.NoError(t, f.repo.Update(map[string]string{sessions.KeyAccessToken: "a", sessions.KeyUserEmail: "e@x.com"}))

	raw, err := os.ReadFile(f.sessionFile)
	require.NoError(t, err)
	swapped := strings.NewReplacer(
		sessions.KeyAccessToken, sessions.KeyUserEmail,
		sessions.KeyUserEmail, sessions.KeyAccessToken,
	).Replace(string(raw))
	require.NoError(t, os.WriteFile(f.sessionFile, []byte(swapped), 0600))

	_, err = f.repo.Load()
	require.Error(t, err)
}

func TestRepo_InvalidKeyFile(t *testing.T) {
	keyFile := filepath.Join(t.TempDir(), "session.key")
	require.NoError(t, os.WriteFile(keyFile, []byte("short"), 0600))

	_, err := filerepo.Open(filepath.Join(t.TempDir(), "session.yml"), keyFile)
	require.ErrorIs(t, err, filerepo.ErrInvalidKeyFile)
}

func TestRepo_BacksSessionStore(t *testing.T) {
	f := setupTestFixture(t)
	store := sessions.NewStore(f.repo)
	require.NoError(t, store.SetTokens("A", "B", "e@x.com"))

	reopened, err := filerepo.Open(f.sessionFile, f.keyFile)
	require.NoError(t, err)
	restarted := sessions.NewStore(reopened)
	tok, ok := restarted.AccessToken()
	require.True(t, ok)
	require.Equal(t, "A", tok)

	restarted.Logout()
	require.NoFileExists(t, f.sessionFile)
}

func TestWatcher_ReportsWritesFromAnotherProcess(t *testing.T) {
	f := setupTestFixture(t)
	require.NoError(t, os.MkdirAll(filepath.Dir(f.sessionFile), 0700))

	changed := make(chan struct{}, 8)
	w, err := filerepo.NewWatcher(f.sessionFile, func() { changed <- struct{}{} }, filerepo.WithDebounce(20*time.Millisecond))
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go w.Start(ctx)

	other, err := filerepo.Open(f.sessionFile, f.keyFile)
	require.NoError(t, err)
	require.NoError(t, other.Update(map[string]string{sessions.KeyAccessToken: "A", sessions.KeyUserEmail: "e@x.com"}))

	select {
	case <-changed:
	case <-time.After(2 * time.Second):
		t.Fatal("no change reported")
	}
}

func TestWatcher_ReloadsStore(t *testing.T) {
	f := setupTestFixture(t)
	store := sessions.NewStore(f.repo)
	require.NoError(t, store.SetTokens("A", "", "e@x.com"))

	w, err := filerepo.NewWatcher(f.sessionFile, func() { _ = store.Reload() }, filerepo.WithDebounce(20*time.Millisecond))
	require.NoError(t, err)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go w.Start(ctx)

	other, err := filerepo.Open(f.sessionFile, f.keyFile)
	require.NoError(t, err)
	sessions.NewStore(other).Logout()

	require.Eventually(t, func() bool {
		_, ok := store.Current()
		return !ok
	}, 2*time.Second, 10*time.Millisecond)
}
