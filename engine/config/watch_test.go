package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type reloadResult struct {
	cfg Config
	err error
}

func watchFile(t *testing.T, path string) (Watcher, chan reloadResult) {
	t.Helper()
	results := make(chan reloadResult, 8)
	w, err := Watch(path, func(cfg Config, err error) {
		results <- reloadResult{cfg, err}
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = w.Close() })
	return w, results
}

func nextReload(t *testing.T, results chan reloadResult) reloadResult {
	t.Helper()
	select {
	case r := <-results:
		return r
	case <-time.After(5 * time.Second):
		require.FailNow(t, "no reload within 5s")
		return reloadResult{}
	}
}

func TestWatch_ReloadsOnWrite(t *testing.T) {
	path := writeFile(t, "live.toml", "[shadow]\nwidth = 1024\n")
	_, results := watchFile(t, path)

	require.NoError(t, os.WriteFile(path, []byte("[shadow]\nwidth = 512\n"), 0o644))
	r := nextReload(t, results)
	require.NoError(t, r.err)
	assert.Equal(t, 512, r.cfg.Shadow.Width)
}

func TestWatch_ReloadsOnRenameReplace(t *testing.T) {
	path := writeFile(t, "live.toml", "[shadow]\nwidth = 1024\n")
	_, results := watchFile(t, path)

	tmp := filepath.Join(filepath.Dir(path), "live.toml.tmp")
	require.NoError(t, os.WriteFile(tmp, []byte("[shadow]\nheight = 256\n"), 0o644))
	require.NoError(t, os.Rename(tmp, path))

	r := nextReload(t, results)
	require.NoError(t, r.err)
	assert.Equal(t, 256, r.cfg.Shadow.Height)
}

func TestWatch_ReportsInvalidReload(t *testing.T) {
	path := writeFile(t, "live.toml", "")
	_, results := watchFile(t, path)

	require.NoError(t, os.WriteFile(path, []byte("[shadow]\nwidth = -1\n"), 0o644))
	r := nextReload(t, results)
	assert.ErrorIs(t, r.err, ErrInvalid)
}

func TestWatch_IgnoresSiblingFiles(t *testing.T) {
	path := writeFile(t, "live.toml", "")
	_, results := watchFile(t, path)

	require.NoError(t, os.WriteFile(filepath.Join(filepath.Dir(path), "other.toml"), []byte("x"), 0o644))
	select {
	case r := <-results:
		t.Fatalf("unexpected reload: %+v", r)
	case <-time.After(3 * reloadDelay):
	}
}

func TestWatch_CloseIsIdempotent(t *testing.T) {
	w, err := Watch(writeFile(t, "live.toml", ""), func(Config, error) {})
	require.NoError(t, err)
	assert.NoError(t, w.Close())
	assert.NoError(t, w.Close())
}

func TestWatch_MissingDirectory(t *testing.T) {
	_, err := Watch(filepath.Join(t.TempDir(), "nope", "live.toml"), func(Config, error) {})
	assert.Error(t, err)
}
