package cli

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/matzehuels/pixelsort/pkg/config"
)

func TestCacheDir(t *testing.T) {
	t.Setenv("XDG_CACHE_HOME", "")

	dir, err := cacheDir()
	if err != nil {
		t.Fatalf("cacheDir() error: %v", err)
	}

	home, _ := os.UserHomeDir()
	want := filepath.Join(home, ".cache", appName)
	if dir != want {
		t.Errorf("cacheDir() = %q, want %q", dir, want)
	}
}

func TestCacheDirXDG(t *testing.T) {
	custom := t.TempDir()
	t.Setenv("XDG_CACHE_HOME", custom)

	dir, err := cacheDir()
	if err != nil {
		t.Fatalf("cacheDir() error: %v", err)
	}
	if want := filepath.Join(custom, appName); dir != want {
		t.Errorf("cacheDir() with XDG_CACHE_HOME = %q, want %q", dir, want)
	}
}

func TestFileCacheDirPrefersConfig(t *testing.T) {
	t.Setenv("XDG_CACHE_HOME", t.TempDir())

	c := New(os.Stderr, LogInfo)
	c.config = config.Default()
	c.config.Cache.Dir = "/srv/pixelsort-cache"

	dir, err := c.fileCacheDir()
	if err != nil {
		t.Fatalf("fileCacheDir() error: %v", err)
	}
	if dir != "/srv/pixelsort-cache" {
		t.Errorf("fileCacheDir() = %q, want the configured dir", dir)
	}
}
