package cache

import (
	"context"
	"encoding/binary"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// entryExt marks files written by FileCache; Clear removes nothing else.
const entryExt = ".bin"

// headerSize is the expiry stamp that precedes every entry: Unix
// nanoseconds, big-endian, zero for no expiry.
const headerSize = 8

// FileCache stores each entry as one file below dir, sharded by the first
// two hex digits of the key hash. Entries hold raw image bytes behind a
// fixed-size expiry header.
type FileCache struct {
	dir string
}

var _ Cache = (*FileCache)(nil)

// NewFileCache creates a file cache rooted at dir, creating it if needed.
func NewFileCache(dir string) (*FileCache, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	return &FileCache{dir: dir}, nil
}

// Get returns the entry for key. Expired and truncated entries are removed
// and reported as misses.
func (c *FileCache) Get(_ context.Context, key string) ([]byte, bool, error) {
	path := c.path(key)
	raw, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}

	if len(raw) < headerSize {
		_ = os.Remove(path)
		return nil, false, nil
	}
	if exp := int64(binary.BigEndian.Uint64(raw[:headerSize])); exp != 0 && time.Now().UnixNano() > exp {
		_ = os.Remove(path)
		return nil, false, nil
	}
	return raw[headerSize:], true, nil
}

// Set writes the entry through a temporary file so concurrent readers
// never see a partial image. A ttl <= 0 never expires.
func (c *FileCache) Set(_ context.Context, key string, data []byte, ttl time.Duration) error {
	var exp int64
	if ttl > 0 {
		exp = time.Now().Add(ttl).UnixNano()
	}
	buf := make([]byte, headerSize+len(data))
	binary.BigEndian.PutUint64(buf, uint64(exp))
	copy(buf[headerSize:], data)

	path := c.path(key)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), ".tmp-*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name()) // no-op after a successful rename

	if _, err := tmp.Write(buf); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}

// Delete removes key. A missing entry is not an error.
func (c *FileCache) Delete(_ context.Context, key string) error {
	err := os.Remove(c.path(key))
	if os.IsNotExist(err) {
		return nil
	}
	return err
}

// Dir returns the cache directory.
func (c *FileCache) Dir() string { return c.dir }

// Clear removes every entry and the now empty shard directories. It returns
// the number of entries removed.
func (c *FileCache) Clear() (int, error) {
	shards, err := os.ReadDir(c.dir)
	if os.IsNotExist(err) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}

	count := 0
	for _, shard := range shards {
		if !shard.IsDir() {
			continue
		}
		sub := filepath.Join(c.dir, shard.Name())
		entries, err := os.ReadDir(sub)
		if err != nil {
			continue
		}
		for _, e := range entries {
			name := e.Name()
			switch {
			case e.IsDir():
			case strings.HasSuffix(name, entryExt):
				if os.Remove(filepath.Join(sub, name)) == nil {
					count++
				}
			case strings.HasPrefix(name, ".tmp-"):
				_ = os.Remove(filepath.Join(sub, name))
			}
		}
		_ = os.Remove(sub) // only succeeds when empty
	}
	return count, nil
}

// Close is a no-op.
func (c *FileCache) Close() error { return nil }

func (c *FileCache) path(key string) string {
	h := Hash([]byte(key))
	return filepath.Join(c.dir, h[:2], h[2:]+entryExt)
}
