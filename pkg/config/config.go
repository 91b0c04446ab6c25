// Package config loads pixelsort settings and named parameter presets from
// a TOML file.
//
// # File Location
//
// The default location is $XDG_CONFIG_HOME/pixelsort/config.toml, falling
// back to ~/.config/pixelsort/config.toml. A missing file is not an error:
// [Load] returns [Default] instead.
//
// # Format
//
//	seed    = 7
//	workers = 4
//	format  = "jpeg"
//	quality = 85
//
//	[params]
//	direction     = "vertical"
//	sort_key      = "hue"
//	interval_mode = "edges"
//
//	[presets.dusk]
//	sort_key = "red"
//	angle    = 30
//
//	[cache]
//	backend = "file"   # file, redis or none
//	ttl     = "72h"
//
// Enum fields are written by name. Fields left out of [params] or a preset
// keep their default values. User presets shadow built-in presets of the
// same name.
package config

import (
	"maps"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/matzehuels/pixelsort/pkg/errors"
	"github.com/matzehuels/pixelsort/pkg/pixelsort"
)

// Cache backends.
const (
	BackendFile  = "file"
	BackendRedis = "redis"
	BackendNone  = "none"
)

// Config is the contents of a config file merged over the defaults.
type Config struct {
	Seed    uint64           `toml:"seed"`
	Workers int              `toml:"workers"`
	Format  string           `toml:"format"` // empty keeps the input format
	Quality int              `toml:"quality"`
	Params  pixelsort.Params `toml:"params"`
	Cache   CacheConfig      `toml:"cache"`

	// Presets holds the user presets only; see Preset and PresetNames for
	// the merged view.
	Presets map[string]pixelsort.Params `toml:"-"`

	path string
}

// CacheConfig selects and configures the artifact cache.
type CacheConfig struct {
	Backend   string        `toml:"backend"`
	Dir       string        `toml:"dir"`
	RedisAddr string        `toml:"redis_addr"`
	TTL       time.Duration `toml:"ttl"`
}

// file mirrors Config with presets left undecoded so each one can be
// decoded over DefaultParams.
type file struct {
	Seed    uint64                    `toml:"seed"`
	Workers int                       `toml:"workers"`
	Format  string                    `toml:"format"`
	Quality int                       `toml:"quality"`
	Params  pixelsort.Params          `toml:"params"`
	Cache   CacheConfig               `toml:"cache"`
	Presets map[string]toml.Primitive `toml:"presets"`
}

// Default returns the configuration used when no file exists.
func Default() *Config {
	return &Config{
		Seed:    pixelsort.DefaultSeed,
		Quality: 90,
		Params:  pixelsort.DefaultParams(),
		Cache: CacheConfig{
			Backend: BackendFile,
			TTL:     7 * 24 * time.Hour,
		},
		Presets: map[string]pixelsort.Params{},
	}
}

// DefaultPath returns the config file location.
func DefaultPath() string {
	if dir := os.Getenv("XDG_CONFIG_HOME"); dir != "" {
		return filepath.Join(dir, "pixelsort", "config.toml")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".pixelsort", "config.toml")
	}
	return filepath.Join(home, ".config", "pixelsort", "config.toml")
}

// Load reads the config file at path, or DefaultPath when path is empty.
// A missing file at the default path yields Default; a missing file that
// was named explicitly is an error.
func Load(path string) (*Config, error) {
	explicit := path != ""
	if !explicit {
		path = DefaultPath()
	}

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) && !explicit {
		return Default(), nil
	}
	if os.IsNotExist(err) {
		return nil, errors.New(errors.ErrCodeFileNotFound, "config file not found: %s", path)
	}
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidInput, err, "failed to read config")
	}

	cfg, err := Parse(data)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidInput, err, "invalid config %s", path)
	}
	cfg.path = path
	return cfg, nil
}

// Parse decodes TOML config data over Default.
func Parse(data []byte) (*Config, error) {
	def := Default()
	f := file{
		Seed:    def.Seed,
		Format:  def.Format,
		Quality: def.Quality,
		Params:  def.Params,
		Cache:   def.Cache,
	}

	md, err := toml.Decode(string(data), &f)
	if err != nil {
		return nil, err
	}

	presets := make(map[string]pixelsort.Params, len(f.Presets))
	for name, prim := range f.Presets {
		if err := errors.ValidatePresetName(name); err != nil {
			return nil, err
		}
		p := pixelsort.DefaultParams()
		if err := md.PrimitiveDecode(prim, &p); err != nil {
			return nil, errors.Wrap(errors.ErrCodeInvalidParams, err, "preset %q", name)
		}
		presets[strings.ToLower(name)] = p.Clamp()
	}

	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		return nil, errors.New(errors.ErrCodeInvalidInput, "unknown config keys: %s", strings.Join(keys, ", "))
	}

	cfg := &Config{
		Seed:    f.Seed,
		Workers: max(f.Workers, 0),
		Format:  f.Format,
		Quality: f.Quality,
		Params:  f.Params.Clamp(),
		Cache:   f.Cache,
		Presets: presets,
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	switch c.Cache.Backend {
	case BackendFile, BackendRedis, BackendNone:
	default:
		return errors.New(errors.ErrCodeInvalidInput, "invalid cache backend: %q (must be one of: file, redis, none)", c.Cache.Backend)
	}
	if c.Cache.Backend == BackendRedis && c.Cache.RedisAddr == "" {
		return errors.New(errors.ErrCodeInvalidInput, "cache backend redis needs redis_addr")
	}
	if c.Cache.TTL < 0 {
		return errors.New(errors.ErrCodeInvalidInput, "cache ttl cannot be negative")
	}
	return errors.ValidateQuality(c.Quality)
}

// Path returns the file the config was loaded from, or "" for defaults.
func (c *Config) Path() string { return c.path }

// Preset looks up a preset by name, user presets first.
func (c *Config) Preset(name string) (pixelsort.Params, bool) {
	name = strings.ToLower(strings.TrimSpace(name))
	if p, ok := c.Presets[name]; ok {
		return p, true
	}
	p, ok := builtins[name]
	return p, ok
}

// PresetNames lists built-in and user presets, sorted, without duplicates.
func (c *Config) PresetNames() []string {
	names := slices.Collect(maps.Keys(builtins))
	for name := range c.Presets {
		if _, ok := builtins[name]; !ok {
			names = append(names, name)
		}
	}
	slices.Sort(names)
	return names
}

// IsBuiltin reports whether name resolves to a built-in preset rather than
// a user preset.
func (c *Config) IsBuiltin(name string) bool {
	name = strings.ToLower(name)
	if _, ok := c.Presets[name]; ok {
		return false
	}
	_, ok := builtins[name]
	return ok
}

// Resolve returns the params for a preset, or the configured params when
// name is empty. The result is always clamped.
func (c *Config) Resolve(name string) (pixelsort.Params, error) {
	if strings.TrimSpace(name) == "" {
		return c.Params.Clamp(), nil
	}
	p, ok := c.Preset(name)
	if !ok {
		return pixelsort.Params{}, errors.New(errors.ErrCodePresetNotFound,
			"unknown preset %q (available: %s)", name, strings.Join(c.PresetNames(), ", "))
	}
	return p.Clamp(), nil
}
