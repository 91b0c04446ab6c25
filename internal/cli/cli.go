package cli

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/matzehuels/pixelsort/pkg/buildinfo"
	"github.com/matzehuels/pixelsort/pkg/cache"
	"github.com/matzehuels/pixelsort/pkg/config"
	"github.com/matzehuels/pixelsort/pkg/observability"
	"github.com/matzehuels/pixelsort/pkg/pipeline"
)

// =============================================================================
// Constants
// =============================================================================

const (
	// appName is the application name used for directories and display.
	appName = "pixelsort"

	// redisKeyPrefix scopes server cache keys in a shared Redis database.
	redisKeyPrefix = "pixelsort:"

	// redisProbeTimeout bounds the reachability check made before Redis is used.
	redisProbeTimeout = 2 * time.Second
)

// Log levels exported for use in main.go.
const (
	LogDebug = log.DebugLevel
	LogInfo  = log.InfoLevel
)

// =============================================================================
// CLI - Central CLI State
// =============================================================================

// CLI holds shared state for all commands.
type CLI struct {
	Logger *log.Logger

	configPath string
	trace      bool
	config     *config.Config
}

// New creates a new CLI instance with a default logger.
func New(w io.Writer, level log.Level) *CLI {
	return &CLI{Logger: newLogger(w, level)}
}

// SetLogLevel updates the logger's level.
func (c *CLI) SetLogLevel(level log.Level) {
	c.Logger.SetLevel(level)
}

// RootCommand creates the root cobra command with all subcommands registered.
func (c *CLI) RootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:          appName,
		Short:        "Pixelsort sorts runs of pixels into glitch-art streaks",
		Long:         `Pixelsort finds runs of pixels along rows, columns or an arbitrary angle and reorders each run by brightness, hue or another key. Output is deterministic: the same image and settings always give the same result.`,
		Version:      buildinfo.Version,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cmd.SetContext(withLogger(cmd.Context(), c.Logger))
			if c.trace {
				c.registerTraceHooks()
			}
			return nil
		},
	}

	root.SetVersionTemplate(buildinfo.Template())
	root.PersistentFlags().StringVar(&c.configPath, "config", "", "config file (default $XDG_CONFIG_HOME/pixelsort/config.toml)")
	root.PersistentFlags().BoolVar(&c.trace, "trace", false, "log decode, sort, encode and cache events")

	// Register all subcommands
	root.AddCommand(c.sortCommand())
	root.AddCommand(c.presetsCommand())
	root.AddCommand(c.serveCommand())
	root.AddCommand(c.cacheCommand())
	root.AddCommand(c.completionCommand())

	return root
}

// loadConfig reads the config file once per process.
func (c *CLI) loadConfig() (*config.Config, error) {
	if c.config != nil {
		return c.config, nil
	}
	cfg, err := config.Load(c.configPath)
	if err != nil {
		return nil, err
	}
	if cfg.Path() != "" {
		c.Logger.Debug("loaded config", "path", cfg.Path())
	}
	c.config = cfg
	return cfg, nil
}

func (c *CLI) registerTraceHooks() {
	observability.Register(&traceHooks{logger: c.Logger})
}

// =============================================================================
// Runner Factory
// =============================================================================

// newRunner creates a pipeline runner for CLI use.
func (c *CLI) newRunner(ctx context.Context, cfg *config.Config, noCache bool) (*pipeline.Runner, error) {
	ch, err := c.newCache(ctx, cfg, noCache)
	if err != nil {
		return nil, err
	}
	runner := pipeline.NewRunner(ch, nil, c.Logger)
	runner.TTL = cfg.Cache.TTL
	return runner, nil
}

// newCache opens the configured cache backend. The file backend falls back
// to no cache when the directory cannot be determined, and the redis backend
// when the server does not answer a ping.
func (c *CLI) newCache(ctx context.Context, cfg *config.Config, noCache bool) (cache.Cache, error) {
	switch {
	case noCache || cfg.Cache.Backend == config.BackendNone:
		return cache.NewNullCache(), nil
	case cfg.Cache.Backend == config.BackendRedis:
		rc, err := openRedis(ctx, cfg.Cache.RedisAddr)
		if err != nil {
			c.Logger.Warn("redis unreachable, caching disabled", "addr", cfg.Cache.RedisAddr, "error", err)
			return cache.NewNullCache(), nil
		}
		c.Logger.Debug("using redis cache", "addr", cfg.Cache.RedisAddr)
		return rc, nil
	}

	dir := cfg.Cache.Dir
	if dir == "" {
		d, err := cacheDir()
		if err != nil {
			c.Logger.Warn("cache disabled", "error", err)
			return cache.NewNullCache(), nil
		}
		dir = d
	}
	fc, err := cache.NewFileCache(dir)
	if err != nil {
		return nil, err
	}
	return fc, nil
}

// openRedis connects to addr and pings it, giving up after redisProbeTimeout.
func openRedis(ctx context.Context, addr string) (*cache.RedisCache, error) {
	rc := cache.NewRedisCache(cache.RedisOptions{Addr: addr})
	pctx, cancel := context.WithTimeout(ctx, redisProbeTimeout)
	defer cancel()
	if err := rc.Ping(pctx); err != nil {
		_ = rc.Close()
		return nil, err
	}
	return rc, nil
}

// =============================================================================
// Paths
// =============================================================================

// cacheDir returns the cache directory using XDG standard (~/.cache/pixelsort/).
func cacheDir() (string, error) {
	if cacheHome := os.Getenv("XDG_CACHE_HOME"); cacheHome != "" {
		return filepath.Join(cacheHome, appName), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".cache", appName), nil
}
