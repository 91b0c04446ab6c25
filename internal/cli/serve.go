package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/matzehuels/pixelsort/internal/server"
	"github.com/matzehuels/pixelsort/pkg/cache"
	"github.com/matzehuels/pixelsort/pkg/config"
	"github.com/matzehuels/pixelsort/pkg/pipeline"
)

// serveOpts holds options for the serve command.
type serveOpts struct {
	addr    string
	redis   string
	workers int
	maxBody int64
	noCache bool
}

// serveCommand creates the serve command.
func (c *CLI) serveCommand() *cobra.Command {
	opts := serveOpts{addr: server.DefaultAddr}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the sort pipeline over HTTP",
		Long: `Serve the sort pipeline over HTTP.

Routes:
  GET  /healthz       liveness and build info
  GET  /v1/presets    available presets
  POST /v1/sort       sort an image sent as the raw body or multipart form

Query parameters on /v1/sort mirror the sort command flags, for example
?preset=melt&angle=30&format=jpeg.`,
		Example: `  pixelsort serve --addr :9000
  pixelsort serve --redis localhost:6379 --workers 4`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runServe(cmd.Context(), opts)
		},
	}

	cmd.Flags().StringVar(&opts.addr, "addr", opts.addr, "listen address")
	cmd.Flags().StringVar(&opts.redis, "redis", "", "Redis address for a shared cache (overrides config)")
	cmd.Flags().IntVar(&opts.workers, "workers", -1, "default sort workers per request (-1 uses config)")
	cmd.Flags().Int64Var(&opts.maxBody, "max-body", server.DefaultMaxBodyBytes, "maximum request body in bytes")
	cmd.Flags().BoolVar(&opts.noCache, "no-cache", false, "disable caching")

	return cmd
}

func (c *CLI) runServe(ctx context.Context, opts serveOpts) error {
	cfg, err := c.loadConfig()
	if err != nil {
		return err
	}
	if opts.workers < 0 {
		opts.workers = cfg.Workers
	}

	ch, desc := c.serverCache(ctx, cfg, opts)
	runner := pipeline.NewRunner(ch, cache.NewScopedKeyer(nil, redisKeyPrefix), c.Logger)
	runner.TTL = cache.TTLServer
	defer runner.Close()

	srv := server.New(runner, cfg, c.Logger, server.Options{
		MaxBodyBytes: opts.maxBody,
		Workers:      opts.workers,
	})

	printSuccess("Listening on %s", opts.addr)
	printKeyValue("Cache", desc)
	printKeyValue("Workers", fmt.Sprintf("%d", opts.workers))
	printNextStep("Try", fmt.Sprintf("curl --data-binary @in.png -o out.png 'http://%s/v1/sort?preset=melt'", dialAddr(opts.addr)))

	return srv.ListenAndServe(ctx, opts.addr)
}

// serverCache picks the cache backend for the server. An unreachable Redis
// server disables caching instead of failing startup.
func (c *CLI) serverCache(ctx context.Context, cfg *config.Config, opts serveOpts) (cache.Cache, string) {
	if opts.noCache {
		return cache.NewNullCache(), "disabled"
	}

	addr := opts.redis
	if addr == "" && cfg.Cache.Backend == config.BackendRedis {
		addr = cfg.Cache.RedisAddr
	}
	if addr == "" {
		ch, err := c.newCache(ctx, cfg, false)
		if err != nil {
			printWarning("Cache disabled: %v", err)
			return cache.NewNullCache(), "disabled"
		}
		if fc, ok := ch.(*cache.FileCache); ok {
			return fc, "file " + fc.Dir()
		}
		return ch, cfg.Cache.Backend
	}

	rc, err := openRedis(ctx, addr)
	if err != nil {
		printWarning("Redis at %s unreachable, caching disabled: %v", addr, err)
		return cache.NewNullCache(), "disabled"
	}
	return rc, "redis " + addr
}

// dialAddr turns a listen address like ":8080" into one curl can reach.
func dialAddr(addr string) string {
	if strings.HasPrefix(addr, ":") {
		return "localhost" + addr
	}
	return addr
}
