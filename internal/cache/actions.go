// Package cache implements the cache maintenance commands.
package cache

import (
	"fmt"

	"github.com/urfave/cli/v2"

	"github.com/dtnitsch/llm-page-context/internal/setup"
	"github.com/dtnitsch/llm-page-context/pkg/caching"
)

// PruneAction removes result cache entries older than the configured TTL.
func PruneAction(c *cli.Context) error {
	env, err := setup.Open(c)
	if err != nil {
		return err
	}
	defer env.Close()

	cache, err := caching.NewCache(env.App.Cache.Dir, env.App.CacheTTL())
	if err != nil {
		return setup.Usagef("%v", err)
	}
	removed, err := cache.Prune()
	if err != nil {
		return err
	}
	env.Logger.Debug().Str("dir", env.App.Cache.Dir).Dur("ttl", env.App.CacheTTL()).Msg("cache pruned")
	fmt.Printf("Removed %d expired entries from %s\n", removed, env.App.Cache.Dir)
	return nil
}
