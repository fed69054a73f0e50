package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/nathsou/disk-analyzer/internal/config"
	"github.com/nathsou/disk-analyzer/internal/metrics"
	"github.com/nathsou/disk-analyzer/internal/report"
)

func newCacheCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Manage the snapshot store",
		Long: `Results are persisted in the snapshot store so that a query answered
by an earlier run is served without reaching the server while it is
fresh (stale_time). The store is bounded by cache.max_size; the least
recently used snapshots are evicted first.`,
	}
	cmd.AddCommand(
		newCacheStatsCmd(a, false),
		newCacheStatsCmd(a, true),
		newCacheClearCmd(a),
	)
	return cmd
}

func (a *app) requireStore() error {
	if a.store == nil {
		return fmt.Errorf("snapshot store disabled (%s is false or %s is unusable)",
			config.KeyCachePersist, config.KeyCacheDir)
	}
	return nil
}

func (a *app) snapshotStats(entries bool) report.SnapshotStats {
	size, maxSize, count := a.store.Stats()
	stats := report.SnapshotStats{
		Dir:     a.store.Dir(),
		Size:    size,
		MaxSize: maxSize,
		Count:   count,
	}
	if entries {
		stats.Entries = a.store.List()
	}
	return stats
}

func newCacheStatsCmd(a *app, list bool) *cobra.Command {
	use, short := "stats", "Show snapshot store usage"
	if list {
		use, short = "list", "List stored snapshots, most recently used first"
	}
	return &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.requireStore(); err != nil {
				return err
			}
			return a.renderer(cmd.OutOrStdout()).Snapshots(a.snapshotStats(list))
		},
	}
}

func newCacheClearCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Remove every stored snapshot",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.requireStore(); err != nil {
				return err
			}
			n := a.store.Clear()
			metrics.SetSnapshotStoreBytes(0)
			fmt.Fprintf(cmd.OutOrStdout(), "Removed %d snapshots from %s\n", n, a.store.Dir())
			return nil
		},
	}
}
