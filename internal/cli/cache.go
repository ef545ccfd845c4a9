package cli

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/dshills/flowscribe/internal/cache"
	"github.com/dshills/flowscribe/internal/config"
)

var flagPartition string

var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Manage the response cache",
}

func openCache(forceEnabled bool) (*cache.Store, error) {
	cfg, err := config.Load(map[string]string{"cache.dir": flagCacheDir})
	if err != nil {
		return nil, err
	}
	s, err := cache.New(cache.Options{
		Enabled: cfg.Cache.Enabled || forceEnabled,
		Dir:     cfg.Cache.Dir,
	})
	if err != nil {
		return nil, fmt.Errorf("opening cache: %w", err)
	}
	return s, nil
}

var cacheClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Remove cached responses",
	RunE: func(cmd *cobra.Command, args []string) error {
		var partitions []cache.Partition
		if flagPartition != "" {
			p, err := cache.ParsePartition(flagPartition)
			if err != nil {
				return err
			}
			partitions = append(partitions, p)
		}
		c, err := openCache(true)
		if err != nil {
			return err
		}
		n, err := c.Clear(partitions...)
		if err != nil {
			return fmt.Errorf("clearing cache: %w", err)
		}
		fmt.Fprintf(os.Stdout, "Cache cleared (%d entries removed).\n", n)
		return nil
	},
}

var cacheStatsCmd = &cobra.Command{
	Use:     "stats",
	Aliases: []string{"show"},
	Short:   "Show cache statistics",
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := openCache(false)
		if err != nil {
			return err
		}
		if !c.Enabled() {
			fmt.Fprintln(os.Stdout, "Cache is disabled.")
			return nil
		}
		stats, err := c.Stats()
		if err != nil {
			return fmt.Errorf("reading cache stats: %w", err)
		}
		data, err := json.MarshalIndent(stats, "", "  ")
		if err != nil {
			return err
		}
		fmt.Fprintln(os.Stdout, string(data))
		return nil
	},
}

func init() {
	cacheCmd.PersistentFlags().StringVar(&flagCacheDir, "cache-dir", "", "Response cache directory")
	cacheClearCmd.Flags().StringVar(&flagPartition, "partition", "", "Only clear this partition (text, images)")
	cacheCmd.AddCommand(cacheClearCmd)
	cacheCmd.AddCommand(cacheStatsCmd)
}
