package main

import (
	"fmt"
	"sort"
	"sync"
	"sync/atomic"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/kval/internal/engine"
	"github.com/sells-group/kval/internal/examples"
	"github.com/sells-group/kval/internal/store"
)

var checkAllConcurrency int

var examplesCmd = &cobra.Command{
	Use:   "examples",
	Short: "Manage example snapshots",
}

var examplesListCmd = &cobra.Command{
	Use:   "list",
	Short: "List available example snapshots",
	RunE: func(cmd *cobra.Command, args []string) error {
		names, err := examples.List(cfg.Data.Dir)
		if err != nil {
			return err
		}
		for _, name := range names {
			fmt.Fprintln(cmd.OutOrStdout(), name)
		}
		return nil
	},
}

var examplesLoadCmd = &cobra.Command{
	Use:   "load <name>",
	Short: "Load an example into the active snapshot slot",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		snap, pol, err := examples.Load(cfg.Data.Dir, args[0])
		if err != nil {
			return err
		}

		st, err := store.Open(ctx, cfg.Store)
		if err != nil {
			return eris.Wrap(err, "examples: open store")
		}
		defer st.Close()
		if err := st.Migrate(ctx); err != nil {
			return eris.Wrap(err, "examples: migrate store")
		}

		if err := st.SaveSnapshot(ctx, snap); err != nil {
			return eris.Wrap(err, "examples: save snapshot")
		}
		if err := st.SavePolicy(ctx, pol); err != nil {
			return eris.Wrap(err, "examples: save policy")
		}

		zap.L().Info("example loaded",
			zap.String("example", args[0]),
			zap.String("snapshot_id", snap.SnapshotID),
		)
		return nil
	},
}

var examplesCheckAllCmd = &cobra.Command{
	Use:   "check-all",
	Short: "Validate every example and print a per-example summary",
	RunE: func(cmd *cobra.Command, args []string) error {
		names, err := examples.List(cfg.Data.Dir)
		if err != nil {
			return err
		}

		type result struct {
			name   string
			issues int
		}

		g, _ := errgroup.WithContext(cmd.Context())
		g.SetLimit(checkAllConcurrency)

		var mu sync.Mutex
		results := make([]result, 0, len(names))
		var failed atomic.Int64

		for _, name := range names {
			g.Go(func() error {
				snap, pol, err := examples.Load(cfg.Data.Dir, name)
				if err != nil {
					failed.Add(1)
					zap.L().Error("example load failed",
						zap.String("example", name),
						zap.Error(err),
					)
					return nil
				}

				report := engine.Validate(snap, pol, "")
				mu.Lock()
				results = append(results, result{
					name:   name,
					issues: report.Summary.TotalIssues,
				})
				mu.Unlock()
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return err
		}

		sort.Slice(results, func(i, j int) bool { return results[i].name < results[j].name })
		for _, res := range results {
			fmt.Fprintf(cmd.OutOrStdout(), "%-24s issues=%d\n", res.name, res.issues)
		}

		if n := failed.Load(); n > 0 {
			return eris.Errorf("examples: %d example(s) failed to load", n)
		}
		return nil
	},
}

var examplesInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write the built-in examples to the data directory",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := examples.WriteDefaults(cfg.Data.Dir); err != nil {
			return err
		}
		zap.L().Info("examples written", zap.String("dir", cfg.Data.Dir))
		return nil
	},
}

func init() {
	examplesCheckAllCmd.Flags().IntVar(&checkAllConcurrency, "concurrency", 4, "number of examples validated in parallel")
	examplesCmd.AddCommand(examplesListCmd, examplesLoadCmd, examplesCheckAllCmd, examplesInitCmd)
	rootCmd.AddCommand(examplesCmd)
}
