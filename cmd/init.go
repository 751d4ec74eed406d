package main

import (
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/kval/internal/examples"
	"github.com/sells-group/kval/internal/store"
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize the store with the default snapshot and policy",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		st, err := store.Open(ctx, cfg.Store)
		if err != nil {
			return eris.Wrap(err, "init: open store")
		}
		defer st.Close()

		if err := st.Migrate(ctx); err != nil {
			return eris.Wrap(err, "init: migrate store")
		}
		if err := st.SaveSnapshot(ctx, examples.DefaultSnapshot()); err != nil {
			return eris.Wrap(err, "init: save snapshot")
		}
		if err := st.SavePolicy(ctx, examples.DefaultPolicy()); err != nil {
			return eris.Wrap(err, "init: save policy")
		}
		if err := examples.WriteDefaults(cfg.Data.Dir); err != nil {
			return err
		}

		zap.L().Info("store initialized",
			zap.String("driver", cfg.Store.Driver),
			zap.String("examples_dir", cfg.Data.Dir),
		)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(initCmd)
}
