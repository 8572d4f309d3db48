package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/warp/action-calendar/api"
	"github.com/warp/action-calendar/factory"
	"github.com/warp/action-calendar/logx"
)

func newCompactCmd(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "compact",
		Short: "Rewrite the store with only retained records",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := flags.load(cmd)
			if err != nil {
				return err
			}
			sys, err := factory.Build(cfg, factory.Options{Logger: log})
			if err != nil {
				return err
			}
			defer sys.Close()

			compactor := api.NewCompactor(sys.Engine, "", sys.Engine.Location)
			compactor.Log = logx.Component(log, "compactor")
			if sys.SQLite != nil {
				compactor.History = sys.SQLite
			}

			res, _, err := compactor.RunOnce(cmd.Context(), api.SourceCLI)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "kept %d records, dropped %d\n", res.Records, res.Dropped)
			return nil
		},
	}
}
