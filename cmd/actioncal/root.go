package main

import (
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/warp/action-calendar/config"
	"github.com/warp/action-calendar/logx"
)

const defaultConfigPath = "actioncal.yaml"

// globalFlags are shared by every subcommand.
type globalFlags struct {
	configPath string
	logLevel   string
}

func newRootCmd() *cobra.Command {
	flags := &globalFlags{}

	root := &cobra.Command{
		Use:   "actioncal",
		Short: "Calendar and scheduled-action aggregation engine",
		Long: `actioncal keeps dated actions (meetings, calls, follow-ups) in a single
persisted store and serves month grids, day/week/month/upcoming views,
facet options and iCalendar exports over HTTP.`,
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: false,
	}

	root.PersistentFlags().StringVarP(&flags.configPath, "config", "c", defaultConfigPath, "path to the YAML config file")
	root.PersistentFlags().StringVar(&flags.logLevel, "log-level", "", "override log.level from the config")

	root.AddCommand(newServeCmd(flags))
	root.AddCommand(newGridCmd(flags))
	root.AddCommand(newCompactCmd(flags))
	root.AddCommand(newVersionCmd())
	return root
}

// load reads the config file and builds the logger it describes.
func (f *globalFlags) load(cmd *cobra.Command) (*config.Config, zerolog.Logger, error) {
	cfg, err := config.Load(f.configPath)
	if err != nil {
		return nil, zerolog.Nop(), err
	}
	if f.logLevel != "" {
		cfg.Log.Level = f.logLevel
	}
	log := logx.New(logx.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Output: cmd.ErrOrStderr(),
	})
	return cfg, log, nil
}
