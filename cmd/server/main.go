package main

import (
	"os"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/andres10976/slotwatch/internal/config"
	"github.com/andres10976/slotwatch/internal/logging"
)

// app carries what every subcommand needs once the root command has run.
type app struct {
	cfg    *config.Config
	logger zerolog.Logger
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		log.Error().Err(err).Msg("command failed")
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	a := &app{}
	root := &cobra.Command{
		Use:           "slotwatch",
		Short:         "Watch drop-off slots and book a supply when the wanted window opens",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			a.cfg = cfg
			a.logger = logging.Setup(cfg.Environment)
			return nil
		},
	}
	root.AddCommand(newServeCmd(a), newMigrateCmd(a), newValidateCmd(a))
	return root
}
