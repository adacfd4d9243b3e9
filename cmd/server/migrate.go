package main

import (
	"github.com/spf13/cobra"
)

func newMigrateCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply the database schema and exit",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := openStorage(cmd.Context(), a.cfg)
			if err != nil {
				return err
			}
			defer store.close()
			a.logger.Info().Str("store", a.cfg.StoreBackend).Msg("schema applied")
			return nil
		},
	}
}
