package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/andres10976/slotwatch/internal/service/monitor"
)

func newValidateCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Resolve the stored configuration against the marketplace and print it",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if err := a.cfg.RequireMarketplace(); err != nil {
				return err
			}
			store, err := openStorage(ctx, a.cfg)
			if err != nil {
				return err
			}
			defer store.close()

			client, catalog, closeCache, err := newMarketplace(a.cfg, a.logger)
			if err != nil {
				return err
			}
			defer closeCache()

			engine := monitor.New(monitor.Deps{
				Upstream: client,
				Catalog:  catalog,
				Store:    store.config,
				Logger:   a.logger,
			}, monitor.Options{})

			summary, err := engine.ValidateLive(ctx)
			var verr *monitor.ValidationError
			if errors.As(err, &verr) {
				out := cmd.OutOrStdout()
				fmt.Fprintln(out, "configuration is not ready:")
				for _, r := range verr.Reasons {
					fmt.Fprintf(out, "  - %s\n", r)
				}
				return errors.New("validation failed")
			}
			if err != nil {
				return err
			}

			enc := yaml.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent(2)
			defer enc.Close()
			return enc.Encode(summary)
		},
	}
}
