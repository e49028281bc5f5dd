package main

import (
	"context"

	"github.com/spf13/cobra"

	"property-desk/seeders"
)

func newSeedCommand() *cobra.Command {
	var withTickets bool
	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Наполнить БД объектами недвижимости и демо-заявками",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withDB(cmd.Context(), func(ctx context.Context, run dbRun) error {
				if err := seeders.SeedProperties(ctx, run.pool, run.logger); err != nil {
					return err
				}
				if !withTickets {
					return nil
				}
				return seeders.SeedDemoTickets(ctx, run.pool, run.logger)
			})
		},
	}
	cmd.Flags().BoolVar(&withTickets, "tickets", false, "Добавить демо-заявки")
	return cmd
}
