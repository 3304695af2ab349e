package main

import (
	"context"
	"time"

	"github.com/spf13/cobra"
)

func newMigrateCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create missing tables",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, lg, err := bootstrap()
			if err != nil {
				return err
			}
			defer lg.Sync()

			db, err := connect(cfg)
			if err != nil {
				return err
			}
			defer db.Close()

			ctx, cancel := context.WithTimeout(cmd.Context(), time.Minute)
			defer cancel()
			if err := newRepos(db).migrate(ctx); err != nil {
				return err
			}
			lg.Sugar().Info("schema ensured")
			return nil
		},
	}
}

func newSeedCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "seed",
		Short: "Insert the built-in roles and grants",
		Long:  "Insert the built-in roles under fixed ids and their grants. Existing rows are left alone.",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, lg, err := bootstrap()
			if err != nil {
				return err
			}
			defer lg.Sync()

			db, err := connect(cfg)
			if err != nil {
				return err
			}
			defer db.Close()

			ctx, cancel := context.WithTimeout(cmd.Context(), time.Minute)
			defer cancel()
			r := newRepos(db)
			if err := r.migrate(ctx); err != nil {
				return err
			}
			_, err = r.seeder(lg.Sugar().Named("seed")).Run(ctx)
			return err
		},
	}
}
