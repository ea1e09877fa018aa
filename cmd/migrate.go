package cmd

import (
	"context"
	"time"

	"github.com/callmind/ms-go-billing/app/repository"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create the billing tables for the configured database driver",
	Run: func(_ *cobra.Command, _ []string) {
		cfg := mustLoadConfig()
		db := mustOpenDatabase(cfg)
		defer func() { _ = db.Close() }()

		ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
		defer cancel()

		if err := repository.Migrate(ctx, db, cfg.Database.Driver); err != nil {
			logrus.WithError(err).WithField("driver", cfg.Database.Driver).Fatal("Migration failed")
		}
		logrus.WithField("driver", cfg.Database.Driver).Info("Schema is up to date")
	},
}

func init() {
	rootCmd.AddCommand(migrateCmd)
}
