package main

import (
	"context"
	"database/sql"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/ruet-portal/portal-backend/internal/bootstrap"
	"github.com/ruet-portal/portal-backend/internal/config"
	"github.com/ruet-portal/portal-backend/internal/database"
	"github.com/ruet-portal/portal-backend/internal/logging"
)

// app is what every subcommand runs against.  It is filled lazily so that
// --help works without a database.
type app struct {
	cfg     config.Config
	log     *logrus.Logger
	db      *sql.DB
	dialect database.Dialect
}

func (a *app) open(ctx context.Context) error {
	if a.db != nil {
		return nil
	}
	bootstrap.LoadEnv()
	a.cfg = config.Load()
	a.log = logging.New(a.cfg.LogLevel, "text")

	db, dialect, err := database.Open(a.cfg)
	if err != nil {
		return err
	}
	if err := database.Migrate(ctx, db); err != nil {
		_ = db.Close()
		return err
	}
	a.db, a.dialect = db, dialect
	return nil
}

func (a *app) close() {
	if a.db != nil {
		_ = a.db.Close()
		a.db = nil
	}
}

func newRootCmd() *cobra.Command {
	a := &app{}
	root := &cobra.Command{
		Use:           "portalctl",
		Short:         "Administer the RUET portal backend",
		SilenceUsage:  true,
		PersistentPostRun: func(*cobra.Command, []string) {
			a.close()
		},
	}
	root.AddCommand(
		newMigrateCmd(a),
		newLibrarianCmd(a),
		newFeesCmd(a),
		newEventsCmd(a),
	)
	return root
}

func newMigrateCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or upgrade the database schema",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := a.open(cmd.Context()); err != nil {
				return err
			}
			cmd.Printf("schema up to date (%s)\n", a.dialect)
			return nil
		},
	}
}
