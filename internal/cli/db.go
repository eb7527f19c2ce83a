package cli

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"pagebuilder/internal/config"
	"pagebuilder/internal/database"
	"pagebuilder/internal/store"
)

func openDB(cfg *config.Config) (*sql.DB, error) {
	return database.Connect(cfg.DSN())
}

func newMigrateCmd() *cobra.Command {
	var seed bool
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending database migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			db, err := openDB(cfg)
			if err != nil {
				return err
			}
			defer db.Close()

			if err := database.Migrate(db); err != nil {
				return err
			}
			if seed {
				if err := database.Seed(db); err != nil {
					return err
				}
			}
			v, err := database.Version(db)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "database at version %d\n", v)
			return nil
		},
	}
	cmd.Flags().BoolVar(&seed, "seed", false, "load development seed data into an empty database")
	return cmd
}

func newCacheLogCmd() *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "cache-log",
		Short: "Show recent cache invalidations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if limit <= 0 {
				return fmt.Errorf("--limit must be positive")
			}
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			db, err := openDB(cfg)
			if err != nil {
				return err
			}
			defer db.Close()

			entries, err := store.NewCacheLogStore(db).RecentEntries(cmd.Context(), limit)
			if err != nil {
				return err
			}
			if len(entries) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "(no invalidations)")
				return nil
			}

			t := table.NewWriter()
			t.SetOutputMirror(cmd.OutOrStdout())
			t.SetStyle(table.StyleLight)
			t.AppendHeader(table.Row{"When", "Entity", "ID", "Action"})
			for _, e := range entries {
				t.AppendRow(table.Row{e.InvalidatedAt.Format(time.DateTime), e.EntityType, e.EntityID, e.Action})
			}
			t.Render()
			return nil
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "number of entries")
	return cmd
}
