// Command migrate aplica las migraciones embebidas de Postgres (profiles, creator_universe).
package main

import (
	"errors"
	"fmt"
	"os"
	"strconv"

	"github.com/golang-migrate/migrate/v4"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/dropDatabas3/creatorverse/internal/store/pg"
)

func main() {
	_ = godotenv.Load()

	dsn := os.Getenv("DATABASE_URL")
	root := &cobra.Command{
		Use:          "migrate",
		Short:        "Migraciones de Postgres del gateway",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if dsn == "" {
				return fmt.Errorf("falta DSN (flag --database-url o env DATABASE_URL)")
			}
			return nil
		},
	}
	root.PersistentFlags().StringVar(&dsn, "database-url", dsn, "DSN de Postgres (env DATABASE_URL)")

	withMigrator := func(fn func(m *migrate.Migrate) error) error {
		m, err := pg.NewMigrator(dsn)
		if err != nil {
			return err
		}
		defer m.Close()
		if err := fn(m); err != nil && !errors.Is(err, migrate.ErrNoChange) {
			return err
		}
		return printVersion(m)
	}

	upCmd := &cobra.Command{
		Use:   "up [steps]",
		Short: "Aplicar migraciones pendientes (todas o N)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			n, err := steps(args)
			if err != nil {
				return err
			}
			return withMigrator(func(m *migrate.Migrate) error {
				if n > 0 {
					return m.Steps(n)
				}
				return m.Up()
			})
		},
	}

	downCmd := &cobra.Command{
		Use:   "down [steps]",
		Short: "Revertir N migraciones (default 1)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			n, err := steps(args)
			if err != nil {
				return err
			}
			if n == 0 {
				n = 1
			}
			return withMigrator(func(m *migrate.Migrate) error { return m.Steps(-n) })
		},
	}

	versionCmd := &cobra.Command{
		Use:   "version",
		Short: "Mostrar la versión aplicada",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withMigrator(func(*migrate.Migrate) error { return nil })
		},
	}

	root.AddCommand(upCmd, downCmd, versionCmd)
	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err.Error())
		os.Exit(1)
	}
}

func steps(args []string) (int, error) {
	if len(args) == 0 {
		return 0, nil
	}
	n, err := strconv.Atoi(args[0])
	if err != nil || n < 0 {
		return 0, fmt.Errorf("steps inválido: %q", args[0])
	}
	return n, nil
}

func printVersion(m *migrate.Migrate) error {
	v, dirty, err := m.Version()
	switch {
	case errors.Is(err, migrate.ErrNilVersion):
		fmt.Println("version: none")
		return nil
	case err != nil:
		return err
	}
	fmt.Printf("version: %d dirty=%t\n", v, dirty)
	return nil
}
