package main

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/spf13/cobra"

	"github.com/open-idm/open-idm/internal/config"
	"github.com/open-idm/open-idm/internal/locking"
	"github.com/open-idm/open-idm/internal/schema"
	"github.com/open-idm/open-idm/internal/store"
	"github.com/open-idm/open-idm/internal/systems"
)

var systemsCmd = &cobra.Command{
	Use:   "systems",
	Short: "Inspect and administer registered target systems.",
}

var systemsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List registered systems.",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		svc, cleanup, err := systemsServiceForCLI()
		if err != nil {
			return err
		}
		defer cleanup()

		ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()

		list, total, err := svc.List(ctx, systems.ListFilter{SortBy: "name"})
		if err != nil {
			return err
		}
		for _, sys := range list {
			cmd.Printf("%s\t%s\t%s\t%s\n", sys.ID, sys.Name, sys.ConnectorKind, sys.State)
		}
		cmd.Printf("%d systems\n", total)
		return nil
	},
}

var systemsSetStateCmd = &cobra.Command{
	Use:   "set-state <system-id> <state>",
	Short: "Move a system's structural state (new, configured, enabled).",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := uuid.Parse(args[0])
		if err != nil {
			return err
		}

		svc, cleanup, err := systemsServiceForCLI()
		if err != nil {
			return err
		}
		defer cleanup()

		ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()

		sys, err := svc.SetState(ctx, id, systems.State(args[1]))
		if err != nil {
			return err
		}
		cmd.Printf("%s is now %s\n", sys.Name, sys.State)
		return nil
	},
}

func systemsServiceForCLI() (*systems.Service, func(), error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, nil, err
	}

	st := store.New(pool)
	locks, err := locking.NewManager(cfg.SchemaLockMode, pool)
	if err != nil {
		pool.Close()
		return nil, nil, err
	}

	// CLI administration never reaches the connectors, so no hub is wired.
	svc := systems.NewService(st, schema.NewService(st), nil, locks, nil, cfg.DuplicateWorkers)
	return svc, pool.Close, nil
}

func init() {
	systemsCmd.AddCommand(systemsListCmd, systemsSetStateCmd)
}
