package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/alexedwards/scs/pgxstore"
	"github.com/alexedwards/scs/v2"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/spf13/cobra"

	"github.com/open-idm/open-idm/internal/accounts"
	"github.com/open-idm/open-idm/internal/auth/providers"
	"github.com/open-idm/open-idm/internal/authz"
	"github.com/open-idm/open-idm/internal/config"
	"github.com/open-idm/open-idm/internal/connectors"
	"github.com/open-idm/open-idm/internal/connectors/configstore"
	httpapp "github.com/open-idm/open-idm/internal/http"
	"github.com/open-idm/open-idm/internal/http/handlers"
	"github.com/open-idm/open-idm/internal/identity"
	"github.com/open-idm/open-idm/internal/locking"
	"github.com/open-idm/open-idm/internal/metrics"
	"github.com/open-idm/open-idm/internal/schema"
	"github.com/open-idm/open-idm/internal/store"
	"github.com/open-idm/open-idm/internal/systems"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API server.",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServe()
	},
}

// noRemoteServers is the remote source used until a connector server protocol
// lands. Remote systems report an empty connector list instead of an error.
type noRemoteServers struct{}

func (noRemoteServers) RemoteConnectors(context.Context, uuid.UUID) ([]connectors.RemoteConnector, error) {
	return nil, nil
}

func seedFormDefinitions(ctx context.Context, st *store.Store) error {
	for _, def := range configstore.BuiltinFormDefinitions() {
		if err := st.UpsertFormDefinition(ctx, def); err != nil {
			return err
		}
	}
	return nil
}

func runServe() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		return err
	}
	defer pool.Close()

	st := store.New(pool)

	// Form definitions ship with the binary; seeding keeps the stored set in
	// step with the installed connector kinds across upgrades.
	if err := seedFormDefinitions(ctx, st); err != nil {
		return err
	}

	reg, err := buildConnectorRegistry()
	if err != nil {
		return err
	}

	locks, err := locking.NewManager(cfg.SchemaLockMode, pool)
	if err != nil {
		return err
	}

	logger := slog.Default()
	hub := connectors.NewHub(reg, st, cfg.ConnectorTimeout)
	schemaSvc := schema.NewService(st)
	systemsSvc := systems.NewService(st, schemaSvc, hub, locks, logger, cfg.DuplicateWorkers)
	credentials := identity.NewCredentials(st)
	accountsSvc := accounts.NewService(st, systemsSvc, credentials, hub, authz.RoleBased{}, logger, cfg.PasswordChangeWorkers)

	sessions := scs.New()
	sessions.Store = pgxstore.New(pool)
	sessions.Lifetime = 12 * time.Hour
	sessions.Cookie.Secure = cfg.AuthCookieSecure
	sessions.Cookie.HttpOnly = true
	sessions.Cookie.SameSite = http.SameSiteLaxMode

	h := &handlers.Handlers{
		Cfg:         cfg,
		Store:       st,
		Sessions:    sessions,
		Registry:    reg,
		Systems:     systemsSvc,
		Schema:      schemaSvc,
		Accounts:    accountsSvc,
		Identities:  identity.NewService(st),
		RoleSystems: accounts.NewRoleSystems(st),
		Configs:     configstore.NewService(st, st),
		Inventory:   connectors.NewInventory(reg, noRemoteServers{}),
		Password:    providers.NewPasswordProvider(st),
		AuthUsers:   st,
	}

	srv, err := httpapp.NewEchoServer(h)
	if err != nil {
		return err
	}

	_, metricsErrCh := metrics.StartServer(ctx, cfg.MetricsAddr)

	httpServer := &http.Server{
		Addr:              cfg.HTTPAddr,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("listening", "addr", cfg.HTTPAddr)
		errCh <- srv.StartServer(httpServer)
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
		return nil
	case err := <-metricsErrCh:
		return err
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	}
}
