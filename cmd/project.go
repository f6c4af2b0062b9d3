package cmd

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/lockplane/lockstep/database"
	"github.com/lockplane/lockstep/internal/config"
	"github.com/lockplane/lockstep/internal/executor"
	"github.com/lockplane/lockstep/internal/manifest"
	"github.com/lockplane/lockstep/internal/state"
	"github.com/lockplane/lockstep/migration"
)

// project is the resolved configuration and migration set of one invocation.
type project struct {
	config        *config.Config
	env           *config.ResolvedEnvironment
	migrationsDir string
	registry      *migration.Registry
	runID         string
	logger        *slog.Logger
}

func loadProject(cmd *cobra.Command) (*project, error) {
	var (
		cfg *config.Config
		err error
	)
	if opts.configPath != "" {
		cfg, err = config.LoadConfigFile(opts.configPath)
	} else {
		cfg, err = config.LoadConfig()
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	env, err := config.ResolveEnvironment(cfg, opts.environment)
	if err != nil {
		return nil, err
	}
	if opts.databaseURL != "" {
		env.DatabaseURL = opts.databaseURL
	}
	if opts.stateFile != "" {
		env.StateFile = opts.stateFile
	}

	dir := opts.migrations
	if dir == "" {
		dir = cfg.MigrationsPath()
	}

	registry, err := manifest.LoadDir(dir)
	if err != nil {
		return nil, err
	}

	runID := uuid.NewString()
	p := &project{
		config:        cfg,
		env:           env,
		migrationsDir: dir,
		registry:      registry,
		runID:         runID,
		logger:        newLogger(cmd, runID),
	}

	p.logger.Debug("loaded project",
		"config", cfg.ConfigFilePath,
		"environment", env.Name,
		"migrations_dir", dir,
		"migrations", registry.Len())

	return p, nil
}

// target is what a command runs against: a live connection, or only a
// dialect and a state file when no database is configured.
type target struct {
	conn     *executor.Connection
	backend  database.Backend
	migrator *migration.Migrator
}

func (t *target) Close() {
	if t.conn != nil {
		_ = t.conn.Close()
	}
}

// open connects to the environment's database. With offline set, a missing
// database URL falls back to --backend plus the configured state file.
func (p *project) open(ctx context.Context, offline bool) (*target, error) {
	if p.env.DatabaseURL == "" {
		if !offline {
			return nil, errNoDatabase
		}
		return p.openOffline()
	}

	conn, err := executor.Open(ctx, p.env.DatabaseURL)
	if err != nil {
		return nil, err
	}

	backend, err := p.backendFor(conn.DriverType)
	if err != nil {
		_ = conn.Close()
		return nil, err
	}

	store, err := executor.NewStateStore(ctx, conn, p.env.StateTable, p.env.StateFile)
	if err != nil {
		_ = conn.Close()
		return nil, err
	}
	p.tagStore(store)

	p.logger.Debug("connected", "driver", conn.DriverType, "backend", backend.Name())

	return &target{
		conn:     conn,
		backend:  backend,
		migrator: migration.NewMigrator(p.registry, backend, store, migration.WithLogger(p.logger)),
	}, nil
}

func (p *project) openOffline() (*target, error) {
	if p.env.StateFile == "" || opts.backend == "" {
		return nil, fmt.Errorf("%w\n\nTo work without a database, pass --backend and --state-file", errNoDatabase)
	}

	backend, err := executor.NewBackend(opts.backend)
	if err != nil {
		return nil, err
	}

	store := state.NewFileStore(p.env.StateFile)
	p.tagStore(store)

	return &target{
		backend:  backend,
		migrator: migration.NewMigrator(p.registry, backend, store, migration.WithLogger(p.logger)),
	}, nil
}

// backendFor honors --backend, which must agree with the connection.
func (p *project) backendFor(driverType string) (database.Backend, error) {
	detected, err := executor.NewBackend(driverType)
	if err != nil {
		return nil, err
	}
	if opts.backend == "" {
		return detected, nil
	}

	requested, err := executor.NewBackend(opts.backend)
	if err != nil {
		return nil, err
	}
	if requested.Name() != detected.Name() {
		return nil, fmt.Errorf("--backend %s does not match the %s database", opts.backend, driverType)
	}
	return requested, nil
}

func (p *project) tagStore(store migration.StateStore) {
	if fs, ok := store.(*state.FileStore); ok {
		fs.WithRunID(p.runID)
	}
}
