// SealDB - encrypted local database maintenance tool
//
// sealdb opens one logical database through the store registry and runs a
// single maintenance command against it. The same composition (config,
// logging, optional metrics and event sinks, registry) is what an embedding
// service would build.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/nerrad567/sealdb/internal/infrastructure/config"
	"github.com/nerrad567/sealdb/internal/infrastructure/database"
	"github.com/nerrad567/sealdb/internal/infrastructure/influxdb"
	"github.com/nerrad567/sealdb/internal/infrastructure/logging"
	"github.com/nerrad567/sealdb/internal/infrastructure/mqtt"
	"github.com/nerrad567/sealdb/internal/store"
)

// Version information - set at build time via ldflags
// Example: go build -ldflags "-X main.version=1.0.0 -X main.commit=abc123"
var (
	version = "dev"     // Semantic version (e.g., "1.0.0")
	commit  = "unknown" // Git commit hash
	date    = "unknown" // Build date
)

// setupAnnotation controls how much of the app a command needs.
// Unannotated commands get the full setup including the database.
const setupAnnotation = "sealdb/setup"

const (
	setupNone   = "none"   // no config, logger, or database
	setupConfig = "config" // config, logger, and sinks only
)

// flags holds the persistent CLI flags.
type flags struct {
	configPath string
	name       string
	dir        string
}

// app is the composition root shared by all subcommands.
type app struct {
	cfg      *config.Config
	log      *logging.Logger
	influx   *influxdb.Client
	mqtt     *mqtt.Client
	registry *store.Registry
	conn     *store.Connection
}

func main() {
	// Cancel on Ctrl+C / SIGTERM so long-running commands stop cleanly
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	a := &app{}
	err := newRootCmd(a).ExecuteContext(ctx)
	if closeErr := a.close(); closeErr != nil {
		fmt.Fprintf(os.Stderr, "Error closing: %v\n", closeErr)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// newRootCmd builds the command tree around a. The caller closes a after
// the command returns, whether or not it succeeded.
func newRootCmd(a *app) *cobra.Command {
	var f flags

	root := &cobra.Command{
		Use:           "sealdb",
		Short:         "SealDB - encrypted local database maintenance",
		Long:          `sealdb opens a logical database (optionally SQLCipher-keyed via SEALDB_DATABASE_CREDENTIAL) and runs one maintenance command against it.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			mode := cmd.Annotations[setupAnnotation]
			if mode == setupNone || cmd.Name() == "help" {
				return nil
			}
			return a.setup(cmd.Context(), f, mode != setupConfig)
		},
	}

	root.PersistentFlags().StringVarP(&f.configPath, "config", "c", "", "config file path (or set SEALDB_CONFIG)")
	root.PersistentFlags().StringVarP(&f.name, "name", "n", "", "logical database name (default from config)")
	root.PersistentFlags().StringVarP(&f.dir, "dir", "d", "", "database directory (default from config)")

	root.AddCommand(
		schemaVersionCmd(a),
		tablesCmd(a),
		countCmd(a),
		execCmd(a),
		execScriptCmd(a),
		localCmd(a),
		destroyCmd(a),
		optimizeCmd(a),
		eventsCmd(a),
		versionCmd(),
	)

	return root
}

// setup loads configuration, builds the logger and optional sinks, and
// acquires the target database when openDB is set.
func (a *app) setup(ctx context.Context, f flags, openDB bool) error {
	configPath := f.configPath
	if configPath == "" {
		configPath = os.Getenv("SEALDB_CONFIG")
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	if f.dir != "" {
		cfg.Database.Dir = f.dir
	}
	a.cfg = cfg
	a.log = logging.New(cfg.Logging, version)

	a.connectSinks(ctx)

	if !openDB {
		return nil
	}

	name, err := cfg.DatabaseName(f.name)
	if err != nil {
		return err
	}

	a.registry = store.NewRegistry(store.NewOpener(database.Config{
		Dir:         cfg.Database.Dir,
		WALMode:     cfg.Database.WALMode,
		BusyTimeout: cfg.Database.BusyTimeout,
		MaxReaders:  cfg.Database.MaxReaders,
	}, store.WithLogger(a.log), store.WithHooks(a.hooks())))
	a.registry.SetLogger(a.log)

	conn, err := a.registry.Acquire(ctx, store.Identity{
		Name:       name,
		Credential: cfg.Database.Credential,
	})
	if err != nil {
		return err
	}
	a.conn = conn
	return nil
}

// connectSinks connects the optional InfluxDB and MQTT clients.
// Connection failures are logged and the command continues without them.
func (a *app) connectSinks(ctx context.Context) {
	if influx, err := influxdb.Connect(ctx, a.cfg.InfluxDB); err == nil {
		influx.SetOnError(func(err error) {
			a.log.Warn("influxdb write failed", "error", err)
		})
		a.influx = influx
	} else if !errors.Is(err, influxdb.ErrDisabled) {
		a.log.Warn("influxdb unavailable, statement metrics disabled", "error", err)
	}

	if client, err := mqtt.Connect(a.cfg.MQTT); err == nil {
		client.SetLogger(a.log)
		a.mqtt = client
	} else if !errors.Is(err, mqtt.ErrDisabled) {
		a.log.Warn("mqtt unavailable, lifecycle events disabled", "error", err)
	}
}

// hooks routes store activity to the connected sinks.
func (a *app) hooks() store.Hooks {
	return store.Hooks{
		OnStatement: func(s store.StatementStats) {
			if s.Err != nil {
				a.log.Debug("statement failed", "database", s.Database, "kind", s.Kind, "error", s.Err)
			}
			if a.influx != nil {
				a.influx.WriteStatementMetric(s.Database, s.Kind, s.Duration, s.Err != nil)
			}
		},
		OnEvent: func(ev store.Event) {
			if a.mqtt == nil {
				return
			}
			if err := a.mqtt.PublishDatabaseEvent(ev.Database, string(ev.Kind), ev.Attrs); err != nil {
				a.log.Warn("publishing database event failed", "database", ev.Database, "kind", ev.Kind, "error", err)
			}
		},
	}
}

// close releases the registry before the sinks so closing events are still
// delivered. It is safe to call on a partially built app.
func (a *app) close() error {
	var errs []error
	if a.registry != nil {
		errs = append(errs, a.registry.CloseAll())
	}
	if a.mqtt != nil {
		if n := a.mqtt.DroppedEvents(); n > 0 {
			a.log.Warn("database events dropped while mqtt was offline", "count", n)
		}
		errs = append(errs, a.mqtt.Close())
	}
	if a.influx != nil {
		errs = append(errs, a.influx.Close())
		if n := a.influx.FailedWrites(); n > 0 {
			a.log.Warn("statement metric batches rejected", "count", n)
		}
	}
	if a.log != nil {
		errs = append(errs, a.log.Close())
	}
	return errors.Join(errs...)
}
