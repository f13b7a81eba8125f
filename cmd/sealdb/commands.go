package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/nerrad567/sealdb/internal/infrastructure/mqtt"
)

// errNotConfirmed is returned by destroy without --yes.
var errNotConfirmed = errors.New("refusing to destroy without --yes")

// errEventsDisabled is returned by events when MQTT is not connected.
var errEventsDisabled = errors.New("mqtt is not enabled or not reachable")

func schemaVersionCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "schema-version [N]",
		Short: "Print the schema version, or set it to N",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 1 {
				version, err := strconv.Atoi(args[0])
				if err != nil {
					return fmt.Errorf("invalid schema version %q: %w", args[0], err)
				}
				return a.conn.SetSchemaVersion(cmd.Context(), version)
			}

			version, err := a.conn.SchemaVersion(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), version)
			return nil
		},
	}
}

func tablesCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "tables",
		Short: "List user tables",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			tables, err := a.conn.Tables(cmd.Context())
			if err != nil {
				return err
			}
			for _, name := range tables {
				fmt.Fprintln(cmd.OutOrStdout(), name)
			}
			return nil
		},
	}
}

func countCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "count SQL [ARG...]",
		Short: "Run a query returning a \"count\" column and print it",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			n, err := a.conn.Count(cmd.Context(), args[0], stringArgs(args[1:])...)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), n)
			return nil
		},
	}
}

func execCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "exec SQL [ARG...]",
		Short: "Run one statement with text arguments",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.conn.Execute(cmd.Context(), args[0], stringArgs(args[1:])...)
		},
	}
}

func execScriptCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "exec-script FILE",
		Short: "Run a trusted ';'-separated SQL script in one transaction",
		Long: `Run a trusted SQL script in one transaction.

The script is split on ';' without parsing, so it must not contain semicolons
inside string literals, identifiers, or comments. Only run files you wrote.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			script, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("reading script: %w", err)
			}
			return a.conn.ExecuteScript(cmd.Context(), string(script))
		},
	}
}

func localCmd(a *app) *cobra.Command {
	local := &cobra.Command{
		Use:   "local",
		Short: "Read and write the local_storage key/value table",
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if err := cmd.Root().PersistentPreRunE(cmd, nil); err != nil {
				return err
			}
			return a.conn.EnsureLocalStorage(cmd.Context())
		},
	}

	local.AddCommand(
		&cobra.Command{
			Use:   "get KEY",
			Short: "Print a value; exits non-zero when the key is absent",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				value, ok, err := a.conn.LocalValue(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				if !ok {
					return fmt.Errorf("key %q not found", args[0])
				}
				fmt.Fprintln(cmd.OutOrStdout(), value)
				return nil
			},
		},
		&cobra.Command{
			Use:   "set KEY VALUE",
			Short: "Store a value",
			Args:  cobra.ExactArgs(2),
			RunE: func(cmd *cobra.Command, args []string) error {
				return a.conn.SetLocalValue(cmd.Context(), args[0], args[1])
			},
		},
		&cobra.Command{
			Use:   "rm KEY",
			Short: "Remove a value",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				return a.conn.RemoveLocalValue(cmd.Context(), args[0])
			},
		},
	)

	return local
}

func destroyCmd(a *app) *cobra.Command {
	var yes bool

	cmd := &cobra.Command{
		Use:   "destroy",
		Short: "Drop every table, view, trigger and index and reset the schema version",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if !yes {
				return errNotConfirmed
			}
			return a.conn.DestroyEverything(cmd.Context())
		},
	}
	cmd.Flags().BoolVar(&yes, "yes", false, "confirm destruction of all data")

	return cmd
}

func optimizeCmd(a *app) *cobra.Command {
	var vacuum bool

	cmd := &cobra.Command{
		Use:   "optimize",
		Short: "Run PRAGMA optimize, and optionally VACUUM",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := a.conn.Optimize(cmd.Context()); err != nil {
				return err
			}
			if vacuum {
				return a.conn.Vacuum(cmd.Context())
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&vacuum, "vacuum", false, "also rebuild the database file")

	return cmd
}

func eventsCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:         "events",
		Short:       "Print database lifecycle events from MQTT as JSON lines until interrupted",
		Args:        cobra.NoArgs,
		Annotations: map[string]string{setupAnnotation: setupConfig},
		RunE: func(cmd *cobra.Command, _ []string) error {
			if a.mqtt == nil {
				return errEventsDisabled
			}

			ctx := cmd.Context()
			enc := json.NewEncoder(cmd.OutOrStdout())
			events := make(chan mqtt.DatabaseEvent, 16)
			if err := a.mqtt.SubscribeDatabaseEvents(func(ev mqtt.DatabaseEvent) {
				select {
				case events <- ev:
				case <-ctx.Done():
				}
			}); err != nil {
				return err
			}

			for {
				select {
				case <-ctx.Done():
					return nil
				case ev := <-events:
					if err := enc.Encode(ev); err != nil {
						return err
					}
				}
			}
		},
	}
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:         "version",
		Short:       "Show version information",
		Args:        cobra.NoArgs,
		Annotations: map[string]string{setupAnnotation: setupNone},
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "sealdb %s (commit: %s, built: %s)\n", version, commit, date)
		},
	}
}

// stringArgs converts CLI arguments to bind values.
func stringArgs(args []string) []any {
	values := make([]any, len(args))
	for i, arg := range args {
		values[i] = arg
	}
	return values
}
