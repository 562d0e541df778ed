// Command cloudsync inspects the replication catalog, the redaction
// configuration, and the persisted sync state.
//
// Triggering an actual push is the host application's job; this tool
// exists so operators can audit what would leave the machine and what
// the current cursors are.
package main

import (
	"fmt"
	"log"
	"os"
	"sort"

	"github.com/spf13/cobra"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/sourcepulse/cloudsync/internal/catalog"
	"github.com/sourcepulse/cloudsync/internal/redact"
	"github.com/sourcepulse/cloudsync/internal/sync"
)

var (
	logFile   string
	statePath string
)

var rootCmd = &cobra.Command{
	Use:   "cloudsync",
	Short: "Inspect cloudsync replication configuration and state",
	Long: `cloudsync inspects the cloud replication layer.

Subcommands show the table catalog (what replicates, to where, keyed by
what), the redaction rules (what is stripped before upload), and the
persisted sync cursors.`,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		if logFile != "" {
			log.SetOutput(&lumberjack.Logger{
				Filename:   logFile,
				MaxSize:    10, // megabytes
				MaxBackups: 3,
			})
		}
	},
}

var tablesCmd = &cobra.Command{
	Use:   "tables",
	Short: "List the replication catalog",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := catalog.Validate(); err != nil {
			return fmt.Errorf("catalog is invalid: %w", err)
		}
		defs := catalog.Tables()
		fmt.Printf("%-16s %-24s %-10s %s\n", "LOCAL", "CLOUD", "SOURCE", "CONFLICT KEY")
		for _, d := range defs {
			fmt.Printf("%-16s %-24s %-10s %v\n", d.LocalTable, d.CloudTable, d.Source, d.ConflictColumns)
		}
		fmt.Printf("\n%d tables (%d primary, %d causal, %d semantic)\n",
			len(defs),
			len(catalog.TablesForSource(catalog.SourcePrimary)),
			len(catalog.TablesForSource(catalog.SourceCausal)),
			len(catalog.TablesForSource(catalog.SourceSemantic)))
		return nil
	},
}

var auditCmd = &cobra.Command{
	Use:   "audit",
	Short: "Show which tables and fields are redacted before upload",
	RunE: func(cmd *cobra.Command, args []string) error {
		engine, err := redact.Default()
		if err != nil {
			return fmt.Errorf("redaction rules are invalid: %w", err)
		}
		tables := engine.RedactedTables()
		for _, table := range tables {
			rules := engine.RulesForTable(table)
			fields := make([]string, 0, len(rules))
			for f := range rules {
				fields = append(fields, f)
			}
			sort.Strings(fields)
			fmt.Printf("%s\n", table)
			for _, f := range fields {
				fmt.Printf("    %-16s %s\n", f, rules[f])
			}
		}
		fmt.Printf("\n%d of %d tables carry redaction rules\n", len(tables), len(catalog.Tables()))
		return nil
	},
}

var stateCmd = &cobra.Command{
	Use:   "state",
	Short: "Show the persisted sync state",
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := sync.LoadState(statePath)
		if err != nil {
			return err
		}
		fmt.Printf("drift cursor:   %d\n", s.DriftCursor)
		fmt.Printf("bridge cursor:  %d\n", s.BridgeCursor)
		fmt.Printf("cortex cursor:  %d\n", s.CortexCursor)
		if s.LastSyncAt != nil {
			fmt.Printf("last sync:      %s (%d rows)\n", s.LastSyncAt.Format("2006-01-02 15:04:05 MST"), s.LastSyncRowCount)
		} else {
			fmt.Printf("last sync:      never\n")
		}
		return nil
	},
}

func main() {
	rootCmd.PersistentFlags().StringVar(&logFile, "log-file", "", "write logs to a rotating file instead of stderr")
	stateCmd.Flags().StringVar(&statePath, "state", ".cloudsync/sync-state.json", "path to the sync state file")

	rootCmd.AddCommand(tablesCmd, auditCmd, stateCmd)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
