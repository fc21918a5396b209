package cmd

import (
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/dbbridge/dbbridge/core/backend"
	"github.com/dbbridge/dbbridge/core/bridge"
	"github.com/dbbridge/dbbridge/core/logging"
	"github.com/dbbridge/dbbridge/core/registry"
	"github.com/dbbridge/dbbridge/core/secret"
	"github.com/dbbridge/dbbridge/core/table"
)

// pingCmd represents the ping command
var pingCmd = &cobra.Command{
	Use:   "ping [connection]",
	Short: "Check connectivity for one or all active connections",
	Long: `Dial the named connection, or every active connection when no name is
given, and report which ones answer. The command exits non-zero when any
probed connection is unreachable.`,
	RunE:          pingConnections,
	Args:          cobra.MaximumNArgs(1),
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.AddCommand(pingCmd)

	pingCmd.Flags().StringVarP(&registryFile, "registry", "r", "", "Path to the registry file (default: "+registry.DefaultPath+")")
	pingCmd.Flags().StringVarP(&format, "format", "o", "text", "Output format: text, csv, or json")
	addLoggingFlags(pingCmd)
}

func pingConnections(cmd *cobra.Command, args []string) error {
	if err := configureLogging(); err != nil {
		return err
	}
	log := logging.New("ping")

	outputFormat, err := table.ParseFormat(format)
	if err != nil {
		return logging.WithTag("ping", err)
	}

	path := registryFile
	if path == "" {
		path = registry.DefaultPath
	}
	LoadEnvFiles(filepath.Dir(path))

	reg, err := registry.Load(path)
	if err != nil {
		return logging.WithTag("ping", err)
	}
	cipher, err := secret.CipherFromEnv()
	if err != nil {
		return logging.WithTag("ping", err)
	}

	targets := reg.Active()
	if len(args) == 1 {
		details, err := reg.Lookup(args[0])
		if err != nil {
			return logging.WithTag("ping", err)
		}
		targets = []registry.Connection{details}
	}
	if len(targets) == 0 {
		return failf("ping", "no active connections in %s", path)
	}

	mgr := bridge.NewManager(reg, cipher)
	defer func() {
		if err := mgr.CloseAll(); err != nil {
			log.Warnf("Connections did not close cleanly: %v", err)
		}
	}()

	// Probe sequentially so one unreachable backend cannot drown out the
	// others; each failure is reported and counted, not fatal.
	result := &backend.Rowset{Columns: []string{"CONNECTION", "RDBMS", "ALIVE"}}
	unreachable := 0
	for _, details := range targets {
		alive := false
		b, err := mgr.Get(details.Name)
		if err == nil {
			if err = b.Connect(cmd.Context()); err == nil {
				alive = b.Status(cmd.Context())
			}
		}
		if err != nil {
			log.Warnf("Connection %q is unreachable: %v", details.Name, err)
		}
		if !alive {
			unreachable++
		}
		result.Rows = append(result.Rows, map[string]any{
			"CONNECTION": details.Name,
			"RDBMS":      details.RDBMS,
			"ALIVE":      alive,
		})
	}

	if err := table.Render(cmd.OutOrStdout(), result, outputFormat); err != nil {
		return logging.WithTag("ping", err)
	}

	if unreachable > 0 {
		return failf("ping", "%d of %d connection(s) unreachable", unreachable, len(targets))
	}
	log.Successf("All %d connection(s) answered", len(targets))
	return nil
}
