package cmd

import (
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/dbbridge/dbbridge/core/bridge"
	"github.com/dbbridge/dbbridge/core/logging"
	"github.com/dbbridge/dbbridge/core/registry"
	"github.com/dbbridge/dbbridge/core/table"
)

var (
	execOne      bool
	execCommit   bool
	execKeepOpen bool
)

// execCmd represents the exec command
var execCmd = &cobra.Command{
	Use:   "exec <connection> <statement>",
	Short: "Run a SQL statement on a named connection",
	Long: `Run a single SQL statement on a named registry connection and print the
result. The statement is not committed and the session closes afterwards
unless --commit or --keep-open say otherwise.`,
	RunE:          execStatement,
	Args:          cobra.ExactArgs(2),
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.AddCommand(execCmd)

	execCmd.Flags().StringVarP(&registryFile, "registry", "r", "", "Path to the registry file (default: "+registry.DefaultPath+")")
	execCmd.Flags().BoolVar(&execOne, "one", false, "Return only the first row; fail when the result is empty")
	execCmd.Flags().BoolVar(&execCommit, "commit", false, "Commit the statement's work before returning")
	execCmd.Flags().BoolVar(&execKeepOpen, "keep-open", false, "Leave the session open after the statement")
	execCmd.Flags().StringVarP(&format, "format", "o", "text", "Output format: text, csv, or json")
	addLoggingFlags(execCmd)
}

func execStatement(cmd *cobra.Command, args []string) error {
	if err := configureLogging(); err != nil {
		return err
	}

	// Reject a bad format before touching the database.
	outputFormat, err := table.ParseFormat(format)
	if err != nil {
		return logging.WithTag("exec", err)
	}

	path := registryFile
	if path == "" {
		path = registry.DefaultPath
	}
	LoadEnvFiles(filepath.Dir(path))

	b, err := bridge.New(path, args[0])
	if err != nil {
		return logging.WithTag("exec", err)
	}
	defer func() {
		if err := b.Disconnect(); err != nil {
			logging.New("exec").Warnf("Connection %q did not close cleanly: %v", b.Name(), err)
		}
	}()

	var opts []bridge.Option
	if execOne {
		opts = append(opts, bridge.One())
	}
	if execCommit {
		opts = append(opts, bridge.Commit())
	}
	if execKeepOpen {
		opts = append(opts, bridge.KeepOpen())
	}

	result, err := b.Execute(cmd.Context(), args[1], opts...)
	if err != nil {
		return logging.WithTag("exec", err)
	}

	if err := table.Render(cmd.OutOrStdout(), result, outputFormat); err != nil {
		return logging.WithTag("exec", err)
	}
	return nil
}
