package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/dbbridge/dbbridge/core/logging"
	"github.com/dbbridge/dbbridge/core/registry"
)

// version stores the version string, set via SetVersion()
var version = "dev"

// SetVersion sets the version string (called from main.init())
func SetVersion(v string) {
	version = v
}

// GetVersion returns the current version string
func GetVersion() string {
	return version
}

var (
	registryFile string
	port         string
	format       string
	logLevel     int
	verbose      bool
	logTags      string
	logFile      bool
	showVersion  bool
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:           "dbbridge",
	Short:         "dbbridge\nOne front door for Oracle, SQL Server, PostgreSQL and MySQL",
	SilenceUsage:  true,
	SilenceErrors: true, // Errors are already logged, suppress Cobra's error output
}

// completionCmd is a hidden command used by install.sh to generate shell completions
var completionCmd = &cobra.Command{
	Use:   "completion [bash|zsh|fish|powershell]",
	Short: "Generate shell completion script",
	Long: `Generate shell completion script for dbbridge.
This command is used internally by install.sh and is hidden from help.`,
	Hidden:       true,
	ValidArgs:    []string{"bash", "zsh", "fish", "powershell"},
	Args:         cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		switch args[0] {
		case "bash":
			return cmd.Root().GenBashCompletion(os.Stdout)
		case "zsh":
			return cmd.Root().GenZshCompletion(os.Stdout)
		case "fish":
			return cmd.Root().GenFishCompletion(os.Stdout, true)
		case "powershell":
			return cmd.Root().GenPowerShellCompletion(os.Stdout)
		default:
			return fmt.Errorf("unsupported shell: %s", args[0])
		}
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	// Add hidden completion command for install.sh
	rootCmd.AddCommand(completionCmd)
	rootCmd.Flags().BoolVarP(&showVersion, "version", "v", false, "Print the installed version and exit")

	// Root command should only print help.
	rootCmd.RunE = func(cmd *cobra.Command, args []string) error {
		if showVersion {
			fmt.Fprintln(cmd.OutOrStdout(), version)
			return nil
		}
		return cmd.Help()
	}
}

// failf builds a command failure carrying the logger tag it should be
// reported under at the CLI boundary.
func failf(tag, format string, args ...any) error {
	return logging.WithTag(tag, fmt.Errorf(format, args...))
}

// addLoggingFlags registers the logging flags shared by every command that
// produces log output.
func addLoggingFlags(cmd *cobra.Command) {
	cmd.Flags().IntVar(&logLevel, "log-level", 0, "Log level: 1=ERROR, 2=WARN, 3=INFO, 4=DEBUG")
	cmd.Flags().BoolVarP(&verbose, "verbose", "", false, "Enable verbose logging (sets log level to DEBUG)")
	cmd.Flags().StringVar(&logTags, "log-tags", "", "Filter logs by tags (comma-separated, use -tag to exclude). Overrides DBBRIDGE_LOG_TAGS env var")
	cmd.Flags().BoolVar(&logFile, "log-file", false, "Stream logs to file in /tmp/.dbbridge/logs/")
}

// configureLogging applies the logging flags before any command work so
// startup logs already respect the requested level.
func configureLogging() error {
	if verbose {
		logging.SetLogLevel(logging.LogLevelDebug)
	} else if logLevel > 0 {
		logging.SetLogLevel(logLevel)
	} else {
		logging.SetLogLevel(logging.LogLevelInfo)
	}

	// CLI flag takes precedence over the env var.
	tagFilterStr := logTags
	if tagFilterStr == "" {
		tagFilterStr = os.Getenv("DBBRIDGE_LOG_TAGS")
	}
	if tagFilterStr != "" {
		logging.SetTagFilter(tagFilterStr)
	}

	if logFile {
		filePath, err := logging.SetLogFile()
		if err != nil {
			return failf("cli", "failed to initialize log file: %w", err)
		}
		logging.New("cli").Infof("Log file: %s", filePath)
	}
	return nil
}

// resolveRegistryArg picks the registry path from the positional argument,
// the --registry flag, or the default location, in that order. A directory
// argument is treated as a project root holding the registry at its default
// relative path.
func resolveRegistryArg(args []string, tag string) (string, error) {
	var path string
	switch {
	case len(args) > 0:
		if registryFile != "" {
			return "", failf(tag, "cannot combine path argument with --registry")
		}
		path = args[0]
	case registryFile != "":
		path = registryFile
	default:
		path = registry.DefaultPath
	}

	if info, err := os.Stat(path); err == nil && info.IsDir() {
		path = filepath.Join(path, registry.DefaultPath)
	}
	return path, nil
}

// LoadEnvFiles attempts to load .env files from multiple locations.
// It tries each location in order and stops at the first successful load.
// This ensures .env files work in development, when built, and when deployed.
// Priority order:
// 1. From the provided directory (if not empty)
// 2. From the current working directory
// 3. From the directory containing the executable binary
// System environment variables always take precedence over .env file values.
func LoadEnvFiles(fromDir string) {
	envFiles := []string{".env.local", ".env.development", ".env"}

	// Try loading from the provided directory first (e.g., registry file directory)
	if fromDir != "" {
		for _, envFile := range envFiles {
			envPath := filepath.Join(fromDir, envFile)
			if err := godotenv.Load(envPath); err == nil {
				return // Successfully loaded, stop trying
			}
		}
	}

	// Try loading from current working directory
	for _, envFile := range envFiles {
		if err := godotenv.Load(envFile); err == nil {
			return // Successfully loaded, stop trying
		}
	}

	// Try loading from the directory containing the executable binary
	if execPath, err := os.Executable(); err == nil {
		if realPath, err := filepath.EvalSymlinks(execPath); err == nil {
			execPath = realPath
		}
		execDir := filepath.Dir(execPath)
		for _, envFile := range envFiles {
			envPath := filepath.Join(execDir, envFile)
			if err := godotenv.Load(envPath); err == nil {
				return // Successfully loaded, stop trying
			}
		}
	}
}
