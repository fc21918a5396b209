package cmd

import (
	"fmt"
	"path/filepath"
	"slices"

	"github.com/spf13/cobra"

	"github.com/dbbridge/dbbridge/core/backend"
	"github.com/dbbridge/dbbridge/core/logging"
	"github.com/dbbridge/dbbridge/core/registry"
	"github.com/dbbridge/dbbridge/core/secret"
)

// validateCmd represents the validate command
var validateCmd = &cobra.Command{
	Use:   "validate [registry-file]",
	Short: "Validate a registry file without connecting",
	Long: `Validate a registry file: every entry parses, every active entry names a
supported backend, no two active entries share a name, and every password
decrypts with the key from ` + secret.EnvKey + `. No connection is dialed.`,
	RunE:          validateRegistry,
	Args:          cobra.MaximumNArgs(1),
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.AddCommand(validateCmd)

	validateCmd.Flags().StringVarP(&registryFile, "registry", "r", "", "Path to the registry file (default: "+registry.DefaultPath+")")
	addLoggingFlags(validateCmd)
}

func validateRegistry(cmd *cobra.Command, args []string) error {
	if err := configureLogging(); err != nil {
		return err
	}
	log := logging.New("validate")

	path, err := resolveRegistryArg(args, "validate")
	if err != nil {
		return err
	}
	LoadEnvFiles(filepath.Dir(path))

	reg, err := registry.Load(path)
	if err != nil {
		return logging.WithTag("validate", err)
	}

	cipher, err := secret.CipherFromEnv()
	if err != nil {
		return logging.WithTag("validate", err)
	}

	active := reg.Active()
	var problems []string

	counts := make(map[string]int)
	for _, details := range active {
		counts[details.Name]++
	}
	names := make([]string, 0, len(counts))
	for name := range counts {
		names = append(names, name)
	}
	slices.Sort(names)
	for _, name := range names {
		if counts[name] > 1 {
			problems = append(problems, fmt.Sprintf("%s: %d active entries share one name", name, counts[name]))
		}
	}

	for _, details := range active {
		if _, err := backend.For(details, cipher); err != nil {
			problems = append(problems, fmt.Sprintf("%s: %v", details.Name, err))
			continue
		}
		if details.Password != "" {
			if _, err := cipher.Decrypt(details.Password); err != nil {
				problems = append(problems, fmt.Sprintf("%s: %v", details.Name, err))
			}
		}
	}

	printValidationSummary(log, path, reg)

	if len(problems) > 0 {
		log.Errorf("Problems (%d):", len(problems))
		for _, problem := range problems {
			log.Errorf("  - %s", problem)
		}
		return failf("validate", "registry has %d problem(s) across %d active connection(s)", len(problems), len(active))
	}

	log.Successf("Registry is valid: %s", path)
	return nil
}

func printValidationSummary(log logging.Logger, path string, reg *registry.Registry) {
	active := reg.Active()

	log.Info("Validation report:")
	log.Infof("  registry: %s", path)
	log.Infof("  entries: %d (%d active)", len(reg.Connections()), len(active))
	log.Infof("  active connections (%d):", len(active))
	if len(active) == 0 {
		log.Info("    - none")
		return
	}
	for _, details := range active {
		log.Infof("    - %s: %s at %s", details.Name, details.RDBMS, describeEndpoint(details))
	}
}

// describeEndpoint renders where a connection points without leaking
// credentials. DSNs routinely embed passwords, so they are never echoed.
func describeEndpoint(details registry.Connection) string {
	if details.DSN != "" {
		return "custom DSN"
	}
	endpoint := details.Server
	if details.Port != "" {
		endpoint += ":" + details.Port.String()
	}
	switch {
	case details.Database != "":
		endpoint += "/" + details.Database
	case details.ServiceName != "":
		endpoint += "/" + details.ServiceName
	}
	return endpoint
}
