package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/dbbridge/dbbridge/core/registry"
	"github.com/dbbridge/dbbridge/core/secret"
)

var initOutputFile string

// initCmd represents the init command
var initCmd = &cobra.Command{
	Use:          "init",
	Short:        "Create a starter registry file",
	RunE:         runInit,
	Args:         cobra.NoArgs,
	SilenceUsage: true,
}

func init() {
	rootCmd.AddCommand(initCmd)
	initCmd.Flags().StringVarP(&initOutputFile, "output", "o", defaultPlaintextPath(), "Output path for the plaintext registry")
}

// defaultPlaintextPath derives the starter file name from the default
// registry location so that encrypt later writes to the default path.
func defaultPlaintextPath() string {
	ext := filepath.Ext(registry.DefaultPath)
	return registry.DefaultPath[:len(registry.DefaultPath)-len(ext)] + "-plaintext" + ext
}

func runInit(cmd *cobra.Command, args []string) error {
	// Never clobber an existing registry.
	if _, err := os.Stat(initOutputFile); err == nil {
		return fmt.Errorf("file '%s' already exists. Use a different filename or remove the existing file", initOutputFile)
	}

	dir := filepath.Dir(initOutputFile)
	if dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create directory: %w", err)
		}
	}

	if err := os.WriteFile(initOutputFile, []byte(registryTemplate), 0600); err != nil {
		return fmt.Errorf("failed to write registry file: %w", err)
	}

	encryptedPath := registry.EncryptedSiblingPath(initOutputFile)

	fmt.Printf("✓ Created plaintext registry: %s\n", initOutputFile)
	fmt.Println("\nNext steps:")
	fmt.Printf("  1. Edit %s: fill in your connections and set \"active\": true\n", initOutputFile)
	fmt.Printf("  2. Run: dbbridge keygen, then export the key as %s\n", secret.EnvKey)
	fmt.Printf("  3. Run: dbbridge encrypt %s\n", initOutputFile)
	fmt.Printf("  4. Run: dbbridge serve %s\n", encryptedPath)

	return nil
}

const registryTemplate = `[
  {
    "connection-name": "oracle-example",
    "rdbms": "oracle",
    "active": false,
    "username": "scott",
    "password": "change-me",
    "server": "oracle.internal",
    "port": 1521,
    "service-name": "ORCLPDB"
  },
  {
    "connection-name": "sqlserver-example",
    "rdbms": "sqlserver",
    "active": false,
    "username": "sa",
    "password": "change-me",
    "server": "mssql.internal",
    "port": 1433,
    "database-name": "master"
  },
  {
    "connection-name": "postgres-example",
    "rdbms": "postgresql",
    "active": false,
    "username": "app",
    "password": "change-me",
    "server": "pg.internal",
    "port": 5432,
    "database-name": "app"
  },
  {
    "connection-name": "mysql-example",
    "rdbms": "mysql",
    "active": false,
    "username": "app",
    "password": "change-me",
    "server": "mysql.internal",
    "port": 3306,
    "database-name": "app"
  }
]
`
