package cmd

import (
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/dbbridge/dbbridge/core/logging"
	"github.com/dbbridge/dbbridge/core/registry"
	"github.com/dbbridge/dbbridge/core/secret"
)

var encryptOutput string

// encryptCmd represents the encrypt command
var encryptCmd = &cobra.Command{
	Use:   "encrypt [registry-file]",
	Short: "Encrypt the passwords in a registry file",
	Long: `Encrypt every password in a plaintext registry file with the key from
` + secret.EnvKey + ` and write the encrypted registry next to it. A
"-plaintext" suffix in the input name is stripped for the output, so
database-config-plaintext.json becomes database-config.json; without the
suffix the file is encrypted in place.`,
	RunE:          encryptRegistry,
	Args:          cobra.MaximumNArgs(1),
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.AddCommand(encryptCmd)

	encryptCmd.Flags().StringVarP(&registryFile, "registry", "r", "", "Path to the plaintext registry file (default: "+registry.DefaultPath+")")
	encryptCmd.Flags().StringVarP(&encryptOutput, "output", "o", "", "Where to write the encrypted registry (default: derived from the input name)")
	addLoggingFlags(encryptCmd)
}

func encryptRegistry(cmd *cobra.Command, args []string) error {
	if err := configureLogging(); err != nil {
		return err
	}
	log := logging.New("encrypt")

	path, err := resolveRegistryArg(args, "encrypt")
	if err != nil {
		return err
	}
	LoadEnvFiles(filepath.Dir(path))

	reg, err := registry.Load(path)
	if err != nil {
		return logging.WithTag("encrypt", err)
	}

	cipher, err := secret.CipherFromEnv()
	if err != nil {
		return logging.WithTag("encrypt", err)
	}

	encrypted, err := reg.EncryptPasswords(cipher.Encrypt)
	if err != nil {
		return logging.WithTag("encrypt", err)
	}

	outPath := encryptOutput
	if outPath == "" {
		outPath = registry.EncryptedSiblingPath(path)
	}
	if err := encrypted.WriteFile(outPath); err != nil {
		return failf("encrypt", "failed to write encrypted registry: %w", err)
	}

	log.Infof("Encrypted %d registry entries from %s", len(reg.Connections()), path)
	log.Successf("Encrypted registry written: %s", outPath)
	return nil
}
