package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/dbbridge/dbbridge/core/secret"
)

// keygenCmd represents the keygen command
var keygenCmd = &cobra.Command{
	Use:   "keygen",
	Short: "Generate a fresh registry encryption key",
	Long: `Generate a fresh Fernet key for encrypting registry passwords.
Export it as ` + secret.EnvKey + ` before running encrypt or serve.`,
	RunE:          generateEncryptionKey,
	Args:          cobra.NoArgs,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.AddCommand(keygenCmd)
}

func generateEncryptionKey(cmd *cobra.Command, args []string) error {
	key, err := secret.GenerateKey()
	if err != nil {
		return failf("keygen", "failed to generate encryption key: %w", err)
	}
	fmt.Fprintln(cmd.OutOrStdout(), key)
	return nil
}
