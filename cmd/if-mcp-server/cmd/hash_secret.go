package cmd

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/insightfinder/mcp-server-go/internal/domain/auth"
)

var hashSecretSHA256 bool

var hashSecretCmd = &cobra.Command{
	Use:   "hash-secret [secret]",
	Short: "Hash a credential for use in config",
	Long: `Hash an API key, bearer token, or basic-auth password so the
config file never stores it in plain text.

By default the output is an Argon2id hash ("argon2id:<phc>"). Pass
--sha256 for the cheaper "sha256:<hex>" form. Either value can be set
directly in auth.api_key, auth.bearer_token, or auth.basic_password.

Example:
  if-mcp-server hash-secret "my-secret-key"

Security note: the secret will appear in shell history. Consider using
an environment variable:
  if-mcp-server hash-secret "$MY_SECRET"`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		secret := args[0]

		if hashSecretSHA256 {
			sum := sha256.Sum256([]byte(secret))
			fmt.Printf("sha256:%s\n", hex.EncodeToString(sum[:]))
			return nil
		}

		hash, err := auth.HashSecret(secret)
		if err != nil {
			return fmt.Errorf("hashing secret: %w", err)
		}
		fmt.Println(hash)
		return nil
	},
}

func init() {
	hashSecretCmd.Flags().BoolVar(&hashSecretSHA256, "sha256", false, "emit a sha256 hash instead of argon2id")
	rootCmd.AddCommand(hashSecretCmd)
}
