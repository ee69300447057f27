package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
)

var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Inspect bearer tokens",
}

var tokenDecodeCmd = &cobra.Command{
	Use:   "decode <token>",
	Short: "Decode a token payload without verifying it",
	Long: `Decode a token payload without verifying the signature. Debugging
only: the output proves nothing about the token's authenticity.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		env, err := newAdminEnv()
		if err != nil {
			return err
		}
		defer env.close()

		claims, err := env.tokens.DecodeUnverified(args[0])
		if err != nil {
			return fmt.Errorf("decode token: %w", err)
		}
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(claims)
	},
}

var tokenValidateCmd = &cobra.Command{
	Use:   "validate <token>",
	Short: "Run full validation against the configured secret and blacklist",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		env, err := newAdminEnv()
		if err != nil {
			return err
		}
		defer env.close()

		result := env.tokens.Validate(context.Background(), args[0])
		if result.Valid {
			fmt.Println("valid")
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(result.Claims)
		}
		return fmt.Errorf("invalid: %s", result.Reason)
	},
}

var tokenRevokeCmd = &cobra.Command{
	Use:   "revoke <token>",
	Short: "Add a token to the blacklist for the rest of its lifetime",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		env, err := newAdminEnv()
		if err != nil {
			return err
		}
		defer env.close()

		var expiresAt time.Time
		if claims, err := env.tokens.DecodeUnverified(args[0]); err == nil {
			expiresAt = claims.ExpiresAt()
		}
		if err := env.blacklist.Add(context.Background(), args[0], expiresAt); err != nil {
			return err
		}
		fmt.Println("token revoked")
		return nil
	},
}

func init() {
	tokenCmd.AddCommand(tokenDecodeCmd, tokenValidateCmd, tokenRevokeCmd)
	rootCmd.AddCommand(tokenCmd)
}
