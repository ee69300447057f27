package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var blacklistCmd = &cobra.Command{
	Use:   "blacklist",
	Short: "Inspect and maintain the token blacklist",
}

var blacklistStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show a snapshot of the revocation set",
	RunE: func(cmd *cobra.Command, args []string) error {
		env, err := newAdminEnv()
		if err != nil {
			return err
		}
		defer env.close()

		stats := env.blacklist.Stats(context.Background())
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(stats)
	},
}

var blacklistCleanupCmd = &cobra.Command{
	Use:   "cleanup",
	Short: "Sweep expired revocation entries",
	RunE: func(cmd *cobra.Command, args []string) error {
		env, err := newAdminEnv()
		if err != nil {
			return err
		}
		defer env.close()

		report := env.blacklist.Cleanup(context.Background())
		fmt.Printf("checked %d entries, removed %d expired, %d errors\n",
			report.TotalChecked, report.ExpiredRemoved, report.Errors)
		return nil
	},
}

var blacklistClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Remove every revocation entry",
	Long:  "Remove every revocation entry. Revoked tokens become valid again; use with care.",
	RunE: func(cmd *cobra.Command, args []string) error {
		confirmed, _ := cmd.Flags().GetBool("yes")
		if !confirmed {
			return fmt.Errorf("refusing to clear without --yes")
		}

		env, err := newAdminEnv()
		if err != nil {
			return err
		}
		defer env.close()

		if err := env.blacklist.Clear(context.Background()); err != nil {
			return err
		}
		fmt.Println("blacklist cleared")
		return nil
	},
}

func init() {
	blacklistClearCmd.Flags().Bool("yes", false, "confirm clearing the blacklist")

	blacklistCmd.AddCommand(blacklistStatsCmd, blacklistCleanupCmd, blacklistClearCmd)
	rootCmd.AddCommand(blacklistCmd)
}
