package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

var ratelimitCmd = &cobra.Command{
	Use:   "ratelimit",
	Short: "Maintain rate-limit records",
}

var ratelimitResetCmd = &cobra.Command{
	Use:   "reset <identifier> <action>",
	Short: "Clear the attempt budget for an identifier/action pair",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		env, err := newAdminEnv()
		if err != nil {
			return err
		}
		defer env.close()

		if err := env.limiter.Reset(context.Background(), args[0], args[1]); err != nil {
			return err
		}
		fmt.Printf("reset %s/%s\n", args[0], args[1])
		return nil
	},
}

var ratelimitCleanupCmd = &cobra.Command{
	Use:   "cleanup",
	Short: "Sweep rate-limit records idle past the retention period",
	RunE: func(cmd *cobra.Command, args []string) error {
		env, err := newAdminEnv()
		if err != nil {
			return err
		}
		defer env.close()

		removed, err := env.limiter.Cleanup(context.Background())
		if err != nil {
			return err
		}
		fmt.Printf("removed %d stale records\n", removed)
		return nil
	},
}

func init() {
	ratelimitCmd.AddCommand(ratelimitResetCmd, ratelimitCleanupCmd)
	rootCmd.AddCommand(ratelimitCmd)
}
