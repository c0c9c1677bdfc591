package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/notifyhub/cogbot/internal/config"
	"github.com/notifyhub/cogbot/internal/domain"
	"github.com/notifyhub/cogbot/internal/service"
)

var (
	remindOwner   string
	remindIn      string
	remindMessage string
)

// remindCmd writes a reminder straight into the configured store; a running
// `serve` picks it up on its next tick.
var remindCmd = &cobra.Command{
	Use:   "remind",
	Short: "Schedule a reminder in the configured store",
	Example: `  cogbot remind --owner 123456789 --in 1h30m --message "check the oven"
  STORE_DRIVER=postgres DATABASE_URL=... cogbot remind --owner 42 --in 2d --message standup`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}
		if cfg.StoreDriver == config.StoreMemory {
			return fmt.Errorf("remind needs a persistent STORE_DRIVER, got %q", cfg.StoreDriver)
		}

		ctx := cmd.Context()
		repo, closeStore, err := openStore(ctx, cfg)
		if err != nil {
			return err
		}
		defer closeStore()

		r, err := service.NewReminderService(repo, logger).Create(ctx, domain.CreateReminderRequest{
			OwnerID: remindOwner,
			In:      remindIn,
			Message: remindMessage,
		})
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s fires at %s (in %s)\n",
			r.ID, r.FireAt.Format("2006-01-02 15:04:05 MST"), domain.FormatDuration(r.FireAt.Sub(r.CreatedAt)))
		return nil
	},
}

func init() {
	remindCmd.Flags().StringVar(&remindOwner, "owner", "", "user to notify")
	remindCmd.Flags().StringVar(&remindIn, "in", "", "delay such as 30m, 1h30m or 2d")
	remindCmd.Flags().StringVar(&remindMessage, "message", "", "reminder text")
	_ = remindCmd.MarkFlagRequired("owner")
	_ = remindCmd.MarkFlagRequired("in")
	_ = remindCmd.MarkFlagRequired("message")
}
