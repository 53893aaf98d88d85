package cmd

import (
	"context"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func remindCmd(version string) *cobra.Command {
	return &cobra.Command{
		Use:          "remind",
		Short:        "Run one reminder pass and exit",
		Long:         `Sends follow-up reminders for requests accepted in the current window. Useful when the schedule is driven by an external cron.`,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}
			cfg, logger, err := loadBase(version)
			if err != nil {
				return err
			}
			defer func() { _ = logger.Sync() }()

			a, err := newApp(ctx, cfg, logger)
			if err != nil {
				return err
			}
			defer a.Close()

			stats, err := a.reminders.RunOnce(ctx)
			if err != nil {
				return err
			}
			logger.Info("Reminder pass finished",
				zap.Int("requests", stats.Requests),
				zap.Int("sent", stats.Sent),
				zap.Int("failed", stats.Failed))
			return nil
		},
	}
}
