package cli

import (
	"github.com/spf13/cobra"

	"github.com/greenbasket/greenbasket/internal/app"
)

func (c *CLI) newWorkerCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "worker",
		Short: "Run the background worker (outbox publisher and renewal scans)",
		Long: `Runs the outbox processor, the subscription renewal worker and the
outbox cleanup loop until interrupted. The same loops also ship as the
standalone greenbasket-worker binary for deployments that separate the
CLI from long-running processes.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			container, err := c.Container(cmd.Context())
			if err != nil {
				return err
			}
			c.logger.Info("worker starting",
				"outbox_enabled", c.cfg.OutboxProcessorEnabled,
				"renewal_interval", c.cfg.RenewalInterval.String(),
			)
			return app.RunWorker(cmd.Context(), container)
		},
	}
}
