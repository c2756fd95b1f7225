package cli

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/greenbasket/greenbasket/internal/app"
	"github.com/greenbasket/greenbasket/pkg/config"
	"github.com/greenbasket/greenbasket/pkg/observability"
)

// CLI bundles the configuration, logger and lazily-built container behind
// the command tree. There is no package-level state: every command closes
// over the CLI instance it was built from.
type CLI struct {
	cfg    *config.Config
	logger *slog.Logger

	mu        sync.Mutex
	container *app.Container
}

// New creates a CLI over the given configuration and logger.
func New(cfg *config.Config, logger *slog.Logger) *CLI {
	return &CLI{
		cfg:    cfg,
		logger: logger,
	}
}

// Container returns the application container, building it on first use so
// that commands like version and help never open connections.
func (c *CLI) Container(ctx context.Context) (*app.Container, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.container == nil {
		container, err := app.NewContainer(ctx, c.cfg, c.logger)
		if err != nil {
			return nil, err
		}
		c.container = container
	}
	return c.container, nil
}

// Close releases the container if one was built.
func (c *CLI) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.container != nil {
		c.container.Close()
		c.container = nil
	}
}

type commandContext struct {
	correlationID uuid.UUID
	startedAt     time.Time
}

type commandContextKey struct{}

// RootCommand builds the full command tree.
func (c *CLI) RootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:   "greenbasket",
		Short: "GreenBasket - fresh produce orders and subscriptions",
		Long: `GreenBasket manages one-off produce orders and recurring produce
subscriptions: placing and tracking deliveries, pausing and resuming
subscription boxes, and generating each billing period's order.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			info := commandContext{
				correlationID: uuid.New(),
				startedAt:     time.Now(),
			}
			ctx := context.WithValue(cmd.Context(), commandContextKey{}, info)
			// Handlers log through the context, so every record of this
			// invocation carries the same correlation ID.
			ctx = observability.WithCorrelationID(ctx, info.correlationID.String())
			ctx = observability.WithOperation(ctx, cmd.CommandPath())
			cmd.SetContext(ctx)
			c.logger.Debug("command start",
				"command", cmd.CommandPath(),
				"correlation_id", info.correlationID.String(),
			)
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			info, ok := cmd.Context().Value(commandContextKey{}).(commandContext)
			if !ok {
				return
			}
			c.logger.Debug("command end",
				"command", cmd.CommandPath(),
				"correlation_id", info.correlationID.String(),
				"duration_ms", time.Since(info.startedAt).Milliseconds(),
			)
		},
	}

	root.AddCommand(newVersionCmd())
	root.AddCommand(c.newOrderCmd())
	root.AddCommand(c.newSubscriptionCmd())
	root.AddCommand(c.newWorkerCmd())
	return root
}

// defaultUserID resolves the acting user: an explicit --user flag wins, and
// local mode falls back to the seeded local user.
func (c *CLI) defaultUserID(flag string) (uuid.UUID, error) {
	if flag != "" {
		return uuid.Parse(flag)
	}
	if c.cfg.LocalMode {
		return app.LocalUserID, nil
	}
	return uuid.Nil, fmt.Errorf("--user is required")
}

// defaultAddressID resolves the delivery address the same way.
func (c *CLI) defaultAddressID(flag string) (uuid.UUID, error) {
	if flag != "" {
		return uuid.Parse(flag)
	}
	if c.cfg.LocalMode {
		return app.LocalAddressID, nil
	}
	return uuid.Nil, fmt.Errorf("--address is required")
}

func parseDateFlag(value string) (time.Time, error) {
	if value == "" {
		// Next-day delivery by default.
		return time.Now().UTC().Add(24 * time.Hour), nil
	}
	return time.Parse("2006-01-02", value)
}
