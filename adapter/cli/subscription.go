package cli

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	subCommands "github.com/greenbasket/greenbasket/internal/subscriptions/application/commands"
	subDomain "github.com/greenbasket/greenbasket/internal/subscriptions/domain"
)

func (c *CLI) newSubscriptionCmd() *cobra.Command {
	subCmd := &cobra.Command{
		Use:     "subscription",
		Aliases: []string{"sub"},
		Short:   "Manage recurring produce subscriptions",
	}

	subCmd.AddCommand(
		c.newSubscriptionCreateCmd(),
		c.newSubscriptionPauseCmd(),
		c.newSubscriptionResumeCmd(),
		c.newSubscriptionCancelCmd(),
		c.newSubscriptionModifyCmd(),
		c.newSubscriptionRenewCmd(),
		c.newSubscriptionGenerateOrderCmd(),
		c.newSubscriptionListCmd(),
		c.newSubscriptionShowCmd(),
	)
	return subCmd
}

// parsePlanItem parses an --item flag of the form <produce-id>:<name>:<qty>:<unit>.
func parsePlanItem(value string) (subCommands.CreateSubscriptionItem, error) {
	parts := strings.Split(value, ":")
	if len(parts) != 4 {
		return subCommands.CreateSubscriptionItem{}, fmt.Errorf("invalid item %q, expected <produce-id>:<name>:<qty>:<unit>", value)
	}
	id, err := uuid.Parse(parts[0])
	if err != nil {
		return subCommands.CreateSubscriptionItem{}, fmt.Errorf("invalid produce id in %q: %w", value, err)
	}
	qty, err := strconv.ParseFloat(parts[2], 64)
	if err != nil {
		return subCommands.CreateSubscriptionItem{}, fmt.Errorf("invalid quantity in %q: %w", value, err)
	}
	return subCommands.CreateSubscriptionItem{
		ProduceItemID: id,
		Name:          parts[1],
		Quantity:      qty,
		Unit:          parts[3],
	}, nil
}

func (c *CLI) newSubscriptionCreateCmd() *cobra.Command {
	var (
		userFlag     string
		addressFlag  string
		planFlag     string
		descFlag     string
		priceFlag    int64
		currencyFlag string
		cycleFlag    string
		dateFlag     string
		itemFlags    []string
	)

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a recurring subscription",
		Example: `  greenbasket subscription create --plan "Weekly Greens" --price 1999 --cycle WEEKLY \
    --item 7c9e6679-7425-40de-944b-e07fc1f90ae7:Chard:1:bundle`,
		RunE: func(cmd *cobra.Command, args []string) error {
			userID, err := c.defaultUserID(userFlag)
			if err != nil {
				return err
			}
			addressID, err := c.defaultAddressID(addressFlag)
			if err != nil {
				return err
			}
			date, err := parseDateFlag(dateFlag)
			if err != nil {
				return err
			}
			if len(itemFlags) == 0 {
				return fmt.Errorf("at least one --item is required")
			}
			items := make([]subCommands.CreateSubscriptionItem, 0, len(itemFlags))
			for _, raw := range itemFlags {
				item, err := parsePlanItem(raw)
				if err != nil {
					return err
				}
				items = append(items, item)
			}

			container, err := c.Container(cmd.Context())
			if err != nil {
				return err
			}

			sub, err := container.CreateSubscriptionHandler.Handle(cmd.Context(), subCommands.CreateSubscriptionCommand{
				UserID:          userID,
				PlanName:        planFlag,
				PlanDescription: descFlag,
				PriceAmount:     priceFlag,
				Currency:        currencyFlag,
				Items:           items,
				BillingCycle:    strings.ToUpper(cycleFlag),
				AddressID:       addressID,
				PreferredDate:   date,
			})
			if err != nil {
				return err
			}

			fmt.Println("Subscription created!")
			printSubscription(sub)
			return nil
		},
	}

	cmd.Flags().StringVar(&userFlag, "user", "", "user id")
	cmd.Flags().StringVar(&addressFlag, "address", "", "delivery address id")
	cmd.Flags().StringVar(&planFlag, "plan", "", "plan name")
	cmd.Flags().StringVar(&descFlag, "description", "", "plan description")
	cmd.Flags().Int64Var(&priceFlag, "price", 0, "plan price in minor units (cents)")
	cmd.Flags().StringVar(&currencyFlag, "currency", "EUR", "plan currency")
	cmd.Flags().StringVar(&cycleFlag, "cycle", "WEEKLY", "billing cycle (WEEKLY, BIWEEKLY, MONTHLY)")
	cmd.Flags().StringVar(&dateFlag, "date", "", "first delivery date (YYYY-MM-DD)")
	cmd.Flags().StringArrayVar(&itemFlags, "item", nil, "plan line <produce-id>:<name>:<qty>:<unit> (repeatable)")
	_ = cmd.MarkFlagRequired("plan")
	_ = cmd.MarkFlagRequired("price")
	return cmd
}

func (c *CLI) newSubscriptionPauseCmd() *cobra.Command {
	var (
		reasonFlag string
		resumeFlag string
	)

	cmd := &cobra.Command{
		Use:   "pause <subscription-id>",
		Short: "Pause an active subscription",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			subID, err := uuid.Parse(args[0])
			if err != nil {
				return fmt.Errorf("invalid subscription id: %w", err)
			}
			var resumeDate *time.Time
			if resumeFlag != "" {
				parsed, err := time.Parse("2006-01-02", resumeFlag)
				if err != nil {
					return fmt.Errorf("invalid --resume-date: %w", err)
				}
				resumeDate = &parsed
			}
			container, err := c.Container(cmd.Context())
			if err != nil {
				return err
			}
			if err := container.PauseSubscriptionHandler.Handle(cmd.Context(), subCommands.PauseSubscriptionCommand{
				SubscriptionID: subID,
				Reason:         reasonFlag,
				ResumeDate:     resumeDate,
			}); err != nil {
				return err
			}
			fmt.Printf("Subscription %s paused.\n", subID)
			return nil
		},
	}

	cmd.Flags().StringVar(&reasonFlag, "reason", "", "pause reason")
	cmd.Flags().StringVar(&resumeFlag, "resume-date", "", "planned resume date (YYYY-MM-DD)")
	return cmd
}

func (c *CLI) newSubscriptionResumeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "resume <subscription-id>",
		Short: "Resume a paused subscription",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			subID, err := uuid.Parse(args[0])
			if err != nil {
				return fmt.Errorf("invalid subscription id: %w", err)
			}
			container, err := c.Container(cmd.Context())
			if err != nil {
				return err
			}
			if err := container.ResumeSubscriptionHandler.Handle(cmd.Context(), subCommands.ResumeSubscriptionCommand{
				SubscriptionID: subID,
			}); err != nil {
				return err
			}
			fmt.Printf("Subscription %s resumed.\n", subID)
			return nil
		},
	}
}

func (c *CLI) newSubscriptionCancelCmd() *cobra.Command {
	var reasonFlag string

	cmd := &cobra.Command{
		Use:   "cancel <subscription-id>",
		Short: "Cancel a subscription",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			subID, err := uuid.Parse(args[0])
			if err != nil {
				return fmt.Errorf("invalid subscription id: %w", err)
			}
			container, err := c.Container(cmd.Context())
			if err != nil {
				return err
			}
			if err := container.CancelSubscriptionHandler.Handle(cmd.Context(), subCommands.CancelSubscriptionCommand{
				SubscriptionID: subID,
				Reason:         reasonFlag,
			}); err != nil {
				return err
			}
			fmt.Printf("Subscription %s cancelled.\n", subID)
			return nil
		},
	}

	cmd.Flags().StringVar(&reasonFlag, "reason", "", "cancellation reason")
	return cmd
}

func (c *CLI) newSubscriptionModifyCmd() *cobra.Command {
	var (
		cycleFlag    string
		slotDateFlag string
	)

	cmd := &cobra.Command{
		Use:   "modify <subscription-id>",
		Short: "Change the billing cycle or delivery slot of a subscription",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			subID, err := uuid.Parse(args[0])
			if err != nil {
				return fmt.Errorf("invalid subscription id: %w", err)
			}

			modify := subCommands.ModifySubscriptionCommand{SubscriptionID: subID}
			if cycleFlag != "" {
				cycle := strings.ToUpper(cycleFlag)
				modify.NewCycle = &cycle
			}
			if slotDateFlag != "" {
				parsed, err := time.Parse("2006-01-02", slotDateFlag)
				if err != nil {
					return fmt.Errorf("invalid --slot-date: %w", err)
				}
				modify.NewSlotDate = &parsed
			}
			if (modify.NewCycle == nil) == (modify.NewSlotDate == nil) {
				return fmt.Errorf("exactly one of --cycle or --slot-date must be set")
			}

			container, err := c.Container(cmd.Context())
			if err != nil {
				return err
			}
			if err := container.ModifySubscriptionHandler.Handle(cmd.Context(), modify); err != nil {
				return err
			}
			fmt.Printf("Subscription %s modified.\n", subID)
			return nil
		},
	}

	cmd.Flags().StringVar(&cycleFlag, "cycle", "", "new billing cycle (WEEKLY, BIWEEKLY, MONTHLY)")
	cmd.Flags().StringVar(&slotDateFlag, "slot-date", "", "new delivery date (YYYY-MM-DD)")
	return cmd
}

func (c *CLI) newSubscriptionRenewCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "renew <subscription-id>",
		Short: "Run one renewal cycle for a subscription",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			subID, err := uuid.Parse(args[0])
			if err != nil {
				return fmt.Errorf("invalid subscription id: %w", err)
			}
			container, err := c.Container(cmd.Context())
			if err != nil {
				return err
			}
			if err := container.ProcessRenewalHandler.Handle(cmd.Context(), subCommands.ProcessRenewalCommand{
				SubscriptionID: subID,
			}); err != nil {
				return err
			}
			fmt.Printf("Subscription %s renewed.\n", subID)
			return nil
		},
	}
}

func (c *CLI) newSubscriptionGenerateOrderCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "generate-order <subscription-id>",
		Short: "Generate the next delivery order for a subscription",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			subID, err := uuid.Parse(args[0])
			if err != nil {
				return fmt.Errorf("invalid subscription id: %w", err)
			}
			container, err := c.Container(cmd.Context())
			if err != nil {
				return err
			}
			result, err := container.GenerateOrderHandler.Handle(cmd.Context(), subCommands.GenerateOrderCommand{
				SubscriptionID: subID,
			})
			if err != nil {
				return err
			}

			fmt.Printf("Order %s generated from subscription %s.\n", result.Order.ID(), subID)
			if len(result.DroppedItems) > 0 {
				fmt.Println("Dropped out-of-stock items:")
				for _, id := range result.DroppedItems {
					fmt.Printf("  - %s\n", id)
				}
			}
			return nil
		},
	}
}

func (c *CLI) newSubscriptionListCmd() *cobra.Command {
	var (
		userFlag   string
		statusFlag string
		activeFlag bool
		dueFlag    string
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List subscriptions",
		RunE: func(cmd *cobra.Command, args []string) error {
			container, err := c.Container(cmd.Context())
			if err != nil {
				return err
			}

			var summaries []subDomain.SubscriptionSummary
			switch {
			case dueFlag != "":
				by, parseErr := time.Parse("2006-01-02", dueFlag)
				if parseErr != nil {
					return fmt.Errorf("invalid --due: %w", parseErr)
				}
				summaries, err = container.ListSubscriptionsHandler.DueForRenewal(cmd.Context(), by)
			case activeFlag:
				summaries, err = container.ListSubscriptionsHandler.Active(cmd.Context())
			case statusFlag != "":
				summaries, err = container.ListSubscriptionsHandler.ByStatus(cmd.Context(), strings.ToUpper(statusFlag))
			default:
				var userID uuid.UUID
				userID, err = c.defaultUserID(userFlag)
				if err != nil {
					return err
				}
				summaries, err = container.ListSubscriptionsHandler.ByUser(cmd.Context(), userID)
			}
			if err != nil {
				return err
			}

			if len(summaries) == 0 {
				fmt.Println("No subscriptions found.")
				return nil
			}
			for _, s := range summaries {
				fmt.Printf("%s  %-10s %-20s %s  next billing %s  delivery %s\n",
					s.ID, s.Status, s.PlanName, s.BillingCycle,
					s.NextBillingDate.Format("2006-01-02"), s.DeliveryDate.Format("2006-01-02"))
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&userFlag, "user", "", "user id")
	cmd.Flags().StringVar(&statusFlag, "status", "", "filter by status (ACTIVE, PAUSED, ...)")
	cmd.Flags().BoolVar(&activeFlag, "active", false, "list active subscriptions only")
	cmd.Flags().StringVar(&dueFlag, "due", "", "list subscriptions due for renewal by date (YYYY-MM-DD)")
	return cmd
}

func (c *CLI) newSubscriptionShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show <subscription-id>",
		Short: "Show one subscription in full",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			subID, err := uuid.Parse(args[0])
			if err != nil {
				return fmt.Errorf("invalid subscription id: %w", err)
			}
			container, err := c.Container(cmd.Context())
			if err != nil {
				return err
			}
			sub, err := container.GetSubscriptionHandler.ByID(cmd.Context(), subID)
			if err != nil {
				return err
			}
			printSubscription(sub)
			return nil
		},
	}
}

func printSubscription(sub *subDomain.Subscription) {
	fmt.Printf("  ID:           %s\n", sub.ID())
	fmt.Printf("  Status:       %s\n", sub.Status())
	fmt.Printf("  User:         %s\n", sub.UserID())
	fmt.Printf("  Plan:         %s (%s)\n", sub.Plan().Name(), sub.Plan().Price())
	fmt.Printf("  Cycle:        %s\n", sub.Cycle())
	fmt.Printf("  Period:       %s to %s\n",
		sub.PeriodStart().Format("2006-01-02"), sub.PeriodEnd().Format("2006-01-02"))
	fmt.Printf("  Next billing: %s\n", sub.NextBillingDate().Format("2006-01-02"))
	fmt.Printf("  Delivery:     %s (%s)\n", sub.Slot().Date().Format("2006-01-02"), sub.Slot().Kind())
	if last := sub.LastOrderID(); last != nil {
		fmt.Printf("  Last order:   %s\n", *last)
	}
	for _, item := range sub.Plan().Items() {
		fmt.Printf("    - %s  %g %s\n", item.Name(), item.Quantity().Value(), item.Quantity().Unit())
	}
}
