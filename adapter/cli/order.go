package cli

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	orderCommands "github.com/greenbasket/greenbasket/internal/ordering/application/commands"
	orderingDomain "github.com/greenbasket/greenbasket/internal/ordering/domain"
)

func (c *CLI) newOrderCmd() *cobra.Command {
	orderCmd := &cobra.Command{
		Use:   "order",
		Short: "Manage produce orders",
	}

	orderCmd.AddCommand(
		c.newOrderPlaceCmd(),
		c.newOrderConfirmCmd(),
		c.newOrderCancelCmd(),
		c.newOrderAssignCmd(),
		c.newOrderStartDeliveryCmd(),
		c.newOrderDeliverCmd(),
		c.newOrderListCmd(),
		c.newOrderShowCmd(),
	)
	return orderCmd
}

// parseOrderItem parses an --item flag of the form <produce-id>:<qty>:<unit>,
// e.g. 7c9e6679-...:2.5:kg
func parseOrderItem(value string) (orderCommands.PlaceOrderItem, error) {
	parts := strings.Split(value, ":")
	if len(parts) != 3 {
		return orderCommands.PlaceOrderItem{}, fmt.Errorf("invalid item %q, expected <produce-id>:<qty>:<unit>", value)
	}
	id, err := uuid.Parse(parts[0])
	if err != nil {
		return orderCommands.PlaceOrderItem{}, fmt.Errorf("invalid produce id in %q: %w", value, err)
	}
	qty, err := strconv.ParseFloat(parts[1], 64)
	if err != nil {
		return orderCommands.PlaceOrderItem{}, fmt.Errorf("invalid quantity in %q: %w", value, err)
	}
	return orderCommands.PlaceOrderItem{
		ProduceItemID: id,
		Quantity:      qty,
		Unit:          parts[2],
	}, nil
}

func (c *CLI) newOrderPlaceCmd() *cobra.Command {
	var (
		userFlag    string
		addressFlag string
		dateFlag    string
		itemFlags   []string
	)

	cmd := &cobra.Command{
		Use:   "place",
		Short: "Place a one-off order",
		Example: `  greenbasket order place --item 7c9e6679-7425-40de-944b-e07fc1f90ae7:2:kg
  greenbasket order place --user <id> --address <id> --date 2026-09-05 --item <produce>:1:bundle`,
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
			items := make([]orderCommands.PlaceOrderItem, 0, len(itemFlags))
			for _, raw := range itemFlags {
				item, err := parseOrderItem(raw)
				if err != nil {
					return err
				}
				items = append(items, item)
			}

			container, err := c.Container(cmd.Context())
			if err != nil {
				return err
			}

			order, err := container.PlaceOrderHandler.Handle(cmd.Context(), orderCommands.PlaceOrderCommand{
				UserID:        userID,
				Items:         items,
				AddressID:     addressID,
				PreferredDate: date,
			})
			if err != nil {
				return err
			}

			fmt.Println("Order placed!")
			printOrder(order)
			return nil
		},
	}

	cmd.Flags().StringVar(&userFlag, "user", "", "user id")
	cmd.Flags().StringVar(&addressFlag, "address", "", "delivery address id")
	cmd.Flags().StringVar(&dateFlag, "date", "", "preferred delivery date (YYYY-MM-DD)")
	cmd.Flags().StringArrayVar(&itemFlags, "item", nil, "order line <produce-id>:<qty>:<unit> (repeatable)")
	return cmd
}

func (c *CLI) newOrderConfirmCmd() *cobra.Command {
	var byFlag string

	cmd := &cobra.Command{
		Use:   "confirm <order-id>",
		Short: "Confirm a pending order",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			orderID, err := uuid.Parse(args[0])
			if err != nil {
				return fmt.Errorf("invalid order id: %w", err)
			}
			confirmedBy, err := c.defaultUserID(byFlag)
			if err != nil {
				return err
			}
			container, err := c.Container(cmd.Context())
			if err != nil {
				return err
			}
			if err := container.ConfirmOrderHandler.Handle(cmd.Context(), orderCommands.ConfirmOrderCommand{
				OrderID:     orderID,
				ConfirmedBy: confirmedBy,
			}); err != nil {
				return err
			}
			fmt.Printf("Order %s confirmed.\n", orderID)
			return nil
		},
	}

	cmd.Flags().StringVar(&byFlag, "by", "", "id of the confirming user")
	return cmd
}

func (c *CLI) newOrderCancelCmd() *cobra.Command {
	var (
		byFlag     string
		reasonFlag string
	)

	cmd := &cobra.Command{
		Use:   "cancel <order-id>",
		Short: "Cancel an order that has not been delivered",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			orderID, err := uuid.Parse(args[0])
			if err != nil {
				return fmt.Errorf("invalid order id: %w", err)
			}
			cancelledBy, err := c.defaultUserID(byFlag)
			if err != nil {
				return err
			}
			container, err := c.Container(cmd.Context())
			if err != nil {
				return err
			}
			if err := container.CancelOrderHandler.Handle(cmd.Context(), orderCommands.CancelOrderCommand{
				OrderID:     orderID,
				Reason:      reasonFlag,
				CancelledBy: cancelledBy,
			}); err != nil {
				return err
			}
			fmt.Printf("Order %s cancelled.\n", orderID)
			return nil
		},
	}

	cmd.Flags().StringVar(&byFlag, "by", "", "id of the cancelling user")
	cmd.Flags().StringVar(&reasonFlag, "reason", "", "cancellation reason")
	return cmd
}

func (c *CLI) newOrderAssignCmd() *cobra.Command {
	var riderFlag string

	cmd := &cobra.Command{
		Use:   "assign <order-id>",
		Short: "Assign a rider to a confirmed order",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			orderID, err := uuid.Parse(args[0])
			if err != nil {
				return fmt.Errorf("invalid order id: %w", err)
			}
			riderID, err := uuid.Parse(riderFlag)
			if err != nil {
				return fmt.Errorf("invalid rider id: %w", err)
			}
			container, err := c.Container(cmd.Context())
			if err != nil {
				return err
			}
			if err := container.AssignRiderHandler.Handle(cmd.Context(), orderCommands.AssignRiderCommand{
				OrderID: orderID,
				RiderID: riderID,
			}); err != nil {
				return err
			}
			fmt.Printf("Rider %s assigned to order %s.\n", riderID, orderID)
			return nil
		},
	}

	cmd.Flags().StringVar(&riderFlag, "rider", "", "rider id")
	_ = cmd.MarkFlagRequired("rider")
	return cmd
}

func (c *CLI) newOrderStartDeliveryCmd() *cobra.Command {
	var byFlag string

	cmd := &cobra.Command{
		Use:   "start-delivery <order-id>",
		Short: "Mark an assigned order as out for delivery",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			orderID, err := uuid.Parse(args[0])
			if err != nil {
				return fmt.Errorf("invalid order id: %w", err)
			}
			startedBy, err := c.defaultUserID(byFlag)
			if err != nil {
				return err
			}
			container, err := c.Container(cmd.Context())
			if err != nil {
				return err
			}
			if err := container.StartDeliveryHandler.Handle(cmd.Context(), orderCommands.StartDeliveryCommand{
				OrderID:   orderID,
				StartedBy: startedBy,
			}); err != nil {
				return err
			}
			fmt.Printf("Order %s is out for delivery.\n", orderID)
			return nil
		},
	}

	cmd.Flags().StringVar(&byFlag, "by", "", "id of the dispatching user")
	return cmd
}

func (c *CLI) newOrderDeliverCmd() *cobra.Command {
	var (
		byFlag    string
		proofFlag string
	)

	cmd := &cobra.Command{
		Use:   "deliver <order-id>",
		Short: "Mark an order as delivered",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			orderID, err := uuid.Parse(args[0])
			if err != nil {
				return fmt.Errorf("invalid order id: %w", err)
			}
			deliveredBy, err := c.defaultUserID(byFlag)
			if err != nil {
				return err
			}
			container, err := c.Container(cmd.Context())
			if err != nil {
				return err
			}
			if err := container.MarkDeliveredHandler.Handle(cmd.Context(), orderCommands.MarkDeliveredCommand{
				OrderID:     orderID,
				DeliveredBy: deliveredBy,
				Proof:       proofFlag,
			}); err != nil {
				return err
			}
			fmt.Printf("Order %s delivered.\n", orderID)
			return nil
		},
	}

	cmd.Flags().StringVar(&byFlag, "by", "", "id of the delivering rider")
	cmd.Flags().StringVar(&proofFlag, "proof", "", "delivery proof reference")
	return cmd
}

func (c *CLI) newOrderListCmd() *cobra.Command {
	var (
		userFlag   string
		statusFlag string
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List orders for a user or by status",
		RunE: func(cmd *cobra.Command, args []string) error {
			container, err := c.Container(cmd.Context())
			if err != nil {
				return err
			}

			var summaries []orderingDomain.OrderSummary
			if statusFlag != "" {
				summaries, err = container.ListOrdersHandler.ByStatus(cmd.Context(), strings.ToUpper(statusFlag))
			} else {
				var userID uuid.UUID
				userID, err = c.defaultUserID(userFlag)
				if err != nil {
					return err
				}
				summaries, err = container.ListOrdersHandler.ByUser(cmd.Context(), userID)
			}
			if err != nil {
				return err
			}

			if len(summaries) == 0 {
				fmt.Println("No orders found.")
				return nil
			}
			for _, s := range summaries {
				fmt.Printf("%s  %-16s %8s %s  %d items  delivery %s (%s)\n",
					s.ID, s.Status, formatAmount(s.TotalAmount), s.Currency,
					s.ItemCount, s.DeliveryDate.Format("2006-01-02"), s.SlotKind)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&userFlag, "user", "", "user id")
	cmd.Flags().StringVar(&statusFlag, "status", "", "filter by status (PENDING, CONFIRMED, ...)")
	return cmd
}

func (c *CLI) newOrderShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show <order-id>",
		Short: "Show one order in full",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			orderID, err := uuid.Parse(args[0])
			if err != nil {
				return fmt.Errorf("invalid order id: %w", err)
			}
			container, err := c.Container(cmd.Context())
			if err != nil {
				return err
			}
			order, err := container.GetOrderHandler.ByID(cmd.Context(), orderID)
			if err != nil {
				return err
			}
			printOrder(order)
			return nil
		},
	}
}

func printOrder(order *orderingDomain.Order) {
	fmt.Printf("  ID:       %s\n", order.ID())
	fmt.Printf("  Status:   %s\n", order.Status())
	fmt.Printf("  User:     %s\n", order.UserID())
	fmt.Printf("  Total:    %s\n", order.Total())
	fmt.Printf("  Delivery: %s (%s)\n", order.Slot().Date().Format("2006-01-02"), order.Slot().Kind())
	if sub := order.SubscriptionID(); sub != nil {
		fmt.Printf("  Subscription: %s\n", *sub)
	}
	if rider := order.RiderID(); rider != nil {
		fmt.Printf("  Rider:    %s\n", *rider)
	}
	for _, item := range order.Items() {
		fmt.Printf("    - %s  %g %s  %s\n",
			item.Name(), item.Quantity().Value(), item.Quantity().Unit(), item.LinePrice())
	}
}

func formatAmount(cents int64) string {
	return strconv.FormatFloat(float64(cents)/100, 'f', 2, 64)
}
