package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/zomasamka-bot/flashpay/internal/app"
	"github.com/zomasamka-bot/flashpay/internal/core/domain"
	"github.com/zomasamka-bot/flashpay/internal/guard"
	"github.com/zomasamka-bot/flashpay/internal/service"
	"github.com/zomasamka-bot/flashpay/pkg/apperror"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
)

func createCmd(opts *rootOptions) *cobra.Command {
	var note string
	cmd := &cobra.Command{
		Use:   "create [amount]",
		Short: "Create a pending payment",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withContext(cmd, opts, func(ctx context.Context, c *app.Context) error {
				amount, err := parseAmountArg(c, args[0])
				if err != nil {
					return describe(err)
				}
				p, err := c.Payments.CreatePayment(ctx, service.CreatePaymentRequest{Amount: amount, Note: note})
				if err != nil {
					return describe(err)
				}
				return printPayment(cmd.OutOrStdout(), opts, *p)
			})
		},
	}
	cmd.Flags().StringVarP(&note, "note", "n", "", "Note shown to the customer")
	return cmd
}

func payCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "pay [payment-id]",
		Short: "Run the provider payment flow for a pending payment",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withContext(cmd, opts, func(ctx context.Context, c *app.Context) error {
				type result struct {
					p   domain.Payment
					err error
				}
				done := make(chan result, 1)
				err := c.Payments.ExecutePayment(ctx, args[0],
					func(p domain.Payment) { done <- result{p: p} },
					func(err error) { done <- result{err: err} },
				)
				if err != nil {
					return describe(err)
				}

				select {
				case r := <-done:
					if r.err != nil {
						return describe(r.err)
					}
					return printPayment(cmd.OutOrStdout(), opts, r.p)
				case <-ctx.Done():
					return ctx.Err()
				}
			})
		},
	}
}

func getCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "get [payment-id]",
		Short: "Show one payment",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withContext(cmd, opts, func(ctx context.Context, c *app.Context) error {
				p, err := c.Payments.GetPayment(ctx, args[0])
				if err != nil {
					return describe(err)
				}
				return printPayment(cmd.OutOrStdout(), opts, *p)
			})
		},
	}
}

func listCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List the merchant's payments, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withContext(cmd, opts, func(ctx context.Context, c *app.Context) error {
				payments := c.Payments.ListPayments()
				if opts.jsonOutput {
					return printJSON(cmd.OutOrStdout(), payments)
				}
				if len(payments) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "No payments.")
					return nil
				}
				tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
				fmt.Fprintln(tw, "ID\tAMOUNT\tSTATUS\tCREATED\tNOTE")
				for _, p := range payments {
					fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", p.ID, p.Amount.String(), p.Status,
						p.CreatedAt.Local().Format(time.DateTime), p.Note)
				}
				return tw.Flush()
			})
		},
	}
}

func statsCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show payment statistics",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withContext(cmd, opts, func(ctx context.Context, c *app.Context) error {
				s := c.Payments.Stats()
				if opts.jsonOutput {
					return printJSON(cmd.OutOrStdout(), s)
				}
				w := cmd.OutOrStdout()
				fmt.Fprintf(w, "Total:      %d\n", s.TotalPayments)
				fmt.Fprintf(w, "Pending:    %d (%s)\n", s.PendingPayments, s.PendingAmount.String())
				fmt.Fprintf(w, "Paid:       %d (%s)\n", s.PaidPayments, s.TotalAmount.String())
				fmt.Fprintf(w, "Failed:     %d\n", s.FailedPayments)
				fmt.Fprintf(w, "Cancelled:  %d\n", s.CancelledPayments)
				fmt.Fprintf(w, "Conversion: %.1f%%\n", s.ConversionRate)
				return nil
			})
		},
	}
}

func clearCmd(opts *rootOptions) *cobra.Command {
	var yes bool
	cmd := &cobra.Command{
		Use:   "clear",
		Short: "Delete every payment of the active merchant",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !yes {
				return errors.New("refusing to clear payments without --yes")
			}
			return withContext(cmd, opts, func(ctx context.Context, c *app.Context) error {
				n := c.Payments.ClearPayments(ctx)
				fmt.Fprintf(cmd.OutOrStdout(), "Removed %d payment(s).\n", n)
				return nil
			})
		},
	}
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "Confirm deletion")
	return cmd
}

func printPayment(w io.Writer, opts *rootOptions, p domain.Payment) error {
	if opts.jsonOutput {
		return printJSON(w, p)
	}
	fmt.Fprintf(w, "ID:      %s\n", p.ID)
	fmt.Fprintf(w, "Amount:  %s\n", p.Amount.String())
	fmt.Fprintf(w, "Status:  %s\n", p.Status)
	if p.Note != "" {
		fmt.Fprintf(w, "Note:    %s\n", p.Note)
	}
	fmt.Fprintf(w, "Created: %s\n", p.CreatedAt.Local().Format(time.DateTime))
	if p.PaidAt != nil {
		fmt.Fprintf(w, "Paid:    %s\n", p.PaidAt.Local().Format(time.DateTime))
	}
	if p.TxID != nil {
		fmt.Fprintf(w, "TxID:    %s\n", *p.TxID)
	}
	return nil
}

// describe appends the tracking id users quote to support.
// parseAmountArg reads the amount argument. Range and precision are checked
// by the payment service; a non-numeric argument is recorded in the trail the
// same way.
func parseAmountArg(c *app.Context, raw string) (decimal.Decimal, error) {
	d, err := guard.ParseAmount(raw)
	if err == nil {
		return d, nil
	}
	var appErr *apperror.AppError
	if !errors.As(err, &appErr) {
		return decimal.Zero, err
	}
	entry := c.Trail.RecordError(domain.TrailEntry{
		Operation:  domain.OperationCreatePayment,
		Outcome:    domain.OutcomeFailure,
		MerchantID: c.Store.MerchantID(),
		Details:    map[string]any{"guard": "amount", "code": appErr.Code, "reason": appErr.Message, "input": raw},
	})
	return decimal.Zero, appErr.WithTracking(entry.TrackingID)
}

func describe(err error) error {
	var appErr *apperror.AppError
	if !errors.As(err, &appErr) {
		return err
	}
	if appErr.TrackingID != "" {
		return fmt.Errorf("%s [%s] (tracking id %s)", appErr.Message, appErr.Code, appErr.TrackingID)
	}
	return fmt.Errorf("%s [%s]", appErr.Message, appErr.Code)
}
