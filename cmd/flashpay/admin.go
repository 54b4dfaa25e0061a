package main

import (
	"context"
	"fmt"
	"io"
	"slices"
	"strconv"
	"text/tabwriter"
	"time"

	"github.com/zomasamka-bot/flashpay/internal/app"
	"github.com/zomasamka-bot/flashpay/internal/core/domain"
	"github.com/zomasamka-bot/flashpay/internal/ledger"

	"github.com/spf13/cobra"
)

func connectCmd(opts *rootOptions) *cobra.Command {
	var (
		scopes     []string
		disconnect bool
	)
	cmd := &cobra.Command{
		Use:   "connect",
		Short: "Connect the merchant wallet through the payment provider",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withContext(cmd, opts, func(ctx context.Context, c *app.Context) error {
				if disconnect {
					c.Session.Disconnect()
					fmt.Fprintln(cmd.OutOrStdout(), "Wallet disconnected.")
					return nil
				}
				m, err := c.Session.Connect(ctx, scopes)
				if err != nil {
					return describe(err)
				}
				if opts.jsonOutput {
					return printJSON(cmd.OutOrStdout(), m)
				}
				identity := ""
				if m.ExternalIdentity != nil {
					identity = *m.ExternalIdentity
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Merchant %s connected as %s.\n", m.MerchantID, identity)
				return nil
			})
		},
	}
	cmd.Flags().StringSliceVar(&scopes, "scopes", nil, "Provider scopes to request")
	cmd.Flags().BoolVar(&disconnect, "disconnect", false, "Drop the wallet session instead")
	return cmd
}

func toggleCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "toggle",
		Short: "Show or change feature switches",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withContext(cmd, opts, func(ctx context.Context, c *app.Context) error {
				features := c.Toggles.Features()
				if opts.jsonOutput {
					return printJSON(cmd.OutOrStdout(), map[string]any{"master": c.Toggles.Master(), "features": features})
				}
				tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
				fmt.Fprintf(tw, "master\t%s\t\n", onOff(c.Toggles.Master()))
				for _, f := range features {
					core := ""
					if f.Core {
						core = "core"
					}
					fmt.Fprintf(tw, "%s\t%s\t%s\n", f.Name, onOff(f.Enabled), core)
				}
				return tw.Flush()
			})
		},
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "master [on|off]",
		Short: "Switch feature management on or off",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			on, err := parseSwitch(args[0])
			if err != nil {
				return err
			}
			return withContext(cmd, opts, func(ctx context.Context, c *app.Context) error {
				c.Toggles.SetMaster(on)
				fmt.Fprintf(cmd.OutOrStdout(), "master %s\n", onOff(on))
				return nil
			})
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "feature [name] [on|off]",
		Short: "Switch one feature on or off",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			on, err := parseSwitch(args[1])
			if err != nil {
				return err
			}
			return withContext(cmd, opts, func(ctx context.Context, c *app.Context) error {
				if err := c.Toggles.SetFeature(args[0], on); err != nil {
					return describe(err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", args[0], onOff(on))
				return nil
			})
		},
	})
	return cmd
}

func watchCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "watch",
		Short: "Print ledger changes made by other invocations until interrupted",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withContext(cmd, opts, func(ctx context.Context, c *app.Context) error {
				w := cmd.OutOrStdout()
				events := make(chan ledger.Event, 64)
				unsub := c.Store.Subscribe(ledger.TopicAll, func(ev ledger.Event) {
					select {
					case events <- ev:
					default: // drop when the terminal can't keep up
					}
				})
				defer unsub()

				fmt.Fprintf(w, "Watching merchant %s (Ctrl-C to stop)\n", c.Store.MerchantID())
				for {
					select {
					case <-ctx.Done():
						return nil
					case ev := <-events:
						printEvent(w, opts, c, ev)
					}
				}
			})
		},
	}
}

func printEvent(w io.Writer, opts *rootOptions, c *app.Context, ev ledger.Event) {
	if opts.jsonOutput {
		_ = printJSON(w, map[string]any{"topics": ev.Topics, "paymentId": ev.PaymentID, "stats": c.Store.Stats()})
		return
	}
	fmt.Fprintf(w, "%s  %v", time.Now().Format(time.TimeOnly), ev.Topics)
	if p, ok := c.Store.Get(ev.PaymentID); ok && ev.PaymentID != "" {
		fmt.Fprintf(w, "  %s %s %s", p.ID, p.Amount.String(), p.Status)
	} else if slices.Contains(ev.Topics, ledger.TopicPayments) {
		s := c.Store.Stats()
		fmt.Fprintf(w, "  %d payments, %d pending, %d paid", s.TotalPayments, s.PendingPayments, s.PaidPayments)
	}
	fmt.Fprintln(w)
}

func printTrail(w io.Writer, c *app.Context) {
	section := func(title string, entries []domain.TrailEntry) {
		if len(entries) == 0 {
			return
		}
		fmt.Fprintln(w, title)
		tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
		for _, e := range entries {
			fmt.Fprintf(tw, "  %s\t%s\t%s\t%s\t%v\n", e.Timestamp.Local().Format(time.TimeOnly), e.TrackingID, e.Operation, e.Outcome, e.Details)
		}
		_ = tw.Flush()
	}
	section("Audit:", c.Trail.Audits())
	section("Errors:", c.Trail.Errors())
}

func parseSwitch(s string) (bool, error) {
	switch s {
	case "on":
		return true, nil
	case "off":
		return false, nil
	}
	on, err := strconv.ParseBool(s)
	if err != nil {
		return false, fmt.Errorf("expected on or off, got %q", s)
	}
	return on, nil
}

func onOff(on bool) string {
	if on {
		return "on"
	}
	return "off"
}
