package main

import (
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/hongminglow/paygate/internal/client"
)

func balanceCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "balance",
		Short: "Show the wallet balance",
		RunE: func(cmd *cobra.Command, args []string) error {
			bal, err := a.client.Balance(cmd.Context())
			if err != nil {
				return fmt.Errorf("balance: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Balance: ₹%s\n", bal.StringFixed(2))
			return nil
		},
	}
}

func historyCmd(a *app) *cobra.Command {
	var q client.HistoryQuery
	cmd := &cobra.Command{
		Use:   "history",
		Short: "List wallet transactions, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			page, err := a.client.History(cmd.Context(), q)
			if err != nil {
				return fmt.Errorf("history: %w", err)
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tTYPE\tAMOUNT\tSTATUS\tDATE\tDESCRIPTION")
			for _, tx := range page.Transactions {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\n", tx.TransactionID, tx.Type, tx.Amount.StringFixed(2),
					tx.Status, tx.CreatedAt.Local().Format(time.DateTime), tx.Description)
			}
			if err := tw.Flush(); err != nil {
				return err
			}
			p := page.Pagination
			fmt.Fprintf(cmd.OutOrStdout(), "page %d of %d (%d total)\n", p.Page, max(p.Pages, 1), p.Total)
			return nil
		},
	}
	cmd.Flags().IntVar(&q.Page, "page", 1, "page number")
	cmd.Flags().IntVarP(&q.Limit, "limit", "l", 10, "rows per page (max 100)")
	cmd.Flags().StringVarP(&q.Type, "type", "t", "", "payment, transfer, refund, deposit or withdrawal")
	cmd.Flags().StringVar(&q.Status, "status", "", "pending, completed or failed")
	cmd.Flags().StringVar(&q.StartDate, "from", "", "start date (YYYY-MM-DD)")
	cmd.Flags().StringVar(&q.EndDate, "to", "", "end date (YYYY-MM-DD, inclusive)")
	return cmd
}

func transferCmd(a *app) *cobra.Command {
	var description string
	cmd := &cobra.Command{
		Use:   "transfer <receiver-email> <amount>",
		Short: "Send money to another user by email",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			amount, err := decimal.NewFromString(args[1])
			if err != nil {
				return fmt.Errorf("amount %q: %w", args[1], err)
			}
			res, err := a.client.Transfer(cmd.Context(), args[0], amount, description)
			if err != nil {
				return fmt.Errorf("transfer: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Sent ₹%s to %s (%s)\n", res.Amount.StringFixed(2), res.Receiver.Email, res.TransactionID)
			return nil
		},
	}
	cmd.Flags().StringVarP(&description, "description", "d", "", "note shown in history (max 200 characters)")
	return cmd
}
