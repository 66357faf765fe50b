package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
)

func upiCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "upi",
		Short: "Manage UPI and pay by UPI ID",
	}
	cmd.AddCommand(upiSetupCmd(a), upiDetailsCmd(a), upiPayCmd(a))
	return cmd
}

func upiSetupCmd(a *app) *cobra.Command {
	var handle, pin string
	cmd := &cobra.Command{
		Use:   "setup",
		Short: "Choose a UPI ID and 4-digit PIN",
		RunE: func(cmd *cobra.Command, args []string) error {
			d, err := a.client.UPISetup(cmd.Context(), handle, pin)
			if err != nil {
				return fmt.Errorf("upi setup: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "UPI ID: %s\n", d.UPIID)
			return nil
		},
	}
	cmd.Flags().StringVar(&handle, "upi-id", "", "custom UPI ID such as name@bank (generated when empty)")
	cmd.Flags().StringVar(&pin, "pin", "", "4-digit PIN")
	_ = cmd.MarkFlagRequired("pin")
	return cmd
}

func upiDetailsCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "details",
		Short: "Show the UPI ID",
		RunE: func(cmd *cobra.Command, args []string) error {
			d, err := a.client.UPIDetails(cmd.Context())
			if err != nil {
				return fmt.Errorf("upi details: %w", err)
			}
			if !d.HasSetupUPI {
				fmt.Fprintln(cmd.OutOrStdout(), "UPI is not set up. Run: paygate upi setup --pin 1234")
				return nil
			}
			fmt.Fprintf(cmd.OutOrStdout(), "UPI ID: %s\n", d.UPIID)
			return nil
		},
	}
}

func upiPayCmd(a *app) *cobra.Command {
	var pin, code, description string
	cmd := &cobra.Command{
		Use:   "pay <receiver-upi-id> <amount>",
		Short: "Pay another user by UPI ID",
		Long: "Pay another user by UPI ID. Without --otp a one-time code is emailed\n" +
			"to you and read from stdin before the payment is sent.",
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			amount, err := decimal.NewFromString(args[1])
			if err != nil {
				return fmt.Errorf("amount %q: %w", args[1], err)
			}
			if code == "" {
				email, err := a.client.RequestPaymentOTP(cmd.Context())
				if err != nil {
					return fmt.Errorf("send otp: %w", err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "OTP sent to %s. Enter code: ", email)
				if code, err = readLine(cmd.InOrStdin()); err != nil {
					return fmt.Errorf("read otp: %w", err)
				}
			}
			res, err := a.client.UPIPay(cmd.Context(), args[0], amount, pin, code, description)
			if err != nil {
				return fmt.Errorf("upi pay: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Paid ₹%s to %s (%s)\n", res.Amount.StringFixed(2), args[0], res.TransactionID)
			return nil
		},
	}
	cmd.Flags().StringVar(&pin, "pin", "", "4-digit UPI PIN")
	cmd.Flags().StringVar(&code, "otp", "", "one-time code from 'paygate otp send' (prompted when empty)")
	cmd.Flags().StringVarP(&description, "description", "d", "", "note shown in history")
	_ = cmd.MarkFlagRequired("pin")
	return cmd
}

func readLine(r io.Reader) (string, error) {
	line, err := bufio.NewReader(r).ReadString('\n')
	if err != nil && !(errors.Is(err, io.EOF) && line != "") {
		return "", err
	}
	return strings.TrimSpace(line), nil
}
