package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func otpCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "otp",
		Short: "Request and check one-time codes",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "send <email>",
		Short: "Email a one-time code (verified accounts only)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.client.SendOTP(cmd.Context(), args[0]); err != nil {
				return fmt.Errorf("otp send: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "OTP sent to %s\n", args[0])
			return nil
		},
	}, &cobra.Command{
		Use:   "verify <email> <code>",
		Short: "Redeem a one-time code",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.client.VerifyOTP(cmd.Context(), args[0], args[1]); err != nil {
				return fmt.Errorf("otp verify: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), "OTP verified")
			return nil
		},
	})
	return cmd
}
