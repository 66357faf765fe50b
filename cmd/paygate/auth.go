package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/hongminglow/paygate/internal/client"
)

func registerCmd(a *app) *cobra.Command {
	var in client.RegisterInput
	cmd := &cobra.Command{
		Use:   "register",
		Short: "Create an account and start a session",
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := a.client.Register(cmd.Context(), in)
			if err != nil {
				return fmt.Errorf("register: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Registered %s <%s> as %s. Check your inbox to verify the email.\n", p.Name, p.Email, p.Role)
			return nil
		},
	}
	cmd.Flags().StringVarP(&in.Name, "name", "n", "", "full name")
	cmd.Flags().StringVarP(&in.Email, "email", "e", "", "email address")
	cmd.Flags().StringVarP(&in.Password, "password", "p", "", "password (min 6 characters)")
	cmd.Flags().StringVar(&in.Phone, "phone", "", "10-digit phone number")
	cmd.Flags().StringVar(&in.Role, "role", "", "user or merchant")
	_ = cmd.MarkFlagRequired("name")
	_ = cmd.MarkFlagRequired("email")
	_ = cmd.MarkFlagRequired("password")
	return cmd
}

func loginCmd(a *app) *cobra.Command {
	var email, password string
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Log in and store the session locally",
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := a.client.Login(cmd.Context(), email, password)
			if err != nil {
				return fmt.Errorf("login: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Logged in as %s <%s>\n", p.Name, p.Email)
			return nil
		},
	}
	cmd.Flags().StringVarP(&email, "email", "e", "", "email address")
	cmd.Flags().StringVarP(&password, "password", "p", "", "password")
	_ = cmd.MarkFlagRequired("email")
	_ = cmd.MarkFlagRequired("password")
	return cmd
}

func logoutCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "End the session and forget local tokens",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.client.Logout(cmd.Context()); err != nil {
				return fmt.Errorf("logout: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Logged out")
			return nil
		},
	}
}

func meCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "me",
		Short: "Show the logged-in profile",
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := a.client.Me(cmd.Context())
			if err != nil {
				return fmt.Errorf("me: %w", err)
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "ID:       %d\n", p.ID)
			fmt.Fprintf(out, "Name:     %s\n", p.Name)
			fmt.Fprintf(out, "Email:    %s (verified: %t)\n", p.Email, p.IsEmailVerified)
			fmt.Fprintf(out, "Role:     %s\n", p.Role)
			if p.HasSetupUPI {
				fmt.Fprintf(out, "UPI ID:   %s\n", p.UPIID)
			}
			return nil
		},
	}
}
