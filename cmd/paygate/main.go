package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/hongminglow/paygate/internal/client"
)

var Version = "dev"

const defaultBaseURL = "http://localhost:8080"

// app carries what every subcommand needs. It is filled in by the root
// command's PersistentPreRunE.
type app struct {
	baseURL   string
	statePath string
	debug     bool

	log    *zap.Logger
	store  *client.FileStateStore
	client *client.Client
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	a := &app{}
	rootCmd := &cobra.Command{
		Use:           "paygate",
		Short:         "paygate - wallet and payment gateway client",
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.init()
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			_ = a.log.Sync()
		},
	}

	baseURL := os.Getenv("PAYGATE_URL")
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	rootCmd.PersistentFlags().StringVar(&a.baseURL, "base-url", baseURL, "API base URL (env PAYGATE_URL)")
	rootCmd.PersistentFlags().StringVar(&a.statePath, "state", "", "session state file (default: user config dir)")
	rootCmd.PersistentFlags().BoolVar(&a.debug, "debug", false, "log API calls to stderr")

	rootCmd.AddCommand(registerCmd(a))
	rootCmd.AddCommand(loginCmd(a))
	rootCmd.AddCommand(logoutCmd(a))
	rootCmd.AddCommand(meCmd(a))
	rootCmd.AddCommand(balanceCmd(a))
	rootCmd.AddCommand(historyCmd(a))
	rootCmd.AddCommand(transferCmd(a))
	rootCmd.AddCommand(upiCmd(a))
	rootCmd.AddCommand(otpCmd(a))
	rootCmd.AddCommand(watchCmd(a))

	return rootCmd
}

func (a *app) init() error {
	a.log = zap.NewNop()
	if a.debug {
		log, err := zap.NewDevelopment()
		if err != nil {
			return fmt.Errorf("init logger: %w", err)
		}
		a.log = log
	}
	if a.statePath == "" {
		path, err := client.DefaultStatePath()
		if err != nil {
			return err
		}
		a.statePath = path
	}
	a.store = client.NewFileStateStore(a.statePath)
	a.client = client.New(a.baseURL, a.store, client.WithLogger(a.log.Named("client")))
	return nil
}
