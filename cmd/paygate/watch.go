package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/hongminglow/paygate/internal/client"
	"github.com/hongminglow/paygate/internal/clock"
	"github.com/hongminglow/paygate/internal/session"
)

var errSessionExpired = errors.New("session expired, please log in again")

func watchCmd(a *app) *cobra.Command {
	var cfg session.Config
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Keep the session alive while you are active",
		Long: `Runs the session lifecycle: tokens are refreshed ahead of expiry, a
countdown is printed before the deadline and the session is logged out when it
passes. Every line read from stdin counts as activity.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := a.store.Load()
			if err != nil {
				return err
			}
			if !st.LoggedIn() {
				return client.ErrNotLoggedIn
			}
			return a.watch(cmd, cfg, st.Deadline())
		},
	}
	cmd.Flags().DurationVar(&cfg.Timeout, "timeout", session.DefaultTimeout, "inactivity timeout")
	cmd.Flags().DurationVar(&cfg.RefreshInterval, "refresh-interval", session.DefaultRefreshInterval, "token refresh interval")
	cmd.Flags().DurationVar(&cfg.WarningThreshold, "warning", session.DefaultWarningThreshold, "warn this long before expiry")
	return cmd
}

func (a *app) watch(cmd *cobra.Command, cfg session.Config, deadline time.Time) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	out := cmd.OutOrStdout()
	expired := make(chan struct{})
	var once sync.Once

	mgr := session.NewManager(cfg, clock.RealClock{}, a.store, session.Hooks{
		Refresh: a.client.Refresh,
		Logout: func() {
			if err := a.client.Logout(context.Background()); err != nil {
				a.log.Warn("logout after expiry", zap.Error(err))
			}
			once.Do(func() { close(expired) })
		},
		StateChanged: func(s session.State) {
			fmt.Fprintf(out, "[%s] session %s\n", time.Now().Format(time.TimeOnly), s)
		},
		Countdown: func(remaining time.Duration) {
			fmt.Fprintf(out, "session expires in %s, press enter to stay signed in\n", remaining.Round(time.Second))
		},
	}, a.log.Named("session"))
	mgr.Start(deadline)

	go func() {
		scanner := bufio.NewScanner(cmd.InOrStdin())
		for scanner.Scan() {
			mgr.Touch()
		}
	}()

	select {
	case <-expired:
		return errSessionExpired
	case <-ctx.Done():
		fmt.Fprintf(out, "stopped watching, session valid until %s\n", mgr.Deadline().Local().Format(time.DateTime))
		return nil
	}
}
