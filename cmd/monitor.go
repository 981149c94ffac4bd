package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/voice-agent/internal/config"
	"github.com/sells-group/voice-agent/internal/monitoring"
	"github.com/sells-group/voice-agent/internal/store"
)

// newChecker wires the KPI alert checker. Notifiers that fail to start are
// logged and skipped.
func newChecker(st store.CallStore, c config.MonitoringConfig, opts ...monitoring.TelegramOption) *monitoring.Checker {
	notifiers, err := monitoring.NotifiersFromConfig(c, opts...)
	if err != nil {
		zap.L().Error("monitoring: notifier unavailable", zap.Error(err))
	}
	return monitoring.NewChecker(monitoring.NewCollector(st), monitoring.NewAlerter(c, notifiers...), c)
}

var alertsSend bool

var alertsCmd = &cobra.Command{
	Use:   "alerts",
	Short: "Evaluate KPI alert thresholds once",
	Long:  "Collects KPIs over the monitoring lookback window, prints the snapshot and triggered alerts, and delivers them with --send.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()
		if err := cfg.Validate("kpis"); err != nil {
			return err
		}

		st, err := store.New(ctx, cfg.Store)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		snap, err := monitoring.NewCollector(st).Collect(ctx, cfg.Monitoring.LookbackWindowHours)
		if err != nil {
			return err
		}

		notifiers, err := monitoring.NotifiersFromConfig(cfg.Monitoring)
		if err != nil && alertsSend {
			return err
		}
		alerter := monitoring.NewAlerter(cfg.Monitoring, notifiers...)
		alerts := alerter.Evaluate(snap)

		sent := 0
		if alertsSend {
			sent = alerter.SendAlerts(ctx, alerts)
		}
		return writeIndentedJSON(cmd.OutOrStdout(), map[string]any{
			"snapshot": snap,
			"alerts":   nonNilAlerts(alerts),
			"sent":     sent,
		})
	},
}

var notifyCmd = &cobra.Command{
	Use:   "notify <message>",
	Short: "Send a status message to the monitoring channels",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := cfg.Validate("notify"); err != nil {
			return err
		}
		notifiers, err := monitoring.NotifiersFromConfig(cfg.Monitoring)
		if err != nil {
			return err
		}

		msg := strings.TrimSpace(strings.Join(args, " "))
		if msg == "" {
			return eris.New("notify: message is empty")
		}
		alert := monitoring.Alert{
			Type:      monitoring.AlertStatus,
			Severity:  "info",
			Message:   msg,
			Timestamp: time.Now().UTC(),
		}
		if monitoring.NewAlerter(cfg.Monitoring, notifiers...).SendAlerts(cmd.Context(), []monitoring.Alert{alert}) == 0 {
			return eris.New("notify: no channel accepted the message")
		}
		_, err = fmt.Fprintln(cmd.OutOrStdout(), "sent")
		return err
	},
}

func nonNilAlerts(alerts []monitoring.Alert) []monitoring.Alert {
	if alerts == nil {
		return []monitoring.Alert{}
	}
	return alerts
}

func init() {
	alertsCmd.Flags().BoolVar(&alertsSend, "send", false, "deliver triggered alerts to the configured channels")
	rootCmd.AddCommand(alertsCmd, notifyCmd)
}
