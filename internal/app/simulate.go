package app

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"

	"fraud-monitor/internal/alerting"
	"fraud-monitor/internal/record"
)

// SimulateAlert pushes a synthetic high-risk alert through the configured channels.
func (a *App) SimulateAlert(ctx context.Context, amount decimal.Decimal, score float64) error {
	if !a.Config.Alerting.Enabled {
		return errors.New("alerting is not enabled")
	}

	notifier := a.newNotifier()
	if notifier == nil {
		return errors.New("no alert channel configured")
	}

	rec := record.FraudRecord{
		Amount:    amount,
		Score:     score,
		Risk:      record.RiskHigh,
		CreatedAt: time.Now().UTC().Format("2006-01-02T15:04:05"),
		IPAddress: defaultCheckIP,
		Email:     defaultCheckEmail,
	}
	note := alerting.NewNotification(rec, 1, 1, time.Now(), a.Config.Alerting.Channels)
	return notifier.Notify(ctx, note)
}
