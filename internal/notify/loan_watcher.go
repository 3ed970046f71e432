package notify

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/neonflash/neonflash/internal/domain"
)

// LoanWatcher forwards every recorded loan outcome to the notifier.
type LoanWatcher struct {
	notifier *Notifier
	store    domain.LoanStore
	logger   *slog.Logger
}

func NewLoanWatcher(notifier *Notifier, store domain.LoanStore, logger *slog.Logger) *LoanWatcher {
	return &LoanWatcher{
		notifier: notifier,
		store:    store,
		logger:   logger.With(slog.String("component", "loan_watcher")),
	}
}

// Start subscribes to the loan log. The returned function stops the watcher.
func (w *LoanWatcher) Start(ctx context.Context) (stop func()) {
	return w.store.Subscribe(func(rec domain.LoanRecord) {
		event, title := EventLoanSuccess, "Flash loan succeeded"
		if rec.Status == domain.LoanFailed {
			event, title = EventLoanFailed, "Flash loan failed"
		}

		message := fmt.Sprintf("strategy %s, amount %s base units", rec.Strategy, rec.Amount)
		if rec.Status == domain.LoanSuccess {
			message += fmt.Sprintf(", profit %.6f", rec.Profit)
		} else if rec.Error != "" {
			message += ", " + rec.Error
		}
		if rec.TxHash != "" {
			message += ", tx " + rec.TxHash
		}

		if err := w.notifier.Notify(ctx, event, title, message); err != nil {
			w.logger.Warn("loan notification failed", "error", err)
		}
	})
}
