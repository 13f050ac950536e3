// Package scheduler runs periodic background work next to the HTTP server
package scheduler

import (
	"context"
	"io"
	"log"
	"time"

	"github.com/amirphl/docflow/app/dto"
	businessflow "github.com/amirphl/docflow/business_flow"
)

// ReminderCounter is the part of the reminder flow the scheduler needs
type ReminderCounter interface {
	GetReminderCounts(ctx context.Context) (*dto.ReminderCountsResponse, error)
}

// ReminderScheduler periodically recomputes reminder counts and publishes them as gauges
type ReminderScheduler struct {
	reminders ReminderCounter
	logger    *log.Logger
	interval  time.Duration
	timeout   time.Duration
}

// NewReminderScheduler creates a scheduler writing its own log lines to out
func NewReminderScheduler(reminders ReminderCounter, out io.Writer, interval time.Duration) *ReminderScheduler {
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	return &ReminderScheduler{
		reminders: reminders,
		logger:    log.New(out, "scheduler ", log.LstdFlags|log.Lmicroseconds|log.LUTC),
		interval:  interval,
		timeout:   30 * time.Second,
	}
}

// Start launches the scheduler loop in a background goroutine and returns a stop function
func (s *ReminderScheduler) Start(parent context.Context) func() {
	ctx, cancel := context.WithCancel(parent)
	done := make(chan struct{})

	go func() {
		defer close(done)
		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()

		s.RunOnce(ctx)

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				s.RunOnce(ctx)
			}
		}
	}()

	return func() {
		cancel()
		<-done
	}
}

// RunOnce refreshes the reminder gauges a single time
func (s *ReminderScheduler) RunOnce(parent context.Context) {
	ctx, cancel := context.WithTimeout(parent, s.timeout)
	defer cancel()

	counts, err := s.reminders.GetReminderCounts(ctx)
	if err != nil {
		s.logger.Printf("scheduler: reminder counts failed: %v", err)
		return
	}

	businessflow.ReminderItems.WithLabelValues("overdue_tasks").Set(float64(counts.OverdueTasks))
	businessflow.ReminderItems.WithLabelValues("unpaid_invoices").Set(float64(counts.UnpaidInvoices))
	businessflow.ReminderItems.WithLabelValues("overdue_leads").Set(float64(counts.OverdueLeads))

	if counts.Total > 0 {
		s.logger.Printf("scheduler: %d reminders pending (tasks=%d invoices=%d leads=%d)",
			counts.Total, counts.OverdueTasks, counts.UnpaidInvoices, counts.OverdueLeads)
	}
}
