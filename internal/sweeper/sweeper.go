package sweeper

import (
	"context"
	"log"
	"strconv"
	"time"

	"laundry-bot-backend/config"
	"laundry-bot-backend/internal/line"
	"laundry-bot-backend/internal/notification"
	"laundry-bot-backend/internal/store"
	"laundry-bot-backend/internal/template"
)

// Summary reports what one sweep cycle did.
type Summary struct {
	StoresProcessed   int `json:"stores_processed"`
	NotificationsSent int `json:"notifications_sent"`
	Failures          int `json:"failures"`
}

// Service is the notification sweeper: it scans every store for expired,
// unnotified timers and transitions each exactly once to sent after the
// customer push goes out.
type Service struct {
	cfg       *config.Config
	store     store.Store
	templates *template.Resolver
	line      *line.Client
	alerts    *notification.WorkerPool // nil when staff alerts are disabled
}

// NewService creates a sweeper service.
func NewService(cfg *config.Config, s store.Store, templates *template.Resolver, lineClient *line.Client, alerts *notification.WorkerPool) *Service {
	return &Service{
		cfg:       cfg,
		store:     s,
		templates: templates,
		line:      lineClient,
		alerts:    alerts,
	}
}

// Run drives SweepOnce on the configured interval until the context is
// cancelled. External schedulers use the HTTP trigger instead.
func (s *Service) Run(ctx context.Context) {
	if !s.cfg.Sweeper.Enabled {
		log.Println("Sweeper loop is disabled. Not starting.")
		return
	}
	log.Println("Starting sweeper service...")

	s.SweepOnce(ctx, time.Now().UTC())

	timer := time.NewTimer(s.cfg.Sweeper.Interval)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Println("Sweeper service shutting down.")
			return
		case <-timer.C:
			s.SweepOnce(ctx, time.Now().UTC())
			timer.Reset(s.cfg.Sweeper.Interval)
		}
	}
}

// SweepOnce performs a single sweep cycle over all stores. One store's
// failure never aborts the loop for the others, and repeating a sweep
// with no time advance is a no-op: the pending filter re-selects only
// timers that were not successfully dispatched.
func (s *Service) SweepOnce(ctx context.Context, now time.Time) Summary {
	var summary Summary

	stores, err := s.store.ListStores(ctx)
	if err != nil {
		log.Printf("Sweep aborted: failed to list stores: %v", err)
		summary.Failures++
		return summary
	}

	for _, st := range stores {
		if st.AccessToken == "" {
			log.Printf("Access token is not set for store %s; skipping", st.ID)
			continue
		}
		summary.StoresProcessed++

		timers, err := s.store.FindExpiredPending(ctx, st.ID, now)
		if err != nil {
			log.Printf("Error finding expired timers for store %s: %v", st.ID, err)
			summary.Failures++
			continue
		}
		if len(timers) == 0 {
			continue
		}

		tmpl := s.templates.Resolve(ctx, st.ID, template.IDTimerCompletedNotify)

		for _, t := range timers {
			displayName := t.DisplayName
			if displayName == "" {
				displayName = "เครื่องของคุณ"
			}
			text := template.Render(tmpl, map[string]string{
				"display_name":     displayName,
				"duration_minutes": strconv.Itoa(t.DurationMinutes),
			})

			if err := s.line.Push(ctx, st.AccessToken, t.UserID, text); err != nil {
				log.Printf("Failed to push notification for timer %s (store %s): %v", t.ID, st.ID, err)
				summary.Failures++
				if err := s.store.RecordDispatchFailure(ctx, st.ID, t.ID, s.cfg.Sweeper.MaxAttempts); err != nil {
					log.Printf("Failed to record dispatch failure for timer %s: %v", t.ID, err)
				}
				continue
			}

			transitioned, err := s.store.MarkSent(ctx, st.ID, t.ID)
			if err != nil {
				log.Printf("Failed to mark timer %s sent: %v", t.ID, err)
				summary.Failures++
				continue
			}
			if transitioned {
				summary.NotificationsSent++
				if s.alerts != nil {
					s.alerts.Dispatch(notification.Alert{StoreID: st.ID, DisplayName: displayName})
				}
			}
		}
	}

	return summary
}
