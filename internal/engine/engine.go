package engine

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strconv"
	"time"

	"github.com/google/uuid"

	"laundry-bot-backend/internal/line"
	"laundry-bot-backend/internal/model"
	"laundry-bot-backend/internal/store"
	"laundry-bot-backend/internal/template"
)

// Service is the reservation engine. It validates reservation requests
// against the machine registry and the timer store, creates timers with
// the exclusivity guarantee, and answers every inbound event through the
// chat transport.
type Service struct {
	store     store.Store
	templates *template.Resolver
	line      *line.Client
	now       func() time.Time
}

// NewService creates a reservation engine.
func NewService(s store.Store, templates *template.Resolver, lineClient *line.Client) *Service {
	return &Service{
		store:     s,
		templates: templates,
		line:      lineClient,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// Reserve runs the reservation flow for one machine selection. All
// validation failures are recovered locally into a templated reply; only
// unexpected persistence errors are returned to the caller.
func (s *Service) Reserve(ctx context.Context, st *model.Store, machineType model.MachineType, machineID int, userID, replyToken string) error {
	machine, err := s.store.GetMachine(ctx, st.ID, machineType, machineID)
	if errors.Is(err, store.ErrMachineNotFound) {
		s.reply(ctx, st, replyToken, s.templates.Resolve(ctx, st.ID, template.IDMachineNotFound), nil)
		return nil
	}
	if err != nil {
		s.reply(ctx, st, replyToken, s.templates.Resolve(ctx, st.ID, template.IDGenericError), nil)
		return fmt.Errorf("machine lookup failed: %w", err)
	}

	if !machine.IsActive {
		text := template.Render(s.templates.Resolve(ctx, st.ID, template.IDMachineInactive),
			map[string]string{"display_name": machine.DisplayName})
		s.reply(ctx, st, replyToken, text, nil)
		return nil
	}

	now := s.now()
	timer := &model.Timer{
		ID:              uuid.NewString(),
		StoreID:         st.ID,
		UserID:          userID,
		MachineID:       machine.MachineID,
		MachineType:     machine.MachineType,
		DisplayName:     machine.DisplayName,
		DurationMinutes: machine.DurationMinutes,
		EndTime:         now.Add(time.Duration(machine.DurationMinutes) * time.Minute),
		Status:          model.TimerStatusPending,
		CreatedAt:       now,
	}

	err = s.store.CreatePendingTimer(ctx, timer)
	if errors.Is(err, store.ErrMachineBusy) {
		text := template.Render(s.templates.Resolve(ctx, st.ID, template.IDMachineBusy),
			map[string]string{"display_name": machine.DisplayName})
		s.reply(ctx, st, replyToken, text, nil)
		return nil
	}
	if err != nil {
		s.reply(ctx, st, replyToken, s.templates.Resolve(ctx, st.ID, template.IDGenericError), nil)
		return fmt.Errorf("timer creation failed: %w", err)
	}

	text := template.Render(s.templates.Resolve(ctx, st.ID, template.IDStartTimerConfirm),
		map[string]string{
			"duration":     strconv.Itoa(machine.DurationMinutes),
			"display_name": machine.DisplayName,
		})
	s.reply(ctx, st, replyToken, text, nil)
	return nil
}

// reply is best effort: a failed reply send is logged, never retried.
// The user can re-send their message.
func (s *Service) reply(ctx context.Context, st *model.Store, replyToken, text string, items []line.QuickReplyItem) {
	if replyToken == "" {
		return
	}
	if err := s.line.Reply(ctx, st.AccessToken, replyToken, text, items); err != nil {
		log.Printf("Failed to send reply for store %s: %v", st.ID, err)
	}
}
