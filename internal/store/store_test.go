package store

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"laundry-bot-backend/internal/db"
	"laundry-bot-backend/internal/model"
)

// newTestStore opens an isolated in-memory SQLite database, migrated
// with the real DDL (including the pending-timer partial unique index).
func newTestStore(t *testing.T) (Store, *gorm.DB) {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	gormDB, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)

	sqlDB, err := gormDB.DB()
	require.NoError(t, err)
	// A single connection serializes transactions the way a production
	// database's conditional write would.
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })

	require.NoError(t, db.Migrate(gormDB))
	return NewGormStore(gormDB), gormDB
}

func seedStore(t *testing.T, s Store) *model.Store {
	t.Helper()
	st := &model.Store{
		ID:            uuid.NewString(),
		Name:          "Test Laundry",
		ChannelSecret: "secret",
		AccessToken:   "token",
		AdminToken:    uuid.NewString(),
	}
	machines := []model.MachineConfig{
		{MachineType: model.MachineTypeWasher, MachineID: 1, DurationMinutes: 30, IsActive: true, DisplayName: "Washer 1"},
		{MachineType: model.MachineTypeWasher, MachineID: 2, DurationMinutes: 30, IsActive: false, DisplayName: "Washer 2"},
		{MachineType: model.MachineTypeDryer, MachineID: 1, DurationMinutes: 40, IsActive: true, DisplayName: "Dryer 1"},
	}
	require.NoError(t, s.CreateStore(context.Background(), st, machines, nil))
	return st
}

func newPendingTimer(st *model.Store, machineType model.MachineType, machineID int, userID string, endTime time.Time) *model.Timer {
	return &model.Timer{
		ID:              uuid.NewString(),
		StoreID:         st.ID,
		UserID:          userID,
		MachineID:       machineID,
		MachineType:     machineType,
		DisplayName:     "Washer 1",
		DurationMinutes: 30,
		EndTime:         endTime,
		Status:          model.TimerStatusPending,
		CreatedAt:       time.Now().UTC(),
	}
}

func TestMachineRegistry(t *testing.T) {
	s, _ := newTestStore(t)
	st := seedStore(t, s)
	ctx := context.Background()

	t.Run("get returns inactive machines too", func(t *testing.T) {
		m, err := s.GetMachine(ctx, st.ID, model.MachineTypeWasher, 2)
		require.NoError(t, err)
		assert.False(t, m.IsActive)
		assert.Equal(t, "Washer 2", m.DisplayName)
	})

	t.Run("get unknown machine", func(t *testing.T) {
		_, err := s.GetMachine(ctx, st.ID, model.MachineTypeWasher, 99)
		assert.ErrorIs(t, err, ErrMachineNotFound)
	})

	t.Run("active listing filters and orders by machine id", func(t *testing.T) {
		machines, err := s.ListActiveMachines(ctx, st.ID, model.MachineTypeWasher)
		require.NoError(t, err)
		require.Len(t, machines, 1)
		assert.Equal(t, 1, machines[0].MachineID)
	})

	t.Run("active listing is scoped per type", func(t *testing.T) {
		machines, err := s.ListActiveMachines(ctx, st.ID, model.MachineTypeDryer)
		require.NoError(t, err)
		require.Len(t, machines, 1)
		assert.Equal(t, model.MachineTypeDryer, machines[0].MachineType)
	})
}

func TestCreatePendingTimer_Exclusivity(t *testing.T) {
	s, _ := newTestStore(t)
	st := seedStore(t, s)
	ctx := context.Background()
	endTime := time.Now().UTC().Add(30 * time.Minute)

	require.NoError(t, s.CreatePendingTimer(ctx, newPendingTimer(st, model.MachineTypeWasher, 1, "u1", endTime)))

	// Second booking for the same machine must lose.
	err := s.CreatePendingTimer(ctx, newPendingTimer(st, model.MachineTypeWasher, 1, "u2", endTime))
	assert.ErrorIs(t, err, ErrMachineBusy)

	// Same machine id on the other type is a different machine.
	require.NoError(t, s.CreatePendingTimer(ctx, newPendingTimer(st, model.MachineTypeDryer, 1, "u2", endTime)))

	var count int64
	s.DB().Model(&model.Timer{}).
		Where("store_id = ? AND machine_type = ? AND machine_id = ? AND status = ?",
			st.ID, model.MachineTypeWasher, 1, model.TimerStatusPending).
		Count(&count)
	assert.Equal(t, int64(1), count)
}

func TestCreatePendingTimer_ConcurrentAttempts(t *testing.T) {
	s, _ := newTestStore(t)
	st := seedStore(t, s)
	endTime := time.Now().UTC().Add(30 * time.Minute)

	const attempts = 16
	results := make(chan error, attempts)

	var wg sync.WaitGroup
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			timer := newPendingTimer(st, model.MachineTypeWasher, 1, fmt.Sprintf("user-%d", n), endTime)
			results <- s.CreatePendingTimer(context.Background(), timer)
		}(i)
	}
	wg.Wait()
	close(results)

	var successes, busy int
	for err := range results {
		switch {
		case err == nil:
			successes++
		case assert.ErrorIs(t, err, ErrMachineBusy):
			busy++
		}
	}
	assert.Equal(t, 1, successes, "exactly one concurrent reservation must win")
	assert.Equal(t, attempts-1, busy)

	var count int64
	s.DB().Model(&model.Timer{}).
		Where("store_id = ? AND status = ?", st.ID, model.TimerStatusPending).
		Count(&count)
	assert.Equal(t, int64(1), count)
}

func TestCancelTimerFreesMachine(t *testing.T) {
	s, _ := newTestStore(t)
	st := seedStore(t, s)
	ctx := context.Background()
	endTime := time.Now().UTC().Add(30 * time.Minute)

	timer := newPendingTimer(st, model.MachineTypeWasher, 1, "u1", endTime)
	require.NoError(t, s.CreatePendingTimer(ctx, timer))

	err := s.CreatePendingTimer(ctx, newPendingTimer(st, model.MachineTypeWasher, 1, "u2", endTime))
	require.ErrorIs(t, err, ErrMachineBusy)

	require.NoError(t, s.CancelTimer(ctx, st.ID, timer.ID))

	var cancelled model.Timer
	require.NoError(t, s.DB().First(&cancelled, "id = ?", timer.ID).Error)
	assert.Equal(t, model.TimerStatusCancelled, cancelled.Status)
	assert.NotNil(t, cancelled.CancelledAt)

	// The machine is free again: only pending timers block a reservation.
	assert.NoError(t, s.CreatePendingTimer(ctx, newPendingTimer(st, model.MachineTypeWasher, 1, "u2", endTime)))
}

func TestCancelTimer_NotFound(t *testing.T) {
	s, _ := newTestStore(t)
	st := seedStore(t, s)

	err := s.CancelTimer(context.Background(), st.ID, "no-such-timer")
	assert.ErrorIs(t, err, ErrTimerNotFound)
}

func TestFindExpiredPendingAndMarkSent(t *testing.T) {
	s, _ := newTestStore(t)
	st := seedStore(t, s)
	ctx := context.Background()
	now := time.Now().UTC()

	expired := newPendingTimer(st, model.MachineTypeWasher, 1, "u1", now.Add(-time.Minute))
	running := newPendingTimer(st, model.MachineTypeDryer, 1, "u2", now.Add(30*time.Minute))
	require.NoError(t, s.CreatePendingTimer(ctx, expired))
	require.NoError(t, s.CreatePendingTimer(ctx, running))

	matches, err := s.FindExpiredPending(ctx, st.ID, now)
	require.NoError(t, err)
	require.Len(t, matches, 1)
	assert.Equal(t, expired.ID, matches[0].ID)

	transitioned, err := s.MarkSent(ctx, st.ID, expired.ID)
	require.NoError(t, err)
	assert.True(t, transitioned)

	// Sent timers are excluded from subsequent scans, and a second
	// MarkSent loses against the status guard.
	matches, err = s.FindExpiredPending(ctx, st.ID, now)
	require.NoError(t, err)
	assert.Empty(t, matches)

	transitioned, err = s.MarkSent(ctx, st.ID, expired.ID)
	require.NoError(t, err)
	assert.False(t, transitioned, "a terminal timer must not transition twice")
}

func TestRecordDispatchFailure_CapsAttempts(t *testing.T) {
	s, _ := newTestStore(t)
	st := seedStore(t, s)
	ctx := context.Background()

	timer := newPendingTimer(st, model.MachineTypeWasher, 1, "u1", time.Now().UTC().Add(-time.Minute))
	require.NoError(t, s.CreatePendingTimer(ctx, timer))

	const maxAttempts = 3
	for i := 1; i < maxAttempts; i++ {
		require.NoError(t, s.RecordDispatchFailure(ctx, st.ID, timer.ID, maxAttempts))

		var current model.Timer
		require.NoError(t, s.DB().First(&current, "id = ?", timer.ID).Error)
		assert.Equal(t, i, current.Attempts)
		assert.Equal(t, model.TimerStatusPending, current.Status)
	}

	// The attempt that reaches the cap dead-letters the timer.
	require.NoError(t, s.RecordDispatchFailure(ctx, st.ID, timer.ID, maxAttempts))

	var final model.Timer
	require.NoError(t, s.DB().First(&final, "id = ?", timer.ID).Error)
	assert.Equal(t, model.TimerStatusCancelled, final.Status)
	assert.Equal(t, maxAttempts, final.Attempts)
	assert.NotNil(t, final.CancelledAt)

	// Recording against a terminal timer is a no-op.
	assert.NoError(t, s.RecordDispatchFailure(ctx, st.ID, timer.ID, maxAttempts))
}

func TestTemplates(t *testing.T) {
	s, _ := newTestStore(t)
	st := seedStore(t, s)
	ctx := context.Background()

	require.NoError(t, s.SaveTemplate(ctx, &model.MessageTemplate{
		StoreID:    st.ID,
		TemplateID: "machine_busy",
		Text:       "busy: {display_name}",
	}))

	set, err := s.GetTemplates(ctx, st.ID)
	require.NoError(t, err)
	assert.Equal(t, "busy: {display_name}", set["machine_busy"])

	// Save is an upsert on (store, template id).
	require.NoError(t, s.SaveTemplate(ctx, &model.MessageTemplate{
		StoreID:    st.ID,
		TemplateID: "machine_busy",
		Text:       "edited",
	}))
	set, err = s.GetTemplates(ctx, st.ID)
	require.NoError(t, err)
	assert.Equal(t, "edited", set["machine_busy"])
}
