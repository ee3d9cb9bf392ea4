package store

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"gorm.io/gorm"

	"laundry-bot-backend/internal/model"
)

// Store defines the interface for all database operations.
type Store interface {
	DB() *gorm.DB

	// Store directory
	GetStore(ctx context.Context, storeID string) (*model.Store, error)
	ListStores(ctx context.Context) ([]model.Store, error)
	CreateStore(ctx context.Context, st *model.Store, machines []model.MachineConfig, templates []model.MessageTemplate) error

	// Machine registry
	GetMachine(ctx context.Context, storeID string, machineType model.MachineType, machineID int) (*model.MachineConfig, error)
	ListMachines(ctx context.Context, storeID string) ([]model.MachineConfig, error)
	ListActiveMachines(ctx context.Context, storeID string, machineType model.MachineType) ([]model.MachineConfig, error)
	SaveMachine(ctx context.Context, m *model.MachineConfig) error

	// Timer store
	CreatePendingTimer(ctx context.Context, t *model.Timer) error
	ListPendingTimers(ctx context.Context, storeID string) ([]model.Timer, error)
	FindExpiredPending(ctx context.Context, storeID string, now time.Time) ([]model.Timer, error)
	MarkSent(ctx context.Context, storeID, timerID string) (bool, error)
	RecordDispatchFailure(ctx context.Context, storeID, timerID string, maxAttempts int) error
	CancelTimer(ctx context.Context, storeID, timerID string) error

	// Message templates
	GetTemplates(ctx context.Context, storeID string) (map[string]string, error)
	SaveTemplate(ctx context.Context, t *model.MessageTemplate) error
}

// gormStore implements the Store interface using GORM.
type gormStore struct {
	db *gorm.DB
}

// NewGormStore creates a new GORM-backed store.
func NewGormStore(db *gorm.DB) Store {
	return &gormStore{db: db}
}

func (s *gormStore) DB() *gorm.DB {
	return s.db
}

// --- Store directory ---

func (s *gormStore) GetStore(ctx context.Context, storeID string) (*model.Store, error) {
	var st model.Store
	err := s.db.WithContext(ctx).First(&st, "id = ?", storeID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrStoreNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to fetch store %s: %w", storeID, err)
	}
	return &st, nil
}

func (s *gormStore) ListStores(ctx context.Context) ([]model.Store, error) {
	var stores []model.Store
	if err := s.db.WithContext(ctx).Find(&stores).Error; err != nil {
		return nil, fmt.Errorf("failed to list stores: %w", err)
	}
	return stores, nil
}

// CreateStore inserts a store together with its seeded machine configs and
// message templates in one transaction, so onboarding never leaves a store
// half-provisioned.
func (s *gormStore) CreateStore(ctx context.Context, st *model.Store, machines []model.MachineConfig, templates []model.MessageTemplate) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(st).Error; err != nil {
			return fmt.Errorf("failed to create store: %w", err)
		}
		for i := range machines {
			machines[i].StoreID = st.ID
		}
		if len(machines) > 0 {
			if err := tx.Create(&machines).Error; err != nil {
				return fmt.Errorf("failed to seed machine configs: %w", err)
			}
		}
		for i := range templates {
			templates[i].StoreID = st.ID
		}
		if len(templates) > 0 {
			if err := tx.Create(&templates).Error; err != nil {
				return fmt.Errorf("failed to seed message templates: %w", err)
			}
		}
		return nil
	})
}

// --- Machine registry ---

func (s *gormStore) GetMachine(ctx context.Context, storeID string, machineType model.MachineType, machineID int) (*model.MachineConfig, error) {
	var m model.MachineConfig
	err := s.db.WithContext(ctx).
		Where("store_id = ? AND machine_type = ? AND machine_id = ?", storeID, machineType, machineID).
		First(&m).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrMachineNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to fetch machine %s/%d: %w", machineType, machineID, err)
	}
	return &m, nil
}

func (s *gormStore) ListMachines(ctx context.Context, storeID string) ([]model.MachineConfig, error) {
	var machines []model.MachineConfig
	err := s.db.WithContext(ctx).
		Where("store_id = ?", storeID).
		Order("machine_type, machine_id ASC").
		Find(&machines).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list machines for store %s: %w", storeID, err)
	}
	return machines, nil
}

func (s *gormStore) ListActiveMachines(ctx context.Context, storeID string, machineType model.MachineType) ([]model.MachineConfig, error) {
	var machines []model.MachineConfig
	err := s.db.WithContext(ctx).
		Where("store_id = ? AND machine_type = ? AND is_active = ?", storeID, machineType, true).
		Order("machine_id ASC").
		Find(&machines).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list active machines for store %s: %w", storeID, err)
	}
	return machines, nil
}

func (s *gormStore) SaveMachine(ctx context.Context, m *model.MachineConfig) error {
	if err := s.db.WithContext(ctx).Save(m).Error; err != nil {
		return fmt.Errorf("failed to save machine config: %w", err)
	}
	return nil
}

// --- Timer store ---

// CreatePendingTimer inserts a new pending timer, guaranteeing that no
// other pending timer exists for the same machine. The check-and-insert
// runs inside one transaction; the partial unique index on pending timers
// is the backstop for attempts that race past the re-read.
func (s *gormStore) CreatePendingTimer(ctx context.Context, t *model.Timer) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var count int64
		err := tx.Model(&model.Timer{}).
			Where("store_id = ? AND machine_type = ? AND machine_id = ? AND status = ?",
				t.StoreID, t.MachineType, t.MachineID, model.TimerStatusPending).
			Count(&count).Error
		if err != nil {
			return fmt.Errorf("failed to check pending timers: %w", err)
		}
		if count > 0 {
			return ErrMachineBusy
		}

		if err := tx.Create(t).Error; err != nil {
			if isUniqueViolation(err) {
				return ErrMachineBusy
			}
			return fmt.Errorf("failed to create timer: %w", err)
		}
		return nil
	})
}

func (s *gormStore) ListPendingTimers(ctx context.Context, storeID string) ([]model.Timer, error) {
	var timers []model.Timer
	err := s.db.WithContext(ctx).
		Where("store_id = ? AND status = ?", storeID, model.TimerStatusPending).
		Order("end_time ASC").
		Find(&timers).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list pending timers for store %s: %w", storeID, err)
	}
	return timers, nil
}

func (s *gormStore) FindExpiredPending(ctx context.Context, storeID string, now time.Time) ([]model.Timer, error) {
	var timers []model.Timer
	err := s.db.WithContext(ctx).
		Where("store_id = ? AND status = ? AND end_time <= ?", storeID, model.TimerStatusPending, now).
		Find(&timers).Error
	if err != nil {
		return nil, fmt.Errorf("failed to find expired timers for store %s: %w", storeID, err)
	}
	return timers, nil
}

// MarkSent transitions a timer from pending to sent. The status guard in
// the WHERE clause makes overlapping sweeps safe: only one of them sees
// RowsAffected > 0 and goes on to dispatch staff alerts.
func (s *gormStore) MarkSent(ctx context.Context, storeID, timerID string) (bool, error) {
	res := s.db.WithContext(ctx).Model(&model.Timer{}).
		Where("store_id = ? AND id = ? AND status = ?", storeID, timerID, model.TimerStatusPending).
		Update("status", model.TimerStatusSent)
	if res.Error != nil {
		return false, fmt.Errorf("failed to mark timer %s sent: %w", timerID, res.Error)
	}
	return res.RowsAffected > 0, nil
}

// RecordDispatchFailure increments the attempt counter of a pending
// timer. Once the counter reaches maxAttempts the timer is cancelled so
// the sweeper stops retrying and the machine is freed.
func (s *gormStore) RecordDispatchFailure(ctx context.Context, storeID, timerID string, maxAttempts int) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var t model.Timer
		err := tx.Where("store_id = ? AND id = ? AND status = ?", storeID, timerID, model.TimerStatusPending).
			First(&t).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil // already terminal, nothing to record
		}
		if err != nil {
			return fmt.Errorf("failed to fetch timer %s: %w", timerID, err)
		}

		t.Attempts++
		updates := map[string]any{"attempts": t.Attempts}
		if t.Attempts >= maxAttempts {
			now := time.Now().UTC()
			updates["status"] = model.TimerStatusCancelled
			updates["cancelled_at"] = &now
			log.Printf("timer %s for store %s exceeded %d dispatch attempts; cancelling", timerID, storeID, maxAttempts)
		}
		if err := tx.Model(&model.Timer{}).
			Where("store_id = ? AND id = ?", storeID, timerID).
			Updates(updates).Error; err != nil {
			return fmt.Errorf("failed to record dispatch failure for timer %s: %w", timerID, err)
		}
		return nil
	})
}

// CancelTimer sets a timer to cancelled regardless of its current status.
// Cancelling frees the machine because the reservation check only looks
// at pending timers.
func (s *gormStore) CancelTimer(ctx context.Context, storeID, timerID string) error {
	now := time.Now().UTC()
	res := s.db.WithContext(ctx).Model(&model.Timer{}).
		Where("store_id = ? AND id = ?", storeID, timerID).
		Updates(map[string]any{
			"status":       model.TimerStatusCancelled,
			"cancelled_at": &now,
		})
	if res.Error != nil {
		return fmt.Errorf("failed to cancel timer %s: %w", timerID, res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrTimerNotFound
	}
	return nil
}

// --- Message templates ---

func (s *gormStore) GetTemplates(ctx context.Context, storeID string) (map[string]string, error) {
	var templates []model.MessageTemplate
	if err := s.db.WithContext(ctx).Where("store_id = ?", storeID).Find(&templates).Error; err != nil {
		return nil, fmt.Errorf("failed to fetch templates for store %s: %w", storeID, err)
	}
	set := make(map[string]string, len(templates))
	for _, t := range templates {
		set[t.TemplateID] = t.Text
	}
	return set, nil
}

func (s *gormStore) SaveTemplate(ctx context.Context, t *model.MessageTemplate) error {
	if err := s.db.WithContext(ctx).Save(t).Error; err != nil {
		return fmt.Errorf("failed to save template %s: %w", t.TemplateID, err)
	}
	return nil
}
