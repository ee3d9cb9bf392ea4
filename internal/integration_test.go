package internal

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/SherClockHolmes/webpush-go"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"laundry-bot-backend/config"
	"laundry-bot-backend/internal/api"
	"laundry-bot-backend/internal/db"
	"laundry-bot-backend/internal/engine"
	"laundry-bot-backend/internal/line"
	"laundry-bot-backend/internal/model"
	"laundry-bot-backend/internal/store"
	"laundry-bot-backend/internal/sweeper"
	"laundry-bot-backend/internal/template"
)

// TestTimerLifecycle simulates the entire lifecycle of a machine timer,
// from reservation through completion, and verifies the database state
// and outgoing messages at each step.
func TestTimerLifecycle(t *testing.T) {
	gin.SetMode(gin.TestMode)

	// --- Test Setup ---

	// 1. Setup an in-memory SQLite database for testing.
	testDB, err := gorm.Open(sqlite.Open("file:TestTimerLifecycle?mode=memory&cache=shared"), &gorm.Config{})
	require.NoError(t, err)
	sqlDB, _ := testDB.DB()
	sqlDB.SetMaxOpenConns(1)
	defer sqlDB.Close()

	// Run database migrations.
	require.NoError(t, db.Migrate(testDB))

	// 2. Fake the messaging API, recording replies and pushes separately.
	var replies, pushes []string
	var pushTargets []string
	chatServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var payload struct {
			To       string `json:"to"`
			Messages []struct {
				Text string `json:"text"`
			} `json:"messages"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&payload))
		if r.URL.Path == "/v2/bot/message/push" {
			pushes = append(pushes, payload.Messages[0].Text)
			pushTargets = append(pushTargets, payload.To)
		} else {
			replies = append(replies, payload.Messages[0].Text)
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer chatServer.Close()

	// 3. Create a mock configuration and wire the services together.
	mockConfig := &config.Config{}
	mockConfig.Server.RateLimitPerSec = 1000
	mockConfig.Server.RateLimitBurst = 1000
	mockConfig.Server.CacheTTLSeconds = 1
	mockConfig.Sweeper.MaxAttempts = 10

	appStore := store.NewGormStore(testDB)
	templates := template.NewResolver(appStore, time.Minute)
	lineClient := line.NewClient(chatServer.URL)
	engineSvc := engine.NewService(appStore, templates, lineClient)
	sweeperSvc := sweeper.NewService(mockConfig, appStore, templates, lineClient, nil)
	router := api.NewRouter(mockConfig, appStore, engineSvc, sweeperSvc, templates, &webpush.Options{})

	// 4. Onboard a store through the public endpoint.
	onboardBody, _ := json.Marshal(map[string]string{
		"name":                "Integration Laundry",
		"line_channel_secret": "channel-secret",
		"line_access_token":   "access-token",
	})
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/stores", bytes.NewReader(onboardBody))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)
	require.Equal(t, http.StatusCreated, w.Code)

	var onboarded struct {
		StoreID string `json:"store_id"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &onboarded))
	storeID := onboarded.StoreID

	sendWebhook := func(userID, text string) {
		t.Helper()
		body, _ := json.Marshal(map[string]any{
			"events": []map[string]any{{
				"type":       "message",
				"replyToken": "rt-" + userID,
				"source":     map[string]string{"userId": userID},
				"message":    map[string]string{"type": "text", "text": text},
			}},
		})
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/api/webhook/"+storeID, bytes.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set(line.SignatureHeader, line.Sign("channel-secret", body))
		router.ServeHTTP(w, req)
		require.Equal(t, http.StatusOK, w.Code)
	}

	ctx := context.Background()

	// --- Scenario ---

	// Step 1: User u1 reserves washer 1 and gets a confirmation.
	sendWebhook("u1", "ซักผ้า_เลือก_1")

	timers, err := appStore.ListPendingTimers(ctx, storeID)
	require.NoError(t, err)
	require.Len(t, timers, 1)
	assert.Equal(t, "u1", timers[0].UserID)
	assert.Equal(t, 30, timers[0].DurationMinutes)
	require.Len(t, replies, 1)
	assert.Contains(t, replies[0], "30")

	// Step 2: User u2 tries the same machine while the timer is pending
	// and is turned away.
	sendWebhook("u2", "ซักผ้า_เลือก_1")

	timers, err = appStore.ListPendingTimers(ctx, storeID)
	require.NoError(t, err)
	assert.Len(t, timers, 1, "the busy machine must not accept a second timer")
	require.Len(t, replies, 2)
	assert.Contains(t, replies[1], "กำลังใช้งานอยู่")

	// Step 3: The timer expires. Simulate the passage of time by moving
	// the end time into the past.
	err = testDB.Model(&model.Timer{}).
		Where("store_id = ?", storeID).
		Update("end_time", time.Now().UTC().Add(-time.Minute)).Error
	require.NoError(t, err)

	// Step 4: A sweep delivers the completion push to u1 exactly once.
	summary := sweeperSvc.SweepOnce(ctx, time.Now().UTC())
	assert.Equal(t, 1, summary.NotificationsSent)
	assert.Equal(t, 0, summary.Failures)
	require.Len(t, pushes, 1)
	assert.Equal(t, "u1", pushTargets[0])
	assert.Contains(t, pushes[0], "เครื่องซักผ้า 1")

	var sent model.Timer
	require.NoError(t, testDB.First(&sent, "user_id = ?", "u1").Error)
	assert.Equal(t, model.TimerStatusSent, sent.Status)

	// A second sweep with no new expiries does nothing.
	summary = sweeperSvc.SweepOnce(ctx, time.Now().UTC())
	assert.Equal(t, 0, summary.NotificationsSent)
	assert.Len(t, pushes, 1)

	// Step 5: The machine is free again, so u2's retry succeeds.
	sendWebhook("u2", "ซักผ้า_เลือก_1")

	timers, err = appStore.ListPendingTimers(ctx, storeID)
	require.NoError(t, err)
	require.Len(t, timers, 1)
	assert.Equal(t, "u2", timers[0].UserID)
}
