package handler_test

import (
	"chatguard/backend/internal/antispam"
	"chatguard/backend/internal/api/handler"
	"chatguard/backend/internal/config"
	"chatguard/backend/internal/storage"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var _ handler.Engine = (*antispam.Service)(nil)

func TestEndToEnd_FloodOverHTTP(t *testing.T) {
	// Arrange: the real engine on an in-memory database.
	db, err := gorm.Open(sqlite.Open("file:handler_e2e?mode=memory&cache=shared"), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	s := storage.NewStorageService(db, nil)
	require.NoError(t, s.Migrate())
	r := newRouter(t, antispam.NewService(s, config.DefaultRateLimit()))
	auth := adminHeader(t)

	w := do(r, http.MethodPost, "/api/admin/rooms", map[string]any{"order_id": "o-1", "client_email": "c@example.com"}, auth)
	require.Equal(t, http.StatusCreated, w.Code)
	roomID := decode(t, w)["room_id"].(string)

	// Act & Assert: unpaid rooms are closed to the client.
	w = do(r, http.MethodPost, "/api/rooms/"+roomID+"/messages", map[string]string{"sender_email": "c@example.com", "content": "hello"}, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Equal(t, "payment_not_confirmed", decode(t, w)["reason"])

	w = do(r, http.MethodPut, "/api/admin/rooms/"+roomID+"/payment", map[string]bool{"confirmed": true}, auth)
	require.Equal(t, http.StatusOK, w.Code)

	w = do(r, http.MethodPost, "/api/rooms/"+roomID+"/messages", map[string]string{"sender_email": "c@example.com", "content": "hello"}, nil)
	require.Equal(t, http.StatusCreated, w.Code)

	// A second message right away trips the burst floor.
	w = do(r, http.MethodPost, "/api/rooms/"+roomID+"/messages", map[string]string{"sender_email": "c@example.com", "content": "hello?"}, nil)
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, "rate_limit_exceeded", decode(t, w)["reason"])
	assert.NotEmpty(t, w.Header().Get("Retry-After"))

	w = do(r, http.MethodPost, "/api/chat/check", map[string]string{"room_id": roomID, "user_email": "other@example.com"}, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = do(r, http.MethodGet, "/api/rooms/"+roomID+"/status", nil, nil)
	require.Equal(t, http.StatusOK, w.Code)
	body := decode(t, w)
	assert.EqualValues(t, 1, body["total_messages"])
	assert.EqualValues(t, 1, body["rate_limit_violations"])
	assert.Equal(t, true, body["is_rate_limited"])

	w = do(r, http.MethodGet, "/api/rooms/unknown/status", nil, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}
