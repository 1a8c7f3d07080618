package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/alicebob/miniredis/v2"
	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type healthEnvelope struct {
	Success bool         `json:"success"`
	Data    HealthStatus `json:"data"`
}

func setupHealthHandler(t *testing.T) (*HealthHandler, sqlmock.Sqlmock, *miniredis.Miniredis) {
	t.Helper()

	mockDB, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
	require.NoError(t, err)
	t.Cleanup(func() { mockDB.Close() })

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	return NewHealthHandler(sqlx.NewDb(mockDB, "postgres"), client, time.Second), mock, mr
}

func TestHealthHandler_Health(t *testing.T) {
	h, _, _ := setupHealthHandler(t)

	rec := httptest.NewRecorder()
	h.Health(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestHealthHandler_Ready(t *testing.T) {
	h, mock, _ := setupHealthHandler(t)
	mock.ExpectPing()

	rec := httptest.NewRecorder()
	h.Ready(rec, httptest.NewRequest(http.MethodGet, "/health/ready", nil))

	assert.Equal(t, http.StatusOK, rec.Code)

	var body healthEnvelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "ok", body.Data.Checks["database"])
	assert.Equal(t, "ok", body.Data.Checks["redis"])
}

func TestHealthHandler_Ready_DependencyDown(t *testing.T) {
	h, mock, mr := setupHealthHandler(t)
	mock.ExpectPing().WillReturnError(errors.New("connection refused"))
	mr.Close()

	rec := httptest.NewRecorder()
	h.Ready(rec, httptest.NewRequest(http.MethodGet, "/health/ready", nil))

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	var body healthEnvelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.False(t, body.Success)
	assert.Equal(t, "error", body.Data.Status)
	assert.Contains(t, body.Data.Checks["database"], "connection refused")
	assert.Contains(t, body.Data.Checks["redis"], "failed")
}
