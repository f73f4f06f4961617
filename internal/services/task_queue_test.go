package services

import (
	"context"
	"encoding/json"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/whomimohshukla/freelancehub/internal/config"
)

func TestTaskTypeConstants(t *testing.T) {
	assert.Equal(t, "email:send", TaskTypeEmail)
	assert.Equal(t, "alert:im", TaskTypeAlert)
}

func TestSyncQueue_DispatchesToRegisteredHandler(t *testing.T) {
	var got EmailTask
	var calls int32
	RegisterTaskHandler("test:email", func(ctx context.Context, payload []byte) error {
		atomic.AddInt32(&calls, 1)
		return json.Unmarshal(payload, &got)
	})

	q := NewSyncQueue()
	require.NoError(t, q.Enqueue("test:email", EmailTask{To: "a@example.com", Subject: "hi"}))
	require.NoError(t, q.Close())

	assert.EqualValues(t, 1, atomic.LoadInt32(&calls))
	assert.Equal(t, "a@example.com", got.To)
	assert.Equal(t, "hi", got.Subject)
}

func TestSyncQueue_UnknownTypeIsDropped(t *testing.T) {
	q := NewSyncQueue()
	assert.NoError(t, q.Enqueue("test:nobody-listens", map[string]string{}))
	assert.NoError(t, q.Close())
}

func TestSyncQueue_IsAsync(t *testing.T) {
	assert.False(t, NewSyncQueue().IsAsync())
}

func TestSyncQueue_MarshalError(t *testing.T) {
	RegisterTaskHandler("test:marshal", func(ctx context.Context, payload []byte) error { return nil })
	q := NewSyncQueue()
	err := q.Enqueue("test:marshal", make(chan int))
	assert.Error(t, err)
}

func TestNewWorker_DisabledRedis(t *testing.T) {
	assert.Nil(t, NewWorker(&config.RedisConfig{Enabled: false}))
}

func TestGetTaskQueue_BeforeInit(t *testing.T) {
	assert.NotNil(t, GetTaskQueue())
}
