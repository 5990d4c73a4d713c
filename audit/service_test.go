package audit

import (
	"context"
	"testing"
	"time"

	"github.com/azattekce/redischat/model"
	"github.com/azattekce/redischat/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func nop() *zap.Logger { l, _ := zap.NewDevelopment(); return l }

func TestNew_StartsWorker(t *testing.T) {
	db := testutil.SetupTestDB(t)
	svc := New(db, nop())
	require.NotNil(t, svc)
	svc.Stop(context.Background())
}

func TestLog_EnqueuedAndFlushed(t *testing.T) {
	db := testutil.SetupTestDB(t)
	svc := New(db, nop())

	svc.Log(Entry{
		TraceID:    "trace-123",
		UserID:     "alice-id",
		Action:     "send_private_message",
		Request:    map[string]string{"to": "bob-id"},
		Response:   map[string]int64{"message_id": 7},
		IP:         "127.0.0.1",
		DurationMs: 42,
	})

	// Stop flushes remaining entries.
	svc.Stop(context.Background())

	var logs []model.AuditLog
	db.Find(&logs)
	require.Len(t, logs, 1)
	assert.Equal(t, "trace-123", logs[0].TraceID)
	assert.Equal(t, "alice-id", logs[0].UserID)
	assert.Equal(t, "send_private_message", logs[0].Action)
	assert.Equal(t, "127.0.0.1", logs[0].IP)
	assert.Equal(t, 42, logs[0].DurationMs)
}

func TestLog_MultipleLogs(t *testing.T) {
	db := testutil.SetupTestDB(t)
	svc := New(db, nop())

	for i := 0; i < 10; i++ {
		svc.Log(Entry{Action: "action", IP: "10.0.0.1"})
	}

	svc.Stop(context.Background())

	var count int64
	db.Model(&model.AuditLog{}).Count(&count)
	assert.Equal(t, int64(10), count)
}

func TestLog_BatchFlush(t *testing.T) {
	db := testutil.SetupTestDB(t)
	svc := New(db, nop())

	// 100 entries trigger an immediate batch flush inside the worker.
	for i := 0; i < 100; i++ {
		svc.Log(Entry{Action: "batch"})
	}

	svc.Stop(context.Background())

	var count int64
	db.Model(&model.AuditLog{}).Count(&count)
	assert.GreaterOrEqual(t, count, int64(100))
}

func TestLog_TimerFlush(t *testing.T) {
	db := testutil.SetupTestDB(t)
	svc := New(db, nop())

	svc.Log(Entry{Action: "timer_test"})

	// Wait for the 2s ticker to fire.
	time.Sleep(2500 * time.Millisecond)
	svc.Stop(context.Background())

	var count int64
	db.Model(&model.AuditLog{}).Count(&count)
	assert.EqualValues(t, 1, count)
}

func TestStop_Idempotent(t *testing.T) {
	db := testutil.SetupTestDB(t)
	svc := New(db, nop())
	svc.Stop(context.Background())
	svc.Stop(context.Background()) // must not panic
}

func TestLog_DropsWhenFull(t *testing.T) {
	db := testutil.SetupTestDB(t)
	svc := New(db, nop())

	// Flood beyond the 1024 buffer; the service must drop, not panic or block.
	for i := 0; i < 1030; i++ {
		svc.Log(Entry{Action: "flood"})
	}
	svc.Stop(context.Background())
}
