package service

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"market_maker/internal/models"
)

type memSink struct {
	mu      sync.Mutex
	events  []models.RiskEvent
	metrics []models.MetricSample
	err     error
	closed  bool
	block   chan struct{}
}

func (m *memSink) Name() string { return "mem" }

func (m *memSink) WriteEvent(_ context.Context, ev models.RiskEvent) error {
	if m.block != nil {
		<-m.block
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, ev)
	return m.err
}

func (m *memSink) WriteMetric(_ context.Context, s models.MetricSample) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.metrics = append(m.metrics, s)
	return m.err
}

func (m *memSink) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

var meta = Meta{InstanceID: "mm_v1", Env: "testnet", Symbol: "BTCUSDT"}

func TestJournalDeliversToAllSinks(t *testing.T) {
	a, b := &memSink{}, &memSink{err: errors.New("disk full")}
	j := NewJournal(meta, 16, zap.NewNop(), a, b)
	j.Start()

	j.LogEvent(models.EventRiskLimitExceeded, "limit", map[string]any{"position": "0.6"})
	j.RecordMetric(models.MetricSample{Name: "account_metrics", Value: decimal.NewFromInt(200)})

	require.NoError(t, j.Stop(context.Background()))

	for _, s := range []*memSink{a, b} {
		require.Len(t, s.events, 1)
		ev := s.events[0]
		assert.Equal(t, models.EventRiskLimitExceeded, ev.Type)
		assert.Equal(t, "mm_v1", ev.InstanceID)
		assert.Equal(t, "BTCUSDT", ev.Symbol)
		assert.False(t, ev.Time.IsZero())

		require.Len(t, s.metrics, 1)
		assert.Equal(t, "testnet", s.metrics[0].Env)
		assert.True(t, s.closed)
	}
}

func TestJournalLogEventNeverBlocks(t *testing.T) {
	sink := &memSink{block: make(chan struct{})}
	j := NewJournal(meta, 2, zap.NewNop(), sink)
	j.Start()

	done := make(chan struct{})
	go func() {
		defer close(done)
		for range 50 {
			j.LogEvent(models.EventLiquidationRetry, "retry", nil)
		}
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("LogEvent blocked on a stuck sink")
	}
	assert.Positive(t, j.Dropped())

	close(sink.block)
	require.NoError(t, j.Stop(context.Background()))
}

func TestJournalDropsAfterStop(t *testing.T) {
	sink := &memSink{}
	j := NewJournal(meta, 4, zap.NewNop(), sink)
	require.NoError(t, j.Stop(context.Background()))

	assert.NotPanics(t, func() {
		j.LogEvent(models.EventRiskError, "late", nil)
	})
	assert.Equal(t, int64(1), j.Dropped())
	assert.Empty(t, sink.events)
}

func TestCSVSinkWritesDailyFiles(t *testing.T) {
	dir := t.TempDir()
	s, err := NewCSVSink(dir)
	require.NoError(t, err)

	at := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	require.NoError(t, s.WriteEvent(context.Background(), models.RiskEvent{
		Time: at, InstanceID: "mm_v1", Env: "testnet", Symbol: "BTCUSDT",
		Type: models.EventLiquidationRetry, Details: "retry, again",
		Extra: map[string]any{"attempt": 2},
	}))
	require.NoError(t, s.WriteEvent(context.Background(), models.RiskEvent{
		Time: at.Add(time.Minute), Type: models.EventNoPosition, Details: "flat",
	}))
	require.NoError(t, s.WriteMetric(context.Background(), models.MetricSample{
		Time: at, Name: "account_metrics", Value: decimal.RequireFromString("200.5"), Unit: "usdt",
		Details: map[string]any{"position": "0.1", "mark_price": "100"},
	}))
	// следующий день — новый файл
	require.NoError(t, s.WriteEvent(context.Background(), models.RiskEvent{
		Time: at.Add(24 * time.Hour), Type: models.EventRiskError,
	}))
	require.NoError(t, s.Close())

	events, err := os.ReadFile(filepath.Join(dir, "events-20240501.csv"))
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(events)), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, "timestamp,instance_id,env,event_type,symbol,details,extra", lines[0])
	assert.Contains(t, lines[1], `liquidation_retry,BTCUSDT,"retry, again","{""attempt"":2}"`)
	assert.Contains(t, lines[2], "no_position")
	assert.Contains(t, lines[2], ",{}")

	metrics, err := os.ReadFile(filepath.Join(dir, "metrics-20240501.csv"))
	require.NoError(t, err)
	assert.Contains(t, string(metrics), "account_metrics,200.5,usdt")
	assert.Contains(t, string(metrics), "mark_price=100,position=0.1")

	next, err := os.ReadFile(filepath.Join(dir, "events-20240502.csv"))
	require.NoError(t, err)
	assert.Contains(t, string(next), "risk_error")
}

type captureAlerter struct{ msgs []string }

func (c *captureAlerter) Send(msg string) { c.msgs = append(c.msgs, msg) }

func TestAlertSinkOnlyCritical(t *testing.T) {
	n := &captureAlerter{}
	s := NewAlertSink(n)

	for _, typ := range []models.RiskEventType{
		models.EventRiskLimitExceeded,
		models.EventNoPosition,
		models.EventLiquidationRetry,
		models.EventRiskError,
		models.EventForcedLiquidation,
		models.EventLiquidationFailed,
	} {
		require.NoError(t, s.WriteEvent(context.Background(), models.RiskEvent{
			Type: typ, Symbol: "BTCUSDT", InstanceID: "mm_v1", Env: "testnet",
			Extra: map[string]any{"qty": "0.6"},
		}))
	}

	require.Len(t, n.msgs, 3)
	assert.Contains(t, n.msgs[0], "risk_limit_exceeded")
	assert.Contains(t, n.msgs[1], "forced_liquidation")
	assert.Contains(t, n.msgs[2], "🚨")
	assert.Contains(t, n.msgs[2], "qty=0.6")
}
