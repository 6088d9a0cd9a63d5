package state

import (
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestZeroValue(t *testing.T) {
	s := New()
	snap := s.Read()

	assert.True(t, snap.MarkPrice.IsZero())
	assert.True(t, snap.Position.IsZero())
	assert.False(t, snap.StrategyPaused)
	assert.True(t, snap.LastOrderTime.IsZero())
	assert.True(t, snap.LastRiskCheck.IsZero())
}

func TestSafeUpdateAppliesAllFields(t *testing.T) {
	s := New()
	now := time.Now()

	s.SafeUpdate(
		WithMarkPrice(decimal.RequireFromString("100.01")),
		WithPosition(decimal.RequireFromString("-0.25")),
		WithPaused(true),
		WithLastOrderTime(now),
		WithLastRiskCheck(now),
	)

	snap := s.Read()
	assert.Equal(t, "100.01", snap.MarkPrice.String())
	assert.Equal(t, "-0.25", snap.Position.String())
	assert.True(t, snap.StrategyPaused)
	assert.Equal(t, now, snap.LastOrderTime)
	assert.True(t, s.Paused())
	assert.True(t, s.MarkPrice().Equal(decimal.RequireFromString("100.01")))

	s.SafeUpdate(WithPaused(false))
	assert.False(t, s.Read().StrategyPaused)
	assert.Equal(t, "-0.25", s.Read().Position.String())
}

// Пары полей пишутся вместе — читатель никогда не видит половину обновления.
func TestSafeUpdateIsAtomic(t *testing.T) {
	s := New()

	var wg sync.WaitGroup
	stop := make(chan struct{})

	for w := 1; w <= 4; w++ {
		wg.Add(1)
		go func(w int64) {
			defer wg.Done()
			for i := int64(0); i < 2000; i++ {
				v := decimal.NewFromInt(w*100000 + i)
				s.SafeUpdate(WithMarkPrice(v), WithPosition(v.Neg()))
			}
		}(int64(w))
	}

	torn := 0
	var readers sync.WaitGroup
	readers.Add(1)
	go func() {
		defer readers.Done()
		for {
			select {
			case <-stop:
				return
			default:
			}
			snap := s.Read()
			if !snap.MarkPrice.Neg().Equal(snap.Position) {
				torn++
			}
		}
	}()

	wg.Wait()
	close(stop)
	readers.Wait()

	require.Zero(t, torn)
}
