package state

import (
	"sync"
	"time"

	"github.com/shopspring/decimal"
)

// Snapshot — согласованная копия общего состояния.
// MarkPrice == 0 означает, что котировок ещё не было.
type Snapshot struct {
	MarkPrice      decimal.Decimal
	Position       decimal.Decimal
	StrategyPaused bool
	LastOrderTime  time.Time
	LastRiskCheck  time.Time
}

// Field — одно присваивание внутри SafeUpdate.
type Field func(*Snapshot)

func WithMarkPrice(v decimal.Decimal) Field { return func(s *Snapshot) { s.MarkPrice = v } }
func WithPosition(v decimal.Decimal) Field  { return func(s *Snapshot) { s.Position = v } }
func WithPaused(v bool) Field               { return func(s *Snapshot) { s.StrategyPaused = v } }
func WithLastOrderTime(t time.Time) Field   { return func(s *Snapshot) { s.LastOrderTime = t } }
func WithLastRiskCheck(t time.Time) Field   { return func(s *Snapshot) { s.LastRiskCheck = t } }

// MarketPositionState — единственная общая запись между воркерами.
// Один мьютекс на всё; под ним никогда не делается I/O.
type MarketPositionState struct {
	mu   sync.Mutex
	snap Snapshot
}

func New() *MarketPositionState {
	return &MarketPositionState{}
}

func (s *MarketPositionState) Read() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snap
}

// SafeUpdate применяет все поля одной транзакцией.
func (s *MarketPositionState) SafeUpdate(fields ...Field) {
	if len(fields) == 0 {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, f := range fields {
		f(&s.snap)
	}
}

func (s *MarketPositionState) MarkPrice() decimal.Decimal { return s.Read().MarkPrice }
func (s *MarketPositionState) Paused() bool               { return s.Read().StrategyPaused }
