package service

import (
	"math"
	"time"
)

// Policy — как перезапускать упавшие воркеры.
// Нулевые Multiplier/MaxRestarts дают фиксированную паузу и бесконечные рестарты.
type Policy struct {
	RestartBackoff    time.Duration
	MaxBackoff        time.Duration
	BackoffMultiplier float64
	MaxRestarts       int // 0 — без ограничения
	CheckInterval     time.Duration
	// StableRun: запуск дольше этого сбрасывает счётчик подряд идущих падений.
	// 0 — max(RestartBackoff, MaxBackoff).
	StableRun time.Duration
}

func DefaultPolicy() Policy {
	return Policy{
		RestartBackoff:    2 * time.Second,
		MaxBackoff:        2 * time.Second,
		BackoffMultiplier: 1,
		CheckInterval:     5 * time.Second,
	}
}

// Delay — пауза перед рестартом номер n (с 1).
func (p Policy) Delay(n int) time.Duration {
	base := p.RestartBackoff
	if base <= 0 {
		base = 2 * time.Second
	}
	if p.BackoffMultiplier <= 1 || n <= 1 {
		return base
	}

	d := float64(base) * math.Pow(p.BackoffMultiplier, float64(n-1))
	if p.MaxBackoff > 0 && d > float64(p.MaxBackoff) {
		return p.MaxBackoff
	}
	if d > float64(math.MaxInt64) {
		return time.Duration(math.MaxInt64)
	}
	return time.Duration(d)
}

// Exhausted — исчерпан ли лимит рестартов.
func (p Policy) Exhausted(restarts int) bool {
	return p.MaxRestarts > 0 && restarts > p.MaxRestarts
}

// StableAfter — сколько должен проработать воркер, чтобы падения считались заново.
func (p Policy) StableAfter() time.Duration {
	if p.StableRun > 0 {
		return p.StableRun
	}
	d := p.RestartBackoff
	if d <= 0 {
		d = 2 * time.Second
	}
	if p.MaxBackoff > d {
		d = p.MaxBackoff
	}
	return d
}
