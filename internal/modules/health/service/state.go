package service

import (
	"sync/atomic"
	"time"

	supsvc "market_maker/internal/modules/supervisor/service"
	"market_maker/internal/state"
)

// WorkerStatuses — источник статусов воркеров (супервизор).
type WorkerStatuses interface {
	Statuses() []supsvc.Status
}

// State — пробы процесса. Готовность = есть цена и поток подключён.
type State struct {
	startedAt time.Time
	market    *state.MarketPositionState

	wsConnected  atomic.Bool
	lastTickUnix atomic.Int64 // unix seconds
}

func NewState(market *state.MarketPositionState) *State {
	return &State{startedAt: time.Now(), market: market}
}

func (s *State) Ready() bool {
	return s.wsConnected.Load() && s.market.MarkPrice().IsPositive()
}

func (s *State) SetWSConnected(v bool) { s.wsConnected.Store(v) }
func (s *State) WSConnected() bool     { return s.wsConnected.Load() }

func (s *State) TouchTick(t time.Time) { s.lastTickUnix.Store(t.Unix()) }
func (s *State) LastTick() time.Time {
	u := s.lastTickUnix.Load()
	if u == 0 {
		return time.Time{}
	}
	return time.Unix(u, 0)
}

func (s *State) Uptime() time.Duration { return time.Since(s.startedAt) }

type WorkerReport struct {
	Name      string `json:"name"`
	Running   bool   `json:"running"`
	Restarts  int    `json:"restarts"`
	GaveUp    bool   `json:"gaveUp,omitempty"`
	LastError string `json:"lastError,omitempty"`
}

type Report struct {
	Ready          bool           `json:"ready"`
	WSConnected    bool           `json:"wsConnected"`
	UptimeSec      int64          `json:"uptimeSec"`
	LastTickUnix   int64          `json:"lastTickUnix"`
	MarkPrice      string         `json:"markPrice"`
	Position       string         `json:"position"`
	StrategyPaused bool           `json:"strategyPaused"`
	LastOrderUnix  int64          `json:"lastOrderUnix"`
	LastRiskUnix   int64          `json:"lastRiskCheckUnix"`
	Workers        []WorkerReport `json:"workers"`
}

// Report — JSON для /healthz.
func (s *State) Report(workers WorkerStatuses) Report {
	snap := s.market.Read()
	r := Report{
		Ready:          s.Ready(),
		WSConnected:    s.WSConnected(),
		UptimeSec:      int64(s.Uptime().Seconds()),
		LastTickUnix:   unix(s.LastTick()),
		MarkPrice:      snap.MarkPrice.String(),
		Position:       snap.Position.String(),
		StrategyPaused: snap.StrategyPaused,
		LastOrderUnix:  unix(snap.LastOrderTime),
		LastRiskUnix:   unix(snap.LastRiskCheck),
		Workers:        []WorkerReport{},
	}
	if workers != nil {
		for _, w := range workers.Statuses() {
			r.Workers = append(r.Workers, WorkerReport{
				Name:      w.Name,
				Running:   w.Running,
				Restarts:  w.Restarts,
				GaveUp:    w.GaveUp,
				LastError: w.LastError,
			})
		}
	}
	return r
}

func unix(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.Unix()
}
