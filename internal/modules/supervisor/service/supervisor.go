package service

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sourcegraph/conc"
	"github.com/sourcegraph/conc/panics"
	"go.uber.org/zap"
)

// Worker — долгоживущая задача. Run блокирует до отмены ctx или ошибки.
type Worker interface {
	Name() string
	Run(ctx context.Context) error
}

type Status struct {
	Name      string
	Running   bool
	Restarts  int
	LastError string
	StartedAt time.Time
	GaveUp    bool
}

type task struct {
	worker Worker
	done   chan struct{}

	running   bool
	restarts  int // всего за жизнь процесса
	streak    int // подряд идущие короткие запуски, от них backoff и лимит
	lastErr   error
	startedAt time.Time
	gaveUp    bool
}

// TeardownStep — шаг остановки, выполняется до отмены воркеров.
type TeardownStep struct {
	Name string
	Run  func(ctx context.Context) error
}

// Supervisor запускает воркеры и перезапускает их после любого выхода:
// ошибка, паника или чистый return — до тех пор, пока не запрошена остановка.
type Supervisor struct {
	policy Policy
	log    *zap.Logger

	ctx    context.Context
	cancel context.CancelFunc
	wg     conc.WaitGroup

	mu       sync.Mutex
	tasks    []*task
	started  atomic.Bool
	stopping atomic.Bool
}

func New(policy Policy, log *zap.Logger, workers ...Worker) *Supervisor {
	s := &Supervisor{
		policy: policy,
		log:    log.Named("supervisor"),
	}
	for _, w := range workers {
		s.tasks = append(s.tasks, &task{worker: w})
	}
	return s
}

// Start запускает все воркеры и liveness-проверку. Повторный вызов ничего не делает.
func (s *Supervisor) Start(parent context.Context) {
	if !s.started.CompareAndSwap(false, true) {
		return
	}
	s.ctx, s.cancel = context.WithCancel(parent)

	s.mu.Lock()
	for _, t := range s.tasks {
		s.launch(t)
	}
	s.mu.Unlock()

	s.wg.Go(s.monitor)
	s.log.Info("[SUPERVISOR] started", zap.Int("workers", len(s.tasks)))
}

// launch вызывается под s.mu.
func (s *Supervisor) launch(t *task) {
	done := make(chan struct{})
	t.done = done
	s.wg.Go(func() {
		defer close(done)
		s.runTask(t)
	})
}

func (s *Supervisor) runTask(t *task) {
	name := t.worker.Name()
	for {
		if s.ctx.Err() != nil {
			return
		}

		s.mu.Lock()
		t.running = true
		t.startedAt = time.Now()
		s.mu.Unlock()

		err := s.runOnce(t.worker)

		s.mu.Lock()
		t.running = false
		t.lastErr = err
		ranFor := time.Since(t.startedAt)
		s.mu.Unlock()

		if s.ctx.Err() != nil {
			return
		}

		s.mu.Lock()
		if ranFor >= s.policy.StableAfter() {
			t.streak = 0
		}
		t.restarts++
		t.streak++
		restarts, streak := t.restarts, t.streak
		if s.policy.Exhausted(streak) {
			t.gaveUp = true
		}
		gaveUp := t.gaveUp
		s.mu.Unlock()

		if gaveUp {
			s.log.Error("[SUPERVISOR] restart limit reached, worker stopped",
				zap.String("worker", name), zap.Int("failures_in_row", streak), zap.Error(err))
			return
		}

		delay := s.policy.Delay(streak)
		if err != nil {
			s.log.Warn("[SUPERVISOR] worker failed, restarting",
				zap.String("worker", name), zap.Error(err), zap.Duration("backoff", delay), zap.Int("restart", restarts))
		} else {
			s.log.Warn("[SUPERVISOR] worker returned, restarting",
				zap.String("worker", name), zap.Duration("backoff", delay), zap.Int("restart", restarts))
		}

		timer := time.NewTimer(delay)
		select {
		case <-s.ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
		}
	}
}

// runOnce — один запуск воркера, паника превращается в ошибку.
func (s *Supervisor) runOnce(w Worker) (err error) {
	var pc panics.Catcher
	pc.Try(func() {
		err = w.Run(s.ctx)
	})
	if r := pc.Recovered(); r != nil {
		return fmt.Errorf("panic in %s: %w", w.Name(), r.AsError())
	}
	return err
}

// monitor — периодическая проверка, что обёртки воркеров живы.
func (s *Supervisor) monitor() {
	interval := s.policy.CheckInterval
	if interval <= 0 {
		interval = 5 * time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-s.ctx.Done():
			return
		case <-ticker.C:
			s.sweep()
		}
	}
}

func (s *Supervisor) sweep() {
	if s.stopping.Load() || s.ctx.Err() != nil {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for _, t := range s.tasks {
		if t.gaveUp || t.done == nil {
			continue
		}
		select {
		case <-t.done:
			s.log.Warn("[SUPERVISOR] worker wrapper exited unexpectedly, relaunching",
				zap.String("worker", t.worker.Name()))
			t.restarts++
			s.launch(t)
		default:
		}
	}
}

// Shutdown выполняет шаги по порядку (ошибки логируются), затем останавливает воркеры.
func (s *Supervisor) Shutdown(ctx context.Context, steps ...TeardownStep) error {
	for _, step := range steps {
		s.log.Info("[SUPERVISOR] teardown", zap.String("step", step.Name))
		if err := step.Run(ctx); err != nil {
			s.log.Error("[SUPERVISOR] teardown step failed", zap.String("step", step.Name), zap.Error(err))
		}
	}
	return s.Stop(ctx)
}

// Stop отменяет воркеры и ждёт их завершения, но не дольше ctx.
func (s *Supervisor) Stop(ctx context.Context) error {
	if !s.started.Load() {
		return nil
	}
	if !s.stopping.CompareAndSwap(false, true) {
		return nil
	}
	s.cancel()

	done := make(chan struct{})
	go func() {
		defer close(done)
		if r := s.wg.WaitAndRecover(); r != nil {
			s.log.Error("[SUPERVISOR] panic while stopping", zap.String("panic", r.String()))
		}
	}()

	select {
	case <-done:
		s.log.Info("[SUPERVISOR] all workers stopped")
		return nil
	case <-ctx.Done():
		return fmt.Errorf("supervisor stop: %w", ctx.Err())
	}
}

func (s *Supervisor) Statuses() []Status {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]Status, 0, len(s.tasks))
	for _, t := range s.tasks {
		st := Status{
			Name:      t.worker.Name(),
			Running:   t.running,
			Restarts:  t.restarts,
			StartedAt: t.startedAt,
			GaveUp:    t.gaveUp,
		}
		if t.lastErr != nil {
			st.LastError = t.lastErr.Error()
		}
		out = append(out, st)
	}
	return out
}
