package service

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"market_maker/internal/models"
)

// Sink — куда журнал пишет события и метрики. Ошибки синка не выходят наружу.
type Sink interface {
	Name() string
	WriteEvent(ctx context.Context, ev models.RiskEvent) error
	WriteMetric(ctx context.Context, m models.MetricSample) error
	Close() error
}

type Meta struct {
	InstanceID string
	Env        string
	Symbol     string
}

type record struct {
	event  *models.RiskEvent
	metric *models.MetricSample
}

// Journal — fire-and-forget журнал риск-событий. LogEvent никогда не блокирует:
// при переполненной очереди запись отбрасывается и считается в Dropped.
type Journal struct {
	meta  Meta
	log   *zap.Logger
	sinks []Sink
	now   func() time.Time

	mu      sync.RWMutex // closed + queue
	closed  bool
	queue   chan record
	dropped atomic.Int64

	startOnce sync.Once
	stopOnce  sync.Once
	done      chan struct{}
}

func NewJournal(meta Meta, queueSize int, log *zap.Logger, sinks ...Sink) *Journal {
	if queueSize <= 0 {
		queueSize = 1024
	}
	return &Journal{
		meta:  meta,
		log:   log.Named("events"),
		sinks: sinks,
		now:   time.Now,
		queue: make(chan record, queueSize),
		done:  make(chan struct{}),
	}
}

func (j *Journal) LogEvent(eventType models.RiskEventType, details string, extra map[string]any) {
	ev := models.RiskEvent{
		Time:       j.now(),
		InstanceID: j.meta.InstanceID,
		Env:        j.meta.Env,
		Symbol:     j.meta.Symbol,
		Type:       eventType,
		Details:    details,
		Extra:      extra,
	}

	fields := []zap.Field{zap.String("event_type", string(eventType)), zap.Any("extra", extra)}
	if eventType.Critical() {
		j.log.Warn(details, fields...)
	} else {
		j.log.Info(details, fields...)
	}

	j.enqueue(record{event: &ev})
}

func (j *Journal) RecordMetric(m models.MetricSample) {
	if m.Time.IsZero() {
		m.Time = j.now()
	}
	m.InstanceID = j.meta.InstanceID
	m.Env = j.meta.Env
	m.Symbol = j.meta.Symbol
	j.enqueue(record{metric: &m})
}

func (j *Journal) enqueue(r record) {
	j.mu.RLock()
	defer j.mu.RUnlock()
	if j.closed {
		j.dropped.Add(1)
		return
	}
	select {
	case j.queue <- r:
	default:
		n := j.dropped.Add(1)
		j.log.Warn("journal queue full, record dropped", zap.Int64("dropped_total", n))
	}
}

func (j *Journal) Dropped() int64 { return j.dropped.Load() }

// Start запускает фоновую запись в синки.
func (j *Journal) Start() {
	j.startOnce.Do(func() {
		go j.loop()
	})
}

func (j *Journal) loop() {
	defer close(j.done)
	for r := range j.queue {
		j.write(r)
	}
}

func (j *Journal) write(r record) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	for _, s := range j.sinks {
		var err error
		switch {
		case r.event != nil:
			err = s.WriteEvent(ctx, *r.event)
		case r.metric != nil:
			err = s.WriteMetric(ctx, *r.metric)
		}
		if err != nil {
			j.log.Error("sink write failed", zap.String("sink", s.Name()), zap.Error(err))
		}
	}
}

// Stop дописывает очередь и закрывает синки. Записи после Stop отбрасываются.
func (j *Journal) Stop(ctx context.Context) error {
	var err error
	j.stopOnce.Do(func() {
		j.Start()

		j.mu.Lock()
		j.closed = true
		close(j.queue)
		j.mu.Unlock()

		select {
		case <-j.done:
		case <-ctx.Done():
			// синки ещё пишут — не закрываем их под ногами
			err = ctx.Err()
			return
		}
		for _, s := range j.sinks {
			if cErr := s.Close(); cErr != nil {
				j.log.Error("sink close failed", zap.String("sink", s.Name()), zap.Error(cErr))
			}
		}
	})
	return err
}
