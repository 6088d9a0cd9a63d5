package service

import (
	"context"

	"github.com/jackc/pgx/v5"

	"market_maker/internal/models"
	"market_maker/internal/modules/events/service/pg"
)

type TxRunner interface {
	RunMaster(ctx context.Context, fn func(ctxTx context.Context, tx pgx.Tx) error) error
}

// PgSink — таблицы risk_events / account_metrics.
type PgSink struct {
	tx   TxRunner
	repo *pg.Journal
}

func NewPgSink(tx TxRunner) *PgSink {
	return &PgSink{tx: tx, repo: pg.New()}
}

func (s *PgSink) Name() string { return "postgres" }

func (s *PgSink) WriteEvent(ctx context.Context, ev models.RiskEvent) error {
	return s.tx.RunMaster(ctx, func(ctxTx context.Context, tx pgx.Tx) error {
		return s.repo.InsertEvent(ctxTx, tx, ev)
	})
}

func (s *PgSink) WriteMetric(ctx context.Context, m models.MetricSample) error {
	return s.tx.RunMaster(ctx, func(ctxTx context.Context, tx pgx.Tx) error {
		return s.repo.InsertMetric(ctxTx, tx, m)
	})
}

func (s *PgSink) Close() error { return nil }
