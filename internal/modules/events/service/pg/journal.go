package pg

import (
	"context"
	"fmt"

	"github.com/bytedance/sonic"
	"github.com/jackc/pgx/v5/pgtype"

	"market_maker/internal/models"
	"market_maker/internal/modules/events/service/pg/sql"
)

// Journal implement db store
type Journal struct {
	sql *sql.Queries
}

// New instance
func New() *Journal {
	return &Journal{
		sql: sql.New(),
	}
}

func (j *Journal) InsertEvent(ctx context.Context, tx sql.DBTX, ev models.RiskEvent) (err error) {
	defer func() {
		if err != nil {
			err = fmt.Errorf("Journal.InsertEvent: %w", err)
		}
	}()

	extra := []byte("{}")
	if len(ev.Extra) > 0 {
		extra, err = sonic.Marshal(ev.Extra)
		if err != nil {
			return err
		}
	}
	return j.sql.InsertRiskEvent(ctx, tx, &sql.InsertRiskEventParams{
		CreatedAt:  pgtype.Timestamptz{Time: ev.Time, Valid: true},
		InstanceID: ev.InstanceID,
		Env:        ev.Env,
		Symbol:     ev.Symbol,
		EventType:  string(ev.Type),
		Details:    ev.Details,
		Extra:      extra,
	})
}

func (j *Journal) InsertMetric(ctx context.Context, tx sql.DBTX, m models.MetricSample) (err error) {
	defer func() {
		if err != nil {
			err = fmt.Errorf("Journal.InsertMetric: %w", err)
		}
	}()

	details := []byte("{}")
	if len(m.Details) > 0 {
		details, err = sonic.Marshal(m.Details)
		if err != nil {
			return err
		}
	}
	return j.sql.InsertAccountMetric(ctx, tx, &sql.InsertAccountMetricParams{
		CreatedAt:  pgtype.Timestamptz{Time: m.Time, Valid: true},
		InstanceID: m.InstanceID,
		Env:        m.Env,
		Symbol:     m.Symbol,
		MetricName: m.Name,
		Value:      pgtype.Numeric{Int: m.Value.Coefficient(), Exp: m.Value.Exponent(), Valid: true},
		Unit:       m.Unit,
		Details:    details,
	})
}
