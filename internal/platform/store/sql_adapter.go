package store

import (
	"context"
	"errors"
	"time"

	"issuemirror/internal/platform/store/pg"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// meter times queries and reports them to the configured tracer.
// A nil tracer turns every call into a no-op, so the pool and tx
// paths share one emit implementation
type meter struct {
	tracer pg.QueryTracer
	slowUS int64
}

func meterFor(p *pg.PG) meter {
	if p == nil {
		return meter{}
	}
	return meter{tracer: p.Tracer, slowUS: int64(p.SlowMs) * 1000}
}

func (m meter) emit(ctx context.Context, sql string, args []any, start time.Time, err error) {
	if m.tracer == nil {
		return
	}
	elapsedUS := time.Since(start).Microseconds()
	m.tracer.OnQuery(ctx, pg.QueryEvent{
		SQL:       sql,
		Args:      args,
		ElapsedUS: elapsedUS,
		Err:       err,
		Slow:      m.slowUS >= 0 && elapsedUS >= m.slowUS,
	})
}

// pgAdapter implements RowQuerier + TxRunner over a pg.PG pool
type pgAdapter struct {
	p *pg.PG
	m meter
}

func newPGAdapter(p *pg.PG) *pgAdapter {
	return &pgAdapter{p: p, m: meterFor(p)}
}

func (a *pgAdapter) Ping(ctx context.Context) error {
	if a == nil {
		return errors.New("pg: nil adapter")
	}
	var one int
	return a.QueryRow(ctx, "SELECT 1").Scan(&one)
}

func (a *pgAdapter) Close() error { a.p.Close(); return nil }

func (a *pgAdapter) Exec(ctx context.Context, sql string, args ...any) (CommandTag, error) {
	start := time.Now()
	ct, err := a.p.Pool.Exec(ctx, sql, args...)
	a.m.emit(ctx, sql, args, start, err)
	return tag{ct}, err
}

func (a *pgAdapter) Query(ctx context.Context, sql string, args ...any) (Rows, error) {
	start := time.Now()
	rs, err := a.p.Pool.Query(ctx, sql, args...)
	a.m.emit(ctx, sql, args, start, err)
	if err != nil {
		return nil, err
	}
	return rows{r: rs}, nil
}

func (a *pgAdapter) QueryRow(ctx context.Context, sql string, args ...any) Row {
	start := time.Now()
	return row{
		r: a.p.Pool.QueryRow(ctx, sql, args...),
		// the event fires after Scan so it carries the scan error too
		after: func(scanErr error) {
			a.m.emit(ctx, sql, args, start, scanErr)
		},
	}
}

func (a *pgAdapter) Tx(ctx context.Context, fn func(q RowQuerier) error) error {
	tx, err := a.p.Pool.Begin(ctx)
	if err != nil {
		return err
	}
	if err := fn(txQuerier{tx: tx, m: a.m}); err != nil {
		_ = tx.Rollback(ctx)
		return err
	}
	return tx.Commit(ctx)
}

// txQuerier satisfies RowQuerier inside an open transaction.
// Queries in a tx trace through the same meter as pool queries
type txQuerier struct {
	tx pgx.Tx
	m  meter
}

func (t txQuerier) Exec(ctx context.Context, sql string, args ...any) (CommandTag, error) {
	start := time.Now()
	ct, err := t.tx.Exec(ctx, sql, args...)
	t.m.emit(ctx, sql, args, start, err)
	return tag{ct}, err
}

func (t txQuerier) Query(ctx context.Context, sql string, args ...any) (Rows, error) {
	start := time.Now()
	rs, err := t.tx.Query(ctx, sql, args...)
	t.m.emit(ctx, sql, args, start, err)
	if err != nil {
		return nil, err
	}
	return rows{r: rs}, nil
}

func (t txQuerier) QueryRow(ctx context.Context, sql string, args ...any) Row {
	start := time.Now()
	return row{
		r: t.tx.QueryRow(ctx, sql, args...),
		after: func(scanErr error) {
			t.m.emit(ctx, sql, args, start, scanErr)
		},
	}
}

// adapters from pgx types to the store's small Row/Rows/CommandTag surface

type row struct {
	r     pgx.Row
	after func(error)
}

func (x row) Scan(dst ...any) error {
	err := x.r.Scan(dst...)
	if x.after != nil {
		x.after(err)
	}
	return err
}

type rows struct{ r pgx.Rows }

func (x rows) Next() bool            { return x.r.Next() }
func (x rows) Scan(dst ...any) error { return x.r.Scan(dst...) }
func (x rows) Err() error            { return x.r.Err() }
func (x rows) Close()                { x.r.Close() }
func (x rows) Columns() []string {
	f := x.r.FieldDescriptions()
	out := make([]string, len(f))
	for i := range f {
		out[i] = string(f[i].Name)
	}
	return out
}

type tag struct{ t pgconn.CommandTag }

func (t tag) String() string      { return t.t.String() }
func (t tag) RowsAffected() int64 { return t.t.RowsAffected() }
