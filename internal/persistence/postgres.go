package persistence

import (
	"context"
	"encoding/json"

	pgxdecimal "github.com/jackc/pgx-shopspring-decimal"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/nightowl-labs/signal-trader/internal/types"
	"github.com/nightowl-labs/signal-trader/pkg/errors"
)

const createSnapshotsTable = `
CREATE TABLE IF NOT EXISTS position_snapshots (
	id          BIGSERIAL PRIMARY KEY,
	symbol      TEXT        NOT NULL,
	amount      NUMERIC     NOT NULL,
	orders      JSONB       NOT NULL,
	stoploss    JSONB,
	opened_at   TIMESTAMPTZ NOT NULL,
	closed_at   TIMESTAMPTZ,
	captured_at TIMESTAMPTZ NOT NULL DEFAULT now()
)`

const insertSnapshot = `
INSERT INTO position_snapshots (symbol, amount, orders, stoploss, opened_at, closed_at)
VALUES ($1, $2, $3, $4, $5, $6)`

// PostgresSink appends every snapshot as a row, keeping the full history of
// each position over time rather than only the latest state.
type PostgresSink struct {
	pool *pgxpool.Pool
}

// NewPostgresSink connects to the database, registers decimal support and
// ensures the snapshot table exists.
func NewPostgresSink(ctx context.Context, databaseURL string) (*PostgresSink, error) {
	config, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, errors.Wrapf(errors.ErrCodePersistenceError, err, "parsing database url")
	}

	config.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
		pgxdecimal.Register(conn.TypeMap())

		return nil
	}

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, errors.Wrapf(errors.ErrCodePersistenceError, err, "connecting to database")
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()

		return nil, errors.Wrapf(errors.ErrCodePersistenceError, err, "pinging database")
	}

	if _, err := pool.Exec(ctx, createSnapshotsTable); err != nil {
		pool.Close()

		return nil, errors.Wrapf(errors.ErrCodePersistenceError, err, "creating snapshot table")
	}

	return &PostgresSink{pool: pool}, nil
}

// Persist inserts one snapshot row.
func (s *PostgresSink) Persist(ctx context.Context, position types.Position) error {
	args, err := snapshotArgs(position)
	if err != nil {
		return err
	}

	if _, err := s.pool.Exec(ctx, insertSnapshot, args...); err != nil {
		return errors.Wrapf(errors.ErrCodeSnapshotWrite, err, "inserting snapshot for %s", position.Symbol)
	}

	return nil
}

// PersistAll inserts one row per position inside a single transaction so a
// shutdown dump is either fully recorded or not at all.
func (s *PostgresSink) PersistAll(ctx context.Context, positions []types.Position) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return errors.Wrapf(errors.ErrCodeSnapshotWrite, err, "beginning snapshot transaction")
	}

	defer func() {
		_ = tx.Rollback(ctx)
	}()

	for _, position := range positions {
		args, err := snapshotArgs(position)
		if err != nil {
			return err
		}

		if _, err := tx.Exec(ctx, insertSnapshot, args...); err != nil {
			return errors.Wrapf(errors.ErrCodeSnapshotWrite, err, "inserting snapshot for %s", position.Symbol)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return errors.Wrapf(errors.ErrCodeSnapshotWrite, err, "committing snapshot transaction")
	}

	return nil
}

// Close releases the connection pool.
func (s *PostgresSink) Close() error {
	s.pool.Close()

	return nil
}

func snapshotArgs(position types.Position) ([]any, error) {
	orders, err := json.Marshal(position.Orders)
	if err != nil {
		return nil, errors.Wrapf(errors.ErrCodeSnapshotWrite, err, "encoding orders for %s", position.Symbol)
	}

	var stoploss []byte

	if position.Stoploss.IsSome() {
		stoploss, err = json.Marshal(position.Stoploss.Unwrap())
		if err != nil {
			return nil, errors.Wrapf(errors.ErrCodeSnapshotWrite, err, "encoding stoploss for %s", position.Symbol)
		}
	}

	var closedAt any

	if position.ClosedAt.IsSome() {
		closedAt = position.ClosedAt.Unwrap()
	}

	return []any{
		string(position.Symbol),
		position.Amount,
		orders,
		stoploss,
		position.OpenedAt,
		closedAt,
	}, nil
}
