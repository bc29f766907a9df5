package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"sentifi/internal/config"
)

// ErrNotConfigured indicates the storage pool was not initialised.
var ErrNotConfigured = errors.New("storage: pool not configured")

// ScoreRecord mirrors the latest published oracle record for a symbol.
// One row per symbol, latest value wins — no history is kept, matching
// the contract's own storage semantics.
type ScoreRecord struct {
	Symbol      string
	Score       int64
	Value       float64
	SampleCount int
	TxHash      string
	PublishedAt time.Time
}

const (
	upsertScoreSQL = `INSERT INTO oracle_scores (
        symbol,
        score,
        value,
        sample_count,
        tx_hash,
        published_at
    ) VALUES (
        $1,$2,$3,$4,$5,$6
    )
    ON CONFLICT (symbol) DO UPDATE
    SET
        score        = EXCLUDED.score,
        value        = EXCLUDED.value,
        sample_count = EXCLUDED.sample_count,
        tx_hash      = EXCLUDED.tx_hash,
        published_at = EXCLUDED.published_at;`

	getScoreSQL = `SELECT
        symbol, score, value, sample_count, tx_hash, published_at
    FROM oracle_scores
    WHERE symbol = $1;`

	listScoresSQL = `SELECT
        symbol, score, value, sample_count, tx_hash, published_at
    FROM oracle_scores
    ORDER BY symbol;`
)

// ScoreStore defines operations on the oracle score mirror.
type ScoreStore interface {
	UpsertScore(ctx context.Context, rec ScoreRecord) error
	GetScore(ctx context.Context, symbol string) (ScoreRecord, bool, error)
	ListScores(ctx context.Context) ([]ScoreRecord, error)
}

// NewPool configures a PostgreSQL connection pool from runtime settings.
func NewPool(ctx context.Context, cfg config.DatabaseConfig) (*pgxpool.Pool, error) {
	if cfg.DSN == "" {
		return nil, fmt.Errorf("database.dsn is required")
	}

	poolConfig, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("parse database dsn: %w", err)
	}

	if cfg.MaxOpenConns > 0 {
		poolConfig.MaxConns = int32(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		poolConfig.MinConns = int32(cfg.MaxIdleConns)
	}
	if cfg.ConnMaxLifetime > 0 {
		poolConfig.MaxConnLifetime = cfg.ConnMaxLifetime
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("create pgx pool: %w", err)
	}

	return pool, nil
}

// Store persists the latest published score per symbol.
type Store struct {
	pool *pgxpool.Pool
}

// NewStore wires a pgx pool into a Store.
func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// Close releases the underlying pool resources.
func (s *Store) Close() {
	if s == nil || s.pool == nil {
		return
	}
	s.pool.Close()
}

func (s *Store) getPool() (*pgxpool.Pool, error) {
	if s == nil || s.pool == nil {
		return nil, ErrNotConfigured
	}
	return s.pool, nil
}

// UpsertScore records the latest published score for a symbol,
// overwriting any previous row.
func (s *Store) UpsertScore(ctx context.Context, rec ScoreRecord) error {
	pool, err := s.getPool()
	if err != nil {
		return err
	}

	_, execErr := pool.Exec(ctx, upsertScoreSQL,
		rec.Symbol,
		rec.Score,
		rec.Value,
		rec.SampleCount,
		rec.TxHash,
		rec.PublishedAt,
	)
	if execErr != nil {
		return fmt.Errorf("upsert score: %w", execErr)
	}
	return nil
}

// GetScore returns the mirrored record for a symbol. The bool result
// distinguishes "never published here" from a stored neutral zero —
// a distinction the on-chain store cannot make.
func (s *Store) GetScore(ctx context.Context, symbol string) (ScoreRecord, bool, error) {
	pool, err := s.getPool()
	if err != nil {
		return ScoreRecord{}, false, err
	}

	var rec ScoreRecord
	row := pool.QueryRow(ctx, getScoreSQL, symbol)
	if scanErr := row.Scan(&rec.Symbol, &rec.Score, &rec.Value, &rec.SampleCount, &rec.TxHash, &rec.PublishedAt); scanErr != nil {
		if errors.Is(scanErr, pgx.ErrNoRows) {
			return ScoreRecord{}, false, nil
		}
		return ScoreRecord{}, false, fmt.Errorf("get score: %w", scanErr)
	}
	return rec, true, nil
}

// ListScores lists all mirrored records ordered by symbol.
func (s *Store) ListScores(ctx context.Context) ([]ScoreRecord, error) {
	pool, err := s.getPool()
	if err != nil {
		return nil, err
	}

	rows, queryErr := pool.Query(ctx, listScoresSQL)
	if queryErr != nil {
		return nil, fmt.Errorf("list scores: %w", queryErr)
	}
	defer rows.Close()

	records := make([]ScoreRecord, 0)
	for rows.Next() {
		var rec ScoreRecord
		if err := rows.Scan(&rec.Symbol, &rec.Score, &rec.Value, &rec.SampleCount, &rec.TxHash, &rec.PublishedAt); err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return records, nil
}

var _ ScoreStore = (*Store)(nil)
