package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/wherewasi/wherewasi/internal/db"
	"github.com/wherewasi/wherewasi/internal/model"
)

// PostgresStore implements Store using pgxpool.
type PostgresStore struct {
	pool    db.Pool
	closeFn func()
}

// PoolConfig holds optional connection pool tuning parameters.
type PoolConfig struct {
	MaxConns int32 `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns int32 `yaml:"min_conns" mapstructure:"min_conns"`
}

// preparedStatements lists queries to prepare on each new connection for
// faster execution of the most frequently used store operations.
var preparedStatements = map[string]string{
	"insert_import":           `INSERT INTO imports (id, source, created_at) VALUES ($1, $2, $3)`,
	"finish_import":           `UPDATE imports SET points = $1, skipped = $2, finished_at = $3 WHERE id = $4`,
	"get_import":              `SELECT id, source, points, skipped, created_at, finished_at FROM imports WHERE id = $1`,
	"next_point_seq":          `SELECT COALESCE(MAX(seq) + 1, 0) FROM points WHERE import_id = $1`,
	"count_points":            `SELECT COUNT(*) FROM points WHERE import_id = $1`,
	"get_holidays":            `SELECT days FROM holiday_cache WHERE jurisdiction = $1 AND year = $2 AND expires_at > now()`,
	"set_holidays":            `INSERT INTO holiday_cache (jurisdiction, year, days, cached_at, expires_at) VALUES ($1, $2, $3, $4, $5) ON CONFLICT (jurisdiction, year) DO UPDATE SET days = $3, cached_at = $4, expires_at = $5`,
	"delete_expired_holidays": `DELETE FROM holiday_cache WHERE expires_at <= now()`,
}

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string, poolCfg *PoolConfig) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}

	// Apply pool sizing from config with sensible defaults.
	maxConns := int32(10)
	minConns := int32(2)
	if poolCfg != nil {
		if poolCfg.MaxConns > 0 {
			maxConns = poolCfg.MaxConns
		}
		if poolCfg.MinConns > 0 {
			minConns = poolCfg.MinConns
		}
	}
	pgxCfg.MaxConns = maxConns
	pgxCfg.MinConns = minConns
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

	// Prepare frequently-used statements on each new connection.
	pgxCfg.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
		for name, sql := range preparedStatements {
			if _, err := conn.Prepare(ctx, name, sql); err != nil {
				return eris.Wrapf(err, "postgres: prepare %s", name)
			}
		}
		return nil
	}

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &PostgresStore{pool: pool, closeFn: pool.Close}, nil
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS imports (
	id          TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
	source      TEXT NOT NULL,
	points      BIGINT NOT NULL DEFAULT 0,
	skipped     BIGINT NOT NULL DEFAULT 0,
	created_at  TIMESTAMPTZ NOT NULL DEFAULT now(),
	finished_at TIMESTAMPTZ
);

CREATE TABLE IF NOT EXISTS points (
	import_id TEXT NOT NULL REFERENCES imports(id),
	seq       BIGINT NOT NULL,
	ts        TIMESTAMPTZ NOT NULL,
	lat       DOUBLE PRECISION NOT NULL,
	lng       DOUBLE PRECISION NOT NULL,
	accuracy  INTEGER NOT NULL DEFAULT 0,
	PRIMARY KEY (import_id, seq)
);

CREATE TABLE IF NOT EXISTS holiday_cache (
	jurisdiction TEXT NOT NULL,
	year         INTEGER NOT NULL,
	days         JSONB NOT NULL,
	cached_at    TIMESTAMPTZ NOT NULL DEFAULT now(),
	expires_at   TIMESTAMPTZ NOT NULL,
	PRIMARY KEY (jurisdiction, year)
);

CREATE INDEX IF NOT EXISTS idx_imports_created_at ON imports(created_at);
CREATE INDEX IF NOT EXISTS idx_points_ts ON points(import_id, ts);
CREATE INDEX IF NOT EXISTS idx_holiday_cache_expires_at ON holiday_cache(expires_at);
`

func (s *PostgresStore) Ping(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, "SELECT 1")
	return eris.Wrap(err, "postgres: ping")
}

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Close() error {
	if s.closeFn != nil {
		s.closeFn()
	}
	return nil
}

func (s *PostgresStore) CreateImport(ctx context.Context, source string) (*Import, error) {
	id := uuid.New().String()
	now := time.Now().UTC()

	_, err := s.pool.Exec(ctx,
		`INSERT INTO imports (id, source, created_at) VALUES ($1, $2, $3)`,
		id, source, now,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: insert import")
	}

	return &Import{ID: id, Source: source, CreatedAt: now}, nil
}

func (s *PostgresStore) FinishImport(ctx context.Context, importID string, points, skipped int64) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE imports SET points = $1, skipped = $2, finished_at = $3 WHERE id = $4`,
		points, skipped, time.Now().UTC(), importID,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: finish import %s", importID)
	}
	if tag.RowsAffected() == 0 {
		return eris.Wrapf(ErrNotFound, "import %s", importID)
	}
	return nil
}

func (s *PostgresStore) GetImport(ctx context.Context, importID string) (*Import, error) {
	var imp Import
	var finishedAt *time.Time

	err := s.pool.QueryRow(ctx,
		`SELECT id, source, points, skipped, created_at, finished_at FROM imports WHERE id = $1`,
		importID,
	).Scan(&imp.ID, &imp.Source, &imp.Points, &imp.Skipped, &imp.CreatedAt, &finishedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, eris.Wrapf(ErrNotFound, "postgres: import %s", importID)
	}
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: get import %s", importID)
	}

	imp.CreatedAt = imp.CreatedAt.UTC()
	if finishedAt != nil {
		t := finishedAt.UTC()
		imp.FinishedAt = &t
	}
	return &imp, nil
}

func (s *PostgresStore) ListImports(ctx context.Context, limit int) ([]Import, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := s.pool.Query(ctx,
		`SELECT id, source, points, skipped, created_at, finished_at FROM imports
		 ORDER BY created_at DESC LIMIT $1`,
		limit,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list imports")
	}
	defer rows.Close()

	var imports []Import
	for rows.Next() {
		var imp Import
		var finishedAt *time.Time
		if err := rows.Scan(&imp.ID, &imp.Source, &imp.Points, &imp.Skipped, &imp.CreatedAt, &finishedAt); err != nil {
			return nil, eris.Wrap(err, "postgres: scan import")
		}
		imp.CreatedAt = imp.CreatedAt.UTC()
		if finishedAt != nil {
			t := finishedAt.UTC()
			imp.FinishedAt = &t
		}
		imports = append(imports, imp)
	}
	return imports, eris.Wrap(rows.Err(), "postgres: list imports iterate")
}

func (s *PostgresStore) AddPoints(ctx context.Context, importID string, points []model.Point) (int64, error) {
	if len(points) == 0 {
		return 0, nil
	}

	var seq int64
	err := s.pool.QueryRow(ctx,
		`SELECT COALESCE(MAX(seq) + 1, 0) FROM points WHERE import_id = $1`,
		importID,
	).Scan(&seq)
	if err != nil {
		return 0, eris.Wrapf(err, "postgres: next seq for import %s", importID)
	}

	rows := make([][]any, len(points))
	for i, p := range points {
		rows[i] = []any{importID, seq + int64(i), p.Time.UTC(), p.Lat, p.Lng, p.Accuracy}
	}
	return db.CopyFrom(ctx, s.pool, "points",
		[]string{"import_id", "seq", "ts", "lat", "lng", "accuracy"}, rows)
}

func (s *PostgresStore) Points(ctx context.Context, filter PointFilter) ([]model.Point, error) {
	query := `SELECT ts, lat, lng, accuracy FROM points WHERE true`
	args := []any{}
	argIdx := 1

	if filter.ImportID != "" {
		query += fmt.Sprintf(` AND import_id = $%d`, argIdx)
		args = append(args, filter.ImportID)
		argIdx++
	}
	if !filter.From.IsZero() {
		query += fmt.Sprintf(` AND ts >= $%d`, argIdx)
		args = append(args, filter.From.UTC())
		argIdx++
	}
	if !filter.To.IsZero() {
		query += fmt.Sprintf(` AND ts < $%d`, argIdx)
		args = append(args, filter.To.UTC())
		argIdx++
	}
	query += ` ORDER BY ts ASC, seq ASC`

	if filter.Limit > 0 {
		query += fmt.Sprintf(` LIMIT $%d`, argIdx)
		args = append(args, filter.Limit)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: query points")
	}
	defer rows.Close()

	var points []model.Point
	for rows.Next() {
		var p model.Point
		if err := rows.Scan(&p.Time, &p.Lat, &p.Lng, &p.Accuracy); err != nil {
			return nil, eris.Wrap(err, "postgres: scan point")
		}
		p.Time = p.Time.UTC()
		points = append(points, p)
	}
	return points, eris.Wrap(rows.Err(), "postgres: query points iterate")
}

func (s *PostgresStore) CountPoints(ctx context.Context, importID string) (int64, error) {
	var n int64
	err := s.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM points WHERE import_id = $1`,
		importID,
	).Scan(&n)
	return n, eris.Wrapf(err, "postgres: count points for import %s", importID)
}

func (s *PostgresStore) GetHolidays(ctx context.Context, jurisdiction string, year int) ([]time.Time, bool, error) {
	var daysJSON []byte
	err := s.pool.QueryRow(ctx,
		`SELECT days FROM holiday_cache
		 WHERE jurisdiction = $1 AND year = $2 AND expires_at > now()`,
		jurisdiction, year,
	).Scan(&daysJSON)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, false, nil
		}
		return nil, false, eris.Wrap(err, "postgres: get holidays")
	}

	days, err := decodeHolidayDays(string(daysJSON))
	if err != nil {
		return nil, false, eris.Wrap(err, "postgres: decode holidays")
	}
	return days, true, nil
}

func (s *PostgresStore) SetHolidays(ctx context.Context, jurisdiction string, year int, days []time.Time, ttl time.Duration) error {
	now := time.Now().UTC()

	daysJSON, err := encodeHolidayDays(days)
	if err != nil {
		return eris.Wrap(err, "postgres: encode holidays")
	}

	_, err = s.pool.Exec(ctx,
		`INSERT INTO holiday_cache (jurisdiction, year, days, cached_at, expires_at) VALUES ($1, $2, $3, $4, $5)
		 ON CONFLICT (jurisdiction, year) DO UPDATE SET days = $3, cached_at = $4, expires_at = $5`,
		jurisdiction, year, daysJSON, now, now.Add(ttl),
	)
	return eris.Wrap(err, "postgres: set holidays")
}

func (s *PostgresStore) DeleteExpiredHolidays(ctx context.Context) (int, error) {
	tag, err := s.pool.Exec(ctx,
		`DELETE FROM holiday_cache WHERE expires_at <= now()`,
	)
	if err != nil {
		return 0, eris.Wrap(err, "postgres: delete expired holidays")
	}
	return int(tag.RowsAffected()), nil
}
