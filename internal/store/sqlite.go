package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/wherewasi/wherewasi/internal/model"
)

// SQLiteStore implements Store using modernc.org/sqlite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS imports (
	id          TEXT PRIMARY KEY,
	source      TEXT NOT NULL,
	points      INTEGER NOT NULL DEFAULT 0,
	skipped     INTEGER NOT NULL DEFAULT 0,
	created_at  DATETIME NOT NULL DEFAULT (datetime('now')),
	finished_at DATETIME
);

CREATE TABLE IF NOT EXISTS points (
	import_id TEXT NOT NULL REFERENCES imports(id),
	seq       INTEGER NOT NULL,
	ts        DATETIME NOT NULL,
	lat       REAL NOT NULL,
	lng       REAL NOT NULL,
	accuracy  INTEGER NOT NULL DEFAULT 0,
	PRIMARY KEY (import_id, seq)
);

CREATE TABLE IF NOT EXISTS holiday_cache (
	jurisdiction TEXT NOT NULL,
	year         INTEGER NOT NULL,
	days         TEXT NOT NULL,
	cached_at    DATETIME NOT NULL DEFAULT (datetime('now')),
	expires_at   DATETIME NOT NULL,
	PRIMARY KEY (jurisdiction, year)
);

CREATE INDEX IF NOT EXISTS idx_imports_created_at ON imports(created_at);
CREATE INDEX IF NOT EXISTS idx_points_ts ON points(import_id, ts);
CREATE INDEX IF NOT EXISTS idx_holiday_cache_expires_at ON holiday_cache(expires_at);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) CreateImport(ctx context.Context, source string) (*Import, error) {
	id := uuid.New().String()
	now := time.Now().UTC()

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO imports (id, source, created_at) VALUES (?, ?, ?)`,
		id, source, now,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: insert import")
	}

	return &Import{ID: id, Source: source, CreatedAt: now}, nil
}

func (s *SQLiteStore) FinishImport(ctx context.Context, importID string, points, skipped int64) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE imports SET points = ?, skipped = ?, finished_at = ? WHERE id = ?`,
		points, skipped, time.Now().UTC(), importID,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: finish import %s", importID)
	}
	return checkRowsAffected(res, "import", importID)
}

func (s *SQLiteStore) GetImport(ctx context.Context, importID string) (*Import, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, source, points, skipped, created_at, finished_at FROM imports WHERE id = ?`,
		importID,
	)
	imp, err := scanImport(row)
	if err == sql.ErrNoRows {
		return nil, eris.Wrapf(ErrNotFound, "sqlite: import %s", importID)
	}
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: get import %s", importID)
	}
	return imp, nil
}

func (s *SQLiteStore) ListImports(ctx context.Context, limit int) ([]Import, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, source, points, skipped, created_at, finished_at FROM imports
		 ORDER BY created_at DESC LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list imports")
	}
	defer rows.Close()

	var imports []Import
	for rows.Next() {
		imp, err := scanImport(rows)
		if err != nil {
			return nil, eris.Wrap(err, "sqlite: scan import")
		}
		imports = append(imports, *imp)
	}
	return imports, eris.Wrap(rows.Err(), "sqlite: list imports iterate")
}

func (s *SQLiteStore) AddPoints(ctx context.Context, importID string, points []model.Point) (int64, error) {
	if len(points) == 0 {
		return 0, nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, eris.Wrap(err, "sqlite: begin tx")
	}
	defer tx.Rollback()

	var seq int64
	err = tx.QueryRowContext(ctx,
		`SELECT COALESCE(MAX(seq) + 1, 0) FROM points WHERE import_id = ?`,
		importID,
	).Scan(&seq)
	if err != nil {
		return 0, eris.Wrapf(err, "sqlite: next seq for import %s", importID)
	}

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO points (import_id, seq, ts, lat, lng, accuracy) VALUES (?, ?, ?, ?, ?, ?)`,
	)
	if err != nil {
		return 0, eris.Wrap(err, "sqlite: prepare insert point")
	}
	defer stmt.Close()

	for _, p := range points {
		if _, err := stmt.ExecContext(ctx, importID, seq, p.Time.UTC(), p.Lat, p.Lng, p.Accuracy); err != nil {
			return 0, eris.Wrapf(err, "sqlite: insert point seq %d", seq)
		}
		seq++
	}

	if err := tx.Commit(); err != nil {
		return 0, eris.Wrap(err, "sqlite: commit points")
	}
	return int64(len(points)), nil
}

func (s *SQLiteStore) Points(ctx context.Context, filter PointFilter) ([]model.Point, error) {
	query := `SELECT ts, lat, lng, accuracy FROM points WHERE 1=1`
	var args []any

	if filter.ImportID != "" {
		query += ` AND import_id = ?`
		args = append(args, filter.ImportID)
	}
	if !filter.From.IsZero() {
		query += ` AND ts >= ?`
		args = append(args, filter.From.UTC())
	}
	if !filter.To.IsZero() {
		query += ` AND ts < ?`
		args = append(args, filter.To.UTC())
	}
	query += ` ORDER BY ts ASC, seq ASC`

	if filter.Limit > 0 {
		query += ` LIMIT ?`
		args = append(args, filter.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: query points")
	}
	defer rows.Close()

	var points []model.Point
	for rows.Next() {
		var p model.Point
		if err := rows.Scan(&p.Time, &p.Lat, &p.Lng, &p.Accuracy); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan point")
		}
		p.Time = p.Time.UTC()
		points = append(points, p)
	}
	return points, eris.Wrap(rows.Err(), "sqlite: query points iterate")
}

func (s *SQLiteStore) CountPoints(ctx context.Context, importID string) (int64, error) {
	var n int64
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM points WHERE import_id = ?`,
		importID,
	).Scan(&n)
	return n, eris.Wrapf(err, "sqlite: count points for import %s", importID)
}

func (s *SQLiteStore) GetHolidays(ctx context.Context, jurisdiction string, year int) ([]time.Time, bool, error) {
	var daysJSON string
	err := s.db.QueryRowContext(ctx,
		`SELECT days FROM holiday_cache
		 WHERE jurisdiction = ? AND year = ? AND expires_at > datetime('now')`,
		jurisdiction, year,
	).Scan(&daysJSON)
	if err == sql.ErrNoRows {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, eris.Wrap(err, "sqlite: get holidays")
	}

	days, err := decodeHolidayDays(daysJSON)
	if err != nil {
		return nil, false, eris.Wrap(err, "sqlite: decode holidays")
	}
	return days, true, nil
}

func (s *SQLiteStore) SetHolidays(ctx context.Context, jurisdiction string, year int, days []time.Time, ttl time.Duration) error {
	now := time.Now().UTC()

	daysJSON, err := encodeHolidayDays(days)
	if err != nil {
		return eris.Wrap(err, "sqlite: encode holidays")
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO holiday_cache (jurisdiction, year, days, cached_at, expires_at) VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT (jurisdiction, year) DO UPDATE SET days = excluded.days, cached_at = excluded.cached_at, expires_at = excluded.expires_at`,
		jurisdiction, year, daysJSON, now, now.Add(ttl),
	)
	return eris.Wrap(err, "sqlite: set holidays")
}

func (s *SQLiteStore) DeleteExpiredHolidays(ctx context.Context) (int, error) {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM holiday_cache WHERE expires_at <= datetime('now')`,
	)
	if err != nil {
		return 0, eris.Wrap(err, "sqlite: delete expired holidays")
	}
	n, err := res.RowsAffected()
	return int(n), eris.Wrap(err, "sqlite: rows affected")
}

// helpers

func checkRowsAffected(res sql.Result, entity, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return eris.Wrap(err, "rows affected")
	}
	if n == 0 {
		return eris.Wrapf(ErrNotFound, "%s %s", entity, id)
	}
	return nil
}

type scannable interface {
	Scan(dest ...any) error
}

func scanImport(row scannable) (*Import, error) {
	var imp Import
	var finishedAt sql.NullTime

	err := row.Scan(&imp.ID, &imp.Source, &imp.Points, &imp.Skipped, &imp.CreatedAt, &finishedAt)
	if err != nil {
		return nil, err
	}

	imp.CreatedAt = imp.CreatedAt.UTC()
	if finishedAt.Valid {
		t := finishedAt.Time.UTC()
		imp.FinishedAt = &t
	}
	return &imp, nil
}

// encodeHolidayDays stores dates as a JSON array of YYYY-MM-DD strings
// so both backends share one format.
func encodeHolidayDays(days []time.Time) (string, error) {
	strs := make([]string, len(days))
	for i, d := range days {
		strs[i] = d.Format(time.DateOnly)
	}
	b, err := json.Marshal(strs)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func decodeHolidayDays(daysJSON string) ([]time.Time, error) {
	var strs []string
	if err := json.Unmarshal([]byte(daysJSON), &strs); err != nil {
		return nil, err
	}
	days := make([]time.Time, 0, len(strs))
	for _, s := range strs {
		d, err := time.ParseInLocation(time.DateOnly, s, time.UTC)
		if err != nil {
			return nil, eris.Wrapf(err, "bad cached date %q", s)
		}
		days = append(days, d)
	}
	return days, nil
}
