package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/sells-group/market-scan/internal/db"
	"github.com/sells-group/market-scan/internal/model"
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
	"insert_scan":        `INSERT INTO scans (id, keyword, options, status, created_at, updated_at) VALUES ($1, $2, $3, $4, $5, $6)`,
	"update_scan_status": `UPDATE scans SET status = $1, updated_at = $2 WHERE id = $3`,
	"mark_scan_error":    `UPDATE scans SET status = $1, error_message = $2, updated_at = $3 WHERE id = $4`,
	"get_scan":           `SELECT id, keyword, options, status, error_message, created_at, updated_at FROM scans WHERE id = $1`,
	"get_signals":        `SELECT data FROM scan_signals WHERE scan_id = $1`,
	"get_latest_brief":   `SELECT scan_id, attempt, brief, qa_result, created_at FROM briefs WHERE scan_id = $1 ORDER BY attempt DESC LIMIT 1`,
	"get_decision":       `SELECT scan_id, decision, notes, decided_at FROM decisions WHERE scan_id = $1`,
}

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string, poolCfg *PoolConfig) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}

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

// NewPostgresFromPool wraps an existing pool. Used in tests with pgxmock.
func NewPostgresFromPool(pool db.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS scans (
	id            TEXT PRIMARY KEY,
	keyword       TEXT NOT NULL,
	options       JSONB NOT NULL,
	status        TEXT NOT NULL DEFAULT 'queued',
	error_message TEXT,
	created_at    TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at    TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS scan_listings (
	scan_id    TEXT NOT NULL REFERENCES scans(id),
	listing_id BIGINT NOT NULL,
	position   INTEGER NOT NULL,
	data       JSONB NOT NULL,
	PRIMARY KEY (scan_id, listing_id)
);

CREATE TABLE IF NOT EXISTS scan_signals (
	scan_id     TEXT PRIMARY KEY REFERENCES scans(id),
	data        JSONB NOT NULL,
	computed_at TIMESTAMPTZ NOT NULL
);

CREATE TABLE IF NOT EXISTS briefs (
	scan_id    TEXT NOT NULL REFERENCES scans(id),
	attempt    INTEGER NOT NULL,
	brief      JSONB NOT NULL,
	qa_result  JSONB NOT NULL,
	passed     BOOLEAN NOT NULL DEFAULT false,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	PRIMARY KEY (scan_id, attempt)
);

CREATE TABLE IF NOT EXISTS decisions (
	scan_id    TEXT PRIMARY KEY REFERENCES scans(id),
	decision   TEXT NOT NULL,
	notes      TEXT,
	decided_at TIMESTAMPTZ NOT NULL
);

CREATE TABLE IF NOT EXISTS listing_cache (
	keyword    TEXT NOT NULL,
	listing_id BIGINT NOT NULL,
	position   INTEGER NOT NULL,
	data       JSONB NOT NULL,
	cached_at  TIMESTAMPTZ NOT NULL,
	expires_at TIMESTAMPTZ NOT NULL,
	PRIMARY KEY (keyword, listing_id)
);

CREATE INDEX IF NOT EXISTS idx_scans_status ON scans(status);
CREATE INDEX IF NOT EXISTS idx_scans_keyword ON scans(keyword);
CREATE INDEX IF NOT EXISTS idx_scan_listings_scan_id ON scan_listings(scan_id);
CREATE INDEX IF NOT EXISTS idx_listing_cache_expires_at ON listing_cache(expires_at);
`

func (s *PostgresStore) Ping(ctx context.Context) error {
	return eris.Wrap(s.pool.Ping(ctx), "postgres: ping")
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

func (s *PostgresStore) CreateScan(ctx context.Context, keyword string, opts model.ScanOptions) (*model.Scan, error) {
	id := uuid.New().String()
	now := time.Now().UTC()

	optsJSON, err := json.Marshal(opts)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: marshal options")
	}

	_, err = s.pool.Exec(ctx,
		`INSERT INTO scans (id, keyword, options, status, created_at, updated_at) VALUES ($1, $2, $3, $4, $5, $6)`,
		id, keyword, optsJSON, string(model.ScanStatusQueued), now, now,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: insert scan")
	}

	return &model.Scan{
		ID:        id,
		Keyword:   keyword,
		Options:   opts,
		Status:    model.ScanStatusQueued,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

func (s *PostgresStore) UpdateScanStatus(ctx context.Context, scanID string, status model.ScanStatus) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE scans SET status = $1, updated_at = $2 WHERE id = $3`,
		string(status), time.Now().UTC(), scanID,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: update scan status %s", scanID)
	}
	if tag.RowsAffected() == 0 {
		return eris.Errorf("scan not found: %s", scanID)
	}
	return nil
}

func (s *PostgresStore) MarkScanError(ctx context.Context, scanID string, message string) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE scans SET status = $1, error_message = $2, updated_at = $3 WHERE id = $4`,
		string(model.ScanStatusError), message, time.Now().UTC(), scanID,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: mark scan error %s", scanID)
	}
	if tag.RowsAffected() == 0 {
		return eris.Errorf("scan not found: %s", scanID)
	}
	return nil
}

func (s *PostgresStore) GetScan(ctx context.Context, scanID string) (*model.Scan, error) {
	var sc model.Scan
	var optsJSON []byte
	var errMsg *string

	err := s.pool.QueryRow(ctx,
		`SELECT id, keyword, options, status, error_message, created_at, updated_at FROM scans WHERE id = $1`,
		scanID,
	).Scan(&sc.ID, &sc.Keyword, &optsJSON, &sc.Status, &errMsg, &sc.CreatedAt, &sc.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, eris.New("scan not found")
	}
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: get scan %s", scanID)
	}

	if err := json.Unmarshal(optsJSON, &sc.Options); err != nil {
		return nil, eris.Wrap(err, "postgres: unmarshal options")
	}
	if errMsg != nil {
		sc.ErrorMessage = *errMsg
	}
	return &sc, nil
}

func (s *PostgresStore) ListScans(ctx context.Context, filter ScanFilter) ([]model.Scan, error) {
	query := `SELECT id, keyword, options, status, error_message, created_at, updated_at FROM scans WHERE true`
	args := []any{}
	argIdx := 1

	if filter.Status != "" {
		query += fmt.Sprintf(` AND status = $%d`, argIdx)
		args = append(args, string(filter.Status))
		argIdx++
	}
	if filter.Keyword != "" {
		query += fmt.Sprintf(` AND keyword = $%d`, argIdx)
		args = append(args, filter.Keyword)
		argIdx++
	}
	query += ` ORDER BY created_at DESC`

	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}
	query += fmt.Sprintf(` LIMIT $%d`, argIdx)
	args = append(args, limit)
	argIdx++

	if filter.Offset > 0 {
		query += fmt.Sprintf(` OFFSET $%d`, argIdx)
		args = append(args, filter.Offset)
		argIdx++
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list scans")
	}
	defer rows.Close()

	var scans []model.Scan
	for rows.Next() {
		var sc model.Scan
		var optsJSON []byte
		var errMsg *string

		if err := rows.Scan(&sc.ID, &sc.Keyword, &optsJSON, &sc.Status, &errMsg, &sc.CreatedAt, &sc.UpdatedAt); err != nil {
			return nil, eris.Wrap(err, "postgres: scan row")
		}
		if err := json.Unmarshal(optsJSON, &sc.Options); err != nil {
			return nil, eris.Wrap(err, "postgres: unmarshal options")
		}
		if errMsg != nil {
			sc.ErrorMessage = *errMsg
		}
		scans = append(scans, sc)
	}
	return scans, eris.Wrap(rows.Err(), "postgres: list scans iterate")
}

func (s *PostgresStore) SaveScanListings(ctx context.Context, scanID string, listings []model.Listing) error {
	if _, err := s.pool.Exec(ctx, `DELETE FROM scan_listings WHERE scan_id = $1`, scanID); err != nil {
		return eris.Wrapf(err, "postgres: clear scan listings %s", scanID)
	}

	rows := make([][]any, 0, len(listings))
	for i, l := range listings {
		data, err := json.Marshal(l)
		if err != nil {
			return eris.Wrap(err, "postgres: marshal listing")
		}
		rows = append(rows, []any{scanID, l.ListingID, i, data})
	}

	_, err := db.CopyFrom(ctx, s.pool, "scan_listings",
		[]string{"scan_id", "listing_id", "position", "data"}, rows)
	return err
}

func (s *PostgresStore) GetScanListings(ctx context.Context, scanID string) ([]model.Listing, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT data FROM scan_listings WHERE scan_id = $1 ORDER BY position`,
		scanID,
	)
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: get scan listings %s", scanID)
	}
	defer rows.Close()

	return decodePgListingRows(rows)
}

func (s *PostgresStore) SaveSignals(ctx context.Context, scanID string, signals *model.SignalsResult) error {
	data, err := json.Marshal(signals)
	if err != nil {
		return eris.Wrap(err, "postgres: marshal signals")
	}

	_, err = s.pool.Exec(ctx,
		`INSERT INTO scan_signals (scan_id, data, computed_at) VALUES ($1, $2, $3)
		 ON CONFLICT (scan_id) DO UPDATE SET data = EXCLUDED.data, computed_at = EXCLUDED.computed_at`,
		scanID, data, signals.ComputedAt,
	)
	return eris.Wrapf(err, "postgres: save signals %s", scanID)
}

func (s *PostgresStore) GetSignals(ctx context.Context, scanID string) (*model.SignalsResult, error) {
	var data []byte
	err := s.pool.QueryRow(ctx,
		`SELECT data FROM scan_signals WHERE scan_id = $1`, scanID,
	).Scan(&data)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: get signals %s", scanID)
	}

	var signals model.SignalsResult
	if err := json.Unmarshal(data, &signals); err != nil {
		return nil, eris.Wrap(err, "postgres: unmarshal signals")
	}
	return &signals, nil
}

func (s *PostgresStore) SaveBrief(ctx context.Context, rec BriefRecord) error {
	briefJSON, err := json.Marshal(rec.Brief)
	if err != nil {
		return eris.Wrap(err, "postgres: marshal brief")
	}
	qaJSON, err := json.Marshal(rec.QA)
	if err != nil {
		return eris.Wrap(err, "postgres: marshal qa result")
	}

	passed := rec.QA != nil && rec.QA.Passed
	createdAt := rec.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}

	_, err = s.pool.Exec(ctx,
		`INSERT INTO briefs (scan_id, attempt, brief, qa_result, passed, created_at) VALUES ($1, $2, $3, $4, $5, $6)
		 ON CONFLICT (scan_id, attempt) DO UPDATE SET
		   brief = EXCLUDED.brief, qa_result = EXCLUDED.qa_result,
		   passed = EXCLUDED.passed, created_at = EXCLUDED.created_at`,
		rec.ScanID, rec.Attempt, briefJSON, qaJSON, passed, createdAt,
	)
	return eris.Wrapf(err, "postgres: save brief %s attempt %d", rec.ScanID, rec.Attempt)
}

func (s *PostgresStore) GetLatestBrief(ctx context.Context, scanID string) (*BriefRecord, error) {
	var rec BriefRecord
	var briefJSON, qaJSON []byte

	err := s.pool.QueryRow(ctx,
		`SELECT scan_id, attempt, brief, qa_result, created_at FROM briefs
		 WHERE scan_id = $1 ORDER BY attempt DESC LIMIT 1`,
		scanID,
	).Scan(&rec.ScanID, &rec.Attempt, &briefJSON, &qaJSON, &rec.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: get latest brief %s", scanID)
	}

	rec.Brief = &model.DifferentiationBrief{}
	if err := json.Unmarshal(briefJSON, rec.Brief); err != nil {
		return nil, eris.Wrap(err, "postgres: unmarshal brief")
	}
	rec.QA = &model.QAResult{}
	if err := json.Unmarshal(qaJSON, rec.QA); err != nil {
		return nil, eris.Wrap(err, "postgres: unmarshal qa result")
	}
	return &rec, nil
}

func (s *PostgresStore) SaveDecision(ctx context.Context, d model.Decision) error {
	decidedAt := d.DecidedAt
	if decidedAt.IsZero() {
		decidedAt = time.Now().UTC()
	}

	_, err := s.pool.Exec(ctx,
		`INSERT INTO decisions (scan_id, decision, notes, decided_at) VALUES ($1, $2, $3, $4)
		 ON CONFLICT (scan_id) DO UPDATE SET
		   decision = EXCLUDED.decision, notes = EXCLUDED.notes, decided_at = EXCLUDED.decided_at`,
		d.ScanID, string(d.Decision), d.Notes, decidedAt,
	)
	return eris.Wrapf(err, "postgres: save decision %s", d.ScanID)
}

func (s *PostgresStore) GetDecision(ctx context.Context, scanID string) (*model.Decision, error) {
	var d model.Decision
	var notes *string

	err := s.pool.QueryRow(ctx,
		`SELECT scan_id, decision, notes, decided_at FROM decisions WHERE scan_id = $1`,
		scanID,
	).Scan(&d.ScanID, &d.Decision, &notes, &d.DecidedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: get decision %s", scanID)
	}
	if notes != nil {
		d.Notes = *notes
	}
	return &d, nil
}

func (s *PostgresStore) GetCachedListings(ctx context.Context, keyword string) ([]model.Listing, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT data FROM listing_cache
		 WHERE keyword = $1 AND expires_at > now()
		 ORDER BY position`,
		keyword,
	)
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: get cached listings %q", keyword)
	}
	defer rows.Close()

	return decodePgListingRows(rows)
}

func (s *PostgresStore) SetCachedListings(ctx context.Context, keyword string, listings []model.Listing, ttl time.Duration) error {
	now := time.Now().UTC()
	expiresAt := now.Add(ttl)

	rows := make([][]any, 0, len(listings))
	for i, l := range listings {
		data, err := json.Marshal(l)
		if err != nil {
			return eris.Wrap(err, "postgres: marshal cached listing")
		}
		rows = append(rows, []any{keyword, l.ListingID, i, data, now, expiresAt})
	}

	// Clear the keyword's previous rows so a shrinking result set does
	// not leave stale listings with colliding positions.
	if _, err := s.pool.Exec(ctx, `DELETE FROM listing_cache WHERE keyword = $1`, keyword); err != nil {
		return eris.Wrap(err, "postgres: clear cached listings")
	}

	_, err := db.BulkUpsert(ctx, s.pool, db.UpsertConfig{
		Table:        "listing_cache",
		Columns:      []string{"keyword", "listing_id", "position", "data", "cached_at", "expires_at"},
		ConflictKeys: []string{"keyword", "listing_id"},
	}, rows)
	return err
}

func (s *PostgresStore) DeleteExpiredListings(ctx context.Context) (int, error) {
	tag, err := s.pool.Exec(ctx,
		`DELETE FROM listing_cache WHERE expires_at <= now()`,
	)
	if err != nil {
		return 0, eris.Wrap(err, "postgres: delete expired listings")
	}
	return int(tag.RowsAffected()), nil
}

func decodePgListingRows(rows pgx.Rows) ([]model.Listing, error) {
	var listings []model.Listing
	for rows.Next() {
		var data []byte
		if err := rows.Scan(&data); err != nil {
			return nil, eris.Wrap(err, "postgres: scan listing row")
		}
		var l model.Listing
		if err := json.Unmarshal(data, &l); err != nil {
			return nil, eris.Wrap(err, "postgres: unmarshal listing")
		}
		listings = append(listings, l)
	}
	return listings, eris.Wrap(rows.Err(), "postgres: iterate listing rows")
}
