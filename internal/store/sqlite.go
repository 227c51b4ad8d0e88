package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/sells-group/market-scan/internal/model"
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
CREATE TABLE IF NOT EXISTS scans (
	id            TEXT PRIMARY KEY,
	keyword       TEXT NOT NULL,
	options       TEXT NOT NULL,
	status        TEXT NOT NULL DEFAULT 'queued',
	error_message TEXT,
	created_at    DATETIME NOT NULL DEFAULT (datetime('now')),
	updated_at    DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS scan_listings (
	scan_id    TEXT NOT NULL REFERENCES scans(id),
	listing_id INTEGER NOT NULL,
	position   INTEGER NOT NULL,
	data       TEXT NOT NULL,
	PRIMARY KEY (scan_id, listing_id)
);

CREATE TABLE IF NOT EXISTS scan_signals (
	scan_id     TEXT PRIMARY KEY REFERENCES scans(id),
	data        TEXT NOT NULL,
	computed_at DATETIME NOT NULL
);

CREATE TABLE IF NOT EXISTS briefs (
	scan_id    TEXT NOT NULL REFERENCES scans(id),
	attempt    INTEGER NOT NULL,
	brief      TEXT NOT NULL,
	qa_result  TEXT NOT NULL,
	passed     INTEGER NOT NULL DEFAULT 0,
	created_at DATETIME NOT NULL DEFAULT (datetime('now')),
	PRIMARY KEY (scan_id, attempt)
);

CREATE TABLE IF NOT EXISTS decisions (
	scan_id    TEXT PRIMARY KEY REFERENCES scans(id),
	decision   TEXT NOT NULL,
	notes      TEXT,
	decided_at DATETIME NOT NULL
);

CREATE TABLE IF NOT EXISTS listing_cache (
	keyword    TEXT NOT NULL,
	listing_id INTEGER NOT NULL,
	position   INTEGER NOT NULL,
	data       TEXT NOT NULL,
	cached_at  DATETIME NOT NULL,
	expires_at DATETIME NOT NULL,
	PRIMARY KEY (keyword, listing_id)
);

CREATE INDEX IF NOT EXISTS idx_scans_status ON scans(status);
CREATE INDEX IF NOT EXISTS idx_scans_keyword ON scans(keyword);
CREATE INDEX IF NOT EXISTS idx_scan_listings_scan_id ON scan_listings(scan_id);
CREATE INDEX IF NOT EXISTS idx_listing_cache_expires_at ON listing_cache(expires_at);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) CreateScan(ctx context.Context, keyword string, opts model.ScanOptions) (*model.Scan, error) {
	id := uuid.New().String()
	now := time.Now().UTC()

	optsJSON, err := json.Marshal(opts)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: marshal options")
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO scans (id, keyword, options, status, created_at, updated_at) VALUES (?, ?, ?, ?, ?, ?)`,
		id, keyword, string(optsJSON), string(model.ScanStatusQueued), now, now,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: insert scan")
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

func (s *SQLiteStore) UpdateScanStatus(ctx context.Context, scanID string, status model.ScanStatus) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE scans SET status = ?, updated_at = ? WHERE id = ?`,
		string(status), time.Now().UTC(), scanID,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: update scan status %s", scanID)
	}
	return checkRowsAffected(res, "scan", scanID)
}

func (s *SQLiteStore) MarkScanError(ctx context.Context, scanID string, message string) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE scans SET status = ?, error_message = ?, updated_at = ? WHERE id = ?`,
		string(model.ScanStatusError), message, time.Now().UTC(), scanID,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: mark scan error %s", scanID)
	}
	return checkRowsAffected(res, "scan", scanID)
}

func (s *SQLiteStore) GetScan(ctx context.Context, scanID string) (*model.Scan, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, keyword, options, status, error_message, created_at, updated_at FROM scans WHERE id = ?`,
		scanID,
	)
	return scanScan(row)
}

func (s *SQLiteStore) ListScans(ctx context.Context, filter ScanFilter) ([]model.Scan, error) {
	query := `SELECT id, keyword, options, status, error_message, created_at, updated_at FROM scans WHERE 1=1`
	var args []any

	if filter.Status != "" {
		query += ` AND status = ?`
		args = append(args, string(filter.Status))
	}
	if filter.Keyword != "" {
		query += ` AND keyword = ?`
		args = append(args, filter.Keyword)
	}
	query += ` ORDER BY created_at DESC`

	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}
	query += ` LIMIT ?`
	args = append(args, limit)

	if filter.Offset > 0 {
		query += ` OFFSET ?`
		args = append(args, filter.Offset)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list scans")
	}
	defer rows.Close()

	var scans []model.Scan
	for rows.Next() {
		sc, err := scanScan(rows)
		if err != nil {
			return nil, err
		}
		scans = append(scans, *sc)
	}
	return scans, eris.Wrap(rows.Err(), "sqlite: list scans iterate")
}

func (s *SQLiteStore) SaveScanListings(ctx context.Context, scanID string, listings []model.Listing) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return eris.Wrap(err, "sqlite: begin tx")
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM scan_listings WHERE scan_id = ?`, scanID); err != nil {
		return eris.Wrapf(err, "sqlite: clear scan listings %s", scanID)
	}

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO scan_listings (scan_id, listing_id, position, data) VALUES (?, ?, ?, ?)`)
	if err != nil {
		return eris.Wrap(err, "sqlite: prepare insert listing")
	}
	defer stmt.Close()

	for i, l := range listings {
		data, err := json.Marshal(l)
		if err != nil {
			return eris.Wrap(err, "sqlite: marshal listing")
		}
		if _, err := stmt.ExecContext(ctx, scanID, l.ListingID, i, string(data)); err != nil {
			return eris.Wrapf(err, "sqlite: insert listing %d", l.ListingID)
		}
	}

	return eris.Wrap(tx.Commit(), "sqlite: commit scan listings")
}

func (s *SQLiteStore) GetScanListings(ctx context.Context, scanID string) ([]model.Listing, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT data FROM scan_listings WHERE scan_id = ? ORDER BY position`,
		scanID,
	)
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: get scan listings %s", scanID)
	}
	defer rows.Close()

	return decodeListingRows(rows)
}

func (s *SQLiteStore) SaveSignals(ctx context.Context, scanID string, signals *model.SignalsResult) error {
	data, err := json.Marshal(signals)
	if err != nil {
		return eris.Wrap(err, "sqlite: marshal signals")
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO scan_signals (scan_id, data, computed_at) VALUES (?, ?, ?)
		 ON CONFLICT(scan_id) DO UPDATE SET data = excluded.data, computed_at = excluded.computed_at`,
		scanID, string(data), signals.ComputedAt,
	)
	return eris.Wrapf(err, "sqlite: save signals %s", scanID)
}

func (s *SQLiteStore) GetSignals(ctx context.Context, scanID string) (*model.SignalsResult, error) {
	var data string
	err := s.db.QueryRowContext(ctx,
		`SELECT data FROM scan_signals WHERE scan_id = ?`, scanID,
	).Scan(&data)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: get signals %s", scanID)
	}

	var signals model.SignalsResult
	if err := json.Unmarshal([]byte(data), &signals); err != nil {
		return nil, eris.Wrap(err, "sqlite: unmarshal signals")
	}
	return &signals, nil
}

func (s *SQLiteStore) SaveBrief(ctx context.Context, rec BriefRecord) error {
	briefJSON, err := json.Marshal(rec.Brief)
	if err != nil {
		return eris.Wrap(err, "sqlite: marshal brief")
	}
	qaJSON, err := json.Marshal(rec.QA)
	if err != nil {
		return eris.Wrap(err, "sqlite: marshal qa result")
	}

	passed := 0
	if rec.QA != nil && rec.QA.Passed {
		passed = 1
	}
	createdAt := rec.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO briefs (scan_id, attempt, brief, qa_result, passed, created_at) VALUES (?, ?, ?, ?, ?, ?)
		 ON CONFLICT(scan_id, attempt) DO UPDATE SET
		   brief = excluded.brief, qa_result = excluded.qa_result,
		   passed = excluded.passed, created_at = excluded.created_at`,
		rec.ScanID, rec.Attempt, string(briefJSON), string(qaJSON), passed, createdAt,
	)
	return eris.Wrapf(err, "sqlite: save brief %s attempt %d", rec.ScanID, rec.Attempt)
}

func (s *SQLiteStore) GetLatestBrief(ctx context.Context, scanID string) (*BriefRecord, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT scan_id, attempt, brief, qa_result, created_at FROM briefs
		 WHERE scan_id = ? ORDER BY attempt DESC LIMIT 1`,
		scanID,
	)

	var rec BriefRecord
	var briefJSON, qaJSON string
	err := row.Scan(&rec.ScanID, &rec.Attempt, &briefJSON, &qaJSON, &rec.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: get latest brief %s", scanID)
	}

	rec.Brief = &model.DifferentiationBrief{}
	if err := json.Unmarshal([]byte(briefJSON), rec.Brief); err != nil {
		return nil, eris.Wrap(err, "sqlite: unmarshal brief")
	}
	rec.QA = &model.QAResult{}
	if err := json.Unmarshal([]byte(qaJSON), rec.QA); err != nil {
		return nil, eris.Wrap(err, "sqlite: unmarshal qa result")
	}
	return &rec, nil
}

func (s *SQLiteStore) SaveDecision(ctx context.Context, d model.Decision) error {
	decidedAt := d.DecidedAt
	if decidedAt.IsZero() {
		decidedAt = time.Now().UTC()
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO decisions (scan_id, decision, notes, decided_at) VALUES (?, ?, ?, ?)
		 ON CONFLICT(scan_id) DO UPDATE SET
		   decision = excluded.decision, notes = excluded.notes, decided_at = excluded.decided_at`,
		d.ScanID, string(d.Decision), d.Notes, decidedAt,
	)
	return eris.Wrapf(err, "sqlite: save decision %s", d.ScanID)
}

func (s *SQLiteStore) GetDecision(ctx context.Context, scanID string) (*model.Decision, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT scan_id, decision, notes, decided_at FROM decisions WHERE scan_id = ?`,
		scanID,
	)

	var d model.Decision
	var notes sql.NullString
	err := row.Scan(&d.ScanID, &d.Decision, &notes, &d.DecidedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: get decision %s", scanID)
	}
	d.Notes = notes.String
	return &d, nil
}

func (s *SQLiteStore) GetCachedListings(ctx context.Context, keyword string) ([]model.Listing, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT data FROM listing_cache
		 WHERE keyword = ? AND expires_at > datetime('now')
		 ORDER BY position`,
		keyword,
	)
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: get cached listings %q", keyword)
	}
	defer rows.Close()

	return decodeListingRows(rows)
}

func (s *SQLiteStore) SetCachedListings(ctx context.Context, keyword string, listings []model.Listing, ttl time.Duration) error {
	now := time.Now().UTC()
	expiresAt := now.Add(ttl)

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return eris.Wrap(err, "sqlite: begin tx")
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM listing_cache WHERE keyword = ?`, keyword); err != nil {
		return eris.Wrapf(err, "sqlite: clear cached listings %q", keyword)
	}

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO listing_cache (keyword, listing_id, position, data, cached_at, expires_at) VALUES (?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return eris.Wrap(err, "sqlite: prepare insert cached listing")
	}
	defer stmt.Close()

	for i, l := range listings {
		data, err := json.Marshal(l)
		if err != nil {
			return eris.Wrap(err, "sqlite: marshal cached listing")
		}
		if _, err := stmt.ExecContext(ctx, keyword, l.ListingID, i, string(data), now, expiresAt); err != nil {
			return eris.Wrapf(err, "sqlite: insert cached listing %d", l.ListingID)
		}
	}

	return eris.Wrap(tx.Commit(), "sqlite: commit cached listings")
}

func (s *SQLiteStore) DeleteExpiredListings(ctx context.Context) (int, error) {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM listing_cache WHERE expires_at <= datetime('now')`,
	)
	if err != nil {
		return 0, eris.Wrap(err, "sqlite: delete expired listings")
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
		return eris.Errorf("%s not found: %s", entity, id)
	}
	return nil
}

type scannable interface {
	Scan(dest ...any) error
}

func scanScan(row scannable) (*model.Scan, error) {
	var sc model.Scan
	var optsJSON string
	var errMsg sql.NullString

	err := row.Scan(&sc.ID, &sc.Keyword, &optsJSON, &sc.Status, &errMsg, &sc.CreatedAt, &sc.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, eris.New("scan not found")
	}
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: scan row")
	}

	if err := json.Unmarshal([]byte(optsJSON), &sc.Options); err != nil {
		return nil, eris.Wrap(err, "sqlite: unmarshal options")
	}
	sc.ErrorMessage = errMsg.String
	return &sc, nil
}

func decodeListingRows(rows *sql.Rows) ([]model.Listing, error) {
	var listings []model.Listing
	for rows.Next() {
		var data string
		if err := rows.Scan(&data); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan listing row")
		}
		var l model.Listing
		if err := json.Unmarshal([]byte(data), &l); err != nil {
			return nil, eris.Wrap(err, "sqlite: unmarshal listing")
		}
		listings = append(listings, l)
	}
	return listings, eris.Wrap(rows.Err(), "sqlite: iterate listing rows")
}
