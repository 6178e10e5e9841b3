package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/outrage-civic/outrage-api/internal/model"
)

// SQLiteStore implements Store using modernc.org/sqlite. It backs local
// development and single-node deployments.
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
CREATE TABLE IF NOT EXISTS campaigns (
	id                 TEXT PRIMARY KEY,
	title              TEXT NOT NULL,
	message            TEXT NOT NULL,
	demands            TEXT,
	representative_ids TEXT,
	city               TEXT,
	state              TEXT,
	message_sent_count INTEGER NOT NULL DEFAULT 0,
	view_count         INTEGER NOT NULL DEFAULT 0,
	created_at         INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS rep_cache (
	address_hash    TEXT PRIMARY KEY,
	representatives TEXT NOT NULL,
	cached_at       INTEGER NOT NULL,
	expires_at      INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS form_cache (
	request_hash TEXT PRIMARY KEY,
	analysis     TEXT NOT NULL,
	cached_at    INTEGER NOT NULL,
	expires_at   INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_campaigns_created_at ON campaigns(created_at DESC);
CREATE INDEX IF NOT EXISTS idx_rep_cache_expires_at ON rep_cache(expires_at);
CREATE INDEX IF NOT EXISTS idx_form_cache_expires_at ON form_cache(expires_at);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) CreateCampaign(ctx context.Context, c model.Campaign) (*model.Campaign, error) {
	c.ID = uuid.New().String()
	c.CreatedAt = time.Now().UTC().Truncate(time.Second)
	c.MessageSentCount = 0
	c.ViewCount = 0

	demands, err := json.Marshal(c.Demands)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: marshal demands")
	}
	repIDs, err := json.Marshal(c.RepresentativeIDs)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: marshal representative ids")
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO campaigns (id, title, message, demands, representative_ids, city, state, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		c.ID, c.Title, c.Message, string(demands), string(repIDs), c.City, c.State, c.CreatedAt.Unix(),
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: insert campaign")
	}
	return &c, nil
}

func (s *SQLiteStore) GetCampaign(ctx context.Context, id string) (*model.Campaign, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, title, message, demands, representative_ids, city, state, message_sent_count, view_count, created_at
		 FROM campaigns WHERE id = ?`, id)

	c, err := scanCampaign(row.Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, &NotFoundError{ID: id}
	}
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: get campaign %s", id)
	}
	return c, nil
}

func (s *SQLiteStore) ListCampaigns(ctx context.Context, filter CampaignFilter) ([]model.Campaign, error) {
	limit := filter.Limit
	if limit <= 0 {
		limit = 50
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, title, message, demands, representative_ids, city, state, message_sent_count, view_count, created_at
		 FROM campaigns
		 WHERE (? = '' OR city = ?) AND (? = '' OR state = ?)
		 ORDER BY created_at DESC
		 LIMIT ? OFFSET ?`,
		filter.City, filter.City, filter.State, filter.State, limit, filter.Offset,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list campaigns")
	}
	defer rows.Close()

	var campaigns []model.Campaign
	for rows.Next() {
		c, err := scanCampaign(rows.Scan)
		if err != nil {
			return nil, eris.Wrap(err, "sqlite: scan campaign")
		}
		campaigns = append(campaigns, *c)
	}
	return campaigns, eris.Wrap(rows.Err(), "sqlite: list campaigns rows")
}

func scanCampaign(scan func(dest ...any) error) (*model.Campaign, error) {
	var c model.Campaign
	var demands, repIDs sql.NullString
	var createdAt int64

	if err := scan(&c.ID, &c.Title, &c.Message, &demands, &repIDs, &c.City, &c.State,
		&c.MessageSentCount, &c.ViewCount, &createdAt); err != nil {
		return nil, err
	}
	c.CreatedAt = time.Unix(createdAt, 0).UTC()

	if demands.Valid && demands.String != "" {
		if err := json.Unmarshal([]byte(demands.String), &c.Demands); err != nil {
			return nil, err
		}
	}
	if repIDs.Valid && repIDs.String != "" {
		if err := json.Unmarshal([]byte(repIDs.String), &c.RepresentativeIDs); err != nil {
			return nil, err
		}
	}
	return &c, nil
}

func (s *SQLiteStore) IncrementCampaignSent(ctx context.Context, id string) error {
	return s.incrementCounter(ctx, "message_sent_count", id)
}

func (s *SQLiteStore) IncrementCampaignViews(ctx context.Context, id string) error {
	return s.incrementCounter(ctx, "view_count", id)
}

func (s *SQLiteStore) incrementCounter(ctx context.Context, column, id string) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE campaigns SET `+column+` = `+column+` + 1 WHERE id = ?`, id)
	if err != nil {
		return eris.Wrapf(err, "sqlite: increment %s %s", column, id)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return eris.Wrap(err, "sqlite: rows affected")
	}
	if n == 0 {
		return &NotFoundError{ID: id}
	}
	return nil
}

func (s *SQLiteStore) GetCachedRepresentatives(ctx context.Context, addressHash string) ([]model.Representative, error) {
	var data string
	err := s.db.QueryRowContext(ctx,
		`SELECT representatives FROM rep_cache WHERE address_hash = ? AND expires_at > ?`,
		addressHash, time.Now().UTC().Unix(),
	).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: get rep cache")
	}

	reps := []model.Representative{}
	if err := json.Unmarshal([]byte(data), &reps); err != nil {
		return nil, eris.Wrap(err, "sqlite: unmarshal rep cache")
	}
	return reps, nil
}

func (s *SQLiteStore) SetCachedRepresentatives(ctx context.Context, addressHash string, reps []model.Representative, ttl time.Duration) error {
	data, err := json.Marshal(reps)
	if err != nil {
		return eris.Wrap(err, "sqlite: marshal rep cache")
	}
	now := time.Now().UTC()
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO rep_cache (address_hash, representatives, cached_at, expires_at) VALUES (?, ?, ?, ?)
		 ON CONFLICT (address_hash) DO UPDATE SET representatives = excluded.representatives,
		 cached_at = excluded.cached_at, expires_at = excluded.expires_at`,
		addressHash, string(data), now.Unix(), now.Add(ttl).Unix(),
	)
	return eris.Wrap(err, "sqlite: set rep cache")
}

func (s *SQLiteStore) GetCachedFormAnalysis(ctx context.Context, requestHash string) ([]byte, error) {
	var data string
	err := s.db.QueryRowContext(ctx,
		`SELECT analysis FROM form_cache WHERE request_hash = ? AND expires_at > ?`,
		requestHash, time.Now().UTC().Unix(),
	).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: get form cache")
	}
	return []byte(data), nil
}

func (s *SQLiteStore) SetCachedFormAnalysis(ctx context.Context, requestHash string, data []byte, ttl time.Duration) error {
	now := time.Now().UTC()
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO form_cache (request_hash, analysis, cached_at, expires_at) VALUES (?, ?, ?, ?)
		 ON CONFLICT (request_hash) DO UPDATE SET analysis = excluded.analysis,
		 cached_at = excluded.cached_at, expires_at = excluded.expires_at`,
		requestHash, string(data), now.Unix(), now.Add(ttl).Unix(),
	)
	return eris.Wrap(err, "sqlite: set form cache")
}

func (s *SQLiteStore) DeleteExpiredCache(ctx context.Context) (int, error) {
	total := 0
	now := time.Now().UTC().Unix()
	for _, table := range []string{"rep_cache", "form_cache"} {
		res, err := s.db.ExecContext(ctx, `DELETE FROM `+table+` WHERE expires_at <= ?`, now)
		if err != nil {
			return total, eris.Wrapf(err, "sqlite: delete expired %s", table)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return total, eris.Wrap(err, "sqlite: rows affected")
		}
		total += int(n)
	}
	return total, nil
}
