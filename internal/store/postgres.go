package store

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/outrage-civic/outrage-api/internal/db"
	"github.com/outrage-civic/outrage-api/internal/model"
)

// PostgresStore implements Store using pgxpool.
type PostgresStore struct {
	pool db.Pool
}

// PoolConfig holds optional connection pool tuning parameters.
type PoolConfig struct {
	MaxConns int32
	MinConns int32
}

// preparedStatements lists queries to prepare on each new connection for
// faster execution of the most frequently used store operations.
var preparedStatements = map[string]string{
	"insert_campaign": `INSERT INTO campaigns (id, title, message, demands, representative_ids, city, state, created_at) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
	"get_campaign":    `SELECT id, title, message, demands, representative_ids, city, state, message_sent_count, view_count, created_at FROM campaigns WHERE id = $1`,
	"inc_sent":        `UPDATE campaigns SET message_sent_count = message_sent_count + 1 WHERE id = $1`,
	"inc_views":       `UPDATE campaigns SET view_count = view_count + 1 WHERE id = $1`,
	"get_rep_cache":   `SELECT representatives FROM rep_cache WHERE address_hash = $1 AND expires_at > now()`,
	"set_rep_cache":   `INSERT INTO rep_cache (address_hash, representatives, cached_at, expires_at) VALUES ($1, $2, now(), $3) ON CONFLICT (address_hash) DO UPDATE SET representatives = EXCLUDED.representatives, cached_at = now(), expires_at = EXCLUDED.expires_at`,
	"get_form_cache":  `SELECT analysis FROM form_cache WHERE request_hash = $1 AND expires_at > now()`,
	"set_form_cache":  `INSERT INTO form_cache (request_hash, analysis, cached_at, expires_at) VALUES ($1, $2, now(), $3) ON CONFLICT (request_hash) DO UPDATE SET analysis = EXCLUDED.analysis, cached_at = now(), expires_at = EXCLUDED.expires_at`,
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
	return &PostgresStore{pool: pool}, nil
}

// NewPostgresFromPool wraps an existing pool; used by tests with pgxmock.
func NewPostgresFromPool(pool db.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS campaigns (
	id                 TEXT PRIMARY KEY,
	title              TEXT NOT NULL,
	message            TEXT NOT NULL,
	demands            JSONB,
	representative_ids JSONB,
	city               TEXT,
	state              TEXT,
	message_sent_count INTEGER NOT NULL DEFAULT 0,
	view_count         INTEGER NOT NULL DEFAULT 0,
	created_at         TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS rep_cache (
	address_hash    TEXT PRIMARY KEY,
	representatives JSONB NOT NULL,
	cached_at       TIMESTAMPTZ NOT NULL DEFAULT now(),
	expires_at      TIMESTAMPTZ NOT NULL
);

CREATE TABLE IF NOT EXISTS form_cache (
	request_hash TEXT PRIMARY KEY,
	analysis     JSONB NOT NULL,
	cached_at    TIMESTAMPTZ NOT NULL DEFAULT now(),
	expires_at   TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_campaigns_created_at ON campaigns(created_at DESC);
CREATE INDEX IF NOT EXISTS idx_campaigns_city_state ON campaigns(city, state);
CREATE INDEX IF NOT EXISTS idx_rep_cache_expires_at ON rep_cache(expires_at);
CREATE INDEX IF NOT EXISTS idx_form_cache_expires_at ON form_cache(expires_at);
`

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}

func (s *PostgresStore) CreateCampaign(ctx context.Context, c model.Campaign) (*model.Campaign, error) {
	c.ID = uuid.New().String()
	c.CreatedAt = time.Now().UTC()
	c.MessageSentCount = 0
	c.ViewCount = 0

	demands, err := json.Marshal(c.Demands)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: marshal demands")
	}
	repIDs, err := json.Marshal(c.RepresentativeIDs)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: marshal representative ids")
	}

	_, err = s.pool.Exec(ctx, "insert_campaign",
		c.ID, c.Title, c.Message, demands, repIDs, c.City, c.State, c.CreatedAt,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: insert campaign")
	}
	return &c, nil
}

func (s *PostgresStore) GetCampaign(ctx context.Context, id string) (*model.Campaign, error) {
	var c model.Campaign
	var demands, repIDs []byte

	row := s.pool.QueryRow(ctx, "get_campaign", id)
	err := row.Scan(&c.ID, &c.Title, &c.Message, &demands, &repIDs, &c.City, &c.State,
		&c.MessageSentCount, &c.ViewCount, &c.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, &NotFoundError{ID: id}
	}
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: get campaign %s", id)
	}

	if len(demands) > 0 {
		if err := json.Unmarshal(demands, &c.Demands); err != nil {
			return nil, eris.Wrap(err, "postgres: unmarshal demands")
		}
	}
	if len(repIDs) > 0 {
		if err := json.Unmarshal(repIDs, &c.RepresentativeIDs); err != nil {
			return nil, eris.Wrap(err, "postgres: unmarshal representative ids")
		}
	}
	return &c, nil
}

func (s *PostgresStore) ListCampaigns(ctx context.Context, filter CampaignFilter) ([]model.Campaign, error) {
	limit := filter.Limit
	if limit <= 0 {
		limit = 50
	}

	rows, err := s.pool.Query(ctx, `
		SELECT id, title, message, demands, representative_ids, city, state, message_sent_count, view_count, created_at
		FROM campaigns
		WHERE ($1 = '' OR city = $1) AND ($2 = '' OR state = $2)
		ORDER BY created_at DESC
		LIMIT $3 OFFSET $4`,
		filter.City, filter.State, limit, filter.Offset,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list campaigns")
	}
	defer rows.Close()

	var campaigns []model.Campaign
	for rows.Next() {
		var c model.Campaign
		var demands, repIDs []byte
		if err := rows.Scan(&c.ID, &c.Title, &c.Message, &demands, &repIDs, &c.City, &c.State,
			&c.MessageSentCount, &c.ViewCount, &c.CreatedAt); err != nil {
			return nil, eris.Wrap(err, "postgres: scan campaign")
		}
		if len(demands) > 0 {
			if err := json.Unmarshal(demands, &c.Demands); err != nil {
				return nil, eris.Wrap(err, "postgres: unmarshal demands")
			}
		}
		if len(repIDs) > 0 {
			if err := json.Unmarshal(repIDs, &c.RepresentativeIDs); err != nil {
				return nil, eris.Wrap(err, "postgres: unmarshal representative ids")
			}
		}
		campaigns = append(campaigns, c)
	}
	return campaigns, eris.Wrap(rows.Err(), "postgres: list campaigns rows")
}

func (s *PostgresStore) IncrementCampaignSent(ctx context.Context, id string) error {
	tag, err := s.pool.Exec(ctx, "inc_sent", id)
	if err != nil {
		return eris.Wrapf(err, "postgres: increment sent %s", id)
	}
	if tag.RowsAffected() == 0 {
		return &NotFoundError{ID: id}
	}
	return nil
}

func (s *PostgresStore) IncrementCampaignViews(ctx context.Context, id string) error {
	tag, err := s.pool.Exec(ctx, "inc_views", id)
	if err != nil {
		return eris.Wrapf(err, "postgres: increment views %s", id)
	}
	if tag.RowsAffected() == 0 {
		return &NotFoundError{ID: id}
	}
	return nil
}

func (s *PostgresStore) GetCachedRepresentatives(ctx context.Context, addressHash string) ([]model.Representative, error) {
	var data []byte
	err := s.pool.QueryRow(ctx, "get_rep_cache", addressHash).Scan(&data)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrap(err, "postgres: get rep cache")
	}

	reps := []model.Representative{}
	if err := json.Unmarshal(data, &reps); err != nil {
		return nil, eris.Wrap(err, "postgres: unmarshal rep cache")
	}
	return reps, nil
}

func (s *PostgresStore) SetCachedRepresentatives(ctx context.Context, addressHash string, reps []model.Representative, ttl time.Duration) error {
	data, err := json.Marshal(reps)
	if err != nil {
		return eris.Wrap(err, "postgres: marshal rep cache")
	}
	_, err = s.pool.Exec(ctx, "set_rep_cache", addressHash, data, time.Now().UTC().Add(ttl))
	return eris.Wrap(err, "postgres: set rep cache")
}

func (s *PostgresStore) GetCachedFormAnalysis(ctx context.Context, requestHash string) ([]byte, error) {
	var data []byte
	err := s.pool.QueryRow(ctx, "get_form_cache", requestHash).Scan(&data)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrap(err, "postgres: get form cache")
	}
	return data, nil
}

func (s *PostgresStore) SetCachedFormAnalysis(ctx context.Context, requestHash string, data []byte, ttl time.Duration) error {
	_, err := s.pool.Exec(ctx, "set_form_cache", requestHash, data, time.Now().UTC().Add(ttl))
	return eris.Wrap(err, "postgres: set form cache")
}

func (s *PostgresStore) DeleteExpiredCache(ctx context.Context) (int, error) {
	total := 0
	for _, table := range []string{"rep_cache", "form_cache"} {
		tag, err := s.pool.Exec(ctx, "DELETE FROM "+table+" WHERE expires_at <= now()")
		if err != nil {
			return total, eris.Wrapf(err, "postgres: delete expired %s", table)
		}
		total += int(tag.RowsAffected())
	}
	return total, nil
}
