package audit

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"go.uber.org/zap"

	"github.com/veiltext/veiltext/internal/config"
)

// Event is one completed transformation request, reduced to aggregates. The
// store never sees matched substrings or the input text.
type Event struct {
	RequestID  string
	Policy     string
	KindCounts map[string]int
	Unknown    int
	Duration   time.Duration
}

// Row is a persisted audit record, one per (request, kind).
type Row struct {
	ID         int64     `db:"id"`
	RequestID  string    `db:"request_id"`
	Policy     string    `db:"policy"`
	Kind       string    `db:"kind"`
	MatchCount int       `db:"match_count"`
	DurationMS float64   `db:"duration_ms"`
	CreatedAt  time.Time `db:"created_at"`
}

// KindTotal aggregates matches per kind across all recorded requests.
type KindTotal struct {
	Kind    string `db:"kind"`
	Matches int64  `db:"matches"`
}

// Store persists detection aggregates to Postgres.
type Store struct {
	db     *sqlx.DB
	logger *zap.Logger
}

const schema = `
CREATE TABLE IF NOT EXISTS scrub_events (
	id           BIGSERIAL PRIMARY KEY,
	request_id   TEXT NOT NULL,
	policy       TEXT NOT NULL,
	kind         TEXT NOT NULL,
	match_count  INTEGER NOT NULL,
	duration_ms  DOUBLE PRECISION NOT NULL,
	created_at   TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE INDEX IF NOT EXISTS scrub_events_kind_idx ON scrub_events (kind);
CREATE INDEX IF NOT EXISTS scrub_events_created_idx ON scrub_events (created_at);`

// NewStore connects to Postgres and ensures the audit schema exists.
func NewStore(cfg *config.AuditConfig, logger *zap.Logger) (*Store, error) {
	db, err := sqlx.Connect("postgres", cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.ConnMaxLifetime)

	store := &Store{db: db, logger: logger}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("database ping failed: %w", err)
	}
	if _, err := db.ExecContext(ctx, schema); err != nil {
		return nil, fmt.Errorf("failed to ensure audit schema: %w", err)
	}

	logger.Info("Audit store initialized",
		zap.String("database_url", maskDatabaseURL(cfg.DatabaseURL)),
		zap.Int("max_open_conns", cfg.MaxOpenConns))

	return store, nil
}

// Record persists one event as a batch of per-kind rows.
func (s *Store) Record(ctx context.Context, event *Event) error {
	if len(event.KindCounts) == 0 {
		return nil
	}

	valueStrings := make([]string, 0, len(event.KindCounts))
	valueArgs := make([]interface{}, 0, len(event.KindCounts)*5)

	i := 0
	for kind, count := range event.KindCounts {
		valueStrings = append(valueStrings,
			fmt.Sprintf("($%d, $%d, $%d, $%d, $%d)", i*5+1, i*5+2, i*5+3, i*5+4, i*5+5))
		valueArgs = append(valueArgs,
			event.RequestID, event.Policy, kind, count,
			float64(event.Duration.Nanoseconds())/1e6)
		i++
	}

	query := fmt.Sprintf(
		`INSERT INTO scrub_events (request_id, policy, kind, match_count, duration_ms) VALUES %s`,
		strings.Join(valueStrings, ","))

	if _, err := s.db.ExecContext(ctx, query, valueArgs...); err != nil {
		s.logger.Error("Failed to record audit event",
			zap.String("request_id", event.RequestID),
			zap.Error(err))
		return fmt.Errorf("failed to record audit event: %w", err)
	}

	return nil
}

// TotalsByKind returns lifetime match totals per kind.
func (s *Store) TotalsByKind(ctx context.Context) ([]KindTotal, error) {
	var totals []KindTotal
	query := `SELECT kind, SUM(match_count) AS matches FROM scrub_events GROUP BY kind ORDER BY matches DESC`
	if err := s.db.SelectContext(ctx, &totals, query); err != nil {
		return nil, fmt.Errorf("failed to query kind totals: %w", err)
	}
	return totals, nil
}

// RecentEvents returns the most recent audit rows, newest first.
func (s *Store) RecentEvents(ctx context.Context, limit int) ([]Row, error) {
	var rows []Row
	query := `SELECT id, request_id, policy, kind, match_count, duration_ms, created_at
		FROM scrub_events ORDER BY created_at DESC LIMIT $1`
	if err := s.db.SelectContext(ctx, &rows, query, limit); err != nil {
		return nil, fmt.Errorf("failed to query recent events: %w", err)
	}
	return rows, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// maskDatabaseURL hides credentials in a database URL for logging.
func maskDatabaseURL(url string) string {
	idx := strings.Index(url, "://")
	if idx < 0 {
		return url
	}
	rest := url[idx+3:]
	at := strings.LastIndex(rest, "@")
	if at < 0 {
		return url
	}
	return url[:idx+3] + "***" + rest[at:]
}
