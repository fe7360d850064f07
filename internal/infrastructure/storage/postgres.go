package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/lib/pq"

	"ArxivDigest/internal/ports"
	"ArxivDigest/internal/triage"
)

// PostgresRepository persists adjudication decisions and digests into
// Postgres so later runs can skip already-decided papers.
type PostgresRepository struct {
	db *sql.DB
	sb sq.StatementBuilderType
}

var _ ports.DigestRepository = (*PostgresRepository)(nil)

// NewPostgresRepository wires a sql.DB implementation.
func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{
		db: db,
		sb: sq.StatementBuilder.PlaceholderFormat(sq.Dollar),
	}
}

// OpenPostgres dials Postgres and verifies the connection.
func OpenPostgres(ctx context.Context, dsn string) (*sql.DB, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return db, nil
}

// AlreadyAdjudicated returns a map with IDs that already have a stored
// decision.
func (r *PostgresRepository) AlreadyAdjudicated(ctx context.Context, ids []string) (map[string]bool, error) {
	if r.db == nil || len(ids) == 0 {
		return map[string]bool{}, nil
	}

	query, args, err := r.sb.
		Select("arxiv_id").
		From("paper_decisions").
		Where(sq.Eq{"arxiv_id": ids}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build decisions query: %w", err)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query decisions: %w", err)
	}
	defer rows.Close()

	result := make(map[string]bool)
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan id: %w", err)
		}
		result[id] = true
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration: %w", err)
	}

	return result, nil
}

// SaveDecisions upserts one decision row per scored paper.
func (r *PostgresRepository) SaveDecisions(ctx context.Context, day string, papers []triage.ScoredPaper) error {
	if r.db == nil || len(papers) == 0 {
		return nil
	}

	for _, p := range papers {
		var published any
		if !p.Published.IsZero() {
			published = p.Published.UTC()
		}

		query, args, err := r.sb.
			Insert("paper_decisions").
			Columns(
				"day", "arxiv_id", "title", "topic_id", "topic", "subtopic",
				"relevance", "keep", "reason", "confidence", "summary",
				"decision_source", "rule_score", "categories", "published",
			).
			Values(
				day, p.ArxivID, p.Title, p.TopicID, p.TopicName, p.Subtopic,
				p.Relevance, p.Keep, p.Reason, p.Confidence, p.Summary,
				p.Source, p.RuleScore, pq.Array(p.Categories), published,
			).
			Suffix(`ON CONFLICT (arxiv_id) DO UPDATE SET
				day = EXCLUDED.day,
				topic_id = EXCLUDED.topic_id,
				topic = EXCLUDED.topic,
				subtopic = EXCLUDED.subtopic,
				relevance = EXCLUDED.relevance,
				keep = EXCLUDED.keep,
				reason = EXCLUDED.reason,
				confidence = EXCLUDED.confidence,
				summary = EXCLUDED.summary,
				decision_source = EXCLUDED.decision_source,
				rule_score = EXCLUDED.rule_score,
				decided_at = NOW()`).
			ToSql()
		if err != nil {
			return fmt.Errorf("build decision upsert: %w", err)
		}

		if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
			return fmt.Errorf("upsert decision %s: %w", p.ArxivID, err)
		}
	}

	return nil
}

// SaveDigest upserts the grouped digest snapshot for the day.
func (r *PostgresRepository) SaveDigest(ctx context.Context, digest *triage.Digest) error {
	if r.db == nil || digest == nil {
		return nil
	}

	payload, err := json.Marshal(digest)
	if err != nil {
		return fmt.Errorf("marshal digest: %w", err)
	}

	query, args, err := r.sb.
		Insert("digest_runs").
		Columns("day", "timezone", "threshold", "oracle_enabled", "selected", "payload").
		Values(digest.Day, digest.Timezone, digest.Threshold, digest.OracleEnabled, digest.TotalSelected(), payload).
		Suffix(`ON CONFLICT (day) DO UPDATE SET
			timezone = EXCLUDED.timezone,
			threshold = EXCLUDED.threshold,
			oracle_enabled = EXCLUDED.oracle_enabled,
			selected = EXCLUDED.selected,
			payload = EXCLUDED.payload,
			updated_at = NOW()`).
		ToSql()
	if err != nil {
		return fmt.Errorf("build digest upsert: %w", err)
	}

	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("upsert digest %s: %w", digest.Day, err)
	}

	return nil
}
