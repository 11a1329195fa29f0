package history

import (
	"context"
	"database/sql"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	_ "github.com/lib/pq"

	"SocialPoster/internal/domain"
	"SocialPoster/internal/ports"
)

// PostgresRepository persists publish outcomes for audit. It is optional:
// when no database is configured the pipeline runs without history.
type PostgresRepository struct {
	db      *sql.DB
	builder sq.StatementBuilderType
}

var _ ports.OutcomeRepository = (*PostgresRepository)(nil)

// NewPostgresRepository wires a sql.DB implementation.
func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{
		db:      db,
		builder: sq.StatementBuilder.PlaceholderFormat(sq.Dollar),
	}
}

// Open connects to Postgres using the given DSN.
func Open(dsn string) (*PostgresRepository, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	return NewPostgresRepository(db), nil
}

// SaveOutcome appends one publish outcome row.
func (r *PostgresRepository) SaveOutcome(ctx context.Context, outcome domain.PublishOutcome) error {
	if r.db == nil {
		return nil
	}

	query, args, err := r.builder.
		Insert("publish_outcomes").
		Columns("platform", "title", "success", "external_id", "error_detail").
		Values(string(outcome.Platform), outcome.Title, outcome.Success, outcome.ExternalID, outcome.Error).
		ToSql()
	if err != nil {
		return fmt.Errorf("build insert: %w", err)
	}

	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("insert outcome: %w", err)
	}
	return nil
}

// Recent returns the latest publish records, newest first.
func (r *PostgresRepository) Recent(ctx context.Context, limit int) ([]domain.PublishRecord, error) {
	if r.db == nil {
		return nil, nil
	}
	if limit <= 0 {
		limit = 50
	}

	query, args, err := r.builder.
		Select("platform", "title", "success", "external_id", "error_detail", "created_at").
		From("publish_outcomes").
		OrderBy("created_at DESC").
		Limit(uint64(limit)).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select: %w", err)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query outcomes: %w", err)
	}
	defer rows.Close()

	var records []domain.PublishRecord
	for rows.Next() {
		var rec domain.PublishRecord
		var platform string
		if err := rows.Scan(&platform, &rec.Title, &rec.Success, &rec.ExternalID, &rec.Error, &rec.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan outcome: %w", err)
		}
		rec.Platform = domain.Platform(platform)
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration: %w", err)
	}

	return records, nil
}
