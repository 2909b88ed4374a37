package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/wiki-moderation/internal/domain"
)

type revisionRepository struct {
	pool *pgxpool.Pool
}

// NewRevisionRepository builds the Postgres revision log.
func NewRevisionRepository(pool *pgxpool.Pool) RevisionRepository {
	return &revisionRepository{pool: pool}
}

func (r *revisionRepository) Create(ctx context.Context, revision *domain.EntityRevision) error {
	if revision.ID == "" {
		revision.ID = uuid.NewString()
	}
	if revision.AppliedAt.IsZero() {
		revision.AppliedAt = time.Now().UTC()
	}
	const query = `
        INSERT INTO entity_revisions (id, entity_type, entity_id, field_type, change_request_id, action, old_value, new_value, patch, applied_by, applied_at)
        VALUES ($1,$2,$3,$4,$5,$6,$7::jsonb,$8::jsonb,$9::jsonb,$10,$11)`
	_, err := r.pool.Exec(ctx, query,
		revision.ID,
		revision.EntityType,
		revision.EntityID.String(),
		revision.FieldType,
		revision.ChangeRequestID,
		revision.Action,
		RawToText(revision.OldValue),
		RawToText(revision.NewValue),
		RawToText(revision.Patch),
		revision.AppliedBy,
		revision.AppliedAt,
	)
	return err
}

func (r *revisionRepository) ListByEntity(ctx context.Context, entityType domain.EntityType, id domain.EntityID) ([]domain.EntityRevision, error) {
	const query = `
        SELECT id::text, entity_type, entity_id, field_type, change_request_id::text, action,
               old_value::text, new_value::text, patch::text, applied_by, applied_at
        FROM entity_revisions WHERE entity_type=$1 AND entity_id=$2 ORDER BY applied_at ASC`
	rows, err := r.pool.Query(ctx, query, entityType, id.String())
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	result := make([]domain.EntityRevision, 0)
	for rows.Next() {
		var (
			revision                  domain.EntityRevision
			entityID                  string
			oldValue, newValue, patch *string
		)
		if err := rows.Scan(
			&revision.ID,
			&revision.EntityType,
			&entityID,
			&revision.FieldType,
			&revision.ChangeRequestID,
			&revision.Action,
			&oldValue,
			&newValue,
			&patch,
			&revision.AppliedBy,
			&revision.AppliedAt,
		); err != nil {
			return nil, err
		}
		revision.EntityID = domain.EntityID(entityID)
		revision.OldValue = TextToRaw(oldValue)
		revision.NewValue = TextToRaw(newValue)
		revision.Patch = TextToRaw(patch)
		result = append(result, revision)
	}
	return result, rows.Err()
}
