package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/spec-kit/wiki-moderation/internal/domain"
	"github.com/spec-kit/wiki-moderation/internal/repository"
)

type revisionStore struct {
	db *sql.DB
}

func (s *revisionStore) Create(ctx context.Context, revision *domain.EntityRevision) error {
	if revision.ID == "" {
		revision.ID = uuid.NewString()
	}
	if revision.AppliedAt.IsZero() {
		revision.AppliedAt = time.Now().UTC()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO entity_revisions (
		   id, entity_type, entity_id, field_type, change_request_id, action,
		   old_value, new_value, patch, applied_by, applied_at
		 ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		revision.ID,
		string(revision.EntityType),
		revision.EntityID.String(),
		revision.FieldType,
		revision.ChangeRequestID,
		string(revision.Action),
		nullString(repository.RawToText(revision.OldValue)),
		nullString(repository.RawToText(revision.NewValue)),
		nullString(repository.RawToText(revision.Patch)),
		revision.AppliedBy,
		toMillis(revision.AppliedAt),
	)
	if err != nil {
		return fmt.Errorf("create revision: %w", err)
	}
	return nil
}

func (s *revisionStore) ListByEntity(ctx context.Context, entityType domain.EntityType, id domain.EntityID) ([]domain.EntityRevision, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, entity_type, entity_id, field_type, change_request_id, action,
		        old_value, new_value, patch, applied_by, applied_at
		 FROM entity_revisions WHERE entity_type = ? AND entity_id = ? ORDER BY seq ASC`,
		string(entityType), id.String(),
	)
	if err != nil {
		return nil, fmt.Errorf("list revisions: %w", err)
	}
	defer rows.Close()

	result := make([]domain.EntityRevision, 0)
	for rows.Next() {
		var (
			revision                  domain.EntityRevision
			kind, entityID, action    string
			oldValue, newValue, patch sql.NullString
			appliedAt                 int64
		)
		if err := rows.Scan(
			&revision.ID,
			&kind,
			&entityID,
			&revision.FieldType,
			&revision.ChangeRequestID,
			&action,
			&oldValue,
			&newValue,
			&patch,
			&revision.AppliedBy,
			&appliedAt,
		); err != nil {
			return nil, err
		}
		revision.EntityType = domain.EntityType(kind)
		revision.EntityID = domain.EntityID(entityID)
		revision.Action = domain.ChangeAction(action)
		revision.OldValue = repository.TextToRaw(fromNullString(oldValue))
		revision.NewValue = repository.TextToRaw(fromNullString(newValue))
		revision.Patch = repository.TextToRaw(fromNullString(patch))
		revision.AppliedAt = fromMillis(appliedAt)
		result = append(result, revision)
	}
	return result, rows.Err()
}
