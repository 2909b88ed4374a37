package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/spec-kit/wiki-moderation/internal/domain"
	"github.com/spec-kit/wiki-moderation/internal/repository"
)

type entityStore struct {
	db *sql.DB
}

func (s *entityStore) GetByID(ctx context.Context, entityType domain.EntityType, id domain.EntityID) (*domain.Entity, error) {
	var (
		entity               domain.Entity
		kind, entityID       string
		attributes           string
		createdAt, updatedAt int64
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT entity_type, id, name, attributes, created_at, updated_at
		 FROM entities WHERE entity_type = ? AND id = ?`,
		string(entityType), id.String(),
	).Scan(&kind, &entityID, &entity.Name, &attributes, &createdAt, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, repository.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get entity %s/%s: %w", entityType, id, err)
	}
	entity.Type = domain.EntityType(kind)
	entity.ID = domain.EntityID(entityID)
	entity.CreatedAt = fromMillis(createdAt)
	entity.UpdatedAt = fromMillis(updatedAt)
	if entity.Attributes, err = repository.DecodeAttributes(attributes); err != nil {
		return nil, err
	}
	return &entity, nil
}

func (s *entityStore) Create(ctx context.Context, entity *domain.Entity) error {
	attributes, err := repository.EncodeAttributes(entity.Attributes)
	if err != nil {
		return err
	}
	if entity.CreatedAt.IsZero() {
		entity.CreatedAt = time.Now().UTC()
	}
	entity.UpdatedAt = entity.CreatedAt

	res, err := s.db.ExecContext(ctx,
		`INSERT INTO entities (entity_type, id, name, attributes, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?)
		 ON CONFLICT (entity_type, id) DO NOTHING`,
		string(entity.Type),
		entity.ID.String(),
		entity.Name,
		attributes,
		toMillis(entity.CreatedAt),
		toMillis(entity.UpdatedAt),
	)
	if err != nil {
		return fmt.Errorf("create entity %s/%s: %w", entity.Type, entity.ID, err)
	}
	inserted, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("create entity %s/%s: %w", entity.Type, entity.ID, err)
	}
	if inserted == 0 {
		return repository.ErrAlreadyExists
	}
	return nil
}

func (s *entityStore) Update(ctx context.Context, entity *domain.Entity) error {
	attributes, err := repository.EncodeAttributes(entity.Attributes)
	if err != nil {
		return err
	}
	entity.UpdatedAt = time.Now().UTC()

	res, err := s.db.ExecContext(ctx,
		`UPDATE entities SET name = ?, attributes = ?, updated_at = ?
		 WHERE entity_type = ? AND id = ?`,
		entity.Name,
		attributes,
		toMillis(entity.UpdatedAt),
		string(entity.Type),
		entity.ID.String(),
	)
	if err != nil {
		return fmt.Errorf("update entity %s/%s: %w", entity.Type, entity.ID, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return repository.ErrNotFound
	}
	return nil
}
