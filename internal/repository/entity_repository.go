package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/wiki-moderation/internal/domain"
)

type entityRepository struct {
	pool *pgxpool.Pool
}

// NewEntityRepository instantiates the Postgres entity store.
func NewEntityRepository(pool *pgxpool.Pool) EntityRepository {
	return &entityRepository{pool: pool}
}

func (r *entityRepository) GetByID(ctx context.Context, entityType domain.EntityType, id domain.EntityID) (*domain.Entity, error) {
	const query = `
        SELECT entity_type, id, name, attributes::text, created_at, updated_at
        FROM entities WHERE entity_type=$1 AND id=$2`
	var (
		entity     domain.Entity
		entityID   string
		attributes string
	)
	err := r.pool.QueryRow(ctx, query, entityType, id.String()).Scan(
		&entity.Type,
		&entityID,
		&entity.Name,
		&attributes,
		&entity.CreatedAt,
		&entity.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	entity.ID = domain.EntityID(entityID)
	if entity.Attributes, err = DecodeAttributes(attributes); err != nil {
		return nil, err
	}
	return &entity, nil
}

func (r *entityRepository) Create(ctx context.Context, entity *domain.Entity) error {
	attributes, err := EncodeAttributes(entity.Attributes)
	if err != nil {
		return err
	}
	now := time.Now().UTC()
	if entity.CreatedAt.IsZero() {
		entity.CreatedAt = now
	}
	entity.UpdatedAt = entity.CreatedAt

	const query = `
        INSERT INTO entities (entity_type, id, name, attributes, created_at, updated_at)
        VALUES ($1,$2,$3,$4::jsonb,$5,$6)
        ON CONFLICT (entity_type, id) DO NOTHING`
	cmd, err := r.pool.Exec(ctx, query,
		entity.Type,
		entity.ID.String(),
		entity.Name,
		attributes,
		entity.CreatedAt,
		entity.UpdatedAt,
	)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrAlreadyExists
	}
	return nil
}

func (r *entityRepository) Update(ctx context.Context, entity *domain.Entity) error {
	attributes, err := EncodeAttributes(entity.Attributes)
	if err != nil {
		return err
	}
	entity.UpdatedAt = time.Now().UTC()

	const query = `
        UPDATE entities SET name=$3, attributes=$4::jsonb, updated_at=$5
        WHERE entity_type=$1 AND id=$2`
	cmd, err := r.pool.Exec(ctx, query,
		entity.Type,
		entity.ID.String(),
		entity.Name,
		attributes,
		entity.UpdatedAt,
	)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// EncodeAttributes serializes an attribute map for storage; nil encodes as an empty object.
func EncodeAttributes(attributes map[string]any) (string, error) {
	if attributes == nil {
		return "{}", nil
	}
	raw, err := json.Marshal(attributes)
	if err != nil {
		return "", fmt.Errorf("encode attributes: %w", err)
	}
	return string(raw), nil
}

// DecodeAttributes parses a stored attribute document.
func DecodeAttributes(raw string) (map[string]any, error) {
	attributes := map[string]any{}
	if raw == "" {
		return attributes, nil
	}
	if err := json.Unmarshal([]byte(raw), &attributes); err != nil {
		return nil, fmt.Errorf("decode attributes: %w", err)
	}
	return attributes, nil
}
