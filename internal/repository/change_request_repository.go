package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/wiki-moderation/internal/domain"
)

const changeRequestColumns = `id::text, entity_type, entity_id, field_type, action, old_value::text, new_value::text,
               status, requested_by, approved_by, rejected_by, rejection_reason, created_at, approved_at, rejected_at`

type changeRequestRepository struct {
	pool *pgxpool.Pool
}

// NewChangeRequestRepository instantiates the Postgres store.
func NewChangeRequestRepository(pool *pgxpool.Pool) ChangeRequestRepository {
	return &changeRequestRepository{pool: pool}
}

func (r *changeRequestRepository) List(ctx context.Context, filter ChangeRequestFilter) ([]domain.ChangeRequest, error) {
	clauses := []string{"1=1"}
	args := []any{}

	if filter.EntityType != "" {
		args = append(args, filter.EntityType)
		clauses = append(clauses, fmt.Sprintf("entity_type=$%d", len(args)))
	}
	if filter.Status != "" {
		args = append(args, filter.Status)
		clauses = append(clauses, fmt.Sprintf("status=$%d", len(args)))
	}

	query := fmt.Sprintf(`SELECT %s FROM change_requests WHERE %s ORDER BY created_at ASC, id ASC`,
		changeRequestColumns, strings.Join(clauses, " AND "))

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	result := make([]domain.ChangeRequest, 0)
	for rows.Next() {
		req, err := scanChangeRequest(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, req)
	}
	return result, rows.Err()
}

func (r *changeRequestRepository) GetByID(ctx context.Context, id string) (*domain.ChangeRequest, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, ErrNotFound
	}
	query := fmt.Sprintf(`SELECT %s FROM change_requests WHERE id=$1`, changeRequestColumns)
	req, err := scanChangeRequest(r.pool.QueryRow(ctx, query, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &req, nil
}

func (r *changeRequestRepository) Create(ctx context.Context, req *domain.ChangeRequest) error {
	if req.ID == "" {
		req.ID = uuid.NewString()
	}
	req.Status = domain.StatusPending
	if req.CreatedAt.IsZero() {
		req.CreatedAt = time.Now().UTC()
	}

	const query = `
        INSERT INTO change_requests (id, entity_type, entity_id, field_type, action, old_value, new_value, status, requested_by, created_at)
        VALUES ($1,$2,$3,$4,$5,$6::jsonb,$7::jsonb,$8,$9,$10)`
	_, err := r.pool.Exec(ctx, query,
		req.ID,
		req.EntityType,
		req.EntityID.String(),
		req.FieldType,
		req.Action,
		RawToText(req.OldValue),
		RawToText(req.NewValue),
		req.Status,
		req.RequestedBy,
		req.CreatedAt,
	)
	return err
}

func (r *changeRequestRepository) SetApproved(ctx context.Context, req domain.ChangeRequest) error {
	const query = `
        UPDATE change_requests SET status=$2, approved_by=$3, approved_at=$4
        WHERE id=$1 AND status='pending'`
	return r.transition(ctx, req.ID, query, req.ID, domain.StatusApproved, req.ApprovedBy, req.ApprovedAt)
}

func (r *changeRequestRepository) SetRejected(ctx context.Context, req domain.ChangeRequest) error {
	const query = `
        UPDATE change_requests SET status=$2, rejected_by=$3, rejection_reason=$4, rejected_at=$5
        WHERE id=$1 AND status='pending'`
	return r.transition(ctx, req.ID, query, req.ID, domain.StatusRejected, req.RejectedBy, req.RejectionReason, req.RejectedAt)
}

func (r *changeRequestRepository) transition(ctx context.Context, id, query string, args ...any) error {
	if _, err := uuid.Parse(id); err != nil {
		return ErrNotFound
	}
	cmd, err := r.pool.Exec(ctx, query, args...)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() > 0 {
		return nil
	}

	var status string
	err = r.pool.QueryRow(ctx, `SELECT status FROM change_requests WHERE id=$1`, id).Scan(&status)
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}
	if err != nil {
		return err
	}
	return ErrInvalidTransition
}

func (r *changeRequestRepository) Delete(ctx context.Context, id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return ErrNotFound
	}
	cmd, err := r.pool.Exec(ctx, `DELETE FROM change_requests WHERE id=$1`, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func scanChangeRequest(row pgx.Row) (domain.ChangeRequest, error) {
	var (
		req      domain.ChangeRequest
		entityID string
		oldValue *string
		newValue *string
	)
	if err := row.Scan(
		&req.ID,
		&req.EntityType,
		&entityID,
		&req.FieldType,
		&req.Action,
		&oldValue,
		&newValue,
		&req.Status,
		&req.RequestedBy,
		&req.ApprovedBy,
		&req.RejectedBy,
		&req.RejectionReason,
		&req.CreatedAt,
		&req.ApprovedAt,
		&req.RejectedAt,
	); err != nil {
		return domain.ChangeRequest{}, err
	}
	req.EntityID = domain.EntityID(entityID)
	req.OldValue = TextToRaw(oldValue)
	req.NewValue = TextToRaw(newValue)
	return req, nil
}
