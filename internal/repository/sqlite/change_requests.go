package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/spec-kit/wiki-moderation/internal/domain"
	"github.com/spec-kit/wiki-moderation/internal/repository"
)

const changeRequestColumns = `id, entity_type, entity_id, field_type, action, old_value, new_value, status,
       requested_by, approved_by, rejected_by, rejection_reason, created_at, approved_at, rejected_at`

type changeRequestStore struct {
	db *sql.DB
}

type rowScanner interface {
	Scan(dest ...any) error
}

func (s *changeRequestStore) List(ctx context.Context, filter repository.ChangeRequestFilter) ([]domain.ChangeRequest, error) {
	clauses := []string{"1=1"}
	args := []any{}
	if filter.EntityType != "" {
		clauses = append(clauses, "entity_type = ?")
		args = append(args, string(filter.EntityType))
	}
	if filter.Status != "" {
		clauses = append(clauses, "status = ?")
		args = append(args, string(filter.Status))
	}

	query := fmt.Sprintf(`SELECT %s FROM change_requests WHERE %s ORDER BY seq ASC`,
		changeRequestColumns, strings.Join(clauses, " AND "))
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list change requests: %w", err)
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

func (s *changeRequestStore) GetByID(ctx context.Context, id string) (*domain.ChangeRequest, error) {
	row := s.db.QueryRowContext(ctx, fmt.Sprintf(`SELECT %s FROM change_requests WHERE id = ?`, changeRequestColumns), id)
	req, err := scanChangeRequest(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, repository.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &req, nil
}

func (s *changeRequestStore) Create(ctx context.Context, req *domain.ChangeRequest) error {
	if req.ID == "" {
		req.ID = uuid.NewString()
	}
	req.Status = domain.StatusPending
	if req.CreatedAt.IsZero() {
		req.CreatedAt = time.Now().UTC()
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO change_requests (
		   id, entity_type, entity_id, field_type, action, old_value, new_value, status, requested_by, created_at
		 ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		req.ID,
		string(req.EntityType),
		req.EntityID.String(),
		req.FieldType,
		string(req.Action),
		nullString(repository.RawToText(req.OldValue)),
		nullString(repository.RawToText(req.NewValue)),
		string(req.Status),
		req.RequestedBy,
		toMillis(req.CreatedAt),
	)
	if err != nil {
		return fmt.Errorf("create change request: %w", err)
	}
	return nil
}

func (s *changeRequestStore) SetApproved(ctx context.Context, req domain.ChangeRequest) error {
	return s.transition(ctx, req.ID,
		`UPDATE change_requests SET status = ?, approved_by = ?, approved_at = ?
		 WHERE id = ? AND status = 'pending'`,
		string(domain.StatusApproved),
		nullString(req.ApprovedBy),
		nullMillis(req.ApprovedAt),
		req.ID,
	)
}

func (s *changeRequestStore) SetRejected(ctx context.Context, req domain.ChangeRequest) error {
	return s.transition(ctx, req.ID,
		`UPDATE change_requests SET status = ?, rejected_by = ?, rejection_reason = ?, rejected_at = ?
		 WHERE id = ? AND status = 'pending'`,
		string(domain.StatusRejected),
		nullString(req.RejectedBy),
		nullString(req.RejectionReason),
		nullMillis(req.RejectedAt),
		req.ID,
	)
}

func (s *changeRequestStore) transition(ctx context.Context, id, query string, args ...any) error {
	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("update change request %s: %w", id, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected > 0 {
		return nil
	}

	var status string
	err = s.db.QueryRowContext(ctx, `SELECT status FROM change_requests WHERE id = ?`, id).Scan(&status)
	if errors.Is(err, sql.ErrNoRows) {
		return repository.ErrNotFound
	}
	if err != nil {
		return err
	}
	return repository.ErrInvalidTransition
}

func (s *changeRequestStore) Delete(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM change_requests WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete change request %s: %w", id, err)
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

func scanChangeRequest(row rowScanner) (domain.ChangeRequest, error) {
	var (
		req                            domain.ChangeRequest
		entityType, entityID, action   string
		status                         string
		oldValue, newValue             sql.NullString
		approvedBy, rejectedBy, reason sql.NullString
		createdAt                      int64
		approvedAt, rejectedAt         sql.NullInt64
	)
	if err := row.Scan(
		&req.ID,
		&entityType,
		&entityID,
		&req.FieldType,
		&action,
		&oldValue,
		&newValue,
		&status,
		&req.RequestedBy,
		&approvedBy,
		&rejectedBy,
		&reason,
		&createdAt,
		&approvedAt,
		&rejectedAt,
	); err != nil {
		return domain.ChangeRequest{}, err
	}
	req.EntityType = domain.EntityType(entityType)
	req.EntityID = domain.EntityID(entityID)
	req.Action = domain.ChangeAction(action)
	req.Status = domain.ChangeRequestStatus(status)
	req.OldValue = repository.TextToRaw(fromNullString(oldValue))
	req.NewValue = repository.TextToRaw(fromNullString(newValue))
	req.ApprovedBy = fromNullString(approvedBy)
	req.RejectedBy = fromNullString(rejectedBy)
	req.RejectionReason = fromNullString(reason)
	req.CreatedAt = fromMillis(createdAt)
	req.ApprovedAt = fromNullMillis(approvedAt)
	req.RejectedAt = fromNullMillis(rejectedAt)
	return req, nil
}
