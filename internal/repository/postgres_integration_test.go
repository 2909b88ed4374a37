package repository

import (
	"context"
	"encoding/json"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/spec-kit/wiki-moderation/internal/changes"
	"github.com/spec-kit/wiki-moderation/internal/domain"
	"github.com/spec-kit/wiki-moderation/internal/persistence"
)

// openTestPool connects to POSTGRES_TEST_DSN and applies the migrations.
// Tests skip when no database is configured or reachable.
func openTestPool(t *testing.T) *pgxpool.Pool {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	dsn := os.Getenv("POSTGRES_TEST_DSN")
	if dsn == "" {
		t.Skip("POSTGRES_TEST_DSN not set; skipping postgres integration test")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		t.Skipf("postgres is not reachable; skipping: %v", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		t.Skipf("postgres is not reachable; skipping: %v", err)
	}
	t.Cleanup(pool.Close)

	require.NoError(t, persistence.RunMigrations(ctx, pool, "../../migrations", zap.NewNop()))
	return pool
}

// uniqueEntityID keeps reruns against a shared database independent.
func uniqueEntityID() domain.EntityID {
	return domain.EntityID(uuid.NewString())
}

func TestPostgresChangeRequestLifecycle(t *testing.T) {
	pool := openTestPool(t)
	store := NewChangeRequestRepository(pool)
	ctx := context.Background()
	entityID := uniqueEntityID()

	req := &domain.ChangeRequest{
		EntityType:  domain.EntityCharacter,
		EntityID:    entityID,
		FieldType:   "affiliations",
		Action:      domain.ActionUpdate,
		OldValue:    json.RawMessage(`{"id":1,"name":"Guild"}`),
		NewValue:    json.RawMessage(`{"id":1,"name":"Guild of Stars"}`),
		RequestedBy: "alice",
		CreatedAt:   changes.Timestamp(time.Now()),
	}
	require.NoError(t, store.Create(ctx, req))
	require.NotEmpty(t, req.ID)

	got, err := store.GetByID(ctx, req.ID)
	require.NoError(t, err)
	assert.Equal(t, entityID, got.EntityID)
	assert.Equal(t, domain.StatusPending, got.Status)
	assert.JSONEq(t, string(req.OldValue), string(got.OldValue))
	assert.JSONEq(t, string(req.NewValue), string(got.NewValue))
	assert.True(t, req.CreatedAt.Equal(got.CreatedAt))

	approved, err := changes.Approve(*got, "mod", time.Now())
	require.NoError(t, err)
	require.NoError(t, store.SetApproved(ctx, approved))

	stored, err := store.GetByID(ctx, req.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusApproved, stored.Status)
	require.NotNil(t, stored.ApprovedAt)
	assert.True(t, approved.ApprovedAt.Equal(*stored.ApprovedAt))

	// A stale pending copy must not overwrite the resolved row.
	rejected, err := changes.Reject(*got, "mod2", "late", time.Now())
	require.NoError(t, err)
	assert.ErrorIs(t, store.SetRejected(ctx, rejected), ErrInvalidTransition)

	stored, err = store.GetByID(ctx, req.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusApproved, stored.Status)
	assert.Nil(t, stored.RejectedBy)

	listed, err := store.List(ctx, ChangeRequestFilter{EntityType: domain.EntityCharacter, Status: domain.StatusApproved})
	require.NoError(t, err)
	var found bool
	for _, item := range listed {
		found = found || item.ID == req.ID
	}
	assert.True(t, found)

	require.NoError(t, store.Delete(ctx, req.ID))
	_, err = store.GetByID(ctx, req.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestPostgresMissingChangeRequest(t *testing.T) {
	pool := openTestPool(t)
	store := NewChangeRequestRepository(pool)
	ctx := context.Background()

	_, err := store.GetByID(ctx, uuid.NewString())
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = store.GetByID(ctx, "not-a-uuid")
	assert.ErrorIs(t, err, ErrNotFound)

	ghost := domain.ChangeRequest{ID: uuid.NewString(), Status: domain.StatusPending}
	approved, err := changes.Approve(ghost, "mod", time.Now())
	require.NoError(t, err)
	assert.ErrorIs(t, store.SetApproved(ctx, approved), ErrNotFound)
}

func TestPostgresEntitiesAndRevisions(t *testing.T) {
	pool := openTestPool(t)
	entities := NewEntityRepository(pool)
	revisions := NewRevisionRepository(pool)
	ctx := context.Background()
	entityID := uniqueEntityID()

	entity := &domain.Entity{
		Type:       domain.EntityCharacter,
		ID:         entityID,
		Name:       "Nova",
		Attributes: map[string]any{"bio": "Singer"},
	}
	require.NoError(t, entities.Create(ctx, entity))

	duplicate := &domain.Entity{Type: domain.EntityCharacter, ID: entityID, Name: "Imposter"}
	assert.ErrorIs(t, entities.Create(ctx, duplicate), ErrAlreadyExists)

	got, err := entities.GetByID(ctx, domain.EntityCharacter, entityID)
	require.NoError(t, err)
	assert.Equal(t, "Nova", got.Name)
	assert.Equal(t, "Singer", got.Attributes["bio"])

	got.Attributes["bio"] = "Lead singer"
	require.NoError(t, entities.Update(ctx, got))
	got, err = entities.GetByID(ctx, domain.EntityCharacter, entityID)
	require.NoError(t, err)
	assert.Equal(t, "Lead singer", got.Attributes["bio"])

	missing := &domain.Entity{Type: domain.EntityCharacter, ID: uniqueEntityID()}
	assert.ErrorIs(t, entities.Update(ctx, missing), ErrNotFound)
	_, err = entities.GetByID(ctx, domain.EntityCharacter, missing.ID)
	assert.ErrorIs(t, err, ErrNotFound)

	revision := &domain.EntityRevision{
		EntityType:      domain.EntityCharacter,
		EntityID:        entityID,
		FieldType:       "bio",
		ChangeRequestID: uuid.NewString(),
		Action:          domain.ActionUpdate,
		OldValue:        json.RawMessage(`"Singer"`),
		NewValue:        json.RawMessage(`"Lead singer"`),
		Patch:           json.RawMessage(`[{"op":"replace","path":"/bio","value":"Lead singer"}]`),
		AppliedBy:       "mod",
		AppliedAt:       changes.Timestamp(time.Now()),
	}
	require.NoError(t, revisions.Create(ctx, revision))

	listed, err := revisions.ListByEntity(ctx, domain.EntityCharacter, entityID)
	require.NoError(t, err)
	require.Len(t, listed, 1)
	assert.Equal(t, revision.ChangeRequestID, listed[0].ChangeRequestID)
	assert.JSONEq(t, string(revision.Patch), string(listed[0].Patch))
	assert.True(t, revision.AppliedAt.Equal(listed[0].AppliedAt))
}
