package service

import (
	"context"
	"encoding/json"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/spec-kit/wiki-moderation/internal/config"
	"github.com/spec-kit/wiki-moderation/internal/domain"
	"github.com/spec-kit/wiki-moderation/internal/events"
	"github.com/spec-kit/wiki-moderation/internal/observability"
	"github.com/spec-kit/wiki-moderation/internal/repository/sqlite"
	apperrors "github.com/spec-kit/wiki-moderation/pkg/util/errorutil"
)

type moderationFixture struct {
	svc       *ModerationService
	store     *sqlite.Store
	published []events.Event
}

func newModerationFixture(t *testing.T) *moderationFixture {
	t.Helper()

	store, err := sqlite.Open(filepath.Join(t.TempDir(), "wiki.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	fx := &moderationFixture{store: store}
	dispatcher := events.NewInMemoryDispatcher(zap.NewNop())
	dispatcher.SubscribeAll(func(_ context.Context, e events.Event) error {
		fx.published = append(fx.published, e)
		return nil
	})

	clock := time.Date(2026, time.April, 1, 12, 0, 0, 0, time.UTC)
	fx.svc = NewModerationService(ModerationDependencies{
		ChangeRequestRepo: store.ChangeRequests(),
		EntityRepo:        store.Entities(),
		RevisionRepo:      store.Revisions(),
		Dispatcher:        dispatcher,
		Metrics:           observability.NewMetrics(),
		Fields:            config.ModerationConfig{CharacterFields: []string{"bio", "affiliations", "aliases"}},
		Logger:            zap.NewNop(),
		Clock: func() time.Time {
			clock = clock.Add(time.Second)
			return clock
		},
	})
	fx.svc.RegisterHandlers()

	_, err = fx.svc.CreateEntity(context.Background(), sampleEntity())
	require.NoError(t, err)
	return fx
}

func (fx *moderationFixture) propose(t *testing.T, field string, action domain.ChangeAction, oldValue, newValue string) *domain.ChangeRequest {
	t.Helper()
	draft := domain.ChangeRequestDraft{
		EntityType:  domain.EntityCharacter,
		EntityID:    "5",
		FieldType:   field,
		Action:      action,
		RequestedBy: "alice",
	}
	if oldValue != "" {
		draft.OldValue = json.RawMessage(oldValue)
	}
	if newValue != "" {
		draft.NewValue = json.RawMessage(newValue)
	}
	req, err := fx.svc.CreateChangeRequest(context.Background(), draft)
	require.NoError(t, err)
	return req
}

func (fx *moderationFixture) eventTypes() []events.EventType {
	out := make([]events.EventType, 0, len(fx.published))
	for _, e := range fx.published {
		out = append(out, e.Type)
	}
	return out
}

func TestCreateChangeRequestValidation(t *testing.T) {
	fx := newModerationFixture(t)
	ctx := context.Background()

	cases := []struct {
		name  string
		draft domain.ChangeRequestDraft
		code  string
	}{
		{
			name:  "add without new value",
			draft: domain.ChangeRequestDraft{EntityType: domain.EntityCharacter, EntityID: "5", FieldType: "aliases", Action: domain.ActionAdd},
			code:  apperrors.CodeMalformedRequest,
		},
		{
			name:  "unknown action",
			draft: domain.ChangeRequestDraft{EntityType: domain.EntityCharacter, EntityID: "5", FieldType: "bio", Action: "merge"},
			code:  apperrors.CodeMalformedRequest,
		},
		{
			name:  "field not allowed",
			draft: domain.ChangeRequestDraft{EntityType: domain.EntityCharacter, EntityID: "5", FieldType: "secrets", Action: domain.ActionAdd, NewValue: json.RawMessage(`1`)},
			code:  apperrors.CodeValidation,
		},
		{
			name:  "unknown entity type",
			draft: domain.ChangeRequestDraft{EntityType: "planet", EntityID: "5", FieldType: "bio", Action: domain.ActionAdd, NewValue: json.RawMessage(`1`)},
			code:  apperrors.CodeValidation,
		},
		{
			name:  "missing entity",
			draft: domain.ChangeRequestDraft{EntityType: domain.EntityCharacter, EntityID: "404", FieldType: "bio", Action: domain.ActionAdd, NewValue: json.RawMessage(`1`)},
			code:  apperrors.CodeNotFound,
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := fx.svc.CreateChangeRequest(ctx, tc.draft)
			require.Error(t, err)
			assert.True(t, apperrors.IsCode(err, tc.code), "got %v", err)
		})
	}
}

func TestPendingFieldViewAggregatesArrayRequests(t *testing.T) {
	fx := newModerationFixture(t)
	ctx := context.Background()

	fx.propose(t, "affiliations", domain.ActionAdd, "", `{"id":3,"name":"Choir"}`)
	fx.propose(t, "affiliations", domain.ActionDelete, `{"id":1,"name":"Guild"}`, "")
	last := fx.propose(t, "affiliations", domain.ActionUpdate, `{"id":2,"name":"Band"}`, `{"id":2,"name":"The Band"}`)
	fx.propose(t, "bio", domain.ActionUpdate, `"Singer"`, `"Lead"`)

	view, err := fx.svc.PendingFieldView(ctx, domain.EntityCharacter, "5", "affiliations")
	require.NoError(t, err)

	assert.True(t, view.IsArray)
	assert.Equal(t, "2 items", view.CurrentLabel)
	require.Len(t, view.Pending, 3)
	require.NotNil(t, view.Latest)
	assert.Equal(t, last.ID, view.Latest.Request.ID)
	require.NotNil(t, view.Aggregate)
	assert.Equal(t, []any{map[string]any{"id": float64(3), "name": "Choir"}}, view.Aggregate.Added)
	assert.Equal(t, []any{map[string]any{"id": float64(1), "name": "Guild"}}, view.Aggregate.Removed)
	require.Len(t, view.Aggregate.Modified, 1)
	assert.Equal(t, map[string]any{"id": float64(2), "name": "The Band"}, view.Aggregate.Modified[0].New)
	assert.Empty(t, view.Warnings)
}

func TestPendingFieldViewScalarField(t *testing.T) {
	fx := newModerationFixture(t)

	fx.propose(t, "bio", domain.ActionUpdate, `"Singer"`, `"Lead"`)

	view, err := fx.svc.PendingFieldView(context.Background(), domain.EntityCharacter, "5", "bio")
	require.NoError(t, err)
	assert.False(t, view.IsArray)
	assert.Nil(t, view.Aggregate)
	assert.Equal(t, "Singer", view.CurrentLabel)
	require.Len(t, view.Pending, 1)
	assert.Equal(t, "Lead", view.Pending[0].NewLabel)
}

func TestPendingFieldViewReportsMalformedRequests(t *testing.T) {
	fx := newModerationFixture(t)
	ctx := context.Background()

	fx.propose(t, "aliases", domain.ActionAdd, "", `"Nightingale"`)
	broken := &domain.ChangeRequest{
		EntityType: domain.EntityCharacter, EntityID: "5", FieldType: "aliases",
		Action: domain.ActionUpdate, OldValue: json.RawMessage(`"Ari"`), RequestedBy: "mallory",
	}
	require.NoError(t, fx.store.ChangeRequests().Create(ctx, broken))

	view, err := fx.svc.PendingFieldView(ctx, domain.EntityCharacter, "5", "aliases")
	require.NoError(t, err)
	assert.Equal(t, []any{"Nightingale"}, view.Aggregate.Added)
	require.Len(t, view.Warnings, 1)
	assert.Contains(t, view.Warnings[0], broken.ID)
}

func TestApproveAppliesChangeAndRecordsRevision(t *testing.T) {
	fx := newModerationFixture(t)
	ctx := context.Background()

	req := fx.propose(t, "bio", domain.ActionUpdate, `"Singer"`, `"Lead singer"`)
	approved, err := fx.svc.Approve(ctx, req.ID, "mod")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusApproved, approved.Status)
	require.NotNil(t, approved.ApprovedBy)
	assert.Equal(t, "mod", *approved.ApprovedBy)

	entity, err := fx.svc.GetEntity(ctx, domain.EntityCharacter, "5")
	require.NoError(t, err)
	assert.Equal(t, "Lead singer", entity.Attributes["bio"])

	revisions, err := fx.svc.ListRevisions(ctx, domain.EntityCharacter, "5")
	require.NoError(t, err)
	require.Len(t, revisions, 1)
	assert.Equal(t, req.ID, revisions[0].ChangeRequestID)
	assert.Equal(t, "mod", revisions[0].AppliedBy)
	assert.JSONEq(t, `"Singer"`, string(revisions[0].OldValue))
	assert.JSONEq(t, `"Lead singer"`, string(revisions[0].NewValue))
	assert.JSONEq(t, `[{"op":"replace","path":"/bio","value":"Lead singer"}]`, string(revisions[0].Patch))

	assert.Equal(t, []events.EventType{
		events.EventChangeRequestCreated,
		events.EventEntityFieldApplied,
		events.EventChangeRequestApproved,
	}, fx.eventTypes())
}

func TestApproveArrayAdd(t *testing.T) {
	fx := newModerationFixture(t)
	ctx := context.Background()

	req := fx.propose(t, "affiliations", domain.ActionAdd, "", `{"id":3,"name":"Choir"}`)
	_, err := fx.svc.Approve(ctx, req.ID, "mod")
	require.NoError(t, err)

	entity, err := fx.svc.GetEntity(ctx, domain.EntityCharacter, "5")
	require.NoError(t, err)
	assert.Len(t, entity.Attributes["affiliations"], 3)

	view, err := fx.svc.PendingFieldView(ctx, domain.EntityCharacter, "5", "affiliations")
	require.NoError(t, err)
	assert.Empty(t, view.Pending)
	assert.True(t, view.Aggregate.IsEmpty())
}

func TestTerminalRequestsCannotBeResolvedAgain(t *testing.T) {
	fx := newModerationFixture(t)
	ctx := context.Background()

	req := fx.propose(t, "bio", domain.ActionUpdate, `"Singer"`, `"Lead"`)
	_, err := fx.svc.Approve(ctx, req.ID, "mod")
	require.NoError(t, err)

	_, err = fx.svc.Approve(ctx, req.ID, "mod2")
	assert.True(t, apperrors.IsCode(err, apperrors.CodeInvalidTransition))
	_, err = fx.svc.Reject(ctx, req.ID, "mod2", "late")
	assert.True(t, apperrors.IsCode(err, apperrors.CodeInvalidTransition))

	view, err := fx.svc.GetChangeRequest(ctx, req.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusApproved, view.Request.Status)
	assert.Equal(t, "mod", *view.Request.ApprovedBy)
}

func TestResolvedTimestampsMatchStoredValues(t *testing.T) {
	fx := newModerationFixture(t)
	ctx := context.Background()
	fx.svc.now = func() time.Time {
		return time.Date(2026, time.April, 2, 9, 30, 0, 123456789, time.FixedZone("CEST", 2*60*60))
	}

	req := fx.propose(t, "bio", domain.ActionUpdate, `"Singer"`, `"Lead"`)
	approved, err := fx.svc.Approve(ctx, req.ID, "mod")
	require.NoError(t, err)
	require.NotNil(t, approved.ApprovedAt)
	assert.Equal(t, time.Date(2026, time.April, 2, 7, 30, 0, 123000000, time.UTC), *approved.ApprovedAt)

	view, err := fx.svc.GetChangeRequest(ctx, req.ID)
	require.NoError(t, err)
	require.NotNil(t, view.Request.ApprovedAt)
	assert.True(t, approved.ApprovedAt.Equal(*view.Request.ApprovedAt))
	assert.True(t, req.CreatedAt.Equal(view.Request.CreatedAt))

	other := fx.propose(t, "aliases", domain.ActionAdd, "", `"Ace"`)
	rejected, err := fx.svc.Reject(ctx, other.ID, "mod", "dup")
	require.NoError(t, err)
	stored, err := fx.svc.GetChangeRequest(ctx, other.ID)
	require.NoError(t, err)
	require.NotNil(t, stored.Request.RejectedAt)
	assert.True(t, rejected.RejectedAt.Equal(*stored.Request.RejectedAt))
}

func TestRejectLeavesEntityUntouched(t *testing.T) {
	fx := newModerationFixture(t)
	ctx := context.Background()

	req := fx.propose(t, "bio", domain.ActionUpdate, `"Singer"`, `"Spam"`)
	rejected, err := fx.svc.Reject(ctx, req.ID, "mod", "  spam  ")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusRejected, rejected.Status)
	assert.Equal(t, "spam", *rejected.RejectionReason)
	assert.JSONEq(t, `"Spam"`, string(rejected.NewValue))

	entity, err := fx.svc.GetEntity(ctx, domain.EntityCharacter, "5")
	require.NoError(t, err)
	assert.Equal(t, "Singer", entity.Attributes["bio"])

	revisions, err := fx.svc.ListRevisions(ctx, domain.EntityCharacter, "5")
	require.NoError(t, err)
	assert.Empty(t, revisions)
}

func TestUnknownRequestIsNotFound(t *testing.T) {
	fx := newModerationFixture(t)
	ctx := context.Background()

	_, err := fx.svc.Approve(ctx, "missing", "mod")
	assert.True(t, apperrors.IsCode(err, apperrors.CodeNotFound))
	_, err = fx.svc.GetChangeRequest(ctx, "missing")
	assert.True(t, apperrors.IsCode(err, apperrors.CodeNotFound))
	assert.True(t, apperrors.IsCode(fx.svc.DeleteChangeRequest(ctx, "missing", "admin"), apperrors.CodeNotFound))
}

func TestCreateEntityTwiceConflicts(t *testing.T) {
	fx := newModerationFixture(t)
	ctx := context.Background()

	_, err := fx.svc.CreateEntity(ctx, sampleEntity())
	require.Error(t, err)
	assert.True(t, apperrors.IsCode(err, apperrors.CodeConflict))

	entity, err := fx.svc.GetEntity(ctx, domain.EntityCharacter, "5")
	require.NoError(t, err)
	assert.Equal(t, "Singer", entity.Attributes["bio"])
}

func TestDeleteChangeRequest(t *testing.T) {
	fx := newModerationFixture(t)
	ctx := context.Background()

	req := fx.propose(t, "bio", domain.ActionUpdate, `"Singer"`, `"Lead"`)
	require.NoError(t, fx.svc.DeleteChangeRequest(ctx, req.ID, "admin"))

	_, err := fx.svc.GetChangeRequest(ctx, req.ID)
	assert.True(t, apperrors.IsCode(err, apperrors.CodeNotFound))
	assert.Contains(t, fx.eventTypes(), events.EventChangeRequestDeleted)
}

func TestGetChangeRequestDiffsArrayValues(t *testing.T) {
	fx := newModerationFixture(t)

	req := fx.propose(t, "aliases", domain.ActionUpdate, `["Ari","Songbird"]`, `["Ari","Nightingale"]`)
	view, err := fx.svc.GetChangeRequest(context.Background(), req.ID)
	require.NoError(t, err)
	require.NotNil(t, view.Diff)
	assert.Equal(t, []any{"Nightingale"}, view.Diff.Added)
	assert.Equal(t, []any{"Songbird"}, view.Diff.Removed)
	assert.Equal(t, "2 items", view.OldLabel)
}

func TestListChangeRequestsFilters(t *testing.T) {
	fx := newModerationFixture(t)
	ctx := context.Background()

	first := fx.propose(t, "bio", domain.ActionUpdate, `"Singer"`, `"Lead"`)
	fx.propose(t, "aliases", domain.ActionAdd, "", `"Nightingale"`)
	_, err := fx.svc.Reject(ctx, first.ID, "mod", "")
	require.NoError(t, err)

	all, err := fx.svc.ListChangeRequests(ctx, ChangeRequestQuery{})
	require.NoError(t, err)
	assert.Len(t, all, 2)

	pendingBio, err := fx.svc.ListChangeRequests(ctx, ChangeRequestQuery{EntityType: domain.EntityCharacter, EntityID: "5", FieldType: "bio"})
	require.NoError(t, err)
	assert.Empty(t, pendingBio)

	rejected, err := fx.svc.ListChangeRequests(ctx, ChangeRequestQuery{EntityID: "5.0", Status: domain.StatusRejected})
	require.NoError(t, err)
	require.Len(t, rejected, 1)
	assert.Equal(t, first.ID, rejected[0].ID)
}
