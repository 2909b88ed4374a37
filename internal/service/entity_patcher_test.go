package service

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/wiki-moderation/internal/changes"
	"github.com/spec-kit/wiki-moderation/internal/domain"
)

func sampleEntity() domain.Entity {
	return domain.Entity{
		Type: domain.EntityCharacter,
		ID:   "5",
		Name: "Aria",
		Attributes: map[string]any{
			"bio": "Singer",
			"affiliations": []any{
				map[string]any{"id": float64(1), "name": "Guild"},
				map[string]any{"id": float64(2), "name": "Band"},
			},
			"aliases": []any{"Ari", "Songbird"},
		},
	}
}

func approvedRequest(field string, action domain.ChangeAction, oldValue, newValue string) domain.ChangeRequest {
	req := domain.ChangeRequest{
		ID:         "cr-1",
		EntityType: domain.EntityCharacter,
		EntityID:   "5",
		FieldType:  field,
		Action:     action,
		Status:     domain.StatusApproved,
	}
	if oldValue != "" {
		req.OldValue = json.RawMessage(oldValue)
	}
	if newValue != "" {
		req.NewValue = json.RawMessage(newValue)
	}
	return req
}

func TestApplyChangeScalarUpdate(t *testing.T) {
	t.Parallel()

	entity := sampleEntity()
	out, err := ApplyChange(entity, approvedRequest("bio", domain.ActionUpdate, `"Singer"`, `"Lead singer"`))
	require.NoError(t, err)
	assert.Equal(t, "Lead singer", out.Attributes["bio"])
	assert.Equal(t, "Singer", entity.Attributes["bio"], "input must not change")
}

func TestApplyChangeArrayOperations(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name   string
		req    domain.ChangeRequest
		field  string
		expect any
	}{
		{
			name:  "add appends",
			req:   approvedRequest("affiliations", domain.ActionAdd, "", `{"id":3,"name":"Choir"}`),
			field: "affiliations",
			expect: []any{
				map[string]any{"id": float64(1), "name": "Guild"},
				map[string]any{"id": float64(2), "name": "Band"},
				map[string]any{"id": float64(3), "name": "Choir"},
			},
		},
		{
			name:   "delete matches by id",
			req:    approvedRequest("affiliations", domain.ActionDelete, `{"id":1,"name":"stale name"}`, ""),
			field:  "affiliations",
			expect: []any{map[string]any{"id": float64(2), "name": "Band"}},
		},
		{
			name:  "update replaces matched element",
			req:   approvedRequest("affiliations", domain.ActionUpdate, `{"id":2,"name":"Band"}`, `{"id":2,"name":"The Band"}`),
			field: "affiliations",
			expect: []any{
				map[string]any{"id": float64(1), "name": "Guild"},
				map[string]any{"id": float64(2), "name": "The Band"},
			},
		},
		{
			name:   "delete plain value",
			req:    approvedRequest("aliases", domain.ActionDelete, `"Ari"`, ""),
			field:  "aliases",
			expect: []any{"Songbird"},
		},
		{
			name:   "update with whole array replaces field",
			req:    approvedRequest("aliases", domain.ActionUpdate, `["Ari","Songbird"]`, `["Nightingale"]`),
			field:  "aliases",
			expect: []any{"Nightingale"},
		},
		{
			name:   "add to unset field starts a list",
			req:    approvedRequest("socials", domain.ActionAdd, "", `{"id":"tw","url":"https://example.com"}`),
			field:  "socials",
			expect: []any{map[string]any{"id": "tw", "url": "https://example.com"}},
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			entity := sampleEntity()
			out, err := ApplyChange(entity, tc.req)
			require.NoError(t, err)
			assert.Equal(t, tc.expect, out.Attributes[tc.field])
			assert.Len(t, entity.Attributes["affiliations"], 2)
		})
	}
}

func TestApplyChangeExplicitNull(t *testing.T) {
	t.Parallel()

	out, err := ApplyChange(sampleEntity(), approvedRequest("bio", domain.ActionUpdate, `"Singer"`, `null`))
	require.NoError(t, err)
	value, ok := out.Field("bio")
	assert.True(t, ok)
	assert.Nil(t, value)
}

func TestApplyChangeEscapesFieldNames(t *testing.T) {
	t.Parallel()

	out, err := ApplyChange(sampleEntity(), approvedRequest("links/official~site", domain.ActionUpdate, `null`, `"https://example.com"`))
	require.NoError(t, err)
	assert.Equal(t, "https://example.com", out.Attributes["links/official~site"])
}

func TestApplyChangeFailures(t *testing.T) {
	t.Parallel()

	cases := map[string]domain.ChangeRequest{
		"missing element":      approvedRequest("affiliations", domain.ActionDelete, `{"id":99}`, ""),
		"update missing value": approvedRequest("bio", domain.ActionUpdate, `"Singer"`, ""),
		"delete unset field":   approvedRequest("nickname", domain.ActionDelete, `"x"`, ""),
		"unknown action":       approvedRequest("bio", "merge", `"a"`, `"b"`),
	}
	for name, req := range cases {
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			_, err := ApplyChange(sampleEntity(), req)
			assert.ErrorIs(t, err, changes.ErrMalformedRequest)
		})
	}
}

func TestRevisionPatch(t *testing.T) {
	t.Parallel()

	before := sampleEntity()
	after, err := ApplyChange(before, approvedRequest("bio", domain.ActionUpdate, `"Singer"`, `"Lead"`))
	require.NoError(t, err)

	patch, err := RevisionPatch(before, after)
	require.NoError(t, err)
	assert.JSONEq(t, `[{"op":"replace","path":"/bio","value":"Lead"}]`, string(patch))
}
