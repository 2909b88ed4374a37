package changes

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/wiki-moderation/internal/domain"
)

func TestSelect_FiltersByTripleAndStatus(t *testing.T) {
	t.Parallel()

	all := []domain.ChangeRequest{
		{ID: "1", EntityType: domain.EntityCharacter, EntityID: "5", FieldType: "bio", Status: domain.StatusPending},
		{ID: "2", EntityType: domain.EntityCharacter, EntityID: "5", FieldType: "bio", Status: domain.StatusApproved},
		{ID: "3", EntityType: domain.EntityMember, EntityID: "5", FieldType: "bio", Status: domain.StatusPending},
		{ID: "4", EntityType: domain.EntityCharacter, EntityID: "6", FieldType: "bio", Status: domain.StatusPending},
		{ID: "5", EntityType: domain.EntityCharacter, EntityID: "5", FieldType: "affiliations", Status: domain.StatusPending},
		{ID: "6", EntityType: domain.EntityCharacter, EntityID: "05", FieldType: "bio", Status: domain.StatusPending},
	}

	got := Select(all, domain.EntityCharacter, "5", "bio", domain.StatusPending)
	require.Len(t, got, 2)
	assert.Equal(t, "1", got[0].ID)
	assert.Equal(t, "6", got[1].ID)

	approved := Select(all, domain.EntityCharacter, "5", "bio", domain.StatusApproved)
	require.Len(t, approved, 1)
	assert.Equal(t, "2", approved[0].ID)

	assert.Equal(t, got, Select(all, domain.EntityCharacter, "5", "bio", ""))
	assert.Empty(t, Select(nil, domain.EntityCharacter, "5", "bio", domain.StatusPending))
}

func TestSelect_NumericAndStringIDsMatch(t *testing.T) {
	t.Parallel()

	var stored []domain.ChangeRequest
	require.NoError(t, json.Unmarshal([]byte(`[
		{"id":"a","entityType":"character","entityId":5,"fieldType":"bio","action":"update","status":"pending"},
		{"id":"b","entityType":"character","entityId":"5","fieldType":"bio","action":"update","status":"pending"}
	]`), &stored))

	got := SelectPending(stored, domain.EntityCharacter, "5", "bio")
	assert.Len(t, got, 2)

	var numeric domain.EntityID
	require.NoError(t, json.Unmarshal([]byte(`5`), &numeric))
	assert.Len(t, SelectPending(stored, domain.EntityCharacter, numeric, "bio"), 2)
}

func TestMostRecent(t *testing.T) {
	t.Parallel()

	_, ok := MostRecent(nil)
	assert.False(t, ok)

	last, ok := MostRecent([]domain.ChangeRequest{{ID: "old"}, {ID: "new"}})
	require.True(t, ok)
	assert.Equal(t, "new", last.ID)
}
