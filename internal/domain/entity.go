package domain

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/jinzhu/inflection"
)

// EntityType enumerates the wiki record kinds that accept change requests.
type EntityType string

const (
	EntityCharacter EntityType = "character"
	EntityMember    EntityType = "member"
)

// KnownEntityTypes lists the kinds served by the API.
var KnownEntityTypes = []EntityType{EntityCharacter, EntityMember}

// IsKnown reports whether the kind is one of KnownEntityTypes.
func (t EntityType) IsKnown() bool {
	for _, known := range KnownEntityTypes {
		if t == known {
			return true
		}
	}
	return false
}

// Collection returns the plural collection name, e.g. "characters".
func (t EntityType) Collection() string {
	return inflection.Plural(string(t))
}

// EntityTypeFromCollection resolves a collection name back to its kind.
func EntityTypeFromCollection(collection string) (EntityType, bool) {
	collection = strings.ToLower(strings.TrimSpace(collection))
	for _, known := range KnownEntityTypes {
		if known.Collection() == collection || string(known) == collection {
			return known, true
		}
	}
	return "", false
}

// EntityID identifies an entity. Identifiers arrive both as route strings and
// as numeric JSON values, so decoding accepts either form.
type EntityID string

// UnmarshalJSON accepts a JSON string or number.
func (id *EntityID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*id = ""
		return nil
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*id = EntityID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("entity id must be a string or number: %w", err)
	}
	*id = EntityID(n.String())
	return nil
}

// String returns the raw identifier.
func (id EntityID) String() string {
	return string(id)
}

// Equal compares identifiers loosely: "5", "05" and 5 are the same entity.
func (id EntityID) Equal(other EntityID) bool {
	a := strings.TrimSpace(string(id))
	b := strings.TrimSpace(string(other))
	if a == b {
		return true
	}
	if a == "" || b == "" {
		return false
	}
	fa, errA := strconv.ParseFloat(a, 64)
	fb, errB := strconv.ParseFloat(b, 64)
	if errA != nil || errB != nil {
		return false
	}
	return fa == fb
}

// Entity is a character or member record whose fields may be proposed for change.
type Entity struct {
	Type       EntityType     `json:"type"`
	ID         EntityID       `json:"id"`
	Name       string         `json:"name"`
	Attributes map[string]any `json:"attributes"`
	CreatedAt  time.Time      `json:"createdAt"`
	UpdatedAt  time.Time      `json:"updatedAt"`
}

// Field returns the current value of a field and whether it is set.
func (e Entity) Field(name string) (any, bool) {
	if e.Attributes == nil {
		return nil, false
	}
	val, ok := e.Attributes[name]
	return val, ok
}

// EntityRevision is an immutable record of an approved change applied to an entity field.
type EntityRevision struct {
	ID              string          `json:"id"`
	EntityType      EntityType      `json:"entityType"`
	EntityID        EntityID        `json:"entityId"`
	FieldType       string          `json:"fieldType"`
	ChangeRequestID string          `json:"changeRequestId"`
	Action          ChangeAction    `json:"action"`
	OldValue        json.RawMessage `json:"oldValue,omitempty"`
	NewValue        json.RawMessage `json:"newValue,omitempty"`
	Patch           json.RawMessage `json:"patch,omitempty"`
	AppliedBy       string          `json:"appliedBy"`
	AppliedAt       time.Time       `json:"appliedAt"`
}
