package service

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	jsonpatch "github.com/evanphx/json-patch/v5"
	"github.com/wI2L/jsondiff"

	"github.com/spec-kit/wiki-moderation/internal/changes"
	"github.com/spec-kit/wiki-moderation/internal/domain"
)

type patchOp struct {
	Op    string          `json:"op"`
	Path  string          `json:"path"`
	Value json.RawMessage `json:"value,omitempty"`
}

// ApplyChange commits an approved request to a copy of entity and returns it.
// The input entity is not modified.
//
// Array fields take add (append), delete (remove the matching element) and
// update (replace the matching element, or the whole field when newValue is
// an array). Other fields are replaced on add/update and removed on delete.
func ApplyChange(entity domain.Entity, req domain.ChangeRequest) (domain.Entity, error) {
	ops, err := buildPatch(entity, req)
	if err != nil {
		return entity, err
	}

	doc, err := json.Marshal(attributesOrEmpty(entity.Attributes))
	if err != nil {
		return entity, fmt.Errorf("encode attributes: %w", err)
	}
	rawOps, err := json.Marshal(ops)
	if err != nil {
		return entity, fmt.Errorf("encode patch: %w", err)
	}
	patch, err := jsonpatch.DecodePatch(rawOps)
	if err != nil {
		return entity, fmt.Errorf("decode patch: %w", err)
	}
	patched, err := patch.Apply(doc)
	if err != nil {
		return entity, &changes.MalformedRequestError{RequestID: req.ID, Reason: fmt.Sprintf("apply patch: %v", err)}
	}

	attributes := map[string]any{}
	if err := json.Unmarshal(patched, &attributes); err != nil {
		return entity, fmt.Errorf("decode patched attributes: %w", err)
	}

	out := entity
	out.Attributes = attributes
	return out, nil
}

func buildPatch(entity domain.Entity, req domain.ChangeRequest) ([]patchOp, error) {
	field := strings.TrimSpace(req.FieldType)
	if field == "" {
		return nil, &changes.MalformedRequestError{RequestID: req.ID, Reason: "fieldType is empty"}
	}
	path := "/" + escapePointer(field)

	oldValue, err := changes.DecodeValue(req.OldValue)
	if err != nil {
		return nil, &changes.MalformedRequestError{RequestID: req.ID, Reason: fmt.Sprintf("decode oldValue: %v", err)}
	}
	newValue, err := changes.DecodeValue(req.NewValue)
	if err != nil {
		return nil, &changes.MalformedRequestError{RequestID: req.ID, Reason: fmt.Sprintf("decode newValue: %v", err)}
	}

	current, exists := entity.Field(field)
	elements, isArray := changes.AsArray(current)

	switch req.Action {
	case domain.ActionAdd:
		if !req.HasNewValue() {
			return nil, &changes.MalformedRequestError{RequestID: req.ID, Reason: "add request has no newValue"}
		}
		if isArray {
			return []patchOp{{Op: "add", Path: path + "/-", Value: req.NewValue}}, nil
		}
		if !exists || current == nil {
			return []patchOp{{Op: "add", Path: path, Value: wrapArray(req.NewValue)}}, nil
		}
		return []patchOp{{Op: "add", Path: path, Value: req.NewValue}}, nil

	case domain.ActionDelete:
		if !req.HasOldValue() {
			return nil, &changes.MalformedRequestError{RequestID: req.ID, Reason: "delete request has no oldValue"}
		}
		if !exists {
			return nil, &changes.MalformedRequestError{RequestID: req.ID, Reason: fmt.Sprintf("field %q is not set", field)}
		}
		if isArray {
			if _, whole := changes.AsArray(oldValue); whole {
				return []patchOp{{Op: "remove", Path: path}}, nil
			}
			idx := changes.IndexOf(elements, oldValue)
			if idx < 0 {
				return nil, &changes.MalformedRequestError{RequestID: req.ID, Reason: "element to delete not found"}
			}
			return []patchOp{{Op: "remove", Path: path + "/" + strconv.Itoa(idx)}}, nil
		}
		return []patchOp{{Op: "remove", Path: path}}, nil

	case domain.ActionUpdate:
		if !req.HasOldValue() || !req.HasNewValue() {
			return nil, &changes.MalformedRequestError{RequestID: req.ID, Reason: "update request needs both oldValue and newValue"}
		}
		if isArray {
			if _, whole := changes.AsArray(newValue); !whole {
				idx := changes.IndexOf(elements, oldValue)
				if idx < 0 {
					return nil, &changes.MalformedRequestError{RequestID: req.ID, Reason: "element to update not found"}
				}
				return []patchOp{{Op: "replace", Path: path + "/" + strconv.Itoa(idx), Value: req.NewValue}}, nil
			}
		}
		return []patchOp{{Op: "add", Path: path, Value: req.NewValue}}, nil
	}
	return nil, &changes.MalformedRequestError{RequestID: req.ID, Reason: fmt.Sprintf("unknown action %q", req.Action)}
}

// RevisionPatch describes how an entity's attributes changed as an RFC 6902 patch.
func RevisionPatch(before, after domain.Entity) (json.RawMessage, error) {
	patch, err := jsondiff.Compare(attributesOrEmpty(before.Attributes), attributesOrEmpty(after.Attributes))
	if err != nil {
		return nil, err
	}
	return json.Marshal(patch)
}

func attributesOrEmpty(attributes map[string]any) map[string]any {
	if attributes == nil {
		return map[string]any{}
	}
	return attributes
}

func wrapArray(raw json.RawMessage) json.RawMessage {
	out := make(json.RawMessage, 0, len(raw)+2)
	out = append(out, '[')
	out = append(out, raw...)
	return append(out, ']')
}

func escapePointer(token string) string {
	return strings.ReplaceAll(strings.ReplaceAll(token, "~", "~0"), "/", "~1")
}
