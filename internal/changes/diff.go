package changes

import (
	"github.com/wI2L/jsondiff"
)

// Modification pairs the old and new version of one array element.
type Modification struct {
	Old any `json:"old"`
	New any `json:"new"`
}

// ArrayDiff classifies array elements as added, removed or modified.
type ArrayDiff struct {
	Added    []any          `json:"added"`
	Removed  []any          `json:"removed"`
	Modified []Modification `json:"modified"`
}

// NewArrayDiff returns a diff with empty, non-nil slices.
func NewArrayDiff() ArrayDiff {
	return ArrayDiff{
		Added:    []any{},
		Removed:  []any{},
		Modified: []Modification{},
	}
}

// IsEmpty reports whether the diff records no change.
func (d ArrayDiff) IsEmpty() bool {
	return len(d.Added) == 0 && len(d.Removed) == 0 && len(d.Modified) == 0
}

// Diff compares two snapshots of an array-valued field. Non-array inputs are
// treated as empty arrays.
//
// When both arrays start with objects carrying an id, elements are paired by
// id and an element whose content changed is reported as modified. Otherwise
// the arrays are compared as sets of values; duplicates collapse.
func Diff(oldValue, newValue any) ArrayDiff {
	oldItems, _ := asSlice(oldValue)
	newItems, _ := asSlice(newValue)

	if len(oldItems) > 0 && len(newItems) > 0 {
		_, oldHasID := identityOf(oldItems[0])
		_, newHasID := identityOf(newItems[0])
		if oldHasID && newHasID {
			return diffByIdentity(oldItems, newItems)
		}
	}
	return diffByValue(oldItems, newItems)
}

type indexedItems struct {
	order []string
	byID  map[string]any
	loose []any
}

func indexByIdentity(items []any) indexedItems {
	idx := indexedItems{byID: make(map[string]any, len(items))}
	for _, item := range items {
		id, ok := identityOf(item)
		if !ok {
			idx.loose = append(idx.loose, item)
			continue
		}
		if _, seen := idx.byID[id]; !seen {
			idx.order = append(idx.order, id)
		}
		idx.byID[id] = item
	}
	return idx
}

func diffByIdentity(oldItems, newItems []any) ArrayDiff {
	result := NewArrayDiff()
	oldIdx := indexByIdentity(oldItems)
	newIdx := indexByIdentity(newItems)

	for _, id := range newIdx.order {
		newItem := newIdx.byID[id]
		oldItem, existed := oldIdx.byID[id]
		if !existed {
			result.Added = append(result.Added, newItem)
			continue
		}
		if !structurallyEqual(oldItem, newItem) {
			result.Modified = append(result.Modified, Modification{Old: oldItem, New: newItem})
		}
	}
	for _, id := range oldIdx.order {
		if _, kept := newIdx.byID[id]; !kept {
			result.Removed = append(result.Removed, oldIdx.byID[id])
		}
	}

	// Elements without an id have no stable identity; compare them as values.
	loose := diffByValue(oldIdx.loose, newIdx.loose)
	result.Added = append(result.Added, loose.Added...)
	result.Removed = append(result.Removed, loose.Removed...)
	return result
}

func diffByValue(oldItems, newItems []any) ArrayDiff {
	result := NewArrayDiff()
	oldSet := make(map[string]struct{}, len(oldItems))
	for _, item := range oldItems {
		oldSet[canonicalKey(item)] = struct{}{}
	}
	newSet := make(map[string]struct{}, len(newItems))
	for _, item := range newItems {
		newSet[canonicalKey(item)] = struct{}{}
	}
	for _, item := range newItems {
		if _, ok := oldSet[canonicalKey(item)]; !ok {
			result.Added = append(result.Added, item)
		}
	}
	for _, item := range oldItems {
		if _, ok := newSet[canonicalKey(item)]; !ok {
			result.Removed = append(result.Removed, item)
		}
	}
	return result
}

// structurallyEqual compares two values by their full JSON structure.
func structurallyEqual(a, b any) bool {
	patch, err := jsondiff.Compare(normalize(a), normalize(b))
	if err != nil {
		return canonicalKey(a) == canonicalKey(b)
	}
	return len(patch) == 0
}
