package changes

import "github.com/spec-kit/wiki-moderation/internal/domain"

// Select returns the requests targeting one entity field with the given
// status, keeping the store's order (oldest first). An empty status selects
// pending requests. Entity ids compare loosely, so "5" matches 5.
func Select(all []domain.ChangeRequest, entityType domain.EntityType, entityID domain.EntityID, fieldType string, status domain.ChangeRequestStatus) []domain.ChangeRequest {
	if status == "" {
		status = domain.StatusPending
	}
	selected := make([]domain.ChangeRequest, 0)
	for _, req := range all {
		if req.EntityType != entityType || req.FieldType != fieldType || req.Status != status {
			continue
		}
		if !req.EntityID.Equal(entityID) {
			continue
		}
		selected = append(selected, req)
	}
	return selected
}

// SelectPending is Select with the pending status.
func SelectPending(all []domain.ChangeRequest, entityType domain.EntityType, entityID domain.EntityID, fieldType string) []domain.ChangeRequest {
	return Select(all, entityType, entityID, fieldType, domain.StatusPending)
}

// MostRecent returns the last request of a selection, the one shown when
// only a single summary fits.
func MostRecent(selected []domain.ChangeRequest) (domain.ChangeRequest, bool) {
	if len(selected) == 0 {
		return domain.ChangeRequest{}, false
	}
	return selected[len(selected)-1], true
}
